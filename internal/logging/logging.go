package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// Subsystem tags.
const (
	SubTable      = "TABL"
	SubLedger     = "LDGR"
	SubTournament = "TRNY"
	SubLobby      = "LBBY"
	SubAdmin      = "ADMN"
	SubMain       = "MAIN"
)

var Subsystems = []string{SubTable, SubLedger, SubTournament, SubLobby, SubAdmin, SubMain}

type Config struct {
	// Dir holds the rotated log file. Empty disables file output.
	Dir      string
	Filename string
	Level    string
	// ThresholdKB is the size at which the file is rolled.
	ThresholdKB int64
	MaxRolls    int
	// Console receives a copy of every line; nil means stdout.
	Console io.Writer
}

// Backend owns the subsystem loggers and the rotated file behind them.
type Backend struct {
	backend *slog.Backend
	rotator *rotator.Rotator

	mu      sync.Mutex
	level   slog.Level
	loggers map[string]slog.Logger
}

func New(cfg Config) (*Backend, error) {
	level, ok := slog.LevelFromString(cfg.Level)
	if cfg.Level == "" {
		level, ok = slog.LevelInfo, true
	}
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", cfg.Level)
	}
	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}

	b := &Backend{level: level, loggers: make(map[string]slog.Logger)}
	out := console
	if cfg.Dir != "" {
		if cfg.Filename == "" {
			cfg.Filename = "tabled.log"
		}
		if cfg.ThresholdKB <= 0 {
			cfg.ThresholdKB = 10 * 1024
		}
		if cfg.MaxRolls <= 0 {
			cfg.MaxRolls = 3
		}
		if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		r, err := rotator.New(filepath.Join(cfg.Dir, cfg.Filename), cfg.ThresholdKB, false, cfg.MaxRolls)
		if err != nil {
			return nil, fmt.Errorf("create log rotator: %w", err)
		}
		b.rotator = r
		out = io.MultiWriter(console, r)
	}
	b.backend = slog.NewBackend(out)
	return b, nil
}

// Logger returns the logger for subsystem, creating it at the current level.
func (b *Backend) Logger(subsystem string) slog.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l, ok := b.loggers[subsystem]; ok {
		return l
	}
	l := b.backend.Logger(subsystem)
	l.SetLevel(b.level)
	b.loggers[subsystem] = l
	return l
}

// SetLevel changes every subsystem, and the default for new ones.
func (b *Backend) SetLevel(level string) error {
	lvl, ok := slog.LevelFromString(level)
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.level = lvl
	for _, l := range b.loggers {
		l.SetLevel(lvl)
	}
	return nil
}

func (b *Backend) SetSubsystemLevel(subsystem, level string) error {
	lvl, ok := slog.LevelFromString(level)
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}
	b.mu.Lock()
	l, exists := b.loggers[subsystem]
	b.mu.Unlock()
	if !exists {
		return fmt.Errorf("unknown subsystem %q", subsystem)
	}
	l.SetLevel(lvl)
	return nil
}

// Levels reports each created subsystem's level.
func (b *Backend) Levels() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]string, len(b.loggers))
	for name, l := range b.loggers {
		out[name] = l.Level().String()
	}
	return out
}

func (b *Backend) SubsystemNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.loggers))
	for name := range b.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Backend) Close() error {
	if b.rotator == nil {
		return nil
	}
	return b.rotator.Close()
}
