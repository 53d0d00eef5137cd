// Package config reads the daemon settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"holdem-arena/holdem"
	"holdem-arena/internal/table"
	"holdem-arena/internal/tournament"
)

type Config struct {
	ListenAddr string
	LedgerMode string

	LogDir   string
	LogLevel string

	// CashTables is how many cash tables are opened at startup.
	CashTables int

	MaxSeats  int
	PotLimit  bool
	Omaha     bool
	BurnCards bool
	MinBuyIn  int64
	MaxBuyIn  int64

	Blinds table.BlindLevel
	Rake   table.RakePolicy

	TurnTimeout      time.Duration
	Timebank         table.TimebankConfig
	HandDelay        time.Duration
	ShuffleCommit    bool
	HandshakeTimeout time.Duration
	InsuranceTimeout time.Duration
	SidebetWindow    time.Duration

	ShutdownTimeout time.Duration

	Tournament Tournament
}

// Tournament describes the tournament table opened at startup. It is
// disabled when Levels is empty.
type Tournament struct {
	ID      string
	TableID string
	// Start is when the first level begins; zero means at startup.
	Start         time.Time
	Levels        []table.BlindLevel
	LevelDuration time.Duration
	FinalDuration time.Duration
	Break         tournament.BreakRule
	StartingStack int64
	MaxSeats      int
}

func (t Tournament) Enabled() bool { return len(t.Levels) > 0 }

// Entries lays the levels out back to back from Start, or from now.
func (t Tournament) Entries(now time.Time) []tournament.Entry {
	start := t.Start
	if start.IsZero() {
		start = now
	}
	out := make([]tournament.Entry, 0, len(t.Levels))
	for i, l := range t.Levels {
		out = append(out, tournament.Entry{
			Start:      start.Add(time.Duration(i) * t.LevelDuration),
			SmallBlind: l.Small,
			BigBlind:   l.Big,
			Ante:       l.Ante,
		})
	}
	return out
}

// Load reads envFile (missing is fine) and then the process environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var p parser
	cfg := Config{
		ListenAddr: envString("LISTEN_ADDR", "127.0.0.1:8080"),
		LedgerMode: envString("LEDGER_MODE", "memory"),
		LogDir:     envString("LOG_DIR", ""),
		LogLevel:   envString("LOG_LEVEL", "info"),
		CashTables: p.int("CASH_TABLES", 1),

		MaxSeats:  p.int("TABLE_MAX_SEATS", 6),
		PotLimit:  p.bool("TABLE_POT_LIMIT", false),
		Omaha:     p.bool("TABLE_OMAHA", false),
		BurnCards: p.bool("TABLE_BURN_CARDS", false),
		MinBuyIn:  p.int64("TABLE_MIN_BUYIN", 5000),
		MaxBuyIn:  p.int64("TABLE_MAX_BUYIN", 20000),

		Blinds: table.BlindLevel{
			Small: p.int64("BLIND_SMALL", 50),
			Big:   p.int64("BLIND_BIG", 100),
			Ante:  p.int64("BLIND_ANTE", 0),
		},
		Rake: table.RakePolicy{
			BasisPoints:     p.int64("RAKE_BASIS_POINTS", 500),
			Cap:             p.int64("RAKE_CAP", 300),
			SkipUncontested: p.bool("RAKE_SKIP_UNCONTESTED", true),
		},

		TurnTimeout: p.duration("TURN_TIMEOUT", 15*time.Second),
		Timebank: table.TimebankConfig{
			Initial: p.duration("TIMEBANK_INITIAL", 30*time.Second),
			Cap:     p.duration("TIMEBANK_CAP", 60*time.Second),
			Earn:    p.duration("TIMEBANK_EARN", time.Second),
			FastAct: p.duration("TIMEBANK_FAST_ACT", 3*time.Second),
		},
		HandDelay:        p.duration("HAND_DELAY", 3*time.Second),
		ShuffleCommit:    p.bool("SHUFFLE_COMMIT", true),
		HandshakeTimeout: p.duration("HANDSHAKE_TIMEOUT", 2*time.Second),
		InsuranceTimeout: p.duration("INSURANCE_TIMEOUT", 5*time.Second),
		SidebetWindow:    p.duration("SIDEBET_WINDOW", 3*time.Second),
		ShutdownTimeout:  p.duration("SHUTDOWN_TIMEOUT", 30*time.Second),

		Tournament: Tournament{
			ID:            envString("TOURNAMENT_ID", "tournament"),
			TableID:       envString("TOURNAMENT_TABLE_ID", ""),
			Start:         p.timestamp("TOURNAMENT_START"),
			Levels:        p.levels("TOURNAMENT_LEVELS"),
			LevelDuration: p.duration("TOURNAMENT_LEVEL_DURATION", 15*time.Minute),
			Break: tournament.BreakRule{
				MinutePastHour: p.int("TOURNAMENT_BREAK_MINUTE", 55),
				Length:         p.duration("TOURNAMENT_BREAK_LENGTH", 0),
			},
			StartingStack: p.int64("TOURNAMENT_STARTING_STACK", 10000),
			MaxSeats:      p.int("TOURNAMENT_MAX_SEATS", 0),
		},
	}
	cfg.Tournament.FinalDuration = p.duration("TOURNAMENT_FINAL_DURATION", cfg.Tournament.LevelDuration)
	if p.err != nil {
		return Config{}, p.err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.MaxSeats < 2 || c.MaxSeats > 10 {
		return fmt.Errorf("TABLE_MAX_SEATS must be in [2,10], got %d", c.MaxSeats)
	}
	if c.MinBuyIn <= 0 || c.MaxBuyIn < c.MinBuyIn {
		return fmt.Errorf("invalid buy-in range %d-%d", c.MinBuyIn, c.MaxBuyIn)
	}
	if c.Blinds.Small <= 0 || c.Blinds.Big < c.Blinds.Small {
		return fmt.Errorf("invalid blinds %d/%d", c.Blinds.Small, c.Blinds.Big)
	}
	if c.Rake.BasisPoints < 0 || c.Rake.BasisPoints > 10000 {
		return fmt.Errorf("RAKE_BASIS_POINTS out of range: %d", c.Rake.BasisPoints)
	}
	if c.CashTables < 0 {
		return fmt.Errorf("CASH_TABLES must not be negative")
	}
	if t := c.Tournament; t.Enabled() {
		if t.LevelDuration <= 0 || t.FinalDuration <= 0 {
			return fmt.Errorf("tournament level durations must be positive")
		}
		if t.StartingStack <= 0 {
			return fmt.Errorf("TOURNAMENT_STARTING_STACK must be positive")
		}
		if t.Break.MinutePastHour < 0 || t.Break.MinutePastHour > 59 {
			return fmt.Errorf("TOURNAMENT_BREAK_MINUTE out of range: %d", t.Break.MinutePastHour)
		}
	}
	return nil
}

// TableTemplate is the table.Config shared by every table the daemon opens.
func (c Config) TableTemplate() table.Config {
	limit := holdem.NoLimit
	if c.PotLimit {
		limit = holdem.PotLimit
	}
	return table.Config{
		MaxSeats:         c.MaxSeats,
		Limit:            limit,
		Omaha:            c.Omaha,
		BurnCards:        c.BurnCards,
		MinBuyIn:         c.MinBuyIn,
		MaxBuyIn:         c.MaxBuyIn,
		TurnTimeout:      c.TurnTimeout,
		Timebank:         c.Timebank,
		HandDelay:        c.HandDelay,
		AutoStart:        true,
		ShuffleCommit:    c.ShuffleCommit,
		HandshakeTimeout: c.HandshakeTimeout,
		InsuranceTimeout: c.InsuranceTimeout,
		SidebetWindow:    c.SidebetWindow,
	}
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// parser keeps the first malformed variable so Load can report it.
type parser struct {
	err error
}

func (p *parser) fail(key, v string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s=%q: %w", key, v, err)
	}
}

func (p *parser) int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) int64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

// duration accepts Go durations ("1500ms") or plain milliseconds.
func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

// timestamp accepts RFC 3339; empty is the zero time.
func (p *parser) timestamp(key string) time.Time {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		p.fail(key, v, err)
	}
	return t
}

// levels parses "small/big[/ante]" entries separated by commas, e.g.
// "25/50,50/100,100/200/25".
func (p *parser) levels(key string) []table.BlindLevel {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	var out []table.BlindLevel
	for _, item := range strings.Split(v, ",") {
		parts := strings.Split(strings.TrimSpace(item), "/")
		if len(parts) < 2 || len(parts) > 3 {
			p.fail(key, v, fmt.Errorf("bad level %q", item))
			return nil
		}
		var nums [3]int64
		for i, part := range parts {
			n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || n < 0 {
				p.fail(key, v, fmt.Errorf("bad level %q", item))
				return nil
			}
			nums[i] = n
		}
		if nums[0] <= 0 || nums[1] < nums[0] {
			p.fail(key, v, fmt.Errorf("bad blinds in %q", item))
			return nil
		}
		out = append(out, table.BlindLevel{Small: nums[0], Big: nums[1], Ante: nums[2]})
	}
	return out
}

func (p *parser) bool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return def
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	p.fail(key, v, errors.New("not a boolean"))
	return def
}
