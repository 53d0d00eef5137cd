package tournament

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"

	"holdem-arena/internal/table"
)

// Liveness reports how many players can still be dealt in.
type Liveness interface {
	ActivePlayers() (int, error)
}

type Config struct {
	ID     string
	Levels []Level
	// Table is polled every tick; one player left ends the schedule.
	Table Liveness
	// Interval is the wall time between ticks. Each tick counts as one
	// second of level time.
	Interval time.Duration
	Now      func() time.Time
	OnLevel  func(Level)
	OnDone   func()
	Log      slog.Logger
}

func (c *Config) validate() error {
	if len(c.Levels) == 0 {
		return ErrNoLevels
	}
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Log == nil {
		c.Log = slog.Disabled
	}
	return nil
}

// Scheduler walks the level list. Its position is always derived from the
// wall clock on Resume, never from a saved countdown.
type Scheduler struct {
	cfg Config
	log slog.Logger

	mu        sync.RWMutex
	idx       int
	remaining time.Duration
	finished  bool
	// seated is set once the table has had two active players; a table
	// still filling up is not finished.
	seated    bool
	done      chan struct{}
	doneOnce  sync.Once
}

func NewScheduler(cfg Config) (*Scheduler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{cfg: cfg, log: cfg.Log, done: make(chan struct{})}
	s.Resume(cfg.Now())
	return s, nil
}

// Resume places the scheduler on the level running at now, with whatever
// time that level has left. Before the first start the first level is
// current; past the last end the last level stays current.
func (s *Scheduler) Resume(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	levels := s.cfg.Levels
	s.idx = len(levels) - 1
	for i, l := range levels {
		if now.Before(l.End()) {
			s.idx = i
			break
		}
	}
	s.remaining = levels[s.idx].End().Sub(now)
	if s.remaining < 0 {
		s.remaining = 0
	}
	l := levels[s.idx]
	s.log.Infof("tournament %s: resumed at %s %d (%d/%d ante %d), %s left",
		s.cfg.ID, l.Kind, s.idx, l.SmallBlind, l.BigBlind, l.Ante, s.remaining.Round(time.Second))
}

// Tick takes one second off the current level and moves on when it runs
// out. It reports whether the level changed.
func (s *Scheduler) Tick() bool {
	s.mu.Lock()
	s.remaining -= time.Second
	var changed []Level
	for s.remaining <= 0 && s.idx < len(s.cfg.Levels)-1 {
		s.idx++
		s.remaining += s.cfg.Levels[s.idx].Duration
		changed = append(changed, s.cfg.Levels[s.idx])
	}
	if s.remaining < 0 {
		s.remaining = 0
	}
	s.mu.Unlock()

	for _, l := range changed {
		s.log.Infof("tournament %s: %s starts, blinds %d/%d ante %d for %s",
			s.cfg.ID, l.Kind, l.SmallBlind, l.BigBlind, l.Ante, l.Duration)
		if s.cfg.OnLevel != nil {
			s.cfg.OnLevel(l)
		}
	}
	return len(changed) > 0
}

// Run ticks until ctx ends or the liveness poll finds a single player.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Resume(s.cfg.Now())
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
			over, err := s.poll()
			if err != nil {
				s.log.Warnf("tournament %s: liveness poll: %v", s.cfg.ID, err)
				continue
			}
			if over {
				return nil
			}
		}
	}
}

// Watch sets the table the liveness poll asks.
func (s *Scheduler) Watch(t Liveness) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Table = t
}

func (s *Scheduler) poll() (bool, error) {
	s.mu.RLock()
	tbl := s.cfg.Table
	s.mu.RUnlock()
	if tbl == nil {
		return false, nil
	}
	n, err := tbl.ActivePlayers()
	if err != nil {
		return false, fmt.Errorf("active players: %w", err)
	}
	s.mu.Lock()
	if n >= 2 {
		s.seated = true
	}
	seated := s.seated
	s.mu.Unlock()
	if n != 1 || !seated {
		return false, nil
	}
	s.finish()
	return true, nil
}

func (s *Scheduler) finish() {
	s.doneOnce.Do(func() {
		s.mu.Lock()
		s.finished = true
		s.mu.Unlock()
		s.log.Infof("tournament %s: one player left", s.cfg.ID)
		close(s.done)
		if s.cfg.OnDone != nil {
			s.cfg.OnDone()
		}
	})
}

// Done is closed once a single player remains.
func (s *Scheduler) Done() <-chan struct{} { return s.done }

func (s *Scheduler) Finished() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finished
}

// Level returns the current level and the time it has left.
func (s *Scheduler) Level() (Level, time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Levels[s.idx], s.remaining
}

// Current serves blinds to a tournament table. It reports false during a
// break.
func (s *Scheduler) Current() (table.BlindLevel, bool) {
	l, _ := s.Level()
	if l.Kind == KindBreak {
		return table.BlindLevel{}, false
	}
	return table.BlindLevel{Small: l.SmallBlind, Big: l.BigBlind, Ante: l.Ante}, true
}

var _ table.BlindSource = (*Scheduler)(nil)
