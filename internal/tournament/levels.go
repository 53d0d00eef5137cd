package tournament

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoLevels      = errors.New("no levels")
	ErrUnorderedPlan = errors.New("level starts must strictly increase")
	ErrBadDuration   = errors.New("final level duration must be positive")
)

// Kind tells a playing level from a break.
type Kind int

const (
	KindLevel Kind = iota
	KindBreak
)

func (k Kind) String() string {
	if k == KindBreak {
		return "break"
	}
	return "level"
}

// Entry is one line of the published structure.
type Entry struct {
	Start      time.Time
	Kind       Kind
	SmallBlind int64
	BigBlind   int64
	Ante       int64
}

// Level is an entry with its computed length.
type Level struct {
	Entry
	Duration time.Duration
}

func (l Level) End() time.Time { return l.Start.Add(l.Duration) }

// BreakRule injects a break of Length whenever a level runs across
// MinutePastHour. A zero Length disables it.
type BreakRule struct {
	MinutePastHour int
	Length         time.Duration
}

// nextBoundary returns the first instant at or after t that sits on the
// rule's minute.
func (r BreakRule) nextBoundary(t time.Time) time.Time {
	b := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), r.MinutePastHour, 0, 0, t.Location())
	if b.Before(t) {
		b = b.Add(time.Hour)
	}
	return b
}

// BuildLevels turns entries into timed levels. Each entry lasts until the
// next one starts; the last lasts finalDuration. A level crossing the break
// minute is split around an injected break, which eats into the level's
// time rather than moving later entries. No break is injected at the
// tournament's own start.
func BuildLevels(entries []Entry, finalDuration time.Duration, rule BreakRule) ([]Level, error) {
	if len(entries) == 0 {
		return nil, ErrNoLevels
	}
	if finalDuration <= 0 {
		return nil, ErrBadDuration
	}
	if rule.MinutePastHour < 0 || rule.MinutePastHour > 59 {
		return nil, fmt.Errorf("break minute %d out of range", rule.MinutePastHour)
	}
	for i := 1; i < len(entries); i++ {
		if !entries[i].Start.After(entries[i-1].Start) {
			return nil, fmt.Errorf("%w: entry %d", ErrUnorderedPlan, i)
		}
	}

	origin := entries[0].Start
	var out []Level
	for i, e := range entries {
		end := e.Start.Add(finalDuration)
		if i+1 < len(entries) {
			end = entries[i+1].Start
		}
		if e.Kind == KindBreak || rule.Length <= 0 {
			out = append(out, Level{Entry: e, Duration: end.Sub(e.Start)})
			continue
		}
		out = append(out, splitLevel(e, end, origin, rule)...)
	}
	return out, nil
}

func splitLevel(e Entry, end, origin time.Time, rule BreakRule) []Level {
	var out []Level
	cur := e.Start
	for cur.Before(end) {
		b := rule.nextBoundary(cur)
		if b.Equal(origin) {
			b = rule.nextBoundary(b.Add(time.Minute))
		}
		if !b.Before(end) {
			break
		}
		if b.After(cur) {
			part := e
			part.Start = cur
			out = append(out, Level{Entry: part, Duration: b.Sub(cur)})
		}
		brk := Entry{Start: b, Kind: KindBreak}
		brkEnd := b.Add(rule.Length)
		if brkEnd.After(end) {
			brkEnd = end
		}
		out = append(out, Level{Entry: brk, Duration: brkEnd.Sub(b)})
		cur = brkEnd
	}
	if cur.Before(end) {
		part := e
		part.Start = cur
		out = append(out, Level{Entry: part, Duration: end.Sub(cur)})
	}
	return out
}
