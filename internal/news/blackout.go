// Package news suppresses signal generation around scheduled high-impact
// events.
package news

import (
	"fmt"
	"time"
)

// EventTimeLayout is the accepted format for configured events.
const EventTimeLayout = "2006-01-02 15:04 UTC"

// Guard checks the wall clock against a configured event calendar.
type Guard struct {
	events []time.Time
	window time.Duration
	now    func() time.Time
}

// NewGuard parses the configured event timestamps. Unparseable entries are
// rejected up front rather than silently skipped per cycle.
func NewGuard(events []string, windowMinutes int) (*Guard, error) {
	parsed := make([]time.Time, 0, len(events))
	for _, raw := range events {
		t, err := time.Parse(EventTimeLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("news: invalid event time %q: %w", raw, err)
		}
		parsed = append(parsed, t.UTC())
	}
	return &Guard{
		events: parsed,
		window: time.Duration(windowMinutes) * time.Minute,
		now:    time.Now,
	}, nil
}

// WithClock replaces the wall clock, for tests.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// Check reports whether the current moment falls inside any event's
// blackout window, with a human-readable reason.
func (g *Guard) Check() (bool, string) {
	now := g.now().UTC()
	for _, event := range g.events {
		start := event.Add(-g.window)
		end := event.Add(g.window)
		if now.Before(start) || now.After(end) {
			continue
		}
		until := int(event.Sub(now).Minutes())
		if until > 0 {
			return true, fmt.Sprintf("High-impact event in %dm", until)
		}
		return true, fmt.Sprintf("High-impact event just passed (%dm ago)", -until)
	}
	return false, "Clear"
}
