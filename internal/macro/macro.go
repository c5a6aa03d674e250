// Package macro turns the macro sentiment bundle into the gating verdict.
package macro

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aurum/internal/decision"
	"aurum/internal/logger"
	"aurum/internal/market"
)

// Reading is the derived macro view passed to the aggregator and archived
// with each signal.
type Reading struct {
	Verdict decision.Verdict `json:"verdict"`
	Score   int              `json:"score"`
	Bundle  market.MacroBundle `json:"bundle"`
}

// Derive sums the three bundle signals: >= +1 is BUY (gold supportive),
// <= -1 is SELL, otherwise NEUTRAL.
func Derive(bundle market.MacroBundle) Reading {
	score := bundle.DXYSignal + bundle.YieldSignal + bundle.RiskSignal
	verdict := decision.VerdictNeutral
	switch {
	case score >= 1:
		verdict = decision.VerdictBuy
	case score <= -1:
		verdict = decision.VerdictSell
	}
	return Reading{Verdict: verdict, Score: score, Bundle: bundle}
}

// Service fetches and caches the macro reading. The cache is explicit
// injected state with time-keyed reset, not a package-level variable, so
// tests and restarts control it.
type Service struct {
	source market.MacroSource
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	cached    Reading
	fetchedAt time.Time
}

// NewService builds a Service with the given cache TTL.
func NewService(source market.MacroSource, ttl time.Duration) *Service {
	return &Service{source: source, ttl: ttl, now: time.Now}
}

// WithClock replaces the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Reading returns the current macro reading, serving the cached value
// while fresh. A fetch failure degrades to NEUTRAL rather than guessing.
func (s *Service) Reading(ctx context.Context) Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.fetchedAt.IsZero() && now.Sub(s.fetchedAt) < s.ttl {
		return s.cached
	}
	bundle, err := s.source.FetchMacroBundle(ctx)
	if err != nil {
		logger.Warnf("macro: bundle fetch failed, holding NEUTRAL: %v", err)
		return Reading{
			Verdict: decision.VerdictNeutral,
			Bundle:  market.MacroBundle{RiskNote: fmt.Sprintf("macro fetch failed: %v", err)},
		}
	}
	s.cached = Derive(bundle)
	s.fetchedAt = now
	return s.cached
}

// Reset drops the cached reading (used on date rollover).
func (s *Service) Reset() {
	s.mu.Lock()
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}
