// Package compose chains bar sources so a primary feed failure falls
// through to the next source instead of skipping the cycle.
package compose

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"aurum/internal/logger"
	"aurum/internal/market"
)

// Source tries each wrapped source in order and returns the first
// non-empty result.
type Source struct {
	sources []market.BarSource

	statsMu sync.Mutex
	stats   market.SourceStats
}

// New wires the given sources as a fallback chain, primary first.
func New(sources ...market.BarSource) (*Source, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("compose: at least one source is required")
	}
	return &Source{sources: sources}, nil
}

// FetchRecent walks the chain. A source returning an error or no candles
// triggers the fallback; the joined errors surface only when every
// source fails.
func (s *Source) FetchRecent(ctx context.Context, limit int) ([]market.Candle, error) {
	var errs []error
	for i, src := range s.sources {
		candles, err := src.FetchRecent(ctx, limit)
		if err == nil && len(candles) > 0 {
			if i > 0 {
				s.trackFallback()
				logger.Warnf("bar source fallback: serving from source #%d", i+1)
			}
			return candles, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
	}
	err := errors.Join(errs...)
	if err == nil {
		err = fmt.Errorf("compose: no source returned candles")
	}
	s.trackFailure(err)
	return nil, err
}

// Stats merges the chain's counters with the fallback count.
func (s *Source) Stats() market.SourceStats {
	s.statsMu.Lock()
	merged := s.stats
	s.statsMu.Unlock()
	for _, src := range s.sources {
		st := src.Stats()
		merged.Requests += st.Requests
		merged.Failures += st.Failures
		if st.LastError != "" {
			merged.LastError = st.LastError
		}
	}
	return merged
}

func (s *Source) trackFallback() {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats.Fallbacks++
}

func (s *Source) trackFailure(err error) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	if err != nil {
		s.stats.LastError = err.Error()
	}
}
