package macro

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"aurum/internal/decision"
	"aurum/internal/market"
)

type stubMacro struct {
	bundle market.MacroBundle
	err    error
	calls  int
}

func (s *stubMacro) FetchMacroBundle(context.Context) (market.MacroBundle, error) {
	s.calls++
	return s.bundle, s.err
}

func TestDeriveScoreMapping(t *testing.T) {
	cases := []struct {
		bundle  market.MacroBundle
		verdict decision.Verdict
		score   int
	}{
		{market.MacroBundle{DXYSignal: 1, YieldSignal: 1, RiskSignal: -1}, decision.VerdictBuy, 1},
		{market.MacroBundle{DXYSignal: -1, YieldSignal: -1}, decision.VerdictSell, -2},
		{market.MacroBundle{DXYSignal: 1, YieldSignal: -1}, decision.VerdictNeutral, 0},
		{market.MacroBundle{}, decision.VerdictNeutral, 0},
	}
	for _, tc := range cases {
		r := Derive(tc.bundle)
		assert.Equal(t, tc.verdict, r.Verdict)
		assert.Equal(t, tc.score, r.Score)
	}
}

func TestServiceCachesWithinTTL(t *testing.T) {
	src := &stubMacro{bundle: market.MacroBundle{DXYSignal: 1, YieldSignal: 1}}
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := NewService(src, time.Minute).WithClock(func() time.Time { return now })

	first := svc.Reading(context.Background())
	assert.Equal(t, decision.VerdictBuy, first.Verdict)
	svc.Reading(context.Background())
	assert.Equal(t, 1, src.calls)

	now = now.Add(2 * time.Minute)
	svc.Reading(context.Background())
	assert.Equal(t, 2, src.calls)
}

func TestServiceResetForcesRefetch(t *testing.T) {
	src := &stubMacro{}
	svc := NewService(src, time.Hour)
	svc.Reading(context.Background())
	svc.Reset()
	svc.Reading(context.Background())
	assert.Equal(t, 2, src.calls)
}

func TestServiceFetchFailureIsNeutral(t *testing.T) {
	src := &stubMacro{err: errors.New("quota exhausted")}
	svc := NewService(src, time.Minute)
	r := svc.Reading(context.Background())
	assert.Equal(t, decision.VerdictNeutral, r.Verdict)
	assert.Contains(t, r.Bundle.RiskNote, "quota exhausted")
}
