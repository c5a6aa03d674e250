package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"aurum/internal/council"
	"aurum/internal/decision"
	"aurum/internal/grading"
	"aurum/internal/macro"
	"aurum/internal/market"
	"aurum/internal/plan"
	"aurum/internal/verify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aurum.db")
	s, err := NewStore(path, 100, grading.LevelModeStrict)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSignal(t *testing.T, s *Store, ctx context.Context) *SignalRecord {
	t.Helper()
	rec := &SignalRecord{
		TraceID:   "trace-1",
		CreatedAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		Price:     2650,
		Opinions: map[string]council.Opinion{
			"trend": {Verdict: decision.VerdictBuy, Explanation: "EMA20 above EMA50"},
			"rsi":   {Verdict: decision.VerdictNeutral, Explanation: "RSI mid-range"},
			"macd":  {Verdict: decision.VerdictSell, Explanation: "bearish crossover"},
		},
		Macro: macro.Reading{
			Verdict: decision.VerdictBuy,
			Score:   2,
			Bundle:  market.MacroBundle{DXYSignal: 1, YieldSignal: 1},
		},
		Decision: decision.Result{
			FinalVerdict:     decision.VerdictBuy,
			TechnicalVerdict: decision.VerdictBuy,
			Score:            2.5,
			Confidence:       65,
		},
	}
	require.NoError(t, s.InsertSignal(ctx, rec))
	require.NotZero(t, rec.ID)
	return rec
}

func testPlan() plan.TradePlan {
	return plan.TradePlan{
		Direction:      decision.VerdictBuy,
		Entry:          2650,
		StopLoss:       2646.95,
		TakeProfit:     2656,
		Lots:           0.33,
		StopPips:       300,
		TargetPips:     600,
		RewardMultiple: 2,
		RiskAmount:     1,
		PotentialLoss:  99,
		PotentialGain:  198,
		ATR:            2,
	}
}

func TestNewStoreSeedsLedgers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entries, err := s.Council(ctx)
	require.NoError(t, err)
	require.Len(t, entries, len(grading.CouncilMembers))
	for i, e := range entries {
		assert.Equal(t, grading.CouncilMembers[i], e.Member)
		assert.Zero(t, e.Correct)
		assert.Zero(t, e.TradeCount)
	}

	level, err := s.LatestLevel(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, level.Level)
	assert.Equal(t, 100.0, level.Balance)
	assert.Equal(t, 120.0, level.Target)
	assert.Equal(t, "START", level.Result)
}

func TestSignalRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	want := testSignal(t, s, ctx)

	got, err := s.RecentSignals(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, want.TraceID, got[0].TraceID)
	assert.Equal(t, want.Price, got[0].Price)
	assert.Equal(t, decision.VerdictBuy, got[0].Opinions["trend"].Verdict)
	assert.Equal(t, "bearish crossover", got[0].Opinions["macd"].Explanation)
	assert.Equal(t, decision.VerdictBuy, got[0].Macro.Verdict)
	assert.Equal(t, 1, got[0].Macro.Bundle.DXYSignal)
	assert.Equal(t, 65, got[0].Decision.Confidence)
}

func TestPlanLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sig := testSignal(t, s, ctx)

	planID, err := s.InsertPlan(ctx, sig.ID, sig.CreatedAt, testPlan())
	require.NoError(t, err)
	require.NotZero(t, planID)

	ungraded, err := s.UngradedPlans(ctx)
	require.NoError(t, err)
	require.Len(t, ungraded, 1)
	assert.Equal(t, planID, ungraded[0].ID)
	assert.False(t, ungraded[0].Graded())

	rec, err := s.PlanByID(ctx, planID)
	require.NoError(t, err)
	assert.Equal(t, sig.ID, rec.SignalID)
	assert.Equal(t, 300, rec.Plan.StopPips)

	_, err = s.PlanByID(ctx, planID+99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGradeTradeWin(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sig := testSignal(t, s, ctx)
	planID, err := s.InsertPlan(ctx, sig.ID, sig.CreatedAt, testPlan())
	require.NoError(t, err)

	outcome := verify.Outcome{Result: verify.ResultWin, ExitPrice: 2656, Bars: 4, RealizedR: 2}
	require.NoError(t, s.GradeTrade(ctx, planID, outcome))

	rec, err := s.PlanByID(ctx, planID)
	require.NoError(t, err)
	assert.Equal(t, verify.ResultWin, rec.Result)
	assert.Equal(t, 2656.0, rec.ExitPrice)
	assert.Equal(t, 198.0, rec.PnL)
	assert.False(t, rec.GradedAt.IsZero())

	entries, err := s.Council(ctx)
	require.NoError(t, err)
	byMember := map[string]grading.CouncilEntry{}
	for _, e := range entries {
		byMember[e.Member] = e
	}
	// trend and macro said BUY on a winning BUY; rsi abstained; macd
	// disagreed so its tally is untouched.
	assert.Equal(t, 1, byMember["trend"].Correct)
	assert.Equal(t, 1, byMember["macro"].Correct)
	assert.Equal(t, 2.0, byMember["trend"].TotalR)
	assert.Equal(t, 100.0, byMember["trend"].Accuracy)
	assert.Equal(t, 1, byMember["rsi"].Neutral)
	assert.Zero(t, byMember["rsi"].TradeCount)
	assert.Zero(t, byMember["macd"].Correct)
	assert.Zero(t, byMember["macd"].Incorrect)

	level, err := s.LatestLevel(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, level.Level)
	assert.Equal(t, 120.0, level.Balance)
	assert.Equal(t, 144.0, level.Target)
	assert.Equal(t, string(verify.ResultWin), level.Result)

	// Grading is exactly-once.
	err = s.GradeTrade(ctx, planID, outcome)
	assert.ErrorIs(t, err, ErrAlreadyGraded)

	history, err := s.LevelHistory(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestGradeTradeExpiredTouchesNoLedger(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sig := testSignal(t, s, ctx)
	planID, err := s.InsertPlan(ctx, sig.ID, sig.CreatedAt, testPlan())
	require.NoError(t, err)

	require.NoError(t, s.GradeTrade(ctx, planID, verify.Outcome{Result: verify.ResultExpired, Bars: 120}))

	rec, err := s.PlanByID(ctx, planID)
	require.NoError(t, err)
	assert.Equal(t, verify.ResultExpired, rec.Result)
	assert.Zero(t, rec.PnL)

	entries, err := s.Council(ctx)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Zero(t, e.Correct, e.Member)
		assert.Zero(t, e.Neutral, e.Member)
	}
	history, err := s.LevelHistory(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestGradeTradeRejectsNonTerminal(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sig := testSignal(t, s, ctx)
	planID, err := s.InsertPlan(ctx, sig.ID, sig.CreatedAt, testPlan())
	require.NoError(t, err)

	err = s.GradeTrade(ctx, planID, verify.Outcome{Result: verify.ResultPending})
	assert.Error(t, err)
}

func TestCountPlansSinceAndLastResults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sig := testSignal(t, s, ctx)

	base := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := s.InsertPlan(ctx, sig.ID, base.Add(time.Duration(i)*time.Hour), testPlan())
		require.NoError(t, err)
		ids = append(ids, id)
	}

	n, err := s.CountPlansSince(ctx, base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, s.GradeTrade(ctx, ids[0], verify.Outcome{Result: verify.ResultLoss, RealizedR: -1}))
	require.NoError(t, s.GradeTrade(ctx, ids[1], verify.Outcome{Result: verify.ResultWin, RealizedR: 2}))

	results, err := s.LastResults(ctx, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, verify.ResultWin, results[0])
	assert.Equal(t, verify.ResultLoss, results[1])
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sig := testSignal(t, s, ctx)

	winID, err := s.InsertPlan(ctx, sig.ID, sig.CreatedAt, testPlan())
	require.NoError(t, err)
	lossID, err := s.InsertPlan(ctx, sig.ID, sig.CreatedAt.Add(time.Hour), testPlan())
	require.NoError(t, err)
	_, err = s.InsertPlan(ctx, sig.ID, sig.CreatedAt.Add(2*time.Hour), testPlan())
	require.NoError(t, err)

	require.NoError(t, s.GradeTrade(ctx, winID, verify.Outcome{Result: verify.ResultWin, RealizedR: 2}))
	require.NoError(t, s.GradeTrade(ctx, lossID, verify.Outcome{Result: verify.ResultLoss, RealizedR: -1}))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Signals)
	assert.Equal(t, int64(1), st.Buys)
	assert.Equal(t, int64(0), st.Sells)
	assert.Equal(t, 65.0, st.AvgConfidence)
	assert.Equal(t, int64(0), st.MacroOverrides)
	assert.Equal(t, int64(3), st.Plans)
	assert.Equal(t, int64(1), st.Ungraded)
	assert.Equal(t, int64(1), st.Wins)
	assert.Equal(t, int64(1), st.Losses)
	assert.Equal(t, 50.0, st.WinRate)
	assert.Equal(t, 1.0, st.NetR)
	assert.InDelta(t, 99.0, st.NetPnL, 0.001)
	// WIN then LOSS on STRICT: level 1 -> 2 -> 1.
	assert.Equal(t, 1, st.Level)
	assert.Equal(t, 100.0, st.Balance)
}
