package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"aurum/internal/decision"
	"aurum/internal/verify"
)

func freshEntries() map[string]*CouncilEntry {
	entries := make(map[string]*CouncilEntry, len(CouncilMembers))
	for _, m := range CouncilMembers {
		entries[m] = &CouncilEntry{Member: m}
	}
	return entries
}

func TestGradeCouncilAlignedWin(t *testing.T) {
	entries := freshEntries()
	verdicts := map[string]decision.Verdict{
		"trend": decision.VerdictBuy,
		"rsi":   decision.VerdictBuy,
	}
	GradeCouncil(entries, verdicts, decision.VerdictBuy, verify.ResultWin, 2.0)

	for _, m := range []string{"trend", "rsi"} {
		assert.Equal(t, 1, entries[m].Correct, m)
		assert.Equal(t, 0, entries[m].Incorrect, m)
		assert.Equal(t, 2.0, entries[m].TotalR, m)
		assert.Equal(t, 1, entries[m].TradeCount, m)
		assert.Equal(t, 100.0, entries[m].Accuracy, m)
		assert.Equal(t, 2.0, entries[m].Expectancy, m)
	}
}

func TestGradeCouncilNeutralOnlyBumpsNeutral(t *testing.T) {
	entries := freshEntries()
	verdicts := map[string]decision.Verdict{"macd": decision.VerdictNeutral}
	GradeCouncil(entries, verdicts, decision.VerdictBuy, verify.ResultLoss, -1.0)

	assert.Equal(t, 1, entries["macd"].Neutral)
	assert.Equal(t, 0, entries["macd"].Correct)
	assert.Equal(t, 0, entries["macd"].Incorrect)
	assert.Equal(t, 0, entries["macd"].TradeCount)
	assert.Equal(t, 0.0, entries["macd"].TotalR)
}

func TestGradeCouncilDisagreementWritesNothing(t *testing.T) {
	entries := freshEntries()
	// bollinger warned against a trade that lost; the ledger still records nothing
	verdicts := map[string]decision.Verdict{"bollinger": decision.VerdictSell}
	GradeCouncil(entries, verdicts, decision.VerdictBuy, verify.ResultLoss, -1.0)

	assert.Equal(t, CouncilEntry{Member: "bollinger"}, *entries["bollinger"])
}

func TestGradeCouncilIgnoresNonTerminalResults(t *testing.T) {
	for _, res := range []verify.Result{verify.ResultExpired, verify.ResultPending, verify.ResultError} {
		entries := freshEntries()
		verdicts := map[string]decision.Verdict{"trend": decision.VerdictBuy}
		GradeCouncil(entries, verdicts, decision.VerdictBuy, res, 0)
		assert.Equal(t, CouncilEntry{Member: "trend"}, *entries["trend"], string(res))
	}
}

func TestGradeCouncilAccuracyExact(t *testing.T) {
	entries := freshEntries()
	verdicts := map[string]decision.Verdict{"volume": decision.VerdictSell}

	const wins, losses = 3, 2
	for i := 0; i < wins; i++ {
		GradeCouncil(entries, verdicts, decision.VerdictSell, verify.ResultWin, 2.0)
	}
	for i := 0; i < losses; i++ {
		GradeCouncil(entries, verdicts, decision.VerdictSell, verify.ResultLoss, -1.0)
	}

	e := entries["volume"]
	assert.Equal(t, wins, e.Correct)
	assert.Equal(t, losses, e.Incorrect)
	assert.Equal(t, 100.0*wins/(wins+losses), e.Accuracy)
	// 3*2.0 - 2*1.0 = 4.0 over 5 trades
	assert.Equal(t, 0.8, e.Expectancy)
}

func TestGradeCouncilUnknownMemberSkipped(t *testing.T) {
	entries := freshEntries()
	verdicts := map[string]decision.Verdict{"astrology": decision.VerdictBuy}
	GradeCouncil(entries, verdicts, decision.VerdictBuy, verify.ResultWin, 2.0)
	for _, e := range entries {
		assert.Equal(t, 0, e.Correct+e.Incorrect+e.Neutral+e.TradeCount)
	}
}
