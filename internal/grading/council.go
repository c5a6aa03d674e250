// Package grading holds the two feedback ledgers: per-analyst council
// accuracy and the bankroll level state machine. Both are pure state
// transitions; the store applies them inside one transaction per graded
// trade.
package grading

import (
	"aurum/internal/decision"
	"aurum/internal/pkg/trading"
	"aurum/internal/verify"

	"github.com/shopspring/decimal"
)

// CouncilEntry is the persistent running tally for one voting analyst.
type CouncilEntry struct {
	Member     string  `json:"member"`
	Correct    int     `json:"correct"`
	Incorrect  int     `json:"incorrect"`
	Neutral    int     `json:"neutral"`
	TotalR     float64 `json:"total_r"`
	TradeCount int     `json:"trade_count"`
	Accuracy   float64 `json:"accuracy"`
	Expectancy float64 `json:"expectancy"`
}

// CouncilMembers lists every tracked analyst, macro included. Macro never
// votes but its calls are graded like any other member's.
var CouncilMembers = []string{
	"trend", "candlestick", "sr", "volume", "rsi", "macd", "bollinger", "macro",
}

// GradeCouncil applies one WIN/LOSS trade outcome to the council tallies.
// Per member: NEUTRAL bumps the neutral counter only; a verdict matching
// the trade direction is scored correct/incorrect with R accounting; a
// disagreeing verdict writes nothing (the ledger does not track "warned
// and was right" cases). Derived stats are recomputed from the raw
// counters afterwards so repeated grading never accumulates float drift.
//
// Callers must invoke this at most once per graded trade; the plan's
// graded flag is the guard against double counting.
func GradeCouncil(entries map[string]*CouncilEntry, verdicts map[string]decision.Verdict,
	direction decision.Verdict, result verify.Result, realizedR float64) {
	if result != verify.ResultWin && result != verify.ResultLoss {
		return
	}
	for member, verdict := range verdicts {
		entry, ok := entries[member]
		if !ok {
			continue
		}
		if verdict == decision.VerdictNeutral {
			entry.Neutral++
			continue
		}
		if verdict != direction {
			continue
		}
		if result == verify.ResultWin {
			entry.Correct++
		} else {
			entry.Incorrect++
		}
		entry.TotalR += realizedR
		entry.TradeCount++
	}
	for _, entry := range entries {
		entry.Recompute()
	}
}

// Recompute refreshes accuracy and expectancy from the raw counters.
func (e *CouncilEntry) Recompute() {
	graded := e.Correct + e.Incorrect
	if graded > 0 {
		acc := decimal.NewFromInt(int64(e.Correct)).
			Div(decimal.NewFromInt(int64(graded))).
			Mul(decimal.NewFromInt(100))
		e.Accuracy, _ = acc.Round(1).Float64()
	} else {
		e.Accuracy = 0
	}
	if e.TradeCount > 0 {
		e.Expectancy = trading.Round2(e.TotalR / float64(e.TradeCount))
	} else {
		e.Expectancy = 0
	}
}
