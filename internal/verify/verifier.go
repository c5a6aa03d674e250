// Package verify grades a hypothetical trade against subsequent price bars.
package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"aurum/internal/decision"
	"aurum/internal/logger"
	"aurum/internal/market"
)

// Result is the terminal (or not yet terminal) state of one verification.
type Result string

const (
	ResultWin     Result = "WIN"
	ResultLoss    Result = "LOSS"
	ResultExpired Result = "EXPIRED"
	ResultPending Result = "PENDING"
	ResultError   Result = "ERROR"
)

// Terminal reports whether the result ends the trade's life.
func (r Result) Terminal() bool {
	return r == ResultWin || r == ResultLoss || r == ResultExpired
}

// Outcome describes what happened to a trade after entry.
type Outcome struct {
	Result    Result  `json:"result"`
	ExitPrice float64 `json:"exit_price,omitempty"`
	Bars      int     `json:"bars"`
	RealizedR float64 `json:"realized_r"`
	Message   string  `json:"message,omitempty"`
}

// Request identifies the trade to verify.
type Request struct {
	EntryTime  time.Time
	Direction  decision.Verdict
	Entry      float64
	StopLoss   float64
	TakeProfit float64
}

// Verifier scans post-entry bars for the first stop or target touch.
// It never retries internally: "no data yet" is PENDING and a fetch fault
// is ERROR, both left for the caller's next cycle.
type Verifier struct {
	bars           market.BarSource
	now            func() time.Time
	windowBars     int
	rewardMultiple float64
}

// New builds a Verifier. windowBars is interpreted as minutes (one bar per
// minute on the 1m timeframe used throughout).
func New(bars market.BarSource, windowBars int, rewardMultiple float64) *Verifier {
	return &Verifier{
		bars:           bars,
		now:            time.Now,
		windowBars:     windowBars,
		rewardMultiple: rewardMultiple,
	}
}

// WithClock replaces the wall clock, for tests.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify determines the trade outcome. The expiry check runs before any
// data fetch so a stale trade resolves even when the source is down.
func (v *Verifier) Verify(ctx context.Context, req Request) Outcome {
	entryUTC := req.EntryTime.UTC()
	elapsed := v.now().UTC().Sub(entryUTC)
	if elapsed > time.Duration(v.windowBars)*time.Minute {
		logger.Infof("verify: trade expired (%.0f min > %d)", elapsed.Minutes(), v.windowBars)
		return Outcome{Result: ResultExpired, Bars: v.windowBars}
	}

	candles, err := v.bars.FetchRecent(ctx, v.windowBars+60)
	if err != nil {
		logger.Warnf("verify: bar fetch failed: %v", err)
		return Outcome{Result: ResultError, Message: fmt.Sprintf("bar fetch failed: %v", err)}
	}
	after := market.After(candles, entryUTC)
	if len(after) == 0 {
		return Outcome{Result: ResultPending}
	}
	return v.scan(after, req)
}

// scan walks bars in chronological order and resolves on the first touch.
// When one bar spans both levels the intrabar order is unknown, so the
// adverse outcome (stop) wins the tie.
func (v *Verifier) scan(after []market.Candle, req Request) Outcome {
	stop := decimal.NewFromFloat(req.StopLoss)
	target := decimal.NewFromFloat(req.TakeProfit)
	for i, c := range after {
		low := decimal.NewFromFloat(c.Low)
		high := decimal.NewFromFloat(c.High)
		if req.Direction == decision.VerdictBuy {
			if low.Cmp(stop) <= 0 {
				if high.Cmp(target) >= 0 {
					logger.Infof("verify: BUY both levels touched in bar %d, assuming stop", i+1)
				}
				return Outcome{Result: ResultLoss, ExitPrice: req.StopLoss, Bars: i + 1, RealizedR: -1.0}
			}
			if high.Cmp(target) >= 0 {
				return Outcome{Result: ResultWin, ExitPrice: req.TakeProfit, Bars: i + 1, RealizedR: v.rewardMultiple}
			}
		} else {
			if high.Cmp(stop) >= 0 {
				if low.Cmp(target) <= 0 {
					logger.Infof("verify: SELL both levels touched in bar %d, assuming stop", i+1)
				}
				return Outcome{Result: ResultLoss, ExitPrice: req.StopLoss, Bars: i + 1, RealizedR: -1.0}
			}
			if low.Cmp(target) <= 0 {
				return Outcome{Result: ResultWin, ExitPrice: req.TakeProfit, Bars: i + 1, RealizedR: v.rewardMultiple}
			}
		}
	}
	return Outcome{Result: ResultPending, Bars: len(after)}
}
