package notifier

import (
	"fmt"
	"time"

	"aurum/internal/council"
	"aurum/internal/decision"
	"aurum/internal/grading"
	"aurum/internal/macro"
	"aurum/internal/plan"
	"aurum/internal/verify"
)

func verdictIcon(v decision.Verdict) string {
	switch v {
	case decision.VerdictBuy:
		return "🟢"
	case decision.VerdictSell:
		return "🔴"
	default:
		return "⚪"
	}
}

// SignalMessage renders one aggregation result as a card.
func SignalMessage(traceID string, price float64, res decision.Result,
	reading macro.Reading, opinions map[string]council.Opinion, ts time.Time) StructuredMessage {

	votes := make([]string, 0, len(opinions))
	for _, member := range grading.CouncilMembers {
		op, ok := opinions[member]
		if !ok {
			continue
		}
		votes = append(votes, fmt.Sprintf("%s %s: %s", verdictIcon(op.Verdict), member, op.Explanation))
	}
	decisionLines := []string{
		fmt.Sprintf("Verdict: %s (score %.1f)", res.FinalVerdict, res.Score),
		fmt.Sprintf("Confidence: %d%%", res.Confidence),
	}
	if res.MacroOverridden {
		decisionLines = append(decisionLines,
			fmt.Sprintf("Macro veto: technical %s blocked", res.TechnicalVerdict))
	}
	macroLines := []string{
		fmt.Sprintf("Verdict: %s (score %+d)", reading.Verdict, reading.Score),
	}
	for _, note := range []string{reading.Bundle.DXYNote, reading.Bundle.YieldNote, reading.Bundle.RiskNote} {
		if note != "" {
			macroLines = append(macroLines, note)
		}
	}
	return StructuredMessage{
		Icon:  verdictIcon(res.FinalVerdict),
		Title: fmt.Sprintf("Signal %s | XAU/USD %.2f", res.FinalVerdict, price),
		Sections: []MessageSection{
			{Title: "Decision", Lines: decisionLines},
			{Title: "Macro", Lines: macroLines},
			{Title: "Council", Lines: votes},
		},
		Footer:    "trace " + traceID,
		Timestamp: ts,
	}
}

// PlanMessage renders a trade plan card.
func PlanMessage(p plan.TradePlan, balance float64, ts time.Time) StructuredMessage {
	return StructuredMessage{
		Icon:  "📋",
		Title: fmt.Sprintf("Trade Plan %s", p.Direction),
		Sections: []MessageSection{
			{Title: "Levels", Lines: []string{
				fmt.Sprintf("Entry: %.2f", p.Entry),
				fmt.Sprintf("Stop: %.2f (%d pips)", p.StopLoss, p.StopPips),
				fmt.Sprintf("Target: %.2f (%d pips)", p.TakeProfit, p.TargetPips),
			}},
			{Title: "Sizing", Lines: []string{
				fmt.Sprintf("Lots: %.2f", p.Lots),
				fmt.Sprintf("Risk: %.2f on balance %.2f", p.RiskAmount, balance),
				fmt.Sprintf("Reward ratio: 1:%.1f", p.RewardMultiple),
			}},
		},
		Timestamp: ts,
	}
}

// OutcomeMessage renders a graded trade with the resulting level row.
func OutcomeMessage(p plan.TradePlan, o verify.Outcome, pnl float64,
	level grading.LevelState, ts time.Time) StructuredMessage {

	icon := "🏆"
	if o.Result == verify.ResultLoss {
		icon = "💥"
	} else if o.Result == verify.ResultExpired {
		icon = "⌛"
	}
	lines := []string{
		fmt.Sprintf("Result: %s after %d bars", o.Result, o.Bars),
		fmt.Sprintf("R: %+.1f | PnL: %+.2f", o.RealizedR, pnl),
	}
	if o.ExitPrice > 0 {
		lines = append(lines, fmt.Sprintf("Exit: %.2f", o.ExitPrice))
	}
	return StructuredMessage{
		Icon:  icon,
		Title: fmt.Sprintf("Trade %s settled: %s", p.Direction, o.Result),
		Sections: []MessageSection{
			{Title: "Outcome", Lines: lines},
			{Title: "Level", Lines: []string{
				fmt.Sprintf("Level %d | balance %.2f", level.Level, level.Balance),
				fmt.Sprintf("Next target: %.2f", level.Target),
			}},
		},
		Timestamp: ts,
	}
}

// BlackoutMessage explains a skipped cycle.
func BlackoutMessage(reason string, ts time.Time) StructuredMessage {
	return StructuredMessage{
		Icon:  "📰",
		Title: "Cycle skipped: news blackout",
		Sections: []MessageSection{
			{Title: "Reason", Lines: []string{reason}},
		},
		Timestamp: ts,
	}
}
