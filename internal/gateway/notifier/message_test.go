package notifier

import (
	"strings"
	"testing"
	"time"

	"aurum/internal/decision"
	"aurum/internal/grading"
	"aurum/internal/plan"
	"aurum/internal/verify"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdownSkipsEmptySections(t *testing.T) {
	msg := StructuredMessage{
		Icon:  "🟢",
		Title: "Signal BUY",
		Sections: []MessageSection{
			{Title: "Empty", Lines: []string{"  ", ""}},
			{Title: "Decision", Lines: []string{"Verdict: BUY"}},
		},
	}
	out := msg.RenderMarkdown()
	assert.Contains(t, out, "🟢 Signal BUY")
	assert.Contains(t, out, "Decision")
	assert.Contains(t, out, "- Verdict: BUY")
	assert.NotContains(t, out, "Empty")
}

func TestRenderMarkdownEscapesCodeFence(t *testing.T) {
	msg := StructuredMessage{
		Title: "x",
		Sections: []MessageSection{
			{Lines: []string{"weird ``` content"}},
		},
	}
	assert.NotContains(t, msg.RenderMarkdown(), "weird ``` content")
}

func TestRenderMarkdownTrimsLongBody(t *testing.T) {
	msg := StructuredMessage{
		Title: "x",
		Sections: []MessageSection{
			{Lines: []string{strings.Repeat("a", 5000)}},
		},
	}
	out := msg.RenderMarkdown()
	assert.LessOrEqual(t, len(out), maxStructuredMessageLen+3)
	assert.True(t, strings.HasSuffix(out, "..."))
}

func TestOutcomeMessage(t *testing.T) {
	p := plan.TradePlan{Direction: decision.VerdictBuy}
	o := verify.Outcome{Result: verify.ResultWin, ExitPrice: 2656, Bars: 4, RealizedR: 2}
	level := grading.LevelState{Level: 2, Balance: 120, Target: 144}
	msg := OutcomeMessage(p, o, 198, level, time.Now())

	out := msg.RenderMarkdown()
	assert.Contains(t, out, "WIN")
	assert.Contains(t, out, "Level 2")
	assert.Contains(t, out, "R: +2.0")
	assert.Equal(t, "🏆", msg.Icon)
}
