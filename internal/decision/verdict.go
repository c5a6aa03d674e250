package decision

import "strings"

// Verdict is a directional opinion about near-term price movement.
type Verdict string

const (
	VerdictBuy     Verdict = "BUY"
	VerdictSell    Verdict = "SELL"
	VerdictNeutral Verdict = "NEUTRAL"
)

// ParseVerdict normalizes free-form input; anything unrecognized is NEUTRAL.
func ParseVerdict(raw string) Verdict {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BUY":
		return VerdictBuy
	case "SELL":
		return VerdictSell
	default:
		return VerdictNeutral
	}
}

// Polarity maps BUY to +1, SELL to -1 and NEUTRAL to 0.
func (v Verdict) Polarity() int {
	switch v {
	case VerdictBuy:
		return 1
	case VerdictSell:
		return -1
	default:
		return 0
	}
}

// Opposes reports whether two verdicts point in opposite directions.
func (v Verdict) Opposes(other Verdict) bool {
	p, q := v.Polarity(), other.Polarity()
	return p != 0 && q != 0 && p != q
}
