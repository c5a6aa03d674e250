package decision

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Weights maps analyst name to voting weight. Unknown analysts fall back to
// Config.DefaultWeight.
type Weights map[string]float64

// ConfidenceParams controls the confidence score derivation.
type ConfidenceParams struct {
	Base         int `mapstructure:"base"`
	PerAgreement int `mapstructure:"per_agreement"`
	MacroAlign   int `mapstructure:"macro_align"`
	MacroContra  int `mapstructure:"macro_contra"`
	Floor        int `mapstructure:"floor"`
	Cap          int `mapstructure:"cap"`
}

// Config holds the static aggregation parameters. Validate at startup;
// Aggregate assumes a valid config.
type Config struct {
	Weights       Weights          `mapstructure:"weights"`
	DefaultWeight float64          `mapstructure:"default_weight"`
	BuyThreshold  float64          `mapstructure:"buy_threshold"`
	SellThreshold float64          `mapstructure:"sell_threshold"`
	Confidence    ConfidenceParams `mapstructure:"confidence"`
}

// Validate enforces the config preconditions once, at startup.
func (c Config) Validate() error {
	if c.BuyThreshold <= 0 {
		return fmt.Errorf("aggregator: buy_threshold must be > 0, got %v", c.BuyThreshold)
	}
	if c.SellThreshold >= 0 {
		return fmt.Errorf("aggregator: sell_threshold must be < 0, got %v", c.SellThreshold)
	}
	if c.DefaultWeight < 0 {
		return fmt.Errorf("aggregator: default_weight must be >= 0, got %v", c.DefaultWeight)
	}
	for name, w := range c.Weights {
		if w < 0 || w > 2.0 {
			return fmt.Errorf("aggregator: weight for %q out of [0, 2.0]: %v", name, w)
		}
	}
	if c.Confidence.Floor > c.Confidence.Cap {
		return fmt.Errorf("aggregator: confidence floor %d above cap %d",
			c.Confidence.Floor, c.Confidence.Cap)
	}
	return nil
}

// Result is the outcome of one aggregation pass.
type Result struct {
	FinalVerdict     Verdict `json:"final_verdict"`
	TechnicalVerdict Verdict `json:"technical_verdict"`
	Score            float64 `json:"score"`
	Confidence       int     `json:"confidence"`
	MacroOverridden  bool    `json:"macro_overridden"`
}

// Aggregate combines the voting analysts' verdicts into a single decision.
// The macro verdict never enters the weighted sum: it only vetoes a
// technical BUY/SELL that it directly opposes, and nudges confidence.
// Deterministic for identical inputs.
func Aggregate(verdicts map[string]Verdict, macro Verdict, cfg Config) Result {
	score := decimal.Zero
	agreeBuy, agreeSell := 0, 0
	for name, v := range verdicts {
		w, ok := cfg.Weights[name]
		if !ok {
			w = cfg.DefaultWeight
		}
		score = score.Add(decimal.NewFromFloat(w).Mul(decimal.NewFromInt(int64(v.Polarity()))))
		switch v {
		case VerdictBuy:
			agreeBuy++
		case VerdictSell:
			agreeSell++
		}
	}
	rawScore, _ := score.Round(1).Float64()

	technical := VerdictNeutral
	switch {
	case rawScore >= cfg.BuyThreshold:
		technical = VerdictBuy
	case rawScore <= cfg.SellThreshold:
		technical = VerdictSell
	}

	final := technical
	overridden := false
	if technical.Opposes(macro) {
		final = VerdictNeutral
		overridden = true
	}

	aligned := 0
	switch technical {
	case VerdictBuy:
		aligned = agreeBuy
	case VerdictSell:
		aligned = agreeSell
	}
	confidence := cfg.Confidence.Base + aligned*cfg.Confidence.PerAgreement
	if final != VerdictNeutral {
		switch {
		case macro == final:
			confidence += cfg.Confidence.MacroAlign
		case macro != VerdictNeutral:
			confidence += cfg.Confidence.MacroContra
		}
	}
	if confidence > cfg.Confidence.Cap {
		confidence = cfg.Confidence.Cap
	}
	if confidence < cfg.Confidence.Floor {
		confidence = cfg.Confidence.Floor
	}

	return Result{
		FinalVerdict:     final,
		TechnicalVerdict: technical,
		Score:            rawScore,
		Confidence:       confidence,
		MacroOverridden:  overridden,
	}
}
