package market

import "context"

// SourceStats tracks fetch health for a bar source.
type SourceStats struct {
	Requests  int    `json:"requests"`
	Failures  int    `json:"failures"`
	Fallbacks int    `json:"fallbacks"`
	LastError string `json:"last_error,omitempty"`
}

// BarSource supplies OHLCV history for the traded instrument, most recent
// candle last. An empty slice means "insufficient data", not a fault.
type BarSource interface {
	FetchRecent(ctx context.Context, limit int) ([]Candle, error)
	Stats() SourceStats
}

// MacroBundle carries the three macro sentiment inputs, each in {-1, 0, 1}.
type MacroBundle struct {
	DXYSignal   int    `json:"dxy_signal"`
	YieldSignal int    `json:"yield_signal"`
	RiskSignal  int    `json:"risk_signal"`
	DXYNote     string `json:"dxy_note,omitempty"`
	YieldNote   string `json:"yield_note,omitempty"`
	RiskNote    string `json:"risk_note,omitempty"`
}

// MacroSource supplies the macro sentiment bundle (dollar, yields, risk tone).
type MacroSource interface {
	FetchMacroBundle(ctx context.Context) (MacroBundle, error)
}
