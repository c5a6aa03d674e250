// Package model defines the gorm row types for the aurum sqlite store.
package model

import (
	"gorm.io/datatypes"
)

// SignalModel is one aggregation snapshot: every analyst's opinion plus the
// combined decision. Rows are append-only.
type SignalModel struct {
	ID               int64          `gorm:"column:id;primaryKey"`
	TraceID          string         `gorm:"column:trace_id;index"`
	CreatedAtUnix    int64          `gorm:"column:created_at;index"`
	Price            float64        `gorm:"column:price"`
	Opinions         datatypes.JSON `gorm:"column:opinions;type:TEXT"`
	MacroVerdict     string         `gorm:"column:macro_verdict"`
	MacroScore       int            `gorm:"column:macro_score"`
	MacroDetail      datatypes.JSON `gorm:"column:macro_detail;type:TEXT"`
	TechnicalVerdict string         `gorm:"column:technical_verdict"`
	FinalVerdict     string         `gorm:"column:final_verdict"`
	Score            float64        `gorm:"column:score"`
	Confidence       int            `gorm:"column:confidence"`
	MacroOverridden  bool           `gorm:"column:macro_overridden"`
	Blackout         bool           `gorm:"column:blackout"`
	BlackoutReason   string         `gorm:"column:blackout_reason"`
}

func (SignalModel) TableName() string { return "signals" }

// TradePlanModel is a planned hypothetical trade. Result stays empty until
// the verifier reaches a terminal outcome; a non-empty Result means the
// plan is graded and must never be graded again.
type TradePlanModel struct {
	ID             int64   `gorm:"column:id;primaryKey"`
	SignalID       int64   `gorm:"column:signal_id;index"`
	CreatedAtUnix  int64   `gorm:"column:created_at;index"`
	Direction      string  `gorm:"column:direction"`
	Entry          float64 `gorm:"column:entry"`
	StopLoss       float64 `gorm:"column:stop_loss"`
	TakeProfit     float64 `gorm:"column:take_profit"`
	Lots           float64 `gorm:"column:lots"`
	StopPips       int     `gorm:"column:stop_pips"`
	TargetPips     int     `gorm:"column:target_pips"`
	RewardMultiple float64 `gorm:"column:reward_multiple"`
	RiskAmount     float64 `gorm:"column:risk_amount"`
	PotentialLoss  float64 `gorm:"column:potential_loss"`
	PotentialGain  float64 `gorm:"column:potential_gain"`
	ATR            float64 `gorm:"column:atr"`

	Result       string  `gorm:"column:result;index"`
	ExitPrice    float64 `gorm:"column:exit_price"`
	Bars         int     `gorm:"column:bars"`
	RealizedR    float64 `gorm:"column:realized_r"`
	PnL          float64 `gorm:"column:pnl"`
	GradedAtUnix int64   `gorm:"column:graded_at"`
}

func (TradePlanModel) TableName() string { return "trade_plans" }

// CouncilMemberModel is the persistent tally for one analyst.
type CouncilMemberModel struct {
	Member     string  `gorm:"column:member;primaryKey"`
	Correct    int     `gorm:"column:correct"`
	Incorrect  int     `gorm:"column:incorrect"`
	Neutral    int     `gorm:"column:neutral"`
	TotalR     float64 `gorm:"column:total_r"`
	TradeCount int     `gorm:"column:trade_count"`
	Accuracy   float64 `gorm:"column:accuracy"`
	Expectancy float64 `gorm:"column:expectancy"`
}

func (CouncilMemberModel) TableName() string { return "council" }

// LevelModel is one row of the append-only level history.
type LevelModel struct {
	ID            int64   `gorm:"column:id;primaryKey"`
	CreatedAtUnix int64   `gorm:"column:created_at;index"`
	Level         int     `gorm:"column:level"`
	Balance       float64 `gorm:"column:balance"`
	Target        float64 `gorm:"column:target"`
	Result        string  `gorm:"column:result"`
	Mode          string  `gorm:"column:mode"`
}

func (LevelModel) TableName() string { return "levels" }
