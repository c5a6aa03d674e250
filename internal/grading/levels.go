package grading

import (
	"fmt"

	"aurum/internal/pkg/trading"
	"aurum/internal/verify"
)

// LevelMode selects how the bankroll level reacts to trade outcomes.
type LevelMode string

const (
	// LevelModeStrict is the challenge game: one level per outcome, the
	// balance moving geometrically regardless of realized pnl.
	LevelModeStrict LevelMode = "STRICT"
	// LevelModeMilestone books realized pnl and moves levels only when the
	// balance crosses the +20% target or gives back the level's gain.
	LevelModeMilestone LevelMode = "MILESTONE"
)

const levelGrowth = 1.2

// LevelState is one row of the append-only level history.
type LevelState struct {
	Level   int       `json:"level"`
	Balance float64   `json:"balance"`
	Target  float64   `json:"target"`
	Result  string    `json:"result"`
	Mode    LevelMode `json:"mode"`
}

// NewLevelState returns the starting row for a fresh ledger.
func NewLevelState(initialBalance float64, mode LevelMode) LevelState {
	return LevelState{
		Level:   1,
		Balance: trading.Round2(initialBalance),
		Target:  trading.Round2(initialBalance * levelGrowth),
		Result:  "START",
		Mode:    mode,
	}
}

// Validate enforces the ledger invariants on a loaded row.
func (s LevelState) Validate() error {
	if s.Level < 1 {
		return fmt.Errorf("levels: level must be >= 1, got %d", s.Level)
	}
	if s.Balance <= 0 || s.Target <= 0 {
		return fmt.Errorf("levels: balance and target must be > 0 (balance=%v target=%v)",
			s.Balance, s.Target)
	}
	return nil
}

// AdvanceLevel produces the next level row from a WIN/LOSS outcome.
// STRICT ignores pnl entirely; MILESTONE books it against the target.
// The returned state is a new row to append, never a mutation of current.
func AdvanceLevel(current LevelState, pnl float64, result verify.Result, mode LevelMode) LevelState {
	next := LevelState{Mode: mode, Result: string(result)}

	if mode == LevelModeStrict {
		if result == verify.ResultWin {
			next.Level = current.Level + 1
			next.Balance = current.Balance * levelGrowth
		} else {
			next.Level = maxLevel(1, current.Level-1)
			next.Balance = current.Balance / levelGrowth
		}
		next.Target = next.Balance * levelGrowth
	} else {
		next.Level = current.Level
		next.Balance = current.Balance + pnl
		switch {
		case next.Balance >= current.Target:
			next.Level++
			next.Target = next.Balance * levelGrowth
		case next.Balance <= current.Balance/levelGrowth:
			next.Level = maxLevel(1, next.Level-1)
			next.Target = next.Balance * levelGrowth
		default:
			next.Target = current.Target
		}
	}

	next.Balance = trading.Round2(next.Balance)
	next.Target = trading.Round2(next.Target)
	return next
}

func maxLevel(a, b int) int {
	if a > b {
		return a
	}
	return b
}
