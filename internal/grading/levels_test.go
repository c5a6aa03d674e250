package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurum/internal/verify"
)

func TestStrictWinAdvances(t *testing.T) {
	current := NewLevelState(20.0, LevelModeStrict)
	next := AdvanceLevel(current, 999.0 /* ignored in STRICT */, verify.ResultWin, LevelModeStrict)

	assert.Equal(t, 2, next.Level)
	assert.Equal(t, 24.0, next.Balance)
	assert.Equal(t, 28.8, next.Target)
	assert.Equal(t, "WIN", next.Result)
}

func TestStrictLossNeverBelowLevelOne(t *testing.T) {
	current := NewLevelState(20.0, LevelModeStrict)
	next := AdvanceLevel(current, 0, verify.ResultLoss, LevelModeStrict)

	assert.Equal(t, 1, next.Level)
	assert.Equal(t, 16.67, next.Balance)
	assert.Equal(t, 20.0, next.Target)
}

func TestStrictRoundTrip(t *testing.T) {
	state := NewLevelState(100.0, LevelModeStrict)
	state = AdvanceLevel(state, 0, verify.ResultWin, LevelModeStrict)
	state = AdvanceLevel(state, 0, verify.ResultWin, LevelModeStrict)
	assert.Equal(t, 3, state.Level)
	assert.Equal(t, 144.0, state.Balance)

	state = AdvanceLevel(state, 0, verify.ResultLoss, LevelModeStrict)
	assert.Equal(t, 2, state.Level)
	assert.Equal(t, 120.0, state.Balance)
}

func TestMilestoneBooksPnl(t *testing.T) {
	current := NewLevelState(100.0, LevelModeMilestone)
	next := AdvanceLevel(current, 5.0, verify.ResultWin, LevelModeMilestone)

	assert.Equal(t, 1, next.Level)
	assert.Equal(t, 105.0, next.Balance)
	// target unchanged until crossed
	assert.Equal(t, current.Target, next.Target)
}

func TestMilestoneLevelUpOnTargetCross(t *testing.T) {
	current := NewLevelState(100.0, LevelModeMilestone) // target 120
	next := AdvanceLevel(current, 25.0, verify.ResultWin, LevelModeMilestone)

	assert.Equal(t, 2, next.Level)
	assert.Equal(t, 125.0, next.Balance)
	assert.Equal(t, 150.0, next.Target)
}

func TestMilestoneLevelDownOnDrawdown(t *testing.T) {
	current := LevelState{Level: 3, Balance: 120.0, Target: 144.0, Mode: LevelModeMilestone}
	// 120/1.2 = 100; dropping to it demotes
	next := AdvanceLevel(current, -20.0, verify.ResultLoss, LevelModeMilestone)

	assert.Equal(t, 2, next.Level)
	assert.Equal(t, 100.0, next.Balance)
	assert.Equal(t, 120.0, next.Target)
}

func TestMilestoneFloorAtLevelOne(t *testing.T) {
	current := NewLevelState(100.0, LevelModeMilestone)
	next := AdvanceLevel(current, -50.0, verify.ResultLoss, LevelModeMilestone)

	assert.Equal(t, 1, next.Level)
	assert.Equal(t, 50.0, next.Balance)
}

func TestMilestoneBalanceSequence(t *testing.T) {
	state := NewLevelState(100.0, LevelModeMilestone)
	pnls := []float64{3.5, -1.25, 7.0}
	expected := state.Balance
	for _, pnl := range pnls {
		result := verify.ResultWin
		if pnl < 0 {
			result = verify.ResultLoss
		}
		state = AdvanceLevel(state, pnl, result, LevelModeMilestone)
		expected += pnl
		assert.Equal(t, expected, state.Balance)
	}
}

func TestLevelStateValidate(t *testing.T) {
	require.NoError(t, NewLevelState(20, LevelModeStrict).Validate())

	assert.Error(t, LevelState{Level: 0, Balance: 10, Target: 12}.Validate())
	assert.Error(t, LevelState{Level: 1, Balance: 0, Target: 12}.Validate())
	assert.Error(t, LevelState{Level: 1, Balance: 10, Target: 0}.Validate())
}
