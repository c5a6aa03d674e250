package control

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "control.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	st, err := s.State(ctx)
	require.NoError(t, err)
	assert.False(t, st.Paused)
	assert.False(t, st.StartTime.IsZero())

	require.NoError(t, s.SetPaused(ctx, true))
	st, err = s.State(ctx)
	require.NoError(t, err)
	assert.True(t, st.Paused)

	require.NoError(t, s.SetPaused(ctx, false))
	st, err = s.State(ctx)
	require.NoError(t, err)
	assert.False(t, st.Paused)
}

func TestReopenPreservesPause(t *testing.T) {
	path := filepath.Join(t.TempDir(), "control.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetPaused(ctx, true))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	st, err := s2.State(ctx)
	require.NoError(t, err)
	assert.True(t, st.Paused, "pause flag survives restart")
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}
