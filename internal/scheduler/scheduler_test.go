package scheduler

import (
	"testing"
	"time"

	"aurum/internal/market"

	"github.com/stretchr/testify/assert"
)

func TestNextTimesAlignsToIntervalPlusOffset(t *testing.T) {
	s := &AlignedScheduler{Interval: time.Minute, Offset: 5 * time.Second}
	now := time.Date(2025, 3, 10, 12, 0, 30, 0, time.UTC)

	nextClose, wakeAt, untilClose, wait := s.nextTimes(now)
	assert.Equal(t, time.Date(2025, 3, 10, 12, 1, 0, 0, time.UTC), nextClose)
	assert.Equal(t, time.Date(2025, 3, 10, 12, 1, 5, 0, time.UTC), wakeAt)
	assert.Equal(t, 30*time.Second, untilClose)
	assert.Equal(t, 35*time.Second, wait)
}

func TestParseIntervalDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"1m":  time.Minute,
		"15m": 15 * time.Minute,
		"1h":  time.Hour,
		"1d":  24 * time.Hour,
	}
	for in, want := range cases {
		got, ok := ParseIntervalDuration(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "m", "0m", "-1h", "1x"} {
		_, ok := ParseIntervalDuration(bad)
		assert.False(t, ok, bad)
	}
}

func TestDropUnclosedKline(t *testing.T) {
	open := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	klines := []market.Candle{
		{OpenTime: open.Add(-time.Minute).UnixMilli()},
		{OpenTime: open.UnixMilli()},
	}

	// Bar still forming: now is inside its interval.
	now := open.Add(30 * time.Second)
	assert.Len(t, dropUnclosedKlineAt(klines, time.Minute, now, 0), 1)

	// Closed plus grace elapsed: kept.
	now = open.Add(time.Minute + 11*time.Second)
	assert.Len(t, dropUnclosedKlineAt(klines, time.Minute, now, 10*time.Second), 2)

	// Inside the grace window the bar still counts as unclosed.
	now = open.Add(time.Minute + 5*time.Second)
	assert.Len(t, dropUnclosedKlineAt(klines, time.Minute, now, 10*time.Second), 1)
}
