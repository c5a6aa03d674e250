package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodProfiles = `
active: default
profiles:
  default:
    description: balanced weighting
    weights:
      trend: 1.0
      candlestick: 1.0
      sr: 1.0
      volume: 1.0
      rsi: 0.5
      macd: 0.5
      bollinger: 0.5
    default_weight: 0.5
    buy_threshold: 2.0
    sell_threshold: -2.0
    confidence:
      base: 50
      per_agreement: 5
      macro_align: 10
      macro_contra: -10
      floor: 30
      cap: 90
  aggressive:
    description: lower verdict bar
    weights:
      trend: 1.5
    default_weight: 0.5
    buy_threshold: 1.5
    sell_threshold: -1.5
    confidence:
      base: 50
      per_agreement: 5
      floor: 30
      cap: 90
`

func writeProfiles(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRegistryLoadsProfiles(t *testing.T) {
	r, err := NewRegistry(writeProfiles(t, goodProfiles))
	require.NoError(t, err)

	snap := r.Snapshot()
	assert.Equal(t, "default", snap.Active)
	assert.Len(t, snap.Profiles, 2)
	assert.Equal(t, int64(1), snap.Version)

	active := r.Active()
	assert.Equal(t, "default", active.ID)
	assert.Equal(t, 1.0, active.Aggregation.Weights["trend"])
	assert.Equal(t, 2.0, active.Aggregation.BuyThreshold)
	assert.Equal(t, 50, active.Aggregation.Confidence.Base)

	aggressive, ok := r.Profile("aggressive")
	require.True(t, ok)
	assert.Equal(t, 1.5, aggressive.Aggregation.BuyThreshold)

	_, ok = r.Profile("missing")
	assert.False(t, ok)
}

func TestRegistryRejectsOutOfRangeWeight(t *testing.T) {
	_, err := NewRegistry(writeProfiles(t, `
active: default
profiles:
  default:
    weights:
      trend: 7.5
    buy_threshold: 2.0
    sell_threshold: -2.0
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default")
}

func TestRegistryRejectsUnknownActive(t *testing.T) {
	_, err := NewRegistry(writeProfiles(t, `
active: nonexistent
profiles:
  default:
    weights:
      trend: 1.0
    buy_threshold: 2.0
    sell_threshold: -2.0
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestRegistryRejectsMissingThreshold(t *testing.T) {
	_, err := NewRegistry(writeProfiles(t, `
active: default
profiles:
  default:
    weights:
      trend: 1.0
    buy_threshold: 2.0
`))
	assert.Error(t, err)
}

func TestRegistryRejectsUnknownTopLevelKey(t *testing.T) {
	_, err := NewRegistry(writeProfiles(t, goodProfiles+"\nextras: true\n"))
	assert.Error(t, err)
}
