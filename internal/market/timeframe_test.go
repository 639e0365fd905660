package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeframe(t *testing.T) {
	tf, err := ParseTimeframe("15Min")
	require.NoError(t, err)
	assert.Equal(t, "15m", tf.SourceInterval)
	assert.Equal(t, 15*time.Minute, tf.Duration)

	tf, err = ParseTimeframe("1h")
	require.NoError(t, err)
	assert.Equal(t, "1Hour", tf.Key)

	_, err = ParseTimeframe("2Min")
	assert.Error(t, err)
}

func TestSupportedTimeframesOrdered(t *testing.T) {
	keys := SupportedTimeframes()
	require.Len(t, keys, 10)
	assert.Equal(t, "1Min", keys[0])
	assert.Equal(t, "1Week", keys[len(keys)-1])
}

func TestDropUnclosed(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 30, 0, time.UTC)
	bars := []Candle{
		{OpenTime: now.Add(-2 * time.Minute).UnixMilli()},
		{OpenTime: now.Add(-30 * time.Second).UnixMilli()},
	}
	assert.Len(t, DropUnclosed(bars, time.Minute, now), 1)
	assert.Len(t, DropUnclosed(bars[:1], time.Minute, now), 1)
}
