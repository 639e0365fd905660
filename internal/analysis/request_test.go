package analysis

import (
	"testing"
	"time"

	"synapse/internal/series"
	"synapse/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaults(t *testing.T) {
	q, err := Request{Symbol: "btc/usdt"}.Normalize(strategy.Default())
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", q.Symbol)
	assert.Equal(t, "1Min", q.Timeframe.Key)
	assert.Equal(t, "1m", q.Timeframe.SourceInterval)
	assert.Equal(t, RangeLookback, q.RangeMode)
	assert.Equal(t, DefaultLookback, q.Lookback)
	assert.Equal(t, series.ModeLatest, q.TimestampMode)
}

func TestNormalizeRejects(t *testing.T) {
	cfg := strategy.Default()
	cases := []struct {
		name string
		req  Request
		msg  string
	}{
		{"missing symbol", Request{}, "symbol is required"},
		{"bad timeframe", Request{Symbol: "ETHUSDT", Timeframe: "7Min"}, "invalid timeframe: 7Min"},
		{"short lookback", Request{Symbol: "ETHUSDT", Lookback: 50}, "lookback must be at least 100 candles"},
		{"huge lookback", Request{Symbol: "ETHUSDT", Lookback: MaxLookback + 1}, "lookback must be at most"},
		{"daterange without end", Request{Symbol: "ETHUSDT", RangeMode: "daterange", StartDatetime: "2024-01-01"}, "start and end datetime are required"},
		{"daterange inverted", Request{Symbol: "ETHUSDT", RangeMode: "daterange", StartDatetime: "2024-01-02", EndDatetime: "2024-01-01"}, "must be after start"},
		{"bad range mode", Request{Symbol: "ETHUSDT", RangeMode: "window"}, "invalid range mode"},
		{"manual without ts", Request{Symbol: "ETHUSDT", TimestampMode: "manual"}, "a decision timestamp is required"},
		{"manual bad ts", Request{Symbol: "ETHUSDT", TimestampMode: "manual", DecisionTimestamp: "yesterday"}, "decision_timestamp"},
		{"bad timestamp mode", Request{Symbol: "ETHUSDT", TimestampMode: "soon"}, "invalid timestamp mode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.req.Normalize(cfg)
			require.ErrorIs(t, err, ErrInvalidRequest)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestNormalizeDateRangeAndManual(t *testing.T) {
	q, err := Request{
		Symbol:            "SOLUSDT",
		Timeframe:         "15m",
		RangeMode:         "daterange",
		StartDatetime:     "2024-03-01T00:00",
		EndDatetime:       "2024-03-05 12:30:00",
		TimestampMode:     "manual",
		DecisionTimestamp: "2024-03-04T08:00:00+02:00",
	}.Normalize(strategy.Default())
	require.NoError(t, err)
	assert.Equal(t, "15Min", q.Timeframe.Key)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), q.Start)
	assert.Equal(t, time.Date(2024, 3, 5, 12, 30, 0, 0, time.UTC), q.End)
	assert.Equal(t, time.Date(2024, 3, 4, 6, 0, 0, 0, time.UTC), q.DecisionTime)
}

func TestLookbackHonoursConfiguredWarmup(t *testing.T) {
	cfg := strategy.Default()
	cfg.MinWarmupCandles = 40
	q, err := Request{Symbol: "ETHUSDT", Lookback: 50}.Normalize(cfg)
	require.NoError(t, err)
	assert.Equal(t, 50, q.Lookback)
}
