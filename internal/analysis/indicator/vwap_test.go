package indicator

import (
	"testing"
	"time"

	"synapse/internal/market"

	"github.com/stretchr/testify/assert"
)

func TestSessionVWAPResetsEachUTCDay(t *testing.T) {
	day := time.Date(2024, 6, 3, 23, 58, 0, 0, time.UTC)
	candles := []market.Candle{
		{OpenTime: day.UnixMilli(), High: 12, Low: 8, Close: 10, Volume: 1},
		{OpenTime: day.Add(time.Minute).UnixMilli(), High: 22, Low: 18, Close: 20, Volume: 3},
		{OpenTime: day.Add(2 * time.Minute).UnixMilli(), High: 31, Low: 29, Close: 30, Volume: 2},
		{OpenTime: day.Add(3 * time.Minute).UnixMilli(), High: 0, Low: 0, Close: 0, Volume: 0},
	}
	got := SessionVWAP(candles)

	assert.InDelta(t, 10.0, got[0].Or(0), 1e-12)
	assert.InDelta(t, 17.5, got[1].Or(0), 1e-12)
	// new day starts fresh
	assert.InDelta(t, 30.0, got[2].Or(0), 1e-12)
	assert.InDelta(t, 30.0, got[3].Or(0), 1e-12)
}

func TestSessionVWAPWithoutVolume(t *testing.T) {
	got := SessionVWAP([]market.Candle{{OpenTime: 0, High: 1, Low: 1, Close: 1}})
	assert.False(t, got[0].Valid())
}
