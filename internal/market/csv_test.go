package market

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCandles(n int) []Candle {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Candle, n)
	for i := range out {
		p := 100 + float64(i)
		out[i] = Candle{
			OpenTime: start.Add(time.Duration(i) * time.Minute).UnixMilli(),
			Open:     p,
			High:     p + 1.5,
			Low:      p - 0.5,
			Close:    p + 0.25,
			Volume:   1000 + float64(i),
		}
	}
	return out
}

func TestBuildCSVHeader(t *testing.T) {
	out := BuildCSV(sampleCandles(2), CSVOptions{Symbol: "btcusdt", Interval: "1m", PricePrecision: PrecisionRaw})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "# Symbol=BTCUSDT WindowStart=2024-03-01T00:00:00Z Interval=1m Order=OLDEST->NEWEST", lines[0])
	assert.Equal(t, csvHeader, lines[1])
	assert.Equal(t, "1,2024-03-01T00:00:00Z,100,101.5,99.5,100.25,1000", lines[2])
}

func TestCSVRoundTrip(t *testing.T) {
	in := sampleCandles(5)
	text := BuildCSV(in, CSVOptions{Symbol: "ETHUSDT", Interval: "1m", PricePrecision: PrecisionRaw})

	got, meta, err := ParseCSV(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", meta.Symbol)
	assert.Equal(t, "1m", meta.Interval)
	require.Len(t, got, 5)
	for i := range in {
		assert.Equal(t, in[i].OpenTime, got[i].OpenTime)
		assert.Equal(t, in[i].Close, got[i].Close)
		assert.Equal(t, in[i].OpenTime+time.Minute.Milliseconds()-1, got[i].CloseTime)
	}
}

func TestParseCSVErrors(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoData)

	_, _, err = ParseCSV(strings.NewReader("Index,Time,O,H,L,C,V\n1,bad,1,1,1,1,1\n"))
	assert.ErrorContains(t, err, "line 2")

	unordered := "1,2024-03-01T00:01:00Z,1,1,1,1,1\n2,2024-03-01T00:00:00Z,1,1,1,1,1\n"
	_, _, err = ParseCSV(strings.NewReader(unordered))
	assert.ErrorContains(t, err, "ascending")
}
