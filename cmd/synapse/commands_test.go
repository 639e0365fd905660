package main

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"synapse/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBars(t *testing.T, n int) string {
	t.Helper()
	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]market.Candle, n)
	for i := range candles {
		p := 100 + 3*math.Sin(float64(i)/8) + float64(i)*0.03
		candles[i] = market.Candle{
			OpenTime: t0.Add(time.Duration(i) * time.Minute).UnixMilli(),
			Open:     p - 0.1, High: p + 0.6, Low: p - 0.6, Close: p, Volume: 300,
		}
	}
	path := filepath.Join(t.TempDir(), "bars.csv")
	csv := market.BuildCSV(candles, market.CSVOptions{Symbol: "BTCUSDT", Interval: "1m", PricePrecision: market.PrecisionRaw})
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))
	return path
}

func TestEvaluateJSON(t *testing.T) {
	path := writeBars(t, 200)
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"evaluate", "--csv", path, "--index", "150", "--json"})
	require.NoError(t, cmd.Execute())

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "BTCUSDT", got["symbol"])
	assert.Equal(t, 150.0, got["decision_idx"])
	assert.Contains(t, got, "decision")
}

func TestEvaluateRejectsWarmupIndex(t *testing.T) {
	path := writeBars(t, 200)
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"evaluate", "--csv", path, "--index", "20"})
	assert.ErrorContains(t, cmd.Execute(), "only 20 candles exist")
}

func TestEvaluateStyledOutput(t *testing.T) {
	path := writeBars(t, 200)
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"evaluate", "--csv", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "BTCUSDT 1Min")
	assert.Contains(t, out.String(), "#199")
}

func TestOpenAppendFile(t *testing.T) {
	f, err := openAppendFile("  ")
	require.NoError(t, err)
	assert.Nil(t, f)

	path := filepath.Join(t.TempDir(), "nested", "trace.log")
	f, err = openAppendFile(path)
	require.NoError(t, err)
	_, err = f.WriteString("first\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = openAppendFile(path)
	require.NoError(t, err)
	_, err = f.WriteString("second\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(raw))
}
