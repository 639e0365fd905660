package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"synapse/internal/analysis"
	"synapse/internal/market"
	"synapse/internal/metrics"
	"synapse/internal/session"
	"synapse/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	bars []market.Candle
	err  error
}

func (s stubSource) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.bars[max(0, len(s.bars)-limit):], nil
}

func (s stubSource) FetchRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]market.Candle, error) {
	return s.bars, s.err
}

func bars(n int) []market.Candle {
	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, n)
	for i := range out {
		p := 100 + 3*math.Sin(float64(i)/8) + float64(i)*0.03
		out[i] = market.Candle{
			OpenTime: t0.Add(time.Duration(i) * time.Minute).UnixMilli(),
			Open:     p - 0.1, High: p + 0.6, Low: p - 0.6, Close: p,
			Volume: 300 + float64(i%5)*25,
		}
	}
	return out
}

func newTestServer(t *testing.T, src market.Source) (http.Handler, *metrics.Registry) {
	t.Helper()
	reg := metrics.NewRegistry()
	svc := analysis.NewService(src, session.NewMemoryStore(), strategy.Static(strategy.Default()), reg)
	srv, err := NewServer(ServerConfig{Analyzer: svc, Metrics: reg})
	require.NoError(t, err)
	return srv.Handler(), reg
}

func do(h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t, stubSource{})
	rec, body := do(h, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestAnalyzeThenRedecideThenChart(t *testing.T) {
	h, _ := newTestServer(t, stubSource{bars: bars(400)})

	rec, body := do(h, http.MethodPost, "/api/chart", `{"symbol":"btcusdt","timeframe":"1Min","lookback":300}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, 300.0, body["candle_count"])
	assert.Equal(t, 299.0, body["decision_idx"])
	assert.Equal(t, "BTCUSDT", body["symbol"])
	dec := body["decision"].(map[string]any)
	assert.Contains(t, []any{"TRADE", "NO_TRADE"}, dec["decision"])
	id := body["session_id"].(string)
	require.NotEmpty(t, id)

	rec, body = do(h, http.MethodPost, "/api/decision", `{"session_id":"`+id+`","decision_idx":"150"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 150.0, body["decision_idx"])
	assert.NotEmpty(t, body["decision_timestamp"])

	rec, _ = do(h, http.MethodGet, "/api/chart/"+id+"?idx=150", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "BTCUSDT 1Min")
}

func TestAnalyzeErrors(t *testing.T) {
	cases := []struct {
		name   string
		src    stubSource
		body   string
		status int
		msg    string
	}{
		{"malformed json", stubSource{}, `{"symbol":`, http.StatusBadRequest, "not valid JSON"},
		{"schema violation", stubSource{}, `{"symbol":"BTCUSDT","lookback":"many"}`, http.StatusBadRequest, "lookback"},
		{"missing symbol", stubSource{}, `{}`, http.StatusBadRequest, "symbol is required"},
		{"bad timeframe", stubSource{}, `{"symbol":"BTCUSDT","timeframe":"2Min"}`, http.StatusBadRequest, "invalid timeframe: 2Min"},
		{"fetch failure", stubSource{err: errors.New("upstream down")}, `{"symbol":"BTCUSDT"}`, http.StatusBadGateway, "upstream down"},
		{"too few candles", stubSource{bars: bars(50)}, `{"symbol":"BTCUSDT"}`, http.StatusBadRequest, "only 50 candles"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newTestServer(t, tc.src)
			rec, body := do(h, http.MethodPost, "/api/chart", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "error", body["status"])
			assert.Contains(t, body["message"], tc.msg)
		})
	}
}

func TestRedecideErrors(t *testing.T) {
	h, _ := newTestServer(t, stubSource{bars: bars(300)})
	_, body := do(h, http.MethodPost, "/api/chart", `{"symbol":"BTCUSDT","lookback":300}`)
	id := body["session_id"].(string)

	cases := []struct {
		name string
		body string
		msg  string
	}{
		{"missing index", `{"session_id":"` + id + `"}`, "no decision index provided"},
		{"fractional index", `{"session_id":"` + id + `","decision_idx":1.5}`, "decision_idx"},
		{"warm-up", `{"session_id":"` + id + `","decision_idx":10}`, "only 10 candles exist"},
		{"out of range", `{"session_id":"` + id + `","decision_idx":300}`, "out of range"},
		{"unknown session", `{"session_id":"gone","decision_idx":150}`, "session expired or not found"},
		{"missing session", `{"decision_idx":150}`, "session_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := do(h, http.MethodPost, "/api/decision", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, body["message"], tc.msg)
		})
	}
}

func TestChartUnknownSession(t *testing.T) {
	h, _ := newTestServer(t, stubSource{})
	rec, body := do(h, http.MethodGet, "/api/chart/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestServer(t, stubSource{bars: bars(300)})
	do(h, http.MethodPost, "/api/chart", `{"symbol":"BTCUSDT","lookback":300}`)
	rec, _ := do(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "synapse_decisions_total")
	assert.Contains(t, rec.Body.String(), "synapse_http_request_duration_seconds")
}
