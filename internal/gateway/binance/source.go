package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"synapse/internal/logger"
	"synapse/internal/market"
	"synapse/internal/pkg/circuit"
	symbolpkg "synapse/internal/pkg/symbol"

	"github.com/adshao/go-binance/v2/futures"
)

const maxPageLimit = 1500

// ErrCircuitOpen is returned while the breaker refuses upstream calls.
var ErrCircuitOpen = errors.New("binance: circuit open")

type klineQuery struct {
	symbol   string
	interval string
	limit    int
	start    int64
	end      int64
}

type klineFetcher func(ctx context.Context, q klineQuery) ([]*futures.Kline, error)

// Source implements market.Source over the USDⓈ-M futures REST API.
type Source struct {
	cfg     Config
	fetch   klineFetcher
	breaker *circuit.CircuitBreaker
	now     func() time.Time
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	client := futures.NewClient("", "")
	client.BaseURL = final.RESTBaseURL
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyURL != "" {
		proxyURL, err := url.Parse(final.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	return newSource(final, func(ctx context.Context, q klineQuery) ([]*futures.Kline, error) {
		svc := client.NewKlinesService().Symbol(q.symbol).Interval(q.interval).Limit(q.limit)
		if q.start > 0 {
			svc = svc.StartTime(q.start)
		}
		if q.end > 0 {
			svc = svc.EndTime(q.end)
		}
		return svc.Do(ctx)
	}), nil
}

func newSource(cfg Config, fetch klineFetcher) *Source {
	return &Source{
		cfg:     cfg,
		fetch:   fetch,
		breaker: circuit.NewCircuitBreaker("binance-klines", cfg.BreakerThreshold, cfg.BreakerTimeout),
		now:     time.Now,
	}
}

// Breaker exposes the circuit breaker so callers can observe state changes.
func (s *Source) Breaker() *circuit.CircuitBreaker {
	return s.breaker
}

// FetchHistory pages backwards from now until limit closed bars are collected.
func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	sym, iv, dur, err := normalize(symbol, interval)
	if err != nil {
		return nil, err
	}
	var out []market.Candle
	end := int64(0)
	for len(out) < limit {
		// one extra bar so a dropped in-progress bar does not shorten the result
		page := min(limit-len(out)+1, maxPageLimit)
		bars, err := s.page(ctx, klineQuery{symbol: sym, interval: iv, limit: page, end: end})
		if err != nil {
			return nil, err
		}
		if end == 0 {
			bars = market.DropUnclosed(bars, dur, s.now())
		}
		if len(bars) == 0 {
			break
		}
		out = append(bars, out...)
		end = bars[0].OpenTime - 1
		if len(bars) < page-1 {
			break
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s %s: %w", sym, iv, market.ErrNoData)
	}
	logger.Debugf("binance: fetched %d bars %s %s", len(out), sym, iv)
	return out, nil
}

// FetchRange pages forward from start until end is covered.
func (s *Source) FetchRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]market.Candle, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("end %s must be after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	sym, iv, dur, err := normalize(symbol, interval)
	if err != nil {
		return nil, err
	}
	var out []market.Candle
	cursor := start.UnixMilli()
	endMs := end.UnixMilli()
	for cursor <= endMs {
		bars, err := s.page(ctx, klineQuery{symbol: sym, interval: iv, limit: maxPageLimit, start: cursor, end: endMs})
		if err != nil {
			return nil, err
		}
		if len(bars) == 0 {
			break
		}
		out = append(out, bars...)
		next := bars[len(bars)-1].OpenTime + dur.Milliseconds()
		if next <= cursor || len(bars) < maxPageLimit {
			break
		}
		cursor = next
	}
	out = market.DropUnclosed(out, dur, s.now())
	if len(out) == 0 {
		return nil, fmt.Errorf("%s %s: %w", sym, iv, market.ErrNoData)
	}
	logger.Debugf("binance: fetched %d bars %s %s [%s, %s]", len(out), sym, iv, start.Format(time.RFC3339), end.Format(time.RFC3339))
	return out, nil
}

func (s *Source) page(ctx context.Context, q klineQuery) ([]market.Candle, error) {
	var kls []*futures.Kline
	err := s.breaker.Do(func() error {
		var err error
		kls, err = s.fetch(ctx, q)
		return err
	}, func(error) bool { return ctx.Err() == nil })
	if errors.Is(err, circuit.ErrOpen) {
		return nil, ErrCircuitOpen
	}
	if err != nil {
		return nil, fmt.Errorf("binance klines %s %s: %w", q.symbol, q.interval, err)
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	return out, nil
}

func normalize(symbol, interval string) (string, string, time.Duration, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return "", "", 0, fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	dur, ok := market.ParseIntervalDuration(interval)
	if !ok {
		return "", "", 0, fmt.Errorf("unsupported interval %q", interval)
	}
	return symbolpkg.ToBinance(symbol), interval, dur, nil
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(v, 64)
	return f
}
