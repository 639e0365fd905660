package market

import (
	"context"
	"errors"
	"time"
)

// ErrNoData is returned when a source has nothing for the requested window.
var ErrNoData = errors.New("no data returned")

// Source fetches closed OHLCV bars ordered oldest to newest.
type Source interface {
	// FetchHistory returns the most recent limit bars.
	FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	// FetchRange returns every bar opening within [start, end].
	FetchRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]Candle, error)
}

// Archive persists fetched bars so they can be served when the upstream fails.
type Archive interface {
	SaveCandles(ctx context.Context, symbol, interval string, candles []Candle) error
	LoadRecent(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	LoadRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]Candle, error)
}
