package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	args := m.Called(ctx, symbol, interval, limit)
	c, _ := args.Get(0).([]Candle)
	return c, args.Error(1)
}

func (m *mockSource) FetchRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]Candle, error) {
	args := m.Called(ctx, symbol, interval, start, end)
	c, _ := args.Get(0).([]Candle)
	return c, args.Error(1)
}

type mockArchive struct {
	mock.Mock
}

func (m *mockArchive) SaveCandles(ctx context.Context, symbol, interval string, candles []Candle) error {
	return m.Called(ctx, symbol, interval, candles).Error(0)
}

func (m *mockArchive) LoadRecent(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	args := m.Called(ctx, symbol, interval, limit)
	c, _ := args.Get(0).([]Candle)
	return c, args.Error(1)
}

func (m *mockArchive) LoadRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]Candle, error) {
	args := m.Called(ctx, symbol, interval, start, end)
	c, _ := args.Get(0).([]Candle)
	return c, args.Error(1)
}

func TestArchivingSourceSavesOnSuccess(t *testing.T) {
	ctx := context.Background()
	bars := sampleCandles(3)
	up := new(mockSource)
	ar := new(mockArchive)
	up.On("FetchHistory", ctx, "BTCUSDT", "1m", 3).Return(bars, nil)
	ar.On("SaveCandles", ctx, "BTCUSDT", "1m", bars).Return(nil)

	got, err := NewArchivingSource(up, ar).FetchHistory(ctx, "BTCUSDT", "1m", 3)
	require.NoError(t, err)
	assert.Equal(t, bars, got)
	ar.AssertExpectations(t)
}

func TestArchivingSourceFallsBack(t *testing.T) {
	ctx := context.Background()
	bars := sampleCandles(2)
	up := new(mockSource)
	ar := new(mockArchive)
	up.On("FetchHistory", ctx, "BTCUSDT", "1m", 2).Return(nil, errors.New("timeout"))
	ar.On("LoadRecent", ctx, "BTCUSDT", "1m", 2).Return(bars, nil)

	got, err := NewArchivingSource(up, ar).FetchHistory(ctx, "BTCUSDT", "1m", 2)
	require.NoError(t, err)
	assert.Equal(t, bars, got)
	ar.AssertNotCalled(t, "SaveCandles", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestArchivingSourceReturnsUpstreamErrorWhenArchiveEmpty(t *testing.T) {
	ctx := context.Background()
	start := time.Unix(0, 0)
	end := start.Add(time.Hour)
	up := new(mockSource)
	ar := new(mockArchive)
	upErr := errors.New("rate limited")
	up.On("FetchRange", ctx, "BTCUSDT", "1m", start, end).Return(nil, upErr)
	ar.On("LoadRange", ctx, "BTCUSDT", "1m", start, end).Return(nil, ErrNoData)

	_, err := NewArchivingSource(up, ar).FetchRange(ctx, "BTCUSDT", "1m", start, end)
	assert.ErrorIs(t, err, upErr)
}
