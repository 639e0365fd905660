package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"synapse/internal/market"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

const saveBatchSize = 500

// CandleArchive is a gorm-backed market.Archive.
type CandleArchive struct {
	db  *gorm.DB
	now func() time.Time
}

// Archive drivers. DriverCGO is mattn/go-sqlite3 (gorm's default);
// DriverPureGo is modernc.org/sqlite for CGO-free builds.
const (
	DriverCGO    = "sqlite3"
	DriverPureGo = "modernc"
)

func NewCandleArchive(path, driver string) (*CandleArchive, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("archive path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverCGO:
		dialector = sqlite.Open(fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&cache=shared", path))
	case DriverPureGo:
		dialector = sqlite.New(sqlite.Config{
			DriverName: "sqlite",
			DSN:        fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path),
		})
	default:
		return nil, fmt.Errorf("unknown archive driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return NewCandleArchiveFromDB(db)
}

func NewCandleArchiveFromDB(db *gorm.DB) (*CandleArchive, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db cannot be nil")
	}
	if err := db.AutoMigrate(&CandleModel{}, &FetchLogModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &CandleArchive{db: db, now: time.Now}, nil
}

// SaveCandles upserts bars and appends one fetch_log row.
func (a *CandleArchive) SaveCandles(ctx context.Context, symbol, interval string, candles []market.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	rows := make([]CandleModel, len(candles))
	for i, c := range candles {
		rows[i] = CandleModel{
			Symbol:    symbol,
			Interval:  interval,
			OpenTime:  c.OpenTime,
			CloseTime: c.CloseTime,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
			Trades:    c.Trades,
		}
	}
	details, err := json.Marshal(map[string]any{
		"first_close": candles[0].Close,
		"last_close":  candles[len(candles)-1].Close,
		"source":      "upstream",
	})
	if err != nil {
		return err
	}
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "interval"}, {Name: "open_time"}},
			DoUpdates: clause.AssignmentColumns([]string{"close_time", "open", "high", "low", "close", "volume", "trades"}),
		}).CreateInBatches(rows, saveBatchSize).Error
		if err != nil {
			return err
		}
		return tx.Create(&FetchLogModel{
			Symbol:    symbol,
			Interval:  interval,
			Bars:      len(candles),
			FirstOpen: candles[0].OpenTime,
			LastOpen:  candles[len(candles)-1].OpenTime,
			Details:   datatypes.JSON(details),
			Timestamp: a.now().UnixMilli(),
		}).Error
	})
}

// LoadRecent returns the newest limit archived bars, oldest first.
func (a *CandleArchive) LoadRecent(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	var rows []CandleModel
	err := a.db.WithContext(ctx).
		Where("symbol = ? AND interval = ?", symbol, interval).
		Order("open_time DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, market.ErrNoData
	}
	out := make([]market.Candle, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r.toCandle()
	}
	return out, nil
}

// LoadRange returns archived bars opening within [start, end], oldest first.
func (a *CandleArchive) LoadRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]market.Candle, error) {
	var rows []CandleModel
	err := a.db.WithContext(ctx).
		Where("symbol = ? AND interval = ? AND open_time BETWEEN ? AND ?", symbol, interval, start.UnixMilli(), end.UnixMilli()).
		Order("open_time ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, market.ErrNoData
	}
	out := make([]market.Candle, len(rows))
	for i, r := range rows {
		out[i] = r.toCandle()
	}
	return out, nil
}

// FetchLog lists the most recent fetch_log rows for a symbol, newest first.
func (a *CandleArchive) FetchLog(ctx context.Context, symbol string, limit int) ([]FetchLogModel, error) {
	var rows []FetchLogModel
	q := a.db.WithContext(ctx).Order("id DESC")
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	return rows, q.Find(&rows).Error
}

func (a *CandleArchive) Close() error {
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r CandleModel) toCandle() market.Candle {
	return market.Candle{
		OpenTime:  r.OpenTime,
		CloseTime: r.CloseTime,
		Open:      r.Open,
		High:      r.High,
		Low:       r.Low,
		Close:     r.Close,
		Volume:    r.Volume,
		Trades:    r.Trades,
	}
}
