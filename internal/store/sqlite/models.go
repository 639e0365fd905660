package sqlite

import "gorm.io/datatypes"

// CandleModel maps to 'candle_archive'. One row per symbol/interval/open time.
type CandleModel struct {
	ID        int64   `gorm:"column:id;primaryKey"`
	Symbol    string  `gorm:"column:symbol;uniqueIndex:idx_candle_key,priority:1"`
	Interval  string  `gorm:"column:interval;uniqueIndex:idx_candle_key,priority:2"`
	OpenTime  int64   `gorm:"column:open_time;uniqueIndex:idx_candle_key,priority:3"`
	CloseTime int64   `gorm:"column:close_time"`
	Open      float64 `gorm:"column:open"`
	High      float64 `gorm:"column:high"`
	Low       float64 `gorm:"column:low"`
	Close     float64 `gorm:"column:close"`
	Volume    float64 `gorm:"column:volume"`
	Trades    int64   `gorm:"column:trades"`
}

func (CandleModel) TableName() string { return "candle_archive" }

// FetchLogModel maps to 'fetch_log'. It records what was pulled from the
// upstream and when, never any decision output.
type FetchLogModel struct {
	ID        int64          `gorm:"column:id;primaryKey"`
	Symbol    string         `gorm:"column:symbol;index"`
	Interval  string         `gorm:"column:interval"`
	Bars      int            `gorm:"column:bars"`
	FirstOpen int64          `gorm:"column:first_open"`
	LastOpen  int64          `gorm:"column:last_open"`
	Details   datatypes.JSON `gorm:"column:details"`
	Timestamp int64          `gorm:"column:timestamp"`
}

func (FetchLogModel) TableName() string { return "fetch_log" }
