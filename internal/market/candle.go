package market

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Trades    int64   `json:"trades"`
}

// Time is the bar's open time in UTC.
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.OpenTime).UTC()
}

func (c Candle) TimeString() string {
	if c.OpenTime <= 0 {
		return "-"
	}
	return c.Time().Format("2006-01-02 15:04") + "Z"
}

type Candles []Candle

// Summary renders a one-line description of the window, used by the CLI.
func (cs Candles) Summary(interval string) string {
	if len(cs) == 0 {
		return "no candles"
	}
	first := cs[0]
	last := cs[len(cs)-1]
	low := math.MaxFloat64
	high := -math.MaxFloat64
	volume := 0.0
	for _, bar := range cs {
		low = math.Min(low, bar.Low)
		high = math.Max(high, bar.High)
		volume += bar.Volume
	}
	changePct := 0.0
	if first.Open != 0 {
		changePct = (last.Close - first.Open) / first.Open * 100
	}
	iv := strings.TrimSpace(interval)
	if iv == "" {
		iv = "window"
	}
	return fmt.Sprintf("%d bars %s → %s, close=%s (%+.2f%%/%s), range %s–%s, volume %s",
		len(cs), first.TimeString(), last.TimeString(),
		humanize.CommafWithDigits(last.Close, 4), changePct, iv,
		humanize.CommafWithDigits(low, 4), humanize.CommafWithDigits(high, 4),
		humanize.SIWithDigits(volume, 2, ""))
}

// Sorted reports whether open times are strictly increasing.
func (cs Candles) Sorted() bool {
	for i := 1; i < len(cs); i++ {
		if cs[i].OpenTime <= cs[i-1].OpenTime {
			return false
		}
	}
	return true
}
