package market

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Timeframe maps a user-facing bar size to the exchange interval.
type Timeframe struct {
	Key            string
	Duration       time.Duration
	SourceInterval string
}

var supportedTimeframes = map[string]Timeframe{
	"1min":  {Key: "1Min", Duration: time.Minute, SourceInterval: "1m"},
	"3min":  {Key: "3Min", Duration: 3 * time.Minute, SourceInterval: "3m"},
	"5min":  {Key: "5Min", Duration: 5 * time.Minute, SourceInterval: "5m"},
	"15min": {Key: "15Min", Duration: 15 * time.Minute, SourceInterval: "15m"},
	"30min": {Key: "30Min", Duration: 30 * time.Minute, SourceInterval: "30m"},
	"1hour": {Key: "1Hour", Duration: time.Hour, SourceInterval: "1h"},
	"2hour": {Key: "2Hour", Duration: 2 * time.Hour, SourceInterval: "2h"},
	"4hour": {Key: "4Hour", Duration: 4 * time.Hour, SourceInterval: "4h"},
	"1day":  {Key: "1Day", Duration: 24 * time.Hour, SourceInterval: "1d"},
	"1week": {Key: "1Week", Duration: 7 * 24 * time.Hour, SourceInterval: "1w"},
}

// ParseTimeframe accepts either the display key ("15Min") or the exchange
// interval ("15m"), case-insensitively for the display key.
func ParseTimeframe(input string) (Timeframe, error) {
	raw := strings.TrimSpace(input)
	if tf, ok := supportedTimeframes[strings.ToLower(raw)]; ok {
		return tf, nil
	}
	for _, tf := range supportedTimeframes {
		if tf.SourceInterval == raw {
			return tf, nil
		}
	}
	return Timeframe{}, fmt.Errorf("unsupported timeframe: %q", input)
}

// SupportedTimeframes returns the display keys ordered by bar size.
func SupportedTimeframes() []string {
	all := make([]Timeframe, 0, len(supportedTimeframes))
	for _, tf := range supportedTimeframes {
		all = append(all, tf)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Duration < all[j].Duration })
	keys := make([]string, len(all))
	for i, tf := range all {
		keys[i] = tf.Key
	}
	return keys
}

// ParseIntervalDuration parses exchange intervals such as "15m", "1h", "1d", "1w".
func ParseIntervalDuration(interval string) (time.Duration, bool) {
	interval = strings.ToLower(strings.TrimSpace(interval))
	for _, tf := range supportedTimeframes {
		if tf.SourceInterval == interval {
			return tf.Duration, true
		}
	}
	return 0, false
}

const DefaultKlineGrace = 10 * time.Second

// DropUnclosed drops the last bar when it is still in progress at now.
func DropUnclosed(candles []Candle, interval time.Duration, now time.Time) []Candle {
	if len(candles) == 0 || interval <= 0 {
		return candles
	}
	last := candles[len(candles)-1]
	if last.OpenTime <= 0 {
		return candles
	}
	cutoffMs := last.OpenTime + interval.Milliseconds() + DefaultKlineGrace.Milliseconds()
	if now.UnixMilli() < cutoffMs {
		return candles[:len(candles)-1]
	}
	return candles
}
