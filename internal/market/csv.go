package market

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// CSVOptions controls the metadata line and price precision of BuildCSV.
type CSVOptions struct {
	Symbol         string
	Interval       string
	PricePrecision int
}

const (
	// PrecisionAuto picks a precision from the price range.
	PrecisionAuto = math.MinInt32
	// PrecisionRaw keeps the shortest exact representation.
	PrecisionRaw = -1
)

const csvHeader = "Index,Time,O,H,L,C,V"

// BuildCSV renders candles oldest first, preceded by a "# key=value" line.
func BuildCSV(candles []Candle, opts CSVOptions) string {
	if len(candles) == 0 {
		return ""
	}
	precision := opts.PricePrecision
	if precision == PrecisionAuto {
		precision = autoPrecision(candles)
	}
	var b strings.Builder
	meta := []string{}
	if sym := strings.TrimSpace(opts.Symbol); sym != "" {
		meta = append(meta, "Symbol="+strings.ToUpper(sym))
	}
	meta = append(meta, "WindowStart="+candles[0].Time().Format(time.RFC3339))
	if iv := strings.TrimSpace(opts.Interval); iv != "" {
		meta = append(meta, "Interval="+iv)
	}
	meta = append(meta, "Order=OLDEST->NEWEST")
	b.WriteString("# " + strings.Join(meta, " ") + "\n")
	b.WriteString(csvHeader + "\n")
	for idx, c := range candles {
		b.WriteString(strconv.Itoa(idx + 1))
		b.WriteByte(',')
		b.WriteString(c.Time().Format(time.RFC3339))
		b.WriteByte(',')
		b.WriteString(formatPrice(c.Open, precision))
		b.WriteByte(',')
		b.WriteString(formatPrice(c.High, precision))
		b.WriteByte(',')
		b.WriteString(formatPrice(c.Low, precision))
		b.WriteByte(',')
		b.WriteString(formatPrice(c.Close, precision))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(c.Volume, 'f', -1, 64))
		b.WriteByte('\n')
	}
	return b.String()
}

// CSVMeta is the metadata recovered from the "#" line.
type CSVMeta struct {
	Symbol   string
	Interval string
}

// ParseCSV reads the format written by BuildCSV. Close times are derived
// from the interval when it is known.
func ParseCSV(r io.Reader) ([]Candle, CSVMeta, error) {
	var meta CSVMeta
	var out []Candle
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		switch {
		case text == "":
			continue
		case strings.HasPrefix(text, "#"):
			for _, kv := range strings.Fields(strings.TrimPrefix(text, "#")) {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					continue
				}
				switch k {
				case "Symbol":
					meta.Symbol = v
				case "Interval":
					meta.Interval = v
				}
			}
			continue
		case strings.HasPrefix(text, "Index,"):
			if text != csvHeader {
				return nil, meta, fmt.Errorf("line %d: unexpected header %q", line, text)
			}
			continue
		}
		c, err := parseCSVRow(text)
		if err != nil {
			return nil, meta, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, c)
	}
	if err := sc.Err(); err != nil {
		return nil, meta, err
	}
	if len(out) == 0 {
		return nil, meta, ErrNoData
	}
	if dur, ok := ParseIntervalDuration(meta.Interval); ok {
		for i := range out {
			out[i].CloseTime = out[i].OpenTime + dur.Milliseconds() - 1
		}
	}
	if !Candles(out).Sorted() {
		return nil, meta, fmt.Errorf("candles are not in ascending time order")
	}
	return out, meta, nil
}

func parseCSVRow(text string) (Candle, error) {
	cols := strings.Split(text, ",")
	if len(cols) != 7 {
		return Candle{}, fmt.Errorf("expected 7 columns, got %d", len(cols))
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(cols[1]))
	if err != nil {
		return Candle{}, fmt.Errorf("time: %w", err)
	}
	vals := make([]float64, 5)
	for i := range vals {
		v, err := strconv.ParseFloat(strings.TrimSpace(cols[i+2]), 64)
		if err != nil {
			return Candle{}, fmt.Errorf("column %d: %w", i+3, err)
		}
		vals[i] = v
	}
	return Candle{
		OpenTime: ts.UnixMilli(),
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, nil
}

func autoPrecision(candles []Candle) int {
	maxVal := 0.0
	for _, c := range candles {
		for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
			maxVal = math.Max(maxVal, math.Abs(v))
		}
	}
	switch {
	case maxVal >= 1000:
		return 2
	case maxVal >= 100:
		return 3
	default:
		return PrecisionRaw
	}
}

func formatPrice(value float64, precision int) string {
	if precision == PrecisionRaw {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	s := strconv.FormatFloat(value, 'f', precision, 64)
	if precision > 0 {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}
