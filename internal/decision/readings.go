package decision

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"synapse/internal/analysis/indicator"
)

const notAvailable = "N/A"

// Reading is one labelled, pre-rendered indicator value.
type Reading struct {
	Label string
	Value string
}

// Readings keep their insertion order, including in JSON.
type Readings []Reading

func (r Readings) Get(label string) (string, bool) {
	for _, rd := range r {
		if rd.Label == label {
			return rd.Value, true
		}
	}
	return "", false
}

func (r Readings) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, rd := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(rd.Label)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(rd.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func fixed(v indicator.Value, places int32) string {
	f, ok := v.Get()
	if !ok {
		return notAvailable
	}
	return decimal.NewFromFloat(f).StringFixed(places)
}

func price(f float64) string {
	return fixed(indicator.Some(f), 2)
}

// count renders a whole-number reading with thousands separators.
func count(v indicator.Value) string {
	f, ok := v.Get()
	if !ok {
		return notAvailable
	}
	return humanize.Comma(int64(math.Round(f)))
}

// num renders a threshold the way it was configured (25, 1.5).
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
