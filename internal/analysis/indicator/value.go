package indicator

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Value is an optional indicator reading. The zero Value is absent.
// Comparisons involving an absent operand are always false, so a missing
// reading can never satisfy a condition.
type Value struct {
	v  float64
	ok bool
}

// Some wraps f. NaN and ±Inf collapse to an absent Value.
func Some(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{v: f, ok: true}
}

func None() Value { return Value{} }

func (x Value) Get() (float64, bool) { return x.v, x.ok }

func (x Value) Valid() bool { return x.ok }

// Or returns the reading, or def when absent.
func (x Value) Or(def float64) float64 {
	if !x.ok {
		return def
	}
	return x.v
}

// Mul scales the reading; absent stays absent.
func (x Value) Mul(f float64) Value {
	if !x.ok {
		return x
	}
	return Some(x.v * f)
}

func (x Value) Gt(o Value) bool { return x.ok && o.ok && x.v > o.v }
func (x Value) Lt(o Value) bool { return x.ok && o.ok && x.v < o.v }
func (x Value) Ge(o Value) bool { return x.ok && o.ok && x.v >= o.v }

func (x Value) GtF(f float64) bool { return x.Gt(Some(f)) }
func (x Value) LtF(f float64) bool { return x.Lt(Some(f)) }
func (x Value) GeF(f float64) bool { return x.Ge(Some(f)) }

func (x Value) String() string {
	if !x.ok {
		return "NaN"
	}
	return strconv.FormatFloat(x.v, 'f', -1, 64)
}

func (x Value) MarshalJSON() ([]byte, error) {
	if !x.ok {
		return []byte("null"), nil
	}
	return json.Marshal(x.v)
}

func (x *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*x = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*x = Some(f)
	return nil
}
