package indicator

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbsentComparisonsAreFalse(t *testing.T) {
	one := Some(1)
	missing := None()

	assert.True(t, one.GtF(0))
	assert.False(t, missing.GtF(0))
	assert.False(t, missing.LtF(0))
	assert.False(t, missing.GeF(0))
	assert.False(t, one.Gt(missing))
	assert.False(t, one.Lt(missing))
	assert.False(t, missing.Ge(missing))
}

func TestSomeRejectsNonFinite(t *testing.T) {
	assert.False(t, Some(math.NaN()).Valid())
	assert.False(t, Some(math.Inf(1)).Valid())
	assert.False(t, Some(2).Mul(math.Inf(1)).Valid())
	assert.Equal(t, 7.0, None().Or(7))
	assert.Equal(t, "NaN", None().String())
}

func TestValueJSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		A Value `json:"a"`
		B Value `json:"b"`
	}{A: Some(1.5), B: None()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":null}`, string(raw))

	var decoded struct {
		A Value `json:"a"`
		B Value `json:"b"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	v, ok := decoded.A.Get()
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)
	assert.False(t, decoded.B.Valid())
}
