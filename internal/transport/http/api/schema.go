package apihttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

const analysisSchema = `{
  "type": "object",
  "properties": {
    "symbol": {"type": "string"},
    "timeframe": {"type": "string"},
    "range_mode": {"enum": ["lookback", "daterange", ""]},
    "lookback": {"type": "integer", "minimum": 1},
    "start_datetime": {"type": ["string", "null"]},
    "end_datetime": {"type": ["string", "null"]},
    "timestamp_mode": {"enum": ["latest", "manual", ""]},
    "decision_timestamp": {"type": ["string", "null"]}
  }
}`

const redecisionSchema = `{
  "type": "object",
  "required": ["session_id"],
  "properties": {
    "session_id": {"type": "string", "minLength": 1},
    "decision_idx": {"type": ["integer", "string", "null"]}
  }
}`

var errNoDecisionIndex = errors.New("no decision index provided")

type payloadSchemas struct {
	analysis   *jsonschema.Schema
	redecision *jsonschema.Schema
}

func compileSchemas() (payloadSchemas, error) {
	a, err := compileSchema("analysis.json", analysisSchema)
	if err != nil {
		return payloadSchemas{}, err
	}
	r, err := compileSchema("redecision.json", redecisionSchema)
	if err != nil {
		return payloadSchemas{}, err
	}
	return payloadSchemas{analysis: a, redecision: r}, nil
}

func compileSchema(name, raw string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile(name)
}

// validatePayload checks raw against schema and reports the deepest failing
// keyword in a single line.
func validatePayload(schema *jsonschema.Schema, raw []byte) error {
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("request body is not valid JSON")
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("request body is not valid JSON")
	}
	err := schema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	field := strings.TrimPrefix(ve.InstanceLocation, "/")
	if field == "" {
		return fmt.Errorf("invalid payload: %s", ve.Message)
	}
	return fmt.Errorf("invalid %s: %s", field, ve.Message)
}

// decisionIndex accepts decision_idx as a JSON integer or a numeric string.
func decisionIndex(raw []byte) (int, error) {
	v := gjson.GetBytes(raw, "decision_idx")
	switch v.Type {
	case gjson.Number:
		if v.Num != math.Trunc(v.Num) {
			return 0, fmt.Errorf("decision index must be an integer")
		}
		return int(v.Num), nil
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return 0, errNoDecisionIndex
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("decision index must be an integer")
		}
		return n, nil
	default:
		return 0, errNoDecisionIndex
	}
}
