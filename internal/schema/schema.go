// Package schema is a small structural validator for decoded JSON payloads.
//
// A Schema maps key names to either a primitive Type or a nested Schema.
// Matching is an "at least" check: every key of the schema must be present
// with a value of the declared type, and unknown keys are ignored.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type Type int

const (
	String Type = iota + 1
	Number
	Integer
	Boolean
	Null
	Object
	Array
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Number:
		return "number"
	case Integer:
		return "integer"
	case Boolean:
		return "boolean"
	case Null:
		return "null"
	case Object:
		return "object"
	case Array:
		return "array"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Schema values must be a Type or a nested Schema. Any other value never
// matches.
type Schema map[string]any

// IsLike reports whether value structurally matches s. It returns false on
// the first missing key or type mismatch.
func IsLike(value any, s Schema) bool {
	obj, ok := value.(map[string]any)
	if !ok {
		return false
	}
	for key, want := range s {
		got, present := obj[key]
		if !present {
			return false
		}
		switch want := want.(type) {
		case Schema:
			if !IsLike(got, want) {
				return false
			}
		case Type:
			if !want.matches(got) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (t Type) matches(v any) bool {
	switch t {
	case String:
		_, ok := v.(string)
		return ok
	case Boolean:
		_, ok := v.(bool)
		return ok
	case Null:
		return v == nil
	case Object:
		_, ok := v.(map[string]any)
		return ok
	case Array:
		_, ok := v.([]any)
		return ok
	case Number:
		switch v.(type) {
		case json.Number, float64, float32, int, int64, int32:
			return true
		}
		return false
	case Integer:
		return isIntegral(v)
	default:
		return false
	}
}

func isIntegral(v any) bool {
	switch n := v.(type) {
	case int, int64, int32:
		return true
	case json.Number:
		s := n.String()
		if strings.ContainsAny(s, ".eE") {
			return false
		}
		_, err := n.Int64()
		return err == nil
	case float64:
		return n == float64(int64(n))
	default:
		return false
	}
}

// Decode reads one JSON document keeping numbers as json.Number so that
// integers and decimals stay distinguishable.
func Decode(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}

// DecodeBytes is Decode over an in-memory payload.
func DecodeBytes(data []byte) (any, error) {
	return Decode(bytes.NewReader(data))
}
