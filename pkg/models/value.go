package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind identifies the variant held by a Value.
type ValueKind string

const (
	ValueKindUnset  ValueKind = "unset"
	ValueKindString ValueKind = "string"
	ValueKindNumber ValueKind = "number"
	ValueKindBool   ValueKind = "bool"
	ValueKindJSON   ValueKind = "json" // Objects and arrays, kept as raw JSON
)

// Value is a typed block field value. The zero Value is Unset.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	raw  json.RawMessage
}

// StringValue returns a string Value.
func StringValue(s string) Value {
	return Value{kind: ValueKindString, str: s}
}

// NumberValue returns a numeric Value.
func NumberValue(n float64) Value {
	return Value{kind: ValueKindNumber, num: n}
}

// BoolValue returns a boolean Value.
func BoolValue(b bool) Value {
	return Value{kind: ValueKindBool, b: b}
}

// JSONValue returns a Value holding raw JSON (objects or arrays).
func JSONValue(raw json.RawMessage) Value {
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)

	return Value{kind: ValueKindJSON, raw: cp}
}

// ValueOf converts a decoded JSON-ish Go value into a Value.
func ValueOf(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return val, nil
	case string:
		return StringValue(val), nil
	case bool:
		return BoolValue(val), nil
	case float64:
		return NumberValue(val), nil
	case float32:
		return NumberValue(float64(val)), nil
	case int:
		return NumberValue(float64(val)), nil
	case int64:
		return NumberValue(float64(val)), nil
	case json.Number:
		n, err := val.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", val, err)
		}

		return NumberValue(n), nil
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return Value{}, fmt.Errorf("unsupported value type %T: %w", v, err)
		}

		return JSONValue(raw), nil
	}
}

// MustValueOf is ValueOf for literals known to be valid.
func MustValueOf(v any) Value {
	val, err := ValueOf(v)
	if err != nil {
		panic(err)
	}

	return val
}

// Kind returns the variant held by the value.
func (v Value) Kind() ValueKind {
	if v.kind == "" {
		return ValueKindUnset
	}

	return v.kind
}

// IsUnset reports whether the value carries no data.
func (v Value) IsUnset() bool {
	return v.Kind() == ValueKindUnset
}

// String returns the string payload, or "" for non-string values.
func (v Value) String() string {
	if v.kind != ValueKindString {
		return ""
	}

	return v.str
}

// Number returns the numeric payload and whether the value is a number.
func (v Value) Number() (float64, bool) {
	return v.num, v.kind == ValueKindNumber
}

// Bool returns the boolean payload and whether the value is a bool.
func (v Value) Bool() (bool, bool) {
	return v.b, v.kind == ValueKindBool
}

// Raw returns the raw JSON payload for JSON values.
func (v Value) Raw() json.RawMessage {
	if v.kind != ValueKindJSON {
		return nil
	}

	return v.raw
}

// Interface returns the value as a plain Go value, suitable for JSON schema validation.
func (v Value) Interface() any {
	switch v.Kind() {
	case ValueKindString:
		return v.str
	case ValueKindNumber:
		return v.num
	case ValueKindBool:
		return v.b
	case ValueKindJSON:
		var out any
		if err := json.Unmarshal(v.raw, &out); err != nil {
			return nil
		}

		return out
	default:
		return nil
	}
}

// Equal reports whether two values hold the same variant and payload.
func (v Value) Equal(other Value) bool {
	if v.Kind() != other.Kind() {
		return false
	}

	switch v.Kind() {
	case ValueKindString:
		return v.str == other.str
	case ValueKindNumber:
		return v.num == other.num
	case ValueKindBool:
		return v.b == other.b
	case ValueKindJSON:
		var a, b bytes.Buffer
		if json.Compact(&a, v.raw) != nil || json.Compact(&b, other.raw) != nil {
			return bytes.Equal(v.raw, other.raw)
		}

		return bytes.Equal(a.Bytes(), b.Bytes())
	default:
		return true
	}
}

// MarshalJSON encodes the value as its natural JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind() {
	case ValueKindString:
		return json.Marshal(v.str)
	case ValueKindNumber:
		return []byte(strconv.FormatFloat(v.num, 'g', -1, 64)), nil
	case ValueKindBool:
		return json.Marshal(v.b)
	case ValueKindJSON:
		if len(v.raw) == 0 {
			return []byte("null"), nil
		}

		return v.raw, nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes any JSON value into the matching variant.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		*v = Value{}

		return nil
	}

	switch trimmed[0] {
	case 'n':
		*v = Value{}
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}

		*v = StringValue(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return err
		}

		*v = BoolValue(b)
	case '{', '[':
		if !json.Valid(trimmed) {
			return fmt.Errorf("invalid JSON value: %s", trimmed)
		}

		*v = JSONValue(trimmed)
	default:
		n, err := strconv.ParseFloat(string(trimmed), 64)
		if err != nil {
			return fmt.Errorf("invalid number value %s: %w", trimmed, err)
		}

		*v = NumberValue(n)
	}

	return nil
}
