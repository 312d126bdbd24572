// Package record defines the typed field values written to destination tables.
package record

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which scalar a Value holds.
type Kind int

const (
	// KindString is a text value. The zero Value is an empty string.
	KindString Kind = iota
	// KindNumber is a finite float64.
	KindNumber
	// KindBool is a boolean.
	KindBool
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return "unknown"
	}
}

// Value is a string, number or boolean field value.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// String returns a text value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number returns a numeric value.
func Number(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Kind reports the scalar kind held by v.
func (v Value) Kind() Kind {
	return v.kind
}

// Str returns the text and whether v is a string.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

// Num returns the number and whether v is a number.
func (v Value) Num() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Boolean returns the boolean and whether v is a boolean.
func (v Value) Boolean() (bool, bool) {
	return v.b, v.kind == KindBool
}

// IsEmptyString reports whether v is the empty string.
func (v Value) IsEmptyString() bool {
	return v.kind == KindString && v.str == ""
}

// Interface returns v as a plain Go value.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return v.str
	}
}

// GoString renders v for test failure output.
func (v Value) GoString() string {
	switch v.kind {
	case KindNumber:
		return "record.Number(" + strconv.FormatFloat(v.num, 'f', -1, 64) + ")"
	case KindBool:
		return "record.Bool(" + strconv.FormatBool(v.b) + ")"
	default:
		return "record.String(" + strconv.Quote(v.str) + ")"
	}
}

// Equal reports whether two values hold the same kind and scalar.
func (v Value) Equal(o Value) bool {
	return v == o
}

// MarshalJSON encodes v as a bare JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindNumber && (math.IsNaN(v.num) || math.IsInf(v.num, 0)) {
		return nil, fmt.Errorf("record: non-finite number %v", v.num)
	}
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes a JSON string, number or boolean.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case string:
		*v = String(t)
	case float64:
		*v = Number(t)
	case bool:
		*v = Bool(t)
	case nil:
		*v = String("")
	default:
		return fmt.Errorf("record: unsupported JSON value %s", string(data))
	}
	return nil
}

// Fields maps a field name to its value. It is the unit accepted by table writes.
type Fields map[string]Value

// Names returns the field names in sorted order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compact returns a copy of f without empty-string values.
func Compact(f Fields) Fields {
	out := make(Fields, len(f))
	for name, v := range f {
		if v.IsEmptyString() {
			continue
		}
		out[name] = v
	}
	return out
}

// Schema maps each known field name to the kind it must hold.
type Schema map[string]Kind

// Names returns the schema's field names in sorted order.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FieldError describes one field that does not match the schema.
type FieldError struct {
	Index int
	Field string
	Want  Kind
	Got   Kind
	// Unknown is set when the field is not part of the schema.
	Unknown bool
}

func (e FieldError) String() string {
	if e.Unknown {
		return fmt.Sprintf("record %d: unknown field %q", e.Index, e.Field)
	}
	return fmt.Sprintf("record %d: field %q is %s, want %s", e.Index, e.Field, e.Got, e.Want)
}

// ValidationError lists every mismatch found in a batch of records.
type ValidationError struct {
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	const maxShown = 5
	parts := make([]string, 0, maxShown)
	for i, p := range e.Problems {
		if i == maxShown {
			parts = append(parts, fmt.Sprintf("and %d more", len(e.Problems)-maxShown))
			break
		}
		parts = append(parts, p.String())
	}
	return "record validation failed: " + strings.Join(parts, "; ")
}

// Validate checks every record against s. A nil schema accepts anything.
func (s Schema) Validate(records []Fields) error {
	if s == nil {
		return nil
	}
	var problems []FieldError
	for i, rec := range records {
		for _, name := range rec.Names() {
			want, ok := s[name]
			if !ok {
				problems = append(problems, FieldError{Index: i, Field: name, Unknown: true})
				continue
			}
			if got := rec[name].Kind(); got != want {
				problems = append(problems, FieldError{Index: i, Field: name, Want: want, Got: got})
			}
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
