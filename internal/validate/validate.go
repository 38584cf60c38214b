// ABOUTME: Parameter validation and coercion against declared schemas.
// ABOUTME: Staged checks produce FieldError records; coercion runs last.

package validate

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Type is the declared semantic type of a parameter.
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeAny     Type = "any"
)

// Spec describes the constraints for a single parameter. Derived once at
// registration time and immutable afterward.
type Spec struct {
	Type      Type
	Required  bool
	Default   any
	Enum      []any
	Min       *float64
	Max       *float64
	MinLength *int
	MaxLength *int

	// Validate is an optional custom check invoked with the bound-checked
	// value. Returning false fails validation; a panic is caught and
	// reported without propagating.
	Validate func(any) bool
}

// Schema maps parameter names to their specs.
type Schema map[string]Spec

// FieldError describes a single validation failure.
type FieldError struct {
	Parameter string `json:"parameter"`
	Value     any    `json:"value,omitempty"`
	Message   string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Parameter, e.Message)
}

// Apply validates raw arguments against the schema and returns the coerced
// argument map. Checks run in fixed stages (presence, enum, numeric bounds,
// string length, custom validator, coercion with type check); each stage
// short-circuits the later ones so the first failing category is the one
// reported. A nil schema is a pass-through: handlers registered without a
// declared schema opt out of validation entirely.
func Apply(schema Schema, raw map[string]any) (map[string]any, []FieldError) {
	if schema == nil {
		return raw, nil
	}

	// Fields are checked in name order so identical inputs always report
	// identical error lists.
	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make(map[string]any, len(raw))
	for k, v := range raw {
		args[k] = v
	}

	// Default substitution for absent optional fields, then presence.
	var errs []FieldError
	for _, name := range names {
		spec := schema[name]
		if _, ok := args[name]; ok {
			continue
		}
		if spec.Default != nil {
			args[name] = spec.Default
			continue
		}
		if spec.Required {
			errs = append(errs, FieldError{Parameter: name, Message: "is required"})
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	for _, name := range names {
		spec := schema[name]
		v, ok := args[name]
		if !ok || v == nil {
			continue
		}
		if len(spec.Enum) > 0 && !enumContains(spec.Enum, v) {
			errs = append(errs, FieldError{
				Parameter: name,
				Value:     v,
				Message:   "must be one of: " + enumList(spec.Enum),
			})
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	for _, name := range names {
		spec := schema[name]
		v, ok := args[name]
		if !ok {
			continue
		}
		// Non-numeric values for a numeric field are left for the type
		// check stage; bounds only apply to values that are numbers.
		if f, isNum := asFloat(v); isNum {
			if spec.Min != nil && f < *spec.Min {
				errs = append(errs, FieldError{
					Parameter: name,
					Value:     v,
					Message:   fmt.Sprintf("must be at least %v", *spec.Min),
				})
			} else if spec.Max != nil && f > *spec.Max {
				errs = append(errs, FieldError{
					Parameter: name,
					Value:     v,
					Message:   fmt.Sprintf("must be at most %v", *spec.Max),
				})
			}
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	for _, name := range names {
		spec := schema[name]
		v, ok := args[name]
		if !ok {
			continue
		}
		s, isStr := v.(string)
		if !isStr {
			continue
		}
		n := utf8.RuneCountInString(s)
		if spec.MinLength != nil && n < *spec.MinLength {
			errs = append(errs, FieldError{
				Parameter: name,
				Value:     v,
				Message:   fmt.Sprintf("must be at least %d characters", *spec.MinLength),
			})
		} else if spec.MaxLength != nil && n > *spec.MaxLength {
			errs = append(errs, FieldError{
				Parameter: name,
				Value:     v,
				Message:   fmt.Sprintf("must be at most %d characters", *spec.MaxLength),
			})
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	for _, name := range names {
		spec := schema[name]
		v, ok := args[name]
		if !ok || spec.Validate == nil {
			continue
		}
		if ferr := runValidator(name, spec.Validate, v); ferr != nil {
			errs = append(errs, *ferr)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	// Coercion and type check. Values that cannot be coerced pass through
	// unchanged so the type check reports the mismatch. A JSON null never
	// satisfies a declared type, so it fails here instead of reaching a
	// handler as nil.
	for _, name := range names {
		spec := schema[name]
		v, ok := args[name]
		if !ok {
			continue
		}
		if v == nil {
			if spec.Type != "" && spec.Type != TypeAny {
				errs = append(errs, FieldError{
					Parameter: name,
					Message:   fmt.Sprintf("must be of type %s", spec.Type),
				})
			}
			continue
		}
		coerced := coerce(spec.Type, v)
		if !typeOK(spec.Type, coerced) {
			errs = append(errs, FieldError{
				Parameter: name,
				Value:     v,
				Message:   fmt.Sprintf("must be of type %s", spec.Type),
			})
			continue
		}
		args[name] = coerced
	}
	if len(errs) > 0 {
		return nil, errs
	}

	return args, nil
}

// runValidator invokes a custom validator, converting a panic into a
// FieldError instead of letting it escape.
func runValidator(name string, fn func(any) bool, v any) (ferr *FieldError) {
	defer func() {
		if r := recover(); r != nil {
			ferr = &FieldError{Parameter: name, Value: v, Message: "validation function error"}
		}
	}()
	if !fn(v) {
		return &FieldError{Parameter: name, Value: v, Message: "failed custom validation"}
	}
	return nil
}

// coerce best-effort converts v to the declared type. Unambiguous
// conversions only; anything else is returned unchanged.
func coerce(t Type, v any) any {
	switch t {
	case TypeInteger:
		switch x := v.(type) {
		case string:
			if n, err := strconv.ParseInt(x, 10, 64); err == nil {
				return n
			}
		case json.Number:
			if n, err := x.Int64(); err == nil {
				return n
			}
		case float64:
			if x == float64(int64(x)) {
				return int64(x)
			}
		case int:
			return int64(x)
		}
	case TypeNumber:
		switch x := v.(type) {
		case string:
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				return f
			}
		case json.Number:
			if f, err := x.Float64(); err == nil {
				return f
			}
		case int:
			return float64(x)
		case int64:
			return float64(x)
		}
	case TypeBoolean:
		if s, ok := v.(string); ok {
			switch strings.ToLower(s) {
			case "true", "1":
				return true
			case "false", "0":
				return false
			}
		}
	}
	return v
}

// typeOK reports whether v satisfies the declared type after coercion.
func typeOK(t Type, v any) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeInteger:
		switch v.(type) {
		case int, int64:
			return true
		}
		return false
	case TypeNumber:
		switch v.(type) {
		case int, int64, float64:
			return true
		}
		return false
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeObject:
		_, ok := v.(map[string]any)
		return ok
	case TypeArray:
		_, ok := v.([]any)
		return ok
	default:
		return true
	}
}

// asFloat extracts a float64 from any numeric representation.
func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// enumContains reports membership with numeric values compared by value
// rather than representation.
func enumContains(enum []any, v any) bool {
	vf, vNum := asFloat(v)
	for _, e := range enum {
		if ef, eNum := asFloat(e); eNum && vNum {
			if ef == vf {
				return true
			}
			continue
		}
		if reflect.DeepEqual(e, v) {
			return true
		}
	}
	return false
}

// enumList renders the allowed set verbatim for error messages.
func enumList(enum []any) string {
	parts := make([]string, len(enum))
	for i, e := range enum {
		parts[i] = fmt.Sprintf("%v", e)
	}
	return strings.Join(parts, ", ")
}
