package schema

import (
	"fmt"
	"sort"

	"github.com/BaSui01/flowgraph/types"
)

// Warning flags a non-fatal validation finding. The only kind today is an
// unknown field passed through for forward compatibility.
type Warning struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// WarnUnknownField is the reason attached to fields present in the config
// but absent from the schema.
const WarnUnknownField = "UnknownField"

// Validate checks config against schema and returns the validated config:
// schema defaults substituted for absent fields, declared fields
// type-checked and constraint-checked, unknown fields passed through with
// a warning. The input maps are never mutated.
func Validate(schema types.ConfigSchema, config map[string]any) (map[string]any, []Warning, error) {
	validated := make(map[string]any, len(schema)+len(config))

	// Deterministic field order so the first constraint violation reported
	// is stable across runs.
	fields := make([]string, 0, len(schema))
	for name := range schema {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	for _, name := range fields {
		decl := schema[name]
		raw, present := config[name]
		if !present {
			if decl.Default != nil {
				validated[name] = normalize(decl.Type, decl.Default)
			}
			continue
		}

		value, ok := coerce(decl.Type, raw)
		if !ok {
			return nil, nil, types.NewError(types.ErrTypeMismatch,
				fmt.Sprintf("field %q: expected %s, got %T", name, decl.Type, raw)).
				WithField(name)
		}

		if len(decl.Enum) > 0 {
			if !enumContains(decl.Enum, value) {
				return nil, nil, types.NewError(types.ErrInvalidEnumValue,
					fmt.Sprintf("field %q: value %v not in %v", name, value, decl.Enum)).
					WithField(name)
			}
		}

		if decl.Type == types.FieldNumber {
			n := value.(float64)
			if decl.Min != nil && n < *decl.Min {
				return nil, nil, types.NewError(types.ErrOutOfRange,
					fmt.Sprintf("field %q: %v below minimum %v", name, n, *decl.Min)).
					WithField(name)
			}
			if decl.Max != nil && n > *decl.Max {
				return nil, nil, types.NewError(types.ErrOutOfRange,
					fmt.Sprintf("field %q: %v above maximum %v", name, n, *decl.Max)).
					WithField(name)
			}
		}

		validated[name] = value
	}

	// Unknown fields pass through unchanged, flagged but never fatal.
	var warnings []Warning
	extras := make([]string, 0)
	for name := range config {
		if _, declared := schema[name]; !declared {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		validated[name] = config[name]
		warnings = append(warnings, Warning{Field: name, Reason: WarnUnknownField})
	}

	return validated, warnings, nil
}

// coerce converts raw to the canonical Go representation for the declared
// kind: string, float64, or bool. JSON decoding already yields these for
// most inputs; integer values are widened to float64.
func coerce(kind types.FieldKind, raw any) (any, bool) {
	switch kind {
	case types.FieldString:
		s, ok := raw.(string)
		return s, ok
	case types.FieldNumber:
		switch n := raw.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int32:
			return float64(n), true
		case int64:
			return float64(n), true
		}
		return nil, false
	case types.FieldBoolean:
		b, ok := raw.(bool)
		return b, ok
	}
	return nil, false
}

// normalize applies the same canonicalization to schema defaults, which
// are authored in Go and may use int literals for numeric fields.
func normalize(kind types.FieldKind, value any) any {
	if v, ok := coerce(kind, value); ok {
		return v
	}
	return value
}

func enumContains(enum []string, value any) bool {
	s, ok := value.(string)
	if !ok {
		s = fmt.Sprintf("%v", value)
	}
	for _, e := range enum {
		if e == s {
			return true
		}
	}
	return false
}
