package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/flowgraph/types"
)

func f64(v float64) *float64 { return &v }

func tempSchema() types.ConfigSchema {
	return types.ConfigSchema{
		"model":       {Type: types.FieldString, Default: "gpt-4-turbo"},
		"temperature": {Type: types.FieldNumber, Default: 0.7, Min: f64(0), Max: f64(2)},
		"stream":      {Type: types.FieldBoolean, Default: false},
	}
}

func TestValidate_DefaultsSubstituted(t *testing.T) {
	t.Parallel()

	validated, warnings, err := Validate(tempSchema(), map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "gpt-4-turbo", validated["model"])
	assert.Equal(t, 0.7, validated["temperature"])
	assert.Equal(t, false, validated["stream"])
}

func TestValidate_ExplicitValuesKept(t *testing.T) {
	t.Parallel()

	validated, _, err := Validate(tempSchema(), map[string]any{
		"model":       "gpt-4o",
		"temperature": 1.5,
		"stream":      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", validated["model"])
	assert.Equal(t, 1.5, validated["temperature"])
	assert.Equal(t, true, validated["stream"])
}

func TestValidate_IntegerWidenedToNumber(t *testing.T) {
	t.Parallel()

	validated, _, err := Validate(tempSchema(), map[string]any{"temperature": 1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, validated["temperature"])
}

func TestValidate_IntegerDefaultWidened(t *testing.T) {
	t.Parallel()

	s := types.ConfigSchema{"max_tokens": {Type: types.FieldNumber, Default: 1000}}
	validated, _, err := Validate(s, nil)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, validated["max_tokens"])
}

func TestValidate_TypeMismatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config map[string]any
	}{
		{"string field gets number", map[string]any{"model": 42}},
		{"number field gets string", map[string]any{"temperature": "hot"}},
		{"boolean field gets string", map[string]any{"stream": "yes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := Validate(tempSchema(), tt.config)
			require.Error(t, err)
			assert.Equal(t, types.ErrTypeMismatch, types.GetErrorCode(err))
		})
	}
}

func TestValidate_EnumViolation(t *testing.T) {
	t.Parallel()

	s := types.ConfigSchema{
		"size": {Type: types.FieldString, Default: "1024x1024",
			Enum: []string{"1024x1024", "1792x1024", "1024x1792"}},
	}

	validated, _, err := Validate(s, map[string]any{"size": "1792x1024"})
	require.NoError(t, err)
	assert.Equal(t, "1792x1024", validated["size"])

	_, _, err = Validate(s, map[string]any{"size": "512x512"})
	require.Error(t, err)
	e, ok := err.(*types.Error)
	require.True(t, ok)
	assert.Equal(t, types.ErrInvalidEnumValue, e.Code)
	assert.Equal(t, "size", e.Field)
}

func TestValidate_OutOfRange(t *testing.T) {
	t.Parallel()

	_, _, err := Validate(tempSchema(), map[string]any{"temperature": 2.5})
	require.Error(t, err)
	assert.Equal(t, types.ErrOutOfRange, types.GetErrorCode(err))

	_, _, err = Validate(tempSchema(), map[string]any{"temperature": -0.1})
	require.Error(t, err)
	assert.Equal(t, types.ErrOutOfRange, types.GetErrorCode(err))

	// Boundary values are inside the range.
	_, _, err = Validate(tempSchema(), map[string]any{"temperature": 0.0})
	assert.NoError(t, err)
	_, _, err = Validate(tempSchema(), map[string]any{"temperature": 2.0})
	assert.NoError(t, err)
}

func TestValidate_UnknownFieldPassedThroughWithWarning(t *testing.T) {
	t.Parallel()

	validated, warnings, err := Validate(tempSchema(), map[string]any{
		"model":  "gpt-4o",
		"zzz":    true,
		"custom": "kept",
	})
	require.NoError(t, err)
	assert.Equal(t, "kept", validated["custom"])
	assert.Equal(t, true, validated["zzz"])
	require.Len(t, warnings, 2)
	// Warnings sorted by field name for determinism.
	assert.Equal(t, Warning{Field: "custom", Reason: WarnUnknownField}, warnings[0])
	assert.Equal(t, Warning{Field: "zzz", Reason: WarnUnknownField}, warnings[1])
}

func TestValidate_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	config := map[string]any{"model": "gpt-4o"}
	_, _, err := Validate(tempSchema(), config)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"model": "gpt-4o"}, config)
}

func TestValidate_Deterministic(t *testing.T) {
	t.Parallel()

	config := map[string]any{"a": 1, "b": 2, "c": 3}
	first, firstWarn, err := Validate(types.ConfigSchema{}, config)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, againWarn, err := Validate(types.ConfigSchema{}, config)
		require.NoError(t, err)
		assert.Equal(t, first, again)
		assert.Equal(t, firstWarn, againWarn)
	}
}
