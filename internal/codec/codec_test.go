package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialize_ObjectsAreCanonical(t *testing.T) {
	got, err := Serialize(map[string]any{
		"stringProp":  "stringValue",
		"numberProp":  1,
		"booleanProp": true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"booleanProp":true,"numberProp":1,"stringProp":"stringValue"}`, got)
}

func TestSerialize_ScalarsPassThrough(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"string", "raw value", "raw value"},
		{"bool", false, "false"},
		{"int", 12, "12"},
		{"float", 0.25, "0.25"},
		{"number", json.Number("99"), "99"},
		{"nil", nil, "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Serialize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeserialize_EmptyIsNoRecord(t *testing.T) {
	v, err := Deserialize("")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDeserialize_KeepsIntegers(t *testing.T) {
	v, err := Deserialize(`{"big":9007199254740993,"list":[1,"two",null]}`)
	require.NoError(t, err)

	obj, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, json.Number("9007199254740993"), obj["big"])
	assert.Equal(t, []any{json.Number("1"), "two", nil}, obj["list"])
}

func TestDeserialize_Invalid(t *testing.T) {
	for _, input := range []string{"not json", `{"a":1} trailing`, `{"a":`} {
		t.Run(input, func(t *testing.T) {
			_, err := Deserialize(input)
			assert.Error(t, err)
		})
	}
}

func TestRoundTrip_Stable(t *testing.T) {
	in := map[string]any{
		"nested": map[string]any{"b": []any{1, 2.5, "x"}, "a": nil},
		"flag":   true,
	}

	first, err := Serialize(in)
	require.NoError(t, err)

	decoded, err := Deserialize(first)
	require.NoError(t, err)

	second, err := Serialize(decoded)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
