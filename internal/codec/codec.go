// Package codec converts record payloads to and from the string values held
// by a key-value substrate.
//
// Structured values (maps, slices, structs) are written as canonical JSON.
// Scalars pass through as their plain text form, the same way a string-only
// store coerces them on write. Reading is plain JSON decoding with numbers
// kept as json.Number so integers survive the round trip unchanged.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Serialize converts a payload to its stored string form.
func Serialize(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case json.Number:
		return val.String(), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		data, err := marshalCanonical(val)
		if err != nil {
			return "", fmt.Errorf("serialize: %w", err)
		}
		return string(data), nil
	}

	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("serialize: %w", err)
	}
	return string(data), nil
}

// Deserialize parses a stored string back into a plain value.
// Empty input means "no record" and yields (nil, nil) rather than an error.
func Deserialize(data string) (any, error) {
	if data == "" {
		return nil, nil
	}
	v, err := decodePlain([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("deserialize: %w", err)
	}
	return v, nil
}

// decodePlain decodes exactly one JSON value into map[string]any, []any,
// string, bool, json.Number or nil.
func decodePlain(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}
