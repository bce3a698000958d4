// Package patch provides an explicit present/absent value for partial updates.
//
// A Field decoded from JSON is set only when its key is present with a
// non-null value, so "leave unchanged" and "change to X" are never confused
// with zero values.
package patch

import (
	"bytes"
	"encoding/json"
)

// Field holds an optional replacement value.
type Field[T any] struct {
	Set   bool
	Value T
}

// Some returns a Field carrying v.
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// None returns an absent Field.
func None[T any]() Field[T] {
	return Field[T]{}
}

// Get returns the value and whether it is present.
func (f Field[T]) Get() (T, bool) {
	return f.Value, f.Set
}

// Apply writes the value into dst when present.
func (f Field[T]) Apply(dst *T) {
	if f.Set {
		*dst = f.Value
	}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Field[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Some(v)
	return nil
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}
