// Package patch provides an explicit "unchanged or set" value for partial
// updates, so the updatable surface of an entity is a typed struct instead of
// an ad-hoc column list.
package patch

import (
	"encoding/json"
)

// Field is either unchanged (the zero value) or set to a value.
// For nullable columns use a pointer type: Set[*int](nil) clears the column.
type Field[T any] struct {
	set   bool
	value T
}

// Set returns a field set to v.
func Set[T any](v T) Field[T] {
	return Field[T]{set: true, value: v}
}

// Unchanged returns a field that leaves the column as is.
func Unchanged[T any]() Field[T] {
	return Field[T]{}
}

func (f Field[T]) IsSet() bool { return f.set }

// Get returns the value and whether it was set.
func (f Field[T]) Get() (T, bool) { return f.value, f.set }

// ValueOr returns the set value, or fallback when unchanged.
func (f Field[T]) ValueOr(fallback T) T {
	if f.set {
		return f.value
	}
	return fallback
}

// UnmarshalJSON marks the field as set whenever the key is present,
// including an explicit null.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.set = true
	f.value = v
	return nil
}

// MarshalJSON renders the value, or null when unchanged.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.set {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// Columns collects set fields into a column map suitable for squirrel's SetMap.
type Columns map[string]any

// Add records column = value when f is set.
func Add[T any](cols Columns, column string, f Field[T]) {
	if v, ok := f.Get(); ok {
		cols[column] = v
	}
}
