package maybe

import (
	"bytes"
	"encoding/json"
)

// Maybe holds an optional value. On the wire a missing value is JSON null.
type Maybe[T any] struct {
	value T
	valid bool
}

func Some[T any](value T) Maybe[T] {
	return Maybe[T]{
		value: value,
		valid: true,
	}
}

func None[T any]() Maybe[T] {
	return Maybe[T]{}
}

// Positive is Some(value) for value > 0, None otherwise.
// Form inputs use zero and negative numbers to mean "not given".
func Positive(value float64) Maybe[float64] {
	if value > 0 {
		return Some(value)
	}
	return None[float64]()
}

func (m Maybe[T]) IsValid() bool {
	return m.valid
}

func (m Maybe[T]) Value() T {
	return m.value
}

func (m Maybe[T]) ValueOrDefault(defaultValue T) T {
	if m.valid {
		return m.value
	}
	return defaultValue
}

// Get returns the value together with its validity, comma-ok style.
func (m Maybe[T]) Get() (T, bool) {
	return m.value, m.valid
}

func Map[T, U any](m Maybe[T], f func(T) U) Maybe[U] {
	if !m.valid {
		return None[U]()
	}
	return Some(f(m.value))
}

func (m Maybe[T]) MarshalJSON() ([]byte, error) {
	if !m.valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.value)
}

func (m *Maybe[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = None[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Some(v)
	return nil
}
