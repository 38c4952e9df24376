// Package patch distinguishes a field that was not supplied from one that
// was explicitly cleared in a partial update.
package patch

import (
	"bytes"
	"encoding/json"
)

type state uint8

const (
	unchanged state = iota
	set
	cleared
)

// Value is a tri-state optional: Unchanged (the zero value), Set(v) or Clear.
// Decoded from JSON, an absent key stays Unchanged, null becomes Clear and
// anything else becomes Set.
type Value[T any] struct {
	state state
	v     T
}

func Set[T any](v T) Value[T] {
	return Value[T]{state: set, v: v}
}

func Clear[T any]() Value[T] {
	return Value[T]{state: cleared}
}

func (p Value[T]) IsUnchanged() bool { return p.state == unchanged }
func (p Value[T]) IsSet() bool       { return p.state == set }
func (p Value[T]) IsClear() bool     { return p.state == cleared }

// Get returns the value and whether it was set.
func (p Value[T]) Get() (T, bool) {
	return p.v, p.state == set
}

// Apply writes the patch into dst: Set stores a pointer to the value, Clear
// stores nil and Unchanged leaves dst alone.
func (p Value[T]) Apply(dst **T) {
	switch p.state {
	case set:
		v := p.v
		*dst = &v
	case cleared:
		*dst = nil
	}
}

// Column returns the value to hand to a column update and whether the column
// should be written at all.
func (p Value[T]) Column() (any, bool) {
	switch p.state {
	case set:
		return p.v, true
	case cleared:
		return nil, true
	default:
		return nil, false
	}
}

func (p *Value[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = Clear[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Set(v)
	return nil
}

func (p Value[T]) MarshalJSON() ([]byte, error) {
	if p.state != set {
		return []byte("null"), nil
	}
	return json.Marshal(p.v)
}
