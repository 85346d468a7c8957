package model

import (
	"encoding/json"
	"math"
)

// Value is a real number that may be undefined (insufficient history,
// zero range, missing data). The zero Value is undefined.
type Value struct {
	v  float64
	ok bool
}

// Some returns a defined Value. NaN and infinities are stored as undefined.
func Some(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{v: f, ok: true}
}

// None returns an undefined Value.
func None() Value { return Value{} }

// Get returns the number and whether it is defined.
func (x Value) Get() (float64, bool) { return x.v, x.ok }

// Valid reports whether x is defined.
func (x Value) Valid() bool { return x.ok }

// Or returns the number, or def when undefined.
func (x Value) Or(def float64) float64 {
	if !x.ok {
		return def
	}
	return x.v
}

// Sub returns x - y, undefined if either operand is.
func (x Value) Sub(y Value) Value {
	if !x.ok || !y.ok {
		return None()
	}
	return Some(x.v - y.v)
}

// MarshalJSON encodes an undefined Value as null.
func (x Value) MarshalJSON() ([]byte, error) {
	if !x.ok {
		return []byte("null"), nil
	}
	return json.Marshal(x.v)
}

// UnmarshalJSON decodes null as undefined.
func (x *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*x = None()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*x = Some(f)
	return nil
}
