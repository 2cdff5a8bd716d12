// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cubetype

import (
	"math"

	"github.com/cockroachdb/errors"
)

// FromFloat64 converts a double to a value of type t. Only the double kinds
// accept it.
func FromFloat64(t Type, f float64) (Value, error) {
	switch t.Kind {
	case Double:
		return DoubleValue(f), nil
	case MinDouble:
		return MinDoubleValue(f), nil
	case MaxDouble:
		return MaxDoubleValue(f), nil
	}
	return nil, errors.Wrapf(ErrIncompatibleType, "cannot store a double in %s", t)
}

// FromUint64 converts an unsigned integer to a value of integer type t,
// checking that it fits.
func FromUint64(t Type, u uint64) (Value, error) {
	if !t.Kind.IsInteger() {
		return nil, errors.Wrapf(ErrIncompatibleType, "cannot store an unsigned integer in %s", t)
	}
	if u > math.MaxInt64 {
		if t.Kind != Uint64 {
			return nil, errors.Wrapf(ErrValueOutOfRange, "%d does not fit %s", u, t)
		}
		return Uint64Value(u), nil
	}
	return FromInt64(t, int64(u))
}

// FromInt64 converts a signed integer to a value of integer type t, checking
// that it fits.
func FromInt64(t Type, i int64) (Value, error) {
	var lo, hi int64
	switch t.Kind {
	case Uint8:
		lo, hi = 0, math.MaxUint8
	case Int8:
		lo, hi = math.MinInt8, math.MaxInt8
	case Uint16:
		lo, hi = 0, math.MaxUint16
	case Int16:
		lo, hi = math.MinInt16, math.MaxInt16
	case Uint32:
		lo, hi = 0, math.MaxUint32
	case Int32:
		lo, hi = math.MinInt32, math.MaxInt32
	case Uint64:
		lo, hi = 0, math.MaxInt64
	case Int64:
		lo, hi = math.MinInt64, math.MaxInt64
	default:
		return nil, errors.Wrapf(ErrIncompatibleType, "cannot store an integer in %s", t)
	}
	if i < lo || i > hi {
		return nil, errors.Wrapf(ErrValueOutOfRange, "%d does not fit %s", i, t)
	}
	switch t.Kind {
	case Uint8:
		return Uint8Value(i), nil
	case Int8:
		return Int8Value(i), nil
	case Uint16:
		return Uint16Value(i), nil
	case Int16:
		return Int16Value(i), nil
	case Uint32:
		return Uint32Value(i), nil
	case Int32:
		return Int32Value(i), nil
	case Uint64:
		return Uint64Value(i), nil
	default:
		return Int64Value(i), nil
	}
}
