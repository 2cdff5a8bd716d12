// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cubetype

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
)

// Value is a single severity value. The set of implementations is closed;
// each one corresponds to exactly one Kind.
type Value interface {
	Kind() Kind
	value()
}

// Scalar values.
type (
	DoubleValue    float64
	MinDoubleValue float64
	MaxDoubleValue float64
	Uint8Value     uint8
	Int8Value      int8
	Uint16Value    uint16
	Int16Value     int16
	Uint32Value    uint32
	Int32Value     int32
	Uint64Value    uint64
	Int64Value     int64
)

// TauAtomicValue summarizes a series of samples.
type TauAtomicValue struct {
	N                   uint32
	Min, Max, Sum, Sum2 float64
}

// ComplexValue is a complex number.
type ComplexValue struct {
	Re, Im float64
}

// RateValue is a numerator over a denominator.
type RateValue struct {
	Numerator, Denominator float64
}

// ScaleFuncValue holds the coefficients of a scaling function.
type ScaleFuncValue [ScaleFuncTerms]float64

// HistogramValue is a histogram with its range.
type HistogramValue struct {
	Min, Max float64
	Bins     []float64
}

// NDoublesValue is a fixed-length vector of doubles.
type NDoublesValue []float64

func (DoubleValue) Kind() Kind    { return Double }
func (MinDoubleValue) Kind() Kind { return MinDouble }
func (MaxDoubleValue) Kind() Kind { return MaxDouble }
func (Uint8Value) Kind() Kind     { return Uint8 }
func (Int8Value) Kind() Kind      { return Int8 }
func (Uint16Value) Kind() Kind    { return Uint16 }
func (Int16Value) Kind() Kind     { return Int16 }
func (Uint32Value) Kind() Kind    { return Uint32 }
func (Int32Value) Kind() Kind     { return Int32 }
func (Uint64Value) Kind() Kind    { return Uint64 }
func (Int64Value) Kind() Kind     { return Int64 }
func (TauAtomicValue) Kind() Kind { return TauAtomic }
func (ComplexValue) Kind() Kind   { return Complex }
func (RateValue) Kind() Kind      { return Rate }
func (ScaleFuncValue) Kind() Kind { return ScaleFunc }
func (HistogramValue) Kind() Kind { return Histogram }
func (NDoublesValue) Kind() Kind  { return NDoubles }

func (DoubleValue) value()    {}
func (MinDoubleValue) value() {}
func (MaxDoubleValue) value() {}
func (Uint8Value) value()     {}
func (Int8Value) value()      {}
func (Uint16Value) value()    {}
func (Int16Value) value()     {}
func (Uint32Value) value()    {}
func (Int32Value) value()     {}
func (Uint64Value) value()    {}
func (Int64Value) value()     {}
func (TauAtomicValue) value() {}
func (ComplexValue) value()   {}
func (RateValue) value()      {}
func (ScaleFuncValue) value() {}
func (HistogramValue) value() {}
func (NDoublesValue) value()  {}

var (
	// ErrIncompatibleType is returned when a value cannot be stored in a type.
	ErrIncompatibleType = errors.New("incompatible value type")
	// ErrValueOutOfRange is returned when an integer does not fit the
	// destination width.
	ErrValueOutOfRange = errors.New("value out of range")
)

// Zero returns the neutral value of t, used to pad rows that were never
// written. Extremum-carrying kinds start from the opposite extreme.
func Zero(t Type) Value {
	switch t.Kind {
	case Double:
		return DoubleValue(0)
	case MinDouble:
		return MinDoubleValue(math.MaxFloat64)
	case MaxDouble:
		return MaxDoubleValue(-math.MaxFloat64)
	case Uint8:
		return Uint8Value(0)
	case Int8:
		return Int8Value(0)
	case Uint16:
		return Uint16Value(0)
	case Int16:
		return Int16Value(0)
	case Uint32:
		return Uint32Value(0)
	case Int32:
		return Int32Value(0)
	case Uint64:
		return Uint64Value(0)
	case Int64:
		return Int64Value(0)
	case TauAtomic:
		return TauAtomicValue{Min: math.MaxFloat64, Max: -math.MaxFloat64}
	case Complex:
		return ComplexValue{}
	case Rate:
		return RateValue{}
	case ScaleFunc:
		return ScaleFuncValue{}
	case Histogram:
		return HistogramValue{Min: math.MaxFloat64, Max: -math.MaxFloat64, Bins: make([]float64, t.N)}
	case NDoubles:
		return make(NDoublesValue, t.N)
	}
	return nil
}

// AppendValue appends the little-endian encoding of v to buf. The kind of v
// must match t exactly and vector kinds must have t.N elements.
func AppendValue(buf []byte, t Type, v Value) ([]byte, error) {
	if v == nil || v.Kind() != t.Kind {
		return buf, errors.Wrapf(ErrIncompatibleType, "cannot store %s in %s", kindOf(v), t)
	}
	le := binary.LittleEndian
	switch v := v.(type) {
	case DoubleValue:
		return le.AppendUint64(buf, math.Float64bits(float64(v))), nil
	case MinDoubleValue:
		return le.AppendUint64(buf, math.Float64bits(float64(v))), nil
	case MaxDoubleValue:
		return le.AppendUint64(buf, math.Float64bits(float64(v))), nil
	case Uint8Value:
		return append(buf, byte(v)), nil
	case Int8Value:
		return append(buf, byte(v)), nil
	case Uint16Value:
		return le.AppendUint16(buf, uint16(v)), nil
	case Int16Value:
		return le.AppendUint16(buf, uint16(v)), nil
	case Uint32Value:
		return le.AppendUint32(buf, uint32(v)), nil
	case Int32Value:
		return le.AppendUint32(buf, uint32(v)), nil
	case Uint64Value:
		return le.AppendUint64(buf, uint64(v)), nil
	case Int64Value:
		return le.AppendUint64(buf, uint64(v)), nil
	case TauAtomicValue:
		buf = le.AppendUint32(buf, v.N)
		return appendFloats(buf, v.Min, v.Max, v.Sum, v.Sum2), nil
	case ComplexValue:
		return appendFloats(buf, v.Re, v.Im), nil
	case RateValue:
		return appendFloats(buf, v.Numerator, v.Denominator), nil
	case ScaleFuncValue:
		return appendFloats(buf, v[:]...), nil
	case HistogramValue:
		if len(v.Bins) != t.N {
			return buf, errors.Wrapf(ErrIncompatibleType,
				"histogram has %d bins, %s expects %d", len(v.Bins), t, t.N)
		}
		buf = appendFloats(buf, v.Min, v.Max)
		return appendFloats(buf, v.Bins...), nil
	case NDoublesValue:
		if len(v) != t.N {
			return buf, errors.Wrapf(ErrIncompatibleType,
				"vector has %d elements, %s expects %d", len(v), t, t.N)
		}
		return appendFloats(buf, v...), nil
	}
	return buf, errors.AssertionFailedf("unhandled value %T", v)
}

// AppendRow appends the encoding of every value in vals.
func AppendRow(buf []byte, t Type, vals []Value) ([]byte, error) {
	for i, v := range vals {
		var err error
		if buf, err = AppendValue(buf, t, v); err != nil {
			return buf, errors.Wrapf(err, "value %d", i)
		}
	}
	return buf, nil
}

func appendFloats(buf []byte, fs ...float64) []byte {
	for _, f := range fs {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
	}
	return buf
}

func kindOf(v Value) Kind {
	if v == nil {
		return Unknown
	}
	return v.Kind()
}
