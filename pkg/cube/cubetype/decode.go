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

// DecodeValue decodes one value of type t from the front of b and returns
// the remaining bytes.
func DecodeValue(t Type, b []byte) (Value, []byte, error) {
	size := t.Size()
	if size == 0 {
		return nil, b, errors.Newf("cannot decode %s", t)
	}
	if len(b) < size {
		return nil, b, errors.Newf("short buffer decoding %s: %d < %d", t, len(b), size)
	}
	v, rest := b[:size], b[size:]
	le := binary.LittleEndian
	f := func(i int) float64 { return math.Float64frombits(le.Uint64(v[i*8:])) }
	switch t.Kind {
	case Double:
		return DoubleValue(f(0)), rest, nil
	case MinDouble:
		return MinDoubleValue(f(0)), rest, nil
	case MaxDouble:
		return MaxDoubleValue(f(0)), rest, nil
	case Uint8:
		return Uint8Value(v[0]), rest, nil
	case Int8:
		return Int8Value(int8(v[0])), rest, nil
	case Uint16:
		return Uint16Value(le.Uint16(v)), rest, nil
	case Int16:
		return Int16Value(int16(le.Uint16(v))), rest, nil
	case Uint32:
		return Uint32Value(le.Uint32(v)), rest, nil
	case Int32:
		return Int32Value(int32(le.Uint32(v))), rest, nil
	case Uint64:
		return Uint64Value(le.Uint64(v)), rest, nil
	case Int64:
		return Int64Value(int64(le.Uint64(v))), rest, nil
	case TauAtomic:
		tail := v[4:]
		g := func(i int) float64 { return math.Float64frombits(le.Uint64(tail[i*8:])) }
		return TauAtomicValue{N: le.Uint32(v), Min: g(0), Max: g(1), Sum: g(2), Sum2: g(3)}, rest, nil
	case Complex:
		return ComplexValue{Re: f(0), Im: f(1)}, rest, nil
	case Rate:
		return RateValue{Numerator: f(0), Denominator: f(1)}, rest, nil
	case ScaleFunc:
		var s ScaleFuncValue
		for i := range s {
			s[i] = f(i)
		}
		return s, rest, nil
	case Histogram:
		h := HistogramValue{Min: f(0), Max: f(1), Bins: make([]float64, t.N)}
		for i := range h.Bins {
			h.Bins[i] = f(i + 2)
		}
		return h, rest, nil
	case NDoubles:
		d := make(NDoublesValue, t.N)
		for i := range d {
			d[i] = f(i)
		}
		return d, rest, nil
	}
	return nil, b, errors.AssertionFailedf("unhandled kind %s", t.Kind)
}

// DecodeRow decodes width values of type t from b.
func DecodeRow(t Type, width int, b []byte) ([]Value, error) {
	vals := make([]Value, 0, width)
	for i := 0; i < width; i++ {
		v, rest, err := DecodeValue(t, b)
		if err != nil {
			return nil, errors.Wrapf(err, "value %d", i)
		}
		vals = append(vals, v)
		b = rest
	}
	if len(b) != 0 {
		return nil, errors.Newf("%d trailing bytes after row", len(b))
	}
	return vals, nil
}
