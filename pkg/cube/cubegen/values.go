// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cubegen

import (
	"math"
	"math/rand"

	"github.com/cockroachdb/cubew/pkg/cube/cubetype"
)

// randomValue draws a plausible value of type t. Integer kinds stay within
// their width and non-negative, so values read like counts.
func randomValue(rng *rand.Rand, t cubetype.Type) cubetype.Value {
	switch t.Kind {
	case cubetype.Double:
		return cubetype.DoubleValue(rng.ExpFloat64())
	case cubetype.MinDouble:
		return cubetype.MinDoubleValue(rng.ExpFloat64())
	case cubetype.MaxDouble:
		return cubetype.MaxDoubleValue(rng.ExpFloat64())
	case cubetype.Uint8:
		return cubetype.Uint8Value(rng.Intn(math.MaxUint8 + 1))
	case cubetype.Int8:
		return cubetype.Int8Value(rng.Intn(math.MaxInt8 + 1))
	case cubetype.Uint16:
		return cubetype.Uint16Value(rng.Intn(math.MaxUint16 + 1))
	case cubetype.Int16:
		return cubetype.Int16Value(rng.Intn(math.MaxInt16 + 1))
	case cubetype.Uint32:
		return cubetype.Uint32Value(rng.Uint32())
	case cubetype.Int32:
		return cubetype.Int32Value(rng.Int31())
	case cubetype.Uint64:
		return cubetype.Uint64Value(rng.Int63n(1 << 20))
	case cubetype.Int64:
		return cubetype.Int64Value(rng.Int63n(1 << 20))
	case cubetype.TauAtomic:
		return randomTau(rng)
	case cubetype.Complex:
		return cubetype.ComplexValue{Re: rng.NormFloat64(), Im: rng.NormFloat64()}
	case cubetype.Rate:
		return cubetype.RateValue{Numerator: rng.ExpFloat64(), Denominator: 1 + rng.ExpFloat64()}
	case cubetype.ScaleFunc:
		var v cubetype.ScaleFuncValue
		for i := range v {
			v[i] = rng.NormFloat64()
		}
		return v
	case cubetype.Histogram:
		return randomHistogram(rng, t.N)
	case cubetype.NDoubles:
		v := make(cubetype.NDoublesValue, t.N)
		for i := range v {
			v[i] = rng.ExpFloat64()
		}
		return v
	}
	return cubetype.Zero(t)
}

func randomTau(rng *rand.Rand) cubetype.TauAtomicValue {
	v := cubetype.TauAtomicValue{N: uint32(1 + rng.Intn(16)), Min: math.MaxFloat64, Max: -math.MaxFloat64}
	for i := uint32(0); i < v.N; i++ {
		s := rng.ExpFloat64()
		v.Min = math.Min(v.Min, s)
		v.Max = math.Max(v.Max, s)
		v.Sum += s
		v.Sum2 += s * s
	}
	return v
}

func randomHistogram(rng *rand.Rand, bins int) cubetype.HistogramValue {
	v := cubetype.HistogramValue{Min: math.MaxFloat64, Max: -math.MaxFloat64, Bins: make([]float64, bins)}
	for i := 0; i < 4*bins; i++ {
		s := rng.Float64()
		v.Min = math.Min(v.Min, s)
		v.Max = math.Max(v.Max, s)
		v.Bins[int(s*float64(bins))]++
	}
	return v
}
