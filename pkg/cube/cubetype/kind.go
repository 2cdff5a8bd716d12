// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package cubetype defines the canonical value kinds that a metric can carry
// and their on-disk encodings.
package cubetype

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind enumerates the canonical value kinds.
type Kind uint8

// Kinds. Unknown is the zero value and is never valid for a metric.
const (
	Unknown Kind = iota
	Double
	Uint8
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Uint64
	Int64
	TauAtomic
	Complex
	Rate
	MinDouble
	MaxDouble
	ScaleFunc
	Histogram
	NDoubles
)

// ScaleFuncTerms is the number of doubles in a scale function value.
const ScaleFuncTerms = 27

var kindNames = [...]string{
	Unknown:   "UNKNOWN",
	Double:    "DOUBLE",
	Uint8:     "UINT8",
	Int8:      "INT8",
	Uint16:    "UINT16",
	Int16:     "INT16",
	Uint32:    "UINT32",
	Int32:     "INT32",
	Uint64:    "UINT64",
	Int64:     "INTEGER",
	TauAtomic: "TAU_ATOMIC",
	Complex:   "COMPLEX",
	Rate:      "RATE",
	MinDouble: "MINDOUBLE",
	MaxDouble: "MAXDOUBLE",
	ScaleFunc: "SCALE_FUNC",
	Histogram: "HISTOGRAM",
	NDoubles:  "NDOUBLES",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsInteger returns whether k is one of the fixed-width integer kinds.
func (k Kind) IsInteger() bool {
	return k >= Uint8 && k <= Int64
}

// IsDouble returns whether k stores a single double.
func (k Kind) IsDouble() bool {
	return k == Double || k == MinDouble || k == MaxDouble
}

// Type is a value kind plus its parameter, which is only meaningful for
// Histogram (number of bins) and NDoubles (number of doubles).
type Type struct {
	Kind Kind
	N    int
}

// DoubleType is the type of derived metrics.
var DoubleType = Type{Kind: Double}

// ParseType parses a dtype string such as "FLOAT", "UINT64" or
// "HISTOGRAM(8)". Matching is case-insensitive.
func ParseType(s string) (Type, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	if open := strings.IndexByte(u, '('); open >= 0 {
		if !strings.HasSuffix(u, ")") {
			return Type{}, errors.Newf("malformed dtype %q", s)
		}
		n, err := strconv.Atoi(strings.TrimSpace(u[open+1 : len(u)-1]))
		if err != nil || n <= 0 {
			return Type{}, errors.Newf("invalid parameter in dtype %q", s)
		}
		switch strings.TrimSpace(u[:open]) {
		case "HISTOGRAM":
			return Type{Kind: Histogram, N: n}, nil
		case "NDOUBLES":
			return Type{Kind: NDoubles, N: n}, nil
		}
		return Type{}, errors.Newf("dtype %q does not take a parameter", s)
	}
	switch u {
	case "FLOAT", "DOUBLE":
		return Type{Kind: Double}, nil
	case "INTEGER", "INT64":
		return Type{Kind: Int64}, nil
	case "UINT64":
		return Type{Kind: Uint64}, nil
	case "INT32":
		return Type{Kind: Int32}, nil
	case "UINT32":
		return Type{Kind: Uint32}, nil
	case "INT16":
		return Type{Kind: Int16}, nil
	case "UINT16":
		return Type{Kind: Uint16}, nil
	case "INT8":
		return Type{Kind: Int8}, nil
	case "UINT8":
		return Type{Kind: Uint8}, nil
	case "COMPLEX":
		return Type{Kind: Complex}, nil
	case "TAU_ATOMIC":
		return Type{Kind: TauAtomic}, nil
	case "MINDOUBLE":
		return Type{Kind: MinDouble}, nil
	case "MAXDOUBLE":
		return Type{Kind: MaxDouble}, nil
	case "RATE":
		return Type{Kind: Rate}, nil
	case "SCALE_FUNC":
		return Type{Kind: ScaleFunc}, nil
	}
	return Type{}, errors.Newf("unknown dtype %q", s)
}

// String renders the dtype as written to the anchor.
func (t Type) String() string {
	switch t.Kind {
	case Histogram, NDoubles:
		return fmt.Sprintf("%s(%d)", t.Kind, t.N)
	}
	return t.Kind.String()
}

// Size returns the encoded size in bytes of one value of type t.
func (t Type) Size() int {
	switch t.Kind {
	case Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32:
		return 4
	case Uint64, Int64, Double, MinDouble, MaxDouble:
		return 8
	case Complex, Rate:
		return 16
	case TauAtomic:
		return 4 + 4*8
	case ScaleFunc:
		return ScaleFuncTerms * 8
	case Histogram:
		return (t.N + 2) * 8
	case NDoubles:
		return t.N * 8
	}
	return 0
}
