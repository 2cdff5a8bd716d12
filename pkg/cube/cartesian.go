// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cube

import (
	"context"
	"math"

	"github.com/cockroachdb/cubew/pkg/util/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
	"github.com/google/btree"
)

// Cartesian is a cartesian topology placing locations on a grid.
type Cartesian struct {
	ID       CartesianID
	Name     string
	Dims     []int64
	Periodic []bool
	// DimNames is either empty or has one (possibly empty) name per
	// dimension.
	DimNames []string

	// slots holds the assigned coordinates ordered by linearized position.
	slots *btree.BTree
}

// coordSlot is one occupied grid position.
type coordSlot struct {
	pos    int64
	loc    LocationID
	coords []int64
}

var _ btree.Item = coordSlot{}

// Less implements btree.Item.
func (s coordSlot) Less(than btree.Item) bool {
	return s.pos < than.(coordSlot).pos
}

// DefCartesian defines a cartesian topology.
func (c *Cube) DefCartesian(
	ctx context.Context, name string, dims []int64, periodic []bool, dimNames []string,
) (CartesianID, error) {
	if err := c.checkDefinable(); err != nil {
		return 0, err
	}
	if len(dims) == 0 {
		return 0, errors.Wrapf(ErrInvalidReference, "topology %s has no dimensions", name)
	}
	if len(periodic) != len(dims) {
		return 0, errors.Wrapf(ErrInvalidReference,
			"topology %s: %d dimensions but %d periodicity flags", name, len(dims), len(periodic))
	}
	if len(dimNames) != 0 && len(dimNames) != len(dims) {
		return 0, errors.Wrapf(ErrInvalidReference,
			"topology %s: %d dimensions but %d dimension names", name, len(dims), len(dimNames))
	}
	size := int64(1)
	for i, d := range dims {
		if d <= 0 {
			return 0, errors.Wrapf(ErrInvalidReference, "topology %s: dimension %d has size %d", name, i, d)
		}
		// Positions are linearized into an int64.
		if size > math.MaxInt64/d {
			return 0, errors.Wrapf(ErrInvalidReference, "topology %s: %v has too many positions", name, dims)
		}
		size *= d
	}
	id := CartesianID(len(c.carts))
	c.carts = append(c.carts, &Cartesian{
		ID:       id,
		Name:     name,
		Dims:     append([]int64(nil), dims...),
		Periodic: append([]bool(nil), periodic...),
		DimNames: append([]string(nil), dimNames...),
		slots:    btree.New(8),
	})
	log.VEventf(ctx, 2, "defined topology %d %s with %d dimensions", redact.Safe(id), name, redact.Safe(len(dims)))
	return id, nil
}

// DefCoords places a location at the given coordinates of a topology. A
// later assignment to the same position replaces the earlier one.
func (c *Cube) DefCoords(ctx context.Context, cart CartesianID, loc LocationID, coords []int64) error {
	if err := c.checkDefinable(); err != nil {
		return err
	}
	if cart < 0 || int(cart) >= len(c.carts) {
		return errors.Wrapf(ErrInvalidReference, "topology %d", cart)
	}
	if !c.validLocation(loc) {
		return errors.Wrapf(ErrInvalidReference, "location %d", loc)
	}
	t := c.carts[cart]
	pos, err := t.position(coords)
	if err != nil {
		return err
	}
	if prev := t.slots.ReplaceOrInsert(coordSlot{
		pos: pos, loc: loc, coords: append([]int64(nil), coords...),
	}); prev != nil {
		log.Warningf(ctx, "topology %s: location %d replaces location %d at %v",
			t.Name, redact.Safe(loc), redact.Safe(prev.(coordSlot).loc), coords)
	}
	return nil
}

// position linearizes coords as c0 + c1*d0 + c2*d0*d1 + ...
func (t *Cartesian) position(coords []int64) (int64, error) {
	if len(coords) != len(t.Dims) {
		return 0, errors.Wrapf(ErrInvalidReference,
			"topology %s has %d dimensions, got %d coordinates", t.Name, len(t.Dims), len(coords))
	}
	var pos int64
	stride := int64(1)
	for i, x := range coords {
		if x < 0 || x >= t.Dims[i] {
			return 0, errors.Wrapf(ErrInvalidReference,
				"topology %s: coordinate %d in dimension %d is outside [0, %d)", t.Name, x, i, t.Dims[i])
		}
		pos += x * stride
		stride *= t.Dims[i]
	}
	return pos, nil
}

// Coords calls fn for every placed location in position order.
func (t *Cartesian) Coords(fn func(loc LocationID, coords []int64) bool) {
	t.slots.Ascend(func(i btree.Item) bool {
		s := i.(coordSlot)
		return fn(s.loc, s.coords)
	})
}

// NumCoords returns the number of placed locations.
func (t *Cartesian) NumCoords() int { return t.slots.Len() }

// Cartesian returns the topology with the given ID, or nil.
func (c *Cube) Cartesian(id CartesianID) *Cartesian {
	if id < 0 || int(id) >= len(c.carts) {
		return nil
	}
	return c.carts[id]
}
