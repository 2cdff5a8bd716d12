// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cube

import (
	"context"

	"github.com/cockroachdb/cubew/pkg/util/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// RegionDef describes a code region. Only Name is required.
type RegionDef struct {
	Name        string
	MangledName string
	Paradigm    string
	Role        string
	// Begin and End are the source line range, or NoLine.
	Begin, End  int
	URL         string
	Description string
	// Module is the source file.
	Module string
}

// Region is a defined code region.
type Region struct {
	RegionDef
	ID    RegionID
	Attrs Attrs
	// Callers lists the cnodes calling into this region, in definition order.
	Callers []CnodeID
}

// DefRegion defines a code region.
func (c *Cube) DefRegion(ctx context.Context, def RegionDef) (RegionID, error) {
	if err := c.checkDefinable(); err != nil {
		return 0, err
	}
	if def.Name == "" {
		return 0, errors.Wrap(ErrInvalidReference, "region name is required")
	}
	id := RegionID(len(c.regions))
	c.regions = append(c.regions, &Region{RegionDef: def, ID: id})
	log.VEventf(ctx, 3, "defined region %d %s", redact.Safe(id), def.Name)
	return id, nil
}

// DefRegionAttr attaches an attribute to a region.
func (c *Cube) DefRegionAttr(r RegionID, key, value string) error {
	if err := c.checkDefinable(); err != nil {
		return err
	}
	if !c.validRegion(r) {
		return errors.Wrapf(ErrInvalidReference, "region %d", r)
	}
	c.regions[r].Attrs.Set(key, value)
	return nil
}

// Region returns the region with the given ID, or nil.
func (c *Cube) Region(id RegionID) *Region {
	if !c.validRegion(id) {
		return nil
	}
	return c.regions[id]
}

// NumRegions returns the number of defined regions.
func (c *Cube) NumRegions() int { return len(c.regions) }

func (c *Cube) validRegion(id RegionID) bool {
	return id >= 0 && int(id) < len(c.regions)
}
