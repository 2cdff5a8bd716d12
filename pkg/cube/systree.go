// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cube

import (
	"context"
	"fmt"

	"github.com/cockroachdb/cubew/pkg/util/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// LocationGroupType classifies a location group.
type LocationGroupType uint8

// Location group types.
const (
	ProcessGroup LocationGroupType = iota
	MetricsGroup
)

func (t LocationGroupType) String() string {
	switch t {
	case ProcessGroup:
		return "process"
	case MetricsGroup:
		return "metrics"
	}
	return fmt.Sprintf("LocationGroupType(%d)", t)
}

// LocationType classifies a location.
type LocationType uint8

// Location types.
const (
	ThreadLocation LocationType = iota
	GPULocation
	MetricLocation
)

func (t LocationType) String() string {
	switch t {
	case ThreadLocation:
		return "thread"
	case GPULocation:
		return "gpu"
	case MetricLocation:
		return "metric"
	}
	return fmt.Sprintf("LocationType(%d)", t)
}

// SystemTreeNode is a machine, node or any other grouping of location groups.
type SystemTreeNode struct {
	ID             SystemTreeNodeID
	Name           string
	Description    string
	Class          string
	Parent         SystemTreeNodeID
	Children       []SystemTreeNodeID
	LocationGroups []LocationGroupID
	Attrs          Attrs
}

// LocationGroup is a process or a group of metric locations.
type LocationGroup struct {
	ID        LocationGroupID
	Name      string
	Rank      int
	Type      LocationGroupType
	Parent    SystemTreeNodeID
	Locations []LocationID
	Attrs     Attrs
}

// Location is a thread or other unit reporting one value per row.
type Location struct {
	ID     LocationID
	Name   string
	Rank   int
	Type   LocationType
	Parent LocationGroupID
	Attrs  Attrs
}

// DefSystemTreeNode defines a system tree node under parent, or as a root if
// parent is RootSystemTreeNode.
func (c *Cube) DefSystemTreeNode(
	ctx context.Context, name, description, class string, parent SystemTreeNodeID,
) (SystemTreeNodeID, error) {
	if err := c.checkDefinable(); err != nil {
		return 0, err
	}
	if parent != RootSystemTreeNode && !c.validSTN(parent) {
		return 0, errors.Wrapf(ErrInvalidReference, "system tree node parent %d", parent)
	}
	id := SystemTreeNodeID(len(c.stns))
	c.stns = append(c.stns, &SystemTreeNode{
		ID: id, Name: name, Description: description, Class: class, Parent: parent,
	})
	if parent == RootSystemTreeNode {
		c.rootSTNs = append(c.rootSTNs, id)
	} else {
		c.stns[parent].Children = append(c.stns[parent].Children, id)
	}
	log.VEventf(ctx, 3, "defined system tree node %d %s", redact.Safe(id), name)
	return id, nil
}

// DefLocationGroup defines a location group under a system tree node.
func (c *Cube) DefLocationGroup(
	ctx context.Context, name string, rank int, typ LocationGroupType, parent SystemTreeNodeID,
) (LocationGroupID, error) {
	if err := c.checkDefinable(); err != nil {
		return 0, err
	}
	if !c.validSTN(parent) {
		return 0, errors.Wrapf(ErrInvalidReference, "location group parent %d", parent)
	}
	id := LocationGroupID(len(c.lgs))
	c.lgs = append(c.lgs, &LocationGroup{ID: id, Name: name, Rank: rank, Type: typ, Parent: parent})
	c.stns[parent].LocationGroups = append(c.stns[parent].LocationGroups, id)
	log.VEventf(ctx, 3, "defined location group %d %s", redact.Safe(id), name)
	return id, nil
}

// DefLocation defines a location under a location group.
func (c *Cube) DefLocation(
	ctx context.Context, name string, rank int, typ LocationType, parent LocationGroupID,
) (LocationID, error) {
	if err := c.checkDefinable(); err != nil {
		return 0, err
	}
	if !c.validLG(parent) {
		return 0, errors.Wrapf(ErrInvalidReference, "location parent %d", parent)
	}
	id := LocationID(len(c.locs))
	c.locs = append(c.locs, &Location{ID: id, Name: name, Rank: rank, Type: typ, Parent: parent})
	c.lgs[parent].Locations = append(c.lgs[parent].Locations, id)
	log.VEventf(ctx, 3, "defined location %d %s", redact.Safe(id), name)
	return id, nil
}

// DefMachine defines a root system tree node of class "machine".
func (c *Cube) DefMachine(ctx context.Context, name, description string) (SystemTreeNodeID, error) {
	return c.DefSystemTreeNode(ctx, name, description, "machine", RootSystemTreeNode)
}

// DefNode defines a system tree node of class "node" inside a machine.
func (c *Cube) DefNode(
	ctx context.Context, name string, machine SystemTreeNodeID,
) (SystemTreeNodeID, error) {
	return c.DefSystemTreeNode(ctx, name, "", "node", machine)
}

// DefProcess defines a process location group on a node.
func (c *Cube) DefProcess(
	ctx context.Context, name string, rank int, node SystemTreeNodeID,
) (LocationGroupID, error) {
	return c.DefLocationGroup(ctx, name, rank, ProcessGroup, node)
}

// DefThread defines a thread location in a process.
func (c *Cube) DefThread(
	ctx context.Context, name string, rank int, process LocationGroupID,
) (LocationID, error) {
	return c.DefLocation(ctx, name, rank, ThreadLocation, process)
}

// DefSystemTreeNodeAttr attaches an attribute to a system tree node.
func (c *Cube) DefSystemTreeNodeAttr(id SystemTreeNodeID, key, value string) error {
	if err := c.checkDefinable(); err != nil {
		return err
	}
	if !c.validSTN(id) {
		return errors.Wrapf(ErrInvalidReference, "system tree node %d", id)
	}
	c.stns[id].Attrs.Set(key, value)
	return nil
}

// DefLocationGroupAttr attaches an attribute to a location group.
func (c *Cube) DefLocationGroupAttr(id LocationGroupID, key, value string) error {
	if err := c.checkDefinable(); err != nil {
		return err
	}
	if !c.validLG(id) {
		return errors.Wrapf(ErrInvalidReference, "location group %d", id)
	}
	c.lgs[id].Attrs.Set(key, value)
	return nil
}

// DefLocationAttr attaches an attribute to a location.
func (c *Cube) DefLocationAttr(id LocationID, key, value string) error {
	if err := c.checkDefinable(); err != nil {
		return err
	}
	if !c.validLocation(id) {
		return errors.Wrapf(ErrInvalidReference, "location %d", id)
	}
	c.locs[id].Attrs.Set(key, value)
	return nil
}

// SystemTreeNode returns the node with the given ID, or nil.
func (c *Cube) SystemTreeNode(id SystemTreeNodeID) *SystemTreeNode {
	if !c.validSTN(id) {
		return nil
	}
	return c.stns[id]
}

// LocationGroup returns the location group with the given ID, or nil.
func (c *Cube) LocationGroup(id LocationGroupID) *LocationGroup {
	if !c.validLG(id) {
		return nil
	}
	return c.lgs[id]
}

// Location returns the location with the given ID, or nil.
func (c *Cube) Location(id LocationID) *Location {
	if !c.validLocation(id) {
		return nil
	}
	return c.locs[id]
}

// NumSystemTreeNodes returns the number of eagerly defined system tree nodes.
func (c *Cube) NumSystemTreeNodes() int { return len(c.stns) }

// NumLocationGroups returns the number of eagerly defined location groups.
func (c *Cube) NumLocationGroups() int { return len(c.lgs) }

// NumLocations returns the number of eagerly defined locations.
func (c *Cube) NumLocations() int { return len(c.locs) }

func (c *Cube) validSTN(id SystemTreeNodeID) bool {
	return id >= 0 && int(id) < len(c.stns)
}

func (c *Cube) validLG(id LocationGroupID) bool {
	return id >= 0 && int(id) < len(c.lgs)
}

func (c *Cube) validLocation(id LocationID) bool {
	return id >= 0 && int(id) < len(c.locs)
}
