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

// NumericParameter annotates a cnode with a number.
type NumericParameter struct {
	Key   string
	Value float64
}

// StringParameter annotates a cnode with a string.
type StringParameter struct {
	Key, Value string
}

// Cnode is a node of the call-path forest.
type Cnode struct {
	ID     CnodeID
	Callee RegionID
	Module string
	Line   int
	Parent CnodeID
	// Children are kept in definition order.
	Children      []CnodeID
	NumericParams []NumericParameter
	StringParams  []StringParameter
	Attrs         Attrs
}

// DefCnode defines a call path calling into callee from the given source
// position. parent is RootCnode for a root of the forest.
func (c *Cube) DefCnode(
	ctx context.Context, callee RegionID, module string, line int, parent CnodeID,
) (CnodeID, error) {
	if err := c.checkDefinable(); err != nil {
		return 0, err
	}
	if !c.validRegion(callee) {
		return 0, errors.Wrapf(ErrInvalidReference, "cnode callee region %d", callee)
	}
	if parent != RootCnode && !c.validCnode(parent) {
		return 0, errors.Wrapf(ErrInvalidReference, "cnode parent %d", parent)
	}
	return c.addCnode(ctx, callee, module, line, parent), nil
}

// DefCnodeSimple defines a call path without source information.
func (c *Cube) DefCnodeSimple(ctx context.Context, callee RegionID, parent CnodeID) (CnodeID, error) {
	return c.DefCnode(ctx, callee, "", NoLine, parent)
}

func (c *Cube) addCnode(
	ctx context.Context, callee RegionID, module string, line int, parent CnodeID,
) CnodeID {
	id := CnodeID(len(c.cnodes))
	c.cnodes = append(c.cnodes, &Cnode{
		ID:     id,
		Callee: callee,
		Module: module,
		Line:   line,
		Parent: parent,
	})
	if parent == RootCnode {
		c.rootCnodes = append(c.rootCnodes, id)
	} else {
		c.cnodes[parent].Children = append(c.cnodes[parent].Children, id)
		r := c.regions[c.cnodes[parent].Callee]
		r.Callers = append(r.Callers, id)
	}
	log.VEventf(ctx, 3, "defined cnode %d calling region %d under %d",
		redact.Safe(id), redact.Safe(callee), redact.Safe(parent))
	return id
}

// AddNumericParameter annotates a cnode with a numeric parameter.
func (c *Cube) AddNumericParameter(cn CnodeID, key string, value float64) error {
	if err := c.checkDefinable(); err != nil {
		return err
	}
	if !c.validCnode(cn) {
		return errors.Wrapf(ErrInvalidReference, "cnode %d", cn)
	}
	n := c.cnodes[cn]
	n.NumericParams = append(n.NumericParams, NumericParameter{Key: key, Value: value})
	return nil
}

// AddStringParameter annotates a cnode with a string parameter.
func (c *Cube) AddStringParameter(cn CnodeID, key, value string) error {
	if err := c.checkDefinable(); err != nil {
		return err
	}
	if !c.validCnode(cn) {
		return errors.Wrapf(ErrInvalidReference, "cnode %d", cn)
	}
	n := c.cnodes[cn]
	n.StringParams = append(n.StringParams, StringParameter{Key: key, Value: value})
	return nil
}

// DefCnodeAttr attaches an attribute to a cnode.
func (c *Cube) DefCnodeAttr(cn CnodeID, key, value string) error {
	if err := c.checkDefinable(); err != nil {
		return err
	}
	if !c.validCnode(cn) {
		return errors.Wrapf(ErrInvalidReference, "cnode %d", cn)
	}
	c.cnodes[cn].Attrs.Set(key, value)
	return nil
}

// Cnode returns the cnode with the given ID, or nil.
func (c *Cube) Cnode(id CnodeID) *Cnode {
	if !c.validCnode(id) {
		return nil
	}
	return c.cnodes[id]
}

// NumCnodes returns the number of defined cnodes.
func (c *Cube) NumCnodes() int { return len(c.cnodes) }

// RootCnodes returns the roots of the call-path forest in definition order.
func (c *Cube) RootCnodes() []CnodeID { return c.rootCnodes }

func (c *Cube) validCnode(id CnodeID) bool {
	return id >= 0 && int(id) < len(c.cnodes)
}
