// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cube

import (
	"context"

	"github.com/cockroachdb/cubew/pkg/cube/layout"
	"github.com/cockroachdb/errors"
)

// enumeration is the planned row order of one metric. It is computed once the
// cube is locked, when the cnode forest can no longer change.
type enumeration struct {
	// rows lists the cnodes receiving a row, in write order.
	rows []CnodeID
	// rowOf maps a cnode to its index in rows.
	rowOf map[CnodeID]int
	// positions holds, for a sparse metric, the index of every row's cnode
	// in the unfiltered enumeration.
	positions []uint32
	format    layout.IndexFormat
}

// CnodesForMetric returns the cnodes that must receive a row for metric m, in
// the order they must be written. It locks the cube. The result is cached;
// the caller must not modify it.
func (c *Cube) CnodesForMetric(ctx context.Context, m MetricID) ([]CnodeID, error) {
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	if !c.validMetric(m) {
		return nil, errors.Wrapf(ErrInvalidReference, "metric %d", m)
	}
	return c.enumerate(c.metrics[m]).rows, nil
}

// SetKnownCnodes restricts the rows of metric m to the cnodes whose bit is
// set. Bit i, counting from the most significant bit of the first byte,
// stands for cnode i; cnodes beyond the end of bits are unknown.
func (c *Cube) SetKnownCnodes(m MetricID, bits []byte) error {
	if c.state == stateFinalized {
		return ErrFinalized
	}
	if !c.validMetric(m) {
		return errors.Wrapf(ErrInvalidReference, "metric %d", m)
	}
	metric := c.metrics[m]
	if metric.w.started {
		return errors.Wrapf(ErrMetricStarted, "metric %s", metric.UniqueName)
	}
	metric.known = append([]byte(nil), bits...)
	metric.enum = nil
	metric.w.finished = metric.Type == PostDerived
	return nil
}

func (m *Metric) isKnown(cn CnodeID) bool {
	i := int(cn) / 8
	return i < len(m.known) && m.known[i]&(0x80>>(uint(cn)%8)) != 0
}

func (c *Cube) enumerate(m *Metric) *enumeration {
	if m.enum != nil {
		return m.enum
	}
	var full []CnodeID
	switch m.Type {
	case Exclusive, PreDerivedExclusive:
		full = c.deepOrder()
	case Inclusive, PreDerivedInclusive:
		full = c.wideOrder()
	case Simple:
		full = make([]CnodeID, len(c.cnodes))
		for i := range full {
			full[i] = CnodeID(i)
		}
	case PostDerived:
	}

	e := &enumeration{rows: full, format: layout.IndexDense}
	if m.known != nil && m.Type != PostDerived {
		e.format = layout.IndexSparse
		e.rows = make([]CnodeID, 0, len(full))
		for pos, cn := range full {
			if m.isKnown(cn) {
				e.rows = append(e.rows, cn)
				e.positions = append(e.positions, uint32(pos))
			}
		}
	}
	e.rowOf = make(map[CnodeID]int, len(e.rows))
	for i, cn := range e.rows {
		e.rowOf[cn] = i
	}
	m.enum = e
	if len(e.rows) == 0 && !m.w.started {
		m.w.finished = true
	}
	return e
}

// deepOrder lists the forest in depth-first pre-order.
func (c *Cube) deepOrder() []CnodeID {
	order := make([]CnodeID, 0, len(c.cnodes))
	var visit func(CnodeID)
	visit = func(id CnodeID) {
		order = append(order, id)
		for _, child := range c.cnodes[id].Children {
			visit(child)
		}
	}
	for _, r := range c.rootCnodes {
		visit(r)
	}
	return order
}

// wideOrder lists every root, then all of its children, then descends into
// each child in turn and lists that child's children, and so on.
func (c *Cube) wideOrder() []CnodeID {
	order := make([]CnodeID, 0, len(c.cnodes))
	var visit func(CnodeID)
	visit = func(id CnodeID) {
		n := c.cnodes[id]
		if n.Parent == RootCnode {
			order = append(order, id)
		}
		order = append(order, n.Children...)
		for _, child := range n.Children {
			visit(child)
		}
	}
	for _, r := range c.rootCnodes {
		visit(r)
	}
	return order
}
