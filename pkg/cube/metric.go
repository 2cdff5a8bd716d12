// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cube

import (
	"context"
	"fmt"

	"github.com/cockroachdb/cubew/pkg/cube/cubetype"
	"github.com/cockroachdb/cubew/pkg/util/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// MetricType determines how a metric's values relate along the call tree
// and, through that, the order in which its rows are written.
type MetricType uint8

// Metric types.
const (
	Exclusive MetricType = iota
	Inclusive
	Simple
	PostDerived
	PreDerivedInclusive
	PreDerivedExclusive
)

var metricTypeNames = [...]string{
	Exclusive:           "EXCLUSIVE",
	Inclusive:           "INCLUSIVE",
	Simple:              "SIMPLE",
	PostDerived:         "POSTDERIVED",
	PreDerivedInclusive: "PREDERIVED_INCLUSIVE",
	PreDerivedExclusive: "PREDERIVED_EXCLUSIVE",
}

func (t MetricType) String() string {
	if int(t) < len(metricTypeNames) {
		return metricTypeNames[t]
	}
	return fmt.Sprintf("MetricType(%d)", t)
}

// SafeValue implements redact.SafeValue.
func (MetricType) SafeValue() {}

// ParseMetricType parses the anchor spelling of a metric type.
func ParseMetricType(s string) (MetricType, error) {
	for t, name := range metricTypeNames {
		if name == s {
			return MetricType(t), nil
		}
	}
	return 0, errors.Newf("unknown metric type %q", s)
}

// IsDerived returns whether values of the metric are computed from an
// expression.
func (t MetricType) IsDerived() bool {
	return t == PostDerived || t == PreDerivedInclusive || t == PreDerivedExclusive
}

// VizType controls whether viewers display a metric.
type VizType uint8

// Viz types.
const (
	VizNormal VizType = iota
	VizGhost
)

// MetricDef describes a metric to define. DisplayName, UniqueName and DType
// are required.
type MetricDef struct {
	DisplayName string
	UniqueName  string
	// DType is the value type, e.g. "DOUBLE", "UINT64" or "HISTOGRAM(8)".
	DType       string
	UOM         string
	Val         string
	URL         string
	Description string
	Type        MetricType
	VizType     VizType

	// Expression and InitExpression are CubePL sources, only recorded for
	// derived metrics.
	Expression     string
	InitExpression string
	// Aggregation overrides, only accepted for PREDERIVED metrics. AggrMinus
	// is only accepted for PREDERIVED_INCLUSIVE.
	AggrPlus  string
	AggrMinus string
	AggrAggr  string

	NotCacheable    bool
	NotLocationwise bool
}

// Metric is a defined metric. It is owned by its Cube.
type Metric struct {
	MetricDef
	ID        MetricID
	ValueType cubetype.Type
	Parent    MetricID
	Children  []MetricID
	Attrs     Attrs

	known []byte
	enum  *enumeration
	w     metricWriter
}

// DefMetric defines a metric under parent, or as a root if parent is
// RootMetric.
func (c *Cube) DefMetric(ctx context.Context, def MetricDef, parent MetricID) (MetricID, error) {
	if err := c.checkDefinable(); err != nil {
		return 0, err
	}
	if def.DisplayName == "" || def.UniqueName == "" {
		return 0, errors.Wrap(ErrInvalidMetric, "display and unique names are required")
	}
	if int(def.Type) >= len(metricTypeNames) {
		return 0, errors.Wrapf(ErrInvalidMetric, "metric %s: unknown type %d", def.UniqueName, def.Type)
	}
	if parent != RootMetric && !c.validMetric(parent) {
		return 0, errors.Wrapf(ErrInvalidReference, "metric %s: parent metric %d", def.UniqueName, parent)
	}
	typ, err := cubetype.ParseType(def.DType)
	if err != nil {
		return 0, errors.Mark(errors.Wrapf(err, "metric %s", def.UniqueName), ErrInvalidMetric)
	}
	if def.Type.IsDerived() {
		if typ != cubetype.DoubleType {
			log.Warningf(ctx, "derived metric %s has dtype %s; using DOUBLE instead",
				def.UniqueName, redact.Safe(typ))
			typ = cubetype.DoubleType
			def.DType = "DOUBLE"
		}
		if parent != RootMetric && c.metrics[parent].ValueType != cubetype.DoubleType {
			return 0, errors.Wrapf(ErrInvalidMetric,
				"derived metric %s cannot be a child of %s metric %s",
				def.UniqueName, c.metrics[parent].ValueType, c.metrics[parent].UniqueName)
		}
	} else if def.Expression != "" || def.InitExpression != "" {
		log.Warningf(ctx, "metric %s is not derived; ignoring its expressions", def.UniqueName)
		def.Expression, def.InitExpression = "", ""
	}
	if def.Type == Inclusive {
		switch typ.Kind {
		case cubetype.MinDouble, cubetype.MaxDouble, cubetype.TauAtomic:
			return 0, errors.Wrapf(ErrInvalidMetric,
				"inclusive metric %s cannot have dtype %s", def.UniqueName, typ)
		}
	}
	if def.AggrPlus != "" || def.AggrMinus != "" || def.AggrAggr != "" {
		if def.Type != PreDerivedInclusive && def.Type != PreDerivedExclusive {
			return 0, errors.Wrapf(ErrInvalidMetric,
				"aggregation expressions require a prederived metric, %s is %s", def.UniqueName, def.Type)
		}
		if def.AggrMinus != "" && def.Type != PreDerivedInclusive {
			return 0, errors.Wrapf(ErrInvalidMetric,
				"minus aggregation requires a PREDERIVED_INCLUSIVE metric, %s is %s", def.UniqueName, def.Type)
		}
	}

	id := MetricID(len(c.metrics))
	m := &Metric{MetricDef: def, ID: id, ValueType: typ, Parent: parent}
	c.metrics = append(c.metrics, m)
	if parent == RootMetric {
		c.rootMetrics = append(c.rootMetrics, id)
	} else {
		p := c.metrics[parent]
		p.Children = append(p.Children, id)
	}
	if def.Type == PostDerived {
		m.w.finished = true
	}
	log.VEventf(ctx, 2, "defined metric %d %s (%s, %s)", redact.Safe(id), def.UniqueName, def.Type, redact.Safe(typ))
	return id, nil
}

// DefMetricAttr attaches an attribute to a metric.
func (c *Cube) DefMetricAttr(m MetricID, key, value string) error {
	if err := c.checkDefinable(); err != nil {
		return err
	}
	if !c.validMetric(m) {
		return errors.Wrapf(ErrInvalidReference, "metric %d", m)
	}
	c.metrics[m].Attrs.Set(key, value)
	return nil
}

// Metric returns the metric with the given ID, or nil.
func (c *Cube) Metric(id MetricID) *Metric {
	if !c.validMetric(id) {
		return nil
	}
	return c.metrics[id]
}

// NumMetrics returns the number of defined metrics.
func (c *Cube) NumMetrics() int { return len(c.metrics) }

// RootMetrics returns the roots of the metric forest in definition order.
func (c *Cube) RootMetrics() []MetricID { return c.rootMetrics }

func (c *Cube) validMetric(id MetricID) bool {
	return id >= 0 && int(id) < len(c.metrics)
}
