// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cube

import (
	"context"

	"github.com/cockroachdb/cubew/pkg/cube/cubetype"
	"github.com/cockroachdb/cubew/pkg/cube/layout"
	"github.com/cockroachdb/cubew/pkg/util/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
)

// metricWriter is the write session of one metric.
type metricWriter struct {
	started  bool
	finished bool
	poisoned bool
	// next is the index of the next expected row in the enumeration.
	next int
	sink MetricSink
	buf  []byte
}

// MetricFinished returns whether every row of m was written. POSTDERIVED
// metrics are always finished.
func (c *Cube) MetricFinished(m MetricID) bool {
	if !c.validMetric(m) {
		return false
	}
	if c.state == stateLocked {
		c.enumerate(c.metrics[m])
	}
	return c.metrics[m].w.finished
}

// WriteRow writes the row of metric m for call path cn. Every value must
// have the metric's exact value type.
func (c *Cube) WriteRow(ctx context.Context, m MetricID, cn CnodeID, vals []cubetype.Value) error {
	return c.writeRow(ctx, m, cn, len(vals), func(t cubetype.Type, buf []byte) ([]byte, error) {
		return cubetype.AppendRow(buf, t, vals)
	})
}

// WriteRawRow writes a row that is already encoded.
func (c *Cube) WriteRawRow(ctx context.Context, m MetricID, cn CnodeID, row []byte) error {
	return c.writeRow(ctx, m, cn, -1, func(t cubetype.Type, buf []byte) ([]byte, error) {
		if want := c.width * t.Size(); len(row) != want {
			return buf, errors.Wrapf(ErrRowWidth, "raw row has %d bytes, expected %d", len(row), want)
		}
		return append(buf, row...), nil
	})
}

// WriteRowOfDoubles writes a row of doubles. The metric must store doubles.
func (c *Cube) WriteRowOfDoubles(ctx context.Context, m MetricID, cn CnodeID, vals []float64) error {
	return c.writeRow(ctx, m, cn, len(vals), func(t cubetype.Type, buf []byte) ([]byte, error) {
		for _, f := range vals {
			v, err := cubetype.FromFloat64(t, f)
			if err != nil {
				return buf, err
			}
			if buf, err = cubetype.AppendValue(buf, t, v); err != nil {
				return buf, err
			}
		}
		return buf, nil
	})
}

// WriteRowOfUint64 writes a row of unsigned integers. The metric must store
// integers wide enough for every value.
func (c *Cube) WriteRowOfUint64(ctx context.Context, m MetricID, cn CnodeID, vals []uint64) error {
	return c.writeRow(ctx, m, cn, len(vals), func(t cubetype.Type, buf []byte) ([]byte, error) {
		for _, u := range vals {
			v, err := cubetype.FromUint64(t, u)
			if err != nil {
				return buf, err
			}
			if buf, err = cubetype.AppendValue(buf, t, v); err != nil {
				return buf, err
			}
		}
		return buf, nil
	})
}

// WriteRowOfInt64 writes a row of signed integers. The metric must store
// integers wide enough for every value.
func (c *Cube) WriteRowOfInt64(ctx context.Context, m MetricID, cn CnodeID, vals []int64) error {
	return c.writeRow(ctx, m, cn, len(vals), func(t cubetype.Type, buf []byte) ([]byte, error) {
		for _, i := range vals {
			v, err := cubetype.FromInt64(t, i)
			if err != nil {
				return buf, err
			}
			if buf, err = cubetype.AppendValue(buf, t, v); err != nil {
				return buf, err
			}
		}
		return buf, nil
	})
}

// WriteRowOf writes a row of values of one concrete kind, such as
// []cubetype.TauAtomicValue or []cubetype.Int32Value.
func WriteRowOf[V cubetype.Value](
	ctx context.Context, c *Cube, m MetricID, cn CnodeID, vals []V,
) error {
	return c.writeRow(ctx, m, cn, len(vals), func(t cubetype.Type, buf []byte) ([]byte, error) {
		for i, v := range vals {
			var err error
			if buf, err = cubetype.AppendValue(buf, t, v); err != nil {
				return buf, errors.Wrapf(err, "value %d", i)
			}
		}
		return buf, nil
	})
}

// writeRow validates the sequencing of a row, encodes it with encode and
// hands it to the metric's sink. n is the number of values, or -1 if encode
// checks the width itself.
func (c *Cube) writeRow(
	ctx context.Context,
	m MetricID,
	cn CnodeID,
	n int,
	encode func(t cubetype.Type, buf []byte) ([]byte, error),
) error {
	if err := c.lock(ctx); err != nil {
		return err
	}
	if !c.validMetric(m) {
		return errors.Wrapf(ErrInvalidReference, "metric %d", m)
	}
	if !c.validCnode(cn) {
		return errors.Wrapf(ErrInvalidReference, "cnode %d", cn)
	}
	metric := c.metrics[m]
	if c.streaming != RootMetric && c.streaming != m {
		return errors.Wrapf(ErrInterleavedMetric, "metric %s is incomplete, got a row for %s",
			c.metrics[c.streaming].UniqueName, metric.UniqueName)
	}
	if metric.w.poisoned {
		return errors.Wrapf(ErrMetricPoisoned, "metric %s", metric.UniqueName)
	}
	if metric.w.finished {
		return errors.Wrapf(ErrPastEnd, "metric %s is finished", metric.UniqueName)
	}
	e := c.enumerate(metric)
	row, ok := e.rowOf[cn]
	if !ok && e.format == layout.IndexSparse {
		// Contributors may walk the complete forest; rows for cnodes outside
		// the known set carry nothing.
		log.VEventf(ctx, 3, "metric %s: ignoring row for unknown cnode %d", metric.UniqueName, redact.Safe(cn))
		return nil
	}
	if !ok || row != metric.w.next {
		return errors.Wrapf(ErrOutOfOrder, "metric %s: expected cnode %d, got %d",
			metric.UniqueName, redact.Safe(e.rows[metric.w.next]), redact.Safe(cn))
	}
	if n >= 0 && n != c.width {
		return errors.Wrapf(ErrRowWidth, "metric %s: %d values, expected %d",
			metric.UniqueName, redact.Safe(n), redact.Safe(c.width))
	}
	buf, err := encode(metric.ValueType, metric.w.buf[:0])
	metric.w.buf = buf
	if err != nil {
		return errors.Wrapf(err, "metric %s, cnode %d", metric.UniqueName, redact.Safe(cn))
	}
	return c.appendRow(ctx, metric, buf)
}

// appendRow persists one encoded row of metric at its cursor, opening the
// metric's sink on the first row.
func (c *Cube) appendRow(ctx context.Context, metric *Metric, row []byte) error {
	ctx = logtags.AddTag(ctx, "metric", metric.ID)
	if !metric.w.started {
		e := c.enumerate(metric)
		s, err := c.sink.BeginMetric(ctx, MetricLayout{
			Metric:    metric.ID,
			Type:      metric.ValueType,
			Rows:      len(e.rows),
			RowSize:   c.width * metric.ValueType.Size(),
			Format:    e.format,
			Positions: e.positions,
		})
		if err != nil {
			metric.w.poisoned = true
			return errors.Wrapf(err, "opening metric %s", metric.UniqueName)
		}
		metric.w.sink = s
		metric.w.started = true
		c.streaming = metric.ID
		log.VEventf(ctx, 1, "writing %d rows of metric %s", redact.Safe(len(e.rows)), metric.UniqueName)
	}
	if err := metric.w.sink.WriteRow(row); err != nil {
		c.poison(metric)
		return errors.Wrapf(err, "writing metric %s", metric.UniqueName)
	}
	metric.w.next++
	if metric.w.next == len(metric.enum.rows) {
		metric.w.finished = true
		c.streaming = RootMetric
		if err := metric.w.sink.Finish(ctx); err != nil {
			metric.w.poisoned = true
			return errors.Wrapf(err, "finishing metric %s", metric.UniqueName)
		}
		metric.w.sink = nil
		log.VEventf(ctx, 1, "finished metric %s", metric.UniqueName)
	}
	return nil
}

// poison abandons a metric whose data can no longer be trusted.
func (c *Cube) poison(metric *Metric) {
	metric.w.poisoned = true
	if metric.w.sink != nil {
		metric.w.sink.Abort()
		metric.w.sink = nil
	}
	if c.streaming == metric.ID {
		c.streaming = RootMetric
	}
}

// padMetric completes a started metric with neutral rows.
func (c *Cube) padMetric(ctx context.Context, metric *Metric) error {
	e := c.enumerate(metric)
	missing := len(e.rows) - metric.w.next
	log.Warningf(ctx, "metric %s is incomplete; padding %d of %d rows",
		metric.UniqueName, redact.Safe(missing), redact.Safe(len(e.rows)))
	zero := cubetype.Zero(metric.ValueType)
	row := metric.w.buf[:0]
	for i := 0; i < c.width; i++ {
		var err error
		if row, err = cubetype.AppendValue(row, metric.ValueType, zero); err != nil {
			return errors.NewAssertionErrorWithWrappedErrf(err, "encoding neutral value")
		}
	}
	for !metric.w.finished {
		if err := c.appendRow(ctx, metric, row); err != nil {
			return err
		}
	}
	return nil
}
