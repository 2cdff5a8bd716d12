// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cube

import (
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/cockroachdb/cubew/pkg/cube/cubetype"
	"github.com/cockroachdb/cubew/pkg/cube/layout"
	"github.com/cockroachdb/errors"
)

// MetricLayout describes the data and index entries of one metric.
type MetricLayout struct {
	Metric  MetricID
	Type    cubetype.Type
	Rows    int
	RowSize int
	Format  layout.IndexFormat
	// Positions lists the enumeration positions of the rows of a sparse
	// metric.
	Positions []uint32
}

// Sink persists what a Cube produces. The cube calls it in a strict order:
// at most one MetricSink is open at a time, and Close is called last.
type Sink interface {
	// BeginMetric opens the entries of a metric.
	BeginMetric(ctx context.Context, l MetricLayout) (MetricSink, error)
	// WriteMisc stores a named blob.
	WriteMisc(ctx context.Context, name string, data []byte) error
	// WriteAnchor stores the XML metadata produced by fn. Sinks that do not
	// keep an anchor still run fn, so that the metadata is validated
	// identically everywhere.
	WriteAnchor(ctx context.Context, fn func(io.Writer) error) error
	// Close completes the report.
	Close(ctx context.Context) error
	// Abort releases the sink's resources without completing the report.
	// It may be called after Close and is then a no-op.
	Abort(ctx context.Context)
}

// MetricSink receives the encoded rows of one metric.
type MetricSink interface {
	WriteRow(row []byte) error
	// Finish completes the metric's entries once every row was written.
	Finish(ctx context.Context) error
	// Abort discards an incomplete metric.
	Abort()
}

// archiveSink writes a cube archive.
type archiveSink struct {
	a          *layout.Archive
	compressed bool
	// anchor is false for the WRITER flavour, which leaves the metadata to
	// another process.
	anchor bool
}

var _ Sink = (*archiveSink)(nil)

func (s *archiveSink) BeginMetric(ctx context.Context, l MetricLayout) (MetricSink, error) {
	dw, err := layout.NewDataWriter(s.a, layout.DataName(int(l.Metric)), l.Rows, l.RowSize, s.compressed)
	if err != nil {
		return nil, err
	}
	return &archiveMetricSink{s: s, l: l, dw: dw}, nil
}

func (s *archiveSink) WriteMisc(ctx context.Context, name string, data []byte) error {
	return s.a.WriteFile(name, data)
}

func (s *archiveSink) WriteAnchor(ctx context.Context, fn func(io.Writer) error) error {
	if !s.anchor {
		return fn(io.Discard)
	}
	return s.a.WriteAnchor(s.compressed, fn)
}

func (s *archiveSink) Close(ctx context.Context) error {
	return s.a.Close()
}

func (s *archiveSink) Abort(ctx context.Context) {
	s.a.Abort()
}

// Size returns the number of bytes written so far.
func (s *archiveSink) Size() int64 { return s.a.Size() }

type archiveMetricSink struct {
	s  *archiveSink
	l  MetricLayout
	dw layout.DataWriter
}

func (m *archiveMetricSink) WriteRow(row []byte) error {
	return m.dw.WriteRow(row)
}

func (m *archiveMetricSink) Finish(ctx context.Context) error {
	if err := m.dw.Close(); err != nil {
		return err
	}
	return m.s.a.WriteFile(layout.IndexName(int(m.l.Metric)), layout.EncodeIndex(m.l.Format, m.l.Positions))
}

func (m *archiveMetricSink) Abort() { m.dw.Abort() }

// nopSink discards everything. It backs the SLAVE flavour.
type nopSink struct{}

var _ Sink = nopSink{}

func (nopSink) BeginMetric(context.Context, MetricLayout) (MetricSink, error) {
	return nopMetricSink{}, nil
}

func (nopSink) WriteMisc(context.Context, string, []byte) error { return nil }

func (nopSink) WriteAnchor(_ context.Context, fn func(io.Writer) error) error {
	return fn(io.Discard)
}

func (nopSink) Close(context.Context) error { return nil }

func (nopSink) Abort(context.Context) {}

type nopMetricSink struct{}

func (nopMetricSink) WriteRow([]byte) error        { return nil }
func (nopMetricSink) Finish(context.Context) error { return nil }
func (nopMetricSink) Abort()                       {}

var reservedName = regexp.MustCompile(`^[0-9]+\.(data|index)$`)

func checkMiscName(name string) error {
	if name == "" {
		return errors.Wrap(ErrReservedName, "empty name")
	}
	if name == layout.AnchorName || reservedName.MatchString(name) {
		return errors.Wrapf(ErrReservedName, "%q", name)
	}
	// Entries live at the top of the archive.
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return errors.Wrapf(ErrReservedName, "%q is not a plain file name", name)
	}
	return nil
}
