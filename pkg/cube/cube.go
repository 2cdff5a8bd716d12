// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package cube writes CUBE performance reports. A report is built in two
// phases. First the caller defines the metric tree, the regions, the
// call-path forest and the system tree. Then, for one metric at a time, it
// writes one row of values per call path in the order returned by
// CnodesForMetric. The first write locks the definitions.
//
// Parallel contributors create one Cube each. Only the MASTER writes files;
// SLAVE cubes run the same definitions and writes against a no-op sink so
// that every contributor assigns the same IDs and validates the same write
// sequence.
package cube

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/cubew/pkg/cube/layout"
	"github.com/cockroachdb/cubew/pkg/util/humanizeutil"
	"github.com/cockroachdb/cubew/pkg/util/log"
	"github.com/cockroachdb/cubew/pkg/util/timeutil"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/cockroachdb/redact"
)

// Flavour selects what a Cube persists.
type Flavour uint8

// Flavours.
const (
	// Master writes the complete archive.
	Master Flavour = iota
	// Writer writes the data and index entries but no anchor.
	Writer
	// Slave validates everything and writes nothing.
	Slave
)

func (f Flavour) String() string {
	switch f {
	case Master:
		return "MASTER"
	case Writer:
		return "WRITER"
	case Slave:
		return "SLAVE"
	}
	return fmt.Sprintf("Flavour(%d)", f)
}

// SafeValue implements redact.SafeValue.
func (Flavour) SafeValue() {}

// Options configures Create.
type Options struct {
	// FS is the filesystem the archive is written to. Defaults to
	// vfs.Default.
	FS vfs.FS
	// Dir is the directory the archive is created in.
	Dir        string
	Flavour    Flavour
	Compressed bool
	// Sink replaces the flavour's sink when set.
	Sink Sink
	// Owner and Now are passed to the archive headers.
	Owner string
	Now   func() time.Time
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.Flavour > Slave {
		return errors.Newf("unknown flavour %d", o.Flavour)
	}
	return nil
}

type state uint8

const (
	stateOpen state = iota
	stateLocked
	stateFinalized
)

// Cube is a report under construction. It is not safe for concurrent use.
type Cube struct {
	name       string
	flavour    Flavour
	compressed bool
	sink       Sink
	state      state

	attrs   Attrs
	mirrors []string
	titles  struct {
		metrics, calltree, systemtree string
	}

	metrics     []*Metric
	rootMetrics []MetricID
	regions     []*Region
	cnodes      []*Cnode
	rootCnodes  []CnodeID
	stns        []*SystemTreeNode
	rootSTNs    []SystemTreeNodeID
	lgs         []*LocationGroup
	locs        []*Location
	carts       []*Cartesian

	treeSource SystemTreeSource
	treeInfo   SystemTreeInfo
	// extraLocations counts locations declared without being defined: those
	// of the iterative system tree source or of SetSystemTreeSize.
	extraLocations int
	width          int

	defWritten bool
	miscNames  map[string]struct{}
	// streaming is the metric whose rows are being written, or RootMetric.
	streaming MetricID
	stopwatch timeutil.StopWatch
}

// Create starts a report called name. MASTER and WRITER cubes create
// <Dir>/<name>.cubex immediately.
func Create(ctx context.Context, name string, opts Options) (*Cube, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.New("cube name is required")
	}
	c := &Cube{
		name:       name,
		flavour:    opts.Flavour,
		compressed: opts.Compressed,
		sink:       opts.Sink,
		streaming:  RootMetric,
	}
	ctx = c.tagged(ctx)
	c.stopwatch.Start()
	c.attrs.Set(attrFlatTree, "yes")
	if c.sink == nil {
		switch opts.Flavour {
		case Master, Writer:
			fs := opts.FS
			if fs == nil {
				fs = vfs.Default
			}
			path := fs.PathJoin(opts.Dir, name+layout.Extension)
			a, err := layout.CreateArchive(fs, path, layout.ArchiveOptions{Owner: opts.Owner, Now: opts.Now})
			if err != nil {
				return nil, err
			}
			c.sink = &archiveSink{a: a, compressed: opts.Compressed, anchor: opts.Flavour == Master}
			log.Infof(ctx, "writing %s (%s, compressed=%t)", path, opts.Flavour, redact.Safe(opts.Compressed))
		case Slave:
			c.sink = nopSink{}
		}
	}
	return c, nil
}

// Name returns the report name.
func (c *Cube) Name() string { return c.name }

// Flavour returns the flavour the cube was created with.
func (c *Cube) Flavour() Flavour { return c.flavour }

const (
	attrStatisticFile = "statisticfile"
	attrFlatTree      = "withflattree"
)

// DefAttr attaches an attribute to the report.
func (c *Cube) DefAttr(key, value string) error {
	if err := c.checkDefinable(); err != nil {
		return err
	}
	c.attrs.Set(key, value)
	return nil
}

// DefMirror adds a documentation mirror URL.
func (c *Cube) DefMirror(url string) error {
	if err := c.checkDefinable(); err != nil {
		return err
	}
	c.mirrors = append(c.mirrors, url)
	return nil
}

// SetMetricsTitle sets the title of the metric dimension.
func (c *Cube) SetMetricsTitle(title string) error {
	if err := c.checkDefinable(); err != nil {
		return err
	}
	c.titles.metrics = title
	return nil
}

// SetCalltreeTitle sets the title of the call tree dimension.
func (c *Cube) SetCalltreeTitle(title string) error {
	if err := c.checkDefinable(); err != nil {
		return err
	}
	c.titles.calltree = title
	return nil
}

// SetSystemtreeTitle sets the title of the system tree dimension.
func (c *Cube) SetSystemtreeTitle(title string) error {
	if err := c.checkDefinable(); err != nil {
		return err
	}
	c.titles.systemtree = title
	return nil
}

// SetStatisticName records the name of an accompanying statistics file.
func (c *Cube) SetStatisticName(name string) error {
	return c.DefAttr(attrStatisticFile, name)
}

// EnableFlatTree records whether viewers should offer the flat profile.
func (c *Cube) EnableFlatTree(enable bool) error {
	v := "no"
	if enable {
		v = "yes"
	}
	return c.DefAttr(attrFlatTree, v)
}

// SetSystemTreeSource replaces the eager system tree with entities produced
// one at a time by src while the anchor is written.
func (c *Cube) SetSystemTreeSource(src SystemTreeSource) error {
	if err := c.checkDefinable(); err != nil {
		return err
	}
	c.treeSource = src
	return nil
}

// SetSystemTreeSize declares n locations that are neither defined nor
// produced by a source, for contributors that only validate rows.
func (c *Cube) SetSystemTreeSize(n int) error {
	if err := c.checkDefinable(); err != nil {
		return err
	}
	if n < 0 {
		return errors.Newf("negative location count %d", n)
	}
	c.extraLocations = n
	return nil
}

// RowWidth returns the number of values per row. It is only meaningful once
// the cube is locked.
func (c *Cube) RowWidth() int { return c.width }

// Locked returns whether definitions are closed.
func (c *Cube) Locked() bool { return c.state != stateOpen }

func (c *Cube) checkDefinable() error {
	switch c.state {
	case stateLocked:
		return ErrLocked
	case stateFinalized:
		return ErrFinalized
	}
	return nil
}

// lock closes the definition phase.
func (c *Cube) lock(ctx context.Context) error {
	switch c.state {
	case stateLocked:
		return nil
	case stateFinalized:
		return ErrFinalized
	}
	if len(c.cnodes) == 0 && len(c.regions) > 0 {
		// A flat profile: every region is its own call path.
		log.Infof(ctx, "no call paths defined; creating %d flat call paths", redact.Safe(len(c.regions)))
		for _, r := range c.regions {
			c.addCnode(ctx, r.ID, "", NoLine, RootCnode)
		}
	}
	if c.treeSource != nil {
		info, err := c.treeSource.Init(ctx)
		if err != nil {
			return errors.Wrap(err, "initializing system tree source")
		}
		if err := info.Validate(); err != nil {
			return err
		}
		c.treeInfo = info
		c.extraLocations = info.NumLocations
	}
	c.width = len(c.locs) + c.extraLocations
	c.state = stateLocked
	log.VEventf(ctx, 1, "locked with %d metrics, %d cnodes, %d values per row",
		redact.Safe(len(c.metrics)), redact.Safe(len(c.cnodes)), redact.Safe(c.width))
	return nil
}

// WriteDef locks the cube and writes the metadata. Finish writes it if it
// was never written explicitly.
func (c *Cube) WriteDef(ctx context.Context) error {
	ctx = c.tagged(ctx)
	if err := c.lock(ctx); err != nil {
		return err
	}
	if c.defWritten {
		return nil
	}
	if c.streaming != RootMetric {
		return errors.Wrapf(ErrMetricInProgress, "metric %s", c.metrics[c.streaming].UniqueName)
	}
	err := c.sink.WriteAnchor(ctx, func(w io.Writer) error {
		return c.writeAnchor(ctx, w)
	})
	if err != nil {
		// A partial anchor entry cannot be retracted, and an iterative system
		// tree source cannot be replayed.
		c.Abort(ctx)
		return errors.Wrap(err, "writing anchor")
	}
	c.defWritten = true
	return nil
}

// WriteMiscData stores a named blob in the report.
func (c *Cube) WriteMiscData(ctx context.Context, name string, data []byte) error {
	ctx = c.tagged(ctx)
	if c.state == stateFinalized {
		return ErrFinalized
	}
	if err := checkMiscName(name); err != nil {
		return err
	}
	if _, ok := c.miscNames[name]; ok {
		return errors.Wrapf(ErrReservedName, "%q was already written", name)
	}
	if c.streaming != RootMetric {
		return errors.Wrapf(ErrMetricInProgress, "metric %s", c.metrics[c.streaming].UniqueName)
	}
	log.VEventf(ctx, 2, "writing misc data %s (%s)", name, humanizeutil.IBytes(int64(len(data))))
	if err := c.sink.WriteMisc(ctx, name, data); err != nil {
		return err
	}
	if c.miscNames == nil {
		c.miscNames = make(map[string]struct{})
	}
	c.miscNames[name] = struct{}{}
	return nil
}

// Finish completes the report. A metric left incomplete is padded with
// neutral rows. No method may be called afterwards, even when Finish fails:
// a failed report is aborted and its resources are released.
func (c *Cube) Finish(ctx context.Context) error {
	ctx = c.tagged(ctx)
	if c.state == stateFinalized {
		return ErrFinalized
	}
	if err := c.finish(ctx); err != nil {
		c.Abort(ctx)
		return err
	}
	c.stopwatch.Stop()
	if s, ok := c.sink.(interface{ Size() int64 }); ok {
		log.Infof(ctx, "finished report: %s in %s",
			humanizeutil.IBytes(s.Size()), humanizeutil.Duration(c.stopwatch.Elapsed()))
	}
	return nil
}

func (c *Cube) finish(ctx context.Context) error {
	if err := c.lock(ctx); err != nil {
		return err
	}
	if c.streaming != RootMetric {
		if err := c.padMetric(ctx, c.metrics[c.streaming]); err != nil {
			return err
		}
	}
	if !c.defWritten {
		if err := c.WriteDef(ctx); err != nil {
			return err
		}
	}
	c.state = stateFinalized
	return errors.Wrap(c.sink.Close(ctx), "closing report")
}

// Abort gives up on the report: the metric in progress is discarded and the
// sink releases its files. The cube is finalized afterwards. Abort is a
// no-op on a finalized cube, so it can be deferred next to Finish.
func (c *Cube) Abort(ctx context.Context) {
	if c.state == stateFinalized {
		return
	}
	if c.streaming != RootMetric {
		c.poison(c.metrics[c.streaming])
	}
	c.state = stateFinalized
	c.sink.Abort(ctx)
	log.Warningf(c.tagged(ctx), "report aborted")
}

func (c *Cube) tagged(ctx context.Context) context.Context {
	return logtags.AddTag(ctx, "cube", c.name)
}
