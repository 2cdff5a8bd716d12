// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cube

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/cockroachdb/cubew/pkg/cube/cubetype"
	"github.com/cockroachdb/cubew/pkg/cube/layout"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/require"
)

func anchorOf(t *testing.T, fs vfs.FS, name string) string {
	xml, err := layout.DecodeAnchor(readEntries(t, fs, name)[layout.AnchorName])
	require.NoError(t, err)
	return string(xml)
}

func TestSparseMetric(t *testing.T) {
	ctx := context.Background()
	fs := vfs.NewMem()
	c := newTestCube(t, fs, "sparse", Master, false)
	s := defineSeed(t, c)
	a, err := c.DefCnode(ctx, s.region, "main.c", 4, s.cnode)
	require.NoError(t, err)
	b, err := c.DefCnode(ctx, s.region, "main.c", 5, s.cnode)
	require.NoError(t, err)

	require.NoError(t, c.SetKnownCnodes(s.metric, []byte{0xa0}))
	rows, err := c.CnodesForMetric(ctx, s.metric)
	require.NoError(t, err)
	require.Equal(t, []CnodeID{s.cnode, b}, rows)

	for i, cn := range []CnodeID{s.cnode, a, b} {
		require.NoError(t, c.WriteRowOfDoubles(ctx, s.metric, cn, []float64{float64(i), 0}))
	}
	require.True(t, c.MetricFinished(s.metric))
	require.True(t, errors.Is(c.SetKnownCnodes(s.metric, []byte{0xff}), ErrMetricStarted))
	require.NoError(t, c.Finish(ctx))

	entries := readEntries(t, fs, "sparse")
	format, positions, err := layout.DecodeIndex(entries[layout.IndexName(int(s.metric))])
	require.NoError(t, err)
	require.Equal(t, layout.IndexSparse, format)
	require.Equal(t, []uint32{0, 2}, positions)

	raw, err := layout.DecodeData(entries[layout.DataName(int(s.metric))], 16)
	require.NoError(t, err)
	require.Len(t, raw, 2)
	vals, err := cubetype.DecodeRow(cubetype.DoubleType, 2, raw[1])
	require.NoError(t, err)
	require.Equal(t, cubetype.DoubleValue(2), vals[0])
}

// scriptedTree is a SystemTreeSource replaying a fixed sequence of states.
type scriptedTree struct {
	info     SystemTreeInfo
	script   []SystemTreeState
	visited  []SystemTreeState
	finished bool
}

func (s *scriptedTree) Init(context.Context) (SystemTreeInfo, error) {
	s.visited = []SystemTreeState{StateInit}
	return s.info, nil
}

func (s *scriptedTree) Step(_ context.Context, step *SystemTreeStep) (SystemTreeState, error) {
	next := StateStop
	if i := len(s.visited) - 1; i < len(s.script) {
		next = s.script[i]
	}
	n := len(s.visited)
	switch next {
	case StateSTN:
		step.Node.Name = fmt.Sprintf("node %d", n)
		step.Node.Class = "machine"
	case StateLG:
		step.Group.Name = fmt.Sprintf("rank %d", n)
		step.Group.Type = ProcessGroup
	case StateLoc:
		step.Location.Name = fmt.Sprintf("thread %d", n)
		step.Location.Rank = n
		step.Location.Type = ThreadLocation
	}
	s.visited = append(s.visited, next)
	return next, nil
}

func (s *scriptedTree) Finish(context.Context) { s.finished = true }

func TestIterativeSystemTree(t *testing.T) {
	ctx := context.Background()
	fs := vfs.NewMem()
	c := newTestCube(t, fs, "iter", Master, false)
	m, err := c.DefMetric(ctx, MetricDef{DisplayName: "t", UniqueName: "t", DType: "DOUBLE"}, RootMetric)
	require.NoError(t, err)
	r, err := c.DefRegion(ctx, RegionDef{Name: "main"})
	require.NoError(t, err)
	cn, err := c.DefCnodeSimple(ctx, r, RootCnode)
	require.NoError(t, err)

	src := &scriptedTree{
		info: SystemTreeInfo{NumSystemTreeNodes: 1, NumLocationGroups: 1, NumLocations: 3},
		script: []SystemTreeState{
			StateSTN, StateLG, StateLoc, StateLoc, StateLoc, StateEnd, StateStop,
		},
	}
	require.NoError(t, c.SetSystemTreeSource(src))
	require.NoError(t, c.WriteRowOfDoubles(ctx, m, cn, []float64{1, 2, 3}))
	require.Equal(t, 3, c.RowWidth())
	require.NoError(t, c.Finish(ctx))

	require.Equal(t, []SystemTreeState{
		StateInit, StateSTN, StateLG, StateLoc, StateLoc, StateLoc, StateEnd, StateStop,
	}, src.visited)
	require.True(t, src.finished)

	xml := anchorOf(t, fs, "iter")
	require.Contains(t, xml, "<systemtreenode Id=\"0\">\n<name>node 1</name>\n<class>machine</class>\n")
	require.Contains(t, xml, "<location Id=\"2\">\n<name>thread 5</name>\n<rank>5</rank>\n<type>thread</type>\n</location>\n"+
		"</locationgroup>\n</systemtreenode>\n<topologies>\n")
}

func TestIterativeSystemTreeViolations(t *testing.T) {
	ctx := context.Background()
	info := SystemTreeInfo{NumSystemTreeNodes: 1, NumLocationGroups: 1, NumLocations: 3}
	for _, tc := range []struct {
		name   string
		script []SystemTreeState
	}{
		{"too many locations", []SystemTreeState{StateSTN, StateLG, StateLoc, StateLoc, StateLoc, StateLoc}},
		{"too few locations", []SystemTreeState{StateSTN, StateLG, StateLoc, StateEnd}},
		{"location under node", []SystemTreeState{StateSTN, StateLoc}},
		{"group first", []SystemTreeState{StateLG}},
		{"repeated node", []SystemTreeState{StateSTN, StateSTN}},
		{"up with nothing open", []SystemTreeState{StateUp}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestCube(t, nil, "bad", Slave, false)
			src := &scriptedTree{info: info, script: tc.script}
			require.NoError(t, c.SetSystemTreeSource(src))
			err := c.Finish(ctx)
			require.True(t, errors.Is(err, ErrSystemTreeProtocol), "%v", err)
			require.True(t, src.finished)
		})
	}

	c := newTestCube(t, nil, "bad", Slave, false)
	require.NoError(t, c.SetSystemTreeSource(&scriptedTree{
		info: SystemTreeInfo{NumLocations: 2},
	}))
	require.True(t, errors.Is(c.WriteDef(ctx), ErrSystemTreeProtocol))
}

func TestPaddingWithNeutralValues(t *testing.T) {
	ctx := context.Background()
	fs := vfs.NewMem()
	c := newTestCube(t, fs, "pad", Master, true)
	s := defineSeed(t, c)
	for i := 0; i < 2; i++ {
		_, err := c.DefCnodeSimple(ctx, s.region, s.cnode)
		require.NoError(t, err)
	}
	m, err := c.DefMetric(ctx, MetricDef{
		DisplayName: "min", UniqueName: "min", DType: "MINDOUBLE", Type: Exclusive,
	}, RootMetric)
	require.NoError(t, err)

	rows, err := c.CnodesForMetric(ctx, m)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.NoError(t, c.WriteRowOfDoubles(ctx, m, rows[0], []float64{1, 2}))
	require.True(t, errors.Is(c.WriteDef(ctx), ErrMetricInProgress))
	require.NoError(t, c.Finish(ctx))

	entries := readEntries(t, fs, "pad")
	raw, err := layout.DecodeData(entries[layout.DataName(int(m))], 16)
	require.NoError(t, err)
	require.Len(t, raw, 3)
	for _, row := range raw[1:] {
		vals, err := cubetype.DecodeRow(cubetype.Type{Kind: cubetype.MinDouble}, 2, row)
		require.NoError(t, err)
		for _, v := range vals {
			require.Equal(t, cubetype.MinDoubleValue(math.MaxFloat64), v)
		}
	}
	// The untouched seed metric has no entries.
	_, ok := entries[layout.DataName(int(s.metric))]
	require.False(t, ok)
}

func TestMiscData(t *testing.T) {
	ctx := context.Background()
	fs := vfs.NewMem()
	c := newTestCube(t, fs, "misc", Master, false)
	s := defineSeed(t, c)
	require.NoError(t, c.WriteMiscData(ctx, "notes.txt", []byte("hello")))
	for _, name := range []string{
		"", layout.AnchorName, "0.data", "12.index",
		"../escape", "dir/notes.txt", `dir\notes.txt`, "..", ".",
		// Already written.
		"notes.txt",
	} {
		err := c.WriteMiscData(ctx, name, nil)
		require.True(t, errors.Is(err, ErrReservedName), "%q: %v", name, err)
	}

	_, err := c.DefCnodeSimple(ctx, s.region, s.cnode)
	require.NoError(t, err)
	require.NoError(t, c.WriteRowOfDoubles(ctx, s.metric, s.cnode, []float64{1, 2}))
	err = c.WriteMiscData(ctx, "late.txt", nil)
	require.True(t, errors.Is(err, ErrMetricInProgress), "%v", err)
	require.NoError(t, c.Finish(ctx))
	require.True(t, errors.Is(c.WriteMiscData(ctx, "after.txt", nil), ErrFinalized))

	entries := readEntries(t, fs, "misc")
	require.Equal(t, "hello", string(entries["notes.txt"]))
}

func TestCartesian(t *testing.T) {
	ctx := context.Background()
	fs := vfs.NewMem()
	c := newTestCube(t, fs, "cart", Master, false)
	s := defineSeed(t, c)

	_, err := c.DefCartesian(ctx, "grid", []int64{2, 2}, []bool{true}, nil)
	require.True(t, errors.Is(err, ErrInvalidReference))
	cart, err := c.DefCartesian(ctx, "grid", []int64{2, 2}, []bool{true, false}, []string{"x", "y"})
	require.NoError(t, err)

	require.NoError(t, c.DefCoords(ctx, cart, s.locs[0], []int64{0, 0}))
	require.NoError(t, c.DefCoords(ctx, cart, s.locs[0], []int64{1, 0}))
	// The second location replaces the first at position (0, 0).
	require.NoError(t, c.DefCoords(ctx, cart, s.locs[1], []int64{0, 0}))
	require.True(t, errors.Is(c.DefCoords(ctx, cart, s.locs[1], []int64{2, 0}), ErrInvalidReference))
	require.True(t, errors.Is(c.DefCoords(ctx, cart, s.locs[1], []int64{0}), ErrInvalidReference))
	require.True(t, errors.Is(c.DefCoords(ctx, cart, 9, []int64{0, 1}), ErrInvalidReference))
	require.Equal(t, 2, c.Cartesian(cart).NumCoords())

	require.NoError(t, c.Finish(ctx))
	require.Contains(t, anchorOf(t, fs, "cart"), `<cart name="grid" ndims="2">
<dim name="x" size="2" periodic="true"/>
<dim name="y" size="2" periodic="false"/>
<coord locId="1">0 0</coord>
<coord locId="0">1 0</coord>
</cart>
</topologies>
`)
}

// TestCartesianPositionsFit checks that distinct coordinates never share a
// linearized position.
func TestCartesianPositionsFit(t *testing.T) {
	ctx := context.Background()
	c := newTestCube(t, nil, "cart", Slave, false)
	s := defineSeed(t, c)
	flat := []bool{false, false, false}

	_, err := c.DefCartesian(ctx, "huge", []int64{1 << 32, 1 << 32, 2}, flat, nil)
	require.True(t, errors.Is(err, ErrInvalidReference), "%v", err)
	_, err = c.DefCartesian(ctx, "huge", []int64{1 << 31, 1 << 31, 2}, flat, nil)
	require.True(t, errors.Is(err, ErrInvalidReference), "%v", err)

	wide, err := c.DefCartesian(ctx, "wide", []int64{1 << 30, 1 << 31, 2}, flat, nil)
	require.NoError(t, err)
	require.NoError(t, c.DefCoords(ctx, wide, s.locs[0], []int64{0, 0, 0}))
	require.NoError(t, c.DefCoords(ctx, wide, s.locs[1], []int64{0, 0, 1}))
	require.Equal(t, 2, c.Cartesian(wide).NumCoords())
}

func TestDefMetricValidation(t *testing.T) {
	ctx := context.Background()
	c := newTestCube(t, nil, "defs", Slave, false)
	counts, err := c.DefMetric(ctx, MetricDef{DisplayName: "n", UniqueName: "n", DType: "UINT64"}, RootMetric)
	require.NoError(t, err)

	for _, tc := range []struct {
		name   string
		def    MetricDef
		parent MetricID
	}{
		{"missing names", MetricDef{DType: "DOUBLE"}, RootMetric},
		{"unknown dtype", MetricDef{DisplayName: "x", UniqueName: "x", DType: "QUAD"}, RootMetric},
		{"unknown parent", MetricDef{DisplayName: "x", UniqueName: "x", DType: "DOUBLE"}, 42},
		{"derived under integer", MetricDef{
			DisplayName: "x", UniqueName: "x", DType: "DOUBLE", Type: PostDerived,
		}, counts},
		{"inclusive minimum", MetricDef{
			DisplayName: "x", UniqueName: "x", DType: "MINDOUBLE", Type: Inclusive,
		}, RootMetric},
		{"aggregation on plain metric", MetricDef{
			DisplayName: "x", UniqueName: "x", DType: "DOUBLE", AggrPlus: "arg1 + arg2",
		}, RootMetric},
		{"minus on exclusive", MetricDef{
			DisplayName: "x", UniqueName: "x", DType: "DOUBLE", Type: PreDerivedExclusive, AggrMinus: "arg1 - arg2",
		}, RootMetric},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.DefMetric(ctx, tc.def, tc.parent)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidMetric) || errors.Is(err, ErrInvalidReference), "%v", err)
		})
	}
	require.Equal(t, 1, c.NumMetrics())

	m, err := c.DefMetric(ctx, MetricDef{
		DisplayName: "x", UniqueName: "x", DType: "DOUBLE", Expression: "1",
	}, RootMetric)
	require.NoError(t, err)
	require.Empty(t, c.Metric(m).Expression)
}

func TestDerivedMetricAnchor(t *testing.T) {
	ctx := context.Background()
	fs := vfs.NewMem()
	c := newTestCube(t, fs, "derived", Master, false)
	require.NoError(t, c.DefAttr("creator", "cubew & co"))
	require.NoError(t, c.DefMirror("https://example.org/doc/"))
	require.NoError(t, c.SetMetricsTitle("Metrics"))
	_, err := c.DefMetric(ctx, MetricDef{
		DisplayName:     "Ratio",
		UniqueName:      "ratio",
		DType:           "DOUBLE",
		Type:            PreDerivedInclusive,
		VizType:         VizGhost,
		Expression:      "metric::a() < metric::b()",
		InitExpression:  "${x}=0;",
		AggrPlus:        "arg1 + arg2",
		AggrMinus:       "arg1 - arg2",
		NotCacheable:    true,
		NotLocationwise: true,
	}, RootMetric)
	require.NoError(t, err)
	require.NoError(t, c.Finish(ctx))

	xml := anchorOf(t, fs, "derived")
	require.Contains(t, xml, `<attr key="creator" value="cubew &amp; co"/>`)
	require.Contains(t, xml, "<doc>\n<mirrors>\n<murl>https://example.org/doc/</murl>\n</mirrors>\n</doc>\n")
	require.Contains(t, xml, "<metrics title=\"Metrics\">\n"+
		"<metric id=\"0\" type=\"PREDERIVED_INCLUSIVE\" viztype=\"GHOST\" cacheable=\"false\">\n")
	require.Contains(t, xml, "<cubepl locationwise=\"false\">metric::a() &lt; metric::b()</cubepl>\n"+
		"<cubeplinit>${x}=0;</cubeplinit>\n"+
		"<cubeplaggr cubeplaggrtype=\"plus\">arg1 + arg2</cubeplaggr>\n"+
		"<cubeplaggr cubeplaggrtype=\"minus\">arg1 - arg2</cubeplaggr>\n")
}

func TestEscape(t *testing.T) {
	require.Equal(t, "&lt;a href=&quot;x&quot;&gt;&apos;&amp;&apos;&lt;/a&gt;", escape(`<a href="x">'&'</a>`))
}

func TestWriteRowOf(t *testing.T) {
	ctx := context.Background()
	fs := vfs.NewMem()
	c := newTestCube(t, fs, "tau", Master, false)
	s := defineSeed(t, c)
	m, err := c.DefMetric(ctx, MetricDef{
		DisplayName: "tau", UniqueName: "tau", DType: "TAU_ATOMIC", Type: Exclusive,
	}, RootMetric)
	require.NoError(t, err)

	err = WriteRowOf(ctx, c, m, s.cnode, []cubetype.Int32Value{1, 2})
	require.True(t, errors.Is(err, ErrIncompatibleType), "%v", err)
	err = c.WriteRawRow(ctx, m, s.cnode, make([]byte, 3))
	require.True(t, errors.Is(err, ErrRowWidth), "%v", err)

	tau := []cubetype.TauAtomicValue{
		{N: 2, Min: 1, Max: 3, Sum: 4, Sum2: 10},
		{N: 1, Min: 5, Max: 5, Sum: 5, Sum2: 25},
	}
	require.NoError(t, WriteRowOf(ctx, c, m, s.cnode, tau))
	require.True(t, c.MetricFinished(m))
	require.True(t, errors.Is(c.DefAttr("late", "x"), ErrLocked))
	require.NoError(t, c.Finish(ctx))

	entries := readEntries(t, fs, "tau")
	typ := cubetype.Type{Kind: cubetype.TauAtomic}
	raw, err := layout.DecodeData(entries[layout.DataName(int(m))], 2*typ.Size())
	require.NoError(t, err)
	vals, err := cubetype.DecodeRow(typ, 2, raw[0])
	require.NoError(t, err)
	require.Equal(t, []cubetype.Value{tau[0], tau[1]}, vals)
}

func TestFlatProfile(t *testing.T) {
	ctx := context.Background()
	c := newTestCube(t, nil, "flat", Slave, false)
	for _, name := range []string{"main", "foo", "bar"} {
		_, err := c.DefRegion(ctx, RegionDef{Name: name})
		require.NoError(t, err)
	}
	m, err := c.DefMetric(ctx, MetricDef{DisplayName: "t", UniqueName: "t", DType: "DOUBLE"}, RootMetric)
	require.NoError(t, err)
	require.NoError(t, c.SetSystemTreeSize(4))
	rows, err := c.CnodesForMetric(ctx, m)
	require.NoError(t, err)
	require.Equal(t, []CnodeID{0, 1, 2}, rows)
	require.Equal(t, 4, c.RowWidth())
	for i, cn := range rows {
		require.Equal(t, RegionID(i), c.Cnode(cn).Callee)
		require.Equal(t, NoLine, c.Cnode(cn).Line)
	}
}
