// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cubegen

import (
	"context"
	"sort"

	"github.com/cockroachdb/cubew/pkg/cube"
	"github.com/cockroachdb/errors"
)

// ScenarioParams tune the canned scenarios.
type ScenarioParams struct {
	// Locations is the number of locations of the systree scenario.
	Locations int
}

// DefaultScenarioParams are used by the CLI.
var DefaultScenarioParams = ScenarioParams{Locations: 1024}

// Scenario is a small hand-written report.
type Scenario struct {
	Name        string
	Description string
	run         func(ctx context.Context, c *cube.Cube, p ScenarioParams) error
}

var scenarios = map[string]Scenario{
	"simple": {
		Name:        "simple",
		Description: "three metrics, a three-node call tree, two threads and four topologies",
		run:         runSimple,
	},
	"derived": {
		Name:        "derived",
		Description: "prederived and postderived metrics with custom aggregations",
		run:         runDerived,
	},
	"systree": {
		Name:        "systree",
		Description: "a single flat process of many threads streamed into the anchor",
		run:         runSystemTree,
	},
}

// Scenarios returns the scenarios sorted by name.
func Scenarios() []Scenario {
	out := make([]Scenario, 0, len(scenarios))
	for _, s := range scenarios {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupScenario returns the scenario called name.
func LookupScenario(name string) (Scenario, bool) {
	s, ok := scenarios[name]
	return s, ok
}

// Run writes the scenario's report, named after the scenario.
func (s Scenario) Run(ctx context.Context, opts cube.Options, p ScenarioParams) error {
	c, err := cube.Create(ctx, s.Name, opts)
	if err != nil {
		return err
	}
	if err := s.run(ctx, c, p); err != nil {
		c.Abort(ctx)
		return errors.Wrapf(err, "scenario %s", s.Name)
	}
	return c.Finish(ctx)
}

const exampleModule = "/ICL/CUBE/example.c"

// exampleReport holds what the simple and derived scenarios share.
type exampleReport struct {
	cnodes  [3]cube.CnodeID
	threads [2]cube.LocationID
}

func defineExampleHeader(c *cube.Cube) error {
	if err := c.DefMirror("http://www.fz-juelich.de/jsc/scalasca/"); err != nil {
		return err
	}
	if err := c.DefAttr("description", "A simple example of Cube report"); err != nil {
		return err
	}
	return c.DefAttr("experiment time", "November 1st, 2004")
}

// defineExampleTrees defines three regions called along a three-node call
// tree, and one node running two single-threaded processes.
func defineExampleTrees(ctx context.Context, c *cube.Cube) (exampleReport, error) {
	var rep exampleReport
	regionDefs := []cube.RegionDef{
		{Name: "main", MangledName: "main", Begin: 21, End: 100, Description: "1st level"},
		{Name: "<<init>>foo", MangledName: "<<init>>foo", Begin: 1, End: 10, Description: "2nd level"},
		{Name: "<<loop>>bar", MangledName: "<<loop>>bar", Begin: 11, End: 20, Description: "2nd level"},
	}
	lines := []int{21, 60, 80}
	for i, def := range regionDefs {
		def.Paradigm, def.Role, def.Module = "mpi", "barrier", exampleModule
		r, err := c.DefRegion(ctx, def)
		if err != nil {
			return rep, err
		}
		parent := cube.RootCnode
		if i > 0 {
			parent = rep.cnodes[0]
		}
		if rep.cnodes[i], err = c.DefCnode(ctx, r, exampleModule, lines[i], parent); err != nil {
			return rep, err
		}
	}
	root, last := rep.cnodes[0], rep.cnodes[2]
	for _, err := range []error{
		c.AddNumericParameter(root, "Phase", 1),
		c.AddNumericParameter(root, "Phase", 2),
		c.AddStringParameter(root, "Iteration", "Initialization"),
		c.AddStringParameter(last, "Etappe", "Finish"),
	} {
		if err != nil {
			return rep, err
		}
	}

	mach, err := c.DefMachine(ctx, "MSC<<juelich>>", "")
	if err != nil {
		return rep, err
	}
	node, err := c.DefNode(ctx, "Athena<<juropa>>", mach)
	if err != nil {
		return rep, err
	}
	for i, name := range []string{"Process 0<<master>>", "Process 1<<worker>>"} {
		proc, err := c.DefProcess(ctx, name, i, node)
		if err != nil {
			return rep, err
		}
		thread := []string{"Thread 0<<iterator>>", "Thread 1<<solver>>"}[i]
		if rep.threads[i], err = c.DefThread(ctx, thread, i, proc); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

// writeTimes writes the time rows shared by the simple and derived
// scenarios, in the order the cube asks for them.
func writeTimes(ctx context.Context, c *cube.Cube, m cube.MetricID, rep exampleReport) error {
	times := map[cube.CnodeID][]float64{
		rep.cnodes[0]: {123.4, 567.9},
		rep.cnodes[1]: {1123.4, 2567.9},
		rep.cnodes[2]: {-1123.4, 3567.9},
	}
	rows, err := c.CnodesForMetric(ctx, m)
	if err != nil {
		return err
	}
	for _, cn := range rows {
		if err := c.WriteRowOfDoubles(ctx, m, cn, times[cn]); err != nil {
			return err
		}
	}
	return nil
}

func runSimple(ctx context.Context, c *cube.Cube, _ ScenarioParams) error {
	if err := defineExampleHeader(c); err != nil {
		return err
	}
	time, err := c.DefMetric(ctx, cube.MetricDef{
		DisplayName: "Time", UniqueName: "time", DType: "FLOAT", UOM: "sec",
		URL: "@mirror@patterns-2.1.html#execution", Description: "root node",
		Type: cube.Exclusive,
	}, cube.RootMetric)
	if err != nil {
		return err
	}
	userTime, err := c.DefMetric(ctx, cube.MetricDef{
		DisplayName: "User time", UniqueName: "usertime", DType: "FLOAT", UOM: "sec",
		URL: "http://www.cs.utk.edu/usr.html", Description: "2nd level",
		Type: cube.Inclusive,
	}, time)
	if err != nil {
		return err
	}
	bytes, err := c.DefMetric(ctx, cube.MetricDef{
		DisplayName: "Bytes transferred", UniqueName: "bytes", DType: "INTEGER", UOM: "sec",
		URL: "http://www.cs.utk.edu/sys.html", Description: "0nd level",
		Type: cube.Exclusive,
	}, cube.RootMetric)
	if err != nil {
		return err
	}
	rep, err := defineExampleTrees(ctx, c)
	if err != nil {
		return err
	}
	if err := defineExampleTopologies(ctx, c, rep); err != nil {
		return err
	}
	// User time is only known for main, bytes only for bar.
	if err := c.SetKnownCnodes(userTime, []byte{0x80}); err != nil {
		return err
	}
	if err := c.SetKnownCnodes(bytes, []byte{0x20}); err != nil {
		return err
	}

	if err := writeTimes(ctx, c, time, rep); err != nil {
		return err
	}
	if err := c.WriteRowOfDoubles(ctx, userTime, rep.cnodes[0], []float64{-123.4, -567.9}); err != nil {
		return err
	}
	return c.WriteRowOfUint64(ctx, bytes, rep.cnodes[2], []uint64{23, 26})
}

func defineExampleTopologies(ctx context.Context, c *cube.Cube, rep exampleReport) error {
	t0, t1 := rep.threads[0], rep.threads[1]
	huge := func(first, last int64) []int64 {
		coords := make([]int64, 14)
		coords[0], coords[13] = first, last
		return coords
	}
	hugeDims := make([]int64, 14)
	hugePeriodic := make([]bool, 14)
	for i := range hugeDims {
		hugeDims[i] = 3
	}
	hugePeriodic[0] = true
	hugeCoords0 := huge(0, 2)
	hugeCoords0[1] = 1

	type placement struct {
		loc    cube.LocationID
		coords []int64
	}
	for _, topo := range []struct {
		name      string
		dims      []int64
		periodic  []bool
		dimNames  []string
		locations []placement
	}{
		{
			name: "Application Topology 1", dims: []int64{5, 5}, periodic: []bool{true, false},
			dimNames:  []string{"X", "Y"},
			locations: []placement{{t1, []int64{0, 0}}},
		},
		{
			name: "Application topology 2", dims: []int64{3, 3}, periodic: []bool{true, false},
			dimNames:  []string{"Dimension 1", "Dimension 2"},
			locations: []placement{{t0, []int64{0, 1}}, {t1, []int64{1, 0}}},
		},
		{
			name: "Application topology 3", dims: []int64{3, 3, 3, 3}, periodic: []bool{true, false, false, false},
			locations: []placement{{t0, []int64{0, 1, 0, 0}}, {t1, []int64{1, 0, 0, 0}}},
		},
		{
			name: "Huge topology", dims: hugeDims, periodic: hugePeriodic,
			locations: []placement{{t0, hugeCoords0}, {t1, huge(1, 0)}},
		},
	} {
		cart, err := c.DefCartesian(ctx, topo.name, topo.dims, topo.periodic, topo.dimNames)
		if err != nil {
			return err
		}
		for _, p := range topo.locations {
			if err := c.DefCoords(ctx, cart, p.loc, p.coords); err != nil {
				return err
			}
		}
	}
	return nil
}

func runDerived(ctx context.Context, c *cube.Cube, _ ScenarioParams) error {
	if err := defineExampleHeader(c); err != nil {
		return err
	}
	time, err := c.DefMetric(ctx, cube.MetricDef{
		DisplayName: "Time", UniqueName: "time", DType: "FLOAT", UOM: "sec",
		URL: "@mirror@patterns-2.1.html#execution", Description: "root node",
		Type: cube.Exclusive,
	}, cube.RootMetric)
	if err != nil {
		return err
	}
	const usr = "http://www.cs.utk.edu/usr.html"
	for _, def := range []cube.MetricDef{
		{DisplayName: "Prederived, exclusive", UniqueName: "preexcl",
			Type: cube.PreDerivedExclusive, Expression: "metric::time()"},
		{DisplayName: "Prederived, inclusive", UniqueName: "preincl",
			Type: cube.PreDerivedInclusive, Expression: "metric::time()"},
		{DisplayName: "Prederived custom, exclusive", UniqueName: "preexclcustom1",
			Type: cube.PreDerivedExclusive, Expression: "metric::time()", AggrPlus: "max(arg1, arg2)"},
		{DisplayName: "Prederived custom, exclusive, over threads", UniqueName: "preexclcustom2",
			Type: cube.PreDerivedExclusive, Expression: "metric::time()", AggrAggr: "max(arg1, arg2)"},
		{DisplayName: "Prederived custom, inclusive", UniqueName: "preinclcustom",
			Type: cube.PreDerivedInclusive, Expression: "metric::time()",
			AggrPlus: "arg1*arg2", AggrMinus: "max(arg1, arg2)"},
		{DisplayName: "Postderived, cacheable", UniqueName: "post",
			Type: cube.PostDerived, Expression: "random(100)"},
		{DisplayName: "Postderived, noncacheable", UniqueName: "postnoncache",
			Type: cube.PostDerived, Expression: "random(10)", NotCacheable: true},
	} {
		def.DType, def.UOM, def.URL, def.Description = "FLOAT", "sec", usr, "2nd level"
		if _, err := c.DefMetric(ctx, def, cube.RootMetric); err != nil {
			return err
		}
	}
	rep, err := defineExampleTrees(ctx, c)
	if err != nil {
		return err
	}
	return writeTimes(ctx, c, time, rep)
}

// runSystemTree streams a machine with one process of p.Locations threads.
// Only the declared totals and the current position are held in memory.
func runSystemTree(ctx context.Context, c *cube.Cube, p ScenarioParams) error {
	if p.Locations < 1 {
		return errors.Newf("the systree scenario needs at least one location, got %d", p.Locations)
	}
	if _, err := c.DefMetric(ctx, cube.MetricDef{
		DisplayName: "Time", UniqueName: "time", DType: "FLOAT", UOM: "sec",
		URL: "@mirror@patterns-2.1.html#execution", Description: "root node",
		Type: cube.Exclusive,
	}, cube.RootMetric); err != nil {
		return err
	}
	main, err := c.DefRegion(ctx, cube.RegionDef{
		Name: "main", MangledName: "main", Paradigm: "mpi", Role: "barrier",
		Begin: 21, End: 100, Description: "1st level", Module: exampleModule,
	})
	if err != nil {
		return err
	}
	root, err := c.DefCnode(ctx, main, exampleModule, 21, cube.RootCnode)
	if err != nil {
		return err
	}

	state, produced := cube.StateInit, 0
	src := cube.SystemTreeFuncs{
		InitFn: func(context.Context) (cube.SystemTreeInfo, error) {
			return cube.SystemTreeInfo{NumSystemTreeNodes: 1, NumLocationGroups: 1, NumLocations: p.Locations}, nil
		},
		StepFn: func(_ context.Context, step *cube.SystemTreeStep) (cube.SystemTreeState, error) {
			switch {
			case state == cube.StateInit:
				state = cube.StateSTN
				step.Node.Name, step.Node.Class = "Top", "machine"
			case state == cube.StateSTN:
				state = cube.StateLG
				step.Group.Name, step.Group.Type = "LG", cube.ProcessGroup
			case state == cube.StateLG || (state == cube.StateLoc && produced < p.Locations):
				state = cube.StateLoc
				produced++
				step.Location.Name, step.Location.Type = "Thread 0<<iterator>>", cube.ThreadLocation
			case state != cube.StateEnd:
				state = cube.StateEnd
			default:
				return cube.StateStop, nil
			}
			return state, nil
		},
	}
	if err := c.SetSystemTreeSource(src); err != nil {
		return err
	}
	if err := c.WriteDef(ctx); err != nil {
		return err
	}
	row := make([]float64, c.RowWidth())
	for i := range row {
		row[i] = float64(i) / 2
	}
	return c.WriteRowOfDoubles(ctx, cube.MetricID(0), root, row)
}
