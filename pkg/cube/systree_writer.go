// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cube

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// SystemTreeState is what a SystemTreeSource produced in one step.
type SystemTreeState uint8

// States of the system tree protocol. A source returns STN, LG, LOC, UP or
// END from Step and finally STOP. INIT is the writer's state before the
// first step.
const (
	StateInit SystemTreeState = iota
	StateSTN
	StateLG
	StateLoc
	StateUp
	StateEnd
	StateStop
)

var stateNames = [...]string{
	StateInit: "INIT",
	StateSTN:  "STN",
	StateLG:   "LG",
	StateLoc:  "LOC",
	StateUp:   "UP",
	StateEnd:  "END",
	StateStop: "STOP",
}

func (s SystemTreeState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("SystemTreeState(%d)", s)
}

// SafeValue implements redact.SafeValue.
func (SystemTreeState) SafeValue() {}

// SystemTreeInfo declares the totals a SystemTreeSource will produce.
type SystemTreeInfo struct {
	NumSystemTreeNodes int
	NumLocationGroups  int
	NumLocations       int
}

// Validate checks that the totals are usable.
func (i SystemTreeInfo) Validate() error {
	if i.NumSystemTreeNodes < 0 || i.NumLocationGroups < 0 || i.NumLocations < 0 {
		return errors.Wrapf(ErrSystemTreeProtocol, "negative totals %+v", i)
	}
	if i.NumLocations > 0 && (i.NumLocationGroups == 0 || i.NumSystemTreeNodes == 0) {
		return errors.Wrapf(ErrSystemTreeProtocol, "locations need a location group and a node: %+v", i)
	}
	return nil
}

// SystemTreeStep carries the entity produced by one step. Only the part
// matching the returned state is read; the writer clears the step before
// every call.
type SystemTreeStep struct {
	Node struct {
		Name, Description, Class string
		Attrs                    Attrs
	}
	Group struct {
		Name  string
		Rank  int
		Type  LocationGroupType
		Attrs Attrs
	}
	Location struct {
		Name  string
		Rank  int
		Type  LocationType
		Attrs Attrs
	}
}

func (s *SystemTreeStep) reset() {
	*s = SystemTreeStep{}
}

// SystemTreeSource produces a system tree one entity at a time, so that very
// large trees never have to be held in memory.
type SystemTreeSource interface {
	// Init is called when the cube is locked and declares the totals.
	Init(ctx context.Context) (SystemTreeInfo, error)
	// Step fills in the next entity and returns its kind. UP closes the
	// innermost open node or location group, END closes everything.
	Step(ctx context.Context, step *SystemTreeStep) (SystemTreeState, error)
	// Finish is called once Step returned STOP or failed.
	Finish(ctx context.Context)
}

// SystemTreeFuncs adapts functions to a SystemTreeSource. A nil FinishFn is
// allowed.
type SystemTreeFuncs struct {
	InitFn   func(ctx context.Context) (SystemTreeInfo, error)
	StepFn   func(ctx context.Context, step *SystemTreeStep) (SystemTreeState, error)
	FinishFn func(ctx context.Context)
}

var _ SystemTreeSource = SystemTreeFuncs{}

// Init implements SystemTreeSource.
func (f SystemTreeFuncs) Init(ctx context.Context) (SystemTreeInfo, error) { return f.InitFn(ctx) }

// Step implements SystemTreeSource.
func (f SystemTreeFuncs) Step(ctx context.Context, step *SystemTreeStep) (SystemTreeState, error) {
	return f.StepFn(ctx, step)
}

// Finish implements SystemTreeSource.
func (f SystemTreeFuncs) Finish(ctx context.Context) {
	if f.FinishFn != nil {
		f.FinishFn(ctx)
	}
}

// systemTreeWriter drives a SystemTreeSource and emits its entities as
// anchor XML. It keeps a stack of open elements.
type systemTreeWriter struct {
	x     *xmlWriter
	info  SystemTreeInfo
	stack []SystemTreeState
	// Next IDs, continuing after any eagerly defined entities.
	stnID, lgID, locID int
	// Entities produced so far.
	stns, lgs, locs int
}

func (w *systemTreeWriter) top() SystemTreeState {
	if len(w.stack) == 0 {
		return StateInit
	}
	return w.stack[len(w.stack)-1]
}

func (w *systemTreeWriter) violation(format string, args ...interface{}) error {
	return errors.Wrapf(ErrSystemTreeProtocol, format, args...)
}

func (w *systemTreeWriter) run(ctx context.Context, src SystemTreeSource) error {
	defer src.Finish(ctx)
	var step SystemTreeStep
	for {
		step.reset()
		next, err := src.Step(ctx, &step)
		if err != nil {
			return errors.Wrap(err, "system tree source")
		}
		switch next {
		case StateSTN:
			err = w.node(&step)
		case StateLG:
			err = w.group(&step)
		case StateLoc:
			err = w.location(&step)
		case StateUp:
			err = w.up()
		case StateEnd, StateStop:
			for len(w.stack) > 0 && err == nil {
				err = w.up()
			}
			if err == nil {
				err = w.checkTotals()
			}
			if err == nil && next == StateStop {
				return w.x.err
			}
		default:
			err = w.violation("unexpected state %s", next)
		}
		if err != nil {
			return err
		}
		if w.x.err != nil {
			return w.x.err
		}
	}
}

func (w *systemTreeWriter) node(step *SystemTreeStep) error {
	if w.top() == StateLG {
		if err := w.up(); err != nil {
			return err
		}
	}
	if w.stns >= w.info.NumSystemTreeNodes {
		return w.violation("more than the declared %d system tree nodes", redact.Safe(w.info.NumSystemTreeNodes))
	}
	n := &step.Node
	w.x.openSystemTreeNode(w.stnID, n.Name, n.Class, n.Description, n.Attrs)
	w.stnID++
	w.stns++
	w.stack = append(w.stack, StateSTN)
	return nil
}

func (w *systemTreeWriter) group(step *SystemTreeStep) error {
	switch w.top() {
	case StateInit:
		return w.violation("location group before any system tree node")
	case StateLG:
		if err := w.up(); err != nil {
			return err
		}
	}
	if w.lgs >= w.info.NumLocationGroups {
		return w.violation("more than the declared %d location groups", redact.Safe(w.info.NumLocationGroups))
	}
	g := &step.Group
	w.x.openLocationGroup(w.lgID, g.Name, g.Rank, g.Type, g.Attrs)
	w.lgID++
	w.lgs++
	w.stack = append(w.stack, StateLG)
	return nil
}

func (w *systemTreeWriter) location(step *SystemTreeStep) error {
	switch w.top() {
	case StateInit:
		return w.violation("location before any system tree node")
	case StateSTN:
		return w.violation("location directly under a system tree node")
	}
	if w.locs >= w.info.NumLocations {
		return w.violation("more than the declared %d locations", redact.Safe(w.info.NumLocations))
	}
	l := &step.Location
	w.x.location(w.locID, l.Name, l.Rank, l.Type, l.Attrs)
	w.locID++
	w.locs++
	return nil
}

func (w *systemTreeWriter) up() error {
	switch w.top() {
	case StateInit:
		return w.violation("step up with nothing open")
	case StateSTN:
		w.x.closeSystemTreeNode()
	case StateLG:
		w.x.closeLocationGroup()
	}
	w.stack = w.stack[:len(w.stack)-1]
	return nil
}

func (w *systemTreeWriter) checkTotals() error {
	got := SystemTreeInfo{NumSystemTreeNodes: w.stns, NumLocationGroups: w.lgs, NumLocations: w.locs}
	if got != w.info {
		return w.violation("produced %+v, declared %+v", got, w.info)
	}
	return nil
}
