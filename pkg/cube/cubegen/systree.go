// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cubegen

import (
	"context"
	"fmt"

	"github.com/cockroachdb/cubew/pkg/cube"
)

const machineName = "cluster"

func nodeName(n int) string         { return fmt.Sprintf("node%03d", n) }
func processName(g int) string      { return fmt.Sprintf("rank %d", g) }
func threadName(t int) string       { return fmt.Sprintf("thread %d", t) }
func processRank(n, p, ppn int) int { return n*ppn + p }

// defineSystemTree defines the tree described by st on c.
func defineSystemTree(ctx context.Context, c *cube.Cube, st SystemTreeConfig) error {
	machine, err := c.DefMachine(ctx, machineName, "")
	if err != nil {
		return err
	}
	for n := 0; n < st.Nodes; n++ {
		node, err := c.DefNode(ctx, nodeName(n), machine)
		if err != nil {
			return err
		}
		for p := 0; p < st.ProcessesPerNode; p++ {
			g := processRank(n, p, st.ProcessesPerNode)
			proc, err := c.DefProcess(ctx, processName(g), g, node)
			if err != nil {
				return err
			}
			for t := 0; t < st.ThreadsPerProcess; t++ {
				if _, err := c.DefThread(ctx, threadName(t), t, proc); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

type treePhase uint8

const (
	phaseMachine treePhase = iota
	phaseNode
	phaseProcess
	phaseThread
	phaseProcessEnd
	phaseDone
)

// treeSource streams the same tree as defineSystemTree, one entity per
// step, holding nothing but its cursor.
type treeSource struct {
	st                 SystemTreeConfig
	phase              treePhase
	node, proc, thread int
	finished           bool
}

var _ cube.SystemTreeSource = (*treeSource)(nil)

func newTreeSource(st SystemTreeConfig) *treeSource {
	return &treeSource{st: st}
}

// Init implements cube.SystemTreeSource.
func (s *treeSource) Init(context.Context) (cube.SystemTreeInfo, error) {
	return cube.SystemTreeInfo{
		NumSystemTreeNodes: 1 + s.st.Nodes,
		NumLocationGroups:  s.st.Processes(),
		NumLocations:       s.st.Locations(),
	}, nil
}

// Step implements cube.SystemTreeSource.
func (s *treeSource) Step(ctx context.Context, step *cube.SystemTreeStep) (cube.SystemTreeState, error) {
	if err := ctx.Err(); err != nil {
		return cube.StateStop, err
	}
	for {
		switch s.phase {
		case phaseMachine:
			step.Node.Name, step.Node.Class = machineName, "machine"
			s.phase = phaseNode
			return cube.StateSTN, nil

		case phaseNode:
			if s.node == s.st.Nodes {
				s.phase = phaseDone
				return cube.StateEnd, nil
			}
			step.Node.Name, step.Node.Class = nodeName(s.node), "node"
			s.proc = 0
			s.phase = phaseProcess
			return cube.StateSTN, nil

		case phaseProcess:
			if s.proc == s.st.ProcessesPerNode {
				// Close the node.
				s.node++
				s.phase = phaseNode
				return cube.StateUp, nil
			}
			g := processRank(s.node, s.proc, s.st.ProcessesPerNode)
			step.Group.Name, step.Group.Rank, step.Group.Type = processName(g), g, cube.ProcessGroup
			s.thread = 0
			s.phase = phaseThread
			return cube.StateLG, nil

		case phaseThread:
			if s.thread == s.st.ThreadsPerProcess {
				s.phase = phaseProcessEnd
				continue
			}
			step.Location.Name, step.Location.Rank = threadName(s.thread), s.thread
			step.Location.Type = cube.ThreadLocation
			s.thread++
			return cube.StateLoc, nil

		case phaseProcessEnd:
			s.proc++
			s.phase = phaseProcess
			return cube.StateUp, nil

		default:
			return cube.StateStop, nil
		}
	}
}

// Finish implements cube.SystemTreeSource.
func (s *treeSource) Finish(context.Context) {
	s.finished = true
}
