// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cube

// Entity identifiers. An ID equals the entity's position in its catalog and
// never changes once assigned.
type (
	MetricID         int32
	RegionID         int32
	CnodeID          int32
	SystemTreeNodeID int32
	LocationGroupID  int32
	LocationID       int32
	CartesianID      int32
)

// Sentinels for absent parents.
const (
	RootMetric         MetricID         = -1
	RootCnode          CnodeID          = -1
	RootSystemTreeNode SystemTreeNodeID = -1
)

// NoLine marks a cnode without a source line.
const NoLine = -1
