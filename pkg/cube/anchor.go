// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cube

import (
	"context"
	"io"
	"strconv"
	"strings"
)

// Versions announced in the anchor. WriterVersion is the version of the
// CUBE writer library this package is compatible with.
const (
	AnchorVersion = "4.4"
	CubePLVersion = "1.1"
	WriterVersion = "4.3"
)

// writeAnchor emits the XML metadata of the report.
func (c *Cube) writeAnchor(ctx context.Context, w io.Writer) error {
	x := &xmlWriter{w: w}
	x.printf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n\n")
	x.printf("<cube version=\"%s\">\n", AnchorVersion)
	x.attrs(Attrs{{Key: "CubePL Version", Value: CubePLVersion}, {Key: "Cube Version", Value: WriterVersion}})
	x.attrs(c.attrs)

	x.printf("<doc>\n<mirrors>\n")
	for _, m := range c.mirrors {
		x.element("murl", m)
	}
	x.printf("</mirrors>\n</doc>\n")

	x.printf("<metrics%s>\n", titleAttr(c.titles.metrics))
	for _, id := range c.rootMetrics {
		c.writeMetricXML(x, c.metrics[id])
	}
	x.printf("</metrics>\n")

	x.printf("<program%s>\n", titleAttr(c.titles.calltree))
	for _, r := range c.regions {
		writeRegionXML(x, r)
	}
	for _, id := range c.rootCnodes {
		c.writeCnodeXML(x, c.cnodes[id])
	}
	x.printf("</program>\n")

	x.printf("<system%s>\n", titleAttr(c.titles.systemtree))
	if len(c.rootSTNs) > 0 {
		for _, id := range c.rootSTNs {
			c.writeSystemTreeNodeXML(x, c.stns[id])
		}
	} else if c.treeSource != nil {
		tw := &systemTreeWriter{
			x:     x,
			info:  c.treeInfo,
			stnID: len(c.stns),
			lgID:  len(c.lgs),
			locID: len(c.locs),
		}
		if err := tw.run(ctx, c.treeSource); err != nil {
			return err
		}
	}
	x.printf("<topologies>\n")
	for _, t := range c.carts {
		writeCartesianXML(x, t)
	}
	x.printf("</topologies>\n")
	x.printf("</system>\n")
	x.printf("</cube>\n")
	return x.err
}

func titleAttr(title string) string {
	if title == "" {
		return ""
	}
	return " title=\"" + escape(title) + "\""
}

func (c *Cube) writeMetricXML(x *xmlWriter, m *Metric) {
	x.printf("<metric id=\"%d\" type=\"%s\"", m.ID, m.Type)
	if m.VizType == VizGhost {
		x.printf(" viztype=\"GHOST\"")
	}
	if m.NotCacheable {
		x.printf(" cacheable=\"false\"")
	}
	x.printf(">\n")
	x.element("disp_name", m.DisplayName)
	x.element("uniq_name", m.UniqueName)
	x.element("dtype", m.ValueType.String())
	x.element("uom", m.UOM)
	if m.Val != "" {
		x.element("val", m.Val)
	}
	x.element("url", m.URL)
	x.element("descr", m.Description)
	if m.Type.IsDerived() {
		if m.Expression != "" {
			if m.NotLocationwise {
				x.printf("<cubepl locationwise=\"false\">%s</cubepl>\n", escape(m.Expression))
			} else {
				x.element("cubepl", m.Expression)
			}
		}
		if m.InitExpression != "" {
			x.element("cubeplinit", m.InitExpression)
		}
		for _, aggr := range []struct{ kind, expr string }{
			{"plus", m.AggrPlus}, {"minus", m.AggrMinus}, {"aggr", m.AggrAggr},
		} {
			if aggr.expr != "" {
				x.printf("<cubeplaggr cubeplaggrtype=\"%s\">%s</cubeplaggr>\n", aggr.kind, escape(aggr.expr))
			}
		}
	}
	x.attrs(m.Attrs)
	for _, child := range m.Children {
		c.writeMetricXML(x, c.metrics[child])
	}
	x.printf("</metric>\n")
}

func writeRegionXML(x *xmlWriter, r *Region) {
	x.printf("<region id=\"%d\" mod=\"%s\" begin=\"%d\" end=\"%d\">\n", r.ID, escape(r.Module), r.Begin, r.End)
	x.element("name", r.Name)
	if r.MangledName != "" {
		x.element("mangled_name", r.MangledName)
	}
	x.element("paradigm", r.Paradigm)
	x.element("role", r.Role)
	x.element("url", r.URL)
	x.element("descr", r.Description)
	x.attrs(r.Attrs)
	x.printf("</region>\n")
}

func (c *Cube) writeCnodeXML(x *xmlWriter, n *Cnode) {
	x.printf("<cnode id=\"%d\" ", n.ID)
	if n.Line != NoLine {
		x.printf("line=\"%d\" ", n.Line)
	}
	if n.Module != "" {
		x.printf("mod=\"%s\" ", escape(n.Module))
	}
	x.printf("calleeId=\"%d\">\n", n.Callee)
	for _, p := range n.NumericParams {
		x.printf("<parameter partype=\"numeric\" parkey=\"%s\" parvalue=\"%s\" />\n",
			escape(p.Key), strconv.FormatFloat(p.Value, 'g', 6, 64))
	}
	for _, p := range n.StringParams {
		x.printf("<parameter partype=\"string\" parkey=\"%s\" parvalue=\"%s\" />\n",
			escape(p.Key), escape(p.Value))
	}
	x.attrs(n.Attrs)
	for _, child := range n.Children {
		c.writeCnodeXML(x, c.cnodes[child])
	}
	x.printf("</cnode>\n")
}

func (c *Cube) writeSystemTreeNodeXML(x *xmlWriter, n *SystemTreeNode) {
	x.openSystemTreeNode(int(n.ID), n.Name, n.Class, n.Description, n.Attrs)
	for _, id := range n.LocationGroups {
		g := c.lgs[id]
		x.openLocationGroup(int(g.ID), g.Name, g.Rank, g.Type, g.Attrs)
		for _, lid := range g.Locations {
			l := c.locs[lid]
			x.location(int(l.ID), l.Name, l.Rank, l.Type, l.Attrs)
		}
		x.closeLocationGroup()
	}
	for _, child := range n.Children {
		c.writeSystemTreeNodeXML(x, c.stns[child])
	}
	x.closeSystemTreeNode()
}

func writeCartesianXML(x *xmlWriter, t *Cartesian) {
	x.printf("<cart ")
	if t.Name != "" {
		x.printf("name=\"%s\" ", escape(t.Name))
	}
	x.printf("ndims=\"%d\">\n", len(t.Dims))
	for i, d := range t.Dims {
		x.printf("<dim ")
		if i < len(t.DimNames) && t.DimNames[i] != "" {
			x.printf("name=\"%s\" ", escape(t.DimNames[i]))
		}
		x.printf("size=\"%d\" periodic=\"%t\"/>\n", d, t.Periodic[i])
	}
	t.Coords(func(loc LocationID, coords []int64) bool {
		parts := make([]string, len(coords))
		for i, v := range coords {
			parts[i] = strconv.FormatInt(v, 10)
		}
		x.printf("<coord locId=\"%d\">%s</coord>\n", loc, strings.Join(parts, " "))
		return x.err == nil
	})
	x.printf("</cart>\n")
}
