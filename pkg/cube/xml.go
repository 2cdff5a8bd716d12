// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cube

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

var xmlEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	"&", "&amp;",
	"'", "&apos;",
	`"`, "&quot;",
)

func escape(s string) string { return xmlEscaper.Replace(s) }

// xmlWriter emits anchor XML. The first write error sticks and suppresses
// all further output.
type xmlWriter struct {
	w   io.Writer
	err error
}

func (x *xmlWriter) printf(format string, args ...interface{}) {
	if x.err != nil {
		return
	}
	_, x.err = fmt.Fprintf(x.w, format, args...)
}

func (x *xmlWriter) element(tag, text string) {
	x.printf("<%s>%s</%s>\n", tag, escape(text), tag)
}

func (x *xmlWriter) attrs(a Attrs) {
	for _, kv := range a {
		x.printf("<attr key=\"%s\" value=\"%s\"/>\n", escape(kv.Key), escape(kv.Value))
	}
}

func (x *xmlWriter) openSystemTreeNode(id int, name, class, description string, a Attrs) {
	x.printf("<systemtreenode Id=\"%d\">\n", id)
	x.element("name", name)
	x.element("class", class)
	if description != "" {
		x.element("descr", description)
	}
	x.attrs(a)
}

func (x *xmlWriter) closeSystemTreeNode() { x.printf("</systemtreenode>\n") }

func (x *xmlWriter) openLocationGroup(id int, name string, rank int, typ LocationGroupType, a Attrs) {
	x.printf("<locationgroup Id=\"%d\">\n", id)
	x.element("name", name)
	x.element("rank", strconv.Itoa(rank))
	x.element("type", typ.String())
	x.attrs(a)
}

func (x *xmlWriter) closeLocationGroup() { x.printf("</locationgroup>\n") }

func (x *xmlWriter) location(id int, name string, rank int, typ LocationType, a Attrs) {
	x.printf("<location Id=\"%d\">\n", id)
	x.element("name", name)
	x.element("rank", strconv.Itoa(rank))
	x.element("type", typ.String())
	x.attrs(a)
	x.printf("</location>\n")
}
