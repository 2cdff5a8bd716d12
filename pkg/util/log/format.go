// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import (
	"bytes"
	"context"
	"time"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
)

// formatEntry renders one log line:
//
//	I261019 15:04:05.123456 [cube=foo,metric=3] message
func formatEntry(
	now time.Time, sev Severity, ctx context.Context, msg redact.RedactableString, redactable bool,
) []byte {
	var buf bytes.Buffer
	buf.WriteByte(sev.Char())
	buf.WriteString(now.UTC().Format("060102 15:04:05.000000"))
	buf.WriteByte(' ')
	if tags := logtags.FromContext(ctx); tags != nil {
		buf.WriteByte('[')
		for i, t := range tags.Get() {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(t.Key())
			if t.Value() != nil {
				buf.WriteByte('=')
				buf.WriteString(t.ValueStr())
			}
		}
		buf.WriteString("] ")
	}
	if redactable {
		buf.WriteString(string(msg))
	} else {
		buf.WriteString(msg.StripMarkers())
	}
	if b := buf.Bytes(); len(b) == 0 || b[len(b)-1] != '\n' {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
