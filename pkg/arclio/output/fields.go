package output

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// Field is one "Label: value" line of a text report.
type Field struct {
	Label string
	Value string
}

// WriteFields prints indented, aligned label/value lines. Fields with an empty
// value are skipped.
func WriteFields(w io.Writer, fields ...Field) {
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		_, _ = fmt.Fprintf(tw, "  %s:\t%s\n", f.Label, f.Value)
	}
	_ = tw.Flush()
}

// FormatTime renders t in RFC 3339, or "-" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
