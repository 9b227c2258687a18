package report

import (
	"fmt"
	"io"
	"strings"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiGreen  = "\033[32m"
	ansiDim    = "\033[2m"
)

func paint(s, ansi string, enabled bool) string {
	if !enabled {
		return s
	}
	return ansi + s + ansiReset
}

// Text writes one line per call site followed by a summary line per unit.
// Failed sites print their diagnostic.
func Text(w io.Writer, entries []Entry, color bool) error {
	var b strings.Builder
	unit := ""
	var group []Entry

	flush := func() {
		if len(group) == 0 {
			return
		}
		s := Summarize(group)
		line := fmt.Sprintf("%s: %d resolved, %d ambiguous, %d unresolved", unit, s.Resolved, s.Ambiguous, s.Unresolved)
		if s.Failed() {
			b.WriteString(paint(line, ansiRed, color))
		} else {
			b.WriteString(paint(line, ansiGreen, color))
		}
		b.WriteString("\n")
		group = group[:0]
	}

	for _, e := range entries {
		if e.Unit != unit {
			flush()
			unit = e.Unit
		}
		group = append(group, e)

		switch e.Kind {
		case "resolved":
			fmt.Fprintf(&b, "%s %s %s::%s -> %s %s", e.Position, e.Site, e.Receiver, e.Method, e.Ref,
				paint("("+e.Match+")", ansiDim, color))
		case "ambiguous":
			b.WriteString(paint(e.Message, ansiYellow, color))
		default:
			b.WriteString(paint(e.Message, ansiRed, color))
		}
		b.WriteString("\n")
	}
	flush()

	_, err := io.WriteString(w, b.String())
	return err
}
