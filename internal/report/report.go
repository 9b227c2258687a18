// Package report renders resolution results for humans and tools.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/funvibe/dcolon/internal/resolver"
	"github.com/funvibe/dcolon/internal/store"
)

// Entry is one call site's outcome, flattened for presentation.
type Entry struct {
	Unit       string   `json:"unit"`
	Site       string   `json:"site"`
	Position   string   `json:"position"`
	Receiver   string   `json:"receiver"`
	Method     string   `json:"method"`
	Kind       string   `json:"kind"`
	Ref        string   `json:"ref,omitempty"`
	Match      string   `json:"match,omitempty"`
	Distance   int      `json:"distance"`
	Candidates []string `json:"candidates,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// Summary counts entries by binding kind.
type Summary struct {
	Units      int `json:"units"`
	Resolved   int `json:"resolved"`
	Ambiguous  int `json:"ambiguous"`
	Unresolved int `json:"unresolved"`
}

// Failed reports whether any call site needs the user's attention.
func (s Summary) Failed() bool { return s.Ambiguous+s.Unresolved > 0 }

// FromResult flattens a resolver result in call-site order.
func FromResult(res *resolver.Result) []Entry {
	messages := make(map[string]string, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		messages[d.CallSite] = d.Error()
	}

	entries := make([]Entry, 0, len(res.Sites))
	for _, site := range res.Sites {
		b := res.Bindings[site.ID]
		e := Entry{
			Unit:     res.Unit,
			Site:     site.ID,
			Position: site.Pos.String(),
			Method:   site.Method,
			Kind:     b.Kind.String(),
			Distance: b.Distance,
			Message:  messages[site.ID],
		}
		if site.Receiver != nil {
			e.Receiver = site.Receiver.String()
		}
		switch b.Kind {
		case resolver.Resolved:
			e.Ref = b.Decl.Ref()
			e.Match = b.Match.String()
		case resolver.Ambiguous:
			e.Match = b.Match.String()
			e.Candidates = b.Refs()
		}
		entries = append(entries, e)
	}
	return entries
}

// FromRows rebuilds entries from a stored run.
func FromRows(unit string, rows []store.Row) []Entry {
	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		e := Entry{
			Unit:     unit,
			Site:     r.Site,
			Position: r.Pos.String(),
			Receiver: r.Receiver,
			Method:   r.Method,
			Kind:     r.Kind,
			Ref:      r.Ref,
			Match:    r.Match,
			Distance: r.Distance,
			Message:  r.Message,
		}
		if len(r.Candidates) > 0 {
			e.Candidates = r.Candidates
		}
		entries = append(entries, e)
	}
	return entries
}

// Summarize counts entries by kind.
func Summarize(entries []Entry) Summary {
	var s Summary
	units := make(map[string]bool)
	for _, e := range entries {
		units[e.Unit] = true
		switch e.Kind {
		case resolver.Resolved.String():
			s.Resolved++
		case resolver.Ambiguous.String():
			s.Ambiguous++
		default:
			s.Unresolved++
		}
	}
	s.Units = len(units)
	return s
}

// Format selects a renderer.
type Format string

const (
	FormatText  Format = "text"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatText, FormatTable, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want text, table or json)", name)
	}
}

// Options tune rendering.
type Options struct {
	Color bool // ANSI colour in text output
}

// Write renders entries in the given format.
func Write(w io.Writer, format Format, entries []Entry, opts Options) error {
	switch format {
	case FormatTable:
		return Table(w, entries)
	case FormatJSON:
		return JSON(w, entries)
	default:
		return Text(w, entries, opts.Color)
	}
}
