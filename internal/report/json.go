package report

import (
	"io"

	"github.com/goccy/go-json"
)

type jsonReport struct {
	Summary  Summary `json:"summary"`
	Bindings []Entry `json:"bindings"`
}

// JSON writes entries and their summary as an indented JSON document.
func JSON(w io.Writer, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(jsonReport{Summary: Summarize(entries), Bindings: entries}, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
