package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Table renders entries as an aligned table with a totals footer.
func Table(w io.Writer, entries []Entry) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Unit", "Site", "Call", "Binding", "Match", "Distance"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_RIGHT,
	})

	for _, e := range entries {
		binding := e.Ref
		switch e.Kind {
		case "ambiguous":
			binding = "ambiguous: " + strings.Join(e.Candidates, ", ")
		case "unresolved":
			binding = "unresolved"
		}
		distance := "-"
		if e.Kind != "unresolved" {
			distance = fmt.Sprintf("%d", e.Distance)
		}
		table.Append([]string{
			e.Unit,
			e.Site,
			fmt.Sprintf("%s::%s", e.Receiver, e.Method),
			binding,
			e.Match,
			distance,
		})
	}

	s := Summarize(entries)
	table.SetFooter([]string{
		fmt.Sprintf("Units %d", s.Units),
		fmt.Sprintf("Sites %d", len(entries)),
		"",
		fmt.Sprintf("%d resolved", s.Resolved),
		fmt.Sprintf("%d ambiguous", s.Ambiguous),
		fmt.Sprintf("%d unresolved", s.Unresolved),
	})

	table.Render()
	return nil
}
