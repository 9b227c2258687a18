package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/funvibe/dcolon/internal/config"
	"github.com/funvibe/dcolon/internal/report"
	"github.com/funvibe/dcolon/internal/store"
)

func newHistoryCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List stored resolution runs, or show one run's bindings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			if st == nil {
				return errors.New("run store disabled: set --store or " + config.KeyStorePath)
			}
			defer st.Close()

			if len(args) == 0 {
				runs, err := st.Runs(cmd.Context(), viper.GetInt(config.KeyHistoryLimit))
				if err != nil {
					return err
				}
				return writeRuns(cmd.OutOrStdout(), runs)
			}

			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			run, err := st.Run(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			rows, err := st.Bindings(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			color, err := colorEnabled(config.ColorAuto, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), f, report.FromRows(run.Unit, rows), report.Options{Color: color})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&format, formatFlagName, "f", string(report.FormatText), "format for a single run: text, table or json")
	flags.IntP(limitFlagName, "n", viper.GetInt(config.KeyHistoryLimit), "runs to list (0 = all)")
	bindFlagToConfig(flags.Lookup(limitFlagName), config.KeyHistoryLimit)

	return cmd
}

func writeRuns(w io.Writer, runs []store.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "no stored runs")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Run", "Unit", "Path", "Created", "Resolved", "Ambiguous", "Unresolved"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})
	for _, r := range runs {
		table.Append([]string{
			r.ID,
			r.Unit,
			r.Path,
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(r.Resolved),
			strconv.Itoa(r.Ambiguous),
			strconv.Itoa(r.Unresolved),
		})
	}
	table.Render()
	return nil
}
