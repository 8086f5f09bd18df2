package commands

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var listLimit *int64

func init() {
	listLimit = listCmd.PersistentFlags().Int64("limit", 50, "The maximum number of records to show.")
	listCmd.AddCommand(listFilingsCmd)
	listCmd.AddCommand(listCompaniesCmd)
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Shows what previous crawls stored.",
}

var listFilingsCmd = &cobra.Command{
	Use:   "filings [--limit <n>]",
	Short: "Lists the most recent filings.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sqldb, qry, err := openStore(globals.cfg)
		if err != nil {
			return err
		}
		defer sqldb.Close()

		ctx := cmd.Context()
		filings, err := qry.ListFilings(ctx, *listLimit)
		if err != nil {
			return err
		}
		total, err := qry.CountFilings(ctx)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Date", "Time", "Company", "Type", "Format", "Size", "File"})
		for _, f := range filings {
			t.AppendRow(table.Row{f.Date, f.Time, f.Company, f.Type, f.Format, f.Size, f.FileName})
		}
		t.AppendFooter(table.Row{"", "", "", "", "", "Total", total})
		t.Render()
		return nil
	},
}

var listCompaniesCmd = &cobra.Command{
	Use:   "companies [--limit <n>]",
	Short: "Lists the stored company profiles.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sqldb, qry, err := openStore(globals.cfg)
		if err != nil {
			return err
		}
		defer sqldb.Close()

		companies, err := qry.ListCompanies(cmd.Context(), *listLimit)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Name", "Url", "Attributes"})
		for _, c := range companies {
			t.AppendRow(table.Row{c.Name, c.Url, formatAttributes(c.Attributes)})
		}
		t.Render()
		return nil
	},
}

func formatAttributes(raw string) string {
	var attributes map[string]string
	err := json.Unmarshal([]byte(raw), &attributes)
	if err != nil {
		return raw
	}
	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + ": " + attributes[k]
	}
	return strings.Join(lines, "\n")
}
