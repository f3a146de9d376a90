package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	influxrel "github.com/roach88/influxrel"
)

// writeRecords renders decoded records in the requested format.
func writeRecords(w io.Writer, format string, records []influxrel.Record) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	return writeTable(w, records)
}

// writeTable prints records as a table. Columns are the sorted union of all
// record keys; missing cells render empty.
func writeTable(w io.Writer, records []influxrel.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no records")
		return err
	}

	columnSet := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			columnSet[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(columnSet))
	for k := range columnSet {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	table := tablewriter.NewWriter(w)
	table.SetHeader(columns)
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			if val, ok := rec[col]; ok {
				row[i] = fmt.Sprintf("%v", val)
			}
		}
		table.Append(row)
	}
	table.Render()
	return nil
}
