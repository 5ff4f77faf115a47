package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one table column.
type column struct {
	header string
	align  text.Align
}

func leftColumn(header string) column { return column{header: header, align: text.AlignLeft} }
func rightColumn(header string) column { return column{header: header, align: text.AlignRight} }

// renderTable lays rows out under columns. Short rows are padded and extra
// cells are dropped. A non-empty caption is printed under the table.
func renderTable(columns []column, rows [][]string, caption string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, 0, len(columns))
	for i, col := range columns {
		header[i] = col.header
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       col.align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}
	if caption != "" {
		tw.SetCaption(caption)
	}
	return tw.Render() + "\n"
}
