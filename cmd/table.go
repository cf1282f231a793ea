package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/models"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/results"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func printSummary(w io.Writer, summary results.Summary) {
	rows := make([][]string, 0, len(summary.States))
	for _, sc := range summary.StateCounts() {
		rows = append(rows, []string{sc.State, strconv.Itoa(sc.Count)})
	}
	rows = append(rows,
		[]string{"total", strconv.Itoa(summary.Total)},
		[]string{"resolved", strconv.Itoa(summary.Resolved)},
		[]string{"inserted", strconv.Itoa(summary.Inserted)},
	)
	fmt.Fprintln(w, renderTable([]string{"State", "Titles"}, rows, []columnAlignment{alignLeft, alignRight}))
	fmt.Fprintf(w, "Total time: %s (average %s per title)\n", summary.TotalDuration, summary.AverageTime)
}

func printCandidates(w io.Writer, candidates []models.MatchCandidate) {
	if len(candidates) == 0 {
		fmt.Fprintln(w, "No candidates found")
		return
	}
	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, []string{
			c.SourceTitle,
			strings.Join(c.LCCN, ", "),
			strings.Join(c.OCLC, ", "),
			strconv.Itoa(c.Score),
			string(c.Origin),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Title", "LCCN", "OCLC", "Score", "Origin"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func printRecords(w io.Writer, records []models.ResolutionRecord) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Title,
			r.LCCN,
			strings.Join(r.AltLCCN, ", "),
			r.OCLC,
			strings.Join(r.AltOCLC, ", "),
			string(r.Source),
			r.NoMatch,
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Title", "LCCN", "Alt LCCN", "OCLC", "Alt OCLC", "Source", "No match"},
		rows,
		nil,
	))
}
