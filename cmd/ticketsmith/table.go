package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"ticketsmith/internal/tickets"
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
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
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

func renderOutcomes(outcomes []tickets.Outcome) string {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{o.Ref, truncateCell(o.Summary, 50), o.TicketKey, outcomeStatus(o)})
	}
	return renderTable([]string{"Source", "Summary", "Ticket", "Status"}, rows, nil)
}

func outcomeStatus(o tickets.Outcome) string {
	switch {
	case o.Failed():
		return "failed: " + truncateCell(o.Err.Error(), 80)
	case o.Created:
		return "created"
	default:
		return "exists"
	}
}

type outcomeView struct {
	tickets.Outcome
	Error string `json:"error,omitempty"`
}

func outcomeViews(outcomes []tickets.Outcome) []outcomeView {
	views := make([]outcomeView, 0, len(outcomes))
	for _, o := range outcomes {
		view := outcomeView{Outcome: o}
		if o.Err != nil {
			view.Error = o.Err.Error()
		}
		views = append(views, view)
	}
	return views
}

func truncateCell(value string, limit int) string {
	runes := []rune(value)
	if limit <= 3 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}
