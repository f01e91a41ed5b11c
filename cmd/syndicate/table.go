package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"syndicate/internal/executions"
	"syndicate/internal/report"
)

// renderExecutionsTable lays out execution history for the CLI listing.
func renderExecutionsTable(list []*executions.Execution, detailed bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Asset", "Status", "Started", "Outcome"})

	for _, execution := range list {
		tw.AppendRow(table.Row{
			execution.ID,
			execution.AssetID,
			string(execution.Status),
			execution.CreatedAt.Local().Format(time.DateTime),
			executionOutcome(execution, detailed),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AlignHeader: text.AlignLeft},
		{Number: 5, AlignHeader: text.AlignLeft, WidthMax: 60},
	})
	return tw.Render()
}

// executionOutcome summarizes the terminal state for the listing: the error
// for failures, per-partner statuses for completions when requested.
func executionOutcome(execution *executions.Execution, detailed bool) string {
	if execution.ErrorMessage != "" {
		return execution.ErrorMessage
	}
	if execution.ReportJSON == "" {
		return ""
	}

	var final report.FinalReport
	if err := json.Unmarshal([]byte(execution.ReportJSON), &final); err != nil {
		return "unreadable report"
	}
	if !detailed {
		return fmt.Sprintf("%d partner(s)", len(final.Results))
	}

	summary := ""
	for i, result := range final.Results {
		if i > 0 {
			summary += ", "
		}
		summary += result.Provider + "=" + string(result.Status)
	}
	return summary
}
