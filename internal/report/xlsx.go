package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/openwisp/docker-openwisp-e2e/internal/models"
)

const (
	ScenariosSheet   = "Scenarios"
	DiagnosticsSheet = "Diagnostics"

	defaultSheet = "Sheet1"
)

var scenarioHeader = []any{"#", "Scenario", "Status", "Started", "Duration (s)", "Message"}

// WriteXLSX saves r as a workbook at path: one row per scenario on the
// Scenarios sheet, the run summary and captured diagnostics on the
// Diagnostics sheet.
func WriteXLSX(path string, r *models.RunReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheet, ScenariosSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(DiagnosticsSheet); err != nil {
		return err
	}

	if err := writeScenarios(f, r); err != nil {
		return fmt.Errorf("failed to write %s sheet: %w", ScenariosSheet, err)
	}
	if err := writeDiagnostics(f, r); err != nil {
		return fmt.Errorf("failed to write %s sheet: %w", DiagnosticsSheet, err)
	}

	return f.SaveAs(path)
}

func writeScenarios(f *excelize.File, r *models.RunReport) error {
	if err := f.SetSheetRow(ScenariosSheet, "A1", &scenarioHeader); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(ScenariosSheet, "A1", "F1", bold); err != nil {
		return err
	}

	for i, res := range r.Results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		started := ""
		if !res.StartedAt.IsZero() {
			started = res.StartedAt.Format(time.RFC3339)
		}
		row := []any{i + 1, res.Name, string(res.Status), started, res.Duration().Seconds(), res.Message}
		if err := f.SetSheetRow(ScenariosSheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(ScenariosSheet, "B", "B", 24); err != nil {
		return err
	}
	return f.SetColWidth(ScenariosSheet, "F", "F", 80)
}

func writeDiagnostics(f *excelize.File, r *models.RunReport) error {
	passed, failed, skipped := r.Counts()
	verdict := "passed"
	if r.Failed {
		verdict = "failed"
	}
	aborted := ""
	if r.Aborted != nil {
		aborted = r.Aborted.Error()
	}

	rows := [][]any{
		{"Run", r.ID},
		{"Driver", r.Driver},
		{"Started", r.StartedAt.Format(time.RFC3339)},
		{"Ended", r.EndedAt.Format(time.RFC3339)},
		{"Verdict", verdict},
		{"Aborted", aborted},
		{"Passed", passed},
		{"Failed", failed},
		{"Skipped", skipped},
		{"Teardown attempted", r.Teardown.Attempted},
		{"Teardown deleted", r.Teardown.Deleted},
		{"Teardown already gone", r.Teardown.Gone},
		{"Teardown failures", strings.Join(r.Teardown.Failed, "\n")},
	}
	if r.Diagnostics != "" {
		rows = append(rows, []any{"Diagnostics", ""})
		for _, line := range strings.Split(r.Diagnostics, "\n") {
			rows = append(rows, []any{"", line})
		}
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(DiagnosticsSheet, cell, &rows[i]); err != nil {
			return err
		}
	}
	return f.SetColWidth(DiagnosticsSheet, "A", "A", 24)
}
