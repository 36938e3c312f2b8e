// Package report renders a finished run: a colored verdict for the terminal
// and an XLSX workbook for archiving.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/openwisp/docker-openwisp-e2e/internal/models"
)

var (
	passColor = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	skipColor = color.New(color.FgYellow)
	dimColor  = color.New(color.Faint)
)

const messageIndent = "      "

// PrintSummary writes one line per scenario followed by the run verdict.
func PrintSummary(w io.Writer, r *models.RunReport) {
	for _, res := range r.Results {
		label(res.Status).Fprint(w, statusLabel(res.Status))
		fmt.Fprintf(w, "  %s", res.Name)
		if res.Status != models.ScenarioStatusSkipped {
			dimColor.Fprintf(w, " (%s)", res.Duration().Round(time.Millisecond))
		}
		fmt.Fprintln(w)
		if res.Status == models.ScenarioStatusFailed && res.Message != "" {
			for _, line := range strings.Split(strings.TrimRight(res.Message, "\n"), "\n") {
				fmt.Fprintln(w, messageIndent+line)
			}
		}
	}

	fmt.Fprintln(w, strings.Repeat("-", 60))
	if r.Aborted != nil {
		failColor.Fprint(w, "run aborted")
		fmt.Fprintf(w, ": %v\n", r.Aborted)
	}

	passed, failed, skipped := r.Counts()
	fmt.Fprintf(w, "%d scenarios: %d passed, %d failed, %d skipped\n", len(r.Results), passed, failed, skipped)

	t := r.Teardown
	fmt.Fprintf(w, "teardown: %d attempted, %d deleted, %d already gone, %d failed\n", t.Attempted, t.Deleted, t.Gone, len(t.Failed))
	for _, f := range t.Failed {
		fmt.Fprintln(w, messageIndent+f)
	}

	fmt.Fprintf(w, "run %s ", r.ID)
	if r.Failed {
		failColor.Fprint(w, "FAILED")
	} else {
		passColor.Fprint(w, "PASSED")
	}
	dimColor.Fprintf(w, " in %s\n", r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond))
}

func label(s models.ScenarioStatus) *color.Color {
	switch s {
	case models.ScenarioStatusPassed:
		return passColor
	case models.ScenarioStatusFailed:
		return failColor
	default:
		return skipColor
	}
}

func statusLabel(s models.ScenarioStatus) string {
	switch s {
	case models.ScenarioStatusPassed:
		return "PASS"
	case models.ScenarioStatusFailed:
		return "FAIL"
	default:
		return "SKIP"
	}
}
