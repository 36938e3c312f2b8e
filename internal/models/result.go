package models

import "time"

type ScenarioStatus string

const (
	ScenarioStatusPassed  ScenarioStatus = "passed"
	ScenarioStatusFailed  ScenarioStatus = "failed"
	ScenarioStatusSkipped ScenarioStatus = "skipped"
)

type ScenarioResult struct {
	Name      string
	Status    ScenarioStatus
	Message   string
	StartedAt time.Time
	EndedAt   time.Time
}

func (r ScenarioResult) Passed() bool {
	return r.Status == ScenarioStatusPassed
}

func (r ScenarioResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// TeardownOutcome summarizes the cleanup performed at the end of a run.
type TeardownOutcome struct {
	Attempted int
	Deleted   int
	Gone      int
	Failed    []string
}

type RunReport struct {
	ID          string
	Driver      string
	StartedAt   time.Time
	EndedAt     time.Time
	Results     []ScenarioResult
	Failed      bool
	Aborted     error
	Teardown    TeardownOutcome
	Diagnostics string
}

func (r RunReport) Counts() (passed, failed, skipped int) {
	for _, res := range r.Results {
		switch res.Status {
		case ScenarioStatusPassed:
			passed++
		case ScenarioStatusFailed:
			failed++
		case ScenarioStatusSkipped:
			skipped++
		}
	}
	return
}
