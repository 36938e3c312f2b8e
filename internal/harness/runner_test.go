package harness_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openwisp/docker-openwisp-e2e/internal/config"
	"github.com/openwisp/docker-openwisp-e2e/internal/harness"
	"github.com/openwisp/docker-openwisp-e2e/internal/models"
	"github.com/openwisp/docker-openwisp-e2e/internal/workflow"
	"github.com/openwisp/docker-openwisp-e2e/pkg/command"
)

const appURL = "https://dashboard.test"

func passing(name string, ran *[]string) harness.Scenario {
	return harness.Scenario{
		Name: name,
		Run: func(_ context.Context, t *harness.T) {
			*ran = append(*ran, t.Name())
			t.Expect(true).To(BeTrue())
		},
	}
}

var _ = Describe("Runner", func() {
	var (
		ctx context.Context
		e   *env
		ran []string
	)

	BeforeEach(func() {
		ctx = context.Background()
		e = newEnv(appURL)
		ran = nil
	})

	Context("setup", func() {
		// Given a stack whose login page never answers
		// When the run starts
		// Then no scenario should run, the run should be aborted and failed
		It("should abort before any scenario when the stack is unreachable", func() {
			e.prober.err = errors.New("gave up after 25 attempts")

			report := e.newRunner(nil).Run(ctx, []harness.Scenario{passing("a", &ran)})

			Expect(ran).To(BeEmpty())
			Expect(report.Results).To(BeEmpty())
			Expect(report.Aborted).To(MatchError(ContainSubstring("dashboard login page not reachable")))
			Expect(report.Failed).To(BeTrue())
			Expect(e.sessions).To(BeEmpty())
			Expect(report.EndedAt).NotTo(BeZero())
		})

		It("should probe the login page of the dashboard", func() {
			e.newRunner(nil).Run(ctx, nil)

			Expect(e.prober.calls).To(Equal([]string{appURL + workflow.LoginPath}))
		})

		It("should open both sessions and close them at the end", func() {
			report := e.newRunner(nil).Run(ctx, []harness.Scenario{passing("a", &ran)})

			Expect(report.Failed).To(BeFalse())
			Expect(report.ID).NotTo(BeEmpty())
			Expect(e.sessions).To(HaveLen(2))
			Expect(e.sessions[0].Name()).To(Equal(harness.PrimarySession))
			Expect(e.sessions[1].Name()).To(Equal(harness.SecondarySession))
			for _, s := range e.sessions {
				Expect(s.Closed()).To(BeTrue())
			}
		})

		It("should abort when a session cannot be opened", func() {
			e.openError = errors.New("browser binary not found")

			report := e.newRunner(nil).Run(ctx, []harness.Scenario{passing("a", &ran)})

			Expect(ran).To(BeEmpty())
			Expect(report.Aborted).To(MatchError("browser binary not found"))
			Expect(report.Failed).To(BeTrue())
		})

		// Given fixture loading is enabled
		// When the run starts
		// Then the fixture script should run in a one-off dashboard container
		// and its output should go to the fixture log
		It("should seed the fixtures when asked to", func() {
			e.cfg.Fixtures = config.Fixtures{LoadInitData: true, DataFile: "data.py"}
			e.runner.On("--entrypoint", command.Result{Stdout: "created 3 users\n"})

			report := e.newRunner(nil).Run(ctx, nil)

			Expect(report.Failed).To(BeFalse())
			calls := e.runner.Calls()
			Expect(calls).To(HaveLen(2))
			Expect(calls[0]).To(ContainSubstring("docker compose run --rm --entrypoint python manage.py shell"))
			Expect(calls[0]).To(ContainSubstring("data.py:/opt/openwisp/data.py dashboard"))
			Expect(calls[1]).To(Equal("docker compose up --detach"))
			Expect(e.fixtures.String()).To(Equal("created 3 users\n"))
		})

		It("should go on when seeding fails", func() {
			e.cfg.Fixtures.LoadInitData = true
			e.runner.On("--entrypoint", command.Result{ExitCode: 1, Stderr: "IntegrityError\n"})

			report := e.newRunner(nil).Run(ctx, []harness.Scenario{passing("a", &ran)})

			Expect(report.Aborted).To(BeNil())
			Expect(ran).To(Equal([]string{"a"}))
			Expect(e.runner.Count("up --detach")).To(BeZero())
		})

		It("should not seed by default", func() {
			e.newRunner(nil).Run(ctx, nil)

			Expect(e.runner.Calls()).To(BeEmpty())
		})
	})

	Context("isolation", func() {
		// Given a failing scenario between two passing ones
		// When the run completes
		// Then the failure should be attributed to the failing scenario only
		It("should run every scenario whatever the outcome of the others", func() {
			failing := harness.Scenario{
				Name: "b",
				Run: func(_ context.Context, t *harness.T) {
					ran = append(ran, t.Name())
					t.Expect("tasks").To(Equal("no tasks"))
					ran = append(ran, "unreachable")
				},
			}

			report := e.newRunner(nil).Run(ctx, []harness.Scenario{passing("a", &ran), failing, passing("c", &ran)})

			Expect(ran).To(Equal([]string{"a", "b", "c"}))
			Expect(report.Results).To(HaveLen(3))
			Expect(report.Results[0].Status).To(Equal(models.ScenarioStatusPassed))
			Expect(report.Results[1].Status).To(Equal(models.ScenarioStatusFailed))
			Expect(report.Results[1].Message).To(ContainSubstring("<string>: no tasks"))
			Expect(report.Results[2].Status).To(Equal(models.ScenarioStatusPassed))
			Expect(report.Failed).To(BeTrue())
		})

		It("should turn panics into failures", func() {
			panicking := harness.Scenario{
				Name: "boom",
				Run: func(context.Context, *harness.T) {
					var m map[string]int
					m["x"] = 1
				},
			}

			report := e.newRunner(nil).Run(ctx, []harness.Scenario{panicking, passing("after", &ran)})

			Expect(report.Results[0].Status).To(Equal(models.ScenarioStatusFailed))
			Expect(report.Results[0].Message).To(HavePrefix("panic:"))
			Expect(ran).To(Equal([]string{"after"}))
		})

		It("should fail a scenario on Must with an error", func() {
			sc := harness.Scenario{
				Name: "must",
				Run: func(_ context.Context, t *harness.T) {
					t.Must(errors.New("compose not installed"))
				},
			}

			report := e.newRunner(nil).Run(ctx, []harness.Scenario{sc})

			Expect(report.Results[0].Message).To(ContainSubstring("compose not installed"))
		})

		It("should mark the remaining scenarios skipped once cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			first := harness.Scenario{
				Name: "first",
				Run: func(context.Context, *harness.T) {
					cancel()
				},
			}

			report := e.newRunner(nil).Run(cctx, []harness.Scenario{first, passing("second", &ran)})

			Expect(ran).To(BeEmpty())
			Expect(report.Results).To(HaveLen(2))
			Expect(report.Results[1].Status).To(Equal(models.ScenarioStatusSkipped))
			Expect(report.Aborted).To(MatchError(context.Canceled))
			Expect(e.sessions[0].Closed()).To(BeTrue())
		})
	})

	Context("preconditions", func() {
		It("should log the required sessions in before the scenario runs", func() {
			var states []bool
			sc := harness.Scenario{
				Name:     "needs login",
				Requires: []string{harness.RequiresPrimaryLogin, harness.RequiresSecondaryLogin},
				Run: func(_ context.Context, _ *harness.T) {
					for _, s := range e.sessions {
						states = append(states, s.State["authenticated"])
					}
				},
			}

			report := e.newRunner(nil).Run(ctx, []harness.Scenario{sc})

			Expect(report.Failed).To(BeFalse())
			Expect(states).To(Equal([]bool{true, true}))
		})

		// Given a session already logged in
		// When a second scenario requires the login
		// Then the login form should not be submitted again
		It("should authenticate idempotently", func() {
			sc := func(name string) harness.Scenario {
				return harness.Scenario{
					Name:     name,
					Requires: []string{harness.RequiresPrimaryLogin},
					Run: func(ctx context.Context, t *harness.T) {
						t.Must(t.Primary.Navigate(ctx, t.Library.URL(workflow.UserListPath)))
					},
				}
			}

			report := e.newRunner(nil).Run(ctx, []harness.Scenario{sc("one"), sc("two")})

			Expect(report.Failed).To(BeFalse())
			loginForms := 0
			for _, url := range e.sessions[0].Visited {
				if url == appURL+workflow.LoginPath {
					loginForms++
				}
			}
			Expect(loginForms).To(Equal(1))
		})

		It("should fail a scenario whose login is rejected", func() {
			e.cfg.Credentials.Password = "wrong"
			report := e.newRunner(nil).Run(ctx, []harness.Scenario{{
				Name:     "needs login",
				Requires: []string{harness.RequiresPrimaryLogin},
				Run: func(context.Context, *harness.T) {
					ran = append(ran, "needs login")
				},
			}})

			Expect(ran).To(BeEmpty())
			Expect(report.Results[0].Status).To(Equal(models.ScenarioStatusFailed))
			Expect(report.Results[0].Message).To(ContainSubstring("login failed"))
			Expect(report.Results[0].Message).NotTo(ContainSubstring("wrong"))
		})

		It("should fail a scenario with an unknown precondition", func() {
			report := e.newRunner(nil).Run(ctx, []harness.Scenario{{
				Name:     "odd",
				Requires: []string{"fixtures loaded"},
				Run:      func(context.Context, *harness.T) {},
			}})

			Expect(report.Results[0].Message).To(Equal(`unknown precondition "fixtures loaded"`))
		})
	})

	Context("teardown", func() {
		// Given N records created during the run, one removed out of band
		// When the run completes
		// Then N deletions should be attempted and the missing one tolerated
		It("should attempt the deletion of every tracked record", func() {
			sc := harness.Scenario{
				Name:     "create",
				Requires: []string{harness.RequiresPrimaryLogin},
				Run: func(ctx context.Context, t *harness.T) {
					t.Must(t.Library.CreateMobileLocation(ctx, t.Primary, "loc-a"))
					t.Must(t.Library.CreateMobileLocation(ctx, t.Primary, "loc-b"))
					t.Must(t.Library.CreateNetworkTopology(ctx, t.Primary, "topo"))
					// someone else deletes loc-b
					detail, err := t.Library.OpenResourceDetail(ctx, t.Secondary, "loc-b", workflow.LocationListPath)
					t.Must(err)
					t.Must(t.Library.DeleteResource(ctx, t.Secondary, detail))
				},
			}
			sc.Requires = append(sc.Requires, harness.RequiresSecondaryLogin)

			report := e.newRunner(nil).Run(ctx, []harness.Scenario{sc})

			Expect(report.Results[0].Status).To(Equal(models.ScenarioStatusPassed))
			Expect(report.Teardown.Attempted).To(Equal(3))
			Expect(report.Teardown.Deleted).To(Equal(2))
			Expect(report.Teardown.Gone).To(Equal(1))
			Expect(report.Teardown.Failed).To(BeEmpty())
			Expect(e.admin.Records(workflow.LocationListPath)).To(BeEmpty())
			Expect(e.admin.Records(workflow.TopologyListPath)).To(BeEmpty())
			Expect(e.tracker.Len()).To(BeZero())
		})

		It("should clean up after failed scenarios too", func() {
			sc := harness.Scenario{
				Name:     "create then fail",
				Requires: []string{harness.RequiresPrimaryLogin},
				Run: func(ctx context.Context, t *harness.T) {
					t.Must(t.Library.CreateSuperuser(ctx, t.Primary, "x@example.com", "tmp_user"))
					t.Fatalf("stop here")
				},
			}

			report := e.newRunner(nil).Run(ctx, []harness.Scenario{sc})

			Expect(report.Failed).To(BeTrue())
			Expect(report.Teardown.Deleted).To(Equal(1))
			Expect(e.admin.Deleted()).To(Equal([]string{"tmp_user"}))
		})

		It("should not capture diagnostics after a successful run", func() {
			e.cfg.Diagnostics.Logs = true
			e.healthyStack()

			report := e.newRunner(nil).Run(ctx, []harness.Scenario{passing("a", &ran)})

			Expect(report.Diagnostics).To(BeEmpty())
			Expect(e.runner.Count("logs")).To(BeZero())
			Expect(e.logsFile.Len()).To(BeZero())
		})

		It("should not capture diagnostics when log capture is off", func() {
			e.healthyStack()
			report := e.newRunner(nil).Run(ctx, []harness.Scenario{{
				Name: "fail",
				Run:  func(_ context.Context, t *harness.T) { t.Fatalf("nope") },
			}})

			Expect(report.Failed).To(BeTrue())
			Expect(report.Diagnostics).To(BeEmpty())
			Expect(e.runner.Calls()).To(BeEmpty())
		})

		// Given a failed run with log capture on
		// When the suite is torn down
		// Then the compose logs and the console history should be written to
		// the logs file and the terminal
		It("should capture diagnostics after a failed run", func() {
			e.cfg.Diagnostics.Logs = true
			e.healthyStack()
			sc := harness.Scenario{
				Name:     "console",
				Requires: []string{harness.RequiresPrimaryLogin},
				Run: func(_ context.Context, t *harness.T) {
					e.sessions[0].Log(models.ConsoleEntry{Level: models.ConsoleLevelError, Text: "Uncaught TypeError"})
					t.ExpectNoConsoleErrors(t.Primary, "/admin/")
				},
			}

			report := e.newRunner(nil).Run(ctx, []harness.Scenario{sc})

			Expect(report.Results[0].Message).To(ContainSubstring("/admin/"))
			Expect(report.Diagnostics).To(ContainSubstring("=== compose logs ===\ndashboard-1 | booted"))
			Expect(report.Diagnostics).To(ContainSubstring("=== compose ps ==="))
			Expect(report.Diagnostics).To(ContainSubstring("openwisp-dashboard-1 Up 2 minutes"))
			Expect(report.Diagnostics).To(ContainSubstring("=== console primary ===\n[ERROR] Uncaught TypeError"))
			Expect(e.logsFile.String()).To(ContainSubstring(report.Diagnostics))
			Expect(e.terminal.String()).To(ContainSubstring(report.Diagnostics))
		})

		It("should report a capture error inside the diagnostics", func() {
			e.cfg.Diagnostics.Logs = true
			e.runner.Fail("logs", errors.New("docker: not found"))

			report := e.newRunner(nil).Run(ctx, []harness.Scenario{{
				Name: "fail",
				Run:  func(_ context.Context, t *harness.T) { t.Fatalf("nope") },
			}})

			Expect(report.Diagnostics).To(ContainSubstring("failed to capture: docker: not found"))
		})
	})
})
