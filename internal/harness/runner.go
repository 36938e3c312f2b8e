package harness

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openwisp/docker-openwisp-e2e/internal/browser"
	"github.com/openwisp/docker-openwisp-e2e/internal/compose"
	"github.com/openwisp/docker-openwisp-e2e/internal/models"
	"github.com/openwisp/docker-openwisp-e2e/internal/workflow"
)

const (
	seedEntrypoint  = "python manage.py shell --command='import data; data.setup()'"
	seedMountPoint  = "/opt/openwisp/data.py"
	teardownTimeout = 10 * time.Minute
)

type Prober interface {
	Wait(ctx context.Context, url string) error
}

// SessionOpener starts the browser session called name.
type SessionOpener func(ctx context.Context, name string) (browser.Session, error)

type Runner struct {
	suite      *Suite
	prober     Prober
	open       SessionOpener
	collector  *Collector
	fixtureLog io.Writer
}

type RunnerOption func(*Runner)

// WithFixtureLog sets where the output of fixture seeding is written.
func WithFixtureLog(w io.Writer) RunnerOption {
	return func(r *Runner) { r.fixtureLog = w }
}

func NewRunner(suite *Suite, prober Prober, open SessionOpener, collector *Collector, opts ...RunnerOption) *Runner {
	r := &Runner{
		suite:      suite,
		prober:     prober,
		open:       open,
		collector:  collector,
		fixtureLog: io.Discard,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run waits for the stack, runs scenarios one after the other and always
// tears the suite down. A stack that never becomes ready aborts the run
// before any scenario; a failing scenario never stops the next one.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) *models.RunReport {
	cfg := r.suite.Config
	report := &models.RunReport{
		ID:        uuid.NewString(),
		Driver:    cfg.Browser.Driver,
		StartedAt: time.Now(),
	}
	logger := zap.S().Named("runner").With("run", report.ID)

	defer func() {
		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
		defer cancel()
		report.Teardown, report.Diagnostics = r.collector.Teardown(tctx, r.suite)
		report.Failed = r.suite.Failed()
		report.EndedAt = time.Now()
		logger.Infow("run finished", "failed", report.Failed, "duration", report.EndedAt.Sub(report.StartedAt).Round(time.Millisecond))
	}()

	if err := r.setup(ctx); err != nil {
		logger.Errorw("run aborted", "error", err)
		report.Aborted = err
		r.suite.MarkFailed()
		return report
	}

	for i, sc := range scenarios {
		if err := ctx.Err(); err != nil {
			for _, rest := range scenarios[i:] {
				report.Results = append(report.Results, models.ScenarioResult{
					Name:    rest.Name,
					Status:  models.ScenarioStatusSkipped,
					Message: "run cancelled",
				})
			}
			report.Aborted = err
			r.suite.MarkFailed()
			break
		}
		report.Results = append(report.Results, r.runOne(ctx, sc, logger))
	}
	return report
}

func (r *Runner) runOne(ctx context.Context, sc Scenario, logger *zap.SugaredLogger) models.ScenarioResult {
	logger = logger.With("scenario", sc.Name)
	logger.Infow("running scenario", "requires", sc.Requires)

	var res models.ScenarioResult
	if err := r.establish(ctx, sc.Requires); err != nil {
		now := time.Now()
		res = models.ScenarioResult{
			Name:      sc.Name,
			Status:    models.ScenarioStatusFailed,
			Message:   err.Error(),
			StartedAt: now,
			EndedAt:   now,
		}
	} else {
		res = run(ctx, r.suite, sc)
	}

	if !res.Passed() {
		r.suite.MarkFailed()
		logger.Errorw("scenario failed", "message", res.Message, "duration", res.Duration())
		return res
	}
	logger.Infow("scenario passed", "duration", res.Duration())
	return res
}

// establish brings the suite into the state a scenario declared it needs.
func (r *Runner) establish(ctx context.Context, requires []string) error {
	creds := r.suite.Config.Credentials
	for _, req := range requires {
		var sess browser.Session
		switch req {
		case RequiresPrimaryLogin:
			sess = r.suite.Primary
		case RequiresSecondaryLogin:
			sess = r.suite.Secondary
		default:
			return fmt.Errorf("unknown precondition %q", req)
		}
		if sess == nil {
			return fmt.Errorf("precondition %q not met: no session", req)
		}
		if err := r.suite.Library.Authenticate(ctx, sess, creds.Username, creds.Password); err != nil {
			return fmt.Errorf("precondition %q not met: %w", req, err)
		}
	}
	return nil
}

func (r *Runner) setup(ctx context.Context) error {
	cfg := r.suite.Config

	url := cfg.Targets.AppURL + workflow.LoginPath
	zap.S().Infow("waiting for services", "url", url, "max_retries", cfg.Services.MaxRetries, "delay", cfg.Services.DelayRetries)
	if err := r.prober.Wait(ctx, url); err != nil {
		return fmt.Errorf("dashboard login page not reachable: %w", err)
	}

	if cfg.Fixtures.LoadInitData {
		if err := r.seed(ctx); err != nil {
			// the stack may already hold the fixtures
			zap.S().Warnw("failed to load initial data", "error", err)
		}
	}

	primary, err := r.open(ctx, PrimarySession)
	if err != nil {
		return err
	}
	r.suite.Primary = primary

	secondary, err := r.open(ctx, SecondarySession)
	if err != nil {
		return err
	}
	r.suite.Secondary = secondary
	return nil
}

// seed loads the fixture script into the dashboard and restarts the stack.
func (r *Runner) seed(ctx context.Context) error {
	cfg := r.suite.Config
	dataFile, err := filepath.Abs(cfg.Fixtures.DataFile)
	if err != nil {
		return err
	}

	zap.S().Infow("loading initial data", "data_file", dataFile)
	res, err := r.suite.Compose.Run(ctx, compose.RunOptions{
		Service:    cfg.Compose.DashboardService,
		Entrypoint: seedEntrypoint,
		Volumes:    []string{dataFile + ":" + seedMountPoint},
		Remove:     true,
	})
	if err != nil {
		return err
	}
	fmt.Fprint(r.fixtureLog, res.Stdout)
	fmt.Fprint(r.fixtureLog, res.Stderr)
	if res.ExitCode != 0 {
		return fmt.Errorf("fixture script exited with status %d", res.ExitCode)
	}

	up, err := r.suite.Compose.Up(ctx)
	if err != nil {
		return err
	}
	if up.ExitCode != 0 {
		return fmt.Errorf("failed to bring the stack up: %s", up.Combined())
	}
	return nil
}
