package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jzelinskie/cobrautil/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/openwisp/docker-openwisp-e2e/internal/browser"
	"github.com/openwisp/docker-openwisp-e2e/internal/browser/chromium"
	"github.com/openwisp/docker-openwisp-e2e/internal/browser/firefox"
	"github.com/openwisp/docker-openwisp-e2e/internal/compose"
	"github.com/openwisp/docker-openwisp-e2e/internal/config"
	"github.com/openwisp/docker-openwisp-e2e/internal/harness"
	"github.com/openwisp/docker-openwisp-e2e/internal/logging"
	"github.com/openwisp/docker-openwisp-e2e/internal/models"
	"github.com/openwisp/docker-openwisp-e2e/internal/report"
	"github.com/openwisp/docker-openwisp-e2e/internal/store"
	"github.com/openwisp/docker-openwisp-e2e/internal/verifier"
	"github.com/openwisp/docker-openwisp-e2e/internal/workflow"
	"github.com/openwisp/docker-openwisp-e2e/pkg/command"
	"github.com/openwisp/docker-openwisp-e2e/pkg/probe"
)

// errRunFailed is returned when the suite ran and at least one scenario
// failed. The summary already explains why.
var errRunFailed = errors.New("run failed")

func newRootCommand() *cobra.Command {
	v := viper.New()
	var scenarios []string

	cmd := &cobra.Command{
		Use:   "openwisp-e2e",
		Short: "End-to-end acceptance suite for a running OpenWISP docker stack",
		Long: `Runs the acceptance scenarios against a deployed stack: admin login,
console errors, websocket propagation, topology, user management, password
reset, background tasks, RADIUS and container health.

Options come from flags, OPENWISP_E2E_* environment variables and the file
given with --config, in that order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE:       cobrautil.SyncViperPreRunE(config.EnvPrefix),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfiguration(v)
			if err != nil {
				return err
			}
			return runSuite(cmd, cfg, scenarios)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().StringSliceVar(&scenarios, "scenario", nil, "Run only the named scenarios (repeatable, see the scenarios command)")
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		panic(err)
	}

	cmd.AddCommand(newScenariosCommand(), newHistoryCommand())
	return cmd
}

func loadConfiguration(v *viper.Viper) (*config.Configuration, error) {
	if err := config.ReadFile(v); err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate configuration: %w", err)
	}
	return cfg, nil
}

func runSuite(cmd *cobra.Command, cfg *config.Configuration, names []string) error {
	selected, err := harness.Select(harness.Catalog(), names)
	if err != nil {
		return err
	}

	logsFile := logging.NewRotatingFile(cfg.Diagnostics.LogsFile)
	defer logsFile.Close()

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: logsFile})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	undo := zap.ReplaceGlobals(logger)
	defer func() {
		_ = logger.Sync()
		undo()
	}()
	logger.Info("starting acceptance run", zap.Any("configuration", cfg.DebugMap()), zap.Int("scenarios", len(selected)))

	c, err := compose.New(command.NewExecRunner(cfg.Compose.ProjectDir), cfg.Compose.Command)
	if err != nil {
		return fmt.Errorf("invalid compose command: %w", err)
	}

	tracker := harness.NewResourceTracker()
	lib := workflow.NewLibrary(cfg.Targets.AppURL, tracker,
		workflow.WithOrganization(cfg.Targets.Organization),
		workflow.WithTopologyURL(cfg.Targets.TopologyURL),
	)
	ver := verifier.New(c,
		verifier.WithWorkerService(cfg.Compose.WorkerService),
		verifier.WithRadiusService(cfg.Compose.RadiusService),
	)
	suite := harness.NewSuite(cfg, tracker, lib, ver, c)

	factory := browser.NewFactory().
		Register(config.DriverChromium, chromium.New).
		Register(config.DriverFirefox, firefox.New)
	open := func(ctx context.Context, name string) (browser.Session, error) {
		return factory.NewSession(ctx, cfg.Browser, name)
	}

	runner := harness.NewRunner(suite,
		probe.New(cfg.Services.MaxRetries, cfg.Services.DelayRetries),
		open,
		harness.NewCollector(c, logsFile, cmd.ErrOrStderr()),
		harness.WithFixtureLog(logsFile),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep := runner.Run(ctx, selected)
	report.PrintSummary(cmd.OutOrStdout(), rep)

	if err := persist(ctx, cfg, rep); err != nil {
		zap.S().Errorw("failed to persist run results", "error", err)
	}

	if rep.Failed {
		return errRunFailed
	}
	return nil
}

// persist stores the run in the results database and writes the XLSX
// report, each when configured.
func persist(ctx context.Context, cfg *config.Configuration, rep *models.RunReport) error {
	var errs []error
	if path := cfg.Diagnostics.ResultsDB; path != "" {
		errs = append(errs, saveResults(context.WithoutCancel(ctx), path, rep))
	}
	if path := cfg.Diagnostics.ReportFile; path != "" {
		if err := report.WriteXLSX(path, rep); err != nil {
			errs = append(errs, fmt.Errorf("failed to write report %s: %w", path, err))
		} else {
			zap.S().Infow("report written", "path", path)
		}
	}
	return errors.Join(errs...)
}

func saveResults(ctx context.Context, path string, rep *models.RunReport) error {
	s, err := openStore(ctx, path)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.SaveReport(ctx, rep); err != nil {
		return fmt.Errorf("failed to save run %s: %w", rep.ID, err)
	}
	zap.S().Infow("run results saved", "path", path, "run", rep.ID)
	return nil
}

func openStore(ctx context.Context, path string) (*store.Store, error) {
	db, err := store.NewDB(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results database %s: %w", path, err)
	}
	s := store.NewStore(db)
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to migrate results database %s: %w", path, err)
	}
	return s, nil
}
