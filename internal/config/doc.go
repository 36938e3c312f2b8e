// Package config defines the configuration of the acceptance harness.
//
// The configuration is resolved once, before the first scenario runs, and is
// never mutated afterwards. Every component receives the section it needs.
//
// # Configuration Structure
//
//	Configuration
//	├── Services       - Readiness probe budget
//	├── Targets        - URLs of the stack under test
//	├── Credentials    - Admin credentials
//	├── Browser        - Engine selection and browser timing
//	├── Fixtures       - Optional fixture seeding
//	├── Diagnostics    - Log capture, results database, report
//	├── Compose        - Compose CLI invocation and service names
//	├── ExpectedTasks  - Background tasks that must be registered
//	├── LogFormat      - Logging format
//	└── LogLevel       - Logging verbosity
//
// # Options
//
// Options are read from (highest precedence first) command line flags,
// OPENWISP_E2E_* environment variables, the file passed with --config and the
// defaults below. File keys use the historical flat names.
//
//	┌────────────────────────┬──────────────────────────────┬───────────────────────────────────────┐
//	│ Key                    │ Default                      │ Description                           │
//	├────────────────────────┼──────────────────────────────┼───────────────────────────────────────┤
//	│ services_max_retries   │ 25                           │ Readiness probe attempts              │
//	│ services_delay_retries │ 5s                           │ Delay between probes (or seconds)     │
//	│ app_url                │ https://dashboard.openwisp.. │ Dashboard base URL                    │
//	│ radius_url             │ https://api.openwisp.org     │ RADIUS API base URL                   │
//	│ username / password    │ admin / admin                │ Admin credentials                     │
//	│ driver                 │ chromium                     │ chromium or firefox                   │
//	│ headless               │ true                         │ Run browsers without a window         │
//	│ load_init_data         │ false                        │ Seed fixtures before the run          │
//	│ logs                   │ false                        │ Capture container logs on failure     │
//	│ logs_file              │ openwisp-e2e.log             │ Fixture output and diagnostics        │
//	│ results_db             │ ""                           │ DuckDB results file                   │
//	│ report_file            │ ""                           │ XLSX report                           │
//	│ compose_command        │ docker compose               │ Compose CLI, split with shell rules   │
//	└────────────────────────┴──────────────────────────────┴───────────────────────────────────────┘
//
// # Usage Example
//
//	v := viper.New()
//	config.RegisterFlags(cmd.Flags())
//	_ = config.BindFlags(v, cmd.Flags())
//	_ = config.ReadFile(v)
//	cfg, err := config.Load(v)
//	if err == nil {
//	    err = cfg.Validate()
//	}
//
// DebugMap returns the resolved values for logging with the password hidden:
//
//	zap.S().Infow("configuration loaded", "config", cfg.DebugMap())
package config
