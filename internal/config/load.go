package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of the environment variables overriding options.
const EnvPrefix = "OPENWISP_E2E"

// RegisterFlags declares one flag per configuration option. Flag names are the
// option names with dashes; their defaults come from the configuration
// defaults so --help shows the effective values.
func RegisterFlags(fs *pflag.FlagSet) {
	d := NewConfigurationWithDefaults()

	fs.String("config", "", "Path to a JSON or YAML file with the options below (e.g. config.json)")
	fs.Int("services-max-retries", d.Services.MaxRetries, "Number of readiness probes before giving up")
	fs.String("services-delay-retries", d.Services.DelayRetries.String(), "Delay between readiness probes (duration or seconds)")
	fs.String("app-url", d.Targets.AppURL, "Dashboard base URL")
	fs.String("radius-url", d.Targets.RadiusURL, "RADIUS API base URL")
	fs.String("organization", d.Targets.Organization, "Organization slug used by the RADIUS token endpoint")
	fs.String("title-marker", d.Targets.TitleMarker, "Text every admin page title must contain")
	fs.String("topology-url", d.Targets.TopologyURL, "Network graph URL used when creating a topology")
	fs.String("username", d.Credentials.Username, "Admin username")
	fs.String("password", d.Credentials.Password, "Admin password")
	fs.String("driver", d.Browser.Driver, "Browser engine: chromium or firefox")
	fs.Bool("headless", d.Browser.Headless, "Run the browsers without a window")
	fs.String("browser-binary", d.Browser.BinaryPath, "Path to the browser executable (chromium only)")
	fs.String("action-timeout", d.Browser.ActionTimeout.String(), "Timeout of a single browser action")
	fs.String("settle-delay", d.Browser.SettleDelay.String(), "Time allowed for pushed updates to reach the second session")
	fs.Bool("load-init-data", d.Fixtures.LoadInitData, "Seed fixture data before running the scenarios")
	fs.String("data-file", d.Fixtures.DataFile, "Fixture script mounted into the dashboard container")
	fs.Bool("logs", d.Diagnostics.Logs, "Capture container logs when a scenario fails")
	fs.String("logs-file", d.Diagnostics.LogsFile, "File receiving fixture output and captured diagnostics")
	fs.String("results-db", d.Diagnostics.ResultsDB, "DuckDB file where run results are stored (empty disables)")
	fs.String("report-file", d.Diagnostics.ReportFile, "XLSX report path (empty disables)")
	fs.String("compose-command", d.Compose.Command, "Compose CLI invocation")
	fs.String("compose-project-dir", d.Compose.ProjectDir, "Directory holding the compose file")
	fs.StringSlice("expected-tasks", nil, "Override the list of background tasks that must be registered")
	fs.String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
	fs.String("log-format", d.LogFormat, "Log format (console or json)")
}

// BindFlags binds every flag to its option key (dashes replaced by
// underscores) so that config-file keys like services_max_retries and flags
// like --services-max-retries address the same option.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	return err
}

// ReadFile loads the optional configuration file referenced by the config key.
func ReadFile(v *viper.Viper) error {
	path := v.GetString("config")
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}
	return nil
}

// Load resolves the configuration from v on top of the defaults. Only keys
// that are explicitly set (file, environment or changed flag) override a
// default.
func Load(v *viper.Viper) (*Configuration, error) {
	c := NewConfigurationWithDefaults()

	var err error
	setInt(v, "services_max_retries", &c.Services.MaxRetries)
	if c.Services.DelayRetries, err = duration(v, "services_delay_retries", c.Services.DelayRetries); err != nil {
		return nil, err
	}
	setString(v, "app_url", &c.Targets.AppURL)
	setString(v, "radius_url", &c.Targets.RadiusURL)
	setString(v, "organization", &c.Targets.Organization)
	setString(v, "title_marker", &c.Targets.TitleMarker)
	setString(v, "topology_url", &c.Targets.TopologyURL)
	setString(v, "username", &c.Credentials.Username)
	setString(v, "password", &c.Credentials.Password)
	setString(v, "driver", &c.Browser.Driver)
	setBool(v, "headless", &c.Browser.Headless)
	setString(v, "browser_binary", &c.Browser.BinaryPath)
	if c.Browser.ActionTimeout, err = duration(v, "action_timeout", c.Browser.ActionTimeout); err != nil {
		return nil, err
	}
	if c.Browser.SettleDelay, err = duration(v, "settle_delay", c.Browser.SettleDelay); err != nil {
		return nil, err
	}
	setBool(v, "load_init_data", &c.Fixtures.LoadInitData)
	setString(v, "data_file", &c.Fixtures.DataFile)
	setBool(v, "logs", &c.Diagnostics.Logs)
	setString(v, "logs_file", &c.Diagnostics.LogsFile)
	setString(v, "results_db", &c.Diagnostics.ResultsDB)
	setString(v, "report_file", &c.Diagnostics.ReportFile)
	setString(v, "compose_command", &c.Compose.Command)
	setString(v, "compose_project_dir", &c.Compose.ProjectDir)
	setString(v, "dashboard_service", &c.Compose.DashboardService)
	setString(v, "worker_service", &c.Compose.WorkerService)
	setString(v, "radius_service", &c.Compose.RadiusService)
	if v.IsSet("expected_tasks") {
		if tasks := v.GetStringSlice("expected_tasks"); len(tasks) > 0 {
			c.ExpectedTasks = tasks
		}
	}
	setString(v, "log_level", &c.LogLevel)
	setString(v, "log_format", &c.LogFormat)

	c.Targets.AppURL = strings.TrimRight(c.Targets.AppURL, "/")
	c.Targets.RadiusURL = strings.TrimRight(c.Targets.RadiusURL, "/")

	return c, nil
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func setInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}

func setBool(v *viper.Viper, key string, dst *bool) {
	if v.IsSet(key) {
		*dst = v.GetBool(key)
	}
}

// duration accepts both Go durations ("5s") and bare numbers, which are read
// as seconds to stay compatible with existing config.json files.
func duration(v *viper.Viper, key string, def time.Duration) (time.Duration, error) {
	if !v.IsSet(key) {
		return def, nil
	}
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return def, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}
