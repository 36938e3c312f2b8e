package config

import (
	"time"

	"github.com/creasty/defaults"
)

const (
	DriverChromium = "chromium"
	DriverFirefox  = "firefox"
)

type Configuration struct {
	Services      Services
	Targets       Targets
	Credentials   Credentials
	Browser       Browser
	Fixtures      Fixtures
	Diagnostics   Diagnostics
	Compose       Compose
	ExpectedTasks []string
	LogFormat     string `default:"console"`
	LogLevel      string `default:"info"`
}

type Services struct {
	MaxRetries   int           `default:"25"`
	DelayRetries time.Duration `default:"5s"`
}

type Targets struct {
	AppURL       string `default:"https://dashboard.openwisp.org"`
	RadiusURL    string `default:"https://api.openwisp.org"`
	Organization string `default:"default"`
	TitleMarker  string `default:"OpenWISP"`
	TopologyURL  string `default:"https://raw.githubusercontent.com/openwisp/docker-openwisp/master/tests/static/network-graph.json"`
}

type Credentials struct {
	Username string `default:"admin"`
	Password string `default:"admin" debugmap:"hidden"`
}

type Browser struct {
	Driver        string        `default:"chromium"`
	Headless      bool          `default:"true"`
	WindowWidth   int           `default:"1366"`
	WindowHeight  int           `default:"768"`
	ActionTimeout time.Duration `default:"30s"`
	SettleDelay   time.Duration `default:"4s"`
	BinaryPath    string
}

type Fixtures struct {
	LoadInitData bool
	DataFile     string `default:"data.py"`
}

type Diagnostics struct {
	Logs       bool
	LogsFile   string `default:"openwisp-e2e.log"`
	ResultsDB  string
	ReportFile string
}

type Compose struct {
	Command          string `default:"docker compose"`
	ProjectDir       string `default:"."`
	DashboardService string `default:"dashboard"`
	WorkerService    string `default:"celery"`
	RadiusService    string `default:"freeradius"`
}

// DefaultExpectedTasks lists the background tasks every worker of the stack
// must have registered.
var DefaultExpectedTasks = []string{
	"openwisp.tasks.radius_tasks",
	"openwisp.tasks.save_snapshot",
	"openwisp.tasks.update_topology",
	"openwisp_controller.config.tasks.create_vpn_dh",
	"openwisp_controller.config.tasks.update_template_related_config_status",
	"openwisp_controller.connection.tasks.update_config",
	"openwisp_notifications.tasks.delete_ignore_object_notification",
	"openwisp_notifications.tasks.delete_notification",
	"openwisp_notifications.tasks.delete_obsolete_objects",
	"openwisp_notifications.tasks.delete_old_notifications",
	"openwisp_notifications.tasks.ns_organization_created",
	"openwisp_notifications.tasks.ns_organization_user_added_or_updated",
	"openwisp_notifications.tasks.ns_organization_user_deleted",
	"openwisp_notifications.tasks.ns_register_unregister_notification_type",
	"openwisp_notifications.tasks.ns_user_created",
	"openwisp_radius.tasks.cleanup_stale_radacct",
	"openwisp_radius.tasks.deactivate_expired_users",
	"openwisp_radius.tasks.delete_old_postauth",
	"openwisp_radius.tasks.delete_old_radacct",
	"openwisp_radius.tasks.delete_old_users",
}

// NewConfigurationWithDefaults returns a configuration with every field set
// to its default value.
func NewConfigurationWithDefaults() *Configuration {
	c := &Configuration{}
	if err := defaults.Set(c); err != nil {
		// defaults only fails on malformed tags
		panic(err)
	}
	c.ExpectedTasks = append([]string(nil), DefaultExpectedTasks...)
	return c
}

type ConfigurationOption func(*Configuration)

func NewConfigurationWithOptionsAndDefaults(opts ...ConfigurationOption) *Configuration {
	c := NewConfigurationWithDefaults()
	for _, o := range opts {
		o(c)
	}
	return c
}

func WithServices(s Services) ConfigurationOption {
	return func(c *Configuration) { c.Services = s }
}

func WithTargets(t Targets) ConfigurationOption {
	return func(c *Configuration) { c.Targets = t }
}

func WithCredentials(cr Credentials) ConfigurationOption {
	return func(c *Configuration) { c.Credentials = cr }
}

func WithBrowser(b Browser) ConfigurationOption {
	return func(c *Configuration) { c.Browser = b }
}

func WithFixtures(f Fixtures) ConfigurationOption {
	return func(c *Configuration) { c.Fixtures = f }
}

func WithDiagnostics(d Diagnostics) ConfigurationOption {
	return func(c *Configuration) { c.Diagnostics = d }
}

func WithCompose(cm Compose) ConfigurationOption {
	return func(c *Configuration) { c.Compose = cm }
}

func WithExpectedTasks(tasks ...string) ConfigurationOption {
	return func(c *Configuration) { c.ExpectedTasks = tasks }
}

func WithLogLevel(level string) ConfigurationOption {
	return func(c *Configuration) { c.LogLevel = level }
}

// DebugMap returns a map suitable for structured logging. The password is
// never included.
func (c Configuration) DebugMap() map[string]any {
	return map[string]any{
		"services_max_retries":   c.Services.MaxRetries,
		"services_delay_retries": c.Services.DelayRetries.String(),
		"app_url":                c.Targets.AppURL,
		"radius_url":             c.Targets.RadiusURL,
		"organization":           c.Targets.Organization,
		"username":               c.Credentials.Username,
		"password":               "(hidden)",
		"driver":                 c.Browser.Driver,
		"headless":               c.Browser.Headless,
		"window":                 []int{c.Browser.WindowWidth, c.Browser.WindowHeight},
		"load_init_data":         c.Fixtures.LoadInitData,
		"logs":                   c.Diagnostics.Logs,
		"logs_file":              c.Diagnostics.LogsFile,
		"results_db":             c.Diagnostics.ResultsDB,
		"report_file":            c.Diagnostics.ReportFile,
		"compose_command":        c.Compose.Command,
		"compose_project_dir":    c.Compose.ProjectDir,
		"expected_tasks":         len(c.ExpectedTasks),
		"log_level":              c.LogLevel,
	}
}
