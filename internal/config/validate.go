package config

import (
	"net/url"

	srvErrors "github.com/openwisp/docker-openwisp-e2e/pkg/errors"
)

func (c Configuration) Validate() error {
	if c.Services.MaxRetries < 1 {
		return srvErrors.NewInvalidConfigurationError("services_max_retries", "must be at least 1")
	}
	if c.Services.DelayRetries < 0 {
		return srvErrors.NewInvalidConfigurationError("services_delay_retries", "must not be negative")
	}
	for field, raw := range map[string]string{"app_url": c.Targets.AppURL, "radius_url": c.Targets.RadiusURL} {
		u, err := url.Parse(raw)
		if err != nil {
			return srvErrors.NewInvalidConfigurationError(field, err.Error())
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return srvErrors.NewInvalidConfigurationError(field, "scheme must be http or https")
		}
		if u.Host == "" {
			return srvErrors.NewInvalidConfigurationError(field, "host is empty")
		}
	}
	if c.Targets.Organization == "" {
		return srvErrors.NewInvalidConfigurationError("organization", "must not be empty")
	}
	if c.Credentials.Username == "" {
		return srvErrors.NewInvalidConfigurationError("username", "must not be empty")
	}
	if c.Browser.Driver != DriverChromium && c.Browser.Driver != DriverFirefox {
		return srvErrors.NewInvalidConfigurationError("driver", "must be 'chromium' or 'firefox', got '"+c.Browser.Driver+"'")
	}
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		return srvErrors.NewInvalidConfigurationError("window size", "width and height must be positive")
	}
	if c.Compose.Command == "" {
		return srvErrors.NewInvalidConfigurationError("compose_command", "must not be empty")
	}
	if c.Fixtures.LoadInitData && c.Fixtures.DataFile == "" {
		return srvErrors.NewInvalidConfigurationError("data_file", "required when load_init_data is set")
	}
	if len(c.ExpectedTasks) == 0 {
		return srvErrors.NewInvalidConfigurationError("expected_tasks", "must not be empty")
	}
	return nil
}
