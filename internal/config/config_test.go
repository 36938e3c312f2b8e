package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/openwisp/docker-openwisp-e2e/internal/config"
	srvErrors "github.com/openwisp/docker-openwisp-e2e/pkg/errors"
)

var _ = Describe("Configuration", func() {
	var (
		v  *viper.Viper
		fs *pflag.FlagSet
	)

	BeforeEach(func() {
		v = viper.New()
		fs = pflag.NewFlagSet("test", pflag.ContinueOnError)
		config.RegisterFlags(fs)
		Expect(config.BindFlags(v, fs)).To(Succeed())
	})

	Context("defaults", func() {
		It("should resolve the documented defaults", func() {
			cfg, err := config.Load(v)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.Services.MaxRetries).To(Equal(25))
			Expect(cfg.Services.DelayRetries).To(Equal(5 * time.Second))
			Expect(cfg.Browser.Driver).To(Equal(config.DriverChromium))
			Expect(cfg.Browser.Headless).To(BeTrue())
			Expect(cfg.Browser.WindowWidth).To(Equal(1366))
			Expect(cfg.Browser.WindowHeight).To(Equal(768))
			Expect(cfg.Credentials.Username).To(Equal("admin"))
			Expect(cfg.ExpectedTasks).To(HaveLen(len(config.DefaultExpectedTasks)))
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should not share the default task slice", func() {
			cfg := config.NewConfigurationWithDefaults()
			cfg.ExpectedTasks[0] = "changed"
			Expect(config.DefaultExpectedTasks[0]).To(Equal("openwisp.tasks.radius_tasks"))
		})
	})

	Context("file", func() {
		// Given a legacy config.json with flat keys and delays in seconds
		// When the configuration is loaded
		// Then the values override the defaults
		It("should read flat keys and numeric delays", func() {
			dir := GinkgoT().TempDir()
			path := filepath.Join(dir, "config.json")
			content := `{
				"services_max_retries": 3,
				"services_delay_retries": 2,
				"app_url": "https://localhost/",
				"driver": "firefox",
				"headless": false,
				"logs": true
			}`
			Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
			Expect(fs.Parse([]string{"--config", path})).To(Succeed())

			Expect(config.ReadFile(v)).To(Succeed())
			cfg, err := config.Load(v)

			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Services.MaxRetries).To(Equal(3))
			Expect(cfg.Services.DelayRetries).To(Equal(2 * time.Second))
			Expect(cfg.Targets.AppURL).To(Equal("https://localhost"))
			Expect(cfg.Browser.Driver).To(Equal(config.DriverFirefox))
			Expect(cfg.Browser.Headless).To(BeFalse())
			Expect(cfg.Diagnostics.Logs).To(BeTrue())
		})

		It("should fail on a missing file", func() {
			Expect(fs.Parse([]string{"--config", "/does/not/exist.json"})).To(Succeed())
			Expect(config.ReadFile(v)).NotTo(Succeed())
		})
	})

	Context("flags", func() {
		It("should let changed flags override defaults", func() {
			Expect(fs.Parse([]string{"--settle-delay", "250ms", "--expected-tasks", "a,b"})).To(Succeed())

			cfg, err := config.Load(v)

			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Browser.SettleDelay).To(Equal(250 * time.Millisecond))
			Expect(cfg.ExpectedTasks).To(Equal([]string{"a", "b"}))
		})

		It("should reject malformed durations", func() {
			Expect(fs.Parse([]string{"--action-timeout", "soon"})).To(Succeed())
			_, err := config.Load(v)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("Validate", func() {
		DescribeTable("should reject invalid values",
			func(opt config.ConfigurationOption, field string) {
				cfg := config.NewConfigurationWithOptionsAndDefaults(opt)
				err := cfg.Validate()
				Expect(err).To(HaveOccurred())
				Expect(srvErrors.IsInvalidConfigurationError(err)).To(BeTrue())
				Expect(err.Error()).To(ContainSubstring(field))
			},
			Entry("unknown driver", config.WithBrowser(config.Browser{Driver: "safari", WindowWidth: 1, WindowHeight: 1}), "driver"),
			Entry("zero retries", config.WithServices(config.Services{MaxRetries: 0}), "services_max_retries"),
			Entry("relative app url", config.WithTargets(config.Targets{AppURL: "/admin", RadiusURL: "https://r", Organization: "o"}), "app_url"),
			Entry("no tasks", config.WithExpectedTasks(), "expected_tasks"),
			Entry("fixtures without file", config.WithFixtures(config.Fixtures{LoadInitData: true}), "data_file"),
		)
	})

	It("should hide the password in DebugMap", func() {
		cfg := config.NewConfigurationWithOptionsAndDefaults(
			config.WithCredentials(config.Credentials{Username: "root", Password: "s3cret"}),
		)
		Expect(cfg.DebugMap()).To(HaveKeyWithValue("password", "(hidden)"))
		Expect(cfg.DebugMap()).NotTo(ContainElement("s3cret"))
	})
})
