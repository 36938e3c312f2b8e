package browser_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openwisp/docker-openwisp-e2e/internal/browser"
	"github.com/openwisp/docker-openwisp-e2e/internal/browser/browsertest"
	"github.com/openwisp/docker-openwisp-e2e/internal/config"
	"github.com/openwisp/docker-openwisp-e2e/internal/models"
)

var _ = Describe("ConsoleBuffer", func() {
	// Given entries added from several goroutines
	// When we drain the buffer
	// Then every entry should be returned once and the buffer emptied
	It("should drain every entry exactly once", func() {
		var (
			buf browser.ConsoleBuffer
			wg  sync.WaitGroup
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				buf.Add(models.ConsoleEntry{Level: models.ConsoleLevelInfo, Text: "x"})
			}()
		}
		wg.Wait()

		Expect(buf.Drain()).To(HaveLen(20))
		Expect(buf.Drain()).To(BeEmpty())
	})
})

var _ = Describe("ErrorEntries", func() {
	It("should keep only error level entries", func() {
		logs := []models.ConsoleEntry{
			{Level: models.ConsoleLevelInfo, Text: "loaded"},
			{Level: models.ConsoleLevelError, Text: "Uncaught TypeError"},
			{Level: models.ConsoleLevelWarning, Text: "deprecated"},
		}

		errs := browser.ErrorEntries(logs)

		Expect(errs).To(HaveLen(1))
		Expect(errs[0].Text).To(Equal("Uncaught TypeError"))
	})

	It("should return an empty list for a clean console", func() {
		Expect(browser.ErrorEntries(nil)).To(BeEmpty())
	})
})

var _ = Describe("Factory", func() {
	var (
		ctx     context.Context
		site    *browsertest.Site
		created []*browsertest.Session
		factory *browser.Factory
		cfg     config.Browser
	)

	BeforeEach(func() {
		ctx = context.Background()
		site = browsertest.NewSite()
		created = nil
		factory = browser.NewFactory().Register("fake", browsertest.Constructor(site, &created))
		cfg = config.Browser{Driver: "fake", Headless: true, WindowWidth: 1366, WindowHeight: 768, ActionTimeout: time.Second}
	})

	// Given a factory with a registered backend
	// When we create a session for that driver
	// Then the backend constructor should receive the session name
	It("should build sessions through the configured backend", func() {
		s, err := factory.NewSession(ctx, cfg, "primary")

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Name()).To(Equal("primary"))
		Expect(created).To(HaveLen(1))
	})

	It("should fail for an unknown driver", func() {
		cfg.Driver = "netscape"

		_, err := factory.NewSession(ctx, cfg, "primary")

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring(`unknown browser driver "netscape"`))
		Expect(err.Error()).To(ContainSubstring("fake"))
	})

	It("should derive backend options from the configuration", func() {
		opts := browser.OptionsFrom(cfg, "secondary")

		Expect(opts).To(Equal(browser.Options{
			Name:          "secondary",
			Headless:      true,
			WindowWidth:   1366,
			WindowHeight:  768,
			ActionTimeout: time.Second,
		}))
	})
})
