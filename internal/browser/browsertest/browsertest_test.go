package browsertest_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openwisp/docker-openwisp-e2e/internal/browser"
	"github.com/openwisp/docker-openwisp-e2e/internal/browser/browsertest"
	"github.com/openwisp/docker-openwisp-e2e/internal/models"
)

var _ = Describe("Session", func() {
	var (
		ctx  context.Context
		site *browsertest.Site
		s    *browsertest.Session
	)

	BeforeEach(func() {
		ctx = context.Background()
		site = browsertest.NewSite()
		site.Handle("https://app/next/", &browsertest.Page{Title: "Next"})
		site.Handle("https://app/", &browsertest.Page{
			Title:   "Home",
			Console: []models.ConsoleEntry{{Level: models.ConsoleLevelError, Text: "boom"}},
		}).Add(
			browsertest.NewElement(browser.Name("go")).WithClick(browsertest.Goto("https://app/next/")),
			browsertest.NewElement(browser.ClassName("row"), browsertest.NewElement(browser.LinkText("child"))),
		)
		s = browsertest.NewSession("primary", site)
	})

	// Given a page with a clickable element
	// When we click it
	// Then the session should land on the target page
	It("should follow click handlers", func() {
		Expect(s.Navigate(ctx, "https://app/")).To(Succeed())

		el, found, err := s.Find(ctx, browser.Name("go"))
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(el.Click(ctx)).To(Succeed())

		title, _ := s.Title(ctx)
		Expect(title).To(Equal("Next"))
		Expect(s.Visited).To(Equal([]string{"https://app/", "https://app/next/"}))
	})

	It("should report absent elements without an error", func() {
		Expect(s.Navigate(ctx, "https://app/")).To(Succeed())

		_, found, err := s.Find(ctx, browser.ClassName("logout"))

		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
	})

	It("should find children of an element", func() {
		Expect(s.Navigate(ctx, "https://app/")).To(Succeed())
		row, _, _ := s.Find(ctx, browser.ClassName("row"))

		_, found, err := row.Find(ctx, browser.LinkText("child"))

		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
	})

	It("should emit page console entries on load and drain them", func() {
		Expect(s.Navigate(ctx, "https://app/")).To(Succeed())

		Expect(s.ConsoleLogs()).To(HaveLen(1))
		Expect(s.ConsoleLogs()).To(BeEmpty())
	})

	It("should follow redirects", func() {
		site.Handle("https://app/login/", &browsertest.Page{
			Redirect: func(s *browsertest.Session) string {
				if s.State["authenticated"] {
					return "https://app/"
				}
				return ""
			},
			Title: "Login",
		})
		s.State["authenticated"] = true

		Expect(s.Navigate(ctx, "https://app/login/")).To(Succeed())

		url, _ := s.CurrentURL(ctx)
		Expect(url).To(Equal("https://app/"))
	})

	It("should record scripts and pass them to the handler", func() {
		s.ScriptHandler = func(_ *browsertest.Session, js string, args []any) (any, error) {
			return len(args), nil
		}

		out, err := s.ExecuteScript(ctx, "return 1", "a", "b")

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(2))
		Expect(s.Scripts).To(HaveLen(1))
	})

	It("should refuse calls after Close", func() {
		Expect(s.Close()).To(Succeed())

		err := s.Navigate(ctx, "https://app/")

		Expect(err).To(MatchError(browsertest.ErrClosed))
		Expect(s.Closed()).To(BeTrue())
	})
})
