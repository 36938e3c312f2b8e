package browser_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openwisp/docker-openwisp-e2e/internal/browser"
)

var _ = Describe("Selector", func() {
	Context("CSS", func() {
		DescribeTable("should translate selectors that have a CSS form",
			func(sel browser.Selector, expected string) {
				css, ok := sel.CSS()
				Expect(ok).To(BeTrue())
				Expect(css).To(Equal(expected))
			},
			Entry("name", browser.Name("username"), `[name="username"]`),
			Entry("class name", browser.ClassName("deletelink-box"), `[class~="deletelink-box"]`),
			Entry("id", browser.ID("id_geometry-map"), `[id="id_geometry-map"]`),
			Entry("css", browser.CSS("button[name=index]"), `button[name=index]`),
			Entry("quotes are escaped", browser.Name(`a"b`), `[name="a\"b"]`),
		)

		// Given link text and XPath selectors
		// When we ask for a CSS form
		// Then none should be reported
		It("should report link text and xpath as not CSS", func() {
			_, ok := browser.LinkText("default").CSS()
			Expect(ok).To(BeFalse())

			_, ok = browser.XPath(`//input[@type="submit"]`).CSS()
			Expect(ok).To(BeFalse())
		})
	})

	Context("XPath", func() {
		DescribeTable("should translate every selector kind",
			func(sel browser.Selector, expected string) {
				Expect(sel.XPath()).To(Equal(expected))
			},
			Entry("xpath is kept", browser.XPath(`//input[@type="submit"]`), `//input[@type="submit"]`),
			Entry("name", browser.Name("email"), `//*[@name="email"]`),
			Entry("id", browser.ID("x"), `//*[@id="x"]`),
			Entry("class name", browser.ClassName("logout"), `//*[contains(concat(" ", normalize-space(@class), " "), " logout ")]`),
			Entry("link text", browser.LinkText("default"), `//a[normalize-space(.)="default"]`),
			Entry("partial link text", browser.PartialLinkText("def"), `//a[contains(., "def")]`),
		)
	})

	Context("XPathLiteral", func() {
		It("should use double quotes by default", func() {
			Expect(browser.XPathLiteral("plain")).To(Equal(`"plain"`))
		})

		It("should switch to single quotes when the value has double quotes", func() {
			Expect(browser.XPathLiteral(`say "hi"`)).To(Equal(`'say "hi"'`))
		})

		// Given a value holding both quote kinds
		// When we quote it
		// Then it should be assembled with concat
		It("should use concat when the value has both quote kinds", func() {
			Expect(browser.XPathLiteral(`it's "x"`)).To(Equal(`concat("it's ", '"', "x", '"')`))
		})
	})

	It("should render a readable string", func() {
		Expect(browser.Name("email").String()).To(Equal(`name="email"`))
	})
})
