package firefox

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openwisp/docker-openwisp-e2e/internal/browser"
)

var _ = Describe("selectors", func() {
	DescribeTable("engineSelector should prefix the playwright engine",
		func(sel browser.Selector, expected string) {
			Expect(engineSelector(sel)).To(Equal(expected))
		},
		Entry("css", browser.CSS("button[name=index]"), "css=button[name=index]"),
		Entry("name", browser.Name("username"), `css=[name="username"]`),
		Entry("class name", browser.ClassName("logout"), `css=[class~="logout"]`),
		Entry("xpath", browser.XPath(`//input[@type="submit"]`), `xpath=//input[@type="submit"]`),
		Entry("link text", browser.LinkText("default"), `xpath=//a[normalize-space(.)="default"]`),
	)

	// Given an xpath selector used from an element
	// When it is turned into a playwright selector
	// Then it should be relative to that element
	It("should scope xpath queries to the element", func() {
		Expect(scopedSelector(browser.ClassName("deletelink"))).To(Equal(`css=[class~="deletelink"]`))
		Expect(scopedSelector(browser.XPath(`//a[@class="deletelink"]`))).To(Equal(`xpath=.//a[@class="deletelink"]`))
		Expect(scopedSelector(browser.PartialLinkText("Delete"))).To(Equal(`xpath=.//a[contains(., "Delete")]`))
	})
})
