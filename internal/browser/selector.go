package browser

import (
	"fmt"
	"strings"
)

type By string

const (
	ByName            By = "name"
	ByClassName       By = "class name"
	ByID              By = "id"
	ByCSS             By = "css selector"
	ByXPath           By = "xpath"
	ByLinkText        By = "link text"
	ByPartialLinkText By = "partial link text"
)

type Selector struct {
	By    By
	Value string
}

func Name(v string) Selector            { return Selector{By: ByName, Value: v} }
func ClassName(v string) Selector       { return Selector{By: ByClassName, Value: v} }
func ID(v string) Selector              { return Selector{By: ByID, Value: v} }
func CSS(v string) Selector             { return Selector{By: ByCSS, Value: v} }
func XPath(v string) Selector           { return Selector{By: ByXPath, Value: v} }
func LinkText(v string) Selector        { return Selector{By: ByLinkText, Value: v} }
func PartialLinkText(v string) Selector { return Selector{By: ByPartialLinkText, Value: v} }

func (s Selector) String() string {
	return fmt.Sprintf("%s=%q", s.By, s.Value)
}

// CSS returns the equivalent CSS selector when one exists.
func (s Selector) CSS() (string, bool) {
	switch s.By {
	case ByName:
		return fmt.Sprintf(`[name=%s]`, cssString(s.Value)), true
	case ByClassName:
		return fmt.Sprintf(`[class~=%s]`, cssString(s.Value)), true
	case ByID:
		return fmt.Sprintf(`[id=%s]`, cssString(s.Value)), true
	case ByCSS:
		return s.Value, true
	default:
		return "", false
	}
}

// XPath returns an XPath expression matching the same elements.
func (s Selector) XPath() string {
	switch s.By {
	case ByXPath:
		return s.Value
	case ByName:
		return fmt.Sprintf(`//*[@name=%s]`, XPathLiteral(s.Value))
	case ByID:
		return fmt.Sprintf(`//*[@id=%s]`, XPathLiteral(s.Value))
	case ByClassName:
		return fmt.Sprintf(`//*[contains(concat(" ", normalize-space(@class), " "), %s)]`, XPathLiteral(" "+s.Value+" "))
	case ByLinkText:
		return fmt.Sprintf(`//a[normalize-space(.)=%s]`, XPathLiteral(s.Value))
	case ByPartialLinkText:
		return fmt.Sprintf(`//a[contains(., %s)]`, XPathLiteral(s.Value))
	default:
		// CSS without an XPath translation; callers check CSS() first
		return ""
	}
}

func cssString(v string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) + `"`
}

// XPathLiteral quotes v for use in an XPath expression. XPath 1.0 has no
// escape sequences, so values holding both quote kinds are built with concat.
func XPathLiteral(v string) string {
	if !strings.Contains(v, `"`) {
		return `"` + v + `"`
	}
	if !strings.Contains(v, `'`) {
		return `'` + v + `'`
	}
	parts := strings.Split(v, `"`)
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if p != "" {
			quoted = append(quoted, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
