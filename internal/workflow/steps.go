package workflow

import (
	"context"
	"fmt"

	"github.com/openwisp/docker-openwisp-e2e/internal/browser"
	srvErrors "github.com/openwisp/docker-openwisp-e2e/pkg/errors"
)

// step is one form interaction.
type step func(ctx context.Context, s browser.Session) error

const (
	clearScript       = "arguments[0].value = ''"
	selectValueScript = `var el = arguments[0];
el.value = arguments[1];
el.dispatchEvent(new Event('change', {bubbles: true}));
return el.value === arguments[1];`
	selectTextScript = `var el = arguments[0];
for (var i = 0; i < el.options.length; i++) {
	if (el.options[i].text.trim() === arguments[1]) {
		el.selectedIndex = i;
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	}
}
return false;`
)

func input(sel browser.Selector, value string) step {
	return func(ctx context.Context, s browser.Session) error {
		return fill(ctx, s, sel, value)
	}
}

func clickOn(sel browser.Selector) step {
	return func(ctx context.Context, s browser.Session) error {
		return click(ctx, s, sel)
	}
}

// check ticks a checkbox.
func check(sel browser.Selector) step {
	return clickOn(sel)
}

func selectByValue(sel browser.Selector, value string) step {
	return func(ctx context.Context, s browser.Session) error {
		return choose(ctx, s, sel, selectValueScript, value)
	}
}

func selectByText(sel browser.Selector, text string) step {
	return func(ctx context.Context, s browser.Session) error {
		return choose(ctx, s, sel, selectTextScript, text)
	}
}

func choose(ctx context.Context, s browser.Session, sel browser.Selector, script, option string) error {
	el, err := mustFind(ctx, s, sel)
	if err != nil {
		return err
	}
	out, err := s.ExecuteScript(ctx, script, el, option)
	if err != nil {
		return err
	}
	if matched, ok := out.(bool); ok && !matched {
		return fmt.Errorf("option %q not available in %s", option, sel)
	}
	return nil
}

// fill replaces the value of an input.
func fill(ctx context.Context, s browser.Session, sel browser.Selector, value string) error {
	el, err := mustFind(ctx, s, sel)
	if err != nil {
		return err
	}
	if _, err := s.ExecuteScript(ctx, clearScript, el); err != nil {
		return err
	}
	return el.SendKeys(ctx, value)
}

func click(ctx context.Context, s browser.Session, sel browser.Selector) error {
	el, err := mustFind(ctx, s, sel)
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

func mustFind(ctx context.Context, s browser.Session, sel browser.Selector) (browser.Element, error) {
	el, found, err := s.Find(ctx, sel)
	if err != nil {
		return nil, err
	}
	if !found {
		page, _ := s.CurrentURL(ctx)
		return nil, srvErrors.NewElementNotFoundError(sel.String(), page)
	}
	return el, nil
}
