// Package firefox implements browser.Session with playwright-go driving a
// Firefox build.
package firefox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/openwisp/docker-openwisp-e2e/internal/browser"
	"github.com/openwisp/docker-openwisp-e2e/internal/models"
)

const defaultActionTimeout = 30 * time.Second

type Session struct {
	name    string
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	console browser.ConsoleBuffer
	logger  *zap.SugaredLogger
}

var _ browser.Session = &Session{}

func New(ctx context.Context, opts browser.Options) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := zap.S().Named("firefox").With("session", opts.Name)

	timeout := opts.ActionTimeout
	if timeout <= 0 {
		timeout = defaultActionTimeout
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright driver: %w", err)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Timeout:  playwright.Float(float64(timeout.Milliseconds())),
	}
	if opts.BinaryPath != "" {
		launch.ExecutablePath = playwright.String(opts.BinaryPath)
	}
	b, err := pw.Firefox.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch firefox: %w", err)
	}

	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(true),
		Viewport:          &playwright.Size{Width: opts.WindowWidth, Height: opts.WindowHeight},
	})
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	page.SetDefaultTimeout(float64(timeout.Milliseconds()))
	page.SetDefaultNavigationTimeout(float64(timeout.Milliseconds()))

	s := &Session{
		name:    opts.Name,
		pw:      pw,
		browser: b,
		context: bctx,
		page:    page,
		logger:  logger,
	}
	page.OnConsole(s.onConsole)
	page.OnPageError(s.onPageError)

	logger.Debugw("firefox session started", "version", b.Version())
	return s, nil
}

func (s *Session) Name() string { return s.name }

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Debugw("navigate", "url", url)
	_, err := s.page.Goto(url, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateLoad})
	return err
}

func (s *Session) Find(ctx context.Context, sel browser.Selector) (browser.Element, bool, error) {
	els, err := s.FindAll(ctx, sel)
	if err != nil || len(els) == 0 {
		return nil, false, err
	}
	return els[0], true, nil
}

func (s *Session) FindAll(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handles, err := s.page.QuerySelectorAll(engineSelector(sel))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", sel, err)
	}
	return wrap(s, handles), nil
}

func (s *Session) PageSource(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.page.Content()
}

func (s *Session) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.page.Title()
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.page.URL(), nil
}

func (s *Session) ExecuteScript(ctx context.Context, js string, args ...any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	converted := make([]any, len(args))
	for i, a := range args {
		if el, ok := a.(*element); ok {
			converted[i] = el.handle
			continue
		}
		converted[i] = a
	}
	expr := "(args) => (function() {\n" + js + "\n}).apply(document, args)"
	return s.page.Evaluate(expr, converted)
}

func (s *Session) ConsoleLogs() []models.ConsoleEntry {
	return s.console.Drain()
}

func (s *Session) Close() error {
	var errs []error
	if err := s.context.Close(); err != nil && !errors.Is(err, playwright.ErrTargetClosed) {
		errs = append(errs, err)
	}
	if err := s.browser.Close(); err != nil && !errors.Is(err, playwright.ErrTargetClosed) {
		errs = append(errs, err)
	}
	if err := s.pw.Stop(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Session) onConsole(msg playwright.ConsoleMessage) {
	level, err := models.ParseConsoleLevel(msg.Type())
	if err != nil {
		level = models.ConsoleLevelInfo
	}
	s.console.Add(models.ConsoleEntry{
		Level:     level,
		Text:      msg.Text(),
		Source:    "console-api",
		URL:       s.page.URL(),
		Timestamp: time.Now(),
	})
}

func (s *Session) onPageError(err error) {
	s.console.Add(models.ConsoleEntry{
		Level:     models.ConsoleLevelError,
		Text:      err.Error(),
		Source:    "runtime",
		URL:       s.page.URL(),
		Timestamp: time.Now(),
	})
}

// engineSelector turns sel into a playwright selector string.
func engineSelector(sel browser.Selector) string {
	if css, ok := sel.CSS(); ok {
		return "css=" + css
	}
	return "xpath=" + sel.XPath()
}

// scopedSelector is engineSelector for queries run from an element. XPath
// expressions are made relative so they do not escape to the document root.
func scopedSelector(sel browser.Selector) string {
	if css, ok := sel.CSS(); ok {
		return "css=" + css
	}
	return "xpath=." + sel.XPath()
}

func wrap(s *Session, handles []playwright.ElementHandle) []browser.Element {
	els := make([]browser.Element, 0, len(handles))
	for _, h := range handles {
		els = append(els, &element{s: s, handle: h})
	}
	return els
}

type element struct {
	s      *Session
	handle playwright.ElementHandle
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.handle.Click()
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.handle.Fill(text)
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.handle.InnerText()
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, err := e.handle.Evaluate("(el, name) => el.getAttribute(name)", name)
	if err != nil || v == nil {
		return "", false, err
	}
	return fmt.Sprint(v), true, nil
}

func (e *element) Find(ctx context.Context, sel browser.Selector) (browser.Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	handles, err := e.handle.QuerySelectorAll(scopedSelector(sel))
	if err != nil || len(handles) == 0 {
		return nil, false, err
	}
	return &element{s: e.s, handle: handles[0]}, true, nil
}
