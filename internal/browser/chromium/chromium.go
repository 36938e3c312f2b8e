// Package chromium implements browser.Session on top of the Chrome DevTools
// Protocol through chromedp.
package chromium

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/openwisp/docker-openwisp-e2e/internal/browser"
	"github.com/openwisp/docker-openwisp-e2e/internal/models"
)

const (
	defaultActionTimeout = 30 * time.Second
	// navigationGrace is how long a click is given to start loading a page
	// before it is treated as not navigating.
	navigationGrace = 500 * time.Millisecond
)

type Session struct {
	name        string
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration
	grace       time.Duration
	console     browser.ConsoleBuffer
	logger      *zap.SugaredLogger

	mu        sync.Mutex
	mainFrame cdp.FrameID
	nav       *navigation
}

var _ browser.Session = &Session{}

// New launches a chromium process and opens its first tab. The session lives
// until Close; ctx only bounds the launch.
func New(ctx context.Context, opts browser.Options) (browser.Session, error) {
	logger := zap.S().Named("chromium").With("session", opts.Name)

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
	)
	if opts.BinaryPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.BinaryPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Debugf),
		chromedp.WithErrorf(logger.Errorf),
	)

	s := &Session{
		name:        opts.Name,
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		timeout:     opts.ActionTimeout,
		grace:       navigationGrace,
		logger:      logger,
	}
	if s.timeout <= 0 {
		s.timeout = defaultActionTimeout
	}

	chromedp.ListenTarget(tabCtx, s.handleEvent)

	// the first Run starts the browser
	if err := s.run(ctx, runtime.Enable(), log.Enable(), chromedp.ActionFunc(s.resolveMainFrame)); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	logger.Debugw("chromium session started", "window", fmt.Sprintf("%dx%d", opts.WindowWidth, opts.WindowHeight))
	return s, nil
}

func (s *Session) Name() string { return s.name }

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debugw("navigate", "url", url)
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *Session) Find(ctx context.Context, sel browser.Selector) (browser.Element, bool, error) {
	nodes, err := s.nodes(ctx, sel, nil)
	if err != nil || len(nodes) == 0 {
		return nil, false, err
	}
	return &element{s: s, node: nodes[0]}, true, nil
}

func (s *Session) FindAll(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	nodes, err := s.nodes(ctx, sel, nil)
	if err != nil {
		return nil, err
	}
	els := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &element{s: s, node: n})
	}
	return els, nil
}

func (s *Session) PageSource(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	err := s.run(ctx, chromedp.Title(&title))
	return title, err
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := s.run(ctx, chromedp.Location(&url))
	return url, err
}

// ExecuteScript calls js as a function bound to document. Elements are passed
// as remote object references, everything else as JSON values.
func (s *Session) ExecuteScript(ctx context.Context, js string, args ...any) (any, error) {
	var out any
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		doc, exc, err := runtime.Evaluate("document").Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("failed to resolve document: %s", exceptionText(exc))
		}

		callArgs := make([]*runtime.CallArgument, 0, len(args))
		for i, a := range args {
			if el, ok := a.(*element); ok {
				obj, err := dom.ResolveNode().WithNodeID(el.node.NodeID).Do(ctx)
				if err != nil {
					return fmt.Errorf("failed to resolve argument %d: %w", i, err)
				}
				callArgs = append(callArgs, &runtime.CallArgument{ObjectID: obj.ObjectID})
				continue
			}
			b, err := json.Marshal(a)
			if err != nil {
				return fmt.Errorf("failed to encode argument %d: %w", i, err)
			}
			callArgs = append(callArgs, &runtime.CallArgument{Value: b})
		}

		res, exc, err := runtime.CallFunctionOn("function() {\n" + js + "\n}").
			WithObjectID(doc.ObjectID).
			WithArguments(callArgs).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script raised: %s", exceptionText(exc))
		}
		if res != nil && len(res.Value) > 0 {
			return json.Unmarshal([]byte(res.Value), &out)
		}
		return nil
	}))
	return out, err
}

func (s *Session) ConsoleLogs() []models.ConsoleEntry {
	return s.console.Drain()
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancel()
	s.allocCancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// run executes actions on the tab, bounded by the action timeout and by ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *Session) nodes(ctx context.Context, sel browser.Selector, from *cdp.Node) ([]*cdp.Node, error) {
	var (
		query string
		opts  = []chromedp.QueryOption{chromedp.AtLeast(0)}
	)
	if css, ok := sel.CSS(); ok {
		query = css
		opts = append(opts, chromedp.ByQueryAll)
	} else {
		if from != nil {
			return nil, fmt.Errorf("selector %s cannot be scoped to an element", sel)
		}
		query = sel.XPath()
		opts = append(opts, chromedp.BySearch)
	}
	if from != nil {
		opts = append(opts, chromedp.FromNode(from))
	}

	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(query, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", sel, err)
	}
	return nodes, nil
}

func (s *Session) resolveMainFrame(ctx context.Context) error {
	tree, err := page.GetFrameTree().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to read frame tree: %w", err)
	}
	s.mu.Lock()
	s.mainFrame = tree.Frame.ID
	s.mu.Unlock()
	return nil
}

func (s *Session) handleEvent(ev any) {
	switch e := ev.(type) {
	case *page.EventFrameStartedLoading:
		s.frameLoading(e.FrameID, true)
	case *page.EventFrameStoppedLoading:
		s.frameLoading(e.FrameID, false)
	case *runtime.EventConsoleAPICalled:
		s.add(string(e.Type), consoleText(e.Args), "console-api", "", e.Timestamp)
	case *log.EventEntryAdded:
		if e.Entry == nil {
			return
		}
		s.add(string(e.Entry.Level), e.Entry.Text, string(e.Entry.Source), e.Entry.URL, e.Entry.Timestamp)
	case *runtime.EventExceptionThrown:
		if e.ExceptionDetails == nil {
			return
		}
		s.add("exception", exceptionText(e.ExceptionDetails), "runtime", e.ExceptionDetails.URL, e.Timestamp)
	}
}

func (s *Session) add(level, text, source, url string, ts *runtime.Timestamp) {
	lvl, err := models.ParseConsoleLevel(level)
	if err != nil {
		lvl = models.ConsoleLevelInfo
	}
	entry := models.ConsoleEntry{Level: lvl, Text: text, Source: source, URL: url, Timestamp: time.Now()}
	if ts != nil {
		entry.Timestamp = ts.Time()
	}
	s.console.Add(entry)
}

// navigation follows the main frame load a click may start.
type navigation struct {
	started   chan struct{}
	stopped   chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func newNavigation() *navigation {
	return &navigation{started: make(chan struct{}), stopped: make(chan struct{})}
}

func (n *navigation) hasStarted() bool {
	select {
	case <-n.started:
		return true
	default:
		return false
	}
}

// watchNavigation starts following main frame loads. It is called before the
// action that may navigate so no event is missed.
func (s *Session) watchNavigation() *navigation {
	n := newNavigation()
	s.mu.Lock()
	s.nav = n
	s.mu.Unlock()
	return n
}

func (s *Session) frameLoading(id cdp.FrameID, started bool) {
	s.mu.Lock()
	n, main := s.nav, s.mainFrame
	s.mu.Unlock()
	if n == nil || (main != "" && id != main) {
		return
	}
	switch {
	case started:
		n.startOnce.Do(func() { close(n.started) })
	case n.hasStarted():
		n.stopOnce.Do(func() { close(n.stopped) })
	}
}

// awaitNavigation returns once the load followed by n has finished, or right
// after the grace period when no load started.
func (s *Session) awaitNavigation(ctx context.Context, n *navigation) error {
	defer func() {
		s.mu.Lock()
		if s.nav == n {
			s.nav = nil
		}
		s.mu.Unlock()
	}()

	grace := time.NewTimer(s.grace)
	defer grace.Stop()
	select {
	case <-n.started:
	case <-grace.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	timeout := time.NewTimer(s.timeout)
	defer timeout.Stop()
	select {
	case <-n.stopped:
		return nil
	case <-timeout.C:
		return fmt.Errorf("page load did not finish within %s", s.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func consoleText(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		var val any
		switch {
		case len(arg.Value) > 0 && json.Unmarshal([]byte(arg.Value), &val) == nil:
			parts = append(parts, fmt.Sprintf("%v", val))
		case arg.Description != "":
			parts = append(parts, arg.Description)
		default:
			parts = append(parts, fmt.Sprintf("[%s]", arg.Type))
		}
	}
	return strings.Join(parts, " ")
}

func exceptionText(d *runtime.ExceptionDetails) string {
	if d.Exception != nil && d.Exception.Description != "" {
		return d.Exception.Description
	}
	return d.Text
}

type element struct {
	s    *Session
	node *cdp.Node
}

func (e *element) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

// Click returns once the page load started by the click, if any, is over.
func (e *element) Click(ctx context.Context) error {
	nav := e.s.watchNavigation()
	if err := e.s.run(ctx, chromedp.Click(e.ids(), chromedp.ByNodeID)); err != nil {
		e.s.mu.Lock()
		e.s.nav = nil
		e.s.mu.Unlock()
		return err
	}
	return e.s.awaitNavigation(ctx, nav)
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	return e.s.run(ctx, chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID))
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.s.run(ctx, chromedp.Text(e.ids(), &text, chromedp.ByNodeID))
	return text, err
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := e.s.run(ctx, chromedp.AttributeValue(e.ids(), name, &value, &ok, chromedp.ByNodeID))
	return value, ok, err
}

func (e *element) Find(ctx context.Context, sel browser.Selector) (browser.Element, bool, error) {
	nodes, err := e.s.nodes(ctx, sel, e.node)
	if err != nil || len(nodes) == 0 {
		return nil, false, err
	}
	return &element{s: e.s, node: nodes[0]}, true, nil
}
