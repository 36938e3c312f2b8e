// Package browsertest provides an in-memory browser.Session whose pages are
// scripted by the test. Elements are matched by exact selector equality.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/openwisp/docker-openwisp-e2e/internal/browser"
	"github.com/openwisp/docker-openwisp-e2e/internal/models"
)

var ErrClosed = errors.New("session closed")

// Site is the set of pages served to every session attached to it.
type Site struct {
	mu    sync.Mutex
	pages map[string]*Page
}

func NewSite() *Site {
	return &Site{pages: map[string]*Page{}}
}

// Handle registers page at url and returns it for further setup.
func (st *Site) Handle(url string, page *Page) *Page {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.pages[url] = page
	return page
}

func (st *Site) Page(url string) (*Page, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	p, ok := st.pages[url]
	return p, ok
}

type Page struct {
	Title    string
	Source   string
	Elements []*Element
	// Console entries are emitted every time the page loads.
	Console []models.ConsoleEntry
	// Redirect, when it returns a non empty url, sends the session there
	// instead of rendering the page.
	Redirect func(s *Session) string
}

func (p *Page) Add(els ...*Element) *Page {
	p.Elements = append(p.Elements, els...)
	return p
}

// Remove drops every element matching sel.
func (p *Page) Remove(sel browser.Selector) {
	kept := p.Elements[:0]
	for _, e := range p.Elements {
		if e.Selector != sel {
			kept = append(kept, e)
		}
	}
	p.Elements = kept
}

type Session struct {
	mu      sync.Mutex
	name    string
	site    *Site
	url     string
	page    *Page
	console []models.ConsoleEntry
	closed  bool

	// State holds per session flags such as "authenticated".
	State   map[string]bool
	Visited []string
	Scripts []Script
	// ScriptHandler answers ExecuteScript; nil returns (nil, nil).
	ScriptHandler func(s *Session, js string, args []any) (any, error)
	CloseCalls    int
}

type Script struct {
	JS   string
	Args []any
}

var _ browser.Session = &Session{}

func NewSession(name string, site *Site) *Session {
	return &Session{name: name, site: site, page: &Page{}, State: map[string]bool{}}
}

// Constructor returns a browser.Constructor creating sessions on site. Every
// created session is appended to created when it is not nil.
func Constructor(site *Site, created *[]*Session) browser.Constructor {
	return func(_ context.Context, opts browser.Options) (browser.Session, error) {
		s := NewSession(opts.Name, site)
		if created != nil {
			*created = append(*created, s)
		}
		return s, nil
	}
}

func (s *Session) Name() string { return s.name }

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.load(url)
	return nil
}

func (s *Session) load(url string) {
	for range 10 {
		page, ok := s.site.Page(url)
		if !ok {
			page = &Page{Title: "Not Found", Source: "<h1>Not Found</h1>"}
		}
		if page.Redirect != nil {
			if target := page.Redirect(s); target != "" {
				url = target
				continue
			}
		}
		s.mu.Lock()
		s.url = url
		s.page = page
		s.Visited = append(s.Visited, url)
		s.console = append(s.console, page.Console...)
		s.mu.Unlock()
		return
	}
}

// Goto returns a click handler that loads url.
func Goto(url string) func(s *Session) error {
	return func(s *Session) error {
		s.load(url)
		return nil
	}
}

func (s *Session) Find(ctx context.Context, sel browser.Selector) (browser.Element, bool, error) {
	els, err := s.FindAll(ctx, sel)
	if err != nil || len(els) == 0 {
		return nil, false, err
	}
	return els[0], true, nil
}

func (s *Session) FindAll(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return match(s, s.page.Elements, sel), nil
}

func (s *Session) PageSource(ctx context.Context) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page.Source, nil
}

func (s *Session) Title(ctx context.Context) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page.Title, nil
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url, nil
}

func (s *Session) ExecuteScript(ctx context.Context, js string, args ...any) (any, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.Scripts = append(s.Scripts, Script{JS: js, Args: args})
	handler := s.ScriptHandler
	s.mu.Unlock()
	if handler == nil {
		return nil, nil
	}
	return handler(s, js, args)
}

// Log appends an entry to the console buffer as if the page emitted it.
func (s *Session) Log(e models.ConsoleEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.console = append(s.console, e)
}

func (s *Session) ConsoleLogs() []models.ConsoleEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.console
	s.console = nil
	return out
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.CloseCalls++
	return nil
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%s: %w", s.name, ErrClosed)
	}
	return nil
}

// Element is a scripted page element.
type Element struct {
	Selector browser.Selector
	Content  string
	Attrs    map[string]string
	Children []*Element
	OnClick  func(s *Session) error

	Value  string
	Clicks int
}

func NewElement(sel browser.Selector, children ...*Element) *Element {
	return &Element{Selector: sel, Children: children}
}

func (e *Element) WithText(text string) *Element {
	e.Content = text
	return e
}

func (e *Element) WithClick(fn func(s *Session) error) *Element {
	e.OnClick = fn
	return e
}

// bound ties an element to the session that found it.
type bound struct {
	s *Session
	*Element
}

func match(s *Session, els []*Element, sel browser.Selector) []browser.Element {
	out := []browser.Element{}
	for _, e := range els {
		if e.Selector == sel {
			out = append(out, &bound{s: s, Element: e})
		}
	}
	return out
}

func (b *bound) Click(ctx context.Context) error {
	if err := b.s.check(ctx); err != nil {
		return err
	}
	b.s.mu.Lock()
	b.Clicks++
	fn := b.OnClick
	b.s.mu.Unlock()
	if fn != nil {
		return fn(b.s)
	}
	return nil
}

func (b *bound) SendKeys(ctx context.Context, text string) error {
	if err := b.s.check(ctx); err != nil {
		return err
	}
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	b.Value += text
	return nil
}

func (b *bound) Text(ctx context.Context) (string, error) {
	if err := b.s.check(ctx); err != nil {
		return "", err
	}
	return b.Content, nil
}

func (b *bound) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := b.s.check(ctx); err != nil {
		return "", false, err
	}
	v, ok := b.Attrs[name]
	return v, ok, nil
}

func (b *bound) Find(ctx context.Context, sel browser.Selector) (browser.Element, bool, error) {
	if err := b.s.check(ctx); err != nil {
		return nil, false, err
	}
	els := match(b.s, b.Children, sel)
	if len(els) == 0 {
		return nil, false, nil
	}
	return els[0], true, nil
}

// Unwrap returns the scripted element behind a browser.Element found on a
// Session, for assertions on script arguments.
func Unwrap(el any) (*Element, bool) {
	b, ok := el.(*bound)
	if !ok {
		return nil, false
	}
	return b.Element, true
}
