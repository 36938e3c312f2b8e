// Package fakeadmin scripts a browsertest.Site that behaves like the
// dashboard admin closely enough to drive the workflows and scenarios in unit
// tests: login, record add and change forms, change lists with bulk actions,
// delete confirmation and password reset.
package fakeadmin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/openwisp/docker-openwisp-e2e/internal/browser"
	"github.com/openwisp/docker-openwisp-e2e/internal/browser/browsertest"
	"github.com/openwisp/docker-openwisp-e2e/internal/models"
	"github.com/openwisp/docker-openwisp-e2e/internal/workflow"
)

const (
	PasswordResetSent = "We have sent you an e-mail. Please contact us if you do not receive it within a few minutes."

	authenticated = "authenticated"
)

type record struct {
	id       int
	name     string
	listPath string
	nodes    bool
	markers  int
	pending  bool
}

type Admin struct {
	AppURL string
	Site   *browsertest.Site

	username string
	password string

	mu       sync.Mutex
	nextID   int
	records  []*record
	deleted  []string
	messages map[string]string
}

func New(appURL, username, password string) *Admin {
	a := &Admin{
		AppURL:   strings.TrimSuffix(appURL, "/"),
		Site:     browsertest.NewSite(),
		username: username,
		password: password,
		nextID:   1,
		messages: map[string]string{},
	}
	a.loginPage()
	a.Serve("/admin/", "Site administration | OpenWISP")
	a.locationAddPage()
	a.userAddPage()
	a.topologyAddPage()
	a.passwordResetPages()
	for _, l := range []string{workflow.LocationListPath, workflow.UserListPath, workflow.TopologyListPath} {
		a.renderList(l)
	}
	return a
}

// NewSession returns a session on the admin site whose scripts are
// interpreted by the admin.
func (a *Admin) NewSession(name string) *browsertest.Session {
	s := browsertest.NewSession(name, a.Site)
	s.ScriptHandler = a.script
	return s
}

// Constructor returns a browser.Constructor creating admin sessions.
func (a *Admin) Constructor(created *[]*browsertest.Session) browser.Constructor {
	return func(_ context.Context, opts browser.Options) (browser.Session, error) {
		s := a.NewSession(opts.Name)
		if created != nil {
			*created = append(*created, s)
		}
		return s, nil
	}
}

// Serve adds an authenticated page at path emitting console on every load.
func (a *Admin) Serve(path, title string, console ...models.ConsoleEntry) *browsertest.Page {
	p := a.guarded(&browsertest.Page{Title: title, Console: console})
	p.Add(browsertest.NewElement(browser.ClassName("logout")))
	return a.Site.Handle(a.url(path), p)
}

// Seed adds an existing record to a change list.
func (a *Admin) Seed(listPath, name string) {
	a.create(listPath, name)
}

// Records lists the names on a change list.
func (a *Admin) Records(listPath string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := []string{}
	for _, r := range a.records {
		if r.listPath == listPath {
			names = append(names, r.name)
		}
	}
	return names
}

// Deleted lists the names of deleted records in deletion order.
func (a *Admin) Deleted() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.deleted...)
}

// Markers returns the marker count of location name.
func (a *Admin) Markers(name string) int {
	if r := a.find(workflow.LocationListPath, name); r != nil {
		return r.markers
	}
	return 0
}

func (a *Admin) url(path string) string {
	return a.AppURL + path
}

func (a *Admin) guarded(p *browsertest.Page) *browsertest.Page {
	p.Redirect = func(s *browsertest.Session) string {
		if !s.State[authenticated] {
			return a.url(workflow.LoginPath)
		}
		return ""
	}
	return p
}

func (a *Admin) script(_ *browsertest.Session, js string, args []any) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	el, ok := browsertest.Unwrap(args[0])
	if !ok {
		return nil, fmt.Errorf("first script argument is not an element")
	}
	switch {
	case strings.Contains(js, "setAttribute('style'"):
		if el.Attrs == nil {
			el.Attrs = map[string]string{}
		}
		el.Attrs["style"] = "display:block"
	case len(args) == 1:
		el.Value = ""
	default:
		v, _ := args[1].(string)
		el.Value = v
		return true, nil
	}
	return nil, nil
}

func (a *Admin) loginPage() {
	user := browsertest.NewElement(browser.Name("username"))
	pass := browsertest.NewElement(browser.Name("password"))
	submit := browsertest.NewElement(workflow.SubmitButton).WithClick(func(s *browsertest.Session) error {
		ok := user.Value == a.username && pass.Value == a.password
		user.Value, pass.Value = "", ""
		if !ok {
			return browsertest.Goto(a.url(workflow.LoginPath))(s)
		}
		s.State[authenticated] = true
		return browsertest.Goto(a.url("/admin/"))(s)
	})
	p := &browsertest.Page{
		Title: "Log in | OpenWISP",
		Redirect: func(s *browsertest.Session) string {
			if s.State[authenticated] {
				return a.url("/admin/")
			}
			return ""
		},
	}
	a.Site.Handle(a.url(workflow.LoginPath), p.Add(user, pass, submit))
}

// form builds an add page whose save button hands the typed name to onSave.
func (a *Admin) form(path, title string, nameField string, onSave func(s *browsertest.Session, name string) error, fields ...string) {
	nameEl := browsertest.NewElement(browser.Name(nameField))
	p := a.guarded(&browsertest.Page{Title: title})
	p.Add(browsertest.NewElement(browser.ClassName("logout")), nameEl)
	for _, f := range fields {
		p.Add(browsertest.NewElement(browser.Name(f)))
	}
	p.Add(browsertest.NewElement(browser.Name("_save")).WithClick(func(s *browsertest.Session) error {
		name := nameEl.Value
		nameEl.Value = ""
		return onSave(s, name)
	}))
	a.Site.Handle(a.url(path), p)
}

func (a *Admin) locationAddPage() {
	a.form(workflow.LocationListPath+"add/", "Add location | OpenWISP", "name",
		func(s *browsertest.Session, name string) error {
			a.create(workflow.LocationListPath, name)
			return browsertest.Goto(a.url(workflow.LocationListPath))(s)
		},
		"organization", "type", "is_mobile",
	)
}

func (a *Admin) userAddPage() {
	a.form(workflow.UserListPath+"add/", "Add user | OpenWISP", "username",
		func(s *browsertest.Session, name string) error {
			r := a.create(workflow.UserListPath, name)
			return browsertest.Goto(a.detailURL(r))(s)
		},
		"email", "password1", "password2", "is_superuser",
	)
}

func (a *Admin) topologyAddPage() {
	a.form(workflow.TopologyListPath+"add/", "Add topology | OpenWISP", "label",
		func(s *browsertest.Session, name string) error {
			a.create(workflow.TopologyListPath, name)
			return browsertest.Goto(a.url(workflow.TopologyListPath))(s)
		},
		"organization", "url",
	)
}

func (a *Admin) passwordResetPages() {
	done := a.url("/accounts/password/reset/done/")
	a.Site.Handle(done, &browsertest.Page{
		Title:  "Password Reset | OpenWISP",
		Source: "<p>" + PasswordResetSent + "</p>",
	})
	a.Site.Handle(a.url(workflow.PasswordResetPath), &browsertest.Page{Title: "Password Reset | OpenWISP"}).Add(
		browsertest.NewElement(browser.Name("email")),
		browsertest.NewElement(workflow.SubmitButton).WithClick(browsertest.Goto(done)),
	)
}

func (a *Admin) create(listPath, name string) *record {
	a.mu.Lock()
	r := &record{id: a.nextID, name: name, listPath: listPath}
	a.nextID++
	a.records = append(a.records, r)
	a.mu.Unlock()

	a.renderDetail(r)
	a.renderList(listPath)
	return r
}

func (a *Admin) delete(r *record) {
	a.mu.Lock()
	kept := a.records[:0]
	for _, x := range a.records {
		if x != r {
			kept = append(kept, x)
		}
	}
	a.records = kept
	a.deleted = append(a.deleted, r.name)
	a.mu.Unlock()

	// the change page of a deleted record renders as a not found page
	a.Site.Handle(a.detailURL(r), a.guarded(&browsertest.Page{Title: "Not Found | OpenWISP"}))
	a.renderList(r.listPath)
}

func (a *Admin) find(listPath, name string) *record {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.records {
		if r.listPath == listPath && r.name == name {
			return r
		}
	}
	return nil
}

func (a *Admin) detailURL(r *record) string {
	return a.url(fmt.Sprintf("%s%d/change/", r.listPath, r.id))
}

func (a *Admin) renderList(listPath string) {
	a.mu.Lock()
	var recs []*record
	for _, r := range a.records {
		if r.listPath == listPath {
			recs = append(recs, r)
		}
	}
	message := a.messages[listPath]
	a.mu.Unlock()

	url := a.url(listPath)
	p, ok := a.Site.Page(url)
	if !ok {
		p = a.Site.Handle(url, a.guarded(&browsertest.Page{Title: "Select record to change | OpenWISP"}))
	}

	action := browsertest.NewElement(browser.Name("action"))
	boxes := map[*record]*browsertest.Element{}
	els := []*browsertest.Element{browsertest.NewElement(browser.ClassName("logout")), action}
	if message != "" {
		els = append(els, browsertest.NewElement(browser.ClassName("success")).WithText(message))
	}
	for _, r := range recs {
		box := browsertest.NewElement(workflow.RowCheckbox(r.name))
		boxes[r] = box
		els = append(els, browsertest.NewElement(workflow.ResultLink(r.name)).WithText(r.name).WithClick(browsertest.Goto(a.detailURL(r))), box)
	}
	els = append(els, browsertest.NewElement(browser.Name("index")).WithClick(func(s *browsertest.Session) error {
		var selected []*record
		for r, box := range boxes {
			if box.Clicks%2 == 1 {
				selected = append(selected, r)
			}
		}
		return a.bulk(s, listPath, action.Value, selected)
	}))
	p.Elements = els
}

func (a *Admin) bulk(s *browsertest.Session, listPath, action string, selected []*record) error {
	// a fresh list has no row selected
	a.renderList(listPath)

	switch action {
	case "delete_selected":
		var sb strings.Builder
		sb.WriteString("<h2>Summary</h2><ul>")
		for _, r := range selected {
			if r.nodes {
				sb.WriteString("<li>Nodes: 2</li><li>Links: 1</li>")
			}
		}
		sb.WriteString("</ul>")
		confirm := a.url(listPath + "delete/")
		a.Site.Handle(confirm, a.guarded(&browsertest.Page{Title: "Are you sure? | OpenWISP", Source: sb.String()})).Add(
			browsertest.NewElement(workflow.SubmitButton).WithClick(func(s *browsertest.Session) error {
				for _, r := range selected {
					a.delete(r)
				}
				return browsertest.Goto(a.url(listPath))(s)
			}),
		)
		return browsertest.Goto(confirm)(s)
	case "update_selected":
		a.mu.Lock()
		for _, r := range selected {
			r.nodes = true
		}
		a.mu.Unlock()
		return browsertest.Goto(a.url(listPath))(s)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}

func (a *Admin) renderDetail(r *record) {
	url := a.detailURL(r)
	p, ok := a.Site.Page(url)
	if !ok {
		p = a.Site.Handle(url, a.guarded(&browsertest.Page{Title: fmt.Sprintf("%s | Change | OpenWISP", r.name)}))
	}

	confirm := a.url(fmt.Sprintf("%s%d/delete/", r.listPath, r.id))
	a.Site.Handle(confirm, a.guarded(&browsertest.Page{Title: "Are you sure? | OpenWISP"})).Add(
		browsertest.NewElement(workflow.SubmitButton).WithClick(func(s *browsertest.Session) error {
			a.delete(r)
			return browsertest.Goto(a.url(r.listPath))(s)
		}),
	)

	box := browsertest.NewElement(browser.ClassName("deletelink-box"),
		browsertest.NewElement(browser.ClassName("deletelink")).WithClick(browsertest.Goto(confirm)),
	)
	box.Attrs = map[string]string{"style": "display:none"}

	els := []*browsertest.Element{browsertest.NewElement(browser.ClassName("logout")), box}
	els = append(els, browsertest.NewElement(browser.Name("_save")).WithClick(func(s *browsertest.Session) error {
		a.mu.Lock()
		if r.pending {
			r.pending = false
			r.markers++
		}
		a.messages[r.listPath] = fmt.Sprintf("The %s “%s” was changed successfully.", kind(r.listPath), r.name)
		a.mu.Unlock()
		a.renderDetail(r)
		a.renderList(r.listPath)
		return browsertest.Goto(a.url(r.listPath))(s)
	}))

	if r.listPath == workflow.LocationListPath {
		els = append(els,
			browsertest.NewElement(browser.Name("is_mobile")),
			browsertest.NewElement(browser.ClassName("leaflet-draw-draw-marker")).WithClick(func(*browsertest.Session) error {
				a.mu.Lock()
				r.pending = true
				a.mu.Unlock()
				return nil
			}),
			browsertest.NewElement(browser.ID("id_geometry-map")),
		)
		for i := 0; i < r.markers; i++ {
			els = append(els, browsertest.NewElement(browser.ClassName("leaflet-marker-icon")))
		}
	}
	p.Elements = els
}

func kind(listPath string) string {
	parts := strings.Split(strings.Trim(listPath, "/"), "/")
	return parts[len(parts)-1]
}
