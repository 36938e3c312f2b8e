package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/openwisp/docker-openwisp-e2e/internal/browser"
	"github.com/openwisp/docker-openwisp-e2e/internal/models"
	srvErrors "github.com/openwisp/docker-openwisp-e2e/pkg/errors"
)

const (
	LoginPath         = "/admin/login/"
	LocationListPath  = "/admin/geo/location/"
	UserListPath      = "/admin/openwisp_users/user/"
	TopologyListPath  = "/admin/topology/topology/"
	PasswordResetPath = "/accounts/password/reset/"

	// DefaultUserPassword is set on the users created by CreateSuperuser.
	DefaultUserPassword = "cmmczy3!hx8g"
)

// SubmitButton selects the submit input of admin forms.
var SubmitButton = browser.XPath(`//input[@type="submit"]`)

// Registrar records a created resource for teardown.
type Registrar interface {
	Register(models.ResourceHandle)
}

type Library struct {
	appURL       string
	organization string
	topologyURL  string
	userPassword string
	registrar    Registrar
}

type Option func(*Library)

func WithOrganization(org string) Option {
	return func(l *Library) { l.organization = org }
}

func WithTopologyURL(url string) Option {
	return func(l *Library) { l.topologyURL = url }
}

func WithUserPassword(password string) Option {
	return func(l *Library) { l.userPassword = password }
}

func NewLibrary(appURL string, registrar Registrar, opts ...Option) *Library {
	l := &Library{
		appURL:       strings.TrimSuffix(appURL, "/"),
		organization: "default",
		userPassword: DefaultUserPassword,
		registrar:    registrar,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// URL joins path to the dashboard base url.
func (l *Library) URL(path string) string {
	return l.appURL + path
}

// Authenticate logs s in. Calling it on an authenticated session is a no-op
// login: the dashboard redirects away from the login form and the landing page
// is accepted as is.
func (l *Library) Authenticate(ctx context.Context, s browser.Session, username, password string) error {
	if err := s.Navigate(ctx, l.URL(LoginPath)); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}
	current, err := s.CurrentURL(ctx)
	if err != nil {
		return err
	}
	if strings.Contains(current, LoginPath) {
		if err := fill(ctx, s, browser.Name("username"), username); err != nil {
			return err
		}
		if err := fill(ctx, s, browser.Name("password"), password); err != nil {
			return err
		}
		if err := click(ctx, s, SubmitButton); err != nil {
			return err
		}
	}

	_, found, err := s.Find(ctx, browser.ClassName("logout"))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("login failed for username %q: logout control not found", username)
	}
	zap.S().Debugw("session authenticated", "session", s.Name(), "username", username)
	return nil
}

// CreateMobileLocation adds an outdoor mobile location.
func (l *Library) CreateMobileLocation(ctx context.Context, s browser.Session, name string) error {
	return l.createRecord(ctx, s, record{
		addPath:  LocationListPath + "add/",
		listPath: LocationListPath,
		name:     name,
		fields: []step{
			selectByText(browser.Name("organization"), l.organization),
			input(browser.Name("name"), name),
			selectByValue(browser.Name("type"), "outdoor"),
			check(browser.Name("is_mobile")),
		},
		submits: []browser.Selector{browser.Name("_save")},
	})
}

// CreateSuperuser adds a superuser. The add form redirects to the change form
// which is saved once more, leaving the "changed successfully" message on the
// list page.
func (l *Library) CreateSuperuser(ctx context.Context, s browser.Session, email, username string) error {
	return l.createRecord(ctx, s, record{
		addPath:  UserListPath + "add/",
		listPath: UserListPath,
		name:     username,
		fields: []step{
			input(browser.Name("username"), username),
			input(browser.Name("email"), email),
			input(browser.Name("password1"), l.userPassword),
			input(browser.Name("password2"), l.userPassword),
			check(browser.Name("is_superuser")),
		},
		submits: []browser.Selector{browser.Name("_save"), browser.Name("_save")},
	})
}

// CreateNetworkTopology adds a topology fetching its graph from the
// configured topology url.
func (l *Library) CreateNetworkTopology(ctx context.Context, s browser.Session, label string) error {
	return l.createRecord(ctx, s, record{
		addPath:  TopologyListPath + "add/",
		listPath: TopologyListPath,
		name:     label,
		fields: []step{
			selectByText(browser.Name("organization"), l.organization),
			input(browser.Name("label"), label),
			input(browser.Name("url"), l.topologyURL),
		},
		submits: []browser.Selector{browser.Name("_save")},
	})
}

// AddMobileLocationPoint places a marker on the map of location name and saves.
func (l *Library) AddMobileLocationPoint(ctx context.Context, s browser.Session, name string) error {
	if _, err := l.OpenResourceDetail(ctx, s, name, LocationListPath); err != nil {
		return err
	}
	for _, sel := range []browser.Selector{
		browser.ClassName("leaflet-draw-draw-marker"),
		browser.ID("id_geometry-map"),
		browser.Name("_save"),
	} {
		if err := click(ctx, s, sel); err != nil {
			return err
		}
	}
	return nil
}

// PerformBulkAction selects the row of name on the list page and applies
// action. Actions asking for confirmation are left on their confirmation page.
func (l *Library) PerformBulkAction(ctx context.Context, s browser.Session, name, listPath, action string) error {
	if err := s.Navigate(ctx, l.URL(listPath)); err != nil {
		return err
	}
	if err := click(ctx, s, RowCheckbox(name)); err != nil {
		return err
	}
	if err := selectByValue(browser.Name("action"), action)(ctx, s); err != nil {
		return err
	}
	return click(ctx, s, browser.Name("index"))
}

// OpenResourceDetail follows the link of name on the list page and returns
// the detail page url. A missing link is reported as ResourceGoneError.
func (l *Library) OpenResourceDetail(ctx context.Context, s browser.Session, name, listPath string) (string, error) {
	listURL := l.URL(listPath)
	if err := s.Navigate(ctx, listURL); err != nil {
		return "", err
	}
	link, found, err := s.Find(ctx, ResultLink(name))
	if err != nil {
		return "", err
	}
	if !found {
		return "", srvErrors.NewResourceGoneError(fmt.Sprintf("%s (%s)", listURL, name))
	}
	if err := link.Click(ctx); err != nil {
		return "", err
	}
	return s.CurrentURL(ctx)
}

// DeleteResource deletes the record shown at detailURL. The delete box is
// hidden by the admin theme and is revealed by script first. A page without
// a delete box is reported as ResourceGoneError.
func (l *Library) DeleteResource(ctx context.Context, s browser.Session, detailURL string) error {
	if err := s.Navigate(ctx, detailURL); err != nil {
		return err
	}
	box, found, err := s.Find(ctx, browser.ClassName("deletelink-box"))
	if err != nil {
		return err
	}
	if !found {
		return srvErrors.NewResourceGoneError(detailURL)
	}
	if _, err := s.ExecuteScript(ctx, "arguments[0].setAttribute('style', 'display:block')", box); err != nil {
		return fmt.Errorf("failed to reveal delete link: %w", err)
	}
	link, found, err := box.Find(ctx, browser.ClassName("deletelink"))
	if err != nil {
		return err
	}
	if !found {
		return srvErrors.NewResourceGoneError(detailURL)
	}
	if err := link.Click(ctx); err != nil {
		return err
	}
	return click(ctx, s, SubmitButton)
}

// RequestPasswordReset submits the password reset form for email.
func (l *Library) RequestPasswordReset(ctx context.Context, s browser.Session, email string) error {
	if err := s.Navigate(ctx, l.URL(PasswordResetPath)); err != nil {
		return err
	}
	if err := fill(ctx, s, browser.Name("email"), email); err != nil {
		return err
	}
	return click(ctx, s, SubmitButton)
}

type record struct {
	addPath  string
	listPath string
	name     string
	fields   []step
	// submits are clicked in order once every field is set
	submits []browser.Selector
}

// createRecord fills and submits the add form of a record kind. The record is
// registered before the first submit, since the dashboard may persist it even
// when a later step fails.
func (l *Library) createRecord(ctx context.Context, s browser.Session, r record) error {
	if err := s.Navigate(ctx, l.URL(r.addPath)); err != nil {
		return err
	}
	for _, st := range r.fields {
		if err := st(ctx, s); err != nil {
			return fmt.Errorf("failed to create %q: %w", r.name, err)
		}
	}
	l.registrar.Register(models.ResourceHandle{Name: r.name, ListURL: r.listPath})
	for _, sel := range r.submits {
		if err := click(ctx, s, sel); err != nil {
			return fmt.Errorf("failed to create %q: %w", r.name, err)
		}
	}
	zap.S().Debugw("record created", "name", r.name, "list", r.listPath)
	return nil
}

// ResultLink selects the link of name in an admin change list.
func ResultLink(name string) browser.Selector {
	return browser.XPath(fmt.Sprintf(`//table[@id="result_list"]//a[normalize-space(.)=%s]`, browser.XPathLiteral(name)))
}

// RowCheckbox selects the action checkbox of the change list row linking to name.
func RowCheckbox(name string) browser.Selector {
	return browser.XPath(fmt.Sprintf(
		`//table[@id="result_list"]//tr[.//a[normalize-space(.)=%s]]//input[@name="_selected_action"]`,
		browser.XPathLiteral(name),
	))
}
