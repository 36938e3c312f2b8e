package harness

import "github.com/openwisp/docker-openwisp-e2e/internal/workflow"

// ConsolePages are loaded by the console errors scenario; each must render
// without console errors.
var ConsolePages = []string{
	"/admin/",
	"/admin/geo/location/add/",
	"/accounts/password/reset/",
	"/admin/config/device/add/",
	"/admin/config/template/add/",
	"/admin/openwisp_radius/radiuscheck/add/",
	"/admin/openwisp_radius/radiusgroup/add/",
	"/admin/openwisp_radius/radiusbatch/add/",
	"/admin/openwisp_radius/nas/add/",
	"/admin/openwisp_radius/radiusreply/",
	"/admin/geo/floorplan/add/",
	"/admin/topology/link/add/",
	"/admin/topology/node/add/",
	"/admin/topology/topology/add/",
	"/admin/pki/ca/add/",
	"/admin/pki/cert/add/",
	"/admin/openwisp_users/user/add/",
	"/admin/firmware_upgrader/build/",
	"/admin/firmware_upgrader/build/add/",
	"/admin/firmware_upgrader/category/",
	"/admin/firmware_upgrader/category/add/",
}

// ChangeForm is a record opened from its change list.
type ChangeForm struct {
	Name     string
	ListPath string
}

// ConsoleChangeForms are the record forms checked by the console errors
// scenario. The first and last ones are created by the scenario itself, the
// others come with a fresh deployment.
var ConsoleChangeForms = []ChangeForm{
	{ConsoleLocation, workflow.LocationListPath},
	{"users", "/admin/openwisp_radius/radiusgroup/"},
	{"default-management-vpn", "/admin/config/template/"},
	{"default", "/admin/config/vpn/"},
	{"default", "/admin/pki/ca/"},
	{"default", "/admin/pki/cert/"},
	{"default", "/admin/openwisp_users/organization/"},
	{ConsoleSuperuser, workflow.UserListPath},
}

// Records created by the scenarios.
const (
	ConsoleLocation      = "automated-selenium-location01"
	ConsoleSuperuser     = "test_superuser2"
	ConsoleSuperuserMail = "sample@email.com"
	WebsocketLocation    = "automated-websocket-selenium-loc01"
	TopologyLabel        = "automated-selenium-test-02"
	Superuser            = "test_superuser"
	SuperuserMail        = "test@email.com"
	PasswordResetMail    = "admin@example.com"

	PasswordResetSent = "We have sent you an e-mail. Please contact us if you do not receive it within a few minutes."
)

// Catalog returns every scenario in run order.
func Catalog() []Scenario {
	return []Scenario{
		AdminLogin(),
		ConsoleErrors(),
		WebsocketMarker(),
		TopologyGraph(),
		AddSuperuser(),
		ForgotPassword(),
		TaskRegistration(),
		Radius(),
		ContainersDown(),
	}
}
