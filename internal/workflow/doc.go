// Package workflow implements the admin interactions scenarios are built
// from: login, record creation, bulk actions, detail lookup and deletion.
//
// Each workflow is a fixed sequence of browser.Session calls. Workflows never
// branch on the browser engine. Records that leave persistent state are
// registered with the Registrar before the workflow returns so teardown can
// remove them.
//
// Admin paths used:
//
//	/admin/login/                     login form, redirects to /admin/ once authenticated
//	/admin/geo/location/              locations
//	/admin/openwisp_users/user/       users
//	/admin/topology/topology/         network topologies
//	/accounts/password/reset/         password reset form
package workflow
