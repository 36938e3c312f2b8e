package harness

import (
	"context"
	"fmt"

	"github.com/onsi/gomega"

	"github.com/openwisp/docker-openwisp-e2e/internal/browser"
	"github.com/openwisp/docker-openwisp-e2e/internal/workflow"
)

// AdminLogin logs both sessions in and checks each shows the logout control.
func AdminLogin() Scenario {
	return Scenario{
		Name: "admin login",
		Run: func(ctx context.Context, t *T) {
			creds := t.Config.Credentials
			for _, sess := range []browser.Session{t.Primary, t.Secondary} {
				t.Must(t.Library.Authenticate(ctx, sess, creds.Username, creds.Password))
				_, found, err := sess.Find(ctx, browser.ClassName("logout"))
				t.Must(err)
				t.Expect(found).To(gomega.BeTrue(), "login failed for %s session with username %q", sess.Name(), creds.Username)
			}
		},
	}
}

// ConsoleErrors loads the admin page catalog and the record change forms and
// requires every one to render without console errors under the product
// title.
func ConsoleErrors() Scenario {
	return Scenario{
		Name:     "console errors",
		Requires: []string{RequiresPrimaryLogin},
		Run: func(ctx context.Context, t *T) {
			s := t.Primary
			marker := t.Config.Targets.TitleMarker

			t.Must(t.Library.CreateMobileLocation(ctx, s, ConsoleLocation))
			t.Must(t.Library.CreateSuperuser(ctx, s, ConsoleSuperuserMail, ConsoleSuperuser))
			// entries logged while creating records are not part of the check
			t.ConsoleErrors(s)

			for _, path := range ConsolePages {
				t.Must(s.Navigate(ctx, t.Library.URL(path)))
				t.ExpectNoConsoleErrors(s, path)
				title, err := s.Title(ctx)
				t.Must(err)
				t.Expect(title).To(gomega.ContainSubstring(marker), "title of %s", path)
			}

			for _, form := range ConsoleChangeForms {
				where := fmt.Sprintf("%s (%s)", form.Name, form.ListPath)
				_, err := t.Library.OpenResourceDetail(ctx, s, form.Name, form.ListPath)
				t.Must(err)
				t.ExpectNoConsoleErrors(s, where)
				title, err := s.Title(ctx)
				t.Must(err)
				t.Expect(title).To(gomega.ContainSubstring(marker), "title of %s", where)
			}
		},
	}
}

// WebsocketMarker checks that a marker placed from the secondary session is
// pushed to the primary session viewing the same location.
func WebsocketMarker() Scenario {
	return Scenario{
		Name:     "websocket marker",
		Requires: []string{RequiresPrimaryLogin, RequiresSecondaryLogin},
		Run: func(ctx context.Context, t *T) {
			lib := t.Library
			markers := func() (int, error) {
				els, err := t.Primary.FindAll(ctx, browser.ClassName("leaflet-marker-icon"))
				return len(els), err
			}

			t.Must(lib.CreateMobileLocation(ctx, t.Primary, WebsocketLocation))
			_, err := lib.OpenResourceDetail(ctx, t.Primary, WebsocketLocation, workflow.LocationListPath)
			t.Must(err)
			_, err = lib.OpenResourceDetail(ctx, t.Secondary, WebsocketLocation, workflow.LocationListPath)
			t.Must(err)

			mobile, found, err := t.Primary.Find(ctx, browser.Name("is_mobile"))
			t.Must(err)
			t.Expect(found).To(gomega.BeTrue(), "is_mobile checkbox")
			t.Must(mobile.Click(ctx))

			t.Expect(markers()).To(gomega.Equal(0))

			t.Must(lib.AddMobileLocationPoint(ctx, t.Secondary, WebsocketLocation))

			timeout, polling := t.Settle()
			t.Eventually(markers).WithTimeout(timeout).WithPolling(polling).Should(gomega.Equal(1))
		},
	}
}

// TopologyGraph creates a topology and checks its nodes are fetched once the
// topology is updated, using the delete confirmation page to list them.
func TopologyGraph() Scenario {
	return Scenario{
		Name:     "topology graph",
		Requires: []string{RequiresPrimaryLogin},
		Run: func(ctx context.Context, t *T) {
			s := t.Primary
			lib := t.Library
			path := workflow.TopologyListPath

			t.Must(lib.CreateNetworkTopology(ctx, s, TopologyLabel))

			t.Must(lib.PerformBulkAction(ctx, s, TopologyLabel, path, "delete_selected"))
			source, err := s.PageSource(ctx)
			t.Must(err)
			t.Expect(source).NotTo(gomega.ContainSubstring("Nodes"))

			t.Must(lib.PerformBulkAction(ctx, s, TopologyLabel, path, "update_selected"))

			timeout, polling := t.Settle()
			t.Eventually(func() (string, error) {
				if err := lib.PerformBulkAction(ctx, s, TopologyLabel, path, "delete_selected"); err != nil {
					return "", err
				}
				return s.PageSource(ctx)
			}).WithTimeout(timeout).WithPolling(polling).Should(gomega.ContainSubstring("Nodes"))
		},
	}
}

func AddSuperuser() Scenario {
	return Scenario{
		Name:     "add superuser",
		Requires: []string{RequiresPrimaryLogin},
		Run: func(ctx context.Context, t *T) {
			s := t.Primary
			t.Must(t.Library.CreateSuperuser(ctx, s, SuperuserMail, Superuser))

			msgs, err := s.FindAll(ctx, browser.ClassName("success"))
			t.Must(err)
			t.Expect(msgs).NotTo(gomega.BeEmpty(), "success message")
			text, err := msgs[0].Text(ctx)
			t.Must(err)
			t.Expect(text).To(gomega.Equal(fmt.Sprintf("The user “%s” was changed successfully.", Superuser)))
		},
	}
}

// ForgotPassword checks the mail service accepts a password reset.
func ForgotPassword() Scenario {
	return Scenario{
		Name: "forgot password",
		Run: func(ctx context.Context, t *T) {
			s := t.Primary
			t.Must(t.Library.RequestPasswordReset(ctx, s, PasswordResetMail))
			source, err := s.PageSource(ctx)
			t.Must(err)
			t.Expect(source).To(gomega.ContainSubstring(PasswordResetSent))
		},
	}
}

func TaskRegistration() Scenario {
	return Scenario{
		Name: "task registration",
		Run: func(ctx context.Context, t *T) {
			t.Must(t.Verifier.TaskRegistration(ctx, t.Config.ExpectedTasks))
		},
	}
}

// Radius checks the RADIUS token API and the RADIUS protocol itself.
func Radius() Scenario {
	return Scenario{
		Name: "radius",
		Run: func(ctx context.Context, t *T) {
			cfg := t.Config
			token, err := t.Verifier.ProtocolAuth(ctx, cfg.Targets.RadiusURL, cfg.Targets.Organization,
				cfg.Credentials.Username, cfg.Credentials.Password)
			t.Must(err)
			t.Expect(token.IsActive).To(gomega.BeTrue())

			t.Must(t.Verifier.RadiusAccessAccept(ctx, cfg.Credentials.Username, cfg.Credentials.Password))
		},
	}
}

func ContainersDown() Scenario {
	return Scenario{
		Name: "containers down",
		Run: func(ctx context.Context, t *T) {
			t.Must(t.Verifier.ContainerHealth(ctx))
		},
	}
}
