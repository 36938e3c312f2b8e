// Package verifier checks facts about the stack through channels other than
// the browser: compose CLI output, the task queue inspection CLI, the RADIUS
// token API and the RADIUS protocol itself. All output matching lives here.
package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openwisp/docker-openwisp-e2e/internal/compose"
	srvErrors "github.com/openwisp/docker-openwisp-e2e/pkg/errors"
	"github.com/openwisp/docker-openwisp-e2e/pkg/tlsclient"
)

const (
	activeMarker   = `"is_active":true`
	acceptMarker   = "Received Access-Accept"
	exitedMarker   = "Exit"
	radiusSecret   = "testing123"
	radiusNASPort  = "0"
	defaultTimeout = 30 * time.Second
)

type Verifier struct {
	compose       *compose.Client
	client        *http.Client
	workerService string
	radiusService string
}

type Option func(*Verifier)

func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) { v.client = c }
}

func WithWorkerService(name string) Option {
	return func(v *Verifier) { v.workerService = name }
}

func WithRadiusService(name string) Option {
	return func(v *Verifier) { v.radiusService = name }
}

func New(c *compose.Client, opts ...Option) *Verifier {
	v := &Verifier{
		compose:       c,
		client:        tlsclient.NewInsecure(defaultTimeout),
		workerService: "celery",
		radiusService: "freeradius",
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// TaskRegistration asks a one-off worker for its registered tasks and
// requires every name in expected to be listed.
func (v *Verifier) TaskRegistration(ctx context.Context, expected []string) error {
	res, err := v.compose.Run(ctx, compose.RunOptions{Service: v.workerService, Remove: true},
		"celery", "-A", "openwisp", "inspect", "registered")
	if err != nil {
		return err
	}

	output := res.Combined()
	var missing []string
	for _, name := range expected {
		if !strings.Contains(res.Stdout, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return srvErrors.NewVerificationError("not all celery / celery-beat tasks are registered", missing, output)
	}
	zap.S().Debugw("task registration verified", "tasks", len(expected))
	return nil
}

// TokenResponse is the body returned by the RADIUS token endpoint.
type TokenResponse struct {
	Key             string `json:"key"`
	RadiusUserToken string `json:"radius_user_token"`
	IsActive        bool   `json:"is_active"`
	IsVerified      *bool  `json:"is_verified"`
	Method          string `json:"method"`
	Username        string `json:"username"`
}

// ProtocolAuth obtains a RADIUS user token for username and requires the
// identity to be active.
func (v *Verifier) ProtocolAuth(ctx context.Context, radiusURL, org, username, password string) (*TokenResponse, error) {
	endpoint := fmt.Sprintf("%s/api/v1/%s/account/token/", strings.TrimSuffix(radiusURL, "/"), url.PathEscape(org))
	form := url.Values{"username": {username}, "password": {password}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("couldn't get radius token, check %s: %w", radiusURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, srvErrors.NewVerificationError(
			fmt.Sprintf("couldn't get radius token from %s: status %d", endpoint, resp.StatusCode), nil, string(body))
	}
	if !strings.Contains(string(body), activeMarker) {
		return nil, srvErrors.NewVerificationError("radius token response", []string{activeMarker}, string(body))
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &token, nil
}

// RadiusAccessAccept sends an Access-Request from inside the RADIUS container
// and requires an Access-Accept. The client tools are installed into the
// running container, so it is recreated afterwards whatever the outcome.
func (v *Verifier) RadiusAccessAccept(ctx context.Context, username, password string) (err error) {
	res, err := v.compose.Exec(ctx, v.radiusService, "apk", "add", "freeradius", "freeradius-radclient")
	if err != nil {
		return err
	}
	defer func() {
		if rerr := v.compose.Recreate(ctx, v.radiusService); rerr != nil {
			zap.S().Errorw("failed to recreate radius container", "service", v.radiusService, "error", rerr)
			if err == nil {
				err = rerr
			}
		}
	}()
	if res.ExitCode != 0 {
		zap.S().Warnw("radclient install exited with non zero status", "code", res.ExitCode, "output", res.Combined())
	}

	res, err = v.compose.Exec(ctx, v.radiusService, "radtest", username, password, "localhost", radiusNASPort, radiusSecret)
	if err != nil {
		return err
	}
	if !strings.Contains(res.Stdout, acceptMarker) {
		return srvErrors.NewVerificationError("request not accepted", []string{acceptMarker}, res.Combined())
	}
	return nil
}

// ContainerHealth fails when any container of the project has exited or
// when the container listing itself fails.
func (v *Verifier) ContainerHealth(ctx context.Context) error {
	res, err := v.compose.Ps(ctx)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return srvErrors.NewVerificationError(
			fmt.Sprintf("failed to list containers: exit status %d", res.ExitCode), nil, res.Combined())
	}
	var exited []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		if strings.Contains(line, exitedMarker) {
			exited = append(exited, strings.TrimSpace(line))
		}
	}
	if len(exited) > 0 {
		return srvErrors.NewVerificationError(
			fmt.Sprintf("one of the containers are down: %s", strings.Join(exited, "; ")), nil, res.Combined())
	}
	return nil
}
