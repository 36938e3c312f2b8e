package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	srvErrors "github.com/openwisp/docker-openwisp-e2e/pkg/errors"
	"github.com/openwisp/docker-openwisp-e2e/pkg/tlsclient"
)

const defaultRequestTimeout = 10 * time.Second

// Prober polls an HTTP endpoint until it answers with a 2xx status.
type Prober struct {
	client     *http.Client
	maxRetries int
	delay      time.Duration
}

type Option func(*Prober)

func WithHTTPClient(c *http.Client) Option {
	return func(p *Prober) { p.client = c }
}

// New creates a prober issuing at most maxRetries requests, waiting delay
// between two of them. Certificates are not verified.
func New(maxRetries int, delay time.Duration, opts ...Option) *Prober {
	p := &Prober{
		client:     tlsclient.NewInsecure(defaultRequestTimeout),
		maxRetries: maxRetries,
		delay:      delay,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Wait blocks until url is ready or the retry budget is exhausted. Connection
// errors and error statuses count as "not ready yet". Exhaustion returns a
// ServiceUnreachableError; a cancelled context returns the context error.
func (p *Prober) Wait(ctx context.Context, url string) error {
	start := time.Now()
	attempts := 0
	var last error

	operation := func() (int, error) {
		attempts++
		status, err := p.check(ctx, url)
		if err != nil {
			last = err
			zap.S().Debugw("service not ready", "url", url, "attempt", attempts, "error", err)
			return 0, err
		}
		return status, nil
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(p.delay)),
		backoff.WithMaxTries(uint(p.maxRetries)),
		backoff.WithMaxElapsedTime(0),
	)
	if err == nil {
		zap.S().Infow("service ready", "url", url, "attempts", attempts, "elapsed", time.Since(start))
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return srvErrors.NewServiceUnreachableError(url, attempts, time.Since(start), last)
}

func (p *Prober) check(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return resp.StatusCode, nil
}
