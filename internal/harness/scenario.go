package harness

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/openwisp/docker-openwisp-e2e/internal/browser"
	"github.com/openwisp/docker-openwisp-e2e/internal/models"
)

// Preconditions a scenario may declare. The runner establishes each one
// before the scenario body runs.
const (
	RequiresPrimaryLogin   = "primary session authenticated"
	RequiresSecondaryLogin = "secondary session authenticated"
)

type Scenario struct {
	Name     string
	Requires []string
	Run      func(ctx context.Context, t *T)
}

// failure is the panic value carrying an assertion failure out of a
// scenario body up to the runner.
type failure struct {
	message string
}

// T is handed to a scenario body. Its Gomega aborts only the current
// scenario on failure.
type T struct {
	gomega.Gomega
	*Suite

	name   string
	logger *zap.SugaredLogger
}

func newT(s *Suite, name string) *T {
	t := &T{
		Suite:  s,
		name:   name,
		logger: zap.S().Named("scenario").With("scenario", name),
	}
	t.Gomega = gomega.NewGomega(func(message string, _ ...int) {
		panic(failure{message: message})
	})
	return t
}

func (t *T) Name() string { return t.name }

// Fatalf fails the scenario.
func (t *T) Fatalf(format string, args ...any) {
	panic(failure{message: fmt.Sprintf(format, args...)})
}

// Must fails the scenario when err is not nil.
func (t *T) Must(err error) {
	if err != nil {
		t.Fatalf("%v", err)
	}
}

func (t *T) Logf(format string, args ...any) {
	t.logger.Infof(format, args...)
}

// ExpectNoConsoleErrors drains the console of sess and fails on any error
// entry, naming where the page was loaded from.
func (t *T) ExpectNoConsoleErrors(sess browser.Session, where string) {
	errs := t.ConsoleErrors(sess)
	t.Expect(errs).To(gomega.BeEmpty(), "console errors on %s", where)
}

// Settle returns the timeout and polling interval used to wait for changes
// the stack propagates asynchronously.
func (t *T) Settle() (timeout, polling time.Duration) {
	d := t.Config.Browser.SettleDelay
	timeout = max(3*d, time.Second)
	polling = max(d/4, 50*time.Millisecond)
	return timeout, polling
}

// run executes sc and converts failures and panics into a result.
func run(ctx context.Context, s *Suite, sc Scenario) (res models.ScenarioResult) {
	res = models.ScenarioResult{Name: sc.Name, Status: models.ScenarioStatusPassed, StartedAt: time.Now()}
	t := newT(s, sc.Name)

	defer func() {
		res.EndedAt = time.Now()
		rec := recover()
		if rec == nil {
			return
		}
		res.Status = models.ScenarioStatusFailed
		if f, ok := rec.(failure); ok {
			res.Message = f.message
			return
		}
		res.Message = fmt.Sprintf("panic: %v", rec)
		t.logger.Errorw("scenario panicked", "panic", rec, "stack", string(debug.Stack()))
	}()

	sc.Run(ctx, t)
	return res
}

// Select returns the scenarios of catalog named in names, in catalog order.
// An empty names selects everything.
func Select(catalog []Scenario, names []string) ([]Scenario, error) {
	if len(names) == 0 {
		return catalog, nil
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out []Scenario
	for _, sc := range catalog {
		if wanted[sc.Name] {
			out = append(out, sc)
			delete(wanted, sc.Name)
		}
	}
	for n := range wanted {
		return nil, fmt.Errorf("unknown scenario %q", n)
	}
	return out, nil
}
