package verifier_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openwisp/docker-openwisp-e2e/internal/compose"
	"github.com/openwisp/docker-openwisp-e2e/internal/config"
	"github.com/openwisp/docker-openwisp-e2e/internal/testutil/fakestack"
	"github.com/openwisp/docker-openwisp-e2e/internal/verifier"
	"github.com/openwisp/docker-openwisp-e2e/pkg/command"
	"github.com/openwisp/docker-openwisp-e2e/pkg/command/commandtest"
	srvErrors "github.com/openwisp/docker-openwisp-e2e/pkg/errors"
)

var _ = Describe("Verifier", func() {
	var (
		ctx    context.Context
		runner *commandtest.Runner
		v      *verifier.Verifier
	)

	BeforeEach(func() {
		ctx = context.Background()
		runner = commandtest.NewRunner()
		c, err := compose.New(runner, "docker compose")
		Expect(err).NotTo(HaveOccurred())
		v = verifier.New(c, verifier.WithWorkerService("celery"), verifier.WithRadiusService("freeradius"))
	})

	Context("TaskRegistration", func() {
		registered := func(tasks []string) command.Result {
			var sb strings.Builder
			sb.WriteString("-> celery@worker: OK\n")
			for _, t := range tasks {
				sb.WriteString("    * " + t + "\n")
			}
			return command.Result{Stdout: sb.String()}
		}

		// Given a worker with every expected task registered
		// When we verify task registration
		// Then it should pass
		It("should pass when every task is registered", func() {
			runner.On("inspect registered", registered(config.DefaultExpectedTasks))

			err := v.TaskRegistration(ctx, config.DefaultExpectedTasks)

			Expect(err).NotTo(HaveOccurred())
			Expect(runner.Calls()).To(ConsistOf("docker compose run --rm celery celery -A openwisp inspect registered"))
		})

		// Given a worker missing one task
		// When we verify task registration
		// Then it should fail naming the task and carrying the full output
		It("should fail with the missing names and the full output", func() {
			tasks := config.DefaultExpectedTasks[1:]
			runner.On("inspect registered", registered(tasks))

			err := v.TaskRegistration(ctx, config.DefaultExpectedTasks)

			Expect(srvErrors.IsVerificationError(err)).To(BeTrue())
			var verr *srvErrors.VerificationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Missing).To(Equal([]string{config.DefaultExpectedTasks[0]}))
			Expect(verr.Output).To(ContainSubstring("celery@worker: OK"))
		})

		It("should propagate command start failures", func() {
			runner.Fail("inspect registered", srvErrors.NewCommandError("docker compose run", errors.New("not found")))

			err := v.TaskRegistration(ctx, config.DefaultExpectedTasks)

			Expect(srvErrors.IsCommandError(err)).To(BeTrue())
		})
	})

	Context("ProtocolAuth", func() {
		var stack *fakestack.Stack

		BeforeEach(func() {
			stack = fakestack.New(
				fakestack.WithUser("admin", "admin", true),
				fakestack.WithUser("suspended", "secret", false),
			)
		})

		AfterEach(func() {
			stack.Close()
		})

		// Given valid credentials
		// When we request a token over the self-signed TLS endpoint
		// Then an active identity should be returned
		It("should return the token of an active identity", func() {
			token, err := v.ProtocolAuth(ctx, stack.URL(), "default", "admin", "admin")

			Expect(err).NotTo(HaveOccurred())
			Expect(token.IsActive).To(BeTrue())
			Expect(token.Username).To(Equal("admin"))
			Expect(token.Key).NotTo(BeEmpty())
		})

		It("should fail for an inactive identity", func() {
			_, err := v.ProtocolAuth(ctx, stack.URL(), "default", "suspended", "secret")

			Expect(srvErrors.IsVerificationError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring(`"is_active":false`))
		})

		It("should fail for invalid credentials", func() {
			_, err := v.ProtocolAuth(ctx, stack.URL(), "default", "admin", "nope")

			Expect(srvErrors.IsVerificationError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("status 400"))
		})

		It("should fail for an unknown organization", func() {
			_, err := v.ProtocolAuth(ctx, stack.URL()+"/", "other", "admin", "admin")

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("status 404"))
		})

		It("should report an unreachable endpoint", func() {
			url := stack.URL()
			stack.Close()

			_, err := v.ProtocolAuth(ctx, url, "default", "admin", "admin")

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("couldn't get radius token"))
		})
	})

	Context("RadiusAccessAccept", func() {
		// Given a RADIUS container accepting the credentials
		// When we run radtest
		// Then it should pass and the container should be recreated
		It("should accept and recreate the container", func() {
			runner.On("radtest", command.Result{Stdout: "Sent Access-Request Id 1\nReceived Access-Accept Id 1\n"})

			err := v.RadiusAccessAccept(ctx, "admin", "admin")

			Expect(err).NotTo(HaveOccurred())
			Expect(runner.Calls()).To(Equal([]string{
				"docker compose exec -T freeradius apk add freeradius freeradius-radclient",
				"docker compose exec -T freeradius radtest admin admin localhost 0 testing123",
				"docker compose rm --stop --force freeradius",
				"docker compose up --detach freeradius",
			}))
		})

		// Given a RADIUS container rejecting the request
		// When we run radtest
		// Then it should fail with the output and still recreate the container
		It("should fail on reject and still recreate the container", func() {
			runner.On("radtest", command.Result{Stdout: "Received Access-Reject Id 1\n", Stderr: "(0) -: Expected Access-Accept got Access-Reject"})

			err := v.RadiusAccessAccept(ctx, "admin", "admin")

			Expect(srvErrors.IsVerificationError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("Expected Access-Accept got Access-Reject"))
			Expect(runner.Count("up --detach freeradius")).To(Equal(1))
		})

		It("should report a failed recreation", func() {
			runner.On("radtest", command.Result{Stdout: "Received Access-Accept Id 1\n"})
			runner.On("rm --stop", command.Result{ExitCode: 1, Stderr: "no such service"})

			err := v.RadiusAccessAccept(ctx, "admin", "admin")

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("no such service"))
		})
	})

	Context("ContainerHealth", func() {
		It("should pass when every container is up", func() {
			runner.On("ps", command.Result{Stdout: "NAME STATUS\nopenwisp-dashboard-1 Up 3 minutes\nopenwisp-celery-1 Up 3 minutes\n"})

			Expect(v.ContainerHealth(ctx)).To(Succeed())
		})

		// Given one exited container
		// When we check container health
		// Then it should fail naming the offending line
		It("should fail naming exited containers", func() {
			runner.On("ps", command.Result{Stdout: "NAME STATUS\nopenwisp-dashboard-1 Up 3 minutes\nopenwisp-postfix-1 Exited (1) 2 minutes ago\n"})

			err := v.ContainerHealth(ctx)

			Expect(srvErrors.IsVerificationError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("openwisp-postfix-1 Exited (1)"))
			Expect(err.Error()).NotTo(ContainSubstring("openwisp-dashboard-1 Up 3 minutes;"))
		})

		// Given a compose ps call that fails without listing anything
		// When we check container health
		// Then it should fail carrying the compose output
		It("should fail when containers cannot be listed", func() {
			runner.On("ps", command.Result{ExitCode: 1, Stderr: "no configuration file provided: not found"})

			err := v.ContainerHealth(ctx)

			Expect(srvErrors.IsVerificationError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("failed to list containers: exit status 1"))
			Expect(err.Error()).To(ContainSubstring("no configuration file provided"))
		})
	})
})
