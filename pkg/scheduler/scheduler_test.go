package scheduler_test

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openwisp/docker-openwisp-e2e/pkg/scheduler"
)

var _ = Describe("Scheduler", func() {
	var s *scheduler.Scheduler[string]

	AfterEach(func() {
		if s != nil {
			s.Close()
		}
	})

	Describe("AddWork", func() {
		It("should add work and return a future", func() {
			s = scheduler.NewScheduler[string](1)

			future := s.AddWork(func(ctx context.Context) (string, error) {
				return "done", nil
			})
			Expect(future).NotTo(BeNil())

			var result scheduler.Result[string]
			Eventually(future.C(), 2*time.Second).Should(Receive(&result))
			Expect(result.Data).To(Equal("done"))
		})

		It("should report panics as errors", func() {
			s = scheduler.NewScheduler[string](1)

			future := s.AddWork(func(ctx context.Context) (string, error) {
				panic("boom")
			})

			result := future.Await(context.Background())
			Expect(result.Err).To(MatchError(ContainSubstring("worker panicked: boom")))
		})
	})

	Describe("Concurrency", func() {
		It("should never run more work than workers", func() {
			s = scheduler.NewScheduler[string](2)

			var running, peak atomic.Int32
			works := make([]scheduler.Work[string], 6)
			for i := range works {
				works[i] = func(ctx context.Context) (string, error) {
					n := running.Add(1)
					for {
						p := peak.Load()
						if n <= p || peak.CompareAndSwap(p, n) {
							break
						}
					}
					time.Sleep(20 * time.Millisecond)
					running.Add(-1)
					return "ok", nil
				}
			}

			results := scheduler.Collect(context.Background(), s, works...)

			Expect(results).To(HaveLen(6))
			Expect(peak.Load()).To(BeNumerically("<=", 2))
		})
	})

	Describe("Collect", func() {
		It("should keep submission order", func() {
			s = scheduler.NewScheduler[string](3)

			results := scheduler.Collect(context.Background(), s,
				func(ctx context.Context) (string, error) {
					time.Sleep(30 * time.Millisecond)
					return "dashboard", nil
				},
				func(ctx context.Context) (string, error) { return "", errors.New("radius down") },
				func(ctx context.Context) (string, error) { return "celery", nil },
			)

			Expect(results[0].Data).To(Equal("dashboard"))
			Expect(results[1].Err).To(MatchError("radius down"))
			Expect(results[2].Data).To(Equal("celery"))
		})
	})

	Describe("Cancel work", func() {
		It("should cancel work via future.Stop()", func() {
			s = scheduler.NewScheduler[string](1)

			cancelled := make(chan bool, 1)
			future := s.AddWork(func(ctx context.Context) (string, error) {
				select {
				case <-ctx.Done():
					cancelled <- true
					return "", ctx.Err()
				case <-time.After(5 * time.Second):
					return "completed", nil
				}
			})
			time.Sleep(50 * time.Millisecond)
			future.Stop()

			Eventually(cancelled, 2*time.Second).Should(Receive(BeTrue()))
		})

		It("should cancel work when the awaiting context ends", func() {
			s = scheduler.NewScheduler[string](1)

			future := s.AddWork(func(ctx context.Context) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			})

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			Expect(future.Await(ctx).Err).To(MatchError(context.DeadlineExceeded))
		})
	})

	Describe("Close behavior", func() {
		It("should return canceled when AddWork is called after Close", func() {
			s = scheduler.NewScheduler[string](1)
			s.Close()

			future := s.AddWork(func(ctx context.Context) (string, error) {
				return "done", nil
			})

			var result scheduler.Result[string]
			Eventually(future.C(), time.Second).Should(Receive(&result))
			Expect(result.Err).To(MatchError(context.Canceled))
		})

		It("should resolve queued futures on Close", func() {
			s = scheduler.NewScheduler[string](1)

			block := s.AddWork(func(ctx context.Context) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			})
			queued := s.AddWork(func(ctx context.Context) (string, error) {
				if err := ctx.Err(); err != nil {
					return "", err
				}
				return "never", nil
			})

			s.Close()
			s = nil

			Eventually(block.C(), time.Second).Should(Receive())
			var result scheduler.Result[string]
			Eventually(queued.C(), time.Second).Should(Receive(&result))
			Expect(result.Err).To(HaveOccurred())
		})

		It("should not leak goroutines after Close under load", func() {
			base := runtime.NumGoroutine()
			s = scheduler.NewScheduler[string](4)

			for i := 0; i < 100; i++ {
				s.AddWork(func(ctx context.Context) (string, error) {
					<-ctx.Done()
					return "", ctx.Err()
				})
			}

			time.Sleep(50 * time.Millisecond)
			s.Close()
			s = nil

			Eventually(func() int {
				return runtime.NumGoroutine()
			}, 5*time.Second, 100*time.Millisecond).Should(BeNumerically("<=", base+10))
		})
	})
})
