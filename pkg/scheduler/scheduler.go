// Package scheduler runs work on a bounded pool of goroutines and hands back
// futures. The diagnostics collector uses it to fetch logs of several
// services at once while the rest of the harness stays sequential.
//
//	AddWork(fn) ──► work chan ──► run() ──► workQueue ──► dispatch() ──► worker
//	                                 ▲                                     │
//	                                 └────────────── done chan ◄───────────┘
//
// Close cancels every pending context, waits for in-flight work and is
// idempotent.
package scheduler

import (
	"context"
	"fmt"
	"sync"
)

type queue[T any] []T

func (q *queue[T]) Len() int { return len(*q) }

func (q *queue[T]) Pop() T {
	old := *q
	x := old[0]
	*q = old[1:]
	return x
}

func (q *queue[T]) Push(t T) {
	*q = append(*q, t)
}

type workRequest[T any] struct {
	fn  Work[T]
	c   chan Result[T]
	ctx context.Context
}

func (r workRequest[T]) execute() {
	defer func() {
		if rec := recover(); rec != nil {
			r.c <- Result[T]{Err: fmt.Errorf("worker panicked: %v", rec)}
		}
	}()
	v, err := r.fn(r.ctx)
	r.c <- Result[T]{Data: v, Err: err}
}

type Scheduler[T any] struct {
	idle       int
	workQueue  *queue[workRequest[T]]
	close      chan struct{}
	done       chan struct{}
	finished   chan struct{}
	work       chan workRequest[T]
	mainCtx    context.Context
	mainCancel context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

func NewScheduler[T any](nbWorkers int) *Scheduler[T] {
	if nbWorkers < 1 {
		nbWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler[T]{
		idle:       nbWorkers,
		workQueue:  &queue[workRequest[T]]{},
		close:      make(chan struct{}),
		done:       make(chan struct{}, nbWorkers),
		finished:   make(chan struct{}),
		work:       make(chan workRequest[T]),
		mainCtx:    ctx,
		mainCancel: cancel,
	}
	go s.run()
	return s
}

func (s *Scheduler[T]) AddWork(w Work[T]) *Future[T] {
	c := make(chan Result[T], 1)
	ctx, cancel := context.WithCancel(s.mainCtx)

	select {
	case <-s.mainCtx.Done():
		c <- Result[T]{Err: context.Canceled}
	case s.work <- workRequest[T]{fn: w, c: c, ctx: ctx}:
	}

	return newFuture(c, cancel)
}

func (s *Scheduler[T]) Close() {
	s.once.Do(func() {
		s.mainCancel()
		close(s.close)
		<-s.finished
	})
}

func (s *Scheduler[T]) run() {
	defer close(s.finished)
	for {
		select {
		case w := <-s.work:
			s.workQueue.Push(w)
			s.dispatch()
		case <-s.done:
			s.idle++
			s.dispatch()
		case <-s.close:
			// queued work never started: its futures still get a result
			for s.workQueue.Len() > 0 {
				s.workQueue.Pop().c <- Result[T]{Err: context.Canceled}
			}
			s.wg.Wait()
			return
		}
	}
}

// dispatch starts queued work while idle workers are available.
func (s *Scheduler[T]) dispatch() {
	for s.idle > 0 && s.workQueue.Len() > 0 {
		r := s.workQueue.Pop()
		s.idle--
		s.wg.Add(1)
		go func() {
			defer func() {
				s.wg.Done()
				s.done <- struct{}{}
			}()
			r.execute()
		}()
	}
}

// Collect submits every work item and waits for all results, preserving the
// submission order.
func Collect[T any](ctx context.Context, s *Scheduler[T], works ...Work[T]) []Result[T] {
	futures := make([]*Future[T], 0, len(works))
	for _, w := range works {
		futures = append(futures, s.AddWork(w))
	}
	results := make([]Result[T], len(futures))
	for i, f := range futures {
		results[i] = f.Await(ctx)
	}
	return results
}
