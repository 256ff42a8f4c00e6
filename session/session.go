// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package session confines an object cache to a single worker goroutine.
// Callers on any goroutine submit operations to a session; the worker runs
// them one at a time, in the order they were submitted, and hands each
// result to a completion function.
package session // import "safeapp.io/session"

import (
	"fmt"
	"sync"
	"sync/atomic"

	"safeapp.io/config"
	"safeapp.io/errors"
	"safeapp.io/log"
	"safeapp.io/metric"
	"safeapp.io/objectcache"
)

// task is one queued operation. Exactly one of run and reject is called.
type task struct {
	run    func(c *objectcache.Cache) // executes on the worker.
	reject func(err error)            // completes the task without running it.
}

// Session owns an object cache and the worker goroutine that serves it.
type Session struct {
	id       uint64
	teardown config.Teardown

	// cache is used exclusively by the worker goroutine.
	cache *objectcache.Cache

	mu     sync.Mutex
	wake   *sync.Cond // Signalled when queue grows or the session closes.
	queue  []*task
	closed bool

	// terminated is closed when the worker exits.
	terminated chan struct{}
}

var lastID uint64

// New starts a session with a new, empty object cache.
// A nil config selects the defaults.
func New(cfg config.Config) *Session {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Session{
		id:         atomic.AddUint64(&lastID, 1),
		teardown:   cfg.Teardown(),
		cache:      objectcache.New(),
		terminated: make(chan struct{}),
	}
	s.wake = sync.NewCond(&s.mu)
	go s.worker()
	return s
}

func (s *Session) String() string {
	return fmt.Sprintf("session %d", s.id)
}

// enqueue appends t to the queue. It fails with Disconnected once Close
// has been called.
func (s *Session) enqueue(t *task) error {
	const op errors.Op = "session.enqueue"
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.E(op, errors.Disconnected, errors.Errorf("%v is closed", s))
	}
	s.queue = append(s.queue, t)
	s.wake.Signal()
	return nil
}

// worker runs queued tasks in order until the session is closed and,
// depending on the teardown policy, the queue is drained or rejected.
func (s *Session) worker() {
	const op errors.Op = "session.worker"
	log.Debug.Printf("%s: %v started", op, s)
	ran, rejected := 0, 0
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.wake.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			break
		}
		t := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		reject := s.closed && s.teardown == config.Reject
		s.mu.Unlock()

		if reject {
			t.reject(errors.E(op, errors.Disconnected, errors.Errorf("%v closed before the operation ran", s)))
			rejected++
			continue
		}
		t.run(s.cache)
		ran++
	}
	// The cache lives and dies with the session.
	s.cache = nil
	log.Debug.Printf("%s: %v stopped after %d operations, %d rejected", op, s, ran, rejected)
	close(s.terminated)
}

// Close stops the session. Operations submitted after Close fail with
// Disconnected. Operations already queued are run if the session's teardown
// policy is config.Drain, or completed with a Disconnected error if it is
// config.Reject. Close waits for the worker to finish and must therefore not
// be called from an operation or a completion. Closing a closed session is
// a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		log.Debug.Printf("session.Close: %v closing with %d queued, teardown %v", s, len(s.queue), s.teardown)
		s.wake.Signal()
	}
	s.mu.Unlock()
	<-s.terminated
	return nil
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Call queues op for execution on the session's worker and returns
// immediately. When op has run, done is called on the worker with its
// result. If op panics, done receives an Internal error instead.
//
// Done is called exactly once. If the session is already closed it is
// called before Call returns, on the calling goroutine, with a Disconnected
// error. Done must not block.
func Call[T any](s *Session, op func(c *objectcache.Cache) (T, error), done func(T, error)) {
	m := metric.New("session.Call")
	queued := m.StartSpan("queued")
	t := &task{
		run: func(c *objectcache.Cache) {
			queued.End()
			sp := m.StartSpan("run")
			v, err := protect(s, op, c)
			sp.End()
			complete(s, done, v, err)
			m.Done()
		},
		reject: func(err error) {
			queued.SetAnnotation("rejected")
			var zero T
			complete(s, done, zero, err)
			m.Done()
		},
	}
	if err := s.enqueue(t); err != nil {
		var zero T
		complete(s, done, zero, err)
	}
}

// Run queues op for execution on the session's worker and waits for its
// result. It must not be called from an operation or a completion.
func Run[T any](s *Session, op func(c *objectcache.Cache) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	Call(s, op, func(v T, err error) {
		ch <- result{v, err}
	})
	r := <-ch
	return r.v, r.err
}

// RunNow runs op on the session's worker and returns its value.
// It is intended for tests and for setting up cache contents; it panics
// if the session is closed.
func RunNow[T any](s *Session, op func(c *objectcache.Cache) T) T {
	v, err := Run(s, func(c *objectcache.Cache) (T, error) {
		return op(c), nil
	})
	if err != nil {
		panic(err)
	}
	return v
}

// protect runs op, converting a panic into an Internal error.
func protect[T any](s *Session, op func(c *objectcache.Cache) (T, error), c *objectcache.Cache) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error.Printf("session: %v: operation panicked: %v", s, r)
			var zero T
			v, err = zero, errors.E(errors.Op("session.Call"), errors.Internal, errors.Errorf("operation panicked: %v", r))
		}
	}()
	return op(c)
}

// complete calls done, logging rather than propagating a panic so that
// the worker survives a faulty completion.
func complete[T any](s *Session, done func(T, error), v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error.Printf("session: %v: completion panicked: %v", s, r)
		}
	}()
	done(v, err)
}
