/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package worker runs named background tasks for the application shell.
// One goroutine consumes a bounded queue; task failures are routed to the
// error callback registered at construction time, never swallowed. Stop
// cancels the task context and joins the goroutine within a bounded wait.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	applog "github.com/JulianOrteil/TensorBuilder/internal/log"
)

// Task is one unit of background work. The context is canceled when the
// runner stops; long tasks should honor it.
type Task func(ctx context.Context) error

// ErrorFunc receives the name and error of every failed task.
type ErrorFunc func(name string, err error)

const queueDepth = 16

type job struct {
	name string
	run  Task
}

// Runner executes submitted tasks sequentially on a single goroutine.
type Runner struct {
	log     *slog.Logger
	onError ErrorFunc

	ctx    context.Context
	cancel context.CancelFunc
	q      chan job
	done   chan struct{}

	mu      sync.Mutex
	stopped bool
	stop    sync.Once
}

// New starts a runner. onError may be nil, in which case failures are
// only logged.
func New(onError ErrorFunc) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		log:     applog.WithComponent("worker"),
		onError: onError,
		ctx:     ctx,
		cancel:  cancel,
		q:       make(chan job, queueDepth),
		done:    make(chan struct{}),
	}
	go r.loop()
	return r
}

// Submit queues a named task. It never blocks: a full queue or a stopped
// runner is reported as an error to the caller.
func (r *Runner) Submit(name string, fn Task) error {
	if name == "" {
		return errors.New("worker: task needs a name")
	}
	if fn == nil {
		return fmt.Errorf("worker: task %s has no function", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return fmt.Errorf("worker: runner is stopped, rejecting %s", name)
	}
	select {
	case r.q <- job{name: name, run: fn}:
		return nil
	default:
		return fmt.Errorf("worker: queue is full, rejecting %s", name)
	}
}

// Stop rejects further submissions, cancels the task context and waits up
// to timeout for the runner goroutine to finish. A task that keeps running
// past the deadline yields an error; the goroutine itself is not killed.
// Stop may be called more than once.
func (r *Runner) Stop(timeout time.Duration) error {
	r.stop.Do(func() {
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()
		r.cancel()
	})
	select {
	case <-r.done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("worker: tasks still running after %s", timeout)
	}
}

func (r *Runner) loop() {
	defer close(r.done)
	for {
		select {
		case <-r.ctx.Done():
			r.drain()
			return
		case j := <-r.q:
			r.runJob(j)
		}
	}
}

// drain empties whatever was queued but never started. Those tasks are not
// failures, so they are logged rather than sent to the error callback.
func (r *Runner) drain() {
	for {
		select {
		case j := <-r.q:
			r.log.Warn("dropping queued task on shutdown", slog.String("task", j.name))
		default:
			return
		}
	}
}

func (r *Runner) runJob(j job) {
	start := time.Now()
	r.log.Debug("task started", slog.String("task", j.name))
	err := r.runSafely(j)
	if err == nil {
		r.log.Debug("task finished", slog.String("task", j.name), slog.Duration("took", time.Since(start)))
		return
	}
	if errors.Is(err, context.Canceled) && r.ctx.Err() != nil {
		// Shutdown-induced cancellation is the task behaving, not failing.
		r.log.Debug("task canceled", slog.String("task", j.name))
		return
	}
	r.log.Error("task failed", slog.String("task", j.name), slog.Any("err", err))
	if r.onError != nil {
		r.onError(j.name, err)
	}
}

// runSafely converts a panic into an error so one bad task cannot take
// down the runner; the callback still hears about it.
func (r *Runner) runSafely(j job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task %s panicked: %v", j.name, rec)
		}
	}()
	return j.run(r.ctx)
}
