// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package sched runs background work (cache prefetch) on behalf of table
// backends and caches. Callers never wait for a scheduled task; a task that
// fails only reports its error.
package sched

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"golang.org/x/sync/errgroup"
)

// Scheduler accepts background tasks.
type Scheduler interface {
	// Schedule queues task. It returns false if the task was dropped, in
	// which case task will never run. name is used only in logs.
	Schedule(name string, task func() error) bool
}

// PoolOpts configures a Pool.
type PoolOpts struct {
	// Workers is the number of goroutines. Default runtime.NumCPU().
	Workers int
	// QueueSize bounds the number of queued tasks. Default 16 * Workers.
	QueueSize int
}

type job struct {
	name string
	fn   func() error
}

// Pool is a fixed set of workers draining a bounded queue. Schedule never
// blocks: when the queue is full the task is dropped.
type Pool struct {
	mu     sync.RWMutex // guards closed and sends on queue
	closed bool
	queue  chan job
	group  errgroup.Group
	err    errors.Once

	ran, failed, dropped atomic.Int64
}

// NewPool starts a pool.
func NewPool(opts PoolOpts) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16 * opts.Workers
	}
	p := &Pool{queue: make(chan job, opts.QueueSize)}
	for i := 0; i < opts.Workers; i++ {
		p.group.Go(p.work)
	}
	return p
}

func (p *Pool) work() error {
	for j := range p.queue {
		p.run(j)
	}
	return nil
}

func (p *Pool) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			log.Error.Printf("sched: task %s panicked: %v", j.name, r)
			p.failed.Add(1)
		}
	}()
	p.ran.Add(1)
	if err := j.fn(); err != nil {
		log.Error.Printf("sched: task %s: %v", j.name, err)
		p.failed.Add(1)
		p.err.Set(err)
	}
}

// Schedule implements Scheduler.
func (p *Pool) Schedule(name string, task func() error) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return false
	}
	select {
	case p.queue <- job{name, task}:
		return true
	default:
		p.dropped.Add(1)
		log.Debug.Printf("sched: queue full, dropping %s", name)
		return false
	}
}

// Err returns the first error reported by any task so far.
func (p *Pool) Err() error { return p.err.Err() }

// Stats reports task counters.
func (p *Pool) Stats() Stats {
	return Stats{Ran: p.ran.Load(), Failed: p.failed.Load(), Dropped: p.dropped.Load()}
}

// Close stops accepting tasks, waits for queued tasks to finish, and returns
// the first task error.
func (p *Pool) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	_ = p.group.Wait()
	return p.err.Err()
}

// Stats counts the tasks seen by a scheduler.
type Stats struct {
	Ran, Failed, Dropped int64
}

// Synchronous runs each task on the calling goroutine before Schedule
// returns. Task errors are logged and kept; the zero value is ready to use.
type Synchronous struct {
	err errors.Once
}

// Schedule implements Scheduler.
func (s *Synchronous) Schedule(name string, task func() error) bool {
	if err := task(); err != nil {
		log.Error.Printf("sched: task %s: %v", name, err)
		s.err.Set(err)
	}
	return true
}

// Err returns the first task error.
func (s *Synchronous) Err() error { return s.err.Err() }

// Discard drops every task.
type Discard struct{}

// Schedule implements Scheduler.
func (Discard) Schedule(string, func() error) bool { return false }

// Queue holds tasks until Drain runs them. Tests use it to observe what a
// component schedules and to decide when background work happens.
type Queue struct {
	mu    sync.Mutex
	names []string
	tasks []func() error
}

// Schedule implements Scheduler.
func (q *Queue) Schedule(name string, task func() error) bool {
	q.mu.Lock()
	q.names = append(q.names, name)
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
	return true
}

// Pending returns the names of queued tasks.
func (q *Queue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.names...)
}

// Drain runs queued tasks, including ones they schedule, until the queue is
// empty. It returns the first error.
func (q *Queue) Drain() error {
	var first error
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return first
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.names = q.names[1:]
		q.mu.Unlock()
		if err := task(); err != nil && first == nil {
			first = err
		}
	}
}
