// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package executor implements the bounded worker pool that runs solver work items. Tasks may submit further tasks;
// the orchestrator blocks until the pool is quiescent, i.e. no task is queued or running.
package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// TaskError is recorded when a task panics. Panics inside tasks are internal invariant violations: the pool
// stops accepting work and the error is returned by Await.
type TaskError struct {
	Value any
	Stack []byte
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Unwrap returns the panic value when it is an error
func (e *TaskError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Pool is a fixed set of worker goroutines consuming a FIFO queue of tasks
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	pending int
	idle    chan struct{}
	closed  bool
	err     error
	wg      sync.WaitGroup
	workers int
}

// New starts a pool with the given number of workers (at least one)
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{workers: workers, idle: make(chan struct{})}
	close(p.idle)
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

// Workers returns the number of worker goroutines
func (p *Pool) Workers() int {
	return p.workers
}

// Submit enqueues a task. Tasks submitted after Close or after a task panicked are dropped.
func (p *Pool) Submit(task func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.err != nil {
		return
	}
	if p.pending == 0 {
		p.idle = make(chan struct{})
	}
	p.pending++
	p.queue = append(p.queue, task)
	p.cond.Signal()
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.closed {
			p.mu.Unlock()
			return
		}
		task := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	defer func() {
		r := recover()
		p.mu.Lock()
		defer p.mu.Unlock()
		if r != nil && p.err == nil {
			p.err = &TaskError{Value: r, Stack: debug.Stack()}
			p.pending -= len(p.queue)
			p.queue = nil
		}
		p.pending--
		if p.pending == 0 {
			close(p.idle)
		}
	}()
	task()
}

// Pending returns the number of tasks queued or running
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Await blocks until the pool is quiescent or ctx is done. It returns ctx.Err() in the latter case, and the
// recorded TaskError if a task panicked.
func (p *Pool) Await(ctx context.Context) error {
	p.mu.Lock()
	idle := p.idle
	p.mu.Unlock()
	select {
	case <-idle:
		return p.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the error of the first task that panicked, if any
func (p *Pool) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Reset clears a recorded task error so the pool can be reused for a fresh run
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = nil
}

// Close stops the workers once the queue is drained and waits for them to exit
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}
