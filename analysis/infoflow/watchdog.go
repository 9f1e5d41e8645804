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

package infoflow

import (
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/analysis/pathbuilder"
	"github.com/awslabs/sparseflow/analysis/taint"
)

var (
	// ErrDataFlowTimeout is the kill reason of a data-flow analysis that ran out of time
	ErrDataFlowTimeout = errors.New("data-flow analysis timed out")
	// ErrPathTimeout is the kill reason of a path reconstruction that ran out of time
	ErrPathTimeout = errors.New("path reconstruction timed out")
	// ErrMemoryExhausted is the kill reason of a run whose heap grew over the memory limit
	ErrMemoryExhausted = errors.New("memory limit exceeded")
)

// Bounded is a computation that can be killed from the outside. The solvers and the path builder are bounded.
type Bounded interface {
	ForceTerminate(reason error)
	IsKilled() bool
	KillReason() error
	IsTerminated() bool
	Reset()
}

var (
	_ Bounded = (*taint.Solver)(nil)
	_ Bounded = (*pathbuilder.Builder)(nil)
)

func terminate(targets []Bounded, reason error) {
	for _, b := range targets {
		if !b.IsTerminated() {
			b.ForceTerminate(reason)
		}
	}
}

// TimeoutWatchdog kills its targets when a timer fires
type TimeoutWatchdog struct {
	timeout time.Duration
	reason  error
	logger  *config.LogGroup

	mu      sync.Mutex
	targets []Bounded
	timer   *time.Timer
	fired   bool
}

// NewTimeoutWatchdog returns a watchdog that kills targets with reason once timeout has elapsed since Start. A
// timeout <= 0 never fires.
func NewTimeoutWatchdog(timeout time.Duration, reason error, logger *config.LogGroup,
	targets ...Bounded) *TimeoutWatchdog {
	return &TimeoutWatchdog{timeout: timeout, reason: reason, logger: logger, targets: targets}
}

// AddTarget adds a computation to kill when the timer fires
func (w *TimeoutWatchdog) AddTarget(b Bounded) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.targets = append(w.targets, b)
}

// Start arms the timer
func (w *TimeoutWatchdog) Start() {
	if w.timeout <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		return
	}
	w.timer = time.AfterFunc(w.timeout, w.fire)
}

func (w *TimeoutWatchdog) fire() {
	w.mu.Lock()
	w.fired = true
	targets := w.targets
	w.mu.Unlock()
	w.logger.Warnf("Timeout of %s reached, stopping the analysis", w.timeout)
	terminate(targets, w.reason)
}

// Stop disarms the timer. It is safe to call Stop several times.
func (w *TimeoutWatchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Fired returns true if the timer fired
func (w *TimeoutWatchdog) Fired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}

// DefaultMemoryPollInterval is the period at which the memory watchdog reads the heap size
const DefaultMemoryPollInterval = 100 * time.Millisecond

// MemoryWatchdog kills its targets when the heap grows over a limit
type MemoryWatchdog struct {
	limit    uint64
	interval time.Duration
	logger   *config.LogGroup
	targets  []Bounded
	heap     func() uint64

	once  sync.Once
	stop  chan struct{}
	done  chan struct{}
	mu    sync.Mutex
	fired bool
}

// NewMemoryWatchdog returns a watchdog that kills targets once the heap exceeds limitMB megabytes. A limit <= 0
// never fires.
func NewMemoryWatchdog(limitMB int, logger *config.LogGroup, targets ...Bounded) *MemoryWatchdog {
	w := &MemoryWatchdog{
		interval: DefaultMemoryPollInterval,
		logger:   logger,
		targets:  targets,
		heap:     heapAlloc,
	}
	if limitMB > 0 {
		w.limit = uint64(limitMB) << 20
	}
	return w
}

func heapAlloc() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// Start launches the polling goroutine
func (w *MemoryWatchdog) Start() {
	if w.limit == 0 || w.stop != nil {
		return
	}
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	go w.poll()
}

func (w *MemoryWatchdog) poll() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			if used := w.heap(); used > w.limit {
				w.mu.Lock()
				w.fired = true
				w.mu.Unlock()
				w.logger.Warnf("Heap size %d MB exceeds the limit of %d MB, stopping the analysis", used>>20,
					w.limit>>20)
				terminate(w.targets, ErrMemoryExhausted)
				return
			}
		}
	}
}

// Stop stops the polling goroutine and waits for it to exit. It is safe to call Stop several times.
func (w *MemoryWatchdog) Stop() {
	if w.stop == nil {
		return
	}
	w.once.Do(func() { close(w.stop) })
	<-w.done
}

// Fired returns true if the watchdog killed its targets
func (w *MemoryWatchdog) Fired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}
