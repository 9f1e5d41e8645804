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

package ifds

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/internal/concurrent"
	"github.com/awslabs/sparseflow/internal/executor"
)

// ErrReset is the cause of the cancellation of a run discarded by Reset
var ErrReset = errors.New("solver reset")

// PathEdge is a memoized path edge <D1, N, D2>
type PathEdge[N, D comparable] struct {
	D1 D
	N  N
	D2 D
}

type methodFact[D, M comparable] struct {
	method M
	fact   D
}

// IncomingEdge is a call site entering a method, with the caller's context
type IncomingEdge[N, D comparable] struct {
	CallSite N
	D1       D
	D2       D
}

type exitEdge[N, D comparable] struct {
	exit N
	fact D
}

type tables[N, D, M comparable] struct {
	jumpFunctions concurrent.Set[PathEdge[N, D]]
	incoming      concurrent.MultiMap[methodFact[D, M], IncomingEdge[N, D]]
	endSummary    concurrent.MultiMap[methodFact[D, M], exitEdge[N, D]]
}

// Stats counts the work items of a solver
type Stats struct {
	// Propagated is the number of edges scheduled
	Propagated int64
	// Expanded is the number of edges whose flow functions ran
	Expanded int64
	// Memoized is the number of edges dropped because they were already known
	Memoized int64
	// Discarded is the number of edges dropped because the solver was killed
	Discarded int64
}

// Solver is an IFDS tabulation solver. All the methods are safe for concurrent use.
type Solver[N, D, M comparable] struct {
	name    string
	icfg    ICFG[N, M]
	problem Problem[N, D, M]
	router  HopRouter[N, D]
	pool    *executor.Pool
	logger  *config.LogGroup
	zero    D

	mu         sync.RWMutex
	tables     *tables[N, D, M]
	ctx        context.Context
	cancel     context.CancelCauseFunc
	terminated atomic.Bool
	handlers   []FollowReturnsPastSeedsHandler[N, D]
	listeners  []func(reason error)

	propagated atomic.Int64
	expanded   atomic.Int64
	memoized   atomic.Int64
	discarded  atomic.Int64
}

// New returns a solver for the problem over icfg, scheduling its work on pool
func New[N, D, M comparable](name string, icfg ICFG[N, M], problem Problem[N, D, M], pool *executor.Pool,
	logger *config.LogGroup) *Solver[N, D, M] {
	s := &Solver[N, D, M]{
		name:    name,
		icfg:    icfg,
		problem: problem,
		pool:    pool,
		logger:  logger,
		zero:    problem.ZeroValue(),
		tables:  &tables[N, D, M]{},
	}
	s.router, _ = problem.(HopRouter[N, D])
	s.ctx, s.cancel = context.WithCancelCause(context.Background())
	return s
}

// Name returns the name of the solver, used in logs
func (s *Solver[N, D, M]) Name() string { return s.name }

// ICFG returns the control-flow graph the solver runs on
func (s *Solver[N, D, M]) ICFG() ICFG[N, M] { return s.icfg }

// AddFollowReturnsPastSeedsHandler registers a handler of unbalanced returns
func (s *Solver[N, D, M]) AddFollowReturnsPastSeedsHandler(h FollowReturnsPastSeedsHandler[N, D]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

// AddStatusListener registers a function called with the reason when the solver is killed
func (s *Solver[N, D, M]) AddStatusListener(f func(reason error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, f)
}

func (s *Solver[N, D, M]) state() (*tables[N, D, M], context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables, s.ctx
}

// Seed propagates the initial seeds of the problem
func (s *Solver[N, D, M]) Seed() {
	for n, facts := range s.problem.InitialSeeds() {
		for _, d := range facts {
			s.Propagate(s.zero, n, d)
		}
	}
}

// Solve seeds the solver and blocks until the executor is quiescent, the solver is killed or ctx is done. When
// ctx is done, the solver is killed with the context's cause. A kill is not an error: Solve only returns the error
// of a work item that panicked.
func (s *Solver[N, D, M]) Solve(ctx context.Context) error {
	start := time.Now()
	_, runCtx := s.state()
	stop := context.AfterFunc(ctx, func() { s.ForceTerminate(context.Cause(ctx)) })
	defer stop()

	s.Seed()
	err := s.pool.Await(runCtx)
	s.terminated.Store(true)
	if s.IsKilled() {
		s.logger.Warnf("%s solver killed after %.2f s: %v", s.name, time.Since(start).Seconds(), s.KillReason())
		return s.pool.Err()
	}
	if err != nil {
		return fmt.Errorf("%s solver: %w", s.name, err)
	}
	st := s.Stats()
	s.logger.Debugf("%s solver done: %d edges propagated, %d expanded, %d memoized (%.2f s)",
		s.name, st.Propagated, st.Expanded, st.Memoized, time.Since(start).Seconds())
	return nil
}

// Propagate schedules the path edge <d1, n, d2> unless it is already known or the solver is killed
func (s *Solver[N, D, M]) Propagate(d1 D, n N, d2 D) {
	t, ctx := s.state()
	if ctx.Err() != nil {
		s.discarded.Add(1)
		return
	}
	e := PathEdge[N, D]{D1: d1, N: n, D2: d2}
	if !t.jumpFunctions.Add(e) {
		s.memoized.Add(1)
		return
	}
	s.propagated.Add(1)
	s.pool.Submit(func() {
		if ctx.Err() != nil {
			s.discarded.Add(1)
			return
		}
		s.expanded.Add(1)
		s.processEdge(t, e)
	})
}

// PropagateFrom propagates a fact holding after n to every statement it must visit next
func (s *Solver[N, D, M]) PropagateFrom(d1 D, n N, d D) {
	if s.router != nil {
		if hops, ok := s.router.Route(n, d); ok {
			for _, h := range hops {
				s.Propagate(d1, h.N, h.D)
			}
			return
		}
	}
	for _, next := range s.problem.Successors(n, d) {
		s.Propagate(d1, next, d)
	}
}

// InjectContext registers that callee was entered with d3 from callSite, where d2 held in the caller's context
// d1. The exit facts already known for (callee, d3) are returned to the call site. It returns false if the context
// was already known.
func (s *Solver[N, D, M]) InjectContext(callee M, d3 D, callSite N, d2 D, d1 D) bool {
	t, ctx := s.state()
	key := methodFact[D, M]{callee, d3}
	if !t.incoming.Put(key, IncomingEdge[N, D]{CallSite: callSite, D1: d1, D2: d2}) {
		return false
	}
	if ctx.Err() != nil {
		return true
	}
	for _, exit := range t.endSummary.Get(key) {
		for _, d5 := range s.problem.ReturnFlow(d1, d3, exit.fact, callSite, callee, exit.exit) {
			s.PropagateFrom(d1, callSite, d5)
		}
	}
	return true
}

// Incoming returns the known calling contexts of callee entered with d3
func (s *Solver[N, D, M]) Incoming(callee M, d3 D) []IncomingEdge[N, D] {
	t, _ := s.state()
	return t.incoming.Get(methodFact[D, M]{callee, d3})
}

func (s *Solver[N, D, M]) processEdge(t *tables[N, D, M], e PathEdge[N, D]) {
	switch {
	case s.icfg.IsCallStmt(e.N):
		s.processCall(t, e)
	case s.icfg.IsExitStmt(e.N):
		s.processExit(t, e)
	default:
		for _, d3 := range s.problem.NormalFlow(e.D1, e.D2, e.N) {
			s.PropagateFrom(e.D1, e.N, d3)
		}
	}
}

func (s *Solver[N, D, M]) processCall(t *tables[N, D, M], e PathEdge[N, D]) {
	d1, n, d2 := e.D1, e.N, e.D2
	for _, callee := range s.icfg.CalleesOfCallAt(n) {
		for _, sp := range s.icfg.StartPointsOf(callee) {
			for _, d3 := range s.problem.CallFlow(d1, d2, n, callee, sp) {
				s.Propagate(d3, sp, d3)
				key := methodFact[D, M]{callee, d3}
				t.incoming.Put(key, IncomingEdge[N, D]{CallSite: n, D1: d1, D2: d2})
				for _, exit := range t.endSummary.Get(key) {
					for _, d5 := range s.problem.ReturnFlow(d1, d3, exit.fact, n, callee, exit.exit) {
						s.PropagateFrom(d1, n, d5)
					}
				}
			}
		}
	}
	for _, d3 := range s.problem.CallToReturnFlow(d1, d2, n) {
		s.PropagateFrom(d1, n, d3)
	}
}

// processExit applies the normal flow of the exit statement, then returns the resulting facts to the callers
func (s *Solver[N, D, M]) processExit(t *tables[N, D, M], e PathEdge[N, D]) {
	for _, d2 := range s.problem.NormalFlow(e.D1, e.D2, e.N) {
		s.leave(t, e.D1, e.N, d2)
	}
}

func (s *Solver[N, D, M]) leave(t *tables[N, D, M], d1 D, n N, d2 D) {
	method := s.icfg.MethodOf(n)
	key := methodFact[D, M]{method, d1}
	if !t.endSummary.Put(key, exitEdge[N, D]{exit: n, fact: d2}) {
		return
	}
	incoming := t.incoming.Get(key)
	for _, inc := range incoming {
		for _, d5 := range s.problem.ReturnFlow(inc.D1, d1, d2, inc.CallSite, method, n) {
			s.PropagateFrom(inc.D1, inc.CallSite, d5)
		}
	}
	if len(incoming) == 0 && d1 == s.zero && s.problem.FollowReturnsPastSeeds() {
		s.mu.RLock()
		handlers := s.handlers
		s.mu.RUnlock()
		for _, h := range handlers {
			h.HandleFollowReturnsPastSeeds(d1, n, d2)
		}
		for _, callSite := range s.icfg.CallersOf(method) {
			for _, d5 := range s.problem.ReturnFlow(s.zero, d1, d2, callSite, method, n) {
				s.PropagateFrom(s.zero, callSite, d5)
			}
		}
	}
}

// ForceTerminate kills the solver with the given reason. Pending work items are discarded. Killing a killed
// solver has no effect.
func (s *Solver[N, D, M]) ForceTerminate(reason error) {
	s.mu.RLock()
	ctx, cancel, listeners := s.ctx, s.cancel, s.listeners
	s.mu.RUnlock()
	if ctx.Err() != nil {
		return
	}
	if reason == nil {
		reason = context.Canceled
	}
	cancel(reason)
	s.logger.Debugf("%s solver terminated: %v", s.name, reason)
	for _, l := range listeners {
		l(reason)
	}
}

// IsKilled returns true if the solver was killed since its last reset
func (s *Solver[N, D, M]) IsKilled() bool {
	_, ctx := s.state()
	return ctx.Err() != nil
}

// KillReason returns the reason the solver was killed, nil if it was not
func (s *Solver[N, D, M]) KillReason() error {
	_, ctx := s.state()
	return context.Cause(ctx)
}

// IsTerminated returns true if the solver was killed or a call to Solve returned
func (s *Solver[N, D, M]) IsTerminated() bool {
	return s.terminated.Load() || s.IsKilled()
}

// Reset discards the tables and the kill state so the solver can run again. Work items of the previous run that
// are still queued are discarded.
func (s *Solver[N, D, M]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel(ErrReset)
	s.ctx, s.cancel = context.WithCancelCause(context.Background())
	s.tables = &tables[N, D, M]{}
	s.terminated.Store(false)
	s.propagated.Store(0)
	s.expanded.Store(0)
	s.memoized.Store(0)
	s.discarded.Store(0)
}

// Stats returns the work item counters
func (s *Solver[N, D, M]) Stats() Stats {
	return Stats{
		Propagated: s.propagated.Load(),
		Expanded:   s.expanded.Load(),
		Memoized:   s.memoized.Load(),
		Discarded:  s.discarded.Load(),
	}
}

// PathEdges returns a snapshot of the memoized path edges
func (s *Solver[N, D, M]) PathEdges() []PathEdge[N, D] {
	t, _ := s.state()
	var res []PathEdge[N, D]
	t.jumpFunctions.Range(func(e PathEdge[N, D]) bool {
		res = append(res, e)
		return true
	})
	return res
}

// FactsAt returns the facts holding before n, over all contexts
func (s *Solver[N, D, M]) FactsAt(n N) []D {
	seen := map[D]bool{}
	var res []D
	for _, e := range s.PathEdges() {
		if e.N == n && !seen[e.D2] {
			seen[e.D2] = true
			res = append(res, e.D2)
		}
	}
	return res
}
