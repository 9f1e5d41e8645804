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

// Package pathbuilder rebuilds witness paths for the results of a taint analysis run. A witness path is the
// sequence of propagation steps of active facts, from the fact created at the source to the fact observed at the
// sink. Paths are rebuilt from the predecessor and neighbor links of the facts in the arena of the run.
package pathbuilder

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awslabs/sparseflow/analysis/abstraction"
	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/awslabs/sparseflow/analysis/taint"
	"github.com/awslabs/sparseflow/internal/executor"
)

// ErrReset is the kill reason of the work of a builder that was reset
var ErrReset = errors.New("path builder reset")

// Step is one propagation step: the fact on AccessPath was derived at Stmt
type Step struct {
	Stmt       ir.Stmt
	AccessPath *abstraction.AccessPath
}

func (s Step) String() string {
	return fmt.Sprintf("%s @ %s", s.AccessPath, ir.StmtString(s.Stmt))
}

// Path is a witness path, from the source to the sink
type Path []Step

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, " -> ")
}

// ResultPaths are the witness paths of one result. Paths is empty when no path could be rebuilt in time.
type ResultPaths struct {
	Result *taint.Result
	Paths  []Path
}

// Builder rebuilds witness paths on its own pool of workers. It implements the bounded contract of the solvers: it
// can be killed at any time, in which case the paths rebuilt so far are returned.
type Builder struct {
	mode     config.PathReconstructionMode
	maxPaths int
	maxLen   int
	threads  int
	arena    *abstraction.Arena
	logger   *config.LogGroup

	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelCauseFunc
	terminated atomic.Bool
}

// New returns a path builder for the facts of arena
func New(cfg *config.Config, logger *config.LogGroup, arena *abstraction.Arena) *Builder {
	b := &Builder{
		mode:     cfg.PathReconstruction,
		maxPaths: cfg.MaxPathsPerResult,
		maxLen:   cfg.MaxPathLength,
		threads:  cfg.NumThreads(runtime.NumCPU()),
		arena:    arena,
		logger:   logger,
	}
	b.ctx, b.cancel = context.WithCancelCause(context.Background())
	return b
}

func (b *Builder) token() context.Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}

// ForceTerminate kills the builder with the given reason
func (b *Builder) ForceTerminate(reason error) {
	b.mu.RLock()
	ctx, cancel := b.ctx, b.cancel
	b.mu.RUnlock()
	if ctx.Err() != nil {
		return
	}
	if reason == nil {
		reason = context.Canceled
	}
	cancel(reason)
	b.logger.Debugf("path builder terminated: %v", reason)
}

// IsKilled returns true if the builder was killed since its last reset
func (b *Builder) IsKilled() bool { return b.token().Err() != nil }

// KillReason returns the reason the builder was killed, nil if it was not
func (b *Builder) KillReason() error { return context.Cause(b.token()) }

// IsTerminated returns true if the builder was killed or a call to Build returned
func (b *Builder) IsTerminated() bool { return b.terminated.Load() || b.IsKilled() }

// Reset clears the kill state so the builder can run again
func (b *Builder) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancel(ErrReset)
	b.ctx, b.cancel = context.WithCancelCause(context.Background())
	b.terminated.Store(false)
}

// Build rebuilds the paths of results. It returns when every path is rebuilt, the builder is killed or ctx is
// done; in the latter case the builder is killed with the cause of ctx.
func (b *Builder) Build(ctx context.Context, results []*taint.Result) ([]ResultPaths, error) {
	defer b.terminated.Store(true)
	res := make([]ResultPaths, len(results))
	for i, r := range results {
		res[i].Result = r
	}
	if b.mode == config.NoPaths || len(results) == 0 {
		return res, nil
	}
	start := time.Now()
	run := b.token()
	stop := context.AfterFunc(ctx, func() { b.ForceTerminate(context.Cause(ctx)) })
	defer stop()

	pool := executor.New(b.threads)
	for i := range res {
		i := i
		pool.Submit(func() {
			if run.Err() != nil {
				return
			}
			res[i].Paths = b.paths(run, res[i].Result)
		})
	}
	_ = pool.Await(run)
	// killed tasks return at their next check; res is only read once they are done
	pool.Close()
	if err := pool.Err(); err != nil {
		return res, fmt.Errorf("path reconstruction: %w", err)
	}
	if b.IsKilled() {
		b.logger.Warnf("Path reconstruction killed after %.2f s: %v", time.Since(start).Seconds(), b.KillReason())
		return res, nil
	}
	b.logger.Infof("Rebuilt paths of %d results (%.2f s)", len(results), time.Since(start).Seconds())
	return res, nil
}

func (b *Builder) paths(ctx context.Context, r *taint.Result) []Path {
	if len(r.Facts) == 0 {
		return nil
	}
	if b.mode == config.FastPaths {
		return []Path{b.fast(r.Facts[0])}
	}
	p := &precise{b: b, ctx: ctx, seen: map[string]bool{}, onPath: map[abstraction.ID]bool{}}
	for _, f := range r.Facts {
		p.explore(f, nil)
	}
	return p.res
}

// fast follows the predecessor links of fact back to the source
func (b *Builder) fast(fact abstraction.ID) Path {
	var rev Path
	for id := fact; id != abstraction.Zero; {
		abs := b.arena.Get(id)
		if abs.IsActive() {
			rev = append(rev, Step{Stmt: abs.Stmt(), AccessPath: abs.AccessPath()})
		}
		id = abs.Pred()
	}
	return reverse(rev)
}

func reverse(rev Path) Path {
	p := make(Path, len(rev))
	for i, s := range rev {
		p[len(rev)-1-i] = s
	}
	return p
}

// precise enumerates the derivations of a result through predecessors and neighbors, depth first
type precise struct {
	b      *Builder
	ctx    context.Context
	res    []Path
	seen   map[string]bool
	onPath map[abstraction.ID]bool
}

func (p *precise) full() bool {
	return (p.b.maxPaths > 0 && len(p.res) >= p.b.maxPaths) || p.ctx.Err() != nil
}

// explore extends the reversed path rev with the derivations of id
func (p *precise) explore(id abstraction.ID, rev Path) {
	if p.full() {
		return
	}
	if id == abstraction.Zero {
		path := reverse(rev)
		if k := path.String(); !p.seen[k] {
			p.seen[k] = true
			p.res = append(p.res, path)
		}
		return
	}
	if p.onPath[id] || (p.b.maxLen > 0 && len(rev) >= p.b.maxLen) {
		return
	}
	p.onPath[id] = true
	defer delete(p.onPath, id)

	abs := p.b.arena.Get(id)
	derivations := append([]abstraction.Neighbor{{Pred: abs.Pred(), Stmt: abs.Stmt()}}, p.b.arena.Neighbors(id)...)
	for _, d := range derivations {
		next := rev
		if abs.IsActive() {
			next = append(rev[:len(rev):len(rev)], Step{Stmt: d.Stmt, AccessPath: abs.AccessPath()})
		}
		p.explore(d.Pred, next)
	}
}
