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
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/awslabs/sparseflow/analysis/abstraction"
	"github.com/awslabs/sparseflow/analysis/alias"
	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/analysis/ifds"
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/awslabs/sparseflow/analysis/pathbuilder"
	"github.com/awslabs/sparseflow/analysis/sparse"
	"github.com/awslabs/sparseflow/analysis/summary"
	"github.com/awslabs/sparseflow/analysis/taint"
	"github.com/awslabs/sparseflow/internal/executor"
)

const (
	terminationRetries = 10
	terminationWait    = 500 * time.Millisecond
)

// Analyzer runs taint analyses with a fixed configuration. An Analyzer holds no state between runs and can be
// used for several programs, concurrently.
type Analyzer struct {
	cfg       *config.Config
	logger    *config.LogGroup
	rules     []taint.RuleConstructor
	onResult  []ResultsHandler
	available []ResultsAvailableHandler
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithRules appends rules to the default rule chain
func WithRules(rules ...taint.RuleConstructor) Option {
	return func(a *Analyzer) { a.rules = append(a.rules, rules...) }
}

// WithResultsHandler registers a handler of the (source, sink) pairs
func WithResultsHandler(h ResultsHandler) Option {
	return func(a *Analyzer) { a.onResult = append(a.onResult, h) }
}

// WithResultsAvailableHandler registers a handler of the complete results
func WithResultsAvailableHandler(h ResultsAvailableHandler) Option {
	return func(a *Analyzer) { a.available = append(a.available, h) }
}

// New returns an analyzer for cfg. The configuration is validated by each call to Analyze.
func New(cfg *config.Config, logger *config.LogGroup, opts ...Option) *Analyzer {
	a := &Analyzer{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config returns the configuration of the analyzer
func (a *Analyzer) Config() *config.Config { return a.cfg }

func (a *Analyzer) ruleChain() []taint.RuleConstructor {
	if len(a.rules) == 0 {
		return nil
	}
	return append(taint.DefaultRules(), a.rules...)
}

// Analyze runs the taint analysis of prog with the sources and sinks of sourceSinks.
//
// A run that is killed, by a watchdog or because ctx is done, is not an error: the partial results are returned
// with Results.Killed set. Analyze returns an error when the configuration is invalid, when a step fails, and when
// a flow function panicked, in which case the error wraps an *executor.TaskError.
func (a *Analyzer) Analyze(ctx context.Context, prog *ir.Program, sourceSinks taint.SourceSinkManager) (*Results,
	error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	res := &Results{}

	dfg, err := sparse.Build(ctx, a.cfg, a.logger, prog)
	if err != nil {
		return nil, fmt.Errorf("could not build the data-flow graph: %w", err)
	}
	res.Stats.DFGNodes = dfg.NumNodes(sparse.Forward)

	var table *summary.Table
	if a.cfg.Summaries {
		table, err = summary.Build(ctx, a.cfg, a.logger, prog, dfg)
		if err != nil {
			return nil, fmt.Errorf("could not build summaries: %w", err)
		}
		res.Stats.SummaryEntries = table.NumEntries()
	}

	m := taint.NewManager(a.cfg, a.logger, prog, dfg, table, sourceSinks)
	seeds := m.Seeds()
	res.Stats.Sources = len(seeds)
	if len(seeds) == 0 {
		a.logger.Warnf("No source found in the program")
		a.notify(res)
		return res, nil
	}
	a.logger.Infof("Found %d sources", len(seeds))

	threads := a.cfg.NumThreads(runtime.NumCPU())
	if a.cfg.Solver == config.LegacySolver {
		threads = 1
	}
	pool := executor.New(threads)
	defer pool.Close()

	aliasing, err := alias.New(a.cfg.Aliasing, m, pool)
	if err != nil {
		return nil, err
	}
	m.SetAliasing(aliasing)
	fwd := ifds.New[ir.Stmt, abstraction.ID, *ir.Method]("forward", prog, taint.NewProblem(m, a.ruleChain()...),
		pool, a.logger)
	m.SetForwardSolver(fwd)

	bounded := []Bounded{fwd}
	var bwd *taint.Solver
	if fs, ok := aliasing.(*alias.FlowSensitive); ok {
		bwd = fs.Solver()
		bounded = append(bounded, bwd)
		fwd.AddStatusListener(bwd.ForceTerminate)
	}
	if a.cfg.IncrementalResults {
		for _, h := range a.onResult {
			m.Results.OnNewResult(h.OnResultFound)
		}
	}

	timeout := NewTimeoutWatchdog(a.cfg.DataFlowTimeoutDuration(), ErrDataFlowTimeout, a.logger, bounded...)
	memory := NewMemoryWatchdog(a.cfg.MaxMemoryMB, a.logger, bounded...)
	timeout.Start()
	memory.Start()

	a.logger.Infof("Starting data-flow analysis with %d workers ...", threads)
	dfStart := time.Now()
	err = fwd.Solve(ctx)
	timeout.Stop()
	memory.Stop()
	if fwd.IsKilled() {
		a.awaitTermination(pool)
		if err == nil {
			err = pool.Err()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("data-flow analysis: %w", err)
	}
	res.Stats.DataFlowTime = time.Since(dfStart)
	res.Stats.Forward = fwd.Stats()
	if bwd != nil {
		res.Stats.Backward = bwd.Stats()
	}
	res.Stats.Abstractions = m.Arena.Len()
	res.Killed = fwd.IsKilled()
	res.KillReason = fwd.KillReason()
	a.logger.Infof("Data-flow analysis done: %d results, %d abstractions (%.2f s)", m.Results.Len(),
		res.Stats.Abstractions, res.Stats.DataFlowTime.Seconds())

	m.Results.RemoveEntailed(m.Arena)
	results := m.Results.Results()
	if !a.cfg.IncrementalResults {
		for _, r := range results {
			for _, h := range a.onResult {
				h.OnResultFound(r)
			}
		}
	}

	pathStart := time.Now()
	pb := pathbuilder.New(a.cfg, a.logger, m.Arena)
	pathTimeout := NewTimeoutWatchdog(a.cfg.PathTimeoutDuration(), ErrPathTimeout, a.logger, pb)
	pathTimeout.Start()
	res.Leaks, err = pb.Build(ctx, results)
	pathTimeout.Stop()
	if err != nil {
		return nil, err
	}
	res.PathsKilled = pb.IsKilled()
	res.Stats.PathTime = time.Since(pathStart)

	a.logger.Infof("Analysis done: %d leaks (%.2f s)", res.Len(), time.Since(start).Seconds())
	a.notify(res)
	return res, nil
}

// awaitTermination waits for the work items still running after a kill
func (a *Analyzer) awaitTermination(pool *executor.Pool) {
	for i := 0; i < terminationRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), terminationWait)
		err := pool.Await(ctx)
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			return
		}
	}
	a.logger.Warnf("executor did not terminate gracefully")
}

func (a *Analyzer) notify(res *Results) {
	for _, h := range a.available {
		h.OnResultsAvailable(res)
	}
}
