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

package taint

import (
	"sync"

	"github.com/awslabs/sparseflow/analysis/abstraction"
	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/analysis/ifds"
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/awslabs/sparseflow/analysis/sparse"
	"github.com/awslabs/sparseflow/analysis/summary"
)

// Solver is the tabulation solver over the facts of a Manager
type Solver = ifds.Solver[ir.Stmt, abstraction.ID, *ir.Method]

// Aliasing is the interface of the aliasing strategies
type Aliasing interface {
	// ComputeAliases is called when fact becomes tainted at stmt through a write to the heap. d1 is the calling
	// context of stmt.
	ComputeAliases(d1 abstraction.ID, stmt ir.Stmt, fact abstraction.ID)
	// InjectCallingContext is called when the forward solver enters callee with d3 from callSite
	InjectCallingContext(callee *ir.Method, d3 abstraction.ID, callSite ir.Stmt, d2, d1 abstraction.ID)
	// MayAlias returns true if a and b may point to the same object at stmt. Only strategies resolving aliases at
	// use sites return true for distinct locals.
	MayAlias(stmt ir.Stmt, a, b *ir.Local) bool
}

type sourceKey struct {
	stmt ir.Stmt
	ap   *abstraction.AccessPath
}

// Manager holds the state shared by the rules, the solvers and the aliasing strategy during one run
type Manager struct {
	Config      *config.Config
	Logger      *config.LogGroup
	Program     *ir.Program
	DFG         *sparse.Graph
	Summaries   *summary.Table
	Arena       *abstraction.Arena
	Paths       *abstraction.Factory
	SourceSinks SourceSinkManager
	Results     *ResultSet

	forward  *Solver
	aliasing Aliasing
	sources  sync.Map
}

// NewManager returns the manager of a run. summaries may be nil.
func NewManager(cfg *config.Config, logger *config.LogGroup, prog *ir.Program, dfg *sparse.Graph,
	summaries *summary.Table, sourceSinks SourceSinkManager) *Manager {
	paths := abstraction.NewFactory(cfg.AccessPathLength)
	return &Manager{
		Config:      cfg,
		Logger:      logger,
		Program:     prog,
		DFG:         dfg,
		Summaries:   summaries,
		Arena:       abstraction.NewArena(paths.Zero()),
		Paths:       paths,
		SourceSinks: sourceSinks,
		Results:     NewResultSet(),
	}
}

// SetForwardSolver sets the solver of the taint problem. It must be called before the solver starts.
func (m *Manager) SetForwardSolver(s *Solver) { m.forward = s }

// ForwardSolver returns the solver of the taint problem
func (m *Manager) ForwardSolver() *Solver { return m.forward }

// SetAliasing sets the aliasing strategy. It must be called before the solver starts.
func (m *Manager) SetAliasing(a Aliasing) { m.aliasing = a }

// Aliasing returns the aliasing strategy, nil if none is set
func (m *Manager) Aliasing() Aliasing { return m.aliasing }

// Get returns the fact with the given id
func (m *Manager) Get(id abstraction.ID) *abstraction.Abstraction { return m.Arena.Get(id) }

// IsSparse returns true if facts are propagated along the sparse data-flow graph
func (m *Manager) IsSparse() bool {
	return m.Config.SparseOptimization && m.Config.Aliasing != config.LazyAliasing
}

// Next returns the statements that the fact d, holding after n, must visit next in direction dir
func (m *Manager) Next(dir sparse.Direction, n ir.Stmt, d abstraction.ID) []ir.Stmt {
	var icfg ifds.ICFG[ir.Stmt, *ir.Method] = m.Program
	if dir == sparse.Backward {
		icfg = ifds.Backward(icfg)
	}
	if m.Config.Solver == config.FlowInsensitiveSolver {
		return n.Method().Body
	}
	if d == abstraction.Zero || !m.IsSparse() {
		return icfg.SuccsOf(n)
	}
	ap := m.Arena.Get(d).AccessPath()
	field := ir.BaseField
	if ap.FieldCount() > 0 {
		field = ap.FirstField()
	}
	if next, ok := m.DFG.Next(dir, n, ap.Base(), field); ok {
		return next
	}
	return icfg.SuccsOf(n)
}

// Seeds returns the source statements of the program, where the zero fact holds initially
func (m *Manager) Seeds() map[ir.Stmt][]abstraction.ID {
	seeds := map[ir.Stmt][]abstraction.ID{}
	for _, method := range m.Program.Methods() {
		for _, s := range method.Body {
			if m.SourceSinks.SourceInfo(s) != nil {
				seeds[s] = []abstraction.ID{abstraction.Zero}
			}
		}
	}
	return seeds
}

// SourceContext returns the unique source context of ap tainted at stmt
func (m *Manager) SourceContext(stmt ir.Stmt, ap *abstraction.AccessPath, userData any) *abstraction.SourceContext {
	sc, _ := m.sources.LoadOrStore(sourceKey{stmt, ap},
		&abstraction.SourceContext{Stmt: stmt, AccessPath: ap, UserData: userData})
	return sc.(*abstraction.SourceContext)
}

// MayAlias returns true if a and b are the same local or if the aliasing strategy says they may alias at stmt
func (m *Manager) MayAlias(stmt ir.Stmt, a, b *ir.Local) bool {
	if a == b {
		return true
	}
	return m.aliasing != nil && m.aliasing.MayAlias(stmt, a, b)
}

// ComputeAliases hands fact, tainted at stmt by a heap write, to the aliasing strategy. Inactive facts and static
// facts have no aliases to compute.
func (m *Manager) ComputeAliases(d1 abstraction.ID, stmt ir.Stmt, fact abstraction.ID) {
	if m.aliasing == nil {
		return
	}
	abs := m.Arena.Get(fact)
	if !abs.IsActive() || abs.AccessPath().IsStatic() || !abs.AccessPath().IsHeap() {
		return
	}
	m.aliasing.ComputeAliases(d1, stmt, fact)
}

// InjectCallingContext tells the aliasing strategy that callee was entered with d3 from callSite
func (m *Manager) InjectCallingContext(callee *ir.Method, d3 abstraction.ID, callSite ir.Stmt, d2, d1 abstraction.ID) {
	if m.aliasing != nil {
		m.aliasing.InjectCallingContext(callee, d3, callSite, d2, d1)
	}
}
