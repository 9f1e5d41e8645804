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

package alias

import (
	"github.com/awslabs/sparseflow/analysis/abstraction"
	"github.com/awslabs/sparseflow/analysis/ifds"
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/awslabs/sparseflow/analysis/sparse"
	"github.com/awslabs/sparseflow/analysis/taint"
	"github.com/awslabs/sparseflow/internal/executor"
)

// FlowSensitive finds aliases with a backward solver running in lock-step with the forward taint solver
type FlowSensitive struct {
	m   *taint.Manager
	bwd *taint.Solver
}

// NewFlowSensitive returns the flow-sensitive strategy of m. The backward solver shares pool with the forward
// solver, so that waiting for the forward solver to finish also waits for alias queries.
func NewFlowSensitive(m *taint.Manager, pool *executor.Pool) *FlowSensitive {
	icfg := ifds.Backward[ir.Stmt, *ir.Method](m.Program)
	return &FlowSensitive{
		m:   m,
		bwd: ifds.New[ir.Stmt, abstraction.ID, *ir.Method]("backward", icfg, &BackwardProblem{m: m}, pool, m.Logger),
	}
}

// Solver returns the backward solver, for watchdogs and statistics
func (fs *FlowSensitive) Solver() *taint.Solver { return fs.bwd }

// ComputeAliases sends an inactive copy of fact backwards from stmt. The copy activates after stmt.
func (fs *FlowSensitive) ComputeAliases(d1 abstraction.ID, stmt ir.Stmt, fact abstraction.ID) {
	inactive := fs.m.Arena.DeriveInactive(fact, fs.m.Arena.Get(fact).AccessPath(), stmt)
	for _, p := range fs.m.Next(sparse.Backward, stmt, inactive) {
		fs.bwd.Propagate(d1, p, inactive)
	}
}

func (fs *FlowSensitive) InjectCallingContext(callee *ir.Method, d3 abstraction.ID, callSite ir.Stmt,
	d2, d1 abstraction.ID) {
	fs.bwd.InjectContext(callee, d3, callSite, d2, d1)
}

func (fs *FlowSensitive) MayAlias(ir.Stmt, *ir.Local, *ir.Local) bool { return false }

// BackwardProblem is the alias search. A path edge <d1, n, d> means that the location of d is tainted after n
// executes, where d1 is the forward context of n's method. Every alias found at a statement is handed to the
// forward solver in the same context.
type BackwardProblem struct {
	m *taint.Manager
}

var _ ifds.Problem[ir.Stmt, abstraction.ID, *ir.Method] = (*BackwardProblem)(nil)

func (p *BackwardProblem) ZeroValue() abstraction.ID { return abstraction.Zero }

func (p *BackwardProblem) InitialSeeds() map[ir.Stmt][]abstraction.ID { return nil }

func (p *BackwardProblem) FollowReturnsPastSeeds() bool { return p.m.Config.FollowReturnsPastSeeds }

func (p *BackwardProblem) Successors(n ir.Stmt, d abstraction.ID) []ir.Stmt {
	return p.m.Next(sparse.Backward, n, d)
}

func (p *BackwardProblem) derive(d abstraction.ID, ap *abstraction.AccessPath, n ir.Stmt) (abstraction.ID, bool) {
	if ap == nil || (ap.IsStatic() && !p.m.Config.StaticFieldTracking) {
		return 0, false
	}
	return p.m.Arena.Derive(d, ap, n), true
}

// inject hands an alias found at n to the forward solver
func (p *BackwardProblem) inject(d1 abstraction.ID, n ir.Stmt, alias abstraction.ID) {
	p.m.ForwardSolver().PropagateFrom(d1, n, alias)
}

func stripCast(v ir.Value) ir.Value {
	for {
		c, ok := v.(*ir.CastExpr)
		if !ok {
			return v
		}
		v = c.X
	}
}

// reads returns whether reading v reads the location of ap. The second result is true when the first field of ap is
// consumed by the read.
func reads(ap *abstraction.AccessPath, v ir.Value) (bool, bool) {
	switch x := stripCast(v).(type) {
	case *ir.Local:
		return !ap.IsStatic() && x == ap.Base(), false
	case *ir.InstanceFieldRef:
		if ap.IsStatic() || x.Base != ap.Base() {
			return false, false
		}
		if ap.FieldCount() == 0 {
			return ap.TaintSubFields(), true
		}
		return ap.FirstField() == x.Field, true
	case *ir.StaticFieldRef:
		return ap.IsStatic() && ap.FirstField() == x.Field, true
	}
	return false, false
}

func (p *BackwardProblem) NormalFlow(d1, d2 abstraction.ID, n ir.Stmt) []abstraction.ID {
	a, ok := n.(*ir.AssignStmt)
	if d2 == abstraction.Zero || !ok {
		return []abstraction.ID{d2}
	}
	ap := p.m.Arena.Get(d2).AccessPath()
	var res []abstraction.ID
	keep := true

	// the location is written at n: the values of the right-hand side are aliases
	var written []*abstraction.AccessPath
	switch l := a.Left.(type) {
	case *ir.Local:
		if ap.IsStatic() || l != ap.Base() {
			break
		}
		keep = false
		switch r := stripCast(a.Right).(type) {
		case *ir.Local, *ir.InstanceFieldRef, *ir.StaticFieldRef, *ir.ArrayRef:
			written = append(written, p.m.Paths.Rebase(ap, r, false))
		case *ir.PhiExpr:
			for _, e := range r.Edges {
				written = append(written, p.m.Paths.Rebase(ap, stripCast(e), false))
			}
		case *ir.BinopExpr, *ir.UnopExpr:
			if ap.FieldCount() > 0 {
				panic(&ShapeError{Stmt: n, Fact: ap, Reason: "field of an operator result"})
			}
		}
	case *ir.InstanceFieldRef:
		if ap.IsStatic() || l.Base != ap.Base() {
			break
		}
		switch {
		case ap.FieldCount() == 0:
			written = append(written, p.m.Paths.Rebase(ap, a.Right, false))
		case ap.FirstField() == l.Field:
			keep = false
			written = append(written, p.m.Paths.Rebase(ap, a.Right, true))
		}
	case *ir.ArrayRef:
		if !ap.IsStatic() && l.Base == ap.Base() {
			if r, isLocal := a.Right.(*ir.Local); isLocal {
				written = append(written, p.m.Paths.Create(r, ap.Fields(), ap.TaintSubFields(), abstraction.NoArray))
			}
		}
	case *ir.StaticFieldRef:
		if ap.IsStatic() && ap.FirstField() == l.Field {
			keep = false
			written = append(written, p.m.Paths.Rebase(ap, a.Right, true))
		}
	}
	for _, w := range written {
		if d, ok := p.derive(d2, w, n); ok {
			res = append(res, d)
			p.inject(d1, n, d)
		}
	}

	// the location is read at n: the left-hand side is an alias
	if keep {
		var aliases []*abstraction.AccessPath
		if phi, isPhi := stripCast(a.Right).(*ir.PhiExpr); isPhi {
			for _, e := range phi.Edges {
				if ok, consumed := reads(ap, e); ok {
					aliases = append(aliases, p.m.Paths.Rebase(ap, a.Left, consumed))
					break
				}
			}
		} else if ok, consumed := reads(ap, a.Right); ok {
			aliases = append(aliases, p.m.Paths.Rebase(ap, a.Left, consumed))
		}
		_, leftIsLocal := a.Left.(*ir.Local)
		for _, alias := range aliases {
			d, ok := p.derive(d2, alias, n)
			if !ok {
				continue
			}
			p.inject(d1, n, d)
			if !leftIsLocal {
				res = append(res, d)
			}
		}
		res = append(res, d2)
	}
	return res
}

// CallFlow follows the location into callee when callee may write it: the result of the call at its return
// statements, the arguments at the parameters, and statics. The forward solver learns the calling context so
// that aliases found in callee return to callSite. A location whose base is returned by callee is also handed to
// the forward solver at the return statement, which binds it to the result and the arguments of the call.
func (p *BackwardProblem) CallFlow(d1, d2 abstraction.ID, callSite ir.Stmt, callee *ir.Method,
	exit ir.Stmt) []abstraction.ID {
	if d2 == abstraction.Zero {
		return nil
	}
	ap := p.m.Arena.Get(d2).AccessPath()
	inv := ir.InvokeOf(callSite)
	var res []abstraction.ID
	add := func(nap *abstraction.AccessPath) {
		if d, ok := p.derive(d2, nap, callSite); ok {
			res = append(res, d)
		}
	}
	switch {
	case ap.IsStatic():
		add(ap)
	case ap.Base() == ir.DefinedLocal(callSite):
		if ret, ok := exit.(*ir.ReturnStmt); ok && ap.FieldCount() > 0 {
			if v, isLocal := ret.Value.(*ir.Local); isLocal {
				add(p.m.Paths.WithBase(ap, v))
			}
		}
	case ap.FieldCount() > 0 || ap.ArrayTaint() != abstraction.NoArray:
		if inv.Base != nil && inv.Base == ap.Base() && callee.This != nil {
			add(p.m.Paths.WithBase(ap, callee.This))
		}
		for i, arg := range inv.Args {
			if arg == ir.Value(ap.Base()) && i < len(callee.Params) && callee.Params[i] != nil {
				add(p.m.Paths.WithBase(ap, callee.Params[i]))
			}
		}
	}
	fwd := p.m.ForwardSolver()
	ret, returns := exit.(*ir.ReturnStmt)
	for _, d3 := range res {
		fwd.InjectContext(callee, d3, callSite, d2, d1)
		// a returned alias reaches the result of the call through the forward return flow
		if returns && !p.m.Arena.Get(d3).AccessPath().IsStatic() &&
			ret.Value == ir.Value(p.m.Arena.Get(d3).AccessPath().Base()) {
			fwd.Propagate(d3, exit, d3)
		}
	}
	return res
}

// ReturnFlow maps the location from the start of callee back to the arguments of callSite. The mapped facts
// activate after callSite, where the write inside callee has happened.
func (p *BackwardProblem) ReturnFlow(_, _, d2 abstraction.ID, callSite ir.Stmt, callee *ir.Method,
	_ ir.Stmt) []abstraction.ID {
	if d2 == abstraction.Zero {
		return nil
	}
	ap := p.m.Arena.Get(d2).AccessPath()
	if ap.IsStatic() {
		return []abstraction.ID{p.m.Arena.DeriveInactive(d2, ap, callSite)}
	}
	inv := ir.InvokeOf(callSite)
	if inv == nil {
		return nil
	}
	var res []abstraction.ID
	if callee.This != nil && callee.This == ap.Base() && inv.Base != nil {
		res = append(res, p.m.Arena.DeriveInactive(d2, p.m.Paths.WithBase(ap, inv.Base), callSite))
	}
	for i, param := range callee.Params {
		if param == nil || param != ap.Base() || i >= len(inv.Args) {
			continue
		}
		if arg, ok := inv.Args[i].(*ir.Local); ok {
			res = append(res, p.m.Arena.DeriveInactive(d2, p.m.Paths.WithBase(ap, arg), callSite))
		}
	}
	return res
}

// CallToReturnFlow kills the locations the call defines, and those that go through its callees
func (p *BackwardProblem) CallToReturnFlow(_, d2 abstraction.ID, callSite ir.Stmt) []abstraction.ID {
	if d2 == abstraction.Zero {
		return nil
	}
	ap := p.m.Arena.Get(d2).AccessPath()
	if !ap.IsStatic() && ap.Base() == ir.DefinedLocal(callSite) {
		return nil
	}
	if len(p.m.Program.CalleesOfCallAt(callSite)) > 0 {
		if ap.IsStatic() {
			return nil
		}
		inv := ir.InvokeOf(callSite)
		if (ap.FieldCount() > 0 || ap.ArrayTaint() != abstraction.NoArray) && taint.IsPassedTo(inv, ap.Base()) {
			return nil
		}
	}
	return []abstraction.ID{d2}
}
