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
	"github.com/awslabs/sparseflow/analysis/abstraction"
	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/analysis/ir"
)

func stripCast(v ir.Value) ir.Value {
	for {
		c, ok := v.(*ir.CastExpr)
		if !ok {
			return v
		}
		v = c.X
	}
}

// reads returns whether the plain value v reads the fact ap at stmt. The second result is true when the first field
// of ap is consumed by the read.
func (m *Manager) reads(stmt ir.Stmt, ap *abstraction.AccessPath, v ir.Value) (consumed bool, ok bool) {
	switch x := v.(type) {
	case *ir.Local:
		return false, !ap.IsStatic() && m.MayAlias(stmt, x, ap.Base())
	case *ir.InstanceFieldRef:
		if ap.IsStatic() || !m.MayAlias(stmt, x.Base, ap.Base()) {
			return false, false
		}
		if ap.FieldCount() == 0 {
			return true, ap.TaintSubFields()
		}
		return true, ap.FirstField() == x.Field
	case *ir.StaticFieldRef:
		return true, m.Config.StaticFieldTracking && ap.IsStatic() && ap.FirstField() == x.Field
	}
	return false, false
}

// ArrayPropagationRule handles array lengths, array element reads and array allocations
type ArrayPropagationRule struct {
	m *Manager
}

// NewArrayPropagationRule returns the array rule of m
func NewArrayPropagationRule(m *Manager) Rule { return &ArrayPropagationRule{m: m} }

func (r *ArrayPropagationRule) Name() string { return "array" }

func (r *ArrayPropagationRule) PropagateNormalFlow(_, source abstraction.ID, stmt ir.Stmt,
	_ *Flags) []abstraction.ID {
	a, ok := stmt.(*ir.AssignStmt)
	if !ok || source == abstraction.Zero {
		return nil
	}
	left, ok := a.Left.(*ir.Local)
	if !ok {
		return nil
	}
	ap := r.m.Arena.Get(source).AccessPath()
	if ap.IsStatic() {
		return nil
	}
	uses := func(v ir.Value) bool {
		l, isLocal := stripCast(v).(*ir.Local)
		return isLocal && r.m.MayAlias(stmt, l, ap.Base())
	}

	var nap *abstraction.AccessPath
	switch x := a.Right.(type) {
	case *ir.LengthExpr:
		if uses(x.X) && ap.ArrayTaint() != abstraction.ArrayContents {
			nap = r.m.Paths.Create(left, nil, true, abstraction.NoArray)
		}
	case *ir.ArrayRef:
		switch {
		case r.m.MayAlias(stmt, x.Base, ap.Base()) && ap.ArrayTaint() != abstraction.ArrayLength:
			nap = r.m.Paths.Create(left, ap.Fields(), ap.TaintSubFields(), abstraction.NoArray)
		case r.m.Config.ImplicitFlows && ap.FieldCount() == 0 && uses(x.Index):
			nap = r.m.Paths.Create(left, nil, true, abstraction.NoArray)
		}
	case *ir.NewArrayExpr:
		if r.m.Config.ArraySizeTainting && uses(x.Size) {
			nap = r.m.Paths.Create(left, nil, true, abstraction.ArrayLength)
		}
	}
	if nap == nil {
		return nil
	}
	return []abstraction.ID{r.m.Arena.Derive(source, nap, stmt)}
}

// StrongUpdatePropagationRule kills the facts whose access path is overwritten by an assignment
type StrongUpdatePropagationRule struct {
	m *Manager
}

// NewStrongUpdatePropagationRule returns the strong update rule of m
func NewStrongUpdatePropagationRule(m *Manager) Rule { return &StrongUpdatePropagationRule{m: m} }

func (r *StrongUpdatePropagationRule) Name() string { return "strong-update" }

func (r *StrongUpdatePropagationRule) PropagateNormalFlow(_, source abstraction.ID, stmt ir.Stmt,
	flags *Flags) []abstraction.ID {
	a, ok := stmt.(*ir.AssignStmt)
	if !ok || source == abstraction.Zero || r.m.Config.Solver == config.FlowInsensitiveSolver {
		return nil
	}
	ap := r.m.Arena.Get(source).AccessPath()
	switch l := a.Left.(type) {
	case *ir.Local:
		flags.KillSource = flags.KillSource || ap.Base() == l
	case *ir.InstanceFieldRef:
		flags.KillSource = flags.KillSource ||
			(ap.Base() == l.Base && ap.FieldCount() > 0 && ap.FirstField() == l.Field)
	case *ir.StaticFieldRef:
		flags.KillSource = flags.KillSource || (ap.IsStatic() && ap.FirstField() == l.Field)
	}
	return nil
}

// PropagateCallToReturnFlow kills the facts on the local defined by the call
func (r *StrongUpdatePropagationRule) PropagateCallToReturnFlow(_, source abstraction.ID, stmt ir.Stmt,
	flags *Flags) []abstraction.ID {
	if source == abstraction.Zero || r.m.Config.Solver == config.FlowInsensitiveSolver {
		return nil
	}
	if x := ir.DefinedLocal(stmt); x != nil && r.m.Arena.Get(source).AccessPath().Base() == x {
		flags.KillSource = true
	}
	return nil
}

// AssignmentPropagationRule propagates facts through copies, casts, field loads and stores, phi nodes and
// operators
type AssignmentPropagationRule struct {
	m *Manager
}

// NewAssignmentPropagationRule returns the assignment rule of m
func NewAssignmentPropagationRule(m *Manager) Rule { return &AssignmentPropagationRule{m: m} }

func (r *AssignmentPropagationRule) Name() string { return "assignment" }

func (r *AssignmentPropagationRule) PropagateNormalFlow(d1, source abstraction.ID, stmt ir.Stmt,
	_ *Flags) []abstraction.ID {
	a, ok := stmt.(*ir.AssignStmt)
	if !ok || source == abstraction.Zero {
		return nil
	}
	ap := r.m.Arena.Get(source).AccessPath()

	var nap *abstraction.AccessPath
	switch x := stripCast(a.Right).(type) {
	case *ir.Local, *ir.InstanceFieldRef, *ir.StaticFieldRef:
		if consumed, ok := r.m.reads(stmt, ap, x); ok {
			nap = r.m.Paths.Rebase(ap, a.Left, consumed)
		}
	case *ir.PhiExpr:
		for _, e := range x.Edges {
			if consumed, ok := r.m.reads(stmt, ap, stripCast(e)); ok {
				nap = r.m.Paths.Rebase(ap, a.Left, consumed)
				break
			}
		}
	case *ir.BinopExpr, *ir.UnopExpr:
		if ap.IsStatic() {
			break
		}
		for _, t := range ir.BaseAndField(x, r.m.Config.ImplicitFlows) {
			if r.m.MayAlias(stmt, t.Base, ap.Base()) {
				nap = r.m.Paths.FromValue(a.Left, true)
				break
			}
		}
	}
	if nap == nil || (nap.IsStatic() && !r.m.Config.StaticFieldTracking) {
		return nil
	}
	fact := r.m.Arena.Derive(source, nap, stmt)
	if _, isLocal := a.Left.(*ir.Local); !isLocal {
		r.m.ComputeAliases(d1, stmt, fact)
	}
	return []abstraction.ID{fact}
}
