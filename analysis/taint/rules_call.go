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
	"github.com/awslabs/sparseflow/analysis/ir"
)

// entersCallees returns true if a fact on ap goes through the callees of the call at stmt rather than around it
func (m *Manager) entersCallees(stmt ir.Stmt, ap *abstraction.AccessPath) bool {
	if len(m.Program.CalleesOfCallAt(stmt)) == 0 {
		return false
	}
	if !m.Config.InspectSources && m.SourceSinks.SourceInfo(stmt) != nil {
		return false
	}
	return m.Config.InspectSinks || !m.SourceSinks.IsSink(stmt, ap)
}

// isHeap returns true if changes to ap made by a callee are visible to the caller
func isHeap(ap *abstraction.AccessPath) bool {
	return ap.FieldCount() > 0 || ap.ArrayTaint() != abstraction.NoArray
}

// StaticPropagationRule carries facts on static fields into and out of callees
type StaticPropagationRule struct {
	m *Manager
}

// NewStaticPropagationRule returns the static field rule of m
func NewStaticPropagationRule(m *Manager) Rule { return &StaticPropagationRule{m: m} }

func (r *StaticPropagationRule) Name() string { return "static" }

func (r *StaticPropagationRule) isStatic(source abstraction.ID) bool {
	return source != abstraction.Zero && r.m.Arena.Get(source).AccessPath().IsStatic()
}

func (r *StaticPropagationRule) PropagateCallFlow(_, source abstraction.ID, _ ir.Stmt, _ *ir.Method,
	_ *Flags) []abstraction.ID {
	if r.isStatic(source) && r.m.Config.StaticFieldTracking {
		return []abstraction.ID{source}
	}
	return nil
}

func (r *StaticPropagationRule) PropagateReturnFlow(_, source abstraction.ID, _, _ ir.Stmt, _ *ir.Method,
	_ *Flags) []abstraction.ID {
	if r.isStatic(source) && r.m.Config.StaticFieldTracking {
		return []abstraction.ID{source}
	}
	return nil
}

func (r *StaticPropagationRule) PropagateCallToReturnFlow(_, source abstraction.ID, stmt ir.Stmt,
	flags *Flags) []abstraction.ID {
	if r.isStatic(source) && r.m.Config.StaticFieldTracking &&
		r.m.entersCallees(stmt, r.m.Arena.Get(source).AccessPath()) {
		flags.KillSource = true
	}
	return nil
}

// CallReturnPropagationRule binds arguments to parameters at calls, and parameters and returned values back to the
// caller at returns
type CallReturnPropagationRule struct {
	m *Manager
}

// NewCallReturnPropagationRule returns the call and return rule of m
func NewCallReturnPropagationRule(m *Manager) Rule { return &CallReturnPropagationRule{m: m} }

func (r *CallReturnPropagationRule) Name() string { return "call-return" }

func (r *CallReturnPropagationRule) PropagateCallFlow(_, source abstraction.ID, stmt ir.Stmt, callee *ir.Method,
	_ *Flags) []abstraction.ID {
	if source == abstraction.Zero {
		return nil
	}
	ap := r.m.Arena.Get(source).AccessPath()
	inv := ir.InvokeOf(stmt)
	if ap.IsStatic() || inv == nil {
		return nil
	}
	var res []abstraction.ID
	if inv.Base != nil && inv.Base == ap.Base() && callee.This != nil {
		res = append(res, r.m.Arena.Derive(source, r.m.Paths.WithBase(ap, callee.This), stmt))
	}
	for i, arg := range inv.Args {
		if arg != ir.Value(ap.Base()) || i >= len(callee.Params) || callee.Params[i] == nil {
			continue
		}
		res = append(res, r.m.Arena.Derive(source, r.m.Paths.WithBase(ap, callee.Params[i]), stmt))
	}
	return res
}

func (r *CallReturnPropagationRule) PropagateReturnFlow(_, source abstraction.ID, exit, callSite ir.Stmt,
	callee *ir.Method, _ *Flags) []abstraction.ID {
	if source == abstraction.Zero {
		return nil
	}
	ap := r.m.Arena.Get(source).AccessPath()
	inv := ir.InvokeOf(callSite)
	if ap.IsStatic() || inv == nil {
		return nil
	}
	var res []abstraction.ID
	derive := func(base *ir.Local) {
		res = append(res, r.m.Arena.Derive(source, r.m.Paths.WithBase(ap, base), callSite))
	}
	if ret, ok := exit.(*ir.ReturnStmt); ok && ret.Value == ir.Value(ap.Base()) {
		if x := ir.DefinedLocal(callSite); x != nil {
			derive(x)
		}
	}
	if !isHeap(ap) {
		return res
	}
	if callee.This != nil && callee.This == ap.Base() && inv.Base != nil {
		derive(inv.Base)
	}
	for i, p := range callee.Params {
		if p == nil || p != ap.Base() || i >= len(inv.Args) {
			continue
		}
		if arg, ok := inv.Args[i].(*ir.Local); ok {
			derive(arg)
		}
	}
	return res
}

// PropagateCallToReturnFlow kills the facts that the callees may change, since they come back through the return
// flow
func (r *CallReturnPropagationRule) PropagateCallToReturnFlow(_, source abstraction.ID, stmt ir.Stmt,
	flags *Flags) []abstraction.ID {
	if source == abstraction.Zero {
		return nil
	}
	ap := r.m.Arena.Get(source).AccessPath()
	inv := ir.InvokeOf(stmt)
	if ap.IsStatic() || inv == nil || !isHeap(ap) {
		return nil
	}
	if IsPassedTo(inv, ap.Base()) && r.m.entersCallees(stmt, ap) {
		flags.KillSource = true
	}
	return nil
}

// WrapperPropagationRule taints the result and the receiver of calls without a body when an argument is tainted
type WrapperPropagationRule struct {
	m *Manager
}

// NewWrapperPropagationRule returns the wrapper rule of m
func NewWrapperPropagationRule(m *Manager) Rule { return &WrapperPropagationRule{m: m} }

func (r *WrapperPropagationRule) Name() string { return "wrapper" }

func (r *WrapperPropagationRule) PropagateCallToReturnFlow(_, source abstraction.ID, stmt ir.Stmt,
	_ *Flags) []abstraction.ID {
	if !r.m.Config.TaintWrapper || source == abstraction.Zero || len(r.m.Program.CalleesOfCallAt(stmt)) > 0 {
		return nil
	}
	ap := r.m.Arena.Get(source).AccessPath()
	inv := ir.InvokeOf(stmt)
	if inv == nil || ap.IsStatic() || !IsPassedTo(inv, ap.Base()) || r.m.SourceSinks.IsSink(stmt, ap) {
		return nil
	}
	var res []abstraction.ID
	if x := ir.DefinedLocal(stmt); x != nil {
		res = append(res, r.m.Arena.Derive(source, r.m.Paths.Local(x), stmt))
	}
	if inv.Base != nil && inv.Base != ap.Base() {
		res = append(res, r.m.Arena.Derive(source, r.m.Paths.Local(inv.Base), stmt))
	}
	return res
}
