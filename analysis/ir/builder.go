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

package ir

import (
	"fmt"
	"go/token"
)

// ShapeError is returned when a statement has a shape the analysis does not support
type ShapeError struct {
	Stmt   string
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("unsupported statement shape %q: %s", e.Stmt, e.Reason)
}

// Builder builds a Program. Calls are resolved by name when Build is called, so methods may be declared in any order.
type Builder struct {
	prog     *Program
	methods  []*MethodBuilder
	bindings map[Stmt][]string
}

// NewBuilder returns a builder for an empty program
func NewBuilder() *Builder {
	return &Builder{
		prog: &Program{
			byName:  map[string]*Method{},
			fields:  map[string]*Field{},
			callees: map[Stmt][]*Method{},
			callers: map[*Method][]Stmt{},
		},
		bindings: map[Stmt][]string{},
	}
}

// Field returns the interned field with the given name
func (b *Builder) Field(name string) *Field {
	if f, ok := b.prog.fields[name]; ok {
		return f
	}
	f := &Field{Name: name}
	b.prog.fields[name] = f
	return f
}

// Static returns a reference to the static field with the given name
func (b *Builder) Static(name string) *StaticFieldRef {
	return &StaticFieldRef{Field: b.Field(name)}
}

// Method returns the builder of the method with the given name, declaring it if needed
func (b *Builder) Method(name string) *MethodBuilder {
	if m, ok := b.prog.byName[name]; ok {
		for _, mb := range b.methods {
			if mb.m == m {
				return mb
			}
		}
	}
	m := &Method{Name: name, program: b.prog}
	b.prog.byName[name] = m
	b.prog.methods = append(b.prog.methods, m)
	mb := &MethodBuilder{b: b, m: m, labels: map[string]int{}}
	b.methods = append(b.methods, mb)
	return mb
}

// Bind sets the possible targets of the call at s, overriding resolution by callee name
func (b *Builder) Bind(s Stmt, targets ...string) {
	b.bindings[s] = append(b.bindings[s], targets...)
}

// Build finishes the program: it computes every method's control-flow graph and resolves calls
func (b *Builder) Build() (*Program, error) {
	for _, mb := range b.methods {
		if err := mb.finish(); err != nil {
			return nil, fmt.Errorf("method %s: %w", mb.m.Name, err)
		}
	}
	p := b.prog
	for _, m := range p.methods {
		for _, s := range m.Body {
			inv := InvokeOf(s)
			if inv == nil {
				continue
			}
			targets, bound := b.bindings[s]
			if !bound {
				targets = []string{inv.Callee.Name}
			}
			for _, name := range targets {
				callee := p.byName[name]
				if callee.HasBody() {
					p.callees[s] = append(p.callees[s], callee)
					p.callers[callee] = append(p.callers[callee], s)
				}
			}
		}
	}
	return p, nil
}

// MethodBuilder appends statements to a method body
type MethodBuilder struct {
	b       *Builder
	m       *Method
	labels  map[string]int
	pending []string
	pos     token.Position
	nlocals int
	// trap labels (from, to, handler), resolved in finish
	trapLabels [][3]string
}

// Method returns the method being built
func (mb *MethodBuilder) Method() *Method {
	return mb.m
}

// Local declares a new local
func (mb *MethodBuilder) Local(name string) *Local {
	return mb.TypedLocal(name, nil)
}

// TypedLocal declares a new local with a type
func (mb *MethodBuilder) TypedLocal(name string, t *Type) *Local {
	l := &Local{Name: name, Type: t}
	mb.m.locals = append(mb.m.locals, l)
	return l
}

// Temp declares a fresh local with a generated name
func (mb *MethodBuilder) Temp(t *Type) *Local {
	mb.nlocals++
	return mb.TypedLocal(fmt.Sprintf("$t%d", mb.nlocals), t)
}

// Param declares the next parameter and emits the identity statement binding it
func (mb *MethodBuilder) Param(name string) *Local {
	return mb.TypedParam(name, nil)
}

// TypedParam is Param with a type
func (mb *MethodBuilder) TypedParam(name string, t *Type) *Local {
	l := mb.TypedLocal(name, t)
	idx := len(mb.m.Params)
	mb.m.Params = append(mb.m.Params, l)
	mb.add(&IdentityStmt{Left: l, Right: &ParameterRef{Index: idx, Type: t}})
	return l
}

// This declares the receiver and emits the identity statement binding it
func (mb *MethodBuilder) This(name string) *Local {
	l := mb.Local(name)
	mb.m.This = l
	mb.add(&IdentityStmt{Left: l, Right: &ThisRef{}})
	return l
}

// Label names the next statement
func (mb *MethodBuilder) Label(name string) {
	mb.pending = append(mb.pending, name)
}

// At sets the source position of the next statements
func (mb *MethodBuilder) At(pos token.Position) {
	mb.pos = pos
}

// FieldRef returns the value base.field
func (mb *MethodBuilder) FieldRef(base *Local, field string) *InstanceFieldRef {
	return &InstanceFieldRef{Base: base, Field: mb.b.Field(field)}
}

// Index returns the value base[index]
func (mb *MethodBuilder) Index(base *Local, index Value) *ArrayRef {
	return &ArrayRef{Base: base, Index: index}
}

// Call returns a static call expression, to be used as the right-hand side of an assignment
func (mb *MethodBuilder) Call(callee string, args ...Value) *InvokeExpr {
	return &InvokeExpr{Callee: MethodRef{Name: callee}, Args: args}
}

// CallOn returns a call expression with a receiver
func (mb *MethodBuilder) CallOn(base *Local, callee string, args ...Value) *InvokeExpr {
	return &InvokeExpr{Callee: MethodRef{Name: callee}, Base: base, Args: args}
}

// Assign emits left = right
func (mb *MethodBuilder) Assign(left, right Value) *AssignStmt {
	s := &AssignStmt{Left: left, Right: right}
	mb.add(s)
	return s
}

// Load emits left = base.field
func (mb *MethodBuilder) Load(left, base *Local, field string) *AssignStmt {
	return mb.Assign(left, mb.FieldRef(base, field))
}

// Store emits base.field = right
func (mb *MethodBuilder) Store(base *Local, field string, right Value) *AssignStmt {
	return mb.Assign(mb.FieldRef(base, field), right)
}

// Invoke emits a static call whose result is discarded
func (mb *MethodBuilder) Invoke(callee string, args ...Value) *InvokeStmt {
	s := &InvokeStmt{Invoke: mb.Call(callee, args...)}
	mb.add(s)
	return s
}

// InvokeOn emits a call with a receiver whose result is discarded
func (mb *MethodBuilder) InvokeOn(base *Local, callee string, args ...Value) *InvokeStmt {
	s := &InvokeStmt{Invoke: mb.CallOn(base, callee, args...)}
	mb.add(s)
	return s
}

// Return emits a return statement; v may be nil
func (mb *MethodBuilder) Return(v Value) *ReturnStmt {
	s := &ReturnStmt{Value: v}
	mb.add(s)
	return s
}

// If emits a conditional branch to label, falling through otherwise
func (mb *MethodBuilder) If(cond Value, label string) *BranchStmt {
	if cond == nil {
		cond = &Constant{Value: "?"}
	}
	s := &BranchStmt{Cond: cond, Target: label}
	mb.add(s)
	return s
}

// Goto emits an unconditional jump to label
func (mb *MethodBuilder) Goto(label string) *BranchStmt {
	s := &BranchStmt{Target: label}
	mb.add(s)
	return s
}

// Throw emits a throw statement
func (mb *MethodBuilder) Throw(v Value) *ThrowStmt {
	s := &ThrowStmt{Value: v}
	mb.add(s)
	return s
}

// Nop emits a statement that does nothing
func (mb *MethodBuilder) Nop() *NopStmt {
	s := &NopStmt{}
	mb.add(s)
	return s
}

// Catch emits the identity statement binding the caught exception at the start of a handler
func (mb *MethodBuilder) Catch(l *Local) *IdentityStmt {
	s := &IdentityStmt{Left: l, Right: &CaughtRef{}}
	mb.add(s)
	return s
}

// Trap protects the statements from label from (inclusive) to label to (exclusive) with the handler at label
// handler. The labels are resolved when the program is built.
func (mb *MethodBuilder) Trap(from, to, handler string) {
	mb.m.Traps = append(mb.m.Traps, Trap{From: -1, To: -1, Handler: -1})
	mb.trapLabels = append(mb.trapLabels, [3]string{from, to, handler})
}

func (mb *MethodBuilder) add(s Stmt) {
	sb := s.base()
	sb.method = mb.m
	sb.index = len(mb.m.Body)
	sb.pos = mb.pos
	for _, l := range mb.pending {
		mb.labels[l] = sb.index
	}
	mb.pending = nil
	mb.m.Body = append(mb.m.Body, s)
}

func (mb *MethodBuilder) finish() error {
	m := mb.m
	if len(m.Body) == 0 {
		return nil
	}
	if len(mb.pending) > 0 || !isTerminal(m.Body[len(m.Body)-1]) {
		mb.Return(nil)
	}
	n := len(m.Body)
	for i, s := range m.Body {
		if err := checkShape(s); err != nil {
			return err
		}
		if br, ok := s.(*BranchStmt); ok {
			if _, ok := mb.labels[br.Target]; !ok {
				return fmt.Errorf("statement %d: unknown label %q", i, br.Target)
			}
		}
	}
	for i, tl := range mb.trapLabels {
		var idx [3]int
		for j, l := range tl {
			k, ok := mb.labels[l]
			if !ok {
				if j == 1 && l == "" {
					k = n
				} else {
					return fmt.Errorf("trap: unknown label %q", l)
				}
			}
			idx[j] = k
		}
		m.Traps[i] = Trap{From: idx[0], To: idx[1], Handler: idx[2]}
	}

	m.succs = make([][]int, n)
	m.preds = make([][]int, n)
	addEdge := func(i, j int) {
		for _, k := range m.succs[i] {
			if k == j {
				return
			}
		}
		m.succs[i] = append(m.succs[i], j)
		m.preds[j] = append(m.preds[j], i)
	}
	for i, s := range m.Body {
		switch x := s.(type) {
		case *ReturnStmt, *ThrowStmt:
		case *BranchStmt:
			if x.Cond != nil && i+1 < n {
				addEdge(i, i+1)
			}
			addEdge(i, mb.labels[x.Target])
		default:
			if i+1 < n {
				addEdge(i, i+1)
			}
		}
		for _, t := range m.Traps {
			if i >= t.From && i < t.To {
				addEdge(i, t.Handler)
			}
		}
	}
	return nil
}

func isTerminal(s Stmt) bool {
	switch x := s.(type) {
	case *ReturnStmt, *ThrowStmt:
		return true
	case *BranchStmt:
		return x.Cond == nil
	}
	return false
}

func checkShape(s Stmt) error {
	switch x := s.(type) {
	case *AssignStmt:
		switch x.Left.(type) {
		case *Local, *InstanceFieldRef, *StaticFieldRef, *ArrayRef:
		default:
			return &ShapeError{Stmt: s.String(), Reason: "left-hand side is not assignable"}
		}
		if _, isLocal := x.Left.(*Local); !isLocal && !isSimple(x.Right) {
			return &ShapeError{Stmt: s.String(), Reason: "store of a compound expression"}
		}
	case *IdentityStmt:
		switch x.Right.(type) {
		case *ParameterRef, *ThisRef, *CaughtRef:
		default:
			return &ShapeError{Stmt: s.String(), Reason: "identity statement does not bind a parameter"}
		}
	}
	return nil
}

func isSimple(v Value) bool {
	switch v.(type) {
	case *Local, *Constant:
		return true
	}
	return false
}
