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

import "sort"

// Trap marks the statements in [From, To) as protected by the handler starting at Handler
type Trap struct {
	From, To int
	Handler  int
}

// Method is a procedure of the program
type Method struct {
	Name string
	// Params are the locals bound to the parameters, in order. A nil entry is a parameter that is never bound.
	Params []*Local
	// This is the local bound to the receiver, if any
	This *Local
	// Body is the ordered list of statements. Methods without a body are external.
	Body  []Stmt
	Traps []Trap

	program *Program
	locals  []*Local
	succs   [][]int
	preds   [][]int
}

func (m *Method) String() string {
	if m == nil {
		return "<nil>"
	}
	return m.Name
}

// HasBody returns true when the method is defined in the program
func (m *Method) HasBody() bool {
	return m != nil && len(m.Body) > 0
}

// Program returns the program the method belongs to
func (m *Method) Program() *Program {
	return m.program
}

// Locals returns all the locals declared in the method, in order of declaration
func (m *Method) Locals() []*Local {
	return m.locals
}

// Succs returns the successors of s in the method's control-flow graph, including exceptional successors
func (m *Method) Succs(s Stmt) []Stmt {
	return m.stmts(m.succs[s.Index()])
}

// Preds returns the predecessors of s in the method's control-flow graph
func (m *Method) Preds(s Stmt) []Stmt {
	return m.stmts(m.preds[s.Index()])
}

// SuccIndices returns the indices of the successors of the statement at index i
func (m *Method) SuccIndices(i int) []int {
	return m.succs[i]
}

// PredIndices returns the indices of the predecessors of the statement at index i
func (m *Method) PredIndices(i int) []int {
	return m.preds[i]
}

func (m *Method) stmts(idx []int) []Stmt {
	res := make([]Stmt, len(idx))
	for i, j := range idx {
		res[i] = m.Body[j]
	}
	return res
}

// IsHandler returns true if the statement at index i is the start of a trap handler
func (m *Method) IsHandler(i int) bool {
	for _, t := range m.Traps {
		if t.Handler == i {
			return true
		}
	}
	return false
}

// IsParamOrThis returns true if l is a parameter or the receiver of the method
func (m *Method) IsParamOrThis(l *Local) bool {
	if l == nil {
		return false
	}
	if l == m.This {
		return true
	}
	for _, p := range m.Params {
		if p == l {
			return true
		}
	}
	return false
}

// StartPoint returns the first statement of the body
func (m *Method) StartPoint() Stmt {
	if len(m.Body) == 0 {
		return nil
	}
	return m.Body[0]
}

// Exits returns the statements of the method that have no successor
func (m *Method) Exits() []Stmt {
	var res []Stmt
	for i, s := range m.Body {
		if len(m.succs[i]) == 0 {
			res = append(res, s)
		}
	}
	return res
}

// Program is the interprocedural control-flow graph of a set of methods
type Program struct {
	methods []*Method
	byName  map[string]*Method
	fields  map[string]*Field
	callees map[Stmt][]*Method
	callers map[*Method][]Stmt
}

// Methods returns the methods of the program, in order of declaration
func (p *Program) Methods() []*Method {
	return p.methods
}

// MethodByName returns the method with the given name, or nil
func (p *Program) MethodByName(name string) *Method {
	return p.byName[name]
}

// Field returns the interned field with the given name, or nil if no statement mentions it
func (p *Program) Field(name string) *Field {
	return p.fields[name]
}

// SuccsOf returns the intraprocedural successors of s
func (p *Program) SuccsOf(s Stmt) []Stmt {
	return s.Method().Succs(s)
}

// PredsOf returns the intraprocedural predecessors of s
func (p *Program) PredsOf(s Stmt) []Stmt {
	return s.Method().Preds(s)
}

// MethodOf returns the method containing s
func (p *Program) MethodOf(s Stmt) *Method {
	return s.Method()
}

// IsExitStmt returns true if s has no successor in its method
func (p *Program) IsExitStmt(s Stmt) bool {
	return len(s.Method().succs[s.Index()]) == 0
}

// IsStartPoint returns true if s is the first statement of its method
func (p *Program) IsStartPoint(s Stmt) bool {
	return s.Index() == 0
}

// IsCallStmt returns true if s contains a call
func (p *Program) IsCallStmt(s Stmt) bool {
	return InvokeOf(s) != nil
}

// CalleesOfCallAt returns the methods with a body that the call at s may invoke
func (p *Program) CalleesOfCallAt(s Stmt) []*Method {
	return p.callees[s]
}

// CallersOf returns the call statements that may invoke m
func (p *Program) CallersOf(m *Method) []Stmt {
	return p.callers[m]
}

// StartPointsOf returns the entry statements of m
func (p *Program) StartPointsOf(m *Method) []Stmt {
	if sp := m.StartPoint(); sp != nil {
		return []Stmt{sp}
	}
	return nil
}

// EndPointsOf returns the exit statements of m
func (p *Program) EndPointsOf(m *Method) []Stmt {
	return m.Exits()
}

// ReturnSitesOfCallAt returns the statements control returns to after the call at s
func (p *Program) ReturnSitesOfCallAt(s Stmt) []Stmt {
	return p.SuccsOf(s)
}

// CallGraphSuccessors returns the callees of m with a body, sorted by name
func (p *Program) CallGraphSuccessors(m *Method) []*Method {
	seen := map[*Method]bool{}
	var res []*Method
	for _, s := range m.Body {
		for _, c := range p.callees[s] {
			if !seen[c] {
				seen[c] = true
				res = append(res, c)
			}
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// NumStmts returns the total number of statements of the program
func (p *Program) NumStmts() int {
	n := 0
	for _, m := range p.methods {
		n += len(m.Body)
	}
	return n
}
