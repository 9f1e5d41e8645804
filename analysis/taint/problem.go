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
	"github.com/awslabs/sparseflow/analysis/ifds"
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/awslabs/sparseflow/analysis/sparse"
)

// Problem is the forward taint problem. Its flow functions are computed by a RuleChain; Successors follows the
// sparse data-flow graph when the manager is sparse, and Route sends active facts through the method summaries.
type Problem struct {
	m     *Manager
	chain *RuleChain
}

var (
	_ ifds.Problem[ir.Stmt, abstraction.ID, *ir.Method] = (*Problem)(nil)
	_ ifds.HopRouter[ir.Stmt, abstraction.ID]           = (*Problem)(nil)
)

// NewProblem returns the taint problem of m. When no rule is given, the default rules are used.
func NewProblem(m *Manager, rules ...RuleConstructor) *Problem {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	rs := make([]Rule, len(rules))
	for i, c := range rules {
		rs[i] = c(m)
	}
	return &Problem{m: m, chain: NewRuleChain(rs...)}
}

// Manager returns the manager of the problem
func (p *Problem) Manager() *Manager { return p.m }

// Rules returns the rule chain of the problem
func (p *Problem) Rules() *RuleChain { return p.chain }

func (p *Problem) ZeroValue() abstraction.ID { return abstraction.Zero }

func (p *Problem) InitialSeeds() map[ir.Stmt][]abstraction.ID { return p.m.Seeds() }

func (p *Problem) FollowReturnsPastSeeds() bool { return p.m.Config.FollowReturnsPastSeeds }

// activate returns the active version of d if n is at or after the activation statement of d
func (p *Problem) activate(d abstraction.ID, n ir.Stmt) abstraction.ID {
	if d == abstraction.Zero {
		return d
	}
	abs := p.m.Arena.Get(d)
	if abs.IsActive() {
		return d
	}
	if u := abs.ActivationUnit(); u == n || p.m.DFG.Order(u, n) {
		return p.m.Arena.Activate(d, n)
	}
	return d
}

// result builds the output of a flow function: the incoming fact unless a rule killed it, followed by the facts
// derived by the rules, without duplicates
func result(source abstraction.ID, derived []abstraction.ID, flags Flags) []abstraction.ID {
	if flags.KillAll {
		return nil
	}
	res := make([]abstraction.ID, 0, len(derived)+1)
	seen := make(map[abstraction.ID]bool, len(derived)+1)
	if !flags.KillSource {
		res = append(res, source)
		seen[source] = true
	}
	for _, d := range derived {
		if !seen[d] {
			seen[d] = true
			res = append(res, d)
		}
	}
	return res
}

func (p *Problem) NormalFlow(d1, d2 abstraction.ID, n ir.Stmt) []abstraction.ID {
	source := p.activate(d2, n)
	derived, flags := p.chain.NormalFlow(d1, source, n)
	return result(source, derived, flags)
}

// CallFlow maps the fact into callee. The zero fact never enters callees. Every fact entering callee is also
// handed to the aliasing strategy as a calling context.
func (p *Problem) CallFlow(d1, d2 abstraction.ID, callSite ir.Stmt, callee *ir.Method,
	_ ir.Stmt) []abstraction.ID {
	if d2 == abstraction.Zero {
		return nil
	}
	source := p.activate(d2, callSite)
	derived, flags := p.chain.CallFlow(d1, source, callSite, callee)
	if flags.KillAll {
		return nil
	}
	res := result(source, derived, Flags{KillSource: true})
	for _, d3 := range res {
		p.m.InjectCallingContext(callee, d3, callSite, source, d1)
	}
	return res
}

// ReturnFlow maps a fact from the exit of callee back to callSite. Inactive facts whose activation statement is in
// callee become active, since the write that activates them has happened by the time callee returns.
func (p *Problem) ReturnFlow(callerD1, _, d2 abstraction.ID, callSite ir.Stmt, callee *ir.Method,
	exit ir.Stmt) []abstraction.ID {
	source := d2
	if source != abstraction.Zero {
		if abs := p.m.Arena.Get(source); !abs.IsActive() && abs.ActivationUnit().Method() == callee {
			source = p.m.Arena.Activate(source, exit)
		}
	}
	derived, flags := p.chain.ReturnFlow(callerD1, source, exit, callSite, callee)
	return result(source, derived, Flags{KillSource: true, KillAll: flags.KillAll})
}

func (p *Problem) CallToReturnFlow(d1, d2 abstraction.ID, callSite ir.Stmt) []abstraction.ID {
	source := p.activate(d2, callSite)
	derived, flags := p.chain.CallToReturnFlow(d1, source, callSite)
	return result(source, derived, flags)
}

func (p *Problem) Successors(n ir.Stmt, d abstraction.ID) []ir.Stmt {
	return p.m.Next(sparse.Forward, n, d)
}

// Route sends an active fact derived at the entry of a summary to the targets of the summaries applying to it. A
// fact with no applying summary dies: nothing reads it before it is overwritten or leaves the method.
func (p *Problem) Route(n ir.Stmt, d abstraction.ID) ([]ifds.Hop[ir.Stmt, abstraction.ID], bool) {
	if d == abstraction.Zero || !p.m.Config.Summaries || !p.m.IsSparse() {
		return nil, false
	}
	abs := p.m.Arena.Get(d)
	ap := abs.AccessPath()
	if !abs.IsActive() || ap.IsStatic() || ap.ArrayTaint() != abstraction.NoArray ||
		!p.m.Summaries.Has(n, ap.Base()) {
		return nil, false
	}
	var hops []ifds.Hop[ir.Stmt, abstraction.ID]
	for _, match := range p.m.Summaries.Lookup(n, ap.Base(), ap.Fields()) {
		target, whole := match.Target(ap.Fields())
		nap := p.m.Paths.Create(target.Base, target.Fields, whole || ap.TaintSubFields(), abstraction.NoArray)
		hops = append(hops, ifds.Hop[ir.Stmt, abstraction.ID]{
			N: match.Path.Target,
			D: p.m.Arena.Derive(d, nap, match.Path.Target),
		})
	}
	return hops, true
}
