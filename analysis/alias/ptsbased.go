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
	"sort"

	"github.com/awslabs/sparseflow/analysis/abstraction"
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/awslabs/sparseflow/analysis/taint"
)

// Classes partitions the locals of a program into alias classes: two locals are in the same class when a chain of
// copies, casts or phi nodes links them in some method. Classes are flow-insensitive and read-only once built.
type Classes struct {
	parent  map[*ir.Local]*ir.Local
	members map[*ir.Local][]*ir.Local
}

// NewClasses computes the alias classes of every method of prog
func NewClasses(prog *ir.Program) *Classes {
	c := &Classes{parent: map[*ir.Local]*ir.Local{}, members: map[*ir.Local][]*ir.Local{}}
	for _, m := range prog.Methods() {
		for _, s := range m.Body {
			a, ok := s.(*ir.AssignStmt)
			if !ok {
				continue
			}
			left, ok := a.Left.(*ir.Local)
			if !ok {
				continue
			}
			for _, r := range copied(a.Right) {
				c.union(left, r)
			}
		}
	}
	for l := range c.parent {
		root := c.find(l)
		c.members[root] = append(c.members[root], l)
	}
	for _, ms := range c.members {
		sort.Slice(ms, func(i, j int) bool { return ms[i].Name < ms[j].Name })
	}
	return c
}

// copied returns the locals whose value v copies
func copied(v ir.Value) []*ir.Local {
	switch x := v.(type) {
	case *ir.Local:
		return []*ir.Local{x}
	case *ir.CastExpr:
		return copied(x.X)
	case *ir.PhiExpr:
		var res []*ir.Local
		for _, e := range x.Edges {
			res = append(res, copied(e)...)
		}
		return res
	}
	return nil
}

func (c *Classes) find(l *ir.Local) *ir.Local {
	p, ok := c.parent[l]
	if !ok {
		c.parent[l] = l
		return l
	}
	if p == l {
		return l
	}
	root := c.find(p)
	c.parent[l] = root
	return root
}

func (c *Classes) union(a, b *ir.Local) {
	ra, rb := c.find(a), c.find(b)
	if ra != rb {
		c.parent[ra] = rb
	}
}

func (c *Classes) root(l *ir.Local) *ir.Local {
	for {
		p, ok := c.parent[l]
		if !ok || p == l {
			return l
		}
		l = p
	}
}

// Same returns true if a and b are in the same class
func (c *Classes) Same(a, b *ir.Local) bool {
	return a == b || (a != nil && b != nil && c.root(a) == c.root(b))
}

// Members returns the other locals of the class of l, sorted by name
func (c *Classes) Members(l *ir.Local) []*ir.Local {
	var res []*ir.Local
	for _, o := range c.members[c.root(l)] {
		if o != l {
			res = append(res, o)
		}
	}
	return res
}

// PtsBased injects, when a heap location is tainted, the same location on every other local of the base's alias
// class. The injected facts are active immediately.
type PtsBased struct {
	m       *taint.Manager
	classes *Classes
}

// NewPtsBased computes the alias classes of the program of m
func NewPtsBased(m *taint.Manager) *PtsBased {
	return &PtsBased{m: m, classes: NewClasses(m.Program)}
}

// Classes returns the alias classes the strategy uses
func (p *PtsBased) Classes() *Classes { return p.classes }

func (p *PtsBased) ComputeAliases(d1 abstraction.ID, stmt ir.Stmt, fact abstraction.ID) {
	fwd := p.m.ForwardSolver()
	ap := p.m.Arena.Get(fact).AccessPath()
	for _, other := range p.classes.Members(ap.Base()) {
		fwd.PropagateFrom(d1, stmt, p.m.Arena.Derive(fact, p.m.Paths.WithBase(ap, other), stmt))
	}
}

func (p *PtsBased) InjectCallingContext(*ir.Method, abstraction.ID, ir.Stmt, abstraction.ID, abstraction.ID) {}

func (p *PtsBased) MayAlias(_ ir.Stmt, a, b *ir.Local) bool { return p.classes.Same(a, b) }

// Lazy never injects aliases. Rules matching bases consult the alias classes instead, at every use; the manager
// propagates densely under this strategy so that every use is visited.
type Lazy struct {
	classes *Classes
}

// NewLazy computes the alias classes of the program of m
func NewLazy(m *taint.Manager) *Lazy {
	return &Lazy{classes: NewClasses(m.Program)}
}

func (l *Lazy) ComputeAliases(abstraction.ID, ir.Stmt, abstraction.ID) {}

func (l *Lazy) InjectCallingContext(*ir.Method, abstraction.ID, ir.Stmt, abstraction.ID, abstraction.ID) {}

func (l *Lazy) MayAlias(_ ir.Stmt, a, b *ir.Local) bool { return l.classes.Same(a, b) }
