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

package summary

import (
	"sort"

	"github.com/awslabs/sparseflow/analysis/ir"
)

type node struct {
	ordinary map[string]*Path
	strong   map[string]*Path
	kill     map[string]*Path
	children map[*ir.Field]*node
}

func (n *node) empty() bool {
	return len(n.ordinary) == 0 && len(n.strong) == 0 && len(n.kill) == 0
}

// Graph is the trie of the summaries of one entry, keyed by the fields of the incoming fact
type Graph struct {
	root *node
	size int
}

// NewGraph returns an empty summary graph
func NewGraph() *Graph {
	return &Graph{root: &node{}}
}

// Len returns the number of summaries in the graph
func (g *Graph) Len() int {
	return g.size
}

func (g *Graph) find(fields []*ir.Field, create bool) *node {
	n := g.root
	for _, f := range fields {
		c, ok := n.children[f]
		if !ok {
			if !create {
				return nil
			}
			if n.children == nil {
				n.children = map[*ir.Field]*node{}
			}
			c = &node{}
			n.children[f] = c
		}
		n = c
	}
	return n
}

// Add records p at the node of its source fields and returns false if the graph did not change.
//
// Adding a kill summary that is already present with another kill set keeps the intersection of the two kill sets.
// Each field killed by only one of them is recorded as an ordinary summary one level deeper, so a fact continuing
// with that field still matches a summary specific to it. The result does not depend on the order of the additions.
func (g *Graph) Add(p *Path) bool {
	return g.addAt(g.find(p.Source.Fields, true), p)
}

func (g *Graph) addAt(n *node, p *Path) bool {
	k := p.key()
	switch p.Kind {
	case Ordinary:
		return g.insert(&n.ordinary, k, p)
	case StrongUpdate:
		return g.insert(&n.strong, k, p)
	}
	old, ok := n.kill[k]
	if !ok {
		return g.insert(&n.kill, k, p)
	}
	changed := false
	merged := map[*ir.Field]bool{}
	for f := range old.kill {
		if p.kill[f] {
			merged[f] = true
		} else {
			changed = g.addAt(g.find(old.branch(f).Source.Fields, true), old.branch(f)) || changed
		}
	}
	for f := range p.kill {
		if !old.kill[f] {
			changed = g.addAt(g.find(p.branch(f).Source.Fields, true), p.branch(f)) || changed
		}
	}
	if len(merged) != len(old.kill) {
		n.kill[k] = old.withKill(merged)
		changed = true
	}
	return changed
}

func (g *Graph) insert(m *map[string]*Path, k string, p *Path) bool {
	if *m == nil {
		*m = map[string]*Path{}
	}
	if _, ok := (*m)[k]; ok {
		return false
	}
	(*m)[k] = p
	g.size++
	return true
}

// HasDeeper returns true if a node strictly below fields holds a summary
func (g *Graph) HasDeeper(fields []*ir.Field) bool {
	n := g.find(fields, false)
	if n == nil {
		return false
	}
	var visit func(n *node) bool
	visit = func(n *node) bool {
		for _, c := range n.children {
			if !c.empty() || visit(c) {
				return true
			}
		}
		return false
	}
	return visit(n)
}

// Match is a summary applying to a fact. Consumed is the number of fields of the fact matched by the source of the
// summary.
type Match struct {
	Path     *Path
	Consumed int
}

// Target returns the access path holding before the summary target for a fact with the given fields. The second
// result is true when the access path stands for the whole value rather than for exactly these fields.
func (m Match) Target(fields []*ir.Field) (AccessPath, bool) {
	if !m.Path.AppendRest {
		return m.Path.TargetPath, true
	}
	return m.Path.TargetPath.Append(fields[m.Consumed:]...), false
}

// Lookup returns the summaries applying to a fact with the given fields, ordered by depth
func (g *Graph) Lookup(fields []*ir.Field) []Match {
	var res []Match
	add := func(m map[string]*Path, depth int) {
		for _, p := range m {
			res = append(res, Match{Path: p, Consumed: depth})
		}
	}
	n := g.root
	for depth := 0; n != nil; depth++ {
		exact := depth == len(fields)
		if exact {
			add(n.ordinary, depth)
		}
		for _, p := range n.kill {
			if exact || !p.kill[fields[depth]] {
				res = append(res, Match{Path: p, Consumed: depth})
			}
		}
		if len(n.strong) > 0 {
			add(n.strong, depth)
			break
		}
		if exact {
			break
		}
		n = n.children[fields[depth]]
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Consumed != res[j].Consumed {
			return res[i].Consumed < res[j].Consumed
		}
		return res[i].Path.key() < res[j].Path.key()
	})
	return res
}

// Paths returns all the summaries of the graph, in a deterministic order
func (g *Graph) Paths() []*Path {
	var res []*Path
	var visit func(n *node)
	visit = func(n *node) {
		for _, m := range []map[string]*Path{n.ordinary, n.strong, n.kill} {
			for _, p := range m {
				res = append(res, p)
			}
		}
		for _, c := range n.children {
			visit(c)
		}
	}
	visit(g.root)
	sort.Slice(res, func(i, j int) bool { return res[i].String() < res[j].String() })
	return res
}
