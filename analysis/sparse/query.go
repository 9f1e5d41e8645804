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

package sparse

import (
	"sort"

	"github.com/awslabs/sparseflow/analysis/ir"
)

// Graph is the sparse data-flow graph of a program, in both directions. A Graph is only usable once returned by
// Build; the zero value and nil panic with ErrNotInitialized on every query.
type Graph struct {
	built         bool
	implicitFlows bool
	nodes         [2]map[EntryKey]*Node
	primary       [2]map[stmtBase]*Node
	blocks        map[*ir.Method]*methodBlocks
	edges         int
}

func (g *Graph) check() {
	if g == nil || !g.built {
		panic(ErrNotInitialized)
	}
}

// Forward returns the forward node of value at stmt, or nil if stmt does not touch value
func (g *Graph) Forward(value ir.Value, stmt ir.Stmt) *Node {
	return g.find(Forward, value, stmt)
}

// Backward returns the backward node of value at stmt, or nil if stmt does not touch value
func (g *Graph) Backward(value ir.Value, stmt ir.Stmt) *Node {
	return g.find(Backward, value, stmt)
}

func (g *Graph) find(dir Direction, value ir.Value, stmt ir.Stmt) *Node {
	g.check()
	touches := ir.BaseAndField(value, g.implicitFlows)
	if len(touches) == 0 {
		return nil
	}
	t := touches[0]
	for _, k := range []EntryKey{
		{Stmt: stmt, Base: t.Base, Field: t.Field, IsOriginal: true, IsLeft: true},
		{Stmt: stmt, Base: t.Base, Field: t.Field, IsOriginal: true},
		{Stmt: stmt, Base: t.Base, Field: ir.BaseField},
	} {
		if n, ok := g.nodes[dir][k]; ok {
			return n
		}
	}
	return nil
}

// Lookup returns the node of an entry key
func (g *Graph) Lookup(dir Direction, key EntryKey) *Node {
	g.check()
	return g.nodes[dir][key]
}

// Node returns the node of the base at stmt, or nil if stmt does not touch base
func (g *Graph) Node(dir Direction, stmt ir.Stmt, base *ir.Local) *Node {
	g.check()
	return g.primary[dir][stmtBase{stmt, base}]
}

// Nodes returns the nodes of every base touched by stmt, sorted by base name
func (g *Graph) Nodes(dir Direction, stmt ir.Stmt) []*Node {
	g.check()
	var res []*Node
	for sb, n := range g.primary[dir] {
		if sb.stmt == stmt {
			res = append(res, n)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Base.Name < res[j].Base.Name })
	return res
}

// Next returns the statements a fact based on base whose first field is field (ir.BaseField for none) must visit
// after being derived at stmt. The second result is false when stmt does not touch base; the caller must then fall
// back to the control-flow graph.
func (g *Graph) Next(dir Direction, stmt ir.Stmt, base *ir.Local, field *ir.Field) ([]ir.Stmt, bool) {
	n := g.Node(dir, stmt, base)
	if n == nil {
		return nil, false
	}
	succs := n.Succs(field)
	res := make([]ir.Stmt, len(succs))
	for i, s := range succs {
		res[i] = s.Stmt
	}
	return res, true
}

// Order returns true if u1 may execute before u2. Statements of different methods are unordered.
func (g *Graph) Order(u1, u2 ir.Stmt) bool {
	g.check()
	if u1 == nil || u2 == nil || u1.Method() != u2.Method() {
		return false
	}
	mb, ok := g.blocks[u1.Method()]
	if !ok {
		return false
	}
	return mb.order(u1.Index(), u2.Index())
}

// NumNodes returns the number of nodes in one direction
func (g *Graph) NumNodes(dir Direction) int {
	g.check()
	return len(g.nodes[dir])
}

// NumEdges returns the number of edges in both directions
func (g *Graph) NumEdges() int {
	g.check()
	return g.edges
}
