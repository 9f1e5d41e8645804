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

package graphutil

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/traverse"
)

// IndexGraph is a directed graph over integer node ids, used for block graphs and call graphs whose nodes have been
// numbered by their owner. It implements the methods to satisfy yourbasic's graph.Iterator and Gonum's graph.Graph.
// Unlike Gonum's simple graphs, self edges are allowed: a block looping on itself is a self edge.
type IndexGraph struct {
	// The order of the graph
	order int

	// Keys are all the node IDs, sorted
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge between x and y
	Edges map[int64]map[int64]bool
}

// NewIndexGraph returns the graph with nodes 0..order-1 and the edges given by successors
func NewIndexGraph(order int, successors func(int) []int) IndexGraph {
	edges := make(map[int64]map[int64]bool, order)
	keys := make([]int64, order)
	for i := 0; i < order; i++ {
		keys[i] = int64(i)
		out := map[int64]bool{}
		for _, j := range successors(i) {
			out[int64(j)] = true
		}
		edges[int64(i)] = out
	}
	return IndexGraph{order: order, Keys: keys, Edges: edges}
}

// Subgraph returns a new graph that is the original graph with only the nodes in include. Only the edges that have
// both the origin and destination nodes in the include nodes are kept in the resulting graph.
// The subgraph's order is the same as in origin, meaning that node indices will stay consistent across subgraphs.
func Subgraph(original IndexGraph, include []int64) IndexGraph {
	in := make(map[int64]bool, len(include))
	keys := make([]int64, len(include))
	for j, i := range include {
		keys[j] = i
		in[i] = true
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	edges := make(map[int64]map[int64]bool, len(include))
	for _, i := range include {
		edges[i] = map[int64]bool{}
		for e := range original.Edges[i] {
			if in[e] {
				edges[i][e] = true
			}
		}
	}
	return IndexGraph{order: original.order, Keys: keys, Edges: edges}
}

// Order implements the order of the graph.Iterator interface for the IndexGraph
func (g IndexGraph) Order() int {
	return g.order
}

// Visit implements the graph.Iterator interface for the IndexGraph
func (g IndexGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	for _, w := range g.sortedSuccs(int64(v)) {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

func (g IndexGraph) sortedSuccs(v int64) []int64 {
	out := make([]int64, 0, len(g.Edges[v]))
	for w := range g.Edges[v] {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Reachability returns, for every node, the set of nodes reachable from it by a path of at least one edge. A node
// is in its own set only if it lies on a cycle.
func (g IndexGraph) Reachability() []map[int]bool {
	reach := make([]map[int]bool, g.order)
	for _, k := range g.Keys {
		start := k
		r := map[int]bool{}
		walker := traverse.DepthFirst{
			Traverse: func(e graph.Edge) bool {
				r[int(e.To().ID())] = true
				return true
			},
		}
		walker.Walk(g, INode(start), nil)
		reach[start] = r
	}
	return reach
}

// *************** Graph interface implementation **********************

// Node implements the Graph interface
func (g IndexGraph) Node(id int64) graph.Node {
	if _, ok := g.Edges[id]; !ok {
		return nil
	}
	return INode(id)
}

// Nodes returns the set of nodes in the graph
func (g IndexGraph) Nodes() graph.Nodes {
	return &NodeSet{ids: g.Keys, cur: -1}
}

// From returns the set of nodes reachable from the id
func (g IndexGraph) From(id int64) graph.Nodes {
	return &NodeSet{ids: g.sortedSuccs(id), cur: -1}
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers
func (g IndexGraph) HasEdgeBetween(xid, yid int64) bool {
	return g.Edges[xid][yid] || g.Edges[yid][xid]
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (g IndexGraph) Edge(uid, vid int64) graph.Edge {
	if g.Edges[uid][vid] {
		return IEdge{from: INode(uid), to: INode(vid)}
	}
	return nil
}

// *************** Nodes implementation **********************

// INode is a node of an IndexGraph
type INode int64

// ID returns the id of the node
func (n INode) ID() int64 {
	return int64(n)
}

// NodeSet implements the graph.Nodes interface, an iterator over a set of nodes
type NodeSet struct {
	// ids is the set of node ids in the iterator
	ids []int64

	// cur is the current index of the iterator; -1 before the first call to Next
	cur int
}

// Next moves the current node to the next, and returns true if such a node exists. Otherwise, returns false
// and the current node has not changed.
func (ns *NodeSet) Next() bool {
	if ns.cur < len(ns.ids)-1 {
		ns.cur++
		return true
	}
	return false
}

// Len returns the number of nodes remaining in the iterator
func (ns *NodeSet) Len() int {
	return len(ns.ids) - ns.cur - 1
}

// Reset resets the id of the current node in the set
func (ns *NodeSet) Reset() {
	ns.cur = -1
}

// Node return the current node in the set
func (ns *NodeSet) Node() graph.Node {
	if ns.cur < 0 || ns.cur >= len(ns.ids) {
		return nil
	}
	return INode(ns.ids[ns.cur])
}

// *************** Edge implementation **********************

// IEdge implements the graph.Edge interface
type IEdge struct {
	from INode
	to   INode
}

// From returns the origin of the edge
func (e IEdge) From() graph.Node {
	return e.from
}

// To returns the destination of the edge
func (e IEdge) To() graph.Node {
	return e.to
}

// ReversedEdge returns a new value representing the reversed edge
func (e IEdge) ReversedEdge() graph.Edge {
	return IEdge{from: e.to, to: e.from}
}
