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

	"github.com/yourbasic/graph"
)

// ElementaryCycles finds all elementary cycles in the graph, each starting and ending at its smallest node.
// This uses Donald B. Johnson's algorithm presented in
// "Finding All The Elementary Circuits of a Directed Graph", 1975
func (g IndexGraph) ElementaryCycles() [][]int64 {
	s := &circuitState{}
	start := 0
	for start < len(g.Keys) {
		sub := Subgraph(g, g.Keys[start:])
		least := -1
		for _, component := range graph.StrongComponents(sub) {
			if !isCyclic(sub, component) {
				continue
			}
			sort.Ints(component)
			if least < 0 || component[0] < least {
				least = component[0]
			}
		}
		if least < 0 {
			break
		}
		s.reset()
		s.circuit(int64(least), int64(least), sub)
		start = least + 1
	}
	return s.cycles
}

// RecursiveComponents returns the strongly connected components of the graph that contain a cycle, i.e. the sets of
// mutually recursive functions when g is a call graph. Nodes inside each component are sorted.
func (g IndexGraph) RecursiveComponents() [][]int {
	var res [][]int
	for _, component := range graph.StrongComponents(g) {
		if isCyclic(g, component) {
			sort.Ints(component)
			res = append(res, component)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i][0] < res[j][0] })
	return res
}

// isCyclic returns true if the component (from yourbasic's StrongComponents) contains a cycle. Components of
// a single node are cyclic only when the node has a self edge.
func isCyclic(g IndexGraph, component []int) bool {
	if len(component) >= 2 {
		return true
	}
	if len(component) == 1 {
		return g.Edges[int64(component[0])][int64(component[0])]
	}
	return false
}

type circuitState struct {
	blocked map[int64]bool
	blist   map[int64]map[int64]bool
	stack   []int64
	cycles  [][]int64
}

func (s *circuitState) reset() {
	s.stack = []int64{}
	s.blocked = map[int64]bool{}
	s.blist = map[int64]map[int64]bool{}
}

func (s *circuitState) unblock(u int64) {
	s.blocked[u] = false
	for w := range s.blist[u] {
		delete(s.blist[u], w)
		if s.blocked[w] {
			s.unblock(w)
		}
	}
}

func (s *circuitState) circuit(v int64, start int64, g IndexGraph) bool {
	found := false
	s.stack = append(s.stack, v)
	s.blocked[v] = true
	for _, w := range g.sortedSuccs(v) {
		if w == start {
			cycle := make([]int64, len(s.stack), len(s.stack)+1)
			copy(cycle, s.stack)
			s.cycles = append(s.cycles, append(cycle, w))
			found = true
		} else if !s.blocked[w] {
			if s.circuit(w, start, g) {
				found = true
			}
		}
	}

	if found {
		s.unblock(v)
	} else {
		for w := range g.Edges[v] {
			if s.blist[w] == nil {
				s.blist[w] = map[int64]bool{}
			}
			s.blist[w][v] = true
		}
	}
	s.stack = s.stack[:len(s.stack)-1]
	return found
}
