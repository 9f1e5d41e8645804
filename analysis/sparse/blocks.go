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
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/awslabs/sparseflow/internal/graphutil"
)

// block is a maximal sequence of statements with a single entry and a single exit
type block struct {
	id    int
	first int
	last  int
	succs []int
	preds []int
}

// methodBlocks is the basic-block decomposition of a method, with block reachability
type methodBlocks struct {
	method  *ir.Method
	blocks  []*block
	blockOf []int
	reach   []map[int]bool
}

// isLeader returns true if the statement at index i starts a basic block: the entry, join points, jump targets,
// statements following a branch and trap handlers.
func isLeader(m *ir.Method, i int) bool {
	if i == 0 || m.IsHandler(i) {
		return true
	}
	preds := m.PredIndices(i)
	if len(preds) != 1 || preds[0] != i-1 {
		return true
	}
	return len(m.SuccIndices(i-1)) != 1
}

func newMethodBlocks(m *ir.Method) *methodBlocks {
	n := len(m.Body)
	mb := &methodBlocks{method: m, blockOf: make([]int, n)}
	for i := 0; i < n; i++ {
		if isLeader(m, i) {
			mb.blocks = append(mb.blocks, &block{id: len(mb.blocks), first: i})
		}
		cur := mb.blocks[len(mb.blocks)-1]
		cur.last = i
		mb.blockOf[i] = cur.id
	}
	for _, b := range mb.blocks {
		for _, j := range m.SuccIndices(b.last) {
			target := mb.blockOf[j]
			b.succs = append(b.succs, target)
			mb.blocks[target].preds = append(mb.blocks[target].preds, b.id)
		}
	}
	g := graphutil.NewIndexGraph(len(mb.blocks), func(i int) []int { return mb.blocks[i].succs })
	mb.reach = g.Reachability()
	return mb
}

// order returns true if the statement at index i may execute before the statement at index j
func (mb *methodBlocks) order(i, j int) bool {
	bi, bj := mb.blockOf[i], mb.blockOf[j]
	if bi == bj {
		return i < j || mb.reach[bi][bi]
	}
	return mb.reach[bi][bj]
}
