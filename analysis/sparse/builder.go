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
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/analysis/ir"
	"golang.org/x/sync/errgroup"
)

type stmtBase struct {
	stmt ir.Stmt
	base *ir.Local
}

// methodGraph is the part of the graph built for one method
type methodGraph struct {
	blocks  *methodBlocks
	nodes   [2]map[EntryKey]*Node
	primary [2]map[stmtBase]*Node
	edges   int
}

// Build builds the sparse data-flow graph of every method of the program, in parallel across methods
func Build(ctx context.Context, cfg *config.Config, logger *config.LogGroup, prog *ir.Program) (*Graph, error) {
	start := time.Now()
	g := &Graph{
		implicitFlows: cfg.ImplicitFlows,
		blocks:        map[*ir.Method]*methodBlocks{},
	}
	for d := range g.nodes {
		g.nodes[d] = map[EntryKey]*Node{}
		g.primary[d] = map[stmtBase]*Node{}
	}

	var mu sync.Mutex
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.NumThreads(runtime.NumCPU()))
	for _, m := range prog.Methods() {
		if !m.HasBody() {
			continue
		}
		m := m
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mg := buildMethod(m, cfg.ImplicitFlows)
			mu.Lock()
			defer mu.Unlock()
			g.merge(m, mg)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	g.built = true
	logger.Infof("Built sparse data-flow graph: %d methods, %d nodes, %d edges (%.2f s)",
		len(g.blocks), len(g.nodes[Forward])+len(g.nodes[Backward]), g.edges, time.Since(start).Seconds())
	return g, nil
}

func (g *Graph) merge(m *ir.Method, mg *methodGraph) {
	g.blocks[m] = mg.blocks
	for d := range mg.nodes {
		for k, n := range mg.nodes[d] {
			g.nodes[d][k] = n
		}
		for k, n := range mg.primary[d] {
			g.primary[d][k] = n
		}
	}
	g.edges += mg.edges
}

// buildMethod runs the construction for one method. It is sequential.
func buildMethod(m *ir.Method, implicitFlows bool) *methodGraph {
	blocks := newMethodBlocks(m)
	sets := classify(m, blocks, implicitFlows)
	mg := &methodGraph{blocks: blocks}
	for d := range mg.nodes {
		mg.nodes[d] = map[EntryKey]*Node{}
		mg.primary[d] = map[stmtBase]*Node{}
	}

	bases := make([]*ir.Local, 0, len(sets))
	for base := range sets {
		bases = append(bases, base)
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i].Name < bases[j].Name })

	for _, dir := range []Direction{Forward, Backward} {
		for _, base := range bases {
			set := sets[base]
			for _, bi := range set.byStmt {
				mg.materialize(dir, bi)
			}
		}
		for _, base := range bases {
			set := sets[base]
			for _, bi := range set.byStmt {
				n := mg.primary[dir][stmtBase{bi.Stmt, base}]
				for _, key := range append([]*ir.Field{ir.BaseField}, set.fields...) {
					var succs []*Node
					for _, next := range set.next(blocks, bi, key, dir) {
						succs = append(succs, mg.primary[dir][stmtBase{next.Stmt, base}])
					}
					n.shared.succs[key] = succs
					mg.edges += len(succs)
				}
			}
		}
	}
	return mg
}

// materialize creates the nodes of the touches of bi in one direction. The first node created is the primary node
// of the statement and base.
func (mg *methodGraph) materialize(dir Direction, bi *BaseInfoStmt) {
	shared := &nodeInfo{touch: bi, succs: map[*ir.Field][]*Node{}}
	add := func(field *ir.Field, original, left bool) {
		key := EntryKey{Stmt: bi.Stmt, Base: bi.Base, Field: field, IsOriginal: original, IsLeft: left}
		if _, ok := mg.nodes[dir][key]; ok {
			return
		}
		n := &Node{Stmt: bi.Stmt, Base: bi.Base, Field: field, IsLeft: left, Dir: dir, shared: shared}
		if original {
			n.Value = bi.Base
		}
		mg.nodes[dir][key] = n
		sb := stmtBase{bi.Stmt, bi.Base}
		if _, ok := mg.primary[dir][sb]; !ok {
			mg.primary[dir][sb] = n
		}
	}
	if bi.LeftField != nil {
		add(bi.LeftField, true, true)
	}
	for _, f := range bi.RightFields {
		add(f, true, false)
	}
	for _, f := range bi.ArgsFields {
		add(f, true, false)
	}
	if bi.Implicit {
		add(ir.BaseField, false, false)
	}
}

// next returns the first statements touching the base in a way relevant to key, along every control-flow path
// leaving bi in the given direction. The walk stops at the first relevant statement of each path.
func (set *BaseInfoStmtSet) next(blocks *methodBlocks, bi *BaseInfoStmt, key *ir.Field, dir Direction) []*BaseInfoStmt {
	b := blocks.blockOf[bi.Stmt.Index()]
	chain := set.byBlock[b]
	if dir == Forward {
		for j := bi.pos + 1; j < len(chain); j++ {
			if chain[j].Touches(key) {
				return []*BaseInfoStmt{chain[j]}
			}
		}
	} else {
		for j := bi.pos - 1; j >= 0; j-- {
			if chain[j].Touches(key) {
				return []*BaseInfoStmt{chain[j]}
			}
		}
	}

	neighbors := func(id int) []int {
		if dir == Forward {
			return blocks.blocks[id].succs
		}
		return blocks.blocks[id].preds
	}
	var res []*BaseInfoStmt
	visited := map[int]bool{}
	stack := append([]int(nil), neighbors(b)...)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		if first := firstTouch(set.byBlock[cur], key, dir); first != nil {
			res = append(res, first)
		} else {
			stack = append(stack, neighbors(cur)...)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Stmt.Index() < res[j].Stmt.Index() })
	return res
}

func firstTouch(chain []*BaseInfoStmt, key *ir.Field, dir Direction) *BaseInfoStmt {
	if dir == Forward {
		for _, bi := range chain {
			if bi.Touches(key) {
				return bi
			}
		}
		return nil
	}
	for j := len(chain) - 1; j >= 0; j-- {
		if chain[j].Touches(key) {
			return chain[j]
		}
	}
	return nil
}
