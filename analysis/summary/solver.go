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
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/awslabs/sparseflow/analysis/sparse"
	"github.com/awslabs/sparseflow/internal/graphutil"
	"golang.org/x/sync/errgroup"
)

// ErrUnregistered is the value of the panic raised by a lookup on an entry that has no summaries
var ErrUnregistered = errors.New("summary lookup on an unregistered entry")

type entry struct {
	stmt ir.Stmt
	base *ir.Local
}

// Table holds the summaries of every entry of the program
type Table struct {
	graphs map[entry]*Graph
}

// Has returns true if the base has summaries after stmt
func (t *Table) Has(stmt ir.Stmt, base *ir.Local) bool {
	if t == nil {
		return false
	}
	_, ok := t.graphs[entry{stmt, base}]
	return ok
}

// Graph returns the summaries of base after stmt, nil if there are none
func (t *Table) Graph(stmt ir.Stmt, base *ir.Local) *Graph {
	return t.graphs[entry{stmt, base}]
}

// Lookup returns the summaries applying to a fact on base with the given fields, derived at stmt. It panics with
// an error wrapping ErrUnregistered if the entry has no summaries; callers check Has first.
func (t *Table) Lookup(stmt ir.Stmt, base *ir.Local, fields []*ir.Field) []Match {
	g, ok := t.graphs[entry{stmt, base}]
	if !ok {
		panic(fmt.Errorf("%w: %s after %s", ErrUnregistered, base, ir.StmtString(stmt)))
	}
	return g.Lookup(fields)
}

// NumEntries returns the number of summarized entries
func (t *Table) NumEntries() int {
	return len(t.graphs)
}

// NumPaths returns the total number of summaries
func (t *Table) NumPaths() int {
	n := 0
	for _, g := range t.graphs {
		n += g.Len()
	}
	return n
}

func (t *Table) sortedEntries() []entry {
	res := make([]entry, 0, len(t.graphs))
	for e := range t.graphs {
		res = append(res, e)
	}
	sort.Slice(res, func(i, j int) bool {
		mi, mj := res[i].stmt.Method().Name, res[j].stmt.Method().Name
		if mi != mj {
			return mi < mj
		}
		if res[i].stmt.Index() != res[j].stmt.Index() {
			return res[i].stmt.Index() < res[j].stmt.Index()
		}
		return res[i].base.Name < res[j].base.Name
	})
	return res
}

// Build computes the summaries of the entries of every method with a body: the parameters and the receiver at the
// start point, and the result of every call. Methods are submitted bottom-up in the call graph and solved in
// parallel; the solver of one method is sequential.
func Build(ctx context.Context, cfg *config.Config, logger *config.LogGroup, prog *ir.Program,
	dfg *sparse.Graph) (*Table, error) {
	start := time.Now()
	t := &Table{graphs: map[entry]*Graph{}}
	var mu sync.Mutex
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.NumThreads(runtime.NumCPU()))
	for _, scc := range graphutil.StronglyConnectedComponents(prog.Methods(), prog.CallGraphSuccessors) {
		for _, m := range scc {
			if !m.HasBody() {
				continue
			}
			m := m
			eg.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				graphs := newMethodSolver(m, dfg, cfg.AccessPathLength).solve()
				mu.Lock()
				defer mu.Unlock()
				for e, g := range graphs {
					t.graphs[e] = g
				}
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	logger.Infof("Built summaries: %d entries, %d paths (%.2f s)", t.NumEntries(), t.NumPaths(),
		time.Since(start).Seconds())
	if cfg.ReportSummaries {
		filename, err := t.Report(cfg.ReportsDir)
		if err != nil {
			return nil, fmt.Errorf("could not report summaries: %w", err)
		}
		logger.Infof("Summaries written to %s", filename)
	}
	return t, nil
}

// state is a worklist item of the solver of one method: the part of the entry fact starting with prefix is held by
// target before the statement at. When whole is set, target holds that part as a whole and the incoming fields past
// prefix are not appended. When exact is set, the state only stands for facts whose fields are exactly prefix.
type state struct {
	entry  entry
	prefix []*ir.Field
	at     ir.Stmt
	target AccessPath
	whole  bool
	exact  bool
}

func (st *state) key() string {
	return fmt.Sprintf("%p|%s|%d|%s|%t|%t", st.entry.base, AccessPath{Fields: st.prefix}, st.at.Index(), st.target,
		st.whole, st.exact)
}

type killSet = map[*ir.Field]bool

type methodSolver struct {
	method   *ir.Method
	dfg      *sparse.Graph
	maxLen   int
	graphs   map[entry]*Graph
	states   map[string]*state
	kills    map[string]killSet
	worklist []string
	strong   map[string]*Path
}

func newMethodSolver(m *ir.Method, dfg *sparse.Graph, maxLen int) *methodSolver {
	return &methodSolver{
		method: m,
		dfg:    dfg,
		maxLen: maxLen,
		graphs: map[entry]*Graph{},
		states: map[string]*state{},
		kills:  map[string]killSet{},
		strong: map[string]*Path{},
	}
}

func (ms *methodSolver) entries() []entry {
	var res []entry
	sp := ms.method.StartPoint()
	if ms.method.This != nil {
		res = append(res, entry{sp, ms.method.This})
	}
	for _, p := range ms.method.Params {
		if p != nil {
			res = append(res, entry{sp, p})
		}
	}
	prog := ms.method.Program()
	for _, s := range ms.method.Body {
		if prog.IsCallStmt(s) {
			if l := ir.DefinedLocal(s); l != nil {
				res = append(res, entry{s, l})
			}
		}
	}
	return res
}

func (ms *methodSolver) solve() map[entry]*Graph {
	for _, e := range ms.entries() {
		n := ms.dfg.Node(sparse.Forward, e.stmt, e.base)
		if n == nil {
			continue
		}
		ms.graphs[e] = NewGraph()
		for _, key := range n.Keys() {
			var prefix []*ir.Field
			if key != ir.BaseField {
				prefix = []*ir.Field{key}
			}
			for _, next := range n.Succs(key) {
				ms.push(&state{entry: e, prefix: prefix, at: next.Stmt, target: AccessPath{e.base, prefix}}, killSet{})
			}
		}
	}
	for len(ms.worklist) > 0 {
		k := ms.worklist[0]
		ms.worklist = ms.worklist[1:]
		ms.step(ms.states[k], ms.kills[k])
	}
	ms.placeStrongUpdates()
	return ms.graphs
}

// push adds a state to the worklist. A state already seen is visited again only if its kill set shrinks.
func (ms *methodSolver) push(st *state, kill killSet) {
	k := st.key()
	if old, seen := ms.kills[k]; seen {
		merged := killSet{}
		for f := range old {
			if kill[f] {
				merged[f] = true
			}
		}
		if len(merged) == len(old) {
			return
		}
		kill = merged
	}
	ms.states[k] = st
	ms.kills[k] = kill
	ms.worklist = append(ms.worklist, k)
}

// advance pushes st past the statement it is at, along the data-flow graph of its target
func (ms *methodSolver) advance(st *state, kill killSet) {
	key := ir.BaseField
	if !st.whole {
		key = st.target.FirstField()
	}
	next, ok := ms.dfg.Next(sparse.Forward, st.at, st.target.Base, key)
	if !ok {
		return
	}
	for _, s := range next {
		nst := *st
		nst.at = s
		ms.push(&nst, kill)
	}
}

// derive starts a new state on a local defined at the statement st is at
func (ms *methodSolver) derive(st *state, kill killSet, target AccessPath, prefix []*ir.Field, whole, exact bool) {
	if exact {
		kill = killSet{}
	}
	ms.advance(&state{entry: st.entry, prefix: prefix, at: st.at, target: target, whole: whole, exact: exact}, kill)
}

func (ms *methodSolver) record(st *state, kill killSet) {
	kind := Kill
	if st.exact {
		kind = Ordinary
	}
	var killed []*ir.Field
	for f := range kill {
		killed = append(killed, f)
	}
	p := NewPath(st.entry.stmt, AccessPath{st.entry.base, st.prefix}, st.at, st.target, kind, killed...)
	p.AppendRest = !st.whole
	ms.graphs[st.entry].Add(p)
}

// step processes one state at its statement. Copies and field loads into locals are followed; everything else that
// reads the target ends the state with a summary to the statement.
func (ms *methodSolver) step(st *state, kill killSet) {
	s := st.at
	prog := ms.method.Program()
	if prog.IsCallStmt(s) || prog.IsExitStmt(s) {
		ms.record(st, kill)
		return
	}
	a, ok := s.(*ir.AssignStmt)
	if !ok {
		switch s.(type) {
		case *ir.NopStmt, *ir.IdentityStmt:
			ms.advance(st, kill)
		default:
			ms.record(st, kill)
		}
		return
	}

	b := st.target.Base
	left, leftIsLocal := a.Left.(*ir.Local)
	switch r := a.Right.(type) {
	case *ir.Local:
		if r == b {
			if !leftIsLocal {
				ms.record(st, kill)
				return
			}
			ms.derive(st, kill, AccessPath{left, st.target.Fields}, st.prefix, st.whole, st.exact)
		}
	case *ir.InstanceFieldRef:
		if r.Base == b {
			if !leftIsLocal {
				ms.record(st, kill)
				return
			}
			ms.load(st, kill, left, r.Field)
		}
	default:
		if reads(a.Right, b) {
			ms.record(st, kill)
			return
		}
	}

	switch l := a.Left.(type) {
	case *ir.Local:
		if l == b {
			return
		}
	case *ir.InstanceFieldRef:
		if l.Base == b {
			var cont bool
			if kill, cont = ms.fieldWrite(st, kill, l.Field); !cont {
				return
			}
		}
	case *ir.ArrayRef:
		if l.Base == b {
			ms.record(st, kill)
			return
		}
	}
	ms.advance(st, kill)
}

func reads(v ir.Value, b *ir.Local) bool {
	for _, t := range ir.BaseAndField(v, true) {
		if t.Base == b {
			return true
		}
	}
	return false
}

// load handles x = b.f where b is the target base
func (ms *methodSolver) load(st *state, kill killSet, x *ir.Local, f *ir.Field) {
	t := st.target
	switch {
	case st.whole:
		ms.derive(st, kill, AccessPath{Base: x}, st.prefix, true, st.exact)
	case len(t.Fields) > 0:
		if t.Fields[0] == f {
			ms.derive(st, kill, AccessPath{x, t.Fields[1:]}, st.prefix, false, false)
		}
	case kill[f]:
	default:
		// facts continuing with f now live in x; facts of exactly the prefix carry f inside them
		if len(st.prefix) < ms.maxLen {
			prefix := append(append([]*ir.Field{}, st.prefix...), f)
			ms.derive(st, killSet{}, AccessPath{Base: x}, prefix, false, false)
			ms.derive(st, nil, AccessPath{Base: x}, st.prefix, true, true)
		} else {
			ms.derive(st, kill, AccessPath{Base: x}, st.prefix, true, false)
		}
	}
}

// fieldWrite handles b.h = ... where b is the target base. It returns the kill set of the state past the statement,
// and false if the state ends there.
func (ms *methodSolver) fieldWrite(st *state, kill killSet, h *ir.Field) (killSet, bool) {
	t := st.target
	if st.whole {
		return kill, true
	}
	if len(t.Fields) > 0 {
		if t.Fields[0] != h {
			return kill, true
		}
		ms.markStrongUpdate(st, st.prefix, t)
		return kill, false
	}
	if kill[h] {
		return kill, true
	}
	if len(st.prefix) < ms.maxLen {
		ms.markStrongUpdate(st, append(append([]*ir.Field{}, st.prefix...), h), t.Append(h))
	}
	res := make(killSet, len(kill)+1)
	for f := range kill {
		res[f] = true
	}
	res[h] = true
	return res, true
}

func (ms *methodSolver) markStrongUpdate(st *state, prefix []*ir.Field, target AccessPath) {
	p := NewPath(st.entry.stmt, AccessPath{st.entry.base, prefix}, st.at, target, StrongUpdate)
	ms.strong[fmt.Sprintf("%p|%s", st.entry.base, p.key())] = p
}

// placeStrongUpdates adds the strong-update summaries, deepest first. A strong update that would shadow a deeper
// summary is added as a kill summary with an empty kill set instead.
func (ms *methodSolver) placeStrongUpdates() {
	paths := make([]*Path, 0, len(ms.strong))
	for _, p := range ms.strong {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		if len(paths[i].Source.Fields) != len(paths[j].Source.Fields) {
			return len(paths[i].Source.Fields) > len(paths[j].Source.Fields)
		}
		return paths[i].key() < paths[j].key()
	})
	for _, p := range paths {
		g := ms.graphs[entry{p.Src, p.Source.Base}]
		if g.HasDeeper(p.Source.Fields) {
			p = NewPath(p.Src, p.Source, p.Target, p.TargetPath, Kill)
		}
		g.Add(p)
	}
}
