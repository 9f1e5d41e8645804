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

package taint_test

import (
	"sync"
	"testing"

	"github.com/awslabs/sparseflow/analysis/abstraction"
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/awslabs/sparseflow/analysis/taint"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRule adds a fixed fact in normal flow and sets the given flags
type fixedRule struct {
	name  string
	add   abstraction.ID
	flags taint.Flags
	calls *[]string
}

func (r *fixedRule) Name() string { return r.name }

func (r *fixedRule) PropagateNormalFlow(_, _ abstraction.ID, _ ir.Stmt, flags *taint.Flags) []abstraction.ID {
	*r.calls = append(*r.calls, r.name)
	flags.KillSource = flags.KillSource || r.flags.KillSource
	flags.KillAll = flags.KillAll || r.flags.KillAll
	return []abstraction.ID{r.add}
}

// callOnlyRule only implements the call flow
type callOnlyRule struct{}

func (callOnlyRule) Name() string { return "call-only" }

func (callOnlyRule) PropagateCallFlow(_, source abstraction.ID, _ ir.Stmt, _ *ir.Method,
	_ *taint.Flags) []abstraction.ID {
	return []abstraction.ID{source}
}

func TestRuleChainOrderAndFlags(t *testing.T) {
	var calls []string
	chain := taint.NewRuleChain(
		&fixedRule{name: "a", add: 1, calls: &calls},
		callOnlyRule{},
		&fixedRule{name: "b", add: 2, flags: taint.Flags{KillSource: true}, calls: &calls},
	)
	res, flags := chain.NormalFlow(0, 5, nil)
	assert.Equal(t, []abstraction.ID{1, 2}, res)
	assert.True(t, flags.KillSource)
	assert.False(t, flags.KillAll)
	assert.Equal(t, []string{"a", "b"}, calls)

	res, _ = chain.CallFlow(0, 5, nil, nil)
	assert.Equal(t, []abstraction.ID{5}, res)
	res, _ = chain.CallToReturnFlow(0, 5, nil)
	assert.Empty(t, res)
}

func TestRuleChainKillAllStops(t *testing.T) {
	var calls []string
	chain := taint.NewRuleChain(
		&fixedRule{name: "a", add: 1, calls: &calls},
		&fixedRule{name: "kill", add: 2, flags: taint.Flags{KillAll: true}, calls: &calls},
		&fixedRule{name: "c", add: 3, calls: &calls},
	)
	res, flags := chain.NormalFlow(0, 5, nil)
	assert.Nil(t, res)
	assert.True(t, flags.KillAll)
	assert.Equal(t, []string{"a", "kill"}, calls)
}

func TestDefaultRuleNames(t *testing.T) {
	var names []string
	for _, c := range taint.DefaultRules() {
		names = append(names, c(nil).Name())
	}
	want := []string{"source", "sink", "array", "strong-update", "assignment", "static", "call-return", "wrapper"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("rule order mismatch (-want +got):\n%s", diff)
	}
}

func TestMethodSourceSinkManager(t *testing.T) {
	b := ir.NewBuilder()
	main := b.Method("main")
	x, y, o := main.Local("x"), main.Local("y"), main.Local("o")
	src := main.Assign(x, main.Call("source"))
	discarded := main.Invoke("source")
	sinkArg := main.Invoke("sink", y)
	sinkRecv := main.InvokeOn(o, "sink")
	_, err := b.Build()
	require.NoError(t, err)

	ssm := taint.NewMethodSourceSinkManager([]string{"source"}, []string{"sink"})
	info := ssm.SourceInfo(src)
	require.NotNil(t, info)
	assert.Equal(t, []ir.Value{x}, info.Values)
	assert.Equal(t, "source", info.UserData)
	assert.Nil(t, ssm.SourceInfo(discarded))
	assert.Nil(t, ssm.SourceInfo(sinkArg))

	paths := abstraction.NewFactory(5)
	assert.True(t, ssm.IsSink(sinkArg, paths.Local(y)))
	assert.False(t, ssm.IsSink(sinkArg, paths.Local(x)))
	assert.True(t, ssm.IsSink(sinkRecv, paths.Local(o)))
	assert.False(t, ssm.IsSink(src, paths.Local(x)))
}

func resultFixture(t *testing.T) (*abstraction.Factory, *abstraction.Arena, ir.Stmt, ir.Stmt, *ir.Local) {
	b := ir.NewBuilder()
	main := b.Method("main")
	x := main.Local("x")
	src := main.Assign(x, main.Call("source"))
	sink := main.Invoke("sink", x)
	_, err := b.Build()
	require.NoError(t, err)
	paths := abstraction.NewFactory(5)
	return paths, abstraction.NewArena(paths.Zero()), src, sink, x
}

func TestResultSetDeduplicates(t *testing.T) {
	paths, arena, src, sink, x := resultFixture(t)
	sc := &abstraction.SourceContext{Stmt: src, AccessPath: paths.Local(x)}
	fact := arena.Source(sc, src)
	field := arena.Derive(fact, paths.Create(x, []*ir.Field{{Name: "f"}}, false, abstraction.NoArray), src)

	rs := taint.NewResultSet()
	var mu sync.Mutex
	var reported []*taint.Result
	rs.OnNewResult(func(r *taint.Result) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, r)
	})
	assert.True(t, rs.Add(arena, sink, fact))
	assert.False(t, rs.Add(arena, sink, fact))
	assert.False(t, rs.Add(arena, sink, field))
	assert.Equal(t, 1, rs.Len())
	require.Len(t, reported, 1)
	assert.Equal(t, []abstraction.ID{fact}, reported[0].Facts)
	assert.Equal(t, []abstraction.ID{fact, field}, rs.Results()[0].Facts)

	rs.RemoveEntailed(arena)
	assert.Equal(t, []abstraction.ID{fact}, rs.Results()[0].Facts)
	assert.Equal(t, "x.*", rs.Results()[0].SinkPath.String())
}

func TestResultsOrderedBySink(t *testing.T) {
	paths, arena, src, sink, x := resultFixture(t)
	other := &abstraction.SourceContext{Stmt: sink, AccessPath: paths.Local(x)}
	first := &abstraction.SourceContext{Stmt: src, AccessPath: paths.Local(x)}
	rs := taint.NewResultSet()
	rs.Add(arena, sink, arena.Source(other, sink))
	rs.Add(arena, src, arena.Source(first, src))
	res := rs.Results()
	require.Len(t, res, 2)
	assert.Equal(t, src, res[0].Sink)
	assert.Equal(t, sink, res[1].Sink)
}
