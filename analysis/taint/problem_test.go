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
	"context"
	"testing"

	"github.com/awslabs/sparseflow/analysis/abstraction"
	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/analysis/ifds"
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/awslabs/sparseflow/analysis/sparse"
	"github.com/awslabs/sparseflow/analysis/summary"
	"github.com/awslabs/sparseflow/analysis/taint"
	"github.com/awslabs/sparseflow/internal/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// run solves the taint problem of the program built by b, with source() as the only source and sink(...) as the
// only sink
func run(t *testing.T, b *ir.Builder, cfg *config.Config) *taint.Manager {
	prog, err := b.Build()
	require.NoError(t, err)
	logger := config.NewDiscardLogGroup()
	ctx := context.Background()
	dfg, err := sparse.Build(ctx, cfg, logger, prog)
	require.NoError(t, err)
	var table *summary.Table
	if cfg.Summaries {
		table, err = summary.Build(ctx, cfg, logger, prog, dfg)
		require.NoError(t, err)
	}
	m := taint.NewManager(cfg, logger, prog, dfg, table,
		taint.NewMethodSourceSinkManager([]string{"source"}, []string{"sink"}))
	pool := executor.New(2)
	defer pool.Close()
	s := ifds.New[ir.Stmt, abstraction.ID, *ir.Method]("forward", prog, taint.NewProblem(m), pool, logger)
	m.SetForwardSolver(s)
	require.NoError(t, s.Solve(ctx))
	return m
}

func sinks(m *taint.Manager) []int {
	var res []int
	for _, r := range m.Results.Results() {
		res = append(res, r.Sink.Index())
	}
	return res
}

func TestLocalLeak(t *testing.T) {
	b := ir.NewBuilder()
	main := b.Method("main")
	x, y := main.Local("x"), main.Local("y")
	main.Assign(x, main.Call("source"))
	main.Assign(y, x)
	main.Invoke("sink", y)

	for _, sparseOpt := range []bool{true, false} {
		cfg := config.NewDefault()
		cfg.SparseOptimization = sparseOpt
		m := run(t, b, cfg)
		require.Equal(t, []int{2}, sinks(m), "sparse=%t", sparseOpt)
		r := m.Results.Results()[0]
		assert.Equal(t, "source", r.UserData())
		assert.Equal(t, "y.*", r.SinkPath.String())
	}
}

func TestStrongUpdateKillsLocal(t *testing.T) {
	b := ir.NewBuilder()
	main := b.Method("main")
	x := main.Local("x")
	main.Assign(x, main.Call("source"))
	main.Assign(x, ir.Const("c"))
	main.Invoke("sink", x)

	assert.Empty(t, sinks(run(t, b, config.NewDefault())))
}

func TestFlowInsensitiveIgnoresOrder(t *testing.T) {
	b := ir.NewBuilder()
	main := b.Method("main")
	x, y := main.Local("x"), main.Local("y")
	main.Invoke("sink", y)
	main.Assign(x, main.Call("source"))
	main.Assign(y, x)

	assert.Empty(t, sinks(run(t, b, config.NewDefault())))
	cfg := config.NewDefault()
	cfg.Solver = config.FlowInsensitiveSolver
	cfg.SparseOptimization = false
	assert.Equal(t, []int{0}, sinks(run(t, b, cfg)))
}

func TestOperatorsPropagate(t *testing.T) {
	b := ir.NewBuilder()
	main := b.Method("main")
	x, y := main.Local("x"), main.Local("y")
	main.Assign(x, main.Call("source"))
	main.Assign(y, ir.Binop("+", x, ir.Const("1")))
	main.Invoke("sink", y)

	assert.Equal(t, []int{2}, sinks(run(t, b, config.NewDefault())))
}

func TestCallAndReturn(t *testing.T) {
	b := ir.NewBuilder()
	id := b.Method("id")
	p := id.Param("p")
	id.Return(p)
	main := b.Method("main")
	x, y := main.Local("x"), main.Local("y")
	main.Assign(x, main.Call("source"))
	main.Assign(y, main.Call("id", x))
	main.Invoke("sink", y)

	for _, summaries := range []bool{false, true} {
		cfg := config.NewDefault()
		cfg.Summaries = summaries
		assert.Equal(t, []int{2}, sinks(run(t, b, cfg)), "summaries=%t", summaries)
	}
}

func TestHeapWriteInCallee(t *testing.T) {
	b := ir.NewBuilder()
	set := b.Method("set")
	p := set.Param("p")
	v := set.Param("v")
	set.Store(p, "f", v)
	set.Return(nil)
	main := b.Method("main")
	o, x, y := main.Local("o"), main.Local("x"), main.Local("y")
	main.Assign(o, ir.New(&ir.Type{Name: "A"}))
	main.Assign(x, main.Call("source"))
	main.Invoke("set", o, x)
	main.Load(y, o, "f")
	main.Invoke("sink", y)

	assert.Equal(t, []int{4}, sinks(run(t, b, config.NewDefault())))
}

func TestFieldLoadOfOtherField(t *testing.T) {
	b := ir.NewBuilder()
	main := b.Method("main")
	o, x, y := main.Local("o"), main.Local("x"), main.Local("y")
	main.Assign(o, ir.New(&ir.Type{Name: "A"}))
	main.Assign(x, main.Call("source"))
	main.Store(o, "f", x)
	main.Load(y, o, "g")
	main.Invoke("sink", y)

	assert.Empty(t, sinks(run(t, b, config.NewDefault())))
}

func TestWrapper(t *testing.T) {
	b := ir.NewBuilder()
	main := b.Method("main")
	x, y := main.Local("x"), main.Local("y")
	main.Assign(x, main.Call("source"))
	main.Assign(y, main.Call("lib", x))
	main.Invoke("sink", y)

	assert.Equal(t, []int{2}, sinks(run(t, b, config.NewDefault())))
	cfg := config.NewDefault()
	cfg.TaintWrapper = false
	assert.Empty(t, sinks(run(t, b, cfg)))
}

func TestStaticFields(t *testing.T) {
	b := ir.NewBuilder()
	g := b.Static("g")
	get := b.Method("get")
	r := get.Local("r")
	get.Assign(r, g)
	get.Return(r)
	main := b.Method("main")
	x, y := main.Local("x"), main.Local("y")
	main.Assign(x, main.Call("source"))
	main.Assign(g, x)
	main.Assign(y, main.Call("get"))
	main.Invoke("sink", y)

	assert.Equal(t, []int{3}, sinks(run(t, b, config.NewDefault())))
	cfg := config.NewDefault()
	cfg.StaticFieldTracking = false
	assert.Empty(t, sinks(run(t, b, cfg)))
}

func TestArrayLength(t *testing.T) {
	b := ir.NewBuilder()
	arr := &ir.Type{Name: "[]int", Array: true}
	main := b.Method("main")
	n, a, l := main.Local("n"), main.TypedLocal("a", arr), main.Local("l")
	main.Assign(n, main.Call("source"))
	main.Assign(a, ir.NewArray(arr, n))
	main.Assign(l, ir.Len(a))
	main.Invoke("sink", l)

	assert.Empty(t, sinks(run(t, b, config.NewDefault())))
	cfg := config.NewDefault()
	cfg.ArraySizeTainting = true
	assert.Equal(t, []int{3}, sinks(run(t, b, cfg)))
}

func TestSinkDoesNotLeakUnrelatedArgs(t *testing.T) {
	b := ir.NewBuilder()
	main := b.Method("main")
	x, z := main.Local("x"), main.Local("z")
	main.Assign(x, main.Call("source"))
	main.Assign(z, ir.Const("c"))
	main.Invoke("sink", z)

	assert.Empty(t, sinks(run(t, b, config.NewDefault())))
}
