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

package alias_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/awslabs/sparseflow/analysis/abstraction"
	"github.com/awslabs/sparseflow/analysis/alias"
	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/analysis/ifds"
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/awslabs/sparseflow/analysis/sparse"
	"github.com/awslabs/sparseflow/analysis/taint"
	"github.com/awslabs/sparseflow/internal/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var objType = &ir.Type{Name: "A"}

func solve(t *testing.T, prog *ir.Program, kind config.AliasingAlgorithm) (*taint.Manager, error) {
	return solveWith(t, prog, kind, true)
}

func solveWith(t *testing.T, prog *ir.Program, kind config.AliasingAlgorithm,
	sparseOpt bool) (*taint.Manager, error) {
	cfg := config.NewDefault()
	cfg.Aliasing = kind
	cfg.SparseOptimization = sparseOpt
	logger := config.NewDiscardLogGroup()
	ctx := context.Background()
	dfg, err := sparse.Build(ctx, cfg, logger, prog)
	require.NoError(t, err)
	m := taint.NewManager(cfg, logger, prog, dfg, nil,
		taint.NewMethodSourceSinkManager([]string{"source"}, []string{"sink"}))
	pool := executor.New(2)
	defer pool.Close()
	a, err := alias.New(kind, m, pool)
	require.NoError(t, err)
	m.SetAliasing(a)
	s := ifds.New[ir.Stmt, abstraction.ID, *ir.Method]("forward", prog, taint.NewProblem(m), pool, logger)
	m.SetForwardSolver(s)
	return m, s.Solve(ctx)
}

var strategies = []config.AliasingAlgorithm{
	config.FlowSensitiveAliasing, config.PtsBasedAliasing, config.LazyAliasing, config.NoAliasing,
}

// aliasBeforeStore is
//
//	a = new A; b = a; t = source(); a.f = t; u = b.f; sink(u)
func aliasBeforeStore(t *testing.T) *ir.Program {
	b := ir.NewBuilder()
	main := b.Method("main")
	a, bb, tt, u := main.TypedLocal("a", objType), main.TypedLocal("b", objType), main.Local("t"), main.Local("u")
	main.Assign(a, ir.New(objType))
	main.Assign(bb, a)
	main.Assign(tt, main.Call("source"))
	main.Store(a, "f", tt)
	main.Load(u, bb, "f")
	main.Invoke("sink", u)
	prog, err := b.Build()
	require.NoError(t, err)
	return prog
}

func TestAliasBeforeStore(t *testing.T) {
	want := map[config.AliasingAlgorithm]int{
		config.FlowSensitiveAliasing: 1,
		config.PtsBasedAliasing:      1,
		config.LazyAliasing:          1,
		config.NoAliasing:            0,
	}
	for _, kind := range strategies {
		t.Run(string(kind), func(t *testing.T) {
			m, err := solve(t, aliasBeforeStore(t), kind)
			require.NoError(t, err)
			assert.Equal(t, want[kind], m.Results.Len())
		})
	}
}

func TestAliasAfterStore(t *testing.T) {
	b := ir.NewBuilder()
	main := b.Method("main")
	a, bb, tt, u := main.TypedLocal("a", objType), main.TypedLocal("b", objType), main.Local("t"), main.Local("u")
	main.Assign(a, ir.New(objType))
	main.Assign(tt, main.Call("source"))
	main.Store(a, "f", tt)
	main.Assign(bb, a)
	main.Load(u, bb, "f")
	main.Invoke("sink", u)
	prog, err := b.Build()
	require.NoError(t, err)

	for _, kind := range strategies {
		m, err := solve(t, prog, kind)
		require.NoError(t, err)
		assert.Equal(t, 1, m.Results.Len(), "%s", kind)
	}
}

func TestUseBeforeStoreIsNotALeak(t *testing.T) {
	b := ir.NewBuilder()
	main := b.Method("main")
	a, bb, tt, u := main.TypedLocal("a", objType), main.TypedLocal("b", objType), main.Local("t"), main.Local("u")
	main.Assign(a, ir.New(objType))
	main.Assign(bb, a)
	main.Load(u, bb, "f")
	main.Invoke("sink", u)
	main.Assign(tt, main.Call("source"))
	main.Store(a, "f", tt)
	prog, err := b.Build()
	require.NoError(t, err)

	for _, kind := range strategies {
		m, err := solve(t, prog, kind)
		require.NoError(t, err)
		assert.Zero(t, m.Results.Len(), "%s", kind)
	}
}

func TestAliasThroughCallee(t *testing.T) {
	b := ir.NewBuilder()
	set := b.Method("set")
	p := set.TypedParam("p", objType)
	v := set.Param("v")
	set.Store(p, "f", v)
	set.Return(nil)
	main := b.Method("main")
	a, bb, tt, u := main.TypedLocal("a", objType), main.TypedLocal("b", objType), main.Local("t"), main.Local("u")
	main.Assign(a, ir.New(objType))
	main.Assign(bb, a)
	main.Assign(tt, main.Call("source"))
	main.Invoke("set", a, tt)
	main.Load(u, bb, "f")
	main.Invoke("sink", u)
	prog, err := b.Build()
	require.NoError(t, err)

	m, err := solve(t, prog, config.FlowSensitiveAliasing)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Results.Len())
	m, err = solve(t, prog, config.NoAliasing)
	require.NoError(t, err)
	assert.Zero(t, m.Results.Len())
}

// identity declares mk(p) { return p }
func identity(b *ir.Builder) {
	mk := b.Method("mk")
	p := mk.TypedParam("p", objType)
	mk.Return(p)
}

// returnedAlias is
//
//	a = new A; c = mk(a); t = source(); a.f = t; u = c.f; sink(u)
func returnedAlias(t *testing.T) *ir.Program {
	b := ir.NewBuilder()
	identity(b)
	main := b.Method("main")
	a, c, tt, u := main.TypedLocal("a", objType), main.TypedLocal("c", objType), main.Local("t"), main.Local("u")
	main.Assign(a, ir.New(objType))
	main.Assign(c, main.Call("mk", a))
	main.Assign(tt, main.Call("source"))
	main.Store(a, "f", tt)
	main.Load(u, c, "f")
	main.Invoke("sink", u)
	prog, err := b.Build()
	require.NoError(t, err)
	return prog
}

// aliasOfArgument is
//
//	a = new A; c = mk(a); t = source(); c.f = t; u = a.f; sink(u)
func aliasOfArgument(t *testing.T) *ir.Program {
	b := ir.NewBuilder()
	identity(b)
	main := b.Method("main")
	a, c, tt, u := main.TypedLocal("a", objType), main.TypedLocal("c", objType), main.Local("t"), main.Local("u")
	main.Assign(a, ir.New(objType))
	main.Assign(c, main.Call("mk", a))
	main.Assign(tt, main.Call("source"))
	main.Store(c, "f", tt)
	main.Load(u, a, "f")
	main.Invoke("sink", u)
	prog, err := b.Build()
	require.NoError(t, err)
	return prog
}

func TestAliasThroughReturnValue(t *testing.T) {
	for name, build := range map[string]func(*testing.T) *ir.Program{
		"store-to-argument": returnedAlias,
		"store-to-result":   aliasOfArgument,
	} {
		for _, sparseOpt := range []bool{true, false} {
			t.Run(fmt.Sprintf("%s/sparse=%t", name, sparseOpt), func(t *testing.T) {
				m, err := solveWith(t, build(t), config.FlowSensitiveAliasing, sparseOpt)
				require.NoError(t, err)
				assert.Equal(t, 1, m.Results.Len())

				m, err = solveWith(t, build(t), config.NoAliasing, sparseOpt)
				require.NoError(t, err)
				assert.Zero(t, m.Results.Len())
			})
		}
	}
}

func TestShapeErrorOnOperatorField(t *testing.T) {
	b := ir.NewBuilder()
	main := b.Method("main")
	a, x, tt := main.Local("a"), main.Local("x"), main.Local("t")
	main.Assign(x, ir.Const("1"))
	main.Assign(a, ir.Binop("+", x, ir.Const("2")))
	main.Assign(tt, main.Call("source"))
	main.Store(a, "f", tt)
	main.Invoke("sink", a)
	prog, err := b.Build()
	require.NoError(t, err)

	_, err = solve(t, prog, config.FlowSensitiveAliasing)
	var shape *alias.ShapeError
	require.True(t, errors.As(err, &shape), "got %v", err)
	assert.Equal(t, 1, shape.Stmt.Index())
	var taskErr *executor.TaskError
	assert.True(t, errors.As(err, &taskErr))
}

func TestUnknownStrategy(t *testing.T) {
	_, err := alias.New("bogus", nil, nil)
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestClasses(t *testing.T) {
	b := ir.NewBuilder()
	main := b.Method("main")
	x, y, z, w, v := main.Local("x"), main.Local("y"), main.Local("z"), main.Local("w"), main.Local("v")
	main.Assign(y, x)
	main.Assign(z, ir.Cast(y, objType))
	main.Assign(w, ir.Phi(z, ir.Const("0")))
	main.Assign(v, ir.Binop("+", x, ir.Const("1")))
	prog, err := b.Build()
	require.NoError(t, err)

	c := alias.NewClasses(prog)
	assert.True(t, c.Same(x, w))
	assert.True(t, c.Same(z, y))
	assert.False(t, c.Same(x, v))
	assert.Equal(t, []*ir.Local{w, y, z}, c.Members(x))
	assert.Empty(t, c.Members(v))
}

func TestNoneNeverAliases(t *testing.T) {
	l := &ir.Local{Name: "l"}
	assert.False(t, alias.None{}.MayAlias(nil, l, &ir.Local{Name: "k"}))
}
