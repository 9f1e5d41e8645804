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

package ir_test

import (
	"errors"
	"testing"

	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indices(stmts []ir.Stmt) []int {
	res := make([]int, len(stmts))
	for i, s := range stmts {
		res[i] = s.Index()
	}
	return res
}

func TestBuildControlFlow(t *testing.T) {
	b := ir.NewBuilder()
	foo := b.Method("foo")
	p := foo.Param("p")
	x := foo.Local("x")
	foo.Label("loop")
	br := foo.If(p, "end")
	foo.Assign(x, ir.Const("1"))
	foo.Goto("loop")
	foo.Label("end")
	ret := foo.Return(x)
	prog, err := b.Build()
	require.NoError(t, err)

	m := prog.MethodByName("foo")
	require.NotNil(t, m)
	assert.Equal(t, []int{1}, indices(prog.SuccsOf(m.Body[0])))
	assert.ElementsMatch(t, []int{2, 4}, indices(prog.SuccsOf(br)))
	assert.Equal(t, []int{1}, indices(prog.SuccsOf(m.Body[3])))
	assert.ElementsMatch(t, []int{0, 3}, indices(prog.PredsOf(br)))
	assert.True(t, prog.IsExitStmt(ret))
	assert.True(t, prog.IsStartPoint(m.Body[0]))
	assert.Equal(t, []ir.Stmt{ret}, prog.EndPointsOf(m))
	assert.Equal(t, []*ir.Local{p}, m.Params)
}

func TestBuildAppendsReturn(t *testing.T) {
	b := ir.NewBuilder()
	foo := b.Method("foo")
	foo.Nop()
	prog, err := b.Build()
	require.NoError(t, err)
	m := prog.MethodByName("foo")
	require.Len(t, m.Body, 2)
	assert.IsType(t, &ir.ReturnStmt{}, m.Body[1])
}

func TestBuildTraps(t *testing.T) {
	b := ir.NewBuilder()
	foo := b.Method("foo")
	e := foo.Local("e")
	foo.Label("try")
	call := foo.Invoke("bar")
	foo.Label("tryEnd")
	foo.Return(nil)
	foo.Label("handler")
	foo.Catch(e)
	foo.Return(nil)
	foo.Trap("try", "tryEnd", "handler")
	prog, err := b.Build()
	require.NoError(t, err)

	assert.ElementsMatch(t, []int{1, 2}, indices(prog.SuccsOf(call)))
	m := prog.MethodByName("foo")
	assert.True(t, m.IsHandler(2))
	assert.Len(t, m.Exits(), 2)
}

func TestCallResolution(t *testing.T) {
	b := ir.NewBuilder()
	main := b.Method("main")
	x := main.Local("x")
	c1 := main.Assign(x, main.Call("id", ir.Const("a")))
	c2 := main.Invoke("external", x)
	c3 := main.Invoke("iface", x)
	main.Return(nil)
	id := b.Method("id")
	id.Return(id.Param("p"))
	impl := b.Method("impl")
	impl.Param("q")
	impl.Return(nil)
	b.Bind(c3, "impl", "external")

	prog, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []*ir.Method{prog.MethodByName("id")}, prog.CalleesOfCallAt(c1))
	assert.Empty(t, prog.CalleesOfCallAt(c2))
	assert.Equal(t, []*ir.Method{prog.MethodByName("impl")}, prog.CalleesOfCallAt(c3))
	assert.Equal(t, []ir.Stmt{c1}, prog.CallersOf(prog.MethodByName("id")))
	assert.True(t, prog.IsCallStmt(c2))
	assert.Len(t, prog.CallGraphSuccessors(prog.MethodByName("main")), 2)
}

func TestBuildShapeErrors(t *testing.T) {
	b := ir.NewBuilder()
	foo := b.Method("foo")
	x := foo.Local("x")
	y := foo.Local("y")
	foo.Assign(foo.FieldRef(x, "f"), ir.Binop("+", x, y))
	_, err := b.Build()
	var shape *ir.ShapeError
	require.True(t, errors.As(err, &shape), "expected a shape error, got %v", err)

	b = ir.NewBuilder()
	b.Method("bar").Goto("nowhere")
	_, err = b.Build()
	assert.ErrorContains(t, err, "unknown label")
}

func TestBaseAndField(t *testing.T) {
	b := ir.NewBuilder()
	foo := b.Method("foo")
	x := foo.Local("x")
	y := foo.Local("y")
	i := foo.Local("i")
	f := b.Field("f")
	g := b.Static("g")

	assert.Equal(t, []ir.Touch{{Base: x, Field: ir.BaseField}}, ir.BaseAndField(x, false))
	assert.Equal(t, []ir.Touch{{Base: x, Field: f}}, ir.BaseAndField(foo.FieldRef(x, "f"), false))
	assert.Equal(t, []ir.Touch{{Base: ir.StaticsBase, Field: g.Field}}, ir.BaseAndField(g, false))
	assert.Empty(t, ir.BaseAndField(ir.Const("3"), false))
	assert.Equal(t,
		[]ir.Touch{{Base: x, Field: ir.BaseField}, {Base: y, Field: ir.BaseField}},
		ir.BaseAndField(ir.Binop("+", x, y), false))
	assert.Equal(t, []ir.Touch{{Base: x, Field: ir.BaseField}}, ir.BaseAndField(foo.Index(x, i), false))
	assert.Equal(t,
		[]ir.Touch{{Base: x, Field: ir.BaseField}, {Base: i, Field: ir.BaseField}},
		ir.BaseAndField(foo.Index(x, i), true))
	assert.Equal(t, []ir.Touch{{Base: y, Field: ir.BaseField}}, ir.BaseAndField(ir.Len(y), false))
}
