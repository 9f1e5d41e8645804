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

package abstraction_test

import (
	"sync"
	"testing"

	"github.com/awslabs/sparseflow/analysis/abstraction"
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	b       *ir.Builder
	m       *ir.MethodBuilder
	factory *abstraction.Factory
	a, b2   *ir.Local
	f, g, h *ir.Field
	s1, s2  ir.Stmt
}

func newFixture(maxLen int) *fixture {
	fx := &fixture{b: ir.NewBuilder(), factory: abstraction.NewFactory(maxLen)}
	fx.m = fx.b.Method("foo")
	fx.a = fx.m.Local("a")
	fx.b2 = fx.m.Local("b")
	fx.f, fx.g, fx.h = fx.b.Field("f"), fx.b.Field("g"), fx.b.Field("h")
	fx.s1 = fx.m.Assign(fx.a, fx.m.Call("source"))
	fx.s2 = fx.m.Assign(fx.b2, fx.a)
	return fx
}

func TestFactoryInterns(t *testing.T) {
	fx := newFixture(5)
	p1 := fx.factory.Create(fx.a, []*ir.Field{fx.f, fx.g}, false, abstraction.NoArray)
	p2 := fx.factory.Create(fx.a, []*ir.Field{fx.f, fx.g}, false, abstraction.NoArray)
	p3 := fx.factory.Create(fx.a, []*ir.Field{fx.f}, false, abstraction.NoArray)
	assert.Same(t, p1, p2)
	assert.NotSame(t, p1, p3)
	assert.Equal(t, "a.f.g", p1.String())
}

func TestFactoryTruncates(t *testing.T) {
	fx := newFixture(2)
	p := fx.factory.Create(fx.a, []*ir.Field{fx.f, fx.g, fx.h}, false, abstraction.NoArray)
	assert.Equal(t, 2, p.FieldCount())
	assert.True(t, p.TaintSubFields())
	assert.Same(t, p, fx.factory.Create(fx.a, []*ir.Field{fx.f, fx.g}, true, abstraction.NoArray))
}

func TestEntails(t *testing.T) {
	fx := newFixture(5)
	c := fx.factory.Create
	af := c(fx.a, []*ir.Field{fx.f}, true, abstraction.NoArray)
	afExact := c(fx.a, []*ir.Field{fx.f}, false, abstraction.NoArray)
	afg := c(fx.a, []*ir.Field{fx.f, fx.g}, false, abstraction.NoArray)
	ag := c(fx.a, []*ir.Field{fx.g}, true, abstraction.NoArray)
	bf := c(fx.b2, []*ir.Field{fx.f}, true, abstraction.NoArray)

	assert.True(t, af.Entails(afg))
	assert.True(t, af.Entails(afExact))
	assert.True(t, af.Entails(af))
	assert.False(t, afExact.Entails(afg))
	assert.False(t, afExact.Entails(af))
	assert.False(t, afg.Entails(af))
	assert.False(t, af.Entails(ag))
	assert.False(t, af.Entails(bf))
}

func TestEntailsComparesArrayTaintOfPrefix(t *testing.T) {
	fx := newFixture(5)
	c := fx.factory.Create
	afg := c(fx.a, []*ir.Field{fx.f, fx.g}, false, abstraction.NoArray)
	afgLen := c(fx.a, []*ir.Field{fx.f, fx.g}, false, abstraction.ArrayLength)

	for _, tc := range []struct {
		array abstraction.ArrayTaint
		other *abstraction.AccessPath
		want  bool
	}{
		{abstraction.ArrayContents, afg, false},
		{abstraction.ArrayLength, afg, false},
		{abstraction.ArrayLength, afgLen, true},
		{abstraction.ArrayContentsAndLength, afg, true},
		{abstraction.NoArray, afgLen, true},
	} {
		prefix := c(fx.a, []*ir.Field{fx.f}, true, tc.array)
		assert.Equal(t, tc.want, prefix.Entails(tc.other), "%v entails %v", prefix, tc.other)
	}
}

func TestRebase(t *testing.T) {
	fx := newFixture(5)
	afg := fx.factory.Create(fx.a, []*ir.Field{fx.f, fx.g}, false, abstraction.NoArray)
	// b = a.f
	got := fx.factory.Rebase(afg, fx.b2, true)
	assert.Equal(t, "b.g", got.String())
	// b.h = a
	got = fx.factory.Rebase(afg, fx.m.FieldRef(fx.b2, "h"), false)
	assert.Equal(t, "b.h.f.g", got.String())
	assert.Nil(t, fx.factory.Rebase(afg, ir.Const("x"), false))
}

func TestIdentityLaw(t *testing.T) {
	fx := newFixture(5)
	arena := abstraction.NewArena(fx.factory.Zero())
	require.True(t, arena.Get(abstraction.Zero).IsZero())

	sc := &abstraction.SourceContext{Stmt: fx.s1, AccessPath: fx.factory.Local(fx.a)}
	src := arena.Source(sc, fx.s1)
	bPath := fx.factory.Local(fx.b2)
	other := arena.Derive(src, fx.factory.Create(fx.a, []*ir.Field{fx.f}, true, abstraction.NoArray), fx.s1)

	// the same fact reached from two predecessors
	d1 := arena.Derive(src, bPath, fx.s2)
	d2 := arena.Derive(other, bPath, fx.s2)
	assert.Equal(t, d1, d2)
	assert.Equal(t, src, arena.Get(d1).Pred())
	assert.Equal(t, []abstraction.Neighbor{{Pred: other, Stmt: fx.s2}}, arena.Neighbors(d1))

	// re-deriving along the first derivation adds nothing
	arena.Derive(src, bPath, fx.s2)
	assert.Len(t, arena.Neighbors(d1), 1)

	// a different source context is a different fact
	sc2 := &abstraction.SourceContext{Stmt: fx.s1, AccessPath: fx.factory.Local(fx.a)}
	d3 := arena.Derive(arena.Source(sc2, fx.s1), bPath, fx.s2)
	assert.NotEqual(t, d1, d3)

	// inactive facts differ from active ones until activated
	inactive := arena.DeriveInactive(d1, bPath, fx.s2)
	assert.NotEqual(t, d1, inactive)
	assert.False(t, arena.Get(inactive).IsActive())
	assert.Equal(t, fx.s2, arena.Get(inactive).ActivationUnit())
	assert.Equal(t, d1, arena.Activate(inactive, fx.s2))
}

func TestConcurrentInternMerges(t *testing.T) {
	fx := newFixture(5)
	arena := abstraction.NewArena(fx.factory.Zero())
	sc := &abstraction.SourceContext{Stmt: fx.s1, AccessPath: fx.factory.Local(fx.a)}
	src := arena.Source(sc, fx.s1)
	path := fx.factory.Local(fx.b2)

	ids := make([]abstraction.ID, 64)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = arena.Derive(src, path, fx.s2)
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 3, arena.Len())
}
