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

package summary_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/awslabs/sparseflow/analysis/sparse"
	"github.com/awslabs/sparseflow/analysis/summary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func buildTable(t *testing.T, b *ir.Builder, cfg *config.Config) (*ir.Program, *summary.Table) {
	prog, err := b.Build()
	require.NoError(t, err)
	logger := config.NewDiscardLogGroup()
	dfg, err := sparse.Build(context.Background(), cfg, logger, prog)
	require.NoError(t, err)
	table, err := summary.Build(context.Background(), cfg, logger, prog, dfg)
	require.NoError(t, err)
	return prog, table
}

// describe renders the matches for a fact with the given fields as "consumed kind target@index"
func describe(ms []summary.Match, fields []*ir.Field) []string {
	var res []string
	for _, m := range ms {
		ap, whole := m.Target(fields)
		s := fmt.Sprintf("%d %s %s@%d", m.Consumed, m.Path.Kind, ap, m.Path.Target.Index())
		if whole {
			s += " whole"
		}
		res = append(res, s)
	}
	return res
}

func TestCopySummary(t *testing.T) {
	b := ir.NewBuilder()
	f := b.Field("f")
	id := b.Method("id")
	p := id.Param("p")
	q := id.Local("q")
	id.Assign(q, p)
	id.Return(q)
	_, table := buildTable(t, b, config.NewDefault())

	sp := id.Method().StartPoint()
	require.True(t, table.Has(sp, p))
	assert.ElementsMatch(t, []string{"0 kill p@2", "0 kill q@2"}, describe(table.Lookup(sp, p, nil), nil))
	fields := []*ir.Field{f}
	assert.ElementsMatch(t, []string{"0 kill p.f@2", "0 kill q.f@2"}, describe(table.Lookup(sp, p, fields), fields))
}

func TestLoadSummary(t *testing.T) {
	b := ir.NewBuilder()
	f, g := b.Field("f"), b.Field("g")
	get := b.Method("get")
	p := get.Param("p")
	x := get.Local("x")
	get.Load(x, p, "f")
	get.Return(x)
	_, table := buildTable(t, b, config.NewDefault())

	sp := get.Method().StartPoint()
	assert.ElementsMatch(t, []string{"0 kill p@2", "0 ordinary x@2 whole"}, describe(table.Lookup(sp, p, nil), nil))
	fields := []*ir.Field{f, g}
	assert.ElementsMatch(t, []string{"0 kill p.f.g@2", "1 kill x.g@2", "1 kill p.f.g@2"},
		describe(table.Lookup(sp, p, fields), fields))
	// a load of another field does not reach x
	other := []*ir.Field{g}
	assert.ElementsMatch(t, []string{"0 kill p.g@2"}, describe(table.Lookup(sp, p, other), other))
}

func TestStrongUpdateSummary(t *testing.T) {
	b := ir.NewBuilder()
	f, g := b.Field("f"), b.Field("g")
	set := b.Method("set")
	p := set.Param("p")
	y := set.Param("y")
	set.Store(p, "f", y)
	set.Invoke("sink", p)
	_, table := buildTable(t, b, config.NewDefault())

	sp := set.Method().StartPoint()
	overwritten := []*ir.Field{f, g}
	assert.Equal(t, []string{"1 strong p.f.g@2"}, describe(table.Lookup(sp, p, overwritten), overwritten))
	kept := []*ir.Field{g}
	assert.Equal(t, []string{"0 kill p.g@3"}, describe(table.Lookup(sp, p, kept), kept))
	assert.Equal(t, []string{"0 kill y@2"}, describe(table.Lookup(sp, y, nil), nil))
}

func TestStrongUpdateDemotedOverDeeperSummaries(t *testing.T) {
	b := ir.NewBuilder()
	f, g := b.Field("f"), b.Field("g")
	m := b.Method("m")
	p := m.Param("p")
	y := m.Param("y")
	w, z := m.Local("w"), m.Local("z")
	m.If(nil, "write")
	m.Load(w, p, "f")
	m.Load(z, w, "g")
	sink := m.Invoke("sink", z)
	m.Return(nil)
	m.Label("write")
	write := m.Store(p, "f", y)
	m.Return(nil)
	_, table := buildTable(t, b, config.NewDefault())

	fields := []*ir.Field{f, g}
	got := describe(table.Lookup(m.Method().StartPoint(), p, fields), fields)
	assert.Contains(t, got, fmt.Sprintf("2 kill z@%d", sink.Index()))
	assert.Contains(t, got, fmt.Sprintf("1 kill p.f.g@%d", write.Index()))
	for _, s := range got {
		assert.NotContains(t, s, "strong")
	}
}

func TestResultOfCallIsAnEntry(t *testing.T) {
	b := ir.NewBuilder()
	m := b.Method("main")
	x, y := m.Local("x"), m.Local("y")
	call := m.Assign(x, m.Call("source"))
	m.Assign(y, x)
	m.Invoke("sink", y)
	_, table := buildTable(t, b, config.NewDefault())

	require.True(t, table.Has(call, x))
	assert.ElementsMatch(t, []string{"0 kill y@2"}, describe(table.Lookup(call, x, nil), nil))
	assert.False(t, table.Has(call, y))
}

func TestLookupOnUnregisteredEntryPanics(t *testing.T) {
	b := ir.NewBuilder()
	m := b.Method("main")
	x := m.Local("x")
	s := m.Assign(x, ir.Const("1"))
	_, table := buildTable(t, b, config.NewDefault())

	require.False(t, table.Has(s, x))
	defer func() {
		err, ok := recover().(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, summary.ErrUnregistered))
	}()
	table.Lookup(s, x, nil)
}

func TestDumpAndReport(t *testing.T) {
	b := ir.NewBuilder()
	id := b.Method("id")
	id.Return(id.Param("p"))
	cfg := config.NewDefault()
	cfg.ReportSummaries = true
	cfg.ReportsDir = t.TempDir()
	_, table := buildTable(t, b, cfg)

	var buf bytes.Buffer
	require.NoError(t, table.Dump(&buf))
	text, err := summary.ReadDump(&buf)
	require.NoError(t, err)
	assert.Contains(t, text, "p after id#0")
	assert.Contains(t, text, "[kill] p -> p @ id#1")

	files, err := filepath.Glob(filepath.Join(cfg.ReportsDir, "summaries-*.txt.zst"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
