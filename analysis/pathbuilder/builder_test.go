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

package pathbuilder_test

import (
	"context"
	"errors"
	"testing"

	"github.com/awslabs/sparseflow/analysis/abstraction"
	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/awslabs/sparseflow/analysis/pathbuilder"
	"github.com/awslabs/sparseflow/analysis/taint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fixture derives y twice from the same source:
//
//	0: x = source(); 1: y = x; 2: z = x; 3: y = z; 4: sink(y)
func fixture(t *testing.T) (*abstraction.Arena, *taint.Result) {
	b := ir.NewBuilder()
	main := b.Method("main")
	x, y, z := main.Local("x"), main.Local("y"), main.Local("z")
	s0 := main.Assign(x, main.Call("source"))
	s1 := main.Assign(y, x)
	s2 := main.Assign(z, x)
	s3 := main.Assign(y, z)
	sink := main.Invoke("sink", y)
	_, err := b.Build()
	require.NoError(t, err)

	paths := abstraction.NewFactory(5)
	arena := abstraction.NewArena(paths.Zero())
	src := arena.Source(&abstraction.SourceContext{Stmt: s0, AccessPath: paths.Local(x)}, s0)
	fy := arena.Derive(src, paths.Local(y), s1)
	fz := arena.Derive(src, paths.Local(z), s2)
	require.Equal(t, fy, arena.Derive(fz, paths.Local(y), s3))
	return arena, &taint.Result{Sink: sink, SinkPath: paths.Local(y), Facts: []abstraction.ID{fy}}
}

func render(ps []pathbuilder.Path) []string {
	var res []string
	for _, p := range ps {
		res = append(res, p.String())
	}
	return res
}

func build(t *testing.T, cfg *config.Config) []pathbuilder.Path {
	arena, r := fixture(t)
	b := pathbuilder.New(cfg, config.NewDiscardLogGroup(), arena)
	res, err := b.Build(context.Background(), []*taint.Result{r})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Same(t, r, res[0].Result)
	assert.True(t, b.IsTerminated())
	return res[0].Paths
}

func TestFastPath(t *testing.T) {
	cfg := config.NewDefault()
	cfg.PathReconstruction = config.FastPaths
	assert.Equal(t, []string{"x.* @ main#0: x = source() -> y.* @ main#1: y = x"}, render(build(t, cfg)))
}

func TestPrecisePaths(t *testing.T) {
	cfg := config.NewDefault()
	cfg.PathReconstruction = config.PrecisePaths
	ps := build(t, cfg)
	require.Len(t, ps, 2)
	assert.Len(t, ps[0], 2)
	assert.Len(t, ps[1], 3)
	assert.Equal(t, 3, ps[1][2].Stmt.Index())

	cfg.MaxPathsPerResult = 1
	assert.Len(t, build(t, cfg), 1)

	cfg.MaxPathsPerResult = 10
	cfg.MaxPathLength = 2
	ps = build(t, cfg)
	require.Len(t, ps, 1)
	assert.Len(t, ps[0], 2)
}

func TestNoPaths(t *testing.T) {
	cfg := config.NewDefault()
	cfg.PathReconstruction = config.NoPaths
	assert.Empty(t, build(t, cfg))
}

func TestKilledBuilder(t *testing.T) {
	arena, r := fixture(t)
	cfg := config.NewDefault()
	b := pathbuilder.New(cfg, config.NewDiscardLogGroup(), arena)
	stop := errors.New("stop")
	b.ForceTerminate(stop)
	assert.True(t, b.IsKilled())
	assert.ErrorIs(t, b.KillReason(), stop)

	res, err := b.Build(context.Background(), []*taint.Result{r})
	require.NoError(t, err)
	assert.Empty(t, res[0].Paths)

	b.Reset()
	assert.False(t, b.IsKilled())
	assert.False(t, b.IsTerminated())
	res, err = b.Build(context.Background(), []*taint.Result{r})
	require.NoError(t, err)
	assert.Len(t, res[0].Paths, 1)
}
