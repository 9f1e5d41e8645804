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

package stats

import (
	"bytes"
	"context"
	"testing"

	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/awslabs/sparseflow/internal/formatutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recursiveProgram declares a and b calling each other, c calling itself and d calling a and c
func recursiveProgram(t *testing.T) *ir.Program {
	b := ir.NewBuilder()
	calls := map[string][]string{"a": {"b"}, "b": {"a"}, "c": {"c"}, "d": {"a", "c"}}
	for _, name := range []string{"a", "b", "c", "d"} {
		mb := b.Method(name)
		x := mb.Param("x")
		for _, callee := range calls[name] {
			mb.Invoke(callee, x)
		}
		mb.Return(nil)
	}
	prog, err := b.Build()
	require.NoError(t, err)
	return prog
}

func TestCompute(t *testing.T) {
	prog := recursiveProgram(t)
	s, err := Compute(context.Background(), config.NewDefault(), config.NewDiscardLogGroup(), prog, true)
	require.NoError(t, err)

	assert.Equal(t, 4, s.Methods)
	assert.Equal(t, 4, s.WithBody)
	assert.Equal(t, 5, s.CallSites)
	assert.Equal(t, prog.NumStmts(), s.Statements)
	if diff := cmp.Diff([][]string{{"a", "b"}, {"c"}}, s.Recursive); diff != "" {
		t.Errorf("recursive groups mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, s.Cycles)
}

func TestComputeWithoutCycles(t *testing.T) {
	s, err := Compute(context.Background(), config.NewDefault(), config.NewDiscardLogGroup(), recursiveProgram(t), false)
	require.NoError(t, err)
	assert.Equal(t, -1, s.Cycles)

	var out bytes.Buffer
	Print(&out, formatutil.NewPaletteWithColors(false), s)
	assert.Contains(t, out.String(), "recursive groups:   2")
	assert.Contains(t, out.String(), "[a b]")
	assert.NotContains(t, out.String(), "elementary cycles")
}
