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

package taint

import (
	"bytes"
	"context"
	"testing"

	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/analysis/frontend"
	"github.com/awslabs/sparseflow/analysis/infoflow"
	"github.com/awslabs/sparseflow/internal/analysistest"
	"github.com/awslabs/sparseflow/internal/formatutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const basic = "../../../analysis/frontend/testdata/basic"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewFlags(t *testing.T) {
	flags, err := NewFlags([]string{"-config", "config.yaml", "-timeout", "30", "main.go"})
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", flags.ConfigPath)
	assert.Equal(t, 30, flags.timeout)
	assert.Equal(t, []string{"main.go"}, flags.FlagSet.Args())

	flags, err = NewFlags([]string{"main.go"})
	require.NoError(t, err)
	assert.Equal(t, -1, flags.timeout)
}

func TestReport(t *testing.T) {
	prog, cfg := analysistest.LoadTest(t, basic)
	res, err := infoflow.New(cfg, config.NewDiscardLogGroup()).
		Analyze(context.Background(), prog.IR, frontend.NewCodeIDManager(cfg, prog))
	require.NoError(t, err)
	require.NotZero(t, res.Len())

	var out bytes.Buffer
	Report(&out, formatutil.NewPaletteWithColors(false), prog, res)
	assert.Contains(t, out.String(), "taint flows detected!")
	assert.Contains(t, out.String(), "Data from a source has reached a sink in function command-line-arguments.direct")
	assert.Contains(t, out.String(), "Path 1:")

	out.Reset()
	Report(&out, formatutil.NewPaletteWithColors(false), prog, &infoflow.Results{})
	assert.Contains(t, out.String(), "No taint flows detected")
}
