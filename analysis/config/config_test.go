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

package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadValid(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "valid.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.LogLevel)
	assert.Equal(t, 3, cfg.AccessPathLength)
	assert.Equal(t, PtsBasedAliasing, cfg.Aliasing)
	assert.Equal(t, 60, cfg.DataFlowTimeout)
	assert.True(t, cfg.Summaries)
	// options absent from the file keep their defaults
	assert.True(t, cfg.SparseOptimization)
	assert.Equal(t, ContextFlowSensitiveSolver, cfg.Solver)
	assert.True(t, cfg.Verbose())
	require.Len(t, cfg.Sources, 1)
	require.Len(t, cfg.Sinks, 1)

	assert.True(t, cfg.IsSomeSource(CodeIdentifier{Package: "os", Method: "Getenv"}))
	assert.False(t, cfg.IsSomeSource(CodeIdentifier{Package: "os", Method: "Exit"}))
	assert.True(t, cfg.IsSomeSink(CodeIdentifier{Package: "fmt", Method: "Printf"}))
	assert.True(t, cfg.IsSomeSink(CodeIdentifier{Package: "log", Method: "Println"}))
	assert.False(t, cfg.IsSomeSink(CodeIdentifier{Package: "strings", Method: "Println"}))
}

func TestLoadConfigErrors(t *testing.T) {
	for _, tc := range []struct {
		file   string
		option string
	}{
		{"sparse_legacy.yaml", "sparse-optimization"},
		{"static_zero.yaml", "static-field-tracking"},
		{"unknown_aliasing.yaml", "aliasing"},
	} {
		t.Run(tc.file, func(t *testing.T) {
			_, err := Load(filepath.Join("testdata", tc.file))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration))
			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tc.option, cerr.Option)
		})
	}
}

func TestLoadMalformed(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "not_yaml.yaml"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrConfiguration))

	_, err = Load(filepath.Join("testdata", "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestLoadDenseLegacy(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "dense_legacy.yaml"))
	require.NoError(t, err)
	assert.Equal(t, LegacySolver, cfg.Solver)
	assert.False(t, cfg.SparseOptimization)
	assert.Equal(t, PrecisePaths, cfg.PathReconstruction)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := NewDefault()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultAccessPathLength, cfg.AccessPathLength)
	assert.Equal(t, 3, cfg.NumThreads(4))
	assert.Equal(t, 1, cfg.NumThreads(1))
	cfg.MaxThreads = 7
	assert.Equal(t, 7, cfg.NumThreads(4))
}

func TestValidateRejectsNegativeOptions(t *testing.T) {
	cfg := NewDefault()
	cfg.DataFlowTimeout = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)

	cfg = NewDefault()
	cfg.SparseOptimization = false
	cfg.Summaries = true
	assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)
}

func TestCodeIdentifierMatching(t *testing.T) {
	plain := CodeIdentifier{Package: "main", Method: "source"}
	withRegex := compileRegexes(CodeIdentifier{Package: "(main)|(command-line-arguments)$", Method: "sour.*"})
	empty := CodeIdentifier{}

	assert.True(t, plain.MatchesAny([]CodeIdentifier{withRegex}))
	assert.True(t, CodeIdentifier{Package: "command-line-arguments", Method: "source2"}.
		MatchesAny([]CodeIdentifier{withRegex}))
	assert.True(t, plain.MatchesAny([]CodeIdentifier{empty}))
	assert.False(t, empty.MatchesAny([]CodeIdentifier{plain}))
	assert.False(t, plain.MatchesAny(nil))

	// an identifier that does not compile is matched literally
	literal := compileRegexes(CodeIdentifier{Method: "("})
	assert.Nil(t, literal.computedRegexs)
	assert.True(t, CodeIdentifier{Method: "("}.MatchesAny([]CodeIdentifier{literal}))
}
