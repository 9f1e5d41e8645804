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

package analysisutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeAbsolute(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	got := MakeAbsolute([]string{"/abs/x.go", "rel/dir"})
	assert.Equal(t, []string{"/abs/x.go", filepath.Join(cwd, "rel/dir")}, got)
}

func TestIsExcludedOne(t *testing.T) {
	for _, tt := range []struct {
		filename, exclude string
		want              bool
	}{
		{"/a/b/c.go", "/a/b/c.go", true},
		{"/a/b/cd.go", "/a/b/c.go", false},
		{"/a/b/c.go", "/a/b", true},
		{"/a/bc/c.go", "/a/b", false},
		{"/a/b/c.go", "/a/b/", true},
		{"/a/b/c.go", "/x", false},
	} {
		assert.Equal(t, tt.want, isExcludedOne(tt.filename, tt.exclude), "%s excluded by %s", tt.filename, tt.exclude)
	}
}

func TestIsStandard(t *testing.T) {
	assert.True(t, IsStandard("fmt"))
	assert.True(t, IsStandard("net/http"))
	assert.False(t, IsStandard("github.com/awslabs/sparseflow"))
	assert.False(t, IsStandard("golang.org/x/tools/go/ssa"))
	assert.False(t, IsStandard("command-line-arguments"))
}
