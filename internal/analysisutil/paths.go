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
	"strings"

	"golang.org/x/tools/go/ssa"
)

// MakeAbsolute converts relative file paths to absolute paths by prepending the current working directory. Paths
// that are already absolute are returned unchanged.
func MakeAbsolute(paths []string) []string {
	result := make([]string, 0, len(paths))
	cwd, _ := os.Getwd()
	for _, s := range paths {
		if filepath.IsAbs(s) {
			result = append(result, s)
		} else {
			result = append(result, filepath.Join(cwd, s))
		}
	}
	return result
}

func isExcludedOne(filename string, exclude string) bool {
	switch {
	case strings.HasSuffix(exclude, ".go"):
		return filename == exclude // full match required
	case strings.HasSuffix(exclude, "/"):
		return strings.HasPrefix(filename, exclude)
	default:
		return strings.HasPrefix(filename, exclude+"/")
	}
}

// IsExcluded returns true if the file declaring f matches one of the exclude paths. A path ending in .go must
// match exactly; any other path matches the files under it.
func IsExcluded(program *ssa.Program, f *ssa.Function, exclude []string) bool {
	if len(exclude) == 0 {
		return false
	}
	filename := program.Fset.Position(f.Pos()).Filename
	for _, e := range exclude {
		if isExcludedOne(filename, e) {
			return true
		}
	}
	return false
}
