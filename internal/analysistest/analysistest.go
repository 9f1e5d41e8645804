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

// Package analysistest loads annotated Go test programs. A test program is a directory with a main.go, optional
// additional files and a config.yaml. Sources and sinks are annotated with comments on their line:
//
//	x := source() // @Source(A)
//	sink(x)       // @Sink(A)
//
// A sink annotated with the identifier of a source is expected to be reached by that source.
package analysistest

import (
	"fmt"
	"go/parser"
	"go/token"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/analysis/frontend"
	"github.com/awslabs/sparseflow/internal/funcutil"
)

// LoadTest loads the program in the directory dir, made of main.go and the extraFiles, and the config.yaml of
// dir. The program is converted with the default front-end options.
func LoadTest(t *testing.T, dir string, extraFiles ...string) (*frontend.Program, *config.Config) {
	t.Helper()
	cfg, err := config.Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("error loading config: %v", err)
	}
	files := []string{filepath.Join(dir, "main.go")}
	for _, f := range extraFiles {
		files = append(files, filepath.Join(dir, f))
	}
	lp, err := frontend.Load(nil, "", files)
	if err != nil {
		t.Fatalf("error loading packages: %v", err)
	}
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(testWriter{t})
	prog, err := frontend.Convert(lp, logger, frontend.Options{})
	if err != nil {
		t.Fatalf("error converting program: %v", err)
	}
	return prog, cfg
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

var (
	// SourceRegex matches annotations of the form "@Source(id1, id2, id3)"
	SourceRegex = regexp.MustCompile(`//.*@Source\(((?:\s*\w\s*,?)+)\)`)
	// SinkRegex matches annotations of the form "@Sink(id1, id2, id3)"
	SinkRegex = regexp.MustCompile(`//.*@Sink\(((?:\s*\w\s*,?)+)\)`)
)

// LPos is a position without column
type LPos struct {
	Filename string
	Line     int
}

func (p LPos) String() string {
	return fmt.Sprintf("%s:%d", p.Filename, p.Line)
}

// RemoveColumn drops the column of pos and keeps the base name of its file
func RemoveColumn(pos token.Position) LPos {
	return LPos{Line: pos.Line, Filename: filepath.Base(pos.Filename)}
}

// ExpectedFlows parses the Go files of dir and returns, for every sink annotation, the positions of the source
// annotations sharing one of its identifiers. File names are base names.
func ExpectedFlows(dir string) (map[LPos]map[LPos]bool, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	sourceIds := map[string][]LPos{}
	type sink struct {
		pos LPos
		ids []string
	}
	var sinks []sink
	for _, name := range files {
		f, err := parser.ParseFile(fset, name, nil, parser.ParseComments)
		if err != nil {
			return nil, err
		}
		for _, group := range f.Comments {
			for _, c := range group.List {
				pos := RemoveColumn(fset.Position(c.Pos()))
				if a := SourceRegex.FindStringSubmatch(c.Text); len(a) > 1 {
					for _, id := range idents(a[1]) {
						sourceIds[id] = append(sourceIds[id], pos)
					}
				}
				if a := SinkRegex.FindStringSubmatch(c.Text); len(a) > 1 {
					sinks = append(sinks, sink{pos, idents(a[1])})
				}
			}
		}
	}

	expected := map[LPos]map[LPos]bool{}
	for _, s := range sinks {
		for _, id := range s.ids {
			for _, src := range sourceIds[id] {
				if _, ok := expected[s.pos]; !ok {
					expected[s.pos] = map[LPos]bool{}
				}
				expected[s.pos][src] = true
			}
		}
	}
	return expected, nil
}

func idents(list string) []string {
	return funcutil.Map(strings.Split(list, ","), strings.TrimSpace)
}
