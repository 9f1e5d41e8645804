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

// Package stats implements the stats sub-command of sparseflow, which prints statistics about a converted program:
// its size, its recursive procedures and the size of its sparse data-flow graph.
package stats

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/analysis/frontend"
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/awslabs/sparseflow/analysis/sparse"
	"github.com/awslabs/sparseflow/cmd/sparseflow/tools"
	"github.com/awslabs/sparseflow/internal/formatutil"
	"github.com/awslabs/sparseflow/internal/graphutil"
)

// Usage of the stats sub-command
const Usage = ` Print statistics about the converted program.
Usage:
  sparseflow stats [options] <package path(s)>
Examples:
  % sparseflow stats -cycles package...
`

// Flags represents the parsed flags of the stats sub-command
type Flags struct {
	tools.CommonFlags
	cycles bool
}

// NewFlags returns the parsed flags of the stats sub-command
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("stats")
	cycles := flags.FlagSet.Bool("cycles", false, "enumerate the elementary cycles of the call graph")
	tools.SetUsage(flags.FlagSet, Usage)
	common, err := flags.Parse(args)
	if err != nil {
		return Flags{}, err
	}
	return Flags{CommonFlags: common, cycles: *cycles}, nil
}

// Stats summarizes a program
type Stats struct {
	Methods    int
	WithBody   int
	Statements int
	CallSites  int
	// Recursive are the sets of mutually recursive methods, by name
	Recursive [][]string
	// Cycles is the number of elementary cycles of the call graph, or -1 when not computed
	Cycles   int
	Forward  int
	Backward int
}

// Run prints the statistics of the program loaded with flags
func Run(flags Flags) error {
	cfg, err := tools.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	if flags.Verbose {
		cfg.LogLevel = int(config.DebugLevel)
	}
	logger := config.NewLogGroup(cfg)
	lp, err := frontend.Load(nil, flags.Platform, flags.FlagSet.Args())
	if err != nil {
		return fmt.Errorf("could not load program: %v", err)
	}
	prog, err := frontend.Convert(lp, logger, frontend.Options{Exclude: flags.Exclude, Dependencies: flags.Dependencies})
	if err != nil {
		return fmt.Errorf("could not load program: %v", err)
	}
	s, err := Compute(context.Background(), cfg, logger, prog.IR, flags.cycles)
	if err != nil {
		return err
	}
	Print(os.Stdout, formatutil.NewPalette(os.Stdout), s)
	return nil
}

// Compute returns the statistics of prog. The elementary cycles of the call graph are only enumerated when cycles
// is true.
func Compute(ctx context.Context, cfg *config.Config, logger *config.LogGroup, prog *ir.Program,
	cycles bool) (Stats, error) {
	methods := prog.Methods()
	s := Stats{Methods: len(methods), Statements: prog.NumStmts(), Cycles: -1}
	index := make(map[*ir.Method]int, len(methods))
	for i, m := range methods {
		index[m] = i
		if m.HasBody() {
			s.WithBody++
		}
		for _, st := range m.Body {
			if prog.IsCallStmt(st) {
				s.CallSites++
			}
		}
	}
	cg := graphutil.NewIndexGraph(len(methods), func(i int) []int {
		var succs []int
		for _, callee := range prog.CallGraphSuccessors(methods[i]) {
			if j, ok := index[callee]; ok {
				succs = append(succs, j)
			}
		}
		return succs
	})
	for _, component := range cg.RecursiveComponents() {
		names := make([]string, len(component))
		for i, id := range component {
			names[i] = methods[id].Name
		}
		s.Recursive = append(s.Recursive, names)
	}
	if cycles {
		s.Cycles = len(cg.ElementaryCycles())
	}

	dfg, err := sparse.Build(ctx, cfg, logger, prog)
	if err != nil {
		return s, fmt.Errorf("could not build the data-flow graph: %w", err)
	}
	s.Forward = dfg.NumNodes(sparse.Forward)
	s.Backward = dfg.NumNodes(sparse.Backward)
	return s, nil
}

// Print writes s to w
func Print(w io.Writer, pal *formatutil.Palette, s Stats) {
	fmt.Fprintf(w, "%s\n", pal.Bold("Program"))
	fmt.Fprintf(w, "  methods:            %d (%d with a body)\n", s.Methods, s.WithBody)
	fmt.Fprintf(w, "  statements:         %d\n", s.Statements)
	fmt.Fprintf(w, "  call sites:         %d\n", s.CallSites)
	fmt.Fprintf(w, "%s\n", pal.Bold("Call graph"))
	fmt.Fprintf(w, "  recursive groups:   %d\n", len(s.Recursive))
	for _, group := range s.Recursive {
		fmt.Fprintf(w, "    %s\n", pal.Cyan(fmt.Sprint(group)))
	}
	if s.Cycles >= 0 {
		fmt.Fprintf(w, "  elementary cycles:  %d\n", s.Cycles)
	}
	fmt.Fprintf(w, "%s\n", pal.Bold("Sparse data-flow graph"))
	fmt.Fprintf(w, "  forward nodes:      %d\n", s.Forward)
	fmt.Fprintf(w, "  backward nodes:     %d\n", s.Backward)
}
