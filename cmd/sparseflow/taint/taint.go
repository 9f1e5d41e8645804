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
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/analysis/frontend"
	"github.com/awslabs/sparseflow/analysis/infoflow"
	"github.com/awslabs/sparseflow/cmd/sparseflow/tools"
	"github.com/awslabs/sparseflow/internal/formatutil"
)

// Usage of the taint sub-command
const Usage = ` Perform the sparse taint analysis on your packages.
Usage:
  sparseflow taint [options] <package path(s)>
Examples:
  % sparseflow taint -config config.yaml package...
`

// Flags represents the parsed flags for the taint analysis.
type Flags struct {
	tools.CommonFlags
	timeout int
}

// NewFlags returns the parsed flags for the taint analysis with args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("taint")
	timeout := flags.FlagSet.Int("timeout", -1, "override the data-flow timeout of the config, in seconds")
	tools.SetUsage(flags.FlagSet, Usage)
	common, err := flags.Parse(args)
	if err != nil {
		return Flags{}, err
	}
	return Flags{CommonFlags: common, timeout: *timeout}, nil
}

// Run runs the taint analysis with flags. The analysis is cancelled on SIGINT.
func Run(flags Flags) error {
	cfg, err := tools.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	if flags.Verbose {
		cfg.LogLevel = int(config.DebugLevel)
	}
	if flags.timeout >= 0 {
		cfg.DataFlowTimeout = flags.timeout
	}
	logger := config.NewLogGroup(cfg)
	pal := formatutil.NewPalette(os.Stdout)

	logger.Infof("%s", pal.Faint("sparseflow taint - "+tools.Version))
	logger.Infof("%s", pal.Faint("Reading sources"))
	lp, err := frontend.Load(nil, flags.Platform, flags.FlagSet.Args())
	if err != nil {
		return fmt.Errorf("could not load program: %v", err)
	}
	prog, err := frontend.Convert(lp, logger, frontend.Options{Exclude: flags.Exclude, Dependencies: flags.Dependencies})
	if err != nil {
		return fmt.Errorf("could not load program: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	start := time.Now()
	res, err := infoflow.New(cfg, logger).Analyze(ctx, prog.IR, frontend.NewCodeIDManager(cfg, prog))
	if err != nil {
		return fmt.Errorf("taint analysis failed: %w", err)
	}
	logger.Infof("")
	logger.Infof(strings.Repeat("*", 80))
	logger.Infof("Analysis took %3.4f s", time.Since(start).Seconds())
	Report(os.Stdout, pal, prog, res)
	if res.Killed {
		return fmt.Errorf("analysis killed: %w", res.KillReason)
	}
	return nil
}

// Report writes the leaks of res and their witness paths to w
func Report(w io.Writer, pal *formatutil.Palette, prog *frontend.Program, res *infoflow.Results) {
	if res.Len() == 0 {
		fmt.Fprintf(w, "RESULT:\n\t\t%s\n", pal.Green("No taint flows detected ✓"))
		return
	}
	fmt.Fprintf(w, "RESULT:\n\t\t%s\n", pal.Red(fmt.Sprintf("%d taint flows detected!", res.Len())))
	for _, leak := range res.Leaks {
		r := leak.Result
		fmt.Fprintf(w, "%s in function %s:\n\tSource: %s\n\t\t%s\n\tSink: %s\n\t\t%s\n",
			pal.Red("Data from a source has reached a sink"),
			prog.IR.MethodOf(r.Sink),
			formatutil.Sanitize(r.Source.Stmt.String()),
			r.Source.Stmt.Pos(),
			formatutil.Sanitize(r.Sink.String()),
			r.Sink.Pos())
		for i, path := range leak.Paths {
			fmt.Fprintf(w, "\t%s\n", pal.Faint(fmt.Sprintf("Path %d:", i+1)))
			for _, step := range path {
				fmt.Fprintf(w, "\t\t%s %s\n", formatutil.Sanitize(step.String()), pal.Faint(step.Stmt.Pos()))
			}
		}
	}
	if res.PathsKilled {
		fmt.Fprintf(w, "%s\n", pal.Yellow("Path reconstruction was stopped; some paths may be missing"))
	}
}
