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

package infoflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/awslabs/sparseflow/analysis/ifds"
	"github.com/awslabs/sparseflow/analysis/pathbuilder"
	"github.com/awslabs/sparseflow/analysis/taint"
)

// Results are the results of one run
type Results struct {
	// Leaks are the (source, sink) pairs found, with their witness paths when path reconstruction is enabled
	Leaks []pathbuilder.ResultPaths

	// Killed is set when the data-flow analysis was stopped before reaching its fixed point. Leaks are then a
	// subset of the leaks of a complete run.
	Killed bool

	// KillReason is the reason of the kill, nil if the run was not killed
	KillReason error

	// PathsKilled is set when path reconstruction was stopped before rebuilding every path
	PathsKilled bool

	Stats Stats
}

// Stats are counters collected during a run
type Stats struct {
	DFGNodes       int
	SummaryEntries int
	Sources        int
	Abstractions   int
	Forward        ifds.Stats
	Backward       ifds.Stats
	DataFlowTime   time.Duration
	PathTime       time.Duration
}

// Len returns the number of leaks
func (r *Results) Len() int { return len(r.Leaks) }

// Results returns the (source, sink) pairs without their paths
func (r *Results) Results() []*taint.Result {
	res := make([]*taint.Result, len(r.Leaks))
	for i, l := range r.Leaks {
		res[i] = l.Result
	}
	return res
}

func (r *Results) String() string {
	var b strings.Builder
	if r.Killed {
		fmt.Fprintf(&b, "analysis killed: %v\n", r.KillReason)
	}
	for _, l := range r.Leaks {
		fmt.Fprintf(&b, "%s\n", l.Result)
		for _, p := range l.Paths {
			fmt.Fprintf(&b, "\t%s\n", p)
		}
	}
	return b.String()
}

// ResultsHandler is notified of every new (source, sink) pair. When incremental results are enabled, handlers are
// called from the solver's workers as soon as a pair is found and must be safe for concurrent use; otherwise they
// are called once the data-flow analysis is done.
type ResultsHandler interface {
	OnResultFound(r *taint.Result)
}

// ResultsHandlerFunc adapts a function to a ResultsHandler
type ResultsHandlerFunc func(r *taint.Result)

// OnResultFound calls f(r)
func (f ResultsHandlerFunc) OnResultFound(r *taint.Result) { f(r) }

// ResultsAvailableHandler is notified once the results of a run, paths included, are complete
type ResultsAvailableHandler interface {
	OnResultsAvailable(res *Results)
}

// ResultsAvailableHandlerFunc adapts a function to a ResultsAvailableHandler
type ResultsAvailableHandlerFunc func(res *Results)

// OnResultsAvailable calls f(res)
func (f ResultsAvailableHandlerFunc) OnResultsAvailable(res *Results) { f(res) }
