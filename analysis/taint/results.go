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
	"fmt"
	"sort"
	"sync"

	"github.com/awslabs/sparseflow/analysis/abstraction"
	"github.com/awslabs/sparseflow/analysis/ir"
)

// A Result is a flow from a source statement to a sink statement
type Result struct {
	Sink     ir.Stmt
	SinkPath *abstraction.AccessPath
	Source   *abstraction.SourceContext
	// Facts are the facts that reached the sink from this source, in discovery order
	Facts []abstraction.ID
}

func (r *Result) String() string {
	return fmt.Sprintf("%s reaches %s @ %s", r.Source, r.SinkPath, ir.StmtString(r.Sink))
}

// UserData returns the user data of the source
func (r *Result) UserData() any {
	if r.Source == nil {
		return nil
	}
	return r.Source.UserData
}

type resultKey struct {
	sink   ir.Stmt
	source *abstraction.SourceContext
}

// ResultSet collects the results of a run. Results are identified by their (sink, source) pair.
type ResultSet struct {
	mu       sync.Mutex
	results  map[resultKey]*Result
	handlers []func(*Result)
}

// NewResultSet returns an empty result set
func NewResultSet() *ResultSet {
	return &ResultSet{results: map[resultKey]*Result{}}
}

// OnNewResult registers f to be called with a snapshot of each new (source, sink) pair as soon as it is found
func (rs *ResultSet) OnNewResult(f func(*Result)) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.handlers = append(rs.handlers, f)
}

// Add records that fact reached sink. It returns true if the (source, sink) pair is new.
func (rs *ResultSet) Add(arena *abstraction.Arena, sink ir.Stmt, fact abstraction.ID) bool {
	abs := arena.Get(fact)
	key := resultKey{sink: sink, source: abs.Source()}

	rs.mu.Lock()
	if r, ok := rs.results[key]; ok {
		for _, f := range r.Facts {
			if f == fact {
				rs.mu.Unlock()
				return false
			}
		}
		r.Facts = append(r.Facts, fact)
		rs.mu.Unlock()
		return false
	}
	r := &Result{Sink: sink, SinkPath: abs.AccessPath(), Source: abs.Source(), Facts: []abstraction.ID{fact}}
	rs.results[key] = r
	snapshot := *r
	snapshot.Facts = []abstraction.ID{fact}
	handlers := rs.handlers
	rs.mu.Unlock()

	for _, h := range handlers {
		h(&snapshot)
	}
	return true
}

// Len returns the number of (source, sink) pairs
func (rs *ResultSet) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.results)
}

// Results returns the results ordered by sink and then by source
func (rs *ResultSet) Results() []*Result {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	res := make([]*Result, 0, len(rs.results))
	for _, r := range rs.results {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool {
		si, sj := ir.StmtString(res[i].Sink), ir.StmtString(res[j].Sink)
		if si != sj {
			return si < sj
		}
		return res[i].Source.String() < res[j].Source.String()
	})
	return res
}

// RemoveEntailed drops, for every result, the facts whose access path is entailed by the access path of another
// fact of the same result
func (rs *ResultSet) RemoveEntailed(arena *abstraction.Arena) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, r := range rs.results {
		var kept []abstraction.ID
		for i, f := range r.Facts {
			ap := arena.Get(f).AccessPath()
			entailed := false
			for j, g := range r.Facts {
				other := arena.Get(g).AccessPath()
				if i != j && other != ap && other.Entails(ap) {
					entailed = true
					break
				}
			}
			if !entailed {
				kept = append(kept, f)
			}
		}
		if len(kept) > 0 {
			r.Facts = kept
			r.SinkPath = arena.Get(kept[0]).AccessPath()
		}
	}
}
