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

// Package ifds implements a generic IFDS tabulation solver over an interprocedural control-flow graph. The solver
// is parameterized by the statement type N, the fact type D and the method type M; a Problem supplies the flow
// functions and decides where derived facts go next, which is how the sparse data-flow graph and the method
// summaries plug into the solver.
//
// Work items run on a shared executor.Pool. A solver can be killed at any time: the remaining work items are
// discarded and the tables hold the facts derived so far.
package ifds

// ICFG is an interprocedural control-flow graph
type ICFG[N, M comparable] interface {
	SuccsOf(n N) []N
	PredsOf(n N) []N
	MethodOf(n N) M
	IsExitStmt(n N) bool
	IsStartPoint(n N) bool
	IsCallStmt(n N) bool
	// CalleesOfCallAt returns the callees with a body
	CalleesOfCallAt(n N) []M
	CallersOf(m M) []N
	StartPointsOf(m M) []N
	EndPointsOf(m M) []N
	ReturnSitesOfCallAt(n N) []N
}

type backwardICFG[N, M comparable] struct {
	fwd ICFG[N, M]
}

// Backward returns the reversed graph: successors are predecessors, start points are exits and the return sites of
// a call are the statements preceding it.
func Backward[N, M comparable](icfg ICFG[N, M]) ICFG[N, M] {
	if b, ok := icfg.(backwardICFG[N, M]); ok {
		return b.fwd
	}
	return backwardICFG[N, M]{fwd: icfg}
}

func (b backwardICFG[N, M]) SuccsOf(n N) []N             { return b.fwd.PredsOf(n) }
func (b backwardICFG[N, M]) PredsOf(n N) []N             { return b.fwd.SuccsOf(n) }
func (b backwardICFG[N, M]) MethodOf(n N) M              { return b.fwd.MethodOf(n) }
func (b backwardICFG[N, M]) IsExitStmt(n N) bool         { return b.fwd.IsStartPoint(n) }
func (b backwardICFG[N, M]) IsStartPoint(n N) bool       { return b.fwd.IsExitStmt(n) }
func (b backwardICFG[N, M]) IsCallStmt(n N) bool         { return b.fwd.IsCallStmt(n) }
func (b backwardICFG[N, M]) CalleesOfCallAt(n N) []M     { return b.fwd.CalleesOfCallAt(n) }
func (b backwardICFG[N, M]) CallersOf(m M) []N           { return b.fwd.CallersOf(m) }
func (b backwardICFG[N, M]) StartPointsOf(m M) []N       { return b.fwd.EndPointsOf(m) }
func (b backwardICFG[N, M]) EndPointsOf(m M) []N         { return b.fwd.StartPointsOf(m) }
func (b backwardICFG[N, M]) ReturnSitesOfCallAt(n N) []N { return b.fwd.PredsOf(n) }

// Problem supplies the flow functions of an IFDS problem.
//
// A path edge <d1, n, d2> means that d2 holds before n when d1 held at the start of n's method. The flow functions
// compute the facts holding after a statement; Successors then decides which statements each such fact must visit
// next. A dense problem returns the control-flow successors; a sparse one returns the next statements of the
// data-flow graph.
type Problem[N, D, M comparable] interface {
	// ZeroValue is the fact holding everywhere
	ZeroValue() D
	// InitialSeeds returns the facts holding before some statements when the analysis starts
	InitialSeeds() map[N][]D
	// NormalFlow returns the facts holding after n, given that d2 holds before n. At exit statements, these are the
	// facts leaving the method.
	NormalFlow(d1, d2 D, n N) []D
	// CallFlow returns the facts holding at the entry of callee, given that d2 holds before the call
	CallFlow(d1, d2 D, callSite N, callee M, entry N) []D
	// ReturnFlow returns the facts holding after callSite, given that d2 holds at the exit of callee entered with
	// calleeD1. callerD1 is the zero value for unbalanced returns.
	ReturnFlow(callerD1, calleeD1, d2 D, callSite N, callee M, exit N) []D
	// CallToReturnFlow returns the facts holding after callSite that do not go through the callees
	CallToReturnFlow(d1, d2 D, callSite N) []D
	// Successors returns the statements the fact d, holding after n, must visit next
	Successors(n N, d D) []N
	// FollowReturnsPastSeeds is true when facts reaching the exit of a method without calling context return to
	// every caller
	FollowReturnsPastSeeds() bool
}

// FollowReturnsPastSeedsHandler is notified when a fact leaves a method through an unbalanced return
type FollowReturnsPastSeedsHandler[N, D comparable] interface {
	HandleFollowReturnsPastSeeds(d1 D, exit N, d2 D)
}

// Hop is a fact delivered before a statement by a routing decision
type Hop[N, D comparable] struct {
	N N
	D D
}

// HopRouter is implemented by problems that can move a derived fact to other facts at distant statements, such
// as through method summaries. When Route returns false the solver falls back to Successors.
type HopRouter[N, D comparable] interface {
	Route(n N, d D) ([]Hop[N, D], bool)
}
