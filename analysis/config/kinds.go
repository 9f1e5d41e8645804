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

// SolverKind selects the data-flow solver variant
type SolverKind string

const (
	// ContextFlowSensitiveSolver is the default context- and flow-sensitive tabulation solver. It is the only solver
	// that supports the sparse optimization.
	ContextFlowSensitiveSolver SolverKind = "context-flow-sensitive"
	// FlowInsensitiveSolver ignores statement order inside a procedure: a fact that reaches a procedure reaches all
	// of its statements.
	FlowInsensitiveSolver SolverKind = "flow-insensitive"
	// LegacySolver is the sequential dense solver
	LegacySolver SolverKind = "legacy"
)

// AliasingAlgorithm selects the aliasing strategy
type AliasingAlgorithm string

const (
	// FlowSensitiveAliasing runs a backward alias solver in lock-step with the forward taint solver
	FlowSensitiveAliasing AliasingAlgorithm = "flow-sensitive"
	// PtsBasedAliasing computes alias classes once per procedure, independently of flow
	PtsBasedAliasing AliasingAlgorithm = "pts-based"
	// NoAliasing disables alias computation
	NoAliasing AliasingAlgorithm = "none"
	// LazyAliasing resolves aliases at use sites
	LazyAliasing AliasingAlgorithm = "lazy"
)

// PathReconstructionMode selects how witness paths are rebuilt after the data-flow analysis
type PathReconstructionMode string

const (
	// NoPaths only reports (source, sink) pairs
	NoPaths PathReconstructionMode = "none"
	// FastPaths follows predecessor links and reports one path per result
	FastPaths PathReconstructionMode = "fast"
	// PrecisePaths also explores neighbors and reports several paths per result
	PrecisePaths PathReconstructionMode = "precise"
)

func (k SolverKind) valid() bool {
	switch k {
	case ContextFlowSensitiveSolver, FlowInsensitiveSolver, LegacySolver:
		return true
	}
	return false
}

func (a AliasingAlgorithm) valid() bool {
	switch a {
	case FlowSensitiveAliasing, PtsBasedAliasing, NoAliasing, LazyAliasing:
		return true
	}
	return false
}

func (p PathReconstructionMode) valid() bool {
	switch p {
	case NoPaths, FastPaths, PrecisePaths:
		return true
	}
	return false
}
