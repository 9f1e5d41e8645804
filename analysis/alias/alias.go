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

package alias

import (
	"fmt"

	"github.com/awslabs/sparseflow/analysis/abstraction"
	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/awslabs/sparseflow/analysis/taint"
	"github.com/awslabs/sparseflow/internal/executor"
)

// ShapeError is the panic value raised when an alias fact reaches a statement whose shape the backward analysis
// cannot handle. The executor turns it into the error of the run.
type ShapeError struct {
	Stmt   ir.Stmt
	Fact   *abstraction.AccessPath
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("unsupported shape at %s for %s: %s", ir.StmtString(e.Stmt), e.Fact, e.Reason)
}

// New returns the aliasing strategy of the given kind for the run of m. The flow-sensitive strategy schedules its
// work on pool.
func New(kind config.AliasingAlgorithm, m *taint.Manager, pool *executor.Pool) (taint.Aliasing, error) {
	switch kind {
	case config.FlowSensitiveAliasing:
		return NewFlowSensitive(m, pool), nil
	case config.PtsBasedAliasing:
		return NewPtsBased(m), nil
	case config.LazyAliasing:
		return NewLazy(m), nil
	case config.NoAliasing:
		return None{}, nil
	}
	return nil, fmt.Errorf("%w: unknown aliasing algorithm %q", config.ErrConfiguration, kind)
}

// None is the strategy that never finds aliases
type None struct{}

func (None) ComputeAliases(abstraction.ID, ir.Stmt, abstraction.ID) {}

func (None) InjectCallingContext(*ir.Method, abstraction.ID, ir.Stmt, abstraction.ID, abstraction.ID) {}

func (None) MayAlias(ir.Stmt, *ir.Local, *ir.Local) bool { return false }
