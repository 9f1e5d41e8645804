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

// Package sparse builds the sparse data-flow graph of a program: for every method and every base local, a
// def-use graph restricted to the statements touching that local. The taint solvers query it to jump from the
// statement where a fact was derived directly to the next statements that may use it, instead of visiting every
// statement of the control-flow graph.
//
// The graph is built once per analysis run by Build and is read-only afterwards. It is passed explicitly to the
// components that need it.
package sparse

import (
	"fmt"

	"github.com/awslabs/sparseflow/analysis/config"
)

// ErrNotInitialized is the panic value of queries on a graph that has not been built
var ErrNotInitialized = fmt.Errorf("%w: data-flow graph queried before it was built", config.ErrConfiguration)

// Direction is the temporal direction of a data-flow graph
type Direction uint8

const (
	// Forward graphs link a definition to its next uses
	Forward Direction = iota
	// Backward graphs link a use to the previous statements touching the same base
	Backward
)

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "backward"
}
