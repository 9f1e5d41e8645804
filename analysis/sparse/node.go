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

package sparse

import (
	"fmt"
	"sort"

	"github.com/awslabs/sparseflow/analysis/ir"
)

// EntryKey identifies a touch of a base by a statement
type EntryKey struct {
	Stmt  ir.Stmt
	Base  *ir.Local
	Field *ir.Field
	// IsOriginal is false for implicit touches
	IsOriginal bool
	IsLeft     bool
}

// Node is a node of the sparse data-flow graph. All the nodes of the same statement and base share their
// successors.
type Node struct {
	Stmt ir.Stmt
	Base *ir.Local
	// Value is the base for touches appearing in the statement and nil for the implicit touches at method boundaries
	// and call sites
	Value  ir.Value
	Field  *ir.Field
	IsLeft bool
	Dir    Direction
	shared *nodeInfo
}

type nodeInfo struct {
	touch *BaseInfoStmt
	succs map[*ir.Field][]*Node
}

// Key returns the entry key of the node
func (n *Node) Key() EntryKey {
	return EntryKey{Stmt: n.Stmt, Base: n.Base, Field: n.Field, IsOriginal: n.Value != nil, IsLeft: n.IsLeft}
}

// Touches returns true if a fact on the node's base keyed by field must visit the node's statement
func (n *Node) Touches(field *ir.Field) bool {
	return n.shared.touch.Touches(field)
}

// IsDefinition returns true if the statement writes the base as a whole
func (n *Node) IsDefinition() bool {
	return n.shared.touch.LeftField == ir.BaseField
}

// LeftField returns the field of the base written by the statement, nil if the statement does not write the base
func (n *Node) LeftField() *ir.Field {
	return n.shared.touch.LeftField
}

// Succs returns the next nodes a fact on the base keyed by field reaches. Fields without their own edges use the
// edges of ir.BaseField.
func (n *Node) Succs(field *ir.Field) []*Node {
	if succs, ok := n.shared.succs[field]; ok {
		return succs
	}
	return n.shared.succs[ir.BaseField]
}

// Keys returns the fields that have their own successor edges, ir.BaseField first
func (n *Node) Keys() []*ir.Field {
	keys := make([]*ir.Field, 0, len(n.shared.succs))
	for f := range n.shared.succs {
		if f != ir.BaseField {
			keys = append(keys, f)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Name < keys[j].Name })
	return append([]*ir.Field{ir.BaseField}, keys...)
}

func (n *Node) String() string {
	side := "R"
	if n.IsLeft {
		side = "L"
	}
	value := "<implicit>"
	if n.Value != nil {
		value = n.Value.String()
	}
	return fmt.Sprintf("[%s %s %s.%s %s] %s", n.Dir, side, value, n.Field, n.Base, ir.StmtString(n.Stmt))
}
