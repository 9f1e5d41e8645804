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
	"github.com/awslabs/sparseflow/analysis/abstraction"
	"github.com/awslabs/sparseflow/analysis/ir"
)

// SourceInfo describes the taint introduced by a source statement
type SourceInfo struct {
	// Values are the values tainted after the statement. Locals are tainted with all their fields.
	Values []ir.Value
	// UserData is reported with every result of the source
	UserData any
}

// SourceSinkManager classifies statements as sources and sinks. Implementations must be free of side effects: the
// same statement may be queried many times, from several goroutines.
type SourceSinkManager interface {
	// SourceInfo returns the values tainted by stmt, or nil if stmt is not a source
	SourceInfo(stmt ir.Stmt) *SourceInfo
	// IsSink returns true if a fact on ap reaching stmt is a leak
	IsSink(stmt ir.Stmt, ap *abstraction.AccessPath) bool
}

// MethodSourceSinkManager is a SourceSinkManager matching calls by callee name. The results of calls to sources
// are tainted; calls to sinks leak the objects they receive as arguments or receiver.
type MethodSourceSinkManager struct {
	sources map[string]bool
	sinks   map[string]bool
}

// NewMethodSourceSinkManager returns a manager for the given source and sink method names
func NewMethodSourceSinkManager(sources, sinks []string) *MethodSourceSinkManager {
	m := &MethodSourceSinkManager{sources: map[string]bool{}, sinks: map[string]bool{}}
	for _, s := range sources {
		m.sources[s] = true
	}
	for _, s := range sinks {
		m.sinks[s] = true
	}
	return m
}

func (m *MethodSourceSinkManager) SourceInfo(stmt ir.Stmt) *SourceInfo {
	inv := ir.InvokeOf(stmt)
	if inv == nil || !m.sources[inv.Callee.Name] {
		return nil
	}
	if x := ir.DefinedLocal(stmt); x != nil {
		return &SourceInfo{Values: []ir.Value{x}, UserData: inv.Callee.Name}
	}
	return nil
}

func (m *MethodSourceSinkManager) IsSink(stmt ir.Stmt, ap *abstraction.AccessPath) bool {
	inv := ir.InvokeOf(stmt)
	if inv == nil || !m.sinks[inv.Callee.Name] {
		return false
	}
	return IsPassedTo(inv, ap.Base())
}

// IsPassedTo returns true if base is the receiver or one of the arguments of the call
func IsPassedTo(inv *ir.InvokeExpr, base *ir.Local) bool {
	if base == nil {
		return false
	}
	if inv.Base == base {
		return true
	}
	for _, a := range inv.Args {
		if a == ir.Value(base) {
			return true
		}
	}
	return false
}
