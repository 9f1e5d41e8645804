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

package frontend

import (
	"github.com/awslabs/sparseflow/analysis/abstraction"
	"github.com/awslabs/sparseflow/analysis/config"
	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/awslabs/sparseflow/analysis/taint"
)

// CodeIDManager is a taint.SourceSinkManager matching the calls of a converted program against the sources and
// sinks of a configuration. The result of a call to a source is tainted; a call to a sink leaks its arguments and
// receiver.
type CodeIDManager struct {
	cfg  *config.Config
	prog *Program
}

var _ taint.SourceSinkManager = (*CodeIDManager)(nil)

// NewCodeIDManager returns the source and sink manager of prog for cfg
func NewCodeIDManager(cfg *config.Config, prog *Program) *CodeIDManager {
	return &CodeIDManager{cfg: cfg, prog: prog}
}

// SourceInfo returns the local defined by a call to a source. The user data of the source is its code identifier.
func (m *CodeIDManager) SourceInfo(stmt ir.Stmt) *taint.SourceInfo {
	cid, ok := m.prog.CodeID(stmt)
	if !ok || !m.cfg.IsSomeSource(cid) {
		return nil
	}
	x := ir.DefinedLocal(stmt)
	if x == nil {
		return nil
	}
	return &taint.SourceInfo{Values: []ir.Value{x}, UserData: cid}
}

// IsSink returns true if stmt calls a sink and ap is rooted at one of its arguments or its receiver
func (m *CodeIDManager) IsSink(stmt ir.Stmt, ap *abstraction.AccessPath) bool {
	cid, ok := m.prog.CodeID(stmt)
	if !ok || !m.cfg.IsSomeSink(cid) {
		return false
	}
	return taint.IsPassedTo(ir.InvokeOf(stmt), ap.Base())
}
