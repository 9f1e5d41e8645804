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

// SourcePropagationRule creates the facts of source statements out of the zero fact. The zero fact itself is never
// propagated further.
type SourcePropagationRule struct {
	m *Manager
}

// NewSourcePropagationRule returns the source rule of m
func NewSourcePropagationRule(m *Manager) Rule { return &SourcePropagationRule{m: m} }

func (r *SourcePropagationRule) Name() string { return "source" }

func (r *SourcePropagationRule) propagate(d1, source abstraction.ID, stmt ir.Stmt, flags *Flags,
	killAllOnMiss bool) []abstraction.ID {
	if source != abstraction.Zero {
		return nil
	}
	flags.KillSource = true
	info := r.m.SourceSinks.SourceInfo(stmt)
	if info == nil {
		if killAllOnMiss {
			flags.KillAll = true
		}
		return nil
	}
	var res []abstraction.ID
	for _, v := range info.Values {
		ap := r.m.Paths.FromValue(v, true)
		if ap == nil || (ap.IsStatic() && !r.m.Config.StaticFieldTracking) {
			continue
		}
		fact := r.m.Arena.Source(r.m.SourceContext(stmt, ap, info.UserData), stmt)
		res = append(res, fact)
		if _, isLocal := v.(*ir.Local); !isLocal {
			r.m.ComputeAliases(d1, stmt, fact)
		}
	}
	return res
}

func (r *SourcePropagationRule) PropagateNormalFlow(d1, source abstraction.ID, stmt ir.Stmt,
	flags *Flags) []abstraction.ID {
	return r.propagate(d1, source, stmt, flags, true)
}

func (r *SourcePropagationRule) PropagateCallToReturnFlow(d1, source abstraction.ID, stmt ir.Stmt,
	flags *Flags) []abstraction.ID {
	return r.propagate(d1, source, stmt, flags, false)
}

// PropagateCallFlow does not let facts into the callees of sources unless inspect-sources is set
func (r *SourcePropagationRule) PropagateCallFlow(_, _ abstraction.ID, stmt ir.Stmt, _ *ir.Method,
	flags *Flags) []abstraction.ID {
	if !r.m.Config.InspectSources && r.m.SourceSinks.SourceInfo(stmt) != nil {
		flags.KillAll = true
	}
	return nil
}

// SinkPropagationRule records a result when an active fact reaches a sink
type SinkPropagationRule struct {
	m *Manager
}

// NewSinkPropagationRule returns the sink rule of m
func NewSinkPropagationRule(m *Manager) Rule { return &SinkPropagationRule{m: m} }

func (r *SinkPropagationRule) Name() string { return "sink" }

func (r *SinkPropagationRule) check(source abstraction.ID, stmt ir.Stmt) {
	if source == abstraction.Zero {
		return
	}
	abs := r.m.Arena.Get(source)
	if !abs.IsActive() || !r.m.SourceSinks.IsSink(stmt, abs.AccessPath()) {
		return
	}
	if r.m.Results.Add(r.m.Arena, stmt, source) {
		r.m.Logger.Debugf("Sink reached: %s from %s", ir.StmtString(stmt), abs.Source())
	}
}

func (r *SinkPropagationRule) PropagateNormalFlow(_, source abstraction.ID, stmt ir.Stmt,
	_ *Flags) []abstraction.ID {
	r.check(source, stmt)
	return nil
}

func (r *SinkPropagationRule) PropagateCallToReturnFlow(_, source abstraction.ID, stmt ir.Stmt,
	_ *Flags) []abstraction.ID {
	r.check(source, stmt)
	return nil
}

// PropagateCallFlow does not let facts into the callees of sinks unless inspect-sinks is set
func (r *SinkPropagationRule) PropagateCallFlow(_, source abstraction.ID, stmt ir.Stmt, _ *ir.Method,
	flags *Flags) []abstraction.ID {
	if r.m.Config.InspectSinks || source == abstraction.Zero {
		return nil
	}
	if r.m.SourceSinks.IsSink(stmt, r.m.Arena.Get(source).AccessPath()) {
		flags.KillAll = true
	}
	return nil
}
