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

// Flags are set by the rules while computing a flow function
type Flags struct {
	// KillSource drops the incoming fact from the result
	KillSource bool
	// KillAll drops the whole result, including the facts added by other rules
	KillAll bool
}

// A Rule contributes to the flow functions of the taint problem through the flow interfaces it implements
type Rule interface {
	Name() string
}

// NormalFlowRule is implemented by rules handling statements that are neither calls nor exits
type NormalFlowRule interface {
	Rule
	PropagateNormalFlow(d1, source abstraction.ID, stmt ir.Stmt, flags *Flags) []abstraction.ID
}

// CallFlowRule is implemented by rules mapping facts from a call site into a callee
type CallFlowRule interface {
	Rule
	PropagateCallFlow(d1, source abstraction.ID, stmt ir.Stmt, callee *ir.Method, flags *Flags) []abstraction.ID
}

// CallToReturnFlowRule is implemented by rules handling the facts that go around a call
type CallToReturnFlowRule interface {
	Rule
	PropagateCallToReturnFlow(d1, source abstraction.ID, stmt ir.Stmt, flags *Flags) []abstraction.ID
}

// ReturnFlowRule is implemented by rules mapping facts at the exit of a callee back to the call site. callerD1 is
// the zero fact for returns past seeds.
type ReturnFlowRule interface {
	Rule
	PropagateReturnFlow(callerD1, source abstraction.ID, exit, callSite ir.Stmt, callee *ir.Method,
		flags *Flags) []abstraction.ID
}

// RuleConstructor builds a rule for the manager of a run
type RuleConstructor func(m *Manager) Rule

// DefaultRules returns the constructors of the rules of the taint problem, in the order they are applied
func DefaultRules() []RuleConstructor {
	return []RuleConstructor{
		NewSourcePropagationRule,
		NewSinkPropagationRule,
		NewArrayPropagationRule,
		NewStrongUpdatePropagationRule,
		NewAssignmentPropagationRule,
		NewStaticPropagationRule,
		NewCallReturnPropagationRule,
		NewWrapperPropagationRule,
	}
}

// RuleChain applies rules in order. Rules are dispatched through the flow interfaces they implement.
type RuleChain struct {
	rules        []Rule
	normal       []NormalFlowRule
	call         []CallFlowRule
	callToReturn []CallToReturnFlowRule
	ret          []ReturnFlowRule
}

// NewRuleChain returns the chain of the given rules
func NewRuleChain(rules ...Rule) *RuleChain {
	c := &RuleChain{rules: rules}
	for _, r := range rules {
		if x, ok := r.(NormalFlowRule); ok {
			c.normal = append(c.normal, x)
		}
		if x, ok := r.(CallFlowRule); ok {
			c.call = append(c.call, x)
		}
		if x, ok := r.(CallToReturnFlowRule); ok {
			c.callToReturn = append(c.callToReturn, x)
		}
		if x, ok := r.(ReturnFlowRule); ok {
			c.ret = append(c.ret, x)
		}
	}
	return c
}

// Rules returns the rules of the chain
func (c *RuleChain) Rules() []Rule { return c.rules }

// NormalFlow returns the facts added by the rules at stmt and the resulting flags
func (c *RuleChain) NormalFlow(d1, source abstraction.ID, stmt ir.Stmt) ([]abstraction.ID, Flags) {
	var flags Flags
	var res []abstraction.ID
	for _, r := range c.normal {
		res = append(res, r.PropagateNormalFlow(d1, source, stmt, &flags)...)
		if flags.KillAll {
			return nil, flags
		}
	}
	return res, flags
}

// CallFlow returns the facts holding at the entry of callee
func (c *RuleChain) CallFlow(d1, source abstraction.ID, stmt ir.Stmt, callee *ir.Method) ([]abstraction.ID, Flags) {
	var flags Flags
	var res []abstraction.ID
	for _, r := range c.call {
		res = append(res, r.PropagateCallFlow(d1, source, stmt, callee, &flags)...)
		if flags.KillAll {
			return nil, flags
		}
	}
	return res, flags
}

// CallToReturnFlow returns the facts added by the rules around the call at stmt and the resulting flags
func (c *RuleChain) CallToReturnFlow(d1, source abstraction.ID, stmt ir.Stmt) ([]abstraction.ID, Flags) {
	var flags Flags
	var res []abstraction.ID
	for _, r := range c.callToReturn {
		res = append(res, r.PropagateCallToReturnFlow(d1, source, stmt, &flags)...)
		if flags.KillAll {
			return nil, flags
		}
	}
	return res, flags
}

// ReturnFlow returns the facts holding after callSite for the fact source at the exit of callee
func (c *RuleChain) ReturnFlow(callerD1, source abstraction.ID, exit, callSite ir.Stmt,
	callee *ir.Method) ([]abstraction.ID, Flags) {
	var flags Flags
	var res []abstraction.ID
	for _, r := range c.ret {
		res = append(res, r.PropagateReturnFlow(callerD1, source, exit, callSite, callee, &flags)...)
		if flags.KillAll {
			return nil, flags
		}
	}
	return res, flags
}
