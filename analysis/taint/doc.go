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

// Package taint defines the forward taint problem solved by the tabulation solver.
//
// The flow functions of the problem are built from an ordered chain of rules. Each rule implements the flow
// kinds it cares about among NormalFlowRule, CallFlowRule, CallToReturnFlowRule and ReturnFlowRule. A rule may add
// facts to the result of a flow function, and it may ask for the incoming fact to be dropped (KillSource) or for
// the whole result to be dropped (KillAll).
//
// Facts are abstraction.IDs in the Arena of the Manager. Facts that are inactive aliases discovered by the
// aliasing strategy become active once they reach a statement that follows their activation unit.
//
// In sparse mode, a fact derived at a statement is sent directly to the next statements that touch its base in the
// sparse data-flow graph. When summaries are built, facts on the parameters of a method or on the result of a call
// are sent to the summary targets instead.
package taint
