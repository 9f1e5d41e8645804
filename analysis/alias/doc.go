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

// Package alias implements the aliasing strategies of the taint analysis.
//
// When the forward solver taints a heap location, other references to the same object may become tainted too. The
// flow-sensitive strategy finds them with a backward IFDS solver sharing the forward solver's executor: the tainted
// location travels backwards as an inactive fact, and every alias found on the way is injected into the forward
// solver. Injected facts activate once they reach a statement that may execute after the write, which keeps the
// analysis flow-sensitive.
//
// The points-to based strategy groups locals linked by copies into alias classes, once per method, and injects
// the other members of a class at the write. The lazy strategy uses the same classes, but only when rules match
// bases at use sites. The none strategy disables aliasing.
package alias
