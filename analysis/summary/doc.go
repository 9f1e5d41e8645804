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

// Package summary computes method summaries over the sparse data-flow graph.
//
// A summary of an entry, a parameter at the start of a method or the result of a call, tells where a fact on the
// entry's base goes before anything other than copies and field loads happens to it: a call, an exit, a heap
// write, or any statement the taint rules must see. The summaries of an entry are stored in a Graph, a trie keyed
// by the fields of the incoming fact.
//
// There are three kinds of summaries, which differ in the facts they apply to:
//
//   - an Ordinary summary at fields F applies to a fact whose fields are exactly F;
//   - a StrongUpdate summary at F applies to a fact whose fields start with F, and no summary deeper than F
//     applies to that fact: the value at F is overwritten at the summary target;
//   - a Kill summary at F with kill set K applies to a fact whose fields start with F, unless the field following F
//     is in K; such facts continue to deeper nodes only.
//
// Summaries are read-only once Build returns and may be queried concurrently.
package summary
