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

// Package ir defines the program representation consumed by the taint engine: methods made of three-address
// statements over locals, field references and calls, linked into an interprocedural control-flow graph.
//
// Programs are built with a Builder, either by hand in tests or by the Go front end from SSA. Once built, a
// Program is immutable and safe for concurrent reads.
package ir
