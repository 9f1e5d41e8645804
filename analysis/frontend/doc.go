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

/*
Package frontend translates Go programs into the program representation of the taint engine.

Packages are loaded with golang.org/x/tools/go/packages and built into SSA form. Every function of the analyzed
packages that has a body becomes an ir.Method whose statements follow the SSA instructions of the function:

  - registers and parameters are locals; the receiver of a method is bound with an identity statement;
  - field and element addresses are folded into the loads and stores that use them, so *(&x.f) = v is x.f = v;
  - a pointer and the object it points to are the same local, and a store through a pointer to a scalar writes
    the pseudo-field "*";
  - map, slice and channel accesses are array references;
  - a call returning several values returns a tuple object whose fields are named #0, #1 and so on;
  - globals are static fields.

Interface and closure calls are resolved with class hierarchy analysis. Calls to functions outside the analyzed
packages have no body and go through the taint wrapper.

The CodeIDManager classifies calls as sources and sinks with the code identifiers of the configuration.
*/
package frontend
