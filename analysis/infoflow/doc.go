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
Package infoflow runs a complete taint analysis over a program.

An Analyzer validates its configuration, builds the sparse data-flow graph and the optional summary tables, solves
the taint problem with the configured aliasing strategy and rebuilds the witness paths of the results. The data-flow
analysis runs under a timeout and a memory watchdog; when either fires the run is killed and the partial results are
reported with Results.Killed set.

	a := infoflow.New(cfg, logger)
	res, err := a.Analyze(ctx, prog, sourceSinks)
*/
package infoflow
