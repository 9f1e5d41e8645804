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
Package config provides the options of a taint analysis run and the leveled loggers used by every analysis step.

Use [Load](filename) to load a configuration from a yaml file, or [NewDefault]() to obtain the default options.
Every loaded configuration is validated; [Config.Validate] returns a [ConfigError] when options are inconsistent,
for example when the sparse optimization is requested together with a solver that does not support it.

A valid config file is as follows:

	options:
	  log-level: 4
	  access-path-length: 3
	  aliasing: flow-sensitive
	  data-flow-timeout: 60
	sources:
	  - package: os
	    method: Getenv
	sinks:
	  - package: fmt
	    method: Printf

# Identifying code elements

The config uses [CodeIdentifier] to identify specific code entities. Sinks and sources are CodeIdentifiers
which identify specific functions in specific packages. The string specifications are seen as regexes if they can be
compiled to regexes, otherwise they are strings.
*/
package config
