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

package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/awslabs/sparseflow/internal/funcutil"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAccessPathLength is the default maximum number of fields of an access path
	DefaultAccessPathLength = 5
	// DefaultMaxPathsPerResult bounds the number of witness paths reported per (source, sink) pair
	DefaultMaxPathsPerResult = 10
	// DefaultMaxPathLength bounds the number of steps of a witness path
	DefaultMaxPathLength = 100
)

// Config is the configuration of an analysis run. Private fields are not populated from a yaml file, but computed
// after initialization.
type Config struct {
	Options `yaml:"options"`

	sourceFile string

	// Sources identifies the calls whose results are tainted
	Sources []CodeIdentifier `yaml:"sources"`

	// Sinks identifies the calls whose arguments must not be tainted
	Sinks []CodeIdentifier `yaml:"sinks"`
}

// Options are the flat, named options read once per run
type Options struct {
	// AccessPathLength is the maximum number of fields in an access path. Longer paths are truncated and taint all
	// their sub-fields.
	AccessPathLength int `yaml:"access-path-length"`

	// ImplicitFlows enables tracking of array indexes and branch conditions
	ImplicitFlows bool `yaml:"implicit-flows"`

	// StaticFieldTracking enables tracking taint through static fields (globals)
	StaticFieldTracking bool `yaml:"static-field-tracking"`

	// SparseOptimization narrows propagation to the statements of the sparse data-flow graph
	SparseOptimization bool `yaml:"sparse-optimization"`

	// Solver is the data-flow solver variant
	Solver SolverKind `yaml:"solver"`

	// Aliasing is the aliasing algorithm
	Aliasing AliasingAlgorithm `yaml:"aliasing"`

	// MaxThreads caps the worker pool. 0 means the number of CPUs minus one.
	MaxThreads int `yaml:"max-threads"`

	// DataFlowTimeout is the timeout of the data-flow analysis in seconds; 0 is unbounded
	DataFlowTimeout int `yaml:"data-flow-timeout"`

	// PathReconstructionTimeout is the timeout of the path reconstruction in seconds; 0 is unbounded
	PathReconstructionTimeout int `yaml:"path-reconstruction-timeout"`

	// IncrementalResults reports every (source, sink) pair as soon as it is found
	IncrementalResults bool `yaml:"incremental-results"`

	// InspectSources lets taint enter the callees of source calls
	InspectSources bool `yaml:"inspect-sources"`

	// InspectSinks lets taint enter the callees of sink calls
	InspectSinks bool `yaml:"inspect-sinks"`

	// ArraySizeTainting taints an array allocated with a tainted size
	ArraySizeTainting bool `yaml:"array-size-tainting"`

	// FollowReturnsPastSeeds returns taint to every caller of a procedure that was reached without a call edge
	FollowReturnsPastSeeds bool `yaml:"follow-returns-past-seeds"`

	// Summaries enables the per-procedure summary tables
	Summaries bool `yaml:"summaries"`

	// PathReconstruction selects how witness paths are rebuilt
	PathReconstruction PathReconstructionMode `yaml:"path-reconstruction"`

	// MaxPathsPerResult bounds the number of witness paths per (source, sink) pair
	MaxPathsPerResult int `yaml:"max-paths-per-result"`

	// MaxPathLength bounds the length of a witness path
	MaxPathLength int `yaml:"max-path-length"`

	// MaxMemoryMB kills the data-flow analysis when the heap grows over this size; 0 is unlimited
	MaxMemoryMB int `yaml:"max-memory-mb"`

	// TaintWrapper propagates taint from the arguments to the result of calls without a body
	TaintWrapper bool `yaml:"taint-wrapper"`

	// LogLevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// ReportsDir is the directory where reports are stored. If ReportSummaries is set and ReportsDir is empty, a
	// temporary directory is created next to the config file.
	ReportsDir string `yaml:"reports-dir"`

	// ReportSummaries writes a compressed dump of the summary tables in the reports directory
	ReportSummaries bool `yaml:"report-summaries"`
}

// NewDefault returns a default config
func NewDefault() *Config {
	return &Config{
		Options: Options{
			AccessPathLength:       DefaultAccessPathLength,
			StaticFieldTracking:    true,
			SparseOptimization:     true,
			Solver:                 ContextFlowSensitiveSolver,
			Aliasing:               FlowSensitiveAliasing,
			FollowReturnsPastSeeds: true,
			PathReconstruction:     FastPaths,
			MaxPathsPerResult:      DefaultMaxPathsPerResult,
			MaxPathLength:          DefaultMaxPathLength,
			TaintWrapper:           true,
			LogLevel:               int(InfoLevel),
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	cfg := NewDefault()
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file: %w", err)
	}

	cfg.sourceFile = filename

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}

	cfg.Sources = funcutil.Map(cfg.Sources, compileRegexes)
	cfg.Sinks = funcutil.Map(cfg.Sinks, compileRegexes)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.ReportSummaries {
		if err := setReportsDir(cfg, filename); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func setReportsDir(c *Config, filename string) error {
	if c.ReportsDir == "" {
		tmpdir, err := os.MkdirTemp(path.Dir(filename), "*-report")
		if err != nil {
			return fmt.Errorf("could not create temp dir for reports: %w", err)
		}
		c.ReportsDir = tmpdir
		return nil
	}
	if err := os.Mkdir(c.ReportsDir, 0750); err != nil && !os.IsExist(err) {
		return fmt.Errorf("could not create directory %s: %w", c.ReportsDir, err)
	}
	return nil
}

// Validate checks option combinations. The returned error, if any, is a *ConfigError.
func (c *Config) Validate() error {
	if c.AccessPathLength < 0 {
		return newConfigError("access-path-length", "must be non-negative, got %d", c.AccessPathLength)
	}
	if c.StaticFieldTracking && c.AccessPathLength == 0 {
		return newConfigError("static-field-tracking", "static fields cannot be tracked with zero-length access paths")
	}
	if !c.Solver.valid() {
		return newConfigError("solver", "unknown solver %q", c.Solver)
	}
	if !c.Aliasing.valid() {
		return newConfigError("aliasing", "unknown aliasing algorithm %q", c.Aliasing)
	}
	if !c.PathReconstruction.valid() {
		return newConfigError("path-reconstruction", "unknown mode %q", c.PathReconstruction)
	}
	if c.SparseOptimization && c.Solver != ContextFlowSensitiveSolver {
		return newConfigError("sparse-optimization", "only supported by the %s solver, not %s",
			ContextFlowSensitiveSolver, c.Solver)
	}
	if c.Summaries && !c.SparseOptimization {
		return newConfigError("summaries", "summaries are computed on the sparse data-flow graph")
	}
	for name, v := range map[string]int{
		"max-threads":                 c.MaxThreads,
		"data-flow-timeout":           c.DataFlowTimeout,
		"path-reconstruction-timeout": c.PathReconstructionTimeout,
		"max-memory-mb":               c.MaxMemoryMB,
		"max-paths-per-result":        c.MaxPathsPerResult,
		"max-path-length":             c.MaxPathLength,
	} {
		if v < 0 {
			return newConfigError(name, "must be non-negative, got %d", v)
		}
	}
	return nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// Verbose returns true is the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}

// NumThreads returns the number of worker goroutines for the run
func (c Config) NumThreads(numCPU int) int {
	if c.MaxThreads > 0 {
		return c.MaxThreads
	}
	if numCPU-1 < 1 {
		return 1
	}
	return numCPU - 1
}

// DataFlowTimeoutDuration returns the data-flow timeout, 0 if unbounded
func (c Config) DataFlowTimeoutDuration() time.Duration {
	return time.Duration(c.DataFlowTimeout) * time.Second
}

// PathTimeoutDuration returns the path reconstruction timeout, 0 if unbounded
func (c Config) PathTimeoutDuration() time.Duration {
	return time.Duration(c.PathReconstructionTimeout) * time.Second
}

// IsSomeSource returns true if the code identifier matches a source of the config
func (c Config) IsSomeSource(cid CodeIdentifier) bool {
	return cid.MatchesAny(c.Sources)
}

// IsSomeSink returns true if the code identifier matches a sink of the config
func (c Config) IsSomeSink(cid CodeIdentifier) bool {
	return cid.MatchesAny(c.Sinks)
}
