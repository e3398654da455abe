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
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxPathIDs is the default maximum number of acyclic paths of a procedure for the path expression engine
	DefaultMaxPathIDs = 4096
)

// Config contains the options of the definition-use analysis and the tools built on it.
// If some field is not defined in the config file, it will have its default value (see NewDefault).
// Private fields are not populated from a yaml file, but computed after loading.
type Config struct {
	Options `yaml:"options"`

	// ExcludedFields lists field names, in addition to the compiler-introduced fields, for which no heap DUA is
	// computed.
	ExcludedFields []string `yaml:"excluded-fields"`

	sourceFile string

	// if the PkgFilter is specified
	pkgFilterRegex *regexp.Regexp

	// warnings are the invalid values replaced when the config was parsed
	warnings []string
}

// Options are the analysis options.
type Options struct {
	// ReportsDir is the directory where reports are written. If empty, reports are written on the standard output.
	ReportsDir string `yaml:"reports-dir"`

	// PkgFilter is a filter for the loader to model only the functions whose package matches the regex, or the
	// prefix if it is not a valid regex.
	PkgFilter string `yaml:"pkg-filter"`

	// ParamsReturnsAsDefsUses treats formal parameters as definitions at the procedure entry, and actual arguments
	// and returned values as uses. When false, definitions in callers are linked to the uses of the formals in the
	// callees.
	ParamsReturnsAsDefsUses bool `yaml:"params-returns-as-defs-uses"`

	// IncludeObjectDUAs adds the DUAs of objects owned by code outside the program
	IncludeObjectDUAs bool `yaml:"include-object-duas"`

	// OnlyLocalDUAs skips the field, array element and object DUAs
	OnlyLocalDUAs bool `yaml:"only-local-duas"`

	// UseReachability enables the reachability oracle. When disabled, any node may reach any other node.
	UseReachability bool `yaml:"use-reachability"`

	// UseDominance enables the dominance and post-dominance oracle. When disabled, no order is ever guaranteed.
	UseDominance bool `yaml:"use-dominance"`

	// PathExpressions runs the path expression engine on every DUA
	PathExpressions bool `yaml:"path-expressions"`

	// MaxPathIDs bounds the number of acyclic paths of a procedure for the path expression engine. Procedures with
	// more paths are skipped.
	MaxPathIDs int `yaml:"max-path-ids"`

	// LogLevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// SilenceWarn suppresses warnings
	SilenceWarn bool `yaml:"silence-warn"`
}

// NewDefault returns the default config: both oracles enabled, interprocedural links, all heap DUAs but objects.
func NewDefault() *Config {
	return &Config{
		ExcludedFields: nil,
		Options: Options{
			ReportsDir:              "",
			PkgFilter:               "",
			ParamsReturnsAsDefsUses: false,
			IncludeObjectDUAs:       false,
			OnlyLocalDUAs:           false,
			UseReachability:         true,
			UseDominance:            true,
			PathExpressions:         false,
			MaxPathIDs:              DefaultMaxPathIDs,
			LogLevel:                int(InfoLevel),
			SilenceWarn:             false,
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	return Parse(filename, b)
}

// Parse reads a configuration from the yaml contents b. The filename is used to resolve relative paths.
func Parse(filename string, b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file %s: %w", filename, err)
	}
	cfg.sourceFile = filename

	if cfg.ReportsDir != "" && !path.IsAbs(cfg.ReportsDir) {
		cfg.ReportsDir = cfg.RelPath(cfg.ReportsDir)
	}
	cfg.normalize()
	return cfg, nil
}

// normalize replaces unset or invalid values by their defaults. Every invalid value is recorded in the warnings.
func (c *Config) normalize() {
	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if c.LogLevel == 0 {
		c.LogLevel = int(InfoLevel)
	}
	if c.MaxPathIDs <= 0 {
		c.warnf("max-path-ids %d is not positive, using %d", c.MaxPathIDs, DefaultMaxPathIDs)
		c.MaxPathIDs = DefaultMaxPathIDs
	}
	if c.PkgFilter != "" {
		r, err := regexp.Compile(c.PkgFilter)
		if err == nil {
			c.pkgFilterRegex = r
		} else {
			c.warnf("pkg-filter %q is not a valid regex (%v), matching it as a package prefix", c.PkgFilter, err)
		}
	}
}

func (c *Config) warnf(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// Warnings returns the invalid values of the config file that were replaced when it was parsed. Tools print them
// with LogGroup.Warnf once a logger exists.
func (c Config) Warnings() []string {
	return c.warnings
}

// CreateReportsDir creates the reports directory if it is set and does not exist yet.
func (c Config) CreateReportsDir() error {
	if c.ReportsDir == "" {
		return nil
	}
	err := os.Mkdir(c.ReportsDir, 0750)
	if err != nil && !os.IsExist(err) {
		return fmt.Errorf("could not create directory %s: %w", c.ReportsDir, err)
	}
	return nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// MatchPkgFilter returns true if the package name pkgname matches the package filter set in the config file. If no
// package filter has been set in the config file, the regex will match anything and return true. This function safely
// considers the case where a filter has been specified by the user, but it could not be compiled to a regex. The safe
// case is to check whether the package filter string is a prefix of the pkgname
func (c Config) MatchPkgFilter(pkgname string) bool {
	if c.pkgFilterRegex != nil {
		return c.pkgFilterRegex.MatchString(pkgname)
	} else if c.PkgFilter != "" {
		return strings.HasPrefix(pkgname, c.PkgFilter)
	} else {
		return true
	}
}

// OrderOraclesDisabled returns true when neither the reachability nor the dominance oracle is enabled, in which case
// the order between two nodes is never guaranteed.
func (c Config) OrderOraclesDisabled() bool {
	return !c.UseReachability && !c.UseDominance
}

// Verbose returns true is the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}
