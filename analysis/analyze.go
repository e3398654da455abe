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

// Package analysis runs the definition-use analysis on a program model and loads the Go packages it is built
// from.
package analysis

import (
	"fmt"
	"time"

	"github.com/awslabs/ar-go-dua/analysis/config"
	"github.com/awslabs/ar-go-dua/analysis/dua"
	"github.com/awslabs/ar-go-dua/analysis/order"
	"github.com/awslabs/ar-go-dua/analysis/pathexpr"
	"github.com/awslabs/ar-go-dua/analysis/program"
)

// Stats summarizes the result of an analysis
type Stats struct {
	Procedures      int `json:"procedures" msgpack:"procedures"`
	DUAs            int `json:"duas" msgpack:"duas"`
	Definite        int `json:"definite" msgpack:"definite"`
	Conditional     int `json:"conditional" msgpack:"conditional"`
	NonInferrable   int `json:"nonInferrable" msgpack:"nonInferrable"`
	Heap            int `json:"heap" msgpack:"heap"`
	Interprocedural int `json:"interprocedural" msgpack:"interprocedural"`
	PathExpressions int `json:"pathExpressions" msgpack:"pathExpressions"`
	PathWarnings    int `json:"pathWarnings" msgpack:"pathWarnings"`
	// PathsSkipped is true if path expressions were requested but not computed
	PathsSkipped bool `json:"pathsSkipped" msgpack:"pathsSkipped"`
}

func (s Stats) String() string {
	return fmt.Sprintf("%d DUAs in %d procedures: %d definitely inferrable, %d conditionally inferrable, "+
		"%d non-inferrable; %d heap, %d interprocedural; %d path expressions, %d with warnings",
		s.DUAs, s.Procedures, s.Definite, s.Conditional, s.NonInferrable, s.Heap, s.Interprocedural,
		s.PathExpressions, s.PathWarnings)
}

// Result is the result of the analysis of a program
type Result struct {
	// Program is the program analyzed
	Program *program.Program

	// Set contains all the DUAs of the program, in def-then-use order
	Set *dua.Set

	// Paths maps the index of a DUA in the set to its path expression, when path expressions are enabled
	Paths map[int]*pathexpr.DUAPaths

	Stats Stats
}

// Analyze computes the DUAs of prog, which must be finalized. If oracle is nil, it is computed from the program
// when one of the oracles is enabled in the config. If the error returned is a dua.InvariantError, the analysis
// was aborted.
func Analyze(prog *program.Program, oracle order.Oracle, cfg *config.Config,
	logger *config.LogGroup) (*Result, error) {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if logger == nil {
		logger = config.NewLogGroup(cfg)
	}
	if oracle == nil {
		if cfg.OrderOraclesDisabled() {
			oracle = order.Null{}
		} else {
			start := time.Now()
			oracle = order.NewGraph(prog)
			logger.Debugf("order oracle computed in %3.4f s\n", time.Since(start).Seconds())
		}
	}

	start := time.Now()
	state := dua.NewState(prog, oracle, cfg, logger)
	if err := state.Run(); err != nil {
		return nil, fmt.Errorf("dua analysis aborted: %w", err)
	}
	logger.Debugf("DUAs computed in %3.4f s\n", time.Since(start).Seconds())

	res := &Result{Program: prog, Set: state.Set}
	if cfg.Options.PathExpressions {
		if cfg.OrderOraclesDisabled() {
			logger.Warnf("path expressions require the reachability or the dominance oracle, skipping them\n")
			res.Stats.PathsSkipped = true
		} else {
			start = time.Now()
			paths, err := pathexpr.NewEngine(prog, cfg, logger).Run(state.Set)
			if err != nil {
				return nil, fmt.Errorf("path expressions failed: %w", err)
			}
			res.Paths = paths
			logger.Debugf("path expressions computed in %3.4f s\n", time.Since(start).Seconds())
		}
	}
	res.Stats = computeStats(res)
	logger.Infof("%s\n", res.Stats)
	return res, nil
}

func computeStats(res *Result) Stats {
	stats := Stats{
		Procedures:      len(res.Program.Procs),
		DUAs:            res.Set.Len(),
		PathExpressions: len(res.Paths),
		PathsSkipped:    res.Stats.PathsSkipped,
	}
	for _, d := range res.Set.All() {
		switch d.Classification() {
		case dua.Definite:
			stats.Definite++
		case dua.Conditional:
			stats.Conditional++
		default:
			stats.NonInferrable++
		}
		if d.Heap {
			stats.Heap++
		}
		if d.IsInterprocedural() {
			stats.Interprocedural++
		}
		if d.PathWarning {
			stats.PathWarnings++
		}
	}
	return stats
}
