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

package dua

import (
	"github.com/awslabs/ar-go-dua/analysis/config"
	"github.com/awslabs/ar-go-dua/analysis/order"
	"github.com/awslabs/ar-go-dua/analysis/program"
)

// State is the state of a DUA analysis of one program. It owns every intermediate result, so that separate runs
// never share anything.
type State struct {
	Program *program.Program
	Oracle  order.Oracle
	Config  *config.Config
	Logger  *config.LogGroup

	// Set is the output of the analysis, filled by Run
	Set *Set

	flows []*procFlow

	// formalUses[p][i] is the set of uses (in p or in its transitive callees) reachable from the i-th formal
	// parameter of p at the entry of p
	formalUses [][]map[program.Use]bool

	// reached maps every def to the uses it reaches, and for each use, the local uses it is reached through
	reached map[program.Def]map[program.Use][]program.Use

	// formalKills[p][i] is the set of defs (in p or in its transitive callees) of the variables the i-th formal
	// parameter of p is bound to, reachable from the entry of p
	formalKills [][]map[program.Def]bool

	// killers maps every local def to the defs of the same variable that can execute after it, including the
	// redefinitions of the formals it is passed to
	killers map[program.Def][]program.Def

	visit func(f *program.Procedure) []int
}

// NewState returns a fresh analysis state. prog must be finalized. A nil oracle is replaced by order.Null, a nil
// config by the default config and a nil logger by the config's logger.
func NewState(prog *program.Program, oracle order.Oracle, cfg *config.Config, logger *config.LogGroup) *State {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if oracle == nil {
		oracle = order.Null{}
	}
	if logger == nil {
		logger = config.NewLogGroup(cfg)
	}
	return &State{
		Program: prog,
		Oracle:  oracle,
		Config:  cfg,
		Logger:  logger,
		Set:     NewSet(),
		reached: map[program.Def]map[program.Use][]program.Use{},
		killers: map[program.Def][]program.Def{},
		visit:   reverseOrder,
	}
}

// Run computes the DUAs of the program with their inferrability and kills. It must be called at most once per
// state. If the error returned is an InvariantError, Set must be discarded.
func (s *State) Run() error {
	s.propagate()
	s.propagateFormals()
	s.reachUses()
	duas, err := s.buildLocal()
	if err != nil {
		return err
	}
	if !s.Config.Options.OnlyLocalDUAs {
		duas = append(duas, s.buildHeap()...)
	}
	sortDUAs(duas)
	for _, d := range duas {
		if err := s.Set.Add(d); err != nil {
			return err
		}
	}
	s.classifyPredicateUses()
	s.Logger.Debugf("%d DUAs in %d procedures\n", s.Set.Len(), len(s.Program.Procs))
	return nil
}

// mayReach returns true if some execution may go from a to b. Without the reachability oracle, any point may
// reach any other point.
func (s *State) mayReach(a, b program.NodeRef) bool {
	if !s.Config.Options.UseReachability {
		return true
	}
	return s.Oracle.Reaches(a, b, true)
}

// executesBefore returns true if a always executes before b when both execute: a dominates b, or b post-dominates a.
// Without the dominance oracle, nothing is known to execute before anything.
func (s *State) executesBefore(a, b program.NodeRef) bool {
	if !s.Config.Options.UseDominance {
		return false
	}
	return s.Oracle.Dominates(a, b) || s.Oracle.Postdominates(b, a)
}

func (s *State) inHandler(r program.NodeRef) bool {
	return s.Program.Node(r).InHandler
}

// ordered returns true if the coverage of a and b implies that a executed before b on some execution. Points in
// exception handlers are never ordered.
func (s *State) ordered(a, b program.NodeRef) bool {
	if s.inHandler(a) || s.inHandler(b) {
		return false
	}
	return s.executesBefore(a, b) && !s.mayReach(b, a)
}
