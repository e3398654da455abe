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
	"github.com/awslabs/ar-go-dua/analysis/program"
	"github.com/awslabs/ar-go-dua/internal/funcutil"
	"github.com/awslabs/ar-go-dua/internal/graphutil"
)

// propagateFormals computes the uses reachable from the formal parameters of every procedure, following the
// arguments passed through to callees. Procedures are visited callees first, and a procedure whose formal uses grow
// puts its callers back in the worklist. Each set only grows and is bounded by the uses of the program, so the
// worklist empties.
//
// When formals are treated as defs, there is nothing to link and the sets stay empty.
func (s *State) propagateFormals() {
	prog := s.Program
	s.formalUses = make([][]map[program.Use]bool, len(prog.Procs))
	s.formalKills = make([][]map[program.Def]bool, len(prog.Procs))
	for _, f := range prog.Procs {
		s.formalUses[f.Index] = make([]map[program.Use]bool, len(f.Params))
		s.formalKills[f.Index] = make([]map[program.Def]bool, len(f.Params))
		for i := range f.Params {
			s.formalUses[f.Index][i] = map[program.Use]bool{}
			s.formalKills[f.Index][i] = map[program.Def]bool{}
		}
	}
	if s.Config.Options.ParamsReturnsAsDefsUses {
		return
	}

	procs := make([]int, len(prog.Procs))
	for i := range procs {
		procs[i] = i
	}
	var worklist []int
	queued := map[int]bool{}
	for _, scc := range graphutil.StronglyConnectedComponents(procs, prog.Callees) {
		for _, p := range scc {
			worklist = append(worklist, p)
			queued[p] = true
		}
	}

	rounds := 0
	for len(worklist) > 0 {
		p := worklist[0]
		worklist = worklist[1:]
		queued[p] = false
		rounds++
		if !s.updateFormals(p) {
			continue
		}
		for _, caller := range prog.Callers(p) {
			if !queued[caller] {
				queued[caller] = true
				worklist = append(worklist, caller)
			}
		}
	}
	s.Logger.Tracef("formal uses converged after %d procedure visits\n", rounds)
}

// updateFormals recomputes the formal uses and formal kills of procedure p and returns true if any set grew
func (s *State) updateFormals(p int) bool {
	f := s.Program.Procs[p]
	fl := s.flows[p]
	changed := false
	for i, param := range f.Params {
		if param.IsZero() || param.Kind != program.Local {
			continue
		}
		uses := map[program.Use]bool{}
		kills := map[program.Def]bool{}
		for _, k := range fl.defsFrom(program.EntryID, param) {
			kills[k] = true
		}
		for _, k := range fl.reachedFrom(program.EntryID, param) {
			fl.remoteUses(k, s.formalUses, uses)
			fl.remoteKills(k, s.formalKills, kills)
		}
		changed = funcutil.Union(s.formalUses[p][i], uses) || changed
		changed = funcutil.Union(s.formalKills[p][i], kills) || changed
	}
	return changed
}

// remoteUses adds to acc the uses that the local use with index k stands for: the use itself if it is an endpoint,
// and the formal uses of the callees it is passed to.
func (fl *procFlow) remoteUses(k int, formalUses [][]map[program.Use]bool, acc map[program.Use]bool) {
	if fl.endpoint.Test(uint(k)) {
		acc[fl.uses[k]] = true
	}
	for _, link := range fl.links[k] {
		for u := range formalUses[link.proc][link.index] {
			acc[u] = true
		}
	}
}

// remoteKills adds to acc the defs of the formals that the local use with index k is passed to
func (fl *procFlow) remoteKills(k int, formalKills [][]map[program.Def]bool, acc map[program.Def]bool) {
	for _, link := range fl.links[k] {
		for d := range formalKills[link.proc][link.index] {
			acc[d] = true
		}
	}
}

// reachUses fills the reached map: for every local def, the uses it reaches with the local uses it reaches them
// through. The kill candidates of a def passed to a callee include the defs of the formal in the callee: they may
// execute between the call and the uses reached through the formal.
func (s *State) reachUses() {
	for _, fl := range s.flows {
		for _, d := range fl.defs {
			reached := map[program.Use][]program.Use{}
			remoteKills := map[program.Def]bool{}
			for _, k := range fl.reachedFrom(d.At.Node, d.Var) {
				local := fl.uses[k]
				remote := map[program.Use]bool{}
				fl.remoteUses(k, s.formalUses, remote)
				for u := range remote {
					reached[u] = append(reached[u], local)
				}
				fl.remoteKills(k, s.formalKills, remoteKills)
			}
			s.reached[d] = reached
			killers := fl.killersOf(d)
			for _, k := range funcutil.SortedSet(remoteKills, defLess) {
				if k != d && !funcutil.Contains(killers, k) {
					killers = append(killers, k)
				}
			}
			s.killers[d] = killers
		}
	}
}
