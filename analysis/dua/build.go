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
	"sort"

	"github.com/awslabs/ar-go-dua/analysis/program"
	"github.com/awslabs/ar-go-dua/internal/funcutil"
)

func defLess(a, b program.Def) bool { return a.Less(b) }

func useLess(a, b program.Use) bool { return a.Less(b) }

// sortDUAs sorts DUAs by def, then by use
func sortDUAs(duas []*DUA) {
	sort.Slice(duas, func(i, j int) bool {
		if duas[i].Def != duas[j].Def {
			return duas[i].Def.Less(duas[j].Def)
		}
		return duas[i].Use.Less(duas[j].Use)
	})
}

// buildLocal materializes the DUAs of local variables from the reached map, in def-then-use order, and computes
// the same-block map.
func (s *State) buildLocal() ([]*DUA, error) {
	// interDefs counts the distinct defs reaching a use from another procedure
	interDefs := map[program.Use]map[program.Def]bool{}
	for d, uses := range s.reached {
		for u := range uses {
			if u.At.Proc != d.At.Proc {
				if interDefs[u] == nil {
					interDefs[u] = map[program.Def]bool{}
				}
				interDefs[u][d] = true
			}
		}
	}

	var duas []*DUA
	for _, d := range funcutil.SortedKeys(s.reached, defLess) {
		for _, u := range funcutil.SortedKeys(s.reached[d], useLess) {
			dua, err := s.newLocalDUA(d, u, len(interDefs[u]))
			if err != nil {
				return nil, err
			}
			duas = append(duas, dua)
		}
	}
	s.buildSameBlock()
	return duas, nil
}

func (s *State) newLocalDUA(d program.Def, u program.Use, interDefs int) (*DUA, error) {
	witnesses := dedupUses(s.reached[d][u])
	if err := s.checkLink(d, u, witnesses); err != nil {
		return nil, err
	}
	dua := &DUA{Def: d, Use: u, LocalUses: witnesses}

	targets := targetPoints(witnesses)
	ordered := false
	for _, t := range targets {
		if s.ordered(d.At, t) {
			ordered = true
			break
		}
	}
	dua.InferrableOrCondInf = ordered && interDefs <= 1

	for _, k := range s.killers[d] {
		reachedByK, ok := s.reached[k]
		if !ok {
			return nil, invariantf("kill candidate %s of %s has no reaching uses", k, d)
		}
		if _, hits := reachedByK[u]; !hits {
			continue
		}
		if s.killInOrder(d, k, targets) {
			dua.KillsInOrder = append(dua.KillsInOrder, k)
		} else {
			dua.KillsNotInOrder = append(dua.KillsNotInOrder, k)
		}
	}
	return dua, nil
}

// checkLink verifies that the def of a DUA reaches its use through local uses of its own procedure, and through
// argument links if the use is in another procedure.
func (s *State) checkLink(d program.Def, u program.Use, witnesses []program.Use) error {
	if len(witnesses) == 0 {
		return invariantf("%s reaches %s without local use", d, u)
	}
	fl := s.flows[d.At.Proc]
	for _, w := range witnesses {
		if w.At.Proc != d.At.Proc {
			return invariantf("%s reaches %s through a use in another procedure %s", d, u, w)
		}
		if u.At.Proc == d.At.Proc {
			continue
		}
		if len(fl.links[fl.useIndex[w]]) == 0 {
			return invariantf("%s reaches %s in another procedure without an argument link", d, u)
		}
	}
	return nil
}

// killInOrder returns true if k, when it executes, always executes between d and the target points, and the
// targets cannot reach d through a cycle.
func (s *State) killInOrder(d, k program.Def, targets []program.NodeRef) bool {
	if s.inHandler(k.At) {
		return false
	}
	if !s.executesBefore(d.At, k.At) {
		return false
	}
	for _, t := range targets {
		if !s.executesBefore(k.At, t) || s.mayReach(t, d.At) {
			return false
		}
	}
	return true
}

// targetPoints returns the distinct nodes of the witnesses, in order
func targetPoints(witnesses []program.Use) []program.NodeRef {
	var points []program.NodeRef
	seen := map[program.NodeRef]bool{}
	for _, w := range witnesses {
		if !seen[w.At] {
			seen[w.At] = true
			points = append(points, w.At)
		}
	}
	return points
}

func dedupUses(uses []program.Use) []program.Use {
	set := map[program.Use]bool{}
	for _, u := range uses {
		set[u] = true
	}
	return funcutil.SortedSet(set, useLess)
}

// buildSameBlock records, for each def, the uses that it reaches inside its own basic block, heap variables
// included. A use at the def's node is never in the map: the uses of a node are evaluated before its defs.
func (s *State) buildSameBlock() {
	for _, f := range s.Program.Procs {
		for _, block := range basicBlocks(f) {
			for i, n := range block {
				for _, d := range s.defsAt(f, f.Nodes[n]) {
					for _, m := range block[i+1:] {
						node := f.Nodes[m]
						for _, u := range nodeUses(f, node) {
							if u.Var.MayEqual(d.Var) {
								s.Set.addSameBlock(d, u)
							}
						}
						if node.Defines(d.Var) {
							break
						}
					}
				}
			}
		}
	}
}

// nodeUses returns the uses of a node, including the plain variables passed as arguments
func nodeUses(f *program.Procedure, n *program.Node) []program.Use {
	uses := f.UsesOf(n)
	for _, c := range n.Calls {
		for _, a := range c.Args {
			if !a.IsZero() {
				uses = append(uses, program.NewCUse(f.Ref(n.ID), a))
			}
		}
	}
	return uses
}

// defsAt returns the defs of a node, including the formals defined at the entry when parameters are defs
func (s *State) defsAt(f *program.Procedure, n *program.Node) []program.Def {
	defs := f.DefsOf(n)
	if n.ID == program.EntryID && s.Config.Options.ParamsReturnsAsDefsUses {
		for _, p := range f.Params {
			if !p.IsZero() {
				defs = append(defs, program.Def{At: f.Ref(program.EntryID), Var: p})
			}
		}
	}
	return defs
}

// basicBlocks partitions the nodes reachable from the entry into maximal straight-line sequences. A node starts a
// block when it is the entry, when it has several predecessors or when its predecessor has several successors.
func basicBlocks(f *program.Procedure) [][]int {
	var blocks [][]int
	visited := make([]bool, len(f.Nodes))
	leader := func(n *program.Node) bool {
		if n.ID == program.EntryID || len(n.Preds) != 1 {
			return true
		}
		return len(f.Nodes[n.Preds[0]].Succs) != 1
	}
	queue := []int{program.EntryID}
	visited[program.EntryID] = true
	for len(queue) > 0 {
		start := queue[0]
		queue = queue[1:]
		block := []int{start}
		cur := f.Nodes[start]
		for len(cur.Succs) == 1 && !leader(f.Nodes[cur.Succs[0]]) {
			cur = f.Nodes[cur.Succs[0]]
			visited[cur.ID] = true
			block = append(block, cur.ID)
		}
		blocks = append(blocks, block)
		for _, succ := range cur.Succs {
			if !visited[succ] {
				visited[succ] = true
				queue = append(queue, succ)
			}
		}
	}
	return blocks
}
