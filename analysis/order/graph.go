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

package order

import (
	"github.com/awslabs/ar-go-dua/analysis/program"
	"github.com/awslabs/ar-go-dua/internal/graphutil"
	"github.com/willf/bitset"
)

// Graph is the oracle computed from the control-flow graphs and the call graph of a program. Dominance and
// post-dominance are intraprocedural; two points in different procedures are never ordered by dominance.
// Reachability between procedures is over-approximated: any point may reach any point of another procedure, and
// a point of a recursive procedure may reach any point of the same procedure.
type Graph struct {
	doms      []*domTree
	postdoms  []*domTree
	reach     [][]*bitset.BitSet
	recursive []bool
}

// NewGraph computes the dominator trees, post-dominator trees and reachability closures of every procedure of the
// program. prog must be finalized.
func NewGraph(prog *program.Program) *Graph {
	g := &Graph{
		doms:      make([]*domTree, len(prog.Procs)),
		postdoms:  make([]*domTree, len(prog.Procs)),
		reach:     make([][]*bitset.BitSet, len(prog.Procs)),
		recursive: make([]bool, len(prog.Procs)),
	}
	for _, f := range prog.Procs {
		nodes := f.Nodes
		succs := func(i int) []int { return nodes[i].Succs }
		g.doms[f.Index] = newDomTree(len(nodes), program.EntryID, succs, false)
		g.postdoms[f.Index] = newDomTree(len(nodes), program.ExitID, succs, true)
		g.reach[f.Index] = graphutil.Closure(len(nodes), succs)
	}

	procs := make([]int, len(prog.Procs))
	for i := range procs {
		procs[i] = i
	}
	for _, scc := range graphutil.StronglyConnectedComponents(procs, prog.Callees) {
		if len(scc) > 1 {
			for _, i := range scc {
				g.recursive[i] = true
			}
		}
	}
	for _, f := range prog.Procs {
		for _, c := range prog.Callees(f.Index) {
			if c == f.Index {
				g.recursive[c] = true
			}
		}
	}
	return g
}

// Reaches returns true if there is a path with at least one edge from the point from to the point to.
func (g *Graph) Reaches(from, to program.NodeRef, interprocedural bool) bool {
	if from.Proc != to.Proc {
		return interprocedural
	}
	if interprocedural && g.recursive[from.Proc] {
		return true
	}
	return g.reach[from.Proc][from.Node].Test(uint(to.Node))
}

// Dominates returns true if a dominates b. A point dominates itself.
func (g *Graph) Dominates(a, b program.NodeRef) bool {
	if a.Proc != b.Proc {
		return false
	}
	return g.doms[a.Proc].dominates(a.Node, b.Node)
}

// Postdominates returns true if a post-dominates b. A point post-dominates itself.
func (g *Graph) Postdominates(a, b program.NodeRef) bool {
	if a.Proc != b.Proc {
		return false
	}
	return g.postdoms[a.Proc].dominates(a.Node, b.Node)
}
