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
	"github.com/willf/bitset"
)

// formalRef is the i-th formal parameter of a procedure
type formalRef struct {
	proc  int
	index int
}

// procFlow holds the reachable uses and reachable defs of the local variables of a procedure.
//
// Uses are numbered per procedure, and every node carries the set of uses that can be reached from the exit of
// the node without going through a def of their variable:
//
//	OUT[n] = Union(s a successor of n) IN[s] U puse(n -> s)
//	IN[n]  = cuse(n) U (OUT[n] - kill(n))
//
// where kill(n) contains the uses of the variables defined at n. The uses of a node are evaluated before its defs,
// so a def at n never blocks the c-uses of n. Defs are numbered the same way, and defsOut[n] is the set of defs
// reachable from the exit of n through any path.
type procFlow struct {
	proc *program.Procedure

	uses     []program.Use
	useIndex map[program.Use]int
	// endpoint contains the uses that end DUAs. A pass-through argument is not an endpoint, unless the same
	// variable is also read at the call node.
	endpoint *bitset.BitSet
	// links maps pass-through argument uses to the formals they are bound to
	links map[int][]formalRef

	defs     []program.Def
	defIndex map[program.Def]int
	nodeDefs [][]program.Def

	gen      []*bitset.BitSet
	edgeGen  map[graphutil.Edge]*bitset.BitSet
	kill     []*bitset.BitSet
	genDefs  []*bitset.BitSet
	in       []*bitset.BitSet
	out      []*bitset.BitSet
	defsIn   []*bitset.BitSet
	defsOut  []*bitset.BitSet
	nUses    uint
	nDefs    uint
	numNodes int

	// order is the order in which the fixpoints visit the nodes
	order []int
}

// reverseOrder visits the nodes of f by decreasing id, which is close to a reverse topological order for graphs
// built in program order
func reverseOrder(f *program.Procedure) []int {
	order := make([]int, len(f.Nodes))
	for i := range order {
		order[i] = len(order) - 1 - i
	}
	return order
}

// propagate computes the reachable uses and defs of every procedure
func (s *State) propagate() {
	s.flows = make([]*procFlow, len(s.Program.Procs))
	for _, f := range s.Program.Procs {
		fl := s.newProcFlow(f)
		fl.solveUses()
		fl.solveDefs()
		s.flows[f.Index] = fl
		s.Logger.Tracef("%s: %d local uses, %d local defs\n", f.Name, len(fl.uses), len(fl.defs))
	}
}

func (s *State) newProcFlow(f *program.Procedure) *procFlow {
	n := len(f.Nodes)
	fl := &procFlow{
		proc:     f,
		useIndex: map[program.Use]int{},
		links:    map[int][]formalRef{},
		defIndex: map[program.Def]int{},
		nodeDefs: make([][]program.Def, n),
		edgeGen:  map[graphutil.Edge]*bitset.BitSet{},
		numNodes: n,
		order:    s.visit(f),
	}
	paramsAsDefs := s.Config.Options.ParamsReturnsAsDefsUses

	// Defs
	for _, node := range f.Nodes {
		for _, d := range f.DefsOf(node) {
			if d.Var.Kind == program.Local {
				fl.addDef(node.ID, d)
			}
		}
	}
	if paramsAsDefs {
		for _, p := range f.Params {
			if !p.IsZero() && p.Kind == program.Local {
				fl.addDef(program.EntryID, program.Def{At: f.Ref(program.EntryID), Var: p})
			}
		}
	}

	// Uses: first collect the universe, then the bitsets are all allocated with the same length
	type seed struct {
		node int
		use  int
	}
	var seeds []seed
	endpoints := map[int]bool{}
	for _, node := range f.Nodes {
		for _, u := range f.UsesOf(node) {
			if u.Var.Kind != program.Local {
				continue
			}
			i := fl.addUse(u)
			endpoints[i] = true
			seeds = append(seeds, seed{node.ID, i})
		}
		for _, c := range node.Calls {
			callee, internal := s.Program.Lookup(c.Callee)
			for i, a := range c.Args {
				if a.IsZero() || a.Kind != program.Local {
					continue
				}
				u := program.NewCUse(f.Ref(node.ID), a)
				k := fl.addUse(u)
				seeds = append(seeds, seed{node.ID, k})
				if internal && !paramsAsDefs && i < len(callee.Params) && !callee.Params[i].IsZero() {
					fl.links[k] = append(fl.links[k], formalRef{proc: callee.Index, index: i})
				} else {
					endpoints[k] = true
				}
			}
		}
	}
	fl.nUses = uint(len(fl.uses))
	fl.nDefs = uint(len(fl.defs))

	fl.endpoint = bitset.New(fl.nUses)
	for i := range endpoints {
		fl.endpoint.Set(uint(i))
	}
	fl.gen = fl.newSets(fl.nUses)
	fl.kill = fl.newSets(fl.nUses)
	fl.in = fl.newSets(fl.nUses)
	fl.out = fl.newSets(fl.nUses)
	fl.genDefs = fl.newSets(fl.nDefs)
	fl.defsIn = fl.newSets(fl.nDefs)
	fl.defsOut = fl.newSets(fl.nDefs)

	for _, sd := range seeds {
		u := fl.uses[sd.use]
		if u.Kind == program.PUse {
			edge := graphutil.Edge{From: sd.node, To: u.Succ}
			if fl.edgeGen[edge] == nil {
				fl.edgeGen[edge] = bitset.New(fl.nUses)
			}
			fl.edgeGen[edge].Set(uint(sd.use))
		} else {
			fl.gen[sd.node].Set(uint(sd.use))
		}
	}
	for node, defs := range fl.nodeDefs {
		for _, d := range defs {
			fl.genDefs[node].Set(uint(fl.defIndex[d]))
			for i, u := range fl.uses {
				if u.Var == d.Var {
					fl.kill[node].Set(uint(i))
				}
			}
		}
	}
	return fl
}

func (fl *procFlow) newSets(size uint) []*bitset.BitSet {
	sets := make([]*bitset.BitSet, fl.numNodes)
	for i := range sets {
		sets[i] = bitset.New(size)
	}
	return sets
}

func (fl *procFlow) addUse(u program.Use) int {
	if i, ok := fl.useIndex[u]; ok {
		return i
	}
	i := len(fl.uses)
	fl.uses = append(fl.uses, u)
	fl.useIndex[u] = i
	return i
}

func (fl *procFlow) addDef(node int, d program.Def) {
	if _, ok := fl.defIndex[d]; ok {
		return
	}
	fl.defIndex[d] = len(fl.defs)
	fl.defs = append(fl.defs, d)
	fl.nodeDefs[node] = append(fl.nodeDefs[node], d)
}

// solveUses iterates the reachable uses equations until no IN set changes. The result does not depend on the
// visiting order, only the number of iterations does.
func (fl *procFlow) solveUses() {
	nodes := fl.proc.Nodes
	for change := true; change; {
		change = false
		for _, i := range fl.order {
			n := nodes[i]
			out := bitset.New(fl.nUses)
			for _, succ := range n.Succs {
				out.InPlaceUnion(fl.in[succ])
				if pu, ok := fl.edgeGen[graphutil.Edge{From: n.ID, To: succ}]; ok {
					out.InPlaceUnion(pu)
				}
			}
			fl.out[n.ID] = out
			in := fl.gen[n.ID].Union(out.Difference(fl.kill[n.ID]))
			if !in.Equal(fl.in[n.ID]) {
				fl.in[n.ID] = in
				change = true
			}
		}
	}
}

// solveDefs computes the defs reachable from every node. Defs never block each other.
func (fl *procFlow) solveDefs() {
	nodes := fl.proc.Nodes
	for change := true; change; {
		change = false
		for _, i := range fl.order {
			n := nodes[i]
			out := bitset.New(fl.nDefs)
			for _, succ := range n.Succs {
				out.InPlaceUnion(fl.defsIn[succ])
			}
			fl.defsOut[n.ID] = out
			in := fl.genDefs[n.ID].Union(out)
			if !in.Equal(fl.defsIn[n.ID]) {
				fl.defsIn[n.ID] = in
				change = true
			}
		}
	}
}

// reachedFrom returns the indexes of the uses of v reachable from the exit of node, in increasing order
func (fl *procFlow) reachedFrom(node int, v program.Variable) []int {
	var res []int
	for i, ok := fl.out[node].NextSet(0); ok; i, ok = fl.out[node].NextSet(i + 1) {
		if fl.uses[i].Var == v {
			res = append(res, int(i))
		}
	}
	return res
}

// defsFrom returns the defs of v that are reachable from the exit of node
func (fl *procFlow) defsFrom(node int, v program.Variable) []program.Def {
	var res []program.Def
	out := fl.defsOut[node]
	for i, ok := out.NextSet(0); ok; i, ok = out.NextSet(i + 1) {
		if k := fl.defs[i]; k.Var == v {
			res = append(res, k)
		}
	}
	return res
}

// killersOf returns the defs of the same variable as d that are reachable from the exit of d's node, excluding d.
func (fl *procFlow) killersOf(d program.Def) []program.Def {
	return funcutil.Filter(fl.defsFrom(d.At.Node, d.Var), func(k program.Def) bool { return k != d })
}
