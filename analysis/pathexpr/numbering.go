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

package pathexpr

import (
	"errors"
	"fmt"

	"github.com/awslabs/ar-go-dua/analysis/program"
	"github.com/awslabs/ar-go-dua/internal/graphutil"
	"github.com/willf/bitset"
	"github.com/yourbasic/graph"
)

// ErrTooManyPaths is returned when a procedure has more acyclic paths than the configured maximum
var ErrTooManyPaths = errors.New("too many acyclic paths")

// EdgeKind distinguishes the edges of the acyclic graph on which paths are numbered
type EdgeKind uint8

const (
	// Real edges are the control-flow edges that are not back edges
	Real EdgeKind = iota
	// LoopEntry edges go from the entry to the target of a back edge
	LoopEntry
	// LoopExit edges go from the source of a back edge to the exit
	LoopExit
	// CallExit edges go from a node with a call site to the exit, one per call site
	CallExit
)

func (k EdgeKind) String() string {
	switch k {
	case Real:
		return "real"
	case LoopEntry:
		return "loop-entry"
	case LoopExit:
		return "loop-exit"
	case CallExit:
		return "call"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// PathEdge is an edge of the acyclic graph. Index is the index of the back edge a LoopEntry or LoopExit edge stands
// for, the index of the call site of a CallExit edge, and -1 for real edges.
type PathEdge struct {
	From  int
	To    int
	Kind  EdgeKind
	Index int
}

// ConnPoint is the connection point of a back edge: the paths ending by taking the back edge, and the paths
// starting at its target.
type ConnPoint struct {
	Edge     graphutil.Edge
	Incoming *bitset.BitSet
	Outgoing *bitset.BitSet
}

// Numbering is the Ball-Larus numbering of the acyclic paths of a procedure. Back edges v -> w are removed and
// replaced by two edges entry -> w and v -> exit, and every call site adds an edge from its node to the exit, so
// that every execution is a sequence of numbered paths. Path ids are 0 .. NumPaths-1.
type Numbering struct {
	Proc      *program.Procedure
	NumPaths  int
	BackEdges []graphutil.Edge
	Conns     []ConnPoint

	out       [][]PathEdge
	numPaths  []int
	val       [][]int
	nodePaths []*bitset.BitSet
	edgePaths map[graphutil.Edge]*bitset.BitSet
	callPaths []*bitset.BitSet
	backIndex map[graphutil.Edge]int
}

// NewNumbering numbers the paths of f. If the number of paths exceeds maxPaths, it returns ErrTooManyPaths.
func NewNumbering(f *program.Procedure, maxPaths int) (*Numbering, error) {
	n := len(f.Nodes)
	nb := &Numbering{
		Proc:      f,
		out:       make([][]PathEdge, n),
		numPaths:  make([]int, n),
		val:       make([][]int, n),
		edgePaths: map[graphutil.Edge]*bitset.BitSet{},
		backIndex: map[graphutil.Edge]int{},
	}
	succs := func(i int) []int { return f.Nodes[i].Succs }
	nb.BackEdges = graphutil.BackEdges(n, program.EntryID, succs)
	for i, e := range nb.BackEdges {
		nb.backIndex[e] = i
	}
	reachable := reachableFrom(n, program.EntryID, succs)

	// Acyclic graph, with a stable order of the edges out of each node
	dag := graph.New(n)
	for _, node := range f.Nodes {
		v := node.ID
		if !reachable[v] {
			continue
		}
		for _, s := range node.Succs {
			if _, isBack := nb.backIndex[graphutil.Edge{From: v, To: s}]; !isBack {
				nb.addEdge(dag, PathEdge{From: v, To: s, Kind: Real, Index: -1})
			}
		}
		for i, e := range nb.BackEdges {
			if e.From == v {
				nb.addEdge(dag, PathEdge{From: v, To: program.ExitID, Kind: LoopExit, Index: i})
			}
		}
		for i := range node.Calls {
			nb.addEdge(dag, PathEdge{From: v, To: program.ExitID, Kind: CallExit, Index: i})
		}
	}
	for i, e := range nb.BackEdges {
		nb.addEdge(dag, PathEdge{From: program.EntryID, To: e.To, Kind: LoopEntry, Index: i})
	}

	order, ok := graph.TopSort(dag)
	if !ok {
		return nil, fmt.Errorf("procedure %s: graph without back edges is cyclic", f.Name)
	}
	limit := maxPaths + 1
	for i := len(order) - 1; i >= 0; i-- {
		v := order[i]
		if v == program.ExitID {
			nb.numPaths[v] = 1
			continue
		}
		total := 0
		nb.val[v] = make([]int, len(nb.out[v]))
		for j, e := range nb.out[v] {
			nb.val[v][j] = total
			total += nb.numPaths[e.To]
			if total > limit {
				total = limit
			}
		}
		nb.numPaths[v] = total
	}
	nb.NumPaths = nb.numPaths[program.EntryID]
	if nb.NumPaths > maxPaths {
		return nil, fmt.Errorf("procedure %s: %w (more than %d)", f.Name, ErrTooManyPaths, maxPaths)
	}
	nb.assignPaths()
	return nb, nil
}

func (nb *Numbering) addEdge(dag *graph.Mutable, e PathEdge) {
	nb.out[e.From] = append(nb.out[e.From], e)
	dag.Add(e.From, e.To)
}

func reachableFrom(n int, root int, succs graphutil.Successors) []bool {
	seen := make([]bool, n)
	stack := []int{root}
	seen[root] = true
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range succs(v) {
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	return seen
}

// assignPaths decodes every path id and records it on the nodes and edges it goes through
func (nb *Numbering) assignPaths() {
	size := uint(nb.NumPaths)
	nb.nodePaths = make([]*bitset.BitSet, len(nb.Proc.Nodes))
	nb.callPaths = make([]*bitset.BitSet, len(nb.Proc.Nodes))
	for i := range nb.nodePaths {
		nb.nodePaths[i] = bitset.New(size)
		nb.callPaths[i] = bitset.New(size)
	}
	for _, node := range nb.Proc.Nodes {
		for _, s := range node.Succs {
			nb.edgePaths[graphutil.Edge{From: node.ID, To: s}] = bitset.New(size)
		}
	}
	nb.Conns = make([]ConnPoint, len(nb.BackEdges))
	for i, e := range nb.BackEdges {
		nb.Conns[i] = ConnPoint{Edge: e, Incoming: bitset.New(size), Outgoing: bitset.New(size)}
	}

	for id := 0; id < nb.NumPaths; id++ {
		p := uint(id)
		nb.nodePaths[program.EntryID].Set(p)
		for _, e := range nb.Edges(id) {
			nb.nodePaths[e.To].Set(p)
			switch e.Kind {
			case Real:
				nb.edgePaths[graphutil.Edge{From: e.From, To: e.To}].Set(p)
			case LoopEntry:
				nb.Conns[e.Index].Outgoing.Set(p)
			case LoopExit:
				nb.Conns[e.Index].Incoming.Set(p)
				// the back edge is taken at the end of the path
				nb.edgePaths[nb.BackEdges[e.Index]].Set(p)
			case CallExit:
				nb.callPaths[e.From].Set(p)
			}
		}
	}
}

// Edges returns the edges of the path with the given id, from the entry to the exit
func (nb *Numbering) Edges(id int) []PathEdge {
	var edges []PathEdge
	v, r := program.EntryID, id
	for v != program.ExitID {
		j := 0
		for ; j < len(nb.out[v])-1; j++ {
			if r < nb.val[v][j]+nb.numPaths[nb.out[v][j].To] {
				break
			}
		}
		e := nb.out[v][j]
		edges = append(edges, e)
		r -= nb.val[v][j]
		v = e.To
	}
	return edges
}

// ID returns the id of the path made of the given edges, which must start at the entry and end at the exit
func (nb *Numbering) ID(edges []PathEdge) int {
	id := 0
	for _, e := range edges {
		for j, o := range nb.out[e.From] {
			if o == e {
				id += nb.val[e.From][j]
				break
			}
		}
	}
	return id
}

// NodePaths returns the paths going through node
func (nb *Numbering) NodePaths(node int) *bitset.BitSet {
	return nb.nodePaths[node]
}

// EdgePaths returns the paths taking the control-flow edge. For a back edge, those are the paths ending by taking
// it.
func (nb *Numbering) EdgePaths(e graphutil.Edge) *bitset.BitSet {
	if b, ok := nb.edgePaths[e]; ok {
		return b
	}
	return bitset.New(uint(nb.NumPaths))
}

// CallPaths returns the paths ending in a call at node
func (nb *Numbering) CallPaths(node int) *bitset.BitSet {
	return nb.callPaths[node]
}

// IsBackEdge returns true if e is a back edge
func (nb *Numbering) IsBackEdge(e graphutil.Edge) bool {
	_, ok := nb.backIndex[e]
	return ok
}

// Conn returns the connection point of the back edge e
func (nb *Numbering) Conn(e graphutil.Edge) (ConnPoint, bool) {
	i, ok := nb.backIndex[e]
	if !ok {
		return ConnPoint{}, false
	}
	return nb.Conns[i], true
}
