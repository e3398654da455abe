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

// Package graphutil contains graph algorithms over integer-indexed graphs given by a successor function: strongly
// connected components, depth-first back edges and reachability closures.
package graphutil

import (
	"fmt"

	"github.com/willf/bitset"
)

// Successors returns the targets of the directed edges out of an integer node.
type Successors func(int) []int

type tarjan[T comparable] struct {
	succs   func(T) []T
	stack   []T
	onStack map[T]bool
	index   map[T]int
	lowlink map[T]int
	next    int
	sccs    [][]T
}

// StronglyConnectedComponents is an implementation of Tarjan's strongly connected component (SCC) algorithm
// for generic nodes T.
// The order of SCCs is toposorted so that successors appear first; i.e. if the graph is a tree then
// in order from leaves towards the root. For a call graph, callees come before their callers, which is the order
// that minimizes recomputation in bottom-up interprocedural fixpoints.
func StronglyConnectedComponents[T comparable](nodes []T, successors func(T) []T) [][]T {
	t := &tarjan[T]{
		succs:   successors,
		onStack: map[T]bool{},
		index:   map[T]int{},
		lowlink: map[T]int{},
	}
	for _, v := range nodes {
		if _, ok := t.index[v]; !ok {
			t.visit(v)
		}
	}
	return t.sccs
}

func (t *tarjan[T]) visit(v T) {
	t.index[v] = t.next
	t.lowlink[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true
	for _, w := range t.succs(v) {
		if _, ok := t.index[w]; !ok {
			t.visit(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		} else if t.onStack[w] {
			t.lowlink[v] = min(t.lowlink[v], t.index[w])
		}
	}
	if t.lowlink[v] != t.index[v] {
		return
	}
	var scc []T
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		scc = append(scc, w)
		if w == v {
			break
		}
	}
	t.sccs = append(t.sccs, scc)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Edge is a directed edge between two integer nodes
type Edge struct {
	From int
	To   int
}

func (e Edge) String() string {
	return fmt.Sprintf("%d->%d", e.From, e.To)
}

// BackEdges returns the back edges found by a depth-first search from root, visiting successors in order. An edge
// v -> w is a back edge when w is on the DFS stack when the edge is explored. Removing the back edges leaves an
// acyclic graph. The result is in discovery order.
func BackEdges(n int, root int, succs Successors) []Edge {
	const (
		white = iota
		grey
		black
	)
	color := make([]int, n)
	var back []Edge
	type frame struct {
		node int
		next int
	}
	stack := []frame{{node: root}}
	color[root] = grey
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		out := succs(top.node)
		if top.next >= len(out) {
			color[top.node] = black
			stack = stack[:len(stack)-1]
			continue
		}
		w := out[top.next]
		top.next++
		switch color[w] {
		case white:
			color[w] = grey
			stack = append(stack, frame{node: w})
		case grey:
			back = append(back, Edge{From: top.node, To: w})
		}
	}
	return back
}

// Closure computes, for every node i in [0, n), the set of nodes reachable from i through one or more edges.
// In particular, i is in Closure(...)[i] only if i is on a cycle.
func Closure(n int, succs Successors) []*bitset.BitSet {
	reach := make([]*bitset.BitSet, n)
	for i := 0; i < n; i++ {
		r := bitset.New(uint(n))
		queue := append([]int{}, succs(i)...)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if r.Test(uint(cur)) {
				continue
			}
			r.Set(uint(cur))
			queue = append(queue, succs(cur)...)
		}
		reach[i] = r
	}
	return reach
}
