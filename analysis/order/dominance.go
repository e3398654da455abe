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
	"gonum.org/v1/gonum/graph/flow"
	"gonum.org/v1/gonum/graph/simple"
)

// domTree is a dominator tree with a pre- and post-order numbering, so that dominance queries are answered in
// constant time.
type domTree struct {
	// pre and post are the pre-order and post-order numbers of each node in the tree. A node that is not in the
	// tree (unreachable from the root) has pre[i] = -1.
	pre  []int32
	post []int32
}

// newDomTree computes the dominator tree of the graph with n nodes and the given edges, rooted at root. When
// reverse is true, the edges are reversed, which yields the post-dominator tree when root is the exit.
func newDomTree(n int, root int, succs func(int) []int, reverse bool) *domTree {
	g := simple.NewDirectedGraph()
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}
	for i := 0; i < n; i++ {
		for _, j := range succs(i) {
			// self edges never change dominance, and the simple graph rejects them
			if i == j {
				continue
			}
			if reverse {
				g.SetEdge(simple.Edge{F: simple.Node(j), T: simple.Node(i)})
			} else {
				g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
			}
		}
	}
	tree := flow.Dominators(simple.Node(root), g)

	children := make([][]int, n)
	for i := 0; i < n; i++ {
		if i == root {
			continue
		}
		if d := tree.DominatorOf(int64(i)); d != nil {
			children[d.ID()] = append(children[d.ID()], i)
		}
	}
	t := &domTree{pre: make([]int32, n), post: make([]int32, n)}
	for i := range t.pre {
		t.pre[i] = -1
	}
	t.number(root, children)
	return t
}

// number assigns the pre- and post-order numbers of the subtree rooted at root
func (t *domTree) number(root int, children [][]int) {
	var pre, post int32
	type frame struct {
		node int
		next int
	}
	stack := []frame{{node: root}}
	t.pre[root] = pre
	pre++
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(children[top.node]) {
			c := children[top.node][top.next]
			top.next++
			t.pre[c] = pre
			pre++
			stack = append(stack, frame{node: c})
			continue
		}
		t.post[top.node] = post
		post++
		stack = stack[:len(stack)-1]
	}
}

// dominates returns true if a dominates b in the tree. Every node of the tree dominates itself.
func (t *domTree) dominates(a, b int) bool {
	if t.pre[a] < 0 || t.pre[b] < 0 {
		return false
	}
	return t.pre[a] <= t.pre[b] && t.post[b] <= t.post[a]
}
