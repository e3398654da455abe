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
	"fmt"
	"sort"
	"strings"

	"github.com/awslabs/ar-go-dua/internal/graphutil"
	"github.com/willf/bitset"
)

// Ending is a node where a DUA is covered, with the paths reaching it from the point the expression describes
type Ending struct {
	Node  int
	Paths *bitset.BitSet
}

// Conn is a connecting triple: the paths that reach the source of a back edge and take it, and the expression
// describing how the DUA is covered after the back edge, from its target. In a sealed expression, Nested is shared
// by every expression continuing through the same back edge, and the graph of nested expressions may be cyclic.
type Conn struct {
	Edge   graphutil.Edge
	Paths  *bitset.BitSet
	Nested *Expr
}

// Expr is a path expression: the endings and connecting triples reachable from a program point. Expressions are
// values: no operation modifies its operands, and every operation allocates its result.
type Expr struct {
	Endings []Ending
	Conns   []Conn
}

// IsEmpty returns true if the expression has no ending and no connection
func (e *Expr) IsEmpty() bool {
	return e == nil || (len(e.Endings) == 0 && len(e.Conns) == 0)
}

// Clone returns a copy of the expression with copies of all its bitsets. Nested expressions are shared.
func (e *Expr) Clone() *Expr {
	res := &Expr{}
	if e == nil {
		return res
	}
	for _, end := range e.Endings {
		res.Endings = append(res.Endings, Ending{Node: end.Node, Paths: end.Paths.Clone()})
	}
	for _, c := range e.Conns {
		res.Conns = append(res.Conns, Conn{Edge: c.Edge, Paths: c.Paths.Clone(), Nested: c.Nested})
	}
	return res
}

// Restrict returns the expression keeping only the given paths. Endings and connections left without paths are
// dropped.
func (e *Expr) Restrict(paths *bitset.BitSet) *Expr {
	res := &Expr{}
	if e == nil {
		return res
	}
	for _, end := range e.Endings {
		if b := end.Paths.Intersection(paths); b.Any() {
			res.Endings = append(res.Endings, Ending{Node: end.Node, Paths: b})
		}
	}
	for _, c := range e.Conns {
		if b := c.Paths.Intersection(paths); b.Any() {
			res.Conns = append(res.Conns, Conn{Edge: c.Edge, Paths: b, Nested: c.Nested})
		}
	}
	return res
}

// Merge returns the union of two expressions. Endings are merged by node, connections by back edge; when both
// expressions connect through the same back edge, the nested expression of o is kept.
func (e *Expr) Merge(o *Expr) *Expr {
	if o.IsEmpty() {
		return e.Clone()
	}
	if e.IsEmpty() {
		return o.Clone()
	}
	endings := map[int]*bitset.BitSet{}
	for _, x := range [][]Ending{e.Endings, o.Endings} {
		for _, end := range x {
			if b, ok := endings[end.Node]; ok {
				endings[end.Node] = b.Union(end.Paths)
			} else {
				endings[end.Node] = end.Paths.Clone()
			}
		}
	}
	conns := map[graphutil.Edge]Conn{}
	for _, x := range [][]Conn{e.Conns, o.Conns} {
		for _, c := range x {
			if prev, ok := conns[c.Edge]; ok {
				conns[c.Edge] = Conn{Edge: c.Edge, Paths: prev.Paths.Union(c.Paths), Nested: c.Nested}
			} else {
				conns[c.Edge] = Conn{Edge: c.Edge, Paths: c.Paths.Clone(), Nested: c.Nested}
			}
		}
	}
	res := &Expr{}
	for node, b := range endings {
		res.Endings = append(res.Endings, Ending{Node: node, Paths: b})
	}
	for _, c := range conns {
		res.Conns = append(res.Conns, c)
	}
	res.sort()
	return res
}

func (e *Expr) sort() {
	sort.Slice(e.Endings, func(i, j int) bool { return e.Endings[i].Node < e.Endings[j].Node })
	sort.Slice(e.Conns, func(i, j int) bool { return edgeLess(e.Conns[i].Edge, e.Conns[j].Edge) })
}

func edgeLess(a, b graphutil.Edge) bool {
	if a.From != b.From {
		return a.From < b.From
	}
	return a.To < b.To
}

// Extend returns the expression of a point just before taking the back edge: a single connection through the back
// edge, for the given paths, continuing with e. An empty e yields an empty expression.
func Extend(e *Expr, back graphutil.Edge, paths *bitset.BitSet) *Expr {
	if e.IsEmpty() || !paths.Any() {
		return &Expr{}
	}
	return &Expr{Conns: []Conn{{Edge: back, Paths: paths.Clone(), Nested: e}}}
}

// Equal returns true if both expressions have the same endings and connections with the same paths. Nested
// expressions are not compared.
func (e *Expr) Equal(o *Expr) bool {
	if e.IsEmpty() || o.IsEmpty() {
		return e.IsEmpty() == o.IsEmpty()
	}
	if len(e.Endings) != len(o.Endings) || len(e.Conns) != len(o.Conns) {
		return false
	}
	for i := range e.Endings {
		if e.Endings[i].Node != o.Endings[i].Node || !e.Endings[i].Paths.Equal(o.Endings[i].Paths) {
			return false
		}
	}
	for i := range e.Conns {
		if e.Conns[i].Edge != o.Conns[i].Edge || !e.Conns[i].Paths.Equal(o.Conns[i].Paths) {
			return false
		}
	}
	return true
}

// Paths returns the union of the paths of the endings and connections of e, which has size bits
func (e *Expr) Paths(size uint) *bitset.BitSet {
	res := bitset.New(size)
	if e == nil {
		return res
	}
	for _, end := range e.Endings {
		res.InPlaceUnion(end.Paths)
	}
	for _, c := range e.Conns {
		res.InPlaceUnion(c.Paths)
	}
	return res
}

// String prints the top level of the expression. Nested expressions are not printed, since they may be cyclic.
func (e *Expr) String() string {
	if e.IsEmpty() {
		return "{}"
	}
	var parts []string
	for _, end := range e.Endings {
		parts = append(parts, fmt.Sprintf("end(%d)%s", end.Node, end.Paths))
	}
	for _, c := range e.Conns {
		parts = append(parts, fmt.Sprintf("conn(%d->%d)%s", c.Edge.From, c.Edge.To, c.Paths))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
