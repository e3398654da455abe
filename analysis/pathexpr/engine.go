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

	"github.com/awslabs/ar-go-dua/analysis/config"
	"github.com/awslabs/ar-go-dua/analysis/dua"
	"github.com/awslabs/ar-go-dua/analysis/program"
	"github.com/awslabs/ar-go-dua/internal/funcutil"
	"github.com/awslabs/ar-go-dua/internal/graphutil"
	"github.com/willf/bitset"
)

// DUAPaths is the path expression of a DUA, from the out side of its def node, with the loop edges it does not
// account for.
type DUAPaths struct {
	Expr *Expr
	// Incoming are the edges entering the source of a back edge on paths the expression does not connect through
	// the back edge
	Incoming []graphutil.Edge
	// Departing are the edges leaving the target of a back edge on paths the nested expression does not cover
	Departing []graphutil.Edge
}

// HasWarning returns true if some loop entry or exit is not covered by the expression
func (p *DUAPaths) HasWarning() bool {
	return len(p.Incoming) > 0 || len(p.Departing) > 0
}

// Engine computes path expressions. It caches the numbering of every procedure.
type Engine struct {
	Program *program.Program
	Config  *config.Config
	Logger  *config.LogGroup

	numberings map[int]*Numbering
	failures   map[int]error

	// visit returns the order in which the fixpoint of Compute visits the nodes of a procedure
	visit func(n int) []int
}

// NewEngine returns an engine for prog
func NewEngine(prog *program.Program, cfg *config.Config, logger *config.LogGroup) *Engine {
	return &Engine{
		Program:    prog,
		Config:     cfg,
		Logger:     logger,
		numberings: map[int]*Numbering{},
		failures:   map[int]error{},
		visit:      reverseNodes,
	}
}

func reverseNodes(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = n - 1 - i
	}
	return order
}

// Numbering returns the numbering of the paths of procedure proc
func (e *Engine) Numbering(proc int) (*Numbering, error) {
	if nb, ok := e.numberings[proc]; ok {
		return nb, nil
	}
	if err, ok := e.failures[proc]; ok {
		return nil, err
	}
	limit := e.Config.Options.MaxPathIDs
	if limit <= 0 {
		limit = config.DefaultMaxPathIDs
	}
	nb, err := NewNumbering(e.Program.Procs[proc], limit)
	if err != nil {
		e.failures[proc] = err
		if errors.Is(err, ErrTooManyPaths) {
			e.Logger.Warnf("skipping path expressions: %v\n", err)
		}
		return nil, err
	}
	e.Logger.Tracef("%s: %d paths, %d back edges\n", nb.Proc.Name, nb.NumPaths, len(nb.BackEdges))
	e.numberings[proc] = nb
	return nb, nil
}

// Run computes the path expressions of the DUAs of set that have local uses, and sets their PathWarning. The
// result maps the index of a DUA in the set to its paths. DUAs in procedures with too many paths are skipped.
func (e *Engine) Run(set *dua.Set) (map[int]*DUAPaths, error) {
	res := map[int]*DUAPaths{}
	for i := 0; i < set.Len(); i++ {
		d := set.At(i)
		if d.Heap || len(d.LocalUses) == 0 {
			continue
		}
		p, err := e.Compute(d)
		if errors.Is(err, ErrTooManyPaths) {
			continue
		}
		if err != nil {
			return nil, err
		}
		d.PathWarning = p.HasWarning()
		res[i] = p
	}
	return res, nil
}

// Compute returns the path expression of a DUA with local uses.
func (e *Engine) Compute(d *dua.DUA) (*DUAPaths, error) {
	nb, err := e.Numbering(d.Def.At.Proc)
	if err != nil {
		return nil, err
	}
	f := nb.Proc
	n := len(f.Nodes)

	kills := make([]bool, n)
	kills[d.Def.At.Node] = true
	for _, node := range f.Nodes {
		for _, v := range node.Defs {
			if v == d.Def.Var {
				kills[node.ID] = true
			}
		}
	}

	gen := make([]*Expr, n)
	for i := range gen {
		gen[i] = &Expr{}
	}
	edgeGen := map[graphutil.Edge]*Expr{}
	for _, w := range d.LocalUses {
		node := w.At.Node
		switch {
		case w != d.Use:
			// reached in a callee: the DUA is covered by the paths ending in the call
			gen[node] = gen[node].Merge(ending(node, nb.CallPaths(node)))
		case w.Kind == program.PUse:
			edge := graphutil.Edge{From: node, To: w.Succ}
			edgeGen[edge] = edgeGen[edge].Merge(ending(node, nb.EdgePaths(edge)))
		default:
			gen[node] = gen[node].Merge(ending(node, nb.NodePaths(node)))
		}
	}

	in := make([]*Expr, n)
	out := make([]*Expr, n)
	for i := range in {
		in[i] = &Expr{}
		out[i] = &Expr{}
	}
	order := e.visit(n)
	for change := true; change; {
		change = false
		for _, i := range order {
			node := f.Nodes[i]
			o := &Expr{}
			for _, s := range node.Succs {
				edge := graphutil.Edge{From: i, To: s}
				if conn, isBack := nb.Conn(edge); isBack {
					o = o.Merge(Extend(in[s].Restrict(conn.Outgoing), edge, conn.Incoming))
				} else {
					o = o.Merge(in[s].Restrict(nb.EdgePaths(edge)))
				}
				if g, ok := edgeGen[edge]; ok {
					o = o.Merge(g)
				}
			}
			out[i] = o
			newIn := gen[i]
			if !kills[i] {
				newIn = newIn.Merge(o)
			}
			if !newIn.Equal(in[i]) {
				in[i] = newIn
				change = true
			}
		}
	}

	expr := seal(nb, in, out[d.Def.At.Node])
	incoming, departing := diff(nb, expr)
	return &DUAPaths{Expr: expr, Incoming: incoming, Departing: departing}, nil
}

func ending(node int, paths *bitset.BitSet) *Expr {
	if !paths.Any() {
		return &Expr{}
	}
	return &Expr{Endings: []Ending{{Node: node, Paths: paths.Clone()}}}
}

// seal builds the final expression of top: every connection through a back edge v -> w points to the expression
// of w restricted to the paths starting at w. Those expressions are shared by all the connections through the same
// back edge, and are complete before the result is returned.
func seal(nb *Numbering, in []*Expr, top *Expr) *Expr {
	nested := make([]*Expr, len(nb.BackEdges))
	for i := range nested {
		nested[i] = &Expr{}
	}
	link := func(dst *Expr, src *Expr) {
		dst.Endings = src.Endings
		dst.Conns = make([]Conn, len(src.Conns))
		for i, c := range src.Conns {
			idx := nb.backIndex[c.Edge]
			dst.Conns[i] = Conn{Edge: c.Edge, Paths: c.Paths, Nested: nested[idx]}
		}
	}
	for i, cp := range nb.Conns {
		link(nested[i], in[cp.Edge.To].Restrict(cp.Outgoing))
	}
	res := &Expr{}
	link(res, top.Clone())
	return res
}

// diff returns the edges entering the source of a back edge on paths the expression does not connect through it,
// and the edges leaving the target of a back edge on paths the nested expression does not cover. Every connection
// reachable from expr is visited once.
func diff(nb *Numbering, expr *Expr) ([]graphutil.Edge, []graphutil.Edge) {
	size := uint(nb.NumPaths)
	incoming := map[graphutil.Edge]bool{}
	departing := map[graphutil.Edge]bool{}
	visited := map[*Expr]bool{}
	stack := []*Expr{expr}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[x] {
			continue
		}
		visited[x] = true
		for _, c := range x.Conns {
			cp, _ := nb.Conn(c.Edge)
			for _, p := range nb.Proc.Nodes[c.Edge.From].Preds {
				e := graphutil.Edge{From: p, To: c.Edge.From}
				bits := nb.EdgePaths(e).Intersection(cp.Incoming)
				if bits.Any() && !bits.Intersection(c.Paths).Any() {
					incoming[e] = true
				}
			}
			covered := c.Nested.Paths(size)
			for _, s := range nb.Proc.Nodes[c.Edge.To].Succs {
				e := graphutil.Edge{From: c.Edge.To, To: s}
				bits := nb.EdgePaths(e).Intersection(cp.Outgoing)
				if bits.Any() && !bits.Intersection(covered).Any() {
					departing[e] = true
				}
			}
			stack = append(stack, c.Nested)
		}
	}
	return sortedEdges(incoming), sortedEdges(departing)
}

func sortedEdges(set map[graphutil.Edge]bool) []graphutil.Edge {
	return funcutil.SortedSet(set, edgeLess)
}
