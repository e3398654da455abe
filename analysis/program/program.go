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

// Package program defines the program model consumed by the definition-use analysis: procedures with their
// control-flow graphs, the definitions and uses at every node, call sites and a type hierarchy.
//
// A program model is built either by the loader (see package loader) or directly with the construction methods of
// this package (AddProcedure, AddNode, AddEdge, Define, Use, Call). Once Finalize has returned without error, the
// program is treated as read-only by the analyses.
package program

import (
	"fmt"
	"sort"
)

// EntryID and ExitID are the indexes of the sentinel nodes of every procedure.
const (
	EntryID = 0
	ExitID  = 1
)

// NodeRef names a program point: node Node of procedure Proc (an index in Program.Procs).
type NodeRef struct {
	Proc int
	Node int
}

// Less orders program points by procedure and then node index.
func (r NodeRef) Less(o NodeRef) bool {
	if r.Proc != o.Proc {
		return r.Proc < o.Proc
	}
	return r.Node < o.Node
}

func (r NodeRef) String() string {
	return fmt.Sprintf("%d:%d", r.Proc, r.Node)
}

// CallSite is an outgoing interprocedural call edge at a node.
type CallSite struct {
	// Callee is the name of the called procedure. It may name a procedure that is not part of the program.
	Callee string

	// Args are the actual arguments, by position. A zero Variable means the actual is not a plain local variable.
	Args []Variable
}

// Node is a program point of a procedure's control-flow graph.
type Node struct {
	// ID is the index of the node in its procedure
	ID int

	// Label is a human readable description of the node, typically a source position
	Label string

	// Defs are the variables written at the node
	Defs []Variable

	// Const is true if the values defined at the node are constants
	Const bool

	// Uses are the variables read at the node. If the node is a predicate, those are p-uses.
	Uses []Variable

	// Predicate is true if the node decides which successor is taken
	Predicate bool

	// InHandler is true if the node is part of an exception handler
	InHandler bool

	// Succs and Preds are ordered successor and predecessor node indexes
	Succs []int
	Preds []int

	// Calls are the call sites at the node, in evaluation order
	Calls []CallSite
}

// IsBranch returns true if the uses at the node are predicate uses, i.e. the node decides between more than one
// successor.
func (n *Node) IsBranch() bool {
	return n.Predicate && len(n.Succs) > 1
}

// Defines returns true if the node defines a variable that may be equal to v
func (n *Node) Defines(v Variable) bool {
	for _, d := range n.Defs {
		if d.MayEqual(v) {
			return true
		}
	}
	return false
}

// Procedure is a procedure of the program with its control-flow graph. Nodes[EntryID] and Nodes[ExitID] are the
// entry and exit sentinels.
type Procedure struct {
	// Index is the index of the procedure in Program.Procs
	Index int

	// Name uniquely identifies the procedure in the program
	Name string

	// Params are the formal parameters. For methods, the receiver is the first parameter.
	Params []Variable

	// Nodes are all the nodes of the procedure, indexed by their ID
	Nodes []*Node

	prog *Program
}

// Ref returns the program point of node id in the procedure
func (f *Procedure) Ref(id int) NodeRef {
	return NodeRef{Proc: f.Index, Node: id}
}

// AddNode adds a new node to the procedure and returns it
func (f *Procedure) AddNode(label string) *Node {
	n := &Node{ID: len(f.Nodes), Label: label}
	f.Nodes = append(f.Nodes, n)
	return n
}

// AddEdge adds the control-flow edge from -> to. Adding an existing edge has no effect.
func (f *Procedure) AddEdge(from, to int) {
	src := f.Nodes[from]
	for _, s := range src.Succs {
		if s == to {
			return
		}
	}
	src.Succs = append(src.Succs, to)
	f.Nodes[to].Preds = append(f.Nodes[to].Preds, from)
}

// Chain adds edges linking the nodes in sequence.
func (f *Procedure) Chain(ids ...int) {
	for i := 1; i < len(ids); i++ {
		f.AddEdge(ids[i-1], ids[i])
	}
}

// Define adds definitions to the node and returns the node
func (n *Node) Define(vars ...Variable) *Node {
	n.Defs = append(n.Defs, vars...)
	return n
}

// Use adds uses to the node and returns the node
func (n *Node) Use(vars ...Variable) *Node {
	n.Uses = append(n.Uses, vars...)
	return n
}

// Call adds a call site to the node and returns the node
func (n *Node) Call(callee string, args ...Variable) *Node {
	n.Calls = append(n.Calls, CallSite{Callee: callee, Args: args})
	return n
}

// Program is the whole-program model: procedures, their control-flow graphs and the call graph implied by their
// call sites.
type Program struct {
	// Procs are all the procedures of the program, in a stable order
	Procs []*Procedure

	// Subtypes maps a type name to the names of its concrete subtypes. For an interface, the concrete subtypes are
	// the types implementing it.
	Subtypes map[string][]string

	byName  map[string]int
	callers [][]int
	callees [][]int
}

// New returns an empty program
func New() *Program {
	return &Program{
		Subtypes: map[string][]string{},
		byName:   map[string]int{},
	}
}

// AddProcedure adds a procedure with its entry and exit nodes. Adding a procedure with an existing name returns
// an error.
func (p *Program) AddProcedure(name string, params ...Variable) (*Procedure, error) {
	if _, ok := p.byName[name]; ok {
		return nil, fmt.Errorf("duplicate procedure %q", name)
	}
	f := &Procedure{Index: len(p.Procs), Name: name, Params: params, prog: p}
	f.AddNode("entry")
	f.AddNode("exit")
	p.byName[name] = f.Index
	p.Procs = append(p.Procs, f)
	return f, nil
}

// Lookup returns the procedure named name, if it is part of the program
func (p *Program) Lookup(name string) (*Procedure, bool) {
	i, ok := p.byName[name]
	if !ok {
		return nil, false
	}
	return p.Procs[i], true
}

// Node returns the node at the program point
func (p *Program) Node(r NodeRef) *Node {
	return p.Procs[r.Proc].Nodes[r.Node]
}

// Label returns a printable name for the program point
func (p *Program) Label(r NodeRef) string {
	f := p.Procs[r.Proc]
	return fmt.Sprintf("%s#%d(%s)", f.Name, r.Node, f.Nodes[r.Node].Label)
}

// Callees returns the indexes of the procedures called by procedure i. Finalize must have been called.
func (p *Program) Callees(i int) []int {
	return p.callees[i]
}

// Callers returns the indexes of the procedures calling procedure i. Finalize must have been called.
func (p *Program) Callers(i int) []int {
	return p.callers[i]
}

// PossibleTypes returns the set of concrete types an object variable may have: only its declared type when the
// access is exact, otherwise the declared type and all its subtypes.
func (p *Program) PossibleTypes(v Variable) map[string]bool {
	res := map[string]bool{v.Name: true}
	if v.Exact {
		return res
	}
	for _, sub := range p.Subtypes[v.Name] {
		res[sub] = true
	}
	return res
}

// Finalize checks the consistency of the control-flow graphs and computes the call graph. It must be called once
// all procedures have been added, and before the program is analyzed.
func (p *Program) Finalize() error {
	p.callers = make([][]int, len(p.Procs))
	p.callees = make([][]int, len(p.Procs))
	for _, f := range p.Procs {
		if len(f.Nodes) < 2 {
			return fmt.Errorf("procedure %s has no entry or exit node", f.Name)
		}
		if len(f.Nodes[EntryID].Preds) > 0 {
			return fmt.Errorf("entry of procedure %s has predecessors", f.Name)
		}
		if len(f.Nodes[ExitID].Succs) > 0 {
			return fmt.Errorf("exit of procedure %s has successors", f.Name)
		}
		seen := map[int]bool{}
		for _, n := range f.Nodes {
			for _, s := range n.Succs {
				if s < 0 || s >= len(f.Nodes) {
					return fmt.Errorf("node %d of %s has an invalid successor %d", n.ID, f.Name, s)
				}
			}
			for _, c := range n.Calls {
				if g, ok := p.byName[c.Callee]; ok && !seen[g] {
					seen[g] = true
					p.callees[f.Index] = append(p.callees[f.Index], g)
					p.callers[g] = append(p.callers[g], f.Index)
				}
			}
		}
		sort.Ints(p.callees[f.Index])
	}
	for i := range p.callers {
		sort.Ints(p.callers[i])
	}
	return nil
}
