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

package program

import "fmt"

// Def is a definition of a variable at a program point
type Def struct {
	At    NodeRef
	Var   Variable
	Const bool
}

// Less is the total order on definitions used to make the analysis output deterministic.
func (d Def) Less(o Def) bool {
	if d.At != o.At {
		return d.At.Less(o.At)
	}
	if d.Var != o.Var {
		return d.Var.Less(o.Var)
	}
	return !d.Const && o.Const
}

func (d Def) String() string {
	return fmt.Sprintf("def(%s@%s)", d.Var, d.At)
}

// UseKind distinguishes computation uses from predicate uses
type UseKind uint8

const (
	// CUse is a use in a computation at a node
	CUse UseKind = iota
	// PUse is a use in a predicate, attributed to the branch taken
	PUse
)

// Use is a use of a variable. For a p-use, Succ is the target of the branch the use rides on; for a c-use it is -1.
type Use struct {
	Kind UseKind
	At   NodeRef
	Succ int
	Var  Variable
}

// NewCUse returns the c-use of v at r
func NewCUse(r NodeRef, v Variable) Use {
	return Use{Kind: CUse, At: r, Succ: -1, Var: v}
}

// NewPUse returns the p-use of v on the branch from r to node succ
func NewPUse(r NodeRef, succ int, v Variable) Use {
	return Use{Kind: PUse, At: r, Succ: succ, Var: v}
}

// Less is the total order on uses used to make the analysis output deterministic.
func (u Use) Less(o Use) bool {
	if u.At != o.At {
		return u.At.Less(o.At)
	}
	if u.Kind != o.Kind {
		return u.Kind < o.Kind
	}
	if u.Succ != o.Succ {
		return u.Succ < o.Succ
	}
	return u.Var.Less(o.Var)
}

func (u Use) String() string {
	if u.Kind == PUse {
		return fmt.Sprintf("puse(%s@%s->%d)", u.Var, u.At, u.Succ)
	}
	return fmt.Sprintf("cuse(%s@%s)", u.Var, u.At)
}

// DefsOf returns the definitions at node n of procedure f.
func (f *Procedure) DefsOf(n *Node) []Def {
	defs := make([]Def, 0, len(n.Defs))
	for _, v := range n.Defs {
		defs = append(defs, Def{At: f.Ref(n.ID), Var: v, Const: n.Const})
	}
	return defs
}

// UsesOf returns the uses at node n of procedure f: one c-use per variable for ordinary nodes, and one p-use per
// variable and outgoing branch for branch nodes.
func (f *Procedure) UsesOf(n *Node) []Use {
	var uses []Use
	for _, v := range n.Uses {
		if n.IsBranch() {
			for _, s := range n.Succs {
				uses = append(uses, NewPUse(f.Ref(n.ID), s, v))
			}
		} else {
			uses = append(uses, NewCUse(f.Ref(n.ID), v))
		}
	}
	return uses
}
