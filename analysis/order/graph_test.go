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
	"testing"

	"github.com/awslabs/ar-go-dua/analysis/program"
)

// diamondLoop builds:
//
//	entry -> a -> b -> d -> e -> exit
//	         a -> c -> d
//	                   e -> a (back edge)
func diamondLoop(t *testing.T) (*program.Program, map[string]program.NodeRef) {
	p := program.New()
	f, _ := p.AddProcedure("f")
	ids := map[string]program.NodeRef{"entry": f.Ref(program.EntryID), "exit": f.Ref(program.ExitID)}
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		ids[name] = f.Ref(f.AddNode(name).ID)
	}
	n := func(s string) int { return ids[s].Node }
	f.Chain(program.EntryID, n("a"), n("b"), n("d"), n("e"), program.ExitID)
	f.Chain(n("a"), n("c"), n("d"))
	f.AddEdge(n("e"), n("a"))
	g, _ := p.AddProcedure("g")
	ids["g"] = g.Ref(g.AddNode("g").ID)
	g.Chain(program.EntryID, ids["g"].Node, program.ExitID)
	if err := p.Finalize(); err != nil {
		t.Fatalf("invalid program: %v", err)
	}
	return p, ids
}

func TestGraphDominance(t *testing.T) {
	p, ids := diamondLoop(t)
	o := NewGraph(p)
	tests := []struct {
		a, b    string
		dom     bool
		postdom bool
	}{
		{"a", "d", true, false},
		{"d", "a", false, true},
		{"b", "d", false, false},
		{"d", "b", false, true},
		{"a", "a", true, true},
		{"e", "exit", true, false},
		{"exit", "entry", false, true},
		{"a", "g", false, false},
	}
	for _, test := range tests {
		if got := o.Dominates(ids[test.a], ids[test.b]); got != test.dom {
			t.Errorf("Dominates(%s, %s) = %v, want %v", test.a, test.b, got, test.dom)
		}
		if got := o.Postdominates(ids[test.a], ids[test.b]); got != test.postdom {
			t.Errorf("Postdominates(%s, %s) = %v, want %v", test.a, test.b, got, test.postdom)
		}
	}
}

func TestGraphReaches(t *testing.T) {
	p, ids := diamondLoop(t)
	o := NewGraph(p)
	if !o.Reaches(ids["d"], ids["b"], false) {
		t.Errorf("d reaches b through the back edge")
	}
	if !o.Reaches(ids["a"], ids["a"], false) {
		t.Errorf("a is on a cycle")
	}
	if o.Reaches(ids["exit"], ids["a"], false) {
		t.Errorf("exit reaches nothing")
	}
	if o.Reaches(ids["entry"], ids["entry"], true) {
		t.Errorf("entry is not on a cycle and f is not recursive")
	}
	if o.Reaches(ids["a"], ids["g"], false) || !o.Reaches(ids["a"], ids["g"], true) {
		t.Errorf("procedures are only connected interprocedurally")
	}
}

func TestRecursiveProcedureReachesItself(t *testing.T) {
	p := program.New()
	f, _ := p.AddProcedure("f")
	a := f.AddNode("a")
	c := f.AddNode("call f").Call("f")
	f.Chain(program.EntryID, a.ID, c.ID, program.ExitID)
	if err := p.Finalize(); err != nil {
		t.Fatalf("invalid program: %v", err)
	}
	o := NewGraph(p)
	if o.Reaches(f.Ref(c.ID), f.Ref(a.ID), false) {
		t.Errorf("no intraprocedural path from the call to a")
	}
	if !o.Reaches(f.Ref(c.ID), f.Ref(a.ID), true) {
		t.Errorf("the recursive call re-enters f")
	}
}

func TestNullOracle(t *testing.T) {
	var o Oracle = Null{}
	r := program.NodeRef{}
	if o.Reaches(r, r, true) || o.Dominates(r, r) || o.Postdominates(r, r) {
		t.Errorf("the null oracle answers false")
	}
}
