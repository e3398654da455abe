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
	"errors"
	"sort"
	"testing"

	"github.com/awslabs/ar-go-dua/analysis/config"
	"github.com/awslabs/ar-go-dua/analysis/order"
	"github.com/awslabs/ar-go-dua/analysis/program"
)

func loc(name string) program.Variable { return program.LocalVar("f", name) }

func run(t *testing.T, prog *program.Program, cfg *config.Config) *State {
	t.Helper()
	if cfg == nil {
		cfg = config.NewDefault()
	}
	s := NewState(prog, order.NewGraph(prog), cfg, nil)
	if err := s.Run(); err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	return s
}

func finalize(t *testing.T, prog *program.Program) {
	t.Helper()
	if err := prog.Finalize(); err != nil {
		t.Fatalf("invalid program: %v", err)
	}
}

func duasOf(s *State, v program.Variable) []*DUA {
	var res []*DUA
	for _, d := range s.Set.All() {
		if d.Def.Var == v {
			res = append(res, d)
		}
	}
	return res
}

func checkKillPartition(t *testing.T, s *State) {
	t.Helper()
	for _, d := range s.Set.All() {
		candidates := map[program.Def]bool{}
		for _, k := range s.killers[d.Def] {
			candidates[k] = true
		}
		inOrder := map[program.Def]bool{}
		for _, k := range d.KillsInOrder {
			inOrder[k] = true
			if !candidates[k] {
				t.Errorf("%s: hard kill %s is not a kill candidate", d, k)
			}
		}
		for _, k := range d.KillsNotInOrder {
			if inOrder[k] {
				t.Errorf("%s: %s is both a hard and a possible kill", d, k)
			}
			if !candidates[k] {
				t.Errorf("%s: possible kill %s is not a kill candidate", d, k)
			}
		}
	}
}

// straightLine is x = 1; y = x; print(y)
func straightLine(t *testing.T) (*program.Program, []*program.Node) {
	prog := program.New()
	f, _ := prog.AddProcedure("f")
	n1 := f.AddNode("x = 1").Define(loc("x"))
	n1.Const = true
	n2 := f.AddNode("y = x").Define(loc("y")).Use(loc("x"))
	n3 := f.AddNode("print(y)").Call("fmt.Println", loc("y"))
	f.Chain(program.EntryID, n1.ID, n2.ID, n3.ID, program.ExitID)
	finalize(t, prog)
	return prog, []*program.Node{n1, n2, n3}
}

func TestStraightLine(t *testing.T) {
	prog, nodes := straightLine(t)
	s := run(t, prog, nil)
	xs := duasOf(s, loc("x"))
	if len(xs) != 1 {
		t.Fatalf("expected exactly one DUA of x, got %v", xs)
	}
	d := xs[0]
	if d.Def.At.Node != nodes[0].ID || d.Use.At.Node != nodes[1].ID || d.Use.Kind != program.CUse {
		t.Errorf("unexpected DUA %s", d)
	}
	if !d.Def.Const {
		t.Errorf("x = 1 is a constant def")
	}
	if d.Classification() != Definite {
		t.Errorf("expected %s to be definitely inferrable", d)
	}
	if len(d.KillsInOrder)+len(d.KillsNotInOrder) != 0 {
		t.Errorf("expected no kills on %s", d)
	}
	// the argument of an external call is an ordinary use
	ys := duasOf(s, loc("y"))
	if len(ys) != 1 || ys[0].Use.At.Node != nodes[2].ID {
		t.Errorf("expected y to reach the call argument, got %v", ys)
	}
	if s.Set.Len() != 2 {
		t.Errorf("expected 2 DUAs, got %d", s.Set.Len())
	}
}

// conditionalRedef is x = 1; if c { x = 2 }; y = x
func TestConditionalRedefinition(t *testing.T) {
	prog := program.New()
	f, _ := prog.AddProcedure("f", loc("c"))
	n1 := f.AddNode("x = 1").Define(loc("x"))
	n2 := f.AddNode("if c").Use(loc("c"))
	n2.Predicate = true
	n3 := f.AddNode("x = 2").Define(loc("x"))
	n4 := f.AddNode("y = x").Define(loc("y")).Use(loc("x"))
	f.Chain(program.EntryID, n1.ID, n2.ID, n3.ID, n4.ID, program.ExitID)
	f.AddEdge(n2.ID, n4.ID)
	finalize(t, prog)

	s := run(t, prog, nil)
	use := program.NewCUse(f.Ref(n4.ID), loc("x"))
	reaching := s.Set.ToUse(use)
	if len(reaching) != 2 {
		t.Fatalf("expected two DUAs reaching %s, got %v", use, reaching)
	}
	first, second := reaching[0], reaching[1]
	if first.Def.At.Node != n1.ID || second.Def.At.Node != n3.ID {
		t.Fatalf("unexpected order %v", reaching)
	}
	kill := program.Def{At: f.Ref(n3.ID), Var: loc("x")}
	if len(first.KillsInOrder) != 1 || first.KillsInOrder[0] != kill {
		t.Errorf("expected %s to be a hard kill of %s", kill, first)
	}
	if len(second.KillsInOrder)+len(second.KillsNotInOrder) != 0 {
		t.Errorf("nothing can kill %s", second)
	}
	for _, d := range reaching {
		if d.Classification() != Definite {
			t.Errorf("expected %s to be definitely inferrable", d)
		}
	}
	checkKillPartition(t, s)
}

func TestPredicateUseWithTwoDefs(t *testing.T) {
	prog := program.New()
	f, _ := prog.AddProcedure("f", loc("c"))
	n1 := f.AddNode("x = 1").Define(loc("x"))
	n2 := f.AddNode("if c").Use(loc("c"))
	n2.Predicate = true
	n3 := f.AddNode("x = 2").Define(loc("x"))
	n4 := f.AddNode("if x > 0").Use(loc("x"))
	n4.Predicate = true
	n5 := f.AddNode("a")
	n6 := f.AddNode("b")
	f.Chain(program.EntryID, n1.ID, n2.ID, n3.ID, n4.ID, n5.ID, program.ExitID)
	f.AddEdge(n2.ID, n4.ID)
	f.Chain(n4.ID, n6.ID, program.ExitID)
	finalize(t, prog)

	s := run(t, prog, nil)
	xs := duasOf(s, loc("x"))
	if len(xs) != 4 {
		t.Fatalf("expected 4 p-use DUAs of x, got %v", xs)
	}
	for _, d := range xs {
		if d.Use.Kind != program.PUse {
			t.Errorf("expected a p-use in %s", d)
		}
		if d.IsInferrableOrCondInf() {
			t.Errorf("%s is reached by two defs and cannot be inferred", d)
		}
	}
	// before classification, the def closest to the branch is ordered with it
	if !s.ordered(f.Ref(n3.ID), f.Ref(n4.ID)) {
		t.Errorf("x = 2 always executes before the branch")
	}
}

// loop is x = 0; for c { y = x; x = x + 1 }; print(x)
func loop(t *testing.T) (*program.Program, *program.Procedure, []*program.Node) {
	prog := program.New()
	f, _ := prog.AddProcedure("f", loc("c"))
	n1 := f.AddNode("x = 0").Define(loc("x"))
	n2 := f.AddNode("for c").Use(loc("c"))
	n2.Predicate = true
	n3 := f.AddNode("y = x").Define(loc("y")).Use(loc("x"))
	n4 := f.AddNode("x = x + 1").Define(loc("x")).Use(loc("x"))
	n5 := f.AddNode("print(x)").Use(loc("x"))
	f.Chain(program.EntryID, n1.ID, n2.ID, n3.ID, n4.ID, n2.ID)
	f.Chain(n2.ID, n5.ID, program.ExitID)
	finalize(t, prog)
	return prog, f, []*program.Node{n1, n2, n3, n4, n5}
}

func TestLoopKills(t *testing.T) {
	prog, f, nodes := loop(t)
	s := run(t, prog, nil)
	def0 := program.Def{At: f.Ref(nodes[0].ID), Var: loc("x")}
	def1 := program.Def{At: f.Ref(nodes[3].ID), Var: loc("x")}
	useY := program.NewCUse(f.Ref(nodes[2].ID), loc("x"))
	useInc := program.NewCUse(f.Ref(nodes[3].ID), loc("x"))

	d, ok := s.Set.Lookup(def0, useY)
	if !ok {
		t.Fatalf("missing DUA %s -> %s", def0, useY)
	}
	if d.Classification() != Conditional {
		t.Errorf("expected %s to be conditionally inferrable", d)
	}
	if len(d.KillsNotInOrder) != 1 || d.KillsNotInOrder[0] != def1 {
		t.Errorf("expected %s to be a possible kill of %s", def1, d)
	}

	back, ok := s.Set.Lookup(def1, useY)
	if !ok {
		t.Fatalf("missing DUA %s -> %s", def1, useY)
	}
	if back.Classification() != NonInferrable {
		t.Errorf("the use reaches the def through the loop, %s cannot be inferred", back)
	}
	if _, ok := s.Set.Lookup(def1, useInc); !ok {
		t.Errorf("x = x + 1 reaches its own use through the back edge")
	}
	checkKillPartition(t, s)
}

func rank(c Classification) int {
	switch c {
	case Definite:
		return 2
	case Conditional:
		return 1
	default:
		return 0
	}
}

func TestDisablingOraclesIsMonotone(t *testing.T) {
	prog, _, _ := loop(t)
	full := run(t, prog, nil)
	for _, opts := range []struct{ reach, dom bool }{{false, true}, {true, false}, {false, false}} {
		cfg := config.NewDefault()
		cfg.Options.UseReachability = opts.reach
		cfg.Options.UseDominance = opts.dom
		weak := run(t, prog, cfg)
		if weak.Set.Len() != full.Set.Len() {
			t.Fatalf("oracles change the number of DUAs: %d vs %d", weak.Set.Len(), full.Set.Len())
		}
		for i := 0; i < full.Set.Len(); i++ {
			a, b := full.Set.At(i), weak.Set.At(i)
			if a.Def != b.Def || a.Use != b.Use {
				t.Fatalf("oracles change the order of DUAs: %s vs %s", a, b)
			}
			if rank(b.Classification()) > rank(a.Classification()) {
				t.Errorf("%+v: %s became more inferrable than %s", opts, b, a)
			}
		}
		checkKillPartition(t, weak)
	}

	null := NewState(prog, order.Null{}, config.NewDefault(), nil)
	if err := null.Run(); err != nil {
		t.Fatal(err)
	}
	for _, d := range null.Set.All() {
		if d.IsInferrableOrCondInf() {
			t.Errorf("without order facts, %s cannot be inferred", d)
		}
	}
}

func labels(s *State) []string {
	var res []string
	for _, d := range s.Set.All() {
		res = append(res, s.Program.Label(d.Def.At)+" "+d.Def.Var.String()+" -> "+
			s.Program.Label(d.Use.At)+" "+d.Use.Var.String()+" "+d.Classification().String())
	}
	sort.Strings(res)
	return res
}

// callChain builds main calling g(x) and g calling h(p), with the procedures added in the given order
func callChain(t *testing.T, procOrder []string) *program.Program {
	prog := program.New()
	for _, name := range procOrder {
		switch name {
		case "main":
			f, _ := prog.AddProcedure("main")
			x := program.LocalVar("main", "x")
			n1 := f.AddNode("x = 1").Define(x)
			n2 := f.AddNode("g(x)").Call("g", x)
			f.Chain(program.EntryID, n1.ID, n2.ID, program.ExitID)
		case "g":
			p := program.LocalVar("g", "p")
			f, _ := prog.AddProcedure("g", p)
			n1 := f.AddNode("h(p)").Call("h", p)
			n2 := f.AddNode("print(p)").Use(p)
			f.Chain(program.EntryID, n1.ID, n2.ID, program.ExitID)
		case "h":
			q := program.LocalVar("h", "q")
			f, _ := prog.AddProcedure("h", q)
			n1 := f.AddNode("if q").Use(q)
			n1.Predicate = true
			n2 := f.AddNode("q = 0").Define(q)
			f.Chain(program.EntryID, n1.ID, n2.ID, program.ExitID)
			f.AddEdge(n1.ID, program.ExitID)
		}
	}
	finalize(t, prog)
	return prog
}

func TestInterproceduralLinks(t *testing.T) {
	prog := callChain(t, []string{"main", "g", "h"})
	s := run(t, prog, nil)
	main, _ := prog.Lookup("main")
	g, _ := prog.Lookup("g")
	h, _ := prog.Lookup("h")
	def := program.Def{At: main.Ref(2), Var: program.LocalVar("main", "x")}
	duas := s.Set.FromDef(def)
	// print(p) in g, and both branches of if q in h
	if len(duas) != 3 {
		t.Fatalf("expected x to reach 3 uses through the calls, got %v", duas)
	}
	witness := program.NewCUse(main.Ref(3), program.LocalVar("main", "x"))
	for _, d := range duas {
		if !d.IsInterprocedural() {
			t.Errorf("%s should be interprocedural", d)
		}
		if len(d.LocalUses) != 1 || d.LocalUses[0] != witness {
			t.Errorf("%s should be reached through the argument of g(x)", d)
		}
		if d.Use.At.Proc != g.Index && d.Use.At.Proc != h.Index {
			t.Errorf("unexpected use in %s", d)
		}
	}
	if d, ok := s.Set.Lookup(def, program.NewCUse(g.Ref(3), program.LocalVar("g", "p"))); !ok {
		t.Errorf("missing DUA of x to print(p)")
	} else if d.Classification() != Definite {
		t.Errorf("expected %s to be definitely inferrable", d)
	}
	// formals are not defined at the entry when arguments are linked
	for _, d := range s.Set.All() {
		if d.Def.At.Node == program.EntryID {
			t.Errorf("unexpected def at an entry: %s", d)
		}
	}
}

// calleeRedefinition is main: x = 1; g(x) and g(p): if p > 0 { p = 5 }; print(p)
func calleeRedefinition(t *testing.T) (*program.Program, program.Def, program.Def, program.Use) {
	prog := program.New()
	m, _ := prog.AddProcedure("main")
	x := program.LocalVar("main", "x")
	n1 := m.AddNode("x = 1").Define(x)
	n2 := m.AddNode("g(x)").Call("g", x)
	m.Chain(program.EntryID, n1.ID, n2.ID, program.ExitID)

	p := program.LocalVar("g", "p")
	g, _ := prog.AddProcedure("g", p)
	c1 := g.AddNode("if p > 0").Use(p)
	c1.Predicate = true
	c2 := g.AddNode("p = 5").Define(p)
	c3 := g.AddNode("print(p)").Use(p)
	g.Chain(program.EntryID, c1.ID, c2.ID, c3.ID, program.ExitID)
	g.AddEdge(c1.ID, c3.ID)
	finalize(t, prog)
	return prog, program.Def{At: m.Ref(n1.ID), Var: x}, program.Def{At: g.Ref(c2.ID), Var: p},
		program.NewCUse(g.Ref(c3.ID), p)
}

func TestCalleeRedefinitionKillsArgument(t *testing.T) {
	prog, argDef, calleeDef, use := calleeRedefinition(t)
	s := run(t, prog, nil)
	d, ok := s.Set.Lookup(argDef, use)
	if !ok {
		t.Fatalf("missing DUA %s -> %s", argDef, use)
	}
	if len(d.KillsNotInOrder) != 1 || d.KillsNotInOrder[0] != calleeDef || len(d.KillsInOrder) != 0 {
		t.Errorf("expected %s to be a possible kill of %s", calleeDef, d)
	}
	if d.Classification() != Conditional {
		t.Errorf("expected %s to be conditionally inferrable", d)
	}
	local, ok := s.Set.Lookup(calleeDef, use)
	if !ok || local.Classification() != Definite {
		t.Errorf("expected a definitely inferrable DUA from p = 5 to print(p), got %v", local)
	}
	// the redefinition does not reach the branch, so it does not kill the DUAs of the condition
	for _, d := range s.Set.FromDef(argDef) {
		if d.Use.Kind == program.PUse && len(d.KillsNotInOrder)+len(d.KillsInOrder) != 0 {
			t.Errorf("unexpected kills in %s", d)
		}
	}
	checkKillPartition(t, s)

	cfg := config.NewDefault()
	cfg.Options.ParamsReturnsAsDefsUses = true
	s = run(t, prog, cfg)
	for _, d := range s.Set.FromDef(argDef) {
		if len(d.KillsNotInOrder)+len(d.KillsInOrder) != 0 {
			t.Errorf("the argument is not linked to the formal when parameters are defs: %s", d)
		}
	}
}

func TestParamsAsDefsUses(t *testing.T) {
	prog := callChain(t, []string{"main", "g", "h"})
	cfg := config.NewDefault()
	cfg.Options.ParamsReturnsAsDefsUses = true
	s := run(t, prog, cfg)
	main, _ := prog.Lookup("main")
	g, _ := prog.Lookup("g")
	for _, d := range s.Set.All() {
		if d.IsInterprocedural() {
			t.Errorf("no DUA crosses procedures when parameters are defs: %s", d)
		}
	}
	x := program.LocalVar("main", "x")
	if _, ok := s.Set.Lookup(program.Def{At: main.Ref(2), Var: x}, program.NewCUse(main.Ref(3), x)); !ok {
		t.Errorf("the actual argument should be a use")
	}
	p := program.LocalVar("g", "p")
	formal := program.Def{At: g.Ref(program.EntryID), Var: p}
	if got := len(s.Set.FromDef(formal)); got != 2 {
		t.Errorf("expected the formal p to reach h(p) and print(p), got %d DUAs", got)
	}
}

func TestResultIndependentOfProcedureOrder(t *testing.T) {
	base := labels(run(t, callChain(t, []string{"main", "g", "h"}), nil))
	for _, perm := range [][]string{{"h", "g", "main"}, {"g", "main", "h"}} {
		got := labels(run(t, callChain(t, perm), nil))
		if len(got) != len(base) {
			t.Fatalf("order %v: expected %d DUAs, got %d", perm, len(base), len(got))
		}
		for i := range got {
			if got[i] != base[i] {
				t.Errorf("order %v: %q != %q", perm, got[i], base[i])
			}
		}
	}
}

func forwardOrder(f *program.Procedure) []int {
	order := make([]int, len(f.Nodes))
	for i := range order {
		order[i] = i
	}
	return order
}

// interleavedOrder visits the nodes with an even id first, then the others
func interleavedOrder(f *program.Procedure) []int {
	var even, odd []int
	for i := range f.Nodes {
		if i%2 == 0 {
			even = append(even, i)
		} else {
			odd = append(odd, i)
		}
	}
	return append(even, odd...)
}

func describe(s *State) []string {
	var res []string
	for _, d := range s.Set.All() {
		res = append(res, d.String())
	}
	return res
}

func TestResultIndependentOfNodeOrder(t *testing.T) {
	fixtures := map[string]func() *program.Program{
		"loop": func() *program.Program {
			prog, _, _ := loop(t)
			return prog
		},
		"callChain": func() *program.Program { return callChain(t, []string{"main", "g", "h"}) },
		"callee": func() *program.Program {
			prog, _, _, _ := calleeRedefinition(t)
			return prog
		},
	}
	for name, build := range fixtures {
		base := describe(run(t, build(), nil))
		for _, visit := range []func(*program.Procedure) []int{forwardOrder, interleavedOrder} {
			prog := build()
			s := NewState(prog, order.NewGraph(prog), config.NewDefault(), nil)
			s.visit = visit
			if err := s.Run(); err != nil {
				t.Fatalf("%s: analysis failed: %v", name, err)
			}
			got := describe(s)
			if len(got) != len(base) {
				t.Fatalf("%s: expected %d DUAs, got %d", name, len(base), len(got))
			}
			for i := range got {
				if got[i] != base[i] {
					t.Errorf("%s: %q != %q", name, got[i], base[i])
				}
			}
		}
	}
}

func TestIdempotence(t *testing.T) {
	prog, _, _ := loop(t)
	a := labels(run(t, prog, nil))
	b := labels(run(t, prog, nil))
	if len(a) != len(b) {
		t.Fatalf("runs differ: %d vs %d DUAs", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("runs differ: %q != %q", a[i], b[i])
		}
	}
}

func TestRecursiveLinksTerminate(t *testing.T) {
	prog := program.New()
	p := program.LocalVar("f", "p")
	f, _ := prog.AddProcedure("f", p)
	n1 := f.AddNode("if p").Use(p)
	n1.Predicate = true
	n2 := f.AddNode("f(p)").Call("f", p)
	f.Chain(program.EntryID, n1.ID, n2.ID, program.ExitID)
	f.AddEdge(n1.ID, program.ExitID)
	finalize(t, prog)
	s := run(t, prog, nil)
	if got := len(s.formalUses[f.Index][0]); got != 2 {
		t.Errorf("expected p to reach both branches, got %d uses", got)
	}
}

func TestHeapDUAs(t *testing.T) {
	prog := program.New()
	f, _ := prog.AddProcedure("f")
	field := program.FieldVar("T", "f")
	blank := program.FieldVar("T", "_")
	elem := program.ArrayVar("int")
	anyElem := program.ArrayVar("any")
	reader := program.ObjectVar("io.Reader", false)
	file := program.ObjectVar("os.File", true)
	buf := program.ObjectVar("bytes.Buffer", true)
	prog.Subtypes["io.Reader"] = []string{"os.File", "bytes.Buffer"}

	n1 := f.AddNode("t.f = 1; t._ = 0").Define(field, blank)
	n2 := f.AddNode("a[0] = 1").Define(elem)
	n3 := f.AddNode("file.Close()").Define(file)
	n4 := f.AddNode("y = t.f + t._").Use(field, blank)
	n5 := f.AddNode("z = b[1]").Use(anyElem)
	n6 := f.AddNode("r.Read()").Use(reader)
	n7 := f.AddNode("buf.Len()").Use(buf)
	f.Chain(program.EntryID, n1.ID, n2.ID, n3.ID, n4.ID, n5.ID, n6.ID, n7.ID, program.ExitID)
	finalize(t, prog)

	s := run(t, prog, nil)
	if s.Set.Len() != 2 {
		t.Fatalf("expected a field and an array DUA, got %v", s.Set.All())
	}
	for _, d := range s.Set.All() {
		if !d.Heap || d.Classification() == Definite || len(d.LocalUses) != 0 {
			t.Errorf("%s should be a non-inferrable heap DUA", d)
		}
		if d.Def.Var == blank {
			t.Errorf("the blank field is excluded: %s", d)
		}
	}

	cfg := config.NewDefault()
	cfg.Options.IncludeObjectDUAs = true
	s = run(t, prog, cfg)
	if _, ok := s.Set.Lookup(program.Def{At: f.Ref(n3.ID), Var: file}, program.NewCUse(f.Ref(n6.ID), reader)); !ok {
		t.Errorf("an os.File may be the reader")
	}
	if _, ok := s.Set.Lookup(program.Def{At: f.Ref(n3.ID), Var: file}, program.NewCUse(f.Ref(n7.ID), buf)); ok {
		t.Errorf("an os.File is never a bytes.Buffer")
	}

	cfg = config.NewDefault()
	cfg.Options.OnlyLocalDUAs = true
	cfg.Options.IncludeObjectDUAs = true
	if s = run(t, prog, cfg); s.Set.Len() != 0 {
		t.Errorf("expected no DUAs with only local DUAs, got %v", s.Set.All())
	}

	cfg = config.NewDefault()
	cfg.ExcludedFields = []string{"f"}
	if s = run(t, prog, cfg); s.Set.Len() != 1 {
		t.Errorf("expected only the array DUA when f is excluded, got %v", s.Set.All())
	}
}

func TestSlices(t *testing.T) {
	prog, nodes := straightLine(t)
	s := run(t, prog, nil)
	f := prog.Procs[0]
	use := program.NewCUse(f.Ref(nodes[2].ID), loc("y"))
	back := s.Set.BackwardSlice(use)
	if len(back) != 2 || back[0].Var != loc("x") || back[1].Var != loc("y") {
		t.Errorf("expected print(y) to depend on x and y, got %v", back)
	}
	def := program.Def{At: f.Ref(nodes[0].ID), Var: loc("x"), Const: true}
	fwd := s.Set.ForwardSlice(def)
	if len(fwd) != 2 || fwd[1] != use {
		t.Errorf("expected x = 1 to flow to y = x and print(y), got %v", fwd)
	}
	if sb := s.Set.SameBlock(def); len(sb) != 1 || sb[0].At.Node != nodes[1].ID {
		t.Errorf("expected y = x in the same block as x = 1, got %v", sb)
	}
}

func TestMissingKillBookkeeping(t *testing.T) {
	prog, f, nodes := loop(t)
	s := NewState(prog, order.NewGraph(prog), config.NewDefault(), nil)
	s.propagate()
	s.propagateFormals()
	s.reachUses()
	delete(s.reached, program.Def{At: f.Ref(nodes[3].ID), Var: loc("x")})
	_, err := s.buildLocal()
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected an invariant violation, got %v", err)
	}
	var ie *InvariantError
	if !errors.As(err, &ie) || ie.Msg == "" {
		t.Errorf("expected an *InvariantError, got %T", err)
	}
}

func TestDuplicateDUA(t *testing.T) {
	s := NewSet()
	d := &DUA{Def: program.Def{Var: loc("x")}, Use: program.NewCUse(program.NodeRef{}, loc("x"))}
	if err := s.Add(d); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(&DUA{Def: d.Def, Use: d.Use}); !errors.Is(err, ErrInvariant) {
		t.Errorf("adding a DUA twice should fail, got %v", err)
	}
	if s.Len() != 1 || s.Count()[NonInferrable] != 1 {
		t.Errorf("unexpected set content %v", s.All())
	}
}
