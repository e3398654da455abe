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

package analysis

import (
	"io"
	"testing"

	"github.com/awslabs/ar-go-dua/analysis/config"
	"github.com/awslabs/ar-go-dua/analysis/dua"
	"github.com/awslabs/ar-go-dua/analysis/program"
)

func loc(name string) program.Variable { return program.LocalVar("f", name) }

// diamond is x = 1; if c { x = 2 }; print(x), with a field store in the branch
func diamond(t *testing.T) *program.Program {
	prog := program.New()
	f, _ := prog.AddProcedure("f", loc("c"))
	n1 := f.AddNode("x = 1").Define(loc("x"))
	n2 := f.AddNode("if c").Use(loc("c"))
	n2.Predicate = true
	n3 := f.AddNode("x = 2; o.f = x").Define(loc("x"), program.FieldVar("T", "f")).Use(loc("x"))
	n4 := f.AddNode("print(x, o.f)").Use(loc("x"), program.FieldVar("T", "f"))
	f.Chain(program.EntryID, n1.ID, n2.ID, n3.ID, n4.ID, program.ExitID)
	f.AddEdge(n2.ID, n4.ID)
	if err := prog.Finalize(); err != nil {
		t.Fatalf("invalid program: %v", err)
	}
	return prog
}

func quietLogger(cfg *config.Config) *config.LogGroup {
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(io.Discard)
	return logger
}

func TestAnalyzeStats(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Options.PathExpressions = true
	res, err := Analyze(diamond(t), nil, cfg, quietLogger(cfg))
	if err != nil {
		t.Fatal(err)
	}
	s := res.Stats
	if s.Procedures != 1 || s.DUAs != res.Set.Len() {
		t.Errorf("unexpected stats %+v", s)
	}
	if s.Definite+s.Conditional+s.NonInferrable != s.DUAs {
		t.Errorf("every DUA has one classification: %+v", s)
	}
	if s.Heap != 1 || s.Interprocedural != 0 {
		t.Errorf("expected a single heap DUA: %+v", s)
	}
	if s.PathsSkipped || s.PathExpressions != s.DUAs-s.Heap {
		t.Errorf("expected the path expressions of the local DUAs: %+v", s)
	}
	for i := range res.Paths {
		if res.Set.At(i).Heap {
			t.Errorf("heap DUAs have no path expression")
		}
	}
}

func TestAnalyzeWithoutOracles(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Options.UseDominance = false
	cfg.Options.UseReachability = false
	cfg.Options.PathExpressions = true
	res, err := Analyze(diamond(t), nil, cfg, quietLogger(cfg))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Stats.PathsSkipped || len(res.Paths) != 0 {
		t.Errorf("path expressions are skipped without oracles: %+v", res.Stats)
	}
	if res.Stats.Definite != 0 || res.Stats.Conditional != 0 {
		t.Errorf("no DUA is inferrable without oracles: %+v", res.Stats)
	}
	for _, d := range res.Set.All() {
		if d.Classification() != dua.NonInferrable {
			t.Errorf("%s is inferrable", d)
		}
	}
}

func TestAnalyzeOnlyLocal(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Options.OnlyLocalDUAs = true
	res, err := Analyze(diamond(t), nil, nil, quietLogger(cfg))
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Heap != 1 {
		t.Errorf("a nil config is the default config: %+v", res.Stats)
	}
	res, err = Analyze(diamond(t), nil, cfg, quietLogger(cfg))
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Heap != 0 {
		t.Errorf("expected no heap DUA: %+v", res.Stats)
	}
}
