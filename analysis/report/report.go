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

// Package report renders the result of the definition-use analysis as text, JSON or msgpack.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/awslabs/ar-go-dua/analysis"
	"github.com/awslabs/ar-go-dua/analysis/dua"
	"github.com/awslabs/ar-go-dua/analysis/program"
	"github.com/awslabs/ar-go-dua/internal/formatutil"
	"github.com/awslabs/ar-go-dua/internal/funcutil"
	"github.com/awslabs/ar-go-dua/internal/graphutil"
	"github.com/vmihailenco/msgpack/v5"
)

// Format is an output format
type Format string

const (
	// Text is a human readable report, one DUA per line, colored on terminals
	Text Format = "text"
	// JSON is an indented JSON document
	JSON Format = "json"
	// Msgpack is a MessagePack document with the same keys as the JSON document
	Msgpack Format = "msgpack"
)

// ParseFormat returns the format named s
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Text, JSON, Msgpack:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected text, json or msgpack)", s)
	}
}

// Extension returns the file extension of reports in the format
func (f Format) Extension() string {
	switch f {
	case JSON:
		return ".json"
	case Msgpack:
		return ".msgpack"
	default:
		return ".txt"
	}
}

// Paths summarizes the path expression of a DUA
type Paths struct {
	Expr      string   `json:"expr" msgpack:"expr"`
	Incoming  []string `json:"incoming,omitempty" msgpack:"incoming,omitempty"`
	Departing []string `json:"departing,omitempty" msgpack:"departing,omitempty"`
}

// Entry is a DUA in a report. Program points are printed with Program.Label.
type Entry struct {
	Var             string   `json:"var" msgpack:"var"`
	Kind            string   `json:"kind" msgpack:"kind"`
	Def             string   `json:"def" msgpack:"def"`
	Use             string   `json:"use" msgpack:"use"`
	PredicateUse    bool     `json:"predicateUse,omitempty" msgpack:"predicateUse,omitempty"`
	Branch          string   `json:"branch,omitempty" msgpack:"branch,omitempty"`
	Classification  string   `json:"classification" msgpack:"classification"`
	Heap            bool     `json:"heap,omitempty" msgpack:"heap,omitempty"`
	Interprocedural bool     `json:"interprocedural,omitempty" msgpack:"interprocedural,omitempty"`
	LocalUses       []string `json:"localUses,omitempty" msgpack:"localUses,omitempty"`
	HardKills       []string `json:"hardKills,omitempty" msgpack:"hardKills,omitempty"`
	PossibleKills   []string `json:"possibleKills,omitempty" msgpack:"possibleKills,omitempty"`
	PathWarning     bool     `json:"pathWarning,omitempty" msgpack:"pathWarning,omitempty"`
	Paths           *Paths   `json:"paths,omitempty" msgpack:"paths,omitempty"`
}

// Report is the serializable result of an analysis. Entries are in the order of the DUA set.
type Report struct {
	Stats   analysis.Stats `json:"stats" msgpack:"stats"`
	Entries []Entry        `json:"duas" msgpack:"duas"`
}

// New returns the report of res
func New(res *analysis.Result) *Report {
	prog := res.Program
	r := &Report{Stats: res.Stats, Entries: make([]Entry, 0, res.Set.Len())}
	for i, d := range res.Set.All() {
		e := Entry{
			Var:             d.Def.Var.String(),
			Kind:            d.Def.Var.Kind.String(),
			Def:             prog.Label(d.Def.At),
			Use:             prog.Label(d.Use.At),
			PredicateUse:    d.Use.Kind == program.PUse,
			Classification:  d.Classification().String(),
			Heap:            d.Heap,
			Interprocedural: d.IsInterprocedural(),
			LocalUses:       funcutil.Map(d.LocalUses, func(u program.Use) string { return prog.Label(u.At) }),
			HardKills:       labels(prog, d.KillsInOrder),
			PossibleKills:   labels(prog, d.KillsNotInOrder),
			PathWarning:     d.PathWarning,
		}
		if e.PredicateUse {
			e.Branch = prog.Label(program.NodeRef{Proc: d.Use.At.Proc, Node: d.Use.Succ})
		}
		if p, ok := res.Paths[i]; ok {
			e.Paths = &Paths{
				Expr:      p.Expr.String(),
				Incoming:  funcutil.Map(p.Incoming, graphutil.Edge.String),
				Departing: funcutil.Map(p.Departing, graphutil.Edge.String),
			}
		}
		r.Entries = append(r.Entries, e)
	}
	return r
}

func labels(prog *program.Program, defs []program.Def) []string {
	return funcutil.Map(defs, func(d program.Def) string { return prog.Label(d.At) })
}

// Write writes the report to w in the format f
func Write(w io.Writer, r *Report, f Format) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return nil
	case Msgpack:
		if err := msgpack.NewEncoder(w).Encode(r); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return nil
	case Text:
		return writeText(w, r)
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

// Read reads a report written in the JSON or msgpack format
func Read(rd io.Reader, f Format) (*Report, error) {
	var r Report
	var err error
	switch f {
	case JSON:
		err = json.NewDecoder(rd).Decode(&r)
	case Msgpack:
		err = msgpack.NewDecoder(rd).Decode(&r)
	default:
		return nil, fmt.Errorf("cannot read reports in format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}

func classificationColor(c string) func(...any) string {
	switch c {
	case dua.Definite.String():
		return formatutil.Green
	case dua.Conditional.String():
		return formatutil.Yellow
	default:
		return formatutil.Red
	}
}

func writeText(w io.Writer, r *Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", formatutil.Bold(r.Stats.String()))
	if r.Stats.PathsSkipped {
		fmt.Fprintf(&b, "%s\n", formatutil.Faint("path expressions skipped: no order oracle enabled"))
	}
	for _, e := range r.Entries {
		use := e.Use
		if e.PredicateUse {
			use += " -> " + e.Branch
		}
		fmt.Fprintf(&b, "[%s] %s %s: %s => %s",
			classificationColor(e.Classification)(e.Classification), e.Kind, formatutil.Cyan(e.Var), e.Def, use)
		if e.PathWarning {
			fmt.Fprintf(&b, " %s", formatutil.Yellow("(path warning)"))
		}
		b.WriteString("\n")
		if e.Interprocedural && len(e.LocalUses) > 0 {
			fmt.Fprintf(&b, "\tthrough: %s\n", strings.Join(e.LocalUses, ", "))
		}
		if len(e.HardKills) > 0 {
			fmt.Fprintf(&b, "\thard kills: %s\n", strings.Join(e.HardKills, ", "))
		}
		if len(e.PossibleKills) > 0 {
			fmt.Fprintf(&b, "\tpossible kills: %s\n", strings.Join(e.PossibleKills, ", "))
		}
		if e.Paths != nil {
			fmt.Fprintf(&b, "\tpaths: %s\n", e.Paths.Expr)
		}
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
