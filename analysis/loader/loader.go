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

// Package loader builds the program model of type-checked Go packages.
//
// Every function or method declaration with a body becomes a procedure named by its full name (see
// types.Func.FullName). Its control-flow graph is the graph of golang.org/x/tools/go/cfg with one node per
// statement or expression of a block; blocks without nodes become a single node without definitions or uses, and
// blocks without successors flow into the exit node. Function literals are not modeled, and neither are
// package-level variables.
package loader

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"path/filepath"
	"sort"

	"github.com/awslabs/ar-go-dua/analysis/config"
	"github.com/awslabs/ar-go-dua/analysis/program"
	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/go/cfg"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/types/typeutil"
)

// Package is a type-checked package to model
type Package struct {
	Path  string
	Files []*ast.File
	Info  *types.Info
	Types *types.Package
}

// Loader builds program models. A loader is used for a single call to Build.
type Loader struct {
	Fset   *token.FileSet
	Config *config.Config
	Logger *config.LogGroup

	// Ignored returns true for the source lines whose definitions, uses and calls must be dropped. It may be nil.
	Ignored func(token.Position) bool

	prog     *program.Program
	funcs    []*function
	analyzed map[string]bool
	named    map[string]types.Type
}

// function is a declaration being modeled
type function struct {
	name   string
	decl   *ast.FuncDecl
	obj    *types.Func
	info   *types.Info
	proc   *program.Procedure
	locals map[*types.Var]program.Variable
}

// New returns a loader for packages of fset
func New(fset *token.FileSet, cfg *config.Config, logger *config.LogGroup) *Loader {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if logger == nil {
		logger = config.NewLogGroup(cfg)
	}
	return &Loader{
		Fset:     fset,
		Config:   cfg,
		Logger:   logger,
		analyzed: map[string]bool{},
		named:    map[string]types.Type{},
	}
}

// FromPackages builds the program model of the packages loaded by go/packages. The initial packages are modeled
// when the config has no package filter; otherwise, every loaded package matching the filter is.
func FromPackages(pkgs []*packages.Package, cfg *config.Config, logger *config.LogGroup,
	ignored func(token.Position) bool) (*program.Program, error) {
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages")
	}
	if cfg == nil {
		cfg = config.NewDefault()
	}
	initial := map[*packages.Package]bool{}
	for _, p := range pkgs {
		initial[p] = true
	}
	var selected []Package
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		if p.Types == nil || p.TypesInfo == nil {
			return
		}
		if (cfg.PkgFilter == "" && initial[p]) || (cfg.PkgFilter != "" && cfg.MatchPkgFilter(p.PkgPath)) {
			selected = append(selected, Package{Path: p.PkgPath, Files: p.Syntax, Info: p.TypesInfo, Types: p.Types})
		}
	})
	if len(selected) == 0 {
		return nil, fmt.Errorf("no package matches the package filter %q", cfg.PkgFilter)
	}
	l := New(pkgs[0].Fset, cfg, logger)
	l.Ignored = ignored
	return l.Build(selected)
}

// Build builds and finalizes the program model of the packages
func (l *Loader) Build(pkgs []Package) (*program.Program, error) {
	l.prog = program.New()
	sorted := append([]Package(nil), pkgs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	for _, pkg := range sorted {
		if pkg.Info == nil || pkg.Types == nil {
			return nil, fmt.Errorf("package %s is not type-checked", pkg.Path)
		}
		l.analyzed[pkg.Types.Path()] = true
		l.collectNamedTypes(pkg.Types)
		for _, f := range pkg.Files {
			for _, decl := range f.Decls {
				fd, ok := decl.(*ast.FuncDecl)
				if !ok || fd.Body == nil {
					continue
				}
				obj, ok := pkg.Info.Defs[fd.Name].(*types.Func)
				if !ok {
					continue
				}
				l.funcs = append(l.funcs, &function{
					name:   obj.FullName(),
					decl:   fd,
					obj:    obj,
					info:   pkg.Info,
					locals: map[*types.Var]program.Variable{},
				})
			}
		}
	}

	// All procedures are added before any body, so that call sites resolve regardless of declaration order
	for _, fn := range l.funcs {
		proc, err := l.prog.AddProcedure(fn.name, l.params(fn)...)
		if err != nil {
			return nil, fmt.Errorf("failed to model %s: %w", fn.name, err)
		}
		fn.proc = proc
	}
	for _, fn := range l.funcs {
		l.buildBody(fn)
		l.Logger.Tracef("%s: %d nodes\n", fn.name, len(fn.proc.Nodes))
	}
	l.buildHierarchy()

	if err := l.prog.Finalize(); err != nil {
		return nil, fmt.Errorf("invalid program model: %w", err)
	}
	l.Logger.Debugf("modeled %d procedures of %d packages\n", len(l.prog.Procs), len(sorted))
	return l.prog, nil
}

// params returns the formals of fn, receiver first. Unnamed and blank parameters are zero variables.
func (l *Loader) params(fn *function) []program.Variable {
	sig, ok := fn.obj.Type().(*types.Signature)
	if !ok {
		return nil
	}
	var res []program.Variable
	if recv := sig.Recv(); recv != nil {
		v, _ := l.local(fn, recv)
		res = append(res, v)
	}
	for i := 0; i < sig.Params().Len(); i++ {
		v, _ := l.local(fn, sig.Params().At(i))
		res = append(res, v)
	}
	return res
}

// local returns the variable of obj if it is a local variable or a parameter of fn
func (l *Loader) local(fn *function, obj types.Object) (program.Variable, bool) {
	v, ok := obj.(*types.Var)
	if !ok || v.IsField() || v.Name() == "" || v.Name() == "_" {
		return program.Variable{}, false
	}
	if x, ok := fn.locals[v]; ok {
		return x, true
	}
	if v.Pos() < fn.decl.Pos() || v.Pos() >= fn.decl.End() {
		return program.Variable{}, false
	}
	x := l.localAt(fn, v.Name(), v.Pos())
	fn.locals[v] = x
	return x, true
}

// localAt returns the local variable name declared at pos in fn. Shadowing declarations have distinct positions,
// hence distinct scopes.
func (l *Loader) localAt(fn *function, name string, pos token.Pos) program.Variable {
	p := l.Fset.Position(pos)
	return program.LocalVar(fmt.Sprintf("%s@%d:%d", fn.name, p.Line, p.Column), name)
}

func (l *Loader) label(n ast.Node) string {
	p := l.Fset.Position(n.Pos())
	return fmt.Sprintf("%s:%d:%d", filepath.Base(p.Filename), p.Line, p.Column)
}

// buildBody adds the nodes and edges of the control-flow graph of fn
func (l *Loader) buildBody(fn *function) {
	proc := fn.proc
	g := cfg.New(fn.decl.Body, mayReturn(fn.info))
	handlers := handlerBodies(fn.info, fn.decl.Body)
	loops := rangeLoops(fn.decl.Body)

	first := make([]int, len(g.Blocks))
	last := make([]int, len(g.Blocks))
	for _, b := range g.Blocks {
		if !b.Live {
			continue
		}
		if len(b.Nodes) == 0 {
			n := proc.AddNode(fmt.Sprintf("block %d", b.Index))
			n.Predicate = len(b.Succs) > 1
			first[b.Index], last[b.Index] = n.ID, n.ID
			continue
		}
		prev := -1
		for i, an := range b.Nodes {
			n := proc.AddNode(l.label(an))
			if l.Ignored == nil || !l.Ignored(l.Fset.Position(an.Pos())) {
				e := &extractor{l: l, fn: fn, node: n, loops: loops}
				e.extract(an)
			}
			n.InHandler = handlers.contain(an.Pos())
			n.Predicate = i == len(b.Nodes)-1 && len(b.Succs) > 1
			if prev < 0 {
				first[b.Index] = n.ID
			} else {
				proc.AddEdge(prev, n.ID)
			}
			prev = n.ID
		}
		last[b.Index] = prev
	}

	proc.AddEdge(program.EntryID, first[g.Blocks[0].Index])
	for _, b := range g.Blocks {
		if !b.Live {
			continue
		}
		if len(b.Succs) == 0 {
			proc.AddEdge(last[b.Index], program.ExitID)
			continue
		}
		for _, s := range b.Succs {
			proc.AddEdge(last[b.Index], first[s.Index])
		}
	}
}

// noReturn are the functions that never return normally
var noReturn = map[string]bool{
	"os.Exit":     true,
	"log.Fatal":   true,
	"log.Fatalf":  true,
	"log.Fatalln": true,
	"log.Panic":   true,
	"log.Panicf":  true,
	"log.Panicln": true,
}

func mayReturn(info *types.Info) func(*ast.CallExpr) bool {
	return func(call *ast.CallExpr) bool {
		if id, ok := astutil.Unparen(call.Fun).(*ast.Ident); ok {
			if b, ok := info.Uses[id].(*types.Builtin); ok && b.Name() == "panic" {
				return false
			}
		}
		if f := typeutil.StaticCallee(info, call); f != nil && noReturn[f.FullName()] {
			return false
		}
		return true
	}
}

// spans is a list of source ranges
type spans [][2]token.Pos

func (s spans) contain(pos token.Pos) bool {
	for _, r := range s {
		if r[0] <= pos && pos < r[1] {
			return true
		}
	}
	return false
}

// handlerBodies returns the bodies of the if statements guarded by a call to recover
func handlerBodies(info *types.Info, body *ast.BlockStmt) spans {
	var res spans
	ast.Inspect(body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.IfStmt:
			if callsRecover(info, n.Init) || callsRecover(info, n.Cond) {
				res = append(res, [2]token.Pos{n.Body.Pos(), n.Body.End()})
			}
		}
		return true
	})
	return res
}

func callsRecover(info *types.Info, n ast.Node) bool {
	if n == nil {
		return false
	}
	found := false
	ast.Inspect(n, func(n ast.Node) bool {
		if call, ok := n.(*ast.CallExpr); ok {
			if id, ok := astutil.Unparen(call.Fun).(*ast.Ident); ok {
				if b, ok := info.Uses[id].(*types.Builtin); ok && b.Name() == "recover" {
					found = true
				}
			}
		}
		return !found
	})
	return found
}

// rangeLoops maps the range expression, key and value of every range statement of body to its statement. The
// control-flow graph has a node for each of them before the loop.
func rangeLoops(body *ast.BlockStmt) map[ast.Node]*ast.RangeStmt {
	res := map[ast.Node]*ast.RangeStmt{}
	ast.Inspect(body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.RangeStmt:
			res[n.X] = n
			if n.Key != nil {
				res[n.Key] = n
			}
			if n.Value != nil {
				res[n.Value] = n
			}
		}
		return true
	})
	return res
}
