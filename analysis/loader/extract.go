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

package loader

import (
	"go/ast"
	"go/token"
	"go/types"

	"github.com/awslabs/ar-go-dua/analysis/program"
	"github.com/awslabs/ar-go-dua/internal/funcutil"
	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/go/types/typeutil"
)

// extractor computes the definitions, uses and call sites of a single node
type extractor struct {
	l     *Loader
	fn    *function
	node  *program.Node
	loops map[ast.Node]*ast.RangeStmt

	// passed are the identifiers passed as arguments, which are not uses of the node
	passed map[*ast.Ident]bool
}

func (e *extractor) extract(n ast.Node) {
	switch n := n.(type) {
	case *ast.AssignStmt:
		if isTypeSwitchGuard(n) {
			e.expr(n.Rhs[0])
			id := n.Lhs[0].(*ast.Ident)
			if id.Name != "_" {
				e.define(e.l.localAt(e.fn, id.Name, id.Pos()))
			}
			return
		}
		for _, r := range n.Rhs {
			e.expr(r)
		}
		update := n.Tok != token.ASSIGN && n.Tok != token.DEFINE
		for _, lhs := range n.Lhs {
			e.store(lhs, update)
		}
	case *ast.IncDecStmt:
		e.store(n.X, true)
	case *ast.DeclStmt:
		gd, ok := n.Decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.VAR {
			return
		}
		for _, spec := range gd.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for _, v := range vs.Values {
				e.expr(v)
			}
			for _, name := range vs.Names {
				e.store(name, false)
			}
		}
	case *ast.ReturnStmt:
		for _, r := range n.Results {
			e.expr(r)
		}
	case *ast.ExprStmt:
		e.expr(n.X)
	case *ast.SendStmt:
		e.expr(n.Chan)
		e.expr(n.Value)
	case *ast.GoStmt:
		e.expr(n.Call)
	case *ast.DeferStmt:
		e.expr(n.Call)
	case *ast.RangeStmt:
		e.expr(n.X)
		if n.Key != nil {
			e.store(n.Key, false)
		}
		if n.Value != nil {
			e.store(n.Value, false)
		}
	case ast.Expr:
		if rs, ok := e.loops[n]; ok {
			// the key and value are defined where the range expression is evaluated
			if rs.X == n {
				e.expr(rs.X)
				if rs.Key != nil {
					e.store(rs.Key, false)
				}
				if rs.Value != nil {
					e.store(rs.Value, false)
				}
			}
			return
		}
		e.expr(n)
	}
}

func isTypeSwitchGuard(s *ast.AssignStmt) bool {
	if s.Tok != token.DEFINE || len(s.Lhs) != 1 || len(s.Rhs) != 1 {
		return false
	}
	ta, ok := s.Rhs[0].(*ast.TypeAssertExpr)
	return ok && ta.Type == nil
}

// store records the definition of the location lhs. If update is true, the location is also read.
func (e *extractor) store(lhs ast.Expr, update bool) {
	switch x := astutil.Unparen(lhs).(type) {
	case *ast.Ident:
		if v, ok := e.localOf(x); ok {
			if update {
				e.use(v)
			}
			e.define(v)
		}
	case *ast.SelectorExpr:
		f, ok := e.field(x)
		if !ok {
			e.expr(x)
			return
		}
		e.expr(x.X)
		if update {
			e.use(f)
		}
		e.define(f)
	case *ast.IndexExpr:
		e.expr(x.X)
		e.expr(x.Index)
		if a, ok := e.elem(x); ok {
			if update {
				e.use(a)
			}
			e.define(a)
		}
	default:
		e.expr(x)
	}
}

// expr records the uses and calls of x. Calls are recorded in evaluation order, after their arguments.
func (e *extractor) expr(x ast.Expr) {
	var stack []ast.Node
	ast.Inspect(x, func(n ast.Node) bool {
		if n == nil {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if call, ok := top.(*ast.CallExpr); ok {
				e.call(call)
			}
			return true
		}
		if _, ok := n.(*ast.FuncLit); ok {
			return false
		}
		stack = append(stack, n)
		switch n := n.(type) {
		case *ast.Ident:
			if v, ok := e.localOf(n); ok && !e.passed[n] {
				e.use(v)
			}
		case *ast.SelectorExpr:
			if f, ok := e.field(n); ok {
				e.use(f)
			}
		case *ast.IndexExpr:
			if a, ok := e.elem(n); ok {
				e.use(a)
			}
		case *ast.CallExpr:
			e.markPassed(n)
		}
		return true
	})
}

// markPassed marks the local variables passed as receiver or arguments of a call
func (e *extractor) markPassed(call *ast.CallExpr) {
	if e.isConversion(call) {
		return
	}
	if e.passed == nil {
		e.passed = map[*ast.Ident]bool{}
	}
	if recv := e.receiver(call); recv != nil {
		if id, ok := astutil.Unparen(recv).(*ast.Ident); ok {
			e.passed[id] = true
		}
	}
	for _, a := range call.Args {
		if id, ok := astutil.Unparen(a).(*ast.Ident); ok {
			e.passed[id] = true
		}
	}
}

func (e *extractor) isConversion(call *ast.CallExpr) bool {
	tv, ok := e.fn.info.Types[call.Fun]
	return ok && tv.IsType()
}

func (e *extractor) isBuiltin(call *ast.CallExpr) bool {
	id, ok := astutil.Unparen(call.Fun).(*ast.Ident)
	if !ok {
		return false
	}
	_, ok = e.fn.info.Uses[id].(*types.Builtin)
	return ok
}

// receiver returns the receiver expression of a method call, or nil
func (e *extractor) receiver(call *ast.CallExpr) ast.Expr {
	sel, ok := astutil.Unparen(call.Fun).(*ast.SelectorExpr)
	if !ok {
		return nil
	}
	if s, ok := e.fn.info.Selections[sel]; ok && s.Kind() == types.MethodVal {
		return sel.X
	}
	return nil
}

// call records the call site of call. Calls to builtins and conversions are not call sites.
func (e *extractor) call(call *ast.CallExpr) {
	if e.isConversion(call) {
		return
	}
	if e.isBuiltin(call) {
		// builtins read their arguments
		for _, a := range call.Args {
			if id, ok := astutil.Unparen(a).(*ast.Ident); ok {
				if v, ok := e.localOf(id); ok {
					e.use(v)
				}
			}
		}
		return
	}
	var args []program.Variable
	if recv := e.receiver(call); recv != nil {
		args = append(args, e.argument(recv))
		sel := astutil.Unparen(call.Fun).(*ast.SelectorExpr)
		e.objectAccess(e.fn.info.Selections[sel])
	}
	for _, a := range call.Args {
		args = append(args, e.argument(a))
	}
	callee := ""
	if f := typeutil.StaticCallee(e.fn.info, call); f != nil {
		callee = f.Origin().FullName()
	}
	e.node.Call(callee, args...)
}

// argument returns the local variable passed as argument a, or the zero variable if a is not a plain local
func (e *extractor) argument(a ast.Expr) program.Variable {
	if id, ok := astutil.Unparen(a).(*ast.Ident); ok {
		if v, ok := e.localOf(id); ok {
			return v
		}
	}
	return program.Variable{}
}

// objectAccess records the use of the receiver of a method declared outside the analyzed packages, and its
// definition when the method has a pointer receiver
func (e *extractor) objectAccess(s *types.Selection) {
	m, ok := s.Obj().(*types.Func)
	if !ok || (m.Pkg() != nil && e.l.analyzed[m.Pkg().Path()]) {
		return
	}
	t := deref(s.Recv())
	_, isInterface := t.Underlying().(*types.Interface)
	name := types.TypeString(t, nil)
	e.l.noteType(name, t)
	v := program.ObjectVar(name, !isInterface)
	e.use(v)
	if sig, ok := m.Type().(*types.Signature); ok && sig.Recv() != nil {
		if _, isPtr := sig.Recv().Type().(*types.Pointer); isPtr {
			e.define(v)
		}
	}
}

func (e *extractor) localOf(id *ast.Ident) (program.Variable, bool) {
	obj := e.fn.info.Defs[id]
	if obj == nil {
		obj = e.fn.info.Uses[id]
	}
	if obj == nil {
		return program.Variable{}, false
	}
	return e.l.local(e.fn, obj)
}

// field returns the field variable selected by sel. Promoted fields belong to the embedded type declaring them.
func (e *extractor) field(sel *ast.SelectorExpr) (program.Variable, bool) {
	s, ok := e.fn.info.Selections[sel]
	if !ok || s.Kind() != types.FieldVal {
		return program.Variable{}, false
	}
	t := s.Recv()
	idx := s.Index()
	for _, i := range idx[:len(idx)-1] {
		st, ok := deref(t).Underlying().(*types.Struct)
		if !ok {
			return program.Variable{}, false
		}
		t = st.Field(i).Type()
	}
	return program.FieldVar(types.TypeString(deref(t), nil), s.Obj().Name()), true
}

// elem returns the element bucket of an indexed slice, array or map
func (e *extractor) elem(x *ast.IndexExpr) (program.Variable, bool) {
	tv, ok := e.fn.info.Types[x.X]
	if !ok || tv.IsType() {
		return program.Variable{}, false
	}
	var elem types.Type
	switch t := deref(tv.Type).Underlying().(type) {
	case *types.Slice:
		elem = t.Elem()
	case *types.Array:
		elem = t.Elem()
	case *types.Map:
		elem = t.Elem()
	default:
		return program.Variable{}, false
	}
	return program.ArrayVar(types.TypeString(elem, nil)), true
}

func (e *extractor) use(v program.Variable) {
	if !funcutil.Contains(e.node.Uses, v) {
		e.node.Use(v)
	}
}

func (e *extractor) define(v program.Variable) {
	if !funcutil.Contains(e.node.Defs, v) {
		e.node.Define(v)
	}
}

func deref(t types.Type) types.Type {
	if p, ok := t.Underlying().(*types.Pointer); ok {
		return p.Elem()
	}
	return t
}
