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
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"golang.org/x/tools/go/packages"
)

const directiveSource = `package p

func f(x int) int {
	y := x //dua:ignore
	//dua:ignore
	z := y
	// dua: not a directive
	return z
}
`

func TestNewDirective(t *testing.T) {
	tests := []struct {
		text string
		ok   bool
	}{
		{"//dua:ignore", true},
		{"// dua:ignore ", true},
		{"//dua:unknown", false},
		{"// ignore", false},
	}
	for _, test := range tests {
		d, ok := NewDirective(&ast.Comment{Text: test.text})
		if ok != test.ok {
			t.Errorf("%q: expected %v, got %v", test.text, test.ok, ok)
		}
		if ok && d.Kind != DirectiveIgnore {
			t.Errorf("%q: unexpected kind %q", test.text, d.Kind)
		}
	}
}

func TestFindDirectives(t *testing.T) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "p.go", directiveSource, parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}
	pkg := &packages.Package{PkgPath: "p", Syntax: []*ast.File{f}}
	directives := findDirectives([]*packages.Package{pkg}, fset)
	if len(directives) != 2 {
		t.Fatalf("expected 2 directives, got %v", directives)
	}
	for line, ignored := range map[int]bool{3: false, 4: true, 6: true, 8: false} {
		pos := token.Position{Filename: "p.go", Line: line}
		if directives.Ignored(pos) != ignored {
			t.Errorf("line %d: expected ignored to be %v", line, ignored)
		}
	}
}
