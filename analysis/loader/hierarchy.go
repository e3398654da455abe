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
	"go/types"

	"github.com/awslabs/ar-go-dua/internal/funcutil"
)

// collectNamedTypes records the named types declared at the top level of pkg
func (l *Loader) collectNamedTypes(pkg *types.Package) {
	scope := pkg.Scope()
	for _, name := range scope.Names() {
		if tn, ok := scope.Lookup(name).(*types.TypeName); ok && !tn.IsAlias() {
			l.noteType(types.TypeString(tn.Type(), nil), tn.Type())
		}
	}
}

func (l *Loader) noteType(name string, t types.Type) {
	if _, ok := l.named[name]; !ok {
		l.named[name] = t
	}
}

// buildHierarchy maps every interface seen by the loader to the concrete types implementing it, either by value
// or by pointer. Generic types are left out.
func (l *Loader) buildHierarchy() {
	names := funcutil.SortedKeys(l.named, func(a, b string) bool { return a < b })
	for _, iname := range names {
		iface, ok := l.named[iname].Underlying().(*types.Interface)
		if !ok || !iface.IsMethodSet() || iface.NumMethods() == 0 {
			continue
		}
		for _, tname := range names {
			t := l.named[tname]
			if _, ok := t.Underlying().(*types.Interface); ok || isGeneric(t) {
				continue
			}
			if types.Implements(t, iface) || types.Implements(types.NewPointer(t), iface) {
				l.prog.Subtypes[iname] = append(l.prog.Subtypes[iname], tname)
			}
		}
	}
}

func isGeneric(t types.Type) bool {
	n, ok := t.(*types.Named)
	return ok && n.TypeParams().Len() > 0 && n.TypeArgs().Len() == 0
}
