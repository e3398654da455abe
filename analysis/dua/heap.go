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
	"github.com/awslabs/ar-go-dua/analysis/program"
	"github.com/awslabs/ar-go-dua/internal/funcutil"
)

// compilerFields are the fields introduced by the compiler that never carry user data: the blank field and the
// context of closures.
var compilerFields = []string{"_", "$outer"}

// buildHeap computes the DUAs of fields, array elements and, if enabled, objects, as the cross product of their
// defs and uses. Heap DUAs are never ordered.
func (s *State) buildHeap() []*DUA {
	defs := map[program.Def]bool{}
	uses := map[program.Use]bool{}
	for _, f := range s.Program.Procs {
		for _, n := range f.Nodes {
			for _, d := range s.defsAt(f, n) {
				if s.isTrackedHeapVar(d.Var) {
					defs[d] = true
				}
			}
			for _, u := range f.UsesOf(n) {
				if s.isTrackedHeapVar(u.Var) {
					uses[u] = true
				}
			}
		}
	}

	sortedUses := funcutil.SortedSet(uses, useLess)
	var duas []*DUA
	for _, d := range funcutil.SortedSet(defs, defLess) {
		for _, u := range sortedUses {
			if s.heapMayAlias(d.Var, u.Var) {
				duas = append(duas, &DUA{Def: d, Use: u, Heap: true})
			}
		}
	}
	s.Logger.Debugf("%d heap DUAs from %d heap defs and %d heap uses\n", len(duas), len(defs), len(uses))
	return duas
}

func (s *State) isTrackedHeapVar(v program.Variable) bool {
	switch v.Kind {
	case program.Field:
		return !funcutil.Contains(compilerFields, v.Name) && !funcutil.Contains(s.Config.ExcludedFields, v.Name)
	case program.ArrayElem:
		return true
	case program.Object:
		return s.Config.Options.IncludeObjectDUAs
	default:
		return false
	}
}

// heapMayAlias returns true if a def of a may write the location read by a use of b. Objects alias when they may
// have the same concrete type.
func (s *State) heapMayAlias(a, b program.Variable) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind != program.Object {
		return a.MayEqual(b)
	}
	bTypes := s.Program.PossibleTypes(b)
	for t := range s.Program.PossibleTypes(a) {
		if bTypes[t] {
			return true
		}
	}
	return false
}
