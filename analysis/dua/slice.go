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

// reachingDefs returns the defs reaching use through a DUA or inside a basic block
func (s *Set) reachingDefs(use program.Use) map[program.Def]bool {
	defs := map[program.Def]bool{}
	for _, i := range s.byUse[use] {
		defs[s.duas[i].Def] = true
	}
	for d, uses := range s.sameBlock {
		if uses[use] {
			defs[d] = true
		}
	}
	return defs
}

// reachedUses returns the uses reached by def through a DUA or inside a basic block
func (s *Set) reachedUses(def program.Def) map[program.Use]bool {
	uses := map[program.Use]bool{}
	for _, i := range s.byDef[def] {
		uses[s.duas[i].Use] = true
	}
	for u := range s.sameBlock[def] {
		uses[u] = true
	}
	return uses
}

// pointIndex returns the defs and the uses known to the set, by node
func (s *Set) pointIndex() (map[program.NodeRef][]program.Def, map[program.NodeRef][]program.Use) {
	defSet := map[program.Def]bool{}
	useSet := map[program.Use]bool{}
	for _, d := range s.duas {
		defSet[d.Def] = true
		useSet[d.Use] = true
	}
	for d, uses := range s.sameBlock {
		defSet[d] = true
		funcutil.Union(useSet, uses)
	}
	defs := map[program.NodeRef][]program.Def{}
	for _, d := range funcutil.SortedSet(defSet, defLess) {
		defs[d.At] = append(defs[d.At], d)
	}
	uses := map[program.NodeRef][]program.Use{}
	for _, u := range funcutil.SortedSet(useSet, useLess) {
		uses[u.At] = append(uses[u.At], u)
	}
	return defs, uses
}

// BackwardSlice returns the defs the value read by use depends on, directly or through the uses at the nodes of
// those defs. The result is sorted.
func (s *Set) BackwardSlice(use program.Use) []program.Def {
	_, usesAt := s.pointIndex()
	visited := map[program.Def]bool{}
	seenUses := map[program.Use]bool{use: true}
	worklist := []program.Use{use}
	for len(worklist) > 0 {
		u := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for d := range s.reachingDefs(u) {
			if visited[d] {
				continue
			}
			visited[d] = true
			for _, next := range usesAt[d.At] {
				if !seenUses[next] {
					seenUses[next] = true
					worklist = append(worklist, next)
				}
			}
		}
	}
	return funcutil.SortedSet(visited, defLess)
}

// ForwardSlice returns the uses that read the value written by def, directly or through the defs at the nodes of
// those uses. The result is sorted.
func (s *Set) ForwardSlice(def program.Def) []program.Use {
	defsAt, _ := s.pointIndex()
	visited := map[program.Use]bool{}
	seenDefs := map[program.Def]bool{def: true}
	worklist := []program.Def{def}
	for len(worklist) > 0 {
		d := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for u := range s.reachedUses(d) {
			if visited[u] {
				continue
			}
			visited[u] = true
			for _, next := range defsAt[u.At] {
				if !seenDefs[next] {
					seenDefs[next] = true
					worklist = append(worklist, next)
				}
			}
		}
	}
	return funcutil.SortedSet(visited, useLess)
}

// SameBlock returns the uses def reaches inside its basic block, sorted
func (s *Set) SameBlock(def program.Def) []program.Use {
	return funcutil.SortedSet(s.sameBlock[def], useLess)
}
