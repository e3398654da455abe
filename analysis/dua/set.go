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
	"fmt"
	"strings"

	"github.com/awslabs/ar-go-dua/analysis/program"
)

// Classification is the inferrability of a DUA from the coverage of its def and use.
type Classification int

const (
	// NonInferrable DUAs need to be monitored to know whether they were covered
	NonInferrable Classification = iota
	// Conditional DUAs are inferred covered if their def and use are covered and none of their possible kills is
	Conditional
	// Definite DUAs are inferred covered from the coverage of their def, use and hard kills
	Definite
)

func (c Classification) String() string {
	switch c {
	case Definite:
		return "definitely-inferrable"
	case Conditional:
		return "conditionally-inferrable"
	default:
		return "non-inferrable"
	}
}

// DUA is a definition-use association: a def and a use of the same variable such that some execution goes from the
// def to the use without an intervening redefinition.
type DUA struct {
	Def program.Def
	Use program.Use

	// LocalUses are the uses in the def's procedure through which the use is reached. For a use in the def's
	// procedure, it is the use itself; for a use in a callee, it is the actual argument use at the call site.
	// Heap DUAs have no local uses.
	LocalUses []program.Use

	// InferrableOrCondInf is true if the coverage of the def and the use guarantees the DUA was covered, possibly
	// under the condition that no possible kill was covered.
	InferrableOrCondInf bool

	// KillsInOrder are the hard kills: defs that, when they execute, necessarily execute between Def and Use.
	KillsInOrder []program.Def

	// KillsNotInOrder are the possible kills: defs that may execute between Def and Use.
	KillsNotInOrder []program.Def

	// Heap is true for field, array element and object DUAs
	Heap bool

	// PathWarning is set by the path expression engine when some loop entry or exit is not covered by the DUA's
	// path expression, in which case the structural inferrability may be optimistic.
	PathWarning bool
}

// IsInferrableOrCondInf returns true when the DUA is definitely or conditionally inferrable
func (d *DUA) IsInferrableOrCondInf() bool {
	return d.InferrableOrCondInf
}

// Classification returns the final classification of the DUA
func (d *DUA) Classification() Classification {
	if !d.InferrableOrCondInf {
		return NonInferrable
	}
	if len(d.KillsNotInOrder) == 0 {
		return Definite
	}
	return Conditional
}

// IsInterprocedural returns true if the def and the use are in different procedures
func (d *DUA) IsInterprocedural() bool {
	return d.Def.At.Proc != d.Use.At.Proc
}

func (d *DUA) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s -> %s [%s]", d.Def, d.Use, d.Classification())
	if len(d.KillsInOrder) > 0 {
		fmt.Fprintf(&b, " hard kills: %v", d.KillsInOrder)
	}
	if len(d.KillsNotInOrder) > 0 {
		fmt.Fprintf(&b, " possible kills: %v", d.KillsNotInOrder)
	}
	return b.String()
}

type pair struct {
	def program.Def
	use program.Use
}

// Set is the append-only collection of the DUAs of a program, in the order they were added. The builder adds them
// in def-then-use order. The set also contains the same-block map from defs to the uses they reach within their
// basic block, which is only used for slicing.
type Set struct {
	duas      []*DUA
	index     map[pair]int
	byDef     map[program.Def][]int
	byUse     map[program.Use][]int
	sameBlock map[program.Def]map[program.Use]bool
}

// NewSet returns an empty set
func NewSet() *Set {
	return &Set{
		index:     map[pair]int{},
		byDef:     map[program.Def][]int{},
		byUse:     map[program.Use][]int{},
		sameBlock: map[program.Def]map[program.Use]bool{},
	}
}

// Add appends a DUA to the set. Adding a second DUA for the same def and use is an invariant violation.
func (s *Set) Add(d *DUA) error {
	k := pair{d.Def, d.Use}
	if _, ok := s.index[k]; ok {
		return invariantf("duplicate DUA %s", d)
	}
	i := len(s.duas)
	s.duas = append(s.duas, d)
	s.index[k] = i
	s.byDef[d.Def] = append(s.byDef[d.Def], i)
	s.byUse[d.Use] = append(s.byUse[d.Use], i)
	return nil
}

// Len returns the number of DUAs
func (s *Set) Len() int {
	return len(s.duas)
}

// At returns the i-th DUA
func (s *Set) At(i int) *DUA {
	return s.duas[i]
}

// All returns the DUAs in order. The returned slice is a copy.
func (s *Set) All() []*DUA {
	return append([]*DUA(nil), s.duas...)
}

// Lookup returns the DUA of def and use, if any
func (s *Set) Lookup(def program.Def, use program.Use) (*DUA, bool) {
	i, ok := s.index[pair{def, use}]
	if !ok {
		return nil, false
	}
	return s.duas[i], true
}

// FromDef returns the DUAs of def, in order
func (s *Set) FromDef(def program.Def) []*DUA {
	return s.collect(s.byDef[def])
}

// ToUse returns the DUAs reaching use, in order
func (s *Set) ToUse(use program.Use) []*DUA {
	return s.collect(s.byUse[use])
}

func (s *Set) collect(idx []int) []*DUA {
	res := make([]*DUA, 0, len(idx))
	for _, i := range idx {
		res = append(res, s.duas[i])
	}
	return res
}

// addSameBlock records that def reaches use inside its basic block
func (s *Set) addSameBlock(def program.Def, use program.Use) {
	if s.sameBlock[def] == nil {
		s.sameBlock[def] = map[program.Use]bool{}
	}
	s.sameBlock[def][use] = true
}

// Count returns the number of DUAs of each classification
func (s *Set) Count() map[Classification]int {
	res := map[Classification]int{}
	for _, d := range s.duas {
		res[d.Classification()]++
	}
	return res
}
