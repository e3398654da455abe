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

// Package order implements the order oracles used by the definition-use analysis to decide the relative execution
// order of two program points: reachability, dominance and post-dominance.
package order

import "github.com/awslabs/ar-go-dua/analysis/program"

// Oracle answers order queries between program points.
//
// Reaches must over-approximate: when it returns false, no execution goes from one point to the other. Dominates and
// Postdominates must under-approximate: when they return true, the relation holds on every execution.
type Oracle interface {
	// Reaches returns true if some execution may go from the program point from to the program point to through
	// at least one edge. If interprocedural is false, only paths inside the procedure are considered.
	Reaches(from, to program.NodeRef, interprocedural bool) bool

	// Dominates returns true if every path from the procedure's entry to b goes through a.
	Dominates(a, b program.NodeRef) bool

	// Postdominates returns true if every path from b to the procedure's exit goes through a.
	Postdominates(a, b program.NodeRef) bool
}

// Null is the oracle used when the whole-program order analyses are disabled: every answer is false. Clients must
// not interpret a false answer of Reaches as a guarantee unless the reachability oracle is enabled.
type Null struct{}

// Reaches always returns false
func (Null) Reaches(_, _ program.NodeRef, _ bool) bool { return false }

// Dominates always returns false
func (Null) Dominates(_, _ program.NodeRef) bool { return false }

// Postdominates always returns false
func (Null) Postdominates(_, _ program.NodeRef) bool { return false }
