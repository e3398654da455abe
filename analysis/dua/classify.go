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

import "github.com/awslabs/ar-go-dua/analysis/program"

// classifyPredicateUses clears the inferrability of every DUA ending in a p-use that is reached by more than one
// def: covering the branch does not tell which def it read. Heap DUAs are not counted.
func (s *State) classifyPredicateUses() {
	reaching := map[program.Use]map[program.Def]bool{}
	for _, d := range s.Set.duas {
		if d.Heap || d.Use.Kind != program.PUse {
			continue
		}
		if reaching[d.Use] == nil {
			reaching[d.Use] = map[program.Def]bool{}
		}
		reaching[d.Use][d.Def] = true
	}
	cleared := 0
	for _, d := range s.Set.duas {
		if d.Heap || d.Use.Kind != program.PUse {
			continue
		}
		if len(reaching[d.Use]) > 1 && d.InferrableOrCondInf {
			d.InferrableOrCondInf = false
			cleared++
		}
	}
	s.Logger.Tracef("%d predicate DUAs made non-inferrable\n", cleared)
}
