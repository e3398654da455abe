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

/*
Package dua computes the definition-use associations (DUAs) of a program and classifies how confidently the
coverage of their def and use implies that they were exercised.

A DUA pairs a def of a variable with a use of the same variable such that some execution goes from the def to the
use without an intervening def. The analysis runs in three steps over a program.Program:

  - the propagator computes, for every def of a local variable, the uses it reaches in its procedure and, through
    the arguments of calls, in the callees. The reachable uses of formal parameters are computed by a fixpoint over
    the call graph. It also computes the kill candidates of every def: the defs of the same variable that may
    execute after it.
  - the builder creates one DUA per def and reached use, asks the order.Oracle whether the def always executes
    before the use, and sorts the kill candidates that also reach the use into hard kills (in order) and possible
    kills. Fields, array elements and objects get their DUAs from a conservative cross product of their defs and
    uses, and are never inferrable.
  - the classifier makes non-inferrable the DUAs of predicate uses reached by more than one def.

The entry point is State.Run:

	s := dua.NewState(prog, order.NewGraph(prog), cfg, logger)
	if err := s.Run(); err != nil {
		...
	}
	for _, d := range s.Set.All() {
		fmt.Println(d, d.Classification())
	}

A run either completes or returns an InvariantError, in which case the set must be discarded.
*/
package dua
