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
Package pathexpr computes path expressions for DUAs: compact descriptions of the acyclic paths on which a DUA is
covered, connected through the back edges of loops.

The acyclic paths of a procedure are numbered with the Ball-Larus scheme (see Numbering): every back edge is
replaced by a path ending at its source and a path starting at its target, and every call site ends a path, so
that sets of paths are bitsets of path ids. The expression of a DUA is computed by a backward fixpoint from its
use: expressions are restricted to the paths of the edges they flow through, and when they flow through a back
edge they are wrapped in a connecting triple pointing to the expression at the target of the back edge. Loops are
therefore represented by reference and never unrolled.

Expressions have value semantics: Clone, Merge, Restrict and Extend allocate their result and never modify their
operands, so that expressions may be shared once computed.

The diff of an expression against the numbering lists the loop edges on which the DUA is not covered. A non-empty
diff is reported as a path warning on the DUA: its inferrability may be optimistic.
*/
package pathexpr
