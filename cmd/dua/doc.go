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
The dua tool computes the definition-use associations (DUAs) of your Go packages and classifies them by
inferrability: whether covering the definition and the use of a DUA guarantees the DUA itself was covered.

Usage:

	dua [flags] package...

The flags are:

	-config path      a path to the configuration file of the analysis

	-format f         the format of the report: text (default), json or msgpack

	-o path           write the report to path instead of the reports directory of the config or the standard output

	-paths            compute the path expressions of the DUAs, overrides the config file option if set

	-platform os      the GOOS to load the packages for

	-tags 'a b'       build tags

	-verbose          setting verbose mode, overrides config file options if set

Lines annotated with a //dua:ignore comment, or following such a comment, have no definitions or uses.
*/
package main
