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
Package config provides a simple way to manage configuration files.

Use [Load](filename) to load a configuration from a specific filename, or [Parse] to load it from bytes.

A config file should be in yaml format. The top-level fields can be any of the fields defined in the Config
struct type. For example, a valid config file is as follows:

	options:
	  log-level: 4
	  use-dominance: true
	  use-reachability: false
	  path-expressions: true
	  max-path-ids: 1024
	excluded-fields:
	  - mu

# Oracles

The inferrability of a definition-use association depends on the order guarantees given by the dominance and
reachability oracles. Disabling an oracle never makes the analysis unsound: it only makes it more conservative, i.e.
fewer associations are reported as inferrable.

# Logging

[NewLogGroup] returns a group of leveled loggers configured by the log-level option (1 for errors only, 5 for
traces).
*/
package config
