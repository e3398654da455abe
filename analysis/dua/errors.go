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
	"errors"
	"fmt"
)

// ErrInvariant is the error wrapped by every InvariantError. Use errors.Is(err, ErrInvariant) to recognize an
// aborted analysis.
var ErrInvariant = errors.New("internal invariant violated")

// InvariantError is returned when the analysis detects an inconsistency in its own bookkeeping. The results of
// a run that returned an InvariantError must be discarded.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvariant, e.Msg)
}

// Unwrap returns ErrInvariant
func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

func invariantf(format string, args ...any) error {
	return &InvariantError{Msg: fmt.Sprintf(format, args...)}
}
