// Copyright 2015 Google Inc. All rights reserved
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

package ccaction

import (
	"fmt"
)

// ActionExecError is a fatal, per-action failure. The action never
// retries; that belongs to the surrounding scheduler. For inclusion
// failures Paths carries every offending path.
type ActionExecError struct {
	Label Label
	Msg   string
	Paths []string
	Cause error
}

func (e *ActionExecError) Error() string {
	msg := e.Msg
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if VerboseFailuresFlag && e.Cause != nil && e.Msg != "" {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Label != "" {
		return fmt.Sprintf("%s: %s", e.Label, msg)
	}
	return msg
}

func (e *ActionExecError) Unwrap() error { return e.Cause }
