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

var (
	// StatsFlag enables the counter dump at exit.
	StatsFlag bool

	// DebugValidationFlag dumps the inclusion validator's working
	// state to stderr on violations. Diagnostic aid only, not part
	// of the contract.
	DebugValidationFlag bool

	// VerboseFailuresFlag includes underlying causes in action
	// failure messages.
	VerboseFailuresFlag bool
)
