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
	"sync/atomic"
)

type statsT struct {
	actionsExecuted    atomic.Int64
	depFilesParsed     atomic.Int64
	validations        atomic.Int64
	validationWarnings atomic.Int64
	validationErrors   atomic.Int64
	inputUpdates       atomic.Int64
	cacheRestores      atomic.Int64
}

var stats statsT

// DumpStats prints the package counters when StatsFlag is set.
func DumpStats() {
	if !StatsFlag {
		return
	}
	fmt.Printf("*ccaction*: executed=%d depfiles=%d updates=%d validations=%d warn=%d err=%d restores=%d\n",
		stats.actionsExecuted.Load(),
		stats.depFilesParsed.Load(),
		stats.inputUpdates.Load(),
		stats.validations.Load(),
		stats.validationWarnings.Load(),
		stats.validationErrors.Load(),
		stats.cacheRestores.Load())
}
