/*
Copyright 2011-2024 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package compute

import "time"

// startTimer is the "scoped acquisition of a timer with guaranteed stop on
// all exit paths" primitive from spec section 9, replacing the macro-based
// timing/tracing the original measured io_time_ms with. Use with defer:
//
//	stop := startTimer(&ioTimeMs)
//	defer stop()
//
// Only buffer allocation and the record-boundary scan are measured as
// "io time" here; the five compute stages themselves are not, since this
// implementation has no real device upload/download to separate them
// from (DESIGN.md, compute/ timer.go entry).
func startTimer(accum *int64) func() {
	start := time.Now()
	return func() {
		*accum += time.Since(start).Milliseconds()
	}
}
