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

// Package internal holds small helpers shared by the codec and compute
// packages that do not belong in the public API surface.
package internal

import "errors"

// ComputeJobsPerTask splits 'jobs' units of work as evenly as possible
// across 'tasks' slots, the same balancing rule the teacher's block-parallel
// stream used to size its per-block goroutine pool; when jobs <= tasks every
// slot gets 1. The compute package's deviceContext passes a run's block
// count as jobs and its goroutine count as tasks, so each goroutine gets a
// contiguous share of the blocks.
func ComputeJobsPerTask(jobsPerTask []uint, jobs, tasks uint) ([]uint, error) {
	if tasks == 0 {
		return jobsPerTask, errors.New("invalid number of tasks provided: 0")
	}

	if jobs == 0 {
		return jobsPerTask, errors.New("invalid number of jobs provided: 0")
	}

	var q, r uint

	if jobs <= tasks {
		q = 1
		r = 0
	} else {
		q = jobs / tasks
		r = jobs - q*tasks
	}

	for i := range jobsPerTask {
		jobsPerTask[i] = q
	}

	n := uint(0)

	for r != 0 {
		jobsPerTask[n]++
		r--
		n++

		if n == tasks {
			n = 0
		}
	}

	return jobsPerTask, nil
}

// Log2Ceil returns ceil(log2(x)) for x >= 1, used to derive log2N from a
// ChimpN reference window size (spec section 3).
func Log2Ceil(x uint) uint {
	if x <= 1 {
		return 0
	}

	n := uint(0)
	v := x - 1

	for v > 0 {
		v >>= 1
		n++
	}

	return n
}
