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

package codec

import chimpflow "github.com/chimpflow/chimpflow"

// ComputeStats fills S[i] for every position in values, given the
// reference distances chosen by SelectReferenceIndices (spec section 4.3).
// head is forced to 0 only at block-start (position 0); everywhere else it
// is the literal leading-zero count of the xor, which is W when the xor is
// zero -- that value flows into later positions' case-3 "same-lead" test
// (token.go) exactly as an equal position's own xor would.
func ComputeStats(values []uint64, previousIndex []int, width chimpflow.Width) []Stats {
	n := len(values)
	stats := make([]Stats, n)

	if n == 0 {
		return stats
	}

	stats[0] = Stats{Head: 0, Tail: int(width), Equal: true}

	for i := 1; i < n; i++ {
		j := i - previousIndex[i]
		xor := values[i] ^ values[j]
		stats[i] = Stats{
			Head:  leadingZerosW(xor, width),
			Tail:  trailingZerosW(xor, width),
			Equal: xor == 0,
		}
	}

	return stats
}
