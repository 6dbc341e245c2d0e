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

// SelectReferenceIndices fills previousIndex[i] with the chosen
// back-reference distance for i in [1,len(values)) (spec section 4.2,
// ChimpN). previousIndex[0] is always 0: position 0 has no reference and
// is always stored verbatim (spec section 4.4 edge case).
//
// The hash table is reset at every call since callers invoke this once per
// block (spec section 4.2 step 4, "Reset the table at every block
// boundary"); never pass more than one block's values in a single call.
func SelectReferenceIndices(values []uint64, window chimpflow.ReferenceWindow, width chimpflow.Width) []int {
	n := len(values)
	previousIndex := make([]int, n)

	if n == 0 {
		return previousIndex
	}

	if window == chimpflow.NoReferenceWindow {
		for i := 1; i < n; i++ {
			previousIndex[i] = 1
		}

		return previousIndex
	}

	log2N := window.Log2()
	keyBits := uint(log2N + 1)
	keyMask := (uint64(1) << keyBits) - 1
	threshold := uint(5 + log2N)
	maxDist := window.N()

	table := make([]int, uint64(1)<<keyBits)

	for i := range table {
		table[i] = -1
	}

	for i := 0; i < n; i++ {
		if i > 0 {
			key := values[i] & keyMask
			j := table[key]
			d := 1

			if j >= 0 && i-j <= maxDist {
				xor := values[i] ^ values[j]

				if uint(trailingZerosW(xor, width)) > threshold {
					d = i - j
				}
			}

			previousIndex[i] = d
		}

		key := values[i] & keyMask
		table[key] = i
	}

	return previousIndex
}
