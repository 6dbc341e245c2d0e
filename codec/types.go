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

// Package codec implements the per-block pipeline stages of the
// Chimp-family float codec: framing, then the five stages reference-index
// selection, XOR statistics, token encoding, prefix-sum and bit-packing,
// and the symmetric decoder. Every function here operates on one block (or a flat slice of
// blocks) in isolation, with no goroutines of its own -- the compute
// package is what dispatches these calls one-per-goroutine across a run's
// blocks. Keeping the stages free of concurrency primitives is what lets
// the scalar and device backends share every line of stage logic and
// still produce byte-identical output (spec section 8, property 2).
package codec

import chimpflow "github.com/chimpflow/chimpflow"

// Block is a fixed-length run of B values plus the bookkeeping later
// stages need (spec section 3 "Block"). Values holds raw IEEE-754 bit
// patterns, not floats -- the packer, stats and reference-index stages
// never need to know the difference between a float and its bits.
type Block struct {
	Values    []uint64
	RealCount int
}

// Stats is S[i] from spec section 3: head/tail/equal of v_i xor v_ref.
type Stats struct {
	Head  int
	Tail  int
	Equal bool
}

// Token is the (upper, lower, bit_count) triple from spec section 3: the
// variable-length encoding of one value, before bit-packing.
type Token struct {
	Upper    uint64
	Lower    uint64
	BitCount int
}

func leadingZerosW(x uint64, width chimpflow.Width) int {
	lz := bitsLeadingZeros64(x)
	adj := lz - (64 - int(width))

	if adj < 0 {
		adj = 0
	}

	if adj > int(width) {
		adj = int(width)
	}

	return adj
}

func trailingZerosW(x uint64, width chimpflow.Width) int {
	if x == 0 {
		return int(width)
	}

	tz := bitsTrailingZeros64(x)

	if tz > int(width) {
		tz = int(width)
	}

	return tz
}
