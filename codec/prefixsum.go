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

// BlockSizing is one block's packed_byte_count and its absolute byte
// offset in the final stream (spec section 4.5).
type BlockSizing struct {
	PackedByteCount uint32
	Offset          int
}

// ComputePrefixSum turns each block's encoded token bit totals into byte
// offsets (spec section 4.5): each block's packed region is rounded up to
// a whole number of W/8-byte words (needed by the word-oriented packer and
// decoder), then a sequential scan produces a running total with
// offsets[0] = 0 implied by the first entry's Offset field. Knowing every
// block's Offset and PackedByteCount before packing starts is what lets
// the bit packer write disjoint byte ranges with no ordering barrier
// between blocks (spec section 5 "within a workgroup... parallel across
// blocks").
func ComputePrefixSum(tokensPerBlock [][]Token, width chimpflow.Width) []BlockSizing {
	sizing := make([]BlockSizing, len(tokensPerBlock))
	wordBytes := width.Bytes()
	offset := 0

	for b, tokens := range tokensPerBlock {
		var bits int64

		for _, t := range tokens {
			bits += int64(t.BitCount)
		}

		byteLen := int((bits + 7) / 8)
		packed := roundUp(byteLen, wordBytes)

		sizing[b] = BlockSizing{PackedByteCount: uint32(packed), Offset: offset}
		offset += 8 + packed
	}

	return sizing
}

// TotalBytes returns the full stream length implied by sizing, i.e. the
// offset one past the last block's record.
func TotalBytes(sizing []BlockSizing) int {
	if len(sizing) == 0 {
		return 0
	}

	last := sizing[len(sizing)-1]
	return last.Offset + 8 + int(last.PackedByteCount)
}

func roundUp(n, multiple int) int {
	if multiple <= 0 {
		return n
	}

	rem := n % multiple

	if rem == 0 {
		return n
	}

	return n + (multiple - rem)
}
