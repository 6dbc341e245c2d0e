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

import (
	"encoding/binary"

	chimpflow "github.com/chimpflow/chimpflow"
	"github.com/chimpflow/chimpflow/bitstream"
)

// PackBlockInto serializes one block's header and tokens directly into
// dst, which must be exactly 8+sizing.PackedByteCount bytes (spec section
// 3 "Per-block output layout", section 4.6 "Bit Packer"). Writing into a
// caller-owned slice rather than returning a fresh one is what lets the
// compute package's device backend give each goroutine a disjoint slice of
// one shared run buffer with no synchronization between blocks.
func PackBlockInto(dst []byte, tokens []Token, sizing BlockSizing, valuesInBlock int, width chimpflow.Width) {
	binary.LittleEndian.PutUint32(dst[0:4], uint32(valuesInBlock-1))
	binary.LittleEndian.PutUint32(dst[4:8], sizing.PackedByteCount)

	w := bitstream.NewWriter(dst[8:], int(width))

	if len(tokens) > 0 {
		// Position-0 fast path (spec section 4.6): exactly W raw bits.
		w.WriteWord(tokens[0].Lower)

		for _, t := range tokens[1:] {
			w.WriteToken(t.Upper, t.Lower, t.BitCount)
		}
	}

	w.Finish()
}

// PackBlock is the allocating variant of PackBlockInto, used by the scalar
// backend which builds one block record at a time.
func PackBlock(tokens []Token, sizing BlockSizing, valuesInBlock int, width chimpflow.Width) []byte {
	out := make([]byte, 8+int(sizing.PackedByteCount))
	PackBlockInto(out, tokens, sizing, valuesInBlock, width)
	return out
}
