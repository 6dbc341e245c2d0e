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

// DecodeBlock is the symmetric inverse of PackBlock/EncodeTokens (spec
// section 4.7). record must start at the block's 8-byte header; recordOffset
// is record's absolute position in the full stream, used only to annotate
// a MalformedStream error with the offending byte index (spec section 7).
// Returns the decoded values and the number of bytes of record consumed
// (8 + packed_byte_count).
func DecodeBlock(record []byte, recordOffset int, window chimpflow.ReferenceWindow, width chimpflow.Width) (values []uint64, consumed int, err error) {
	if len(record) < 8 {
		return nil, 0, chimpflow.NewMalformedStream("truncated block header", recordOffset)
	}

	valuesInBlock := int(binary.LittleEndian.Uint32(record[0:4])) + 1
	packedByteCount := binary.LittleEndian.Uint32(record[4:8])
	consumed = 8 + int(packedByteCount)

	if consumed > len(record) {
		return nil, 0, chimpflow.NewMalformedStream("block claims more bytes than available", recordOffset)
	}

	defer func() {
		if r := recover(); r != nil {
			values = nil
			consumed = 0
			err = chimpflow.NewMalformedStream("token stream exhausted before block's stated value count", recordOffset+8)
		}
	}()

	values = make([]uint64, valuesInBlock)
	lastHead := make([]int, valuesInBlock)

	reader := bitstream.NewReader(record[8:8+int(packedByteCount)], int(width))
	values[0] = reader.ReadWord()
	lastHead[0] = 0

	log2N := window.Log2()
	hBits := headFieldBits(width)
	w := int(width)

	for i := 1; i < valuesInBlock; i++ {
		prefix := reader.ReadBits(2)
		d := 1

		if log2N > 0 {
			// Stored as d-1 (see EncodeTokens): add 1 back to recover the
			// actual distance in [1,N].
			d = int(reader.ReadBits(uint(log2N))) + 1
		}

		j := i - d

		if d <= 0 || j < 0 {
			return nil, 0, chimpflow.NewMalformedStream("reference distance out of block", recordOffset+8)
		}

		switch prefix {
		case prefixCase1:
			values[i] = values[j]
			lastHead[i] = w

		case prefixCase2:
			head := int(reader.ReadBits(uint(hBits)))
			centerCount := int(reader.ReadBits(uint(hBits)))

			if head+centerCount > w {
				return nil, 0, chimpflow.NewMalformedStream("decoded head+center_bits exceeds W", recordOffset+8)
			}

			center := reader.ReadBits(uint(centerCount))
			tail := w - head - centerCount
			values[i] = values[j] ^ (center << uint(tail))
			lastHead[i] = head

		case prefixCase3:
			head := lastHead[j]

			if head > w {
				return nil, 0, chimpflow.NewMalformedStream("inherited head exceeds W", recordOffset+8)
			}

			sig := w - head

			if sig == 0 {
				sig = w
			}

			values[i] = values[j] ^ reader.ReadBits(uint(sig))
			lastHead[i] = head

		default: // prefixCase4
			head := int(reader.ReadBits(uint(hBits)))

			if head > w {
				return nil, 0, chimpflow.NewMalformedStream("decoded head exceeds W", recordOffset+8)
			}

			sig := w - head

			if sig == 0 {
				sig = w
			}

			values[i] = values[j] ^ reader.ReadBits(uint(sig))
			lastHead[i] = head
		}
	}

	return values, consumed, nil
}
