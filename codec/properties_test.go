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
	"math"
	"testing"

	chimpflow "github.com/chimpflow/chimpflow"
)

// encodeBlocks runs the five compress-side stages over every block of flat
// and returns each block's packed record.
func encodeBlocks(t *testing.T, flat []uint64, blockSize int, window chimpflow.ReferenceWindow, width chimpflow.Width) ([]Block, [][]Token, []BlockSizing, [][]byte) {
	t.Helper()

	blocks := FrameBlocks(flat, blockSize)
	tokensPerBlock := make([][]Token, len(blocks))

	for b, blk := range blocks {
		previousIndex := SelectReferenceIndices(blk.Values, window, width)
		stats := ComputeStats(blk.Values, previousIndex, width)
		tokensPerBlock[b] = EncodeTokens(blk.Values, previousIndex, stats, window, width)
	}

	sizing := ComputePrefixSum(tokensPerBlock, width)
	records := make([][]byte, len(blocks))

	for b, blk := range blocks {
		records[b] = PackBlock(tokensPerBlock[b], sizing[b], blk.RealCount, width)
	}

	return blocks, tokensPerBlock, sizing, records
}

// TestTokenBitAccounting is spec section 8 property 5: ceil(sum(bit_count)/8)
// <= packed_byte_count <= that value rounded up to the next W/8-byte word.
func TestTokenBitAccounting(t *testing.T) {
	rng := newPRNG(11)

	for _, width := range []chimpflow.Width{chimpflow.Width32, chimpflow.Width64} {
		values := make([]uint64, 256)
		for i := range values {
			values[i] = rng.next(width)
		}

		_, tokensPerBlock, sizing, _ := encodeBlocks(t, values, 256, chimpflow.Window32, width)

		var bits int64
		for _, tok := range tokensPerBlock[0] {
			bits += int64(tok.BitCount)
		}

		minBytes := (bits + 7) / 8
		wordBytes := int64(width.Bytes())
		maxBytes := ((minBytes + wordBytes - 1) / wordBytes) * wordBytes

		got := int64(sizing[0].PackedByteCount)
		if got < minBytes || got > maxBytes {
			t.Fatalf("width %d: packed_byte_count %d out of range [%d,%d]", width, got, minBytes, maxBytes)
		}
	}
}

// TestPrefixSumOffsetsMonotone is spec section 8 property 6: block offsets
// strictly increase by at least 8 bytes (the header) per non-empty block.
func TestPrefixSumOffsetsMonotone(t *testing.T) {
	flat := make([]uint64, 256*5)
	rng := newPRNG(22)
	for i := range flat {
		flat[i] = rng.next(chimpflow.Width64)
	}

	_, _, sizing, _ := encodeBlocks(t, flat, 256, chimpflow.NoReferenceWindow, chimpflow.Width64)

	for b := 1; b < len(sizing); b++ {
		delta := sizing[b].Offset - sizing[b-1].Offset
		if delta < 8 {
			t.Fatalf("block %d: offset advanced by %d bytes, want >= 8", b, delta)
		}
	}

	if sizing[0].Offset != 0 {
		t.Fatalf("first block offset = %d, want 0", sizing[0].Offset)
	}
}

// TestConstantInputCompressionRatio is spec section 8 property 7: a block
// of identical values packs to close to the theoretical minimum -- one
// full-width value plus 2 bits (case 1, equal) per remaining position.
func TestConstantInputCompressionRatio(t *testing.T) {
	values := make([]uint64, 256)
	bits := math.Float64bits(3.14159)
	for i := range values {
		values[i] = bits
	}

	_, _, sizing, _ := encodeBlocks(t, values, 256, chimpflow.NoReferenceWindow, chimpflow.Width64)

	wantBits := 64 + 2*255
	wantBytes := (wantBits + 7) / 8
	wordBytes := 8
	wantBytes = ((wantBytes + wordBytes - 1) / wordBytes) * wordBytes

	if int(sizing[0].PackedByteCount) != wantBytes {
		t.Fatalf("constant block packed to %d bytes, want %d", sizing[0].PackedByteCount, wantBytes)
	}

	rawBytes := 256 * 8
	ratio := float64(rawBytes) / float64(8+wantBytes)
	if ratio < 4.0 {
		t.Fatalf("constant-input compression ratio %.2f, want >= 4.0", ratio)
	}
}

// TestBlockIndependenceUnderTruncation is spec section 8 property 4 /
// scenario S3: truncating a multi-block stream to its first 3 of 4 records
// leaves those first 3 blocks' values fully recoverable.
func TestBlockIndependenceUnderTruncation(t *testing.T) {
	flat := make([]uint64, 256*4)
	rng := newPRNG(33)
	for i := range flat {
		flat[i] = rng.next(chimpflow.Width32)
	}

	_, _, _, records := encodeBlocks(t, flat, 256, chimpflow.Window32, chimpflow.Width32)

	var truncated []byte
	for _, r := range records[:3] {
		truncated = append(truncated, r...)
	}

	offset := 0
	for b := 0; b < 3; b++ {
		got, consumed, err := DecodeBlock(truncated[offset:], offset, chimpflow.Window32, chimpflow.Width32)
		if err != nil {
			t.Fatalf("block %d: decode error: %v", b, err)
		}

		want := flat[b*256 : b*256+256]
		for i, v := range got {
			if v != want[i] {
				t.Fatalf("block %d position %d: got %#x want %#x", b, i, v, want[i])
			}
		}

		offset += consumed
	}

	if offset != len(truncated) {
		t.Fatalf("consumed %d bytes, want %d", offset, len(truncated))
	}
}

// TestChimpNWinsOverImmediatePredecessor is scenario S5: a block where
// every value repeats its value from 7 positions back (and differs from
// its immediate predecessor) packs far smaller under ChimpN (N=32, which
// can reach back 7) than it would if every position were forced to
// reference only its immediate predecessor.
func TestChimpNWinsOverImmediatePredecessor(t *testing.T) {
	values := make([]uint64, 256)
	rng := newPRNG(44)

	for i := 0; i < 7; i++ {
		values[i] = rng.next(chimpflow.Width32)
	}
	for i := 7; i < 256; i++ {
		values[i] = values[i-7]
	}

	previousIndexN := SelectReferenceIndices(values, chimpflow.Window32, chimpflow.Width32)

	matches := 0
	for i := 7; i < 256; i++ {
		if previousIndexN[i] == 7 {
			matches++
		}
	}
	if matches == 0 {
		t.Fatal("expected SelectReferenceIndices to choose distance 7 for at least one position with window N=32")
	}

	statsN := ComputeStats(values, previousIndexN, chimpflow.Width32)
	tokensN := EncodeTokens(values, previousIndexN, statsN, chimpflow.Window32, chimpflow.Width32)

	// Force every position to reference only its immediate predecessor,
	// the no-window (base Chimp) behavior, for comparison.
	previousIndex1 := make([]int, 256)
	for i := 1; i < 256; i++ {
		previousIndex1[i] = 1
	}
	stats1 := ComputeStats(values, previousIndex1, chimpflow.Width32)
	tokens1 := EncodeTokens(values, previousIndex1, stats1, chimpflow.NoReferenceWindow, chimpflow.Width32)

	var bitsN, bits1 int64
	for _, tok := range tokensN {
		bitsN += int64(tok.BitCount)
	}
	for _, tok := range tokens1 {
		bits1 += int64(tok.BitCount)
	}

	if bitsN >= bits1 {
		t.Fatalf("ChimpN (N=32) used %d bits, expected fewer than base Chimp's %d bits", bitsN, bits1)
	}
}

// TestReferenceDistanceEqualsWindowRoundTrips forces SelectReferenceIndices
// to choose a reference distance of exactly N (the maximum allowed by spec
// section 4.2 "i-j <= N") and checks the block still round-trips. N is a
// power of two, so d==N is the one value that would lose its top bit if
// the d field were encoded directly and masked to log2N bits instead of as
// d-1 (see EncodeTokens/DecodeBlock).
func TestReferenceDistanceEqualsWindowRoundTrips(t *testing.T) {
	const n = 32

	values := make([]uint64, 256)
	rng := newPRNG(55)

	for i := 0; i < n; i++ {
		values[i] = rng.next(chimpflow.Width32)
	}
	for i := n; i < 256; i++ {
		values[i] = values[i-n]
	}

	previousIndex := SelectReferenceIndices(values, chimpflow.Window32, chimpflow.Width32)

	sawFullWindow := false
	for i := n; i < 256; i++ {
		if previousIndex[i] == n {
			sawFullWindow = true
			break
		}
	}
	if !sawFullWindow {
		t.Fatalf("expected SelectReferenceIndices to choose distance %d for at least one position", n)
	}

	record := encodeOneBlock(t, values, 256, chimpflow.Window32, chimpflow.Width32)
	got, consumed, err := DecodeBlock(record, 0, chimpflow.Window32, chimpflow.Width32)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if consumed != len(record) {
		t.Fatalf("consumed %d, want %d", consumed, len(record))
	}

	for i, v := range got {
		if v != values[i] {
			t.Fatalf("position %d got %#x want %#x", i, v, values[i])
		}
	}
}

// prng is a tiny deterministic xorshift generator -- math/rand's output
// isn't guaranteed stable across Go versions, and these tests only need
// reproducible, varied bit patterns, not cryptographic or statistical
// quality.
type prng struct{ state uint64 }

func newPRNG(seed uint64) *prng { return &prng{state: seed*2685821657736338717 + 1} }

func (p *prng) next(width chimpflow.Width) uint64 {
	p.state ^= p.state << 13
	p.state ^= p.state >> 7
	p.state ^= p.state << 17

	if width == chimpflow.Width32 {
		return p.state & 0xFFFFFFFF
	}
	return p.state
}
