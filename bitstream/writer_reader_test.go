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

package bitstream

import (
	"math/rand"
	"testing"
)

func TestWriterReaderRoundTripVariableWidths(t *testing.T) {
	for _, width := range []int{32, 64} {
		rng := rand.New(rand.NewSource(int64(width)))
		counts := make([]uint, 400)
		values := make([]uint64, 400)

		for i := range counts {
			c := uint(1 + rng.Intn(33))
			counts[i] = c
			values[i] = rng.Uint64() & mask(c)
		}

		buf := make([]byte, 4096)
		w := NewWriter(buf, width)

		for i := range counts {
			w.WriteBits(values[i], counts[i])
		}

		n := w.Finish()

		r := NewReader(buf[:n], width)

		for i := range counts {
			got := r.ReadBits(counts[i])

			if got != values[i] {
				t.Fatalf("width %d, field %d: got %d, want %d (count %d)", width, i, got, values[i], counts[i])
			}
		}
	}
}

func TestWriterWordFastPath(t *testing.T) {
	buf := make([]byte, 16)
	w := NewWriter(buf, 64)
	w.WriteWord(0x0123456789abcdef)
	n := w.Finish()

	if n != 8 {
		t.Fatalf("expected 8 bytes written, got %d", n)
	}

	r := NewReader(buf[:n], 64)

	if got := r.ReadWord(); got != 0x0123456789abcdef {
		t.Fatalf("got %#x, want %#x", got, uint64(0x0123456789abcdef))
	}
}

func TestWriterTokenSplitAcrossWord(t *testing.T) {
	// bitCount > W exercises the upper/lower split path (spec section 4.6).
	buf := make([]byte, 32)
	w := NewWriter(buf, 32)
	w.WriteToken(0x3, 0xdeadbeef, 34)
	n := w.Finish()

	r := NewReader(buf[:n], 32)

	if got := r.ReadBits(34); got != (uint64(0x3)<<32)|0xdeadbeef {
		t.Fatalf("got %#x, want %#x", got, (uint64(0x3)<<32)|0xdeadbeef)
	}
}

func TestWriterTrailingBitsZeroPadded(t *testing.T) {
	buf := make([]byte, 8)
	w := NewWriter(buf, 32)
	w.WriteBits(0x7, 3)
	n := w.Finish()

	if n != 4 {
		t.Fatalf("expected one word flushed, got %d bytes", n)
	}

	r := NewReader(buf[:n], 32)

	if got := r.ReadBits(32); got != 0x7<<29 {
		t.Fatalf("got %#x, want %#x", got, uint64(0x7<<29))
	}
}

func TestReaderShortBufferPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic reading past end of buffer")
		}
	}()

	buf := make([]byte, 2)
	r := NewReader(buf, 32)
	r.ReadBits(32)
}

func TestBitsWrittenAccounting(t *testing.T) {
	buf := make([]byte, 64)
	w := NewWriter(buf, 64)
	w.WriteBits(1, 1)
	w.WriteBits(2, 5)

	if got := w.BitsWritten(); got != 6 {
		t.Fatalf("got %d bits written, want 6", got)
	}

	w.Finish()

	if got := w.BitsWritten(); got != 64 {
		t.Fatalf("got %d bits written after finish, want 64", got)
	}
}
