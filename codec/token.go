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

// Prefix codes (spec section 4.4).
const (
	prefixCase1 = 0x0 // equal
	prefixCase2 = 0x1 // !equal, tail > TailShortThreshold
	prefixCase3 = 0x2 // !equal, tail short, head inherited from reference
	prefixCase4 = 0x3 // !equal, tail short, head differs from reference
)

// headFieldBits is the width of the head sub-field in case 2 and case 4,
// and of the center-bits-count sub-field in case 2 (spec section 4.4:
// "6 b for W=64; 5 b for W=32").
func headFieldBits(width chimpflow.Width) int {
	if width == chimpflow.Width64 {
		return 6
	}

	return 5
}

func maskBits(n int) uint64 {
	if n <= 0 {
		return 0
	}

	if n >= 64 {
		return ^uint64(0)
	}

	return (uint64(1) << uint(n)) - 1
}

// EncodeTokens builds one token per block position (spec section 4.4).
// previousIndex and stats must already be populated for the same block
// (SelectReferenceIndices, ComputeStats). Position 0 always takes the
// verbatim fast path; its case code is implicit and never written.
func EncodeTokens(values []uint64, previousIndex []int, stats []Stats, window chimpflow.ReferenceWindow, width chimpflow.Width) []Token {
	n := len(values)
	tokens := make([]Token, n)

	if n == 0 {
		return tokens
	}

	tokens[0] = Token{Upper: 0, Lower: values[0], BitCount: int(width)}

	log2N := window.Log2()
	hBits := headFieldBits(width)
	w := int(width)

	for i := 1; i < n; i++ {
		d := previousIndex[i]
		j := i - d
		s := stats[i]
		xor := values[i] ^ values[j]

		var prefix uint64
		var headField, payload uint64
		var headBits, payloadBits int

		switch {
		case s.Equal:
			prefix = prefixCase1

		case s.Tail > chimpflow.TailShortThreshold:
			prefix = prefixCase2
			centerBits := w - s.Head - s.Tail

			if centerBits < 0 {
				centerBits = 0
			}

			center := (xor >> uint(s.Tail)) & maskBits(centerBits)
			headField, headBits = uint64(s.Head), hBits
			payload = (uint64(centerBits) << uint(centerBits)) | center
			payloadBits = hBits + centerBits

		case s.Head == stats[j].Head:
			prefix = prefixCase3
			sig := w - s.Head

			if sig == 0 {
				sig = w
			}

			payload = xor & maskBits(sig)
			payloadBits = sig

		default:
			prefix = prefixCase4
			sig := w - s.Head

			if sig == 0 {
				sig = w
			}

			headField, headBits = uint64(s.Head), hBits
			payload = xor & maskBits(sig)
			payloadBits = sig
		}

		var dField uint64

		if log2N > 0 {
			// d ranges over [1,N]; N is a power of two, so d-1 is what
			// actually fits in log2N bits (spec section 4.2 "i-j <= N" --
			// d can equal N itself, which would lose its top bit if
			// encoded directly and masked to log2N bits).
			dField = uint64(d-1) & maskBits(log2N)
		}

		// Append prefix, d, head and payload MSB-first into a 128-bit
		// (hi, lo) pair: at W=64 a token can exceed 64 bits.
		totalBits := 2 + log2N + headBits + payloadBits
		var hi, lo uint64
		for _, f := range [...][2]uint64{{prefix, 2}, {dField, uint64(log2N)}, {headField, uint64(headBits)}, {payload, uint64(payloadBits)}} {
			hi = hi<<f[1] | lo>>(64-f[1])
			lo = lo<<f[1] | f[0]&maskBits(int(f[1]))
		}

		tokens[i] = splitToken(hi, lo, totalBits, width)
	}

	return tokens
}

// splitToken right-justifies the 128-bit value (hi, full) into (upper,
// lower) per spec section 3: "upper holds the high bits when bit_count > W;
// lower holds the low bits".
func splitToken(hi, full uint64, bitCount int, width chimpflow.Width) Token {
	w := int(width)

	if bitCount <= w {
		return Token{Upper: 0, Lower: full & maskBits(bitCount), BitCount: bitCount}
	}

	highBits := bitCount - w
	upper := (hi<<uint(64-w) | full>>uint(w)) & maskBits(highBits)
	lower := full & maskBits(w)

	return Token{Upper: upper, Lower: lower, BitCount: bitCount}
}
