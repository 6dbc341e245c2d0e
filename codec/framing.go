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

// FrameBlocks splits values into blocks of exactly blockSize, padding the
// final block with zeros (spec section 4.1). An empty input yields no
// blocks, which the caller turns into an empty byte stream per spec
// section 4.1 ("No error conditions other than the empty input").
func FrameBlocks(values []uint64, blockSize int) []Block {
	if len(values) == 0 {
		return nil
	}

	numBlocks := (len(values) + blockSize - 1) / blockSize
	blocks := make([]Block, numBlocks)

	for b := 0; b < numBlocks; b++ {
		start := b * blockSize
		end := start + blockSize

		if end > len(values) {
			end = len(values)
		}

		vals := make([]uint64, blockSize)
		copy(vals, values[start:end])
		blocks[b] = Block{Values: vals, RealCount: end - start}
	}

	return blocks
}

// Run is a contiguous, half-open range [Start,End) of block indices sized
// to fit the device's largest storage buffer (GLOSSARY "Run"; spec section
// 4.1 "chunking for memory", section 5 "Memory bound").
type Run struct {
	Start, End int
}

// SplitRuns groups numBlocks blocks into runs that never let the running
// total of perBlockBytes exceed maxBufferBytes, and never split a block
// across two runs -- the accumulate-until-full rule original_source's
// decompressor.rs applies to its vec_window against MAX_BUFFER_SIZE_BYTES
// (SPEC_FULL section 12 item 1). perBlockBytes is the caller's estimate of
// the largest single-block intermediate buffer a run must hold at once
// (e.g. the S or token buffer in 64-bit mode). A run of exactly one block
// that still exceeds maxBufferBytes is let through here -- SplitRuns only
// groups block indices; the orchestrator checks that remaining case and
// reports BufferTooLarge (spec section 4.8), since only it knows whether a
// single-block run is still unusable.
func SplitRuns(numBlocks, perBlockBytes, maxBufferBytes int) []Run {
	if numBlocks == 0 {
		return nil
	}

	var runs []Run
	start := 0
	used := 0

	for b := 0; b < numBlocks; b++ {
		if used+perBlockBytes > maxBufferBytes && b > start {
			runs = append(runs, Run{Start: start, End: b})
			start = b
			used = 0
		}

		used += perBlockBytes
	}

	runs = append(runs, Run{Start: start, End: numBlocks})
	return runs
}
