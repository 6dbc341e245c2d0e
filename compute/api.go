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

package compute

import (
	"encoding/binary"
	"math"
	"time"

	chimpflow "github.com/chimpflow/chimpflow"
	"github.com/chimpflow/chimpflow/codec"
)

// Compressor ties a validated Config to a ComputeContext backend and
// exposes the compress()/decompress() API of spec section 6. Width (f32
// vs f64) is inferred per call from which CompressFloatNN/DecompressFloatNN
// method is used; Window and block size come from Config and must be the
// same for a decompress call as the compress call that produced its input,
// since neither is carried in the byte stream (spec section 6 "No
// stream-level magic, version, or block size; agreed out-of-band").
type Compressor struct {
	Config  chimpflow.Config
	Context chimpflow.ComputeContext

	lastTrace *traceRecorder
}

// NewCompressor validates cfg and pairs it with ctx. Validation happens at
// construction, not at the first compress/decompress call (spec section 7
// "InvalidConfiguration -- out-of-range B or N; reported at construction").
func NewCompressor(cfg chimpflow.Config, ctx chimpflow.ComputeContext) (*Compressor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		return nil, chimpflow.NewComputeUnavailable("no compute context supplied")
	}
	return &Compressor{Config: cfg, Context: ctx}, nil
}

// CompressFloat32 implements compress() for f32 input (spec section 6).
func (c *Compressor) CompressFloat32(values []float32) (data []byte, metadataBytes int, ioTimeMs int64, err error) {
	bits := make([]uint64, len(values))
	for i, v := range values {
		bits[i] = uint64(math.Float32bits(v))
	}
	return c.compress(bits, chimpflow.Width32)
}

// CompressFloat64 implements compress() for f64 input (spec section 6).
func (c *Compressor) CompressFloat64(values []float64) (data []byte, metadataBytes int, ioTimeMs int64, err error) {
	bits := make([]uint64, len(values))
	for i, v := range values {
		bits[i] = math.Float64bits(v)
	}
	return c.compress(bits, chimpflow.Width64)
}

// DecompressFloat32 implements decompress() for an f32 stream.
func (c *Compressor) DecompressFloat32(data []byte) (values []float32, ioTimeMs int64, err error) {
	bits, ms, err := c.decompress(data, chimpflow.Width32)
	if err != nil {
		return nil, 0, err
	}
	values = make([]float32, len(bits))
	for i, b := range bits {
		values[i] = math.Float32frombits(uint32(b))
	}
	return values, ms, nil
}

// DecompressFloat64 implements decompress() for an f64 stream.
func (c *Compressor) DecompressFloat64(data []byte) (values []float64, ioTimeMs int64, err error) {
	bits, ms, err := c.decompress(data, chimpflow.Width64)
	if err != nil {
		return nil, 0, err
	}
	values = make([]float64, len(bits))
	for i, b := range bits {
		values[i] = math.Float64frombits(b)
	}
	return values, ms, nil
}

// compress drives the five compress-side stages (spec section 4) over
// width-agnostic raw bit patterns, run by run, notifying c.Config.Listeners
// around each stage boundary (SPEC_FULL section 10.1). metadataBytes is the
// total header overhead (8 bytes per block), reported separately from the
// payload per spec section 6.
func (c *Compressor) compress(bits []uint64, width chimpflow.Width) (data []byte, metadataBytes int, ioTimeMs int64, err error) {
	var ioMs int64

	trace := newTraceRecorder(c.Config.TraceSteps)
	c.lastTrace = trace

	stopFrame := startTimer(&ioMs)
	blocks := codec.FrameBlocks(bits, c.Config.BlockSize)
	stopFrame()

	if len(blocks) == 0 {
		return nil, 0, ioMs, nil
	}

	ctx := c.Context.Clone()
	defer ctx.Close()

	listeners := c.Config.Listeners
	chimpflow.NotifyListeners(listeners, chimpflow.NewEvent(chimpflow.EvtRunStart, -1, int64(len(bits)), time.Time{}))

	maxBuf := ctx.MaxStorageBufferBytes()
	// Rough per-block intermediate estimate (raw values + stats + tokens,
	// each roughly one machine word per value) used only to decide run
	// boundaries; actual packed size is almost always far smaller.
	perBlockBytes := c.Config.BlockSize * width.Bytes() * 3
	runs := codec.SplitRuns(len(blocks), perBlockBytes, maxBuf)

	tokensPerBlock := make([][]codec.Token, len(blocks))
	realCounts := make([]int, len(blocks))

	for _, run := range runs {
		n := run.End - run.Start
		if n == 1 && perBlockBytes > maxBuf {
			return nil, 0, ioMs, chimpflow.NewBufferTooLarge("single block exceeds device max storage buffer")
		}

		runErr := ctx.DispatchBlocks(n, func(local int) error {
			b := run.Start + local
			blk := blocks[b]
			realCounts[b] = blk.RealCount

			chimpflow.NotifyListeners(listeners, chimpflow.NewEvent(chimpflow.EvtBeforeReferenceIndex, b, 0, time.Time{}))
			previousIndex := codec.SelectReferenceIndices(blk.Values, c.Config.Window, width)
			chimpflow.NotifyListeners(listeners, chimpflow.NewEvent(chimpflow.EvtAfterReferenceIndex, b, 0, time.Time{}))
			trace.record("referenceindex", b, "distances=%v", previousIndex)

			chimpflow.NotifyListeners(listeners, chimpflow.NewEvent(chimpflow.EvtBeforeStats, b, 0, time.Time{}))
			stats := codec.ComputeStats(blk.Values, previousIndex, width)
			chimpflow.NotifyListeners(listeners, chimpflow.NewEvent(chimpflow.EvtAfterStats, b, 0, time.Time{}))
			trace.record("stats", b, "stats=%v", stats)

			chimpflow.NotifyListeners(listeners, chimpflow.NewEvent(chimpflow.EvtBeforeTokenize, b, 0, time.Time{}))
			tokensPerBlock[b] = codec.EncodeTokens(blk.Values, previousIndex, stats, c.Config.Window, width)
			chimpflow.NotifyListeners(listeners, chimpflow.NewEvent(chimpflow.EvtAfterTokenize, b, 0, time.Time{}))
			trace.record("tokenize", b, "tokens=%d", len(tokensPerBlock[b]))

			return nil
		})

		if runErr != nil {
			return nil, 0, ioMs, runErr
		}
	}

	chimpflow.NotifyListeners(listeners, chimpflow.NewEvent(chimpflow.EvtBeforePrefixSum, -1, 0, time.Time{}))
	sizing := codec.ComputePrefixSum(tokensPerBlock, width)
	chimpflow.NotifyListeners(listeners, chimpflow.NewEvent(chimpflow.EvtAfterPrefixSum, -1, 0, time.Time{}))
	for b, s := range sizing {
		trace.record("prefixsum", b, "offset=%d packed_byte_count=%d", s.Offset, s.PackedByteCount)
	}

	total := codec.TotalBytes(sizing)

	stopAlloc := startTimer(&ioMs)
	out := make([]byte, total)
	stopAlloc()

	chimpflow.NotifyListeners(listeners, chimpflow.NewEvent(chimpflow.EvtBeforePack, -1, 0, time.Time{}))

	packErr := ctx.DispatchBlocks(len(blocks), func(b int) error {
		s := sizing[b]
		dst := out[s.Offset : s.Offset+8+int(s.PackedByteCount)]
		codec.PackBlockInto(dst, tokensPerBlock[b], s, realCounts[b], width)
		return nil
	})

	if packErr != nil {
		return nil, 0, ioMs, packErr
	}

	chimpflow.NotifyListeners(listeners, chimpflow.NewEvent(chimpflow.EvtAfterPack, -1, int64(total), time.Time{}))
	chimpflow.NotifyListeners(listeners, chimpflow.NewEvent(chimpflow.EvtRunEnd, -1, int64(total), time.Time{}))

	return out, len(blocks) * 8, ioMs, nil
}

// TraceDump returns the buffered trace lines recorded for stage during the
// most recent compress call, or "" if stage wasn't named in
// Config.TraceSteps (spec section 9).
func (c *Compressor) TraceDump(stage string) string {
	return c.lastTrace.dump(stage)
}

// recordSpan is one block record's position within the full stream,
// discovered by scanning headers sequentially (decode-side mirror of
// ComputePrefixSum, which only the compress side can run directly since
// decode doesn't know each block's packed_byte_count until it reads that
// block's header).
type recordSpan struct {
	offset    int
	length    int
	realCount int
}

// decompress drives DecodeBlock over every block record in data, in
// parallel across blocks once record boundaries are known (spec section
// 4.7, section 8 property 4 "block independence").
func (c *Compressor) decompress(data []byte, width chimpflow.Width) (bits []uint64, ioTimeMs int64, err error) {
	if len(data) == 0 {
		return nil, 0, nil
	}

	var ms int64
	stopScan := startTimer(&ms)

	var spans []recordSpan
	offset := 0

	for offset < len(data) {
		if offset+8 > len(data) {
			stopScan()
			return nil, 0, chimpflow.NewMalformedStream("truncated block header", offset)
		}

		valuesInBlockMinus1 := binary.LittleEndian.Uint32(data[offset : offset+4])
		packedByteCount := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		length := 8 + int(packedByteCount)

		if offset+length > len(data) {
			stopScan()
			return nil, 0, chimpflow.NewMalformedStream("block claims more bytes than available", offset)
		}

		spans = append(spans, recordSpan{offset: offset, length: length, realCount: int(valuesInBlockMinus1) + 1})
		offset += length
	}

	stopScan()

	ctx := c.Context.Clone()
	defer ctx.Close()

	listeners := c.Config.Listeners
	chimpflow.NotifyListeners(listeners, chimpflow.NewEvent(chimpflow.EvtBeforeDecode, -1, int64(len(data)), time.Time{}))

	decoded := make([][]uint64, len(spans))

	derr := ctx.DispatchBlocks(len(spans), func(b int) error {
		span := spans[b]
		vals, _, derr := codec.DecodeBlock(data[span.offset:span.offset+span.length], span.offset, c.Config.Window, width)
		if derr != nil {
			return derr
		}
		decoded[b] = vals[:span.realCount]
		return nil
	})

	if derr != nil {
		return nil, 0, derr
	}

	chimpflow.NotifyListeners(listeners, chimpflow.NewEvent(chimpflow.EvtAfterDecode, -1, int64(len(data)), time.Time{}))

	stopJoin := startTimer(&ms)
	total := 0
	for _, d := range decoded {
		total += len(d)
	}
	bits = make([]uint64, 0, total)
	for _, d := range decoded {
		bits = append(bits, d...)
	}
	stopJoin()

	return bits, ms, nil
}
