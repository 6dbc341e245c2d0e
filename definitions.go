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

package chimpflow

import (
	"fmt"

	"github.com/chimpflow/chimpflow/internal"
)

// Width is the value word width in bits (spec section 3 "W").
type Width int

const (
	Width32 Width = 32
	Width64 Width = 64
)

// Bytes returns W/8.
func (w Width) Bytes() int { return int(w) / 8 }

func (w Width) valid() bool { return w == Width32 || w == Width64 }

// ReferenceWindow is the ChimpN window N (spec section 4.2). Zero means
// base Chimp: every value references its immediate predecessor and no
// distance field is emitted (spec section 4.4, "for base Chimp omit the
// d field and drop log2N from bit counts").
type ReferenceWindow int

const (
	NoReferenceWindow ReferenceWindow = 0
	Window32          ReferenceWindow = 32
	Window64          ReferenceWindow = 64
	Window128         ReferenceWindow = 128
)

func (n ReferenceWindow) valid() bool {
	switch n {
	case NoReferenceWindow, Window32, Window64, Window128:
		return true
	default:
		return false
	}
}

// Log2 returns ceil(log2(N)), i.e. the field width used to encode a
// distance in [1,N] (spec section 3 "log2N is the ceiling-log2 of N").
// Zero for NoReferenceWindow (base Chimp carries no distance field).
func (n ReferenceWindow) Log2() int {
	if n == NoReferenceWindow {
		return 0
	}

	return int(internal.Log2Ceil(uint(n)))
}

// N returns the window size as an int, or 1 for base Chimp (every value
// may only reference its immediate predecessor).
func (n ReferenceWindow) N() int {
	if n == NoReferenceWindow {
		return 1
	}
	return int(n)
}

// Configuration defaults (spec section 6).
const (
	DefaultBlockSize = 256
	MinBlockSize     = 256
	DefaultJobs      = 1
	maxConcurrency   = 64
	// TailShortThreshold is the case-2/case-3-4 split point: tail > 6 takes
	// case 2, tail <= 6 takes case 3 or 4 (spec section 4.4).
	TailShortThreshold = 6
)

// Config holds the recognized options of spec section 6, plus the
// listeners ambient-stack components attach to (SPEC_FULL section 10.1).
// Mirrors the teacher's practice of threading a flat option set into
// constructors (NewCompressedOutputStreamWithCtx) rather than a builder
// hierarchy.
type Config struct {
	// BlockSize is B, values per block. Must be >=256 and a multiple of 256.
	BlockSize int
	// Window is N, the ChimpN reference window. Zero selects base Chimp.
	Window ReferenceWindow
	// Adapter is a name substring of a preferred compute adapter; empty
	// selects the default. Consumed only by compute.NewDeviceContext.
	Adapter string
	// TraceSteps names stages whose per-block lines are recorded in memory
	// (debug only), readable through compute.Compressor.TraceDump; no files
	// are written.
	TraceSteps map[string]bool
	// Debug is carried in the config but not read by the library: it does
	// not enable any logging by itself. cmd/chimpcli's --debug sets it and
	// separately adds a PrintListener that writes one line per stage event
	// to stderr.
	Debug bool
	// Jobs bounds how many blocks a Device backend processes concurrently,
	// the Go-concurrency stand-in for a workgroup grid's dispatch width
	// (spec section 5, section 9 "map one workgroup per block").
	Jobs uint
	// Listeners receive stage-boundary events (spec section 9).
	Listeners []Listener
}

// DefaultConfig returns the process-wide defaults from spec section 6.
func DefaultConfig() Config {
	return Config{
		BlockSize: DefaultBlockSize,
		Window:    NoReferenceWindow,
		Jobs:      DefaultJobs,
	}
}

// Validate checks the option constraints from spec section 6 and section 7
// ("InvalidConfiguration -- out-of-range B or N; reported at construction").
func (c Config) Validate() error {
	if c.BlockSize < MinBlockSize {
		return NewInvalidConfiguration(fmt.Sprintf("buffer_size must be >= %d, got %d", MinBlockSize, c.BlockSize))
	}

	if c.BlockSize%MinBlockSize != 0 {
		return NewInvalidConfiguration(fmt.Sprintf("buffer_size must be a multiple of %d, got %d", MinBlockSize, c.BlockSize))
	}

	if !c.Window.valid() {
		return NewInvalidConfiguration(fmt.Sprintf("reference_window must be one of {0,32,64,128}, got %d", c.Window))
	}

	if c.Jobs > maxConcurrency {
		return NewInvalidConfiguration(fmt.Sprintf("jobs must be in [1..%d], got %d", maxConcurrency, c.Jobs))
	}

	return nil
}

// JobsOrDefault returns Jobs, defaulting an unset (zero) field to
// DefaultJobs. The compute package uses it to size a Device backend's
// goroutine pool.
func (c Config) JobsOrDefault() uint {
	if c.Jobs == 0 {
		return DefaultJobs
	}
	return c.Jobs
}

// ComputeContext is a shared handle to a data-parallel compute device
// (GLOSSARY). Its methods cover cloning, reporting the buffer-size limit and
// dispatching a per-block Go function; it has no buffer-allocation,
// upload/download or named-kernel methods. The real
// device-acquisition layer is an external collaborator (spec section 1);
// this interface is what it would implement. compute.NewScalarContext and
// compute.NewDeviceContext are the two concrete handles chimpflow ships.
type ComputeContext interface {
	// Clone returns a cheap, reference-counted handle sharing the same
	// underlying device and command queue (spec section 5 "shared by
	// value (cheap clone, reference-counted handle) across all active
	// compress/decompress calls").
	Clone() ComputeContext

	// MaxStorageBufferBytes returns the largest single buffer the device
	// can allocate; the orchestrator uses it to size runs (spec section 5
	// "Memory bound").
	MaxStorageBufferBytes() int

	// DispatchBlocks invokes fn once per block index in [0,numBlocks),
	// running the dispatched work the way one workgroup per block would
	// on a real device: concurrently, with no ordering guarantee between
	// blocks (spec section 4.6, section 5 "within a workgroup... parallel
	// across blocks"). It returns after every fn call has returned. The
	// first non-nil error is returned to the caller; MalformedStream
	// results found on other blocks are discarded once the first error is
	// observed (spec section 4.8 "No stage retries internally").
	DispatchBlocks(numBlocks int, fn func(block int) error) error

	// Name identifies the context for logging/trace purposes (e.g. the
	// resolved adapter name).
	Name() string

	// Close releases the context. Safe to call from any clone, any number
	// of times; buffers are never shared across invocations so Close
	// never invalidates another call's in-flight buffers (spec section 5
	// "Buffers are not shared across invocations").
	Close()
}
