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

// Package compute provides the two concrete chimpflow.ComputeContext
// backends chimpflow ships -- a sequential Scalar context (the CPU
// fallback, spec section 9) and a goroutine-parallel Device context (the
// Go-concurrency stand-in for a GPU workgroup grid) -- plus the
// Compressor orchestrator that drives the five codec stages over either
// one.
package compute

import (
	"sync"

	chimpflow "github.com/chimpflow/chimpflow"
	"github.com/chimpflow/chimpflow/internal"
)

// defaultMaxStorageBufferBytes stands in for a real device's storage
// buffer limit (spec section 5 "Memory bound"); 256 MiB is a generic,
// conservative figure, not read from any actual hardware.
const defaultMaxStorageBufferBytes = 256 << 20

// scalarContext runs DispatchBlocks in the caller's own goroutine, one
// block at a time: the CPU fallback path required to be byte-identical to
// Device (spec section 1, section 9 "CodecBackend = Scalar | Device").
type scalarContext struct {
	maxBufferBytes int
}

// NewScalarContext returns the sequential CPU fallback ComputeContext.
func NewScalarContext() chimpflow.ComputeContext {
	return &scalarContext{maxBufferBytes: defaultMaxStorageBufferBytes}
}

func (s *scalarContext) Clone() chimpflow.ComputeContext    { return s }
func (s *scalarContext) MaxStorageBufferBytes() int         { return s.maxBufferBytes }
func (s *scalarContext) Name() string                       { return "scalar" }
func (s *scalarContext) Close()                              {}

func (s *scalarContext) DispatchBlocks(numBlocks int, fn func(block int) error) error {
	for b := 0; b < numBlocks; b++ {
		if err := fn(b); err != nil {
			return err
		}
	}
	return nil
}

// deviceContext dispatches blocks across a bounded goroutine pool, the
// Go-concurrency stand-in for "one workgroup per block" (spec section
// 4.2, section 5). Grounded in the teacher's per-block goroutine dispatch
// (io/CompressedStream.go EncodeBlock tasks), but unlike the teacher no
// atomic ordering barrier is needed between blocks: every caller of
// DispatchBlocks has already computed disjoint output byte ranges via the
// prefix-sum stage before dispatch starts, so blocks may finish and write
// in any order (DESIGN.md, compute/ context.go entry).
type deviceContext struct {
	jobs           uint
	adapter        string
	maxBufferBytes int
}

// NewDeviceContext returns a goroutine-parallel ComputeContext. jobs
// bounds how many blocks of a run are processed concurrently (spec
// section 6 "jobs"); adapter is an adapter-name substring recorded only
// for Name() (spec section 6 "adapter"), since there is no real adapter
// registry to resolve it against.
func NewDeviceContext(jobs uint, adapter string) chimpflow.ComputeContext {
	if jobs == 0 {
		jobs = 1
	}
	return &deviceContext{jobs: jobs, adapter: adapter, maxBufferBytes: defaultMaxStorageBufferBytes}
}

func (d *deviceContext) Clone() chimpflow.ComputeContext {
	clone := *d
	return &clone
}

func (d *deviceContext) MaxStorageBufferBytes() int { return d.maxBufferBytes }

func (d *deviceContext) Name() string {
	if d.adapter != "" {
		return d.adapter
	}
	return "goroutine-device"
}

func (d *deviceContext) Close() {}

// DispatchBlocks splits numBlocks into at most d.jobs contiguous ranges
// sized by internal.ComputeJobsPerTask (the same job/task balancing rule
// the teacher uses to size its own per-block goroutine pool), and runs
// one goroutine per range. The first error observed from any range is
// returned once every goroutine has finished; later blocks within a
// failing range stop early, but other ranges run to completion, matching
// "no stage retries internally" (spec section 4.8) without introducing
// an early-cancellation path no example in the corpus needed.
func (d *deviceContext) DispatchBlocks(numBlocks int, fn func(block int) error) error {
	if numBlocks == 0 {
		return nil
	}

	concurrency := int(d.jobs)
	if concurrency > numBlocks {
		concurrency = numBlocks
	}
	if concurrency < 1 {
		concurrency = 1
	}

	counts, err := internal.ComputeJobsPerTask(make([]uint, concurrency), uint(numBlocks), uint(concurrency))
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	start := 0
	for t := 0; t < concurrency; t++ {
		n := int(counts[t])
		if n == 0 {
			continue
		}
		lo, hi := start, start+n
		start = hi

		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for b := lo; b < hi; b++ {
				if err := fn(b); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
			}
		}(lo, hi)
	}

	wg.Wait()
	return firstErr
}
