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
	"fmt"

	"github.com/chimpflow/chimpflow/internal"
)

// traceRecorder buffers one line per block for each stage named in
// Config.TraceSteps (spec section 9 "dump intermediate stage output for
// debugging"), backed by internal.BufferStream rather than a real file so
// callers and tests can inspect a run's recorded lines in-process without
// touching disk.
type traceRecorder struct {
	streams map[string]*internal.BufferStream
}

func newTraceRecorder(enabled map[string]bool) *traceRecorder {
	streams := make(map[string]*internal.BufferStream)

	for name, on := range enabled {
		if on {
			streams[name] = internal.NewBufferStream()
		}
	}

	if len(streams) == 0 {
		return nil
	}

	return &traceRecorder{streams: streams}
}

func (r *traceRecorder) record(stage string, block int, format string, args ...any) {
	if r == nil {
		return
	}

	s, ok := r.streams[stage]
	if !ok {
		return
	}

	line := fmt.Sprintf("block %d: "+format+"\n", append([]any{block}, args...)...)
	s.Write([]byte(line))
}

// dump returns the buffered trace text for stage, or "" if it wasn't
// enabled for this run.
func (r *traceRecorder) dump(stage string) string {
	if r == nil {
		return ""
	}

	s, ok := r.streams[stage]
	if !ok {
		return ""
	}

	buf := make([]byte, s.Len())
	s.Read(buf)
	return string(buf)
}
