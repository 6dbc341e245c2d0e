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
	"time"
)

// Event types emitted around each pipeline stage (SPEC_FULL section 10.1).
// The vocabulary mirrors the teacher's EVT_BEFORE_TRANSFORM/EVT_AFTER_TRANSFORM
// pairing, one pair per codec stage instead of per byte-transform.
const (
	EvtRunStart = iota
	EvtRunEnd
	EvtBeforeReferenceIndex
	EvtAfterReferenceIndex
	EvtBeforeStats
	EvtAfterStats
	EvtBeforeTokenize
	EvtAfterTokenize
	EvtBeforePrefixSum
	EvtAfterPrefixSum
	EvtBeforePack
	EvtAfterPack
	EvtBeforeDecode
	EvtAfterDecode
)

// Event describes one occurrence of a pipeline stage boundary.
type Event struct {
	eventType int
	blockID   int
	size      int64
	eventTime time.Time
	msg       string
}

// NewEvent creates an Event carrying stage/block/size information.
func NewEvent(eventType, blockID int, size int64, eventTime time.Time) *Event {
	if eventTime.IsZero() {
		eventTime = time.Now()
	}

	return &Event{eventType: eventType, blockID: blockID, size: size, eventTime: eventTime}
}

// NewEventFromString creates an Event that only wraps a free-form message;
// its String() returns that message verbatim.
func NewEventFromString(eventType int, msg string, eventTime time.Time) *Event {
	if eventTime.IsZero() {
		eventTime = time.Now()
	}

	return &Event{eventType: eventType, msg: msg, eventTime: eventTime}
}

// Type returns the event type.
func (e *Event) Type() int { return e.eventType }

// BlockID returns the block index the event pertains to, or -1 for
// run-level events.
func (e *Event) BlockID() int { return e.blockID }

// Size returns the size info (meaning depends on Type()).
func (e *Event) Size() int64 { return e.size }

// Time returns when the event was recorded.
func (e *Event) Time() time.Time { return e.eventTime }

// String renders a one-line representation, used by the debug listener.
func (e *Event) String() string {
	if len(e.msg) > 0 {
		return e.msg
	}

	return fmt.Sprintf("{\"type\":%q,\"block\":%d,\"size\":%d,\"time\":%d}",
		stageName(e.eventType), e.blockID, e.size, e.eventTime.UnixNano()/1_000_000)
}

func stageName(t int) string {
	switch t {
	case EvtRunStart:
		return "RUN_START"
	case EvtRunEnd:
		return "RUN_END"
	case EvtBeforeReferenceIndex:
		return "BEFORE_REFERENCE_INDEX"
	case EvtAfterReferenceIndex:
		return "AFTER_REFERENCE_INDEX"
	case EvtBeforeStats:
		return "BEFORE_STATS"
	case EvtAfterStats:
		return "AFTER_STATS"
	case EvtBeforeTokenize:
		return "BEFORE_TOKENIZE"
	case EvtAfterTokenize:
		return "AFTER_TOKENIZE"
	case EvtBeforePrefixSum:
		return "BEFORE_PREFIX_SUM"
	case EvtAfterPrefixSum:
		return "AFTER_PREFIX_SUM"
	case EvtBeforePack:
		return "BEFORE_PACK"
	case EvtAfterPack:
		return "AFTER_PACK"
	case EvtBeforeDecode:
		return "BEFORE_DECODE"
	case EvtAfterDecode:
		return "AFTER_DECODE"
	default:
		return "UNKNOWN"
	}
}

// Listener is implemented by event processors (spec section 9 "scoped
// measurement primitive... record into an event log keyed by stage name").
type Listener interface {
	ProcessEvent(evt *Event)
}

// notifyListeners dispatches evt to every listener, swallowing panics from
// a misbehaving listener the same way the teacher's notifyListeners does.
func notifyListeners(listeners []Listener, evt *Event) {
	defer func() {
		recover()
	}()

	for _, l := range listeners {
		l.ProcessEvent(evt)
	}
}

// NotifyListeners is the exported form used by the compute package, which
// lives outside this package.
func NotifyListeners(listeners []Listener, evt *Event) {
	notifyListeners(listeners, evt)
}

// PrintListener is a debug listener that writes one line per event to a
// writer, mirroring the teacher's InfoPrinter.
type PrintListener struct {
	Write func(string)
}

// ProcessEvent implements Listener.
func (p *PrintListener) ProcessEvent(evt *Event) {
	if p.Write != nil {
		p.Write(evt.String())
	}
}
