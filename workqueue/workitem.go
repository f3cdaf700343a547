// Licensed to LinDB under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. LinDB licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package workqueue

// Disposition tells the engine who owns a WorkItem's teardown.
type Disposition uint8

const (
	// Sync cedes ownership of the payload's teardown to the engine: once
	// Callable returns, Destructor (if any) is invoked with Payload and the
	// WorkItem itself is released by the worker.
	Sync Disposition = iota
	// Async keeps ownership with the producer or the Callable itself. The
	// engine never invokes Destructor and never touches Payload again once
	// Callable has been handed it.
	Async
)

func (d Disposition) String() string {
	switch d {
	case Sync:
		return "sync"
	case Async:
		return "async"
	default:
		return "unknown"
	}
}

// WorkItem is an inert record: a payload, an opaque demultiplexing tag, the
// callable that processes the payload, an optional destructor, and the
// disposition governing who releases the payload.
//
// A WorkItem must not be reused after it has been enqueued: ownership moves
// to the engine at Enqueue and the record is move-only from that point on.
type WorkItem struct {
	// Payload is the opaque value the Callable operates on.
	Payload any
	// Tag lets a shared Callable demultiplex payload kinds. The engine never
	// interprets it.
	Tag int
	// Callable processes Payload. Must not be nil.
	Callable func(payload any)
	// Destructor optionally releases producer-side resources held by
	// Payload. Only ever invoked for Sync items.
	Destructor func(payload any)
	// Disposition is Sync or Async.
	Disposition Disposition

	// AssignedWorker is stamped by the dispatcher at enqueue time. It is
	// diagnostic only: nothing in the engine reads it back.
	AssignedWorker int
}

// MakeWork builds a WorkItem. callable must not be nil; destructor may be
// nil for items that need no teardown (typically Async items, since the
// engine never calls an Async item's destructor).
func MakeWork(disposition Disposition, payload any, tag int, callable func(any), destructor func(any)) (*WorkItem, error) {
	if callable == nil {
		return nil, ErrWorkCreate
	}
	return &WorkItem{
		Payload:        payload,
		Tag:            tag,
		Callable:       callable,
		Destructor:     destructor,
		Disposition:    disposition,
		AssignedWorker: -1,
	}, nil
}

// FreeWork is the producer-side release of a WorkItem that was never
// enqueued. Enqueued items are released by the engine and must not be
// passed here.
func FreeWork(work **WorkItem) {
	if work == nil {
		return
	}
	*work = nil
}

// runSyncDestructor invokes a Sync item's destructor exactly once, tolerating
// a nil destructor (an item may legitimately carry no teardown).
func (w *WorkItem) runSyncDestructor() {
	if w.Disposition == Sync && w.Destructor != nil {
		w.Destructor(w.Payload)
	}
}
