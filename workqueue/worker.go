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

import (
	"sync"

	"github.com/lindb/common/pkg/logger"
)

// StopPolicy governs what a worker does with items still queued when Stop
// is requested.
type StopPolicy uint8

const (
	// StopSoft drains the worker's FIFO to completion before it exits. Stop
	// blocks until every worker has drained and joined.
	StopSoft StopPolicy = iota
	// StopHard finishes at most the currently-executing callable. Any items
	// still queued are skipped, but their Sync destructors are still run:
	// producer-visible cleanup must not depend on scheduling luck.
	StopHard
)

func (p StopPolicy) String() string {
	switch p {
	case StopSoft:
		return "soft"
	case StopHard:
		return "hard"
	default:
		return "unknown"
	}
}

var workerLog = logger.GetLogger("WorkQueue", "Worker")

// worker is one goroutine bound to one FIFO of WorkItems, guarded by its own
// mutex and condition variable. It drains its queue, sleeps when empty, and
// honors the stop flag, running its FIFO through a SOFT (drain) or HARD
// (skip-and-destruct) shutdown depending on its StopPolicy.
type worker struct {
	index int

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []*WorkItem
	active bool

	stopPolicy StopPolicy
	done       chan struct{}
	onSkip     func()

	queued   int // diagnostic: items ever pushed
	executed int
	skipped  int
}

func newWorker(index int, stopPolicy StopPolicy) *worker {
	w := &worker{
		index:      index,
		stopPolicy: stopPolicy,
		done:       make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// start marks the worker active and launches its loop goroutine.
func (w *worker) start() {
	w.mu.Lock()
	w.active = true
	w.mu.Unlock()
	go w.loop()
}

// setOnSkip installs the hook drainSkippedLocked calls for every item a
// HARD stop skips.
func (w *worker) setOnSkip(fn func()) {
	w.mu.Lock()
	w.onSkip = fn
	w.mu.Unlock()
}

// enqueue appends an item to the worker's FIFO and wakes the loop. Caller
// must not hold any other worker's mutex.
func (w *worker) enqueue(item *WorkItem) {
	w.mu.Lock()
	w.queue = append(w.queue, item)
	w.queued++
	w.cond.Signal()
	w.mu.Unlock()
}

// requestStop clears the active flag and wakes the loop so it can observe
// the new state and act on its stop policy.
func (w *worker) requestStop() {
	w.mu.Lock()
	w.active = false
	w.cond.Broadcast()
	w.mu.Unlock()
}

// loop is the worker goroutine body: drain the FIFO in order, and once
// stopped either finish draining (SOFT) or skip everything still queued
// while still running its Sync destructors (HARD).
func (w *worker) loop() {
	defer close(w.done)

	w.mu.Lock()
	for {
		for len(w.queue) > 0 {
			// A HARD stop must not dequeue any further item: only the
			// callable already in flight (if any) is allowed to finish.
			// Everything still queued is skipped, with Sync destructors
			// still invoked.
			if !w.active && w.stopPolicy == StopHard {
				w.drainSkippedLocked()
				break
			}

			item := w.queue[0]
			w.queue = w.queue[1:]
			w.mu.Unlock()

			item.Callable(item.Payload)
			item.runSyncDestructor()
			w.mu.Lock()
			w.executed++
		}

		if !w.active {
			// SOFT falls through here only once the queue is fully
			// drained; HARD already emptied it above.
			break
		}

		w.cond.Wait() // releases w.mu, reacquires on wake; re-checked above
	}
	w.mu.Unlock()
}

// drainSkippedLocked runs Sync destructors for every item still queued when
// a HARD stop fires mid-drain, then empties the queue. Must be called with
// w.mu held. Async items are left untouched: the engine never touches an
// Async item's payload itself.
func (w *worker) drainSkippedLocked() {
	for _, item := range w.queue {
		item.runSyncDestructor()
		w.skipped++
		if w.onSkip != nil {
			w.onSkip()
		}
	}
	w.queue = nil
}

// depth returns the current FIFO length (diagnostic).
func (w *worker) depth() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// isActive reports whether the worker will still accept work.
func (w *worker) isActive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// join blocks until the worker's loop has exited.
func (w *worker) join() {
	<-w.done
}
