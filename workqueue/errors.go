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

import "errors"

// Error taxonomy returned at the package boundary. Matched one-for-one
// against the kinds a work-queue implementation in this family reports:
// nothing is thrown, every failure is a returned sentinel so callers can
// switch on errors.Is.
var (
	// ErrBadCall is returned by Enqueue when a required argument is missing:
	// a nil work item, or one with a nil callable.
	ErrBadCall = errors.New("workqueue: bad call")
	// ErrMem is returned when a constructor cannot allocate its backing state.
	ErrMem = errors.New("workqueue: allocation failed")
	// ErrWorkqueueCreate is returned by Create/NewDefault when zero workers
	// started successfully; the partial queue is torn down before returning.
	ErrWorkqueueCreate = errors.New("workqueue: no worker thread could be started")
	// ErrWorkqueueActive is returned by Enqueue when the queue has no active
	// workers left to accept the item.
	ErrWorkqueueActive = errors.New("workqueue: no active worker")
	// ErrBusy is returned by worker teardown when it is asked to deinit while
	// its queue is still non-empty; it indicates a programming error, since
	// Stop is required to fully drain (SOFT) or skip-and-destruct (HARD)
	// every item before teardown.
	ErrBusy = errors.New("workqueue: worker busy")
	// ErrFail is returned when a worker goroutine could not be joined, or
	// some other unexpected condition occurs during shutdown.
	ErrFail = errors.New("workqueue: operation failed")
	// ErrWorkCreate is returned by MakeWork when the work item cannot be
	// constructed (e.g. a nil callable).
	ErrWorkCreate = errors.New("workqueue: work item creation failed")
	// ErrNotImplemented is returned by EnqueueDelayed. Delayed/timer-driven
	// work is declared on the WorkQueue API but is not implemented.
	ErrNotImplemented = errors.New("workqueue: delayed work is not implemented")
)
