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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_DrainsThenSleeps(t *testing.T) {
	w := newWorker(0, StopSoft)
	w.start()
	defer func() {
		w.requestStop()
		w.join()
	}()

	var ran int32
	item, err := MakeWork(Sync, nil, 0, func(any) { atomic.AddInt32(&ran, 1) }, nil)
	require.NoError(t, err)
	w.enqueue(item)

	require.Eventually(t, func() bool { return atomic.LoadInt32(&ran) == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return w.depth() == 0 }, time.Second, time.Millisecond)
}

func TestWorker_SoftStopDrainsQueuedItems(t *testing.T) {
	w := newWorker(0, StopSoft)
	w.start()

	var ran int32
	for i := 0; i < 5; i++ {
		item, err := MakeWork(Sync, nil, 0, func(any) {
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&ran, 1)
		}, nil)
		require.NoError(t, err)
		w.enqueue(item)
	}

	w.requestStop()
	w.join()

	assert.Equal(t, int32(5), atomic.LoadInt32(&ran))
}

func TestWorker_HardStopSkipsQueuedButRunsDestructors(t *testing.T) {
	w := newWorker(0, StopHard)
	w.start()

	block := make(chan struct{})
	first, err := MakeWork(Sync, nil, 0, func(any) { <-block }, nil)
	require.NoError(t, err)
	w.enqueue(first)

	// give the worker time to dequeue and start blocking on `first`
	require.Eventually(t, func() bool { return w.depth() == 0 }, time.Second, time.Millisecond)

	var destructed int32
	for i := 0; i < 4; i++ {
		item, err := MakeWork(Sync, nil, 0, func(any) {}, func(any) {
			atomic.AddInt32(&destructed, 1)
		})
		require.NoError(t, err)
		w.enqueue(item)
	}

	w.requestStop()
	close(block)
	w.join()

	assert.Equal(t, int32(4), atomic.LoadInt32(&destructed))
	assert.Equal(t, 0, w.depth())
}

func TestWorker_IsActiveReflectsStopRequest(t *testing.T) {
	w := newWorker(0, StopSoft)
	w.start()
	assert.True(t, w.isActive())
	w.requestStop()
	w.join()
	assert.False(t, w.isActive())
}
