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

package queuemetrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataandsignal/cdwq/workqueue"
)

func TestCollector_WrapRecordsExecutionAndDestructor(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("t1", reg)

	var ran, destructed bool
	item, err := workqueue.MakeWork(workqueue.Sync, nil, 0,
		func(any) { ran = true },
		func(any) { destructed = true })
	require.NoError(t, err)

	wrapped := c.Wrap(item)
	wrapped.Callable(nil)
	wrapped.Destructor(nil)

	assert.True(t, ran)
	assert.True(t, destructed)

	snap := c.Snapshot()
	assert.Equal(t, uint64(1), snap.Executed)
	assert.Equal(t, uint64(1), snap.Destructed)
}

func TestCollector_RecordSkip(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("t2", reg)

	c.RecordSkip()
	c.RecordSkip()

	snap := c.Snapshot()
	assert.Equal(t, uint64(2), snap.Skipped)

	metric := &dto.Metric{}
	require.NoError(t, c.tasksSkipped.Write(metric))
	assert.Equal(t, float64(2), metric.GetCounter().GetValue())
}

func TestCollector_WatchSamplesOccupancy(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("t3", reg)

	q, err := workqueue.Create(1, "watched", workqueue.StopSoft)
	require.NoError(t, err)
	defer func() { require.NoError(t, q.Stop()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c.Watch(ctx, q, time.Millisecond)

	metric := &dto.Metric{}
	require.NoError(t, c.workersActive.Write(metric))
	assert.Equal(t, float64(1), metric.GetGauge().GetValue())
}
