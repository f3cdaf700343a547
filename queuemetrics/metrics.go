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

// Package queuemetrics instruments a workqueue.WorkQueue's lifecycle:
// executed and skipped work items, destructor calls and worker occupancy.
// Counters are held as go.uber.org/atomic values for cheap concurrent
// updates and exposed through Prometheus collectors for scraping.
package queuemetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"

	"github.com/lindb/common/pkg/logger"

	"github.com/dataandsignal/cdwq/workqueue"
)

var log = logger.GetLogger("WorkQueue", "Metrics")

// Collector instruments one named WorkQueue's lifecycle: callable
// invocations, destructor calls, skipped items and worker occupancy.
type Collector struct {
	name string

	tasksExecuted    *prometheus.CounterVec
	tasksSkipped     prometheus.Counter
	destructorCalls  *prometheus.CounterVec
	callableDuration prometheus.Histogram
	workersActive    prometheus.Gauge
	queueDepthTotal  prometheus.Gauge

	executed   atomic.Uint64
	skipped    atomic.Uint64
	destructed atomic.Uint64
}

// NewCollector registers a Collector's metrics on reg under the "cdwq"
// namespace, labeled by the queue's name.
func NewCollector(name string, reg prometheus.Registerer) *Collector {
	c := &Collector{
		name: name,
		tasksExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cdwq",
			Name:      "tasks_executed_total",
			Help:      "Work items whose callable has been invoked, by disposition.",
			ConstLabels: prometheus.Labels{
				"queue": name,
			},
		}, []string{"disposition"}),
		tasksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "cdwq",
			Name:        "tasks_skipped_total",
			Help:        "Work items skipped by a HARD stop before their callable ran.",
			ConstLabels: prometheus.Labels{"queue": name},
		}),
		destructorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "cdwq",
			Name:        "destructor_calls_total",
			Help:        "Sync destructor invocations, split by whether the callable ran or was skipped.",
			ConstLabels: prometheus.Labels{"queue": name},
		}, []string{"path"}),
		callableDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "cdwq",
			Name:        "callable_duration_seconds",
			Help:        "Wall-clock duration of a work item's callable.",
			ConstLabels: prometheus.Labels{"queue": name},
			Buckets:     prometheus.DefBuckets,
		}),
		workersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "cdwq",
			Name:        "workers_active",
			Help:        "Number of workers currently accepting work.",
			ConstLabels: prometheus.Labels{"queue": name},
		}),
		queueDepthTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "cdwq",
			Name:        "queue_depth_total",
			Help:        "Sum of every worker's FIFO length at last sample.",
			ConstLabels: prometheus.Labels{"queue": name},
		}),
	}

	reg.MustRegister(c.tasksExecuted, c.tasksSkipped, c.destructorCalls,
		c.callableDuration, c.workersActive, c.queueDepthTotal)

	return c
}

// Wrap returns a copy of item whose Callable and Destructor are instrumented
// before delegating to the originals. Disposition and ownership semantics
// are unchanged: Wrap only observes.
func (c *Collector) Wrap(item *workqueue.WorkItem) *workqueue.WorkItem {
	disposition := item.Disposition.String()
	callable := item.Callable
	destructor := item.Destructor

	// ran is only touched by the worker goroutine that owns the item, which
	// runs the destructor after the callable (or instead of it on a skip).
	ran := false
	wrapped := *item
	wrapped.Callable = func(payload any) {
		ran = true
		start := time.Now()
		callable(payload)
		c.callableDuration.Observe(time.Since(start).Seconds())
		c.tasksExecuted.WithLabelValues(disposition).Inc()
		c.executed.Inc()
	}
	if destructor != nil {
		wrapped.Destructor = func(payload any) {
			destructor(payload)
			path := "skipped"
			if ran {
				path = "executed"
			}
			c.destructorCalls.WithLabelValues(path).Inc()
			c.destructed.Inc()
		}
	}
	return &wrapped
}

// RecordSkip accounts for a work item whose callable never ran because a
// HARD stop removed it from its worker's FIFO first. Its Sync destructor, if
// any, still runs; callers should invoke this alongside that destructor
// call, not instead of it.
func (c *Collector) RecordSkip() {
	c.tasksSkipped.Inc()
	c.skipped.Inc()
}

// Watch periodically samples q's occupancy until ctx is done.
func (c *Collector) Watch(ctx context.Context, q *workqueue.WorkQueue, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sample(q)
		}
	}
}

func (c *Collector) sample(q *workqueue.WorkQueue) {
	active := q.WorkersActiveN()
	c.workersActive.Set(float64(active))

	depth := 0
	for i := 0; i < q.WorkersN(); i++ {
		depth += q.QueueDepth(i)
	}
	c.queueDepthTotal.Set(float64(depth))

	log.Debug("sampled workqueue occupancy", logger.String("queue", c.name),
		logger.Int("workers-active", active), logger.Int("queue-depth", depth))
}

// Snapshot is a point-in-time view of the collector's running counters, used
// by the admin /stats endpoint.
type Snapshot struct {
	Name       string `json:"name"`
	Executed   uint64 `json:"executed"`
	Skipped    uint64 `json:"skipped"`
	Destructed uint64 `json:"destructed"`
}

// Snapshot returns the collector's current counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Name:       c.name,
		Executed:   c.executed.Load(),
		Skipped:    c.skipped.Load(),
		Destructed: c.destructed.Load(),
	}
}
