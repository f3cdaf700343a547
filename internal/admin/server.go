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

// Package admin is the small HTTP surface the demo binary mounts next to a
// work queue: JSON occupancy stats, a Prometheus /metrics endpoint and
// (optionally) net/http/pprof profiles.
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lindb/common/pkg/logger"

	"github.com/dataandsignal/cdwq/queuemetrics"
	"github.com/dataandsignal/cdwq/workqueue"
)

var log = logger.GetLogger("WorkQueue", "Admin")

// Server exposes /stats, /metrics and (optionally) /debug/pprof/* for one
// WorkQueue/Collector pair.
type Server struct {
	engine *gin.Engine
	http   *http.Server
}

// Options configures the admin server.
type Options struct {
	Addr  string
	PProf bool
}

// New builds an admin server. It does not start listening until Serve is
// called.
func New(opts Options, q *workqueue.WorkQueue, collector *queuemetrics.Collector, reg *prometheus.Registry) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/stats", func(c *gin.Context) {
		type workerStat struct {
			Index int `json:"index"`
			Depth int `json:"depth"`
		}
		workers := make([]workerStat, 0, q.WorkersN())
		for i := 0; i < q.WorkersN(); i++ {
			workers = append(workers, workerStat{Index: i, Depth: q.QueueDepth(i)})
		}
		c.JSON(http.StatusOK, gin.H{
			"name":           q.Name(),
			"running":        q.IsRunning(),
			"workers_n":      q.WorkersN(),
			"workers_active": q.WorkersActiveN(),
			"workers":        workers,
			"counters":       collector.Snapshot(),
		})
	})

	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	if opts.PProf {
		pprof.Register(engine)
	}

	return &Server{
		engine: engine,
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Serve blocks until ctx is done, then shuts the HTTP server down.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("admin server listening", logger.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
