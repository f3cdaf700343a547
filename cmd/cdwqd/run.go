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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/lindb/common/pkg/logger"

	"github.com/dataandsignal/cdwq/config"
	"github.com/dataandsignal/cdwq/internal/admin"
	"github.com/dataandsignal/cdwq/queuemetrics"
	"github.com/dataandsignal/cdwq/transport/udp"
	"github.com/dataandsignal/cdwq/workqueue"
)

const defaultConfigFile = "cdwqd.toml"

var (
	cfgPath string
	udpAddr string
)

var runLog = logger.GetLogger("WorkQueue", "Daemon")

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run the work queue daemon until SIGINT/SIGTERM",
		RunE:  serveDaemon,
	}
	cmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		fmt.Sprintf("config file path, default is %s", defaultConfigFile))
	cmd.PersistentFlags().StringVar(&udpAddr, "udp-addr", "127.0.0.1:9413",
		"address the UDP producer listens on")
	return cmd
}

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "write a new default config file",
		RunE: func(_ *cobra.Command, _ []string) error {
			path := cfgPath
			if path == "" {
				path = defaultConfigFile
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config file %s already exists", path)
			}
			cfg := config.NewDefaultWorkQueue()
			return os.WriteFile(path, []byte(cfg.TOML()), 0o644)
		},
	}
}

func newCtxWithSignals() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

func serveDaemon(_ *cobra.Command, _ []string) error {
	ctx := newCtxWithSignals()

	path := cfgPath
	if path == "" {
		path = defaultConfigFile
	}
	cfg, err := config.LoadWorkQueue(path)
	if err != nil {
		return err
	}

	stopPolicy := workqueue.StopSoft
	if cfg.StopPolicy == "hard" {
		stopPolicy = workqueue.StopHard
	}

	queue, err := workqueue.Create(cfg.Workers, cfg.Name, stopPolicy)
	if err != nil {
		return fmt.Errorf("create work queue: %w", err)
	}

	reg := prometheus.NewRegistry()
	collector := queuemetrics.NewCollector(cfg.Name, reg)
	go collector.Watch(ctx, queue, time.Second)
	queue.OnSkip(collector.RecordSkip)

	endpoint, err := udp.New(udpAddr, queue, collector, udp.HandlerFunc(func(msg *udp.Message) {
		runLog.Info("datagram dispatched", logger.String("from", msg.From.String()),
			logger.Int("bytes", len(msg.Data)))
	}))
	if err != nil {
		return fmt.Errorf("start udp endpoint: %w", err)
	}

	var adminServer *admin.Server
	if cfg.Admin.Enabled {
		adminServer = admin.New(admin.Options{Addr: cfg.Admin.Addr, PProf: cfg.Admin.PProf}, queue, collector, reg)
		go func() {
			if err := adminServer.Serve(ctx); err != nil {
				runLog.Error("admin server stopped", logger.Error(err))
			}
		}()
	}

	go func() {
		if err := endpoint.Serve(ctx); err != nil {
			runLog.Error("udp endpoint stopped", logger.Error(err))
		}
	}()

	runLog.Info("cdwqd started", logger.String("name", cfg.Name), logger.Int("workers", cfg.Workers),
		logger.String("udp-addr", udpAddr))

	<-ctx.Done()
	runLog.Info("shutdown signal received, draining work queue")

	_ = endpoint.Close()
	if err := queue.Stop(); err != nil {
		return err
	}
	return queue.Free()
}
