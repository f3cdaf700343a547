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

package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v7"
	"github.com/lindb/common/pkg/ltoml"
)

// WorkQueue represents the configuration for a single workqueue.WorkQueue
// instance and its admin surface.
type WorkQueue struct {
	Name          string         `env:"NAME" toml:"name"`
	Workers       int            `env:"WORKERS" toml:"workers"`
	StopPolicy    string         `env:"STOP_POLICY" toml:"stop-policy"` // "soft" or "hard"
	ShutdownGrace ltoml.Duration `env:"SHUTDOWN_GRACE" toml:"shutdown-grace"`

	Admin Admin `envPrefix:"ADMIN_" toml:"admin"`
}

// Admin represents the admin HTTP server configuration (stats, /metrics,
// pprof) mounted alongside a WorkQueue by the demo binary.
type Admin struct {
	Enabled bool   `env:"ENABLED" toml:"enabled"`
	Addr    string `env:"ADDR" toml:"addr"`
	PProf   bool   `env:"PPROF" toml:"pprof"`
}

// TOML returns WorkQueue's toml config block, documented inline and
// annotated with the environment variable that overrides each field.
func (w *WorkQueue) TOML() string {
	return fmt.Sprintf(`
## Config for the work queue
[workqueue]
## human-readable label for the queue, used in logs and /stats
## Default: %s
## Env: CDWQ_WORKQUEUE_NAME
name = "%s"

## number of worker goroutines started at creation time
## Default: %d
## Env: CDWQ_WORKQUEUE_WORKERS
workers = %d

## "soft" drains every worker's queue before Stop returns;
## "hard" finishes only the in-flight callable per worker, skipping the rest
## (Sync destructors still run for skipped items)
## Default: %s
## Env: CDWQ_WORKQUEUE_STOP_POLICY
stop-policy = "%s"

## not read by cdwqd: Stop waits for every worker to finish, with no time limit
## Default: %s
## Env: CDWQ_WORKQUEUE_SHUTDOWN_GRACE
shutdown-grace = "%s"

[workqueue.admin]
## expose a small admin HTTP server (/stats, /metrics, /debug/pprof)
## Default: %t
## Env: CDWQ_WORKQUEUE_ADMIN_ENABLED
enabled = %t
## Default: %s
## Env: CDWQ_WORKQUEUE_ADMIN_ADDR
addr = "%s"
## Default: %t
## Env: CDWQ_WORKQUEUE_ADMIN_PPROF
pprof = %t`,
		w.Name, w.Name,
		w.Workers, w.Workers,
		w.StopPolicy, w.StopPolicy,
		w.ShutdownGrace.String(), w.ShutdownGrace.String(),
		w.Admin.Enabled, w.Admin.Enabled,
		w.Admin.Addr, w.Admin.Addr,
		w.Admin.PProf, w.Admin.PProf,
	)
}

// NewDefaultWorkQueue returns a new default WorkQueue config.
func NewDefaultWorkQueue() *WorkQueue {
	return &WorkQueue{
		Name:          "cdwq",
		Workers:       4,
		StopPolicy:    "soft",
		ShutdownGrace: ltoml.Duration(0),
		Admin: Admin{
			Enabled: true,
			Addr:    ":9412",
			PProf:   false,
		},
	}
}

// LoadWorkQueue reads a WorkQueue config from a TOML file at path (if
// non-empty and present), then overrides any field with a matching
// CDWQ_WORKQUEUE_* environment variable.
func LoadWorkQueue(path string) (*WorkQueue, error) {
	cfg := NewDefaultWorkQueue()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			file := struct {
				WorkQueue WorkQueue `toml:"workqueue"`
			}{WorkQueue: *cfg}
			if _, err := toml.DecodeFile(path, &file); err != nil {
				return nil, fmt.Errorf("decode workqueue config %s: %w", path, err)
			}
			cfg = &file.WorkQueue
		}
	}

	if err := env.Parse(cfg, env.Options{Prefix: "CDWQ_WORKQUEUE_"}); err != nil {
		return nil, fmt.Errorf("parse workqueue env overrides: %w", err)
	}

	return cfg, nil
}
