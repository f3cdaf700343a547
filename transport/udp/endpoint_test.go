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

package udp

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dataandsignal/cdwq/queuemetrics"
	"github.com/dataandsignal/cdwq/workqueue"
)

func TestEndpoint_DispatchesDatagramsToQueue(t *testing.T) {
	q, err := workqueue.Create(2, "udp-test", workqueue.StopSoft)
	require.NoError(t, err)
	defer func() { require.NoError(t, q.Stop()) }()

	var mu sync.Mutex
	var received [][]byte

	ep, err := New("127.0.0.1:0", q, nil, HandlerFunc(func(msg *Message) {
		mu.Lock()
		cp := append([]byte(nil), msg.Data...)
		received = append(received, cp)
		mu.Unlock()
	}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = ep.Serve(ctx) }()

	conn, err := net.Dial("udp", ep.LocalAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 3; i++ {
		_, err := conn.Write([]byte{byte('a' + i)})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 3
	}, time.Second, 5*time.Millisecond)
}

func TestEndpoint_DispatchedDatagramsAreInstrumented(t *testing.T) {
	q, err := workqueue.Create(1, "udp-metrics-test", workqueue.StopSoft)
	require.NoError(t, err)
	defer func() { require.NoError(t, q.Stop()) }()

	collector := queuemetrics.NewCollector("udp-metrics-test", prometheus.NewRegistry())

	ep, err := New("127.0.0.1:0", q, collector, HandlerFunc(func(*Message) {}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = ep.Serve(ctx) }()

	conn, err := net.Dial("udp", ep.LocalAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte{'x'})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return collector.Snapshot().Executed == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, uint64(1), collector.Snapshot().Destructed)
}

// TestEndpoint_DispatchesToMockHandler verifies the Endpoint calls
// MessageHandler.HandleMessage with the received datagram, using a
// MockMessageHandler in place of a real handler.
func TestEndpoint_DispatchesToMockHandler(t *testing.T) {
	q, err := workqueue.Create(1, "udp-mock-test", workqueue.StopSoft)
	require.NoError(t, err)
	defer func() { require.NoError(t, q.Stop()) }()

	ctrl := gomock.NewController(t)
	handler := NewMockMessageHandler(ctrl)

	done := make(chan struct{})
	handler.EXPECT().
		HandleMessage(gomock.Any()).
		Do(func(msg *Message) {
			assert.Equal(t, []byte("ping"), msg.Data)
			close(done)
		}).
		Times(1)

	ep, err := New("127.0.0.1:0", q, nil, handler)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = ep.Serve(ctx) }()

	conn, err := net.Dial("udp", ep.LocalAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for HandleMessage")
	}
}
