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

// Package udp is an example producer for the work queue: one goroutine
// reads UDP datagrams and turns each into a Sync WorkItem enqueued on a
// shared workqueue.WorkQueue. The engine never learns its producer is a
// socket.
package udp

import (
	"context"
	"net"

	"github.com/google/uuid"
	"github.com/lindb/common/pkg/logger"

	"github.com/dataandsignal/cdwq/queuemetrics"
	"github.com/dataandsignal/cdwq/workqueue"
)

var log = logger.GetLogger("WorkQueue", "UDPEndpoint")

const maxDatagramSize = 65507

// MessageHandler processes one received datagram.
//
//go:generate mockgen -source=./endpoint.go -destination=./endpoint_mock.go -package=udp
type MessageHandler interface {
	HandleMessage(msg *Message)
}

// HandlerFunc adapts a plain function to a MessageHandler, the way
// http.HandlerFunc adapts a function to http.Handler.
type HandlerFunc func(msg *Message)

// HandleMessage calls f(msg).
func (f HandlerFunc) HandleMessage(msg *Message) { f(msg) }

// Message is the payload handed to a MessageHandler: the datagram bytes and
// the address it arrived from. Data is returned to the endpoint's pool by the
// WorkItem's Sync destructor once HandleMessage returns, so handlers must
// not retain it past that call.
type Message struct {
	Data []byte
	From *net.UDPAddr
	// ID correlates a message with its log lines; it is not interpreted by
	// the engine (the engine only ever sees the opaque WorkItem.Tag int).
	ID string
}

// Endpoint owns a UDP listener and a WorkQueue it feeds one WorkItem per
// datagram into.
type Endpoint struct {
	name      string
	queue     *workqueue.WorkQueue
	collector *queuemetrics.Collector
	handler   MessageHandler

	conn *net.UDPConn
	pool chan []byte
}

// New binds a UDP listener on addr and returns an Endpoint that will
// dispatch received datagrams to queue once Serve is called. collector may
// be nil, in which case dispatched work items are not instrumented.
func New(addr string, queue *workqueue.WorkQueue, collector *queuemetrics.Collector, handler MessageHandler) (*Endpoint, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}

	return &Endpoint{
		name:      queue.Name(),
		queue:     queue,
		collector: collector,
		handler:   handler,
		conn:      conn,
		pool:      make(chan []byte, queue.WorkersN()*2),
	}, nil
}

// LocalAddr returns the bound UDP address (useful when addr is ":0").
func (e *Endpoint) LocalAddr() net.Addr { return e.conn.LocalAddr() }

func (e *Endpoint) getBuffer() []byte {
	select {
	case b := <-e.pool:
		return b[:maxDatagramSize]
	default:
		return make([]byte, maxDatagramSize)
	}
}

func (e *Endpoint) putBuffer(b []byte) {
	select {
	case e.pool <- b:
	default:
	}
}

// Serve reads datagrams until ctx is done or the socket errors. Each
// datagram becomes a Sync WorkItem whose destructor returns the read buffer
// to the endpoint's pool once the callable has consumed it.
func (e *Endpoint) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = e.conn.Close()
	}()

	for {
		buf := e.getBuffer()
		n, from, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.Error("recvfrom failed", logger.Error(err))
				return err
			}
		}

		msg := &Message{
			Data: buf[:n],
			From: from,
			ID:   uuid.NewString(),
		}

		log.Info("received datagram", logger.String("endpoint", e.name),
			logger.Int("bytes", n), logger.String("from", from.String()),
			logger.String("id", msg.ID))

		item, err := workqueue.MakeWork(workqueue.Sync, msg, 0,
			func(payload any) { e.handler.HandleMessage(payload.(*Message)) },
			func(payload any) { e.putBuffer(payload.(*Message).Data) },
		)
		if err != nil {
			log.Warn("failed to build work item", logger.Error(err), logger.String("id", msg.ID))
			e.putBuffer(buf)
			continue
		}
		if e.collector != nil {
			item = e.collector.Wrap(item)
		}

		err = e.queue.Enqueue(item)
		if err != nil {
			log.Warn("failed to enqueue datagram", logger.Error(err), logger.String("id", msg.ID))
			e.putBuffer(buf)
		}
	}
}

// Close releases the listener without touching the work queue.
func (e *Endpoint) Close() error {
	return e.conn.Close()
}
