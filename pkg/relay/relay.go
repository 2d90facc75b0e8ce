// Crosstown Protocol
// Copyright (C) 2026 Crosstown Project
//
// This file is part of Crosstown.
//
// Crosstown is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Crosstown is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Crosstown. If not, see <https://www.gnu.org/licenses/>.

// Package relay implements the WebSocket relay client capability: a
// single multiplexed connection exposing publish, subscribe, and query
// against a Nostr-style relay, used to carry peer-descriptor and
// control events.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ALLiDoizCode/crosstown-sub004/internal/logger"
	"github.com/ALLiDoizCode/crosstown-sub004/internal/metrics"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/event"
)

const (
	defaultDialTimeout    = 10 * time.Second
	defaultPublishTimeout = 10 * time.Second
	defaultQueryTimeout   = 5 * time.Second
)

// Client is a single WebSocket connection to one relay URL, multiplexing
// any number of concurrent subscriptions and publishes.
type Client struct {
	url string

	writeMu sync.Mutex
	conn    *websocket.Conn

	subsMu sync.RWMutex
	subs   map[string]*Subscription

	pendingMu sync.Mutex
	pending   map[string]chan okMessage

	publishTimeout time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

type okMessage struct {
	ok      bool
	message string
}

// Connect dials the relay at url and starts its background read loop.
func Connect(ctx context.Context, url string) (*Client, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: defaultDialTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		detail := logger.NewCrosstownError(logger.ErrCodeConnectFailed, fmt.Sprintf("dial %s failed", url), err)
		if resp != nil {
			detail = detail.WithDetails("http_status", resp.StatusCode)
		}
		return nil, detail
	}

	c := &Client{
		url:            url,
		conn:           conn,
		subs:           make(map[string]*Subscription),
		pending:        make(map[string]chan okMessage),
		publishTimeout: defaultPublishTimeout,
		done:           make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Publish sends the event and resolves on relay acknowledgment or a
// bounded timeout. Retryable by the caller on transport errors.
func (c *Client) Publish(ctx context.Context, e *event.SignedEvent) (err error) {
	opTimer := prometheus.NewTimer(metrics.RelayOperationDuration.WithLabelValues("publish"))
	defer func() {
		opTimer.ObserveDuration()
		metrics.RelayOperations.WithLabelValues("publish", operationStatus(err)).Inc()
	}()

	respCh := make(chan okMessage, 1)
	c.pendingMu.Lock()
	c.pending[e.ID] = respCh
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, e.ID)
		c.pendingMu.Unlock()
	}()

	frame := []interface{}{"EVENT", e}
	if err := c.writeJSON(frame); err != nil {
		return logger.NewCrosstownError(logger.ErrCodePublishFailed, "write EVENT frame failed", err)
	}

	timer := time.NewTimer(c.publishTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return logger.NewCrosstownError(logger.ErrCodePublishFailed, "publish canceled", ctx.Err())
	case <-timer.C:
		return logger.NewCrosstownError(logger.ErrCodePublishFailed, "publish acknowledgment timed out", nil)
	case resp := <-respCh:
		if !resp.ok {
			return logger.NewCrosstownError(logger.ErrCodePublishFailed, "relay rejected event: "+resp.message, nil)
		}
		return nil
	}
}

func operationStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Subscription represents one active REQ; Close is idempotent.
type Subscription struct {
	id     string
	client *Client

	onEvent       func(*event.SignedEvent)
	onEndOfStored func()

	closeOnce sync.Once
}

// ID returns the client-generated subscription id.
func (s *Subscription) ID() string { return s.id }

// Close sends CLOSE for this subscription. Safe to call more than once
// and from any goroutine.
func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.client.subsMu.Lock()
		delete(s.client.subs, s.id)
		s.client.subsMu.Unlock()
		metrics.ActiveSubscriptions.Dec()
		err = s.client.writeJSON([]interface{}{"CLOSE", s.id})
		metrics.RelayOperations.WithLabelValues("close_subscription", operationStatus(err)).Inc()
	})
	return err
}

// Subscribe opens a subscription for filter. onEvent is called for
// every matching event as it arrives; onEndOfStored (optional) is
// called once when the relay signals EOSE.
func (c *Client) Subscribe(filter Filter, onEvent func(*event.SignedEvent), onEndOfStored func()) (*Subscription, error) {
	timer := prometheus.NewTimer(metrics.RelayOperationDuration.WithLabelValues("subscribe"))
	var err error
	defer func() {
		timer.ObserveDuration()
		metrics.RelayOperations.WithLabelValues("subscribe", operationStatus(err)).Inc()
	}()

	if onEvent == nil {
		onEvent = func(*event.SignedEvent) {}
	}
	sub := &Subscription{
		id:            uuid.NewString(),
		client:        c,
		onEvent:       onEvent,
		onEndOfStored: onEndOfStored,
	}

	c.subsMu.Lock()
	c.subs[sub.id] = sub
	c.subsMu.Unlock()

	if writeErr := c.writeJSON([]interface{}{"REQ", sub.id, filter}); writeErr != nil {
		c.subsMu.Lock()
		delete(c.subs, sub.id)
		c.subsMu.Unlock()
		err = logger.NewCrosstownError(logger.ErrCodeSubscribeFail, "write REQ frame failed", writeErr)
		return nil, err
	}
	metrics.ActiveSubscriptions.Inc()
	return sub, nil
}

// Query is sugar over Subscribe: collect events until EOSE or timeout,
// then close the subscription.
func (c *Client) Query(ctx context.Context, filter Filter, timeout time.Duration) (out []*event.SignedEvent, err error) {
	queryTimer := prometheus.NewTimer(metrics.RelayOperationDuration.WithLabelValues("query"))
	defer func() {
		queryTimer.ObserveDuration()
		metrics.RelayOperations.WithLabelValues("query", operationStatus(err)).Inc()
	}()

	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}

	var mu sync.Mutex
	var results []*event.SignedEvent
	eose := make(chan struct{}, 1)

	sub, err := c.Subscribe(filter, func(e *event.SignedEvent) {
		mu.Lock()
		results = append(results, e)
		mu.Unlock()
	}, func() {
		select {
		case eose <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	defer sub.Close()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	case <-eose:
	}

	mu.Lock()
	defer mu.Unlock()
	out = make([]*event.SignedEvent, len(results))
	copy(out, results)
	return out, nil
}

// Close shuts down the connection and all its subscriptions.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		err = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		closeErr := c.conn.Close()
		c.writeMu.Unlock()
		if err == nil {
			err = closeErr
		}
		metrics.RelayOperations.WithLabelValues("close", operationStatus(err)).Inc()
	})
	return err
}

func (c *Client) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *Client) readLoop() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		var frame []json.RawMessage
		if err := c.conn.ReadJSON(&frame); err != nil {
			logger.Warn("relay read loop exiting", logger.String("url", c.url), logger.Error(err))
			return
		}
		if len(frame) == 0 {
			continue
		}

		var kind string
		if err := json.Unmarshal(frame[0], &kind); err != nil {
			continue
		}

		switch kind {
		case "EVENT":
			c.handleEventFrame(frame)
		case "EOSE":
			c.handleEOSEFrame(frame)
		case "OK":
			c.handleOKFrame(frame)
		}
	}
}

func (c *Client) handleEventFrame(frame []json.RawMessage) {
	if len(frame) < 3 {
		return
	}
	var subID string
	if err := json.Unmarshal(frame[1], &subID); err != nil {
		return
	}
	var e event.SignedEvent
	if err := json.Unmarshal(frame[2], &e); err != nil {
		return
	}

	metrics.EventsReceived.WithLabelValues(strconv.Itoa(e.Kind)).Inc()

	c.subsMu.RLock()
	sub, ok := c.subs[subID]
	c.subsMu.RUnlock()
	if ok {
		sub.onEvent(&e)
	}
}

func (c *Client) handleEOSEFrame(frame []json.RawMessage) {
	if len(frame) < 2 {
		return
	}
	var subID string
	if err := json.Unmarshal(frame[1], &subID); err != nil {
		return
	}
	c.subsMu.RLock()
	sub, ok := c.subs[subID]
	c.subsMu.RUnlock()
	if ok && sub.onEndOfStored != nil {
		sub.onEndOfStored()
	}
}

func (c *Client) handleOKFrame(frame []json.RawMessage) {
	if len(frame) < 3 {
		return
	}
	var eventID string
	var ok bool
	if err := json.Unmarshal(frame[1], &eventID); err != nil {
		return
	}
	if err := json.Unmarshal(frame[2], &ok); err != nil {
		return
	}
	var message string
	if len(frame) >= 4 {
		_ = json.Unmarshal(frame[3], &message)
	}

	c.pendingMu.Lock()
	ch, found := c.pending[eventID]
	c.pendingMu.Unlock()
	if found {
		select {
		case ch <- okMessage{ok: ok, message: message}:
		default:
		}
	}
}
