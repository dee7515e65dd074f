// Zaparoo Core
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Core.
//
// Zaparoo Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Core.  If not, see <http://www.gnu.org/licenses/>.

package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/helpers/dispatch"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/helpers/syncutil"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout is used by SendAndReceive when no timeout is given.
const DefaultTimeout = 30 * time.Second

// Transport delivers encoded messages. Send must not block on a reply.
type Transport interface {
	Send(data []byte) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(data []byte) error

// Send implements Transport.
func (f TransportFunc) Send(data []byte) error {
	return f(data)
}

// HandlerFunc answers an inbound request. The returned value is sent back
// as the payload of the response; an error is sent in its error field.
type HandlerFunc func(ctx context.Context, req Message) (any, error)

type result struct {
	err error
	msg Message
}

type pendingRequest struct {
	ch       chan result
	respType string
}

// Bridge layers topic subscription and correlated request/response on top
// of a Transport. Inbound data is fed in with HandleInbound.
type Bridge struct {
	transport Transport
	clock     clockwork.Clock
	ctx       context.Context
	cancel    context.CancelFunc
	subs      map[string]*dispatch.Registry[Message]
	observer  *dispatch.Registry[Message]
	pending   map[string]*pendingRequest
	handlers  map[string]HandlerFunc
	newID     func() string
	wg        sync.WaitGroup
	timeout   time.Duration
	mu        syncutil.Mutex
	closed    bool
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithClock sets the clock used for timeouts and timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(b *Bridge) {
		if c != nil {
			b.clock = c
		}
	}
}

// WithDefaultTimeout sets the timeout used when SendAndReceive gets zero.
func WithDefaultTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithIDGenerator replaces the correlation id generator.
func WithIDGenerator(fn func() string) Option {
	return func(b *Bridge) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// NewBridge creates a bridge sending over t.
func NewBridge(t Transport, opts ...Option) *Bridge {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		transport: t,
		clock:     clockwork.NewRealClock(),
		ctx:       ctx,
		cancel:    cancel,
		subs:      make(map[string]*dispatch.Registry[Message]),
		observer:  dispatch.NewRegistry[Message]("ipc_observer"),
		pending:   make(map[string]*pendingRequest),
		handlers:  make(map[string]HandlerFunc),
		newID:     uuid.NewString,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Send encodes and transmits msg without waiting for anything back.
func (b *Bridge) Send(msg Message) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBridgeClosed
	}
	return b.send(msg)
}

func (b *Bridge) send(msg Message) error {
	if msg.Type == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidMessage)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = b.clock.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := b.transport.Send(data); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type, err)
	}
	return nil
}

// Publish sends a message of msgType with payload marshalled to JSON.
func (b *Bridge) Publish(msgType string, payload any) error {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	return b.Send(msg)
}

// Subscription is returned by Subscribe and OnMessage.
type Subscription struct {
	reg *dispatch.Registry[Message]
	id  dispatch.HandlerID
}

// Unsubscribe removes exactly this handler. Safe to call more than once.
func (s Subscription) Unsubscribe() {
	if s.reg != nil {
		s.reg.Unsubscribe(s.id)
	}
}

// Subscribe registers fn for messages of msgType. Handlers for a type run
// in registration order on the inbound goroutine.
func (b *Bridge) Subscribe(msgType string, fn func(Message)) Subscription {
	b.mu.Lock()
	reg, ok := b.subs[msgType]
	if !ok {
		reg = dispatch.NewRegistry[Message]("ipc:" + msgType)
		b.subs[msgType] = reg
	}
	b.mu.Unlock()
	return Subscription{reg: reg, id: reg.Subscribe(fn)}
}

// OnMessage registers fn for every inbound message that is not a response
// to a pending request.
func (b *Bridge) OnMessage(fn func(Message)) Subscription {
	return Subscription{reg: b.observer, id: b.observer.Subscribe(fn)}
}

// Handle registers a responder for inbound requests of msgType. Messages
// without a requestId are triggers: the handler still runs but nothing is
// sent back.
func (b *Bridge) Handle(msgType string, fn HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[msgType] = fn
}

// SendAndReceive sends msg with a fresh correlation id and waits for the
// matching response. A zero timeout uses the bridge default.
func (b *Bridge) SendAndReceive(ctx context.Context, msg Message, timeout time.Duration) (Message, error) {
	if timeout <= 0 {
		timeout = b.timeout
	}

	id := b.newID()
	msg.RequestID = id
	req := &pendingRequest{
		ch:       make(chan result, 1),
		respType: ResponseType(msg.Type),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return Message{}, ErrBridgeClosed
	}
	b.pending[id] = req
	b.mu.Unlock()

	if err := b.send(msg); err != nil {
		b.take(id)
		return Message{}, err
	}

	timer := b.clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-req.ch:
		return r.msg, r.err
	case <-timer.Chan():
		if b.take(id) != nil {
			log.Debug().Str("type", msg.Type).Str("requestId", id).Msg("ipc request timed out")
			return Message{}, fmt.Errorf("%w: %s after %s", ErrRequestTimeout, msg.Type, timeout)
		}
	case <-ctx.Done():
		if b.take(id) != nil {
			return Message{}, fmt.Errorf("%w: %w", ErrRequestCancelled, ctx.Err())
		}
	}

	// lost the race to a response or Close, which already resolved it
	r := <-req.ch
	return r.msg, r.err
}

// Request sends payload as msgType and decodes the response payload into T.
func Request[T any](ctx context.Context, b *Bridge, msgType string, payload any, timeout time.Duration) (T, error) {
	var zero T
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return zero, err
	}
	resp, err := b.SendAndReceive(ctx, msg, timeout)
	if err != nil {
		return zero, err
	}
	var out T
	if len(resp.Payload) == 0 {
		return out, nil
	}
	if err := resp.Decode(&out); err != nil {
		return zero, err
	}
	return out, nil
}

// take removes a pending request and returns it, or nil if it was already
// removed. Whoever takes it owns resolving it.
func (b *Bridge) take(id string) *pendingRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.pending[id]
	if !ok {
		return nil
	}
	delete(b.pending, id)
	return req
}

// PendingCount returns the number of requests awaiting a response.
func (b *Bridge) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// HandleInbound decodes and dispatches one inbound message. A response to a
// pending request goes only to its waiter. Anything else goes to the type's
// subscribers and the observer. Malformed data is logged and dropped.
func (b *Bridge) HandleInbound(data []byte) error {
	msg, err := parseMessage(data)
	if err != nil {
		log.Warn().Err(err).Int("size", len(data)).Msg("dropping malformed ipc message")
		return err
	}

	if msg.RequestID != "" {
		if req := b.take(msg.RequestID); req != nil {
			r := result{msg: msg}
			if msg.Error != "" {
				r.err = fmt.Errorf("%w: %s", ErrRemote, msg.Error)
			}
			if msg.Type != req.respType {
				log.Debug().
					Str("type", msg.Type).
					Str("expected", req.respType).
					Msg("response type differs from request")
			}
			req.ch <- r
			return nil
		}
		if msg.IsResponse() {
			log.Debug().
				Str("type", msg.Type).
				Str("requestId", msg.RequestID).
				Msg("discarding late or duplicate response")
			return nil
		}
	}

	b.mu.Lock()
	reg := b.subs[msg.Type]
	handler := b.handlers[msg.Type]
	b.mu.Unlock()

	if reg != nil {
		reg.Emit(msg)
	}
	b.observer.Emit(msg)

	if handler != nil {
		b.respond(handler, msg)
	}
	return nil
}

func (b *Bridge) respond(fn HandlerFunc, req Message) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()

		resp := Message{
			Type:      ResponseType(req.Type),
			Channel:   req.Channel,
			RequestID: req.RequestID,
		}

		out, err := callHandler(b.ctx, fn, req)
		if req.RequestID == "" {
			if err != nil {
				log.Warn().Err(err).Str("type", req.Type).Msg("ipc trigger failed")
			}
			return
		}
		if err != nil {
			log.Warn().Err(err).Str("type", req.Type).Msg("ipc handler failed")
			resp.Error = err.Error()
		} else if out != nil {
			payload, mErr := NewMessage(resp.Type, out)
			if mErr != nil {
				resp.Error = mErr.Error()
			} else {
				resp.Payload = payload.Payload
			}
		}

		if err := b.Send(resp); err != nil {
			log.Warn().Err(err).Str("type", resp.Type).Msg("failed to send ipc response")
		}
	}()
}

func callHandler(ctx context.Context, fn HandlerFunc, req Message) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return fn(ctx, req)
}

// Close fails every pending request with ErrBridgeClosed, cancels running
// handlers and waits for them to return.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	pending := b.pending
	b.pending = make(map[string]*pendingRequest)
	b.mu.Unlock()

	for _, req := range pending {
		req.ch <- result{err: ErrBridgeClosed}
	}

	b.cancel()
	b.wg.Wait()
}
