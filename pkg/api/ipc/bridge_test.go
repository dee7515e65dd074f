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
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type captureTransport struct {
	onSend func(Message)
	sent   []Message
	mu     syncutil.Mutex
}

func (c *captureTransport) Send(data []byte) error {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return err //nolint:wrapcheck // test
	}
	c.mu.Lock()
	c.sent = append(c.sent, msg)
	fn := c.onSend
	c.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
	return nil
}

func (c *captureTransport) messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.sent...)
}

func respond(b *Bridge, req Message, payload string) {
	data, _ := json.Marshal(Message{
		Type:      ResponseType(req.Type),
		RequestID: req.RequestID,
		Payload:   json.RawMessage(payload),
	})
	_ = b.HandleInbound(data)
}

func TestPublish(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	tr := &captureTransport{}
	b := NewBridge(tr, WithClock(clock))
	defer b.Close()

	require.NoError(t, b.Publish("games:started", map[string]string{"gameId": "570"}))

	sent := tr.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "games:started", sent[0].Type)
	assert.JSONEq(t, `{"gameId":"570"}`, string(sent[0].Payload))
	assert.True(t, clock.Now().Equal(sent[0].Timestamp))
	assert.Empty(t, sent[0].RequestID)
}

func TestSend_RequiresType(t *testing.T) {
	t.Parallel()

	b := NewBridge(&captureTransport{})
	defer b.Close()
	require.ErrorIs(t, b.Send(Message{}), ErrInvalidMessage)
}

func TestSend_TransportError(t *testing.T) {
	t.Parallel()

	errDown := errors.New("socket closed")
	b := NewBridge(TransportFunc(func([]byte) error { return errDown }))
	defer b.Close()

	require.ErrorIs(t, b.Publish("games:detected", nil), errDown)

	_, err := b.SendAndReceive(context.Background(), Message{Type: "games:list"}, time.Second)
	require.ErrorIs(t, err, errDown)
	assert.Zero(t, b.PendingCount())
}

func TestSubscribe_OrderAndUnsubscribe(t *testing.T) {
	t.Parallel()

	b := NewBridge(&captureTransport{})
	defer b.Close()

	var got []string
	b.Subscribe("games:rescan", func(Message) { got = append(got, "a") })
	sub := b.Subscribe("games:rescan", func(Message) { got = append(got, "b") })
	b.Subscribe("games:rescan", func(Message) { got = append(got, "c") })
	b.Subscribe("other", func(Message) { got = append(got, "other") })

	require.NoError(t, b.HandleInbound([]byte(`{"type":"games:rescan"}`)))
	assert.Equal(t, []string{"a", "b", "c"}, got)

	sub.Unsubscribe()
	sub.Unsubscribe()
	got = nil
	require.NoError(t, b.HandleInbound([]byte(`{"type":"games:rescan"}`)))
	assert.Equal(t, []string{"a", "c"}, got)
}

func TestHandleInbound_FailingSubscriberIsolated(t *testing.T) {
	t.Parallel()

	b := NewBridge(&captureTransport{})
	defer b.Close()

	var delivered, observed bool
	b.Subscribe("x", func(Message) { panic("bad handler") })
	b.Subscribe("x", func(Message) { delivered = true })
	b.OnMessage(func(Message) { observed = true })

	require.NoError(t, b.HandleInbound([]byte(`{"type":"x"}`)))
	assert.True(t, delivered)
	assert.True(t, observed)
}

func TestHandleInbound_Malformed(t *testing.T) {
	t.Parallel()

	b := NewBridge(&captureTransport{})
	defer b.Close()

	called := false
	b.OnMessage(func(Message) { called = true })

	require.ErrorIs(t, b.HandleInbound([]byte(`{not json`)), ErrInvalidMessage)
	require.ErrorIs(t, b.HandleInbound([]byte(`{"payload":{}}`)), ErrInvalidMessage)
	assert.False(t, called)
}

func TestSendAndReceive_Resolves(t *testing.T) {
	t.Parallel()

	tr := &captureTransport{}
	b := NewBridge(tr)
	defer b.Close()

	tr.onSend = func(m Message) {
		go respond(b, m, `{"count":3}`)
	}

	resp, err := b.SendAndReceive(context.Background(), Message{Type: "games:list"}, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "games:list:response", resp.Type)
	assert.JSONEq(t, `{"count":3}`, string(resp.Payload))
	assert.Zero(t, b.PendingCount())
}

func TestSendAndReceive_ResponseNotRedelivered(t *testing.T) {
	t.Parallel()

	tr := &captureTransport{}
	b := NewBridge(tr)
	defer b.Close()

	var redelivered bool
	b.Subscribe("games:list:response", func(Message) { redelivered = true })
	b.OnMessage(func(Message) { redelivered = true })

	tr.onSend = func(m Message) { go respond(b, m, `[]`) }

	_, err := b.SendAndReceive(context.Background(), Message{Type: "games:list"}, 5*time.Second)
	require.NoError(t, err)
	assert.False(t, redelivered)
}

func TestSendAndReceive_Timeout(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	b := NewBridge(&captureTransport{}, WithClock(clock))
	defer b.Close()

	errCh := make(chan error, 1)
	go func() {
		_, err := b.SendAndReceive(context.Background(), Message{Type: "games:list"}, 2*time.Second)
		errCh <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, 1, b.PendingCount())

	clock.Advance(2 * time.Second)

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrRequestTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("request did not time out")
	}
	assert.Zero(t, b.PendingCount())
}

func TestSendAndReceive_LateResponseDiscarded(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	tr := &captureTransport{}
	b := NewBridge(tr, WithClock(clock))
	defer b.Close()

	var redelivered bool
	b.OnMessage(func(Message) { redelivered = true })

	errCh := make(chan error, 1)
	go func() {
		_, err := b.SendAndReceive(context.Background(), Message{Type: "games:list"}, time.Second)
		errCh <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)
	require.ErrorIs(t, <-errCh, ErrRequestTimeout)

	req := tr.messages()[0]
	respond(b, req, `[]`)
	assert.False(t, redelivered)
}

func TestSendAndReceive_DuplicateResponseIgnored(t *testing.T) {
	t.Parallel()

	tr := &captureTransport{}
	b := NewBridge(tr)
	defer b.Close()

	var observed atomic.Int32
	b.OnMessage(func(Message) { observed.Add(1) })

	tr.onSend = func(m Message) {
		go func() {
			respond(b, m, `"first"`)
			respond(b, m, `"second"`)
		}()
	}

	got, err := Request[string](context.Background(), b, "games:list", nil, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	require.Eventually(t, func() bool { return b.PendingCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.Zero(t, observed.Load())
}

func TestSendAndReceive_Cancelled(t *testing.T) {
	t.Parallel()

	b := NewBridge(&captureTransport{})
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.SendAndReceive(ctx, Message{Type: "games:list"}, time.Minute)
	require.ErrorIs(t, err, ErrRequestCancelled)
	assert.Zero(t, b.PendingCount())
}

func TestSendAndReceive_RemoteError(t *testing.T) {
	t.Parallel()

	tr := &captureTransport{}
	b := NewBridge(tr)
	defer b.Close()

	tr.onSend = func(m Message) {
		go func() {
			data, _ := json.Marshal(Message{
				Type: ResponseType(m.Type), RequestID: m.RequestID, Error: "scan failed",
			})
			_ = b.HandleInbound(data)
		}()
	}

	_, err := b.SendAndReceive(context.Background(), Message{Type: "games:rescan"}, 5*time.Second)
	require.ErrorIs(t, err, ErrRemote)
	assert.Contains(t, err.Error(), "scan failed")
}

func TestClose_FailsPending(t *testing.T) {
	t.Parallel()

	tr := &captureTransport{}
	b := NewBridge(tr)

	sentCh := make(chan struct{})
	tr.onSend = func(Message) { close(sentCh) }

	errCh := make(chan error, 1)
	go func() {
		_, err := b.SendAndReceive(context.Background(), Message{Type: "games:list"}, time.Minute)
		errCh <- err
	}()

	<-sentCh
	b.Close()
	b.Close()

	require.ErrorIs(t, <-errCh, ErrBridgeClosed)
	require.ErrorIs(t, b.Publish("x", nil), ErrBridgeClosed)
	_, err := b.SendAndReceive(context.Background(), Message{Type: "games:list"}, time.Second)
	require.ErrorIs(t, err, ErrBridgeClosed)
}

func TestHandle_RespondsWithSameRequestID(t *testing.T) {
	t.Parallel()

	tr := &captureTransport{}
	b := NewBridge(tr)
	defer b.Close()

	b.Handle("games:list", func(_ context.Context, req Message) (any, error) {
		return []string{"570"}, nil
	})
	b.Handle("games:rescan", func(context.Context, Message) (any, error) {
		return nil, errors.New("busy")
	})

	require.NoError(t, b.HandleInbound([]byte(`{"type":"games:list","requestId":"r1"}`)))
	require.NoError(t, b.HandleInbound([]byte(`{"type":"games:rescan","requestId":"r2"}`)))
	// no request id, nothing to answer
	require.NoError(t, b.HandleInbound([]byte(`{"type":"games:list"}`)))

	require.Eventually(t, func() bool { return len(tr.messages()) == 2 }, time.Second, 10*time.Millisecond)

	byID := map[string]Message{}
	for _, m := range tr.messages() {
		byID[m.RequestID] = m
	}
	assert.Equal(t, "games:list:response", byID["r1"].Type)
	assert.JSONEq(t, `["570"]`, string(byID["r1"].Payload))
	assert.Equal(t, "games:rescan:response", byID["r2"].Type)
	assert.Equal(t, "busy", byID["r2"].Error)
}

func TestHandle_TriggerWithoutRequestID(t *testing.T) {
	t.Parallel()

	tr := &captureTransport{}
	b := NewBridge(tr)
	defer b.Close()

	ran := make(chan Message, 1)
	b.Handle("games:rescan", func(_ context.Context, req Message) (any, error) {
		ran <- req
		return []string{"570"}, nil
	})

	require.NoError(t, b.HandleInbound([]byte(`{"type":"games:rescan"}`)))

	select {
	case req := <-ran:
		assert.Empty(t, req.RequestID)
	case <-time.After(time.Second):
		t.Fatal("handler did not run for a trigger without requestId")
	}

	// wait for the handler goroutine before checking nothing was sent
	b.Close()
	assert.Empty(t, tr.messages())
}

func TestHandle_PanicBecomesErrorResponse(t *testing.T) {
	t.Parallel()

	tr := &captureTransport{}
	b := NewBridge(tr)
	defer b.Close()

	b.Handle("boom", func(context.Context, Message) (any, error) { panic("oops") })
	require.NoError(t, b.HandleInbound([]byte(`{"type":"boom","requestId":"r"}`)))

	require.Eventually(t, func() bool { return len(tr.messages()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Contains(t, tr.messages()[0].Error, "handler panic")
}

func TestBridge_RoundTripBetweenPeers(t *testing.T) {
	t.Parallel()

	var server, client *Bridge
	server = NewBridge(TransportFunc(func(data []byte) error {
		go func() { _ = client.HandleInbound(data) }()
		return nil
	}))
	client = NewBridge(TransportFunc(func(data []byte) error {
		go func() { _ = server.HandleInbound(data) }()
		return nil
	}))
	defer server.Close()
	defer client.Close()

	server.Handle("echo", func(_ context.Context, req Message) (any, error) {
		var s string
		if err := req.Decode(&s); err != nil {
			return nil, err
		}
		return s + "!", nil
	})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Request[string](context.Background(), client, "echo", "hi", 5*time.Second)
			assert.NoError(t, err)
			assert.Equal(t, "hi!", got)
		}()
	}
	wg.Wait()
	assert.Zero(t, client.PendingCount())
}

func TestSendAndReceive_RaceTimeoutAndResponse(t *testing.T) {
	t.Parallel()

	tr := &captureTransport{}
	b := NewBridge(tr)
	defer b.Close()

	tr.onSend = func(m Message) {
		go respond(b, m, `1`)
	}

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.SendAndReceive(context.Background(), Message{Type: "race"}, time.Millisecond)
			if err != nil {
				assert.ErrorIs(t, err, ErrRequestTimeout)
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, b.PendingCount())
}
