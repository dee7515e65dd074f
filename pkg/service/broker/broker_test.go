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

package broker

import (
	"context"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notif(method string) models.Notification {
	return models.Notification{Method: method, Params: []byte(`{"gameId":"1"}`)}
}

func receive(t *testing.T, ch <-chan models.Notification) models.Notification {
	t.Helper()
	select {
	case n, ok := <-ch:
		require.True(t, ok, "channel closed")
		return n
	case <-time.After(time.Second):
		t.Fatal("no notification received")
		return models.Notification{}
	}
}

func TestBroker_SubscribeAssignsIDs(t *testing.T) {
	t.Parallel()

	b := NewBroker(context.Background(), make(chan models.Notification))

	_, id1 := b.Subscribe(10)
	_, id2 := b.Subscribe(10)
	assert.Equal(t, 0, id1)
	assert.Equal(t, 1, id2)
	assert.Len(t, b.subscribers, 2)
}

func TestBroker_Unsubscribe(t *testing.T) {
	t.Parallel()

	b := NewBroker(context.Background(), make(chan models.Notification))
	ch, id := b.Subscribe(10)

	b.Unsubscribe(id)
	assert.Empty(t, b.subscribers)

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")

	b.Unsubscribe(id)
}

func TestBroker_BroadcastToAll(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source := make(chan models.Notification, 10)
	b := NewBroker(ctx, source)
	b.Start()

	sub1, _ := b.Subscribe(10)
	sub2, _ := b.Subscribe(10)

	source <- notif(models.NotificationGameStarted)

	assert.Equal(t, models.NotificationGameStarted, receive(t, sub1).Method)
	assert.Equal(t, models.NotificationGameStarted, receive(t, sub2).Method)
}

func TestBroker_MethodFilter(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source := make(chan models.Notification, 10)
	b := NewBroker(ctx, source)
	b.Start()

	states, _ := b.Subscribe(10, models.NotificationGameStarted, models.NotificationGameStopped)
	all, _ := b.Subscribe(10)

	source <- notif(models.NotificationGamesDetected)
	source <- notif(models.NotificationGameStopped)

	assert.Equal(t, models.NotificationGamesDetected, receive(t, all).Method)
	assert.Equal(t, models.NotificationGameStopped, receive(t, all).Method)
	assert.Equal(t, models.NotificationGameStopped, receive(t, states).Method)
}

func TestBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source := make(chan models.Notification)
	b := NewBroker(ctx, source)
	b.Start()

	slow, _ := b.Subscribe(1)
	fast, _ := b.Subscribe(10)

	for range 3 {
		source <- notif(models.NotificationGameStarted)
	}

	for range 3 {
		receive(t, fast)
	}
	receive(t, slow)
	require.Eventually(t, func() bool { return b.Dropped() == 2 }, time.Second, 5*time.Millisecond)
}

func TestBroker_SourceClosedClosesSubscribers(t *testing.T) {
	t.Parallel()

	source := make(chan models.Notification)
	b := NewBroker(context.Background(), source)
	sub, _ := b.Subscribe(1)
	b.Start()

	close(source)
	<-b.Done()

	_, ok := <-sub
	assert.False(t, ok)
}

func TestBroker_ContextCancelStops(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	b := NewBroker(ctx, make(chan models.Notification))
	sub, _ := b.Subscribe(1)
	b.Start()

	cancel()
	select {
	case <-b.Done():
	case <-time.After(time.Second):
		t.Fatal("broker did not stop")
	}
	_, ok := <-sub
	assert.False(t, ok)
}
