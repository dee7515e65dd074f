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

// Package broker fans notifications out from the game service to every
// consumer (the IPC forwarder and any MQTT publishers) without letting a
// slow consumer hold up the others.
package broker

import (
	"context"
	"slices"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

type subscriber struct {
	ch      chan models.Notification
	methods []string
}

func (s *subscriber) wants(method string) bool {
	return len(s.methods) == 0 || slices.Contains(s.methods, method)
}

// Broker reads one source channel and copies each notification to every
// interested subscriber.
type Broker struct {
	ctx         context.Context
	source      <-chan models.Notification
	subscribers map[int]*subscriber
	done        chan struct{}
	mu          syncutil.RWMutex
	nextID      int
	dropped     int
}

// NewBroker creates a broker for source. Call Start to begin delivery.
func NewBroker(ctx context.Context, source <-chan models.Notification) *Broker {
	return &Broker{
		ctx:         ctx,
		source:      source,
		subscribers: make(map[int]*subscriber),
		done:        make(chan struct{}),
	}
}

// Start runs the delivery loop until the source closes or the context is
// cancelled, then closes every subscriber channel.
func (b *Broker) Start() {
	go func() {
		defer close(b.done)
		defer b.closeAll()
		for {
			select {
			case <-b.ctx.Done():
				log.Debug().Msg("broker: context cancelled, shutting down")
				return
			case n, ok := <-b.source:
				if !ok {
					log.Debug().Msg("broker: source channel closed")
					return
				}
				b.deliver(n)
			}
		}
	}()
}

// Done is closed once the delivery loop has exited.
func (b *Broker) Done() <-chan struct{} {
	return b.done
}

// Subscribe returns a channel receiving notifications whose method is in
// methods, or all notifications if methods is empty. Notifications that
// don't fit in the buffer are dropped for this subscriber only.
func (b *Broker) Subscribe(bufferSize int, methods ...string) (notifChan <-chan models.Notification, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id = b.nextID
	b.nextID++
	sub := &subscriber{
		ch:      make(chan models.Notification, bufferSize),
		methods: slices.Clone(methods),
	}
	b.subscribers[id] = sub

	log.Debug().
		Int("subscriber_id", id).
		Int("buffer_size", bufferSize).
		Strs("methods", methods).
		Msg("new subscriber registered")

	return sub.ch, id
}

// Unsubscribe closes and removes a subscription. Unknown ids are ignored.
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.ch)
		log.Debug().Int("subscriber_id", id).Msg("subscriber unsubscribed")
	}
}

// Dropped returns how many deliveries were skipped because a subscriber's
// buffer was full.
func (b *Broker) Dropped() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

func (b *Broker) deliver(n models.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subscribers {
		if !sub.wants(n.Method) {
			continue
		}
		select {
		case sub.ch <- n:
		default:
			b.dropped++
			log.Warn().
				Int("subscriber_id", id).
				Str("method", n.Method).
				Msg("subscriber channel full, dropping notification")
		}
	}
}

func (b *Broker) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subscribers {
		close(sub.ch)
		log.Debug().Int("subscriber_id", id).Msg("closed subscriber channel on shutdown")
	}
	clear(b.subscribers)
}
