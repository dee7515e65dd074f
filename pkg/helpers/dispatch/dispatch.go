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

// Package dispatch provides an ordered callback registry. Handlers are called
// in registration order and a failing handler never prevents delivery to the
// ones registered after it.
package dispatch

import (
	"fmt"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// HandlerID identifies a registered handler.
type HandlerID int

type entry[T any] struct {
	fn func(T)
	id HandlerID
}

// Registry holds handlers for a single event type.
type Registry[T any] struct {
	name     string
	handlers []entry[T]
	mu       syncutil.RWMutex
	nextID   HandlerID
}

// NewRegistry creates an empty registry. The name is only used in logs.
func NewRegistry[T any](name string) *Registry[T] {
	return &Registry[T]{
		name:   name,
		nextID: 1,
	}
}

// Subscribe adds a handler and returns its ID.
func (r *Registry[T]) Subscribe(fn func(T)) HandlerID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.handlers = append(r.handlers, entry[T]{id: id, fn: fn})

	return id
}

// Unsubscribe removes exactly the handler with the given ID. Returns false if
// it was not registered.
func (r *Registry[T]) Unsubscribe(id HandlerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.handlers {
		if e.id == id {
			r.handlers = append(r.handlers[:i:i], r.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered handlers.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Clear removes all handlers.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = nil
}

// Emit calls every handler registered at the time of the call, in order.
// Handlers run on the caller's goroutine. A panicking handler is logged and
// skipped. Returns the number of handlers that failed.
func (r *Registry[T]) Emit(v T) int {
	r.mu.RLock()
	handlers := make([]entry[T], len(r.handlers))
	copy(handlers, r.handlers)
	r.mu.RUnlock()

	failed := 0
	for _, h := range handlers {
		if err := call(h.fn, v); err != nil {
			failed++
			log.Error().
				Err(err).
				Str("registry", r.name).
				Int("handlerID", int(h.id)).
				Msg("event handler failed")
		}
	}
	return failed
}

func call[T any](fn func(T), v T) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	fn(v)
	return nil
}
