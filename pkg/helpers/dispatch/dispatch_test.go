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

package dispatch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_EmitInRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry[int]("test")
	var got []string
	r.Subscribe(func(v int) { got = append(got, "a") })
	r.Subscribe(func(v int) { got = append(got, "b") })
	r.Subscribe(func(v int) { got = append(got, "c") })

	failed := r.Emit(1)

	assert.Zero(t, failed)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestRegistry_UnsubscribeRemovesOnlyThatHandler(t *testing.T) {
	t.Parallel()

	r := NewRegistry[string]("test")
	var got []string
	r.Subscribe(func(v string) { got = append(got, "first:"+v) })
	id := r.Subscribe(func(v string) { got = append(got, "second:"+v) })
	r.Subscribe(func(v string) { got = append(got, "third:"+v) })

	require.True(t, r.Unsubscribe(id))
	assert.False(t, r.Unsubscribe(id), "second unsubscribe is a no-op")

	r.Emit("x")

	assert.Equal(t, []string{"first:x", "third:x"}, got)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_PanickingHandlerIsIsolated(t *testing.T) {
	t.Parallel()

	r := NewRegistry[int]("test")
	var after bool
	r.Subscribe(func(int) { panic("boom") })
	r.Subscribe(func(int) { after = true })

	failed := r.Emit(42)

	assert.Equal(t, 1, failed)
	assert.True(t, after, "handler after the failing one must still run")
}

func TestRegistry_SubscribeDuringEmit(t *testing.T) {
	t.Parallel()

	r := NewRegistry[int]("test")
	calls := 0
	r.Subscribe(func(int) {
		calls++
		r.Subscribe(func(int) { calls++ })
	})

	// only handlers registered before the call are invoked
	r.Emit(1)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_ConcurrentUse(t *testing.T) {
	t.Parallel()

	r := NewRegistry[int]("test")
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := r.Subscribe(func(int) {})
			r.Emit(1)
			r.Unsubscribe(id)
		}()
	}
	wg.Wait()

	assert.Zero(t, r.Len())
}

func TestRegistry_Clear(t *testing.T) {
	t.Parallel()

	r := NewRegistry[int]("test")
	r.Subscribe(func(int) {})
	r.Subscribe(func(int) {})
	r.Clear()

	assert.Zero(t, r.Len())
	assert.Zero(t, r.Emit(1))
}
