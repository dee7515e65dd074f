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

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRemoteIP(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "192.168.1.1", ParseRemoteIP("192.168.1.1:7498").String())
	assert.Equal(t, "::1", ParseRemoteIP("[::1]:7498").String())
	assert.Equal(t, "10.0.0.1", ParseRemoteIP("10.0.0.1").String())
	assert.Nil(t, ParseRemoteIP("not-an-ip"))
}

func TestIPFilter_IsAllowed(t *testing.T) {
	t.Parallel()

	filter := NewIPFilter([]string{"192.168.1.0/24", "10.0.0.5", "10.0.0.6:7498", "bogus"})

	tests := []struct {
		addr string
		want bool
	}{
		{addr: "127.0.0.1:1234", want: true},
		{addr: "[::1]:1234", want: true},
		{addr: "192.168.1.77:1234", want: true},
		{addr: "192.168.2.1:1234", want: false},
		{addr: "10.0.0.5:1234", want: true},
		{addr: "10.0.0.6:1234", want: true},
		{addr: "[::ffff:10.0.0.5]:1234", want: true},
		{addr: "8.8.8.8:53", want: false},
		{addr: "garbage", want: false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, filter.IsAllowed(tt.addr), tt.addr)
	}
}

func TestIPFilter_EmptyAllowsLoopbackOnly(t *testing.T) {
	t.Parallel()

	filter := NewIPFilter(nil)
	assert.True(t, filter.IsAllowed("127.0.0.1:1"))
	assert.False(t, filter.IsAllowed("192.168.1.1:1"))
}

func TestHTTPIPFilterMiddleware(t *testing.T) {
	t.Parallel()

	handler := HTTPIPFilterMiddleware(NewIPFilter(nil))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/ipc", http.NoBody)
	req.RemoteAddr = "192.168.1.9:4000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req.RemoteAddr = "127.0.0.1:4000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
