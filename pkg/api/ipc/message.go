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

// Package ipc implements publish, subscribe and request/response over a
// single fire-and-forget message channel to the web layer.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ResponseSuffix is appended to a request type to form its response type.
const ResponseSuffix = ":response"

var (
	ErrRequestTimeout   = errors.New("request timed out")
	ErrRequestCancelled = errors.New("request cancelled")
	ErrBridgeClosed     = errors.New("bridge closed")
	ErrInvalidMessage   = errors.New("invalid message")
	ErrRemote           = errors.New("remote error")
)

// Message is the wire shape exchanged with the web layer.
type Message struct {
	Timestamp time.Time       `json:"timestamp"`
	Type      string          `json:"type"`
	Channel   string          `json:"channel,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	Error     string          `json:"error,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ResponseType returns the message type used to answer t.
func ResponseType(t string) string {
	return t + ResponseSuffix
}

// IsResponse reports whether the message answers a request.
func (m *Message) IsResponse() bool {
	return strings.HasSuffix(m.Type, ResponseSuffix)
}

// Decode unmarshals the payload into dest.
func (m *Message) Decode(dest any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%w: %s has no payload", ErrInvalidMessage, m.Type)
	}
	if err := json.Unmarshal(m.Payload, dest); err != nil {
		return fmt.Errorf("%w: decode %s payload: %w", ErrInvalidMessage, m.Type, err)
	}
	return nil
}

// NewMessage builds a message with payload marshalled to JSON. A nil
// payload is left empty.
func NewMessage(msgType string, payload any) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	if raw, ok := payload.(json.RawMessage); ok {
		msg.Payload = raw
		return msg, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	msg.Payload = b
	return msg, nil
}

func parseMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrInvalidMessage)
	}
	return msg, nil
}
