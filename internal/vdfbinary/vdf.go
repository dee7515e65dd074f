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

// Package vdfbinary parses Valve's binary VDF format, as used by Steam's
// shortcuts.vdf for non-Steam games.
//
// The format handling follows github.com/TimDeve/valve-vdf-binary (MIT).
package vdfbinary

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrEmptyVDF     = errors.New("the vdf you are trying to parse appears empty")
	ErrNotBinaryVDF = errors.New("the vdf appears not to be binary, are you sure it is not a text vdf?")
	ErrCorruptedVDF = errors.New("reached the end of the file earlier than expected, your file might be corrupted")
)

const (
	markerMap      byte = 0x00
	markerString   byte = 0x01
	markerInt32    byte = 0x02
	markerFloat32  byte = 0x03
	markerUint64   byte = 0x07
	markerEndOfMap byte = 0x08
	endOfString    byte = 0x00
)

// Map is a parsed VDF object. Keys are lowercased at parse time since
// Valve treats them case-insensitively.
type Map map[string]Value

// Value is a single VDF node: a string, a number or a nested map.
type Value struct {
	v any
}

// AsString returns the value as a string.
func (v Value) AsString() (string, bool) {
	s, ok := v.v.(string)
	return s, ok
}

// AsUint returns the value as a 32-bit number.
func (v Value) AsUint() (uint32, bool) {
	n, ok := v.v.(uint32)
	return n, ok
}

// AsMap returns the value as a nested map.
func (v Value) AsMap() (Map, bool) {
	m, ok := v.v.(Map)
	return m, ok
}

// Get looks up key in a map value.
func (v Value) Get(key string) (Value, bool) {
	m, ok := v.AsMap()
	if !ok {
		return Value{}, false
	}
	child, ok := m[strings.ToLower(key)]
	return child, ok
}

// GetMap looks up a nested map.
func (v Value) GetMap(key string) (Map, bool) {
	child, ok := v.Get(key)
	if !ok {
		return nil, false
	}
	return child.AsMap()
}

// GetString looks up a string field.
func (v Value) GetString(key string) (string, bool) {
	child, ok := v.Get(key)
	if !ok {
		return "", false
	}
	return child.AsString()
}

// GetUint looks up a 32-bit number field.
func (v Value) GetUint(key string) (uint32, bool) {
	child, ok := v.Get(key)
	if !ok {
		return 0, false
	}
	return child.AsUint()
}

// GetBool looks up a number field and reports it as a flag.
func (v Value) GetBool(key string) (bool, bool) {
	n, ok := v.GetUint(key)
	return n != 0, ok
}

// Parse reads a binary VDF document. The root is returned as a map value.
func Parse(r io.Reader) (Value, error) {
	buf := bufio.NewReader(r)

	head, err := buf.Peek(1)
	if errors.Is(err, io.EOF) {
		return Value{}, ErrEmptyVDF
	}
	if err != nil {
		return Value{}, fmt.Errorf("peek error: %w", err)
	}

	switch head[0] {
	case markerMap, markerString, markerInt32, markerFloat32, markerUint64, markerEndOfMap:
	default:
		return Value{}, ErrNotBinaryVDF
	}

	m, err := parseMap(buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return Value{}, ErrCorruptedVDF
	}
	if err != nil {
		return Value{}, err
	}
	return Value{v: m}, nil
}

func parseMap(buf *bufio.Reader) (Map, error) {
	m := make(Map)

	for {
		marker, err := buf.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("read marker: %w", err)
		}
		if marker == markerEndOfMap {
			return m, nil
		}

		key, err := readString(buf)
		if err != nil {
			return nil, err
		}

		var value Value
		switch marker {
		case markerMap:
			var child Map
			child, err = parseMap(buf)
			value = Value{v: child}
		case markerString:
			var s string
			s, err = readString(buf)
			value = Value{v: s}
		case markerInt32, markerFloat32:
			var n uint32
			n, err = readUint32(buf)
			value = Value{v: n}
		case markerUint64:
			var n uint64
			n, err = readUint64(buf)
			value = Value{v: n}
		default:
			err = fmt.Errorf("unexpected marker 0x%02x for key %q", marker, key)
		}
		if err != nil {
			return nil, err
		}

		m[strings.ToLower(key)] = value
	}
}

func readString(buf *bufio.Reader) (string, error) {
	s, err := buf.ReadString(endOfString)
	if err != nil {
		return "", fmt.Errorf("read string: %w", err)
	}
	return s[:len(s)-1], nil
}

func readUint32(buf *bufio.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(buf, b[:]); err != nil {
		return 0, fmt.Errorf("read number: %w", err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readUint64(buf *bufio.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(buf, b[:]); err != nil {
		return 0, fmt.Errorf("read number: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
