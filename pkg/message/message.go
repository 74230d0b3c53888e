/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
// Package message is the record exchanged by the demo programs: a counter
// and an end-of-stream marker, encoded in a fixed number of bytes.
package message

import (
	"encoding/binary"
	"errors"
)

// MaxSize is the encoded size of a Message, to be used as the ring slot size.
const MaxSize = 16

const (
	valueOffset = 0
	flagsOffset = 8

	flagLast = 1
)

var ErrShortBuffer = errors.New("message: buffer shorter than MaxSize")

// Message is a fixed-size record.
type Message struct {
	Value int64
	// Last marks the final record of a stream.
	Last bool
}

// Encode writes m into the first MaxSize bytes of buf.
func (m Message) Encode(buf []byte) error {
	if len(buf) < MaxSize {
		return ErrShortBuffer
	}
	binary.LittleEndian.PutUint64(buf[valueOffset:], uint64(m.Value))
	var flags uint64
	if m.Last {
		flags |= flagLast
	}
	binary.LittleEndian.PutUint64(buf[flagsOffset:], flags)
	return nil
}

// Decode reads a Message encoded by Encode.
func (m *Message) Decode(buf []byte) error {
	if len(buf) < MaxSize {
		return ErrShortBuffer
	}
	m.Value = int64(binary.LittleEndian.Uint64(buf[valueOffset:]))
	m.Last = binary.LittleEndian.Uint64(buf[flagsOffset:])&flagLast != 0
	return nil
}
