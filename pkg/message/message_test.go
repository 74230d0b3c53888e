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
package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageEncodeDecode(t *testing.T) {
	buf := make([]byte, MaxSize)
	require.NoError(t, Message{Value: -42, Last: true}.Encode(buf))

	var m Message
	require.NoError(t, m.Decode(buf))
	assert.Equal(t, int64(-42), m.Value)
	assert.True(t, m.Last)

	require.NoError(t, Message{Value: 7}.Encode(buf))
	require.NoError(t, m.Decode(buf))
	assert.Equal(t, Message{Value: 7}, m)
}

func TestMessageShortBuffer(t *testing.T) {
	short := make([]byte, MaxSize-1)
	assert.ErrorIs(t, Message{}.Encode(short), ErrShortBuffer)
	var m Message
	assert.ErrorIs(t, m.Decode(short), ErrShortBuffer)
}
