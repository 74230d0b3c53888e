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

package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerLevels(t *testing.T) {
	old := Level()
	defer SetLogLevel(old)

	var out bytes.Buffer
	l := New("ring", &out)

	SetLogLevel(LevelWarn)
	l.Infof("hidden %d", 1)
	assert.Equal(t, 0, out.Len())

	l.Warnf("shown %d", 2)
	assert.Contains(t, out.String(), "Warn")
	assert.Contains(t, out.String(), "shown 2")
	assert.Contains(t, out.String(), "logger_test.go")
	assert.Contains(t, out.String(), "ring")

	out.Reset()
	SetLogLevel(LevelNoPrint)
	l.Errorf("never")
	assert.Equal(t, 0, out.Len())
}

func TestSetLogLevelIgnoresOutOfRange(t *testing.T) {
	old := Level()
	defer SetLogLevel(old)

	SetLogLevel(LevelDebug)
	SetLogLevel(42)
	SetLogLevel(-1)
	assert.Equal(t, LevelDebug, Level())
}
