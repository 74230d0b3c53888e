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
package health

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/shm-ring/api"
)

type fixedStats api.Stats

func (f fixedStats) Stats() api.Stats { return api.Stats(f) }

func TestChecks(t *testing.T) {
	assert.NoError(t, ConsumerNotWrapped(fixedStats{})())
	assert.Error(t, ConsumerNotWrapped(fixedStats{Name: "r", Wrapped: true})())

	assert.NoError(t, LagBelow(fixedStats{Lag: 9}, 10)())
	assert.Error(t, LagBelow(fixedStats{Lag: 10}, 10)())

	path := filepath.Join(t.TempDir(), "ring")
	assert.ErrorContains(t, RegionExists(path)(), "does not exist")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	assert.NoError(t, RegionExists(path)())
}

func serve(h http.Handler, target string) int {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec.Code
}

func TestHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ring")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	h := NewHandler(path, fixedStats{Lag: 1}, 100)
	assert.Equal(t, http.StatusOK, serve(h, "/live"))
	assert.Equal(t, http.StatusOK, serve(h, "/ready"))

	h = NewHandler(path, fixedStats{Wrapped: true}, 0)
	assert.Equal(t, http.StatusOK, serve(h, "/live"))
	assert.Equal(t, http.StatusServiceUnavailable, serve(h, "/ready"))

	require.NoError(t, os.Remove(path))
	assert.Equal(t, http.StatusServiceUnavailable, serve(h, "/live"))
}
