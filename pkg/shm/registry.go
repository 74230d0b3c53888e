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

package shm

import (
	"path/filepath"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// openRegions counts the SharedMemory handles this process holds per backing
// file. Other processes are invisible here; the count only prevents a handle
// from unlinking a file that a sibling handle in the same process still uses.
var openRegions = cmap.New[int]()

func regionKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func addRegionRef(path string, delta int) int {
	return openRegions.Upsert(regionKey(path), delta, func(exist bool, inMap int, newValue int) int {
		if exist {
			return inMap + newValue
		}
		return newValue
	})
}

func releaseRegionRef(path string) int {
	remaining := addRegionRef(path, -1)
	openRegions.RemoveCb(regionKey(path), func(_ string, v int, exists bool) bool {
		return exists && v <= 0
	})
	return remaining
}

// OpenCount returns how many open SharedMemory handles in this process map path.
func OpenCount(path string) int {
	n, _ := openRegions.Get(regionKey(path))
	return n
}
