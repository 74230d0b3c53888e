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
package ring

import "github.com/cespare/xxhash/v2"

// A slot is sealed once its payload is complete: the checksum is stored, then
// seq+1 is release-stored in the seal word. Zero means the slot is being
// written. A reader that sees seq+1 and a matching checksum read the record
// the producer published for seq and not a later one.

func (r *ring) payload(seq uint64) []byte {
	return r.mem.Bytes(r.layout.PayloadOffset(seq), int64(r.layout.SlotSize()))
}

func (r *ring) unseal(seq uint64) {
	r.mem.PutUint64Volatile(r.layout.SlotOffset(seq)+sealSeqOffset, 0)
}

func (r *ring) seal(seq uint64) {
	off := r.layout.SlotOffset(seq)
	sum := xxhash.Sum64(r.mem.Bytes(off+sealSize, int64(r.layout.SlotSize()))) ^ seq
	r.mem.PutUint64(off+sealSumOffset, sum)
	r.mem.PutUint64Volatile(off+sealSeqOffset, seq+1)
}

func (r *ring) sealed(seq uint64) bool {
	return r.mem.GetUint64Volatile(r.layout.SlotOffset(seq)+sealSeqOffset) == seq+1
}

// verify checks that the slot holding seq is sealed for seq and that payload
// matches its checksum.
func (r *ring) verify(seq uint64, payload []byte) bool {
	off := r.layout.SlotOffset(seq)
	if r.mem.GetUint64Volatile(off+sealSeqOffset) != seq+1 {
		return false
	}
	sum := r.mem.GetUint64(off + sealSumOffset)
	if xxhash.Sum64(payload)^seq != sum {
		return false
	}
	// the seal must not have moved while the payload was hashed
	return r.sealed(seq)
}
