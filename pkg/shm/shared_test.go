//go:build linux || darwin || freebsd || netbsd || openbsd

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
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type SharedMemoryTestSuite struct {
	suite.Suite
	dir string
	ctx context.Context
}

func (s *SharedMemoryTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.ctx = context.Background()
}

func (s *SharedMemoryTestSuite) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *SharedMemoryTestSuite) TestCreateThenAttachRecoversSize() {
	path := s.path("size.mmap")
	creator, err := Open(s.ctx, OpenOptions{Path: path, Size: 1000})
	s.Require().NoError(err)
	s.True(creator.Created())
	s.Equal(int64(1000), creator.Size())
	s.Zero(uintptr(creator.Pointer(0)) % CacheLineSize)

	info, err := os.Stat(path)
	s.Require().NoError(err)
	s.Equal(int64(RegionHeaderSize+1000), info.Size())

	// no size needed to attach, and a different hint is ignored
	attached, err := Open(s.ctx, OpenOptions{Path: path})
	s.Require().NoError(err)
	s.False(attached.Created())
	s.Equal(int64(1000), attached.Size())

	other, err := Open(s.ctx, OpenOptions{Path: path, Size: 5})
	s.Require().NoError(err)
	s.Equal(int64(1000), other.Size())

	creator.PutUint64Volatile(128, 99)
	s.Equal(uint64(99), attached.GetUint64Volatile(128))
	s.Equal(uint64(99), other.GetUint64(128))

	s.Equal(3, OpenCount(path))
	s.NoError(other.Close(false))
	s.NoError(attached.Close(false))
	s.NoError(creator.Close(true))
	s.Equal(0, OpenCount(path))
	s.False(fileExists(path))
}

func (s *SharedMemoryTestSuite) TestAttachDoesNotOverwriteHeaderOrData() {
	path := s.path("keep.mmap")
	creator, err := Open(s.ctx, OpenOptions{Path: path, Size: 256})
	s.Require().NoError(err)
	creator.PutUint64(0, 7)
	s.NoError(creator.Close(false))

	attached, err := Open(s.ctx, OpenOptions{Path: path, Size: 256})
	s.Require().NoError(err)
	s.False(attached.Created())
	s.Equal(uint64(7), attached.GetUint64(0))
	s.NoError(attached.Close(true))
}

func (s *SharedMemoryTestSuite) TestCloseWithoutDeleteKeepsFile() {
	path := s.path("close.mmap")
	m, err := Open(s.ctx, OpenOptions{Path: path, Size: 64})
	s.Require().NoError(err)
	s.NoError(m.Close(false))
	s.NoError(m.Close(false))
	s.NoError(m.Close(true))
	s.True(fileExists(path))
	s.ErrorIs(panicError(func() { m.GetUint64Volatile(0) }), ErrClosed)
}

func (s *SharedMemoryTestSuite) TestDeleteSkippedWhileSiblingHandleOpen() {
	path := s.path("sibling.mmap")
	a, err := Open(s.ctx, OpenOptions{Path: path, Size: 64})
	s.Require().NoError(err)
	b, err := Open(s.ctx, OpenOptions{Path: path})
	s.Require().NoError(err)

	s.NoError(a.Close(true))
	s.True(fileExists(path))
	s.NoError(b.Close(true))
	s.False(fileExists(path))
}

func (s *SharedMemoryTestSuite) TestDeleteOfRemovedFileIsNotFatal() {
	path := s.path("gone.mmap")
	m, err := Open(s.ctx, OpenOptions{Path: path, Size: 64})
	s.Require().NoError(err)
	s.Require().NoError(os.Remove(path))
	s.NoError(m.Close(true))
}

func (s *SharedMemoryTestSuite) TestAttachWaitsForCreator() {
	path := s.path("late.mmap")
	const size = 128
	// the file exists with its final length but no header yet
	s.Require().NoError(os.WriteFile(path, make([]byte, RegionHeaderSize+size), 0o600))

	go func() {
		time.Sleep(30 * time.Millisecond)
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			return
		}
		defer f.Close()
		var hdr [16]byte
		binary.NativeEndian.PutUint64(hdr[regionSizeOffset:], size)
		binary.NativeEndian.PutUint32(hdr[regionVersionOffset:], RegionVersion)
		binary.NativeEndian.PutUint32(hdr[regionMagicOffset:], RegionMagic)
		_, _ = f.WriteAt(hdr[:], 0)
	}()

	m, err := Open(s.ctx, OpenOptions{Path: path, AttachTimeout: 2 * time.Second})
	s.Require().NoError(err)
	s.Equal(int64(size), m.Size())
	s.NoError(m.Close(true))
}

func (s *SharedMemoryTestSuite) TestAttachTimesOut() {
	path := s.path("never.mmap")
	s.Require().NoError(os.WriteFile(path, make([]byte, RegionHeaderSize+64), 0o600))

	start := time.Now()
	_, err := Open(s.ctx, OpenOptions{Path: path, AttachTimeout: 50 * time.Millisecond})
	s.Error(err)
	s.Less(time.Since(start), 2*time.Second)
}

func (s *SharedMemoryTestSuite) TestAttachRejectsWrongVersion() {
	path := s.path("version.mmap")
	raw := make([]byte, RegionHeaderSize+64)
	binary.NativeEndian.PutUint64(raw[regionSizeOffset:], 64)
	binary.NativeEndian.PutUint32(raw[regionVersionOffset:], RegionVersion+1)
	binary.NativeEndian.PutUint32(raw[regionMagicOffset:], RegionMagic)
	s.Require().NoError(os.WriteFile(path, raw, 0o600))

	_, err := Open(s.ctx, OpenOptions{Path: path})
	s.ErrorIs(err, ErrInvalidRegion)
}

func (s *SharedMemoryTestSuite) TestOpenValidatesOptions() {
	_, err := Open(s.ctx, OpenOptions{})
	s.Error(err)
	_, err = Open(s.ctx, OpenOptions{Path: s.path("neg"), Size: -1})
	s.ErrorIs(err, ErrInvalidSize)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestSharedMemoryTestSuite(t *testing.T) {
	suite.Run(t, new(SharedMemoryTestSuite))
}
