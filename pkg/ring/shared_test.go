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
package ring

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/srediag/shm-ring/pkg/message"
	"github.com/srediag/shm-ring/pkg/shm"
)

type SharedRingTestSuite struct {
	suite.Suite
	ctx  context.Context
	path string
}

func (s *SharedRingTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.path = filepath.Join(s.T().TempDir(), "test.ring")
}

func (s *SharedRingTestSuite) TestBlockingPairOverFile() {
	p, err := NewBlockingProducer(s.ctx, s.path, 4, message.MaxSize)
	s.Require().NoError(err)
	c, err := NewBlockingConsumer(s.ctx, s.path, 4, message.MaxSize)
	s.Require().NoError(err)
	s.Equal(2, shm.OpenCount(s.path))

	go func() {
		for i := 0; i < 10; i++ {
			_ = message.Message{Value: int64(i), Last: i == 9}.Encode(p.Next())
			p.Flush()
		}
	}()

	var out bytes.Buffer
	var m message.Message
	deadline := time.Now().Add(10 * time.Second)
	for !m.Last {
		s.Require().True(time.Now().Before(deadline))
		n := c.AvailableToPoll()
		for i := int64(0); i < n; i++ {
			buf, err := c.Poll()
			s.Require().NoError(err)
			s.Require().NoError(m.Decode(buf))
			out.WriteByte(byte('0' + m.Value))
		}
		c.DonePolling()
		if n == 0 {
			runtime.Gosched()
		}
	}
	s.Equal("0123456789", out.String())

	s.NoError(p.Close(false))
	s.NoError(p.Close(false))
	s.True(fileExists(s.path))
	s.NoError(c.Close(true))
	s.NoError(c.Close(true))
	s.False(fileExists(s.path))
}

func (s *SharedRingTestSuite) TestConsumerResumesAfterReopen() {
	p, err := NewNonBlockingProducer(s.ctx, s.path, 0, message.MaxSize)
	s.Require().NoError(err)
	s.Equal(int64(DefaultCapacity), p.Capacity())
	write(p, 0, 10)
	s.NoError(p.Close(false))

	c, err := NewNonBlockingConsumer(s.ctx, s.path, 0, message.MaxSize)
	s.Require().NoError(err)
	s.Require().Equal(int64(10), c.AvailableToPoll())
	for i := 0; i < 6; i++ {
		_, err := c.Poll()
		s.Require().NoError(err)
	}
	c.DonePolling()
	s.NoError(c.Close(false))

	c, err = NewNonBlockingConsumer(s.ctx, s.path, 0, message.MaxSize)
	s.Require().NoError(err)
	s.Equal(uint64(6), c.Sequence())
	s.Equal(int64(4), c.AvailableToPoll())
	s.NoError(c.Close(true))
}

func (s *SharedRingTestSuite) TestDebugRingDetail() {
	p, err := NewNonBlockingProducer(s.ctx, s.path, 8, message.MaxSize)
	s.Require().NoError(err)
	defer p.Close(true)
	write(p, 0, 3)

	d, err := ReadDetail(s.path)
	s.Require().NoError(err)
	s.Equal(int64(8), d.Capacity)
	s.Equal(int64(message.MaxSize), d.SlotSize)
	s.Equal(int64(32), d.Stride)
	s.Equal(uint64(3), d.ProducerSeq)
	s.Equal(uint64(0), d.ConsumerSeq)
	s.Equal(uint64(3), d.Lag)
	s.Contains(d.String(), "cap:8")

	var out bytes.Buffer
	s.Require().NoError(DebugRingDetail(&out, s.path))
	s.Contains(out.String(), "capacity:    8")
	s.Contains(out.String(), "lag:         3")

	stats := FileStats(s.path).Stats()
	s.Equal(uint64(3), stats.Published)
	s.Equal(uint64(3), stats.Lag)
	s.False(stats.Wrapped)

	write(p, 3, 9)
	s.True(FileStats(s.path).Stats().Wrapped)
	s.Zero(FileStats(s.path + ".missing").Stats().Capacity)
}

func (s *SharedRingTestSuite) TestReadDetailRejectsOtherFiles() {
	s.Require().NoError(os.WriteFile(s.path, []byte("not a ring"), 0o600))
	_, err := ReadDetail(s.path)
	s.ErrorIs(err, shm.ErrInvalidRegion)

	region, err := shm.Open(s.ctx, shm.OpenOptions{Path: s.path + ".raw", Size: 1024})
	s.Require().NoError(err)
	defer region.Close(true)
	_, err = ReadDetail(s.path + ".raw")
	s.ErrorIs(err, ErrInvalidHeader)

	_, err = ReadDetail(filepath.Join(s.T().TempDir(), "missing"))
	s.ErrorIs(err, os.ErrNotExist)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestSharedRingTestSuite(t *testing.T) {
	suite.Run(t, new(SharedRingTestSuite))
}
