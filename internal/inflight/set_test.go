// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package inflight

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestAddRemove(t *testing.T) {
	s := New()
	expect.True(t, s.Add(3))
	expect.False(t, s.Add(3))
	expect.True(t, s.Contains(3))
	s.Remove(3)
	expect.False(t, s.Contains(3))
	expect.True(t, s.Add(3))
	s.Remove(100) // absent
	expect.EQ(t, s.Len(), 1)
}

func TestSingleWinner(t *testing.T) {
	s := New()
	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := int64(0); k < 100; k++ {
				if s.Add(k) {
					atomic.AddInt32(&winners, 1)
				}
			}
		}()
	}
	wg.Wait()
	expect.EQ(t, atomic.LoadInt32(&winners), int32(100))
	expect.EQ(t, s.Len(), 100)
}
