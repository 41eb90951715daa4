// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package lru

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBounded(t *testing.T) {
	c := New[int, string](3)
	var evicted []int
	c.OnEvict = func(k int, _ string) { evicted = append(evicted, k) }
	for i := 0; i < 10; i++ {
		c.Add(i, fmt.Sprint(i))
		assert.True(t, c.Len() <= 3)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, evicted)
	_, ok := c.Get(0)
	assert.False(t, ok)

	// Evicted keys refault transparently.
	v, err := c.GetOrCompute(0, func() (string, error) { return "zero", nil })
	require.NoError(t, err)
	assert.Equal(t, "zero", v)
	assert.Equal(t, 3, c.Len())
}

func TestRecency(t *testing.T) {
	c := New[int, int](2)
	c.Add(1, 1)
	c.Add(2, 2)
	_, ok := c.Get(1)
	require.True(t, ok)
	c.Add(3, 3)
	assert.True(t, c.Contains(1))
	assert.False(t, c.Contains(2))
	assert.True(t, c.Contains(3))
}

func TestGetOrComputeShared(t *testing.T) {
	c := New[int64, int](8)
	var calls int32
	start := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	results := make([]int, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			v, err := c.GetOrCompute(7, func() (int, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return 42, nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	close(start)
	close(release)
	wg.Wait()
	assert.True(t, atomic.LoadInt32(&calls) >= 1)
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
	v, ok := c.Get(7)
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestFailureNotCached(t *testing.T) {
	c := New[int, int](4)
	_, err := c.GetOrCompute(1, func() (int, error) { return 0, fmt.Errorf("read failed") })
	require.Error(t, err)
	assert.False(t, c.Contains(1))
	v, err := c.GetOrCompute(1, func() (int, error) { return 5, nil })
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}
