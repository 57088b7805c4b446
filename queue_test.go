package rchannel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAtomicQueuePushPopFIFO(t *testing.T) {
	q := NewAtomicQueue[int](4)
	a, b, c := 1, 2, 3
	require.True(t, q.Push(&a))
	require.True(t, q.Push(&b))
	require.True(t, q.Push(&c))
	require.Equal(t, 3, q.Len())

	v, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 1, *v)

	v, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, 2, *v)
}

func TestAtomicQueueFullReturnsFalse(t *testing.T) {
	q := NewAtomicQueue[int](2)
	a, b, c := 1, 2, 3
	require.True(t, q.Push(&a))
	require.True(t, q.Push(&b))
	require.False(t, q.Push(&c))
	require.Equal(t, 2, q.Cap())
}

func TestAtomicQueueEmptyPopReturnsFalse(t *testing.T) {
	q := NewAtomicQueue[int](2)
	_, ok := q.Pop()
	require.False(t, ok)
}

func TestAtomicQueueNonPowerOfTwoPanics(t *testing.T) {
	require.Panics(t, func() {
		NewAtomicQueue[int](3)
	})
}

func TestAtomicQueueConcurrentSPSC(t *testing.T) {
	const n = 20000
	q := NewAtomicQueue[int](1024)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			v := i
			for !q.Push(&v) {
			}
		}
	}()

	go func() {
		defer wg.Done()
		next := 0
		for next < n {
			v, ok := q.Pop()
			if !ok {
				continue
			}
			if *v != next {
				t.Errorf("out of order: want %d got %d", next, *v)
				return
			}
			next++
		}
	}()

	wg.Wait()
}
