package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *entryStore {
	t.Helper()
	engine := newLruEngine(2, 4)
	return newEntryStore(engine)
}

func TestGetOrCreateReturnsSameEntryOnRepeatedCalls(t *testing.T) {
	s := newTestStore(t)
	calls := 0

	newFn := func() *entry {
		calls++
		return newEntry("k1", Handle("k1"), FileTypeRegular, Attr{}, time.Second, 0)
	}

	e1 := s.getOrCreate("k1", newFn)
	e2 := s.getOrCreate("k1", newFn)

	require.Same(t, e1, e2)
	require.Equal(t, 1, calls)
	require.EqualValues(t, 2, e1.refcount)
}

func TestGetOrCreateUnderConcurrencyHasExactlyOneWinner(t *testing.T) {
	s := newTestStore(t)

	var created int32
	var mu sync.Mutex

	newFn := func() *entry {
		mu.Lock()
		created++
		mu.Unlock()
		return newEntry("k1", Handle("k1"), FileTypeRegular, Attr{}, time.Second, 0)
	}

	var wg sync.WaitGroup
	results := make([]*entry, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.getOrCreate("k1", newFn)
		}(i)
	}
	wg.Wait()

	for _, e := range results {
		require.Same(t, results[0], e)
	}
	require.EqualValues(t, 1, created)
	require.Equal(t, 1, s.count())
}

func TestPutUnderflowIsFatal(t *testing.T) {
	s := newTestStore(t)
	e := newEntry("k1", Handle("k1"), FileTypeRegular, Attr{}, time.Second, 0)

	require.Panics(t, func() {
		s.put(e)
	})
}

func TestMarkUnreachableForcesCleanupWhenRefcountAlreadyZero(t *testing.T) {
	engine := newLruEngine(2, 4)
	s := newEntryStore(engine)

	e := s.getOrCreate("k1", func() *entry {
		return newEntry("k1", Handle("k1"), FileTypeRegular, Attr{}, time.Second, 0)
	})
	s.put(e)

	s.markUnreachable(e)

	require.True(t, e.inCleanup())
	queued := engine.drainCleanup()
	require.Len(t, queued, 1)
	require.Same(t, e, queued[0])
}

func TestGetReturnsFalseForUnreachableEntry(t *testing.T) {
	s := newTestStore(t)
	e := s.getOrCreate("k1", func() *entry {
		return newEntry("k1", Handle("k1"), FileTypeRegular, Attr{}, time.Second, 0)
	})
	e.setUnreachable()

	require.False(t, s.get(e))
}
