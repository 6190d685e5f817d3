package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirIndexInsertLookupRoundTrip(t *testing.T) {
	idx := newDirIndex(DefaultProbeBound)

	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("entry-%d", i)
		_, err := idx.insert(name, Key(name))
		require.NoError(t, err)
	}

	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("entry-%d", i)
		d := idx.lookupByName(name)
		require.NotNil(t, d)
		require.Equal(t, Key(name), d.childKey)
	}

	require.Nil(t, idx.lookupByName("not-there"))
}

func TestDirIndexInsertIsIdempotentForSameName(t *testing.T) {
	idx := newDirIndex(DefaultProbeBound)

	d1, err := idx.insert("a", Key("a-handle"))
	require.NoError(t, err)

	d2, err := idx.insert("a", Key("a-handle"))
	require.NoError(t, err)
	require.Same(t, d1, d2)
}

func TestDirIndexTombstoneHidesEntryFromActiveLookup(t *testing.T) {
	idx := newDirIndex(DefaultProbeBound)

	d, err := idx.insert("a", Key("a-handle"))
	require.NoError(t, err)

	idx.setDeleted(d)

	require.Nil(t, idx.lookupByName("a"))

	found := idx.lookupByKey(d.probeKey, LookupIncludeDeleted)
	require.NotNil(t, found)
	require.True(t, found.deleted)
}

func TestDirIndexTombstoneSlotIsReusedByLaterInsert(t *testing.T) {
	idx := newDirIndex(DefaultProbeBound)

	d, err := idx.insert("a", Key("old-handle"))
	require.NoError(t, err)
	idx.setDeleted(d)

	d2, err := idx.insert("a", Key("new-handle"))
	require.NoError(t, err)
	require.False(t, d2.deleted)
	require.Equal(t, Key("new-handle"), d2.childKey)
}

func TestDirIndexEntriesExcludesTombstones(t *testing.T) {
	idx := newDirIndex(DefaultProbeBound)

	for _, name := range []string{"a", "b", "c"} {
		_, err := idx.insert(name, Key(name))
		require.NoError(t, err)
	}
	d := idx.lookupByName("b")
	idx.setDeleted(d)

	live := idx.entries()
	require.Len(t, live, 2)
	for _, e := range live {
		require.NotEqual(t, "b", e.name)
	}
}

// TestDirIndexProbeBoundExhaustionMarksForReindex drives scenario S1: 65
// names forced into the same collision class (one more than
// DefaultProbeBound slots). The 65th must fail TOO_MANY_COLLISIONS, a
// subsequent lookup for its name must miss, and the directory must be
// marked for reindex.
func TestDirIndexProbeBoundExhaustionMarksForReindex(t *testing.T) {
	idx := newDirIndex(DefaultProbeBound)
	const k = 0xC0FFEE

	for i := 0; i < DefaultProbeBound; i++ {
		name := fmt.Sprintf("colliding-%d", i)
		_, err := idx.insertAtHash(k, name, Key(name))
		require.NoError(t, err)
	}
	require.False(t, idx.reindex)

	lastName := fmt.Sprintf("colliding-%d", DefaultProbeBound)
	_, err := idx.insertAtHash(k, lastName, Key(lastName))
	require.Error(t, err)
	var cerr *CacheError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, CodeTooManyCollisions, cerr.Code)

	require.Nil(t, idx.lookupByName(lastName))
	require.True(t, idx.reindex)

	for i := 0; i < DefaultProbeBound; i++ {
		name := fmt.Sprintf("colliding-%d", i)
		require.NotNil(t, idx.lookupByName(name), "name %q should still be found via degraded linear scan", name)
	}
}

func TestProbeKeyIsDeterministicAndAdvancesWithJ(t *testing.T) {
	k := direntHash("some-name")
	first := probeKey(k, 0)
	require.Equal(t, k, first)

	second := probeKey(k, 1)
	require.NotEqual(t, first, second)

	again := probeKey(k, 1)
	require.Equal(t, second, again)
}
