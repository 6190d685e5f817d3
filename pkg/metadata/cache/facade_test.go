package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nimbusnfs/nimbusnfs/pkg/metadata/cache/backend/mem"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, context.Context) {
	t.Helper()
	backend := mem.New()
	cfg := Config{
		Lanes:              3,
		ProbeBound:         8,
		AttrTTL:            50 * time.Millisecond,
		AttrJitterFraction: 0,
		ReaperInterval:     20 * time.Millisecond,
		HotCounterLimit:    4,
	}
	c := New(cfg, backend)
	c.Start()
	t.Cleanup(func() {
		_ = c.Shutdown(context.Background())
	})
	return c, context.Background()
}

func TestLookupCreatePopulatesDirIndex(t *testing.T) {
	c, ctx := newTestCache(t)

	root, _, err := c.Root(ctx)
	require.NoError(t, err)

	childHandle, _, err := c.Create(ctx, root, "a.txt", Attr{Type: FileTypeRegular, Mode: 0o644})
	require.NoError(t, err)

	h, attr, err := c.Lookup(ctx, root, "a.txt")
	require.NoError(t, err)
	require.Equal(t, childHandle, h)
	require.Equal(t, FileTypeRegular, attr.Type)

	_, _, err = c.Lookup(ctx, root, "missing")
	require.Error(t, err)
}

func TestReadDirServesFromCompleteIndexAfterFirstListing(t *testing.T) {
	c, ctx := newTestCache(t)

	root, _, err := c.Root(ctx)
	require.NoError(t, err)

	for _, name := range []string{"one", "two", "three"} {
		_, _, err := c.Create(ctx, root, name, Attr{Type: FileTypeRegular})
		require.NoError(t, err)
	}

	rows, eof, err := c.ReadDir(ctx, root, 0)
	require.NoError(t, err)
	require.True(t, eof)
	require.Len(t, rows, 3)

	e, ok := c.store.lookup(handleKey(root))
	require.True(t, ok)
	e.contentLock.RLock()
	complete := e.complete
	e.contentLock.RUnlock()
	require.True(t, complete)

	rows2, eof2, err := c.ReadDir(ctx, root, 0)
	require.NoError(t, err)
	require.True(t, eof2)
	require.Len(t, rows2, 3)
}

func TestUnlinkTombstonesDirentAndMarksChildUnreachable(t *testing.T) {
	c, ctx := newTestCache(t)

	root, _, err := c.Root(ctx)
	require.NoError(t, err)

	childHandle, _, err := c.Create(ctx, root, "gone.txt", Attr{Type: FileTypeRegular})
	require.NoError(t, err)

	require.NoError(t, c.Unlink(ctx, root, "gone.txt"))

	_, _, err = c.Lookup(ctx, root, "gone.txt")
	require.Error(t, err)

	child, ok := c.store.lookup(handleKey(childHandle))
	require.True(t, ok)
	require.True(t, child.unreachable())
}

func TestRenameMovesDirentBetweenParents(t *testing.T) {
	c, ctx := newTestCache(t)

	root, _, err := c.Root(ctx)
	require.NoError(t, err)

	dirHandle, _, err := c.Create(ctx, root, "dir", Attr{Type: FileTypeDirectory})
	require.NoError(t, err)

	fileHandle, _, err := c.Create(ctx, root, "f.txt", Attr{Type: FileTypeRegular})
	require.NoError(t, err)

	require.NoError(t, c.Rename(ctx, root, "f.txt", dirHandle, "f.txt"))

	_, _, err = c.Lookup(ctx, root, "f.txt")
	require.Error(t, err)

	h, _, err := c.Lookup(ctx, dirHandle, "f.txt")
	require.NoError(t, err)
	require.Equal(t, fileHandle, h)
}

func TestGetAttrServesCachedValueUntilTTLExpires(t *testing.T) {
	c, ctx := newTestCache(t)

	root, _, err := c.Root(ctx)
	require.NoError(t, err)

	h, _, err := c.Create(ctx, root, "f.txt", Attr{Type: FileTypeRegular, Mode: 0o600})
	require.NoError(t, err)

	attr, err := c.GetAttr(ctx, h)
	require.NoError(t, err)
	require.Equal(t, uint32(0o600), attr.Mode)

	time.Sleep(80 * time.Millisecond)

	attr, err = c.GetAttr(ctx, h)
	require.NoError(t, err)
	require.Equal(t, uint32(0o600), attr.Mode)
}

func TestReadDirPageVerifierMismatchAfterInvalidatingCreateForcesRestart(t *testing.T) {
	c, ctx := newTestCache(t)

	root, _, err := c.Root(ctx)
	require.NoError(t, err)

	_, _, err = c.Create(ctx, root, "a.txt", Attr{Type: FileTypeRegular})
	require.NoError(t, err)

	page, err := c.ReadDirPage(ctx, root, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	require.NotZero(t, page.Verifier)

	_, _, err = c.Create(ctx, root, "b.txt", Attr{Type: FileTypeRegular})
	require.NoError(t, err)

	_, err = c.ReadDirPage(ctx, root, page.NextCookie, page.Verifier)
	require.Error(t, err)
	var cerr *CacheError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, CodeConflict, cerr.Code)

	fresh, err := c.ReadDirPage(ctx, root, 0, 0)
	require.NoError(t, err)
	require.Len(t, fresh.Entries, 2)
}

func TestReaperReindexesDirectoryAfterTooManyCollisions(t *testing.T) {
	c, ctx := newTestCache(t)

	root, _, err := c.Root(ctx)
	require.NoError(t, err)

	_, _, err = c.Create(ctx, root, "real.txt", Attr{Type: FileTypeRegular})
	require.NoError(t, err)

	e, ok := c.store.lookup(handleKey(root))
	require.True(t, ok)

	e.contentLock.Lock()
	for i := 0; i < e.dir.probeBound; i++ {
		name := fmt.Sprintf("forced-%d", i)
		_, err := e.dir.insertAtHash(0xDEAD, name, Key(name))
		require.NoError(t, err)
	}
	_, insErr := e.dir.insertAtHash(0xDEAD, "forced-overflow", Key("forced-overflow"))
	require.Error(t, insErr)
	require.True(t, e.dir.reindex)
	e.contentLock.Unlock()

	c.reaper.queueReindex(e)
	c.reaper.runCycle()

	e.contentLock.RLock()
	reindexFlag := e.dir.reindex
	liveNames := make(map[string]bool)
	for _, d := range e.dir.entries() {
		liveNames[d.name] = true
	}
	e.contentLock.RUnlock()

	require.False(t, reindexFlag)
	require.True(t, liveNames["real.txt"])
	require.False(t, liveNames["forced-0"])
}

func TestWriteReadRoundTrip(t *testing.T) {
	c, ctx := newTestCache(t)

	root, _, err := c.Root(ctx)
	require.NoError(t, err)

	h, _, err := c.Create(ctx, root, "f.txt", Attr{Type: FileTypeRegular})
	require.NoError(t, err)

	id, err := c.Open(ctx, h, true)
	require.NoError(t, err)

	n, err := c.Write(ctx, h, id, 0, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = c.Read(ctx, h, id, 0, buf)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))

	require.NoError(t, c.Close(ctx, h, id))
}
