package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAssociateThenUnexportOrphansAndPushesCleanup(t *testing.T) {
	c, ctx := newTestCache(t)

	root, _, err := c.Root(ctx)
	require.NoError(t, err)

	c.AddExport("share1")
	c.AssociateExport("share1", root)

	e, ok := c.store.lookup(handleKey(root))
	require.True(t, ok)
	e.attrLock.RLock()
	require.Len(t, e.exports, 1)
	require.NotNil(t, e.firstExport)
	e.attrLock.RUnlock()

	require.NoError(t, c.Unexport(ctx, "share1"))

	e.attrLock.RLock()
	require.Empty(t, e.exports)
	require.Nil(t, e.firstExport)
	e.attrLock.RUnlock()
}

func TestUnexportIsSafeUnderConcurrentAssociate(t *testing.T) {
	c, ctx := newTestCache(t)

	root, _, err := c.Root(ctx)
	require.NoError(t, err)
	c.AddExport("share1")

	handles := make([]Handle, 0, 10)
	for i := 0; i < 10; i++ {
		h, _, err := c.Create(ctx, root, string(rune('a'+i)), Attr{Type: FileTypeRegular})
		require.NoError(t, err)
		handles = append(handles, h)
	}

	done := make(chan struct{})
	go func() {
		for _, h := range handles {
			c.AssociateExport("share1", h)
		}
		close(done)
	}()

	require.NoError(t, c.Unexport(context.Background(), "share1"))
	<-done

	_, ok := c.exports.get("share1")
	require.False(t, ok)
}

func TestAssociateExportOnUnknownExportDoesNotPanic(t *testing.T) {
	c, ctx := newTestCache(t)
	root, _, err := c.Root(ctx)
	require.NoError(t, err)

	require.NotPanics(t, func() {
		c.AssociateExport("never-added", root)
	})

	require.NoError(t, c.Unexport(ctx, "never-added"))
}

func TestShutdownIsIdempotent(t *testing.T) {
	c, ctx := newTestCache(t)
	_, _, err := c.Root(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Shutdown(ctx))
	require.NoError(t, c.Shutdown(ctx))
}

func TestShutdownTimesOutOnStalledStage(t *testing.T) {
	c, _ := newTestCache(t)
	c.cfg.ShutdownStageTimeout = 10 * time.Millisecond

	blocked := make(chan struct{})
	c.delayed.submit(func() {
		<-blocked
	})
	defer close(blocked)

	err := c.Shutdown(context.Background())
	require.ErrorIs(t, err, ErrShutdown)
}
