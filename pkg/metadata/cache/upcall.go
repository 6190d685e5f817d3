package cache

import (
	"context"
	"sync"
	"time"

	"github.com/nimbusnfs/nimbusnfs/internal/logger"
)

// delayedExecutor is the bounded worker pool upcall.go's handlers offload
// follow-up work to, so the synchronous portion of an upcall (lookup + flag
// flip) never itself performs anything that could block on the backend,
// per SPEC_FULL.md §4.6. Its shape (fixed worker goroutines, a stopCh, and a
// WaitGroup to join them) follows this project's pkg/gc.Collector idiom.
type delayedExecutor struct {
	jobs    chan func()
	workers int
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func newDelayedExecutor(workers int) *delayedExecutor {
	if workers <= 0 {
		workers = 1
	}
	return &delayedExecutor{
		jobs:    make(chan func(), 256),
		workers: workers,
		stopCh:  make(chan struct{}),
	}
}

func (d *delayedExecutor) start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *delayedExecutor) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobs:
			job()
		case <-d.stopCh:
			return
		}
	}
}

// submit enqueues job for background execution. It never blocks the caller
// on worker availability for more than filling the (large) buffered
// channel; if the executor has already stopped, the job is dropped.
func (d *delayedExecutor) submit(job func()) {
	select {
	case d.jobs <- job:
	case <-d.stopCh:
	}
}

func (d *delayedExecutor) stop(ctx context.Context) error {
	close(d.stopCh)
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// upcallSink adapts a *Cache to the Upcalls interface. It exists as a
// separate type, rather than putting these methods directly on *Cache,
// because one of them (Rename) would otherwise collide with the unrelated
// Backend.Rename method Cache already implements in facade.go — Go does not
// allow two methods of the same name on one type, even with different
// signatures.
type upcallSink struct {
	c *Cache
}

var _ Upcalls = (*upcallSink)(nil)

// Invalidate implements Upcalls. If key is unknown to the cache the upcall
// is simply dropped, per §4.6: there is nothing cached to invalidate. When
// known, the synchronous portion is serialized by the entry's attrLock in
// write mode — this package's resolution of the "upcall ordering per entry"
// open question (SPEC_FULL.md §9).
func (s *upcallSink) Invalidate(key Key, what UpcallInvalidateKind) {
	c := s.c
	e, ok := c.store.lookup(key)
	if !ok {
		logger.Debug("mdcache: invalidate upcall for unknown key %q dropped", key)
		return
	}

	e.attrLock.Lock()
	if what == InvalidateAttrs {
		e.expiry = time.Time{}
	}
	e.attrLock.Unlock()

	if what == InvalidateContent && e.kind == FileTypeDirectory {
		e.contentLock.Lock()
		if e.dir != nil {
			e.dir.cleanTree()
		}
		e.complete = false
		e.epoch++
		e.contentLock.Unlock()
	}

	c.delayed.submit(func() {
		logger.Debug("mdcache: processed invalidate upcall for %q", key)
	})
}

// Rename implements Upcalls: it tombstones the old dirent (if the old
// parent directory is cached) and bumps both parents' enumeration epochs,
// invalidating any in-flight readdir cursor over either directory.
func (s *upcallSink) Rename(oldParentKey Key, oldName string, newParentKey Key, newName string) {
	c := s.c
	if p, ok := c.store.lookup(oldParentKey); ok && p.kind == FileTypeDirectory {
		p.contentLock.Lock()
		if p.dir != nil {
			if d := p.dir.lookupByName(oldName); d != nil {
				p.dir.setDeleted(d)
			}
		}
		p.epoch++
		p.contentLock.Unlock()
	}

	if newParentKey != oldParentKey {
		if np, ok := c.store.lookup(newParentKey); ok && np.kind == FileTypeDirectory {
			np.contentLock.Lock()
			np.epoch++
			np.contentLock.Unlock()
		}
	}

	c.delayed.submit(func() {
		logger.Debug("mdcache: processed rename-notify %q/%q -> %q/%q", oldParentKey, oldName, newParentKey, newName)
	})
}

// DelegationRecall implements Upcalls.
func (s *upcallSink) DelegationRecall(key Key) {
	c := s.c
	e, ok := c.store.lookup(key)
	if !ok {
		return
	}
	e.stateLock.Lock()
	if e.state != nil {
		e.state.delegationHeld = false
	}
	e.stateLock.Unlock()

	c.delayed.submit(func() {
		logger.Debug("mdcache: processed delegation recall for %q", key)
	})
}

// Grant implements Upcalls.
func (s *upcallSink) Grant(key Key, kind DelegationKind) {
	c := s.c
	e, ok := c.store.lookup(key)
	if !ok {
		return
	}
	e.stateLock.Lock()
	if e.state == nil {
		e.state = &lockState{}
	}
	e.state.delegationHeld = true
	e.stateLock.Unlock()
}
