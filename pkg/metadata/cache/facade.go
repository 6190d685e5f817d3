package cache

import (
	"context"
	"time"
)

// handleKey derives the entry store's map key from a backend handle. The
// cache never interprets the handle's bytes beyond this; it is purely an
// identity for map lookups, the same convention this project's earlier
// directory cache used (cacheKey(handle) = string(handle)).
func handleKey(h Handle) Key {
	return Key(string(h))
}

// Cache implements Backend: it is the stacking facade of SPEC_FULL.md §4.4,
// answering from cache where it can and delegating to the wrapped backend
// otherwise, then folding the backend's answer back into the cache.
var _ Backend = (*Cache)(nil)

// resolveLive looks up and refs the entry for key, returning ErrStale if it
// is absent or unreachable. Callers must pair a successful resolveLive with
// c.store.put(e).
func (c *Cache) resolveLive(key Key) (*entry, error) {
	e, ok := c.store.lookup(key)
	if !ok {
		return nil, ErrStale
	}
	if !c.store.get(e) {
		return nil, ErrStale
	}
	return e, nil
}

func (c *Cache) insertOrRefresh(h Handle, attr Attr) *entry {
	key := handleKey(h)
	ttl, jitter := c.jitteredTTL()
	e := c.store.getOrCreate(key, func() *entry { return newEntry(key, h, attr.Type, attr, ttl, jitter) })
	c.store.refreshAttr(e, attr, ttl, jitter)
	c.engine.touch(e)
	c.store.put(e)
	return e
}

// Root bootstraps the cache's view of the backend's root object.
func (c *Cache) Root(ctx context.Context) (Handle, Attr, error) {
	if c.isShuttingDown() {
		return nil, Attr{}, ErrShutdown
	}
	h, attr, err := c.backend.Root(ctx)
	if err != nil {
		return nil, Attr{}, backendError("", err)
	}
	c.insertOrRefresh(h, attr)
	return h, attr, nil
}

// AssociateExport links the entry currently identified by h to the named
// export, creating the export if it does not exist yet. This establishes
// the export-map linkage described in SPEC_FULL.md §4.5; it is driven by
// mount/share setup code above the cache, not by the per-object Backend
// operations themselves, since those don't carry export context.
func (c *Cache) AssociateExport(name string, h Handle) {
	x := c.exports.getOrCreate(name)
	key := handleKey(h)

	e, ok := c.store.lookup(key)
	if !ok {
		return
	}
	if !c.store.get(e) {
		return
	}
	defer c.store.put(e)

	e.attrLock.Lock()
	associate(e, x)
	e.attrLock.Unlock()
}

// Unexport tears down export name following SPEC_FULL.md §4.5's mandated
// lock order (entry.attrLock before export.lock), pushing every
// now-orphaned entry to the cleanup queue.
func (c *Cache) Unexport(ctx context.Context, name string) error {
	x, ok := c.exports.get(name)
	if !ok {
		return nil
	}

	unexport(x,
		func(e *entry) bool { return c.store.get(e) },
		func(e *entry) { c.store.put(e) },
		func(e *entry) { c.engine.tryPushCleanup(e) },
	)

	c.exports.remove(name)
	return nil
}

// Lookup implements Backend.
func (c *Cache) Lookup(ctx context.Context, parentHandle Handle, name string) (Handle, Attr, error) {
	if c.isShuttingDown() {
		return nil, Attr{}, ErrShutdown
	}

	parentKey := handleKey(parentHandle)
	parent, err := c.resolveLive(parentKey)
	if err != nil {
		h, attr, berr := c.backend.Lookup(ctx, parentHandle, name)
		if berr != nil {
			return nil, Attr{}, backendError(parentKey, berr)
		}
		c.insertOrRefresh(h, attr)
		return h, attr, nil
	}
	defer c.store.put(parent)

	if parent.kind != FileTypeDirectory {
		return nil, Attr{}, newError(CodeNotExist, parentKey, "parent is not a directory")
	}

	parent.contentLock.RLock()
	var d *dirent
	complete := parent.complete
	if parent.dir != nil {
		d = parent.dir.lookupByName(name)
	}
	parent.contentLock.RUnlock()

	if d != nil {
		if child, cerr := c.resolveLive(d.childKey); cerr == nil {
			c.engine.touch(child)
			child.attrLock.RLock()
			attr := child.attr
			h := child.handle
			child.attrLock.RUnlock()
			c.store.put(child)
			return h, attr, nil
		}
		// Weak reference dangling (child was reclaimed): fall through
		// to the backend rather than trusting a stale dirent.
	} else if complete {
		return nil, Attr{}, newError(CodeNotExist, Key(name), "no such entry %q in directory %q", name, parentKey)
	}

	h, attr, berr := c.backend.Lookup(ctx, parentHandle, name)
	if berr != nil {
		return nil, Attr{}, backendError(parentKey, berr)
	}

	c.insertOrRefresh(h, attr)

	if parent.dir != nil {
		parent.contentLock.Lock()
		_, insErr := parent.insertDirent(name, handleKey(h))
		parent.contentLock.Unlock()
		if insErr != nil {
			c.reaper.queueReindex(parent)
		}
	}

	return h, attr, nil
}

// GetAttr implements Backend.
func (c *Cache) GetAttr(ctx context.Context, h Handle) (Attr, error) {
	if c.isShuttingDown() {
		return Attr{}, ErrShutdown
	}
	key := handleKey(h)

	e, err := c.resolveLive(key)
	if err == nil {
		defer c.store.put(e)
		e.attrLock.RLock()
		expired := e.attrExpired(time.Now())
		attr := e.attr
		e.attrLock.RUnlock()
		if !expired {
			c.engine.touch(e)
			return attr, nil
		}
	}

	attr, berr := c.backend.GetAttr(ctx, h)
	if berr != nil {
		return Attr{}, backendError(key, berr)
	}
	c.insertOrRefresh(h, attr)
	return attr, nil
}

// SetAttr implements Backend. Per SPEC_FULL.md §4.4, an attribute-only write
// is invalidated by bumping the attr expiry backward rather than by
// discarding the entry.
func (c *Cache) SetAttr(ctx context.Context, h Handle, s SetAttr) (Attr, error) {
	if c.isShuttingDown() {
		return Attr{}, ErrShutdown
	}
	key := handleKey(h)

	attr, berr := c.backend.SetAttr(ctx, h, s)
	if berr != nil {
		return Attr{}, backendError(key, berr)
	}

	if e, ok := c.store.lookup(key); ok {
		e.attrLock.Lock()
		e.attr = attr
		e.expiry = time.Now()
		e.attrLock.Unlock()
	}

	return attr, nil
}

// ReadDir implements Backend, materializing a page from the cached dirent
// index when the directory is marked complete, or delegating to the backend
// and populating the index otherwise. The cookie argument is honored on both
// paths: only dirents enumerated after it are returned, matching the cache's
// own chunk-relative cookie space rather than the backend's (SPEC_FULL.md
// §4.4). Callers that need cursor-invalidation detection should use
// ReadDirPage instead, which additionally returns a verifier.
func (c *Cache) ReadDir(ctx context.Context, h Handle, cookie uint64) ([]BackendDirEntry, bool, error) {
	page, err := c.readDirPage(ctx, h, cookie, 0, false)
	if err != nil {
		return nil, false, err
	}
	out := make([]BackendDirEntry, 0, len(page.Entries))
	for _, de := range page.Entries {
		out = append(out, BackendDirEntry{Name: de.Name, Handle: []byte(de.Key), Attr: de.Attr, Cookie: de.Cookie})
	}
	return out, !page.HasMore, nil
}

// ReadDirPage is the protocol-facing cursor API: it returns one page of
// directory listing after cookie plus a verifier tying that page to the
// directory's enumeration epoch at the time it was produced. A caller
// resuming a cursor should pass back the verifier it received; a mismatch
// means an invalidating upcall (create/unlink/rename in this directory)
// landed since the cursor was issued, per SPEC_FULL.md §4.4 and testable
// property S5, and the caller must restart from cookie zero.
func (c *Cache) ReadDirPage(ctx context.Context, h Handle, cookie, verifier uint64) (ReadDirPage, error) {
	return c.readDirPage(ctx, h, cookie, verifier, cookie != 0)
}

func (c *Cache) readDirPage(ctx context.Context, h Handle, cookie, verifier uint64, checkVerifier bool) (ReadDirPage, error) {
	if c.isShuttingDown() {
		return ReadDirPage{}, ErrShutdown
	}
	key := handleKey(h)

	e, err := c.resolveLive(key)
	if err != nil || e.kind != FileTypeDirectory {
		if err == nil {
			c.store.put(e)
		}
		rows, eof, berr := c.backend.ReadDir(ctx, h, cookie)
		if berr != nil {
			return ReadDirPage{}, backendError(key, berr)
		}
		for _, row := range rows {
			c.insertOrRefresh(row.Handle, row.Attr)
		}
		return rowsToPage(rows, eof, cookie), nil
	}
	defer c.store.put(e)

	if checkVerifier {
		e.contentLock.RLock()
		want := e.verifierFor(cookie)
		e.contentLock.RUnlock()
		if want != verifier {
			return ReadDirPage{}, newError(CodeConflict, key, "readdir verifier mismatch at cookie %d: cursor invalidated, restart from zero", cookie)
		}
	}

	e.contentLock.RLock()
	complete := e.complete
	e.contentLock.RUnlock()

	if !complete {
		return c.backendReadDirInto(ctx, h, cookie, key, e)
	}

	e.contentLock.RLock()
	live := e.dir.entriesAfterCookie(cookie)
	e.contentLock.RUnlock()

	out := make([]DirEntry, 0, len(live))
	for _, d := range live {
		child, cerr := c.resolveLive(d.childKey)
		if cerr != nil {
			continue
		}
		child.attrLock.RLock()
		attr := child.attr
		child.attrLock.RUnlock()
		c.store.put(child)

		out = append(out, DirEntry{Cookie: d.cookie, Name: d.name, Key: d.childKey, Attr: attr})
	}

	c.engine.touch(e)

	nextCookie := cookie
	if len(out) > 0 {
		nextCookie = out[len(out)-1].Cookie
	}
	e.contentLock.RLock()
	pageVerifier := e.verifierFor(nextCookie)
	e.contentLock.RUnlock()

	return ReadDirPage{Entries: out, Verifier: pageVerifier, NextCookie: nextCookie, HasMore: false}, nil
}

// rowsToPage adapts a raw backend row set (uncached directory, or a
// directory the cache does not track) into a ReadDirPage with a zero
// verifier: there is no chunk bookkeeping to invalidate against when the
// cache isn't holding the directory's dirent index.
func rowsToPage(rows []BackendDirEntry, eof bool, cookie uint64) ReadDirPage {
	out := make([]DirEntry, 0, len(rows))
	next := cookie
	for _, row := range rows {
		out = append(out, DirEntry{Cookie: row.Cookie, Name: row.Name, Key: handleKey(row.Handle), Attr: row.Attr})
		next = row.Cookie
	}
	return ReadDirPage{Entries: out, NextCookie: next, HasMore: !eof}
}

func (c *Cache) backendReadDirInto(ctx context.Context, h Handle, cookie uint64, key Key, e *entry) (ReadDirPage, error) {
	rows, eof, berr := c.backend.ReadDir(ctx, h, cookie)
	if berr != nil {
		return ReadDirPage{}, backendError(key, berr)
	}

	e.contentLock.Lock()
	if e.dir == nil {
		e.dir = newDirIndex(c.cfg.ProbeBound)
	}
	ch := e.openChunk()
	reindexNeeded := false
	out := make([]DirEntry, 0, len(rows))
	for _, row := range rows {
		d, insErr := e.insertDirent(row.Name, handleKey(row.Handle))
		if insErr != nil {
			reindexNeeded = true
			continue
		}
		out = append(out, DirEntry{Cookie: d.cookie, Name: d.name, Key: handleKey(row.Handle), Attr: row.Attr})
	}
	e.closeChunk(ch, eof)
	verifier := e.verifierFor(0)
	e.contentLock.Unlock()

	if reindexNeeded {
		c.reaper.queueReindex(e)
	}

	for _, row := range rows {
		c.insertOrRefresh(row.Handle, row.Attr)
	}

	next := cookie
	if len(out) > 0 {
		next = out[len(out)-1].Cookie
	}
	return ReadDirPage{Entries: out, Verifier: verifier, NextCookie: next, HasMore: !eof}, nil
}

// Create implements Backend.
func (c *Cache) Create(ctx context.Context, parentHandle Handle, name string, attr Attr) (Handle, Attr, error) {
	if c.isShuttingDown() {
		return nil, Attr{}, ErrShutdown
	}
	parentKey := handleKey(parentHandle)

	h, newAttr, berr := c.backend.Create(ctx, parentHandle, name, attr)
	if berr != nil {
		return nil, Attr{}, backendError(parentKey, berr)
	}

	c.insertOrRefresh(h, newAttr)

	if parent, ok := c.store.lookup(parentKey); ok && parent.dir != nil {
		parent.contentLock.Lock()
		_, insErr := parent.insertDirent(name, handleKey(h))
		parent.epoch++
		parent.contentLock.Unlock()
		if insErr != nil {
			c.reaper.queueReindex(parent)
		}
	}

	return h, newAttr, nil
}

// Unlink implements Backend: it tombstones the dirent and bumps the parent's
// enumeration epoch, invalidating any in-flight readdir cursor.
func (c *Cache) Unlink(ctx context.Context, parentHandle Handle, name string) error {
	if c.isShuttingDown() {
		return ErrShutdown
	}
	parentKey := handleKey(parentHandle)

	if berr := c.backend.Unlink(ctx, parentHandle, name); berr != nil {
		return backendError(parentKey, berr)
	}

	if parent, ok := c.store.lookup(parentKey); ok && parent.dir != nil {
		parent.contentLock.Lock()
		if d := parent.dir.lookupByName(name); d != nil {
			parent.dir.setDeleted(d)
			if child, ok := c.store.lookup(d.childKey); ok {
				c.store.markUnreachable(child)
			}
		}
		parent.epoch++
		parent.contentLock.Unlock()
	}

	return nil
}

// Rename implements Backend. Both parents' content_locks are acquired in a
// canonical order (lexicographic on key, standing in for "lower memory
// address first" since Go gives no address ordering on GC'd values) to
// prevent deadlock against a concurrent rename the other direction.
func (c *Cache) Rename(ctx context.Context, oldParentHandle Handle, oldName string, newParentHandle Handle, newName string) error {
	if c.isShuttingDown() {
		return ErrShutdown
	}
	oldParentKey := handleKey(oldParentHandle)
	newParentKey := handleKey(newParentHandle)

	if berr := c.backend.Rename(ctx, oldParentHandle, oldName, newParentHandle, newName); berr != nil {
		return backendError(oldParentKey, berr)
	}

	oldParent, oldOK := c.store.lookup(oldParentKey)
	newParent, newOK := c.store.lookup(newParentKey)

	first, second := oldParent, newParent
	firstOK, secondOK := oldOK, newOK
	if newParentKey < oldParentKey {
		first, second = newParent, oldParent
		firstOK, secondOK = newOK, oldOK
	}

	if firstOK && first.dir != nil {
		first.contentLock.Lock()
		defer first.contentLock.Unlock()
	}
	if secondOK && second != first && second.dir != nil {
		second.contentLock.Lock()
		defer second.contentLock.Unlock()
	}

	var childKey Key
	if oldOK && oldParent.dir != nil {
		if d := oldParent.dir.lookupByName(oldName); d != nil {
			childKey = d.childKey
			oldParent.dir.setDeleted(d)
		}
		oldParent.epoch++
	}
	if newOK && newParent.dir != nil && childKey != "" {
		if _, insErr := newParent.insertDirent(newName, childKey); insErr != nil {
			c.reaper.queueReindex(newParent)
		}
		newParent.epoch++
	}

	return nil
}

// Link implements Backend.
func (c *Cache) Link(ctx context.Context, parentHandle Handle, name string, target Handle) error {
	if c.isShuttingDown() {
		return ErrShutdown
	}
	parentKey := handleKey(parentHandle)

	if berr := c.backend.Link(ctx, parentHandle, name, target); berr != nil {
		return backendError(parentKey, berr)
	}

	if parent, ok := c.store.lookup(parentKey); ok && parent.dir != nil {
		parent.contentLock.Lock()
		_, insErr := parent.insertDirent(name, handleKey(target))
		parent.epoch++
		parent.contentLock.Unlock()
		if insErr != nil {
			c.reaper.queueReindex(parent)
		}
	}
	return nil
}

// Symlink implements Backend.
func (c *Cache) Symlink(ctx context.Context, parentHandle Handle, name, linkTarget string, attr Attr) (Handle, Attr, error) {
	if c.isShuttingDown() {
		return nil, Attr{}, ErrShutdown
	}
	parentKey := handleKey(parentHandle)

	h, newAttr, berr := c.backend.Symlink(ctx, parentHandle, name, linkTarget, attr)
	if berr != nil {
		return nil, Attr{}, backendError(parentKey, berr)
	}

	c.insertOrRefresh(h, newAttr)

	if parent, ok := c.store.lookup(parentKey); ok && parent.dir != nil {
		parent.contentLock.Lock()
		_, insErr := parent.insertDirent(name, handleKey(h))
		parent.epoch++
		parent.contentLock.Unlock()
		if insErr != nil {
			c.reaper.queueReindex(parent)
		}
	}

	return h, newAttr, nil
}

// Readlink implements Backend. Symlink targets are not cached: they are a
// single backend round trip already, and caching them would add a fourth
// kind of cached state for no measured benefit.
func (c *Cache) Readlink(ctx context.Context, h Handle) (string, error) {
	if c.isShuttingDown() {
		return "", ErrShutdown
	}
	target, berr := c.backend.Readlink(ctx, h)
	if berr != nil {
		return "", backendError(handleKey(h), berr)
	}
	return target, nil
}

// Open implements Backend, delegating directly: open state belongs to the
// backend, the cache only tracks that it exists via openState bookkeeping.
func (c *Cache) Open(ctx context.Context, h Handle, writable bool) (uint64, error) {
	if c.isShuttingDown() {
		return 0, ErrShutdown
	}
	id, berr := c.backend.Open(ctx, h, writable)
	if berr != nil {
		return 0, backendError(handleKey(h), berr)
	}
	if e, ok := c.store.lookup(handleKey(h)); ok {
		e.contentLock.Lock()
		e.openState = append(e.openState, openHandle{id: id, handle: h})
		e.contentLock.Unlock()
	}
	return id, nil
}

// Read implements Backend.
func (c *Cache) Read(ctx context.Context, h Handle, openID uint64, offset int64, buf []byte) (int, error) {
	if c.isShuttingDown() {
		return 0, ErrShutdown
	}
	n, berr := c.backend.Read(ctx, h, openID, offset, buf)
	if berr != nil {
		return n, backendError(handleKey(h), berr)
	}
	return n, nil
}

// Write implements Backend. A successful write bumps the entry's attribute
// expiry backward, per §4.4's "attribute-only writes bump the attr expiry
// backward" rule generalized to content writes changing size/mtime too.
func (c *Cache) Write(ctx context.Context, h Handle, openID uint64, offset int64, buf []byte) (int, error) {
	if c.isShuttingDown() {
		return 0, ErrShutdown
	}
	n, berr := c.backend.Write(ctx, h, openID, offset, buf)
	if berr != nil {
		return n, backendError(handleKey(h), berr)
	}
	if e, ok := c.store.lookup(handleKey(h)); ok {
		e.attrLock.Lock()
		e.expiry = time.Time{}
		e.attrLock.Unlock()
	}
	return n, nil
}

// Commit implements Backend.
func (c *Cache) Commit(ctx context.Context, h Handle, openID uint64) error {
	if c.isShuttingDown() {
		return ErrShutdown
	}
	if berr := c.backend.Commit(ctx, h, openID); berr != nil {
		return backendError(handleKey(h), berr)
	}
	return nil
}

// Close implements Backend.
func (c *Cache) Close(ctx context.Context, h Handle, openID uint64) error {
	if berr := c.backend.Close(ctx, h, openID); berr != nil {
		return backendError(handleKey(h), berr)
	}
	if e, ok := c.store.lookup(handleKey(h)); ok {
		e.contentLock.Lock()
		for i, oh := range e.openState {
			if oh.id == openID {
				e.openState = append(e.openState[:i], e.openState[i+1:]...)
				break
			}
		}
		e.contentLock.Unlock()
	}
	return nil
}

// Release implements Backend by forwarding to the wrapped backend. The
// cache's own entries are released by the reaper (reaper.go), not by this
// method; this exists only so *Cache satisfies Backend for a caller that
// holds it as a plain Backend reference.
func (c *Cache) Release(ctx context.Context, h Handle) error {
	return c.backend.Release(ctx, h)
}

// HandleDigest implements Backend by delegating: wire format is not the
// cache's concern, per SPEC_FULL.md §6.
func (c *Cache) HandleDigest(h Handle) []byte {
	return c.backend.HandleDigest(h)
}

// FSInfo implements Backend by forwarding unchanged.
func (c *Cache) FSInfo(ctx context.Context) (FSInfo, error) {
	info, err := c.backend.FSInfo(ctx)
	if err != nil {
		return FSInfo{}, backendError("", err)
	}
	return info, nil
}
