package cache

import "sort"

// dirChunk is a contiguous run of cache-assigned cookies filled by a single
// backend ReadDir call, per SPEC_FULL.md §3's "Directory chunk / cookie":
// cookies are monotonic within a chunk, and a directory's chunks partition
// its cookie space without overlap. Cookie 0 is reserved for "start of
// directory" and is never assigned to a dirent.
type dirChunk struct {
	startCookie uint64
	endCookie   uint64
	epoch       uint64
	eof         bool
}

// nextCookie draws the next monotonically increasing enumeration cookie for
// e. Caller must hold e.contentLock for writing.
func (e *entry) nextCookie() uint64 {
	e.cookieSeed++
	return e.cookieSeed
}

// openChunk begins a new dirChunk starting just past e's current cookie
// seed, tagged with e's current epoch. Caller must hold e.contentLock for
// writing and must pair it with closeChunk once the backend call that fills
// it returns.
func (e *entry) openChunk() *dirChunk {
	ch := &dirChunk{startCookie: e.cookieSeed + 1, epoch: e.epoch}
	e.chunks = append(e.chunks, ch)
	return ch
}

// closeChunk finalizes ch against e's cookie seed as it stands after filling
// and records whether the backend reported end-of-directory for that fetch.
// e.complete is only raised once the accumulated chunks contiguously cover
// the cookie space from 1 through an eof chunk, per SPEC_FULL.md §3 — a
// partial fetch never flips it early. Caller must hold e.contentLock.
func (e *entry) closeChunk(ch *dirChunk, eof bool) {
	ch.endCookie = e.cookieSeed
	ch.eof = eof
	if eof && e.chunksContiguous() {
		e.complete = true
	}
}

// chunksContiguous reports whether e.chunks, taken together, form one
// unbroken cookie range starting at 1 with no gap and no overlap. An empty
// chunk (startCookie > endCookie, i.e. a fetch that returned zero rows) is
// treated as covering no range and is skipped. A chunk filled under an
// epoch older than e's current one is also skipped: an invalidating upcall
// landed partway through a multi-call enumeration, so that earlier chunk no
// longer represents a trustworthy slice of the directory and must not count
// toward completeness. Caller must hold e.contentLock.
func (e *entry) chunksContiguous() bool {
	nonEmpty := make([]*dirChunk, 0, len(e.chunks))
	for _, ch := range e.chunks {
		if ch.endCookie >= ch.startCookie && ch.epoch == e.epoch {
			nonEmpty = append(nonEmpty, ch)
		}
	}
	if len(nonEmpty) == 0 {
		// A directory with no dirents at all is complete once its single
		// (empty) chunk reports eof; the caller handles that case before
		// calling chunksContiguous by checking len(e.chunks) directly.
		return len(e.chunks) == 1
	}

	sort.Slice(nonEmpty, func(i, j int) bool { return nonEmpty[i].startCookie < nonEmpty[j].startCookie })
	if nonEmpty[0].startCookie != 1 {
		return false
	}
	for i := 1; i < len(nonEmpty); i++ {
		if nonEmpty[i].startCookie != nonEmpty[i-1].endCookie+1 {
			return false
		}
	}
	return true
}

// insertDirent inserts name into e's dirent index and assigns it a cookie if
// it does not already have one (a tombstone reuse or an idempotent re-insert
// keeps its original cookie, preserving cursor stability across the same
// name being re-observed). Caller must hold e.contentLock for writing.
func (e *entry) insertDirent(name string, childKey Key) (*dirent, error) {
	d, err := e.dir.insert(name, childKey)
	if err != nil {
		return nil, err
	}
	if d.cookie == 0 {
		d.cookie = e.nextCookie()
	}
	return d, nil
}

// verifierFor returns the cursor-invalidation verifier for cookie: e's
// current enumeration epoch. The epoch is directory-wide rather than
// per-chunk (SPEC_FULL.md §3's "chunk-validity epoch" validates every chunk
// against one counter) and is bumped on every namespace change to the
// directory (create/unlink/rename — see facade.go), so any such change
// since a cursor was issued changes the verifier a later call computes for
// the same cookie, signalling the client to restart from cookie zero per
// §4.4 and testable property S5. The cookie argument is accepted for
// symmetry with a future finer-grained scheme but does not currently affect
// the result. Caller must hold at least e.contentLock for reading.
func (e *entry) verifierFor(cookie uint64) uint64 {
	return e.epoch
}
