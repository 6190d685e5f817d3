package cache

import (
	"sync"
	"time"
)

// entryFlags are the bits described in SPEC_FULL.md §3's Entry attributes.
type entryFlags uint32

const (
	flagUnreachable entryFlags = 1 << iota
	flagInCleanup
)

// entry is the unit of cache: SPEC_FULL.md §3's "Entry". It carries three
// co-existing locks (attrLock, contentLock, stateLock) that must be acquired
// in the global order documented in doc.go, never out of order except on the
// single sanctioned unexport path (exportmap.go).
type entry struct {
	key     Key
	handle  Handle
	kind    FileType
	refcount int32
	flags   entryFlags

	// attrLock protects attr, expiry, flags, and the export-map linkage
	// (exports, firstExport) below.
	attrLock sync.RWMutex
	attr     Attr
	expiry   time.Time

	// contentLock protects dir (the dirent index, directories only),
	// chunks and cookieSeed (directory enumeration bookkeeping), and
	// openState (regular files only).
	contentLock sync.RWMutex
	dir         *dirIndex
	cookieSeed  uint64
	chunks      []*dirChunk
	complete    bool
	epoch       uint64
	openState   []openHandle

	// stateLock protects NFS locking/delegation/share state.
	stateLock sync.Mutex
	state     *lockState

	// lane is the LRU lane this entry was assigned at creation and never
	// migrates from (SPEC_FULL.md §4.3).
	lane *lruLane
	// lruElem is this entry's node in whichever of the lane's L1/L2 lists
	// it currently sits on, or nil if it is transiently on neither (only
	// possible momentarily under the lane lock).
	lruElem *lruElem

	// exports is the intrusive-list head of association records linking
	// this entry to the exports it is reachable through. firstExport is
	// always a member of exports and is swapped atomically on removal.
	exports     []*association
	firstExport *export
}

// openHandle is a placeholder for regular-file open state; the cache does
// not interpret it beyond bookkeeping ownership for close().
type openHandle struct {
	id     uint64
	handle Handle
}

// lockState is a placeholder for NFSv4 lock/delegation/share state
// associated with an entry; out of scope for this package's operations
// beyond providing the state_lock discipline the spec requires exist.
type lockState struct {
	delegationHeld bool
	locks          []byte
}

func newEntry(key Key, h Handle, kind FileType, attr Attr, ttl, jitter time.Duration) *entry {
	e := &entry{
		key:      key,
		handle:   h,
		kind:     kind,
		attr:     attr,
		expiry:   time.Now().Add(ttl + jitter),
		refcount: 0,
	}
	if kind == FileTypeDirectory {
		e.dir = newDirIndex(DefaultProbeBound)
	}
	return e
}

// unreachable reports whether the entry's flag is set. Caller must hold at
// least attrLock for reading.
func (e *entry) unreachable() bool {
	return e.flags&flagUnreachable != 0
}

func (e *entry) setUnreachable() {
	e.flags |= flagUnreachable
}

func (e *entry) inCleanup() bool {
	return e.flags&flagInCleanup != 0
}

func (e *entry) setInCleanup(v bool) {
	if v {
		e.flags |= flagInCleanup
	} else {
		e.flags &^= flagInCleanup
	}
}

func (e *entry) attrExpired(now time.Time) bool {
	return now.After(e.expiry)
}
