package cache

import "sort"

// dirent is a single child-name mapping inside a directory's index. The
// child pointer is intentionally a weak reference (see SPEC_FULL.md §9,
// "Cycles"): only the child's Key is stored, and callers re-resolve it
// through the entry store on demand rather than holding a strong pointer
// that would keep the child alive independent of its own refcount.
type dirent struct {
	name      string
	hashKey   uint64 // the base hash k, before probing
	probeKey  uint64 // the actual key this dirent occupies in the AVL
	childKey  Key
	cookie    uint64 // cache-assigned enumeration cookie, 0 until first assigned
	deleted   bool
}

// LookupFlags controls tombstone visibility for lookup_by_key.
type LookupFlags int

const (
	// LookupActiveOnly returns nil for a tombstoned dirent.
	LookupActiveOnly LookupFlags = iota
	// LookupIncludeDeleted returns a tombstoned dirent too.
	LookupIncludeDeleted
)

// dirIndex is the AVL-backed, quadratic-probed name index owned by a
// directory entry. It is protected by the owning entry's contentLock; it has
// no lock of its own (SPEC_FULL.md's global lock order lists "dirent-index
// internal locks" last precisely because none exist in the common case — the
// content lock already serializes access).
type dirIndex struct {
	root       *avlNode
	probeBound int
	// reindex is set when an insert has exhausted the probe bound; the
	// reaper is expected to notice it and rebuild the directory from a
	// fresh backend readdir.
	reindex bool
}

func newDirIndex(probeBound int) *dirIndex {
	if probeBound <= 0 {
		probeBound = DefaultProbeBound
	}
	return &dirIndex{probeBound: probeBound}
}

// insert computes the base hash for name, probes for a free or reusable
// slot, and inserts a new dirent. It returns ErrTooManyCollisions if the
// probe bound is exhausted, in which case the directory is marked for
// reindex and the caller (the stacking facade) is expected to report the
// miss as NOENT to force a backend retry, per SPEC_FULL.md §7.
func (idx *dirIndex) insert(name string, childKey Key) (*dirent, error) {
	return idx.insertAtHash(direntHash(name), name, childKey)
}

// insertAtHash is insert with the base hash k supplied by the caller instead
// of computed from name. Production code always goes through insert; this
// split exists so a test can force a chosen collision class without
// depending on a specific hash function's output.
func (idx *dirIndex) insertAtHash(k uint64, name string, childKey Key) (*dirent, error) {
	for j := 0; j < idx.probeBound; j++ {
		pk := probeKey(k, j)
		existing := avlFind(idx.root, pk)

		if existing == nil {
			d := &dirent{name: name, hashKey: k, probeKey: pk, childKey: childKey}
			idx.root = avlInsert(idx.root, pk, d)
			return d, nil
		}

		// Tie-break: a tombstoned slot holding the same name is reused
		// rather than probing further and creating a duplicate.
		if existing.dirent.deleted && existing.dirent.name == name {
			existing.dirent.deleted = false
			existing.dirent.childKey = childKey
			return existing.dirent, nil
		}

		if existing.dirent.name == name && !existing.dirent.deleted {
			// Already present and live: idempotent insert.
			return existing.dirent, nil
		}
	}

	idx.reindex = true
	return nil, newError(CodeTooManyCollisions, Key(name), "probe bound %d exceeded for %q", idx.probeBound, name)
}

// lookupByName returns the live, non-tombstoned dirent named name, or nil.
// While the directory is marked for reindex, the probe sequence itself is
// suspect (it may be the very one that exhausted the bound), so lookups
// degrade to a linear scan of the tree until the reaper rebuilds it — the
// fallback SPEC_FULL.md §4.1 requires alongside TOO_MANY_COLLISIONS.
func (idx *dirIndex) lookupByName(name string) *dirent {
	if idx.reindex {
		return idx.linearLookupByName(name)
	}

	k := direntHash(name)
	for j := 0; j < idx.probeBound; j++ {
		pk := probeKey(k, j)
		n := avlFind(idx.root, pk)
		if n == nil {
			return nil
		}
		if n.dirent.name == name {
			if n.dirent.deleted {
				return nil
			}
			return n.dirent
		}
	}
	return nil
}

// linearLookupByName walks every live dirent in the tree looking for name,
// ignoring the probe sequence entirely. O(n) in the directory's size; used
// only as the degraded fallback while idx.reindex is set.
func (idx *dirIndex) linearLookupByName(name string) *dirent {
	for _, d := range idx.entries() {
		if d.name == name {
			return d
		}
	}
	return nil
}

// lookupByKey does a direct probed-key lookup, used by cookie-based readdir
// restart to re-locate the dirent a cookie referred to without recomputing
// the probe sequence from a name.
func (idx *dirIndex) lookupByKey(k uint64, flags LookupFlags) *dirent {
	n := avlFind(idx.root, k)
	if n == nil {
		return nil
	}
	if n.dirent.deleted && flags == LookupActiveOnly {
		return nil
	}
	return n.dirent
}

// setDeleted tombstones d in place. The AVL node is left in the tree so the
// slot stays reserved (preventing re-insertion elsewhere in the probe
// sequence) until the directory is revalidated or reindexed.
func (idx *dirIndex) setDeleted(d *dirent) {
	d.deleted = true
}

// cleanTree discards the entire index. Used only when the directory is being
// torn down (reclaimed by the reaper) or fully reindexed after a
// TOO_MANY_COLLISIONS event.
func (idx *dirIndex) cleanTree() {
	idx.root = nil
	idx.reindex = false
}

// entries returns every live dirent in hash-key order, for enumeration by
// the stacking facade's readdir path when it must materialize a chunk from
// the in-memory index rather than the backend.
func (idx *dirIndex) entries() []*dirent {
	all := avlInOrder(idx.root, nil)
	live := make([]*dirent, 0, len(all))
	for _, d := range all {
		if !d.deleted {
			live = append(live, d)
		}
	}
	return live
}

// entriesAfterCookie returns every live dirent with cookie > after, sorted
// by cookie ascending, for readdir pagination against the cache's own
// chunk-relative cookies rather than the backend's.
func (idx *dirIndex) entriesAfterCookie(after uint64) []*dirent {
	live := idx.entries()
	out := make([]*dirent, 0, len(live))
	for _, d := range live {
		if d.cookie > after {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].cookie < out[j].cookie })
	return out
}
