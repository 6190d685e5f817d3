package cache

import (
	"container/list"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// lruElem records which of a lane's two lists an entry currently occupies,
// so touch/remove do not need to search both.
type lruElem struct {
	elem *list.Element
	inL1 bool
}

// lruLane is one shard of the multi-lane LRU described in SPEC_FULL.md §4.3:
// its own mutex, its own hot (L1) and cold (L2) lists. An entry is assigned
// to exactly one lane for its lifetime; it is never rebalanced across lanes.
//
// L1 and L2 store *entry values directly in list.Element.Value, mirroring
// this project's earlier container/list-based directory-listing cache,
// generalized here to two queues per lane.
type lruLane struct {
	mu       sync.Mutex
	l1       *list.List // hot
	l2       *list.List // cold, reclaim candidates
	hotCount int
	hotLimit int
}

func newLruLane(hotLimit int) *lruLane {
	return &lruLane{
		l1:       list.New(),
		l2:       list.New(),
		hotLimit: hotLimit,
	}
}

// laneIndex hashes key to a lane number in [0, numLanes).
func laneIndex(key Key, numLanes int) int {
	if numLanes <= 1 {
		return 0
	}
	return int(xxhash.Sum64String(string(key)) % uint64(numLanes))
}

// insertNew places a freshly created entry at the front of L2: it has been
// observed once and is a reclaim candidate until a second access promotes
// it, approximating 2Q's admission of new pages into the cold queue first.
func (l *lruLane) insertNew(e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	el := l.l2.PushFront(e)
	e.lruElem = &lruElem{elem: el, inL1: false}
}

// touch records an access to e, promoting it from L2 to L1 or refreshing its
// L1 position, and demotes the lane's coldest L1 members back to L2 once the
// lane's hot counter overflows hotLimit. This is the two-queue design's
// substitute for a global clock hand.
func (l *lruLane) touch(e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	le := e.lruElem
	if le == nil {
		// Entry is transiently on no list (e.g. mid-reclaim elsewhere);
		// nothing to touch.
		return
	}

	if le.inL1 {
		l.l1.MoveToFront(le.elem)
	} else {
		l.l2.Remove(le.elem)
		le.elem = l.l1.PushFront(e)
		le.inL1 = true
	}

	l.hotCount++
	if l.hotCount >= l.hotLimit {
		l.demoteColdest()
		l.hotCount = 0
	}
}

// demoteColdest moves the single coldest L1 entry back to L2. Caller must
// hold l.mu.
func (l *lruLane) demoteColdest() {
	back := l.l1.Back()
	if back == nil {
		return
	}
	e := back.Value.(*entry)
	l.l1.Remove(back)
	el := l.l2.PushFront(e)
	e.lruElem = &lruElem{elem: el, inL1: false}
}

// remove unlinks e from whichever list it occupies. Safe to call even if e
// is already off both lists.
func (l *lruLane) remove(e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removeLocked(e)
}

func (l *lruLane) removeLocked(e *entry) {
	le := e.lruElem
	if le == nil {
		return
	}
	if le.inL1 {
		l.l1.Remove(le.elem)
	} else {
		l.l2.Remove(le.elem)
	}
	e.lruElem = nil
}

// reclaimCandidates returns a snapshot of L2, tail (coldest) first, for the
// reaper to walk. It copies rather than holding the lane lock across the
// reaper's per-entry work, since acquiring an entry's attrLock while holding
// the lane lock would invert the global lock order if the reaper then had to
// wait.
func (l *lruLane) reclaimCandidates() []*entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*entry, 0, l.l2.Len())
	for el := l.l2.Back(); el != nil; el = el.Prev() {
		out = append(out, el.Value.(*entry))
	}
	return out
}
