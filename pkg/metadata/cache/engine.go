package cache

import "sync"

// lruEngine owns the full set of LRU lanes plus the dedicated cleanup queue
// described in SPEC_FULL.md §4.3. It is the "LRU engine" component; the
// reaper (reaper.go) drives it from a background goroutine.
type lruEngine struct {
	lanes []*lruLane

	cleanupMu    sync.Mutex
	cleanupQueue []*entry
}

func newLruEngine(numLanes, hotLimit int) *lruEngine {
	if numLanes <= 0 {
		numLanes = 1
	}
	lanes := make([]*lruLane, numLanes)
	for i := range lanes {
		lanes[i] = newLruLane(hotLimit)
	}
	return &lruEngine{lanes: lanes}
}

func (en *lruEngine) laneFor(key Key) *lruLane {
	return en.lanes[laneIndex(key, len(en.lanes))]
}

// admit assigns e to its permanent lane and inserts it as a fresh, cold
// entry. Called exactly once, at entry creation.
func (en *lruEngine) admit(e *entry) {
	lane := en.laneFor(e.key)
	e.lane = lane
	lane.insertNew(e)
}

// touch records an access to e for LRU purposes.
func (en *lruEngine) touch(e *entry) {
	if e.lane != nil {
		e.lane.touch(e)
	}
}

// tryPushCleanup implements cleanup_try_push (SPEC_FULL.md §4.3): the sole
// eviction path that bypasses LRU age, used when an entry's last export
// association is removed. The caller must NOT hold e.attrLock; this function
// takes the lane lock before the entry's attrLock, exactly the order the
// spec calls out as the cleanup path's own local exception baked into the
// global order (lane lock is always first regardless).
func (en *lruEngine) tryPushCleanup(e *entry) {
	lane := e.lane
	if lane == nil {
		return
	}

	lane.mu.Lock()
	e.attrLock.Lock()

	pushed := false
	if e.refcount == 0 && !e.inCleanup() {
		lane.removeLocked(e)
		e.setInCleanup(true)
		pushed = true
	}

	e.attrLock.Unlock()
	lane.mu.Unlock()

	if pushed {
		en.cleanupMu.Lock()
		en.cleanupQueue = append(en.cleanupQueue, e)
		en.cleanupMu.Unlock()
	}
}

// drainCleanup returns and clears the current cleanup queue contents for the
// reaper to process.
func (en *lruEngine) drainCleanup() []*entry {
	en.cleanupMu.Lock()
	defer en.cleanupMu.Unlock()
	if len(en.cleanupQueue) == 0 {
		return nil
	}
	out := en.cleanupQueue
	en.cleanupQueue = nil
	return out
}

// remove unlinks e from its lane unconditionally. Used by the reaper once an
// entry has actually been reclaimed.
func (en *lruEngine) remove(e *entry) {
	if e.lane != nil {
		e.lane.remove(e)
	}
}
