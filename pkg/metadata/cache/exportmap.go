package cache

import "sync"

// export is a name-space root made visible to clients, wrapping one backend
// export (SPEC_FULL.md GLOSSARY, "Export"). It owns the intrusive list of
// associations linking it to the entries reachable through it.
type export struct {
	name string

	// lock is the "export mdc_exp_lock" named in the global lock order in
	// doc.go: position 4, after an entry's contentLock and before its
	// stateLock, except on the unexport path where it is taken after the
	// entry's attrLock specifically (see Unexport below).
	lock sync.Mutex

	associations []*association
}

// association is the many-to-many link record between one entry and one
// export. It owns no data of its own beyond the two sides it links.
type association struct {
	entry  *entry
	export *export
}

func newExport(name string) *export {
	return &export{name: name}
}

// exportMap owns every export known to the cache, keyed by name.
type exportMap struct {
	mu      sync.RWMutex
	exports map[string]*export
}

func newExportMap() *exportMap {
	return &exportMap{exports: make(map[string]*export)}
}

func (m *exportMap) getOrCreate(name string) *export {
	m.mu.Lock()
	defer m.mu.Unlock()
	if x, ok := m.exports[name]; ok {
		return x
	}
	x := newExport(name)
	m.exports[name] = x
	return x
}

func (m *exportMap) get(name string) (*export, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	x, ok := m.exports[name]
	return x, ok
}

func (m *exportMap) remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.exports, name)
}

// associate links e to x, creating the association record and appending it
// to both intrusive lists. If e currently has no first-export, x becomes it.
// Caller must hold e.attrLock for writing.
func associate(e *entry, x *export) *association {
	a := &association{entry: e, export: x}

	x.lock.Lock()
	x.associations = append(x.associations, a)
	x.lock.Unlock()

	e.exports = append(e.exports, a)
	if e.firstExport == nil {
		e.firstExport = x
	}
	return a
}

// unexport implements SPEC_FULL.md §4.5's teardown walk for export x: for
// every association from x, take a ref on the linked entry, acquire
// entry.attrLock then export.lock (the one place this order is mandatory,
// ahead of the export lock rather than after it), remove the association
// from both sides, atomically repoint firstExport, release in reverse, and
// push the entry to cleanup if it is now orphaned of all exports.
//
// The caller-supplied get/put close over the entry store so this function
// does not need to import it directly and create a cycle.
func unexport(x *export, get func(*entry) bool, put func(*entry), pushCleanup func(*entry)) {
	x.lock.Lock()
	live := make([]*association, len(x.associations))
	copy(live, x.associations)
	x.lock.Unlock()

	for _, a := range live {
		e := a.entry

		if !get(e) {
			// Entry already gone; nothing to unlink.
			continue
		}

		e.attrLock.Lock()
		x.lock.Lock()

		removeAssociationLocked(e, x, a)

		x.lock.Unlock()
		e.attrLock.Unlock()

		orphaned := len(e.exports) == 0
		put(e)

		if orphaned {
			pushCleanup(e)
		}
	}
}

// removeAssociationLocked removes a from both e.exports and x.associations
// and repoints e.firstExport if necessary. Caller must hold e.attrLock and
// x.lock.
func removeAssociationLocked(e *entry, x *export, a *association) {
	for i, ea := range e.exports {
		if ea == a {
			e.exports = append(e.exports[:i], e.exports[i+1:]...)
			break
		}
	}
	for i, xa := range x.associations {
		if xa == a {
			x.associations = append(x.associations[:i], x.associations[i+1:]...)
			break
		}
	}

	if e.firstExport == x {
		if len(e.exports) > 0 {
			e.firstExport = e.exports[0].export
		} else {
			e.firstExport = nil
		}
	}
}
