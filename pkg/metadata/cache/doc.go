// Package cache implements the metadata cache (MDC) core: an in-memory,
// reference-counted object cache that stacks in front of a pluggable backend
// file system and presents the same operation surface upward.
//
// The cache exists to give concurrent callers stable handles to backend
// objects, serve directory lookups without round-tripping to the backend on
// every call, evict under memory pressure without invalidating handles held
// by in-flight work, and stay coherent when the same backend object is
// visible through more than one export.
//
// Lock order
//
// Several locks participate in every non-trivial operation. They must always
// be acquired in this order, and released in the reverse order:
//
//  1. LRU lane mutex
//  2. entry attrLock
//  3. entry contentLock
//  4. export lock (mdcExpLock)
//  5. entry stateLock
//  6. dirent-index internal locks, if any
//
// The sole exception is the unexport path (see exportmap.go), which must take
// an entry's attrLock before the export lock; that is the canonical order for
// that path specifically, and the inverse is forbidden there as everywhere
// else. Any other acquisition outside this order is a programming error and
// is treated as such: see errors.go's invariant-violation handling, which
// logs and aborts the process rather than returning an error value.
package cache
