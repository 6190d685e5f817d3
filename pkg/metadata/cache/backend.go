package cache

import (
	"context"
	"time"
)

// Backend is the sub-FSAL contract the cache consumes, described in
// SPEC_FULL.md §6. A Backend is the thing being cached, not the cache
// itself; *Cache implements this same interface upward (see facade.go) so a
// caller can hold a Backend reference without knowing whether it is talking
// to a bare backend or a cache stacked above one.
//
// Optional capabilities (quotas, layouts) are expressed as separate
// interfaces a Backend may additionally implement, mirroring this project's
// content.ContentStore + GarbageCollectableStore pattern: the cache must
// forward unhandled capabilities unchanged rather than fail closed.
type Backend interface {
	// Root returns the handle and attributes of the backend's root
	// object, the bootstrap point every other lookup descends from.
	Root(ctx context.Context) (Handle, Attr, error)

	Lookup(ctx context.Context, parent Handle, name string) (Handle, Attr, error)
	GetAttr(ctx context.Context, h Handle) (Attr, error)
	SetAttr(ctx context.Context, h Handle, s SetAttr) (Attr, error)
	ReadDir(ctx context.Context, h Handle, cookie uint64) ([]BackendDirEntry, bool, error)

	Create(ctx context.Context, parent Handle, name string, attr Attr) (Handle, Attr, error)
	Unlink(ctx context.Context, parent Handle, name string) error
	Rename(ctx context.Context, oldParent Handle, oldName string, newParent Handle, newName string) error
	Link(ctx context.Context, parent Handle, name string, target Handle) error
	Symlink(ctx context.Context, parent Handle, name string, linkTarget string, attr Attr) (Handle, Attr, error)
	Readlink(ctx context.Context, h Handle) (string, error)

	Open(ctx context.Context, h Handle, writable bool) (openID uint64, err error)
	Read(ctx context.Context, h Handle, openID uint64, offset int64, buf []byte) (int, error)
	Write(ctx context.Context, h Handle, openID uint64, offset int64, buf []byte) (int, error)
	Commit(ctx context.Context, h Handle, openID uint64) error
	Close(ctx context.Context, h Handle, openID uint64) error

	// Release is invoked by the reaper when an entry wrapping h is
	// reclaimed, so the backend may free any resources it associates
	// with the handle. It must not block on network I/O for long; the
	// reaper treats a slow Release as a reaper-cycle stall.
	Release(ctx context.Context, h Handle) error

	HandleDigest(h Handle) []byte
	FSInfo(ctx context.Context) (FSInfo, error)
}

// BackendDirEntry is one row a Backend's ReadDir returns, before the cache
// re-keys it into a DirEntry with chunk-relative cookies.
type BackendDirEntry struct {
	Name   string
	Handle Handle
	Attr   Attr
	Cookie uint64
}

// FSInfo mirrors the export-level capability queries named in SPEC_FULL.md
// §6: max read/write/filesize/link/namelen/pathlen and lease time. It
// intentionally omits layout/quota/ACL fields, which live in the optional
// capability interfaces below so a Backend that doesn't support them need
// not populate placeholder zero values here.
type FSInfo struct {
	MaxRead           uint32
	PreferredRead     uint32
	MaxWrite          uint32
	PreferredWrite    uint32
	MaxFilesize       uint64
	MaxLink           uint32
	MaxNameLen        uint32
	MaxPathLen        uint32
	LeaseTime         time.Duration
	SupportedAttrMask uint64
}

// Quota describes a single quota query/response, used by QuotaBackend.
type Quota struct {
	HardLimit uint64
	SoftLimit uint64
	CurUsage  uint64
}

// QuotaBackend is an optional capability: a Backend that supports quota
// enforcement implements it, and the facade type-asserts before use.
type QuotaBackend interface {
	GetQuota(ctx context.Context, path string) (Quota, error)
	SetQuota(ctx context.Context, path string, q Quota) error
	CheckQuota(ctx context.Context, path string, wouldAdd uint64) error
}

// ACLBackend is an optional capability for backends that support POSIX or
// NFSv4 ACLs; the cache never interprets ACL bytes, it only forwards them.
type ACLBackend interface {
	GetACL(ctx context.Context, h Handle) ([]byte, error)
	SetACL(ctx context.Context, h Handle, acl []byte) error
}

// UpcallInvalidateKind enumerates the invalidation upcalls a Backend may
// deliver (SPEC_FULL.md §4.6).
type UpcallInvalidateKind int

const (
	InvalidateAttrs UpcallInvalidateKind = iota
	InvalidateContent
	InvalidateDirent
)

// DelegationKind enumerates the delegation upcalls a Backend may deliver.
type DelegationKind int

const (
	DelegationRead DelegationKind = iota
	DelegationWrite
)

// Upcalls is the vector of functions a Backend invokes to asynchronously
// notify the cache, described in SPEC_FULL.md §6. Every method must be
// non-blocking from the Backend's perspective: the cache offloads any heavy
// follow-up work to its delayed executor (see upcall.go) rather than doing
// it synchronously inside these calls.
type Upcalls interface {
	Invalidate(key Key, what UpcallInvalidateKind)
	Rename(oldParentKey Key, oldName string, newParentKey Key, newName string)
	DelegationRecall(key Key)
	Grant(key Key, kind DelegationKind)
}

// UpcallRegistrar is an optional capability: a Backend that supports
// delivering upcalls implements it so the Cache can hand itself over as the
// Upcalls implementation at construction time.
type UpcallRegistrar interface {
	SetUpcalls(u Upcalls)
}
