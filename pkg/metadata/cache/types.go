package cache

import "time"

// Key is a backend-opaque identity for a cached object. The cache never
// interprets its bytes beyond using them as a map key and a hash input; only
// the backend that produced it knows how to decode it.
type Key string

// Handle is the opaque sub-backend handle an Entry wraps. Like Key, its
// contents belong entirely to the backend.
type Handle []byte

// ContentID is an opaque reference to file content held by a separate
// content store. The metadata cache never caches content itself (see the
// package's stated non-goals); it only threads ContentID through attributes
// so a stacking facade caller can hand it to a content store.
type ContentID string

// FileType enumerates the object kinds the cache tracks attributes for.
type FileType int

const (
	FileTypeRegular FileType = iota + 1
	FileTypeDirectory
	FileTypeSymlink
	FileTypeFIFO
	FileTypeSocket
	FileTypeBlockDevice
	FileTypeCharDevice
)

func (t FileType) String() string {
	switch t {
	case FileTypeRegular:
		return "regular"
	case FileTypeDirectory:
		return "directory"
	case FileTypeSymlink:
		return "symlink"
	case FileTypeFIFO:
		return "fifo"
	case FileTypeSocket:
		return "socket"
	case FileTypeBlockDevice:
		return "block-device"
	case FileTypeCharDevice:
		return "char-device"
	default:
		return "unknown"
	}
}

// Attr is the cached attribute snapshot for an Entry. It is copied in and out
// of the cache by value; callers never get a pointer into cache-internal
// state.
type Attr struct {
	Type      FileType
	Mode      uint32
	UID       uint32
	GID       uint32
	Size      uint64
	Nlink     uint32
	Atime     time.Time
	Mtime     time.Time
	Ctime     time.Time
	RawDevice uint64
	ContentID ContentID
}

// SetAttr carries a selective attribute update: nil fields are left
// untouched. This mirrors the pointer-based partial-update convention used
// elsewhere in this project's metadata stores.
type SetAttr struct {
	Mode  *uint32
	UID   *uint32
	GID   *uint32
	Size  *uint64
	Atime *time.Time
	Mtime *time.Time
}

// DirEntry is a single readdir result row, combining a dirent's name with the
// attributes and handle of the child it resolved to at enumeration time.
type DirEntry struct {
	Cookie uint64
	Name   string
	Key    Key
	Attr   Attr
}

// ReadDirPage is one page of a directory listing, chunk-relative cookies and
// all. HasMore is true exactly when NextCookie continues a valid chunk; a
// verifier mismatch on a later call means the cursor must restart from zero.
type ReadDirPage struct {
	Entries    []DirEntry
	Verifier   uint64
	NextCookie uint64
	HasMore    bool
}
