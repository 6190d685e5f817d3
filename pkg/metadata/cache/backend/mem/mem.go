// Package mem is a reference cache.Backend implementation backed entirely by
// in-memory maps, following the shape of this project's
// pkg/store/metadata/memory store: UUID-based handles, a parent/children map
// pair for the directory tree, and a single coarse-grained mutex. It exists
// so the cache package can be exercised and tested without wiring a real
// filesystem or object-store backend.
package mem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nimbusnfs/nimbusnfs/pkg/metadata/cache"
)

type node struct {
	handle     cache.Handle
	attr       cache.Attr
	linkTarget string
	content    []byte
	parent     cache.Handle
	children   map[string]cache.Handle
}

type openFile struct {
	handle   cache.Handle
	writable bool
}

// Store is an in-memory cache.Backend. The zero value is not usable; call
// New.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]*node
	root  cache.Handle

	openMu     sync.Mutex
	openFiles  map[uint64]*openFile
	nextOpenID uint64

	upcalls cache.Upcalls
}

var (
	_ cache.Backend         = (*Store)(nil)
	_ cache.UpcallRegistrar = (*Store)(nil)
)

// New returns a Store containing a single empty root directory.
func New() *Store {
	root := newHandle()
	now := time.Now()
	s := &Store{
		nodes:     make(map[string]*node),
		root:      root,
		openFiles: make(map[uint64]*openFile),
	}
	s.nodes[key(root)] = &node{
		handle:   root,
		children: make(map[string]cache.Handle),
		attr: cache.Attr{
			Type:  cache.FileTypeDirectory,
			Mode:  0o755,
			Nlink: 2,
			Atime: now,
			Mtime: now,
			Ctime: now,
		},
	}
	return s
}

func newHandle() cache.Handle {
	return cache.Handle(uuid.NewString())
}

func key(h cache.Handle) string {
	return string(h)
}

// SetUpcalls implements cache.UpcallRegistrar, letting a Cache stacked on
// top of this Store receive Invalidate/Rename/DelegationRecall/Grant
// notifications for changes this Store did not itself originate (e.g. a
// second cache sharing the same backing store, or a test simulating an
// out-of-band mutation).
func (s *Store) SetUpcalls(u cache.Upcalls) {
	s.upcalls = u
}

func (s *Store) get(h cache.Handle) (*node, bool) {
	n, ok := s.nodes[key(h)]
	return n, ok
}

func (s *Store) Root(ctx context.Context) (cache.Handle, cache.Attr, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.nodes[key(s.root)]
	return n.handle, n.attr, nil
}

func (s *Store) Lookup(ctx context.Context, parent cache.Handle, name string) (cache.Handle, cache.Attr, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.get(parent)
	if !ok || p.attr.Type != cache.FileTypeDirectory {
		return nil, cache.Attr{}, fmt.Errorf("mem: %q is not a known directory", parent)
	}
	ch, ok := p.children[name]
	if !ok {
		return nil, cache.Attr{}, fmt.Errorf("mem: no such entry %q", name)
	}
	c := s.nodes[key(ch)]
	return c.handle, c.attr, nil
}

func (s *Store) GetAttr(ctx context.Context, h cache.Handle) (cache.Attr, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.get(h)
	if !ok {
		return cache.Attr{}, fmt.Errorf("mem: unknown handle %q", h)
	}
	return n.attr, nil
}

func (s *Store) SetAttr(ctx context.Context, h cache.Handle, set cache.SetAttr) (cache.Attr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.get(h)
	if !ok {
		return cache.Attr{}, fmt.Errorf("mem: unknown handle %q", h)
	}
	if set.Mode != nil {
		n.attr.Mode = *set.Mode
	}
	if set.UID != nil {
		n.attr.UID = *set.UID
	}
	if set.GID != nil {
		n.attr.GID = *set.GID
	}
	if set.Size != nil {
		n.attr.Size = *set.Size
		if int(*set.Size) <= len(n.content) {
			n.content = n.content[:*set.Size]
		} else {
			grown := make([]byte, *set.Size)
			copy(grown, n.content)
			n.content = grown
		}
	}
	if set.Atime != nil {
		n.attr.Atime = *set.Atime
	}
	if set.Mtime != nil {
		n.attr.Mtime = *set.Mtime
	}
	n.attr.Ctime = time.Now()
	return n.attr, nil
}

func (s *Store) ReadDir(ctx context.Context, h cache.Handle, cookie uint64) ([]cache.BackendDirEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.get(h)
	if !ok || n.attr.Type != cache.FileTypeDirectory {
		return nil, false, fmt.Errorf("mem: %q is not a known directory", h)
	}

	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)

	if cookie > uint64(len(names)) {
		return nil, true, nil
	}
	names = names[cookie:]

	out := make([]cache.BackendDirEntry, 0, len(names))
	for i, name := range names {
		c := s.nodes[key(n.children[name])]
		out = append(out, cache.BackendDirEntry{
			Name:   name,
			Handle: c.handle,
			Attr:   c.attr,
			Cookie: cookie + uint64(i) + 1,
		})
	}
	return out, true, nil
}

func (s *Store) Create(ctx context.Context, parent cache.Handle, name string, attr cache.Attr) (cache.Handle, cache.Attr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.get(parent)
	if !ok || p.attr.Type != cache.FileTypeDirectory {
		return nil, cache.Attr{}, fmt.Errorf("mem: %q is not a known directory", parent)
	}
	if _, exists := p.children[name]; exists {
		return nil, cache.Attr{}, fmt.Errorf("mem: %q already exists", name)
	}

	h := newHandle()
	now := time.Now()
	attr.Atime, attr.Mtime, attr.Ctime = now, now, now
	if attr.Type == cache.FileTypeRegular && attr.Nlink == 0 {
		attr.Nlink = 1
	}
	n := &node{handle: h, attr: attr, parent: parent}
	if attr.Type == cache.FileTypeDirectory {
		n.children = make(map[string]cache.Handle)
	}
	s.nodes[key(h)] = n
	p.children[name] = h
	p.attr.Mtime = now
	return h, n.attr, nil
}

func (s *Store) Unlink(ctx context.Context, parent cache.Handle, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.get(parent)
	if !ok || p.attr.Type != cache.FileTypeDirectory {
		return fmt.Errorf("mem: %q is not a known directory", parent)
	}
	ch, ok := p.children[name]
	if !ok {
		return fmt.Errorf("mem: no such entry %q", name)
	}
	delete(p.children, name)
	delete(s.nodes, key(ch))
	p.attr.Mtime = time.Now()
	return nil
}

func (s *Store) Rename(ctx context.Context, oldParent cache.Handle, oldName string, newParent cache.Handle, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.get(oldParent)
	if !ok || op.attr.Type != cache.FileTypeDirectory {
		return fmt.Errorf("mem: %q is not a known directory", oldParent)
	}
	np, ok := s.get(newParent)
	if !ok || np.attr.Type != cache.FileTypeDirectory {
		return fmt.Errorf("mem: %q is not a known directory", newParent)
	}
	ch, ok := op.children[oldName]
	if !ok {
		return fmt.Errorf("mem: no such entry %q", oldName)
	}
	delete(op.children, oldName)
	np.children[newName] = ch
	if c, ok := s.get(ch); ok {
		c.parent = newParent
	}
	now := time.Now()
	op.attr.Mtime, np.attr.Mtime = now, now
	return nil
}

func (s *Store) Link(ctx context.Context, parent cache.Handle, name string, target cache.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.get(parent)
	if !ok || p.attr.Type != cache.FileTypeDirectory {
		return fmt.Errorf("mem: %q is not a known directory", parent)
	}
	t, ok := s.get(target)
	if !ok {
		return fmt.Errorf("mem: unknown handle %q", target)
	}
	if _, exists := p.children[name]; exists {
		return fmt.Errorf("mem: %q already exists", name)
	}
	p.children[name] = target
	t.attr.Nlink++
	p.attr.Mtime = time.Now()
	return nil
}

func (s *Store) Symlink(ctx context.Context, parent cache.Handle, name, linkTarget string, attr cache.Attr) (cache.Handle, cache.Attr, error) {
	attr.Type = cache.FileTypeSymlink
	h, newAttr, err := s.Create(ctx, parent, name, attr)
	if err != nil {
		return nil, cache.Attr{}, err
	}
	s.mu.Lock()
	s.nodes[key(h)].linkTarget = linkTarget
	s.mu.Unlock()
	return h, newAttr, nil
}

func (s *Store) Readlink(ctx context.Context, h cache.Handle) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.get(h)
	if !ok || n.attr.Type != cache.FileTypeSymlink {
		return "", fmt.Errorf("mem: %q is not a symlink", h)
	}
	return n.linkTarget, nil
}

func (s *Store) Open(ctx context.Context, h cache.Handle, writable bool) (uint64, error) {
	s.mu.RLock()
	_, ok := s.get(h)
	s.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("mem: unknown handle %q", h)
	}

	s.openMu.Lock()
	defer s.openMu.Unlock()
	s.nextOpenID++
	id := s.nextOpenID
	s.openFiles[id] = &openFile{handle: h, writable: writable}
	return id, nil
}

func (s *Store) Read(ctx context.Context, h cache.Handle, openID uint64, offset int64, buf []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.get(h)
	if !ok {
		return 0, fmt.Errorf("mem: unknown handle %q", h)
	}
	if offset >= int64(len(n.content)) {
		return 0, nil
	}
	return copy(buf, n.content[offset:]), nil
}

func (s *Store) Write(ctx context.Context, h cache.Handle, openID uint64, offset int64, buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.get(h)
	if !ok {
		return 0, fmt.Errorf("mem: unknown handle %q", h)
	}
	end := offset + int64(len(buf))
	if end > int64(len(n.content)) {
		grown := make([]byte, end)
		copy(grown, n.content)
		n.content = grown
	}
	copied := copy(n.content[offset:end], buf)
	n.attr.Size = uint64(len(n.content))
	n.attr.Mtime = time.Now()
	return copied, nil
}

func (s *Store) Commit(ctx context.Context, h cache.Handle, openID uint64) error {
	return nil
}

func (s *Store) Close(ctx context.Context, h cache.Handle, openID uint64) error {
	s.openMu.Lock()
	defer s.openMu.Unlock()
	delete(s.openFiles, openID)
	return nil
}

func (s *Store) Release(ctx context.Context, h cache.Handle) error {
	return nil
}

func (s *Store) HandleDigest(h cache.Handle) []byte {
	return []byte(h)
}

func (s *Store) FSInfo(ctx context.Context) (cache.FSInfo, error) {
	return cache.FSInfo{
		MaxRead:           1 << 20,
		PreferredRead:     64 << 10,
		MaxWrite:          1 << 20,
		PreferredWrite:    64 << 10,
		MaxFilesize:       1 << 40,
		MaxLink:           32767,
		MaxNameLen:        255,
		MaxPathLen:        4096,
		LeaseTime:         30 * time.Second,
		SupportedAttrMask: 0,
	}, nil
}
