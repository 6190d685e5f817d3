// Package registry tracks the named resources a running server exposes:
// one *cache.Cache per configured backend, the shares stacked over them,
// and the set of clients currently mounted. A cache.Cache is itself the
// pkg/metadata/cache stacking facade over one sub-backend (badgerfs,
// s3content-backed or otherwise); the registry's job is naming and
// multiplexing multiple such caches, not re-implementing what the cache
// already does.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/nimbusnfs/nimbusnfs/pkg/metadata/cache"
)

// Registry manages all named resources: caches and the shares stacked over
// them. It provides thread-safe registration and lookup of all server
// resources.
//
// The Registry also tracks active mounts (NFS clients that have mounted
// shares). Mount information is ephemeral and kept in-memory only.
//
// Example usage:
//
//	reg := NewRegistry()
//	reg.RegisterCache("badger-main", mdc)
//	reg.AddShare(ctx, &ShareConfig{Name: "export", CacheName: "badger-main"})
//
//	share, _ := reg.GetShare("/export")
//	c, _ := reg.GetCacheForShare("/export")
type Registry struct {
	mu     sync.RWMutex
	caches map[string]*cache.Cache
	shares map[string]*Share
	mounts map[string]*MountInfo // key: clientAddr, value: mount info
}

// MountInfo represents an active NFS mount from a client.
type MountInfo struct {
	ClientAddr string // Client IP address
	ShareName  string // Name of the mounted share
	MountTime  int64  // Unix timestamp when mounted
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		caches: make(map[string]*cache.Cache),
		shares: make(map[string]*Share),
		mounts: make(map[string]*MountInfo),
	}
}

// RegisterCache adds a named cache to the registry. Returns an error if a
// cache with the same name already exists.
func (r *Registry) RegisterCache(name string, c *cache.Cache) error {
	if c == nil {
		return fmt.Errorf("cannot register nil cache")
	}
	if name == "" {
		return fmt.Errorf("cannot register cache with empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.caches[name]; exists {
		return fmt.Errorf("cache %q already registered", name)
	}

	r.caches[name] = c
	return nil
}

// AddShare creates and registers a new share with the given configuration.
// This method:
//  1. Validates that the share doesn't already exist
//  2. Validates that the referenced cache exists
//  3. Resolves the cache's root handle
//  4. Registers the share in the registry with full configuration
//
// Returns an error if:
// - A share with the same name already exists
// - The referenced cache doesn't exist
// - Resolving the cache's root handle fails
func (r *Registry) AddShare(ctx context.Context, config *ShareConfig) error {
	if config.Name == "" {
		return fmt.Errorf("cannot add share with empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.shares[config.Name]; exists {
		return fmt.Errorf("share %q already exists", config.Name)
	}

	c, exists := r.caches[config.CacheName]
	if !exists {
		return fmt.Errorf("cache %q not found", config.CacheName)
	}

	rootHandle, _, err := c.Root(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve root handle: %w", err)
	}
	c.AddExport(config.Name)
	c.AssociateExport(config.Name, rootHandle)

	r.shares[config.Name] = &Share{
		Name:                     config.Name,
		CacheName:                config.CacheName,
		RootHandle:               rootHandle,
		ReadOnly:                 config.ReadOnly,
		AllowedClients:           config.AllowedClients,
		DeniedClients:            config.DeniedClients,
		RequireAuth:              config.RequireAuth,
		AllowedAuthMethods:       config.AllowedAuthMethods,
		MapAllToAnonymous:        config.MapAllToAnonymous,
		MapPrivilegedToAnonymous: config.MapPrivilegedToAnonymous,
		AnonymousUID:             config.AnonymousUID,
		AnonymousGID:             config.AnonymousGID,
	}

	return nil
}

// RemoveShare unexports and removes a share from the registry. Returns an
// error if the share doesn't exist. This does NOT close the underlying
// cache, as it may back other shares.
func (r *Registry) RemoveShare(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	share, exists := r.shares[name]
	if !exists {
		return fmt.Errorf("share %q not found", name)
	}

	if c, ok := r.caches[share.CacheName]; ok {
		_ = c.Unexport(ctx, name)
	}

	delete(r.shares, name)
	return nil
}

// GetShare retrieves a share by name.
// Returns nil, error if the share doesn't exist.
func (r *Registry) GetShare(name string) (*Share, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	share, exists := r.shares[name]
	if !exists {
		return nil, fmt.Errorf("share %q not found", name)
	}
	return share, nil
}

// GetRootHandle retrieves the root handle for a share by name.
// This is used by mount handlers to get the root handle for a mounted share.
// Returns an error if the share doesn't exist.
func (r *Registry) GetRootHandle(shareName string) (cache.Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	share, exists := r.shares[shareName]
	if !exists {
		return nil, fmt.Errorf("share %q not found", shareName)
	}
	return share.RootHandle, nil
}

// GetCache retrieves a registered cache by name.
// Returns nil, error if not found.
func (r *Registry) GetCache(name string) (*cache.Cache, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.caches[name]
	if !exists {
		return nil, fmt.Errorf("cache %q not found", name)
	}
	return c, nil
}

// GetCacheForShare retrieves the cache backing the specified share.
// Returns nil, error if the share or cache doesn't exist.
func (r *Registry) GetCacheForShare(shareName string) (*cache.Cache, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	share, exists := r.shares[shareName]
	if !exists {
		return nil, fmt.Errorf("share %q not found", shareName)
	}

	c, exists := r.caches[share.CacheName]
	if !exists {
		return nil, fmt.Errorf("cache %q not found for share %q", share.CacheName, shareName)
	}

	return c, nil
}

// ListShares returns all registered share names.
// The returned slice is a copy and safe to modify.
func (r *Registry) ListShares() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.shares))
	for name := range r.shares {
		names = append(names, name)
	}
	return names
}

// ListCaches returns all registered cache names.
// The returned slice is a copy and safe to modify.
func (r *Registry) ListCaches() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.caches))
	for name := range r.caches {
		names = append(names, name)
	}
	return names
}

// ListSharesUsingCache returns all shares that use the specified cache.
// The returned slice is a copy and safe to modify.
func (r *Registry) ListSharesUsingCache(cacheName string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var shares []string
	for _, share := range r.shares {
		if share.CacheName == cacheName {
			shares = append(shares, share.Name)
		}
	}
	return shares
}

// CountShares returns the number of registered shares.
func (r *Registry) CountShares() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shares)
}

// CountCaches returns the number of registered caches.
func (r *Registry) CountCaches() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.caches)
}

// ShareExists checks if a share with the given name exists in the registry.
// This is useful for validating share names decoded from file handles.
func (r *Registry) ShareExists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.shares[name]
	return exists
}

// ============================================================================
// Mount Tracking
// ============================================================================

// RecordMount registers that a client has mounted a share.
// The clientAddr should be the client's IP address or IP:port.
func (r *Registry) RecordMount(clientAddr, shareName string, mountTime int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mounts[clientAddr] = &MountInfo{
		ClientAddr: clientAddr,
		ShareName:  shareName,
		MountTime:  mountTime,
	}
}

// RemoveMount removes a mount record for the given client.
// Returns true if a mount was removed, false if no mount existed.
func (r *Registry) RemoveMount(clientAddr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.mounts[clientAddr]; exists {
		delete(r.mounts, clientAddr)
		return true
	}
	return false
}

// RemoveAllMounts removes all mount records. Used for UMNTALL.
func (r *Registry) RemoveAllMounts() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := len(r.mounts)
	r.mounts = make(map[string]*MountInfo)
	return count
}

// ListMounts returns all active mount records.
// The returned slice is a copy and safe to modify.
func (r *Registry) ListMounts() []*MountInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mounts := make([]*MountInfo, 0, len(r.mounts))
	for _, mount := range r.mounts {
		mounts = append(mounts, &MountInfo{
			ClientAddr: mount.ClientAddr,
			ShareName:  mount.ShareName,
			MountTime:  mount.MountTime,
		})
	}
	return mounts
}
