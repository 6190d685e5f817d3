package registry

import "github.com/nimbusnfs/nimbusnfs/pkg/metadata/cache"

// Share represents a configured export that binds together:
// - A share name (export path for NFS)
// - The name of a registered cache.Cache stacking one backend
// - Access control rules (IP-based, authentication)
// - Identity mapping rules (squashing)
//
// Multiple shares may reference the same cache instance (the same backend
// exported under different names/ACLs); the cache's own export map
// (pkg/metadata/cache's AssociateExport/Unexport) tracks that sharing at the
// entry level.
type Share struct {
	Name       string
	CacheName  string // name of the registered cache.Cache this share stacks over
	RootHandle cache.Handle
	ReadOnly   bool

	// Access Control
	AllowedClients     []string // IP addresses or CIDR ranges allowed (empty = all allowed)
	DeniedClients      []string // IP addresses or CIDR ranges denied (takes precedence)
	RequireAuth        bool     // Require authentication
	AllowedAuthMethods []string // Allowed auth methods (e.g., "anonymous", "unix")

	// Identity Mapping (Squashing)
	MapAllToAnonymous        bool   // Map all users to anonymous (all_squash)
	MapPrivilegedToAnonymous bool   // Map root to anonymous (root_squash)
	AnonymousUID             uint32 // UID for anonymous users
	AnonymousGID             uint32 // GID for anonymous users
}

// ShareConfig contains all configuration needed to add a share.
type ShareConfig struct {
	Name               string
	CacheName          string
	ReadOnly           bool
	AllowedClients     []string
	DeniedClients      []string
	RequireAuth        bool
	AllowedAuthMethods []string

	// Identity Mapping
	MapAllToAnonymous        bool
	MapPrivilegedToAnonymous bool
	AnonymousUID             uint32
	AnonymousGID             uint32
}
