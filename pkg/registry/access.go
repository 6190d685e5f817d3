package registry

import (
	"fmt"

	"github.com/nimbusnfs/nimbusnfs/pkg/metadata"
)

// ApplyIdentityMapping applies share-level identity mapping rules to create effective credentials.
//
// This implements:
//   - all_squash: Maps all users to anonymous
//   - root_squash: Maps root (UID 0) to anonymous
//
// The effective identity is what should be used for all permission checks.
//
// Parameters:
//   - shareName: Name of the share
//   - identity: Original client identity (before mapping)
//
// Returns:
//   - *metadata.Identity: Effective identity after applying mapping rules
//   - error: If share not found
func (r *Registry) ApplyIdentityMapping(shareName string, identity *metadata.Identity) (*metadata.Identity, error) {
	r.mu.RLock()
	share, exists := r.shares[shareName]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("share %q not found", shareName)
	}

	effective := &metadata.Identity{
		UID:      identity.UID,
		GID:      identity.GID,
		GIDs:     identity.GIDs,
		Username: identity.Username,
	}

	if share.MapAllToAnonymous {
		anonUID := share.AnonymousUID
		anonGID := share.AnonymousGID
		effective.UID = &anonUID
		effective.GID = &anonGID
		effective.GIDs = []uint32{anonGID}
		effective.Username = fmt.Sprintf("anonymous(%d)", anonUID)
		return effective, nil
	}

	if share.MapPrivilegedToAnonymous && identity.UID != nil && *identity.UID == 0 {
		anonUID := share.AnonymousUID
		anonGID := share.AnonymousGID
		effective.UID = &anonUID
		effective.GID = &anonGID
		effective.GIDs = []uint32{anonGID}
		effective.Username = fmt.Sprintf("anonymous(%d)", anonUID)
		return effective, nil
	}

	return effective, nil
}
