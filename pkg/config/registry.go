package config

import (
	"context"
	"fmt"

	"github.com/nimbusnfs/nimbusnfs/internal/logger"
	"github.com/nimbusnfs/nimbusnfs/pkg/metadata/cache"
	"github.com/nimbusnfs/nimbusnfs/pkg/metadata/cache/backend/badgerfs"
	"github.com/nimbusnfs/nimbusnfs/pkg/registry"
)

// defaultCacheName is the name the single configured backend is registered
// under. Nothing in this configuration format lets an operator run more
// than one backend per process yet, so every share stacks over it.
const defaultCacheName = "default"

// InitializeRegistry creates a fully configured Registry from the provided
// configuration.
//
// This function orchestrates the complete initialization process:
//  1. Builds the content store (if any) and the cache backend from cfg
//  2. Wraps the backend in a *cache.Cache and registers it
//  3. Validates and adds all shares from cfg.Shares
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: Complete configuration loaded from config file
//
// Returns:
//   - *registry.Registry: Fully initialized registry
//   - error: If backend creation fails, share validation fails, or configuration is invalid
func InitializeRegistry(ctx context.Context, cfg *Config) (*registry.Registry, error) {
	logger.Debug("Initializing registry from configuration")

	if err := validateRegistryConfig(cfg); err != nil {
		return nil, err
	}

	reg := registry.NewRegistry()

	if err := registerCache(ctx, reg, cfg); err != nil {
		return nil, fmt.Errorf("failed to register cache: %w", err)
	}
	logger.Debug("Registered %d cache(s)", reg.CountCaches())

	if err := addShares(ctx, reg, cfg); err != nil {
		return nil, fmt.Errorf("failed to add shares: %w", err)
	}
	logger.Debug("Registered %d share(s)", reg.CountShares())

	return reg, nil
}

// validateRegistryConfig performs basic validation on the configuration.
func validateRegistryConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}
	if cfg.Metadata.Type == "" {
		return fmt.Errorf("no metadata backend configured: metadata.type is required")
	}
	if len(cfg.Shares) == 0 {
		return fmt.Errorf("no shares configured: at least one share is required")
	}
	return nil
}

// registerCache builds the content store and cache backend from cfg and
// registers the resulting *cache.Cache under defaultCacheName.
func registerCache(ctx context.Context, reg *registry.Registry, cfg *Config) error {
	var content badgerfs.ContentStore

	if cfg.Metadata.Type == "badger" {
		c, err := CreateContentStore(ctx, &cfg.Content)
		if err != nil {
			return fmt.Errorf("failed to create content store: %w", err)
		}
		content = c
	}

	backend, err := CreateBackend(ctx, &cfg.Metadata, content)
	if err != nil {
		return fmt.Errorf("failed to create cache backend: %w", err)
	}

	cacheCfg := cacheConfigFromCapacity(cfg.Capacity)
	c := cache.New(cacheCfg, backend)

	if err := reg.RegisterCache(defaultCacheName, c); err != nil {
		return fmt.Errorf("failed to register cache %q: %w", defaultCacheName, err)
	}

	logger.Debug("Cache %q registered successfully (backend: %s)", defaultCacheName, cfg.Metadata.Type)
	return nil
}

// addShares validates and adds all configured shares to the registry, then
// applies each share's configured root directory attributes.
func addShares(ctx context.Context, reg *registry.Registry, cfg *Config) error {
	for i, shareCfg := range cfg.Shares {
		logger.Debug("Adding share %q (read_only: %v)", shareCfg.Name, shareCfg.ReadOnly)

		if shareCfg.Name == "" {
			return fmt.Errorf("share #%d: name cannot be empty", i+1)
		}

		shareConfig := &registry.ShareConfig{
			Name:                     shareCfg.Name,
			CacheName:                defaultCacheName,
			ReadOnly:                 shareCfg.ReadOnly,
			AllowedClients:           shareCfg.AllowedClients,
			DeniedClients:            shareCfg.DeniedClients,
			RequireAuth:              shareCfg.RequireAuth,
			AllowedAuthMethods:       shareCfg.AllowedAuthMethods,
			MapAllToAnonymous:        shareCfg.IdentityMapping.MapAllToAnonymous,
			MapPrivilegedToAnonymous: shareCfg.IdentityMapping.MapPrivilegedToAnonymous,
			AnonymousUID:             shareCfg.IdentityMapping.AnonymousUID,
			AnonymousGID:             shareCfg.IdentityMapping.AnonymousGID,
		}

		if err := reg.AddShare(ctx, shareConfig); err != nil {
			return fmt.Errorf("failed to add share %q: %w", shareCfg.Name, err)
		}

		if err := applyRootAttr(ctx, reg, shareCfg); err != nil {
			return fmt.Errorf("failed to apply root attributes for share %q: %w", shareCfg.Name, err)
		}

		logger.Debug("Share %q added successfully", shareCfg.Name)
	}

	return nil
}

// applyRootAttr sets the owner and mode of a freshly added share's root
// directory from its configuration. Backends seed the root with arbitrary
// defaults; this is what makes the configured uid/gid/mode take effect.
func applyRootAttr(ctx context.Context, reg *registry.Registry, shareCfg ShareConfig) error {
	c, err := reg.GetCacheForShare(shareCfg.Name)
	if err != nil {
		return err
	}
	rootHandle, err := reg.GetRootHandle(shareCfg.Name)
	if err != nil {
		return err
	}

	mode := shareCfg.RootAttr.Mode
	uid := shareCfg.RootAttr.UID
	gid := shareCfg.RootAttr.GID

	_, err = c.SetAttr(ctx, rootHandle, cache.SetAttr{
		Mode: &mode,
		UID:  &uid,
		GID:  &gid,
	})
	return err
}
