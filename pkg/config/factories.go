package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"
	"github.com/nimbusnfs/nimbusnfs/internal/logger"
	"github.com/nimbusnfs/nimbusnfs/pkg/metadata/cache"
	"github.com/nimbusnfs/nimbusnfs/pkg/metadata/cache/backend/badgerfs"
	"github.com/nimbusnfs/nimbusnfs/pkg/metadata/cache/backend/mem"
	"github.com/nimbusnfs/nimbusnfs/pkg/metadata/cache/backend/s3content"
)

// CreateContentStore builds the content store a badgerfs.Backend delegates
// file bytes to. cfg.Type selects the implementation; only the
// type-specific section of cfg is decoded.
//
// Supported types:
//   - "s3": pkg/metadata/cache/backend/s3content, backed by an AWS SDK v2 client
//   - "inline": no separate content store; badgerfs stores file bytes under
//     its own keys instead. This is the zero-dependency default for local
//     development and small deployments.
func CreateContentStore(ctx context.Context, cfg *ContentConfig) (badgerfs.ContentStore, error) {
	switch cfg.Type {
	case "inline":
		return nil, nil
	case "s3":
		return createS3ContentStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown content store type: %q", cfg.Type)
	}
}

// createS3ContentStore creates an S3-backed content store.
func createS3ContentStore(ctx context.Context, options map[string]any) (badgerfs.ContentStore, error) {
	type S3ContentStoreConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg S3ContentStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 content store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 content store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 content store: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	if storeCfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               storeCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if storeCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	store, err := s3content.New(ctx, s3content.Config{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 content store: %w", err)
	}

	logger.Info("S3 content store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// CreateBackend builds the cache.Backend a *cache.Cache stacks over.
//
// Supported types:
//   - "memory": pkg/metadata/cache/backend/mem, ephemeral, single process
//   - "badger": pkg/metadata/cache/backend/badgerfs, persistent, optionally
//     paired with a content store for file bytes
func CreateBackend(ctx context.Context, cfg *MetadataConfig, content badgerfs.ContentStore) (cache.Backend, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryBackend(ctx)
	case "badger":
		return createBadgerBackend(ctx, cfg.Badger, content)
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q (supported: memory, badger)", cfg.Type)
	}
}

// createMemoryBackend creates an in-memory backend.
func createMemoryBackend(ctx context.Context) (cache.Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return mem.New(), nil
}

// createBadgerBackend creates a BadgerDB-backed persistent backend.
func createBadgerBackend(ctx context.Context, options map[string]any, content badgerfs.ContentStore) (cache.Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type BadgerBackendOptions struct {
		DBPath string `mapstructure:"db_path"`
	}

	var storeOpts BadgerBackendOptions
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     &storeOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode badger backend options: %w", err)
	}

	if storeOpts.DBPath == "" {
		return nil, fmt.Errorf("badger backend: db_path is required")
	}

	backend, err := badgerfs.Open(storeOpts.DBPath, content)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger backend: %w", err)
	}

	return backend, nil
}

// cacheConfigFromCapacity turns the operator-facing capacity knobs into a
// cache.Config, applying cache.DefaultConfig()'s tuning for everything the
// top-level config file does not expose.
func cacheConfigFromCapacity(cfg CapacityConfig) cache.Config {
	c := cache.DefaultConfig()
	if cfg.Lanes > 0 {
		c.Lanes = cfg.Lanes
	}
	if cfg.AttrTTL > 0 {
		c.AttrTTL = cfg.AttrTTL
	}
	if cfg.ReaperInterval > 0 {
		c.ReaperInterval = cfg.ReaperInterval
	}
	cache.ApplyDefaults(&c)
	return c
}
