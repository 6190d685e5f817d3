package cache

import "context"

// Quota-related forwarding. QuotaBackend is optional; a backend that does
// not implement it simply has these calls return CodeBackend with a
// "not supported" message rather than the cache inventing semantics for a
// capability it does not own.

func (c *Cache) GetQuota(ctx context.Context, path string) (Quota, error) {
	qb, ok := c.backend.(QuotaBackend)
	if !ok {
		return Quota{}, newError(CodeBackend, Key(path), "backend does not support quotas")
	}
	q, err := qb.GetQuota(ctx, path)
	if err != nil {
		return Quota{}, backendError(Key(path), err)
	}
	return q, nil
}

func (c *Cache) SetQuota(ctx context.Context, path string, q Quota) error {
	qb, ok := c.backend.(QuotaBackend)
	if !ok {
		return newError(CodeBackend, Key(path), "backend does not support quotas")
	}
	if err := qb.SetQuota(ctx, path, q); err != nil {
		return backendError(Key(path), err)
	}
	return nil
}

func (c *Cache) CheckQuota(ctx context.Context, path string, wouldAdd uint64) error {
	qb, ok := c.backend.(QuotaBackend)
	if !ok {
		return nil
	}
	if err := qb.CheckQuota(ctx, path, wouldAdd); err != nil {
		return backendError(Key(path), err)
	}
	return nil
}
