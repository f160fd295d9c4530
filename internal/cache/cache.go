package cache

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/tarnish-app/tarnish/internal/logging"
)

// Cache 实现 get-or-populate：命中直接读盘，未命中回源并落盘后返回。
// 同一进程内对同一 digest 的并发未命中只会触发一次回源。
type Cache struct {
	store   Store
	fetcher Fetcher
	logger  *logrus.Logger
	group   singleflight.Group
}

// New 组合磁盘 Store 与回源 Fetcher。
func New(store Store, fetcher Fetcher, logger *logrus.Logger) *Cache {
	return &Cache{
		store:   store,
		fetcher: fetcher,
		logger:  logging.OrDiscard(logger),
	}
}

// Store 返回底层磁盘存储，供诊断接口读取 sidecar。
func (c *Cache) Store() Store {
	return c.store
}

// Retrieve 返回 key 对应的正文。仅当正文文件存在时视为命中，不做过期或再验证；
// 未命中时只有正文与 sidecar 均已落盘才返回。返回的切片可能被并发调用方共享，调用方不得修改。
func (c *Cache) Retrieve(ctx context.Context, key string) ([]byte, error) {
	digest := Fingerprint(key)

	payload, err := c.store.Get(ctx, digest)
	switch {
	case err == nil:
		c.logger.WithFields(logging.CacheFields(key, digest, true)).Debug("cache_hit")
		return payload, nil
	case errors.Is(err, ErrNotFound):
	default:
		return nil, &RetrieveError{Op: OpRead, Key: key, Digest: digest, Err: err}
	}

	value, err, _ := c.group.Do(digest, func() (interface{}, error) {
		return c.populate(ctx, key, digest)
	})
	if err != nil {
		return nil, err
	}
	return value.([]byte), nil
}

// RetrieveText 与 Retrieve 相同，但要求正文为合法 UTF-8，不做替换。
func (c *Cache) RetrieveText(ctx context.Context, key string) (string, error) {
	payload, err := c.Retrieve(ctx, key)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(payload) {
		return "", &RetrieveError{Op: OpDecode, Key: key, Digest: Fingerprint(key), Err: ErrInvalidUTF8}
	}
	return string(payload), nil
}

// Provenance 返回 digest 对应的原始 key。
func (c *Cache) Provenance(ctx context.Context, digest string) (string, error) {
	return c.store.Provenance(ctx, digest)
}

func (c *Cache) populate(ctx context.Context, key, digest string) ([]byte, error) {
	fields := logging.CacheFields(key, digest, false)
	c.logger.WithFields(fields).Info("cache_miss")

	body, err := c.fetcher.Fetch(ctx, key)
	if err != nil {
		op := OpFetch
		if errors.Is(err, ErrUnexpectedStatus) {
			op = OpStatus
		}
		c.logger.WithFields(fields).WithError(err).Warn("cache_fetch_failed")
		return nil, &RetrieveError{Op: op, Key: key, Digest: digest, Err: err}
	}

	entry, err := c.store.Put(ctx, digest, key, body)
	if err != nil {
		c.logger.WithFields(fields).WithError(err).Warn("cache_write_failed")
		return nil, &RetrieveError{Op: OpWrite, Key: key, Digest: digest, Err: err}
	}
	if entry.Created {
		return body, nil
	}

	// 其他进程先完成了写入，以已落盘的版本为准。
	existing, err := c.store.Get(ctx, digest)
	if err != nil {
		return nil, &RetrieveError{Op: OpRead, Key: key, Digest: digest, Err: err}
	}
	return existing, nil
}
