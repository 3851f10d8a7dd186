// Package cache 提供基于键值存储的泛型缓存，RSS 响应与索引同步游标都保存在这里.
//
// 基本用法:
//
//	c := cache.NewCache(kvStore, "feed")
//	key := c.Key("/rss", "q=bebop&c=1_0")
//
//	doc, err := cache.GetOrSet(ctx, c, key, func() (Response, error) {
//	    return render()
//	}, 5*time.Minute)
//
// 值使用 sonic 序列化为 JSON. 缓存未命中不视为错误，GetOrSet 会回落到 getter.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"

	"github.com/yeisme/torrentvault/pkg/internal/storage/kv"
)

// ErrMiss 键不存在.
var ErrMiss = kv.ErrKeyNotFound

// Cache 基于KV存储的缓存实现，所有键带有命名空间前缀.
type Cache struct {
	kvStore   kv.KVStore
	namespace string
}

// NewCache 创建一个新的缓存实例.
func NewCache(kvStore kv.KVStore, namespace string) *Cache {
	return &Cache{
		kvStore:   kvStore,
		namespace: namespace,
	}
}

// Key 将任意片段哈希为 "<namespace>.<xxhash>" 形式的键，键长与片段长度无关.
func (c *Cache) Key(parts ...string) string {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.WriteString(p)
		_, _ = d.Write([]byte{0})
	}

	return c.namespace + "." + strconv.FormatUint(d.Sum64(), 16)
}

// Raw 返回命名空间下的固定键.
func (c *Cache) Raw(name string) string {
	return c.namespace + "." + name
}

// Get 泛型获取缓存值.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.kvStore.Get(ctx, key)
	if err != nil {
		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.kvStore.Set(ctx, key, data, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.kvStore.Delete(ctx, key)
}

// Exists 检查缓存键是否存在.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.kvStore.Exists(ctx, key)
}

// GetOrSet 获取缓存值，未命中或读取失败时调用 getter 并回填.
// 回填失败不影响返回值.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error), ttl time.Duration) (T, error) {
	var zero T

	if value, err := Get[T](ctx, c, key); err == nil {
		return value, nil
	}

	value, err := getter()
	if err != nil {
		return zero, err
	}

	_ = Set(ctx, c, key, value, ttl)

	return value, nil
}

// IsMiss 判断错误是否为未命中.
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}

// Clear 清空命名空间下的全部键.
func (c *Cache) Clear(ctx context.Context) error {
	keys, err := c.kvStore.Keys(ctx, c.namespace+".*")
	if err != nil {
		return err
	}

	for _, key := range keys {
		if delErr := c.kvStore.Delete(ctx, key); delErr != nil && !IsMiss(delErr) {
			return delErr
		}
	}

	return nil
}
