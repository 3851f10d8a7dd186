package kv

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang/groupcache"

	"github.com/yeisme/torrentvault/pkg/configs"
)

// GroupcacheKV 基于 Groupcache 的 KV 实现.
// groupcache 的热点缓存不可变，每次写入分配全局递增的版本号，读取时以 key#版本 访问.
type GroupcacheKV struct {
	cache *groupcache.Group
	peers *groupcache.HTTPPool
	mu    sync.RWMutex
	data  map[string]gcEntry
	seq   uint64
}

type gcEntry struct {
	version uint64
	value   []byte
}

type groupcacheGetter struct {
	kv *GroupcacheKV
}

func (g *groupcacheGetter) Get(_ context.Context, versioned string, dest groupcache.Sink) error {
	key, version, err := splitVersion(versioned)
	if err != nil {
		return err
	}

	g.kv.mu.RLock()
	entry, exists := g.kv.data[key]
	g.kv.mu.RUnlock()

	if !exists || entry.version != version {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	if err := dest.SetBytes(entry.value); err != nil {
		return fmt.Errorf("failed to set bytes to sink: %w", err)
	}

	return nil
}

// NewGroupcacheKV 创建 Groupcache KV 实例.
func NewGroupcacheKV(_ context.Context, config any) (KVStore, error) {
	gcConfig, ok := config.(*configs.GroupcacheKVConfig)
	if !ok || gcConfig == nil {
		return nil, fmt.Errorf("invalid Groupcache config")
	}

	kv := &GroupcacheKV{data: make(map[string]gcEntry)}

	if existing := groupcache.GetGroup(gcConfig.Name); existing != nil {
		return nil, fmt.Errorf("groupcache group %q already registered", gcConfig.Name)
	}

	kv.cache = groupcache.NewGroup(gcConfig.Name, gcConfig.CacheBytes, &groupcacheGetter{kv: kv})

	if len(gcConfig.Peers) > 0 {
		kv.peers = groupcache.NewHTTPPoolOpts(gcConfig.Self, &groupcache.HTTPPoolOptions{})
		kv.peers.Set(gcConfig.Peers...)
	}

	return kv, nil
}

// Get 获取键的值.
func (g *GroupcacheKV) Get(ctx context.Context, key string) ([]byte, error) {
	g.mu.RLock()
	entry, exists := g.data[key]
	g.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	var data []byte
	if err := g.cache.Get(ctx, joinVersion(key, entry.version), groupcache.AllocatingByteSliceSink(&data)); err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	val, expired, _, err := decodeWithTTL(data, time.Now())
	if err != nil {
		return nil, err
	}

	if expired {
		g.mu.Lock()
		if cur, ok := g.data[key]; ok && cur.version == entry.version {
			delete(g.data, key)
		}
		g.mu.Unlock()

		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	result := make([]byte, len(val))
	copy(result, val)

	return result, nil
}

// Set 设置键的值.
func (g *GroupcacheKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, _, err := encodeWithTTL(value, ttl)
	if err != nil {
		return err
	}

	stored := make([]byte, len(encoded))
	copy(stored, encoded)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	g.data[key] = gcEntry{version: g.seq, value: stored}

	return nil
}

// Delete 删除键.
func (g *GroupcacheKV) Delete(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.data, key)

	return nil
}

// Exists 检查键是否存在.
func (g *GroupcacheKV) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.Get(ctx, key)
	if err == nil {
		return true, nil
	}

	g.mu.RLock()
	_, present := g.data[key]
	g.mu.RUnlock()

	if !present {
		return false, nil
	}

	return false, err
}

// Keys 获取所有键.
func (g *GroupcacheKV) Keys(_ context.Context, pattern string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make([]string, 0, len(g.data))
	for key := range g.data {
		if matchPattern(pattern, key) {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Close Groupcache 没有显式的关闭方法.
func (g *GroupcacheKV) Close() error {
	return nil
}

func joinVersion(key string, version uint64) string {
	return key + "#" + strconv.FormatUint(version, 10)
}

func splitVersion(versioned string) (string, uint64, error) {
	for i := len(versioned) - 1; i >= 0; i-- {
		if versioned[i] == '#' {
			v, err := strconv.ParseUint(versioned[i+1:], 10, 64)
			if err != nil {
				return "", 0, fmt.Errorf("malformed versioned key %q: %w", versioned, err)
			}

			return versioned[:i], v, nil
		}
	}

	return "", 0, fmt.Errorf("malformed versioned key %q", versioned)
}

func init() {
	RegisterKVFactory(KVTypeGroupcache, NewGroupcacheKV)
}
