// Package category 提供分类键到展示名的进程级只读缓存.
// 缓存以失效纪元区分新旧快照，持有最新快照的读者从不阻塞.
package category

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/yeisme/torrentvault/pkg/metrics"
)

// Unknown 未知分类的展示名.
const Unknown = "???"

// loadTimeout 共享加载的超时，加载不随首个调用方取消.
const loadTimeout = 10 * time.Second

// Catalog 列出全部分类，值为从主分类到子分类的名称路径.
type Catalog interface {
	ListAll(ctx context.Context) (map[string][]string, error)
}

type snapshot struct {
	epoch uint64
	names map[string][]string
}

// Cache 分类名读穿缓存.
type Cache struct {
	catalog Catalog
	epoch   atomic.Uint64
	current atomic.Pointer[snapshot]
	group   singleflight.Group
	log     zerolog.Logger
}

// Entry 单个分类.
type Entry struct {
	Key  string   `json:"key"`
	Name string   `json:"name"`
	Path []string `json:"path"`
	Main bool     `json:"main"`
}

// NewCache 创建缓存，首次读取时才加载.
func NewCache(catalog Catalog, logger zerolog.Logger) *Cache {
	return &Cache{catalog: catalog, log: logger.With().Str("component", "category").Logger()}
}

// Invalidate 使当前快照过期，下次读取时重新加载.
func (c *Cache) Invalidate() {
	c.epoch.Add(1)
}

// Epoch 当前失效纪元.
func (c *Cache) Epoch() uint64 {
	return c.epoch.Load()
}

// Map 返回分类键到名称路径的映射副本.
func (c *Cache) Map(ctx context.Context) (map[string][]string, error) {
	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	return maps.Clone(snap.names), nil
}

// Name 返回以 " - " 连接的名称路径，未知或加载失败时返回 "???".
func (c *Cache) Name(ctx context.Context, key string) string {
	snap, err := c.load(ctx)
	if err != nil {
		return Unknown
	}

	path, ok := snap.names[key]
	if !ok {
		return Unknown
	}

	return strings.Join(path, " - ")
}

// Entries 按键排序返回全部分类.
func (c *Cache) Entries(ctx context.Context) ([]Entry, error) {
	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(snap.names))
	for key, path := range snap.names {
		out = append(out, Entry{
			Key:  key,
			Name: strings.Join(path, " - "),
			Path: append([]string(nil), path...),
			Main: strings.HasSuffix(key, "_0"),
		})
	}

	sort.Slice(out, func(i, j int) bool { return lessKey(out[i].Key, out[j].Key) })

	return out, nil
}

// load 返回当前纪元的快照；过期时由 singleflight 合并为一次加载，加载失败时退回旧快照.
func (c *Cache) load(ctx context.Context) (*snapshot, error) {
	epoch := c.epoch.Load()

	snap := c.current.Load()
	if snap != nil && snap.epoch == epoch {
		return snap, nil
	}

	v, err, _ := c.group.Do(strconv.FormatUint(epoch, 10), func() (any, error) {
		if cur := c.current.Load(); cur != nil && cur.epoch == epoch {
			return cur, nil
		}

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		names, err := c.catalog.ListAll(loadCtx)
		if err != nil {
			metrics.CategoryReloads.WithLabelValues("error").Inc()
			return nil, err
		}

		fresh := &snapshot{epoch: epoch, names: names}
		c.current.Store(fresh)
		metrics.CategoryReloads.WithLabelValues("ok").Inc()

		c.log.Debug().Uint64("epoch", epoch).Int("categories", len(names)).Msg("category cache loaded")

		return fresh, nil
	})
	if err != nil {
		if snap != nil {
			c.log.Warn().Err(err).Msg("category reload failed, serving stale names")
			return snap, nil
		}

		return nil, fmt.Errorf("load categories: %w", err)
	}

	fresh, ok := v.(*snapshot)
	if !ok {
		return nil, errors.New("load categories: unexpected snapshot type")
	}

	return fresh, nil
}

// lessKey 按主、子分类数值排序，非法键排在最后按字典序.
func lessKey(a, b string) bool {
	am, as, aok := split(a)
	bm, bs, bok := split(b)

	switch {
	case aok && bok:
		if am != bm {
			return am < bm
		}

		return as < bs
	case aok != bok:
		return aok
	default:
		return a < b
	}
}

func split(key string) (int, int, bool) {
	l, r, ok := strings.Cut(key, "_")
	if !ok {
		return 0, 0, false
	}

	m, err1 := strconv.Atoi(l)
	s, err2 := strconv.Atoi(r)

	return m, s, err1 == nil && err2 == nil
}
