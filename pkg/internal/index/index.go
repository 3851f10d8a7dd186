// Package index 提供全文索引后端，带检索词的查询由此处理，数据由关系库增量同步而来.
package index

import (
	"context"
	"fmt"
	"slices"

	"github.com/yeisme/torrentvault/pkg/configs"
	"github.com/yeisme/torrentvault/pkg/internal/search"
)

// Index 全文索引.
type Index interface {
	search.FullTextBackend
	// Upsert 按 ID 写入或覆盖记录，隐藏与已删除的记录同样写入，由查询时过滤.
	Upsert(ctx context.Context, rows []search.Row) error
	// Count 索引中的记录总数.
	Count(ctx context.Context) (int64, error)
	// Reset 清空索引.
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Factory 按配置创建索引.
type Factory func(ctx context.Context, cfg configs.IndexConfig) (Index, error)

var factories = map[configs.IndexType]Factory{}

// Register 注册索引后端.
func Register(t configs.IndexType, f Factory) {
	factories[t] = f
}

// RegisteredTypes 返回已注册的索引类型，按名称排序.
func RegisteredTypes() []configs.IndexType {
	types := make([]configs.IndexType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	slices.Sort(types)

	return types
}

// New 按配置类型创建索引.
func New(ctx context.Context, cfg configs.IndexConfig) (Index, error) {
	f, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported index type: %s", cfg.Type)
	}

	return f(ctx, cfg)
}

// countLimit 计数上限，超过预算一条即可判断总数被截断. 负数表示不限.
func countLimit(budget int) int {
	if budget < 0 {
		return -1
	}

	return budget + 1
}

// sortField 排序字段到存储字段名，两种后端字段名一致.
func sortField(k search.SortKey) string {
	switch k {
	case search.SortBySize:
		return "filesize"
	case search.SortBySeeders:
		return "seeders"
	case search.SortByLeechers:
		return "leechers"
	case search.SortByDownloads:
		return "downloads"
	case search.SortByComments:
		return "comment_count"
	default:
		return "id"
	}
}
