package search

import "context"

// UserDirectory 按用户名解析用户，不存在时返回 (nil, nil).
type UserDirectory interface {
	ByUsername(ctx context.Context, name string) (*User, error)
}

// ContentDirectory 按 40 位十六进制哈希精确查找资源，不存在时返回 (nil, nil).
type ContentDirectory interface {
	ByExactHash(ctx context.Context, hex40 string) (*ContentRecord, error)
}

// RelationalBackend 关系库检索，返回真实总数.
type RelationalBackend interface {
	Query(ctx context.Context, q Query) ([]Row, int, error)
}

// FullTextBackend 全文索引检索，cappedPage 已按结果预算截断.
type FullTextBackend interface {
	Query(ctx context.Context, q Query, cappedPage int) ([]Row, int, error)
}

// CategoryNamer 将分类键映射为展示名.
type CategoryNamer interface {
	Name(ctx context.Context, key string) string
}
