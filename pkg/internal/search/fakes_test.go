package search_test

import (
	"context"
	"strings"
	"sync"

	"github.com/yeisme/torrentvault/pkg/internal/search"
)

// fakeUsers 内存用户目录，记录每次查询的用户名.
type fakeUsers struct {
	mu      sync.Mutex
	users   map[string]*search.User
	err     error
	lookups []string
}

func newFakeUsers(users ...search.User) *fakeUsers {
	f := &fakeUsers{users: make(map[string]*search.User)}
	for i := range users {
		u := users[i]
		f.users[strings.ToLower(u.Name)] = &u
	}

	return f
}

func (f *fakeUsers) ByUsername(_ context.Context, name string) (*search.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lookups = append(f.lookups, name)
	if f.err != nil {
		return nil, f.err
	}

	return f.users[strings.ToLower(name)], nil
}

func (f *fakeUsers) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.lookups)
}

// fakeContent 内存哈希目录.
type fakeContent struct {
	records map[string]*search.ContentRecord
	err     error
	lookups []string
}

func newFakeContent(records ...search.ContentRecord) *fakeContent {
	f := &fakeContent{records: make(map[string]*search.ContentRecord)}
	for i := range records {
		r := records[i]
		f.records[r.InfoHash] = &r
	}

	return f
}

func (f *fakeContent) ByExactHash(_ context.Context, hex40 string) (*search.ContentRecord, error) {
	f.lookups = append(f.lookups, hex40)
	if f.err != nil {
		return nil, f.err
	}

	return f.records[hex40], nil
}

// fakeStore 关系库后端，返回固定结果并记录收到的查询.
type fakeStore struct {
	rows    []search.Row
	total   int
	err     error
	queries []search.Query
}

func (f *fakeStore) Query(_ context.Context, q search.Query) ([]search.Row, int, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, 0, f.err
	}

	return f.rows, f.total, nil
}

// fakeIndex 全文索引后端.
type fakeIndex struct {
	rows        []search.Row
	reported    int
	err         error
	queries     []search.Query
	cappedPages []int
}

func (f *fakeIndex) Query(_ context.Context, q search.Query, cappedPage int) ([]search.Row, int, error) {
	f.queries = append(f.queries, q)
	f.cappedPages = append(f.cappedPages, cappedPage)

	if f.err != nil {
		return nil, 0, f.err
	}

	return f.rows, f.reported, nil
}

// staticNames 固定的分类名.
type staticNames map[string]string

func (s staticNames) Name(_ context.Context, key string) string {
	if n, ok := s[key]; ok {
		return n
	}

	return "???"
}
