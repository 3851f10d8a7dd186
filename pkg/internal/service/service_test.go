package service_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"

	"github.com/yeisme/torrentvault/pkg/configs"
	"github.com/yeisme/torrentvault/pkg/internal/model"
	"github.com/yeisme/torrentvault/pkg/internal/search"
	"github.com/yeisme/torrentvault/pkg/internal/service"
	"github.com/yeisme/torrentvault/pkg/internal/storage/db"
)

var dbSeq atomic.Int64

// fixture 内存数据库与样例数据.
type fixture struct {
	svc   *service.Services
	alice model.User
	bob   model.User
	mod   model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:svc%d?mode=memory&cache=shared", dbSeq.Add(1))

	client, err := db.Open(context.Background(), sqlite.Open(dsn), configs.DBConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	t.Cleanup(func() { _ = client.Close() })

	if err := model.AutoMigrate(client.DB); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	f := &fixture{
		svc:   service.New(client),
		alice: model.User{Username: "alice"},
		bob:   model.User{Username: "bob", Level: model.UserLevelTrusted},
		mod:   model.User{Username: "mod", Level: model.UserLevelModerator},
	}

	for _, u := range []*model.User{&f.alice, &f.bob, &f.mod} {
		if err := client.Create(u).Error; err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	cats := []model.MainCategory{
		{ID: 1, Name: "Anime", SubCategories: []model.SubCategory{{ID: 2, Name: "English-translated"}}},
		{ID: 2, Name: "Audio"},
	}
	if err := client.Create(&cats).Error; err != nil {
		t.Fatalf("create categories: %v", err)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	torrents := []model.Torrent{
		{DisplayName: "Cowboy Bebop 01", MainCategoryID: 1, SubCategoryID: 2, Seeders: 10, Filesize: 300, UploaderID: &f.alice.ID},
		{DisplayName: "Cowboy Bebop 02", MainCategoryID: 1, SubCategoryID: 2, Seeders: 30, Filesize: 100, UploaderID: &f.alice.ID, Remake: true},
		{DisplayName: "Cowboy Bebop OST", MainCategoryID: 2, SubCategoryID: 0, Seeders: 20, Filesize: 200, UploaderID: &f.bob.ID, Trusted: true},
		{DisplayName: "Secret Bebop", MainCategoryID: 1, SubCategoryID: 2, UploaderID: &f.alice.ID, Hidden: true},
		{DisplayName: "Anon Bebop", MainCategoryID: 1, SubCategoryID: 2, UploaderID: &f.alice.ID, Anonymous: true},
		{DisplayName: "Removed Bebop", MainCategoryID: 1, SubCategoryID: 2, UploaderID: &f.bob.ID, Deleted: true},
		{DisplayName: "100% Orange_Juice", MainCategoryID: 2, SubCategoryID: 0, UploaderID: &f.bob.ID},
	}

	for i := range torrents {
		torrents[i].InfoHash = fmt.Sprintf("%040x", i+1)
		torrents[i].CreatedAt = base.Add(time.Duration(i) * time.Hour)
		torrents[i].UpdatedAt = base.Add(time.Duration(i) * time.Hour)
	}

	if err := client.Create(&torrents).Error; err != nil {
		t.Fatalf("create torrents: %v", err)
	}

	return f
}

func asUser(u model.User) *search.User {
	return &search.User{ID: u.ID, Name: u.Username, Moderator: u.IsModerator()}
}

func baseQuery() search.Query {
	return search.Query{
		SortKey:       search.SortByID,
		SortOrder:     search.Descending,
		Category:      search.AnyCategory,
		QualityFilter: search.QualityAny,
		Page:          1,
		PerPage:       75,
	}
}

func names(rows []search.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.DisplayName)
	}

	return out
}

func containsName(rows []search.Row, name string) bool {
	for _, r := range rows {
		if r.DisplayName == name {
			return true
		}
	}

	return false
}

func TestUserByUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Users.ByUsername(ctx, "mod")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	if u == nil || u.ID != f.mod.ID || !u.Moderator || !u.Trusted {
		t.Fatalf("unexpected user: %+v", u)
	}

	missing, err := f.svc.Users.ByUsername(ctx, "nobody")
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %v)", missing, err)
	}
}

func TestTorrentByExactHash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.Torrents.ByExactHash(ctx, fmt.Sprintf("%040X", 3))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	if rec == nil || rec.DisplayName != "Cowboy Bebop OST" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	none, err := f.svc.Torrents.ByExactHash(ctx, fmt.Sprintf("%040x", 999))
	if err != nil || none != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %v)", none, err)
	}
}

func TestQueryTermAndVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	q := baseQuery().WithTerm("bebop")

	rows, total, err := f.svc.Torrents.Query(ctx, q)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	// 匿名者看不到隐藏与已删除的记录
	if total != 4 || len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d (%v)", total, names(rows))
	}

	if containsName(rows, "Secret Bebop") || containsName(rows, "Removed Bebop") {
		t.Fatalf("hidden or deleted row leaked: %v", names(rows))
	}

	for _, r := range rows {
		if r.DisplayName == "Anon Bebop" && r.UploaderID != nil {
			t.Fatalf("anonymous uploader exposed: %+v", r)
		}
	}

	q.RequestingUser = asUser(f.alice)

	rows, _, err = f.svc.Torrents.Query(ctx, q)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if !containsName(rows, "Secret Bebop") {
		t.Fatalf("uploader should see own hidden row: %v", names(rows))
	}

	q.RenderAsFeed = true

	rows, _, err = f.svc.Torrents.Query(ctx, q)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if containsName(rows, "Secret Bebop") {
		t.Fatalf("feed must not include hidden rows: %v", names(rows))
	}

	admin := baseQuery().WithTerm("bebop")
	admin.RequestingUser = asUser(f.mod)
	admin.Admin = true

	_, total, err = f.svc.Torrents.Query(ctx, admin)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if total != 6 {
		t.Fatalf("admin should see all 6 rows, got %d", total)
	}
}

func TestQueryScopedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	q := baseQuery()
	q.ScopedUserID = &f.alice.ID
	q.ScopedUserName = "alice"

	_, total, err := f.svc.Torrents.Query(ctx, q)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if total != 2 {
		t.Fatalf("visitor should see 2 public rows, got %d", total)
	}

	q.RequestingUser = asUser(f.alice)

	rows, total, err := f.svc.Torrents.Query(ctx, q)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if total != 4 {
		t.Fatalf("owner should see 4 rows, got %d (%v)", total, names(rows))
	}

	for _, r := range rows {
		if r.UploaderID == nil || *r.UploaderID != f.alice.ID || r.UploaderName != "alice" {
			t.Fatalf("owner should see own uploader info: %+v", r)
		}
	}
}

func TestQueryFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*search.Query)
		want   []string
	}{
		{
			name:   "main category",
			mutate: func(q *search.Query) { q.Category = "2_0" },
			want:   []string{"100% Orange_Juice", "Cowboy Bebop OST"},
		},
		{
			name:   "no remakes",
			mutate: func(q *search.Query) { q.Term = "cowboy"; q.QualityFilter = search.QualityNoRemakes },
			want:   []string{"Cowboy Bebop OST", "Cowboy Bebop 01"},
		},
		{
			name:   "trusted only",
			mutate: func(q *search.Query) { q.QualityFilter = search.QualityTrusted },
			want:   []string{"Cowboy Bebop OST"},
		},
		{
			name: "seeders ascending",
			mutate: func(q *search.Query) {
				q.Term = "cowboy"
				q.SortKey = search.SortBySeeders
				q.SortOrder = search.Ascending
			},
			want: []string{"Cowboy Bebop 01", "Cowboy Bebop OST", "Cowboy Bebop 02"},
		},
		{
			name:   "like wildcards are literal",
			mutate: func(q *search.Query) { q.Term = "100% orange_" },
			want:   []string{"100% Orange_Juice"},
		},
		{
			name:   "quoted phrase",
			mutate: func(q *search.Query) { q.Term = `"bebop ost"` },
			want:   []string{"Cowboy Bebop OST"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := baseQuery()
			tt.mutate(&q)

			rows, _, err := f.svc.Torrents.Query(ctx, q)
			if err != nil {
				t.Fatalf("query: %v", err)
			}

			got := names(rows)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	q := baseQuery().WithTerm("bebop")
	q.PerPage = 3
	q.Page = 2

	rows, total, err := f.svc.Torrents.Query(ctx, q)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if total != 4 || len(rows) != 1 {
		t.Fatalf("expected 1 row of 4, got %d of %d", len(rows), total)
	}

	rows, total, err = f.svc.Torrents.Query(ctx, q.WithPage(9))
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if total != 4 || len(rows) != 0 {
		t.Fatalf("out of range page should be empty with real total, got %d of %d", len(rows), total)
	}

	for _, raw := range []string{"4611686018427387904", "9223372036854775807"} {
		rows, total, err = f.svc.Torrents.Query(ctx, q.WithPage(search.ParsePage(raw)))
		if err != nil {
			t.Fatalf("page %s: %v", raw, err)
		}

		if total != 4 || len(rows) != 0 {
			t.Fatalf("page %s must be empty with real total, got %d of %d", raw, len(rows), total)
		}
	}
}

func TestChangedSince(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rows, cur, err := f.svc.Torrents.ChangedSince(ctx, service.Cursor{}, 4)
	if err != nil {
		t.Fatalf("changed: %v", err)
	}

	if len(rows) != 4 {
		t.Fatalf("expected first batch of 4, got %d", len(rows))
	}

	rest, next, err := f.svc.Torrents.ChangedSince(ctx, cur, 4)
	if err != nil {
		t.Fatalf("changed: %v", err)
	}

	if len(rest) != 3 {
		t.Fatalf("expected remaining 3, got %d", len(rest))
	}

	if !containsName(rest, "Removed Bebop") {
		t.Fatalf("sync must include deleted rows: %v", names(rest))
	}

	empty, same, err := f.svc.Torrents.ChangedSince(ctx, next, 4)
	if err != nil || len(empty) != 0 || same != next {
		t.Fatalf("expected drained cursor, got %d rows, %+v, %v", len(empty), same, err)
	}

	n, err := f.svc.Torrents.Count(ctx)
	if err != nil || n != 7 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

func TestCategoriesListAll(t *testing.T) {
	f := newFixture(t)

	m, err := f.svc.Categories.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if fmt.Sprint(m["1_2"]) != "[Anime English-translated]" || fmt.Sprint(m["2_0"]) != "[Audio]" {
		t.Fatalf("unexpected map: %v", m)
	}

	if len(m) != 3 {
		t.Fatalf("expected 3 keys, got %d", len(m))
	}
}

func TestCursorOrdering(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := service.Cursor{UpdatedAt: at, ID: 5}

	if !(service.Cursor{UpdatedAt: at, ID: 6}).After(c) || (service.Cursor{UpdatedAt: at, ID: 5}).After(c) {
		t.Error("same timestamp must order by id")
	}

	if !(service.Cursor{UpdatedAt: at.Add(time.Second)}).After(c) || (service.Cursor{UpdatedAt: at.Add(-time.Second), ID: 99}).After(c) {
		t.Error("timestamps must order first")
	}

	back := c.Rewind(5 * time.Second)
	if back.ID != 0 || !back.UpdatedAt.Equal(at.Add(-5*time.Second)) {
		t.Errorf("Rewind = %+v", back)
	}

	if got := (service.Cursor{}).Rewind(time.Minute); got != (service.Cursor{}) {
		t.Errorf("zero cursor rewound to %+v", got)
	}
}
