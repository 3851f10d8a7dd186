package index_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/yeisme/torrentvault/pkg/configs"
	"github.com/yeisme/torrentvault/pkg/internal/index"
	"github.com/yeisme/torrentvault/pkg/internal/search"
)

func openTestIndex(t *testing.T) index.Index {
	t.Helper()

	cfg := configs.IndexConfig{
		Type:   configs.IndexSQLite,
		SQLite: configs.SQLiteIndexConfig{Path: filepath.Join(t.TempDir(), "nested", "index.db")},
	}

	idx, err := index.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}

	t.Cleanup(func() { _ = idx.Close() })

	return idx
}

func sampleRows(n int) []search.Row {
	uploader := uint(5)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := make([]search.Row, 0, n)

	for i := 1; i <= n; i++ {
		rows = append(rows, search.Row{
			ID:             uint(i),
			DisplayName:    fmt.Sprintf("Bebop Episode %02d", i),
			InfoHash:       fmt.Sprintf("%040x", i),
			Size:           int64(i * 100),
			Seeders:        n - i,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
			MainCategoryID: 1,
			SubCategoryID:  2,
			UploaderID:     &uploader,
			UploaderName:   "spike",
		})
	}

	return rows
}

func query(term string) search.Query {
	return search.Query{
		Term:            term,
		SortKey:         search.SortByID,
		SortOrder:       search.Descending,
		Category:        search.AnyCategory,
		QualityFilter:   search.QualityAny,
		Page:            1,
		PerPage:         10,
		MaxResultBudget: 1000,
	}
}

func TestSQLiteUpsertAndQuery(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	if err := idx.Upsert(ctx, sampleRows(25)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rows, total, err := idx.Query(ctx, query("bebop"), 1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if total != 25 || len(rows) != 10 {
		t.Fatalf("expected 10 of 25, got %d of %d", len(rows), total)
	}

	if rows[0].ID != 25 || rows[9].ID != 16 {
		t.Fatalf("unexpected order: first %d last %d", rows[0].ID, rows[9].ID)
	}

	if rows[0].UploaderName != "spike" || rows[0].CreatedAt.Minute() != 25 {
		t.Fatalf("row not round-tripped: %+v", rows[0])
	}

	rows, _, err = idx.Query(ctx, query("bebop").WithPage(3), 3)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if len(rows) != 5 || rows[4].ID != 1 {
		t.Fatalf("unexpected last page: %d rows", len(rows))
	}

	n, err := idx.Count(ctx)
	if err != nil || n != 25 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

func TestSQLiteUpsertReplacesText(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	rows := sampleRows(1)
	if err := idx.Upsert(ctx, rows); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rows[0].DisplayName = "Trigun 01"
	if err := idx.Upsert(ctx, rows); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if _, total, _ := idx.Query(ctx, query("bebop"), 1); total != 0 {
		t.Fatalf("stale text still matches, total %d", total)
	}

	if _, total, _ := idx.Query(ctx, query("trigun"), 1); total != 1 {
		t.Fatalf("new text not indexed, total %d", total)
	}

	if n, _ := idx.Count(ctx); n != 1 {
		t.Fatalf("upsert duplicated row, count %d", n)
	}
}

func TestSQLiteCountCappedAtBudget(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	if err := idx.Upsert(ctx, sampleRows(30)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	q := query("bebop")
	q.MaxResultBudget = 12

	_, total, err := idx.Query(ctx, q, 1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if total != 13 {
		t.Fatalf("expected count to stop at budget+1, got %d", total)
	}

	if search.CapTotal(total, q.MaxResultBudget) != 12 {
		t.Fatal("capped total should equal budget")
	}
}

func TestSQLiteVisibilityAndFilters(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	rows := sampleRows(6)
	rows[0].Hidden = true
	rows[1].Deleted = true
	rows[2].Anonymous = true
	rows[3].Remake = true
	rows[4].Trusted = true
	rows[5].MainCategoryID = 3
	rows[5].SubCategoryID = 0

	if err := idx.Upsert(ctx, rows); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	ids := func(q search.Query) []uint {
		t.Helper()

		got, _, err := idx.Query(ctx, q, 1)
		if err != nil {
			t.Fatalf("query: %v", err)
		}

		out := make([]uint, 0, len(got))
		for _, r := range got {
			out = append(out, r.ID)
		}

		return out
	}

	spike := &search.User{ID: 5, Name: "spike"}
	owner := uint(5)

	tests := []struct {
		name   string
		mutate func(*search.Query)
		want   []uint
	}{
		{"visitor", func(*search.Query) {}, []uint{6, 5, 4, 3}},
		{"uploader sees own hidden", func(q *search.Query) { q.RequestingUser = spike }, []uint{6, 5, 4, 3, 1}},
		{"admin sees all", func(q *search.Query) { q.Admin = true }, []uint{6, 5, 4, 3, 2, 1}},
		{"scoped visitor", func(q *search.Query) { q.ScopedUserID = &owner }, []uint{6, 5, 4}},
		{"no remakes", func(q *search.Query) { q.QualityFilter = search.QualityNoRemakes }, []uint{6, 5, 3}},
		{"trusted", func(q *search.Query) { q.QualityFilter = search.QualityTrusted }, []uint{5}},
		{"category", func(q *search.Query) { q.Category = "3_0" }, []uint{6}},
		{"sub category", func(q *search.Query) { q.Category = "1_2" }, []uint{5, 4, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := query("bebop")
			tt.mutate(&q)

			if got := ids(q); fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}

	got, _, _ := idx.Query(ctx, query("bebop"), 1)
	for _, r := range got {
		if r.ID == 3 && r.UploaderID != nil {
			t.Fatalf("anonymous uploader exposed: %+v", r)
		}
	}
}

func TestSQLiteQueryEdgeTerms(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	if err := idx.Upsert(ctx, sampleRows(3)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	for _, term := range []string{`""`, `bebop AND OR NOT`, `episode*`, `"episode 02"`} {
		if _, _, err := idx.Query(ctx, query(term), 1); err != nil {
			t.Errorf("term %q: %v", term, err)
		}
	}

	if _, total, _ := idx.Query(ctx, query(`"episode 02"`), 1); total != 1 {
		t.Fatalf("phrase should match one row, got %d", total)
	}

	if err := idx.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if n, _ := idx.Count(ctx); n != 0 {
		t.Fatalf("reset left %d rows", n)
	}
}

func TestNewUnknownType(t *testing.T) {
	if _, err := index.New(context.Background(), configs.IndexConfig{Type: "elastic"}); err == nil {
		t.Fatal("expected error for unknown index type")
	}
}

func TestRegisteredTypes(t *testing.T) {
	got := index.RegisteredTypes()

	if len(got) != 2 || got[0] != configs.IndexMongo || got[1] != configs.IndexSQLite {
		t.Fatalf("RegisteredTypes() = %v", got)
	}
}
