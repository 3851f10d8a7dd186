package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yeisme/torrentvault/pkg/internal/model"
	"github.com/yeisme/torrentvault/pkg/internal/search"
)

const testConfig = `
server:
  reload_config: false
db:
  type: sqlite
  database: %s
  max_open_conns: 1
kv:
  type: memory
search:
  use_full_text_index: true
  results_per_page: 2
  site_url: http://example.test
index:
  type: sqlite
  sqlite:
    path: %s
jobs:
  enabled: false
`

// newTestApp 使用临时目录中的 SQLite 关系库与 FTS5 索引启动完整应用.
func newTestApp(t *testing.T) *App {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(testConfig, filepath.Join(dir, "catalog"), filepath.Join(dir, "index.db"))

	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx := context.Background()

	a, err := NewApp(ctx, path)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}

	t.Cleanup(func() {
		_ = a.scheduler.Shutdown()
		_ = a.core.Close(ctx)
	})

	if a.core.Index == nil || a.core.Syncer == nil {
		t.Fatal("full-text index not wired")
	}

	seed(t, a)

	if _, err := a.core.Syncer.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	return a
}

func seed(t *testing.T, a *App) {
	t.Helper()

	gdb := a.core.Storage.GetDBClient().GetDB()

	alice := model.User{Username: "alice"}
	if err := gdb.Create(&alice).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	cats := []model.MainCategory{
		{ID: 1, Name: "Anime", SubCategories: []model.SubCategory{{ID: 2, Name: "English-translated"}}},
	}
	if err := gdb.Create(&cats).Error; err != nil {
		t.Fatalf("create categories: %v", err)
	}

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	names := []string{"Cowboy Bebop 01", "Cowboy Bebop 02", "Cowboy Bebop 03", "Trigun 01"}

	for i, name := range names {
		tr := model.Torrent{
			InfoHash:       fmt.Sprintf("%040x", i+1),
			DisplayName:    name,
			MainCategoryID: 1,
			SubCategoryID:  2,
			Seeders:        i,
			UploaderID:     &alice.ID,
			CreatedAt:      base.Add(time.Duration(i) * time.Hour),
			UpdatedAt:      base.Add(time.Duration(i) * time.Hour),
		}
		if err := gdb.Create(&tr).Error; err != nil {
			t.Fatalf("create torrent: %v", err)
		}
	}
}

func get(a *App, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

	return w
}

func TestAppEndToEnd(t *testing.T) {
	a := newTestApp(t)

	t.Run("term search uses the index", func(t *testing.T) {
		w := get(a, "/?q=bebop")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}

		var vm search.ViewModel
		if err := json.Unmarshal(w.Body.Bytes(), &vm); err != nil {
			t.Fatalf("decode: %v", err)
		}

		if vm.Backend != "fulltext" {
			t.Fatalf("backend = %q", vm.Backend)
		}

		if vm.Pagination.Total != 3 || len(vm.Rows) != 2 {
			t.Fatalf("total = %d, rows = %d", vm.Pagination.Total, len(vm.Rows))
		}

		if vm.Rows[0].CategoryName != "Anime - English-translated" {
			t.Fatalf("category name = %q", vm.Rows[0].CategoryName)
		}
	})

	t.Run("browse uses the relational store", func(t *testing.T) {
		w := get(a, "/api/v1/search?c=1_2")

		var vm search.ViewModel
		if err := json.Unmarshal(w.Body.Bytes(), &vm); err != nil {
			t.Fatalf("decode: %v", err)
		}

		if vm.Backend != "relational" || vm.Pagination.Total != 4 {
			t.Fatalf("backend = %q, total = %d", vm.Backend, vm.Pagination.Total)
		}
	})

	t.Run("hash redirects", func(t *testing.T) {
		w := get(a, "/?q="+fmt.Sprintf("%040X", 2))
		if w.Code != http.StatusFound || w.Header().Get("Location") != "/view/2" {
			t.Fatalf("status = %d, location = %q", w.Code, w.Header().Get("Location"))
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if w := get(a, "/?u=ghost"); w.Code != http.StatusNotFound {
			t.Fatalf("status = %d", w.Code)
		}
	})

	t.Run("feed is cached", func(t *testing.T) {
		first := get(a, "/rss?q=bebop")
		if first.Code != http.StatusOK {
			t.Fatalf("status = %d", first.Code)
		}

		if !strings.Contains(first.Body.String(), "<title>TorrentVault - &#34;bebop&#34; - Torrent File RSS</title>") {
			t.Fatalf("unexpected feed:\n%s", first.Body.String())
		}

		if first.Header().Get("X-Cache") == "HIT" {
			t.Fatal("first request served from cache")
		}

		second := get(a, "/rss?q=bebop")
		if second.Header().Get("X-Cache") != "HIT" {
			t.Fatalf("second request X-Cache = %q", second.Header().Get("X-Cache"))
		}

		if second.Body.String() != first.Body.String() {
			t.Fatal("cached body differs")
		}
	})

	t.Run("categories and health", func(t *testing.T) {
		if w := get(a, "/api/v1/categories"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "English-translated") {
			t.Fatalf("categories: %d %s", w.Code, w.Body.String())
		}

		for _, target := range []string{"/api/v1/health/db", "/api/v1/health/index"} {
			if w := get(a, target); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
				t.Fatalf("%s: %d %s", target, w.Code, w.Body.String())
			}
		}
	})
}
