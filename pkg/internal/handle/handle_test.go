package handle_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/torrentvault/pkg/internal/category"
	"github.com/yeisme/torrentvault/pkg/internal/handle"
	"github.com/yeisme/torrentvault/pkg/internal/search"
	"github.com/yeisme/torrentvault/pkg/scheduler"
)

type fakeSearcher struct {
	out  *search.Outcome
	err  error
	last search.Request
}

func (f *fakeSearcher) Search(_ context.Context, req search.Request) (*search.Outcome, error) {
	f.last = req
	return f.out, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeCategories struct {
	entries []category.Entry
	err     error
}

func (f fakeCategories) Entries(context.Context) ([]category.Entry, error) { return f.entries, f.err }

type fakeJobs struct {
	infos []scheduler.JobInfo
	ran   []string
}

func (f *fakeJobs) GetJobInfos() []scheduler.JobInfo { return f.infos }

func (f *fakeJobs) RunNow(name string) error {
	for _, j := range f.infos {
		if j.Name == name {
			f.ran = append(f.ran, name)
			return nil
		}
	}

	return fmt.Errorf("%w: %s", scheduler.ErrJobNotFound, name)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(h *handle.Handler) *gin.Engine {
	r := gin.New()
	r.GET("/", h.SearchPage)
	r.GET("/rss", h.Feed)
	r.GET("/categories", h.ListCategories)
	r.GET("/health/db", h.HealthDB)
	r.GET("/health/index", h.HealthIndex)
	r.GET("/jobs", h.ListJobs)
	r.POST("/jobs/:name/run", h.RunJob)

	return r
}

func do(r http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))

	return w
}

func TestSearchRendersView(t *testing.T) {
	s := &fakeSearcher{out: &search.Outcome{View: &search.ViewModel{
		Backend: "relational",
		Rows:    []search.ViewRow{{Row: search.Row{ID: 3, DisplayName: "Bebop 01"}}},
	}}}
	r := newEngine(handle.New(s, nil, nil, nil, nil))

	w := do(r, http.MethodGet, "/?q=bebop&p=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var vm search.ViewModel
	if err := json.Unmarshal(w.Body.Bytes(), &vm); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(vm.Rows) != 1 || vm.Rows[0].DisplayName != "Bebop 01" {
		t.Fatalf("rows = %+v", vm.Rows)
	}

	if s.last.Feed {
		t.Fatal("interactive request flagged as feed")
	}

	if s.last.Params.Get("q") != "bebop" || s.last.Params.Get("p") != "2" {
		t.Fatalf("params = %v", s.last.Params)
	}

	if s.last.Session != nil {
		t.Fatal("anonymous request carried a session")
	}
}

func TestSearchRedirectsOnHashMatch(t *testing.T) {
	s := &fakeSearcher{out: &search.Outcome{Redirect: &search.Redirect{ContentID: 7, Reason: search.RedirectReasonInfoHash}}}
	r := newEngine(handle.New(s, nil, nil, nil, nil))

	w := do(r, http.MethodGet, "/?q=0123456789abcdef0123456789abcdef01234567")
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d", w.Code)
	}

	if got := w.Header().Get("Location"); got != "/view/7" {
		t.Fatalf("Location = %q", got)
	}

	if got := w.Header().Get("X-Redirect-Reason"); got != search.RedirectReasonInfoHash {
		t.Fatalf("reason = %q", got)
	}
}

func feedOutcome() *search.Outcome {
	return &search.Outcome{Feed: &search.FeedDocument{
		Label:        `"bebop"`,
		SiteURL:      "http://localhost:8080",
		CacheControl: "max-age=300",
		Entries: []search.FeedEntry{{
			Title:        "Bebop & Friends 01",
			Link:         "http://localhost:8080/download/3.torrent",
			GUID:         "http://localhost:8080/view/3",
			PubDate:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			CategoryID:   "1_2",
			CategoryName: "Anime - English-translated",
			Size:         "1.0 GiB",
			Seeders:      3,
			Leechers:     1,
			Downloads:    42,
			InfoHash:     "0123456789abcdef0123456789abcdef01234567",
			Trusted:      true,
		}},
	}}
}

func TestFeedRoute(t *testing.T) {
	s := &fakeSearcher{out: feedOutcome()}
	r := newEngine(handle.New(s, nil, nil, nil, nil))

	w := do(r, http.MethodGet, "/rss?q=bebop")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	if !s.last.Feed {
		t.Fatal("/rss not flagged as feed")
	}

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Fatalf("Content-Type = %q", ct)
	}

	if cc := w.Header().Get("Cache-Control"); cc != "max-age=300" {
		t.Fatalf("Cache-Control = %q", cc)
	}

	body := w.Body.String()
	for _, want := range []string{
		`xmlns:nyaa="https://nyaa.si/xmlns/nyaa"`,
		"<title>TorrentVault - &#34;bebop&#34; - Torrent File RSS</title>",
		"<title>Bebop &amp; Friends 01</title>",
		"<nyaa:seeders>3</nyaa:seeders>",
		"<nyaa:categoryId>1_2</nyaa:categoryId>",
		"<nyaa:trusted>Yes</nyaa:trusted>",
		"<nyaa:remake>No</nyaa:remake>",
		"<pubDate>Fri, 01 Mar 2024 12:00:00 -0000</pubDate>",
		`<guid isPermaLink="true">http://localhost:8080/view/3</guid>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("feed missing %s\n%s", want, body)
		}
	}
}

func TestPageRSSOnRootIsFeed(t *testing.T) {
	s := &fakeSearcher{out: feedOutcome()}
	r := newEngine(handle.New(s, nil, nil, nil, nil))

	w := do(r, http.MethodGet, "/?page=rss&q=bebop")
	if w.Code != http.StatusOK || !s.last.Feed {
		t.Fatalf("status = %d, feed = %v", w.Code, s.last.Feed)
	}
}

func TestRenderFeedMagnetTitle(t *testing.T) {
	doc := feedOutcome().Feed
	doc.Magnet = true
	doc.Label = "Home"

	body, err := handle.RenderFeed(doc)
	if err != nil {
		t.Fatalf("RenderFeed: %v", err)
	}

	if !strings.HasPrefix(string(body), "<?xml") {
		t.Fatalf("missing xml header: %.40s", body)
	}

	if !strings.Contains(string(body), "<title>TorrentVault - Home - Magnet URI RSS</title>") {
		t.Fatalf("unexpected channel title:\n%s", body)
	}
}

func TestSearchErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unknown user", fmt.Errorf("user %q: %w", "ghost", search.ErrNotFound), http.StatusNotFound},
		{"backend down", fmt.Errorf("%w: store: boom", search.ErrBackendUnavailable), http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newEngine(handle.New(&fakeSearcher{err: tc.err}, nil, nil, nil, nil))

			w := do(r, http.MethodGet, "/?u=ghost")
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestListCategories(t *testing.T) {
	cats := fakeCategories{entries: []category.Entry{
		{Key: "1_0", Name: "Anime", Path: []string{"Anime"}, Main: true},
		{Key: "1_2", Name: "Anime - English-translated", Path: []string{"Anime", "English-translated"}},
	}}
	r := newEngine(handle.New(&fakeSearcher{}, cats, nil, nil, nil))

	w := do(r, http.MethodGet, "/categories")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var got struct {
		Categories []category.Entry `json:"categories"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(got.Categories) != 2 || got.Categories[1].Key != "1_2" {
		t.Fatalf("categories = %+v", got.Categories)
	}

	r = newEngine(handle.New(&fakeSearcher{}, fakeCategories{err: errors.New("db gone")}, nil, nil, nil))
	if w := do(r, http.MethodGet, "/categories"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("failing catalog status = %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	cases := []struct {
		name   string
		db     handle.Pinger
		index  handle.Pinger
		target string
		want   int
		status string
	}{
		{"db ok", fakePinger{}, nil, "/health/db", http.StatusOK, "ok"},
		{"db down", fakePinger{err: errors.New("refused")}, nil, "/health/db", http.StatusServiceUnavailable, "unhealthy"},
		{"db missing", nil, nil, "/health/db", http.StatusServiceUnavailable, "unhealthy"},
		{"index disabled", fakePinger{}, nil, "/health/index", http.StatusOK, "disabled"},
		{"index ok", fakePinger{}, fakePinger{}, "/health/index", http.StatusOK, "ok"},
		{"index down", fakePinger{}, fakePinger{err: errors.New("locked")}, "/health/index", http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newEngine(handle.New(&fakeSearcher{}, nil, tc.db, tc.index, nil))

			w := do(r, http.MethodGet, tc.target)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}

			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}

			if body["status"] != tc.status {
				t.Fatalf("status field = %q, want %q", body["status"], tc.status)
			}
		})
	}
}

func TestJobs(t *testing.T) {
	jobs := &fakeJobs{infos: []scheduler.JobInfo{{Name: "index.sync", Status: scheduler.StatusScheduled}}}
	r := newEngine(handle.New(&fakeSearcher{}, nil, nil, nil, jobs))

	w := do(r, http.MethodGet, "/jobs")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"index.sync"`) {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}

	if w := do(r, http.MethodPost, "/jobs/index.sync/run"); w.Code != http.StatusAccepted {
		t.Fatalf("run status = %d", w.Code)
	}

	if len(jobs.ran) != 1 || jobs.ran[0] != "index.sync" {
		t.Fatalf("ran = %v", jobs.ran)
	}

	if w := do(r, http.MethodPost, "/jobs/missing/run"); w.Code != http.StatusNotFound {
		t.Fatalf("missing job status = %d", w.Code)
	}

	r = newEngine(handle.New(&fakeSearcher{}, nil, nil, nil, nil))
	if w := do(r, http.MethodPost, "/jobs/index.sync/run"); w.Code != http.StatusNotFound {
		t.Fatalf("disabled scheduler status = %d", w.Code)
	}
}
