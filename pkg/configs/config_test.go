package configs_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/yeisme/torrentvault/pkg/configs"
	"github.com/yeisme/torrentvault/pkg/rule"
)

func TestInitConfigDefaults(t *testing.T) {
	if err := configs.InitConfig(""); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}

	cfg := configs.GetConfig()

	if cfg.Search.ResultsPerPage != configs.DefaultResultsPerPage {
		t.Errorf("results_per_page = %d", cfg.Search.ResultsPerPage)
	}

	if cfg.Search.MaxSearchResults != configs.DefaultMaxSearchResults {
		t.Errorf("max_search_results = %d", cfg.Search.MaxSearchResults)
	}

	if cfg.Search.UseFullTextIndex {
		t.Error("full-text index enabled by default")
	}

	if cfg.Index.Type != configs.IndexSQLite || cfg.KV.Type != "memory" {
		t.Errorf("index = %s, kv = %s", cfg.Index.Type, cfg.KV.Type)
	}

	if len(cfg.Auth.UserHeaders) == 0 || cfg.Auth.UserHeaders[0] != "X-Auth-Request-User" {
		t.Errorf("user headers = %v", cfg.Auth.UserHeaders)
	}
}

func TestInitConfigFromDirectory(t *testing.T) {
	dir := t.TempDir()
	body := "server:\n  reload_config: false\nsearch:\n  results_per_page: 20\n  use_full_text_index: true\nindex:\n  type: mongo\n"

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := configs.InitConfig(dir); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}

	cfg := configs.GetConfig()
	if cfg.Search.ResultsPerPage != 20 || !cfg.Search.UseFullTextIndex || cfg.Index.Type != configs.IndexMongo {
		t.Fatalf("search = %+v, index = %s", cfg.Search, cfg.Index.Type)
	}

	if cfg.Search.FeedCacheSeconds != configs.DefaultFeedCacheSeconds {
		t.Fatalf("unset key lost its default: %d", cfg.Search.FeedCacheSeconds)
	}
}

func TestInitConfigEnvOverride(t *testing.T) {
	t.Setenv("TORRENTVAULT_SEARCH_RESULTS_PER_PAGE", "33")

	if err := configs.InitConfig(""); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}

	if got := configs.GetConfig().Search.ResultsPerPage; got != 33 {
		t.Fatalf("results_per_page = %d", got)
	}
}

func TestInitConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"per page":   "search:\n  results_per_page: 0\n",
		"kv type":    "kv:\n  type: memcached\n",
		"index type": "search:\n  use_full_text_index: true\nindex:\n  type: elastic\n",
		"tracker":    "search:\n  trackers: [\"ftp://tracker.example/announce\"]\n",
		"limit key":  "rate_limit:\n  key: cookie\n",
		"breaker":    "circuit_breaker:\n  failure_rate: 1.5\n",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
				t.Fatal(err)
			}

			if err := configs.InitConfig(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateReportsConfigKeys(t *testing.T) {
	if err := configs.InitConfig(""); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}

	cfg := *configs.GetConfig()
	cfg.Search.Trackers = []string{"udp://ok.example:80/announce", "not a url"}

	err := cfg.Validate()

	var verrs rule.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected rule.ValidationErrors, got %v", err)
	}

	if _, ok := verrs["trackers[1]"]; !ok || len(verrs) != 1 {
		t.Fatalf("errors = %v", verrs)
	}
}
