package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tacreview/internal/config"
	"tacreview/internal/testsupport"
)

func healthServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"nope"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("space", dir, 1); !result.Passed {
		t.Fatalf("expected pass with 1 byte minimum, got %s", result.Detail)
	}
	if result := CheckFreeSpace("space", dir, ^uint64(0)); result.Passed {
		t.Fatal("expected failure for impossible minimum")
	}
	if result := CheckFreeSpace("space", filepath.Join(dir, "missing"), 1); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[uint64]string{
		512:       "512 B",
		2048:      "2.0 KiB",
		100 << 20: "100.0 MiB",
		3 << 30:   "3.0 GiB",
	}
	for n, want := range cases {
		if got := formatBytes(n); got != want {
			t.Fatalf("formatBytes(%d): expected %q, got %q", n, want, got)
		}
	}
}

func TestCheckLLM_OK(t *testing.T) {
	srv := healthServer(t, http.StatusOK)
	result := CheckLLM(context.Background(), "Vision LLM", config.LLMConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "m reachable") {
		t.Fatalf("expected model in detail, got %q", result.Detail)
	}
}

func TestCheckLLM_BadKey(t *testing.T) {
	srv := healthServer(t, http.StatusUnauthorized)
	result := CheckLLM(context.Background(), "Vision LLM", config.LLMConfig{APIKey: "bad", BaseURL: srv.URL, Model: "m"})
	if result.Passed {
		t.Fatal("expected failure for bad key")
	}
	if !strings.Contains(result.Detail, "auth failed") {
		t.Fatalf("expected auth detail, got %q", result.Detail)
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	result := CheckLLM(context.Background(), "Vision LLM", config.LLMConfig{})
	if result.Passed || result.Detail != "API key missing" {
		t.Fatalf("expected missing key failure, got %#v", result)
	}
}

func TestRunLocal_NilConfig(t *testing.T) {
	if results := RunLocal(nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunLocal_WithStubbedBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunLocal(cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %#v", failed)
	}
}

func TestRunLocal_MissingBinary(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("ffmpeg"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	t.Setenv("PATH", filepath.Join(testsupport.BaseDir(cfg), "bin"))

	failed := Failed(RunLocal(cfg))
	if len(failed) != 1 || failed[0].Name != "FFprobe" {
		t.Fatalf("expected only ffprobe to fail, got %#v", failed)
	}
}

func TestRunAll_ChecksImageModelWhenDistinct(t *testing.T) {
	srv := healthServer(t, http.StatusOK)
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(), testsupport.WithLLMBaseURL(srv.URL))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	names := func(results []Result) map[string]bool {
		set := map[string]bool{}
		for _, r := range results {
			set[r.Name] = true
		}
		return set
	}

	got := names(RunAll(context.Background(), cfg))
	if !got["Vision LLM"] || !got["Image LLM"] {
		t.Fatalf("expected vision and image checks, got %v", got)
	}

	cfg.Analysis.Annotate = false
	cfg.Analysis.Infographic = false
	got = names(RunAll(context.Background(), cfg))
	if got["Image LLM"] {
		t.Fatal("expected image check skipped when unused")
	}
}
