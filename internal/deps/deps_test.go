package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	present := writeStub(t, t.TempDir(), "present", "#!/bin/sh\nexit 0\n")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("expected unconfigured detail, got %q", results[2].Detail)
	}
}

func TestMissingIgnoresOptional(t *testing.T) {
	statuses := []Status{
		{Name: "a", Available: true},
		{Name: "b"},
		{Name: "c", Optional: true},
	}
	missing := Missing(statuses)
	if len(missing) != 1 || missing[0].Name != "b" {
		t.Fatalf("expected only b missing, got %#v", missing)
	}
}

func TestMediaRequirements(t *testing.T) {
	reqs := MediaRequirements("ffmpeg", "ffprobe")
	if len(reqs) != 2 || reqs[0].Command != "ffmpeg" || reqs[1].Command != "ffprobe" {
		t.Fatalf("unexpected requirements %#v", reqs)
	}
}

func TestVersionFirstLine(t *testing.T) {
	stub := writeStub(t, t.TempDir(), "ffmpeg",
		"#!/bin/sh\necho 'ffmpeg version 7.1 Copyright (c) 2000-2024 the FFmpeg developers'\necho 'built with gcc'\n")
	if got := Version(context.Background(), stub); got != "ffmpeg version 7.1" {
		t.Fatalf("expected trimmed version line, got %q", got)
	}
}

func TestVersionFailure(t *testing.T) {
	stub := writeStub(t, t.TempDir(), "broken", "#!/bin/sh\nexit 3\n")
	if got := Version(context.Background(), stub); got != "" {
		t.Fatalf("expected empty version on failure, got %q", got)
	}
	if got := Version(context.Background(), ""); got != "" {
		t.Fatalf("expected empty version for blank command, got %q", got)
	}
}
