package main

import (
	"encoding/json"
	"strings"
	"testing"
)

const (
	firstRunID  = "aaaa1111-0000-0000-0000-000000000000"
	secondRunID = "bbbb2222-0000-0000-0000-000000000000"
)

func TestHistoryListsRuns(t *testing.T) {
	env := setupCLITestEnv(t)
	seedRun(t, env.cfg, firstRunID, "breach", 82)
	seedRun(t, env.cfg, secondRunID, "patrol", 55)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "breach")
	requireContains(t, out, "patrol")
	requireContains(t, out, "aaaa1111")
	requireContains(t, out, "82.0")

	out, _, err = runCLI(t, []string{"history", "--video", "patrol", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var runs []runView
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != secondRunID || runs[0].Status != "completed" {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if runs[0].BenchmarkPassed == nil || *runs[0].BenchmarkPassed {
		t.Fatalf("expected failed benchmark, got %v", runs[0].BenchmarkPassed)
	}
}

func TestHistoryEmptyAndBadStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	if _, _, err := runCLI(t, []string{"history", "--status", "bogus"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestShowRunByPrefix(t *testing.T) {
	env := setupCLITestEnv(t)
	seedRun(t, env.cfg, firstRunID, "breach", 82)

	out, _, err := runCLI(t, []string{"show", "aaaa"}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Run "+firstRunID)
	requireContains(t, out, "wedge")
	requireContains(t, out, "vision timeout")
	requireContains(t, out, "1 analyzed, 1 skipped")

	out, _, err = runCLI(t, []string{"show", "--json", firstRunID}, env.configPath)
	if err != nil {
		t.Fatalf("show --json: %v", err)
	}
	var payload struct {
		Run     runView         `json:"run"`
		Frames  []frameView     `json:"frames"`
		Summary json.RawMessage `json:"summary"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode show: %v", err)
	}
	if payload.Run.ID != firstRunID || len(payload.Frames) != 2 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if !strings.Contains(string(payload.Summary), "breach") {
		t.Fatalf("expected stored summary, got %s", payload.Summary)
	}
}

func TestShowAmbiguousAndMissing(t *testing.T) {
	env := setupCLITestEnv(t)
	seedRun(t, env.cfg, firstRunID, "breach", 82)
	seedRun(t, env.cfg, "aaaa9999-0000-0000-0000-000000000000", "breach", 60)

	if _, _, err := runCLI(t, []string{"show", "aaaa"}, env.configPath); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("expected ambiguous id error, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"show", "ffff"}, env.configPath); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestHistoryRemoveAndPrune(t *testing.T) {
	env := setupCLITestEnv(t)
	seedRun(t, env.cfg, firstRunID, "breach", 82)
	seedRun(t, env.cfg, secondRunID, "patrol", 55)

	out, _, err := runCLI(t, []string{"history", "remove", "bbbb"}, env.configPath)
	if err != nil {
		t.Fatalf("history remove: %v", err)
	}
	requireContains(t, out, "Removed run "+secondRunID)

	out, _, err = runCLI(t, []string{"history", "prune", "--older-than", "1s"}, env.configPath)
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, out, "Removed 1 run(s)")

	if _, _, err := runCLI(t, []string{"history", "prune", "--older-than", "0s"}, env.configPath); err == nil {
		t.Fatal("expected error for non-positive cutoff")
	}
}
