package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tacreview/internal/config"
	"tacreview/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newTopic(t *testing.T, status int) (*config.Config, <-chan captured) {
	t.Helper()
	requests := make(chan captured, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests <- captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte("topic says no"))
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL + "/unit-3"
	return &cfg, requests
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if notifications.Enabled(svc) {
		t.Fatal("expected noop service without topic")
	}
	if err := svc.NotifyRunFailed(context.Background(), "breach", errors.New("boom")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNotifyRunCompleted(t *testing.T) {
	cfg, requests := newTopic(t, http.StatusOK)
	svc := notifications.NewService(cfg)
	if !notifications.Enabled(svc) {
		t.Fatal("expected ntfy service")
	}

	err := svc.NotifyRunCompleted(context.Background(), notifications.RunSummary{
		Video:          "breach",
		AverageScore:   82.34,
		Rating:         "Good",
		Passed:         true,
		Threshold:      70,
		FramesAnalyzed: 2,
		FramesSkipped:  1,
		Duration:       42 * time.Second,
	})
	if err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}
	got := <-requests
	if got.title != "tacreview - Review Complete" {
		t.Fatalf("unexpected title %q", got.title)
	}
	if !strings.Contains(got.body, "breach scored 82.3 (Good), benchmark 70: PASS") {
		t.Fatalf("unexpected body %q", got.body)
	}
	if !strings.Contains(got.body, "2 frame(s) analyzed, 1 skipped in 42s") {
		t.Fatalf("unexpected body %q", got.body)
	}
	if got.tags != "tacreview,white_check_mark" {
		t.Fatalf("unexpected tags %q", got.tags)
	}
}

func TestNotifyRunFailedIsHighPriority(t *testing.T) {
	cfg, requests := newTopic(t, http.StatusOK)
	svc := notifications.NewService(cfg)

	if err := svc.NotifyRunFailed(context.Background(), "patrol", errors.New("no frames analyzed")); err != nil {
		t.Fatalf("NotifyRunFailed: %v", err)
	}
	got := <-requests
	if got.priority != "high" || got.body != "patrol: no frames analyzed" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestSendReportsHTTPErrors(t *testing.T) {
	cfg, _ := newTopic(t, http.StatusForbidden)
	err := notifications.NewService(cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ntfy returned 403: topic says no") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
