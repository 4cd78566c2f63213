package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tacreview/internal/config"
)

const userAgent = "tacreview/0.1"

// RunSummary is the outcome of a finished run as shown in a notification.
type RunSummary struct {
	Video          string
	AverageScore   float64
	Rating         string
	Passed         bool
	Threshold      int
	FramesAnalyzed int
	FramesSkipped  int
	Duration       time.Duration
}

// Service sends run notifications.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary RunSummary) error
	NotifyRunFailed(ctx context.Context, video string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: strings.TrimSpace(cfg.Notifications.NtfyTopic),
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether svc delivers messages.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary RunSummary) error {
	verdict, tag := "FAIL", "warning"
	if summary.Passed {
		verdict, tag = "PASS", "white_check_mark"
	}
	var msg strings.Builder
	fmt.Fprintf(&msg, "%s scored %.1f (%s), benchmark %d: %s", strings.TrimSpace(summary.Video), summary.AverageScore, summary.Rating, summary.Threshold, verdict)
	fmt.Fprintf(&msg, "\n%d frame(s) analyzed", summary.FramesAnalyzed)
	if summary.FramesSkipped > 0 {
		fmt.Fprintf(&msg, ", %d skipped", summary.FramesSkipped)
	}
	if summary.Duration > 0 {
		fmt.Fprintf(&msg, " in %s", summary.Duration.Round(time.Second))
	}
	return n.send(ctx, payload{
		title:   "tacreview - Review Complete",
		message: msg.String(),
		tags:    []string{"tacreview", tag},
	})
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, video string, err error) error {
	reason := "unknown error"
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}
	return n.send(ctx, payload{
		title:    "tacreview - Review Failed",
		message:  fmt.Sprintf("%s: %s", strings.TrimSpace(video), reason),
		tags:     []string{"tacreview", "x"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "tacreview - Test",
		message:  "Notification test",
		tags:     []string{"tacreview", "test_tube"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, RunSummary) error { return nil }
func (noopService) NotifyRunFailed(context.Context, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
