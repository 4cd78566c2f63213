package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func completionHandler(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "stop",
					"message":       map[string]any{"content": content},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
}

func testClient(url string, opts ...Option) *Client {
	base := []Option{WithRetryBackoff(0, 0), WithSleeper(func(time.Duration) {})}
	return NewClient(Config{APIKey: "test", BaseURL: url, Model: "demo-model"}, append(base, opts...)...)
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, `{"ok":true}`))
	defer server.Close()

	if err := testClient(server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, "```json\n{\"ok\":true}\n```"))
	defer server.Close()

	if err := testClient(server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	err := testClient(server.URL).HealthCheck(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 401 to be final after 1 call, got %d", calls)
	}
}

func TestCompleteVisionJSONSendsImageParts(t *testing.T) {
	var captured struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Messages    []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
		ResponseFormat map[string]string `json:"response_format"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "tacreview" {
			t.Errorf("unexpected title header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		completionHandler(t, `{"score":80}`)(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{
		APIKey: "test", BaseURL: server.URL, Model: "vision-model",
		Title: "tacreview", Temperature: 0.7, MaxTokens: 2048,
	})
	content, err := client.CompleteVisionJSON(context.Background(), "system", "analyze this frame", JPEG([]byte{0xff, 0xd8, 0xff}))
	if err != nil {
		t.Fatalf("CompleteVisionJSON returned error: %v", err)
	}
	if content != `{"score":80}` {
		t.Fatalf("unexpected content %q", content)
	}
	if captured.Model != "vision-model" || captured.Temperature != 0.7 || captured.MaxTokens != 2048 {
		t.Fatalf("unexpected request settings: %+v", captured)
	}
	if captured.ResponseFormat["type"] != "json_object" {
		t.Fatalf("expected json response format, got %v", captured.ResponseFormat)
	}
	if len(captured.Messages) != 2 || captured.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", captured.Messages)
	}
	var parts []contentPart
	if err := json.Unmarshal(captured.Messages[1].Content, &parts); err != nil {
		t.Fatalf("expected user content parts: %v", err)
	}
	if len(parts) != 2 || parts[0].Type != "text" || parts[0].Text != "analyze this frame" {
		t.Fatalf("unexpected text part: %+v", parts)
	}
	if parts[1].Type != "image_url" || parts[1].ImageURL == nil ||
		!strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg;base64,") {
		t.Fatalf("unexpected image part: %+v", parts[1])
	}
}

func TestCompleteVisionJSONRequiresImage(t *testing.T) {
	if _, err := testClient("http://127.0.0.1:1").CompleteVisionJSON(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error without images")
	}
}

func TestCompleteJSONRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := client.CompleteJSON(context.Background(), "s", "u")
	if err == nil || !strings.Contains(err.Error(), "api key required") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestClientToolCallArguments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "tool_calls",
					"message": map[string]any{
						"content": "",
						"tool_calls": []any{
							map[string]any{
								"type":     "function",
								"id":       "call_1",
								"function": map[string]any{"name": "report", "arguments": `{"score":55}`},
							},
						},
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	content, err := testClient(server.URL).CompleteJSON(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if content != `{"score":55}` {
		t.Fatalf("expected tool call arguments, got %q", content)
	}
}

func TestClientDeltaAndLegacyText(t *testing.T) {
	for name, choice := range map[string]map[string]any{
		"delta":  {"delta": map[string]any{"content": `{"ok":true}`}},
		"legacy": {"text": `{"ok":true}`},
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{choice}})
			}))
			defer server.Close()
			if err := testClient(server.URL).HealthCheck(context.Background()); err != nil {
				t.Fatalf("HealthCheck returned error: %v", err)
			}
		})
	}
}

func TestClientEmptyContentHasSnippet(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, ""))
	defer server.Close()

	_, err := testClient(server.URL, WithRetryMaxAttempts(2)).CompleteJSON(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("expected empty content to fail")
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "response_snippet=") {
		t.Fatalf("expected empty-content error to include snippet, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed after 2 attempts") {
		t.Fatalf("expected attempt count in error, got %v", err)
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		completionHandler(t, `{"ok":true}`)(w, r)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientRetriesOnServerErrorThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		completionHandler(t, `{"ok":true}`)(w, r)
	}))
	defer server.Close()

	if err := testClient(server.URL, WithRetryMaxAttempts(3)).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestClientCanceledContextStopsRetries(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := testClient(server.URL, WithRetryMaxAttempts(5), WithSleeper(func(time.Duration) { cancel() }), WithRetryBackoff(time.Millisecond, time.Millisecond))
	err := client.HealthCheck(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestGenerateImageReturnsAttachment(t *testing.T) {
	want := []byte("\x89PNG fake")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if _, ok := req["modalities"]; !ok {
			t.Errorf("expected modalities in request: %v", req)
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": "here you go",
						"images": []any{
							map[string]any{
								"type":      "image_url",
								"image_url": map[string]any{"url": Image{MIMEType: "image/png", Data: want}.DataURL()},
							},
						},
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	img, err := testClient(server.URL).GenerateImage(context.Background(), "draw the summary")
	if err != nil {
		t.Fatalf("GenerateImage returned error: %v", err)
	}
	if img.MIMEType != "image/png" || !bytes.Equal(img.Data, want) {
		t.Fatalf("unexpected image %q %q", img.MIMEType, img.Data)
	}
}

func TestGenerateImageWithoutAttachment(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, "I cannot draw"))
	defer server.Close()

	_, err := testClient(server.URL).GenerateImage(context.Background(), "draw")
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
}

func TestParseDataURLRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"https://example.com/a.png", "data:image/png;base64", "data:image/png,raw"} {
		if _, err := ParseDataURL(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestDecodeJSONExtractsFromProse(t *testing.T) {
	var out struct {
		Score int `json:"score"`
	}
	if err := DecodeJSON("Here is my analysis:\n{\"score\": 64}\nThanks.", &out); err != nil {
		t.Fatalf("DecodeJSON returned error: %v", err)
	}
	if out.Score != 64 {
		t.Fatalf("expected score 64, got %d", out.Score)
	}
	if err := DecodeJSON("   ", &out); err == nil {
		t.Fatal("expected empty payload error")
	}
}

func TestIsRetryable(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"429":      {&StatusError{StatusCode: 429}, true},
		"503":      {&StatusError{StatusCode: 503}, true},
		"400":      {&StatusError{StatusCode: 400}, false},
		"empty":    {&emptyContentError{Op: "x"}, true},
		"canceled": {context.Canceled, false},
		"nil":      {nil, false},
	}
	for name, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", name, tc.want, got)
		}
	}
}
