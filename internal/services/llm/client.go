package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"
)

const (
	jsonResponseType      = "json_object"
	defaultBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultHTTPTimeout    = 120 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3
)

// ErrNoImage is returned by GenerateImage when the model answered without an
// image attachment.
var ErrNoImage = errors.New("llm image: response carried no image")

// Config captures the runtime settings required to talk to the model.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
	Temperature    float64
	MaxTokens      int
}

// Image is an inline image attachment, sent and received as a data URL.
type Image struct {
	MIMEType string
	Data     []byte
}

// JPEG wraps encoded JPEG bytes.
func JPEG(data []byte) Image {
	return Image{MIMEType: "image/jpeg", Data: data}
}

// DataURL renders the image as a base64 data URL.
func (i Image) DataURL() string {
	mime := i.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// ParseDataURL decodes a base64 data URL produced by DataURL or returned by
// an image-capable model.
func ParseDataURL(raw string) (Image, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(raw), "data:")
	if !ok {
		return Image{}, fmt.Errorf("llm image: not a data url: %s", snippet(raw))
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, errors.New("llm image: data url missing payload")
	}
	mime, encoding, _ := strings.Cut(header, ";")
	if encoding != "base64" {
		return Image{}, fmt.Errorf("llm image: unsupported data url encoding %q", encoding)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("llm image: decode base64: %w", err)
	}
	return Image{MIMEType: mime, Data: data}, nil
}

// Client wraps the OpenRouter chat completion API.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts sets the total attempt budget per request.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper replaces the retry sleep.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	client := &Client{
		cfg:              cfg,
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

type emptyContentError struct {
	Op           string
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf(
		"%s: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.Op, e.FinishReason, e.Refusal, e.Snippet,
	)
}

// CompleteJSON issues a text-only JSON chat completion and returns the raw
// JSON payload produced by the model.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.complete(ctx, "llm complete", systemPrompt, userPrompt, nil)
}

// CompleteVisionJSON is CompleteJSON with images attached to the user
// message, in order, after the prompt text.
func (c *Client) CompleteVisionJSON(ctx context.Context, systemPrompt, userPrompt string, images ...Image) (string, error) {
	if len(images) == 0 {
		return "", errors.New("llm vision: at least one image required")
	}
	return c.complete(ctx, "llm vision", systemPrompt, userPrompt, images)
}

func (c *Client) complete(ctx context.Context, op, systemPrompt, userPrompt string, images []Image) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	switch {
	case systemPrompt == "":
		return "", fmt.Errorf("%s: system prompt required", op)
	case userPrompt == "":
		return "", fmt.Errorf("%s: user prompt required", op)
	case c.cfg.APIKey == "":
		return "", fmt.Errorf("%s: api key required", op)
	}
	var userContent any = userPrompt
	if len(images) > 0 {
		parts := make([]contentPart, 0, len(images)+1)
		parts = append(parts, contentPart{Type: "text", Text: userPrompt})
		for _, img := range images {
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: img.DataURL()}})
		}
		userContent = parts
	}
	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Temperature:    c.cfg.Temperature,
		MaxTokens:      c.cfg.MaxTokens,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}
	var content string
	err := c.exchange(ctx, op, payload, func(completion chatCompletionResponse, body []byte) error {
		text, finishReason := extractCompletionPayload(completion)
		if text == "" {
			return emptyCompletion(op, completion, finishReason, body)
		}
		content = text
		return nil
	})
	return content, err
}

// GenerateImage asks an image-capable model to render prompt, optionally
// conditioned on reference images, and returns the first image attachment.
func (c *Client) GenerateImage(ctx context.Context, prompt string, references ...Image) (Image, error) {
	const op = "llm image"
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Image{}, fmt.Errorf("%s: prompt required", op)
	}
	if c.cfg.APIKey == "" {
		return Image{}, fmt.Errorf("%s: api key required", op)
	}
	parts := []contentPart{{Type: "text", Text: prompt}}
	for _, ref := range references {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: ref.DataURL()}})
	}
	payload := chatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: parts}},
		Temperature: c.cfg.Temperature,
		Modalities:  []string{"image", "text"},
	}
	var out Image
	err := c.exchange(ctx, op, payload, func(completion chatCompletionResponse, _ []byte) error {
		for _, choice := range completion.Choices {
			for _, attachment := range choice.Message.Images {
				if attachment.ImageURL == nil {
					continue
				}
				img, err := ParseDataURL(attachment.ImageURL.URL)
				if err != nil {
					return err
				}
				out = img
				return nil
			}
		}
		return ErrNoImage
	})
	return out, err
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, err := c.complete(ctx, "llm health", "You must respond with JSON only.", `Respond with {"ok":true}`, nil)
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON(content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
	Modalities     []string          `json:"modalities,omitempty"`
}

// chatMessage content is either a plain string or a []contentPart.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
		// Some providers return the streaming schema even when stream=false.
		Delta        chatCompletionMessage `json:"delta"`
		Text         string                `json:"text"`
		FinishReason string                `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type chatCompletionMessage struct {
	Content   string        `json:"content"`
	ToolCalls []toolCall    `json:"tool_calls"`
	Refusal   string        `json:"refusal"`
	Images    []contentPart `json:"images"`
}

type toolCall struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// exchange sends payload until accept succeeds, the error is final, or the
// attempt budget runs out.
func (c *Client) exchange(ctx context.Context, op string, payload chatCompletionRequest, accept func(chatCompletionResponse, []byte) error) error {
	var err error
	attempt := 1
	for ; ; attempt++ {
		var completion chatCompletionResponse
		var body []byte
		completion, body, err = c.sendOnce(ctx, payload)
		if err == nil {
			if err = accept(completion, body); err == nil {
				return nil
			}
		}
		delay, retry := c.nextDelay(ctx, err, attempt)
		if !retry {
			break
		}
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return fmt.Errorf("%s: %w", op, sleepErr)
		}
	}
	if attempt > 1 {
		return fmt.Errorf("%s: failed after %d attempts: %w", op, attempt, err)
	}
	return err
}

func emptyCompletion(op string, completion chatCompletionResponse, finishReason string, body []byte) error {
	if len(completion.Choices) == 0 {
		return fmt.Errorf("%s: empty choices", op)
	}
	var refusal string
	for _, choice := range completion.Choices {
		if refusal = firstNonEmpty(choice.Message.Refusal, choice.Delta.Refusal); refusal != "" {
			break
		}
	}
	return &emptyContentError{
		Op:           op,
		FinishReason: finishReason,
		Refusal:      refusal,
		Snippet:      snippet(string(body)),
	}
}

func extractCompletionPayload(completion chatCompletionResponse) (string, string) {
	var finishReason string
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if content := firstNonEmpty(choice.Message.Content, choice.Delta.Content, choice.Text); content != "" {
			return content, finishReason
		}
		for _, call := range slices.Concat(choice.Message.ToolCalls, choice.Delta.ToolCalls) {
			if args := strings.TrimSpace(call.Function.Arguments); args != "" {
				return args, finishReason
			}
		}
	}
	return "", finishReason
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (c *Client) sendOnce(ctx context.Context, payload chatCompletionRequest) (chatCompletionResponse, []byte, error) {
	var completion chatCompletionResponse
	encoded, err := json.Marshal(payload)
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: read body (timeout=%s): %w", c.timeoutDuration(), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return completion, body, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, body, fmt.Errorf("llm request: decode response: %w", err)
	}
	if completion.Error != nil {
		return completion, body, fmt.Errorf("llm request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	return completion, body, nil
}
