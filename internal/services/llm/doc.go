// Package llm provides an OpenRouter chat client for JSON and vision requests.
//
// CompleteVisionJSON attaches JPEG frames to the user message as base64 data
// URLs and returns the model's JSON reply. GenerateImage requests image output
// from an image-capable model. DecodeJSON tolerates code fences and prose
// around the payload.
//
// # Retry Behaviour
//
// Requests are retried on HTTP 408/429/5xx, empty completions, and network
// timeouts with exponential backoff capped at 10s. Retry-After is honoured.
// Context cancellation aborts retries immediately. IsRetryable exposes the
// same classification to callers that track provider health.
package llm
