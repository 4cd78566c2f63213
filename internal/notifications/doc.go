// Package notifications pushes run outcomes to an ntfy topic.
//
// NewService returns a no-op when notifications.ntfy_topic is empty, so
// callers can notify unconditionally.
package notifications
