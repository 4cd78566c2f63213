package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"tacreview/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrDecode, "extract", "open", "drill.mp4", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"extract", "open", "drill.mp4"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestFailureStatusMapping(t *testing.T) {
	validationErr := services.Wrap(services.ErrInputValidation, "validate", "extension", ".txt", nil)
	if status := services.FailureStatus(validationErr); status != services.StatusReview {
		t.Fatalf("expected review for validation error, got %s", status)
	}

	missing := services.Wrap(services.ErrNotFound, "validate", "stat", "missing.mp4", nil)
	if status := services.FailureStatus(missing); status != services.StatusReview {
		t.Fatalf("expected review for not found error, got %s", status)
	}

	decodeErr := services.Wrap(services.ErrDecode, "extract", "open", "", errors.New("io"))
	if status := services.FailureStatus(decodeErr); status != services.StatusFailed {
		t.Fatalf("expected failed for decode error, got %s", status)
	}

	if status := services.FailureStatus(nil); status != services.StatusFailed {
		t.Fatalf("expected failed for nil error, got %s", status)
	}
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		err   error
		fatal bool
	}{
		{nil, false},
		{services.Wrap(services.ErrFrameRead, "extract", "read", "frame 3", nil), false},
		{fmt.Errorf("frame 2: %w", services.ErrAnalysisService), false},
		{services.Wrap(services.ErrNoFramesExtracted, "extract", "", "", nil), true},
		{services.ErrEmptyInput, true},
		{services.ErrDecode, true},
	}
	for _, tc := range cases {
		if got := services.IsFatal(tc.err); got != tc.fatal {
			t.Fatalf("IsFatal(%v) = %v, want %v", tc.err, got, tc.fatal)
		}
	}
}
