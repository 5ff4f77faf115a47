package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks a retryable provider hiccup.
	ErrTransient = errors.New("transient failure")
	// ErrUnavailable marks a capability that is disabled in this environment.
	ErrUnavailable = errors.New("unavailable")
	// ErrNotFound marks an answer with no data. Retrying will not help.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes provider context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, provider, operation, message string, err error) error {
	detail := buildDetail(provider, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTransient reports whether a retry could plausibly succeed. Errors that are
// not tagged at all, network failures included, are treated as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

func buildDetail(provider, operation, message string) string {
	parts := make([]string, 0, 3)
	if provider = strings.TrimSpace(provider); provider != "" {
		parts = append(parts, provider)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "provider failure"
	}
	return strings.Join(parts, ": ")
}
