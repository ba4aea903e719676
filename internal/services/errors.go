package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers classify failures so callers can route deliveries without
// string matching. Wrap attaches one marker plus stage/operation detail to the
// underlying cause.
var (
	// ErrPayload marks message bodies that cannot be decoded at all.
	ErrPayload = errors.New("payload error")
	// ErrValidation marks well-formed payloads that fail business rules.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups whose subject does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration marks startup or wiring problems that need operator action.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks infrastructure failures that are safe to retry.
	ErrTransient = errors.New("transient error")
)

// Wrap decorates err with a classification marker and uniform detail. A nil
// err still produces an error when a marker is supplied, which lets callers
// construct classified failures directly.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	switch {
	case marker == nil && err == nil:
		if detail == "" {
			return nil
		}
		return errors.New(detail)
	case marker == nil:
		if detail == "" {
			return err
		}
		return fmt.Errorf("%s: %w", detail, err)
	case err == nil:
		if detail == "" {
			return marker
		}
		return fmt.Errorf("%s: %w", detail, marker)
	default:
		if detail == "" {
			return fmt.Errorf("%w: %w", marker, err)
		}
		return fmt.Errorf("%s: %w: %w", detail, marker, err)
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if trimmed := strings.TrimSpace(stage); trimmed != "" {
		parts = append(parts, trimmed)
	}
	if trimmed := strings.TrimSpace(operation); trimmed != "" {
		parts = append(parts, trimmed)
	}
	if trimmed := strings.TrimSpace(message); trimmed != "" {
		parts = append(parts, trimmed)
	}
	return strings.Join(parts, " ")
}
