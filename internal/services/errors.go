package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trawl/internal/journal"
)

var (
	// ErrNotFound marks the provider's "identifier does not exist" answer.
	// It is the expected outcome for most of the numeric domain and is never
	// logged.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks provider failures worth retrying on a later run.
	ErrTransient = errors.New("transient failure")
	// ErrAssetFetch marks a failed asset download. No partial file remains,
	// so a later run retries it.
	ErrAssetFetch = errors.New("asset fetch failure")
	// ErrPersistence marks checkpoint or catalog write failures. These abort
	// the run to avoid silent progress loss.
	ErrPersistence = errors.New("persistence failure")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps any error onto the closed marker set. Unrecognized failures
// classify as transient so they are retried on a later run rather than lost.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrPersistence):
		return ErrPersistence
	case errors.Is(err, ErrAssetFetch):
		return ErrAssetFetch
	case errors.Is(err, ErrValidation):
		return ErrValidation
	case errors.Is(err, ErrConfiguration):
		return ErrConfiguration
	default:
		return ErrTransient
	}
}

// RunStatus maps the error a run ended with to the journal status the engine
// should persist: interrupted for cancellation, failed for everything else.
func RunStatus(err error) journal.Status {
	if err == nil {
		return journal.StatusCompleted
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return journal.StatusInterrupted
	}
	return journal.StatusFailed
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
