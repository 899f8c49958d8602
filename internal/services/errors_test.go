package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"trawl/internal/journal"
	"trawl/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransient, "provider", "fetch", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"provider", "fetch", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "assets", "download", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker for nil marker, got %v", err)
	}
}

func TestClassifyClosedSet(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{nil, nil},
		{services.Wrap(services.ErrNotFound, "provider", "fetch", "absent", nil), services.ErrNotFound},
		{services.Wrap(services.ErrPersistence, "catalog", "flush", "disk full", nil), services.ErrPersistence},
		{services.Wrap(services.ErrAssetFetch, "assets", "download", "status 500", nil), services.ErrAssetFetch},
		{services.Wrap(services.ErrValidation, "workid", "parse", "bad input", nil), services.ErrValidation},
		{services.Wrap(services.ErrConfiguration, "config", "load", "missing family", nil), services.ErrConfiguration},
		{errors.New("anything else"), services.ErrTransient},
	}
	for _, tc := range cases {
		if got := services.Classify(tc.err); !errors.Is(got, tc.want) && !(got == nil && tc.want == nil) {
			t.Errorf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestRunStatusMapping(t *testing.T) {
	if status := services.RunStatus(nil); status != journal.StatusCompleted {
		t.Fatalf("expected completed for nil error, got %s", status)
	}
	if status := services.RunStatus(context.Canceled); status != journal.StatusInterrupted {
		t.Fatalf("expected interrupted for canceled context, got %s", status)
	}
	persistErr := services.Wrap(services.ErrPersistence, "checkpoint", "save", "write failed", errors.New("io"))
	if status := services.RunStatus(persistErr); status != journal.StatusFailed {
		t.Fatalf("expected failed for persistence error, got %s", status)
	}
}
