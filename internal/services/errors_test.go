package services_test

import (
	"errors"
	"strings"
	"testing"

	"ticketsmith/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalService, "jira", "create issue", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"jira", "create issue", "failed"} {
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

func TestKindAndFatal(t *testing.T) {
	cases := []struct {
		err   error
		kind  string
		fatal bool
	}{
		{services.Wrap(services.ErrConfiguration, "generation", "template", "missing placeholder", nil), "configuration", true},
		{services.Wrap(services.ErrWrite, "ledger", "record", "", errors.New("disk full")), "write", true},
		{services.Wrap(services.ErrValidation, "ingest", "row 3", "summary required", nil), "validation", false},
		{services.Wrap(services.ErrNotFound, "sonar", "issue", "", nil), "not_found", false},
		{services.Wrap(services.ErrTransient, "llm", "chat", "", nil), "transient", false},
		{errors.New("plain"), "transient", false},
		{nil, "", false},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.kind {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.kind)
		}
		if got := services.IsFatal(tc.err); got != tc.fatal {
			t.Fatalf("IsFatal(%v) = %v, want %v", tc.err, got, tc.fatal)
		}
	}
}
