package sonar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ticketsmith/internal/services"
)

func TestIssueFetchesFinding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/issues/search" || r.URL.Query().Get("issues") != "AYub-1" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "tok" || pass != "" {
			t.Errorf("unexpected auth %q %q %v", user, pass, ok)
		}
		_, _ = w.Write([]byte(`{"total":1,"issues":[{"key":"AYub-1","rule":"java:S2068","severity":"CRITICAL","component":"svc:src/Auth.java","line":42,"message":"Remove this hard-coded password.","type":"VULNERABILITY"}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL + "/", Token: "tok"})
	finding, err := client.Issue(context.Background(), "AYub-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if finding.Rule != "java:S2068" || finding.Severity != "CRITICAL" || finding.Line != 42 {
		t.Fatalf("unexpected finding %+v", finding)
	}
	if finding.Location() != "svc:src/Auth.java line:42" {
		t.Fatalf("unexpected location %q", finding.Location())
	}
}

func TestIssueNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total":0,"issues":[]}`))
	}))
	defer server.Close()

	_, err := NewClient(Config{BaseURL: server.URL}).Issue(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestIssueServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewClient(Config{BaseURL: server.URL}).Issue(context.Background(), "k")
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
}

func TestIssueRequiresKey(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://127.0.0.1:1"}).Issue(context.Background(), " ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
