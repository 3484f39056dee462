package jira

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"ticketsmith/internal/services"
)

func TestCreateIssue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rest/api/2/issue" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "dev@example.com" || pass != "token" {
			t.Errorf("unexpected auth %q %q", user, pass)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("missing JSON content type")
		}
		var payload struct {
			Fields map[string]any `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode: %v", err)
		}
		if payload.Fields["summary"] != "Fix login" {
			t.Errorf("unexpected fields %v", payload.Fields)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"10001","key":"SEC-7","self":"https://jira/rest/api/2/issue/10001"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL + "/rest/api/2", Email: "dev@example.com", APIToken: "token"})
	created, err := client.CreateIssue(context.Background(), map[string]any{"summary": "Fix login"})
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}
	if created.Key != "SEC-7" || created.ID != "10001" {
		t.Fatalf("unexpected created %+v", created)
	}
}

func TestCreateIssueErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"bad request", http.StatusBadRequest, `{"errors":{"summary":"required"}}`},
		{"missing key", http.StatusCreated, `{"id":"1"}`},
		{"not json", http.StatusCreated, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(Config{BaseURL: server.URL, Email: "e", APIToken: "t"})
			_, err := client.CreateIssue(context.Background(), map[string]any{})
			if !errors.Is(err, services.ErrExternalService) {
				t.Fatalf("expected external service error, got %v", err)
			}
		})
	}
}

func TestCreateIssueRequiresToken(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := client.CreateIssue(context.Background(), map[string]any{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCreateIssueStatusPreserved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()
	_, err := NewClient(Config{BaseURL: server.URL, APIToken: "t"}).CreateIssue(context.Background(), nil)
	if !IsStatus(err, http.StatusForbidden) {
		t.Fatalf("expected 403 status error, got %v", err)
	}
}

func TestSearchStoriesPaginatesWithOffsets(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != "/search/jql" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("jql") != `labels = "VectorService"` {
			t.Errorf("unexpected jql %q", q.Get("jql"))
		}
		if q.Get("fields") != "key,summary,description,customfield_11930,customfield_15510" {
			t.Errorf("unexpected fields %q", q.Get("fields"))
		}
		start, _ := strconv.Atoi(q.Get("startAt"))
		var body string
		switch start {
		case 0:
			body = `{"startAt":0,"total":3,"issues":[
				{"key":"VS-1","fields":{"summary":"One","description":"Desc","customfield_11930":"AC one","customfield_15510":null}},
				{"key":"VS-2","fields":{"summary":"Two","description":{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"ADF text"}]}]},"customfield_11930":{"value":"opt"}}}
			]}`
		case 2:
			body = `{"startAt":2,"total":3,"issues":[{"key":"VS-3","fields":{"summary":"Three"}}]}`
		default:
			t.Errorf("unexpected startAt %d", start)
			body = `{"issues":[]}`
		}
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL:                 server.URL,
		Email:                   "e",
		APIToken:                "t",
		AcceptanceCriteriaField: "customfield_11930",
		ReleaseNotesField:       "customfield_15510",
	})
	stories, err := client.SearchStories(context.Background(), `labels = "VectorService"`, 0)
	if err != nil {
		t.Fatalf("SearchStories: %v", err)
	}
	if len(stories) != 3 || requests != 2 {
		t.Fatalf("got %d stories in %d requests", len(stories), requests)
	}
	if stories[0].AcceptanceCriteria != "AC one" || stories[0].ReleaseNotes != "" {
		t.Fatalf("unexpected first story %+v", stories[0])
	}
	if stories[1].Description != "ADF text" || stories[1].AcceptanceCriteria != "opt" {
		t.Fatalf("unexpected second story %+v", stories[1])
	}
}

func TestSearchStoriesFollowsPageToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("nextPageToken") == "" {
			_, _ = w.Write([]byte(`{"isLast":false,"nextPageToken":"abc","issues":[{"key":"A-1","fields":{"summary":"a"}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"isLast":true,"issues":[{"key":"A-2","fields":{"summary":"b"}}]}`))
	}))
	defer server.Close()

	stories, err := NewClient(Config{BaseURL: server.URL, APIToken: "t"}).SearchStories(context.Background(), "project = A", 0)
	if err != nil {
		t.Fatalf("SearchStories: %v", err)
	}
	if len(stories) != 2 || stories[1].Key != "A-2" {
		t.Fatalf("unexpected stories %+v", stories)
	}
}

func TestSearchStoriesRespectsLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("maxResults") != "1" {
			t.Errorf("expected page size 1, got %s", r.URL.Query().Get("maxResults"))
		}
		_, _ = w.Write([]byte(`{"total":5,"issues":[{"key":"A-1","fields":{}}]}`))
	}))
	defer server.Close()

	stories, err := NewClient(Config{BaseURL: server.URL, APIToken: "t"}).SearchStories(context.Background(), "x", 1)
	if err != nil {
		t.Fatalf("SearchStories: %v", err)
	}
	if len(stories) != 1 {
		t.Fatalf("expected 1 story, got %d", len(stories))
	}
}

func TestSearchStoriesStopsOnRepeatedPage(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write([]byte(`{"isLast":false,"issues":[{"key":"A-1","fields":{"summary":"a"}},{"key":"A-2","fields":{"summary":"b"}}]}`))
	}))
	defer server.Close()

	stories, err := NewClient(Config{BaseURL: server.URL, APIToken: "t"}).SearchStories(context.Background(), "project = A", 0)
	if err != nil {
		t.Fatalf("SearchStories: %v", err)
	}
	if len(stories) != 2 || requests != 2 {
		t.Fatalf("expected 2 stories from 2 requests, got %d stories from %d requests", len(stories), requests)
	}
}
