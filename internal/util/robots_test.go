package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRobotsChecker_Check(t *testing.T) {
	var robotsHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits.Add(1)
			_, _ = fmt.Fprint(w, "User-agent: gazetteer\nDisallow: /private\nCrawl-delay: 2\n")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewRobotsChecker("gazetteer/0.1 (+https://example.com)", server.Client())
	ctx := context.Background()

	perm, err := checker.Check(ctx, server.URL+"/documents/gazette/2006/text/18_Sep30_Registrar.cfm")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !perm.Allowed {
		t.Error("expected documents path to be allowed")
	}
	if perm.CrawlDelay != 2*time.Second {
		t.Errorf("expected crawl delay 2s, got %v", perm.CrawlDelay)
	}

	perm, err = checker.Check(ctx, server.URL+"/private/file.txt")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if perm.Allowed {
		t.Error("expected private path to be disallowed")
	}

	if robotsHits.Load() != 1 {
		t.Errorf("expected robots.txt fetched once, got %d", robotsHits.Load())
	}

	checker.Clear()
	if _, err := checker.Check(ctx, server.URL+"/x"); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if robotsHits.Load() != 2 {
		t.Errorf("expected robots.txt refetched after Clear, got %d", robotsHits.Load())
	}
}

func TestRobotsChecker_MissingRobots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := NewRobotsChecker("gazetteer/0.1", server.Client())
	perm, err := checker.Check(context.Background(), server.URL+"/anything")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !perm.Allowed {
		t.Error("expected missing robots.txt to allow everything")
	}
}

func TestRobotsChecker_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	checker := NewRobotsChecker("gazetteer/0.1", nil)
	perm, err := checker.Check(context.Background(), url+"/anything")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !perm.Allowed {
		t.Error("expected unreachable robots.txt to allow")
	}
}

func TestRobotsChecker_InvalidURL(t *testing.T) {
	checker := NewRobotsChecker("gazetteer/0.1", nil)
	if _, err := checker.Check(context.Background(), "::invalid"); err == nil {
		t.Error("expected error for invalid URL")
	}
	if _, err := checker.Check(context.Background(), "/relative/path"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"gazetteer/0.1 (+https://github.com/ppiankov/gazetteer)": "gazetteer",
		"curl/8.0":  "curl",
		"plain":     "plain",
		"":          "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}
