package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseRobotsAllowed(t *testing.T) {
	body := `
User-agent: *
Disallow: /account
Disallow: /admin
Disallow: /api

User-agent: Googlebot
Crawl-delay: 10
`
	r := ParseRobots([]byte(body), DefaultUserAgent)

	for _, path := range []string{"/dictionary/word", "/dictionary/word.html"} {
		if !r.Allowed(path) {
			t.Errorf("expected path %q to be allowed", path)
		}
	}
	for _, path := range []string{"/account", "/account/settings", "/api/lookup", "/admin"} {
		if r.Allowed(path) {
			t.Errorf("expected path %q to be disallowed", path)
		}
	}
}

func TestParseRobotsNilEmptyAllowed(t *testing.T) {
	var r *RobotsRules
	if !r.Allowed("/anything") {
		t.Error("nil rules should allow all")
	}
	empty := ParseRobots([]byte("User-agent: *\n"), DefaultUserAgent)
	if !empty.Allowed("/account") {
		t.Error("empty disallow list should allow all")
	}
}

func TestPathFromURL(t *testing.T) {
	if got := PathFromURL("https://dictionary.example/dictionary/word.html"); got != "/dictionary/word.html" {
		t.Errorf("PathFromURL = %q", got)
	}
	if got := PathFromURL("https://dictionary.example/search?q=foo"); got != "/search" {
		t.Errorf("PathFromURL = %q", got)
	}
	if got := PathFromURL(""); got != "/" {
		t.Errorf("PathFromURL empty = %q", got)
	}
}

func TestFetchRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	}))
	defer srv.Close()

	body, err := FetchRobots(context.Background(), srv.Client(), srv.URL+"/dictionary/word")
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	rules := ParseRobots(body, DefaultUserAgent)
	if rules.Allowed("/private/x") {
		t.Fatal("expected /private disallowed")
	}
}

func TestFetchRobotsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := FetchRobots(context.Background(), srv.Client(), srv.URL); err == nil {
		t.Fatal("expected error for missing robots.txt")
	}
}
