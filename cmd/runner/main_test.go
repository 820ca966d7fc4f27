package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"stubborn-archivist/internal/extract"
	"stubborn-archivist/internal/models"
)

func TestNewRunIDFormat(t *testing.T) {
	id := newRunID()
	if len(id) != 23 {
		t.Fatalf("expected 23 digit run id, got %q (len %d)", id, len(id))
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			t.Fatalf("expected digits only, got %q", id)
		}
	}
}

func TestSiteBase(t *testing.T) {
	base, err := siteBase("https://example.com/dictionary/word?x=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base != "https://example.com" {
		t.Fatalf("expected https://example.com, got %q", base)
	}

	if _, err := siteBase("not a url"); err == nil {
		t.Fatalf("expected error for URL without scheme or host")
	}
}

func TestBuildCheckpointStoreFileBackend(t *testing.T) {
	s, closeStore := buildCheckpointStore("file", t.TempDir()+"/cp.json", "", "")
	defer closeStore()
	if s == nil {
		t.Fatalf("expected a checkpoint store")
	}

	cp, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cp.LastIndex != -1 {
		t.Fatalf("expected fresh checkpoint, got last index %d", cp.LastIndex)
	}
}

func TestHandleMetricsOutput(t *testing.T) {
	recordRunReport(models.RunReport{Attempted: 7, Succeeded: 5, Failed: 2, Skipped: 3})

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	handleMetrics(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"archivist_runner_up 1",
		"archivist_runner_items_attempted_total",
		"archivist_runner_items_succeeded_total",
		"archivist_runner_extract_latency_seconds_bucket{le=\"+Inf\"}",
		"archivist_runner_extract_latency_seconds_count",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected metrics body to contain %q, got:\n%s", want, body)
		}
	}
}

func TestHandleMetricsRejectsPost(t *testing.T) {
	req := httptest.NewRequest("POST", "/metrics", nil)
	rec := httptest.NewRecorder()
	handleMetrics(rec, req)
	if rec.Code != 405 {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
}

func TestMetricsExtractorCountsChallengeFailures(t *testing.T) {
	before := atomic.LoadUint64(&runnerChallengeHitsTotal)
	m := &metricsExtractor{inner: extract.ExtractorFunc(func(ctx context.Context, url string) models.Outcome {
		return models.FailedOutcome(url, "challenge page not cleared within 30s for "+url)
	})}

	out := m.Extract(context.Background(), "https://example.com/a")
	if out.Status != models.StatusFailed {
		t.Fatalf("expected failed outcome, got %s", out.Status)
	}
	if got := atomic.LoadUint64(&runnerChallengeHitsTotal); got != before+1 {
		t.Fatalf("expected challenge hits to increase by 1, got %d -> %d", before, got)
	}
}
