package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"stubborn-archivist/internal/extract"
	"stubborn-archivist/internal/models"
)

var (
	// Counters for runner activity exposed on /metrics.
	// attempted: items the slice processed; skipped: already recorded earlier.
	runnerItemsAttempted uint64
	runnerItemsSkipped   uint64
	runnerItemsSucceeded uint64
	runnerItemsFailed    uint64

	// Challenge pages hit during extraction, whether or not they cleared.
	runnerChallengeHitsTotal uint64

	// Histogram buckets for page extraction latency (seconds).
	// Buckets define upper bounds for histogram counts; the +Inf bucket is implicit.
	extractLatencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
	// Counts per bucket; last slot holds the +Inf bucket.
	extractLatencyCounts = make([]uint64, len(extractLatencyBuckets)+1)
	// Sum and count are used by Prometheus histogram quantiles.
	extractLatencySumNs uint64
	extractLatencyCount uint64
)

func startMetricsServer(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", handleMetrics)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics shutdown error: %v", err)
		}
	}()

	go func() {
		log.Printf("metrics listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
}

func handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	body := fmt.Sprintf(
		"archivist_runner_up 1\n"+
			"archivist_runner_items_attempted_total %d\n"+
			"archivist_runner_items_skipped_total %d\n"+
			"archivist_runner_items_succeeded_total %d\n"+
			"archivist_runner_items_failed_total %d\n"+
			"archivist_runner_challenge_hits_total %d\n",
		atomic.LoadUint64(&runnerItemsAttempted),
		atomic.LoadUint64(&runnerItemsSkipped),
		atomic.LoadUint64(&runnerItemsSucceeded),
		atomic.LoadUint64(&runnerItemsFailed),
		atomic.LoadUint64(&runnerChallengeHitsTotal),
	)
	var histogram strings.Builder
	histogram.WriteString("# HELP archivist_runner_extract_latency_seconds Page extraction latency.\n")
	histogram.WriteString("# TYPE archivist_runner_extract_latency_seconds histogram\n")
	appendHistogram(&histogram, "archivist_runner_extract_latency_seconds", extractLatencyBuckets,
		extractLatencyCounts, &extractLatencySumNs, &extractLatencyCount, "%.2f")

	_, _ = w.Write([]byte(body + histogram.String()))
}

// appendHistogram writes a Prometheus histogram (buckets, +Inf, sum, count) to sb.
// counts must have len(buckets)+1 elements; leFmt formats bucket bounds (e.g. "%.2f").
func appendHistogram(sb *strings.Builder, name string, buckets []float64, counts []uint64, sumNs, count *uint64, leFmt string) {
	var cumulative uint64
	for i, bound := range buckets {
		cumulative += atomic.LoadUint64(&counts[i])
		sb.WriteString(fmt.Sprintf("%s_bucket{le=\"%s\"} %d\n", name, fmt.Sprintf(leFmt, bound), cumulative))
	}
	cumulative += atomic.LoadUint64(&counts[len(buckets)])
	sb.WriteString(fmt.Sprintf("%s_bucket{le=\"+Inf\"} %d\n", name, cumulative))
	sumSeconds := float64(atomic.LoadUint64(sumNs)) / float64(time.Second)
	sb.WriteString(fmt.Sprintf("%s_sum %.6f\n", name, sumSeconds))
	sb.WriteString(fmt.Sprintf("%s_count %d\n", name, atomic.LoadUint64(count)))
}

// metricsExtractor wraps an extractor to record latency and challenge hits.
type metricsExtractor struct {
	inner extract.Extractor
}

func (m *metricsExtractor) Extract(ctx context.Context, url string) models.Outcome {
	start := time.Now()
	outcome := m.inner.Extract(ctx, url)
	observeExtractLatency(time.Since(start))
	if outcome.Status == models.StatusFailed && strings.Contains(outcome.Error, "challenge page not cleared") {
		atomic.AddUint64(&runnerChallengeHitsTotal, 1)
	}
	return outcome
}

// observeExtractLatency updates a manual Prometheus histogram.
func observeExtractLatency(duration time.Duration) {
	if duration <= 0 {
		return
	}
	seconds := duration.Seconds()
	bucketIndex := len(extractLatencyBuckets)
	for i, bound := range extractLatencyBuckets {
		if seconds <= bound {
			bucketIndex = i
			break
		}
	}
	atomic.AddUint64(&extractLatencyCounts[bucketIndex], 1)
	atomic.AddUint64(&extractLatencySumNs, uint64(duration.Nanoseconds()))
	atomic.AddUint64(&extractLatencyCount, 1)
}

// recordRunReport folds a finished slice's tallies into the counters.
func recordRunReport(report models.RunReport) {
	atomic.AddUint64(&runnerItemsAttempted, uint64(report.Attempted))
	atomic.AddUint64(&runnerItemsSkipped, uint64(report.Skipped))
	atomic.AddUint64(&runnerItemsSucceeded, uint64(report.Succeeded))
	atomic.AddUint64(&runnerItemsFailed, uint64(report.Failed))
}
