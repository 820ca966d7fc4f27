package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"stubborn-archivist/common"
	"stubborn-archivist/internal/ledger"
	"stubborn-archivist/internal/models"
	"stubborn-archivist/internal/runner"
	"stubborn-archivist/internal/status"
	"stubborn-archivist/internal/store"
)

type server struct {
	checkpoints    store.CheckpointStore
	results        store.ResultStore
	ledgerSize     int
	maxItemsPerRun int
}

func newServer(checkpoints store.CheckpointStore, results store.ResultStore, ledgerSize, maxItemsPerRun int) *server {
	return &server{
		checkpoints:    checkpoints,
		results:        results,
		ledgerSize:     ledgerSize,
		maxItemsPerRun: maxItemsPerRun,
	}
}

func main() {
	asJSON := flag.Bool("json", false, "print the snapshot as JSON instead of text")
	serveAddr := flag.String("serve", "", "serve /progress and /metrics on this address instead of printing once")
	flag.Parse()

	dataDir := common.GetEnv("DATA_DIR", "data")
	ledgerFile := common.GetEnv("LEDGER_FILE", "failed_urls.txt")
	checkpointFile := common.GetEnv("CHECKPOINT_FILE", filepath.Join(dataDir, "retry_checkpoint.json"))
	resultsFile := common.GetEnv("RESULTS_FILE", filepath.Join(dataDir, "retry_results.json"))
	maxItems := common.ParseInt(common.GetEnv("MAX_ITEMS_PER_RUN", "100"), runner.DefaultMaxItemsPerRun)
	backend := common.GetEnv("CHECKPOINT_BACKEND", "file")
	redisAddr := common.GetEnv("REDIS_ADDR", "localhost:6379")
	checkpointKey := common.GetEnv("CHECKPOINT_KEY", "archivist:checkpoint")

	ld, err := ledger.Load(ledgerFile)
	if err != nil {
		log.Fatalf("load ledger %s: %v", ledgerFile, err)
	}

	var checkpoints store.CheckpointStore
	switch backend {
	case "redis":
		s := store.NewRedisCheckpointStore(redisAddr, checkpointKey)
		defer func() {
			if err := s.Close(); err != nil {
				log.Printf("failed to close redis checkpoint store: %v", err)
			}
		}()
		checkpoints = s
	case "file":
		checkpoints = store.NewFileCheckpointStore(checkpointFile)
	default:
		log.Fatalf("unknown CHECKPOINT_BACKEND %q (want file or redis)", backend)
	}
	results := store.NewFileResultStore(resultsFile)

	srv := newServer(checkpoints, results, ld.Len(), maxItems)

	if *serveAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/progress", srv.handleProgress)
		mux.HandleFunc("/metrics", srv.handleMetrics)
		log.Printf("status listening on %s", *serveAddr)
		if err := http.ListenAndServe(*serveAddr, mux); err != nil {
			log.Fatal(err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	snapshot, err := status.Report(ctx, checkpoints, results, ld.Len(), maxItems)
	if err != nil {
		log.Fatalf("compute progress: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snapshot); err != nil {
			log.Fatalf("encode snapshot: %v", err)
		}
		return
	}
	printSnapshot(os.Stdout, snapshot)
}

func printSnapshot(w *os.File, s models.ProgressSnapshot) {
	fmt.Fprintf(w, "total items:          %d\n", s.TotalItems)
	fmt.Fprintf(w, "processed:            %d\n", s.ProcessedCount)
	fmt.Fprintf(w, "succeeded:            %d\n", s.SucceededCount)
	fmt.Fprintf(w, "failed:               %d\n", s.FailedCount)
	fmt.Fprintf(w, "remaining:            %d\n", s.RemainingCount)
	fmt.Fprintf(w, "percent complete:     %.1f%%\n", s.PercentComplete)
	fmt.Fprintf(w, "est. remaining runs:  %d\n", s.EstimatedRemainingRuns)
}

// handleProgress returns the current progress snapshot.
//
// Method: GET
// Path:   /progress
// Example:
//
//	curl "http://localhost:8081/progress"
func (s *server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	snapshot, err := status.Report(ctx, s.checkpoints, s.results, s.ledgerSize, s.maxItemsPerRun)
	if err != nil {
		http.Error(w, "failed to compute progress", http.StatusBadGateway)
		return
	}

	writeJSON(w, snapshot, http.StatusOK)
}

// handleMetrics exposes the snapshot as Prometheus gauges.
//
// Method: GET
// Path:   /metrics
// Example:
//
//	curl "http://localhost:8081/metrics"
func (s *server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	snapshot, err := status.Report(ctx, s.checkpoints, s.results, s.ledgerSize, s.maxItemsPerRun)
	if err != nil {
		http.Error(w, "failed to compute progress", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	body := fmt.Sprintf(
		"archivist_status_up 1\n"+
			"archivist_total_items %d\n"+
			"archivist_processed_items %d\n"+
			"archivist_succeeded_items %d\n"+
			"archivist_failed_items %d\n"+
			"archivist_remaining_items %d\n"+
			"archivist_percent_complete %.1f\n"+
			"archivist_estimated_remaining_runs %d\n",
		snapshot.TotalItems,
		snapshot.ProcessedCount,
		snapshot.SucceededCount,
		snapshot.FailedCount,
		snapshot.RemainingCount,
		snapshot.PercentComplete,
		snapshot.EstimatedRemainingRuns,
	)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
