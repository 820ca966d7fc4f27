package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/segmentio/kafka-go"

	"stubborn-archivist/common"
	"stubborn-archivist/internal/feed"
	"stubborn-archivist/internal/graph"
	"stubborn-archivist/internal/models"
)

// indexer consumes the outcome feed and mirrors successful extractions into
// Neo4j as Document nodes. It is a downstream projection: losing it loses
// nothing, the result store remains the source of truth.
type indexer struct {
	driver graph.DriverSessioner
}

var (
	// Counters for indexer throughput and failures exposed on /metrics.
	// received: messages fetched from Kafka; failed: Neo4j write errors.
	indexerOutcomesReceived uint64
	indexerOutcomesFailed   uint64
	indexerOutcomesWritten  uint64
	indexerOutcomesSkipped  uint64
)

type neo4jDriver struct {
	driver neo4j.DriverWithContext
}

func (d *neo4jDriver) NewSession(ctx context.Context, config neo4j.SessionConfig) graph.SessionRunner {
	return d.driver.NewSession(ctx, config)
}

func (d *neo4jDriver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

func main() {
	broker := common.GetEnv("KAFKA_BROKER", "localhost:9092")
	outcomesTopic := common.GetEnv("KAFKA_OUTCOMES_TOPIC", "archivist.outcomes")
	outcomesGroup := common.GetEnv("KAFKA_OUTCOMES_GROUP", "archivist-indexer")
	metricsAddr := common.GetEnv("METRICS_ADDR", ":9091")

	neo4jURI := common.GetEnv("NEO4J_URI", "neo4j://localhost:7687")
	neo4jUser := common.GetEnv("NEO4J_USER", "neo4j")
	neo4jPassword := common.GetEnv("NEO4J_PASSWORD", "neo4j")

	driver, err := neo4j.NewDriverWithContext(neo4jURI, neo4j.BasicAuth(neo4jUser, neo4jPassword, ""))
	if err != nil {
		log.Fatalf("neo4j driver error: %v", err)
	}
	defer func() {
		if err := driver.Close(context.Background()); err != nil {
			log.Printf("neo4j close error: %v", err)
		}
	}()

	ix := &indexer{driver: &neo4jDriver{driver: driver}}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{broker},
		Topic:   outcomesTopic,
		GroupID: outcomesGroup,
	})
	defer func() {
		if err := reader.Close(); err != nil {
			log.Printf("outcomes reader close error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		startMetricsServer(ctx, metricsAddr)
	}

	consumeOutcomes(ctx, reader, ix)
}

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
		"archivist_indexer_up 1\n"+
			"archivist_indexer_outcomes_received_total %d\n"+
			"archivist_indexer_outcomes_failed_total %d\n"+
			"archivist_indexer_outcomes_written_total %d\n"+
			"archivist_indexer_outcomes_skipped_total %d\n",
		atomic.LoadUint64(&indexerOutcomesReceived),
		atomic.LoadUint64(&indexerOutcomesFailed),
		atomic.LoadUint64(&indexerOutcomesWritten),
		atomic.LoadUint64(&indexerOutcomesSkipped),
	)
	_, _ = w.Write([]byte(body))
}

func consumeOutcomes(ctx context.Context, reader feed.MessageReader, ix *indexer) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("outcomes fetch error: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		atomic.AddUint64(&indexerOutcomesReceived, 1)
		written, err := ix.writeOutcome(ctx, msg.Value)
		if err != nil {
			atomic.AddUint64(&indexerOutcomesFailed, 1)
			log.Printf("outcomes write error: %v", err)
			continue
		}
		if written {
			atomic.AddUint64(&indexerOutcomesWritten, 1)
		} else {
			atomic.AddUint64(&indexerOutcomesSkipped, 1)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Printf("outcomes commit error: %v", err)
		}
	}
}

// writeOutcome projects one outcome event into the graph. Failed outcomes and
// events without a payload are skipped, not errors.
func (ix *indexer) writeOutcome(ctx context.Context, payload []byte) (bool, error) {
	var event models.OutcomeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return false, err
	}
	if event.Outcome.ID == "" {
		return false, nil
	}
	if event.Outcome.Status != models.StatusSucceeded || event.Outcome.Payload == nil {
		return false, nil
	}

	query, params := buildDocumentQuery(event.RunID, event.Outcome)
	if err := ix.runWrite(ctx, query, params); err != nil {
		return false, err
	}
	return true, nil
}

func (ix *indexer) runWrite(ctx context.Context, query string, params map[string]any) error {
	session := ix.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(ctx); err != nil {
			log.Printf("neo4j session close error: %v", err)
		}
	}()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, params)
		return nil, err
	})
	return err
}

func buildDocumentQuery(runID string, outcome models.Outcome) (string, map[string]any) {
	query := "MERGE (d:Document {url: $url}) " +
		"SET d.run_id = $run_id, " +
		"d.h1 = coalesce($h1, d.h1), " +
		"d.h2 = coalesce($h2, d.h2), " +
		"d.content = coalesce($content, d.content), " +
		"d.extracted_at = $extracted_at"
	var h1 any
	if outcome.Payload.H1 != "" {
		h1 = outcome.Payload.H1
	}
	var h2 any
	if outcome.Payload.H2 != "" {
		h2 = outcome.Payload.H2
	}
	var content any
	if outcome.Payload.Content != "" {
		content = outcome.Payload.Content
	}
	params := map[string]any{
		"url":          outcome.ID,
		"run_id":       runID,
		"h1":           h1,
		"h2":           h2,
		"content":      content,
		"extracted_at": outcome.Payload.ExtractedAt.UTC().Format(time.RFC3339),
	}
	return query, params
}
