package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"stubborn-archivist/common"
	"stubborn-archivist/internal/extract"
	"stubborn-archivist/internal/feed"
	"stubborn-archivist/internal/ledger"
	"stubborn-archivist/internal/models"
	"stubborn-archivist/internal/runner"
	"stubborn-archivist/internal/store"
)

func main() {
	dataDir := common.GetEnv("DATA_DIR", "data")
	ledgerFile := common.GetEnv("LEDGER_FILE", "failed_urls.txt")
	checkpointFile := common.GetEnv("CHECKPOINT_FILE", filepath.Join(dataDir, "retry_checkpoint.json"))
	resultsFile := common.GetEnv("RESULTS_FILE", filepath.Join(dataDir, "retry_results.json"))
	maxItems := common.ParseInt(common.GetEnv("MAX_ITEMS_PER_RUN", "100"), runner.DefaultMaxItemsPerRun)
	flushEvery := common.ParseInt(common.GetEnv("FLUSH_EVERY", "5"), runner.DefaultFlushEvery)
	interItemDelay := common.ParseDuration(common.GetEnv("INTER_ITEM_DELAY", "1s"), runner.DefaultInterItemDelay)
	backend := common.GetEnv("CHECKPOINT_BACKEND", "file")
	redisAddr := common.GetEnv("REDIS_ADDR", "localhost:6379")
	checkpointKey := common.GetEnv("CHECKPOINT_KEY", "archivist:checkpoint")
	broker := common.GetEnv("KAFKA_BROKER", "")
	outcomesTopic := common.GetEnv("KAFKA_OUTCOMES_TOPIC", "archivist.outcomes")
	metricsAddr := common.GetEnv("METRICS_ADDR", ":9090")
	untilDone := common.ParseBool(common.GetEnv("RUN_UNTIL_DONE", ""), false)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		startMetricsServer(ctx, metricsAddr)
	}

	ld, err := ledger.Load(ledgerFile)
	if err != nil {
		log.Fatalf("load ledger %s: %v", ledgerFile, err)
	}
	log.Printf("loaded ledger %s with %d item(s)", ledgerFile, ld.Len())

	checkpoints, closeCheckpoints := buildCheckpointStore(backend, checkpointFile, redisAddr, checkpointKey)
	defer closeCheckpoints()
	results := store.NewFileResultStore(resultsFile)

	var sink runner.OutcomeSink
	if broker != "" {
		pub := feed.NewPublisher(broker, outcomesTopic)
		defer func() {
			if err := pub.Close(); err != nil {
				log.Printf("failed to close outcome publisher: %v", err)
			}
		}()
		sink = pub
		log.Printf("publishing outcomes to topic=%s broker=%s", outcomesTopic, broker)
	}

	extractor := &metricsExtractor{inner: buildExtractor(ctx, ld)}

	cfg := runner.Config{
		MaxItemsPerRun: maxItems,
		FlushEvery:     flushEvery,
		InterItemDelay: interItemDelay,
		RunID:          newRunID(),
		Sink:           sink,
	}
	log.Printf("run %s starting: max_items=%d flush_every=%d delay=%s backend=%s", cfg.RunID, maxItems, flushEvery, interItemDelay, backend)

	for {
		report, runErr := runner.RunOnce(ctx, ld, checkpoints, results, extractor, cfg)
		recordRunReport(report)
		logSummary(report, ld.Len())
		if errors.Is(runErr, context.Canceled) {
			log.Printf("run interrupted; flushed progress is durable, rerun to resume")
			return
		}
		if runErr != nil {
			log.Fatalf("run aborted: %v", runErr)
		}
		if !report.HasMoreWork {
			log.Printf("all %d item(s) accounted for", ld.Len())
			return
		}
		if !untilDone {
			log.Printf("more work remains; chain another run to continue")
			return
		}
	}
}

// buildCheckpointStore selects the checkpoint backend. The file backend is
// the default; redis serves deployments where runs hop between hosts.
func buildCheckpointStore(backend, path, redisAddr, key string) (store.CheckpointStore, func()) {
	switch backend {
	case "redis":
		s := store.NewRedisCheckpointStore(redisAddr, key)
		return s, func() {
			if err := s.Close(); err != nil {
				log.Printf("failed to close redis checkpoint store: %v", err)
			}
		}
	case "file":
		return store.NewFileCheckpointStore(path), func() {}
	default:
		log.Fatalf("unknown CHECKPOINT_BACKEND %q (want file or redis)", backend)
		return nil, nil
	}
}

// buildExtractor wires the HTTP extractor from the environment, fetching
// robots.txt once per run when enabled.
func buildExtractor(ctx context.Context, ld *ledger.Ledger) *extract.HTTPExtractor {
	e := &extract.HTTPExtractor{
		ProxyURL:              common.GetEnv("PROXY_URL", ""),
		ProxyPool:             common.GetEnv("PROXY_POOL", ""),
		Hostname:              os.Getenv("HOSTNAME"),
		ChallengeTimeout:      common.ParseDuration(common.GetEnv("CHALLENGE_TIMEOUT", "30s"), extract.DefaultChallengeTimeout),
		ChallengePollInterval: common.ParseDuration(common.GetEnv("CHALLENGE_POLL_INTERVAL", "3s"), extract.DefaultChallengePollInterval),
	}
	if e.ProxyPool != "" && e.ProxyURL == "" {
		log.Printf("runner proxy from pool: hostname=%s proxy=%s", e.Hostname, extract.SelectProxyFromPool(e.ProxyPool, e.Hostname))
	}

	if common.ParseBool(common.GetEnv("RESPECT_ROBOTS_TXT", ""), false) && ld.Len() > 0 {
		base, err := siteBase(ld.Item(0).ID)
		if err != nil {
			log.Printf("robots.txt skipped, cannot derive site from ledger: %v", err)
			return e
		}
		robotsCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		body, err := extract.FetchRobots(robotsCtx, extract.NewClient(e.ProxyURL), base)
		cancel()
		if err != nil {
			log.Printf("robots.txt fetch failed (will allow all paths): %v", err)
			return e
		}
		e.Robots = extract.ParseRobots(body, extract.DefaultUserAgent)
		log.Printf("loaded robots.txt for %s", base)
	}
	return e
}

// siteBase returns scheme://host for a ledger URL.
func siteBase(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("no scheme or host in %q", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

func logSummary(report models.RunReport, total int) {
	log.Printf("batch summary: attempted=%d succeeded=%d failed=%d skipped=%d next_index=%d remaining=%d has_more_work=%t",
		report.Attempted, report.Succeeded, report.Failed, report.Skipped,
		report.EndIndex+1, total-(report.EndIndex+1), report.HasMoreWork)
}

func newRunID() string {
	return strings.ReplaceAll(time.Now().UTC().Format("20060102150405.000000000"), ".", "")
}
