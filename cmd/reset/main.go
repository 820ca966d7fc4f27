package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"stubborn-archivist/common"
	"stubborn-archivist/internal/store"
)

// reset discards all durable progress so the next run starts from index 0.
// Destructive: requires -yes.
func main() {
	yes := flag.Bool("yes", false, "confirm discarding all checkpoint and result state")
	keepResults := flag.Bool("keep-results", false, "reset only the checkpoint, keeping recorded outcomes")
	flag.Parse()

	if !*yes {
		log.Fatalf("refusing to reset without -yes (this discards all recorded progress)")
	}

	dataDir := common.GetEnv("DATA_DIR", "data")
	checkpointFile := common.GetEnv("CHECKPOINT_FILE", filepath.Join(dataDir, "retry_checkpoint.json"))
	resultsFile := common.GetEnv("RESULTS_FILE", filepath.Join(dataDir, "retry_results.json"))
	backend := common.GetEnv("CHECKPOINT_BACKEND", "file")
	redisAddr := common.GetEnv("REDIS_ADDR", "localhost:6379")
	checkpointKey := common.GetEnv("CHECKPOINT_KEY", "archivist:checkpoint")

	switch backend {
	case "redis":
		s := store.NewRedisCheckpointStore(redisAddr, checkpointKey)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Delete(ctx); err != nil {
			log.Fatalf("delete redis checkpoint %s: %v", checkpointKey, err)
		}
		if err := s.Close(); err != nil {
			log.Printf("failed to close redis checkpoint store: %v", err)
		}
		log.Printf("deleted redis checkpoint key %s", checkpointKey)
	case "file":
		removeFile(checkpointFile, "checkpoint")
	default:
		log.Fatalf("unknown CHECKPOINT_BACKEND %q (want file or redis)", backend)
	}

	if *keepResults {
		log.Printf("results kept at %s", resultsFile)
		return
	}
	removeFile(resultsFile, "results")
}

func removeFile(path, what string) {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			log.Printf("no %s file at %s", what, path)
			return
		}
		log.Fatalf("remove %s file %s: %v", what, path, err)
	}
	log.Printf("removed %s file %s", what, path)
}
