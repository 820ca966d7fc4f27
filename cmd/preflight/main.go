package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"stubborn-archivist/common"
)

// preflight verifies the optional backing services before a run is scheduled.
// Each check is skipped unless its address is configured.
func main() {
	broker := common.GetEnv("KAFKA_BROKER", "")
	redisAddr := common.GetEnv("REDIS_ADDR", "")
	backend := common.GetEnv("CHECKPOINT_BACKEND", "file")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	failed := false
	if broker != "" {
		failed = !checkKafka(ctx, broker) || failed
	} else {
		fmt.Println("kafka: skipped (KAFKA_BROKER not set)")
	}
	if redisAddr != "" || backend == "redis" {
		if redisAddr == "" {
			redisAddr = "localhost:6379"
		}
		failed = !checkRedis(ctx, redisAddr) || failed
	} else {
		fmt.Println("redis: skipped (REDIS_ADDR not set, file checkpoint backend)")
	}

	if failed {
		os.Exit(1)
	}
}

func checkKafka(ctx context.Context, broker string) bool {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kafka: failed to connect to %s: %v\n", broker, err)
		return false
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "kafka: failed to read metadata: %v\n", err)
		return false
	}
	fmt.Printf("kafka: connected to %s (%d partitions)\n", broker, len(partitions))
	return true
}

func checkRedis(ctx context.Context, addr string) bool {
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		fmt.Fprintf(os.Stderr, "redis: failed to ping %s: %v\n", addr, err)
		return false
	}
	fmt.Printf("redis: connected to %s\n", addr)
	return true
}
