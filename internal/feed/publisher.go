package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"stubborn-archivist/internal/models"
)

// Publisher emits flushed outcomes to the outcomes topic so downstream
// consumers (e.g. the Neo4j indexer) can react without reading the result
// file. The feed is best effort: the runner logs publish failures and moves
// on, because the result store is the durable record.
type Publisher struct {
	writer MessageWriter
}

// NewPublisher creates a Kafka publisher for the given broker and topic.
func NewPublisher(broker, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(broker),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

// NewPublisherWithWriter builds a publisher using a custom writer (tests).
func NewPublisherWithWriter(writer MessageWriter) *Publisher {
	return &Publisher{writer: writer}
}

// Close shuts down the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// PublishOutcomes publishes one message per outcome, keyed by run ID.
func (p *Publisher) PublishOutcomes(ctx context.Context, runID string, outcomes []models.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(outcomes))
	for _, outcome := range outcomes {
		payload, err := json.Marshal(models.OutcomeEvent{RunID: runID, Outcome: outcome})
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(runID),
			Value: payload,
			Time:  time.Now().UTC(),
		})
	}
	return p.writer.WriteMessages(ctx, msgs...)
}
