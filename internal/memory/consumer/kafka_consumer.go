package consumer

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"memoria/internal/database/kafka"
	"memoria/internal/memory/service"
	"memoria/internal/models"
	"memoria/pkg/logger"
)

const maxRetryBackoff = time.Minute

// messageReader is the slice of kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// consolidator is the slice of the engine the consumer uses.
type consolidator interface {
	Remember(ctx context.Context, userID, text string) ([]models.ConsolidationAction, error)
}

// KafkaConsumer consumes ingestion events from the Kafka topic and feeds
// them through the consolidation engine.
type KafkaConsumer struct {
	reader  messageReader
	engine  consolidator
	logger  *logger.Logger
	backoff time.Duration
}

// NewKafkaConsumer creates a new KafkaConsumer.
func NewKafkaConsumer(kafkaClient *kafka.KafkaClient, engine *service.Engine, logger *logger.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		reader:  kafkaClient.Reader,
		engine:  engine,
		logger:  logger,
		backoff: time.Second,
	}
}

// Start launches the consume loop in a goroutine. The loop exits when ctx
// is cancelled.
func (c *KafkaConsumer) Start(ctx context.Context) {
	go c.run(ctx)
}

// run processes messages strictly one at a time. Commit policy: a message
// that fails to unmarshal is committed anyway, it will never succeed and
// must not wedge the partition. A message whose consolidation fails is
// retried in place with backoff; the loop never fetches or commits a later
// offset past an unprocessed message, since committing a later offset on
// the same partition would advance the group offset over it and lose it.
func (c *KafkaConsumer) run(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("ingestion consumer stopped")
				return
			}
			c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("failed to fetch message")
			continue
		}

		if !c.handle(ctx, msg) {
			c.logger.Info("ingestion consumer stopped")
			return
		}
	}
}

// handle processes one message to completion and commits it. It returns
// false only when ctx was cancelled before the message could be committed.
func (c *KafkaConsumer) handle(ctx context.Context, msg kafkago.Message) bool {
	var event models.IngestEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("failed to unmarshal ingest event")
		return c.commit(ctx, msg)
	}

	backoff := c.backoff
	for {
		_, err := c.engine.Remember(ctx, event.User, event.Text)
		if err == nil {
			break
		}
		c.logger.WithUser(event.User).WithError(models.ErrorInfo{Message: err.Error()}).Error("failed to consolidate ingest event, retrying")

		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		if backoff < maxRetryBackoff {
			backoff *= 2
			if backoff > maxRetryBackoff {
				backoff = maxRetryBackoff
			}
		}
	}

	return c.commit(ctx, msg)
}

func (c *KafkaConsumer) commit(ctx context.Context, msg kafkago.Message) bool {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		if ctx.Err() != nil {
			return false
		}
		c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("failed to commit message")
	}
	return true
}
