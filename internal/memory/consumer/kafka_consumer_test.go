package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"memoria/internal/models"
	"memoria/pkg/logger"
)

// fakeReader serves a fixed message sequence and cancels the context once
// the sequence is drained, so run() terminates.
type fakeReader struct {
	messages []kafkago.Message
	commits  []kafkago.Message
	cancel   context.CancelFunc
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	if len(f.messages) == 0 {
		f.cancel()
		return kafkago.Message{}, context.Canceled
	}
	msg := f.messages[0]
	f.messages = f.messages[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafkago.Message) error {
	f.commits = append(f.commits, msgs...)
	return nil
}

// flakyEngine fails the first failures calls per text, then succeeds.
type flakyEngine struct {
	failures int
	calls    []string
}

func (f *flakyEngine) Remember(ctx context.Context, userID, text string) ([]models.ConsolidationAction, error) {
	f.calls = append(f.calls, text)
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("reasoning service unavailable")
	}
	return nil, nil
}

func newTestConsumer(reader *fakeReader, engine consolidator) *KafkaConsumer {
	return &KafkaConsumer{
		reader:  reader,
		engine:  engine,
		logger:  logger.New("test", "", ""),
		backoff: time.Millisecond,
	}
}

func ingestMessage(offset int64, user, text string) kafkago.Message {
	return kafkago.Message{
		Offset: offset,
		Value:  []byte(`{"user": "` + user + `", "text": "` + text + `"}`),
	}
}

func TestConsumerRetriesFailedMessageInPlace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		messages: []kafkago.Message{
			ingestMessage(5, "alice", "first"),
			ingestMessage(6, "alice", "second"),
		},
		cancel: cancel,
	}
	engine := &flakyEngine{failures: 2}
	c := newTestConsumer(reader, engine)

	c.run(ctx)

	// The first message is retried until it succeeds; only then is the
	// second one fetched. No offset is ever committed past a failure.
	want := []string{"first", "first", "first", "second"}
	if len(engine.calls) != len(want) {
		t.Fatalf("engine calls = %v, want %v", engine.calls, want)
	}
	for i, text := range want {
		if engine.calls[i] != text {
			t.Fatalf("engine calls = %v, want %v", engine.calls, want)
		}
	}
	if len(reader.commits) != 2 || reader.commits[0].Offset != 5 || reader.commits[1].Offset != 6 {
		t.Errorf("unexpected commits: %+v", reader.commits)
	}
}

func TestConsumerDoesNotCommitWhileFailing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	reader := &fakeReader{
		messages: []kafkago.Message{ingestMessage(5, "alice", "first")},
		cancel:   cancel,
	}
	engine := &flakyEngine{failures: 1 << 30} // never succeeds
	c := newTestConsumer(reader, engine)

	c.run(ctx)

	if len(reader.commits) != 0 {
		t.Errorf("a persistently failing message was committed: %+v", reader.commits)
	}
	if len(engine.calls) < 2 {
		t.Errorf("expected the message to be retried, got %d attempts", len(engine.calls))
	}
}

func TestConsumerCommitsPoisonMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		messages: []kafkago.Message{{Offset: 9, Value: []byte("not json")}},
		cancel:   cancel,
	}
	engine := &flakyEngine{}
	c := newTestConsumer(reader, engine)

	c.run(ctx)

	if len(engine.calls) != 0 {
		t.Errorf("a poison message reached the engine: %v", engine.calls)
	}
	if len(reader.commits) != 1 || reader.commits[0].Offset != 9 {
		t.Errorf("poison message was not committed: %+v", reader.commits)
	}
}
