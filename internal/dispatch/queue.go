package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/congo-pay/paycard/internal/cards"
)

const (
	// StreamName is the JetStream stream holding pending card jobs.
	StreamName = "CARDS"
	// Subject carries one JSON encoded cards.Job per message.
	Subject = "cards.generate"
	// DurableName is shared by every consumer so jobs are load balanced.
	DurableName = "paycard-workers"

	fetchWait = 5 * time.Second
	ackWait   = 10 * time.Minute
)

// Queue defers jobs through NATS JetStream. Dispatch publishes; Consume runs them.
type Queue struct {
	js     nats.JetStreamContext
	logger *slog.Logger
}

// NewQueue ensures the stream exists.
func NewQueue(nc *nats.Conn, logger *slog.Logger) (*Queue, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{Subject},
		Storage:  nats.FileStorage,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return nil, fmt.Errorf("add stream %s: %w", StreamName, err)
	}
	return &Queue{js: js, logger: logger}, nil
}

// Dispatch publishes job and returns a queued outcome once the stream stored it.
func (q *Queue) Dispatch(ctx context.Context, job cards.Job) (cards.Outcome, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return cards.Outcome{}, fmt.Errorf("encode job: %w", err)
	}
	if _, err := q.js.Publish(Subject, data, nats.Context(ctx)); err != nil {
		return cards.Outcome{}, fmt.Errorf("%w: publish job: %v", cards.ErrUnavailable, err)
	}
	return queued(job), nil
}

// Consume pulls jobs one at a time and runs them until ctx is cancelled.
// A job is acked after its single run whatever the outcome; there are no retries.
func (q *Queue) Consume(ctx context.Context, runner Runner) error {
	sub, err := q.js.PullSubscribe(Subject, DurableName, nats.AckWait(ackWait))
	if err != nil {
		return fmt.Errorf("pull subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		if ctx.Err() != nil {
			return nil
		}

		msgs, err := sub.Fetch(1, nats.MaxWait(fetchWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			q.logger.Error("fetch card job", slog.Any("error", err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(2 * time.Second):
			}
			continue
		}

		for _, msg := range msgs {
			q.handle(ctx, runner, msg)
		}
	}
}

func (q *Queue) handle(ctx context.Context, runner Runner, msg *nats.Msg) {
	var job cards.Job
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		q.logger.Error("decode card job", slog.Any("error", err))
		if err := msg.Term(); err != nil {
			q.logger.Debug("term card job", slog.Any("error", err))
		}
		return
	}

	runDetached(context.WithoutCancel(ctx), runner, job, q.logger)

	if err := msg.Ack(); err != nil {
		q.logger.Debug("ack card job", slog.String("job_id", job.ID), slog.Any("error", err))
	}
}
