package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/paycard/internal/cards"
	"github.com/congo-pay/paycard/internal/logging"
)

type ctxKey struct{}

type fakeRunner struct {
	mu      sync.Mutex
	ran     []cards.Job
	values  []any
	release chan struct{}
	err     error
	panics  bool
}

func (r *fakeRunner) Run(ctx context.Context, job cards.Job) (cards.Outcome, error) {
	if r.release != nil {
		<-r.release
	}
	if r.panics {
		panic("boom")
	}
	r.mu.Lock()
	r.ran = append(r.ran, job)
	r.values = append(r.values, ctx.Value(ctxKey{}))
	r.mu.Unlock()
	if r.err != nil {
		return cards.Outcome{}, r.err
	}
	return cards.Outcome{JobID: job.ID, FilePath: job.FilePath}, nil
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ran)
}

func job(id string) cards.Job {
	return cards.Job{ID: id, FilePath: "generated/payment_paid_card_" + id + ".png"}
}

func TestInlineReturnsRunnerOutcome(t *testing.T) {
	r := &fakeRunner{}
	out, err := NewInline(r).Dispatch(context.Background(), job("00000001"))
	require.NoError(t, err)
	assert.False(t, out.Queued)
	assert.Equal(t, 1, r.count())

	r.err = cards.ErrDelivery
	_, err = NewInline(r).Dispatch(context.Background(), job("00000002"))
	assert.True(t, errors.Is(err, cards.ErrDelivery))
}

func TestDeferredReturnsBeforeRunAndOutlivesRequest(t *testing.T) {
	r := &fakeRunner{release: make(chan struct{})}
	d := NewDeferred(r, 0, 0, logging.Discard())

	reqCtx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "req-1"))
	out, err := d.Dispatch(reqCtx, job("0000000a"))
	require.NoError(t, err)
	assert.True(t, out.Queued)
	assert.Equal(t, "generated/payment_paid_card_0000000a.png", out.FilePath)
	assert.Equal(t, 0, r.count(), "job must not have run before Dispatch returned")

	cancel()
	close(r.release)

	ctx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	require.NoError(t, d.Close(ctx))
	assert.Equal(t, 1, r.count())
	assert.Equal(t, "req-1", r.values[0])
}

func TestDeferredPoolDrainsOnClose(t *testing.T) {
	r := &fakeRunner{}
	d := NewDeferred(r, 2, 10, logging.Discard())
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		_, err := d.Dispatch(context.Background(), job(id))
		require.NoError(t, err)
	}

	ctx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	require.NoError(t, d.Close(ctx))
	assert.Equal(t, 5, r.count())

	_, err := d.Dispatch(context.Background(), job("f"))
	assert.True(t, errors.Is(err, cards.ErrUnavailable))
}

func TestDeferredPoolRejectsWhenFull(t *testing.T) {
	r := &fakeRunner{release: make(chan struct{})}
	d := NewDeferred(r, 1, 1, logging.Discard())

	var rejected bool
	for i := 0; i < 5; i++ {
		if _, err := d.Dispatch(context.Background(), job(string(rune('a'+i)))); err != nil {
			require.True(t, errors.Is(err, cards.ErrUnavailable))
			rejected = true
		}
	}
	assert.True(t, rejected, "one worker with a queue of one cannot hold five jobs")

	close(r.release)
	ctx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	require.NoError(t, d.Close(ctx))
}

func TestDeferredSurvivesPanickingJob(t *testing.T) {
	r := &fakeRunner{panics: true}
	d := NewDeferred(r, 1, 1, logging.Discard())
	_, err := d.Dispatch(context.Background(), job("p"))
	require.NoError(t, err)

	ctx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	require.NoError(t, d.Close(ctx))
}

func TestQueueHandleRunsDecodedJob(t *testing.T) {
	r := &fakeRunner{}
	q := &Queue{logger: logging.Discard()}

	data, err := json.Marshal(job("q1"))
	require.NoError(t, err)
	q.handle(context.Background(), r, &nats.Msg{Subject: Subject, Data: data})
	require.Equal(t, 1, r.count())
	assert.Equal(t, "q1", r.ran[0].ID)

	q.handle(context.Background(), r, &nats.Msg{Subject: Subject, Data: []byte("not json")})
	assert.Equal(t, 1, r.count())
}
