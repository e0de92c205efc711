package queue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/redis"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.Adapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	// unique connection name per test to avoid the adapter cache
	connName := t.Name() + "-" + mr.Addr()
	adapter, err := redis.NewAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func testConfig(stream string) Config {
	return Config{
		Stream:            stream,
		Group:             "dispatch",
		Consumer:          "test-worker",
		MaxAttempts:       3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      50 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		DeadLetter:        true,
	}
}

func TestQueue_EnqueueAndConsume(t *testing.T) {
	_, adapter := setupTestRedis(t)

	q, err := New(adapter, testConfig("dispatch:outbound"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	ctx := context.Background()
	_, err = q.Enqueue(ctx, 42, map[string]string{"channel": "sms"})
	require.NoError(t, err)

	received := make(chan *Job, 1)
	err = q.Consume(func(ctx context.Context, job *Job) error {
		received <- job
		return nil
	})
	require.NoError(t, err)

	select {
	case job := <-received:
		assert.Equal(t, int64(42), job.MessageID)
		assert.Equal(t, 0, job.Attempt)
		assert.Equal(t, "sms", job.Metadata["channel"])
		assert.False(t, job.EnqueuedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("job not received")
	}
}

func TestQueue_RequiresStreamName(t *testing.T) {
	_, adapter := setupTestRedis(t)

	_, err := New(adapter, Config{})
	assert.Error(t, err)
}

func TestQueue_DefaultsApplied(t *testing.T) {
	_, adapter := setupTestRedis(t)

	q, err := New(adapter, Config{Stream: "dispatch:defaults"})
	require.NoError(t, err)
	defer q.Stop(time.Second)

	assert.Equal(t, "dispatch", q.config.Group)
	assert.NotEmpty(t, q.config.Consumer)
	assert.Equal(t, 3, q.config.MaxAttempts)
	assert.Equal(t, 30*time.Second, q.config.VisibilityTimeout)
	assert.Equal(t, int64(10), q.config.BatchSize)
}

func TestQueue_FailedHandlerLeavesJobPending(t *testing.T) {
	_, adapter := setupTestRedis(t)

	q, err := New(adapter, testConfig("dispatch:retry"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	ctx := context.Background()
	_, err = q.Enqueue(ctx, 7, nil)
	require.NoError(t, err)

	var attempts atomic.Int32
	err = q.Consume(func(ctx context.Context, job *Job) error {
		attempts.Add(1)
		return assert.AnError
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return attempts.Load() >= 1
	}, 2*time.Second, 20*time.Millisecond)

	stats, err := q.GetStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.Pending, int64(1))
}

func TestQueue_AsyncHandoffSkipsAutoAck(t *testing.T) {
	_, adapter := setupTestRedis(t)

	q, err := New(adapter, testConfig("dispatch:async"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	ctx := context.Background()
	_, err = q.Enqueue(ctx, 11, nil)
	require.NoError(t, err)

	handed := make(chan *Job, 1)
	err = q.Consume(func(ctx context.Context, job *Job) error {
		handed <- job
		return ErrAsync
	})
	require.NoError(t, err)

	var job *Job
	select {
	case job = <-handed:
	case <-time.After(2 * time.Second):
		t.Fatal("job not handed off")
	}

	// still pending until the new owner acks
	stats, err := q.GetStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.Pending, int64(1))

	require.NoError(t, job.Ack())
}

func TestQueue_GetStats(t *testing.T) {
	_, adapter := setupTestRedis(t)

	q, err := New(adapter, testConfig("dispatch:stats"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	ctx := context.Background()
	for i := int64(1); i <= 5; i++ {
		_, err := q.Enqueue(ctx, i, nil)
		require.NoError(t, err)
	}

	stats, err := q.GetStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.StreamLength, int64(5))
}

func TestJob_AckNack(t *testing.T) {
	_, adapter := setupTestRedis(t)

	q, err := New(adapter, testConfig("dispatch:ack"))
	require.NoError(t, err)
	defer q.Stop(time.Second)

	t.Run("ack marks the job processed", func(t *testing.T) {
		id, err := q.Enqueue(context.Background(), 1, nil)
		require.NoError(t, err)

		job := &Job{ID: id, MessageID: 1, queue: q}
		require.NoError(t, job.Ack())
		assert.True(t, job.acked)
		assert.Error(t, job.Ack())
	})

	t.Run("nack keeps the job pending", func(t *testing.T) {
		job := &Job{ID: "0-1", MessageID: 2, queue: q}
		require.NoError(t, job.Nack())
		assert.True(t, job.nacked)
		assert.Error(t, job.Ack())
		assert.Error(t, job.Nack())
	})
}

func TestQueue_DeadLetterAfterMaxAttempts(t *testing.T) {
	_, adapter := setupTestRedis(t)

	cfg := testConfig("dispatch:dlq")
	cfg.MaxAttempts = 1
	q, err := New(adapter, cfg)
	require.NoError(t, err)
	defer q.Stop(time.Second)

	// run delivers straight to the dead letter stream once the attempt
	// budget is spent
	job := q.parse(redis.StreamMessage{
		ID: "0-1",
		Values: map[string]interface{}{
			"message_id": "99",
			"attempt":    "1",
		},
	})
	q.handler = func(ctx context.Context, job *Job) error {
		t.Fatal("handler must not run for an exhausted job")
		return nil
	}
	q.run(job)

	length, err := adapter.XLen("dispatch:dlq:dlq")
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)
}

// stubAdapter drives reclaimStuck with fixed pending metadata.
type stubAdapter struct {
	pendingExt []goredis.XPendingExt
	claimed    []redis.StreamMessage

	added [][2]string
	acked []string
}

func (s *stubAdapter) Set(key string, value []byte, ttl time.Duration) error { return nil }
func (s *stubAdapter) SetNX(key string, value []byte, ttl time.Duration) (bool, error) {
	return true, nil
}
func (s *stubAdapter) Get(key string) ([]byte, error) { return nil, redis.NilError }
func (s *stubAdapter) Del(key string) error           { return nil }
func (s *stubAdapter) Exist(key string) (int64, error) { return 0, nil }

func (s *stubAdapter) XAdd(key string, values map[string]interface{}) (string, error) {
	s.added = append(s.added, [2]string{key, values["original_id"].(string)})
	return "0-9", nil
}

func (s *stubAdapter) XReadGroup(group, consumer, key, id string, count int64) ([]redis.StreamMessage, error) {
	return nil, redis.NilError
}

func (s *stubAdapter) XAck(key, group string, ids ...string) error {
	s.acked = append(s.acked, ids...)
	return nil
}

func (s *stubAdapter) XGroupCreateMkStream(key, group, start string) error { return nil }
func (s *stubAdapter) XLen(key string) (int64, error)                     { return 0, nil }
func (s *stubAdapter) XDel(key string, ids ...string) error               { return nil }
func (s *stubAdapter) XTrimApprox(key string, maxLen int64) error         { return nil }

func (s *stubAdapter) XPending(key, group string) (*goredis.XPending, error) {
	return &goredis.XPending{Count: int64(len(s.pendingExt))}, nil
}

func (s *stubAdapter) XPendingExt(key, group, start, end string, count int64) ([]goredis.XPendingExt, error) {
	return s.pendingExt, nil
}

func (s *stubAdapter) XClaim(key, group, consumer string, minIdle time.Duration, ids ...string) ([]redis.StreamMessage, error) {
	return s.claimed, nil
}

func (s *stubAdapter) Client() goredis.UniversalClient { return nil }

func TestQueue_ReclaimCarriesDeliveryCount(t *testing.T) {
	// the stream entry still says attempt 0; only the pending-entry
	// counter knows how many deliveries already happened
	entry := redis.StreamMessage{
		ID:     "0-1",
		Values: map[string]interface{}{"message_id": "7", "attempt": "0"},
	}

	t.Run("exhausted job goes to the dead letter stream", func(t *testing.T) {
		stub := &stubAdapter{
			pendingExt: []goredis.XPendingExt{{ID: "0-1", Idle: time.Minute, RetryCount: 3}},
			claimed:    []redis.StreamMessage{entry},
		}
		q, err := New(stub, testConfig("dispatch:reclaim"))
		require.NoError(t, err)

		q.handler = func(ctx context.Context, job *Job) error {
			t.Fatal("handler must not run for an exhausted job")
			return nil
		}
		q.reclaimStuck()

		require.Len(t, stub.added, 1)
		assert.Equal(t, "dispatch:reclaim:dlq", stub.added[0][0])
		assert.Equal(t, []string{"0-1"}, stub.acked)
	})

	t.Run("job below the limit is redelivered with its real attempt", func(t *testing.T) {
		stub := &stubAdapter{
			pendingExt: []goredis.XPendingExt{{ID: "0-1", Idle: time.Minute, RetryCount: 1}},
			claimed:    []redis.StreamMessage{entry},
		}
		q, err := New(stub, testConfig("dispatch:reclaim"))
		require.NoError(t, err)

		var attempt int
		q.handler = func(ctx context.Context, job *Job) error {
			attempt = job.Attempt
			return nil
		}
		q.reclaimStuck()

		assert.Equal(t, 1, attempt)
		assert.Empty(t, stub.added)
		assert.Equal(t, []string{"0-1"}, stub.acked)
	})

	t.Run("fresh pending entries are left alone", func(t *testing.T) {
		stub := &stubAdapter{
			pendingExt: []goredis.XPendingExt{{ID: "0-1", Idle: time.Millisecond, RetryCount: 1}},
			claimed:    []redis.StreamMessage{entry},
		}
		q, err := New(stub, testConfig("dispatch:reclaim"))
		require.NoError(t, err)

		q.handler = func(ctx context.Context, job *Job) error {
			t.Fatal("idle time below the visibility timeout must not reclaim")
			return nil
		}
		q.reclaimStuck()
		assert.Empty(t, stub.acked)
	})
}

func TestQueue_Stop(t *testing.T) {
	_, adapter := setupTestRedis(t)

	q, err := New(adapter, testConfig("dispatch:stop"))
	require.NoError(t, err)
	require.NoError(t, q.Consume(func(ctx context.Context, job *Job) error { return nil }))
	assert.NoError(t, q.Stop(2*time.Second))
}
