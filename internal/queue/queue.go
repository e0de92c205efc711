// Package queue is the redis-streams dispatch queue between the API and
// the send workers. Jobs reference persisted message rows by id; the row
// itself stays the source of truth, so a redelivered job is harmless.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/logger"
	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/redis"
)

// Job is one dispatch unit read from the stream.
type Job struct {
	ID         string
	MessageID  int64
	Attempt    int
	EnqueuedAt time.Time
	Metadata   map[string]string

	acked  bool
	nacked bool
	queue  *Queue
}

// Ack marks the job as processed. A job acked twice is an error.
func (j *Job) Ack() error {
	if j.acked {
		return fmt.Errorf("job already acknowledged")
	}
	if j.nacked {
		return fmt.Errorf("job already rejected")
	}
	j.acked = true
	return j.queue.ack(j.ID)
}

// Nack leaves the job pending; the reclaim loop redelivers it after the
// visibility timeout.
func (j *Job) Nack() error {
	if j.acked {
		return fmt.Errorf("job already acknowledged")
	}
	if j.nacked {
		return fmt.Errorf("job already rejected")
	}
	j.nacked = true
	return nil
}

// JobHandler processes one job. A nil return acks the job; an error leaves
// it pending for redelivery. Returning ErrAsync hands ack responsibility to
// whoever now holds the job.
type JobHandler func(ctx context.Context, job *Job) error

// ErrAsync tells the consume loop the job was handed off and will be acked
// (or left pending) by the new owner.
var ErrAsync = errors.New("job handed off for asynchronous processing")

type Config struct {
	Stream            string
	Group             string
	Consumer          string
	MaxAttempts       int
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	BatchSize         int64
	MaxLen            int64
	DeadLetter        bool
}

// Queue is a consumer-group view over one redis stream.
type Queue struct {
	adapter redis.Adapter
	config  Config
	handler JobHandler
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type Stats struct {
	StreamLength int64
	Pending      int64
	Consumers    int64
}

func New(adapter redis.Adapter, config Config) (*Queue, error) {
	if config.Stream == "" {
		return nil, fmt.Errorf("queue stream name is required")
	}
	if config.Group == "" {
		config.Group = "dispatch"
	}
	if config.Consumer == "" {
		config.Consumer = fmt.Sprintf("worker-%d", time.Now().UnixNano())
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = 3
	}
	if config.VisibilityTimeout == 0 {
		config.VisibilityTimeout = 30 * time.Second
	}
	if config.PollInterval == 0 {
		config.PollInterval = time.Second
	}
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		adapter: adapter,
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
	}

	// BUSYGROUP on restart is expected
	if err := adapter.XGroupCreateMkStream(config.Stream, config.Group, "0"); err != nil {
		logger.Debug("consumer group create", "stream", config.Stream, "error", err)
	}

	return q, nil
}

// Enqueue publishes a dispatch job for a persisted message row.
func (q *Queue) Enqueue(ctx context.Context, messageID int64, metadata map[string]string) (string, error) {
	values := map[string]interface{}{
		"message_id":  messageID,
		"attempt":     0,
		"enqueued_at": time.Now().Unix(),
	}
	for k, v := range metadata {
		values["meta_"+k] = v
	}

	id, err := q.adapter.XAdd(q.config.Stream, values)
	if err != nil {
		return "", fmt.Errorf("enqueue dispatch job: %w", err)
	}

	if q.config.MaxLen > 0 {
		_ = q.adapter.XTrimApprox(q.config.Stream, q.config.MaxLen)
	}
	return id, nil
}

// Consume starts the poll loop. Each delivered job runs through handler
// with a visibility-timeout deadline.
func (q *Queue) Consume(handler JobHandler) error {
	if handler == nil {
		return fmt.Errorf("job handler is required")
	}
	q.handler = handler
	q.wg.Add(1)
	go q.loop()
	return nil
}

func (q *Queue) loop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.readNew()
			q.reclaimStuck()
		}
	}
}

func (q *Queue) readNew() {
	messages, err := q.adapter.XReadGroup(
		q.config.Group,
		q.config.Consumer,
		q.config.Stream,
		">",
		q.config.BatchSize,
	)
	if err != nil {
		if err != redis.NilError {
			logger.Warn("queue read failed", "stream", q.config.Stream, "error", err)
		}
		return
	}

	for _, sm := range messages {
		q.run(q.parse(sm))
	}
}

// reclaimStuck takes over jobs another consumer read but never acked, once
// their idle time passes the visibility timeout.
func (q *Queue) reclaimStuck() {
	pending, err := q.adapter.XPending(q.config.Stream, q.config.Group)
	if err != nil || pending == nil || pending.Count == 0 {
		return
	}

	ext, err := q.adapter.XPendingExt(q.config.Stream, q.config.Group, "-", "+", 100)
	if err != nil || len(ext) == 0 {
		return
	}

	var ids []string
	retries := make(map[string]int64)
	for _, p := range ext {
		if p.Idle >= q.config.VisibilityTimeout {
			ids = append(ids, p.ID)
			retries[p.ID] = p.RetryCount
		}
	}
	if len(ids) == 0 {
		return
	}

	claimed, err := q.adapter.XClaim(q.config.Stream, q.config.Group, q.config.Consumer, q.config.VisibilityTimeout, ids...)
	if err != nil {
		return
	}

	for _, sm := range claimed {
		job := q.parse(sm)
		// the pending-entry delivery counter survives consumer restarts;
		// the attempt field in the entry itself never moves
		if rc := retries[sm.ID]; rc > int64(job.Attempt) {
			job.Attempt = int(rc)
		}
		q.run(job)
	}
}

func (q *Queue) run(job *Job) {
	if job.Attempt >= q.config.MaxAttempts {
		q.deadLetter(job)
		if err := q.ack(job.ID); err != nil {
			logger.Error("dead-letter ack failed", "job_id", job.ID, "error", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(q.ctx, q.config.VisibilityTimeout)
	defer cancel()

	err := q.handler(ctx, job)
	if errors.Is(err, ErrAsync) {
		return
	}
	if err != nil {
		logger.Warn("dispatch job failed, leaving pending",
			"job_id", job.ID, "message_id", job.MessageID, "attempt", job.Attempt, "error", err)
		return
	}
	if !job.acked && !job.nacked {
		if err := q.ack(job.ID); err != nil {
			logger.Error("job ack failed", "job_id", job.ID, "error", err)
		}
	}
}

func (q *Queue) ack(jobID string) error {
	return q.adapter.XAck(q.config.Stream, q.config.Group, jobID)
}

func (q *Queue) deadLetter(job *Job) {
	if !q.config.DeadLetter {
		return
	}

	values := map[string]interface{}{
		"message_id":      job.MessageID,
		"original_id":     job.ID,
		"attempts":        job.Attempt,
		"failed_at":       time.Now().Unix(),
		"original_stream": q.config.Stream,
	}
	for k, v := range job.Metadata {
		values["meta_"+k] = v
	}

	if _, err := q.adapter.XAdd(q.config.Stream+":dlq", values); err != nil {
		logger.Error("dead-letter publish failed",
			"job_id", job.ID, "message_id", job.MessageID, "error", err)
	}
}

func (q *Queue) parse(sm redis.StreamMessage) *Job {
	job := &Job{
		ID:       sm.ID,
		Metadata: make(map[string]string),
		queue:    q,
	}

	for k, v := range sm.Values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch k {
		case "message_id":
			job.MessageID, _ = strconv.ParseInt(s, 10, 64)
		case "attempt":
			job.Attempt, _ = strconv.Atoi(s)
		case "enqueued_at":
			if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
				job.EnqueuedAt = time.Unix(unix, 0)
			}
		default:
			if len(k) > 5 && k[:5] == "meta_" {
				job.Metadata[k[5:]] = s
			}
		}
	}

	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}
	return job
}

// Stop waits for in-flight handlers to finish, up to timeout.
func (q *Queue) Stop(timeout time.Duration) error {
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for queue to stop")
	}
}

func (q *Queue) GetStats() (*Stats, error) {
	length, err := q.adapter.XLen(q.config.Stream)
	if err != nil {
		return nil, err
	}

	stats := &Stats{StreamLength: length}
	if pending, err := q.adapter.XPending(q.config.Stream, q.config.Group); err == nil && pending != nil {
		stats.Pending = pending.Count
		stats.Consumers = int64(len(pending.Consumers))
	}
	return stats, nil
}
