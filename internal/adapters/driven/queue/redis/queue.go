package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/corpora-labs/corpora-core/internal/core/ports/driven"
)

const (
	// Stream names
	parseStream = "corpora:parse"
	parseGroup  = "corpora:workers"

	// Key prefixes
	jobKeyPrefix = "corpora:job:"

	// Default consumer name prefix
	consumerPrefix = "worker-"

	// Job payload TTL - jobs not acknowledged within this window are
	// considered lost and their payload reaped by Redis.
	jobTTL = 24 * time.Hour
)

// Verify interface compliance
var _ driven.ParseQueue = (*Queue)(nil)

// Queue implements ParseQueue using Redis Streams with a consumer group,
// giving at-least-once delivery with explicit acknowledgment.
type Queue struct {
	client       *redis.Client
	consumerName string
}

// NewQueue creates a new Redis-backed parse queue.
// The consumerName should be unique per worker instance (e.g., hostname + PID).
func NewQueue(client *redis.Client, consumerName string) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumerName == "" {
		consumerName = fmt.Sprintf("%s%d", consumerPrefix, time.Now().UnixNano())
	}

	q := &Queue{
		client:       client,
		consumerName: consumerName,
	}

	// Create consumer group if it doesn't exist
	ctx := context.Background()
	err := q.client.XGroupCreateMkStream(ctx, parseStream, parseGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return q, nil
}

// Enqueue publishes a parse job. The full payload is kept in a side key
// so stream entries stay small.
func (q *Queue) Enqueue(ctx context.Context, job *driven.ParseJob) error {
	if job == nil {
		return errors.New("job is required")
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, jobKeyPrefix+job.TaskID, jobData, jobTTL)
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: parseStream,
		Values: map[string]interface{}{
			"task_id":  job.TaskID,
			"priority": job.Priority,
		},
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// Dequeue retrieves the next parse job, waiting up to timeoutSec
// seconds. Zero blocks until a job arrives or the context is cancelled.
// Returns nil, nil when the wait times out.
func (q *Queue) Dequeue(ctx context.Context, timeoutSec int) (*driven.ParseJob, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    parseGroup,
		Consumer: q.consumerName,
		Streams:  []string{parseStream, ">"},
		Count:    1,
		Block:    time.Duration(timeoutSec) * time.Second,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // No jobs available
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	msg := streams[0].Messages[0]
	taskID, ok := msg.Values["task_id"].(string)
	if !ok {
		// Invalid message, acknowledge and skip
		q.client.XAck(ctx, parseStream, parseGroup, msg.ID)
		return nil, nil
	}

	jobData, err := q.client.Get(ctx, jobKeyPrefix+taskID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Payload already reaped, acknowledge and skip
			q.client.XAck(ctx, parseStream, parseGroup, msg.ID)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job payload: %w", err)
	}

	var job driven.ParseJob
	if err := json.Unmarshal(jobData, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	// Remember the stream entry so Ack can target it.
	q.client.Set(ctx, jobKeyPrefix+taskID+":msg", msg.ID, jobTTL)

	return &job, nil
}

// Ack acknowledges successful processing of a job.
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	msgID, err := q.client.Get(ctx, jobKeyPrefix+taskID+":msg").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get message ID: %w", err)
	}

	pipe := q.client.Pipeline()
	if msgID != "" {
		pipe.XAck(ctx, parseStream, parseGroup, msgID)
		pipe.XDel(ctx, parseStream, msgID)
	}
	pipe.Del(ctx, jobKeyPrefix+taskID, jobKeyPrefix+taskID+":msg")
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close is a no-op; the Redis client is owned by the caller.
func (q *Queue) Close() error {
	return nil
}

func isGroupExistsError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}
