package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	MaxRetry = 3
	// TaskTimeout caps a whole run including paused time. The worker limits
	// unpaused time separately.
	TaskTimeout = 24 * time.Hour
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(redisOpt asynq.RedisClientOpt, queueName string) *Client {
	return &Client{
		client: asynq.NewClient(redisOpt),
		queue:  queueName,
	}
}

// Dispatch enqueues one simulation run. The task id is the job id so a retried
// request cannot enqueue the same job twice.
func (c *Client) Dispatch(ctx context.Context, payload VectorizePayload) (DispatchInfo, error) {
	task, err := NewVectorizeTask(payload)
	if err != nil {
		return DispatchInfo{}, err
	}
	info, err := c.client.EnqueueContext(
		ctx,
		task,
		asynq.Queue(c.queue),
		asynq.TaskID(payload.JobID),
		asynq.MaxRetry(MaxRetry),
		asynq.Timeout(TaskTimeout),
	)
	if err != nil {
		return DispatchInfo{}, fmt.Errorf("enqueue vectorize task: %w", err)
	}
	return DispatchInfo{
		Queue:  info.Queue,
		TaskID: info.ID,
		State:  info.State.String(),
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
