package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dunamismax/vectorstudio/internal/domain"
)

const TypeSimulateVectorize = "vectorize:simulate"

type VectorizePayload struct {
	JobID       string          `json:"job_id"`
	UploadID    string          `json:"upload_id"`
	Settings    domain.Settings `json:"settings"`
	WebhookURL  string          `json:"webhook_url,omitempty"`
	RequestedAt time.Time       `json:"requested_at"`
}

func (p VectorizePayload) Validate() error {
	if p.JobID == "" {
		return errors.New("job_id is required")
	}
	if p.UploadID == "" {
		return errors.New("upload_id is required")
	}
	return p.Settings.Validate()
}

// DispatchInfo is what the API reports back after handing a job off.
type DispatchInfo struct {
	Queue  string `json:"queue"`
	TaskID string `json:"task_id"`
	State  string `json:"state"`
}

func NewVectorizeTask(payload VectorizePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal vectorize payload: %w", err)
	}
	return asynq.NewTask(TypeSimulateVectorize, body), nil
}

func ParseVectorizePayload(task *asynq.Task) (VectorizePayload, error) {
	var payload VectorizePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return VectorizePayload{}, fmt.Errorf("unmarshal vectorize payload: %w", err)
	}
	if err := payload.Validate(); err != nil {
		return VectorizePayload{}, fmt.Errorf("invalid vectorize payload: %w", err)
	}
	return payload, nil
}
