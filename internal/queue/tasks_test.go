package queue

import (
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dunamismax/vectorstudio/internal/domain"
)

func TestVectorizeTask(t *testing.T) {
	payload := VectorizePayload{
		JobID:       "job-123",
		UploadID:    "upl-9",
		Settings:    domain.Settings{PresetID: "high_quality", Colors: 32, Scale: 2},
		WebhookURL:  "https://example.com/hook",
		RequestedAt: time.Now().UTC(),
	}

	task, err := NewVectorizeTask(payload)
	if err != nil {
		t.Fatalf("NewVectorizeTask returned error: %v", err)
	}
	if task.Type() != TypeSimulateVectorize {
		t.Fatalf("expected task type %q, got %q", TypeSimulateVectorize, task.Type())
	}

	parsed, err := ParseVectorizePayload(task)
	if err != nil {
		t.Fatalf("ParseVectorizePayload returned error: %v", err)
	}
	if parsed.JobID != payload.JobID || parsed.Settings != payload.Settings {
		t.Fatalf("unexpected payload %+v", parsed)
	}
}

func TestParseVectorizePayloadRejectsInvalid(t *testing.T) {
	cases := map[string][]byte{
		"garbage":    []byte("{"),
		"no job":     []byte(`{"upload_id":"u","settings":{"preset":"fast","colors":8,"scale":1}}`),
		"bad colors": []byte(`{"job_id":"j","upload_id":"u","settings":{"preset":"fast","colors":99,"scale":1}}`),
	}
	for name, body := range cases {
		if _, err := ParseVectorizePayload(asynq.NewTask(TypeSimulateVectorize, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
