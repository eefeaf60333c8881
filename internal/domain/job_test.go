package domain

import "testing"

func TestCreateJobRequestValidate(t *testing.T) {
	valid := CreateJobRequest{
		UploadID: "upl_1",
		Preset:   "fast",
		Colors:   12,
		Scale:    1.5,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got error: %v", err)
	}

	invalid := CreateJobRequest{}
	if err := invalid.Validate(); err == nil {
		t.Fatal("expected validation error for empty request")
	}

	tooManyColors := CreateJobRequest{UploadID: "upl_1", Colors: 64}
	if err := tooManyColors.Validate(); err == nil {
		t.Fatal("expected validation error for colors=64")
	}

	tinyScale := CreateJobRequest{UploadID: "upl_1", Scale: 0.5}
	if err := tinyScale.Validate(); err == nil {
		t.Fatal("expected validation error for scale=0.5")
	}

	badHook := CreateJobRequest{UploadID: "upl_1", WebhookURL: "ftp://example.com/hook"}
	if err := badHook.Validate(); err == nil {
		t.Fatal("expected validation error for non-http webhook")
	}
}

func TestControlFor(t *testing.T) {
	cases := map[string]string{
		"pause":  ControlPause,
		"resume": ControlNone,
		"STOP":   ControlStop,
	}
	for action, want := range cases {
		got, err := ControlFor(action)
		if err != nil {
			t.Fatalf("ControlFor(%q) returned error: %v", action, err)
		}
		if got != want {
			t.Fatalf("ControlFor(%q) = %q, want %q", action, got, want)
		}
	}

	if _, err := ControlFor("rewind"); err == nil {
		t.Fatal("expected error for unsupported action")
	}
}

func TestJobFinished(t *testing.T) {
	for _, status := range []string{JobStatusSucceeded, JobStatusFailed, JobStatusStopped} {
		if !(Job{Status: status}).Finished() {
			t.Fatalf("expected %s to be finished", status)
		}
	}
	for _, status := range []string{JobStatusCreated, JobStatusQueued, JobStatusProcessing, JobStatusPaused} {
		if (Job{Status: status}).Finished() {
			t.Fatalf("expected %s to be unfinished", status)
		}
	}
}
