package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWritesComponentField(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: "debug", Format: "json"}, "api")
	logger.Info().Str("upload_id", "upl_1").Msg("upload accepted")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["component"] != "api" {
		t.Fatalf("expected component=api, got %v", line["component"])
	}
	if line["upload_id"] != "upl_1" {
		t.Fatalf("expected upload_id=upl_1, got %v", line["upload_id"])
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if got := parseLevel("loud"); got != zerolog.InfoLevel {
		t.Fatalf("expected info level, got %s", got)
	}
	if got := parseLevel("WARN"); got != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %s", got)
	}
}
