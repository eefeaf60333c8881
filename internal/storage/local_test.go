package storage

import (
	"context"
	"errors"
	"testing"
)

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	local, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("new local: %v", err)
	}

	key := "vectorized/job_1/logo.svg"
	if ok, err := local.ObjectExists(ctx, key); ok || err != nil {
		t.Fatalf("expected missing object, got ok=%v err=%v", ok, err)
	}
	if err := local.WriteObject(ctx, key, []byte("<svg/>"), "image/svg+xml"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if ok, err := local.ObjectExists(ctx, key); !ok || err != nil {
		t.Fatalf("expected object, got ok=%v err=%v", ok, err)
	}
	data, err := local.ReadObject(ctx, key)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "<svg/>" {
		t.Fatalf("unexpected data %q", data)
	}

	if _, err := local.ReadObject(ctx, "vectorized/nope.svg"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("new local: %v", err)
	}
	for _, key := range []string{"../secret", "a/../../b", ".."} {
		if err := local.WriteObject(context.Background(), key, []byte("x"), ""); err == nil {
			t.Fatalf("expected %q to be rejected", key)
		}
	}
}

func TestNewClientRequiresBucket(t *testing.T) {
	if _, err := NewClient(Config{Endpoint: "localhost:9000"}); err == nil {
		t.Fatal("expected error without bucket")
	}
}
