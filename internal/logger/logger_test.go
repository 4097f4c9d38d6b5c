package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog/log"
)

func TestNewRequestID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := NewRequestID()
		if len(id) != 8 {
			t.Fatalf("id %q has length %d, want 8", id, len(id))
		}
		seen[id] = true
	}
	if len(seen) < 45 {
		t.Errorf("only %d distinct ids in 50", len(seen))
	}
}

func TestForRequest_CarriesID(t *testing.T) {
	var buf bytes.Buffer
	saved := log.Logger
	defer func() { log.Logger = saved }()
	log.Logger = log.Output(&buf)

	ctx := WithRequestID(context.Background(), "abc12345")
	if got := RequestIDFromContext(ctx); got != "abc12345" {
		t.Fatalf("RequestIDFromContext = %q", got)
	}
	l := ForRequest(ctx)
	l.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"requestId":"abc12345"`) {
		t.Errorf("log line %q lacks request id", buf.String())
	}

	if RequestIDFromContext(context.Background()) != "" {
		t.Error("empty context returned an id")
	}
}
