package context_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	ctxPkg "github.com/yeisme/torrentvault/pkg/context"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()

	if got := ctxPkg.RequestID(ctx); got != "" {
		t.Fatalf("RequestID(empty) = %q", got)
	}

	ctx = ctxPkg.WithRequestID(ctx, "req-1")
	if got := ctxPkg.RequestID(ctx); got != "req-1" {
		t.Fatalf("RequestID = %q", got)
	}
}

func TestWithTraceContext(t *testing.T) {
	var buf bytes.Buffer

	l := ctxPkg.WithTraceContext(ctxPkg.WithRequestID(context.Background(), "req-2"), zerolog.New(&buf))
	l.Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-2"`) {
		t.Fatalf("log line missing request id: %s", out)
	}

	// 没有活动 span 时不输出 trace 字段
	if strings.Contains(out, "trace_id") {
		t.Fatalf("unexpected trace id: %s", out)
	}
}
