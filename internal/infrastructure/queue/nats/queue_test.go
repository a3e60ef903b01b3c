package nats

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

func TestClassifyNATSError(t *testing.T) {
	cases := []struct {
		name         string
		err          error
		retry, count bool
	}{
		{name: "cancelled", err: context.Canceled},
		{name: "no servers", err: fmt.Errorf("nats publish: %w", nats.ErrNoServers), retry: true, count: true},
		{name: "closed", err: nats.ErrConnectionClosed, retry: true, count: true},
		{name: "bad subject", err: nats.ErrBadSubject, count: true},
	}
	for _, tc := range cases {
		got := classifyNATSError(tc.err)
		if got.Retry != tc.retry || got.CountFailure != tc.count {
			t.Fatalf("%s: unexpected outcome %+v", tc.name, got)
		}
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	if err := wrapTemporaryIfNeeded(nats.ErrDisconnected); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary, got %v", err)
	}
	plain := errors.New("bad payload")
	if err := wrapTemporaryIfNeeded(plain); err != plain {
		t.Fatalf("expected error unchanged, got %v", err)
	}
}

func TestDispatchCapsConcurrency(t *testing.T) {
	q := newQueue(nil, "", nil, nil, 2)
	if q.subject != "invoices.uploaded" {
		t.Fatalf("expected default subject, got %q", q.subject)
	}
	q.logger = discardLogger()

	var running, peak int32
	var mu sync.Mutex
	seen := map[string]bool{}
	handler := func(_ context.Context, id string) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		mu.Lock()
		seen[id] = true
		mu.Unlock()
		return nil
	}

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		q.dispatch(ctx, fmt.Sprintf(" inv-%d ", i), handler)
	}
	q.dispatch(ctx, "   ", handler)
	q.wait()

	if peak > 2 {
		t.Fatalf("expected at most 2 concurrent handlers, got %d", peak)
	}
	if len(seen) != 6 || !seen["inv-0"] {
		t.Fatalf("expected 6 trimmed ids handled, got %v", seen)
	}
}

func TestDispatchSkipsAfterCancel(t *testing.T) {
	var logs bytes.Buffer
	q := newQueue(nil, "s", nil, slog.New(slog.NewJSONHandler(&logs, nil)), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	q.dispatch(ctx, "inv-1", func(context.Context, string) error {
		called = true
		return nil
	})
	q.wait()
	if called {
		t.Fatalf("expected no handler call after cancellation")
	}
	out := logs.String()
	if !strings.Contains(out, `"msg":"invoice_dispatch_skipped"`) || !strings.Contains(out, `"invoice_id":"inv-1"`) || !strings.Contains(out, `"level":"WARN"`) {
		t.Fatalf("expected skipped dispatch warning, got %q", out)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
