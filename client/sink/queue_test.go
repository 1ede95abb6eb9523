package sink_test

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adamwoolhether/s3req/client/sink"
)

func newQueue(t *testing.T, tt *test, limit int) *sink.Queue {
	t.Helper()

	q, err := sink.NewQueue(tt.c, limit, discard)
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}

	return q
}

// waitFor polls cond until it holds or a second has passed.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewQueue_NilClient(t *testing.T) {
	if _, err := sink.NewQueue(nil, 1, discard); err == nil {
		t.Error("expected error for nil client")
	}
}

func TestQueue_ManyObjectsOneClient(t *testing.T) {
	tt := mockServer(t)
	dir := t.TempDir()
	q := newQueue(t, tt, 3)

	const total = 10
	results := make([]*sink.Result, total)
	for i := range total {
		key := fmt.Sprintf("/obj-%d.txt", i)
		results[i] = q.Object(t.Context(), tt.descriptor(t, key), filepath.Join(dir, filepath.Base(key)))
	}

	if err := q.Wait(); err != nil {
		t.Fatalf("queue: %v", err)
	}

	for i, r := range results {
		if r.Status() != 200 || r.Err() != nil {
			t.Errorf("object %d: status %d, err %v", i, r.Status(), r.Err())
		}
		if r.Bucket != "files" || r.Path != fmt.Sprintf("/obj-%d.txt", i) {
			t.Errorf("object %d: unexpected identity %s %s", i, r.Bucket, r.Path)
		}

		got, err := os.ReadFile(r.Dest)
		if err != nil || string(got) != content {
			t.Errorf("object %d: %q, %v", i, got, err)
		}
	}
	assertNoTemp(t, dir)
}

func TestQueue_WaitJoinsObjectErrors(t *testing.T) {
	tt := mockServer(t)
	dir := t.TempDir()
	q := newQueue(t, tt, 0)

	ok := q.Object(t.Context(), tt.descriptor(t, "/a.txt"), filepath.Join(dir, "a.txt"))
	missing := q.Object(t.Context(), tt.descriptor(t, "/missing"), filepath.Join(dir, "missing.txt"))
	corrupt := q.Object(t.Context(), tt.descriptor(t, "/b.txt"), filepath.Join(dir, "b.txt"),
		sink.WithChecksum(sha256.New(), sha256Hex("other")))

	err := q.Wait()
	if !errors.Is(err, sink.ErrUnexpectedStatus) || !errors.Is(err, sink.ErrChecksumMismatch) {
		t.Fatalf("exp both failures joined, got %v", err)
	}
	if !strings.Contains(err.Error(), "files/missing -> ") {
		t.Errorf("exp object context in message, got %q", err.Error())
	}

	if ok.Err() != nil {
		t.Errorf("exp a.txt to succeed, got %v", ok.Err())
	}

	var objErr *sink.ObjectError
	if !errors.As(missing.Err(), &objErr) {
		t.Fatalf("exp *ObjectError, got %T: %v", missing.Err(), missing.Err())
	}
	if objErr.Path != "/missing" || objErr.Dest != filepath.Join(dir, "missing.txt") {
		t.Errorf("unexpected error context: %+v", objErr)
	}
	if missing.Status() != 404 {
		t.Errorf("exp status 404, got %d", missing.Status())
	}

	if !errors.Is(corrupt.Err(), sink.ErrChecksumMismatch) {
		t.Errorf("exp checksum mismatch, got %v", corrupt.Err())
	}
	if _, err := os.Stat(filepath.Join(dir, "b.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("corrupt object must not be renamed into place, stat: %v", err)
	}
}

func TestQueue_ConcurrencyLimit(t *testing.T) {
	const limit = 2
	const total = 5

	tt := mockServer(t)
	dir := t.TempDir()
	q := newQueue(t, tt, limit)

	for i := range total {
		q.Object(t.Context(), tt.descriptor(t, fmt.Sprintf("/gated/%d", i)), filepath.Join(dir, fmt.Sprint(i)))
	}

	waitFor(t, func() bool { return tt.running.Load() == limit })
	time.Sleep(50 * time.Millisecond)
	close(tt.gate)

	if err := q.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if peak := tt.peak.Load(); peak != limit {
		t.Errorf("max concurrent requests was %d, want %d", peak, limit)
	}
	if n := tt.hits.Load(); n != total {
		t.Errorf("exp %d requests, got %d", total, n)
	}
}

func TestQueue_UnlimitedConcurrency(t *testing.T) {
	const total = 6

	tt := mockServer(t)
	dir := t.TempDir()
	q := newQueue(t, tt, 0)

	for i := range total {
		q.Object(t.Context(), tt.descriptor(t, fmt.Sprintf("/gated/%d", i)), filepath.Join(dir, fmt.Sprint(i)))
	}

	waitFor(t, func() bool { return tt.running.Load() == total })
	close(tt.gate)

	if err := q.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResult_Cancel(t *testing.T) {
	tt := mockServer(t)
	dir := t.TempDir()
	q := newQueue(t, tt, 0)

	dest := filepath.Join(dir, "cancelled.txt")
	r := q.Object(t.Context(), tt.descriptor(t, "/gated/cancelled"), dest)

	waitFor(t, func() bool { return tt.running.Load() == 1 })
	r.Cancel()

	var objErr *sink.ObjectError
	if !errors.As(r.Err(), &objErr) {
		t.Fatalf("exp *ObjectError after cancel, got %v", r.Err())
	}

	select {
	case <-r.Done():
	default:
		t.Error("Done must be closed once Err returned")
	}

	assertNoTemp(t, dir)
	if _, err := os.Stat(dest); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("destination must not exist after cancel, stat: %v", err)
	}
}

func TestQueue_ContextCancelledWhileWaitingForSlot(t *testing.T) {
	tt := mockServer(t)
	dir := t.TempDir()
	q := newQueue(t, tt, 1)

	q.Object(t.Context(), tt.descriptor(t, "/gated/first"), filepath.Join(dir, "first"))
	waitFor(t, func() bool { return tt.running.Load() == 1 })

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	r := q.Object(ctx, tt.descriptor(t, "/second"), filepath.Join(dir, "second"))
	if err := r.Err(); !errors.Is(err, context.Canceled) {
		t.Errorf("exp context.Canceled, got %v", err)
	}

	close(tt.gate)
	if err := q.Wait(); !errors.Is(err, context.Canceled) {
		t.Errorf("exp Wait to report the cancelled object, got %v", err)
	}
	if n := tt.hits.Load(); n != 1 {
		t.Errorf("exp only the first object requested, got %d requests", n)
	}
}

func TestQueue_Shutdown(t *testing.T) {
	tt := mockServer(t)
	dir := t.TempDir()
	q := newQueue(t, tt, 1)

	first := q.Object(t.Context(), tt.descriptor(t, "/gated/first"), filepath.Join(dir, "first"))
	waitFor(t, func() bool { return tt.running.Load() == 1 })

	pending := q.Object(t.Context(), tt.descriptor(t, "/pending"), filepath.Join(dir, "pending"))
	q.Shutdown()
	close(tt.gate)

	if err := first.Err(); err != nil {
		t.Errorf("in-flight object must complete, got %v", err)
	}
	if err := pending.Err(); !errors.Is(err, sink.ErrQueueShutdown) {
		t.Errorf("exp ErrQueueShutdown, got %v", err)
	}
	if pending.Status() != 0 {
		t.Errorf("exp no status for a skipped object, got %d", pending.Status())
	}
	if err := q.Wait(); !errors.Is(err, sink.ErrQueueShutdown) {
		t.Errorf("exp Wait to report the skipped object, got %v", err)
	}
	if n := tt.hits.Load(); n != 1 {
		t.Errorf("exp a single request, got %d", n)
	}
}
