package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryPutGet(t *testing.T) {
	q := NewInMemory(4)
	ctx := context.Background()

	rec := Record{CenterFrequency: 145000000, SignalFrequency: 145500000, SampleRate: 48000}
	if err := q.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if q.Empty() {
		t.Fatalf("expected non-empty queue after Put")
	}

	got, ok, err := q.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected a record")
	}
	if got.SignalFrequency != rec.SignalFrequency {
		t.Fatalf("got %+v, want %+v", got, rec)
	}
	if !q.Empty() {
		t.Fatalf("expected empty queue after drain")
	}
}

func TestInMemoryGetOnEmptyReturnsFalse(t *testing.T) {
	q := NewInMemory(1)
	_, ok, err := q.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false on empty queue")
	}
}

func TestInMemoryPutRespectsContextCancellation(t *testing.T) {
	q := NewInMemory(1)
	ctx := context.Background()
	if err := q.Put(ctx, Record{}); err != nil {
		t.Fatalf("first Put: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := q.Put(cancelCtx, Record{}); err == nil {
		t.Fatalf("expected context deadline error when queue is full")
	}
}
