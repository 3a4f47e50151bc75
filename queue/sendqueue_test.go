package queue

import (
	"errors"
	"testing"
)

func TestSendQueueFIFOOrder(t *testing.T) {
	q := New(nil)
	for i := 0; i < 5; i++ {
		if err := q.Push(Item{Kind: KindText, Text: string(rune('a' + i))}); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	for i := 0; i < 5; i++ {
		item, ok := q.Pop()
		if !ok {
			t.Fatalf("expected item %d", i)
		}
		if item.Text != string(rune('a'+i)) {
			t.Fatalf("expected FIFO order, got %q at position %d", item.Text, i)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("expected queue to be empty")
	}
}

func TestSendQueueOverflowFailsSubmission(t *testing.T) {
	q := New(nil)
	for i := 0; i < Capacity; i++ {
		if err := q.Push(Item{Kind: KindBinary}); err != nil {
			t.Fatalf("push %d: unexpected error: %v", i, err)
		}
	}
	err := q.Push(Item{Kind: KindBinary})
	if !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull on overflow, got %v", err)
	}
	if q.Len() != Capacity {
		t.Fatalf("overflowing push must not mutate the queue, len=%d", q.Len())
	}
}

func TestSendQueueRejectsAfterClose(t *testing.T) {
	q := New(nil)
	if err := q.Push(Item{Kind: KindText, Text: "hi"}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := q.Push(Item{Kind: KindClose, CloseCode: 1000}); err != nil {
		t.Fatalf("push close: %v", err)
	}
	if err := q.Push(Item{Kind: KindText, Text: "too late"}); err == nil {
		t.Fatal("expected push after close to fail")
	}
}

func TestSendQueueWakeSignaledOnPush(t *testing.T) {
	calls := 0
	q := New(func() { calls++ })
	_ = q.Push(Item{Kind: KindText, Text: "x"})
	_ = q.Push(Item{Kind: KindText, Text: "y"})
	if calls != 2 {
		t.Fatalf("expected wake called once per push, got %d", calls)
	}
}

func TestSendQueueDrainAllPreservesOrder(t *testing.T) {
	q := New(nil)
	for i := 0; i < 10; i++ {
		_ = q.Push(Item{Kind: KindBinary, Binary: []byte{byte(i)}})
	}
	items := q.DrainAll()
	if len(items) != 10 {
		t.Fatalf("expected 10 drained items, got %d", len(items))
	}
	for i, it := range items {
		if it.Binary[0] != byte(i) {
			t.Fatalf("expected order preserved, position %d got %v", i, it.Binary)
		}
	}
	if q.Len() != 0 {
		t.Fatal("expected queue empty after DrainAll")
	}
}
