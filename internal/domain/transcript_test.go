package domain

import (
	"sync"
	"testing"
)

func TestNewTranscriptStartsWithGreeting(t *testing.T) {
	tr := NewTranscript()

	msgs := tr.Messages()
	if len(msgs) != 1 {
		t.Fatalf("len = %d, want 1", len(msgs))
	}
	if msgs[0].ID != 1 || msgs[0].Sender != SenderAssistant || msgs[0].Text != Greeting {
		t.Fatalf("unexpected greeting: %+v", msgs[0])
	}
}

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	tr := NewTranscript()
	a := tr.Append(SenderUser, "Hello")
	b := tr.Append(SenderAssistant, "Hi there")

	if a.ID != 2 || b.ID != 3 {
		t.Fatalf("ids = %d,%d, want 2,3", a.ID, b.ID)
	}
	if !a.IsUser() || b.IsUser() {
		t.Fatal("unexpected senders")
	}
	if a.Timestamp.IsZero() {
		t.Fatal("timestamp not set")
	}
}

func TestMessagesReturnsSnapshot(t *testing.T) {
	tr := NewTranscript()
	snap := tr.Messages()
	tr.Append(SenderUser, "later")

	if len(snap) != 1 {
		t.Fatalf("snapshot grew to %d", len(snap))
	}
	if tr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tr.Len())
	}
}

func TestConcurrentAppendKeepsIDsUnique(t *testing.T) {
	tr := NewTranscript()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Append(SenderUser, "x")
		}()
	}
	wg.Wait()

	seen := make(map[int]bool)
	for _, m := range tr.Messages() {
		if seen[m.ID] {
			t.Fatalf("duplicate id %d", m.ID)
		}
		seen[m.ID] = true
	}
	if len(seen) != 51 {
		t.Fatalf("got %d messages, want 51", len(seen))
	}
}
