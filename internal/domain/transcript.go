// Package domain contains core domain types for the Cosmic Frontier site.
package domain

import (
	"sync"
	"time"
)

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Greeting opens every new transcript.
const Greeting = "Greetings, explorer. I am SONAR, your guide to the cosmos. <b>How may I assist you today?</b>"

// Message is a single chat turn.
type Message struct {
	ID        int       `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// IsUser returns true if the message was written by the visitor.
func (m Message) IsUser() bool {
	return m.Sender == SenderUser
}

// Transcript is an append-only, ordered log of chat turns.
// IDs are assigned monotonically starting at 1.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
	nextID   int
	now      func() time.Time
}

// NewTranscript creates a transcript seeded with the assistant greeting.
func NewTranscript() *Transcript {
	t := &Transcript{nextID: 1, now: time.Now}
	t.Append(SenderAssistant, Greeting)
	return t
}

// Append adds a message and returns it with its assigned ID.
func (t *Transcript) Append(sender Sender, text string) Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg := Message{
		ID:        t.nextID,
		Sender:    sender,
		Text:      text,
		Timestamp: t.now(),
	}
	t.nextID++
	t.messages = append(t.messages, msg)
	return msg
}

// Messages returns a snapshot of the transcript in order.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Message(nil), t.messages...)
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
