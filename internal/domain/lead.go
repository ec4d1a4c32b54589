package domain

import (
	"time"
)

// Lead is a completed Get Started submission.
type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Interest  string    `json:"interest"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
