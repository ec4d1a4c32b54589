// Package store persists completed Get Started submissions.
package store

import (
	"context"

	"github.com/ashureev/cosmic-frontier/internal/domain"
)

// Repository defines the interface for persisting leads.
type Repository interface {
	// SaveLead stores a completed wizard submission. ID and CreatedAt are
	// filled in when empty.
	SaveLead(ctx context.Context, lead *domain.Lead) error

	// ListLeads returns the most recent leads first, at most limit of them.
	ListLeads(ctx context.Context, limit int) ([]domain.Lead, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
