package port

import (
	"context"

	"github.com/tapestry/safefetch/internal/domain"
)

// Journal persists pipeline outcomes
type Journal interface {
	// Record stores one entry and returns its ID
	Record(ctx context.Context, entry *domain.JournalEntry) (int64, error)

	// Recent returns up to limit entries, newest first
	Recent(ctx context.Context, limit int) ([]*domain.JournalEntry, error)
}
