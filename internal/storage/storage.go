// Package storage defines persistence for reading cursors and uploaded books.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrCursorNotFound is returned by Get when no cursor exists for a user.
var ErrCursorNotFound = errors.New("cursor not found")

// Cursor is the durable per-user pointer to the current page index. It is
// the single source of truth for "where the user is"; the paginated book it
// points into is rebuilt in memory and may have shrunk, so consumers re-clamp
// the index on every read.
type Cursor struct {
	UserID    string
	PageIndex int
	UpdatedAt time.Time
}

// CursorStore defines reading-cursor persistence. Implementations guarantee
// per-call atomicity only; callers must not assume cross-call transactions.
type CursorStore interface {
	// Upsert creates or overwrites the cursor for a user.
	Upsert(ctx context.Context, userID string, pageIndex int) error
	// Get returns the stored page index, or ErrCursorNotFound.
	Get(ctx context.Context, userID string) (int, error)
	// Delete removes the cursor; deleting an absent cursor is not an error.
	Delete(ctx context.Context, userID string) error
	// Count returns the number of stored cursors.
	Count(ctx context.Context) (int64, error)

	Close() error
}
