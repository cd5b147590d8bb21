package repository

import (
	"context"
	"errors"

	"github.com/feastly/cart/internal/domain"
)

// ErrCorruptSnapshot reports a persisted cart blob that could not be decoded
// or that violates the cart's structural rules. Callers fall back to an
// empty cart rather than failing.
var ErrCorruptSnapshot = errors.New("corrupt cart snapshot")

// CartRepository is the cart's durability port over a key-value store.
// Persistence is full-snapshot: every save overwrites the previous value.
type CartRepository interface {
	// Load reads the persisted line items for a user, in insertion order.
	// Returns a not-found error when no snapshot exists and
	// ErrCorruptSnapshot when the stored blob is unreadable.
	Load(ctx context.Context, userID string) ([]domain.LineItem, error)

	// Save writes the full line-item sequence for a user, overwriting any
	// previous snapshot.
	Save(ctx context.Context, userID string, items []domain.LineItem) error

	// Delete removes the persisted snapshot for a user.
	Delete(ctx context.Context, userID string) error
}
