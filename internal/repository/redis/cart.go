package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/feastly/cart/internal/domain"
	"github.com/feastly/cart/internal/repository"
	apperrors "github.com/feastly/cart/pkg/errors"
)

const keyPrefix = "cart:"

// schemaVersion tags the snapshot envelope so future format changes can be
// migrated instead of discarded.
const schemaVersion = 1

// snapshot is the persisted form of a cart: a versioned envelope around the
// full line-item sequence.
type snapshot struct {
	SchemaVersion int               `json:"schema_version"`
	SavedAt       time.Time         `json:"saved_at"`
	Items         []domain.LineItem `json:"items"`
}

// CartRepository implements repository.CartRepository using Redis.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a new Redis-backed cart repository. Snapshots
// expire after the given TTL so abandoned carts age out on their own.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

// Load reads and decodes the snapshot for a user.
//
// Two on-disk forms are accepted: the current versioned envelope and the
// legacy bare item array written before the envelope was introduced. A blob
// that decodes as neither, or whose items break the cart's structural rules,
// yields ErrCorruptSnapshot.
func (r *CartRepository) Load(ctx context.Context, userID string) ([]domain.LineItem, error) {
	key := keyPrefix + userID

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("cart", userID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	items, err := decodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrCorruptSnapshot, err)
	}

	if err := domain.ValidateItems(items); err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrCorruptSnapshot, err)
	}

	return items, nil
}

func decodeSnapshot(data []byte) ([]domain.LineItem, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err == nil && snap.SchemaVersion >= 1 {
		if snap.SchemaVersion > schemaVersion {
			return nil, fmt.Errorf("unsupported schema version %d", snap.SchemaVersion)
		}
		return snap.Items, nil
	}

	// Legacy form: a bare array of line items.
	var items []domain.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return items, nil
}

// Save writes the full line-item sequence for a user with the configured TTL.
func (r *CartRepository) Save(ctx context.Context, userID string, items []domain.LineItem) error {
	key := keyPrefix + userID

	data, err := json.Marshal(snapshot{
		SchemaVersion: schemaVersion,
		SavedAt:       time.Now().UTC(),
		Items:         items,
	})
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	return nil
}

// Delete removes the snapshot for a user.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	key := keyPrefix + userID

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}

	return nil
}
