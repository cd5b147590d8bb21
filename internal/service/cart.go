package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/feastly/cart/internal/domain"
	"github.com/feastly/cart/internal/event"
	"github.com/feastly/cart/internal/pricing"
	"github.com/feastly/cart/internal/repository"
	apperrors "github.com/feastly/cart/pkg/errors"
)

// Fixed user-facing copy for the single-restaurant rejection. Sent through
// the confirmation surface exactly once per rejected add.
const (
	conflictTitle   = "One restaurant at a time"
	conflictMessage = "Your cart has items from another restaurant. Clear the cart or check out before ordering somewhere new."
)

// Confirmer is the user-facing confirmation surface. The store invokes it to
// explain a blocked action; it is fire-and-forget and no return value is
// consumed.
type Confirmer interface {
	Confirm(ctx context.Context, title, message string)
}

// EventPublisher publishes cart domain events. Satisfied by event.Producer.
type EventPublisher interface {
	PublishCartUpdated(ctx context.Context, cart *domain.Cart, quote pricing.Quote) error
	PublishCartCleared(ctx context.Context, userID string) error
	PublishCartCheckedOut(ctx context.Context, data event.CartCheckedOutData) error
}

// AddItemInput is the catalog payload for adding one unit of a menu item.
// Price arrives in its display form ("₹250") and is parsed once here, at
// ingestion; an unparsable price silently becomes zero.
type AddItemInput struct {
	ID             string
	RestaurantID   string
	RestaurantName string
	Name           string
	Description    string
	Image          string
	Price          string
}

func (in AddItemInput) lineItem() domain.LineItem {
	return domain.LineItem{
		ID:             in.ID,
		RestaurantID:   in.RestaurantID,
		RestaurantName: in.RestaurantName,
		Name:           in.Name,
		Description:    in.Description,
		Image:          in.Image,
		Price:          domain.ParsePrice(in.Price),
	}
}

// CheckoutResult is the priced order snapshot produced when a cart is
// checked out.
type CheckoutResult struct {
	OrderID        string
	UserID         string
	RestaurantID   string
	RestaurantName string
	Items          []domain.LineItem
	Quote          pricing.Quote
	PlacedAt       time.Time
}

// CartService owns the canonical cart state for the session. In-memory carts
// are the source of truth once loaded; the repository is a best-effort
// durability layer behind them. All mutation goes through the documented
// operations, and operations are serialized so no two mutations interleave.
type CartService struct {
	repo     repository.CartRepository
	producer EventPublisher
	confirm  Confirmer
	calc     pricing.Calculator
	logger   *slog.Logger

	mu    sync.Mutex
	carts map[string]*domain.Cart
}

// NewCartService creates a new cart service.
func NewCartService(
	repo repository.CartRepository,
	producer EventPublisher,
	confirm Confirmer,
	calc pricing.Calculator,
	logger *slog.Logger,
) *CartService {
	return &CartService{
		repo:     repo,
		producer: producer,
		confirm:  confirm,
		calc:     calc,
		logger:   logger,
		carts:    make(map[string]*domain.Cart),
	}
}

// GetCart returns a snapshot of the user's cart with a fresh quote.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, pricing.Quote, error) {
	if userID == "" {
		return nil, pricing.Quote{}, apperrors.InvalidInput("user id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.sessionCart(ctx, userID)
	return snapshotCart(cart), s.calc.Quote(cart.Items), nil
}

// ItemQuantity returns the current quantity for an item id, or 0 if absent.
// Pure read, no side effects on cart state.
func (s *CartService) ItemQuantity(ctx context.Context, userID, itemID string) (int, error) {
	if userID == "" {
		return 0, apperrors.InvalidInput("user id is required")
	}
	if itemID == "" {
		return 0, apperrors.InvalidInput("item id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessionCart(ctx, userID).Quantity(itemID), nil
}

// AddItem adds one unit of the given item to the user's cart. Adding an id
// already in the cart raises its quantity by one instead of duplicating the
// row. An add from a different restaurant than the cart's current one is
// rejected: state is left untouched, the confirmation surface is invoked
// exactly once, and a RestaurantConflict error is returned.
func (s *CartService) AddItem(ctx context.Context, userID string, input AddItemInput) (*domain.Cart, pricing.Quote, error) {
	if userID == "" {
		return nil, pricing.Quote{}, apperrors.InvalidInput("user id is required")
	}
	if input.ID == "" {
		return nil, pricing.Quote{}, apperrors.InvalidInput("item id is required")
	}
	if input.RestaurantID == "" {
		return nil, pricing.Quote{}, apperrors.InvalidInput("restaurant id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.sessionCart(ctx, userID)

	next, err := domain.Apply(cart.Items, domain.Add(input.lineItem()))
	if err != nil {
		if errors.Is(err, domain.ErrRestaurantConflict) {
			s.confirm.Confirm(ctx, conflictTitle, conflictMessage)
			s.logger.InfoContext(ctx, "add item rejected: restaurant conflict",
				slog.String("user_id", userID),
				slog.String("cart_restaurant_id", cart.RestaurantID()),
				slog.String("item_restaurant_id", input.RestaurantID),
			)
			return nil, pricing.Quote{}, apperrors.RestaurantConflict(conflictMessage)
		}
		return nil, pricing.Quote{}, err
	}

	quote := s.commit(ctx, cart, next)

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("user_id", userID),
		slog.String("item_id", input.ID),
		slog.String("restaurant_id", input.RestaurantID),
		slog.Int("quantity", cart.Quantity(input.ID)),
	)

	return snapshotCart(cart), quote, nil
}

// IncrementItem raises an item's quantity by one. No-op if the id is absent.
func (s *CartService) IncrementItem(ctx context.Context, userID, itemID string) (*domain.Cart, pricing.Quote, error) {
	return s.applyItemCommand(ctx, userID, itemID, domain.Increment(itemID), "cart item incremented")
}

// DecrementItem lowers an item's quantity by one, removing the item when it
// reaches zero. No-op if the id is absent.
func (s *CartService) DecrementItem(ctx context.Context, userID, itemID string) (*domain.Cart, pricing.Quote, error) {
	return s.applyItemCommand(ctx, userID, itemID, domain.Decrement(itemID), "cart item decremented")
}

// RemoveItem deletes an item outright, regardless of quantity. No-op if the
// id is absent.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) (*domain.Cart, pricing.Quote, error) {
	return s.applyItemCommand(ctx, userID, itemID, domain.Remove(itemID), "item removed from cart")
}

// UpdateQuantity sets an item's quantity to max(0, quantity); at zero the
// item is removed. No-op if the id is absent.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.Cart, pricing.Quote, error) {
	return s.applyItemCommand(ctx, userID, itemID, domain.SetQuantity(itemID, quantity), "cart item quantity updated")
}

// ClearCart empties the cart unconditionally; the restaurant restriction
// lifts with it.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.InvalidInput("user id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked(ctx, s.sessionCart(ctx, userID))

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("user_id", userID),
	)

	return nil
}

// Checkout turns a non-empty cart into a priced order snapshot, publishes it
// for downstream order processing, and clears the cart. The order event is
// the one publish that must succeed: on failure the cart is left intact so
// the user can retry.
func (s *CartService) Checkout(ctx context.Context, userID string) (*CheckoutResult, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.sessionCart(ctx, userID)
	if len(cart.Items) == 0 {
		return nil, apperrors.EmptyCart("cart is empty, nothing to check out")
	}

	quote := s.calc.Quote(cart.Items)
	result := &CheckoutResult{
		OrderID:        uuid.New().String(),
		UserID:         userID,
		RestaurantID:   cart.RestaurantID(),
		RestaurantName: cart.RestaurantName(),
		Items:          cloneItems(cart.Items),
		Quote:          quote,
		PlacedAt:       time.Now().UTC(),
	}

	err := s.producer.PublishCartCheckedOut(ctx, event.CartCheckedOutData{
		OrderID:        result.OrderID,
		UserID:         result.UserID,
		RestaurantID:   result.RestaurantID,
		RestaurantName: result.RestaurantName,
		Items:          result.Items,
		ItemCount:      quote.TotalItems,
		Subtotal:       quote.Subtotal.Minor(),
		DeliveryFee:    quote.DeliveryFee.Minor(),
		Tax:            quote.Tax.Minor(),
		Total:          quote.Total.Minor(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "checkout failed: order event not published",
			slog.String("user_id", userID),
			slog.String("order_id", result.OrderID),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.Internal(err)
	}

	s.clearLocked(ctx, cart)

	s.logger.InfoContext(ctx, "cart checked out",
		slog.String("user_id", userID),
		slog.String("order_id", result.OrderID),
		slog.String("restaurant_id", result.RestaurantID),
		slog.Int("item_count", quote.TotalItems),
		slog.Int64("total", quote.Total.Minor()),
	)

	return result, nil
}

func (s *CartService) applyItemCommand(ctx context.Context, userID, itemID string, cmd domain.Command, logMsg string) (*domain.Cart, pricing.Quote, error) {
	if userID == "" {
		return nil, pricing.Quote{}, apperrors.InvalidInput("user id is required")
	}
	if itemID == "" {
		return nil, pricing.Quote{}, apperrors.InvalidInput("item id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.sessionCart(ctx, userID)

	next, err := domain.Apply(cart.Items, cmd)
	if err != nil {
		return nil, pricing.Quote{}, err
	}

	quote := s.commit(ctx, cart, next)

	s.logger.InfoContext(ctx, logMsg,
		slog.String("user_id", userID),
		slog.String("item_id", itemID),
		slog.Int("quantity", cart.Quantity(itemID)),
	)

	return snapshotCart(cart), quote, nil
}

// sessionCart returns the in-memory cart for a user, loading the persisted
// snapshot on first access. The load always happens before any save for that
// user; afterwards memory is authoritative for the session. A missing
// snapshot starts an empty cart; a corrupt or unreadable one degrades to an
// empty cart with a warning instead of failing. Callers must hold s.mu.
func (s *CartService) sessionCart(ctx context.Context, userID string) *domain.Cart {
	if cart, ok := s.carts[userID]; ok {
		return cart
	}

	cart := &domain.Cart{UserID: userID, Items: []domain.LineItem{}}

	items, err := s.repo.Load(ctx, userID)
	switch {
	case err == nil:
		cart.Items = items
	case errors.Is(err, apperrors.ErrNotFound):
		// First launch for this user.
	default:
		s.logger.WarnContext(ctx, "failed to load persisted cart, starting empty",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.carts[userID] = cart
	return cart
}

// commit installs the new item sequence, persists it best-effort, and
// publishes a cart.updated event best-effort. The in-memory mutation is
// never rolled back: a failed save or publish degrades to "not persisted
// this session" and is logged.
func (s *CartService) commit(ctx context.Context, cart *domain.Cart, items []domain.LineItem) pricing.Quote {
	cart.Items = items
	cart.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, cart.UserID, cart.Items); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist cart, in-memory state kept",
			slog.String("user_id", cart.UserID),
			slog.String("error", err.Error()),
		)
	}

	quote := s.calc.Quote(cart.Items)

	if err := s.producer.PublishCartUpdated(ctx, cart, quote); err != nil {
		s.logger.WarnContext(ctx, "failed to publish cart.updated event",
			slog.String("user_id", cart.UserID),
			slog.String("error", err.Error()),
		)
	}

	return quote
}

// clearLocked empties the cart and removes the persisted snapshot
// best-effort. Callers must hold s.mu.
func (s *CartService) clearLocked(ctx context.Context, cart *domain.Cart) {
	cart.Items = []domain.LineItem{}
	cart.UpdatedAt = time.Now().UTC()

	if err := s.repo.Delete(ctx, cart.UserID); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete persisted cart",
			slog.String("user_id", cart.UserID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishCartCleared(ctx, cart.UserID); err != nil {
		s.logger.WarnContext(ctx, "failed to publish cart.cleared event",
			slog.String("user_id", cart.UserID),
			slog.String("error", err.Error()),
		)
	}
}

// snapshotCart returns a copy so callers cannot reach into the store's
// backing slice.
func snapshotCart(cart *domain.Cart) *domain.Cart {
	return &domain.Cart{
		UserID:    cart.UserID,
		Items:     cloneItems(cart.Items),
		UpdatedAt: cart.UpdatedAt,
	}
}

func cloneItems(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, len(items))
	copy(out, items)
	return out
}
