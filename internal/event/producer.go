package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/feastly/cart/internal/domain"
	"github.com/feastly/cart/internal/pricing"
	pkgkafka "github.com/feastly/cart/pkg/kafka"
	"github.com/feastly/cart/pkg/logger"
)

// Kafka topic constants for cart domain events.
const (
	TopicCartUpdated        = "feastly.cart.updated"
	TopicCartCleared        = "feastly.cart.cleared"
	TopicCartCheckedOut     = "feastly.cart.checked_out"
	TopicCartConflictNotice = "feastly.cart.conflict_notice"
)

// Aggregate type constant.
const AggregateTypeCart = "cart"

// Source identifier for events originating from the cart service.
const SourceCartService = "cart-service"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	UserID       string            `json:"user_id"`
	RestaurantID string            `json:"restaurant_id,omitempty"`
	Items        []domain.LineItem `json:"items"`
	ItemCount    int               `json:"item_count"`
	Subtotal     int64             `json:"subtotal"`
	Total        int64             `json:"total"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	UserID string `json:"user_id"`
}

// CartCheckedOutData is the payload for a cart.checked_out event: the priced
// order snapshot handed to downstream order processing.
type CartCheckedOutData struct {
	OrderID        string            `json:"order_id"`
	UserID         string            `json:"user_id"`
	RestaurantID   string            `json:"restaurant_id"`
	RestaurantName string            `json:"restaurant_name"`
	Items          []domain.LineItem `json:"items"`
	ItemCount      int               `json:"item_count"`
	Subtotal       int64             `json:"subtotal"`
	DeliveryFee    int64             `json:"delivery_fee"`
	Tax            int64             `json:"tax"`
	Total          int64             `json:"total"`
}

// ConflictNoticeData is the payload for a cart.conflict_notice event,
// rendered by the notification service as a user-facing alert.
type ConflictNoticeData struct {
	UserID  string `json:"user_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Producer publishes cart domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the cart service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart, quote pricing.Quote) error {
	data := CartUpdatedData{
		UserID:       cart.UserID,
		RestaurantID: cart.RestaurantID(),
		Items:        cart.Items,
		ItemCount:    quote.TotalItems,
		Subtotal:     quote.Subtotal.Minor(),
		Total:        quote.Total.Minor(),
	}

	return p.publish(ctx, TopicCartUpdated, cart.UserID, data)
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, userID string) error {
	return p.publish(ctx, TopicCartCleared, userID, CartClearedData{UserID: userID})
}

// PublishCartCheckedOut publishes a cart.checked_out event.
func (p *Producer) PublishCartCheckedOut(ctx context.Context, data CartCheckedOutData) error {
	return p.publish(ctx, TopicCartCheckedOut, data.UserID, data)
}

// PublishConflictNotice publishes a cart.conflict_notice event.
func (p *Producer) PublishConflictNotice(ctx context.Context, userID, title, message string) error {
	data := ConflictNoticeData{
		UserID:  userID,
		Title:   title,
		Message: message,
	}

	return p.publish(ctx, TopicCartConflictNotice, userID, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID string, data any) error {
	ev, err := pkgkafka.NewEvent(topic, aggregateID, AggregateTypeCart, SourceCartService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		ev.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published cart event",
		slog.String("topic", topic),
		slog.String("user_id", aggregateID),
	)

	return nil
}

// ConflictNotifier adapts the producer to the cart store's confirmation
// surface: each rejected add becomes one conflict_notice event for the
// notification service to show the user. Delivery is fire-and-forget;
// failures are logged and never affect the rejected mutation.
type ConflictNotifier struct {
	producer *Producer
	logger   *slog.Logger
}

// NewConflictNotifier creates a confirmation surface backed by the producer.
func NewConflictNotifier(producer *Producer, logger *slog.Logger) *ConflictNotifier {
	return &ConflictNotifier{
		producer: producer,
		logger:   logger,
	}
}

// Confirm publishes a user-facing notice explaining a blocked action.
func (n *ConflictNotifier) Confirm(ctx context.Context, title, message string) {
	userID := logger.UserIDFromContext(ctx)

	if err := n.producer.PublishConflictNotice(ctx, userID, title, message); err != nil {
		n.logger.WarnContext(ctx, "failed to publish conflict notice",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
