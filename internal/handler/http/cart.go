package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/feastly/cart/internal/domain"
	"github.com/feastly/cart/internal/pricing"
	"github.com/feastly/cart/internal/service"
	apperrors "github.com/feastly/cart/pkg/errors"
	"github.com/feastly/cart/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding an item to the cart.
// It carries catalog data; quantity is implicit (always "one more") and the
// price is the display-form string from the menu.
type AddItemRequest struct {
	ID             string `json:"id" validate:"required"`
	RestaurantID   string `json:"restaurantId" validate:"required"`
	RestaurantName string `json:"restaurantName" validate:"max=500"`
	Name           string `json:"name" validate:"required,min=1,max=500"`
	Description    string `json:"description" validate:"max=2000"`
	Image          string `json:"image" validate:"max=2000"`
	Price          string `json:"price" validate:"required,max=32"`
}

// UpdateQuantityRequest is the JSON request body for setting an item's
// quantity. Negative values clamp to zero, which removes the item.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// --- Response DTOs ---

// CartResponse is the consumer-facing read surface of the cart. Amounts are
// minor units; the formatted variants are currency-prefixed strings with two
// decimal places.
type CartResponse struct {
	Items                 []domain.LineItem `json:"items"`
	RestaurantID          string            `json:"restaurantId,omitempty"`
	RestaurantName        string            `json:"restaurantName,omitempty"`
	TotalItems            int               `json:"totalItems"`
	Subtotal              int64             `json:"subtotal"`
	DeliveryFee           int64             `json:"deliveryFee"`
	Tax                   int64             `json:"tax"`
	Total                 int64             `json:"total"`
	FormattedSubtotal     string            `json:"formattedSubtotal"`
	FormattedDeliveryFee  string            `json:"formattedDeliveryFee"`
	FormattedTax          string            `json:"formattedTax"`
	FormattedTotal        string            `json:"formattedTotal"`
	UpdatedAt             time.Time         `json:"updatedAt"`
}

// QuantityResponse is the response for a single item quantity lookup.
type QuantityResponse struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// CheckoutResponse is the priced order snapshot returned by checkout.
type CheckoutResponse struct {
	OrderID        string            `json:"orderId"`
	RestaurantID   string            `json:"restaurantId"`
	RestaurantName string            `json:"restaurantName,omitempty"`
	Items          []domain.LineItem `json:"items"`
	TotalItems     int               `json:"totalItems"`
	Subtotal       int64             `json:"subtotal"`
	DeliveryFee    int64             `json:"deliveryFee"`
	Tax            int64             `json:"tax"`
	Total          int64             `json:"total"`
	FormattedTotal string            `json:"formattedTotal"`
	PlacedAt       time.Time         `json:"placedAt"`
}

func newCartResponse(cart *domain.Cart, quote pricing.Quote) CartResponse {
	return CartResponse{
		Items:                cart.Items,
		RestaurantID:         cart.RestaurantID(),
		RestaurantName:       cart.RestaurantName(),
		TotalItems:           quote.TotalItems,
		Subtotal:             quote.Subtotal.Minor(),
		DeliveryFee:          quote.DeliveryFee.Minor(),
		Tax:                  quote.Tax.Minor(),
		Total:                quote.Total.Minor(),
		FormattedSubtotal:    quote.Subtotal.Format(),
		FormattedDeliveryFee: quote.DeliveryFee.Format(),
		FormattedTax:         quote.Tax.Format(),
		FormattedTotal:       quote.Total.Format(),
		UpdatedAt:            cart.UpdatedAt,
	}
}

// --- Response envelope ---

type response struct {
	Data  any            `json:"data,omitempty"`
	Error *errorResponse `json:"error,omitempty"`
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	cart, quote, err := h.service.GetCart(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: newCartResponse(cart, quote)})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	input := service.AddItemInput{
		ID:             req.ID,
		RestaurantID:   req.RestaurantID,
		RestaurantName: req.RestaurantName,
		Name:           req.Name,
		Description:    req.Description,
		Image:          req.Image,
		Price:          req.Price,
	}

	cart, quote, err := h.service.AddItem(r.Context(), userID, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: newCartResponse(cart, quote)})
}

// IncrementItem handles POST /api/v1/cart/items/{itemId}/increment
func (h *CartHandler) IncrementItem(w http.ResponseWriter, r *http.Request) {
	h.applyItemOp(w, r, h.service.IncrementItem)
}

// DecrementItem handles POST /api/v1/cart/items/{itemId}/decrement
func (h *CartHandler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	h.applyItemOp(w, r, h.service.DecrementItem)
}

// RemoveItem handles DELETE /api/v1/cart/items/{itemId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.applyItemOp(w, r, h.service.RemoveItem)
}

// UpdateQuantity handles PUT /api/v1/cart/items/{itemId}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	itemID := chi.URLParam(r, "itemId")
	if itemID == "" {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "itemId is required"},
		})
		return
	}

	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	cart, quote, err := h.service.UpdateQuantity(r.Context(), userID, itemID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: newCartResponse(cart, quote)})
}

// ItemQuantity handles GET /api/v1/cart/items/{itemId}/quantity
func (h *CartHandler) ItemQuantity(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	itemID := chi.URLParam(r, "itemId")
	if itemID == "" {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "itemId is required"},
		})
		return
	}

	quantity, err := h.service.ItemQuantity(r.Context(), userID, itemID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: QuantityResponse{ID: itemID, Quantity: quantity}})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	if err := h.service.ClearCart(r.Context(), userID); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]string{"status": "cleared"}})
}

// Checkout handles POST /api/v1/cart/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	result, err := h.service.Checkout(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: CheckoutResponse{
		OrderID:        result.OrderID,
		RestaurantID:   result.RestaurantID,
		RestaurantName: result.RestaurantName,
		Items:          result.Items,
		TotalItems:     result.Quote.TotalItems,
		Subtotal:       result.Quote.Subtotal.Minor(),
		DeliveryFee:    result.Quote.DeliveryFee.Minor(),
		Tax:            result.Quote.Tax.Minor(),
		Total:          result.Quote.Total.Minor(),
		FormattedTotal: result.Quote.Total.Format(),
		PlacedAt:       result.PlacedAt,
	}})
}

func (h *CartHandler) applyItemOp(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, userID, itemID string) (*domain.Cart, pricing.Quote, error),
) {
	userID, _ := userIDFromContext(r.Context())

	itemID := chi.URLParam(r, "itemId")
	if itemID == "" {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "itemId is required"},
		})
		return
	}

	cart, quote, err := op(r.Context(), userID, itemID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: newCartResponse(cart, quote)})
}

// --- Helpers ---

func (h *CartHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "internal error",
				slog.String("error", err.Error()),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
		}
		writeJSON(w, appErr.Status, response{
			Error: &errorResponse{Code: appErr.Code, Message: appErr.Message},
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	message := "an internal error occurred"

	if errors.Is(err, apperrors.ErrNotFound) {
		code = "NOT_FOUND"
		message = "resource not found"
	} else if errors.Is(err, apperrors.ErrInvalidInput) {
		code = "INVALID_INPUT"
		message = err.Error()
	}

	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	writeJSON(w, status, response{
		Error: &errorResponse{Code: code, Message: message},
	})
}

func (h *CartHandler) writeValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "request validation failed",
				Fields:  valErr.Fields(),
			},
		})
		return
	}

	writeJSON(w, http.StatusBadRequest, response{
		Error: &errorResponse{Code: "INVALID_INPUT", Message: err.Error()},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}
