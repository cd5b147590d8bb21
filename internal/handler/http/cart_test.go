package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastly/cart/internal/domain"
	"github.com/feastly/cart/internal/event"
	"github.com/feastly/cart/internal/pricing"
	"github.com/feastly/cart/internal/service"
	apperrors "github.com/feastly/cart/pkg/errors"
	"github.com/feastly/cart/pkg/health"
)

// fakeCartRepository is an in-memory stand-in for the Redis repository.
type fakeCartRepository struct {
	mu    sync.Mutex
	carts map[string][]domain.LineItem
}

func newFakeCartRepository() *fakeCartRepository {
	return &fakeCartRepository{carts: make(map[string][]domain.LineItem)}
}

func (f *fakeCartRepository) Load(_ context.Context, userID string) ([]domain.LineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, ok := f.carts[userID]
	if !ok {
		return nil, apperrors.NotFound("cart", userID)
	}
	return items, nil
}

func (f *fakeCartRepository) Save(_ context.Context, userID string, items []domain.LineItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[userID] = items
	return nil
}

func (f *fakeCartRepository) Delete(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, userID)
	return nil
}

// nopPublisher accepts every event without side effects.
type nopPublisher struct{}

func (nopPublisher) PublishCartUpdated(context.Context, *domain.Cart, pricing.Quote) error { return nil }
func (nopPublisher) PublishCartCleared(context.Context, string) error                      { return nil }
func (nopPublisher) PublishCartCheckedOut(context.Context, event.CartCheckedOutData) error { return nil }

// recordingConfirmer counts confirmation prompts.
type recordingConfirmer struct {
	mu    sync.Mutex
	calls int
}

func (c *recordingConfirmer) Confirm(context.Context, string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
}

func (c *recordingConfirmer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func setupCartRouter(t *testing.T) (http.Handler, *recordingConfirmer) {
	t.Helper()

	confirm := &recordingConfirmer{}
	svc := service.NewCartService(
		newFakeCartRepository(),
		nopPublisher{},
		confirm,
		pricing.NewCalculator(4000, 500),
		testLogger(),
	)

	return NewRouter(svc, health.NewHandler(), testLogger()), confirm
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func doRequest(t *testing.T, router http.Handler, method, path, userID string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func addDosa(t *testing.T, router http.Handler, userID string) {
	t.Helper()

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/cart/items", userID, AddItemRequest{
		ID:             "dosa",
		RestaurantID:   "rest-1",
		RestaurantName: "Udupi Corner",
		Name:           "Masala Dosa",
		Price:          "₹250",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCartAPI_RequiresUserID(t *testing.T) {
	router, _ := setupCartRouter(t)

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/cart", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestCartAPI_GetEmptyCart(t *testing.T) {
	router, _ := setupCartRouter(t)

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/cart", "user-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var cart CartResponse
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	assert.Empty(t, cart.Items)
	assert.Equal(t, int64(0), cart.Total)
	assert.Equal(t, "₹0.00", cart.FormattedTotal)
}

func TestCartAPI_AddItem(t *testing.T) {
	router, _ := setupCartRouter(t)

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/cart/items", "user-1", AddItemRequest{
		ID:           "dosa",
		RestaurantID: "rest-1",
		Name:         "Masala Dosa",
		Price:        "₹250",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var cart CartResponse
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Equal(t, int64(25000), cart.Subtotal)
	assert.Equal(t, int64(4000), cart.DeliveryFee)
	assert.Equal(t, int64(1250), cart.Tax)
	assert.Equal(t, int64(30250), cart.Total)
	assert.Equal(t, "₹302.50", cart.FormattedTotal)
}

func TestCartAPI_AddItemValidation(t *testing.T) {
	router, _ := setupCartRouter(t)

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/cart/items", "user-1", AddItemRequest{
		ID: "dosa",
		// restaurantId, name and price missing
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "RestaurantID")
	assert.Contains(t, env.Error.Fields, "Name")
	assert.Contains(t, env.Error.Fields, "Price")
}

func TestCartAPI_RestaurantConflict(t *testing.T) {
	router, confirm := setupCartRouter(t)
	addDosa(t, router, "user-1")

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/cart/items", "user-1", AddItemRequest{
		ID:           "biryani",
		RestaurantID: "rest-2",
		Name:         "Veg Biryani",
		Price:        "₹180",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RESTAURANT_CONFLICT", env.Error.Code)
	assert.Equal(t, 1, confirm.count())

	// The cart still holds only the original item.
	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/cart", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cart CartResponse
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "dosa", cart.Items[0].ID)
}

func TestCartAPI_IncrementAndDecrement(t *testing.T) {
	router, _ := setupCartRouter(t)
	addDosa(t, router, "user-1")

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/cart/items/dosa/increment", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cart CartResponse
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	assert.Equal(t, 2, cart.Items[0].Quantity)

	rec, env = doRequest(t, router, http.MethodPost, "/api/v1/cart/items/dosa/decrement", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	assert.Equal(t, 1, cart.Items[0].Quantity)

	// Decrementing past zero removes the item.
	rec, env = doRequest(t, router, http.MethodPost, "/api/v1/cart/items/dosa/decrement", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	assert.Empty(t, cart.Items)
}

func TestCartAPI_UpdateQuantity(t *testing.T) {
	router, _ := setupCartRouter(t)
	addDosa(t, router, "user-1")

	rec, env := doRequest(t, router, http.MethodPut, "/api/v1/cart/items/dosa", "user-1", UpdateQuantityRequest{Quantity: 4})

	require.Equal(t, http.StatusOK, rec.Code)
	var cart CartResponse
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 4, cart.Items[0].Quantity)
	assert.Equal(t, 4, cart.TotalItems)
}

func TestCartAPI_RemoveItem(t *testing.T) {
	router, _ := setupCartRouter(t)
	addDosa(t, router, "user-1")

	rec, env := doRequest(t, router, http.MethodDelete, "/api/v1/cart/items/dosa", "user-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var cart CartResponse
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	assert.Empty(t, cart.Items)
}

func TestCartAPI_ItemQuantity(t *testing.T) {
	router, _ := setupCartRouter(t)
	addDosa(t, router, "user-1")

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/cart/items/dosa/quantity", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var qty QuantityResponse
	require.NoError(t, json.Unmarshal(env.Data, &qty))
	assert.Equal(t, 1, qty.Quantity)

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/cart/items/vada/quantity", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &qty))
	assert.Equal(t, 0, qty.Quantity)
}

func TestCartAPI_ClearCart(t *testing.T) {
	router, _ := setupCartRouter(t)
	addDosa(t, router, "user-1")

	rec, _ := doRequest(t, router, http.MethodDelete, "/api/v1/cart", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/cart", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cart CartResponse
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	assert.Empty(t, cart.Items)
}

func TestCartAPI_CheckoutEmptyCart(t *testing.T) {
	router, _ := setupCartRouter(t)

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/cart/checkout", "user-1", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "EMPTY_CART", env.Error.Code)
}

func TestCartAPI_Checkout(t *testing.T) {
	router, _ := setupCartRouter(t)
	addDosa(t, router, "user-1")

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/cart/checkout", "user-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var order CheckoutResponse
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.NotEmpty(t, order.OrderID)
	assert.Equal(t, "rest-1", order.RestaurantID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(30250), order.Total)
	assert.False(t, order.PlacedAt.IsZero())

	// Checkout empties the cart.
	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/cart", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cart CartResponse
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	assert.Empty(t, cart.Items)
}

func TestCartAPI_CartsAreIsolatedPerUser(t *testing.T) {
	router, _ := setupCartRouter(t)
	addDosa(t, router, "user-1")

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/cart", "user-2", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var cart CartResponse
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	assert.Empty(t, cart.Items)
}

func TestCartAPI_RejectsNonJSONContentType(t *testing.T) {
	router, _ := setupCartRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString("id=dosa"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-User-ID", "user-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
