package domain

import (
	"errors"
	"time"
)

// ErrMalformedItems reports a line-item sequence that violates the cart's
// structural rules (missing ids, zero quantities, mixed restaurants).
var ErrMalformedItems = errors.New("malformed cart items")

// LineItem is one distinct menu item entry in the cart, carrying its own
// quantity. Items are unique by ID within a cart; repeated adds raise the
// quantity instead of creating duplicate rows.
type LineItem struct {
	ID             string `json:"id"`
	RestaurantID   string `json:"restaurantId"`
	RestaurantName string `json:"restaurantName"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Image          string `json:"image,omitempty"`
	Price          Price  `json:"price"`
	Quantity       int    `json:"quantity"`
}

// Cart holds a user's line items in insertion order. A non-empty cart is
// constrained to a single restaurant: every item shares the same
// RestaurantID. Mutation goes through Apply; nothing else edits Items.
type Cart struct {
	UserID    string
	Items     []LineItem
	UpdatedAt time.Time
}

// RestaurantID returns the restaurant constraining the cart, or "" when the
// cart is empty and any restaurant may start a new order.
func (c *Cart) RestaurantID() string {
	if len(c.Items) == 0 {
		return ""
	}
	return c.Items[0].RestaurantID
}

// RestaurantName returns the display name of the constraining restaurant.
func (c *Cart) RestaurantName() string {
	if len(c.Items) == 0 {
		return ""
	}
	return c.Items[0].RestaurantName
}

// ItemCount returns the total quantity across all line items.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// FindItemIndex returns the index of the line item with the given id, or -1.
func (c *Cart) FindItemIndex(id string) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Quantity returns the current quantity for an item id, or 0 if absent.
func (c *Cart) Quantity(id string) int {
	if i := c.FindItemIndex(id); i >= 0 {
		return c.Items[i].Quantity
	}
	return 0
}

// ValidateItems checks a line-item sequence against the cart's structural
// rules: non-empty ids, quantities of at least 1, no duplicate ids, and all
// items belonging to one restaurant. Used when hydrating persisted snapshots.
func ValidateItems(items []LineItem) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ID == "" || item.RestaurantID == "" {
			return ErrMalformedItems
		}
		if item.Quantity < 1 {
			return ErrMalformedItems
		}
		if _, dup := seen[item.ID]; dup {
			return ErrMalformedItems
		}
		seen[item.ID] = struct{}{}
		if item.RestaurantID != items[0].RestaurantID {
			return ErrMalformedItems
		}
	}
	return nil
}
