package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func twoItemCart() *Cart {
	return &Cart{
		UserID: "user-1",
		Items: []LineItem{
			{ID: "dosa", RestaurantID: "rest-1", RestaurantName: "Udupi Corner", Price: 10000, Quantity: 2},
			{ID: "idli", RestaurantID: "rest-1", RestaurantName: "Udupi Corner", Price: 5000, Quantity: 1},
		},
	}
}

func TestCart_RestaurantID(t *testing.T) {
	cart := twoItemCart()
	assert.Equal(t, "rest-1", cart.RestaurantID())
	assert.Equal(t, "Udupi Corner", cart.RestaurantName())

	empty := &Cart{UserID: "user-1"}
	assert.Equal(t, "", empty.RestaurantID())
	assert.Equal(t, "", empty.RestaurantName())
}

func TestCart_ItemCount(t *testing.T) {
	assert.Equal(t, 3, twoItemCart().ItemCount())
	assert.Equal(t, 0, (&Cart{}).ItemCount())
}

func TestCart_Quantity(t *testing.T) {
	cart := twoItemCart()
	assert.Equal(t, 2, cart.Quantity("dosa"))
	assert.Equal(t, 1, cart.Quantity("idli"))
	assert.Equal(t, 0, cart.Quantity("vada"))
}

func TestValidateItems(t *testing.T) {
	tests := []struct {
		name    string
		items   []LineItem
		wantErr bool
	}{
		{"empty", nil, false},
		{"single restaurant", twoItemCart().Items, false},
		{
			"mixed restaurants",
			[]LineItem{
				{ID: "a", RestaurantID: "rest-1", Quantity: 1},
				{ID: "b", RestaurantID: "rest-2", Quantity: 1},
			},
			true,
		},
		{
			"zero quantity",
			[]LineItem{{ID: "a", RestaurantID: "rest-1", Quantity: 0}},
			true,
		},
		{
			"missing id",
			[]LineItem{{RestaurantID: "rest-1", Quantity: 1}},
			true,
		},
		{
			"missing restaurant id",
			[]LineItem{{ID: "a", Quantity: 1}},
			true,
		},
		{
			"duplicate ids",
			[]LineItem{
				{ID: "a", RestaurantID: "rest-1", Quantity: 1},
				{ID: "a", RestaurantID: "rest-1", Quantity: 2},
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateItems(tt.items)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedItems)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
