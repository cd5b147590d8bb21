// Package pricing derives order totals from a cart's line items. The
// calculator is pure: no state beyond its configured rates, no side effects,
// safe for concurrent use.
package pricing

import "github.com/feastly/cart/internal/domain"

const basisPointDivisor = 10_000

// Calculator computes quotes from configured delivery and tax rates.
type Calculator struct {
	// DeliveryFee is the flat fee charged per order.
	DeliveryFee domain.Price
	// TaxRateBasisPoints is the tax rate applied to the subtotal only,
	// in basis points (500 = 5%).
	TaxRateBasisPoints int64
}

// NewCalculator creates a calculator with the given flat delivery fee
// (minor units) and tax rate in basis points.
func NewCalculator(deliveryFeeMinor, taxRateBasisPoints int64) Calculator {
	return Calculator{
		DeliveryFee:        domain.Price(deliveryFeeMinor),
		TaxRateBasisPoints: taxRateBasisPoints,
	}
}

// Quote is the priced view of a cart at one point in time. All amounts are
// minor units; it is derived fresh on every read and never persisted, so it
// cannot drift from the line items.
type Quote struct {
	Subtotal    domain.Price
	DeliveryFee domain.Price
	Tax         domain.Price
	Total       domain.Price
	TotalItems  int
}

// Quote prices the given line items.
//
// An empty cart quotes to all zeros: the delivery fee is waived when there is
// nothing to deliver. Tax applies to the subtotal only, rounded half-up to
// the nearest minor unit.
func (c Calculator) Quote(items []domain.LineItem) Quote {
	var subtotal domain.Price
	var count int
	for _, item := range items {
		subtotal += item.Price.Mul(item.Quantity)
		count += item.Quantity
	}

	if count == 0 {
		return Quote{}
	}

	tax := taxOn(subtotal, c.TaxRateBasisPoints)

	return Quote{
		Subtotal:    subtotal,
		DeliveryFee: c.DeliveryFee,
		Tax:         tax,
		Total:       subtotal + c.DeliveryFee + tax,
		TotalItems:  count,
	}
}

func taxOn(subtotal domain.Price, rateBasisPoints int64) domain.Price {
	scaled := subtotal.Minor() * rateBasisPoints
	return domain.Price((scaled + basisPointDivisor/2) / basisPointDivisor)
}
