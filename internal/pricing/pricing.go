// Package pricing computes order money fields. Every function is pure.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tokoflow-backend/pkg/db/models"
)

// Totals is the money breakdown of an order.
type Totals struct {
	Subtotals    []decimal.Decimal
	TotalPrice   decimal.Decimal
	ShippingCost decimal.Decimal
	Discount     decimal.Decimal
	FinalPrice   decimal.Decimal
}

// UnitPrice is the discount price when set, else the list price.
func UnitPrice(price decimal.Decimal, discountPrice *decimal.Decimal) decimal.Decimal {
	if discountPrice != nil {
		return *discountPrice
	}
	return price
}

// LineSubtotal multiplies the effective unit price by qty.
func LineSubtotal(price decimal.Decimal, discountPrice *decimal.Decimal, qty int) decimal.Decimal {
	return UnitPrice(price, discountPrice).Mul(decimal.NewFromInt(int64(qty)))
}

// OrderTotal sums item subtotals.
func OrderTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	return total
}

// FinalPrice is max(0, total + shipping - discount).
func FinalPrice(total, shipping, discount decimal.Decimal) decimal.Decimal {
	final := total.Add(shipping).Sub(discount)
	if final.IsNegative() {
		return decimal.Zero
	}
	return final
}

// Recompute derives totals from the items, recomputing each subtotal from
// its snapshot. The caller applies the result with Apply.
func Recompute(order models.Order) Totals {
	subtotals := make([]decimal.Decimal, len(order.Items))
	total := decimal.Zero
	for i, item := range order.Items {
		subtotals[i] = LineSubtotal(item.Price, item.DiscountPrice, item.Quantity)
		total = total.Add(subtotals[i])
	}
	return Totals{
		Subtotals:    subtotals,
		TotalPrice:   total,
		ShippingCost: order.ShippingCost,
		Discount:     order.Discount,
		FinalPrice:   FinalPrice(total, order.ShippingCost, order.Discount),
	}
}

// Apply writes totals onto order and its items.
func (t Totals) Apply(order *models.Order) {
	for i := range order.Items {
		if i < len(t.Subtotals) {
			order.Items[i].Subtotal = t.Subtotals[i]
		}
	}
	order.TotalPrice = t.TotalPrice
	order.ShippingCost = t.ShippingCost
	order.Discount = t.Discount
	order.FinalPrice = t.FinalPrice
}
