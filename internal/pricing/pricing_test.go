package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tokoflow-backend/pkg/db/models"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func TestLineSubtotalUsesDiscountPrice(t *testing.T) {
	assert.True(t, LineSubtotal(dec("100"), nil, 3).Equal(dec("300")))
	assert.True(t, LineSubtotal(dec("100"), decPtr("80.50"), 2).Equal(dec("161")))
	assert.True(t, LineSubtotal(dec("100"), decPtr("0"), 2).IsZero())
}

func TestFinalPriceClampsAtZero(t *testing.T) {
	assert.True(t, FinalPrice(dec("250"), dec("20"), dec("0")).Equal(dec("270")))
	assert.True(t, FinalPrice(dec("250"), dec("20"), dec("70")).Equal(dec("200")))
	assert.True(t, FinalPrice(dec("50"), dec("0"), dec("80")).IsZero())
}

func TestRecomputeScenario(t *testing.T) {
	order := models.Order{
		Items: []models.OrderItem{
			{Price: dec("100"), Quantity: 1},
			{Price: dec("200"), DiscountPrice: decPtr("150"), Quantity: 1},
		},
		ShippingCost: dec("20"),
		Discount:     decimal.Zero,
	}

	totals := Recompute(order)
	require.Len(t, totals.Subtotals, 2)
	assert.True(t, totals.TotalPrice.Equal(dec("250")))
	assert.True(t, totals.FinalPrice.Equal(dec("270")))

	totals.Apply(&order)
	assert.True(t, order.Items[1].Subtotal.Equal(dec("150")))
	assert.True(t, order.TotalPrice.Equal(OrderTotal(order.Items)))
	assert.True(t, order.FinalPrice.Equal(dec("270")))
}

func TestRecomputeIsIdempotent(t *testing.T) {
	order := models.Order{
		Items:    []models.OrderItem{{Price: dec("10.25"), Quantity: 4}},
		Discount: dec("1"),
	}
	first := Recompute(order)
	first.Apply(&order)
	second := Recompute(order)
	assert.True(t, first.FinalPrice.Equal(second.FinalPrice))
	assert.True(t, second.TotalPrice.Equal(dec("41")))
	assert.True(t, second.FinalPrice.Equal(dec("40")))
}
