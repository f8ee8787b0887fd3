package orders

import (
	"github.com/angelmondragon/tokoflow-backend/pkg/db/models"
	"github.com/angelmondragon/tokoflow-backend/pkg/types"
)

// ToDTO converts the aggregate into its API shape.
func ToDTO(order *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:           order.ID,
		UserID:       order.UserID,
		Status:       order.Status,
		TotalPrice:   order.TotalPrice,
		ShippingCost: order.ShippingCost,
		Discount:     order.Discount,
		FinalPrice:   order.FinalPrice,
		Shipping: types.ShippingAddress{
			Name:       order.ShippingName,
			Phone:      order.ShippingPhone,
			Address:    order.ShippingAddress,
			Province:   order.ShippingProvince,
			City:       order.ShippingCity,
			PostalCode: order.ShippingPostalCode,
		},
		Courier:        order.ShippingCourier,
		TrackingNumber: order.ShippingTrackingNumber,
		PaymentMethod:  order.PaymentMethod,
		PaidAt:         order.PaidAt,
		ShippedAt:      order.ShippedAt,
		DeliveredAt:    order.DeliveredAt,
		CancelledAt:    order.CancelledAt,
		Items:          make([]OrderItemDTO, 0, len(order.Items)),
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:            item.ID,
			VariantID:     item.VariantID,
			ProductName:   item.ProductName,
			VariantName:   item.VariantName,
			Price:         item.Price,
			DiscountPrice: item.DiscountPrice,
			Quantity:      item.Quantity,
			Subtotal:      item.Subtotal,
		})
	}
	for _, txn := range order.Transactions {
		dto.Transactions = append(dto.Transactions, PaymentTransactionDTO{
			TransactionID:     txn.TransactionID,
			PaymentType:       txn.PaymentType,
			Amount:            txn.Amount,
			Status:            txn.Status,
			TransactionStatus: txn.TransactionStatus,
			FraudStatus:       txn.FraudStatus,
			RedirectURL:       txn.RedirectURL,
			CreatedAt:         txn.CreatedAt,
		})
	}
	return dto
}
