package orders

import (
	"time"

	"github.com/angelmondragon/tokoflow-backend/pkg/db/models"
	"github.com/angelmondragon/tokoflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokoflow-backend/pkg/errors"
)

// Transition moves order to target in memory and returns the column updates
// to persist. Lifecycle timestamps are stamped on first entry only.
func Transition(order *models.Order, target enums.OrderStatus, now time.Time) (map[string]any, error) {
	if !order.Status.CanTransitionTo(target) {
		return nil, pkgerrors.InvalidTransition(order.Status.String(), target.String())
	}
	order.Status = target
	updates := map[string]any{"status": target}

	var column string
	var field **time.Time
	switch target {
	case enums.OrderStatusPaid:
		column, field = "paid_at", &order.PaidAt
	case enums.OrderStatusShipped:
		column, field = "shipped_at", &order.ShippedAt
	case enums.OrderStatusDelivered:
		column, field = "delivered_at", &order.DeliveredAt
	case enums.OrderStatusCancelled:
		column, field = "cancelled_at", &order.CancelledAt
	}
	if field != nil && *field == nil {
		stamp := now.UTC()
		*field = &stamp
		updates[column] = stamp
	}
	return updates, nil
}
