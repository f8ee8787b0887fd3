package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder              OutboxAggregateType = "order"
	AggregatePaymentTransaction OutboxAggregateType = "payment_transaction"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePaymentTransaction,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderCreated         OutboxEventType = "order_created"
	EventOrderCancelled       OutboxEventType = "order_cancelled"
	EventOrderPaid            OutboxEventType = "order_paid"
	EventOrderRefunded        OutboxEventType = "order_refunded"
	EventOrderStatusChanged   OutboxEventType = "order_status_changed"
	EventOrderShippingUpdated OutboxEventType = "order_shipping_updated"
	EventPaymentInitiated     OutboxEventType = "payment_initiated"
	EventPaymentUpdated       OutboxEventType = "payment_updated"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderCancelled,
	EventOrderPaid,
	EventOrderRefunded,
	EventOrderStatusChanged,
	EventOrderShippingUpdated,
	EventPaymentInitiated,
	EventPaymentUpdated,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
