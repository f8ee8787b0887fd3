package enums

import "fmt"

// PaymentStatus tracks the lifecycle of a gateway payment transaction.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusSuccess  PaymentStatus = "success"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusExpired  PaymentStatus = "expired"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusSuccess,
	PaymentStatusFailed,
	PaymentStatusExpired,
	PaymentStatusRefunded,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsFailure groups the statuses that mean the customer was not charged.
func (p PaymentStatus) IsFailure() bool {
	return p == PaymentStatusFailed || p == PaymentStatusExpired
}

// CanMoveTo reports whether a notification may replace p with next.
// A settled payment only moves to refunded, a refund is final, and nothing
// returns to pending once the gateway has decided.
func (p PaymentStatus) CanMoveTo(next PaymentStatus) bool {
	switch p {
	case next, PaymentStatusPending, "":
		return true
	case PaymentStatusSuccess:
		return next == PaymentStatusRefunded
	case PaymentStatusRefunded:
		return false
	default:
		return next != PaymentStatusPending
	}
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
