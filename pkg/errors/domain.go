package errors

import "fmt"

// InsufficientStockDetails is attached to CodeInsufficientStock errors.
type InsufficientStockDetails struct {
	VariantID string `json:"variant_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// StateTransitionDetails is attached to CodeInvalidState errors.
type StateTransitionDetails struct {
	From string `json:"from"`
	To   string `json:"to,omitempty"`
}

func InsufficientStock(variantID string, requested, available int) *Error {
	return New(CodeInsufficientStock, fmt.Sprintf("insufficient stock for variant %s", variantID)).
		WithDetails(InsufficientStockDetails{VariantID: variantID, Requested: requested, Available: available})
}

func InvalidTransition(from, to string) *Error {
	return New(CodeInvalidState, fmt.Sprintf("cannot transition order from %s to %s", from, to)).
		WithDetails(StateTransitionDetails{From: from, To: to})
}

func InvalidState(current, message string) *Error {
	return New(CodeInvalidState, message).WithDetails(StateTransitionDetails{From: current})
}

func NotFound(resource string) *Error {
	return New(CodeNotFound, resource+" not found")
}

func Validation(message string) *Error {
	return New(CodeValidation, message)
}
