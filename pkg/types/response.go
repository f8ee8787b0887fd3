package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// WebhookAck is the acknowledgement body returned to payment gateway callbacks.
type WebhookAck struct {
	Status string `json:"status"`
}

// WebhookDetail is the rejection body returned to payment gateway callbacks.
type WebhookDetail struct {
	Detail string `json:"detail"`
}
