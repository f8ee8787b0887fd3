package midtrans

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Transaction statuses sent in HTTP notifications.
const (
	StatusCapture       = "capture"
	StatusSettlement    = "settlement"
	StatusPending       = "pending"
	StatusDeny          = "deny"
	StatusCancel        = "cancel"
	StatusExpire        = "expire"
	StatusRefund        = "refund"
	StatusPartialRefund = "partial_refund"

	FraudAccept    = "accept"
	FraudChallenge = "challenge"
	FraudDeny      = "deny"
)

// Notification is the HTTP notification body. OrderID carries our
// transaction_id, not the order uuid.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status,omitempty"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	PaymentType       string `json:"payment_type,omitempty"`
	TransactionTime   string `json:"transaction_time,omitempty"`
	TransactionID     string `json:"transaction_id,omitempty"`
}

// ParseNotification decodes a notification, tolerating unknown fields.
func ParseNotification(body []byte) (Notification, error) {
	var n Notification
	err := json.Unmarshal(body, &n)
	n.OrderID = strings.TrimSpace(n.OrderID)
	n.TransactionStatus = strings.ToLower(strings.TrimSpace(n.TransactionStatus))
	n.FraudStatus = strings.ToLower(strings.TrimSpace(n.FraudStatus))
	return n, err
}

// SignatureKey computes sha512(order_id + status_code + gross_amount + server_key).
func SignatureKey(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks the notification signature against the client's server key.
func (c *Client) VerifySignature(n Notification) bool {
	if !c.Configured() || n.SignatureKey == "" {
		return false
	}
	expected := SignatureKey(n.OrderID, n.StatusCode, n.GrossAmount, c.serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(n.SignatureKey))) == 1
}
