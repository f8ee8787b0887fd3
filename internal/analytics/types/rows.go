package types

import (
	"math/big"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// OrderFact mirrors the order_events BigQuery schema. One row per order event.
type OrderFact struct {
	EventID        string               `bigquery:"event_id"`
	EventType      string               `bigquery:"event_type"`
	OccurredAt     time.Time            `bigquery:"occurred_at"`
	OrderID        string               `bigquery:"order_id"`
	UserID         string               `bigquery:"user_id"`
	Status         string               `bigquery:"status"`
	PreviousStatus cbigquery.NullString `bigquery:"previous_status"`
	FinalPrice     *big.Rat             `bigquery:"final_price"`
	Courier        cbigquery.NullString `bigquery:"courier"`
	TrackingNumber cbigquery.NullString `bigquery:"tracking_number"`
	TransactionID  cbigquery.NullString `bigquery:"transaction_id"`
	Reason         cbigquery.NullString `bigquery:"reason"`
	Payload        cbigquery.NullJSON   `bigquery:"payload"`
}
