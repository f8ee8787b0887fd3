// Package router turns decoded order events into BigQuery fact rows.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	cbigquery "cloud.google.com/go/bigquery"

	"github.com/angelmondragon/tokoflow-backend/internal/analytics/types"
	"github.com/angelmondragon/tokoflow-backend/internal/analytics/writer"
	"github.com/angelmondragon/tokoflow-backend/pkg/enums"
	"github.com/angelmondragon/tokoflow-backend/pkg/logger"
	"github.com/angelmondragon/tokoflow-backend/pkg/outbox/payloads"
)

var (
	ErrUnsupportedEventType = errors.New("unsupported analytics event type")
	ErrMalformedPayload     = errors.New("malformed analytics payload")
)

// Writer delivers fact rows.
type Writer interface {
	InsertFact(ctx context.Context, row types.OrderFact) error
}

// Decoder turns an envelope payload into its typed event.
type Decoder interface {
	Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error)
}

// Router dispatches order envelopes to the fact builder for their type.
type Router struct {
	writer   Writer
	decoders Decoder
	logg     *logger.Logger
}

func NewRouter(w Writer, decoders Decoder, logg *logger.Logger) (*Router, error) {
	if w == nil {
		return nil, errors.New("writer is required")
	}
	if decoders == nil {
		return nil, errors.New("decoder registry is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Router{writer: w, decoders: decoders, logg: logg}, nil
}

// Handle decodes the payload, builds the fact row and writes it. Payment
// events and unknown types return ErrUnsupportedEventType.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	if envelope.AggregateType != enums.AggregateOrder {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	version := envelope.Version
	if version <= 0 {
		version = 1
	}
	decoded, err := r.decoders.Decode(envelope.EventType, version, envelope.Payload)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, envelope.EventType, err)
	}
	row, err := BuildFact(envelope, decoded)
	if err != nil {
		return err
	}
	if err := r.writer.InsertFact(ctx, row); err != nil {
		return err
	}
	logCtx := r.logg.WithFields(ctx, map[string]any{"order_id": row.OrderID, "status": row.Status})
	r.logg.Info(logCtx, "analytics.fact_written")
	return nil
}

// BuildFact flattens a decoded order event into an OrderFact.
func BuildFact(envelope types.Envelope, payload any) (types.OrderFact, error) {
	var (
		ref  payloads.OrderRef
		fact types.OrderFact
	)
	switch event := payload.(type) {
	case *payloads.OrderCreatedEvent:
		ref = event.OrderRef
	case *payloads.OrderCancelledEvent:
		ref = event.OrderRef
		fact.PreviousStatus = nullString(event.PreviousStatus.String())
		fact.Reason = nullString(event.Reason)
	case *payloads.OrderStatusChangedEvent:
		ref = event.OrderRef
		fact.PreviousStatus = nullString(event.From.String())
		if event.TrackingNumber != nil {
			fact.TrackingNumber = nullString(*event.TrackingNumber)
		}
	case *payloads.OrderShippingUpdatedEvent:
		ref = event.OrderRef
		fact.Courier = nullString(event.Courier)
	case *payloads.OrderPaidEvent:
		ref = event.OrderRef
		fact.TransactionID = nullString(event.TransactionID)
	case *payloads.OrderRefundedEvent:
		ref = event.OrderRef
		fact.TransactionID = nullString(event.TransactionID)
	default:
		return types.OrderFact{}, fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}

	encoded, err := writer.EncodeJSON(envelope.Payload)
	if err != nil {
		return types.OrderFact{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	fact.EventID = envelope.EventID
	fact.EventType = string(envelope.EventType)
	fact.OccurredAt = envelope.OccurredAt.UTC()
	fact.OrderID = ref.OrderID.String()
	fact.UserID = ref.UserID.String()
	fact.Status = ref.Status.String()
	fact.FinalPrice = ref.FinalPrice.Rat()
	fact.Payload = encoded
	return fact, nil
}

func nullString(value string) cbigquery.NullString {
	return cbigquery.NullString{StringVal: value, Valid: value != ""}
}
