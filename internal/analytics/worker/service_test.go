package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/tokoflow-backend/internal/analytics/router"
	"github.com/angelmondragon/tokoflow-backend/internal/analytics/types"
	"github.com/angelmondragon/tokoflow-backend/pkg/enums"
	"github.com/angelmondragon/tokoflow-backend/pkg/logger"
	"github.com/angelmondragon/tokoflow-backend/pkg/outbox"
)

func TestBuildEnvelope(t *testing.T) {
	orderID := uuid.NewString()
	payload := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    "evt-1",
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Data:       json.RawMessage(`{"order_id":"` + orderID + `"}`),
	}
	msg := buildMessage(payload, map[string]string{
		"event_type":     "order_paid",
		"aggregate_type": "order",
		"aggregate_id":   orderID,
	})

	env, err := buildEnvelope(msg)
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if env.EventType != enums.EventOrderPaid {
		t.Fatalf("unexpected event type %v", env.EventType)
	}
	if env.AggregateType != enums.AggregateOrder || env.AggregateID != orderID {
		t.Fatalf("unexpected aggregate %s/%s", env.AggregateType, env.AggregateID)
	}
	if env.EventID != "evt-1" || env.Version != 1 {
		t.Fatalf("unexpected event id %s v%d", env.EventID, env.Version)
	}
	if !env.OccurredAt.Equal(payload.OccurredAt) {
		t.Fatalf("unexpected occurred at %v", env.OccurredAt)
	}
}

func TestBuildEnvelopeFallsBackToAttributes(t *testing.T) {
	created := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	msg := buildMessage(outbox.PayloadEnvelope{Data: json.RawMessage(`{}`)}, map[string]string{
		"event_id":       "evt-attr",
		"event_type":     "order_created",
		"aggregate_type": "order",
		"aggregate_id":   "abc",
		"created_at":     created.Format(time.RFC3339Nano),
	})

	env, err := buildEnvelope(msg)
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if env.EventID != "evt-attr" || !env.OccurredAt.Equal(created) {
		t.Fatalf("attribute fallback not applied: %+v", env)
	}
}

func TestBuildEnvelopeRejectsUnknownEventType(t *testing.T) {
	msg := buildMessage(outbox.PayloadEnvelope{EventID: "evt"}, map[string]string{
		"event_type":     "ad_click",
		"aggregate_type": "order",
		"aggregate_id":   "abc",
	})
	if _, err := buildEnvelope(msg); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestProcessHandlesAndKeepsClaim(t *testing.T) {
	claims := &stubClaims{}
	handler := &stubHandler{}
	svc := newTestService(t, handler, claims)

	if svc.process(context.Background(), orderMessage()) {
		t.Fatal("expected ack")
	}
	if !handler.called {
		t.Fatal("handler not invoked")
	}
	if len(claims.claimed) != 1 || len(claims.released) != 0 {
		t.Fatalf("unexpected claim activity %+v", claims)
	}
}

func TestProcessSkipsDuplicate(t *testing.T) {
	claims := &stubClaims{duplicate: true}
	handler := &stubHandler{}
	svc := newTestService(t, handler, claims)

	if svc.process(context.Background(), orderMessage()) {
		t.Fatal("expected ack for duplicate")
	}
	if handler.called {
		t.Fatal("handler should not run for a duplicate")
	}
}

func TestProcessHandlerErrorRetries(t *testing.T) {
	claims := &stubClaims{}
	handler := &stubHandler{err: errors.New("bigquery unavailable")}
	svc := newTestService(t, handler, claims)

	if !svc.process(context.Background(), orderMessage()) {
		t.Fatal("expected nack on handler error")
	}
	if len(claims.released) != 1 {
		t.Fatal("expected claim released for redelivery")
	}
}

func TestProcessClaimErrorRetries(t *testing.T) {
	claims := &stubClaims{err: errors.New("redis down")}
	handler := &stubHandler{}
	svc := newTestService(t, handler, claims)

	if !svc.process(context.Background(), orderMessage()) {
		t.Fatal("expected nack when idempotency store fails")
	}
	if handler.called {
		t.Fatal("handler should not run without a claim")
	}
}

func TestProcessInvalidEnvelopeAcks(t *testing.T) {
	claims := &stubClaims{}
	handler := &stubHandler{}
	svc := newTestService(t, handler, claims)

	if svc.process(context.Background(), &gcppubsub.Message{ID: "bad", Data: []byte("invalid json")}) {
		t.Fatal("invalid envelope should ack")
	}
	if handler.called || len(claims.claimed) != 0 {
		t.Fatal("nothing should run for an invalid envelope")
	}
}

func TestProcessDropsUnsupportedAndMalformed(t *testing.T) {
	for _, sentinel := range []error{router.ErrUnsupportedEventType, router.ErrMalformedPayload} {
		claims := &stubClaims{}
		handler := &stubHandler{err: sentinel}
		svc := newTestService(t, handler, claims)

		if svc.process(context.Background(), orderMessage()) {
			t.Fatalf("%v should ack", sentinel)
		}
		if len(claims.released) != 0 {
			t.Fatalf("%v should keep the claim", sentinel)
		}
	}
}

func TestNewServiceValidation(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "analytics-test", Output: &bytes.Buffer{}})
	if _, err := NewService(nil, &stubHandler{}, &stubClaims{}, logg); err == nil {
		t.Fatal("expected error without subscription")
	}
}

func orderMessage() *gcppubsub.Message {
	payload := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"order_id":"` + uuid.NewString() + `"}`),
	}
	return buildMessage(payload, map[string]string{
		"event_type":     "order_created",
		"aggregate_type": "order",
		"aggregate_id":   uuid.NewString(),
	})
}

func buildMessage(payload outbox.PayloadEnvelope, attrs map[string]string) *gcppubsub.Message {
	data, _ := json.Marshal(payload)
	return &gcppubsub.Message{
		ID:         "msg-1",
		Data:       data,
		Attributes: attrs,
	}
}

func newTestService(t *testing.T, handler Handler, claims *stubClaims) *Service {
	t.Helper()
	return &Service{
		handler: handler,
		claims:  claims,
		logg:    logger.New(logger.Options{ServiceName: "analytics-test", Output: &bytes.Buffer{}}),
	}
}

type stubHandler struct {
	called   bool
	envelope types.Envelope
	err      error
}

func (h *stubHandler) Handle(_ context.Context, envelope types.Envelope) error {
	h.called = true
	h.envelope = envelope
	return h.err
}

type stubClaims struct {
	duplicate bool
	err       error
	claimed   []string
	released  []string
}

func (s *stubClaims) Claim(_ context.Context, _ string, eventID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.claimed = append(s.claimed, eventID)
	return !s.duplicate, nil
}

func (s *stubClaims) Release(_ context.Context, _ string, eventID string) error {
	s.released = append(s.released, eventID)
	return nil
}
