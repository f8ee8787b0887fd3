package midtranswebhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tokoflow-backend/internal/orders"
	"github.com/angelmondragon/tokoflow-backend/internal/payments"
	"github.com/angelmondragon/tokoflow-backend/pkg/db/models"
	"github.com/angelmondragon/tokoflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokoflow-backend/pkg/errors"
	"github.com/angelmondragon/tokoflow-backend/pkg/logger"
	"github.com/angelmondragon/tokoflow-backend/pkg/metrics"
	"github.com/angelmondragon/tokoflow-backend/pkg/midtrans"
	"github.com/angelmondragon/tokoflow-backend/pkg/outbox"
	"github.com/angelmondragon/tokoflow-backend/pkg/outbox/payloads"
)

// Midtrans reports transaction_time in WIB.
var jakarta = time.FixedZone("WIB", 7*60*60)

const transactionTimeLayout = "2006-01-02 15:04:05"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Notification is the part of a gateway notification the reconciler applies.
type Notification struct {
	TransactionID     string
	TransactionStatus string
	FraudStatus       string
	TransactionTime   string
	Raw               json.RawMessage
}

// FromGateway adapts a parsed notification and its raw body.
func FromGateway(n midtrans.Notification, raw []byte) Notification {
	return Notification{
		TransactionID:     n.OrderID,
		TransactionStatus: n.TransactionStatus,
		FraudStatus:       n.FraudStatus,
		TransactionTime:   n.TransactionTime,
		Raw:               json.RawMessage(raw),
	}
}

// Result describes what a notification changed.
type Result struct {
	TransactionID string
	OrderID       uuid.UUID
	PaymentStatus enums.PaymentStatus
	OrderStatus   enums.OrderStatus
	OrderChanged  bool
}

type ServiceParams struct {
	Payments payments.Repository
	Orders   orders.Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Metrics  *metrics.PaymentMetrics
	Logger   *logger.Logger
}

// Service reconciles gateway notifications into payment and order state.
type Service struct {
	payments payments.Repository
	orders   orders.Repository
	tx       txRunner
	outbox   outboxPublisher
	metrics  *metrics.PaymentMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments repo required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		payments: params.Payments,
		orders:   params.Orders,
		tx:       params.Tx,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// outcome is the mapping of one gateway status pair.
type outcome struct {
	payment     enums.PaymentStatus
	orderTarget enums.OrderStatus
	known       bool
}

// MapStatus maps a transaction and fraud status onto payment and order
// outcomes. Unknown statuses report known=false.
func MapStatus(transactionStatus, fraudStatus string) (enums.PaymentStatus, enums.OrderStatus, bool) {
	o := mapStatus(transactionStatus, fraudStatus)
	return o.payment, o.orderTarget, o.known
}

func mapStatus(transactionStatus, fraudStatus string) outcome {
	switch strings.ToLower(transactionStatus) {
	case midtrans.StatusCapture:
		if strings.ToLower(fraudStatus) == midtrans.FraudAccept {
			return outcome{payment: enums.PaymentStatusSuccess, orderTarget: enums.OrderStatusPaid, known: true}
		}
		return outcome{payment: enums.PaymentStatusFailed, known: true}
	case midtrans.StatusSettlement:
		return outcome{payment: enums.PaymentStatusSuccess, orderTarget: enums.OrderStatusPaid, known: true}
	case midtrans.StatusDeny, midtrans.StatusCancel, midtrans.StatusExpire:
		return outcome{payment: enums.PaymentStatusFailed, known: true}
	case midtrans.StatusPending:
		return outcome{payment: enums.PaymentStatusPending, known: true}
	case midtrans.StatusRefund, midtrans.StatusPartialRefund:
		return outcome{payment: enums.PaymentStatusRefunded, orderTarget: enums.OrderStatusRefunded, known: true}
	}
	return outcome{}
}

// ApplyNotification records the notification on its transaction and moves
// the order when the mapped outcome allows it. Replays are no-ops for the order.
func (s *Service) ApplyNotification(ctx context.Context, n Notification) (*Result, error) {
	n.TransactionID = strings.TrimSpace(n.TransactionID)
	if n.TransactionID == "" {
		return nil, pkgerrors.Validation("order_id is required")
	}
	ctx = s.logg.WithTransactionID(ctx, n.TransactionID)
	mapped := mapStatus(n.TransactionStatus, n.FraudStatus)

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		paymentsRepo := s.payments.WithTx(tx)
		txn, err := paymentsRepo.FindByTransactionIDForUpdate(ctx, n.TransactionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.NotFound("payment transaction")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment transaction")
		}

		updates := map[string]any{
			"transaction_status": nullable(n.TransactionStatus),
			"fraud_status":       nullable(n.FraudStatus),
			"raw_response":       n.Raw,
		}
		if ts, ok := parseTransactionTime(n.TransactionTime); ok {
			updates["transaction_time"] = ts
		}
		applied := mapped.known && txn.Status.CanMoveTo(mapped.payment)
		if applied {
			updates["status"] = mapped.payment
			txn.Status = mapped.payment
		} else if mapped.known {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"payment_status":     txn.Status.String(),
				"transaction_status": n.TransactionStatus,
			}), "webhook.stale_status_ignored")
		}
		if err := paymentsRepo.UpdateTransaction(ctx, txn.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment transaction")
		}

		ordersRepo := s.orders.WithTx(tx)
		order, err := ordersRepo.FindForUpdate(ctx, txn.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		result = &Result{
			TransactionID: txn.TransactionID,
			OrderID:       order.ID,
			PaymentStatus: txn.Status,
			OrderStatus:   order.Status,
		}

		if applied && mapped.orderTarget != "" {
			changed, err := s.moveOrder(ctx, tx, ordersRepo, order, mapped.orderTarget, txn.TransactionID)
			if err != nil {
				return err
			}
			result.OrderChanged = changed
			result.OrderStatus = order.Status
		}

		var fraud *string
		if n.FraudStatus != "" {
			f := n.FraudStatus
			fraud = &f
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentUpdated,
			AggregateType: enums.AggregatePaymentTransaction,
			AggregateID:   txn.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{Role: outbox.ActorRoleGateway},
			Data: payloads.PaymentUpdatedEvent{
				OrderID:           order.ID,
				TransactionID:     txn.TransactionID,
				TransactionStatus: n.TransactionStatus,
				FraudStatus:       fraud,
				PaymentStatus:     txn.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	statusLabel := "ignored"
	if mapped.known {
		statusLabel = mapped.payment.String()
	}
	s.metrics.IncNotification("midtrans", statusLabel)
	logCtx := s.logg.WithOrderID(ctx, result.OrderID.String())
	s.logg.Info(logCtx, "webhook.applied")
	return result, nil
}

// moveOrder applies pending->paid or cancelled->refunded. Any other starting
// state leaves the order untouched.
func (s *Service) moveOrder(ctx context.Context, tx *gorm.DB, repo orders.Repository, order *models.Order, target enums.OrderStatus, transactionID string) (bool, error) {
	var required enums.OrderStatus
	switch target {
	case enums.OrderStatusPaid:
		required = enums.OrderStatusPending
	case enums.OrderStatusRefunded:
		required = enums.OrderStatusCancelled
	default:
		return false, nil
	}
	if order.Status != required {
		if target == enums.OrderStatusPaid && order.Status == enums.OrderStatusCancelled {
			s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "webhook.paid_after_cancel")
		}
		return false, nil
	}

	now := s.now()
	updates, err := orders.Transition(order, target, now)
	if err != nil {
		return false, err
	}
	if err := repo.Update(ctx, order.ID, updates); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	ref := payloads.OrderRef{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		FinalPrice: order.FinalPrice,
	}
	event := outbox.DomainEvent{
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{Role: outbox.ActorRoleGateway},
	}
	if target == enums.OrderStatusPaid {
		event.EventType = enums.EventOrderPaid
		event.Data = payloads.OrderPaidEvent{OrderRef: ref, TransactionID: transactionID, PaidAt: *order.PaidAt}
	} else {
		event.EventType = enums.EventOrderRefunded
		event.Data = payloads.OrderRefundedEvent{OrderRef: ref, TransactionID: transactionID, RefundedAt: now}
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return false, err
	}
	return true, nil
}

func parseTransactionTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(transactionTimeLayout, value, jakarta)
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
