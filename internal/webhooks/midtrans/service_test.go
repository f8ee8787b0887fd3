package midtranswebhook

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tokoflow-backend/internal/orders"
	"github.com/angelmondragon/tokoflow-backend/internal/payments"
	"github.com/angelmondragon/tokoflow-backend/pkg/db"
	"github.com/angelmondragon/tokoflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tokoflow-backend/pkg/db/models"
	"github.com/angelmondragon/tokoflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokoflow-backend/pkg/errors"
	"github.com/angelmondragon/tokoflow-backend/pkg/logger"
	"github.com/angelmondragon/tokoflow-backend/pkg/outbox"
)

func newTestService(t *testing.T) (*Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := NewService(ServiceParams{
		Payments: payments.NewRepository(client.DB()),
		Orders:   orders.NewRepository(client.DB()),
		Tx:       client,
		Outbox:   outbox.NewService(outbox.NewRepository(client.DB()), nil),
		Logger:   logger.New(logger.Options{ServiceName: "webhook-test", Output: &bytes.Buffer{}}),
	})
	require.NoError(t, err)
	return svc, client
}

// seedPayment inserts an order in status with one pending transaction.
func seedPayment(t *testing.T, conn *gorm.DB, status enums.OrderStatus) (models.Order, models.PaymentTransaction) {
	t.Helper()
	user := dbtest.SeedUser(t, conn, false)
	order := models.Order{
		ID:                 uuid.New(),
		UserID:             user.ID,
		Status:             status,
		TotalPrice:         decimal.NewFromInt(250),
		ShippingCost:       decimal.NewFromInt(20),
		Discount:           decimal.Zero,
		FinalPrice:         decimal.NewFromInt(270),
		ShippingName:       "Siti Rahma",
		ShippingPhone:      "+6281234567890",
		ShippingAddress:    "Jl. Merdeka No. 10",
		ShippingProvince:   "Jawa Barat",
		ShippingCity:       "Bandung",
		ShippingPostalCode: "40115",
	}
	require.NoError(t, conn.Create(&order).Error)
	txn := models.PaymentTransaction{
		ID:            uuid.New(),
		OrderID:       order.ID,
		TransactionID: order.ID.String() + "-0badcafe",
		PaymentType:   "Midtrans",
		Amount:        order.FinalPrice,
		Status:        enums.PaymentStatusPending,
	}
	require.NoError(t, conn.Create(&txn).Error)
	return order, txn
}

func loadState(t *testing.T, conn *gorm.DB, orderID uuid.UUID, transactionID string) (models.Order, models.PaymentTransaction) {
	t.Helper()
	var order models.Order
	require.NoError(t, conn.Where("id = ?", orderID).Take(&order).Error)
	var txn models.PaymentTransaction
	require.NoError(t, conn.Where("transaction_id = ?", transactionID).Take(&txn).Error)
	return order, txn
}

func countEvents(t *testing.T, conn *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func TestMapStatus(t *testing.T) {
	cases := []struct {
		status  string
		fraud   string
		payment enums.PaymentStatus
		order   enums.OrderStatus
		known   bool
	}{
		{"capture", "accept", enums.PaymentStatusSuccess, enums.OrderStatusPaid, true},
		{"capture", "challenge", enums.PaymentStatusFailed, "", true},
		{"settlement", "", enums.PaymentStatusSuccess, enums.OrderStatusPaid, true},
		{"deny", "", enums.PaymentStatusFailed, "", true},
		{"cancel", "", enums.PaymentStatusFailed, "", true},
		{"expire", "", enums.PaymentStatusFailed, "", true},
		{"pending", "", enums.PaymentStatusPending, "", true},
		{"refund", "", enums.PaymentStatusRefunded, enums.OrderStatusRefunded, true},
		{"partial_refund", "", enums.PaymentStatusRefunded, enums.OrderStatusRefunded, true},
		{"authorize", "", "", "", false},
	}
	for _, tc := range cases {
		payment, order, known := MapStatus(tc.status, tc.fraud)
		require.Equal(t, tc.payment, payment, tc.status)
		require.Equal(t, tc.order, order, tc.status)
		require.Equal(t, tc.known, known, tc.status)
	}
}

func TestSettlementPaysOrderOnce(t *testing.T) {
	svc, client := newTestService(t)
	conn := client.DB()
	order, txn := seedPayment(t, conn, enums.OrderStatusPending)
	fixed := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	note := Notification{
		TransactionID:     txn.TransactionID,
		TransactionStatus: "settlement",
		TransactionTime:   "2026-03-01 15:00:00",
		Raw:               []byte(`{"transaction_status":"settlement"}`),
	}
	result, err := svc.ApplyNotification(context.Background(), note)
	require.NoError(t, err)
	require.True(t, result.OrderChanged)
	require.Equal(t, enums.OrderStatusPaid, result.OrderStatus)

	gotOrder, gotTxn := loadState(t, conn, order.ID, txn.TransactionID)
	require.Equal(t, enums.OrderStatusPaid, gotOrder.Status)
	require.NotNil(t, gotOrder.PaidAt)
	require.True(t, fixed.Equal(*gotOrder.PaidAt))
	require.Equal(t, enums.PaymentStatusSuccess, gotTxn.Status)
	require.NotNil(t, gotTxn.TransactionTime)
	require.True(t, fixed.Equal(*gotTxn.TransactionTime))

	svc.now = func() time.Time { return fixed.Add(time.Hour) }
	note.FraudStatus = "accept"
	again, err := svc.ApplyNotification(context.Background(), note)
	require.NoError(t, err)
	require.False(t, again.OrderChanged)

	gotOrder, gotTxn = loadState(t, conn, order.ID, txn.TransactionID)
	require.True(t, fixed.Equal(*gotOrder.PaidAt))
	require.NotNil(t, gotTxn.FraudStatus)
	require.Equal(t, "accept", *gotTxn.FraudStatus)
	require.Equal(t, int64(1), countEvents(t, conn, enums.EventOrderPaid))
	require.Equal(t, int64(2), countEvents(t, conn, enums.EventPaymentUpdated))
}

func TestCaptureWithChallengeFailsPayment(t *testing.T) {
	svc, client := newTestService(t)
	conn := client.DB()
	order, txn := seedPayment(t, conn, enums.OrderStatusPending)

	_, err := svc.ApplyNotification(context.Background(), Notification{
		TransactionID:     txn.TransactionID,
		TransactionStatus: "capture",
		FraudStatus:       "challenge",
	})
	require.NoError(t, err)

	gotOrder, gotTxn := loadState(t, conn, order.ID, txn.TransactionID)
	require.Equal(t, enums.OrderStatusPending, gotOrder.Status)
	require.Nil(t, gotOrder.PaidAt)
	require.Equal(t, enums.PaymentStatusFailed, gotTxn.Status)
}

func TestExpireFailsPayment(t *testing.T) {
	svc, client := newTestService(t)
	conn := client.DB()
	order, txn := seedPayment(t, conn, enums.OrderStatusPending)

	_, err := svc.ApplyNotification(context.Background(), Notification{TransactionID: txn.TransactionID, TransactionStatus: "expire"})
	require.NoError(t, err)

	gotOrder, gotTxn := loadState(t, conn, order.ID, txn.TransactionID)
	require.Equal(t, enums.OrderStatusPending, gotOrder.Status)
	require.Equal(t, enums.PaymentStatusFailed, gotTxn.Status)
	require.True(t, gotTxn.Status.IsFailure())
}

func TestRefundOnlyMovesCancelledOrders(t *testing.T) {
	svc, client := newTestService(t)
	conn := client.DB()

	cancelled, cancelledTxn := seedPayment(t, conn, enums.OrderStatusCancelled)
	result, err := svc.ApplyNotification(context.Background(), Notification{TransactionID: cancelledTxn.TransactionID, TransactionStatus: "refund"})
	require.NoError(t, err)
	require.True(t, result.OrderChanged)
	gotOrder, gotTxn := loadState(t, conn, cancelled.ID, cancelledTxn.TransactionID)
	require.Equal(t, enums.OrderStatusRefunded, gotOrder.Status)
	require.Equal(t, enums.PaymentStatusRefunded, gotTxn.Status)
	require.Equal(t, int64(1), countEvents(t, conn, enums.EventOrderRefunded))

	paid, paidTxn := seedPayment(t, conn, enums.OrderStatusPaid)
	result, err = svc.ApplyNotification(context.Background(), Notification{TransactionID: paidTxn.TransactionID, TransactionStatus: "partial_refund"})
	require.NoError(t, err)
	require.False(t, result.OrderChanged)
	gotOrder, gotTxn = loadState(t, conn, paid.ID, paidTxn.TransactionID)
	require.Equal(t, enums.OrderStatusPaid, gotOrder.Status)
	require.Equal(t, enums.PaymentStatusRefunded, gotTxn.Status)
}

func TestUnknownStatusOnlyRecordsPayload(t *testing.T) {
	svc, client := newTestService(t)
	conn := client.DB()
	order, txn := seedPayment(t, conn, enums.OrderStatusPending)

	_, err := svc.ApplyNotification(context.Background(), Notification{
		TransactionID:     txn.TransactionID,
		TransactionStatus: "authorize",
		Raw:               []byte(`{"transaction_status":"authorize"}`),
	})
	require.NoError(t, err)

	gotOrder, gotTxn := loadState(t, conn, order.ID, txn.TransactionID)
	require.Equal(t, enums.OrderStatusPending, gotOrder.Status)
	require.Equal(t, enums.PaymentStatusPending, gotTxn.Status)
	require.NotNil(t, gotTxn.TransactionStatus)
	require.Equal(t, "authorize", *gotTxn.TransactionStatus)
	require.JSONEq(t, `{"transaction_status":"authorize"}`, string(gotTxn.RawResponse))
}

func TestSettlementAfterCancelLeavesOrderCancelled(t *testing.T) {
	svc, client := newTestService(t)
	conn := client.DB()
	order, txn := seedPayment(t, conn, enums.OrderStatusCancelled)

	result, err := svc.ApplyNotification(context.Background(), Notification{TransactionID: txn.TransactionID, TransactionStatus: "settlement"})
	require.NoError(t, err)
	require.False(t, result.OrderChanged)

	gotOrder, gotTxn := loadState(t, conn, order.ID, txn.TransactionID)
	require.Equal(t, enums.OrderStatusCancelled, gotOrder.Status)
	require.Nil(t, gotOrder.PaidAt)
	require.Equal(t, enums.PaymentStatusSuccess, gotTxn.Status)
}

func TestLatePendingDoesNotDowngradeSettledPayment(t *testing.T) {
	svc, client := newTestService(t)
	conn := client.DB()
	order, txn := seedPayment(t, conn, enums.OrderStatusPending)

	_, err := svc.ApplyNotification(context.Background(), Notification{TransactionID: txn.TransactionID, TransactionStatus: "settlement"})
	require.NoError(t, err)

	result, err := svc.ApplyNotification(context.Background(), Notification{
		TransactionID:     txn.TransactionID,
		TransactionStatus: "pending",
		Raw:               []byte(`{"transaction_status":"pending"}`),
	})
	require.NoError(t, err)
	require.False(t, result.OrderChanged)
	require.Equal(t, enums.PaymentStatusSuccess, result.PaymentStatus)

	gotOrder, gotTxn := loadState(t, conn, order.ID, txn.TransactionID)
	require.Equal(t, enums.OrderStatusPaid, gotOrder.Status)
	require.Equal(t, enums.PaymentStatusSuccess, gotTxn.Status)
	require.NotNil(t, gotTxn.TransactionStatus)
	require.Equal(t, "pending", *gotTxn.TransactionStatus)
	require.JSONEq(t, `{"transaction_status":"pending"}`, string(gotTxn.RawResponse))
}

func TestUnknownTransactionIsNotFound(t *testing.T) {
	svc, client := newTestService(t)

	_, err := svc.ApplyNotification(context.Background(), Notification{TransactionID: "missing-1234", TransactionStatus: "settlement"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	require.Zero(t, countEvents(t, client.DB(), enums.EventPaymentUpdated))

	_, err = svc.ApplyNotification(context.Background(), Notification{TransactionStatus: "settlement"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
