package payments

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tokoflow-backend/internal/orders"
	"github.com/angelmondragon/tokoflow-backend/pkg/db/models"
	"github.com/angelmondragon/tokoflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokoflow-backend/pkg/errors"
	"github.com/angelmondragon/tokoflow-backend/pkg/logger"
	"github.com/angelmondragon/tokoflow-backend/pkg/metrics"
	"github.com/angelmondragon/tokoflow-backend/pkg/midtrans"
	"github.com/angelmondragon/tokoflow-backend/pkg/outbox"
	"github.com/angelmondragon/tokoflow-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/tokoflow-backend/pkg/types"
)

const (
	gatewayName = "midtrans"
	paymentType = "Midtrans"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Gateway opens hosted checkout sessions.
type Gateway interface {
	CreateTransaction(ctx context.Context, req midtrans.SnapRequest) (*midtrans.SnapResponse, error)
}

// ServiceParams groups dependencies for the payment service.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Gateway Gateway
	Metrics *metrics.PaymentMetrics
	Logger  *logger.Logger
}

// Service starts gateway payments for pending orders.
type Service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	gateway Gateway
	metrics *metrics.PaymentMetrics
	logg    *logger.Logger
	now     func() time.Time
	suffix  func() (string, error)
}

// InitiateResult is returned to the client to open the Snap page.
type InitiateResult struct {
	Token         string `json:"token"`
	RedirectURL   string `json:"redirect_url"`
	TransactionID string `json:"transaction_id"`
}

// NewService builds a payment service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox publisher is required")
	}
	if params.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		gateway: params.Gateway,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     func() time.Time { return time.Now().UTC() },
		suffix:  randomSuffix,
	}, nil
}

// Initiate opens a Snap transaction for a pending order and records it.
func (s *Service) Initiate(ctx context.Context, principal orders.Principal, orderID uuid.UUID) (*InitiateResult, error) {
	order, err := s.repo.FindOrder(ctx, orderID, false)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if !principal.CanAccess(order) {
		return nil, pkgerrors.NotFound("order")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.InvalidState(order.Status.String(), "payment can only be initiated for a pending order")
	}

	user, err := s.repo.FindUser(ctx, order.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}

	suffix, err := s.suffix()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate transaction id")
	}
	transactionID := fmt.Sprintf("%s-%s", order.ID, suffix)
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	ctx = s.logg.WithTransactionID(ctx, transactionID)

	request := BuildSnapRequest(order, user, transactionID)
	resp, err := s.callGateway(ctx, request)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindOrder(ctx, order.ID, true)
		if err != nil {
			return mapLoadError(err)
		}
		if current.Status != enums.OrderStatusPending {
			return pkgerrors.InvalidState(current.Status.String(), "order left pending while payment was initiated")
		}

		token := resp.Token
		redirect := resp.RedirectURL
		txn := &models.PaymentTransaction{
			ID:            uuid.New(),
			OrderID:       order.ID,
			TransactionID: transactionID,
			PaymentType:   paymentType,
			Amount:        order.FinalPrice,
			Status:        enums.PaymentStatusPending,
			RawResponse:   resp.Raw,
			RedirectToken: &token,
			RedirectURL:   &redirect,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment transaction")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentInitiated,
			AggregateType: enums.AggregatePaymentTransaction,
			AggregateID:   txn.ID,
			Version:       1,
			Actor:         principal.Actor(),
			Data: payloads.PaymentInitiatedEvent{
				OrderID:       order.ID,
				TransactionID: transactionID,
				Amount:        order.FinalPrice,
				RedirectURL:   redirect,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "payment.initiated")
	return &InitiateResult{
		Token:         resp.Token,
		RedirectURL:   resp.RedirectURL,
		TransactionID: transactionID,
	}, nil
}

func (s *Service) callGateway(ctx context.Context, request midtrans.SnapRequest) (*midtrans.SnapResponse, error) {
	started := time.Now()
	resp, err := s.gateway.CreateTransaction(ctx, request)
	elapsed := time.Since(started)
	switch {
	case err == nil:
		s.metrics.ObserveGatewayCall(gatewayName, metrics.GatewayOutcomeSuccess, elapsed)
	case pkgerrors.IsCode(err, pkgerrors.CodeConfiguration):
		s.metrics.ObserveGatewayCall(gatewayName, metrics.GatewayOutcomeMisconfigured, elapsed)
		s.logg.Error(ctx, "payment.gateway_misconfigured", err)
	case midtrans.IsUnavailable(err):
		s.metrics.ObserveGatewayCall(gatewayName, metrics.GatewayOutcomeUnavailable, elapsed)
		s.logg.Warn(ctx, "payment.gateway_unavailable")
	default:
		s.metrics.ObserveGatewayCall(gatewayName, metrics.GatewayOutcomeRejected, elapsed)
		s.logg.Warn(ctx, "payment.gateway_rejected")
	}
	return resp, err
}

// BuildSnapRequest maps an order onto the Snap transaction payload.
func BuildSnapRequest(order *models.Order, user *models.User, transactionID string) midtrans.SnapRequest {
	first, last := types.SplitName(order.ShippingName)
	email := ""
	if user != nil {
		email = user.Email
	}
	address := &midtrans.Address{
		FirstName:   first,
		LastName:    last,
		Email:       email,
		Phone:       order.ShippingPhone,
		Address:     order.ShippingAddress,
		City:        order.ShippingCity,
		PostalCode:  order.ShippingPostalCode,
		CountryCode: midtrans.CountryCodeIndonesia,
	}

	items := make([]midtrans.ItemDetail, 0, len(order.Items)+2)
	for _, item := range order.Items {
		items = append(items, midtrans.NewItem(
			"ITEM-"+item.ID.String(),
			itemName(item),
			item.UnitPrice().IntPart(),
			item.Quantity,
		))
	}
	if order.ShippingCost.IsPositive() {
		courier := ""
		if order.ShippingCourier != nil {
			courier = strings.ToUpper(*order.ShippingCourier)
		}
		items = append(items, midtrans.NewItem(
			"SHIPPING-"+order.ID.String(),
			fmt.Sprintf("Shipping Cost (%s)", courier),
			order.ShippingCost.IntPart(),
			1,
		))
	}
	if order.Discount.IsPositive() {
		items = append(items, midtrans.NewItem(
			"DISCOUNT-"+order.ID.String(),
			"Discount",
			order.Discount.Neg().IntPart(),
			1,
		))
	}

	return midtrans.SnapRequest{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:     transactionID,
			GrossAmount: order.FinalPrice.IntPart(),
		},
		CustomerDetails: &midtrans.CustomerDetails{
			FirstName:       first,
			LastName:        last,
			Email:           email,
			Phone:           order.ShippingPhone,
			BillingAddress:  address,
			ShippingAddress: address,
		},
		ItemDetails: items,
	}
}

func itemName(item models.OrderItem) string {
	if item.VariantName == "" {
		return item.ProductName
	}
	return item.ProductName + " - " + item.VariantName
}

func randomSuffix() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.NotFound("order")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
