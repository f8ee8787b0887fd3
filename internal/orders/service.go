package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tokoflow-backend/internal/inventory"
	"github.com/angelmondragon/tokoflow-backend/internal/pricing"
	"github.com/angelmondragon/tokoflow-backend/pkg/db/models"
	"github.com/angelmondragon/tokoflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokoflow-backend/pkg/errors"
	"github.com/angelmondragon/tokoflow-backend/pkg/logger"
	"github.com/angelmondragon/tokoflow-backend/pkg/metrics"
	"github.com/angelmondragon/tokoflow-backend/pkg/outbox"
	"github.com/angelmondragon/tokoflow-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/tokoflow-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the order aggregate operations.
type Service interface {
	Create(ctx context.Context, principal Principal, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, principal Principal, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, principal Principal, params ListParams) (*OrderList, error)
	Cancel(ctx context.Context, principal Principal, orderID uuid.UUID) (*models.Order, error)
	// ExpirePending cancels the order as the system actor when it is still
	// pending. It reports whether the order was cancelled.
	ExpirePending(ctx context.Context, orderID uuid.UUID) (bool, error)
	UpdateShippingCost(ctx context.Context, principal Principal, orderID uuid.UUID, input ShippingCostInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, principal Principal, orderID uuid.UUID, input StatusUpdateInput) (*models.Order, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	ledger  inventory.Ledger
	metrics *metrics.OrderMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, ledger inventory.Ledger, orderMetrics *metrics.OrderMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outbox,
		ledger:  ledger,
		metrics: orderMetrics,
		logg:    logg,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, principal Principal, input CreateOrderInput) (*models.Order, error) {
	if principal.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	lines, err := validateCreate(input)
	if err != nil {
		return nil, err
	}
	shipping := input.Shipping.Normalize()

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.ledger.ReserveAll(ctx, tx, lines); err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		ids := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.VariantID)
		}
		variants, err := repo.FindVariants(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variants")
		}

		order := &models.Order{
			ID:                 uuid.New(),
			UserID:             principal.UserID,
			Status:             enums.OrderStatusPending,
			ShippingName:       shipping.Name,
			ShippingPhone:      shipping.Phone,
			ShippingAddress:    shipping.Address,
			ShippingProvince:   shipping.Province,
			ShippingCity:       shipping.City,
			ShippingPostalCode: shipping.PostalCode,
			PaymentMethod:      normalizeOptional(input.PaymentMethod),
			ShippingCost:       decimal.Zero,
			Discount:           decimal.Zero,
		}
		for _, line := range lines {
			variant, ok := variants[line.VariantID]
			if !ok {
				return pkgerrors.NotFound("product variant")
			}
			order.Items = append(order.Items, snapshotItem(order.ID, variant, line.Quantity))
		}
		pricing.Recompute(*order).Apply(order)

		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         principal.Actor(),
			Data: payloads.OrderCreatedEvent{
				OrderRef:   orderRef(order),
				TotalPrice: order.TotalPrice,
				ItemCount:  len(order.Items),
				CreatedAt:  order.CreatedAt,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
		}
		created = order
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
			s.metrics.IncInsufficientStock()
		}
		return nil, err
	}

	s.metrics.IncCreated()
	logCtx := s.logg.WithOrderID(ctx, created.ID.String())
	s.logg.Info(logCtx, "order.created")
	return created, nil
}

func (s *service) Get(ctx context.Context, principal Principal, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if !principal.CanAccess(order) {
		return nil, pkgerrors.NotFound("order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, principal Principal, params ListParams) (*OrderList, error) {
	if !principal.Staff && principal.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.Validation("invalid status filter")
	}

	filters := ListFilters{Status: params.Status, Cursor: cursor}
	if !principal.Staff {
		userID := principal.UserID
		filters.UserID = &userID
	}
	rows, err := s.repo.List(ctx, params.Params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, ToDTO(&rows[i]))
	}
	page := pagination.BuildPage(dtos, params.Limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page, nil
}

func (s *service) Cancel(ctx context.Context, principal Principal, orderID uuid.UUID) (*models.Order, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return mapLoadError(err)
		}
		if !principal.CanAccess(order) {
			return pkgerrors.NotFound("order")
		}
		return s.cancelLocked(ctx, tx, repo, order, principal, "")
	})
	if err != nil {
		return nil, err
	}
	s.afterCancel(ctx, orderID, principal)
	return s.reload(ctx, orderID)
}

func (s *service) ExpirePending(ctx context.Context, orderID uuid.UUID) (bool, error) {
	principal := SystemPrincipal()
	expired := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return mapLoadError(err)
		}
		// Paid or cancelled since it was selected.
		if order.Status != enums.OrderStatusPending {
			return nil
		}
		if err := s.cancelLocked(ctx, tx, repo, order, principal, "expired"); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if expired {
		s.afterCancel(ctx, orderID, principal)
	}
	return expired, nil
}

// cancelLocked releases live variant stock and moves the locked order to cancelled.
func (s *service) cancelLocked(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, principal Principal, reason string) error {
	previous := order.Status
	if !previous.IsCancellable() {
		return pkgerrors.InvalidTransition(previous.String(), enums.OrderStatusCancelled.String())
	}

	lines := make([]inventory.Line, 0, len(order.Items))
	for _, item := range order.Items {
		if item.VariantID == nil {
			continue
		}
		lines = append(lines, inventory.Line{VariantID: *item.VariantID, Quantity: item.Quantity})
	}
	if err := s.ledger.ReleaseAll(ctx, tx, lines); err != nil {
		return err
	}

	updates, err := Transition(order, enums.OrderStatusCancelled, s.now())
	if err != nil {
		return err
	}
	if err := repo.Update(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         principal.Actor(),
		Data: payloads.OrderCancelledEvent{
			OrderRef:       orderRef(order),
			PreviousStatus: previous,
			CancelledAt:    *order.CancelledAt,
			Reason:         reason,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order cancelled")
	}
	return nil
}

func (s *service) afterCancel(ctx context.Context, orderID uuid.UUID, principal Principal) {
	s.metrics.IncCancelled(principal.Role())
	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	logCtx = s.logg.WithActorRole(logCtx, principal.Role())
	s.logg.Info(logCtx, "order.cancelled")
}

func (s *service) UpdateShippingCost(ctx context.Context, principal Principal, orderID uuid.UUID, input ShippingCostInput) (*models.Order, error) {
	courier := strings.TrimSpace(input.Courier)
	if courier == "" {
		return nil, pkgerrors.Validation("courier is required")
	}
	if input.Cost.IsNegative() {
		return nil, pkgerrors.Validation("shipping cost must not be negative")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return mapLoadError(err)
		}
		if !principal.CanAccess(order) {
			return pkgerrors.NotFound("order")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.InvalidState(order.Status.String(), "shipping cost can only be set on a pending order")
		}

		order.ShippingCost = input.Cost
		order.ShippingCourier = &courier
		pricing.Recompute(*order).Apply(order)

		updates := map[string]any{
			"shipping_cost":    order.ShippingCost,
			"shipping_courier": courier,
			"total_price":      order.TotalPrice,
			"final_price":      order.FinalPrice,
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shipping cost")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderShippingUpdated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         principal.Actor(),
			Data: payloads.OrderShippingUpdatedEvent{
				OrderRef:     orderRef(order),
				Courier:      courier,
				ShippingCost: order.ShippingCost,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit shipping updated")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, orderID)
}

func (s *service) UpdateStatus(ctx context.Context, principal Principal, orderID uuid.UUID, input StatusUpdateInput) (*models.Order, error) {
	if !principal.Staff {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	switch input.Status {
	case enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered:
	default:
		return nil, pkgerrors.Validation("status must be one of processing, shipped, delivered")
	}
	tracking := normalizeOptional(input.TrackingNumber)
	if input.Status == enums.OrderStatusShipped && tracking == nil {
		return nil, pkgerrors.Validation("tracking number is required when shipping an order")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return mapLoadError(err)
		}
		previous := order.Status
		updates, err := Transition(order, input.Status, s.now())
		if err != nil {
			return err
		}
		if tracking != nil {
			order.ShippingTrackingNumber = tracking
			updates["shipping_tracking_number"] = *tracking
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         principal.Actor(),
			Data: payloads.OrderStatusChangedEvent{
				OrderRef:       orderRef(order),
				From:           previous,
				TrackingNumber: order.ShippingTrackingNumber,
				ChangedAt:      s.now(),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status changed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(logCtx, "order.status_changed")
	return s.reload(ctx, orderID)
}

func (s *service) reload(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return order, nil
}

func validateCreate(input CreateOrderInput) ([]inventory.Line, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.Validation("order requires at least one item")
	}
	lines := make([]inventory.Line, 0, len(input.Lines))
	for _, line := range input.Lines {
		lines = append(lines, inventory.Line{VariantID: line.VariantID, Quantity: line.Quantity})
	}
	merged, err := inventory.MergeLines(lines)
	if err != nil {
		return nil, err
	}

	shipping := input.Shipping.Normalize()
	missing := map[string]string{}
	for field, value := range map[string]string{
		"name":        shipping.Name,
		"phone":       shipping.Phone,
		"address":     shipping.Address,
		"province":    shipping.Province,
		"city":        shipping.City,
		"postal_code": shipping.PostalCode,
	} {
		if value == "" {
			missing[field] = "is required"
		}
	}
	if len(missing) > 0 {
		return nil, pkgerrors.Validation("shipping address incomplete").WithDetails(missing)
	}
	return merged, nil
}

func snapshotItem(orderID uuid.UUID, variant models.ProductVariant, qty int) models.OrderItem {
	variantID := variant.ID
	productName := ""
	if variant.Product != nil {
		productName = variant.Product.Name
	}
	return models.OrderItem{
		ID:            uuid.New(),
		OrderID:       orderID,
		VariantID:     &variantID,
		ProductName:   productName,
		VariantName:   variant.Name,
		Price:         variant.Price,
		DiscountPrice: variant.DiscountPrice,
		Quantity:      qty,
		Subtotal:      pricing.LineSubtotal(variant.Price, variant.DiscountPrice, qty),
	}
}

func orderRef(order *models.Order) payloads.OrderRef {
	return payloads.OrderRef{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		FinalPrice: order.FinalPrice,
	}
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.NotFound("order")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
