package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tokoflow-backend/api/middleware"
	"github.com/angelmondragon/tokoflow-backend/api/responses"
	"github.com/angelmondragon/tokoflow-backend/api/validators"
	internalorders "github.com/angelmondragon/tokoflow-backend/internal/orders"
	"github.com/angelmondragon/tokoflow-backend/internal/payments"
	"github.com/angelmondragon/tokoflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokoflow-backend/pkg/errors"
	"github.com/angelmondragon/tokoflow-backend/pkg/logger"
	"github.com/angelmondragon/tokoflow-backend/pkg/pagination"
	"github.com/angelmondragon/tokoflow-backend/pkg/types"
)

// PaymentInitiator opens gateway payments for pending orders.
type PaymentInitiator interface {
	Initiate(ctx context.Context, principal internalorders.Principal, orderID uuid.UUID) (*payments.InitiateResult, error)
}

type createOrderItem struct {
	VariantID uuid.UUID `json:"variant_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

type createOrderRequest struct {
	Items         []createOrderItem     `json:"items" validate:"required,min=1,dive"`
	Shipping      types.ShippingAddress `json:"shipping" validate:"required"`
	PaymentMethod *string               `json:"payment_method,omitempty" validate:"omitempty,max=50"`
}

type shippingCostRequest struct {
	Cost    decimal.Decimal `json:"cost"`
	Courier string          `json:"courier" validate:"required,max=50"`
}

type statusUpdateRequest struct {
	Status         string  `json:"status" validate:"required,oneof=processing shipped delivered"`
	TrackingNumber *string `json:"tracking_number,omitempty" validate:"omitempty,max=100"`
}

// Create places an order for the authenticated user.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		principal, err := middleware.PrincipalFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.CreateOrderInput{
			Shipping:      req.Shipping,
			PaymentMethod: req.PaymentMethod,
			Lines:         make([]internalorders.LineInput, 0, len(req.Items)),
		}
		for _, item := range req.Items {
			input.Lines = append(input.Lines, internalorders.LineInput{VariantID: item.VariantID, Quantity: item.Quantity})
		}

		order, err := svc.Create(r.Context(), principal, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, internalorders.ToDTO(order))
	}
}

// List returns the caller's orders, or every order for staff.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		principal, err := middleware.PrincipalFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := internalorders.ListParams{
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}

		list, err := svc.List(r.Context(), principal, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one order with its items and payment transactions.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, orderID, ok := orderRequest(w, r, svc != nil, logg)
		if !ok {
			return
		}
		order, err := svc.Get(r.Context(), principal, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToDTO(order))
	}
}

// Cancel cancels a pending or paid order and releases its stock.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, orderID, ok := orderRequest(w, r, svc != nil, logg)
		if !ok {
			return
		}
		order, err := svc.Cancel(r.Context(), principal, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToDTO(order))
	}
}

// UpdateShippingCost sets the courier and shipping cost on a pending order.
func UpdateShippingCost(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, orderID, ok := orderRequest(w, r, svc != nil, logg)
		if !ok {
			return
		}
		var req shippingCostRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.UpdateShippingCost(r.Context(), principal, orderID, internalorders.ShippingCostInput{
			Cost:    req.Cost,
			Courier: req.Courier,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToDTO(order))
	}
}

// UpdateStatus advances fulfilment. Staff only.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, orderID, ok := orderRequest(w, r, svc != nil, logg)
		if !ok {
			return
		}
		var req statusUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		order, err := svc.UpdateStatus(r.Context(), principal, orderID, internalorders.StatusUpdateInput{
			Status:         status,
			TrackingNumber: req.TrackingNumber,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToDTO(order))
	}
}

// InitiatePayment opens a Snap payment page for a pending order.
func InitiatePayment(svc PaymentInitiator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, orderID, ok := orderRequest(w, r, svc != nil, logg)
		if !ok {
			return
		}
		result, err := svc.Initiate(r.Context(), principal, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func orderRequest(w http.ResponseWriter, r *http.Request, available bool, logg *logger.Logger) (internalorders.Principal, uuid.UUID, bool) {
	if !available {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
		return internalorders.Principal{}, uuid.Nil, false
	}
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return internalorders.Principal{}, uuid.Nil, false
	}
	orderID, err := validators.PathUUID(r, "orderId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return internalorders.Principal{}, uuid.Nil, false
	}
	return principal, orderID, true
}
