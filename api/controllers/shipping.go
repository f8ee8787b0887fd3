package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/tokoflow-backend/api/responses"
	"github.com/angelmondragon/tokoflow-backend/api/validators"
	"github.com/angelmondragon/tokoflow-backend/internal/shipping"
	pkgerrors "github.com/angelmondragon/tokoflow-backend/pkg/errors"
	"github.com/angelmondragon/tokoflow-backend/pkg/logger"
	"github.com/angelmondragon/tokoflow-backend/pkg/rajaongkir"
)

// ShippingQuoter returns carrier rates for a parcel.
type ShippingQuoter interface {
	Quote(ctx context.Context, req shipping.QuoteRequest) ([]rajaongkir.Rate, error)
}

type shippingQuoteRequest struct {
	Origin      string `json:"origin" validate:"required,max=32"`
	Destination string `json:"destination" validate:"required,max=32"`
	WeightGrams int    `json:"weight" validate:"gt=0"`
	Courier     string `json:"courier" validate:"required,max=100"`
}

// ShippingQuotes returns the carrier's rates for the requested route.
func ShippingQuotes(svc ShippingQuoter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}

		var req shippingQuoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rates, err := svc.Quote(r.Context(), shipping.QuoteRequest{
			Origin:      req.Origin,
			Destination: req.Destination,
			WeightGrams: req.WeightGrams,
			Courier:     req.Courier,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"rates": rates})
	}
}
