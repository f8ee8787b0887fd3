// Package shipping quotes carrier rates and caches them in shipping_rates.
package shipping

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/tokoflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tokoflow-backend/pkg/errors"
	"github.com/angelmondragon/tokoflow-backend/pkg/logger"
	"github.com/angelmondragon/tokoflow-backend/pkg/rajaongkir"
)

// Carrier fetches live rates.
type Carrier interface {
	DomesticCost(ctx context.Context, req rajaongkir.CostRequest) ([]rajaongkir.Rate, error)
}

// QuoteRequest asks for rates for one parcel.
type QuoteRequest struct {
	Origin      string
	Destination string
	WeightGrams int
	Courier     string
}

// Service quotes shipping through the carrier and records every answer.
type Service struct {
	carrier Carrier
	repo    Repository
	logg    *logger.Logger
}

func NewService(carrier Carrier, repo Repository, logg *logger.Logger) (*Service, error) {
	if carrier == nil {
		return nil, errors.New("carrier client required")
	}
	if repo == nil {
		return nil, errors.New("shipping repository required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Service{carrier: carrier, repo: repo, logg: logg}, nil
}

// Quote returns live rates and upserts them into the cache. When the carrier
// is unreachable, previously cached rates for the same parcel are served.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) ([]rajaongkir.Rate, error) {
	req.Origin = strings.TrimSpace(req.Origin)
	req.Destination = strings.TrimSpace(req.Destination)
	req.Courier = strings.ToLower(strings.TrimSpace(req.Courier))

	rates, err := s.carrier.DomesticCost(ctx, rajaongkir.CostRequest{
		Origin:      req.Origin,
		Destination: req.Destination,
		WeightGrams: req.WeightGrams,
		Courier:     req.Courier,
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeGatewayUnavailable) {
			if cached := s.cached(ctx, req); len(cached) > 0 {
				s.logg.Warn(ctx, "shipping.quote_served_from_cache")
				return cached, nil
			}
		}
		return nil, err
	}

	rows := make([]models.ShippingRate, 0, len(rates))
	for _, rate := range rates {
		rows = append(rows, models.ShippingRate{
			ID:          uuid.New(),
			Origin:      req.Origin,
			Destination: req.Destination,
			Courier:     rate.Code,
			Service:     rate.Service,
			Description: rate.Description,
			Cost:        rate.Cost,
			ETD:         rate.ETD,
			WeightGrams: req.WeightGrams,
		})
	}
	if err := s.repo.UpsertRates(ctx, rows); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store shipping rates")
	}
	return rates, nil
}

func (s *Service) cached(ctx context.Context, req QuoteRequest) []rajaongkir.Rate {
	rows, err := s.repo.FindRates(ctx, req.Origin, req.Destination, req.WeightGrams, splitCouriers(req.Courier))
	if err != nil {
		s.logg.Error(ctx, "shipping.cache_lookup_failed", err)
		return nil
	}
	rates := make([]rajaongkir.Rate, 0, len(rows))
	for _, row := range rows {
		rates = append(rates, rajaongkir.Rate{
			Name:        strings.ToUpper(row.Courier),
			Code:        row.Courier,
			Service:     row.Service,
			Description: row.Description,
			Cost:        row.Cost,
			ETD:         row.ETD,
		})
	}
	return rates
}

func splitCouriers(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ":") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
