package shipping

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tokoflow-backend/pkg/db/models"
)

// Repository stores carrier quotes keyed by route, courier service and weight.
type Repository interface {
	UpsertRates(ctx context.Context, rates []models.ShippingRate) error
	FindRates(ctx context.Context, origin, destination string, weightGrams int, couriers []string) ([]models.ShippingRate, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) UpsertRates(ctx context.Context, rates []models.ShippingRate) error {
	if len(rates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "origin"},
				{Name: "destination"},
				{Name: "courier"},
				{Name: "service"},
				{Name: "weight_grams"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"description", "cost", "etd", "updated_at"}),
		}).
		Create(&rates).Error
}

func (r *repository) FindRates(ctx context.Context, origin, destination string, weightGrams int, couriers []string) ([]models.ShippingRate, error) {
	query := r.db.WithContext(ctx).
		Where("origin = ? AND destination = ? AND weight_grams = ?", origin, destination, weightGrams)
	if len(couriers) > 0 {
		query = query.Where("courier IN ?", couriers)
	}
	var rates []models.ShippingRate
	if err := query.Order("cost ASC").Find(&rates).Error; err != nil {
		return nil, err
	}
	return rates, nil
}
