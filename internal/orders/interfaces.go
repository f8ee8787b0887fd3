package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tokoflow-backend/pkg/db/models"
	"github.com/angelmondragon/tokoflow-backend/pkg/pagination"
)

// Repository defines persistence operations for the orders aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindVariants(ctx context.Context, variantIDs []uuid.UUID) (map[uuid.UUID]models.ProductVariant, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}
