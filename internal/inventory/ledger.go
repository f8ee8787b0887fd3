// Package inventory owns every write to product_variants.stock.
package inventory

import (
	"bytes"
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/tokoflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tokoflow-backend/pkg/errors"
)

// Line is one requested variant quantity.
type Line struct {
	VariantID uuid.UUID
	Quantity  int
}

// Reservation is stock already taken from a variant.
type Reservation struct {
	VariantID uuid.UUID
	Quantity  int
}

// Ledger reserves and releases variant stock inside the caller's transaction.
type Ledger interface {
	Reserve(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) (Reservation, error)
	Release(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error
	ReserveAll(ctx context.Context, tx *gorm.DB, lines []Line) ([]Reservation, error)
	ReleaseAll(ctx context.Context, tx *gorm.DB, lines []Line) error
}

type ledger struct{}

func NewLedger() Ledger {
	return ledger{}
}

// Reserve decrements stock with a single conditional UPDATE. The row lock
// taken by the UPDATE makes the check and the decrement one step.
func (ledger) Reserve(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) (Reservation, error) {
	if qty <= 0 {
		return Reservation{}, pkgerrors.Validation("quantity must be greater than zero")
	}
	if tx == nil {
		return Reservation{}, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory reserve")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE product_variants
		SET stock = stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock >= ?
	`, qty, variantID, qty)
	if res.Error != nil {
		return Reservation{}, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve inventory")
	}
	if res.RowsAffected == 1 {
		return Reservation{VariantID: variantID, Quantity: qty}, nil
	}

	var variant models.ProductVariant
	err := tx.WithContext(ctx).Select("id", "stock").Where("id = ?", variantID).Take(&variant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Reservation{}, pkgerrors.NotFound("product variant")
	}
	if err != nil {
		return Reservation{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant stock")
	}
	return Reservation{}, pkgerrors.InsufficientStock(variantID.String(), qty, variant.Stock)
}

// Release adds stock back. A variant deleted since the reservation is skipped.
func (ledger) Release(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.Validation("quantity must be greater than zero")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory release")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE product_variants
		SET stock = stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, variantID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release inventory")
	}
	return nil
}

// ReserveAll merges duplicate variants and reserves them in ascending id
// order. On the first failure everything already taken is released.
func (l ledger) ReserveAll(ctx context.Context, tx *gorm.DB, lines []Line) ([]Reservation, error) {
	merged, err := MergeLines(lines)
	if err != nil {
		return nil, err
	}

	taken := make([]Reservation, 0, len(merged))
	for _, line := range merged {
		reservation, err := l.Reserve(ctx, tx, line.VariantID, line.Quantity)
		if err != nil {
			if compErr := l.releaseAll(ctx, tx, taken); compErr != nil {
				return nil, multierr.Append(err, compErr)
			}
			return nil, err
		}
		taken = append(taken, reservation)
	}
	return taken, nil
}

// ReleaseAll returns stock in the same ascending variant order ReserveAll
// locks in, so a cancel racing a create cannot deadlock. An empty slice is a no-op.
func (l ledger) ReleaseAll(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if len(lines) == 0 {
		return nil
	}
	merged, err := MergeLines(lines)
	if err != nil {
		return err
	}
	for _, line := range merged {
		if err := l.Release(ctx, tx, line.VariantID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (l ledger) releaseAll(ctx context.Context, tx *gorm.DB, reservations []Reservation) error {
	var errs error
	for i := len(reservations) - 1; i >= 0; i-- {
		r := reservations[i]
		errs = multierr.Append(errs, l.Release(ctx, tx, r.VariantID, r.Quantity))
	}
	return errs
}

// MergeLines sums quantities per variant and sorts the result by variant id.
func MergeLines(lines []Line) ([]Line, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.Validation("at least one line is required")
	}
	totals := make(map[uuid.UUID]int, len(lines))
	order := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if line.VariantID == uuid.Nil {
			return nil, pkgerrors.Validation("variant id is required")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.Validation("quantity must be greater than zero")
		}
		if _, seen := totals[line.VariantID]; !seen {
			order = append(order, line.VariantID)
		}
		totals[line.VariantID] += line.Quantity
	}
	sort.Slice(order, func(i, j int) bool {
		return bytes.Compare(order[i][:], order[j][:]) < 0
	})
	merged := make([]Line, 0, len(order))
	for _, id := range order {
		merged = append(merged, Line{VariantID: id, Quantity: totals[id]})
	}
	return merged, nil
}
