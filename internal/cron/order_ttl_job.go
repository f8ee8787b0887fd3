package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/tokoflow-backend/pkg/logger"
)

const (
	defaultPendingTTL  = 24 * time.Hour
	defaultExpiryBatch = 100
)

// OrderTTLJobParams configure the pending order expiry job.
type OrderTTLJobParams struct {
	Logger    *logger.Logger
	Pending   pendingOrderFinder
	Orders    orderExpirer
	TTL       time.Duration
	BatchSize int
}

type pendingOrderFinder interface {
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

type orderExpirer interface {
	ExpirePending(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// NewOrderTTLJob builds the job that cancels orders left unpaid past the TTL.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pending == nil {
		return nil, fmt.Errorf("pending order finder required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatch
	}
	return &orderTTLJob{
		logg:    params.Logger,
		pending: params.Pending,
		orders:  params.Orders,
		ttl:     ttl,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type orderTTLJob struct {
	logg    *logger.Logger
	pending pendingOrderFinder
	orders  orderExpirer
	ttl     time.Duration
	batch   int
	now     func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

// Run expires stale orders one transaction each. A failure on one order is
// collected and retried next cycle; a page with no progress ends the run.
func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	var errs error
	expired := 0
	attempted := make(map[uuid.UUID]struct{})
	for {
		ids, err := j.pending.FindPendingBefore(ctx, cutoff, j.batch)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("query pending orders: %w", err))
		}
		progress := 0
		for _, id := range ids {
			if _, seen := attempted[id]; seen {
				continue
			}
			attempted[id] = struct{}{}
			ok, err := j.orders.ExpirePending(ctx, id)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", id, err))
				continue
			}
			if ok {
				progress++
			}
		}
		expired += progress
		if len(ids) < j.batch || progress == 0 {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"expired": expired,
		"failed":  len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "cron.orders_expired")
	return errs
}
