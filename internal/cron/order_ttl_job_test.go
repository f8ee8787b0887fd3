package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// fakePendingOrders serves ids oldest first and drops them once expired.
type fakePendingOrders struct {
	pending  []uuid.UUID
	failing  map[uuid.UUID]bool
	cutoffs  []time.Time
	expired  []uuid.UUID
	queryErr error
}

func (f *fakePendingOrders) FindPendingBefore(_ context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if limit > len(f.pending) {
		limit = len(f.pending)
	}
	return append([]uuid.UUID(nil), f.pending[:limit]...), nil
}

func (f *fakePendingOrders) ExpirePending(_ context.Context, id uuid.UUID) (bool, error) {
	if f.failing[id] {
		return false, errors.New("db down")
	}
	for i, candidate := range f.pending {
		if candidate == id {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			f.expired = append(f.expired, id)
			return true, nil
		}
	}
	return false, nil
}

func newOrderTTLJob(t *testing.T, fake *fakePendingOrders, batch int) *orderTTLJob {
	t.Helper()
	jobIface, err := NewOrderTTLJob(OrderTTLJobParams{
		Logger:    testLogger(),
		Pending:   fake,
		Orders:    fake,
		TTL:       2 * time.Hour,
		BatchSize: batch,
	})
	if err != nil {
		t.Fatalf("NewOrderTTLJob: %v", err)
	}
	return jobIface.(*orderTTLJob)
}

func TestOrderTTLJobExpiresAcrossPages(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := &fakePendingOrders{pending: []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}}
	job := newOrderTTLJob(t, fake, 2)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fake.expired) != 5 || len(fake.pending) != 0 {
		t.Fatalf("expected all five orders expired, got %d (left %d)", len(fake.expired), len(fake.pending))
	}
	if want := now.Add(-2 * time.Hour); !fake.cutoffs[0].Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, fake.cutoffs[0])
	}
}

func TestOrderTTLJobContinuesPastFailures(t *testing.T) {
	bad := uuid.New()
	good := uuid.New()
	fake := &fakePendingOrders{
		pending: []uuid.UUID{bad, good},
		failing: map[uuid.UUID]bool{bad: true},
	}
	job := newOrderTTLJob(t, fake, 2)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if n := len(multierr.Errors(err)); n != 1 {
		t.Fatalf("expected one failure, got %d", n)
	}
	if len(fake.expired) != 1 || fake.expired[0] != good {
		t.Fatalf("expected the healthy order to expire, got %v", fake.expired)
	}
}

func TestOrderTTLJobStopsWithoutProgress(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	fake := &fakePendingOrders{
		pending: []uuid.UUID{a, b},
		failing: map[uuid.UUID]bool{a: true, b: true},
	}
	job := newOrderTTLJob(t, fake, 2)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(fake.cutoffs) != 1 {
		t.Fatalf("expected a single page query, got %d", len(fake.cutoffs))
	}
}

func TestOrderTTLJobPropagatesQueryError(t *testing.T) {
	fake := &fakePendingOrders{queryErr: errors.New("timeout")}
	job := newOrderTTLJob(t, fake, 10)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewOrderTTLJobDefaults(t *testing.T) {
	fake := &fakePendingOrders{}
	jobIface, err := NewOrderTTLJob(OrderTTLJobParams{Logger: testLogger(), Pending: fake, Orders: fake})
	if err != nil {
		t.Fatalf("NewOrderTTLJob: %v", err)
	}
	job := jobIface.(*orderTTLJob)
	if job.ttl != defaultPendingTTL || job.batch != defaultExpiryBatch || job.Name() != "order-ttl" {
		t.Fatalf("unexpected defaults ttl=%s batch=%d", job.ttl, job.batch)
	}
	if _, err := NewOrderTTLJob(OrderTTLJobParams{Logger: testLogger(), Pending: fake}); err == nil {
		t.Fatal("expected error without order service")
	}
}
