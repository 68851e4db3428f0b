package settlement

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepBatch = 500

// Sweeper reports PENDING settlements whose checkout was abandoned or whose
// gateway order never opened. It only reports: the reconciler remains the
// sole writer of settlement status.
type Sweeper struct {
	store      *Store
	staleAfter time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func NewSweeper(store *Store, staleAfter time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{store: store, staleAfter: staleAfter, now: time.Now, logger: logger}
}

// Sweep returns how many stale settlements it found, capped at one batch.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.staleAfter)
	rows, err := s.store.FindStalePending(ctx, cutoff, sweepBatch)
	if err != nil {
		s.logger.Error("stale settlement sweep failed", zap.Error(err))
		return 0, err
	}

	stalePending.Set(float64(len(rows)))
	if len(rows) == 0 {
		return 0, nil
	}

	ids := make([]uint, 0, len(rows))
	withoutOrder := 0
	for _, st := range rows {
		ids = append(ids, st.ID)
		if st.GatewayOrderID == nil {
			withoutOrder++
		}
	}
	s.logger.Warn("stale pending settlements need manual review",
		zap.Int("count", len(rows)),
		zap.Int("without_gateway_order", withoutOrder),
		zap.Uints("settlement_ids", ids),
		zap.Time("created_before", cutoff),
	)
	return len(rows), nil
}

// StartSweeper schedules Sweep on a cron spec and starts the scheduler.
func StartSweeper(schedule string, sweeper *Sweeper, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_, _ = sweeper.Sweep(ctx)
	}); err != nil {
		return nil, err
	}
	c.Start()
	logger.Info("settlement sweeper started", zap.String("schedule", schedule))
	return c, nil
}
