package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// PendingSweeper rolls back vouchers stuck in pending state.
type PendingSweeper interface {
	SweepPending(ctx context.Context, ttl time.Duration) (int, error)
}

// VoucherReconcileJob reverses vouchers that never reached posted state.
type VoucherReconcileJob struct {
	Sweeper    PendingSweeper
	DefaultTTL time.Duration
	Logger     *slog.Logger
}

// NewVoucherReconcileJob constructs the job with its dependencies.
func NewVoucherReconcileJob(sweeper PendingSweeper, defaultTTL time.Duration, logger *slog.Logger) *VoucherReconcileJob {
	if defaultTTL <= 0 {
		defaultTTL = 15 * time.Minute
	}
	return &VoucherReconcileJob{Sweeper: sweeper, DefaultTTL: defaultTTL, Logger: logger}
}

// Handle processes a voucher:reconcile task.
func (j *VoucherReconcileJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload VoucherReconcilePayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return err
		}
	}
	ttl := j.DefaultTTL
	if payload.TTLMinutes > 0 {
		ttl = time.Duration(payload.TTLMinutes) * time.Minute
	}
	swept, err := j.Sweeper.SweepPending(ctx, ttl)
	if err != nil {
		if j.Logger != nil {
			j.Logger.Error("voucher reconcile sweep failed", "error", err)
		}
		return err
	}
	if j.Logger != nil && swept > 0 {
		j.Logger.Info("voucher reconcile swept stale vouchers", "count", swept, "ttl", ttl.String())
	}
	return nil
}
