package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/arogya-his/arogya-his/internal/ledger"
)

// BalanceReconciler compares cached account balances against replayed entries.
type BalanceReconciler interface {
	Reconcile(ctx context.Context, repair bool) ([]ledger.Drift, error)
}

// LedgerIntegrityJob audits cached account balances on a schedule.
type LedgerIntegrityJob struct {
	Reconciler BalanceReconciler
	Logger     *slog.Logger
}

// NewLedgerIntegrityJob constructs the job with its dependencies.
func NewLedgerIntegrityJob(reconciler BalanceReconciler, logger *slog.Logger) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{Reconciler: reconciler, Logger: logger}
}

// Handle processes a ledger:integrity task.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload LedgerIntegrityPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return err
		}
	}
	drifts, err := j.Reconciler.Reconcile(ctx, payload.Repair)
	if err != nil {
		if j.Logger != nil {
			j.Logger.Error("ledger integrity check failed", "error", err)
		}
		return err
	}
	if j.Logger == nil {
		return nil
	}
	for _, d := range drifts {
		j.Logger.Warn("account balance drift",
			"account_id", d.AccountID,
			"cached", d.Cached,
			"derived", d.Derived,
			"repaired", payload.Repair,
		)
	}
	if len(drifts) == 0 {
		j.Logger.Info("ledger integrity check clean")
	}
	return nil
}
