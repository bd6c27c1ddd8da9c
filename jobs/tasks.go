package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskVoucherReconcile sweeps stale pending vouchers.
	TaskVoucherReconcile = "voucher:reconcile"
	// TaskLedgerIntegrity replays entries against cached account balances.
	TaskLedgerIntegrity = "ledger:integrity"
)

// VoucherReconcilePayload configures the pending voucher sweep.
type VoucherReconcilePayload struct {
	TTLMinutes int `json:"ttl_minutes"`
}

// NewVoucherReconcileTask constructs an Asynq task for the sweep.
func NewVoucherReconcileTask(payload VoucherReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVoucherReconcile, data), nil
}

// LedgerIntegrityPayload configures the integrity check.
type LedgerIntegrityPayload struct {
	Repair bool `json:"repair"`
}

// NewLedgerIntegrityTask constructs an Asynq task for the integrity check.
func NewLedgerIntegrityTask(payload LedgerIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}
