package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/atithi-next/internal/logger"
	"github.com/atithi-next/internal/provider"
	"github.com/atithi-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskLedgerRepair, c.handleLedgerRepair)
	mux.HandleFunc(queue.TaskIntentExpire, c.handleIntentExpire)
}

func (c *Consumer) handleLedgerRepair(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_ledger_repair_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.LedgerRepairPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_ledger_repair_unmarshal_failed", "error", err)
		return err
	}
	if payload.AccountNo == "" || payload.RecordNo == "" {
		logger.Debugw("worker_ledger_repair_skip_invalid_payload",
			"account_no", payload.AccountNo, "record_no", payload.RecordNo)
		return nil
	}
	if c.ReconcileService == nil {
		logger.Warnw("worker_ledger_repair_service_missing")
		return nil
	}
	if err := c.ReconcileService.RepairLedger(payload); err != nil {
		logger.Warnw("worker_ledger_repair_failed",
			"account_no", payload.AccountNo,
			"record_type", payload.RecordType,
			"record_no", payload.RecordNo,
			"error", err,
		)
		return err
	}
	return nil
}

func (c *Consumer) handleIntentExpire(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_intent_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.IntentExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_intent_expire_unmarshal_failed", "error", err)
		return err
	}
	if payload.MaxAgeMinutes <= 0 {
		logger.Debugw("worker_intent_expire_skip_invalid_payload", "max_age_minutes", payload.MaxAgeMinutes)
		return nil
	}
	if c.IntentService == nil {
		logger.Warnw("worker_intent_expire_service_missing")
		return nil
	}
	if _, err := c.IntentService.ExpireStaleIntents(time.Duration(payload.MaxAgeMinutes) * time.Minute); err != nil {
		logger.Warnw("worker_intent_expire_failed", "error", err)
		return err
	}
	return nil
}
