package queue

import (
	"encoding/json"

	"github.com/atithi-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskLedgerRepair 账本修复任务（对账出现 ledger_inconsistency 时的补偿步骤）
	TaskLedgerRepair = constants.TaskLedgerRepair
	// TaskIntentExpire 支付意向过期清理任务
	TaskIntentExpire = constants.TaskIntentExpire
)

// LedgerRepairPayload 账本修复任务载荷
type LedgerRepairPayload struct {
	AccountNo        string `json:"account_no"`
	RecordType       string `json:"record_type"`
	RecordNo         string `json:"record_no"`
	Amount           int64  `json:"amount"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	GatewayOrderID   string `json:"gateway_order_id"`
}

// IntentExpirePayload 支付意向过期清理任务载荷
type IntentExpirePayload struct {
	MaxAgeMinutes int `json:"max_age_minutes"`
}

// NewLedgerRepairTask 创建账本修复任务
func NewLedgerRepairTask(payload LedgerRepairPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerRepair, body), nil
}

// NewIntentExpireTask 创建支付意向过期清理任务
func NewIntentExpireTask(payload IntentExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIntentExpire, body), nil
}
