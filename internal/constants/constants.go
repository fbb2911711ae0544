package constants

// 账务记录类型常量
const (
	RecordTypeRunningOrder      = "running_order"
	RecordTypeRoomInvoice       = "room_invoice"
	RecordTypeRestaurantInvoice = "restaurant_invoice"
	RecordTypeFoodInvoice       = "food_invoice"
)

// 账务记录支付状态常量
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// 支付意向状态常量
const (
	IntentStatusCreated  = "created"
	IntentStatusCaptured = "captured"
	IntentStatusExpired  = "expired"
)

// 对账处理状态常量
const (
	ReconcileStatusProcessing = "processing"
	ReconcileStatusCompleted  = "completed"
)

// 对账单目标处理结果常量
const (
	OutcomeSuccess             = "success"
	OutcomeAlreadyReconciled   = "already_reconciled"
	OutcomeRecordMissing       = "record_missing"
	OutcomeUpdateConflict      = "update_conflict"
	OutcomeLedgerInconsistency = "ledger_inconsistency"
	OutcomeDeadlineSkipped     = "deadline_skipped"
)

// 账本桶常量
const (
	LedgerBucketUnpaid = "unpaid"
	LedgerBucketPaid   = "paid"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型常量
const (
	TaskLedgerRepair = "reconcile:ledger_repair"
	TaskIntentExpire = "payment:intent_expire"
)

// IsRecordTypeValid 校验记录类型
func IsRecordTypeValid(recordType string) bool {
	switch recordType {
	case RecordTypeRunningOrder, RecordTypeRoomInvoice, RecordTypeRestaurantInvoice, RecordTypeFoodInvoice:
		return true
	}
	return false
}
