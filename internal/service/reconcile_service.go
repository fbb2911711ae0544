package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atithi-next/internal/cache"
	"github.com/atithi-next/internal/constants"
	"github.com/atithi-next/internal/gateway/razorpay"
	"github.com/atithi-next/internal/models"
	"github.com/atithi-next/internal/queue"
	"github.com/atithi-next/internal/repository"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Gateway 支付网关客户端接口
type Gateway interface {
	VerifySignature(orderID, paymentID, signature string) bool
	FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error)
	CreateOrder(ctx context.Context, input razorpay.CreateOrderInput) (*razorpay.Order, error)
}

// ReconcileService 对账服务
type ReconcileService struct {
	gateway     Gateway
	recordRepo  repository.RecordRepository
	ledgerRepo  repository.LedgerRepository
	reconRepo   repository.ReconciliationRepository
	intentRepo  repository.IntentRepository
	resolver    *TargetResolver
	queueClient *queue.Client
	deadline    time.Duration
}

// NewReconcileService 创建对账服务
func NewReconcileService(gateway Gateway, recordRepo repository.RecordRepository, ledgerRepo repository.LedgerRepository, reconRepo repository.ReconciliationRepository, intentRepo repository.IntentRepository, queueClient *queue.Client, deadline time.Duration) *ReconcileService {
	return &ReconcileService{
		gateway:     gateway,
		recordRepo:  recordRepo,
		ledgerRepo:  ledgerRepo,
		reconRepo:   reconRepo,
		intentRepo:  intentRepo,
		resolver:    NewTargetResolver(recordRepo),
		queueClient: queueClient,
		deadline:    deadline,
	}
}

// ReconcileInput 对账请求
type ReconcileInput struct {
	GatewayPaymentID string
	GatewayOrderID   string
	Signature        string
	Target           TargetSpec
	Context          context.Context
}

// TargetOutcome 单个目标的处理结果
type TargetOutcome struct {
	Type    string       `json:"type"`
	No      string       `json:"no"`
	Amount  models.Money `json:"amount"`
	Outcome string       `json:"outcome"`
	Error   string       `json:"error,omitempty"`
}

// ReconcileResult 对账结果（逐目标展开，永不折叠成单布尔）
type ReconcileResult struct {
	GatewayOrderID   string          `json:"gateway_order_id"`
	GatewayPaymentID string          `json:"gateway_payment_id"`
	CapturedAmount   models.Money    `json:"captured_amount"`
	Currency         string          `json:"currency"`
	Targets          []TargetOutcome `json:"targets"`
	Unresolved       []string        `json:"unresolved,omitempty"`
	OverallSuccess   bool            `json:"overall_success"`
}

// Reconcile 处理一次支付捕获回调
//
// 签名校验先于一切存储与网关 I/O；校验失败时零写入。
// 校验通过后按 目标解析 → 金额拆分 → 逐目标落账 顺序执行，
// 单个目标的失败被隔离，不影响其余目标。
func (s *ReconcileService) Reconcile(input ReconcileInput) (*ReconcileResult, error) {
	paymentID := strings.TrimSpace(input.GatewayPaymentID)
	orderID := strings.TrimSpace(input.GatewayOrderID)
	signature := strings.TrimSpace(input.Signature)
	if paymentID == "" || orderID == "" || signature == "" {
		return nil, ErrReconcileInvalid
	}
	if input.Target.IsEmpty() {
		return nil, fmt.Errorf("%w: target spec is empty", ErrReconcileInvalid)
	}
	ctx := input.Context
	if ctx == nil {
		ctx = context.Background()
	}

	log := reconcileLogger(
		"gateway_order_id", orderID,
		"gateway_payment_id", paymentID,
	)
	log.Infow("reconcile_callback_received")

	if !s.gateway.VerifySignature(orderID, paymentID, signature) {
		log.Warnw("reconcile_signature_mismatch")
		return nil, ErrSignatureMismatch
	}

	payment, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		log.Errorw("reconcile_payment_fetch_failed", "error", err)
		if errors.Is(err, razorpay.ErrGatewayUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrReconcileFailed, err)
	}
	if payment.OrderID != "" && payment.OrderID != orderID {
		log.Warnw("reconcile_gateway_order_mismatch", "fetched_order_id", payment.OrderID)
		return nil, fmt.Errorf("%w: gateway order mismatch", ErrReconcileInvalid)
	}
	payment.OrderID = orderID
	// 捕获金额以网关返回为准，绝不信任客户端上送金额
	captured := models.Money(payment.Amount)
	log = log.With("captured_amount", captured.Int64(), "currency", payment.Currency)

	s.crossCheckIntent(orderID, captured, payment.Currency, log)

	targets, unresolved, err := s.resolver.Resolve(input.Target)
	if err != nil {
		if errors.Is(err, ErrNoMatchingTarget) {
			log.Warnw("reconcile_no_matching_target", "unresolved", unresolved)
			return nil, ErrNoMatchingTarget
		}
		log.Errorw("reconcile_target_resolve_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrReconcileFailed, err)
	}
	if len(unresolved) > 0 {
		log.Warnw("reconcile_targets_partially_unresolved", "unresolved", unresolved)
	}
	shares := AllocateAmount(captured.Int64(), len(targets))

	recon, created, err := s.reconRepo.CreateOrGet(&models.Reconciliation{
		GatewayOrderID:   orderID,
		GatewayPaymentID: paymentID,
		CapturedAmount:   captured,
		Currency:         strings.ToUpper(strings.TrimSpace(payment.Currency)),
		TargetSpec:       input.Target.ToJSON(),
		Status:           constants.ReconcileStatusProcessing,
	})
	if err != nil {
		log.Errorw("reconcile_idempotency_record_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrReconcileFailed, err)
	}
	if !created {
		// 回调重放：继续走逐目标守卫，让重复目标自然落到 already_reconciled
		log.Infow("reconcile_callback_redelivered", "reconciliation_id", recon.ID)
	}

	// 签名通过后账务变更不随调用方取消而中断，只受总体截止时间约束
	mutationCtx := context.WithoutCancel(ctx)
	var deadlineAt time.Time
	if s.deadline > 0 {
		deadlineAt = time.Now().Add(s.deadline)
	}

	result := &ReconcileResult{
		GatewayOrderID:   orderID,
		GatewayPaymentID: paymentID,
		CapturedAmount:   captured,
		Currency:         strings.ToUpper(strings.TrimSpace(payment.Currency)),
		Unresolved:       unresolved,
	}
	now := time.Now()
	var repairs []queue.LedgerRepairPayload
	for i, ref := range targets {
		amount := models.Money(shares[i])
		if !deadlineAt.IsZero() && time.Now().After(deadlineAt) {
			log.Warnw("reconcile_deadline_exceeded", "skipped_from", i, "total", len(targets))
			result.Targets = append(result.Targets, TargetOutcome{
				Type:    ref.Type,
				No:      ref.No,
				Amount:  amount,
				Outcome: constants.OutcomeDeadlineSkipped,
			})
			continue
		}
		outcome, repair := s.reconcileTarget(mutationCtx, ref, amount, payment, signature, now, log)
		result.Targets = append(result.Targets, outcome)
		if repair != nil {
			repairs = append(repairs, *repair)
		}
	}

	for _, outcome := range result.Targets {
		if outcome.Outcome == constants.OutcomeSuccess {
			result.OverallSuccess = true
			break
		}
	}

	if result.OverallSuccess {
		if _, err := s.intentRepo.MarkCaptured(orderID, now); err != nil {
			log.Warnw("reconcile_intent_mark_captured_failed", "error", err)
		}
	}

	s.persistOutcome(recon, result, log)
	s.enqueueLedgerRepairsAsync(repairs, log)

	log.Infow("reconcile_callback_processed",
		"target_count", len(targets),
		"overall_success", result.OverallSuccess,
	)
	return result, nil
}

// crossCheckIntent 与本地支付意向交叉核对（仅告警，不阻断）
func (s *ReconcileService) crossCheckIntent(orderID string, captured models.Money, currency string, log *zap.SugaredLogger) {
	if s.intentRepo == nil {
		return
	}
	intent, err := s.intentRepo.GetByGatewayOrderID(orderID)
	if err != nil {
		log.Warnw("reconcile_intent_fetch_failed", "error", err)
		return
	}
	if intent == nil {
		return
	}
	if intent.Amount != captured {
		log.Warnw("reconcile_intent_amount_mismatch",
			"intent_amount", intent.Amount.Int64(),
			"captured_amount", captured.Int64(),
		)
	}
	if c := strings.ToUpper(strings.TrimSpace(currency)); c != "" && c != strings.ToUpper(strings.TrimSpace(intent.Currency)) {
		log.Warnw("reconcile_intent_currency_mismatch",
			"intent_currency", intent.Currency,
			"captured_currency", currency,
		)
	}
}

// reconcileTarget 在单个事务内完成一个目标的状态迁移与账本移动
func (s *ReconcileService) reconcileTarget(ctx context.Context, ref models.RecordRef, amount models.Money, payment *razorpay.Payment, signature string, now time.Time, log *zap.SugaredLogger) (TargetOutcome, *queue.LedgerRepairPayload) {
	out := TargetOutcome{Type: ref.Type, No: ref.No, Amount: amount}
	var repair *queue.LedgerRepairPayload

	err := models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recordRepo := s.recordRepo.WithTx(tx)
		ledgerRepo := s.ledgerRepo.WithTx(tx)

		record, err := recordRepo.FindByRef(ref.Type, ref.No)
		if err != nil {
			return err
		}
		if record == nil {
			out.Outcome = constants.OutcomeRecordMissing
			return nil
		}
		// 幂等守卫：已付记录不再入账，防止回调重放双重记账
		if record.PaymentStatus == constants.PaymentStatusPaid {
			out.Outcome = constants.OutcomeAlreadyReconciled
			return nil
		}

		rows, err := recordRepo.MarkPaid(ref.Type, ref.No, record.PaymentStatus, repository.PaymentUpdate{
			PaidAmount:       amount,
			GatewayPaymentID: payment.ID,
			GatewayOrderID:   payment.OrderID,
			GatewaySignature: signature,
			PaidAt:           now,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			// 条件更新落空：并发对账已抢先修改了该记录
			out.Outcome = constants.OutcomeUpdateConflict
			return nil
		}

		if record.RoomAccountNo == "" {
			out.Outcome = constants.OutcomeSuccess
			return nil
		}

		pulled, err := ledgerRepo.PullUnpaid(record.RoomAccountNo, ref.Type, ref.No)
		if err != nil {
			return err
		}
		if pulled == 0 {
			// 未付桶里没有该记录：记录本身保持已付，账本留待修复任务跟进
			out.Outcome = constants.OutcomeLedgerInconsistency
			out.Error = "unpaid ledger entry not found"
			repair = &queue.LedgerRepairPayload{
				AccountNo:        record.RoomAccountNo,
				RecordType:       ref.Type,
				RecordNo:         ref.No,
				Amount:           amount.Int64(),
				GatewayPaymentID: payment.ID,
				GatewayOrderID:   payment.OrderID,
			}
			return nil
		}
		paidAt := now
		pushed, err := ledgerRepo.PushPaid(&models.LedgerEntry{
			AccountNo:        record.RoomAccountNo,
			RecordType:       ref.Type,
			RecordNo:         ref.No,
			Amount:           amount,
			GatewayPaymentID: payment.ID,
			GatewayOrderID:   payment.OrderID,
			PaidAt:           &paidAt,
		})
		if err != nil {
			return err
		}
		moved, err := ledgerRepo.IncrementTotals(record.RoomAccountNo, amount)
		if err != nil {
			return err
		}
		if pushed == 0 || moved == 0 {
			out.Outcome = constants.OutcomeLedgerInconsistency
			out.Error = "ledger move reported zero modifications"
			repair = &queue.LedgerRepairPayload{
				AccountNo:        record.RoomAccountNo,
				RecordType:       ref.Type,
				RecordNo:         ref.No,
				Amount:           amount.Int64(),
				GatewayPaymentID: payment.ID,
				GatewayOrderID:   payment.OrderID,
			}
			return nil
		}
		out.Outcome = constants.OutcomeSuccess
		return nil
	})
	if err != nil {
		log.Errorw("reconcile_target_failed",
			"record_type", ref.Type,
			"record_no", ref.No,
			"error", err,
		)
		out.Outcome = constants.OutcomeLedgerInconsistency
		out.Error = err.Error()
	}
	return out, repair
}

func (s *ReconcileService) persistOutcome(recon *models.Reconciliation, result *ReconcileResult, log *zap.SugaredLogger) {
	if recon == nil {
		return
	}
	outcomes := make([]interface{}, 0, len(result.Targets))
	for _, t := range result.Targets {
		entry := map[string]interface{}{
			"type":    t.Type,
			"no":      t.No,
			"amount":  t.Amount.Int64(),
			"outcome": t.Outcome,
		}
		if t.Error != "" {
			entry["error"] = t.Error
		}
		outcomes = append(outcomes, entry)
	}
	recon.Outcomes = models.JSON{"targets": outcomes}
	if len(result.Unresolved) > 0 {
		recon.Outcomes["unresolved"] = result.Unresolved
	}
	recon.OverallSuccess = result.OverallSuccess
	recon.Status = constants.ReconcileStatusCompleted
	if err := s.reconRepo.Update(recon); err != nil {
		log.Errorw("reconcile_outcome_persist_failed", "reconciliation_id", recon.ID, "error", err)
		return
	}
	if err := cache.SetReconcileState(context.Background(), recon); err != nil {
		log.Debugw("reconcile_state_cache_set_failed", "error", err)
	}
}

func (s *ReconcileService) enqueueLedgerRepairsAsync(repairs []queue.LedgerRepairPayload, log *zap.SugaredLogger) {
	if len(repairs) == 0 {
		return
	}
	if s.queueClient == nil || !s.queueClient.Enabled() {
		log.Warnw("reconcile_ledger_repair_queue_unavailable", "pending_repairs", len(repairs))
		return
	}
	for _, payload := range repairs {
		if err := s.queueClient.EnqueueLedgerRepair(payload, asynq.MaxRetry(5)); err != nil {
			log.Warnw("reconcile_enqueue_ledger_repair_failed",
				"account_no", payload.AccountNo,
				"record_type", payload.RecordType,
				"record_no", payload.RecordNo,
				"error", err,
			)
		}
	}
}

// GetReconciliationByGatewayOrderID 查询最近一次对账记录
func (s *ReconcileService) GetReconciliationByGatewayOrderID(gatewayOrderID string) (*models.Reconciliation, error) {
	if cached, hit, err := cache.GetReconcileState(context.Background(), gatewayOrderID); err == nil && hit && cached != nil {
		return cached, nil
	}
	recon, err := s.reconRepo.GetLatestByGatewayOrderID(gatewayOrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReconcileFailed, err)
	}
	if recon == nil {
		return nil, ErrReconciliationNotFound
	}
	return recon, nil
}

// RepairLedger 修复“记录已付但账本未移动”的不一致（由修复任务驱动）
//
// 未付分录存在则照常完成移动；分录完全缺失说明需要人工介入，打日志后放行。
func (s *ReconcileService) RepairLedger(payload queue.LedgerRepairPayload) error {
	log := reconcileLogger(
		"account_no", payload.AccountNo,
		"record_type", payload.RecordType,
		"record_no", payload.RecordNo,
	)
	record, err := s.recordRepo.FindByRef(payload.RecordType, payload.RecordNo)
	if err != nil {
		return err
	}
	if record == nil || record.PaymentStatus != constants.PaymentStatusPaid {
		log.Debugw("ledger_repair_skip_record_not_paid")
		return nil
	}
	entry, err := s.ledgerRepo.GetEntry(payload.AccountNo, payload.RecordType, payload.RecordNo)
	if err != nil {
		return err
	}
	if entry == nil {
		log.Warnw("ledger_repair_manual_followup_required")
		return nil
	}
	if entry.Bucket == constants.LedgerBucketPaid {
		log.Debugw("ledger_repair_skip_already_moved")
		return nil
	}

	amount := models.Money(payload.Amount)
	now := time.Now()
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		ledgerRepo := s.ledgerRepo.WithTx(tx)
		pulled, err := ledgerRepo.PullUnpaid(payload.AccountNo, payload.RecordType, payload.RecordNo)
		if err != nil {
			return err
		}
		if pulled == 0 {
			return nil
		}
		if _, err := ledgerRepo.PushPaid(&models.LedgerEntry{
			AccountNo:        payload.AccountNo,
			RecordType:       payload.RecordType,
			RecordNo:         payload.RecordNo,
			Amount:           amount,
			GatewayPaymentID: payload.GatewayPaymentID,
			GatewayOrderID:   payload.GatewayOrderID,
			PaidAt:           &now,
		}); err != nil {
			return err
		}
		_, err = ledgerRepo.IncrementTotals(payload.AccountNo, amount)
		return err
	})
	if err != nil {
		log.Errorw("ledger_repair_failed", "error", err)
		return err
	}
	log.Infow("ledger_repair_completed")
	return nil
}
