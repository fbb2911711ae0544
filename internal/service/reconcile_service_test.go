package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atithi-next/internal/constants"
	"github.com/atithi-next/internal/gateway/razorpay"
	"github.com/atithi-next/internal/models"
	"github.com/atithi-next/internal/queue"
	"github.com/atithi-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type fakeGateway struct {
	valid      bool
	payment    *razorpay.Payment
	fetchErr   error
	createErr  error
	fetchCalls int32
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return g.valid
}

func (g *fakeGateway) FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error) {
	atomic.AddInt32(&g.fetchCalls, 1)
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	return g.payment, nil
}

func (g *fakeGateway) CreateOrder(ctx context.Context, input razorpay.CreateOrderInput) (*razorpay.Order, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &razorpay.Order{ID: "order_fake", Amount: input.Amount, Currency: input.Currency, Receipt: input.Receipt, Status: "created"}, nil
}

func setupReconcileDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:reconcile_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.PaymentIntent{},
		&models.Reconciliation{},
		&models.RunningOrder{},
		&models.RoomInvoice{},
		&models.RestaurantInvoice{},
		&models.FoodInvoice{},
		&models.RoomAccount{},
		&models.LedgerEntry{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return db
}

func newReconcileService(db *gorm.DB, gw Gateway, deadline time.Duration) *ReconcileService {
	return NewReconcileService(
		gw,
		repository.NewRecordRepository(db),
		repository.NewLedgerRepository(db),
		repository.NewReconciliationRepository(db),
		repository.NewIntentRepository(db),
		nil,
		deadline,
	)
}

func seedAccountWithInvoice(t *testing.T, db *gorm.DB, accountNo, invoiceNo string, amount models.Money) {
	t.Helper()
	if err := db.Create(&models.RoomAccount{
		AccountNo: accountNo,
		GuestName: "Test Guest",
		Balance:   amount,
	}).Error; err != nil {
		t.Fatalf("seed account failed: %v", err)
	}
	if err := db.Create(&models.RoomInvoice{
		InvoiceNo:     invoiceNo,
		RoomAccountNo: accountNo,
		Billing:       models.Billing{AmountDue: amount, PaymentStatus: constants.PaymentStatusPending},
	}).Error; err != nil {
		t.Fatalf("seed invoice failed: %v", err)
	}
	if err := db.Create(&models.LedgerEntry{
		AccountNo:  accountNo,
		RecordType: constants.RecordTypeRoomInvoice,
		RecordNo:   invoiceNo,
		Bucket:     constants.LedgerBucketUnpaid,
		Amount:     amount,
	}).Error; err != nil {
		t.Fatalf("seed ledger entry failed: %v", err)
	}
}

func capturedPayment(orderID string, amount int64) *razorpay.Payment {
	return &razorpay.Payment{
		ID:       "pay_xyz",
		OrderID:  orderID,
		Amount:   amount,
		Currency: "INR",
		Status:   razorpay.PaymentStatusCaptured,
	}
}

func TestReconcileSuccessMovesLedger(t *testing.T) {
	db := setupReconcileDB(t)
	seedAccountWithInvoice(t, db, "RA-101", "INV-1", 4500)
	gw := &fakeGateway{valid: true, payment: capturedPayment("order_abc", 4500)}
	svc := newReconcileService(db, gw, time.Minute)

	result, err := svc.Reconcile(ReconcileInput{
		GatewayPaymentID: "pay_xyz",
		GatewayOrderID:   "order_abc",
		Signature:        "sig",
		Target:           TargetSpec{RoomInvoiceNos: []string{"INV-1"}},
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if !result.OverallSuccess {
		t.Fatalf("expected overall success, got %+v", result)
	}
	if len(result.Targets) != 1 || result.Targets[0].Outcome != constants.OutcomeSuccess {
		t.Fatalf("unexpected targets: %+v", result.Targets)
	}

	var invoice models.RoomInvoice
	if err := db.Where("invoice_no = ?", "INV-1").First(&invoice).Error; err != nil {
		t.Fatalf("load invoice failed: %v", err)
	}
	if invoice.Billing.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("invoice should be paid, got %s", invoice.Billing.PaymentStatus)
	}
	if invoice.Billing.PaidAmount != 4500 || invoice.Billing.AmountDue != 0 {
		t.Fatalf("unexpected billing: paid=%d due=%d", invoice.Billing.PaidAmount, invoice.Billing.AmountDue)
	}
	if invoice.Billing.GatewayPaymentID != "pay_xyz" {
		t.Fatalf("gateway payment id not recorded: %s", invoice.Billing.GatewayPaymentID)
	}

	// 分录必须恰好存在于已付桶
	var entries []models.LedgerEntry
	if err := db.Where("account_no = ? AND record_no = ?", "RA-101", "INV-1").Find(&entries).Error; err != nil {
		t.Fatalf("load ledger entries failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Bucket != constants.LedgerBucketPaid {
		t.Fatalf("ledger entry should live in paid bucket only: %+v", entries)
	}

	var account models.RoomAccount
	if err := db.Where("account_no = ?", "RA-101").First(&account).Error; err != nil {
		t.Fatalf("load account failed: %v", err)
	}
	if account.TotalPaid != 4500 || account.Balance != 0 {
		t.Fatalf("unexpected account totals: paid=%d balance=%d", account.TotalPaid, account.Balance)
	}

	var recon models.Reconciliation
	if err := db.Where("gateway_order_id = ?", "order_abc").First(&recon).Error; err != nil {
		t.Fatalf("load reconciliation failed: %v", err)
	}
	if recon.Status != constants.ReconcileStatusCompleted || !recon.OverallSuccess {
		t.Fatalf("unexpected reconciliation: %+v", recon)
	}
}

func TestReconcileReplayIsIdempotent(t *testing.T) {
	db := setupReconcileDB(t)
	seedAccountWithInvoice(t, db, "RA-101", "INV-1", 4500)
	gw := &fakeGateway{valid: true, payment: capturedPayment("order_abc", 4500)}
	svc := newReconcileService(db, gw, time.Minute)

	input := ReconcileInput{
		GatewayPaymentID: "pay_xyz",
		GatewayOrderID:   "order_abc",
		Signature:        "sig",
		Target:           TargetSpec{RoomInvoiceNos: []string{"INV-1"}},
	}
	if _, err := svc.Reconcile(input); err != nil {
		t.Fatalf("first reconcile failed: %v", err)
	}
	replay, err := svc.Reconcile(input)
	if err != nil {
		t.Fatalf("replay reconcile failed: %v", err)
	}
	if len(replay.Targets) != 1 || replay.Targets[0].Outcome != constants.OutcomeAlreadyReconciled {
		t.Fatalf("replay should hit already_reconciled, got %+v", replay.Targets)
	}

	// 重放不得双重记账
	var account models.RoomAccount
	if err := db.Where("account_no = ?", "RA-101").First(&account).Error; err != nil {
		t.Fatalf("load account failed: %v", err)
	}
	if account.TotalPaid != 4500 || account.Balance != 0 {
		t.Fatalf("replay changed totals: paid=%d balance=%d", account.TotalPaid, account.Balance)
	}
	var invoice models.RoomInvoice
	if err := db.Where("invoice_no = ?", "INV-1").First(&invoice).Error; err != nil {
		t.Fatalf("load invoice failed: %v", err)
	}
	if invoice.Billing.PaidAmount != 4500 {
		t.Fatalf("replay changed paid amount: %d", invoice.Billing.PaidAmount)
	}

	var reconCount int64
	if err := db.Model(&models.Reconciliation{}).Count(&reconCount).Error; err != nil {
		t.Fatalf("count reconciliations failed: %v", err)
	}
	if reconCount != 1 {
		t.Fatalf("replay should reuse the reconciliation row, got %d rows", reconCount)
	}
}

func TestReconcileSignatureMismatchWritesNothing(t *testing.T) {
	db := setupReconcileDB(t)
	seedAccountWithInvoice(t, db, "RA-101", "INV-1", 4500)
	gw := &fakeGateway{valid: false, payment: capturedPayment("order_abc", 4500)}
	svc := newReconcileService(db, gw, time.Minute)

	_, err := svc.Reconcile(ReconcileInput{
		GatewayPaymentID: "pay_xyz",
		GatewayOrderID:   "order_abc",
		Signature:        "forged",
		Target:           TargetSpec{RoomInvoiceNos: []string{"INV-1"}},
	})
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
	if atomic.LoadInt32(&gw.fetchCalls) != 0 {
		t.Fatalf("gateway must not be queried before signature passes")
	}

	var invoice models.RoomInvoice
	if err := db.Where("invoice_no = ?", "INV-1").First(&invoice).Error; err != nil {
		t.Fatalf("load invoice failed: %v", err)
	}
	if invoice.Billing.PaymentStatus != constants.PaymentStatusPending {
		t.Fatalf("invoice must stay pending, got %s", invoice.Billing.PaymentStatus)
	}
	var reconCount int64
	if err := db.Model(&models.Reconciliation{}).Count(&reconCount).Error; err != nil {
		t.Fatalf("count reconciliations failed: %v", err)
	}
	if reconCount != 0 {
		t.Fatalf("no reconciliation row should exist, got %d", reconCount)
	}
}

func TestReconcileSplitsAmountAcrossTargets(t *testing.T) {
	db := setupReconcileDB(t)
	seedAccountWithInvoice(t, db, "RA-101", "INV-1", 50)
	if err := db.Create(&models.RoomInvoice{
		InvoiceNo:     "INV-2",
		RoomAccountNo: "RA-101",
		Billing:       models.Billing{AmountDue: 50, PaymentStatus: constants.PaymentStatusPending},
	}).Error; err != nil {
		t.Fatalf("seed second invoice failed: %v", err)
	}
	if err := db.Create(&models.LedgerEntry{
		AccountNo: "RA-101", RecordType: constants.RecordTypeRoomInvoice, RecordNo: "INV-2",
		Bucket: constants.LedgerBucketUnpaid, Amount: 50,
	}).Error; err != nil {
		t.Fatalf("seed second ledger entry failed: %v", err)
	}
	if err := db.Create(&models.RoomInvoice{
		InvoiceNo:     "INV-3",
		RoomAccountNo: "RA-101",
		Billing:       models.Billing{AmountDue: 50, PaymentStatus: constants.PaymentStatusPending},
	}).Error; err != nil {
		t.Fatalf("seed third invoice failed: %v", err)
	}
	if err := db.Create(&models.LedgerEntry{
		AccountNo: "RA-101", RecordType: constants.RecordTypeRoomInvoice, RecordNo: "INV-3",
		Bucket: constants.LedgerBucketUnpaid, Amount: 50,
	}).Error; err != nil {
		t.Fatalf("seed third ledger entry failed: %v", err)
	}

	gw := &fakeGateway{valid: true, payment: capturedPayment("order_abc", 100)}
	svc := newReconcileService(db, gw, time.Minute)

	result, err := svc.Reconcile(ReconcileInput{
		GatewayPaymentID: "pay_xyz",
		GatewayOrderID:   "order_abc",
		Signature:        "sig",
		Target:           TargetSpec{RoomInvoiceNos: []string{"INV-1", "INV-2", "INV-3"}},
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if len(result.Targets) != 3 {
		t.Fatalf("expected 3 targets, got %+v", result.Targets)
	}
	if result.Targets[0].Amount != 33 || result.Targets[1].Amount != 33 || result.Targets[2].Amount != 34 {
		t.Fatalf("unexpected split: %+v", result.Targets)
	}

	var total int64
	for _, no := range []string{"INV-1", "INV-2", "INV-3"} {
		var invoice models.RoomInvoice
		if err := db.Where("invoice_no = ?", no).First(&invoice).Error; err != nil {
			t.Fatalf("load invoice %s failed: %v", no, err)
		}
		total += invoice.Billing.PaidAmount.Int64()
	}
	if total != 100 {
		t.Fatalf("paid amounts must sum to captured amount, got %d", total)
	}
}

func TestReconcileLedgerInconsistencyIsIsolated(t *testing.T) {
	db := setupReconcileDB(t)
	seedAccountWithInvoice(t, db, "RA-101", "INV-1", 100)
	// INV-2 挂账但没有未付分录
	if err := db.Create(&models.RoomInvoice{
		InvoiceNo:     "INV-2",
		RoomAccountNo: "RA-101",
		Billing:       models.Billing{AmountDue: 100, PaymentStatus: constants.PaymentStatusPending},
	}).Error; err != nil {
		t.Fatalf("seed second invoice failed: %v", err)
	}

	if err := db.Create(&models.RoomInvoice{
		InvoiceNo:     "INV-3",
		RoomAccountNo: "RA-101",
		Billing:       models.Billing{AmountDue: 100, PaymentStatus: constants.PaymentStatusPending},
	}).Error; err != nil {
		t.Fatalf("seed third invoice failed: %v", err)
	}
	if err := db.Create(&models.LedgerEntry{
		AccountNo: "RA-101", RecordType: constants.RecordTypeRoomInvoice, RecordNo: "INV-3",
		Bucket: constants.LedgerBucketUnpaid, Amount: 100,
	}).Error; err != nil {
		t.Fatalf("seed third ledger entry failed: %v", err)
	}

	gw := &fakeGateway{valid: true, payment: capturedPayment("order_abc", 300)}
	svc := newReconcileService(db, gw, time.Minute)

	result, err := svc.Reconcile(ReconcileInput{
		GatewayPaymentID: "pay_xyz",
		GatewayOrderID:   "order_abc",
		Signature:        "sig",
		Target:           TargetSpec{RoomInvoiceNos: []string{"INV-1", "INV-2", "INV-3"}},
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	// 中间目标缺分录不影响前后目标
	if result.Targets[0].Outcome != constants.OutcomeSuccess {
		t.Fatalf("first target should succeed, got %+v", result.Targets[0])
	}
	if result.Targets[1].Outcome != constants.OutcomeLedgerInconsistency {
		t.Fatalf("expected ledger_inconsistency, got %+v", result.Targets[1])
	}
	if result.Targets[2].Outcome != constants.OutcomeSuccess {
		t.Fatalf("last target should succeed, got %+v", result.Targets[2])
	}
	if !result.OverallSuccess {
		t.Fatalf("surviving successes should make overall success true")
	}

	// 不一致目标的记录仍然标记已付，账本留待修复
	var inv2 models.RoomInvoice
	if err := db.Where("invoice_no = ?", "INV-2").First(&inv2).Error; err != nil {
		t.Fatalf("load invoice failed: %v", err)
	}
	if inv2.Billing.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("record paid flag should commit despite ledger gap, got %s", inv2.Billing.PaymentStatus)
	}

	// 房账汇总只反映成功移动的目标
	var account models.RoomAccount
	if err := db.Where("account_no = ?", "RA-101").First(&account).Error; err != nil {
		t.Fatalf("load account failed: %v", err)
	}
	if account.TotalPaid != 200 {
		t.Fatalf("totals should only include moved entries, got %d", account.TotalPaid)
	}
}

func TestReconcileWithoutRoomAccountSkipsLedger(t *testing.T) {
	db := setupReconcileDB(t)
	if err := db.Create(&models.FoodInvoice{
		InvoiceNo: "FI-1",
		Billing:   models.Billing{AmountDue: 320, PaymentStatus: constants.PaymentStatusPending},
	}).Error; err != nil {
		t.Fatalf("seed food invoice failed: %v", err)
	}
	gw := &fakeGateway{valid: true, payment: capturedPayment("order_abc", 320)}
	svc := newReconcileService(db, gw, time.Minute)

	result, err := svc.Reconcile(ReconcileInput{
		GatewayPaymentID: "pay_xyz",
		GatewayOrderID:   "order_abc",
		Signature:        "sig",
		Target:           TargetSpec{RecordType: constants.RecordTypeFoodInvoice, RecordNo: "FI-1"},
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Targets[0].Outcome != constants.OutcomeSuccess {
		t.Fatalf("expected success, got %+v", result.Targets[0])
	}
	var ledgerCount int64
	if err := db.Model(&models.LedgerEntry{}).Count(&ledgerCount).Error; err != nil {
		t.Fatalf("count ledger entries failed: %v", err)
	}
	if ledgerCount != 0 {
		t.Fatalf("records without room account must not touch the ledger")
	}
}

func TestReconcileDeadlineSkipsTargets(t *testing.T) {
	db := setupReconcileDB(t)
	seedAccountWithInvoice(t, db, "RA-101", "INV-1", 100)
	gw := &fakeGateway{valid: true, payment: capturedPayment("order_abc", 100)}
	svc := newReconcileService(db, gw, time.Nanosecond)

	result, err := svc.Reconcile(ReconcileInput{
		GatewayPaymentID: "pay_xyz",
		GatewayOrderID:   "order_abc",
		Signature:        "sig",
		Target:           TargetSpec{RoomInvoiceNos: []string{"INV-1"}},
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Targets[0].Outcome != constants.OutcomeDeadlineSkipped {
		t.Fatalf("expected deadline_skipped, got %+v", result.Targets[0])
	}
	var invoice models.RoomInvoice
	if err := db.Where("invoice_no = ?", "INV-1").First(&invoice).Error; err != nil {
		t.Fatalf("load invoice failed: %v", err)
	}
	if invoice.Billing.PaymentStatus != constants.PaymentStatusPending {
		t.Fatalf("skipped target must stay pending, got %s", invoice.Billing.PaymentStatus)
	}
}

func TestReconcileGatewayUnavailable(t *testing.T) {
	db := setupReconcileDB(t)
	seedAccountWithInvoice(t, db, "RA-101", "INV-1", 100)
	gw := &fakeGateway{valid: true, fetchErr: razorpay.ErrGatewayUnavailable}
	svc := newReconcileService(db, gw, time.Minute)

	_, err := svc.Reconcile(ReconcileInput{
		GatewayPaymentID: "pay_xyz",
		GatewayOrderID:   "order_abc",
		Signature:        "sig",
		Target:           TargetSpec{RoomInvoiceNos: []string{"INV-1"}},
	})
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestReconcileRejectsOrderMismatch(t *testing.T) {
	db := setupReconcileDB(t)
	seedAccountWithInvoice(t, db, "RA-101", "INV-1", 100)
	gw := &fakeGateway{valid: true, payment: capturedPayment("order_other", 100)}
	svc := newReconcileService(db, gw, time.Minute)

	_, err := svc.Reconcile(ReconcileInput{
		GatewayPaymentID: "pay_xyz",
		GatewayOrderID:   "order_abc",
		Signature:        "sig",
		Target:           TargetSpec{RoomInvoiceNos: []string{"INV-1"}},
	})
	if !errors.Is(err, ErrReconcileInvalid) {
		t.Fatalf("expected ErrReconcileInvalid, got %v", err)
	}
}

func TestReconcileValidatesInput(t *testing.T) {
	db := setupReconcileDB(t)
	gw := &fakeGateway{valid: true}
	svc := newReconcileService(db, gw, time.Minute)

	cases := []ReconcileInput{
		{GatewayOrderID: "order_abc", Signature: "sig", Target: TargetSpec{OrderNo: "RO-1"}},
		{GatewayPaymentID: "pay_xyz", Signature: "sig", Target: TargetSpec{OrderNo: "RO-1"}},
		{GatewayPaymentID: "pay_xyz", GatewayOrderID: "order_abc", Target: TargetSpec{OrderNo: "RO-1"}},
		{GatewayPaymentID: "pay_xyz", GatewayOrderID: "order_abc", Signature: "sig"},
	}
	for i, input := range cases {
		if _, err := svc.Reconcile(input); !errors.Is(err, ErrReconcileInvalid) {
			t.Fatalf("case %d: expected ErrReconcileInvalid, got %v", i, err)
		}
	}
}

func TestRepairLedgerMovesUnpaidEntry(t *testing.T) {
	db := setupReconcileDB(t)
	seedAccountWithInvoice(t, db, "RA-101", "INV-1", 100)
	// 记录已付但分录仍留在未付桶
	if err := db.Model(&models.RoomInvoice{}).Where("invoice_no = ?", "INV-1").
		Updates(map[string]interface{}{"payment_status": constants.PaymentStatusPaid, "paid_amount": 100, "amount_due": 0}).Error; err != nil {
		t.Fatalf("mark invoice paid failed: %v", err)
	}
	gw := &fakeGateway{valid: true}
	svc := newReconcileService(db, gw, time.Minute)

	payload := queue.LedgerRepairPayload{
		AccountNo:  "RA-101",
		RecordType: constants.RecordTypeRoomInvoice,
		RecordNo:   "INV-1",
		Amount:     100,
	}
	if err := svc.RepairLedger(payload); err != nil {
		t.Fatalf("repair failed: %v", err)
	}
	var entry models.LedgerEntry
	if err := db.Where("account_no = ? AND record_no = ?", "RA-101", "INV-1").First(&entry).Error; err != nil {
		t.Fatalf("load entry failed: %v", err)
	}
	if entry.Bucket != constants.LedgerBucketPaid {
		t.Fatalf("repair should move entry to paid bucket, got %s", entry.Bucket)
	}
	var account models.RoomAccount
	if err := db.Where("account_no = ?", "RA-101").First(&account).Error; err != nil {
		t.Fatalf("load account failed: %v", err)
	}
	if account.TotalPaid != 100 || account.Balance != 0 {
		t.Fatalf("repair should update totals: paid=%d balance=%d", account.TotalPaid, account.Balance)
	}
}

func TestRepairLedgerMissingEntryNeedsManualFollowup(t *testing.T) {
	db := setupReconcileDB(t)
	if err := db.Create(&models.RoomAccount{AccountNo: "RA-101"}).Error; err != nil {
		t.Fatalf("seed account failed: %v", err)
	}
	if err := db.Create(&models.RoomInvoice{
		InvoiceNo:     "INV-1",
		RoomAccountNo: "RA-101",
		Billing:       models.Billing{AmountDue: 0, PaidAmount: 100, PaymentStatus: constants.PaymentStatusPaid},
	}).Error; err != nil {
		t.Fatalf("seed invoice failed: %v", err)
	}
	gw := &fakeGateway{valid: true}
	svc := newReconcileService(db, gw, time.Minute)

	// 分录完全缺失：打日志放行，不报错也不变更数据
	payload := queue.LedgerRepairPayload{
		AccountNo:  "RA-101",
		RecordType: constants.RecordTypeRoomInvoice,
		RecordNo:   "INV-1",
		Amount:     100,
	}
	if err := svc.RepairLedger(payload); err != nil {
		t.Fatalf("missing entry should not fail the task: %v", err)
	}
	var count int64
	if err := db.Model(&models.LedgerEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("count entries failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("repair must not fabricate ledger entries")
	}
}
