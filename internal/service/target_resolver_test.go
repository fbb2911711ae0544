package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/atithi-next/internal/constants"
	"github.com/atithi-next/internal/models"
	"github.com/atithi-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupResolverDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:target_resolver_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.RunningOrder{},
		&models.RoomInvoice{},
		&models.RestaurantInvoice{},
		&models.FoodInvoice{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func seedResolverRecords(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := db.Create(&models.RunningOrder{
		OrderNo:       "RO-1",
		RoomAccountNo: "RA-101",
		Billing:       models.Billing{AmountDue: 640, PaymentStatus: constants.PaymentStatusPending},
	}).Error; err != nil {
		t.Fatalf("seed running order failed: %v", err)
	}
	if err := db.Create(&models.RoomInvoice{
		InvoiceNo:     "INV-1",
		RoomAccountNo: "RA-101",
		Billing:       models.Billing{AmountDue: 4500, PaymentStatus: constants.PaymentStatusPending},
	}).Error; err != nil {
		t.Fatalf("seed room invoice failed: %v", err)
	}
	if err := db.Create(&models.RestaurantInvoice{
		InvoiceNo:     "INV-2",
		RoomAccountNo: "RA-101",
		Billing:       models.Billing{AmountDue: 1280, PaymentStatus: constants.PaymentStatusPending},
	}).Error; err != nil {
		t.Fatalf("seed restaurant invoice failed: %v", err)
	}
}

func TestResolveExplicitPair(t *testing.T) {
	db := setupResolverDB(t)
	seedResolverRecords(t, db)
	resolver := NewTargetResolver(repository.NewRecordRepository(db))

	targets, unresolved, err := resolver.Resolve(TargetSpec{
		RecordType: constants.RecordTypeRunningOrder,
		RecordNo:   "RO-1",
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(unresolved) != 0 {
		t.Fatalf("unexpected unresolved: %v", unresolved)
	}
	if len(targets) != 1 || targets[0].Type != constants.RecordTypeRunningOrder || targets[0].No != "RO-1" {
		t.Fatalf("unexpected targets: %v", targets)
	}
}

func TestResolveExplicitPairMustBePaired(t *testing.T) {
	db := setupResolverDB(t)
	resolver := NewTargetResolver(repository.NewRecordRepository(db))

	if _, _, err := resolver.Resolve(TargetSpec{RecordType: constants.RecordTypeRunningOrder}); !errors.Is(err, ErrReconcileInvalid) {
		t.Fatalf("type without no should be invalid, got %v", err)
	}
	if _, _, err := resolver.Resolve(TargetSpec{RecordNo: "RO-1"}); !errors.Is(err, ErrReconcileInvalid) {
		t.Fatalf("no without type should be invalid, got %v", err)
	}
	if _, _, err := resolver.Resolve(TargetSpec{RecordType: "mystery", RecordNo: "X-1"}); !errors.Is(err, ErrReconcileInvalid) {
		t.Fatalf("unknown record type should be invalid, got %v", err)
	}
}

func TestResolveOrderNoMapsToRunningOrder(t *testing.T) {
	db := setupResolverDB(t)
	seedResolverRecords(t, db)
	resolver := NewTargetResolver(repository.NewRecordRepository(db))

	targets, _, err := resolver.Resolve(TargetSpec{OrderNo: "RO-1"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(targets) != 1 || targets[0].Type != constants.RecordTypeRunningOrder {
		t.Fatalf("unexpected targets: %v", targets)
	}
}

func TestResolveOrderNosFallbackToRestaurant(t *testing.T) {
	db := setupResolverDB(t)
	seedResolverRecords(t, db)
	resolver := NewTargetResolver(repository.NewRecordRepository(db))

	targets, unresolved, err := resolver.Resolve(TargetSpec{
		OrderNos: []string{"INV-1", "INV-2", "INV-404"},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %v", targets)
	}
	if targets[0].Type != constants.RecordTypeRoomInvoice || targets[0].No != "INV-1" {
		t.Fatalf("room invoice should win for INV-1, got %v", targets[0])
	}
	if targets[1].Type != constants.RecordTypeRestaurantInvoice || targets[1].No != "INV-2" {
		t.Fatalf("restaurant fallback expected for INV-2, got %v", targets[1])
	}
	if len(unresolved) != 1 || unresolved[0] != "INV-404" {
		t.Fatalf("unexpected unresolved: %v", unresolved)
	}
}

func TestResolveRoomInvoiceNosDoNotFallBack(t *testing.T) {
	db := setupResolverDB(t)
	seedResolverRecords(t, db)
	resolver := NewTargetResolver(repository.NewRecordRepository(db))

	// INV-2 只存在于餐厅账单，客房账单列表不应回落
	targets, unresolved, err := resolver.Resolve(TargetSpec{
		RoomInvoiceNos: []string{"INV-1", "INV-2"},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(targets) != 1 || targets[0].No != "INV-1" {
		t.Fatalf("unexpected targets: %v", targets)
	}
	if len(unresolved) != 1 || unresolved[0] != "INV-2" {
		t.Fatalf("unexpected unresolved: %v", unresolved)
	}
}

func TestResolveDeduplicatesAcrossFields(t *testing.T) {
	db := setupResolverDB(t)
	seedResolverRecords(t, db)
	resolver := NewTargetResolver(repository.NewRecordRepository(db))

	targets, _, err := resolver.Resolve(TargetSpec{
		OrderNos:       []string{"INV-1"},
		RoomInvoiceNos: []string{"INV-1"},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("expected deduplicated single target, got %v", targets)
	}
}

func TestResolveEmptyResultIsNoMatchingTarget(t *testing.T) {
	db := setupResolverDB(t)
	resolver := NewTargetResolver(repository.NewRecordRepository(db))

	_, unresolved, err := resolver.Resolve(TargetSpec{OrderNos: []string{"INV-404"}})
	if !errors.Is(err, ErrNoMatchingTarget) {
		t.Fatalf("expected ErrNoMatchingTarget, got %v", err)
	}
	if len(unresolved) != 1 || unresolved[0] != "INV-404" {
		t.Fatalf("unexpected unresolved: %v", unresolved)
	}
}
