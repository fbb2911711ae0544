package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atithi-next/internal/constants"
	"github.com/atithi-next/internal/models"

	"gorm.io/gorm"
)

// ErrRecordTypeInvalid 未知的账务记录类型
var ErrRecordTypeInvalid = errors.New("record type invalid")

// PaymentUpdate 记录标记已付时写入的网关支付字段
type PaymentUpdate struct {
	PaidAmount       models.Money
	GatewayPaymentID string
	GatewayOrderID   string
	GatewaySignature string
	PaidAt           time.Time
}

// RecordRepository 账务记录数据访问接口（四类记录的统一入口）
type RecordRepository interface {
	FindByRef(recordType, recordNo string) (*models.FinancialRecord, error)
	MarkPaid(recordType, recordNo, expectedStatus string, update PaymentUpdate) (int64, error)
	WithTx(tx *gorm.DB) *GormRecordRepository
}

// GormRecordRepository GORM 实现
type GormRecordRepository struct {
	db *gorm.DB
}

// NewRecordRepository 创建账务记录仓库
func NewRecordRepository(db *gorm.DB) *GormRecordRepository {
	return &GormRecordRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRecordRepository) WithTx(tx *gorm.DB) *GormRecordRepository {
	if tx == nil {
		return r
	}
	return &GormRecordRepository{db: tx}
}

// recordTable 记录类型到表模型与编号列的映射
type recordTable struct {
	model    interface{}
	noColumn string
}

func tableFor(recordType string) (recordTable, error) {
	switch recordType {
	case constants.RecordTypeRunningOrder:
		return recordTable{model: &models.RunningOrder{}, noColumn: "order_no"}, nil
	case constants.RecordTypeRoomInvoice:
		return recordTable{model: &models.RoomInvoice{}, noColumn: "invoice_no"}, nil
	case constants.RecordTypeRestaurantInvoice:
		return recordTable{model: &models.RestaurantInvoice{}, noColumn: "invoice_no"}, nil
	case constants.RecordTypeFoodInvoice:
		return recordTable{model: &models.FoodInvoice{}, noColumn: "invoice_no"}, nil
	default:
		return recordTable{}, fmt.Errorf("%w: %s", ErrRecordTypeInvalid, recordType)
	}
}

// FindByRef 按类型与业务编号读取记录快照，未找到返回 nil
func (r *GormRecordRepository) FindByRef(recordType, recordNo string) (*models.FinancialRecord, error) {
	recordNo = strings.TrimSpace(recordNo)
	if recordNo == "" {
		return nil, nil
	}
	switch recordType {
	case constants.RecordTypeRunningOrder:
		var row models.RunningOrder
		found, err := r.first(&row, "order_no", recordNo)
		if err != nil || !found {
			return nil, err
		}
		return snapshot(recordType, row.OrderNo, row.Billing, row.RoomAccountNo), nil
	case constants.RecordTypeRoomInvoice:
		var row models.RoomInvoice
		found, err := r.first(&row, "invoice_no", recordNo)
		if err != nil || !found {
			return nil, err
		}
		return snapshot(recordType, row.InvoiceNo, row.Billing, row.RoomAccountNo), nil
	case constants.RecordTypeRestaurantInvoice:
		var row models.RestaurantInvoice
		found, err := r.first(&row, "invoice_no", recordNo)
		if err != nil || !found {
			return nil, err
		}
		return snapshot(recordType, row.InvoiceNo, row.Billing, row.RoomAccountNo), nil
	case constants.RecordTypeFoodInvoice:
		var row models.FoodInvoice
		found, err := r.first(&row, "invoice_no", recordNo)
		if err != nil || !found {
			return nil, err
		}
		return snapshot(recordType, row.InvoiceNo, row.Billing, ""), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrRecordTypeInvalid, recordType)
	}
}

func (r *GormRecordRepository) first(dest interface{}, noColumn, recordNo string) (bool, error) {
	err := r.db.Where(noColumn+" = ?", recordNo).First(dest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func snapshot(recordType, recordNo string, billing models.Billing, roomAccountNo string) *models.FinancialRecord {
	return &models.FinancialRecord{
		Type:          recordType,
		No:            recordNo,
		AmountDue:     billing.AmountDue,
		PaidAmount:    billing.PaidAmount,
		PaymentStatus: billing.PaymentStatus,
		RoomAccountNo: strings.TrimSpace(roomAccountNo),
	}
}

// MarkPaid 以期望状态为条件将记录置为已付（条件更新，返回影响行数）
//
// WHERE 条件带上 expectedStatus，两个并发对账只有一个能改到行。
func (r *GormRecordRepository) MarkPaid(recordType, recordNo, expectedStatus string, update PaymentUpdate) (int64, error) {
	table, err := tableFor(recordType)
	if err != nil {
		return 0, err
	}
	paidAt := update.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	result := r.db.Model(table.model).
		Where(table.noColumn+" = ? AND payment_status = ?", strings.TrimSpace(recordNo), expectedStatus).
		Updates(map[string]interface{}{
			"payment_status":     constants.PaymentStatusPaid,
			"paid_amount":        update.PaidAmount,
			"amount_due":         0,
			"gateway_payment_id": update.GatewayPaymentID,
			"gateway_order_id":   update.GatewayOrderID,
			"gateway_signature":  update.GatewaySignature,
			"paid_at":            paidAt,
			"updated_at":         paidAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
