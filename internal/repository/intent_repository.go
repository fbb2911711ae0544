package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/atithi-next/internal/constants"
	"github.com/atithi-next/internal/models"

	"gorm.io/gorm"
)

// IntentRepository 支付意向数据访问接口
type IntentRepository interface {
	Create(intent *models.PaymentIntent) error
	GetByID(id uint) (*models.PaymentIntent, error)
	GetByGatewayOrderID(gatewayOrderID string) (*models.PaymentIntent, error)
	MarkCaptured(gatewayOrderID string, capturedAt time.Time) (int64, error)
	ExpireStale(before time.Time) (int64, error)
	WithTx(tx *gorm.DB) *GormIntentRepository
}

// GormIntentRepository GORM 实现
type GormIntentRepository struct {
	db *gorm.DB
}

// NewIntentRepository 创建支付意向仓库
func NewIntentRepository(db *gorm.DB) *GormIntentRepository {
	return &GormIntentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormIntentRepository) WithTx(tx *gorm.DB) *GormIntentRepository {
	if tx == nil {
		return r
	}
	return &GormIntentRepository{db: tx}
}

// Create 创建支付意向
func (r *GormIntentRepository) Create(intent *models.PaymentIntent) error {
	return r.db.Create(intent).Error
}

// GetByID 按 ID 读取，未找到返回 nil
func (r *GormIntentRepository) GetByID(id uint) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.db.First(&intent, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &intent, nil
}

// GetByGatewayOrderID 按网关订单号读取，未找到返回 nil
func (r *GormIntentRepository) GetByGatewayOrderID(gatewayOrderID string) (*models.PaymentIntent, error) {
	gatewayOrderID = strings.TrimSpace(gatewayOrderID)
	if gatewayOrderID == "" {
		return nil, nil
	}
	var intent models.PaymentIntent
	if err := r.db.Where("gateway_order_id = ?", gatewayOrderID).First(&intent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &intent, nil
}

// MarkCaptured 将 created 状态的意向置为 captured（条件更新）
func (r *GormIntentRepository) MarkCaptured(gatewayOrderID string, capturedAt time.Time) (int64, error) {
	result := r.db.Model(&models.PaymentIntent{}).
		Where("gateway_order_id = ? AND status = ?", strings.TrimSpace(gatewayOrderID), constants.IntentStatusCreated).
		Updates(map[string]interface{}{
			"status":      constants.IntentStatusCaptured,
			"captured_at": capturedAt,
			"updated_at":  capturedAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ExpireStale 将超期未捕获的意向批量置为 expired
func (r *GormIntentRepository) ExpireStale(before time.Time) (int64, error) {
	now := time.Now()
	result := r.db.Model(&models.PaymentIntent{}).
		Where("status = ? AND created_at < ?", constants.IntentStatusCreated, before).
		Updates(map[string]interface{}{
			"status":     constants.IntentStatusExpired,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
