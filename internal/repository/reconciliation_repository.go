package repository

import (
	"errors"
	"strings"

	"github.com/atithi-next/internal/models"

	"gorm.io/gorm"
)

// ReconciliationRepository 对账记录数据访问接口
type ReconciliationRepository interface {
	CreateOrGet(recon *models.Reconciliation) (*models.Reconciliation, bool, error)
	Update(recon *models.Reconciliation) error
	GetByKey(gatewayOrderID, gatewayPaymentID string) (*models.Reconciliation, error)
	GetLatestByGatewayOrderID(gatewayOrderID string) (*models.Reconciliation, error)
	WithTx(tx *gorm.DB) *GormReconciliationRepository
}

// GormReconciliationRepository GORM 实现
type GormReconciliationRepository struct {
	db *gorm.DB
}

// NewReconciliationRepository 创建对账仓库
func NewReconciliationRepository(db *gorm.DB) *GormReconciliationRepository {
	return &GormReconciliationRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReconciliationRepository) WithTx(tx *gorm.DB) *GormReconciliationRepository {
	if tx == nil {
		return r
	}
	return &GormReconciliationRepository{db: tx}
}

// CreateOrGet 以 (gateway_order_id, gateway_payment_id) 为幂等键创建对账记录
//
// 已存在时返回现有记录与 false；并发竞争插入失败后回读取胜者。
func (r *GormReconciliationRepository) CreateOrGet(recon *models.Reconciliation) (*models.Reconciliation, bool, error) {
	if recon == nil {
		return nil, false, errors.New("reconciliation is nil")
	}
	existing, err := r.GetByKey(recon.GatewayOrderID, recon.GatewayPaymentID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	if err := r.db.Create(recon).Error; err != nil {
		// 唯一索引冲突说明并发请求已抢先写入
		existing, getErr := r.GetByKey(recon.GatewayOrderID, recon.GatewayPaymentID)
		if getErr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	return recon, true, nil
}

// Update 更新对账记录
func (r *GormReconciliationRepository) Update(recon *models.Reconciliation) error {
	return r.db.Save(recon).Error
}

// GetByKey 按幂等键读取，未找到返回 nil
func (r *GormReconciliationRepository) GetByKey(gatewayOrderID, gatewayPaymentID string) (*models.Reconciliation, error) {
	var recon models.Reconciliation
	err := r.db.Where("gateway_order_id = ? AND gateway_payment_id = ?",
		strings.TrimSpace(gatewayOrderID), strings.TrimSpace(gatewayPaymentID)).First(&recon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &recon, nil
}

// GetLatestByGatewayOrderID 按网关订单号读取最新一次对账
func (r *GormReconciliationRepository) GetLatestByGatewayOrderID(gatewayOrderID string) (*models.Reconciliation, error) {
	gatewayOrderID = strings.TrimSpace(gatewayOrderID)
	if gatewayOrderID == "" {
		return nil, nil
	}
	var recon models.Reconciliation
	result := r.db.Where("gateway_order_id = ?", gatewayOrderID).Order("id desc").Limit(1).Find(&recon)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &recon, nil
}
