package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/atithi-next/internal/constants"
	"github.com/atithi-next/internal/models"

	"gorm.io/gorm"
)

// LedgerRepository 房账数据访问接口
//
// PullUnpaid / PushPaid / IncrementTotals 均为单行操作并各自返回影响行数，
// 调用方据此识别账本不一致（某一步影响 0 行）。
type LedgerRepository interface {
	GetAccount(accountNo string) (*models.RoomAccount, error)
	GetEntry(accountNo, recordType, recordNo string) (*models.LedgerEntry, error)
	PullUnpaid(accountNo, recordType, recordNo string) (int64, error)
	PushPaid(entry *models.LedgerEntry) (int64, error)
	IncrementTotals(accountNo string, amount models.Money) (int64, error)
	WithTx(tx *gorm.DB) *GormLedgerRepository
}

// GormLedgerRepository GORM 实现
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository 创建房账仓库
func NewLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLedgerRepository) WithTx(tx *gorm.DB) *GormLedgerRepository {
	if tx == nil {
		return r
	}
	return &GormLedgerRepository{db: tx}
}

// GetAccount 按房账编号读取账户，未找到返回 nil
func (r *GormLedgerRepository) GetAccount(accountNo string) (*models.RoomAccount, error) {
	accountNo = strings.TrimSpace(accountNo)
	if accountNo == "" {
		return nil, nil
	}
	var account models.RoomAccount
	if err := r.db.Where("account_no = ?", accountNo).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetEntry 读取指定记录的账本分录，未找到返回 nil
func (r *GormLedgerRepository) GetEntry(accountNo, recordType, recordNo string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.Where("account_no = ? AND record_type = ? AND record_no = ?",
		strings.TrimSpace(accountNo), recordType, strings.TrimSpace(recordNo)).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// PullUnpaid 从未付桶移除指定记录的分录，返回影响行数
func (r *GormLedgerRepository) PullUnpaid(accountNo, recordType, recordNo string) (int64, error) {
	result := r.db.Where("account_no = ? AND record_type = ? AND record_no = ? AND bucket = ?",
		strings.TrimSpace(accountNo), recordType, strings.TrimSpace(recordNo), constants.LedgerBucketUnpaid).
		Delete(&models.LedgerEntry{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// PushPaid 向已付桶写入分录，返回影响行数
func (r *GormLedgerRepository) PushPaid(entry *models.LedgerEntry) (int64, error) {
	if entry == nil {
		return 0, nil
	}
	entry.Bucket = constants.LedgerBucketPaid
	if err := r.db.Create(entry).Error; err != nil {
		return 0, err
	}
	return 1, nil
}

// IncrementTotals 更新房账汇总：已付总额增加、未付余额减少
func (r *GormLedgerRepository) IncrementTotals(accountNo string, amount models.Money) (int64, error) {
	now := time.Now()
	result := r.db.Model(&models.RoomAccount{}).
		Where("account_no = ?", strings.TrimSpace(accountNo)).
		Updates(map[string]interface{}{
			"total_paid": gorm.Expr("total_paid + ?", amount.Int64()),
			"balance":    gorm.Expr("balance - ?", amount.Int64()),
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
