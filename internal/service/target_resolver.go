package service

import (
	"fmt"
	"strings"

	"github.com/atithi-next/internal/constants"
	"github.com/atithi-next/internal/models"
	"github.com/atithi-next/internal/repository"
)

// TargetSpec 对账目标描述（字段可组合出现）
type TargetSpec struct {
	RecordType     string   // 显式记录类型（与 RecordNo 成对）
	RecordNo       string   // 显式记录编号
	OrderNo        string   // 单笔挂账订单编号
	OrderNos       []string // 账单编号列表（先查客房账单，再查餐厅账单）
	RoomInvoiceNos []string // 客房账单编号列表（只查客房账单）
}

// IsEmpty 是否未指定任何目标
func (s TargetSpec) IsEmpty() bool {
	return strings.TrimSpace(s.RecordType) == "" &&
		strings.TrimSpace(s.RecordNo) == "" &&
		strings.TrimSpace(s.OrderNo) == "" &&
		len(s.OrderNos) == 0 &&
		len(s.RoomInvoiceNos) == 0
}

// ToJSON 转为可落库的目标描述
func (s TargetSpec) ToJSON() models.JSON {
	out := models.JSON{}
	if strings.TrimSpace(s.RecordType) != "" {
		out["record_type"] = strings.TrimSpace(s.RecordType)
	}
	if strings.TrimSpace(s.RecordNo) != "" {
		out["record_no"] = strings.TrimSpace(s.RecordNo)
	}
	if strings.TrimSpace(s.OrderNo) != "" {
		out["order_no"] = strings.TrimSpace(s.OrderNo)
	}
	if len(s.OrderNos) > 0 {
		out["order_nos"] = s.OrderNos
	}
	if len(s.RoomInvoiceNos) > 0 {
		out["room_invoice_nos"] = s.RoomInvoiceNos
	}
	return out
}

// TargetResolver 对账目标解析器
type TargetResolver struct {
	recordRepo repository.RecordRepository
}

// NewTargetResolver 创建目标解析器
func NewTargetResolver(recordRepo repository.RecordRepository) *TargetResolver {
	return &TargetResolver{recordRepo: recordRepo}
}

// Resolve 将目标描述解析为去重后的记录引用集合
//
// 单个编号解析失败进入 unresolved（非致命）；
// 解析结果按出现顺序稳定排序并按 (type, no) 去重；
// 合并后为空集时返回 ErrNoMatchingTarget。
func (r *TargetResolver) Resolve(spec TargetSpec) ([]models.RecordRef, []string, error) {
	seen := make(map[models.RecordRef]struct{})
	targets := make([]models.RecordRef, 0)
	unresolved := make([]string, 0)

	add := func(ref models.RecordRef) {
		if _, ok := seen[ref]; ok {
			return
		}
		seen[ref] = struct{}{}
		targets = append(targets, ref)
	}

	explicitType := strings.TrimSpace(spec.RecordType)
	explicitNo := strings.TrimSpace(spec.RecordNo)
	orderNo := strings.TrimSpace(spec.OrderNo)

	switch {
	case explicitType != "" || explicitNo != "":
		if explicitType == "" || explicitNo == "" {
			return nil, nil, fmt.Errorf("%w: record type and no must be paired", ErrReconcileInvalid)
		}
		if !constants.IsRecordTypeValid(explicitType) {
			return nil, nil, fmt.Errorf("%w: unknown record type %s", ErrReconcileInvalid, explicitType)
		}
		record, err := r.recordRepo.FindByRef(explicitType, explicitNo)
		if err != nil {
			return nil, nil, err
		}
		if record == nil {
			unresolved = append(unresolved, explicitNo)
		} else {
			add(record.Ref())
		}
	case orderNo != "":
		record, err := r.recordRepo.FindByRef(constants.RecordTypeRunningOrder, orderNo)
		if err != nil {
			return nil, nil, err
		}
		if record == nil {
			unresolved = append(unresolved, orderNo)
		} else {
			add(record.Ref())
		}
	}

	// 账单列表：客房账单优先，查不到回落到餐厅账单
	for _, no := range spec.OrderNos {
		no = strings.TrimSpace(no)
		if no == "" {
			continue
		}
		record, err := r.recordRepo.FindByRef(constants.RecordTypeRoomInvoice, no)
		if err != nil {
			return nil, nil, err
		}
		if record == nil {
			record, err = r.recordRepo.FindByRef(constants.RecordTypeRestaurantInvoice, no)
			if err != nil {
				return nil, nil, err
			}
		}
		if record == nil {
			unresolved = append(unresolved, no)
			continue
		}
		add(record.Ref())
	}

	// 客房账单列表：只查客房账单
	for _, no := range spec.RoomInvoiceNos {
		no = strings.TrimSpace(no)
		if no == "" {
			continue
		}
		record, err := r.recordRepo.FindByRef(constants.RecordTypeRoomInvoice, no)
		if err != nil {
			return nil, nil, err
		}
		if record == nil {
			unresolved = append(unresolved, no)
			continue
		}
		add(record.Ref())
	}

	if len(targets) == 0 {
		return nil, unresolved, ErrNoMatchingTarget
	}
	return targets, unresolved, nil
}
