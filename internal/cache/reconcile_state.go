package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atithi-next/internal/models"
)

const reconcileStateCacheTTL = 10 * time.Minute

func reconcileStateKey(gatewayOrderID string) string {
	return fmt.Sprintf("reconcile:order:%s", strings.TrimSpace(gatewayOrderID))
}

// GetReconcileState 获取对账结果快照
// 仅作为查询接口的读加速，权威数据始终在数据库
func GetReconcileState(ctx context.Context, gatewayOrderID string) (*models.Reconciliation, bool, error) {
	if strings.TrimSpace(gatewayOrderID) == "" {
		return nil, false, nil
	}
	var recon models.Reconciliation
	hit, err := GetJSON(ctx, reconcileStateKey(gatewayOrderID), &recon)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &recon, true, nil
}

// SetReconcileState 写入对账结果快照
func SetReconcileState(ctx context.Context, recon *models.Reconciliation) error {
	if recon == nil || strings.TrimSpace(recon.GatewayOrderID) == "" {
		return nil
	}
	return SetJSON(ctx, reconcileStateKey(recon.GatewayOrderID), recon, reconcileStateCacheTTL)
}

// DelReconcileState 删除对账结果快照
func DelReconcileState(ctx context.Context, gatewayOrderID string) error {
	if strings.TrimSpace(gatewayOrderID) == "" {
		return nil
	}
	return Del(ctx, reconcileStateKey(gatewayOrderID))
}
