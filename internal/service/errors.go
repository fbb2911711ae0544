package service

import (
	"errors"

	"github.com/atithi-next/internal/logger"

	"go.uber.org/zap"
)

var (
	// ErrReconcileInvalid 对账请求参数非法
	ErrReconcileInvalid = errors.New("reconcile request invalid")
	// ErrSignatureMismatch 回调签名校验失败（拒绝，无任何写入）
	ErrSignatureMismatch = errors.New("signature mismatch")
	// ErrGatewayUnavailable 网关暂不可用（可重试，无任何写入）
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	// ErrNoMatchingTarget 未解析到任何对账目标
	ErrNoMatchingTarget = errors.New("no matching reconciliation target")
	// ErrReconcileFailed 对账处理失败
	ErrReconcileFailed = errors.New("reconcile failed")
	// ErrIntentInvalid 支付意向参数非法
	ErrIntentInvalid = errors.New("payment intent invalid")
	// ErrIntentCreateFailed 支付意向创建失败
	ErrIntentCreateFailed = errors.New("payment intent create failed")
	// ErrIntentNotFound 支付意向不存在
	ErrIntentNotFound = errors.New("payment intent not found")
	// ErrReconciliationNotFound 对账记录不存在
	ErrReconciliationNotFound = errors.New("reconciliation not found")
)

func reconcileLogger(kv ...interface{}) *zap.SugaredLogger {
	return logger.SW(kv...)
}
