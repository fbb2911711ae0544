package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atithi-next/internal/constants"
	"github.com/atithi-next/internal/gateway/razorpay"
	"github.com/atithi-next/internal/models"
	"github.com/atithi-next/internal/repository"
)

// IntentService 支付意向服务
type IntentService struct {
	gateway    Gateway
	intentRepo repository.IntentRepository
}

// NewIntentService 创建支付意向服务
func NewIntentService(gateway Gateway, intentRepo repository.IntentRepository) *IntentService {
	return &IntentService{gateway: gateway, intentRepo: intentRepo}
}

// CreateIntentInput 创建支付意向输入
type CreateIntentInput struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
	Context  context.Context
}

// CreateIntent 在网关创建订单并落库支付意向
//
// 金额为最小货币单位，创建后不可变；后续对账以网关捕获金额为准。
func (s *IntentService) CreateIntent(input CreateIntentInput) (*models.PaymentIntent, error) {
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrIntentInvalid)
	}
	receipt := strings.TrimSpace(input.Receipt)
	if receipt == "" {
		return nil, fmt.Errorf("%w: receipt is required", ErrIntentInvalid)
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "INR"
	}
	ctx := input.Context
	if ctx == nil {
		ctx = context.Background()
	}

	order, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderInput{
		Amount:   input.Amount,
		Currency: currency,
		Receipt:  receipt,
		Notes:    input.Notes,
	})
	if err != nil {
		reconcileLogger("receipt", receipt).Errorw("intent_gateway_order_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrIntentCreateFailed, err)
	}

	notes := models.JSON{}
	for k, v := range input.Notes {
		notes[k] = v
	}
	intent := &models.PaymentIntent{
		GatewayOrderID: order.ID,
		Receipt:        receipt,
		Amount:         models.Money(input.Amount),
		Currency:       currency,
		Notes:          notes,
		Status:         constants.IntentStatusCreated,
	}
	if err := s.intentRepo.Create(intent); err != nil {
		reconcileLogger("gateway_order_id", order.ID).Errorw("intent_persist_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrIntentCreateFailed, err)
	}
	reconcileLogger(
		"gateway_order_id", order.ID,
		"receipt", receipt,
		"amount", input.Amount,
	).Infow("payment_intent_created")
	return intent, nil
}

// GetIntent 按主键查询支付意向
func (s *IntentService) GetIntent(id uint) (*models.PaymentIntent, error) {
	intent, err := s.intentRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, ErrIntentNotFound
	}
	return intent, nil
}

// ExpireStaleIntents 将超时未捕获的意向批量置为过期
func (s *IntentService) ExpireStaleIntents(maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	expired, err := s.intentRepo.ExpireStale(time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		reconcileLogger("expired_count", expired).Infow("payment_intents_expired")
	}
	return expired, nil
}
