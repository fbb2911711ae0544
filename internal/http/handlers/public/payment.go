package public

import (
	"errors"
	"strconv"

	"github.com/atithi-next/internal/http/response"
	"github.com/atithi-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateIntentRequest 创建支付意向请求
type CreateIntentRequest struct {
	Amount   int64             `json:"amount" binding:"required"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt" binding:"required"`
	Notes    map[string]string `json:"notes"`
}

// VerifyPaymentRequest 支付回调校验请求
type VerifyPaymentRequest struct {
	GatewayPaymentID string   `json:"razorpay_payment_id" binding:"required"`
	GatewayOrderID   string   `json:"razorpay_order_id" binding:"required"`
	Signature        string   `json:"razorpay_signature" binding:"required"`
	RecordType       string   `json:"record_type"`
	RecordNo         string   `json:"record_no"`
	OrderNo          string   `json:"order_no"`
	OrderNos         []string `json:"order_nos"`
	RoomInvoiceNos   []string `json:"room_invoice_nos"`
}

// CreatePaymentIntent 创建支付意向
func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	var req CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	intent, err := h.IntentService.CreateIntent(service.CreateIntentInput{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
		Context:  c.Request.Context(),
	})
	if err != nil {
		respondIntentCreateError(c, err)
		return
	}
	response.Success(c, gin.H{
		"id":               intent.ID,
		"gateway_order_id": intent.GatewayOrderID,
		"amount":           intent.Amount.Int64(),
		"currency":         intent.Currency,
		"receipt":          intent.Receipt,
		"status":           intent.Status,
	})
}

// GetPaymentIntent 查询支付意向
func (h *Handler) GetPaymentIntent(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.intent_invalid", nil)
		return
	}
	intent, err := h.IntentService.GetIntent(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrIntentNotFound) {
			respondError(c, response.CodeNotFound, "error.intent_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.intent_fetch_failed", err)
		return
	}
	response.Success(c, intent)
}

// VerifyPayment 校验支付回调并执行对账
func (h *Handler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.ReconcileService.Reconcile(service.ReconcileInput{
		GatewayPaymentID: req.GatewayPaymentID,
		GatewayOrderID:   req.GatewayOrderID,
		Signature:        req.Signature,
		Target: service.TargetSpec{
			RecordType:     req.RecordType,
			RecordNo:       req.RecordNo,
			OrderNo:        req.OrderNo,
			OrderNos:       req.OrderNos,
			RoomInvoiceNos: req.RoomInvoiceNos,
		},
		Context: c.Request.Context(),
	})
	if err != nil {
		respondVerifyError(c, err)
		return
	}
	response.Success(c, result)
}

// GetReconciliation 查询最近一次对账结果
func (h *Handler) GetReconciliation(c *gin.Context) {
	gatewayOrderID := c.Param("gatewayOrderID")
	if gatewayOrderID == "" {
		respondError(c, response.CodeBadRequest, "error.reconciliation_invalid", nil)
		return
	}
	recon, err := h.ReconcileService.GetReconciliationByGatewayOrderID(gatewayOrderID)
	if err != nil {
		if errors.Is(err, service.ErrReconciliationNotFound) {
			respondError(c, response.CodeNotFound, "error.reconciliation_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.reconciliation_fetch_failed", err)
		return
	}
	response.Success(c, recon)
}
