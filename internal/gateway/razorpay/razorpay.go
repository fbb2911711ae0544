package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrConfigInvalid       = errors.New("razorpay config invalid")
	ErrRequestFailed       = errors.New("razorpay request failed")
	ErrResponseInvalid     = errors.New("razorpay response invalid")
	ErrGatewayUnavailable  = errors.New("razorpay gateway unavailable")
	ErrPaymentLookupFailed = errors.New("razorpay payment lookup failed")
)

const (
	defaultBaseURL        = "https://api.razorpay.com"
	defaultTimeoutSeconds = 10
	defaultFetchAttempts  = 3
	defaultRetryDelayMS   = 200
)

// 网关侧支付状态常量
const (
	PaymentStatusAuthorized = "authorized"
	PaymentStatusCaptured   = "captured"
	PaymentStatusFailed     = "failed"
)

// Config 网关配置
type Config struct {
	KeyID          string `json:"key_id" mapstructure:"key_id"`                   // API Key ID
	KeySecret      string `json:"key_secret" mapstructure:"key_secret"`           // API Key Secret（回调签名密钥）
	BaseURL        string `json:"base_url" mapstructure:"base_url"`               // 网关地址
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"` // 单次请求超时
	FetchAttempts  int    `json:"fetch_attempts" mapstructure:"fetch_attempts"`   // 支付查询最大尝试次数
	RetryDelayMS   int    `json:"retry_delay_ms" mapstructure:"retry_delay_ms"`   // 重试基础退避（毫秒）
}

func (c *Config) normalize() {
	c.KeyID = strings.TrimSpace(c.KeyID)
	c.KeySecret = strings.TrimSpace(c.KeySecret)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.FetchAttempts <= 0 {
		c.FetchAttempts = defaultFetchAttempts
	}
	if c.RetryDelayMS <= 0 {
		c.RetryDelayMS = defaultRetryDelayMS
	}
}

// Payment 网关支付记录（捕获金额以此为准）
type Payment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"` // 最小货币单位
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Method   string `json:"method"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`
}

// Order 网关订单
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrderInput 创建网关订单输入
type CreateOrderInput struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Client 网关客户端（显式构造注入，不使用包级单例）
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient 创建网关客户端
func NewClient(cfg Config) (*Client, error) {
	cfg.normalize()
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, fmt.Errorf("%w: key_id and key_secret are required", ErrConfigInvalid)
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// VerifySignature 校验捕获回调签名
//
// 期望签名为 HMAC-SHA256(key_secret, orderID + "|" + paymentID) 的十六进制，
// 使用恒定时间比较；任何输入异常一律返回 false，不抛错。
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	orderID = strings.TrimSpace(orderID)
	paymentID = strings.TrimSpace(paymentID)
	signature = strings.ToLower(strings.TrimSpace(signature))
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.cfg.KeySecret))
	_, _ = mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// FetchPayment 查询网关支付记录
//
// 幂等 GET，对 5xx 与传输错误做有限次退避重试；
// 重试耗尽返回 ErrGatewayUnavailable，4xx 返回 ErrPaymentLookupFailed。
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment id is required", ErrRequestFailed)
	}
	endpoint := fmt.Sprintf("%s/v1/payments/%s", c.cfg.BaseURL, paymentID)

	var lastErr error
	for attempt := 1; attempt <= c.cfg.FetchAttempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(c.cfg.RetryDelayMS*(attempt-1)) * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, ctx.Err())
			case <-time.After(delay):
			}
		}
		payment, retryable, err := c.fetchPaymentOnce(ctx, endpoint)
		if err == nil {
			return payment, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, lastErr)
}

func (c *Client) fetchPaymentOnce(ctx context.Context, endpoint string) (*Payment, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, fmt.Errorf("%w: read body failed", ErrResponseInvalid)
	}
	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("%w: status %d", ErrPaymentLookupFailed, resp.StatusCode)
	}

	var payment Payment
	if err := json.Unmarshal(body, &payment); err != nil {
		return nil, false, fmt.Errorf("%w: decode failed", ErrResponseInvalid)
	}
	if strings.TrimSpace(payment.ID) == "" {
		return nil, false, fmt.Errorf("%w: missing payment id", ErrResponseInvalid)
	}
	return &payment, false, nil
}

// CreateOrder 创建网关订单（结账开始时调用）
func (c *Client) CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error) {
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrRequestFailed)
	}
	if strings.TrimSpace(input.Currency) == "" {
		input.Currency = "INR"
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal failed", ErrRequestFailed)
	}

	endpoint := fmt.Sprintf("%s/v1/orders", c.cfg.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body failed", ErrResponseInvalid)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("%w: decode failed", ErrResponseInvalid)
	}
	if strings.TrimSpace(order.ID) == "" {
		return nil, fmt.Errorf("%w: missing order id", ErrResponseInvalid)
	}
	return &order, nil
}
