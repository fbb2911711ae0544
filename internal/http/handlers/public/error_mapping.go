package public

import (
	"errors"

	"github.com/atithi-next/internal/http/response"
	"github.com/atithi-next/internal/logger"
	"github.com/atithi-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondError(c *gin.Context, code int, key string, err error) {
	if err != nil {
		logger.Warnw("api_request_failed",
			"path", c.FullPath(),
			"code", code,
			"key", key,
			"error", err,
		)
	}
	response.Error(c, code, key)
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

var intentCreateErrorRules = []mappedHandlerError{
	{target: service.ErrIntentInvalid, code: response.CodeBadRequest, key: "error.intent_invalid"},
	{target: service.ErrIntentCreateFailed, code: response.CodeBadGateway, key: "error.intent_create_failed"},
}

var verifyErrorRules = []mappedHandlerError{
	{target: service.ErrReconcileInvalid, code: response.CodeBadRequest, key: "error.verify_payload_invalid"},
	{target: service.ErrSignatureMismatch, code: response.CodeBadRequest, key: "error.signature_mismatch"},
	{target: service.ErrNoMatchingTarget, code: response.CodeNotFound, key: "error.no_matching_target"},
	{target: service.ErrGatewayUnavailable, code: response.CodeBadGateway, key: "error.gateway_unavailable"},
}

func respondIntentCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, intentCreateErrorRules, response.CodeInternal, "error.intent_create_failed")
}

func respondVerifyError(c *gin.Context, err error) {
	respondWithMappedError(c, err, verifyErrorRules, response.CodeInternal, "error.verify_failed")
}
