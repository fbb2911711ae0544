package router

import (
	"fmt"
	"strings"

	"github.com/atithi-next/internal/cache"
	"github.com/atithi-next/internal/config"
	publichandlers "github.com/atithi-next/internal/http/handlers/public"
	"github.com/atithi-next/internal/logger"
	"github.com/atithi-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "atithi"
	}
	redisClient := cache.Client()
	verifyRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:verify", redisPrefix),
		WindowSeconds: cfg.Security.VerifyRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.VerifyRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.VerifyRateLimit.BlockSeconds,
		MessageKey:    "error.verify_too_many",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		payments := apiV1.Group("/payments")
		{
			payments.POST("/intents", publicHandler.CreatePaymentIntent)
			payments.GET("/intents/:id", publicHandler.GetPaymentIntent)
			payments.PUT("/verify", RateLimitMiddleware(redisClient, verifyRule, KeyByIP), publicHandler.VerifyPayment)
		}
		apiV1.GET("/reconciliations/:gatewayOrderID", publicHandler.GetReconciliation)
	}

	// 健康检查
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
