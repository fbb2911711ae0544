package provider

import (
	"time"

	"github.com/atithi-next/internal/cache"
	"github.com/atithi-next/internal/config"
	"github.com/atithi-next/internal/gateway/razorpay"
	"github.com/atithi-next/internal/logger"
	"github.com/atithi-next/internal/models"
	"github.com/atithi-next/internal/queue"
	"github.com/atithi-next/internal/repository"
	"github.com/atithi-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Gateway     *razorpay.Client

	// Repositories
	RecordRepo repository.RecordRepository
	LedgerRepo repository.LedgerRepository
	IntentRepo repository.IntentRepository
	ReconRepo  repository.ReconciliationRepository

	// Services
	ReconcileService *service.ReconcileService
	IntentService    *service.IntentService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	gw, err := razorpay.NewClient(razorpay.Config{
		KeyID:          cfg.Gateway.KeyID,
		KeySecret:      cfg.Gateway.KeySecret,
		BaseURL:        cfg.Gateway.BaseURL,
		TimeoutSeconds: cfg.Gateway.TimeoutSeconds,
		FetchAttempts:  cfg.Gateway.FetchAttempts,
		RetryDelayMS:   cfg.Gateway.RetryDelayMS,
	})
	if err != nil {
		logger.Errorw("provider_init_gateway_failed", "error", err)
		panic(err)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Gateway:     gw,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.RecordRepo = repository.NewRecordRepository(db)
	c.LedgerRepo = repository.NewLedgerRepository(db)
	c.IntentRepo = repository.NewIntentRepository(db)
	c.ReconRepo = repository.NewReconciliationRepository(db)
}

func (c *Container) initServices() {
	deadline := time.Duration(c.Config.Reconcile.DeadlineSeconds) * time.Second
	c.ReconcileService = service.NewReconcileService(c.Gateway, c.RecordRepo, c.LedgerRepo, c.ReconRepo, c.IntentRepo, c.QueueClient, deadline)
	c.IntentService = service.NewIntentService(c.Gateway, c.IntentRepo)
}
