package worker

import (
	"context"
	"errors"
	"time"

	"github.com/atithi-next/internal/config"
	"github.com/atithi-next/internal/logger"
	"github.com/atithi-next/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	intentExpireInterval = 5 * time.Minute
)

// Service 异步队列服务
type Service struct {
	name         string
	server       *asynq.Server
	mux          *asynq.ServeMux
	consumer     *Consumer
	intentMaxAge time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer, intentMaxAge time.Duration) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:         "worker",
		server:       server,
		mux:          mux,
		consumer:     consumer,
		intentMaxAge: intentMaxAge,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.IntentService != nil && s.intentMaxAge > 0 {
		go s.runIntentExpireLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

func (s *Service) runIntentExpireLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.IntentService == nil {
		return
	}
	runOnce := func() {
		if _, err := s.consumer.IntentService.ExpireStaleIntents(s.intentMaxAge); err != nil {
			logger.Warnw("worker_intent_expire_sweep_failed", "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(intentExpireInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
