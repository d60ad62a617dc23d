package cron

import (
	"context"
	"fmt"
	"time"

	"keybroker/config"
	"keybroker/internal/service"

	"github.com/google/wire"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ProviderSet = wire.NewSet(NewCron)

type Cron struct {
	logger         *zap.Logger
	config         *config.Configuration
	server         *cron.Cron
	sessionService *service.SessionService
	quotaService   *service.QuotaService
	poolService    *service.PoolService
}

// NewCron .
func NewCron(
	logger *zap.Logger,
	config *config.Configuration,
	sessionService *service.SessionService,
	quotaService *service.QuotaService,
	poolService *service.PoolService,
) *Cron {
	server := cron.New(
		cron.WithSeconds(),
	)

	return &Cron{
		logger:         logger,
		config:         config,
		server:         server,
		sessionService: sessionService,
		quotaService:   quotaService,
		poolService:    poolService,
	}
}

func (c *Cron) Run() error {
	// 心跳掃描頻率 = 心跳間隔的一半
	sweepEvery := c.config.Session.HeartbeatInterval() / 2
	if sweepEvery < 1 {
		sweepEvery = 1
	}
	if _, err := c.server.AddFunc(fmt.Sprintf("@every %ds", sweepEvery), c.sweepStaleSessions); err != nil {
		return err
	}

	// 佔用數回寫 mongo，供重啟後盤點
	if _, err := c.server.AddFunc("0 * * * * *", c.persistPoolOccupancy); err != nil {
		return err
	}

	// 用量滾動重置（逐用戶檢查週期，到期才歸零）
	if _, err := c.server.AddFunc("0 0 0 * * *", c.rolloverUsage); err != nil {
		return err
	}

	c.server.Start()
	return nil
}

func (c *Cron) Stop(ctx context.Context) error {
	c.server.Stop()
	return nil
}

func (c *Cron) sweepStaleSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if swept := c.sessionService.SweepStale(ctx); swept > 0 {
		c.logger.Info("[Cron] stale sessions swept", zap.Int("count", swept))
	}
}

func (c *Cron) persistPoolOccupancy() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c.poolService.PersistOccupancy(ctx)
}

func (c *Cron) rolloverUsage() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c.quotaService.Rollover(ctx)
}
