package command

import (
	"context"
	"fmt"
	"time"

	"keybroker/config"
	"keybroker/internal/dto"
	"keybroker/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// SeedHandler 將設定檔的供應商 / 密鑰目錄匯入資料庫，可重複執行。
type SeedHandler struct {
	logger          *zap.Logger
	config          *config.Configuration
	providerService *service.ProviderService
	poolService     *service.PoolService
}

func NewSeedHandler(
	logger *zap.Logger,
	config *config.Configuration,
	providerService *service.ProviderService,
	poolService *service.PoolService,
) *SeedHandler {
	return &SeedHandler{
		logger:          logger,
		config:          config,
		providerService: providerService,
		poolService:     poolService,
	}
}

func (handler *SeedHandler) Seed(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := handler.providerService.LoadFromStore(ctx); err != nil {
		cmd.PrintErrln("load providers failed:", err)
		return
	}
	if err := handler.poolService.LoadFromStore(ctx); err != nil {
		cmd.PrintErrln("load key pools failed:", err)
		return
	}

	seeds := handler.config.KeyPool.Providers
	if len(seeds) == 0 {
		cmd.Println("設定檔沒有供應商種子，無事可做")
		return
	}

	for _, seed := range seeds {
		provider, err := handler.providerService.Upsert(ctx, &dto.UpsertProviderDto{
			Name:        seed.Name,
			DisplayName: seed.DisplayName,
			BaseURL:     seed.BaseURL,
			Priority:    seed.Priority,
		})
		if err != nil {
			handler.logger.Error("[Seed] upsert provider failed",
				zap.String("provider", seed.Name),
				zap.Error(err),
			)
			continue
		}
		cmd.Printf("provider %s (priority %d) ready\n", provider.Name, provider.Priority)

		for i, key := range seed.Keys {
			pool, err := handler.poolService.CreatePool(ctx, provider.Name, &dto.CreateKeyPoolDto{
				ProviderName: provider.Name,
				Name:         fmt.Sprintf("%s-pool-%d", provider.Name, i+1),
				APIKey:       key,
				MaxClients:   seed.MaxClients,
			})
			if err != nil {
				// 重複執行時 apiKey 唯一索引會擋下已存在的池
				handler.logger.Warn("[Seed] create pool skipped",
					zap.String("provider", provider.Name),
					zap.Int("index", i),
					zap.Error(err),
				)
				continue
			}
			cmd.Printf("  pool %s created (maxClients %d)\n", pool.Name, pool.MaxClients)
		}
	}

	cmd.Println("seed done")
}
