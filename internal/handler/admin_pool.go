package handler

import (
	"keybroker/internal/dto"
	"keybroker/internal/pkg/response"
	"keybroker/internal/service"
	"keybroker/internal/telemetry"

	"github.com/gin-gonic/gin"
)

type AdminPoolHandler struct {
	trace        *telemetry.Trace
	poolService  *service.PoolService
	allocService *service.AllocationService
}

func NewAdminPoolHandler(
	trace *telemetry.Trace,
	poolService *service.PoolService,
	allocService *service.AllocationService,
) *AdminPoolHandler {
	return &AdminPoolHandler{
		trace:        trace,
		poolService:  poolService,
		allocService: allocService,
	}
}

// List 密鑰池列表
// @Summary 取得所有密鑰池（含即時佔用數）
// @Tags Admin-Pool
// @Security BearerAuth
// @Produce json
// @Success 200 {array} dto.KeyPoolResponseDto
// @Router /admin/pools [get]
func (h *AdminPoolHandler) List(c *gin.Context) {
	_, _, end := h.trace.WithSpan(c)
	defer end(nil)

	pools := h.poolService.ListPools()
	out := make([]*dto.KeyPoolResponseDto, len(pools))
	for i, p := range pools {
		out[i] = &dto.KeyPoolResponseDto{
			ID:             p.ID.Hex(),
			ProviderName:   p.ProviderName,
			Name:           p.Name,
			MaxClients:     p.MaxClients,
			CurrentClients: p.CurrentClients,
			Active:         p.Active,
			CreatedAt:      p.CreatedAt,
			UpdatedAt:      p.UpdatedAt,
		}
	}
	response.Success(c, out)
}

// Create 新增密鑰池
// @Summary 為供應商新增一個密鑰池
// @Tags Admin-Pool
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.CreateKeyPoolDto true "密鑰池設定"
// @Success 201 {object} dto.KeyPoolResponseDto
// @Failure 400 {object} map[string]string
// @Router /admin/pools [post]
func (h *AdminPoolHandler) Create(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	var req dto.CreateKeyPoolDto
	if cause, respErr := bindAndValidate(c, &req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	pool, err := h.poolService.CreatePool(ctx, req.ProviderName, &req)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Create(c, &dto.KeyPoolResponseDto{
		ID:             pool.ID.Hex(),
		ProviderName:   pool.ProviderName,
		Name:           pool.Name,
		MaxClients:     pool.MaxClients,
		CurrentClients: pool.CurrentClients,
		Active:         pool.Active,
		CreatedAt:      pool.CreatedAt,
		UpdatedAt:      pool.UpdatedAt,
	})
}

// Update 熱更新密鑰池
// @Summary 更新池容量 / 啟用旗標（不驅逐既有佔用者）
// @Tags Admin-Pool
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param poolID path string true "Pool ID"
// @Param body body dto.UpdateKeyPoolDto true "更新內容"
// @Success 200 {object} dto.KeyPoolResponseDto
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/pools/{poolID} [put]
func (h *AdminPoolHandler) Update(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	var req dto.UpdateKeyPoolDto
	if cause, respErr := bindAndValidate(c, &req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	pool, err := h.poolService.UpdatePool(ctx, c.Param("poolID"), &req)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, &dto.KeyPoolResponseDto{
		ID:             pool.ID.Hex(),
		ProviderName:   pool.ProviderName,
		Name:           pool.Name,
		MaxClients:     pool.MaxClients,
		CurrentClients: pool.CurrentClients,
		Active:         pool.Active,
		CreatedAt:      pool.CreatedAt,
		UpdatedAt:      pool.UpdatedAt,
	})
}

// Health 池健康狀態
// @Summary 取得單一池的容量 / 佔用 / 佔用者清單
// @Tags Admin-Pool
// @Security BearerAuth
// @Produce json
// @Param poolID path string true "Pool ID"
// @Success 200 {object} dto.PoolHealthDto
// @Failure 404 {object} map[string]string
// @Router /admin/pools/{poolID}/health [get]
func (h *AdminPoolHandler) Health(c *gin.Context) {
	_, _, end := h.trace.WithSpan(c)
	defer end(nil)

	health, err := h.poolService.HealthStatus(c.Param("poolID"))
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, health)
}

// Allocations 綁定稽核列表
// @Summary 取得綁定紀錄（可依池過濾）
// @Tags Admin-Pool
// @Security BearerAuth
// @Produce json
// @Param poolID query string false "Pool ID"
// @Param page query int false "頁碼"
// @Param size query int false "每頁筆數"
// @Success 200 {array} dto.AllocationResponseDto
// @Router /admin/allocations [get]
func (h *AdminPoolHandler) Allocations(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	page := getInt64Query(c, "page", 1)
	size := getInt64Query(c, "size", 50)

	allocations, err := h.allocService.ListAllocations(ctx, c.Query("poolID"), page, size)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, allocations)
}
