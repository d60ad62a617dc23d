package handler

import (
	"keybroker/internal/dto"
	"keybroker/internal/pkg/response"
	"keybroker/internal/service"
	"keybroker/internal/telemetry"

	"github.com/gin-gonic/gin"
)

type AdminProviderHandler struct {
	trace           *telemetry.Trace
	providerService *service.ProviderService
	poolService     *service.PoolService
	statsService    *service.StatsService
}

func NewAdminProviderHandler(
	trace *telemetry.Trace,
	providerService *service.ProviderService,
	poolService *service.PoolService,
	statsService *service.StatsService,
) *AdminProviderHandler {
	return &AdminProviderHandler{
		trace:           trace,
		providerService: providerService,
		poolService:     poolService,
		statsService:    statsService,
	}
}

// List 供應商列表
// @Summary 取得供應商目錄（priority 小者在前）
// @Tags Admin-Provider
// @Security BearerAuth
// @Produce json
// @Param includeInactive query bool false "是否包含停用的供應商"
// @Success 200 {array} dto.ProviderResponseDto
// @Router /admin/providers [get]
func (h *AdminProviderHandler) List(c *gin.Context) {
	_, _, end := h.trace.WithSpan(c)
	defer end(nil)

	includeInactive := c.Query("includeInactive") == "true"
	providers := h.providerService.List(includeInactive)

	out := make([]*dto.ProviderResponseDto, len(providers))
	for i, p := range providers {
		out[i] = &dto.ProviderResponseDto{
			Name:        p.Name,
			DisplayName: p.DisplayName,
			BaseURL:     p.BaseURL,
			Priority:    p.Priority,
			Active:      p.Active,
			PoolCount:   h.poolService.CountByProvider(p.Name),
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		}
	}
	response.Success(c, out)
}

// Get 單一供應商統計
// @Summary 取得供應商與其池統計
// @Tags Admin-Provider
// @Security BearerAuth
// @Produce json
// @Param name path string true "供應商識別碼"
// @Success 200 {object} dto.ProviderStatsDto
// @Failure 404 {object} map[string]string
// @Router /admin/providers/{name} [get]
func (h *AdminProviderHandler) Get(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	stats, err := h.statsService.ProviderStats(ctx, c.Param("name"))
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, stats)
}

// Upsert 新增或更新供應商
// @Summary 新增或更新供應商（識別碼不可變）
// @Tags Admin-Provider
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.UpsertProviderDto true "供應商設定"
// @Success 201 {object} dto.ProviderResponseDto
// @Failure 400 {object} map[string]string
// @Router /admin/providers [put]
func (h *AdminProviderHandler) Upsert(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	var req dto.UpsertProviderDto
	if cause, respErr := bindAndValidate(c, &req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	provider, err := h.providerService.Upsert(ctx, &req)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Create(c, provider)
}

// Delete 刪除供應商
// @Summary 刪除供應商（仍有密鑰池引用時拒絕）
// @Tags Admin-Provider
// @Security BearerAuth
// @Produce json
// @Param name path string true "供應商識別碼"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/providers/{name} [delete]
func (h *AdminProviderHandler) Delete(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	name := c.Param("name")
	if err := h.providerService.Delete(ctx, name, h.poolService.CountByProvider(name)); err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": name})
}
