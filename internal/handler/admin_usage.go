package handler

import (
	"keybroker/internal/dto"
	"keybroker/internal/pkg/response"
	"keybroker/internal/service"
	"keybroker/internal/telemetry"

	"github.com/gin-gonic/gin"
)

type AdminUsageHandler struct {
	trace        *telemetry.Trace
	quotaService *service.QuotaService
}

func NewAdminUsageHandler(trace *telemetry.Trace, quotaService *service.QuotaService) *AdminUsageHandler {
	return &AdminUsageHandler{trace: trace, quotaService: quotaService}
}

// Get 用戶用量
// @Summary 取得單一用戶的用量計數
// @Tags Admin-Usage
// @Security BearerAuth
// @Produce json
// @Param userID path string true "用戶身份"
// @Success 200 {object} dto.UsageResponseDto
// @Router /admin/usage/{userID} [get]
func (h *AdminUsageHandler) Get(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	usage, err := h.quotaService.GetUsage(ctx, c.Param("userID"))
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, usage)
}

// Update 調整用戶配額
// @Summary 調整上限 / 週期 / 啟用旗標 / 歸零
// @Tags Admin-Usage
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param userID path string true "用戶身份"
// @Param body body dto.UpdateUsageDto true "調整內容"
// @Success 200 {object} dto.UsageResponseDto
// @Failure 400 {object} map[string]string
// @Router /admin/usage/{userID} [put]
func (h *AdminUsageHandler) Update(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	var req dto.UpdateUsageDto
	if cause, respErr := bindAndValidate(c, &req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	usage, err := h.quotaService.UpdateUsage(ctx, c.Param("userID"), &req)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, usage)
}
