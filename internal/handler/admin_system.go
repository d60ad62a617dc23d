package handler

import (
	"keybroker/internal/dto"
	"keybroker/internal/pkg/response"
	"keybroker/internal/service"
	"keybroker/internal/telemetry"

	"github.com/gin-gonic/gin"
)

type AdminSystemHandler struct {
	trace             *telemetry.Trace
	statsService      *service.StatsService
	dynamicKeyService *service.DynamicKeyService
}

func NewAdminSystemHandler(
	trace *telemetry.Trace,
	statsService *service.StatsService,
	dynamicKeyService *service.DynamicKeyService,
) *AdminSystemHandler {
	return &AdminSystemHandler{
		trace:             trace,
		statsService:      statsService,
		dynamicKeyService: dynamicKeyService,
	}
}

// Summary 全系統彙總
// @Summary 供應商 / 池 / 會話的彙總統計
// @Tags Admin-System
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.StatsSummaryDto
// @Router /admin/stats [get]
func (h *AdminSystemHandler) Summary(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)
	response.Success(c, h.statsService.Summary(ctx))
}

// GetDynamicKey 目前動態金鑰
// @Summary 取得目前動態金鑰與版本
// @Tags Admin-System
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.DynamicKeyResponseDto
// @Router /admin/dynamic-key [get]
func (h *AdminSystemHandler) GetDynamicKey(c *gin.Context) {
	_, _, end := h.trace.WithSpan(c)
	defer end(nil)

	key, version := h.dynamicKeyService.Current()
	response.Success(c, &dto.DynamicKeyResponseDto{Key: key, Version: version})
}

// RotateDynamicKey 輪替動態金鑰
// @Summary 輪替動態金鑰（body 省略 key 則隨機產生）
// @Tags Admin-System
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.RotateDynamicKeyDto false "指定金鑰（可省略）"
// @Success 200 {object} dto.DynamicKeyResponseDto
// @Failure 400 {object} map[string]string
// @Router /admin/dynamic-key [post]
func (h *AdminSystemHandler) RotateDynamicKey(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	var req dto.RotateDynamicKeyDto
	if c.Request.ContentLength > 0 {
		if cause, respErr := bindAndValidate(c, &req); cause != nil {
			end(cause)
			response.AbortWithError(c, respErr)
			return
		}
	}

	rotated, err := h.dynamicKeyService.Rotate(ctx, req.Key)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, rotated)
}
