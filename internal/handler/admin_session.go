package handler

import (
	"keybroker/internal/core"
	"keybroker/internal/dto"
	"keybroker/internal/pkg/response"
	"keybroker/internal/service"
	"keybroker/internal/telemetry"

	"github.com/gin-gonic/gin"
)

type AdminSessionHandler struct {
	trace          *telemetry.Trace
	sessionService *service.SessionService
	allocService   *service.AllocationService
}

func NewAdminSessionHandler(
	trace *telemetry.Trace,
	sessionService *service.SessionService,
	allocService *service.AllocationService,
) *AdminSessionHandler {
	return &AdminSessionHandler{
		trace:          trace,
		sessionService: sessionService,
		allocService:   allocService,
	}
}

// List 會話列表
// @Summary 取得目前所有 Active 會話
// @Tags Admin-Session
// @Security BearerAuth
// @Produce json
// @Success 200 {array} dto.SessionResponseDto
// @Router /admin/sessions [get]
func (h *AdminSessionHandler) List(c *gin.Context) {
	_, _, end := h.trace.WithSpan(c)
	defer end(nil)
	response.Success(c, h.sessionService.List())
}

// Kick 強制關閉會話
// @Summary 關閉某身份的現任會話並釋放其綁定
// @Tags Admin-Session
// @Security BearerAuth
// @Produce json
// @Param userID path string true "用戶身份"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/sessions/{userID} [delete]
func (h *AdminSessionHandler) Kick(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	userID := c.Param("userID")
	session := h.sessionService.ActiveSession(userID)
	if session == nil {
		response.Success(c, gin.H{"closed": "", "message": "no active session"})
		return
	}
	h.sessionService.Close(ctx, session, core.CloseByShutdown)
	response.Success(c, gin.H{"closed": userID})
}

// Notify 推播通知
// @Summary 推播 user_update / user_delete 等通知（指定用戶或廣播）
// @Tags Admin-Session
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.NotifyDto true "通知內容"
// @Success 200 {object} map[string]int
// @Failure 400 {object} map[string]string
// @Router /admin/notify [post]
func (h *AdminSessionHandler) Notify(c *gin.Context) {
	_, _, end := h.trace.WithSpan(c)
	defer end(nil)

	var req dto.NotifyDto
	if cause, respErr := bindAndValidate(c, &req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	envelope := service.Envelope{
		Type:    core.MessageType(req.Type),
		Payload: req.Payload,
	}
	delivered := 0
	switch {
	case req.UserID != "":
		if h.sessionService.NotifyUser(req.UserID, envelope) {
			delivered = 1
		}
	case envelope.Type == core.MessageUserUpdate || envelope.Type == core.MessageUserDelete:
		// 目錄異動只推給管理端會話
		delivered = h.sessionService.BroadcastAdmins(envelope)
	default:
		delivered = h.sessionService.Broadcast(envelope)
	}
	response.Success(c, gin.H{"delivered": delivered})
}
