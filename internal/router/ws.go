package router

import (
	"keybroker/internal/handler"

	"github.com/gin-gonic/gin"
)

type WsRouter struct {
	wsHandler *handler.WsHandler
}

func NewWsRouter(
	wsHandler *handler.WsHandler,
) *WsRouter {
	return &WsRouter{
		wsHandler: wsHandler,
	}
}

func (wsRouter *WsRouter) RegisterRoutes(r *gin.Engine) {
	// 簽章驗證在 Session Registry 內完成，不走 admin JWT
	r.GET("/ws", wsRouter.wsHandler.Serve)
}
