package handler

import (
	"fmt"
	"net/http"
	"time"

	"keybroker/config"
	"keybroker/internal/core"
	cErr "keybroker/internal/pkg/error"
	"keybroker/internal/service"
	"keybroker/internal/telemetry"
	"keybroker/utils/clientauth"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 10 * time.Second

// clientMessage 客戶端→伺服器的 envelope
type clientMessage struct {
	Type      core.MessageType `json:"type"`
	UserID    string           `json:"userID,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Signature string           `json:"signature,omitempty"`
	ClientID  string           `json:"clientID,omitempty"`
	Provider  string           `json:"provider,omitempty"` // allocate 的供應商提示，可省略
}

// wsConn 包一層寫入期限，避免慢消費者卡住寫入端
type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) WriteJSON(v any) error {
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.conn.WriteJSON(v)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

// WsHandler 客戶端持久連線入口
type WsHandler struct {
	trace    *telemetry.Trace
	logger   *zap.Logger
	conf     *config.Configuration
	session  *service.SessionService
	alloc    *service.AllocationService
	quota    *service.QuotaService
	upgrader websocket.Upgrader
}

func NewWsHandler(
	trace *telemetry.Trace,
	logger *zap.Logger,
	conf *config.Configuration,
	session *service.SessionService,
	alloc *service.AllocationService,
	quota *service.QuotaService,
) *WsHandler {
	return &WsHandler{
		trace:   trace,
		logger:  logger,
		conf:    conf,
		session: session,
		alloc:   alloc,
		quota:   quota,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// 客戶端來源由簽章把關，不做 Origin 白名單
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve 升級連線並跑完整個會話生命週期
// @Summary 客戶端 WebSocket 入口
// @Tags Client
// @Param user_id query string false "身份（與 timestamp / signature / client_id 一起帶時直接認證）"
// @Param timestamp query string false "10 位 Unix 時間戳"
// @Param signature query string false "MD5 簽章"
// @Param client_id query string false "客戶端識別碼"
// @Router /ws [get]
func (h *WsHandler) Serve(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	wrapped := &wsConn{conn: conn}

	// 認證：query string 直接帶簽章，或第一則 auth envelope
	cred, clientID, ok := credentialFromQuery(c)
	if !ok {
		cred, clientID, ok = h.awaitAuthMessage(conn)
		if !ok {
			_ = wrapped.Close()
			return
		}
	}

	session, err := h.session.Admit(ctx, cred, clientID, c.ClientIP(), wrapped)
	if err != nil {
		_ = wrapped.WriteJSON(service.Envelope{
			Type:    core.MessageError,
			Kind:    errorKind(err),
			Message: cErr.From(err).ErrorDesc(),
		})
		_ = wrapped.Close()
		return
	}

	// 帶有效管理 token 的連線標記為管理端會話，收目錄異動推播
	if h.isAdminToken(c.Query("token")) {
		h.session.MarkAdmin(session)
	}

	h.readLoop(c, session, conn)
	h.session.Close(ctx, session, core.CloseByClient)
}

// readLoop 逐則處理客戶端訊息，連線斷開即返回
func (h *WsHandler) readLoop(c *gin.Context, session *service.Session, conn *websocket.Conn) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	timeout := time.Duration(h.conf.Session.HeartbeatInterval()*h.conf.Session.TimeoutFactor()) * time.Second
	for {
		_ = conn.SetReadDeadline(time.Now().Add(timeout))
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if session.State() == core.SessionClosed {
			return
		}

		switch msg.Type {
		case core.MessageHeartbeat:
			cred := clientauth.Credential{UserID: session.UserID, Timestamp: msg.Timestamp, Signature: msg.Signature}
			if err := h.session.VerifyCredential(cred, core.AuthTypeHeartbeat); err != nil {
				// 心跳簽章不合法直接斷線，不給重試
				h.sendError(session, err)
				h.session.Close(ctx, session, core.CloseByAuthFailure)
				return
			}
			h.session.Touch(session)

			// 心跳回應順帶回報配額狀態；被停用的用戶收到 access-disabled
			usage, err := h.quota.GetUsage(ctx, session.UserID)
			if err != nil {
				h.session.Send(session, service.Envelope{Type: core.MessageHeartbeatAck})
				continue
			}
			if !usage.Enabled {
				h.sendError(session, cErr.AccessDisabled(fmt.Sprintf("user %s is disabled: %s", session.UserID, usage.DisabledReason)))
				continue
			}
			h.session.Send(session, service.Envelope{
				Type: core.MessageHeartbeatAck,
				Payload: map[string]any{
					"used":    usage.Used,
					"limit":   usage.UsageLimit,
					"enabled": usage.Enabled,
				},
			})

		case core.MessagePing:
			h.session.Send(session, service.Envelope{Type: core.MessagePong})

		case core.MessageAllocate:
			grant, err := h.alloc.Allocate(ctx, session.UserID, session.ClientID, msg.Provider)
			if err != nil {
				h.sendError(session, err)
				continue
			}
			h.session.Send(session, service.Envelope{Type: core.MessageAllocated, Payload: grant})

		case core.MessageRelease:
			_ = h.alloc.Release(ctx, session.UserID, session.ClientID)
			h.session.Send(session, service.Envelope{Type: core.MessageReleased})

		default:
			h.sendError(session, cErr.BadRequestBody("unknown message type"))
		}
	}
}

// awaitAuthMessage 等第一則 auth envelope；逾時或格式不符直接放棄
func (h *WsHandler) awaitAuthMessage(conn *websocket.Conn) (clientauth.Credential, string, bool) {
	skew := time.Duration(h.conf.Session.SkewSeconds()) * time.Second
	_ = conn.SetReadDeadline(time.Now().Add(skew))

	var msg clientMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return clientauth.Credential{}, "", false
	}
	if msg.Type != core.MessageAuth {
		_ = conn.WriteJSON(service.Envelope{
			Type:    core.MessageError,
			Kind:    core.KindAuthInvalid,
			Message: "expected auth message",
		})
		return clientauth.Credential{}, "", false
	}
	return clientauth.Credential{
		UserID:    msg.UserID,
		Timestamp: msg.Timestamp,
		Signature: msg.Signature,
	}, msg.ClientID, true
}

// isAdminToken 驗證管理端 JWT（與 /admin 的 AdminAuth 同一把密鑰）
func (h *WsHandler) isAdminToken(token string) bool {
	if token == "" {
		return false
	}
	claims := &core.AdminClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(h.conf.App.SecretKey), nil
	})
	return err == nil && parsed.Valid
}

func (h *WsHandler) sendError(session *service.Session, err error) {
	h.session.Send(session, service.Envelope{
		Type:    core.MessageError,
		Kind:    errorKind(err),
		Message: cErr.From(err).ErrorDesc(),
	})
}

func credentialFromQuery(c *gin.Context) (clientauth.Credential, string, bool) {
	userID := c.Query("user_id")
	timestamp := c.Query("timestamp")
	signature := c.Query("signature")
	clientID := c.Query("client_id")
	if userID == "" || timestamp == "" || signature == "" || clientID == "" {
		return clientauth.Credential{}, "", false
	}
	return clientauth.Credential{UserID: userID, Timestamp: timestamp, Signature: signature}, clientID, true
}

// errorKind 把服務層錯誤碼對應到連線協議的 error kind
func errorKind(err error) core.ErrorKind {
	switch cErr.From(err).ErrorCode() {
	case cErr.AUTH_INVALID:
		return core.KindAuthInvalid
	case cErr.SESSION_EVICTED:
		return core.KindSessionEvicted
	case cErr.ACCESS_DISABLED:
		return core.KindAccessDisabled
	case cErr.POOL_EXHAUSTED:
		return core.KindPoolExhausted
	case cErr.ALL_POOLS_EXHAUSTED:
		return core.KindAllPoolsExhausted
	case cErr.QUOTA_EXCEEDED:
		return core.KindQuotaExceeded
	default:
		return core.KindBadRequest
	}
}
