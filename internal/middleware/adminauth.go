package middleware

import (
	"fmt"
	"strings"

	"keybroker/config"
	"keybroker/internal/core"
	cErr "keybroker/internal/pkg/error"
	"keybroker/internal/pkg/response"
	"keybroker/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// AdminAuth 管理端 JWT 驗證（Authorization: Bearer <token>，HS256）
type AdminAuth struct {
	logger *zap.Logger
	trace  *telemetry.Trace
	config *config.Configuration
}

func NewAdminAuth(
	logger *zap.Logger,
	trace *telemetry.Trace,
	config *config.Configuration,
) *AdminAuth {
	return &AdminAuth{
		logger: logger,
		trace:  trace,
		config: config,
	}
}

func (middleware *AdminAuth) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span, end := middleware.trace.WithSpan(c.Request.Context(), string(core.SpanAdminAuthMiddleware))
		meta := core.TraceAdminAuthMeta{ClientIP: c.ClientIP()}

		token := middleware.readBearerToken(c)
		if token == "" {
			meta.Status = "missing_token"
			middleware.trace.ApplyTraceAttributes(span, meta)
			cause := cErr.Unauthorized("Missing bearer token")
			response.AbortWithError(c, cause)
			end(cause)
			return
		}

		claims := &core.AdminClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(middleware.config.App.SecretKey), nil
		})
		if err != nil || !parsed.Valid {
			meta.Status = "invalid_token"
			middleware.trace.ApplyTraceAttributes(span, meta)
			cause := cErr.Unauthorized("Invalid or expired token")
			response.AbortWithError(c, cause)
			end(cause)
			return
		}

		meta.Username = claims.Username
		meta.Status = "success"
		middleware.trace.ApplyTraceAttributes(span, meta)

		traceID := span.SpanContext().TraceID()
		spanID := span.SpanContext().SpanID()
		middleware.logger.Info("[AdminAuth Authenticated]",
			zap.String("username", claims.Username),
			zap.String("spanId", fmt.Sprintf("%x", spanID[:])),
			zap.String("traceId", fmt.Sprintf("%x", traceID[:])),
		)
		end(nil)

		// 設定給下游
		c.Set("adminUsername", claims.Username)
		c.Next()
	}
}

func (middleware *AdminAuth) readBearerToken(c *gin.Context) string {
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if auth == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}
	return ""
}
