package handler

import (
	"strconv"

	"keybroker/utils/validate"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
)

// ProviderSet Provider对象集合
var ProviderSet = wire.NewSet(
	NewAdminProviderHandler,
	NewAdminPoolHandler,
	NewAdminSessionHandler,
	NewAdminUsageHandler,
	NewAdminSystemHandler,
	NewWsHandler,
	NewHealthHandler,
)

func getInt64Query(c *gin.Context, key string, defaultVal int64) int64 {
	if v := c.Query(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func bindAndValidate(c *gin.Context, req any) (cause error, responseErr error) {
	return validate.BindAndValidate(c, req)
}
