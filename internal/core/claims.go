package core

import "github.com/golang-jwt/jwt/v4"

// AdminClaims 管理端 Bearer Token 的內容
type AdminClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}
