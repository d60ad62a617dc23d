package service

import "strings"

// providerProfile 供應商差異的能力介面：授權標頭怎麼組、baseURL 怎麼正規化。
// 依供應商識別碼選擇，不做子類化。
type providerProfile interface {
	AuthHeader(apiKey string) (name, value string)
	NormalizeBaseURL(raw string) string
}

// bearerProfile 預設慣例：Authorization: Bearer <key>
type bearerProfile struct{}

func (bearerProfile) AuthHeader(apiKey string) (string, string) {
	return "Authorization", "Bearer " + apiKey
}

func (bearerProfile) NormalizeBaseURL(raw string) string {
	return strings.TrimRight(raw, "/")
}

// apiKeyHeaderProfile 金鑰直接放自訂標頭的供應商
type apiKeyHeaderProfile struct {
	header string
}

func (p apiKeyHeaderProfile) AuthHeader(apiKey string) (string, string) {
	return p.header, apiKey
}

func (p apiKeyHeaderProfile) NormalizeBaseURL(raw string) string {
	return strings.TrimRight(raw, "/")
}

// profileFor 依供應商識別碼選擇 profile；未知供應商走 Bearer 慣例
func profileFor(providerName string) providerProfile {
	switch providerName {
	case "anthropic":
		return apiKeyHeaderProfile{header: "x-api-key"}
	case "azure", "azure-openai":
		return apiKeyHeaderProfile{header: "api-key"}
	default:
		return bearerProfile{}
	}
}
