package error

const (
	// 0 ~ 999: 成功類別
	SUCCESS = 0 // 200 OK

	// 40000 ~ 49999: 用戶請求錯誤 (400 系列)
	BAD_REQUEST_BODY    = 40000 // 400 - 無效的請求體
	BAD_REQUEST_PARAMS  = 40001 // 400 - 無效的請求參數
	BAD_REQUEST_HEADERS = 40002 // 400 - 無效的請求標頭
	DUPLICATE_PROVIDER  = 40003 // 400 - 供應商識別碼重複
	PROVIDER_IN_USE     = 40004 // 400 - 供應商仍有密鑰池引用

	// 40100 ~ 40399: 驗證與權限錯誤 (401 403 系列)
	UNAUTHORIZED    = 40100 // 401 - 未授權
	INVALID_SESSION = 40101 // 401 - 會話失效
	AUTH_INVALID    = 40102 // 401 - 客戶端簽章無效或過期
	SESSION_EVICTED = 40103 // 401 - 會話因新登入被踢出
	FORBIDDEN       = 40301 // 403 - 禁止訪問
	ACCESS_DISABLED = 40302 // 403 - 用戶的存取被停用

	// 40400 ~ 40499: 資源錯誤 (404 系列)
	NOT_FOUND = 40400 // 404 - 資源未找到

	// 40900 ~ 40999: 資源衝突 (409 系列)
	POOL_EXHAUSTED      = 40902 // 409 - 單一密鑰池已滿
	ALL_POOLS_EXHAUSTED = 40903 // 409 - 所有合格密鑰池皆滿

	// 42900 ~ 42999: 流量限制錯誤 (429 系列)
	RATE_LIMIT_EXCEEDED = 42900 // 429 - 速率限制超過
	QUOTA_EXCEEDED      = 42901 // 429 - 用量配額已滿

	// 50000 ~ 50199: 伺服器內部錯誤 (500 系列)
	INTERNAL_ERROR      = 50000 // 500 - 內部錯誤
	DATABASE_ERROR      = 50001 // 500 - 資料庫錯誤
	SERVICE_UNAVAILABLE = 50002 // 503 - 服務暫停 (維護模式)
)
