package clientauth

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"keybroker/internal/core"
)

// Credential 客戶端連線/心跳攜帶的簽章資料。
// 簽章規則沿用既有客戶端：原始字串 = 10 位時間戳 + userID + 共享鹽值 + 用途，取 MD5 hex。
type Credential struct {
	UserID    string
	Timestamp string
	Signature string
}

// Sign 依規則產生簽章（客戶端模擬與測試用）
func Sign(userID, timestamp, salt string, authType core.AuthType) string {
	raw := timestamp + userID + salt + string(authType)
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Verify 驗證簽章與時間戳偏移。時間戳超出 skew 視為過期，簽章不分大小寫比對。
func Verify(cred Credential, salt string, authType core.AuthType, skew time.Duration, now time.Time) bool {
	if cred.UserID == "" || cred.Timestamp == "" || cred.Signature == "" {
		return false
	}
	ts, err := strconv.ParseInt(cred.Timestamp, 10, 64)
	if err != nil {
		return false
	}
	diff := now.Unix() - ts
	if diff < 0 {
		diff = -diff
	}
	if diff > int64(skew.Seconds()) {
		return false
	}
	expected := Sign(cred.UserID, cred.Timestamp, salt, authType)
	return strings.EqualFold(expected, cred.Signature)
}
