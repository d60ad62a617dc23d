package clientauth

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"keybroker/internal/core"

	"github.com/stretchr/testify/assert"
)

func TestSignIsDeterministic(t *testing.T) {
	a := Sign("user-1", "1767225600", "salt", core.AuthTypeConnection)
	b := Sign("user-1", "1767225600", "salt", core.AuthTypeConnection)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)

	// 用途是簽章的一部分
	assert.NotEqual(t, a, Sign("user-1", "1767225600", "salt", core.AuthTypeHeartbeat))
}

func TestVerifyRoundTrip(t *testing.T) {
	now := time.Now()
	ts := strconv.FormatInt(now.Unix(), 10)
	cred := Credential{
		UserID:    "user-1",
		Timestamp: ts,
		Signature: Sign("user-1", ts, "salt", core.AuthTypeConnection),
	}
	assert.True(t, Verify(cred, "salt", core.AuthTypeConnection, 300*time.Second, now))
	assert.False(t, Verify(cred, "other", core.AuthTypeConnection, 300*time.Second, now))
	assert.False(t, Verify(cred, "salt", core.AuthTypeHeartbeat, 300*time.Second, now))
}

func TestVerifySignatureCaseInsensitive(t *testing.T) {
	now := time.Now()
	ts := strconv.FormatInt(now.Unix(), 10)
	cred := Credential{
		UserID:    "user-1",
		Timestamp: ts,
		Signature: strings.ToUpper(Sign("user-1", ts, "salt", core.AuthTypeConnection)),
	}
	assert.True(t, Verify(cred, "salt", core.AuthTypeConnection, 300*time.Second, now))
}

func TestVerifyRejectsSkewedTimestamp(t *testing.T) {
	now := time.Now()
	skew := 300 * time.Second

	sign := func(at time.Time) Credential {
		ts := strconv.FormatInt(at.Unix(), 10)
		return Credential{
			UserID:    "user-1",
			Timestamp: ts,
			Signature: Sign("user-1", ts, "salt", core.AuthTypeConnection),
		}
	}

	assert.True(t, Verify(sign(now.Add(-299*time.Second)), "salt", core.AuthTypeConnection, skew, now))
	assert.False(t, Verify(sign(now.Add(-301*time.Second)), "salt", core.AuthTypeConnection, skew, now))
	// 客戶端時鐘超前同樣拒絕
	assert.False(t, Verify(sign(now.Add(301*time.Second)), "salt", core.AuthTypeConnection, skew, now))
}

func TestVerifyRejectsMalformedCredential(t *testing.T) {
	now := time.Now()
	skew := 300 * time.Second
	assert.False(t, Verify(Credential{}, "salt", core.AuthTypeConnection, skew, now))
	assert.False(t, Verify(Credential{UserID: "u", Timestamp: "not-a-number", Signature: "x"}, "salt", core.AuthTypeConnection, skew, now))
}
