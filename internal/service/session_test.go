package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"keybroker/internal/core"
	cErr "keybroker/internal/pkg/error"
	"keybroker/internal/telemetry"
	"keybroker/utils/clientauth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeConn 測試用連線：記錄寫出的 envelope，可選擇性阻塞寫入
type fakeConn struct {
	mu     sync.Mutex
	writes []Envelope
	closed bool
	block  chan struct{} // 非 nil 時 WriteJSON 會等到 channel 關閉
}

func (c *fakeConn) WriteJSON(v any) error {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if envelope, ok := v.(Envelope); ok {
		c.writes = append(c.writes, envelope)
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) received(messageType core.MessageType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, envelope := range c.writes {
		if envelope.Type == messageType {
			return true
		}
	}
	return false
}

func newSessionStack(t *testing.T) (*PoolService, *AllocationService, *SessionService) {
	t.Helper()
	trace := testTrace(t)
	logger := zap.NewNop()
	metric := telemetry.NewMetric(nil)
	conf := testConf()

	providers := NewProviderServiceWithStore(trace, logger, nil)
	pools := NewPoolServiceWithStore(trace, logger, metric, nil)
	quota := NewQuotaServiceWithStore(trace, logger, conf, nil)
	alloc := NewAllocationServiceWithStore(trace, logger, metric, providers, pools, quota, nil, nil)
	dynamicKey := NewDynamicKeyServiceWithStore(trace, logger, nil)
	sessions := NewSessionServiceWithSink(trace, logger, metric, conf, alloc, dynamicKey, nil)

	seedProvider(t, providers, "openai", 0)
	seedPool(t, pools, "openai", "pool-a", 10)
	return pools, alloc, sessions
}

func signedCredential(userID string, now time.Time, salt string) clientauth.Credential {
	ts := strconv.FormatInt(now.Unix(), 10)
	return clientauth.Credential{
		UserID:    userID,
		Timestamp: ts,
		Signature: clientauth.Sign(userID, ts, salt, core.AuthTypeConnection),
	}
}

func TestAdmitRejectsBadSignature(t *testing.T) {
	_, _, sessions := newSessionStack(t)
	cred := signedCredential("u1", time.Now(), "wrong-salt")

	_, err := sessions.Admit(context.Background(), cred, "c1", "127.0.0.1", &fakeConn{})
	require.Error(t, err)
	assert.Equal(t, cErr.AUTH_INVALID, cErr.From(err).ErrorCode())
	assert.Equal(t, 0, sessions.Count())
}

func TestAdmitRejectsExpiredTimestamp(t *testing.T) {
	_, _, sessions := newSessionStack(t)
	cred := signedCredential("u1", time.Now().Add(-10*time.Minute), "unit-test-salt")

	_, err := sessions.Admit(context.Background(), cred, "c1", "127.0.0.1", &fakeConn{})
	require.Error(t, err)
	assert.Equal(t, cErr.AUTH_INVALID, cErr.From(err).ErrorCode())
}

func TestAdmitEvictsPreviousSession(t *testing.T) {
	_, _, sessions := newSessionStack(t)
	ctx := context.Background()

	oldConn := &fakeConn{}
	oldSession, err := sessions.Admit(ctx, signedCredential("u1", time.Now(), "unit-test-salt"), "laptop", "10.0.0.1", oldConn)
	require.NoError(t, err)

	newConn := &fakeConn{}
	newSession, err := sessions.Admit(ctx, signedCredential("u1", time.Now(), "unit-test-salt"), "desktop", "10.0.0.2", newConn)
	require.NoError(t, err)

	// 同一身份同時只有一條 Active 會話
	assert.Equal(t, 1, sessions.Count())
	assert.Equal(t, "desktop", sessions.ActiveSession("u1").ClientID)
	assert.Equal(t, core.SessionClosed, oldSession.State())
	assert.Equal(t, core.SessionActive, newSession.State())
	assert.True(t, oldConn.isClosed())
	assert.False(t, newConn.isClosed())

	// 舊連線收到被踢的終端通知
	assert.True(t, oldConn.received(core.MessageError))
}

func TestEvictionReleasesOldAllocations(t *testing.T) {
	pools, alloc, sessions := newSessionStack(t)
	ctx := context.Background()

	_, err := sessions.Admit(ctx, signedCredential("u1", time.Now(), "unit-test-salt"), "laptop", "10.0.0.1", &fakeConn{})
	require.NoError(t, err)
	grant, err := alloc.Allocate(ctx, "u1", "laptop", "")
	require.NoError(t, err)

	_, err = sessions.Admit(ctx, signedCredential("u1", time.Now(), "unit-test-salt"), "desktop", "10.0.0.2", &fakeConn{})
	require.NoError(t, err)

	// 舊會話的綁定被釋放，容量回收
	_, _, stillBound := alloc.ActiveFor("u1", "laptop")
	assert.False(t, stillBound)
	snapshot, snapErr := pools.Get(grant.PoolID)
	require.NoError(t, snapErr)
	assert.Equal(t, 0, snapshot.CurrentClients)
}

func TestCloseReleasesEveryBindingOfTheIdentity(t *testing.T) {
	pools, alloc, sessions := newSessionStack(t)
	ctx := context.Background()

	session, err := sessions.Admit(ctx, signedCredential("u1", time.Now(), "unit-test-salt"), "desktop", "10.0.0.1", &fakeConn{})
	require.NoError(t, err)

	// 同身份在別的 clientID 下殘留的綁定也要一起釋放
	grantA, err := alloc.Allocate(ctx, "u1", "desktop", "")
	require.NoError(t, err)
	grantB, err := alloc.Allocate(ctx, "u1", "stale-client", "")
	require.NoError(t, err)
	require.Equal(t, grantA.PoolID, grantB.PoolID)

	sessions.Close(ctx, session, core.CloseByClient)

	assert.Equal(t, 0, alloc.ActiveCount())
	snapshot, snapErr := pools.Get(grantA.PoolID)
	require.NoError(t, snapErr)
	assert.Equal(t, 0, snapshot.CurrentClients)
}

func TestSweepStaleClosesTimedOutSessions(t *testing.T) {
	pools, alloc, sessions := newSessionStack(t)
	start := time.Now().UTC()
	current := start
	sessions.now = func() time.Time { return current }

	ctx := context.Background()
	conn := &fakeConn{}
	_, err := sessions.Admit(ctx, signedCredential("u1", start, "unit-test-salt"), "laptop", "10.0.0.1", conn)
	require.NoError(t, err)
	grant, err := alloc.Allocate(ctx, "u1", "laptop", "")
	require.NoError(t, err)

	// 還沒超過 interval * factor：不動
	current = start.Add(170 * time.Second)
	assert.Equal(t, 0, sessions.SweepStale(ctx))

	// 超過 60s * 3：逾時關閉並釋放綁定
	current = start.Add(181 * time.Second)
	assert.Equal(t, 1, sessions.SweepStale(ctx))
	assert.Equal(t, 0, sessions.Count())
	assert.True(t, conn.isClosed())

	snapshot, snapErr := pools.Get(grant.PoolID)
	require.NoError(t, snapErr)
	assert.Equal(t, 0, snapshot.CurrentClients)
}

func TestTouchDefersSweep(t *testing.T) {
	_, _, sessions := newSessionStack(t)
	start := time.Now().UTC()
	current := start
	sessions.now = func() time.Time { return current }

	ctx := context.Background()
	session, err := sessions.Admit(ctx, signedCredential("u1", start, "unit-test-salt"), "laptop", "10.0.0.1", &fakeConn{})
	require.NoError(t, err)

	current = start.Add(170 * time.Second)
	sessions.Touch(session)

	current = start.Add(200 * time.Second)
	assert.Equal(t, 0, sessions.SweepStale(ctx))
	assert.Equal(t, 1, sessions.Count())
}

func TestSendDropsWhenBufferFull(t *testing.T) {
	_, _, sessions := newSessionStack(t)
	ctx := context.Background()

	conn := &fakeConn{block: make(chan struct{})}
	session, err := sessions.Admit(ctx, signedCredential("u1", time.Now(), "unit-test-salt"), "laptop", "10.0.0.1", conn)
	require.NoError(t, err)

	// 等 writeLoop 取走 welcome 並卡在寫入上，佇列清空
	require.Eventually(t, func() bool { return len(session.sendCh) == 0 }, time.Second, 5*time.Millisecond)

	// SendBuffer = 4：塞滿之後開始丟棄
	for i := 0; i < 4; i++ {
		assert.True(t, sessions.Send(session, Envelope{Type: core.MessageUserUpdate}))
	}
	assert.False(t, sessions.Send(session, Envelope{Type: core.MessageUserUpdate}))

	close(conn.block)
	sessions.Close(ctx, session, core.CloseByClient)
	assert.False(t, sessions.Send(session, Envelope{Type: core.MessageUserUpdate}))
}

func TestVerifyCredentialAcceptsRotatedDynamicKey(t *testing.T) {
	trace := testTrace(t)
	logger := zap.NewNop()
	conf := testConf()
	dynamicKey := NewDynamicKeyServiceWithStore(trace, logger, nil)
	sessions := NewSessionServiceWithSink(trace, logger, telemetry.NewMetric(nil), conf, nil, dynamicKey, nil)

	rotated, err := dynamicKey.Rotate(context.Background(), "rotated-dynamic-key-0001")
	require.NoError(t, err)
	require.Equal(t, int64(1), rotated.Version)

	now := time.Now()
	// 動態金鑰簽的過
	assert.NoError(t, sessions.VerifyCredential(signedCredential("u1", now, "rotated-dynamic-key-0001"), core.AuthTypeConnection))
	// 靜態鹽值簽的也過（輪替期間的寬限）
	assert.NoError(t, sessions.VerifyCredential(signedCredential("u1", now, "unit-test-salt"), core.AuthTypeConnection))
	// 其他鹽值不行
	assert.Error(t, sessions.VerifyCredential(signedCredential("u1", now, "stale-key"), core.AuthTypeConnection))
	// 用途不符不行：connection 簽章不能拿來當 heartbeat
	assert.Error(t, sessions.VerifyCredential(signedCredential("u1", now, "unit-test-salt"), core.AuthTypeHeartbeat))
}

func TestBroadcastReachesAllSessions(t *testing.T) {
	_, _, sessions := newSessionStack(t)
	ctx := context.Background()

	connA := &fakeConn{}
	connB := &fakeConn{}
	_, err := sessions.Admit(ctx, signedCredential("u1", time.Now(), "unit-test-salt"), "c1", "10.0.0.1", connA)
	require.NoError(t, err)
	_, err = sessions.Admit(ctx, signedCredential("u2", time.Now(), "unit-test-salt"), "c2", "10.0.0.2", connB)
	require.NoError(t, err)

	delivered := sessions.Broadcast(Envelope{Type: core.MessageUserUpdate})
	assert.Equal(t, 2, delivered)

	require.Eventually(t, func() bool {
		return connA.received(core.MessageUserUpdate) && connB.received(core.MessageUserUpdate)
	}, time.Second, 5*time.Millisecond)
}

func TestBroadcastAdminsSkipsRegularSessions(t *testing.T) {
	_, _, sessions := newSessionStack(t)
	ctx := context.Background()

	adminConn := &fakeConn{}
	regularConn := &fakeConn{}
	adminSession, err := sessions.Admit(ctx, signedCredential("ops", time.Now(), "unit-test-salt"), "console", "10.0.0.1", adminConn)
	require.NoError(t, err)
	_, err = sessions.Admit(ctx, signedCredential("u1", time.Now(), "unit-test-salt"), "c1", "10.0.0.2", regularConn)
	require.NoError(t, err)

	sessions.MarkAdmin(adminSession)
	assert.True(t, adminSession.IsAdmin())

	delivered := sessions.BroadcastAdmins(Envelope{Type: core.MessageUserDelete})
	assert.Equal(t, 1, delivered)

	require.Eventually(t, func() bool {
		return adminConn.received(core.MessageUserDelete)
	}, time.Second, 5*time.Millisecond)
	assert.False(t, regularConn.received(core.MessageUserDelete))
}

func TestCloseAllOnShutdown(t *testing.T) {
	_, _, sessions := newSessionStack(t)
	ctx := context.Background()

	connA := &fakeConn{}
	connB := &fakeConn{}
	_, err := sessions.Admit(ctx, signedCredential("u1", time.Now(), "unit-test-salt"), "c1", "10.0.0.1", connA)
	require.NoError(t, err)
	_, err = sessions.Admit(ctx, signedCredential("u2", time.Now(), "unit-test-salt"), "c2", "10.0.0.2", connB)
	require.NoError(t, err)

	assert.Equal(t, 2, sessions.CloseAll(ctx, core.CloseByShutdown))
	assert.Equal(t, 0, sessions.Count())
	assert.True(t, connA.isClosed())
	assert.True(t, connB.isClosed())
}
