package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"keybroker/config"
	"keybroker/internal/core"
	fluentdModel "keybroker/internal/database/fluentd/model"
	fluentdRepo "keybroker/internal/database/fluentd/repository"
	"keybroker/internal/dto"
	cErr "keybroker/internal/pkg/error"
	"keybroker/internal/telemetry"
	"keybroker/utils/clientauth"

	"go.uber.org/zap"
)

// Conn 抽象一條雙工連線。WriteJSON 不可無限期阻塞（實作端自設寫入期限）。
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Envelope 伺服器→客戶端的訊息外層。Kind / Message 只在 error 時填。
type Envelope struct {
	Type    core.MessageType `json:"type"`
	Kind    core.ErrorKind   `json:"kind,omitempty"`
	Message string           `json:"message,omitempty"`
	Payload any              `json:"payload,omitempty"`
}

// SessionEventSink 會話事件的觀測通道（best-effort）
type SessionEventSink interface {
	LogSessionEvent(ctx context.Context, event fluentdModel.SessionEventLog) error
}

// Session 一條已認證的客戶端連線
type Session struct {
	UserID      string
	ClientID    string
	RemoteIP    string
	ConnectedAt time.Time

	conn      Conn
	sendCh    chan Envelope
	done      chan struct{}
	closeOnce sync.Once

	writeMu sync.Mutex // gorilla 連線只允許單一寫入者

	mu            sync.Mutex
	state         core.SessionState
	lastHeartbeat time.Time
	admin         bool
}

func (s *Session) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admin
}

func (s *Session) State() core.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) LastHeartbeat() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHeartbeat
}

func (s *Session) write(v Envelope) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// writeLoop 把佇列訊息逐一送出；連線關閉即結束
func (s *Session) writeLoop(logger *zap.Logger) {
	for {
		select {
		case envelope := <-s.sendCh:
			if err := s.write(envelope); err != nil {
				logger.Debug("session write failed",
					zap.String("user", s.UserID),
					zap.String("client", s.ClientID),
					zap.Error(err),
				)
			}
		case <-s.done:
			return
		}
	}
}

// SessionService 客戶端會話註冊表：單一身份同時只有一條 Active 連線
type SessionService struct {
	trace      *telemetry.Trace
	logger     *zap.Logger
	metric     *telemetry.Metric
	conf       *config.Configuration
	alloc      *AllocationService
	dynamicKey *DynamicKeyService
	events     SessionEventSink

	mu       sync.Mutex
	sessions map[string]*Session    // userID -> 現任會話
	locks    map[string]*sync.Mutex // userID -> 身份鎖（evict-then-admit 的原子性）

	now func() time.Time
}

func NewSessionService(
	trace *telemetry.Trace,
	logger *zap.Logger,
	metric *telemetry.Metric,
	conf *config.Configuration,
	alloc *AllocationService,
	dynamicKey *DynamicKeyService,
	fluentd *fluentdRepo.FluentdRepository,
) *SessionService {
	return &SessionService{
		trace:      trace,
		logger:     logger,
		metric:     metric,
		conf:       conf,
		alloc:      alloc,
		dynamicKey: dynamicKey,
		events:     fluentd.Events(),
		sessions:   make(map[string]*Session),
		locks:      make(map[string]*sync.Mutex),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// NewSessionServiceWithSink 測試用建構子（nil sink = 不發事件）
func NewSessionServiceWithSink(
	trace *telemetry.Trace,
	logger *zap.Logger,
	metric *telemetry.Metric,
	conf *config.Configuration,
	alloc *AllocationService,
	dynamicKey *DynamicKeyService,
	events SessionEventSink,
) *SessionService {
	return &SessionService{
		trace:      trace,
		logger:     logger,
		metric:     metric,
		conf:       conf,
		alloc:      alloc,
		dynamicKey: dynamicKey,
		events:     events,
		sessions:   make(map[string]*Session),
		locks:      make(map[string]*sync.Mutex),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// VerifyCredential 驗證客戶端簽章。輪替中的動態金鑰與靜態鹽值皆接受，
// 避免輪替瞬間把既有客戶端全部打斷。
func (s *SessionService) VerifyCredential(cred clientauth.Credential, authType core.AuthType) error {
	skew := time.Duration(s.conf.Session.SkewSeconds()) * time.Second
	now := s.now()

	salts := make([]string, 0, 2)
	if s.dynamicKey != nil {
		if key, _ := s.dynamicKey.Current(); key != "" {
			salts = append(salts, key)
		}
	}
	if s.conf.Session.AuthSalt != "" {
		salts = append(salts, s.conf.Session.AuthSalt)
	}
	for _, salt := range salts {
		if clientauth.Verify(cred, salt, authType, skew, now) {
			return nil
		}
	}
	return cErr.AuthInvalid("bad signature or expired timestamp")
}

// Admit 認證成功後登記會話。同身份已有 Active 會話時先踢舊再收新：
// best-effort 通知舊連線、釋放其綁定、關閉連線，整段在身份鎖內完成。
func (s *SessionService) Admit(ctx context.Context, cred clientauth.Credential, clientID, remoteIP string, conn Conn) (returnedSession *Session, returnedError error) {
	ctx, span, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	if returnedError = s.VerifyCredential(cred, core.AuthTypeConnection); returnedError != nil {
		s.trace.ApplyTraceAttributes(span, core.TraceSessionMeta{UserID: cred.UserID, ClientID: clientID, State: "auth_failed"})
		return nil, returnedError
	}
	if clientID == "" {
		return nil, cErr.BadRequestBody("clientID is required")
	}
	userID := cred.UserID

	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	if old := s.currentSession(userID); old != nil {
		s.evictLocked(ctx, old)
	}

	session := &Session{
		UserID:        userID,
		ClientID:      clientID,
		RemoteIP:      remoteIP,
		ConnectedAt:   s.now(),
		conn:          conn,
		sendCh:        make(chan Envelope, s.conf.Session.SendBufferSize()),
		done:          make(chan struct{}),
		state:         core.SessionActive,
		lastHeartbeat: s.now(),
	}
	go session.writeLoop(s.logger)

	s.mu.Lock()
	s.sessions[userID] = session
	s.mu.Unlock()

	if s.metric != nil && s.metric.ActiveSessions != nil {
		s.metric.ActiveSessions.Inc()
	}
	s.trace.ApplyTraceAttributes(span, core.TraceSessionMeta{UserID: userID, ClientID: clientID, State: string(core.SessionActive)})
	s.emitEvent(ctx, "admitted", session, "")

	s.Send(session, Envelope{
		Type: core.MessageWelcome,
		Payload: map[string]any{
			"heartbeatIntervalSec": s.conf.Session.HeartbeatInterval(),
		},
	})
	return session, nil
}

// MarkAdmin 標記管理端會話（連線帶有效管理 token 時）。
// 管理端會話額外收到 user_update / user_delete 這類目錄異動推播。
func (s *SessionService) MarkAdmin(session *Session) {
	session.mu.Lock()
	session.admin = true
	session.mu.Unlock()
}

// Touch 刷新心跳時間
func (s *SessionService) Touch(session *Session) {
	session.mu.Lock()
	session.lastHeartbeat = s.now()
	session.mu.Unlock()
}

// Close 關閉會話：解除註冊、釋放名下綁定、關閉連線。冪等。
func (s *SessionService) Close(ctx context.Context, session *Session, reason core.CloseReason) {
	lock := s.lockFor(session.UserID)
	lock.Lock()
	defer lock.Unlock()
	s.closeLocked(ctx, session, reason)
}

// SweepStale 掃描心跳逾時的會話並關閉（排程呼叫）。回傳關閉數。
func (s *SessionService) SweepStale(ctx context.Context) int {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	timeout := time.Duration(s.conf.Session.HeartbeatInterval()*s.conf.Session.TimeoutFactor()) * time.Second
	deadline := s.now().Add(-timeout)

	s.mu.Lock()
	stale := make([]*Session, 0)
	for _, session := range s.sessions {
		if session.LastHeartbeat().Before(deadline) {
			stale = append(stale, session)
		}
	}
	s.mu.Unlock()

	for _, session := range stale {
		if s.metric != nil && s.metric.HeartbeatTimeouts != nil {
			s.metric.HeartbeatTimeouts.Inc()
		}
		s.logger.Info("session heartbeat timeout",
			zap.String("user", session.UserID),
			zap.String("client", session.ClientID),
		)
		s.Close(ctx, session, core.CloseByTimeout)
	}
	return len(stale)
}

// CloseAll 關閉所有會話（停機流程呼叫）。回傳關閉數。
func (s *SessionService) CloseAll(ctx context.Context, reason core.CloseReason) int {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()

	for _, session := range sessions {
		s.Close(ctx, session, reason)
	}
	return len(sessions)
}

// Send 非阻塞送出：佇列滿了就丟棄，絕不無上限排隊
func (s *SessionService) Send(session *Session, envelope Envelope) bool {
	select {
	case <-session.done:
		return false
	default:
	}
	select {
	case session.sendCh <- envelope:
		return true
	default:
		s.logger.Debug("session send buffer full, dropping message",
			zap.String("user", session.UserID),
			zap.String("type", string(envelope.Type)),
		)
		return false
	}
}

// NotifyUser 推播給指定身份的現任會話
func (s *SessionService) NotifyUser(userID string, envelope Envelope) bool {
	session := s.currentSession(userID)
	if session == nil {
		return false
	}
	return s.Send(session, envelope)
}

// Broadcast 對所有會話 fan-out；慢消費者丟訊息，不拖慢其他連線。回傳實際送達數。
func (s *SessionService) Broadcast(envelope Envelope) int {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()

	delivered := 0
	for _, session := range sessions {
		if s.Send(session, envelope) {
			delivered++
		}
	}
	return delivered
}

// BroadcastAdmins 只對管理端會話 fan-out。回傳實際送達數。
func (s *SessionService) BroadcastAdmins(envelope Envelope) int {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()

	delivered := 0
	for _, session := range sessions {
		if !session.IsAdmin() {
			continue
		}
		if s.Send(session, envelope) {
			delivered++
		}
	}
	return delivered
}

// ActiveSession 查某身份的現任會話（無則 nil）
func (s *SessionService) ActiveSession(userID string) *Session {
	return s.currentSession(userID)
}

// List 目前所有會話（管理端）
func (s *SessionService) List() []*dto.SessionResponseDto {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()

	out := make([]*dto.SessionResponseDto, 0, len(sessions))
	for _, session := range sessions {
		item := &dto.SessionResponseDto{
			UserID:        session.UserID,
			ClientID:      session.ClientID,
			RemoteIP:      session.RemoteIP,
			ConnectedAt:   session.ConnectedAt,
			LastHeartbeat: session.LastHeartbeat(),
			Admin:         session.IsAdmin(),
		}
		if s.alloc != nil {
			if poolID, provider, ok := s.alloc.ActiveFor(session.UserID, session.ClientID); ok {
				item.PoolID = poolID
				item.Provider = provider
			}
		}
		out = append(out, item)
	}
	return out
}

// Count 目前 Active 會話數
func (s *SessionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// evictLocked 踢出舊會話：通知 → 釋放綁定 → 關閉。呼叫端須持有身份鎖。
func (s *SessionService) evictLocked(ctx context.Context, old *Session) {
	// best-effort 終端通知，送不出去就算了
	_ = old.write(Envelope{
		Type:    core.MessageError,
		Kind:    core.KindSessionEvicted,
		Message: fmt.Sprintf("a newer login for %s arrived", old.UserID),
	})
	if s.metric != nil && s.metric.SessionEvictions != nil {
		s.metric.SessionEvictions.Inc()
	}
	s.closeLocked(ctx, old, core.CloseByEviction)
}

// closeLocked 關閉的共同路徑。呼叫端須持有身份鎖。
func (s *SessionService) closeLocked(ctx context.Context, session *Session, reason core.CloseReason) {
	session.closeOnce.Do(func() {
		session.mu.Lock()
		session.state = core.SessionClosed
		session.mu.Unlock()
		close(session.done)

		s.mu.Lock()
		if s.sessions[session.UserID] == session {
			delete(s.sessions, session.UserID)
		}
		s.mu.Unlock()

		// 綁定釋放與關閉同步完成，不留下半釋放狀態。
		// 整個身份一起釋放，殘留在別的 clientID 下的綁定也不放過。
		if s.alloc != nil {
			s.alloc.ReleaseUser(ctx, session.UserID)
		}
		_ = session.conn.Close()

		if s.metric != nil && s.metric.ActiveSessions != nil {
			s.metric.ActiveSessions.Dec()
		}
		s.emitEvent(ctx, "closed", session, string(reason))
		s.logger.Debug("session closed",
			zap.String("user", session.UserID),
			zap.String("client", session.ClientID),
			zap.String("reason", string(reason)),
		)
	})
}

func (s *SessionService) currentSession(userID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

// lockFor 取得身份鎖。鎖不回收，數量以身份數為上界。
func (s *SessionService) lockFor(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

func (s *SessionService) emitEvent(ctx context.Context, event string, session *Session, reason string) {
	if s.events == nil {
		return
	}
	_ = s.events.LogSessionEvent(ctx, fluentdModel.SessionEventLog{
		Event:    event,
		UserID:   session.UserID,
		ClientID: session.ClientID,
		Reason:   reason,
		RemoteIP: session.RemoteIP,
		EventTS:  time.Now().UTC().Format(time.RFC3339Nano),
	})
}
