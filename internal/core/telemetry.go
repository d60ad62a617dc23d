package core

const ContextTraceKey = "telemetry_trace_ctx"

// ==== 型別安全 span name ====
// 專案全域建議都寫這裡，方便集中管理
type TraceSpanName string

const (
	SpanHttpRequest         TraceSpanName = "http_request"
	SpanLoggerMiddleware    TraceSpanName = "logger_middleware"
	SpanRecoveryMiddleware  TraceSpanName = "recovery_middleware"
	SpanCorsMiddleware      TraceSpanName = "cors_middleware"
	SpanResponseMiddleware  TraceSpanName = "response_middleware"
	SpanAdminAuthMiddleware TraceSpanName = "admin_auth_middleware"
	SpanWebsocketSession    TraceSpanName = "websocket_session"
)

// 指標名稱常數
type MetricName string

const (
	MetricHttpRequestsTotal   MetricName = "requests_total"
	MetricHttpRequestDuration MetricName = "request_duration_seconds"
	MetricAllocationsTotal    MetricName = "allocations_total"
	MetricAllocationFailTotal MetricName = "allocation_fail_total"
	MetricActiveSessions      MetricName = "active_sessions"
	MetricPoolOccupancy       MetricName = "pool_occupancy"
	MetricHeartbeatTimeouts   MetricName = "heartbeat_timeouts_total"
	MetricSessionEvictions    MetricName = "session_evictions_total"
)

// label name 常數
type MetricLabelName string

const (
	MetricLabelEndpoint MetricLabelName = "endpoint"
	MetricLabelStatus   MetricLabelName = "status"
	MetricLabelReason   MetricLabelName = "reason"
	MetricLabelProvider MetricLabelName = "provider"
	MetricLabelPool     MetricLabelName = "pool"
)

type LoggerRequestMeta struct {
	Method     string            `trace:"request.method"`
	Path       string            `trace:"request.path"`
	FullPath   string            `trace:"request.full_path"`
	Query      string            `trace:"request.query"`
	Scheme     string            `trace:"http.scheme"`
	Host       string            `trace:"http.host"`
	UserAgent  string            `trace:"http.user_agent"`
	ContentLen int64             `trace:"http.request_content_length"`
	Proto      string            `trace:"http.flavor"`
	ClientIP   string            `trace:"net.peer.ip"`
	Headers    map[string]string `trace:"http.request.header"`
	Params     map[string]string `trace:"http.request.param"`
}

type TraceHttpServerMeta struct {
	ClientAddr        string `trace:"client.address"`
	HttpRequestMethod string `trace:"http.request.method"`
	HttpRoute         string `trace:"http.route"`
	HttpStatusCode    int    `trace:"http.response.status_code"`
	UrlPath           string `trace:"url.path"`
	UrlScheme         string `trace:"url.scheme"`
	UserAgent         string `trace:"user_agent.original"`
	ServerAddress     string `trace:"server.address"`
	NetworkPeerAddr   string `trace:"network.peer.address"`
	NetworkPeerPort   int    `trace:"network.peer.port"`
	NetworkProtoVer   string `trace:"network.protocol.version"`
	SpanTraceID       string `trace:"span.trace_id"`
}

type TraceResponseMeta struct {
	Path       string  `trace:"response.path"`
	Method     string  `trace:"response.method"`
	Status     int     `trace:"response.status"`
	Message    string  `trace:"response.message"`
	Code       int     `trace:"response.code"`
	DurationMs float64 `trace:"response.duration_ms"`
	Data       string  `trace:"response.data"`
}

type TracePanicMeta struct {
	Path       string  `trace:"panic.path"`
	Method     string  `trace:"panic.method"`
	ClientIP   string  `trace:"panic.client_ip"`
	UserAgent  string  `trace:"panic.user_agent"`
	DurationMs float64 `trace:"panic.duration_ms"`
	Message    string  `trace:"panic.message"`
	Stack      string  `trace:"panic.stack"`
	Status     int     `trace:"panic.status"`
}

type TraceAllocationMeta struct {
	UserID   string `trace:"allocation.user_id"`
	ClientID string `trace:"allocation.client_id"`
	Provider string `trace:"allocation.provider"`
	PoolID   string `trace:"allocation.pool_id"`
	Status   string `trace:"allocation.status"`
}

type TraceSessionMeta struct {
	UserID   string `trace:"session.user_id"`
	ClientID string `trace:"session.client_id"`
	State    string `trace:"session.state"`
	Reason   string `trace:"session.close_reason"`
}

type TraceDynamicKeyMeta struct {
	Version int64  `trace:"dynamic_key.version"`
	Op      string `trace:"dynamic_key.op"`
}

type TraceAdminAuthMeta struct {
	Username string `trace:"auth.admin_username"`
	ClientIP string `trace:"auth.client_ip"`
	Status   string `trace:"auth.status"`
}
