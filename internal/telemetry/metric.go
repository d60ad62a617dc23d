package telemetry

import (
	"keybroker/config"
	"keybroker/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric struct
type Metric struct {
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec
	AllocationsTotal    *prometheus.CounterVec
	AllocationFailTotal *prometheus.CounterVec
	ActiveSessions      prometheus.Gauge
	PoolOccupancy       *prometheus.GaugeVec
	HeartbeatTimeouts   prometheus.Counter
	SessionEvictions    prometheus.Counter
	config              *config.Configuration
}

// NewMetric 建立所有指標
func NewMetric(config *config.Configuration) *Metric {
	if config == nil || !config.Telemetry.Metric.Enabled {
		return &Metric{}
	}
	buckets := prometheus.DefBuckets
	if len(config.Telemetry.Metric.Buckets) > 0 {
		buckets = config.Telemetry.Metric.Buckets
	}
	return &Metric{
		config: config,
		HttpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: config.App.Name + "_" + string(core.MetricHttpRequestsTotal),
				Help: "Total received API requests",
			},
			labelNames(core.MetricLabelEndpoint, core.MetricLabelStatus),
		),
		HttpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    config.App.Name + "_" + string(core.MetricHttpRequestDuration),
				Help:    "Request duration (seconds)",
				Buckets: buckets,
			},
			labelNames(core.MetricLabelEndpoint),
		),
		AllocationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: config.App.Name + "_" + string(core.MetricAllocationsTotal),
				Help: "Granted key allocations",
			},
			labelNames(core.MetricLabelProvider, core.MetricLabelPool),
		),
		AllocationFailTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: config.App.Name + "_" + string(core.MetricAllocationFailTotal),
				Help: "Rejected allocation attempts by reason",
			},
			labelNames(core.MetricLabelReason),
		),
		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: config.App.Name + "_" + string(core.MetricActiveSessions),
				Help: "Currently active client sessions",
			},
		),
		PoolOccupancy: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: config.App.Name + "_" + string(core.MetricPoolOccupancy),
				Help: "Active allocations per key pool",
			},
			labelNames(core.MetricLabelProvider, core.MetricLabelPool),
		),
		HeartbeatTimeouts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: config.App.Name + "_" + string(core.MetricHeartbeatTimeouts),
				Help: "Sessions closed by the liveness sweep",
			},
		),
		SessionEvictions: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: config.App.Name + "_" + string(core.MetricSessionEvictions),
				Help: "Sessions evicted by a newer login",
			},
		),
	}
}

// labelNames helper: LabelName slice 轉成 []string
func labelNames(labels ...core.MetricLabelName) []string {
	strs := make([]string, len(labels))
	for i, l := range labels {
		strs[i] = string(l)
	}
	return strs
}
