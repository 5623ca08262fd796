package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ticksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "livechat_scheduler_ticks_total",
	Help: "Number of scheduler ticks by outcome",
}, []string{"outcome"})

var dispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "livechat_scheduler_dispatched_total",
	Help: "Number of items published to display clients",
}, []string{"type"})

var substitutedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "livechat_scheduler_substituted_total",
	Help: "Number of items replaced by the moderation placeholder",
})

var tickErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "livechat_scheduler_tick_errors_total",
	Help: "Number of abandoned ticks",
})

var tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "livechat_scheduler_tick_duration_seconds",
	Help:    "Time spent in one scheduler tick",
	Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
})
