package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the Prometheus metrics for the ad service. A nil *Registry
// is valid and records nothing.
type Registry struct {
	registry *prometheus.Registry

	CacheOps         *prometheus.CounterVec
	AdsServed        *prometheus.CounterVec
	RotationsRebuilt *prometheus.CounterVec
	RotationSize     *prometheus.GaugeVec
	ReaperRuns       *prometheus.CounterVec
	ReaperAds        *prometheus.CounterVec
	TaskDuration     *prometheus.HistogramVec
	RequestDuration  *prometheus.HistogramVec
}

func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		CacheOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adcomb_rotation_cache_operations_total",
				Help: "Rotation cache operations by operation and result",
			},
			[]string{"operation", "result"},
		),

		AdsServed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adcomb_ads_served_total",
				Help: "Banner ads served by placement key",
			},
			[]string{"key"},
		),

		RotationsRebuilt: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adcomb_rotations_rebuilt_total",
				Help: "Rotation snapshots rebuilt from the store by placement key",
			},
			[]string{"key"},
		),

		RotationSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "adcomb_rotation_size",
				Help: "Number of ads in the last rebuilt rotation by placement key",
			},
			[]string{"key"},
		),

		ReaperRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adcomb_reaper_runs_total",
				Help: "Reaper task runs by task and result",
			},
			[]string{"task", "result"},
		),

		ReaperAds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adcomb_reaper_ads_total",
				Help: "Ads handled by the reaper by task and outcome",
			},
			[]string{"task", "outcome"},
		),

		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adcomb_task_duration_seconds",
				Help:    "Duration of scheduled tasks in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"task"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adcomb_http_request_duration_seconds",
				Help:    "HTTP request duration by route and status",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "status"},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.CacheOps,
		r.AdsServed,
		r.RotationsRebuilt,
		r.RotationSize,
		r.ReaperRuns,
		r.ReaperAds,
		r.TaskDuration,
		r.RequestDuration,
	)
	return r
}

func (r *Registry) CacheOp(op, result string) {
	if r == nil {
		return
	}
	r.CacheOps.WithLabelValues(op, result).Inc()
}

func (r *Registry) RotationRebuilt(key string, size int) {
	if r == nil {
		return
	}
	r.RotationsRebuilt.WithLabelValues(key).Inc()
	r.RotationSize.WithLabelValues(key).Set(float64(size))
}

func (r *Registry) AdServed(key string) {
	if r == nil {
		return
	}
	r.AdsServed.WithLabelValues(key).Inc()
}

func (r *Registry) ReaperRun(task string, err error) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	r.ReaperRuns.WithLabelValues(task, result).Inc()
}

func (r *Registry) ReaperAd(task, outcome string) {
	if r == nil {
		return
	}
	r.ReaperAds.WithLabelValues(task, outcome).Inc()
}

func (r *Registry) TaskCompleted(task string, d time.Duration) {
	if r == nil {
		return
	}
	r.TaskDuration.WithLabelValues(task).Observe(d.Seconds())
}

func (r *Registry) Request(route, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.RequestDuration.WithLabelValues(route, status).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
