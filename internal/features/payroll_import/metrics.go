package payroll_import

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	previewCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_import_preview_cache_requests_total",
		Help: "Preview cache lookups by result (hit or miss)",
	}, []string{"result"})

	previewCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "payroll_import_preview_cache_entries",
		Help: "Number of parse results currently cached",
	})

	previewRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_import_preview_rows_total",
		Help: "Rows validated by preview, by terminal status",
	}, []string{"status"})

	confirmTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_import_confirm_total",
		Help: "Confirm requests by outcome",
	}, []string{"outcome"})

	confirmDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payroll_import_confirm_duration_seconds",
		Help:    "Time spent snapshotting and writing a confirmed import",
		Buckets: prometheus.DefBuckets,
	})
)
