package snapshot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	snapshotsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payroll_snapshots_created_total",
		Help: "Snapshots taken before bulk writes",
	})

	rollbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_rollbacks_total",
		Help: "Rollbacks executed by status and strategy",
	}, []string{"status", "strategy"})

	auditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payroll_audit_write_failures_total",
		Help: "Audit events that could not be persisted",
	})
)
