package maintenance

import (
	"time"

	"go-payroll/internal/features/payroll_import"
	"go-payroll/internal/features/snapshot"
)

// RunReport describes one retention pass.
type RunReport struct {
	StartedAt  time.Time                  `json:"startedAt"`
	FinishedAt time.Time                  `json:"finishedAt"`
	Trigger    string                     `json:"trigger"`
	Cleanup    *snapshot.CleanupResult    `json:"cleanup,omitempty"`
	Sweep      payroll_import.SweepResult `json:"sweep"`
	Error      string                     `json:"error,omitempty"`
}

const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)
