package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGrantsWarmup primes the grant cache for active tenants.
	TaskGrantsWarmup = "access:warm_grants"
	// TaskAuditCleanup prunes audit_logs past the retention window.
	TaskAuditCleanup = "audit:cleanup"
)

// GrantsWarmupPayload selects which tenants to warm.
type GrantsWarmupPayload struct {
	Scope string `json:"scope"`
}

// NewGrantsWarmupTask constructs an Asynq task.
func NewGrantsWarmupTask(scope string) (*asynq.Task, error) {
	data, err := json.Marshal(GrantsWarmupPayload{Scope: scope})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGrantsWarmup, data), nil
}

// AuditCleanupPayload carries the retention window in hours.
type AuditCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewAuditCleanupTask constructs an Asynq task.
func NewAuditCleanupTask(retentionHours int) (*asynq.Task, error) {
	data, err := json.Marshal(AuditCleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditCleanup, data), nil
}
