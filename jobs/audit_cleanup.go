package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/clinicore/clinicore/internal/jobs"
	"github.com/clinicore/clinicore/internal/shared"
)

// AuditCleanupJob prunes audit_logs rows older than the retention window.
type AuditCleanupJob struct {
	audit   *shared.AuditLogger
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewAuditCleanupJob constructs the job. metrics may be nil.
func NewAuditCleanupJob(audit *shared.AuditLogger, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditCleanupJob {
	return &AuditCleanupJob{audit: audit, logger: logger, metrics: metrics}
}

// Handle processes TaskAuditCleanup tasks.
func (j *AuditCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("audit_cleanup")
	var payload AuditCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	retention := time.Duration(payload.RetentionHours) * time.Hour
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}

	removed, err := j.audit.Cleanup(ctx, retention)
	if err != nil {
		return tracker.End(err)
	}
	j.logger.Info("audit cleanup complete", slog.Int64("removed", removed))
	return tracker.End(nil)
}
