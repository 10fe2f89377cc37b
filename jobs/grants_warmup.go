package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/clinicore/clinicore/internal/jobs"
)

// GrantWarmer is the slice of the grants service the warmup job needs.
type GrantWarmer interface {
	ActiveTenants(ctx context.Context) ([]uuid.UUID, error)
	WarmTenant(ctx context.Context, tenantID uuid.UUID) error
}

// GrantsWarmupJob primes the grant cache for every tenant with configured
// grants, so the first request after a deploy does not pay the postgres
// round-trip.
type GrantsWarmupJob struct {
	warmer  GrantWarmer
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewGrantsWarmupJob constructs the job. metrics may be nil.
func NewGrantsWarmupJob(warmer GrantWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *GrantsWarmupJob {
	return &GrantsWarmupJob{warmer: warmer, logger: logger, metrics: metrics}
}

// Handle processes TaskGrantsWarmup tasks.
func (j *GrantsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("grants_warmup")
	var payload GrantsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}

	tenants, err := j.warmer.ActiveTenants(ctx)
	if err != nil {
		return tracker.End(err)
	}

	warmed := 0
	for _, tenantID := range tenants {
		if err := j.warmer.WarmTenant(ctx, tenantID); err != nil {
			j.logger.Warn("warm tenant grants",
				slog.String("tenant_id", tenantID.String()),
				slog.Any("error", err))
			continue
		}
		warmed++
	}
	j.logger.Info("grant cache warmup complete",
		slog.Int("tenants", len(tenants)),
		slog.Int("warmed", warmed))
	return tracker.End(nil)
}
