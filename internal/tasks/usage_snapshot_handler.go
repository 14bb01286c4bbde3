package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/origincert/partner-gateway/internal/metrics"
	"github.com/origincert/partner-gateway/internal/ratelimit"
)

// UsageSource reports current window admissions per counter key. Both rate
// limit stores implement it.
type UsageSource interface {
	Usage(ctx context.Context) (map[string]int64, error)
}

// UsageSnapshotHandler periodically mirrors the live window counters into the
// per-partner usage gauge and the log stream, giving operators a view of
// quota pressure without touching the request path.
type UsageSnapshotHandler struct {
	source UsageSource
	logger *zap.Logger
}

func NewUsageSnapshotHandler(source UsageSource, logger *zap.Logger) *UsageSnapshotHandler {
	return &UsageSnapshotHandler{
		source: source,
		logger: logger.Named("UsageSnapshotHandler"),
	}
}

func (h *UsageSnapshotHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeUsageSnapshot {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	var p UsageSnapshotPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error("Failed to unmarshal usage snapshot payload", zap.Error(err), zap.ByteString("payload", t.Payload()))
		return fmt.Errorf("invalid payload: %v", err)
	}

	usage, err := h.source.Usage(ctx)
	if err != nil {
		h.logger.Error("Failed to read window counters for usage snapshot", zap.Error(err))
		return fmt.Errorf("usage source error: %w", err)
	}

	// Gauges for partners whose windows expired must not linger at stale values.
	metrics.PartnerWindowUsage.Reset()

	for key, count := range usage {
		partnerID := ratelimit.PartnerFromCounterKey(key)
		metrics.PartnerWindowUsage.WithLabelValues(partnerID).Set(float64(count))
		h.logger.Debug("Partner window usage",
			zap.String("partner_id", partnerID),
			zap.Int64("admissions", count),
		)
	}

	h.logger.Info("Usage snapshot task finished", zap.Int("active_partners", len(usage)))
	return nil
}
