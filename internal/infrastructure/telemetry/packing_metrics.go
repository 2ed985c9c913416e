// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// PackingMetrics provides business metrics for the inbound packing pipeline.
// It tracks stage outcomes, remote throttling, and submission activity.
type PackingMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	stageTotal      *Counter
	throttleTotal   *Counter
	submissionBoxes *Counter

	// Histogram metrics
	stageDuration *Histogram

	// Gauge metrics (point-in-time values)
	pendingRequests *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	pendingProvider PendingRequestsProvider
}

// PendingRequestsProvider reports how many shipment requests per tenant have
// remote references but no archived submission yet. The interface keeps the
// telemetry layer from depending on the shipping domain directly.
type PendingRequestsProvider interface {
	GetPendingRequestCounts(ctx context.Context) (map[uuid.UUID]int64, error)
}

// PackingMetricsConfig holds configuration for packing metrics.
type PackingMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	PendingProvider PendingRequestsProvider
}

// NewPackingMetrics creates a new PackingMetrics instance.
func NewPackingMetrics(cfg PackingMetricsConfig) (*PackingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pm := &PackingMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		pendingProvider: cfg.PendingProvider,
	}

	var err error

	pm.stageTotal, err = NewCounter(
		cfg.Meter,
		"prepflow_packing_stage_total",
		"Total number of packing stage executions by outcome",
		"{executions}",
	)
	if err != nil {
		return nil, err
	}

	pm.throttleTotal, err = NewCounter(
		cfg.Meter,
		"prepflow_spapi_throttle_total",
		"Total number of remote throttle responses",
		"{responses}",
	)
	if err != nil {
		return nil, err
	}

	pm.submissionBoxes, err = NewCounter(
		cfg.Meter,
		"prepflow_packing_boxes_submitted_total",
		"Total number of boxes confirmed across submissions",
		"{boxes}",
	)
	if err != nil {
		return nil, err
	}

	pm.stageDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "prepflow_packing_stage_duration_seconds",
		Description: "Duration of packing stage executions",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	pm.pendingRequests, err = NewGauge(
		cfg.Meter,
		"prepflow_packing_pending_requests",
		"Shipment requests with a confirmed packing option but no archived submission",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	return pm, nil
}

// =============================================================================
// Stage Metrics
// =============================================================================

// Stage identifies one step of the packing pipeline for metrics labeling.
type Stage string

const (
	StageResolveOptions Stage = "resolve_options"
	StageHydrateGroups  Stage = "hydrate_groups"
	StageSubmit         Stage = "submit"
)

// StageOutcome represents the result of a stage execution.
type StageOutcome string

const (
	OutcomeSuccess  StageOutcome = "success"
	OutcomeRetry    StageOutcome = "retry"
	OutcomeFailed   StageOutcome = "failed"
	OutcomeThrottle StageOutcome = "throttled"
)

// RecordStage records a stage execution with its outcome and duration.
func (pm *PackingMetrics) RecordStage(ctx context.Context, tenantID uuid.UUID, stage Stage, outcome StageOutcome, elapsed time.Duration) {
	pm.stageTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrStage.String(string(stage)),
		AttrOutcome.String(string(outcome)),
	)
	pm.stageDuration.RecordDuration(ctx, elapsed,
		AttrStage.String(string(stage)),
		AttrOutcome.String(string(outcome)),
	)
}

// RecordThrottle records a remote throttle response for a stage.
func (pm *PackingMetrics) RecordThrottle(ctx context.Context, tenantID uuid.UUID, stage Stage) {
	pm.throttleTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrStage.String(string(stage)),
	)
}

// RecordSubmittedBoxes records the number of boxes confirmed by a submission.
func (pm *PackingMetrics) RecordSubmittedBoxes(ctx context.Context, tenantID uuid.UUID, boxes int64) {
	pm.submissionBoxes.Add(ctx, boxes,
		AttrTenantID.String(tenantID.String()),
	)
}

// RecordPendingRequests records the current pending request count for a tenant.
// This is a gauge metric that should be updated periodically.
func (pm *PackingMetrics) RecordPendingRequests(ctx context.Context, tenantID uuid.UUID, count int64) {
	pm.pendingRequests.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// This is non-blocking - use Stop() to stop collection.
func (pm *PackingMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	pm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go pm.runPeriodicCollection(ctx, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (pm *PackingMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	pm.collectPendingMetrics(ctx)

	for {
		select {
		case <-pm.stopChan:
			pm.logger.Info("Stopping periodic packing metrics collection")
			return
		case <-ctx.Done():
			pm.logger.Info("Context cancelled, stopping periodic packing metrics collection")
			return
		case <-ticker.C:
			pm.collectPendingMetrics(ctx)
		}
	}
}

// collectPendingMetrics records the pending request gauge for every tenant.
func (pm *PackingMetrics) collectPendingMetrics(ctx context.Context) {
	if pm.pendingProvider == nil {
		pm.logger.Debug("No pending request provider configured, skipping gauge collection")
		return
	}

	counts, err := pm.pendingProvider.GetPendingRequestCounts(ctx)
	if err != nil {
		pm.logger.Error("Failed to collect pending request counts", zap.Error(err))
		return
	}

	for tenantID, count := range counts {
		pm.RecordPendingRequests(ctx, tenantID, count)
	}
}

// Stop stops the periodic collection.
func (pm *PackingMetrics) Stop() {
	pm.stopOnce.Do(func() {
		close(pm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewPackingMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
