// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPendingRequestsProvider implements PendingRequestsProvider using GORM.
// It queries the shipment_requests table directly for aggregated counts.
type GormPendingRequestsProvider struct {
	db *gorm.DB
}

// NewGormPendingRequestsProvider creates a new GormPendingRequestsProvider.
func NewGormPendingRequestsProvider(db *gorm.DB) *GormPendingRequestsProvider {
	return &GormPendingRequestsProvider{db: db}
}

// GetPendingRequestCounts returns, per tenant, the number of shipment requests
// with a confirmed packing option that have not reached placement yet.
func (p *GormPendingRequestsProvider) GetPendingRequestCounts(ctx context.Context) (map[uuid.UUID]int64, error) {
	type result struct {
		TenantID uuid.UUID `gorm:"column:tenant_id"`
		Pending  int64     `gorm:"column:pending"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("shipment_requests").
		Select("tenant_id, COUNT(*) as pending").
		Where("packing_option_id <> '' AND placement_option_id = ''").
		Group("tenant_id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int64, len(results))
	for _, r := range results {
		counts[r.TenantID] = r.Pending
	}
	return counts, nil
}
