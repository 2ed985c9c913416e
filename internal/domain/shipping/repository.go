package shipping

import (
	"context"

	"github.com/google/uuid"
)

// RemoteRefs carries the remote identifiers a stage has learned. Empty
// fields are left untouched on write.
type RemoteRefs struct {
	InboundPlanID     string
	PackingOptionID   string
	PlacementOptionID string
}

// ShipmentRequestRepository persists ShipmentRequest state. Snapshot writes
// are merges, never blind overwrites: UpdateSnapshot runs the apply function
// against the currently stored snapshot inside a transaction.
type ShipmentRequestRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ShipmentRequest, error)
	SaveRemoteRefs(ctx context.Context, tenantID, id uuid.UUID, refs RemoteRefs) error
	UpdateSnapshot(ctx context.Context, tenantID, id uuid.UUID, apply func(*PlanSnapshot)) (*PlanSnapshot, error)
}

// IntakeRepository exposes the per-SKU quantities confirmed during intake,
// stored independently of this core.
type IntakeRepository interface {
	ConfirmedQuantities(ctx context.Context, tenantID, requestID uuid.UUID) (map[string]int, error)
}

// IntegrationRepository supplies the per-tenant marketplace credential record.
type IntegrationRepository interface {
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*SellerIntegration, error)
}
