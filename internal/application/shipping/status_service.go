package shipping

import (
	"context"

	"github.com/google/uuid"

	"github.com/prepflow/backend/internal/domain/shipping"
)

// StatusService is the read-only view over a shipment request's
// orchestration progress.
type StatusService struct {
	requests shipping.ShipmentRequestRepository
}

// NewStatusService creates a new StatusService.
func NewStatusService(requests shipping.ShipmentRequestRepository) *StatusService {
	return &StatusService{requests: requests}
}

// Status returns the current remote identifiers and snapshot contents.
func (s *StatusService) Status(ctx context.Context, tenantID, requestID uuid.UUID) (*StatusResponse, error) {
	record, err := s.requests.FindByIDForTenant(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}

	resp := &StatusResponse{
		RequestID:         record.ID,
		InboundPlanID:     record.InboundPlanID,
		PackingOptionID:   record.PackingOptionID,
		PlacementOptionID: record.PlacementOptionID,
	}
	if snap := record.Snapshot; snap != nil {
		savedAt := snap.SavedAt
		resp.SnapshotSavedAt = &savedAt
		resp.SnapshotVersion = snap.Version
		for _, gs := range snap.PackingGroups {
			resp.Groups = append(resp.Groups, toGroupView(groupFromSnapshot(gs)))
		}
	}
	return resp, nil
}
