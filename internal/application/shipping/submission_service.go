package shipping

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prepflow/backend/internal/domain/shared"
	"github.com/prepflow/backend/internal/domain/shipping"
	"github.com/prepflow/backend/internal/infrastructure/spapi"
)

// SubmissionService submits the final package groupings, polls the
// operation, verifies boxes actually attached to the plan, and drives
// best-effort placement generation.
type SubmissionService struct {
	requests shipping.ShipmentRequestRepository
	intake   shipping.IntakeRepository
	sessions SessionProvider
	api      spapi.InboundAPI
	poller   OperationPoller
	throttle ThrottleStore
	audit    AuditStore
	logger   *zap.Logger
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	requests shipping.ShipmentRequestRepository,
	intake shipping.IntakeRepository,
	sessions SessionProvider,
	api spapi.InboundAPI,
	poller OperationPoller,
	throttle ThrottleStore,
	audit AuditStore,
	logger *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		requests: requests,
		intake:   intake,
		sessions: sessions,
		api:      api,
		poller:   poller,
		throttle: throttle,
		audit:    audit,
		logger:   logger,
	}
}

// Submit runs the submission and verification stage.
func (s *SubmissionService) Submit(ctx context.Context, tenantID, requestID uuid.UUID, req SubmitPackingRequest) (*SubmitPackingResponse, error) {
	record, err := s.requests.FindByIDForTenant(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	if record.InboundPlanID == "" {
		return nil, shared.ErrInvalidState
	}
	planID := record.InboundPlanID

	if remaining, active, err := s.throttle.Cooldown(ctx, planID); err == nil && active {
		return nil, shipping.NewThrottled(remaining)
	}

	groups, err := workingGroups(record.Snapshot, req.PackingGroupUpdates)
	if err != nil {
		return nil, err
	}

	// The quantity invariant must hold at the moment of submission, not
	// just at hydration time.
	confirmed, err := s.intake.ConfirmedQuantities(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	groups, rescaleWarning, err := reconcileGroups(groups, confirmed)
	if err != nil {
		return nil, err
	}

	groupings := make([]*shipping.PackageGrouping, 0, len(groups))
	for _, g := range groups {
		pg, err := shipping.BuildPackageGrouping(g)
		if err != nil {
			return nil, err
		}
		groupings = append(groupings, pg)
	}

	sess, err := s.sessions.Establish(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	warnings := []string{}
	if rescaleWarning != "" {
		warnings = append(warnings, rescaleWarning)
	}

	opID, err := s.api.SetPackingInformation(ctx, sess, planID, groupings)
	if err != nil {
		return nil, s.submitError(ctx, planID, err)
	}

	result, err := s.poller.PollOperation(ctx, sess, opID)
	if err != nil {
		return nil, s.submitError(ctx, planID, err)
	}
	if !result.Terminal {
		return nil, shipping.NewStageError(shipping.CodeBoxesNotReady,
			"packing submission is still processing; retry shortly")
	}
	if result.Operation.State != shipping.OperationSuccess {
		if placementConfirmedProblem(result.Problems) {
			return nil, shipping.NewPlacementConfirmed()
		}
		return nil, shipping.NewStageError(shipping.CodeSubmitPackingFailed,
			fmt.Sprintf("packing submission ended %s: %v", result.Operation.State, result.Problems))
	}

	// Terminal success is not trusted on its own; the plan must actually
	// have boxes attached before packing is declared complete.
	boxes, err := s.api.ListInboundPlanBoxes(ctx, sess, planID)
	if err != nil {
		return nil, s.submitError(ctx, planID, err)
	}
	boxCount := 0
	for _, b := range boxes {
		boxCount += b.Quantity
	}
	if boxCount == 0 {
		return nil, shipping.NewStageError(shipping.CodeBoxesNotReady,
			"submission succeeded but no boxes are attached to the plan yet; retry shortly")
	}

	resp := &SubmitPackingResponse{
		InboundPlanID: planID,
		OperationID:   opID,
		BoxCount:      boxCount,
	}

	if location, err := s.writeAuditRecord(ctx, tenantID, requestID, planID, opID, groupings); err != nil {
		warnings = append(warnings, "submission audit record could not be archived: "+err.Error())
	} else {
		resp.AuditLocation = location
	}

	if req.IncludePlacement {
		placementID, warn := s.generatePlacement(ctx, sess, planID)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		resp.PlacementOptionID = placementID
	}

	refs := shipping.RemoteRefs{InboundPlanID: planID, PlacementOptionID: resp.PlacementOptionID}
	if err := s.requests.SaveRemoteRefs(ctx, tenantID, requestID, refs); err != nil {
		return nil, err
	}
	if _, err := s.requests.UpdateSnapshot(ctx, tenantID, requestID, func(snap *shipping.PlanSnapshot) {
		snap.SetRefs(refs)
		for _, g := range groups {
			snap.PutGroup(shipping.SnapshotGroup(g))
		}
	}); err != nil {
		return nil, err
	}

	s.logger.Info("packing submitted and verified",
		zap.String("inbound_plan_id", planID),
		zap.String("operation_id", opID),
		zap.Int("box_count", boxCount),
		zap.String("placement_option_id", resp.PlacementOptionID),
		zap.Strings("warnings", warnings),
	)

	resp.Warnings = warnings
	return resp, nil
}

// workingGroups rebuilds the group set from the persisted snapshot plus any
// last-minute caller edits. Submission without prior hydration is refused.
func workingGroups(snapshot *shipping.PlanSnapshot, updates map[string]GroupUpdateRequest) ([]shipping.PackingGroup, error) {
	if snapshot == nil || len(snapshot.PackingGroups) == 0 {
		return nil, shipping.NewStageError(shipping.CodeGroupsNotReady,
			"packing groups have not been hydrated for this request")
	}
	groups := make([]shipping.PackingGroup, 0, len(snapshot.PackingGroups))
	for i := range snapshot.PackingGroups {
		gs := snapshot.PackingGroups[i]
		base := groupFromSnapshot(gs)
		var upd *shipping.GroupUpdate
		if r, ok := updates[gs.ID]; ok {
			upd = r.toDomain()
		}
		// The snapshot entry is passed through so caller-confirmed per-box
		// rows survive the restart; the scalar fields are already on base.
		groups = append(groups, shipping.ResolveGroup(base, &snapshot.PackingGroups[i], upd, false))
	}
	return groups, nil
}

func groupFromSnapshot(gs shipping.GroupSnapshot) shipping.PackingGroup {
	g := shipping.PackingGroup{
		ID:            gs.ID,
		BoxCount:      gs.BoxCount,
		Length:        gs.Length,
		Width:         gs.Width,
		Height:        gs.Height,
		DimensionUnit: gs.DimensionUnit,
		Weight:        gs.Weight,
		WeightUnit:    gs.WeightUnit,
	}
	for _, it := range gs.Items {
		g.Items = append(g.Items, shipping.PackingGroupItem{
			SKU:        it.SKU,
			Quantity:   it.Quantity,
			Expiration: it.Expiration,
			LotCode:    it.LotCode,
		})
	}
	return g
}

// generatePlacement drives the generate-poll-list cycle for placement
// options. Packing has already succeeded, so every failure here degrades
// to a warning.
func (s *SubmissionService) generatePlacement(ctx context.Context, sess *spapi.Session, planID string) (string, string) {
	opID, err := s.api.GeneratePlacementOptions(ctx, sess, planID)
	if err != nil {
		return "", "placement generation could not be started: " + err.Error()
	}
	result, err := s.poller.PollOperation(ctx, sess, opID)
	if err != nil {
		return "", "placement generation polling failed: " + err.Error()
	}
	if !result.Terminal || result.Operation.State != shipping.OperationSuccess {
		return "", fmt.Sprintf("placement generation did not complete (%s); it can be retried later", result.Operation.State)
	}
	placements, err := s.api.ListPlacementOptions(ctx, sess, planID)
	if err != nil {
		return "", "placement options could not be listed: " + err.Error()
	}
	if len(placements) == 0 {
		return "", "placement generation completed but no options were returned yet"
	}
	for _, p := range placements {
		if p.Confirmed() {
			return p.ID, ""
		}
	}
	return placements[0].ID, ""
}

type submissionAuditRecord struct {
	RequestID   uuid.UUID                   `json:"request_id"`
	PlanID      string                      `json:"inbound_plan_id"`
	OperationID string                      `json:"operation_id"`
	SubmittedAt time.Time                   `json:"submitted_at"`
	Groupings   []*shipping.PackageGrouping `json:"groupings"`
}

func (s *SubmissionService) writeAuditRecord(ctx context.Context, tenantID, requestID uuid.UUID, planID, opID string, groupings []*shipping.PackageGrouping) (string, error) {
	doc, err := json.Marshal(submissionAuditRecord{
		RequestID:   requestID,
		PlanID:      planID,
		OperationID: opID,
		SubmittedAt: time.Now().UTC(),
		Groupings:   groupings,
	})
	if err != nil {
		return "", err
	}
	return s.audit.PutSubmissionRecord(ctx, tenantID, requestID, doc)
}

func (s *SubmissionService) submitError(ctx context.Context, planID string, err error) error {
	ce, ok := spapi.AsCallError(err)
	if !ok {
		return shipping.WrapStageError(shipping.CodeSubmitPackingFailed, "packing submission failed", err)
	}
	switch ce.Kind {
	case spapi.KindThrottled:
		if serr := s.throttle.SetCooldown(ctx, planID, ce.RetryAfter); serr != nil {
			s.logger.Warn("failed to record throttle cooldown", zap.Error(serr))
		}
		return shipping.NewThrottled(ce.RetryAfter)
	case spapi.KindPlacementConfirmed:
		return shipping.NewPlacementConfirmed()
	default:
		return shipping.WrapStageError(shipping.CodeSubmitPackingFailed, "packing submission failed", err)
	}
}
