package shipping

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prepflow/backend/internal/domain/shared"
	"github.com/prepflow/backend/internal/domain/shipping"
	"github.com/prepflow/backend/internal/infrastructure/spapi"
)

// PackingGroupService hydrates the chosen option's packing groups with the
// platform's expected items, merges snapshot state and caller edits, and
// reconciles quantities against confirmed intake.
type PackingGroupService struct {
	requests shipping.ShipmentRequestRepository
	intake   shipping.IntakeRepository
	sessions SessionProvider
	api      spapi.InboundAPI
	throttle ThrottleStore
	cfg      *spapi.Config
	logger   *zap.Logger
}

// NewPackingGroupService creates a new PackingGroupService.
func NewPackingGroupService(
	requests shipping.ShipmentRequestRepository,
	intake shipping.IntakeRepository,
	sessions SessionProvider,
	api spapi.InboundAPI,
	throttle ThrottleStore,
	cfg *spapi.Config,
	logger *zap.Logger,
) *PackingGroupService {
	return &PackingGroupService{
		requests: requests,
		intake:   intake,
		sessions: sessions,
		api:      api,
		throttle: throttle,
		cfg:      cfg,
		logger:   logger,
	}
}

// Hydrate runs the group hydration and reconciliation stage.
func (s *PackingGroupService) Hydrate(ctx context.Context, tenantID, requestID uuid.UUID, req HydrateGroupsRequest) (*HydrateGroupsResponse, error) {
	record, err := s.requests.FindByIDForTenant(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	if record.InboundPlanID == "" || record.PackingOptionID == "" {
		return nil, shared.ErrInvalidState
	}
	planID := record.InboundPlanID

	if remaining, active, err := s.throttle.Cooldown(ctx, planID); err == nil && active {
		return nil, shipping.NewThrottled(remaining)
	}

	sess, err := s.sessions.Establish(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	groupIDs, err := s.discoverGroupIDs(ctx, sess, planID, record.PackingOptionID)
	if err != nil {
		return nil, err
	}
	if len(groupIDs) == 0 {
		return nil, shipping.NewStageError(shipping.CodeGroupsNotReady,
			"the chosen packing option references no packing groups")
	}

	warnings := []string{}
	snapshot := record.Snapshot
	if snapshot == nil || req.ResetSnapshot {
		snapshot = &shipping.PlanSnapshot{InboundPlanID: planID}
	}

	// Sequential on purpose: group reads share the plan's rate limit.
	groups := make([]shipping.PackingGroup, 0, len(groupIDs))
	for _, groupID := range groupIDs {
		items, err := s.fetchGroupItems(ctx, sess, planID, groupID)
		if err != nil {
			return nil, err
		}

		remote := shipping.PackingGroup{ID: groupID, Items: items}
		var upd *shipping.GroupUpdate
		if r, ok := req.PackingGroupUpdates[groupID]; ok {
			upd = r.toDomain()
		}
		groups = append(groups, shipping.ResolveGroup(remote, snapshot.Group(groupID), upd, req.ResetSnapshot))
	}

	confirmed, err := s.intake.ConfirmedQuantities(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	groups, rescaleWarning, err := reconcileGroups(groups, confirmed)
	if err != nil {
		return nil, err
	}
	if rescaleWarning != "" {
		warnings = append(warnings, rescaleWarning)
	}

	if _, err := s.requests.UpdateSnapshot(ctx, tenantID, requestID, func(snap *shipping.PlanSnapshot) {
		if req.ResetSnapshot {
			snap.Reset()
		}
		snap.SetRefs(shipping.RemoteRefs{InboundPlanID: planID, PackingOptionID: record.PackingOptionID})
		for _, g := range groups {
			snap.PutGroup(shipping.SnapshotGroup(g))
		}
	}); err != nil {
		return nil, err
	}

	s.logger.Info("packing groups hydrated",
		zap.String("inbound_plan_id", planID),
		zap.Int("group_count", len(groups)),
		zap.Strings("warnings", warnings),
	)

	resp := &HydrateGroupsResponse{InboundPlanID: planID, Warnings: warnings}
	for _, g := range groups {
		resp.Groups = append(resp.Groups, toGroupView(g))
	}
	return resp, nil
}

// discoverGroupIDs re-reads the chosen option's group list. Re-reading keeps
// the stage idempotent from a cold start instead of trusting stale state.
func (s *PackingGroupService) discoverGroupIDs(ctx context.Context, sess *spapi.Session, planID, optionID string) ([]string, error) {
	options, err := s.api.ListPackingOptions(ctx, sess, planID)
	if err != nil {
		if ce, ok := spapi.AsCallError(err); ok && ce.Kind == spapi.KindThrottled {
			if serr := s.throttle.SetCooldown(ctx, planID, ce.RetryAfter); serr != nil {
				s.logger.Warn("failed to record throttle cooldown", zap.Error(serr))
			}
			return nil, shipping.NewThrottled(ce.RetryAfter)
		}
		return nil, shipping.WrapStageError(shipping.CodeListPackingFailed, "failed to list packing options", err)
	}
	for _, o := range options {
		if o.ID == optionID {
			return o.GroupIDs, nil
		}
	}
	return nil, shipping.NewStageError(shipping.CodeGroupsNotReady,
		fmt.Sprintf("packing option %s is no longer offered for this plan", optionID))
}

// fetchGroupItems reads one group's expected items with a bounded linear
// retry over the transient status set. Exhausting the budget signals the
// caller to retry the whole stage later; a hard status fails it.
func (s *PackingGroupService) fetchGroupItems(ctx context.Context, sess *spapi.Session, planID, groupID string) ([]shipping.PackingGroupItem, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.GroupReadAttempts; attempt++ {
		expected, err := s.api.ListPackingGroupItems(ctx, sess, planID, groupID)
		if err == nil {
			return expectedToItems(expected), nil
		}
		lastErr = err

		ce, ok := spapi.AsCallError(err)
		if ok && !spapi.TransientGroupRead(ce.Status) {
			return nil, shipping.WrapStageError(shipping.CodeGroupsNotReady,
				fmt.Sprintf("group %s contents could not be read", groupID), err)
		}
		if attempt == s.cfg.GroupReadAttempts {
			break
		}
		if err := sleepStep(ctx, time.Duration(attempt)*s.cfg.GroupReadDelay); err != nil {
			return nil, err
		}
	}
	return nil, shipping.WrapStageError(shipping.CodeGroupsProcessing,
		fmt.Sprintf("group %s contents are still being populated; retry shortly", groupID), lastErr)
}

// reconcileGroups checks assembled quantities against confirmed intake,
// applying the uniform-factor rescale heuristic before failing.
func reconcileGroups(groups []shipping.PackingGroup, confirmed map[string]int) ([]shipping.PackingGroup, string, error) {
	mismatches := shipping.Reconcile(groups, confirmed)
	if len(mismatches) == 0 {
		return groups, "", nil
	}
	if factor, ok := shipping.RescaleFactor(mismatches); ok {
		if rescaled, ok := shipping.RescaleGroups(groups, factor); ok {
			if len(shipping.Reconcile(rescaled, confirmed)) == 0 {
				warning := fmt.Sprintf("assembled quantities were uniformly %dx the confirmed intake and have been rescaled", factor)
				return rescaled, warning, nil
			}
		}
	}
	return nil, "", shipping.NewQuantityMismatch(mismatches)
}

func expectedToItems(expected []shipping.ExpectedItem) []shipping.PackingGroupItem {
	items := make([]shipping.PackingGroupItem, 0, len(expected))
	for _, e := range expected {
		items = append(items, shipping.PackingGroupItem{
			SKU:        e.SKU,
			Quantity:   e.Quantity,
			PrepOwner:  e.PrepOwner,
			LabelOwner: e.LabelOwner,
			Labeled:    e.Labeled,
			Expiration: e.Expiration,
		})
	}
	return items
}
