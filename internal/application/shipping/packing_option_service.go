package shipping

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prepflow/backend/internal/domain/shared"
	"github.com/prepflow/backend/internal/domain/shipping"
	"github.com/prepflow/backend/internal/infrastructure/spapi"
)

// PackingOptionService resolves which remote packing option a shipment
// request will use: list, generate when absent, select, confirm, and
// persist the outcome.
type PackingOptionService struct {
	requests shipping.ShipmentRequestRepository
	sessions SessionProvider
	api      spapi.InboundAPI
	poller   OperationPoller
	throttle ThrottleStore
	cfg      *spapi.Config
	logger   *zap.Logger
}

// NewPackingOptionService creates a new PackingOptionService.
func NewPackingOptionService(
	requests shipping.ShipmentRequestRepository,
	sessions SessionProvider,
	api spapi.InboundAPI,
	poller OperationPoller,
	throttle ThrottleStore,
	cfg *spapi.Config,
	logger *zap.Logger,
) *PackingOptionService {
	return &PackingOptionService{
		requests: requests,
		sessions: sessions,
		api:      api,
		poller:   poller,
		throttle: throttle,
		cfg:      cfg,
		logger:   logger,
	}
}

// Resolve runs the packing-option resolution stage for one shipment request.
func (s *PackingOptionService) Resolve(ctx context.Context, tenantID, requestID uuid.UUID, req ResolveOptionsRequest) (*ResolveOptionsResponse, error) {
	record, err := s.requests.FindByIDForTenant(ctx, tenantID, requestID)
	if err != nil {
		return nil, err
	}

	planID := record.InboundPlanID
	if req.InboundPlanID != "" {
		planID = req.InboundPlanID
	}
	if planID == "" {
		return nil, shared.ErrInvalidInput
	}

	if remaining, active, err := s.throttle.Cooldown(ctx, planID); err == nil && active {
		return nil, shipping.NewThrottled(remaining)
	}

	sess, err := s.sessions.Establish(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	warnings := []string{}

	// Plan reachability first; a throttled signal here carries the
	// server-suggested delay instead of retrying destructively.
	if _, err := s.api.GetPlan(ctx, sess, planID); err != nil {
		return nil, s.stageError(ctx, planID, err, shipping.CodePlanCheckFailed, "inbound plan is not reachable")
	}

	options, err := s.api.ListPackingOptions(ctx, sess, planID)
	if err != nil {
		return nil, s.stageError(ctx, planID, err, shipping.CodeListPackingFailed, "failed to list packing options")
	}

	if !anyGroupBearing(options) {
		options, err = s.generateAndRelist(ctx, sess, planID)
		if err != nil {
			return nil, err
		}
	}
	if len(options) == 0 {
		return nil, shipping.NewOptionsNotAvailable()
	}

	placementLocked, err := s.placementLocked(ctx, sess, planID)
	if err == nil && placementLocked {
		warnings = append(warnings, "placement is already confirmed for this plan; skipping packing-option confirmation")
	}

	chosen, adoptionWarning := selectOption(options, req.PackingOptionID)
	if adoptionWarning != "" {
		warnings = append(warnings, adoptionWarning)
	}

	if chosen.Status != shipping.OptionAccepted && !placementLocked {
		if err := s.confirmOption(ctx, sess, planID, chosen.ID); err != nil {
			se, ok := shipping.AsStageError(err)
			if ok && se.Code == shipping.CodePlacementConfirmed {
				// Confirmation rejected post-placement is benign here; the
				// groups can still be read.
				warnings = append(warnings, "packing option could not be confirmed because placement is already locked")
			} else {
				return nil, err
			}
		}
	}

	if err := s.requests.SaveRemoteRefs(ctx, tenantID, requestID, shipping.RemoteRefs{
		InboundPlanID:   planID,
		PackingOptionID: chosen.ID,
	}); err != nil {
		return nil, err
	}
	if _, err := s.requests.UpdateSnapshot(ctx, tenantID, requestID, func(snap *shipping.PlanSnapshot) {
		if req.ResetSnapshot {
			snap.Reset()
		}
		snap.SetRefs(shipping.RemoteRefs{InboundPlanID: planID, PackingOptionID: chosen.ID})
	}); err != nil {
		return nil, err
	}

	s.logger.Info("packing option resolved",
		zap.String("inbound_plan_id", planID),
		zap.String("packing_option_id", chosen.ID),
		zap.Int("option_count", len(options)),
		zap.Strings("warnings", warnings),
	)

	resp := &ResolveOptionsResponse{
		InboundPlanID:   planID,
		PackingOptionID: chosen.ID,
		GroupIDs:        chosen.GroupIDs,
		Warnings:        warnings,
	}
	for _, o := range options {
		resp.Options = append(resp.Options, PackingOptionView{
			ID:        o.ID,
			Status:    string(o.Status),
			Discounts: o.Discounts,
			GroupIDs:  o.GroupIDs,
		})
	}
	return resp, nil
}

// generateAndRelist triggers option generation, waits for the operation,
// then re-lists with a short fixed-interval loop to ride out population lag.
func (s *PackingOptionService) generateAndRelist(ctx context.Context, sess *spapi.Session, planID string) ([]shipping.PackingOption, error) {
	opID, err := s.api.GeneratePackingOptions(ctx, sess, planID)
	if err != nil {
		return nil, s.stageError(ctx, planID, err, shipping.CodeListPackingFailed, "failed to generate packing options")
	}

	result, err := s.poller.PollOperation(ctx, sess, opID)
	if err != nil {
		return nil, s.stageError(ctx, planID, err, shipping.CodeListPackingFailed, "failed polling option generation")
	}
	if !result.Terminal {
		return nil, shipping.NewStageError(shipping.CodeOptionsProcessing,
			"packing option generation is still running; retry shortly")
	}
	if result.Operation.State != shipping.OperationSuccess {
		return nil, shipping.NewStageError(shipping.CodeListPackingFailed,
			fmt.Sprintf("packing option generation ended %s: %v", result.Operation.State, result.Problems))
	}

	for attempt := 1; attempt <= s.cfg.ListRetryAttempts; attempt++ {
		options, err := s.api.ListPackingOptions(ctx, sess, planID)
		if err != nil {
			return nil, s.stageError(ctx, planID, err, shipping.CodeListPackingFailed, "failed to list packing options")
		}
		if anyGroupBearing(options) {
			return options, nil
		}
		if attempt == s.cfg.ListRetryAttempts {
			break
		}
		if err := sleepStep(ctx, s.cfg.ListRetryDelay); err != nil {
			return nil, err
		}
	}
	return nil, shipping.NewOptionsNotAvailable()
}

func (s *PackingOptionService) confirmOption(ctx context.Context, sess *spapi.Session, planID, optionID string) error {
	opID, err := s.api.ConfirmPackingOption(ctx, sess, planID, optionID)
	if err != nil {
		return s.stageError(ctx, planID, err, shipping.CodeListPackingFailed, "failed to confirm the packing option")
	}
	result, err := s.poller.PollOperation(ctx, sess, opID)
	if err != nil {
		return s.stageError(ctx, planID, err, shipping.CodeListPackingFailed, "failed polling option confirmation")
	}
	if !result.Terminal {
		return shipping.NewStageError(shipping.CodeOptionsProcessing,
			"packing option confirmation is still running; retry shortly")
	}
	if result.Operation.State != shipping.OperationSuccess {
		if placementConfirmedProblem(result.Problems) {
			return shipping.NewPlacementConfirmed()
		}
		return shipping.NewStageError(shipping.CodeListPackingFailed,
			fmt.Sprintf("packing option confirmation ended %s: %v", result.Operation.State, result.Problems))
	}
	return nil
}

// placementLocked checks whether any placement option is already accepted.
// A read failure here is not fatal to resolution.
func (s *PackingOptionService) placementLocked(ctx context.Context, sess *spapi.Session, planID string) (bool, error) {
	placements, err := s.api.ListPlacementOptions(ctx, sess, planID)
	if err != nil {
		return false, err
	}
	for _, p := range placements {
		if p.Confirmed() {
			return true, nil
		}
	}
	return false, nil
}

// stageError converts a transport failure into the stage's typed result,
// recording throttle cooldowns so follow-up invocations short-circuit.
func (s *PackingOptionService) stageError(ctx context.Context, planID string, err error, fallback shipping.StageCode, message string) error {
	ce, ok := spapi.AsCallError(err)
	if !ok {
		return shipping.WrapStageError(fallback, message, err)
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
		return shipping.WrapStageError(fallback, message, err)
	}
}

// selectOption applies the selection order: a remote auto-accepted option is
// always adopted; otherwise caller-preferred, then the standard path, then
// the first option returned.
func selectOption(options []shipping.PackingOption, preferred string) (shipping.PackingOption, string) {
	for _, o := range options {
		if o.Status == shipping.OptionAccepted {
			if preferred != "" && preferred != o.ID {
				return o, fmt.Sprintf("option %s was already accepted remotely; adopting it instead of %s", o.ID, preferred)
			}
			return o, ""
		}
	}
	if preferred != "" {
		for _, o := range options {
			if o.ID == preferred {
				return o, ""
			}
		}
	}
	for _, o := range options {
		if o.Standard() {
			return o, ""
		}
	}
	return options[0], ""
}

func anyGroupBearing(options []shipping.PackingOption) bool {
	for _, o := range options {
		if len(o.GroupIDs) > 0 {
			return true
		}
	}
	return false
}

func placementConfirmedProblem(problems []string) bool {
	for _, p := range problems {
		if spapi.IsPlacementConfirmed([]byte(p)) {
			return true
		}
	}
	return false
}
