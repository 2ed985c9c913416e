package shipping

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/prepflow/backend/internal/domain/shared"
	"github.com/prepflow/backend/internal/domain/shipping"
	"github.com/prepflow/backend/internal/infrastructure/spapi"
)

// Mock implementations

type mockInboundAPI struct {
	mock.Mock
}

func (m *mockInboundAPI) GetPlan(ctx context.Context, sess *spapi.Session, planID string) (spapi.PlanInfo, error) {
	args := m.Called(ctx, sess, planID)
	return args.Get(0).(spapi.PlanInfo), args.Error(1)
}

func (m *mockInboundAPI) ListPackingOptions(ctx context.Context, sess *spapi.Session, planID string) ([]shipping.PackingOption, error) {
	args := m.Called(ctx, sess, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shipping.PackingOption), args.Error(1)
}

func (m *mockInboundAPI) GeneratePackingOptions(ctx context.Context, sess *spapi.Session, planID string) (string, error) {
	args := m.Called(ctx, sess, planID)
	return args.String(0), args.Error(1)
}

func (m *mockInboundAPI) ConfirmPackingOption(ctx context.Context, sess *spapi.Session, planID, optionID string) (string, error) {
	args := m.Called(ctx, sess, planID, optionID)
	return args.String(0), args.Error(1)
}

func (m *mockInboundAPI) ListPackingGroupItems(ctx context.Context, sess *spapi.Session, planID, groupID string) ([]shipping.ExpectedItem, error) {
	args := m.Called(ctx, sess, planID, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shipping.ExpectedItem), args.Error(1)
}

func (m *mockInboundAPI) SetPackingInformation(ctx context.Context, sess *spapi.Session, planID string, groupings []*shipping.PackageGrouping) (string, error) {
	args := m.Called(ctx, sess, planID, groupings)
	return args.String(0), args.Error(1)
}

func (m *mockInboundAPI) ListInboundPlanBoxes(ctx context.Context, sess *spapi.Session, planID string) ([]spapi.PlanBox, error) {
	args := m.Called(ctx, sess, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]spapi.PlanBox), args.Error(1)
}

func (m *mockInboundAPI) GeneratePlacementOptions(ctx context.Context, sess *spapi.Session, planID string) (string, error) {
	args := m.Called(ctx, sess, planID)
	return args.String(0), args.Error(1)
}

func (m *mockInboundAPI) ListPlacementOptions(ctx context.Context, sess *spapi.Session, planID string) ([]spapi.PlacementOption, error) {
	args := m.Called(ctx, sess, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]spapi.PlacementOption), args.Error(1)
}

func (m *mockInboundAPI) GetOperationStatus(ctx context.Context, sess *spapi.Session, operationID string) (shipping.AsyncOperation, []string, error) {
	args := m.Called(ctx, sess, operationID)
	return args.Get(0).(shipping.AsyncOperation), nil, args.Error(1)
}

type mockIntakeRepository struct {
	mock.Mock
}

func (m *mockIntakeRepository) ConfirmedQuantities(ctx context.Context, tenantID, requestID uuid.UUID) (map[string]int, error) {
	args := m.Called(ctx, tenantID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

// fakeRequestRepo keeps one ShipmentRequest in memory so the snapshot
// read-modify-write contract can be asserted directly.
type fakeRequestRepo struct {
	record *shipping.ShipmentRequest
}

func (f *fakeRequestRepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*shipping.ShipmentRequest, error) {
	if f.record == nil || f.record.ID != id || f.record.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	copied := *f.record
	return &copied, nil
}

func (f *fakeRequestRepo) SaveRemoteRefs(ctx context.Context, tenantID, id uuid.UUID, refs shipping.RemoteRefs) error {
	if refs.InboundPlanID != "" {
		f.record.InboundPlanID = refs.InboundPlanID
	}
	if refs.PackingOptionID != "" {
		f.record.PackingOptionID = refs.PackingOptionID
	}
	if refs.PlacementOptionID != "" {
		f.record.PlacementOptionID = refs.PlacementOptionID
	}
	return nil
}

func (f *fakeRequestRepo) UpdateSnapshot(ctx context.Context, tenantID, id uuid.UUID, apply func(*shipping.PlanSnapshot)) (*shipping.PlanSnapshot, error) {
	if f.record.Snapshot == nil {
		f.record.Snapshot = &shipping.PlanSnapshot{}
	}
	apply(f.record.Snapshot)
	return f.record.Snapshot, nil
}

type fakeSessions struct {
	sess *spapi.Session
	err  error
}

func (f *fakeSessions) Establish(ctx context.Context, tenantID uuid.UUID) (*spapi.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.sess == nil {
		f.sess = &spapi.Session{AccessToken: spapi.AccessToken{Value: "test-token"}, SellerID: "SELLER1"}
	}
	return f.sess, nil
}

// fakePoller resolves every operation with the configured result.
type fakePoller struct {
	result spapi.PollResult
	err    error
	calls  int
}

func (f *fakePoller) PollOperation(ctx context.Context, sess *spapi.Session, operationID string) (spapi.PollResult, error) {
	f.calls++
	if f.err != nil {
		return spapi.PollResult{}, f.err
	}
	result := f.result
	result.Operation.ID = operationID
	return result, nil
}

func successPoller() *fakePoller {
	return &fakePoller{result: spapi.PollResult{
		Operation: shipping.AsyncOperation{State: shipping.OperationSuccess},
		Terminal:  true,
		Attempts:  1,
	}}
}

type fakeThrottle struct {
	cooldowns map[string]time.Duration
}

func newFakeThrottle() *fakeThrottle {
	return &fakeThrottle{cooldowns: make(map[string]time.Duration)}
}

func (f *fakeThrottle) Cooldown(ctx context.Context, planID string) (time.Duration, bool, error) {
	d, ok := f.cooldowns[planID]
	return d, ok, nil
}

func (f *fakeThrottle) SetCooldown(ctx context.Context, planID string, d time.Duration) error {
	f.cooldowns[planID] = d
	return nil
}

type fakeAudit struct {
	docs map[string][]byte
	err  error
}

func newFakeAudit() *fakeAudit {
	return &fakeAudit{docs: make(map[string][]byte)}
}

func (f *fakeAudit) PutSubmissionRecord(ctx context.Context, tenantID, requestID uuid.UUID, doc []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	key := tenantID.String() + "/" + requestID.String()
	f.docs[key] = doc
	return "s3://audit/" + key, nil
}
