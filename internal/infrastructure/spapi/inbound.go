package spapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prepflow/backend/internal/domain/shipping"
)

const inboundBasePath = "/inbound/fba/2024-03-20"

// CallError is a failed typed operation. It keeps enough of the upstream
// response for the orchestrator to pick retry, surface, or abort.
type CallError struct {
	Operation  string
	Status     int
	Kind       ErrorKind
	RetryAfter time.Duration
	Messages   []string
}

func (e *CallError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("spapi %s: HTTP %d: %s", e.Operation, e.Status, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("spapi %s: HTTP %d", e.Operation, e.Status)
}

// AsCallError extracts a CallError from an error chain.
func AsCallError(err error) (*CallError, bool) {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// InboundAPI exposes the typed inbound-plan operations the orchestrator
// consumes. Satisfied by *API; mocked in application tests.
type InboundAPI interface {
	GetPlan(ctx context.Context, sess *Session, planID string) (PlanInfo, error)
	ListPackingOptions(ctx context.Context, sess *Session, planID string) ([]shipping.PackingOption, error)
	GeneratePackingOptions(ctx context.Context, sess *Session, planID string) (string, error)
	ConfirmPackingOption(ctx context.Context, sess *Session, planID, optionID string) (string, error)
	ListPackingGroupItems(ctx context.Context, sess *Session, planID, groupID string) ([]shipping.ExpectedItem, error)
	SetPackingInformation(ctx context.Context, sess *Session, planID string, groupings []*shipping.PackageGrouping) (string, error)
	ListInboundPlanBoxes(ctx context.Context, sess *Session, planID string) ([]PlanBox, error)
	GeneratePlacementOptions(ctx context.Context, sess *Session, planID string) (string, error)
	ListPlacementOptions(ctx context.Context, sess *Session, planID string) ([]PlacementOption, error)
	GetOperationStatus(ctx context.Context, sess *Session, operationID string) (shipping.AsyncOperation, []string, error)
}

// PlanInfo is the normalized header of an inbound plan.
type PlanInfo struct {
	ID     string
	Status string
	Name   string
}

// PlanBox is one box the platform already knows about for a plan.
type PlanBox struct {
	ID       string
	Quantity int
}

// PlacementOption is one remote placement proposal.
type PlacementOption struct {
	ID     string
	Status string
}

// Confirmed reports whether the placement option has been accepted, which
// locks the plan's packing.
func (p PlacementOption) Confirmed() bool {
	switch strings.ToUpper(p.Status) {
	case "ACCEPTED", "CONFIRMED":
		return true
	default:
		return false
	}
}

// API implements the typed inbound operations over the signed transport.
type API struct {
	client *Client
	logger *zap.Logger
}

// NewAPI wires the typed operation layer over a signed client.
func NewAPI(client *Client, logger *zap.Logger) *API {
	return &API{client: client, logger: logger}
}

// call issues a signed request and converts any non-2xx response into a
// CallError. out, when non-nil, receives the decoded success body.
func (a *API) call(ctx context.Context, sess *Session, operation, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("spapi %s: failed to encode request: %w", operation, err)
		}
	}

	resp, err := a.client.SignedCall(ctx, sess, method, path, query, payload)
	if err != nil {
		return &CallError{Operation: operation, Kind: KindTransient, Messages: []string{err.Error()}}
	}

	kind := Classify(resp.Status, resp.Body)
	if kind != KindOK {
		ce := &CallError{
			Operation: operation,
			Status:    resp.Status,
			Kind:      kind,
			Messages:  ErrorMessages(resp.Body),
		}
		if kind == KindThrottled {
			ce.RetryAfter = RetryAfter(resp.Header, 2*time.Second)
		}
		a.logger.Warn("spapi operation failed",
			zap.String("operation", operation),
			zap.Int("status", resp.Status),
			zap.Strings("messages", ce.Messages),
		)
		return ce
	}

	if out != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return fmt.Errorf("spapi %s: failed to decode response: %w", operation, err)
		}
	}
	return nil
}

// GetPlan fetches the inbound plan header.
func (a *API) GetPlan(ctx context.Context, sess *Session, planID string) (PlanInfo, error) {
	var resp inboundPlanResponse
	path := inboundBasePath + "/inboundPlans/" + planID
	if err := a.call(ctx, sess, "getInboundPlan", http.MethodGet, path, nil, nil, &resp); err != nil {
		return PlanInfo{}, err
	}
	return PlanInfo{ID: resp.InboundPlanID, Status: resp.Status, Name: resp.Name}, nil
}

// ListPackingOptions returns the plan's packing options, following
// pagination until exhausted.
func (a *API) ListPackingOptions(ctx context.Context, sess *Session, planID string) ([]shipping.PackingOption, error) {
	path := inboundBasePath + "/inboundPlans/" + planID + "/packingOptions"
	var options []shipping.PackingOption
	token := ""
	for {
		query := url.Values{"pageSize": []string{"20"}}
		if token != "" {
			query.Set("paginationToken", token)
		}
		var resp listPackingOptionsResponse
		if err := a.call(ctx, sess, "listPackingOptions", http.MethodGet, path, query, nil, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.PackingOptions {
			options = append(options, p.normalize())
		}
		token = resp.Pagination.NextToken
		if token == "" {
			return options, nil
		}
	}
}

// GeneratePackingOptions starts option generation and returns the
// operation id to poll.
func (a *API) GeneratePackingOptions(ctx context.Context, sess *Session, planID string) (string, error) {
	var resp operationResponse
	path := inboundBasePath + "/inboundPlans/" + planID + "/packingOptions"
	if err := a.call(ctx, sess, "generatePackingOptions", http.MethodPost, path, nil, struct{}{}, &resp); err != nil {
		return "", err
	}
	return resp.OperationID, nil
}

// ConfirmPackingOption accepts one packing option for the plan.
func (a *API) ConfirmPackingOption(ctx context.Context, sess *Session, planID, optionID string) (string, error) {
	var resp operationResponse
	path := inboundBasePath + "/inboundPlans/" + planID + "/packingOptions/" + optionID + "/confirmation"
	if err := a.call(ctx, sess, "confirmPackingOption", http.MethodPost, path, nil, struct{}{}, &resp); err != nil {
		return "", err
	}
	return resp.OperationID, nil
}

// ListPackingGroupItems returns the platform's expected item lines for one
// packing group, following pagination until exhausted.
func (a *API) ListPackingGroupItems(ctx context.Context, sess *Session, planID, groupID string) ([]shipping.ExpectedItem, error) {
	path := inboundBasePath + "/inboundPlans/" + planID + "/packingGroups/" + groupID + "/items"
	var items []shipping.ExpectedItem
	token := ""
	for {
		query := url.Values{"pageSize": []string{"100"}}
		if token != "" {
			query.Set("paginationToken", token)
		}
		var resp listGroupItemsResponse
		if err := a.call(ctx, sess, "listPackingGroupItems", http.MethodGet, path, query, nil, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Items {
			items = append(items, p.normalize())
		}
		token = resp.Pagination.NextToken
		if token == "" {
			return items, nil
		}
	}
}

// SetPackingInformation submits the built package groupings for the plan.
func (a *API) SetPackingInformation(ctx context.Context, sess *Session, planID string, groupings []*shipping.PackageGrouping) (string, error) {
	req := setPackingInformationRequest{}
	for _, pg := range groupings {
		req.PackageGroupings = append(req.PackageGroupings, toGroupingPayload(pg))
	}
	var resp operationResponse
	path := inboundBasePath + "/inboundPlans/" + planID + "/packingInformation"
	if err := a.call(ctx, sess, "setPackingInformation", http.MethodPost, path, nil, req, &resp); err != nil {
		return "", err
	}
	return resp.OperationID, nil
}

// ListInboundPlanBoxes returns the boxes the platform has registered for
// the plan, following pagination until exhausted.
func (a *API) ListInboundPlanBoxes(ctx context.Context, sess *Session, planID string) ([]PlanBox, error) {
	path := inboundBasePath + "/inboundPlans/" + planID + "/boxes"
	var boxes []PlanBox
	token := ""
	for {
		query := url.Values{"pageSize": []string{"100"}}
		if token != "" {
			query.Set("paginationToken", token)
		}
		var resp listBoxesResponse
		if err := a.call(ctx, sess, "listInboundPlanBoxes", http.MethodGet, path, query, nil, &resp); err != nil {
			return nil, err
		}
		for _, b := range resp.Boxes {
			qty := b.Quantity
			if qty == 0 {
				qty = 1
			}
			boxes = append(boxes, PlanBox{ID: b.BoxID, Quantity: qty})
		}
		token = resp.Pagination.NextToken
		if token == "" {
			return boxes, nil
		}
	}
}

// GeneratePlacementOptions starts placement generation for the plan.
func (a *API) GeneratePlacementOptions(ctx context.Context, sess *Session, planID string) (string, error) {
	var resp operationResponse
	path := inboundBasePath + "/inboundPlans/" + planID + "/placementOptions"
	if err := a.call(ctx, sess, "generatePlacementOptions", http.MethodPost, path, nil, struct{}{}, &resp); err != nil {
		return "", err
	}
	return resp.OperationID, nil
}

// ListPlacementOptions returns the plan's placement proposals.
func (a *API) ListPlacementOptions(ctx context.Context, sess *Session, planID string) ([]PlacementOption, error) {
	var resp listPlacementOptionsResponse
	path := inboundBasePath + "/inboundPlans/" + planID + "/placementOptions"
	if err := a.call(ctx, sess, "listPlacementOptions", http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	options := make([]PlacementOption, 0, len(resp.PlacementOptions))
	for _, p := range resp.PlacementOptions {
		options = append(options, PlacementOption{
			ID:     firstNonEmpty(p.PlacementOptionID, p.ID),
			Status: p.Status,
		})
	}
	return options, nil
}

// GetOperationStatus fetches a long-running operation's state along with
// any reported problems.
func (a *API) GetOperationStatus(ctx context.Context, sess *Session, operationID string) (shipping.AsyncOperation, []string, error) {
	var resp operationStatusResponse
	path := inboundBasePath + "/operations/" + operationID
	if err := a.call(ctx, sess, "getInboundOperationStatus", http.MethodGet, path, nil, nil, &resp); err != nil {
		return shipping.AsyncOperation{}, nil, err
	}
	op := resp.normalize()
	if op.ID == "" {
		op.ID = operationID
	}
	return op, resp.problemMessages(), nil
}
