package shipping

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prepflow/backend/internal/domain/shipping"
)

// ResolveOptionsRequest starts or resumes packing-option resolution for a
// shipment request.
type ResolveOptionsRequest struct {
	InboundPlanID   string `json:"inbound_plan_id"`
	PackingOptionID string `json:"packing_option_id"`
	ResetSnapshot   bool   `json:"reset_snapshot"`
}

// PackingOptionView is one remote packing option in API responses.
type PackingOptionView struct {
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	Discounts []string `json:"discounts,omitempty"`
	GroupIDs  []string `json:"group_ids,omitempty"`
}

// ResolveOptionsResponse is the resolver's result payload.
type ResolveOptionsResponse struct {
	InboundPlanID   string              `json:"inbound_plan_id"`
	PackingOptionID string              `json:"packing_option_id"`
	Options         []PackingOptionView `json:"options"`
	GroupIDs        []string            `json:"group_ids"`
	Warnings        []string            `json:"warnings,omitempty"`
}

// BoxDetailRequest is one caller-supplied per-box row.
type BoxDetailRequest struct {
	Length decimal.Decimal `json:"length" binding:"required"`
	Width  decimal.Decimal `json:"width" binding:"required"`
	Height decimal.Decimal `json:"height" binding:"required"`
	Weight decimal.Decimal `json:"weight" binding:"required"`
}

// GroupUpdateRequest is a caller-supplied edit for one packing group.
// Omitted fields mean "no change".
type GroupUpdateRequest struct {
	BoxCount      *int               `json:"box_count" binding:"omitempty,min=1"`
	Length        *decimal.Decimal   `json:"length"`
	Width         *decimal.Decimal   `json:"width"`
	Height        *decimal.Decimal   `json:"height"`
	DimensionUnit *string            `json:"dimension_unit" binding:"omitempty,oneof=CM IN"`
	Weight        *decimal.Decimal   `json:"weight"`
	WeightUnit    *string            `json:"weight_unit" binding:"omitempty,oneof=KG LB"`
	Boxes         []BoxDetailRequest `json:"boxes"`
}

func (r GroupUpdateRequest) toDomain() *shipping.GroupUpdate {
	upd := &shipping.GroupUpdate{
		BoxCount:      r.BoxCount,
		Length:        r.Length,
		Width:         r.Width,
		Height:        r.Height,
		DimensionUnit: r.DimensionUnit,
		Weight:        r.Weight,
		WeightUnit:    r.WeightUnit,
	}
	for _, b := range r.Boxes {
		upd.Boxes = append(upd.Boxes, shipping.BoxDetail{
			Length: b.Length,
			Width:  b.Width,
			Height: b.Height,
			Weight: b.Weight,
		})
	}
	return upd
}

// HydrateGroupsRequest drives group hydration and reconciliation.
type HydrateGroupsRequest struct {
	PackingGroupUpdates map[string]GroupUpdateRequest `json:"packing_group_updates"`
	ResetSnapshot       bool                          `json:"reset_snapshot"`
}

// GroupItemView is one item line in API responses.
type GroupItemView struct {
	SKU        string `json:"sku"`
	Quantity   int    `json:"quantity"`
	Expiration string `json:"expiration,omitempty"`
}

// GroupView is one hydrated packing group in API responses.
type GroupView struct {
	ID            string          `json:"id"`
	BoxCount      int             `json:"box_count"`
	Length        decimal.Decimal `json:"length"`
	Width         decimal.Decimal `json:"width"`
	Height        decimal.Decimal `json:"height"`
	DimensionUnit string          `json:"dimension_unit"`
	Weight        decimal.Decimal `json:"weight"`
	WeightUnit    string          `json:"weight_unit"`
	Items         []GroupItemView `json:"items,omitempty"`
}

func toGroupView(g shipping.PackingGroup) GroupView {
	view := GroupView{
		ID:            g.ID,
		BoxCount:      g.BoxCount,
		Length:        g.Length,
		Width:         g.Width,
		Height:        g.Height,
		DimensionUnit: g.DimensionUnit,
		Weight:        g.Weight,
		WeightUnit:    g.WeightUnit,
	}
	for _, it := range g.Items {
		view.Items = append(view.Items, GroupItemView{
			SKU:        it.SKU,
			Quantity:   it.Quantity,
			Expiration: it.Expiration,
		})
	}
	return view
}

// HydrateGroupsResponse is the hydrator's result payload.
type HydrateGroupsResponse struct {
	InboundPlanID string      `json:"inbound_plan_id"`
	Groups        []GroupView `json:"groups"`
	Warnings      []string    `json:"warnings,omitempty"`
}

// SubmitPackingRequest drives packing submission and verification.
type SubmitPackingRequest struct {
	PackingGroupUpdates map[string]GroupUpdateRequest `json:"packing_group_updates"`
	IncludePlacement    bool                          `json:"include_placement"`
}

// SubmitPackingResponse is the submission result payload.
type SubmitPackingResponse struct {
	InboundPlanID     string   `json:"inbound_plan_id"`
	OperationID       string   `json:"operation_id"`
	BoxCount          int      `json:"box_count"`
	PlacementOptionID string   `json:"placement_option_id,omitempty"`
	AuditLocation     string   `json:"audit_location,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}

// StatusResponse is the read-only view of a shipment request's progress.
type StatusResponse struct {
	RequestID         uuid.UUID   `json:"request_id"`
	InboundPlanID     string      `json:"inbound_plan_id,omitempty"`
	PackingOptionID   string      `json:"packing_option_id,omitempty"`
	PlacementOptionID string      `json:"placement_option_id,omitempty"`
	Groups            []GroupView `json:"groups,omitempty"`
	SnapshotSavedAt   *time.Time  `json:"snapshot_saved_at,omitempty"`
	SnapshotVersion   int         `json:"snapshot_version,omitempty"`
}
