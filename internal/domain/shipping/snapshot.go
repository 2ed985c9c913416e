package shipping

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlanSnapshot is the persisted, mergeable record of in-progress
// orchestration state for one shipment request. It is the sole recovery
// mechanism: any stage, on cold start, merges remote state with the
// snapshot (remote wins for identifiers and status, prior dimensions win
// over empty remote fields, caller-supplied edits win over both).
type PlanSnapshot struct {
	InboundPlanID     string          `json:"inboundPlanId,omitempty"`
	PackingOptionID   string          `json:"packingOptionId,omitempty"`
	PlacementOptionID string          `json:"placementOptionId,omitempty"`
	PackingGroups     []GroupSnapshot `json:"packingGroups,omitempty"`
	SavedAt           time.Time       `json:"savedAt"`
	Version           int             `json:"version,omitempty"`
}

// GroupSnapshot captures the caller-confirmed physical detail of one
// packing group.
type GroupSnapshot struct {
	ID            string          `json:"id"`
	BoxCount      int             `json:"boxCount,omitempty"`
	Length        decimal.Decimal `json:"length,omitempty"`
	Width         decimal.Decimal `json:"width,omitempty"`
	Height        decimal.Decimal `json:"height,omitempty"`
	DimensionUnit string          `json:"dimensionUnit,omitempty"`
	Weight        decimal.Decimal `json:"weight,omitempty"`
	WeightUnit    string          `json:"weightUnit,omitempty"`
	Items         []ItemSnapshot  `json:"items,omitempty"`
	Boxes         []BoxSnapshot   `json:"boxes,omitempty"`
}

// ItemSnapshot is one persisted SKU line.
type ItemSnapshot struct {
	SKU        string `json:"sku"`
	Quantity   int    `json:"quantity"`
	Expiration string `json:"expiration,omitempty"`
	LotCode    string `json:"lotCode,omitempty"`
}

// BoxSnapshot is one persisted per-box detail row. Per-box rows only ever
// come from the caller, so losing them across a restart would silently
// degrade the next submission to a single quantity descriptor.
type BoxSnapshot struct {
	Length decimal.Decimal `json:"length,omitempty"`
	Width  decimal.Decimal `json:"width,omitempty"`
	Height decimal.Decimal `json:"height,omitempty"`
	Weight decimal.Decimal `json:"weight,omitempty"`
	Items  []ItemSnapshot  `json:"items,omitempty"`
}

// Group returns the snapshot entry for a group id, or nil.
func (s *PlanSnapshot) Group(id string) *GroupSnapshot {
	if s == nil {
		return nil
	}
	for i := range s.PackingGroups {
		if s.PackingGroups[i].ID == id {
			return &s.PackingGroups[i]
		}
	}
	return nil
}

// SetRefs records remote identifiers, keeping existing values when the
// incoming field is empty. Remote identifiers are immutable once obtained.
func (s *PlanSnapshot) SetRefs(refs RemoteRefs) {
	if refs.InboundPlanID != "" {
		s.InboundPlanID = refs.InboundPlanID
	}
	if refs.PackingOptionID != "" {
		s.PackingOptionID = refs.PackingOptionID
	}
	if refs.PlacementOptionID != "" {
		s.PlacementOptionID = refs.PlacementOptionID
	}
	s.touch()
}

// PutGroup merges one group's state into the snapshot, field-scoped: only
// non-empty incoming fields replace stored values, so a stage that learned
// nothing about dimensions never erases previously confirmed measurements.
func (s *PlanSnapshot) PutGroup(g GroupSnapshot) {
	s.touch()
	existing := s.Group(g.ID)
	if existing == nil {
		s.PackingGroups = append(s.PackingGroups, g)
		return
	}
	if g.BoxCount > 0 {
		existing.BoxCount = g.BoxCount
	}
	if g.Length.IsPositive() {
		existing.Length = g.Length
	}
	if g.Width.IsPositive() {
		existing.Width = g.Width
	}
	if g.Height.IsPositive() {
		existing.Height = g.Height
	}
	if g.DimensionUnit != "" {
		existing.DimensionUnit = g.DimensionUnit
	}
	if g.Weight.IsPositive() {
		existing.Weight = g.Weight
	}
	if g.WeightUnit != "" {
		existing.WeightUnit = g.WeightUnit
	}
	if len(g.Items) > 0 {
		existing.Items = g.Items
	}
	if len(g.Boxes) > 0 {
		existing.Boxes = g.Boxes
	}
}

// Reset clears everything except the inbound plan id, which remains the
// idempotency key for the plan.
func (s *PlanSnapshot) Reset() {
	s.PackingOptionID = ""
	s.PlacementOptionID = ""
	s.PackingGroups = nil
	s.touch()
}

func (s *PlanSnapshot) touch() {
	s.SavedAt = time.Now().UTC()
	s.Version++
}

// SnapshotGroup converts a working packing group back into its snapshot form.
func SnapshotGroup(g PackingGroup) GroupSnapshot {
	snap := GroupSnapshot{
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
		snap.Items = append(snap.Items, snapshotItem(it))
	}
	for _, b := range g.Boxes {
		bs := BoxSnapshot{
			Length: b.Length,
			Width:  b.Width,
			Height: b.Height,
			Weight: b.Weight,
		}
		for _, it := range b.Items {
			bs.Items = append(bs.Items, snapshotItem(it))
		}
		snap.Boxes = append(snap.Boxes, bs)
	}
	return snap
}

func snapshotItem(it PackingGroupItem) ItemSnapshot {
	return ItemSnapshot{
		SKU:        it.SKU,
		Quantity:   it.Quantity,
		Expiration: it.Expiration,
		LotCode:    it.LotCode,
	}
}

// GroupUpdate is a caller-supplied edit for one packing group. Nil fields
// mean "no change". Caller edits always win over snapshot and remote values.
type GroupUpdate struct {
	BoxCount      *int
	Length        *decimal.Decimal
	Width         *decimal.Decimal
	Height        *decimal.Decimal
	DimensionUnit *string
	Weight        *decimal.Decimal
	WeightUnit    *string
	Boxes         []BoxDetail
}

// ResolveGroup builds the working PackingGroup for one group id by applying
// the documented precedence: caller update > snapshot (unless reset) > remote.
// Remote wins unconditionally for the item list and the group identity;
// snapshot values only fill dimensions and weight the remote side reported
// empty.
func ResolveGroup(remote PackingGroup, snap *GroupSnapshot, upd *GroupUpdate, reset bool) PackingGroup {
	g := remote
	if snap != nil && !reset {
		if !g.Length.IsPositive() && snap.Length.IsPositive() {
			g.Length = snap.Length
			g.Width = snap.Width
			g.Height = snap.Height
			if snap.DimensionUnit != "" {
				g.DimensionUnit = snap.DimensionUnit
			}
		}
		if !g.Weight.IsPositive() && snap.Weight.IsPositive() {
			g.Weight = snap.Weight
			if snap.WeightUnit != "" {
				g.WeightUnit = snap.WeightUnit
			}
		}
		if g.BoxCount <= 0 && snap.BoxCount > 0 {
			g.BoxCount = snap.BoxCount
		}
		if len(g.Boxes) == 0 && len(snap.Boxes) > 0 {
			g.Boxes = boxesFromSnapshot(snap.Boxes)
		}
	}
	if upd != nil {
		if upd.BoxCount != nil {
			g.BoxCount = *upd.BoxCount
		}
		if upd.Length != nil {
			g.Length = *upd.Length
		}
		if upd.Width != nil {
			g.Width = *upd.Width
		}
		if upd.Height != nil {
			g.Height = *upd.Height
		}
		if upd.DimensionUnit != nil {
			g.DimensionUnit = *upd.DimensionUnit
		}
		if upd.Weight != nil {
			g.Weight = *upd.Weight
		}
		if upd.WeightUnit != nil {
			g.WeightUnit = *upd.WeightUnit
		}
		if len(upd.Boxes) > 0 {
			g.Boxes = upd.Boxes
		}
	}
	if g.DimensionUnit == "" {
		g.DimensionUnit = "CM"
	}
	if g.WeightUnit == "" {
		g.WeightUnit = "KG"
	}
	if g.BoxCount <= 0 {
		g.BoxCount = 1
	}
	return g
}

func boxesFromSnapshot(boxes []BoxSnapshot) []BoxDetail {
	out := make([]BoxDetail, 0, len(boxes))
	for _, bs := range boxes {
		b := BoxDetail{
			Length: bs.Length,
			Width:  bs.Width,
			Height: bs.Height,
			Weight: bs.Weight,
		}
		for _, it := range bs.Items {
			b.Items = append(b.Items, PackingGroupItem{
				SKU:        it.SKU,
				Quantity:   it.Quantity,
				Expiration: it.Expiration,
				LotCode:    it.LotCode,
			})
		}
		out = append(out, b)
	}
	return out
}
