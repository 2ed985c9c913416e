package shipping

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OptionStatus is the lifecycle status of a remote packing option.
type OptionStatus string

const (
	OptionOffered   OptionStatus = "offered"
	OptionAvailable OptionStatus = "available"
	OptionReady     OptionStatus = "ready"
	OptionAccepted  OptionStatus = "accepted"
	OptionOther     OptionStatus = "other"
)

// NormalizeOptionStatus maps any remote status spelling to the canonical set.
func NormalizeOptionStatus(raw string) OptionStatus {
	switch OptionStatus(normalizeToken(raw)) {
	case OptionOffered:
		return OptionOffered
	case OptionAvailable:
		return OptionAvailable
	case OptionReady:
		return OptionReady
	case OptionAccepted:
		return OptionAccepted
	default:
		return OptionOther
	}
}

// PackingOption is a remote-proposed strategy for grouping items into boxes.
type PackingOption struct {
	ID        string
	Status    OptionStatus
	Discounts []string
	GroupIDs  []string
}

// Standard reports whether the option is selectable on the default path:
// an open status with no discount marker attached.
func (o PackingOption) Standard() bool {
	switch o.Status {
	case OptionOffered, OptionAvailable, OptionReady:
		return len(o.Discounts) == 0
	default:
		return false
	}
}

// ContentMode is the policy by which a box's contents are declared.
type ContentMode string

const (
	// ContentProvided enumerates every item inside the box.
	ContentProvided ContentMode = "BOX_CONTENT_PROVIDED"
	// ContentManual defers to manual/scan-based processing at the warehouse;
	// item enumeration is rejected by the remote schema under this mode.
	ContentManual ContentMode = "MANUAL_PROCESS"
)

// PrepOwner identifies who performs preparation or labeling for an item.
type PrepOwner string

const (
	OwnerNone   PrepOwner = "NONE"
	OwnerSeller PrepOwner = "SELLER"
	OwnerRemote PrepOwner = "AMAZON"
)

// PackingGroupItem is one SKU line inside a packing group.
type PackingGroupItem struct {
	SKU        string
	Quantity   int
	PrepOwner  PrepOwner
	LabelOwner PrepOwner
	// Labeled indicates item-level labeling instructions were present.
	Labeled    bool
	Expiration string
	LotCode    string
}

// BoxDetail is one caller-supplied per-box row for a group. When present,
// each box is submitted individually instead of a single quantity descriptor.
type BoxDetail struct {
	Length decimal.Decimal
	Width  decimal.Decimal
	Height decimal.Decimal
	Weight decimal.Decimal
	Items  []PackingGroupItem
}

// PackingGroup is a cohesive subset of the shipment's items packed identically.
// Dimensions are metric (cm/kg) until the grouping builder converts them.
type PackingGroup struct {
	ID            string
	BoxCount      int
	Length        decimal.Decimal
	Width         decimal.Decimal
	Height        decimal.Decimal
	DimensionUnit string
	Weight        decimal.Decimal
	WeightUnit    string
	ContentMode   ContentMode
	Items         []PackingGroupItem
	Boxes         []BoxDetail
}

// HasDimensions reports whether all three dimensions are positive.
func (g PackingGroup) HasDimensions() bool {
	return g.Length.IsPositive() && g.Width.IsPositive() && g.Height.IsPositive()
}

// ExpectedItem is the platform's authoritative (SKU, quantity) entry for a
// packing group.
type ExpectedItem struct {
	SKU        string
	Quantity   int
	PrepOwner  PrepOwner
	LabelOwner PrepOwner
	Labeled    bool
	Expiration string
}

// OperationState is the polled state of a remote long-running task.
type OperationState string

const (
	OperationInProgress OperationState = "in-progress"
	OperationSuccess    OperationState = "success"
	OperationFailed     OperationState = "failed"
	OperationCanceled   OperationState = "canceled"
)

// Terminal reports whether the state will no longer change.
func (s OperationState) Terminal() bool {
	switch s {
	case OperationSuccess, OperationFailed, OperationCanceled:
		return true
	default:
		return false
	}
}

// NormalizeOperationState maps remote spellings (IN_PROGRESS, SUCCESS, ...)
// to the canonical states.
func NormalizeOperationState(raw string) OperationState {
	switch normalizeToken(raw) {
	case "in-progress", "in-operation", "pending":
		return OperationInProgress
	case "success", "succeeded", "complete", "completed":
		return OperationSuccess
	case "failed", "failure", "error":
		return OperationFailed
	case "canceled", "cancelled":
		return OperationCanceled
	default:
		return OperationInProgress
	}
}

// AsyncOperation references a remote long-running task.
type AsyncOperation struct {
	ID    string
	State OperationState
}

// ShipmentRequest is the tenant-owned record driving one physical inbound
// shipment. This core mutates only the remote identifiers and the Snapshot.
type ShipmentRequest struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	UserID             uuid.UUID
	DestinationCountry string
	InboundPlanID      string
	PackingOptionID    string
	PlacementOptionID  string
	Snapshot           *PlanSnapshot
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SellerIntegration is the per-tenant credential record supplying the OAuth
// refresh token and remote seller identifier.
type SellerIntegration struct {
	TenantID     uuid.UUID
	SellerID     string
	Marketplace  string
	Region       string
	RefreshToken string
}

func normalizeToken(raw string) string {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out = append(out, c+('a'-'A'))
		case c == '_' || c == ' ':
			out = append(out, '-')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
