package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/prepflow/backend/internal/domain/shipping"
)

// ShipmentRequestModel is the persistence model for shipping.ShipmentRequest.
type ShipmentRequestModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID           uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID             uuid.UUID `gorm:"type:uuid;not null;index"`
	DestinationCountry string    `gorm:"type:varchar(2);not null"`
	InboundPlanID      string    `gorm:"type:varchar(64);index"`
	PackingOptionID    string    `gorm:"type:varchar(64)"`
	PlacementOptionID  string    `gorm:"type:varchar(64)"`
	Snapshot           string    `gorm:"type:jsonb;default:'{}'"`
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

// TableName specifies the table name
func (ShipmentRequestModel) TableName() string {
	return "shipment_requests"
}

// ToDomain converts the model to a domain ShipmentRequest
func (m *ShipmentRequestModel) ToDomain() (*shipping.ShipmentRequest, error) {
	req := &shipping.ShipmentRequest{
		ID:                 m.ID,
		TenantID:           m.TenantID,
		UserID:             m.UserID,
		DestinationCountry: m.DestinationCountry,
		InboundPlanID:      m.InboundPlanID,
		PackingOptionID:    m.PackingOptionID,
		PlacementOptionID:  m.PlacementOptionID,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	if m.Snapshot != "" && m.Snapshot != "{}" {
		var snap shipping.PlanSnapshot
		if err := json.Unmarshal([]byte(m.Snapshot), &snap); err != nil {
			return nil, err
		}
		req.Snapshot = &snap
	}
	return req, nil
}

// SetSnapshot serializes the snapshot into the jsonb column.
func (m *ShipmentRequestModel) SetSnapshot(snap *shipping.PlanSnapshot) error {
	if snap == nil {
		m.Snapshot = "{}"
		return nil
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	m.Snapshot = string(raw)
	return nil
}

// ConfirmedIntakeItemModel is one per-SKU quantity confirmed during intake.
type ConfirmedIntakeItemModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	RequestID uuid.UUID `gorm:"type:uuid;not null;index"`
	SKU       string    `gorm:"type:varchar(64);not null"`
	Quantity  int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name
func (ConfirmedIntakeItemModel) TableName() string {
	return "confirmed_intake_items"
}

// SellerIntegrationModel is the per-tenant marketplace credential record.
type SellerIntegrationModel struct {
	TenantID     uuid.UUID `gorm:"type:uuid;primary_key"`
	SellerID     string    `gorm:"type:varchar(64);not null"`
	Marketplace  string    `gorm:"type:varchar(32);not null"`
	Region       string    `gorm:"type:varchar(32);not null"`
	RefreshToken string    `gorm:"type:text;not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName specifies the table name
func (SellerIntegrationModel) TableName() string {
	return "seller_integrations"
}

// ToDomain converts the model to a domain SellerIntegration
func (m *SellerIntegrationModel) ToDomain() *shipping.SellerIntegration {
	return &shipping.SellerIntegration{
		TenantID:     m.TenantID,
		SellerID:     m.SellerID,
		Marketplace:  m.Marketplace,
		Region:       m.Region,
		RefreshToken: m.RefreshToken,
	}
}
