package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepflow/backend/internal/domain/shared"
	"github.com/prepflow/backend/internal/domain/shipping"
	"github.com/prepflow/backend/internal/infrastructure/persistence/models"
)

// GormShipmentRequestRepository implements ShipmentRequestRepository using GORM
type GormShipmentRequestRepository struct {
	db *gorm.DB
}

// NewGormShipmentRequestRepository creates a new GormShipmentRequestRepository
func NewGormShipmentRequestRepository(db *gorm.DB) *GormShipmentRequestRepository {
	return &GormShipmentRequestRepository{db: db}
}

// FindByIDForTenant finds a shipment request by ID within a tenant
func (r *GormShipmentRequestRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*shipping.ShipmentRequest, error) {
	var model models.ShipmentRequestModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// SaveRemoteRefs persists remote identifiers. Empty fields are left as-is so
// an identifier, once learned, is never erased.
func (r *GormShipmentRequestRepository) SaveRemoteRefs(ctx context.Context, tenantID, id uuid.UUID, refs shipping.RemoteRefs) error {
	updates := map[string]any{}
	if refs.InboundPlanID != "" {
		updates["inbound_plan_id"] = refs.InboundPlanID
	}
	if refs.PackingOptionID != "" {
		updates["packing_option_id"] = refs.PackingOptionID
	}
	if refs.PlacementOptionID != "" {
		updates["placement_option_id"] = refs.PlacementOptionID
	}
	if len(updates) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.ShipmentRequestModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateSnapshot runs the apply function against the stored snapshot inside
// a transaction, so every write is a read-modify-write merge rather than a
// blind overwrite.
func (r *GormShipmentRequestRepository) UpdateSnapshot(ctx context.Context, tenantID, id uuid.UUID, apply func(*shipping.PlanSnapshot)) (*shipping.PlanSnapshot, error) {
	var snapshot *shipping.PlanSnapshot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.ShipmentRequestModel
		if err := tx.
			Where("tenant_id = ? AND id = ?", tenantID, id).
			First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		record, err := model.ToDomain()
		if err != nil {
			return err
		}
		snapshot = record.Snapshot
		if snapshot == nil {
			snapshot = &shipping.PlanSnapshot{}
		}
		apply(snapshot)

		if err := model.SetSnapshot(snapshot); err != nil {
			return err
		}
		return tx.Model(&models.ShipmentRequestModel{}).
			Where("tenant_id = ? AND id = ?", tenantID, id).
			Update("snapshot", model.Snapshot).Error
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// GormIntakeRepository implements IntakeRepository using GORM
type GormIntakeRepository struct {
	db *gorm.DB
}

// NewGormIntakeRepository creates a new GormIntakeRepository
func NewGormIntakeRepository(db *gorm.DB) *GormIntakeRepository {
	return &GormIntakeRepository{db: db}
}

// ConfirmedQuantities sums confirmed intake quantities per SKU for a request
func (r *GormIntakeRepository) ConfirmedQuantities(ctx context.Context, tenantID, requestID uuid.UUID) (map[string]int, error) {
	var rows []struct {
		SKU   string
		Total int
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ConfirmedIntakeItemModel{}).
		Select("sku, SUM(quantity) AS total").
		Where("tenant_id = ? AND request_id = ?", tenantID, requestID).
		Group("sku").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	confirmed := make(map[string]int, len(rows))
	for _, row := range rows {
		confirmed[row.SKU] = row.Total
	}
	return confirmed, nil
}

// GormIntegrationRepository implements IntegrationRepository using GORM
type GormIntegrationRepository struct {
	db *gorm.DB
}

// NewGormIntegrationRepository creates a new GormIntegrationRepository
func NewGormIntegrationRepository(db *gorm.DB) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db}
}

// FindByTenant finds the marketplace integration record for a tenant
func (r *GormIntegrationRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*shipping.SellerIntegration, error) {
	var model models.SellerIntegrationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}
