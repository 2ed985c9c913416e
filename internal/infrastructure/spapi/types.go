package spapi

import (
	"github.com/shopspring/decimal"

	"github.com/prepflow/backend/internal/domain/shipping"
)

// Remote payload shapes. Key spellings vary across endpoint versions (id vs
// packingOptionId, msku vs sellerSku, quantity vs expectedQuantity), so each
// payload declares the alternates and normalize() picks whichever is set.

type packingOptionPayload struct {
	PackingOptionID string   `json:"packingOptionId"`
	ID              string   `json:"id"`
	Status          string   `json:"status"`
	PackingGroups   []string `json:"packingGroups"`
	PackingGroupIDs []string `json:"packingGroupIds"`
	Discounts       []struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"discounts"`
}

func (p packingOptionPayload) normalize() shipping.PackingOption {
	opt := shipping.PackingOption{
		ID:       firstNonEmpty(p.PackingOptionID, p.ID),
		Status:   shipping.NormalizeOptionStatus(p.Status),
		GroupIDs: p.PackingGroups,
	}
	if len(opt.GroupIDs) == 0 {
		opt.GroupIDs = p.PackingGroupIDs
	}
	for _, d := range p.Discounts {
		if d.Type != "" {
			opt.Discounts = append(opt.Discounts, d.Type)
		} else if d.Description != "" {
			opt.Discounts = append(opt.Discounts, d.Description)
		}
	}
	return opt
}

type listPackingOptionsResponse struct {
	PackingOptions []packingOptionPayload `json:"packingOptions"`
	Pagination     struct {
		NextToken string `json:"nextToken"`
	} `json:"pagination"`
}

type operationResponse struct {
	OperationID string `json:"operationId"`
}

type groupItemPayload struct {
	MSKU             string `json:"msku"`
	SellerSKU        string `json:"sellerSku"`
	Quantity         int    `json:"quantity"`
	ExpectedQuantity int    `json:"expectedQuantity"`
	Expiration       string `json:"expiration"`
	LotCode          string `json:"manufacturingLotCode"`
	LabelOwner       string `json:"labelOwner"`
	PrepInstructions []struct {
		PrepOwner string `json:"prepOwner"`
		PrepType  string `json:"prepType"`
	} `json:"prepInstructions"`
}

func (p groupItemPayload) normalize() shipping.ExpectedItem {
	item := shipping.ExpectedItem{
		SKU:        firstNonEmpty(p.MSKU, p.SellerSKU),
		Quantity:   p.Quantity,
		Expiration: p.Expiration,
		LabelOwner: shipping.PrepOwner(p.LabelOwner),
	}
	if item.Quantity == 0 {
		item.Quantity = p.ExpectedQuantity
	}
	for _, pi := range p.PrepInstructions {
		if pi.PrepType == "ITEM_LABELING" {
			item.Labeled = true
			continue
		}
		if pi.PrepOwner != "" && item.PrepOwner == "" {
			item.PrepOwner = shipping.PrepOwner(pi.PrepOwner)
		}
	}
	return item
}

type listGroupItemsResponse struct {
	Items      []groupItemPayload `json:"items"`
	Pagination struct {
		NextToken string `json:"nextToken"`
	} `json:"pagination"`
}

type operationStatusResponse struct {
	OperationID     string `json:"operationId"`
	OperationStatus string `json:"operationStatus"`
	Status          string `json:"status"`
	Problems        []struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		Severity string `json:"severity"`
	} `json:"operationProblems"`
}

func (p operationStatusResponse) normalize() shipping.AsyncOperation {
	return shipping.AsyncOperation{
		ID:    p.OperationID,
		State: shipping.NormalizeOperationState(firstNonEmpty(p.OperationStatus, p.Status)),
	}
}

func (p operationStatusResponse) problemMessages() []string {
	msgs := make([]string, 0, len(p.Problems))
	for _, pr := range p.Problems {
		m := pr.Message
		if m == "" {
			m = pr.Code
		}
		if m != "" {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

type boxPayload struct {
	BoxID    string `json:"boxId"`
	Quantity int    `json:"quantity"`
	Weight   struct {
		Unit  string          `json:"unit"`
		Value decimal.Decimal `json:"value"`
	} `json:"weight"`
	Dimensions struct {
		Unit   string          `json:"unitOfMeasurement"`
		Length decimal.Decimal `json:"length"`
		Width  decimal.Decimal `json:"width"`
		Height decimal.Decimal `json:"height"`
	} `json:"dimensions"`
}

type listBoxesResponse struct {
	Boxes      []boxPayload `json:"boxes"`
	Pagination struct {
		NextToken string `json:"nextToken"`
	} `json:"pagination"`
}

type placementOptionPayload struct {
	PlacementOptionID string `json:"placementOptionId"`
	ID                string `json:"id"`
	Status            string `json:"status"`
}

type listPlacementOptionsResponse struct {
	PlacementOptions []placementOptionPayload `json:"placementOptions"`
}

type inboundPlanResponse struct {
	InboundPlanID string `json:"inboundPlanId"`
	Status        string `json:"status"`
	Name          string `json:"name"`
}

// Submission request shapes.

type measurementPayload struct {
	Unit  string          `json:"unit"`
	Value decimal.Decimal `json:"value"`
}

type dimensionsPayload struct {
	Unit   string          `json:"unitOfMeasurement"`
	Length decimal.Decimal `json:"length"`
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`
}

type boxItemPayload struct {
	MSKU       string `json:"msku"`
	Quantity   int    `json:"quantity"`
	PrepOwner  string `json:"prepOwner"`
	LabelOwner string `json:"labelOwner"`
	Expiration string `json:"expiration,omitempty"`
}

type boxInputPayload struct {
	Quantity      int                `json:"quantity"`
	ContentSource string             `json:"contentInformationSource"`
	Weight        measurementPayload `json:"weight"`
	Dimensions    dimensionsPayload  `json:"dimensions"`
	Items         []boxItemPayload   `json:"items,omitempty"`
}

type packageGroupingPayload struct {
	PackingGroupID string            `json:"packingGroupId"`
	Boxes          []boxInputPayload `json:"boxes"`
}

type setPackingInformationRequest struct {
	PackageGroupings []packageGroupingPayload `json:"packageGroupings"`
}

func toGroupingPayload(pg *shipping.PackageGrouping) packageGroupingPayload {
	out := packageGroupingPayload{PackingGroupID: pg.PackingGroupID}
	for _, b := range pg.Boxes {
		box := boxInputPayload{
			Quantity:      b.Quantity,
			ContentSource: string(b.ContentMode),
			Weight:        measurementPayload{Unit: b.WeightUnit, Value: b.Weight},
			Dimensions: dimensionsPayload{
				Unit:   b.DimensionUnit,
				Length: b.Length,
				Width:  b.Width,
				Height: b.Height,
			},
		}
		for _, it := range b.Items {
			box.Items = append(box.Items, boxItemPayload{
				MSKU:       it.SKU,
				Quantity:   it.Quantity,
				PrepOwner:  string(it.PrepOwner),
				LabelOwner: string(it.LabelOwner),
				Expiration: it.Expiration,
			})
		}
		out.Boxes = append(out.Boxes, box)
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
