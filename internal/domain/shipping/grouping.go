package shipping

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BoxItem is one declared SKU line inside a submitted box.
type BoxItem struct {
	SKU        string
	Quantity   int
	PrepOwner  PrepOwner
	LabelOwner PrepOwner
	Expiration string
}

// Box is one per-box descriptor in the submission payload. Dimensions are
// inches, weight is pounds. Quantity > 1 means "this many identical boxes".
type Box struct {
	Quantity      int
	ContentMode   ContentMode
	Items         []BoxItem
	Length        decimal.Decimal
	Width         decimal.Decimal
	Height        decimal.Decimal
	DimensionUnit string
	Weight        decimal.Decimal
	WeightUnit    string
}

// PackageGrouping is the final per-group payload submitted to the platform:
// one entry per packing group, one or more box descriptors each.
type PackageGrouping struct {
	PackingGroupID string
	Boxes          []Box
}

// BuildPackageGrouping converts a reconciled packing group into the remote
// submission schema, normalizing units and choosing the content-declaration
// mode. The group must have been hydrated first: missing dimensions or
// weight fail validation, not the network call.
func BuildPackageGrouping(g PackingGroup) (*PackageGrouping, error) {
	pg := &PackageGrouping{PackingGroupID: g.ID}

	mode := ContentProvided
	if len(g.Items) == 0 {
		// No reconciled item detail; the warehouse scans contents instead.
		// The remote schema rejects item enumeration under this mode.
		mode = ContentManual
	}

	if len(g.Boxes) > 0 {
		for _, bd := range g.Boxes {
			box := Box{
				Quantity:      1,
				ContentMode:   mode,
				Length:        convertLength(bd.Length, g.DimensionUnit),
				Width:         convertLength(bd.Width, g.DimensionUnit),
				Height:        convertLength(bd.Height, g.DimensionUnit),
				DimensionUnit: "IN",
				Weight:        convertWeight(bd.Weight, g.WeightUnit),
				WeightUnit:    "LB",
			}
			if mode == ContentProvided {
				box.Items = toBoxItems(bd.Items)
			}
			pg.Boxes = append(pg.Boxes, box)
		}
	} else {
		box := Box{
			Quantity:      g.BoxCount,
			ContentMode:   mode,
			Length:        convertLength(g.Length, g.DimensionUnit),
			Width:         convertLength(g.Width, g.DimensionUnit),
			Height:        convertLength(g.Height, g.DimensionUnit),
			DimensionUnit: "IN",
			Weight:        convertWeight(g.Weight, g.WeightUnit),
			WeightUnit:    "LB",
		}
		if mode == ContentProvided {
			items, ok := splitItems(g.Items, g.BoxCount)
			if !ok {
				// A quantity descriptor declares BoxCount identical boxes, so
				// the item lines must describe ONE box. Declaring group totals
				// here would multiply every quantity by BoxCount on the remote
				// side. With no even split there is no truthful single-box
				// declaration; the caller has to say what is in each box.
				return nil, &StageError{
					Code: CodeInvalidPackaging,
					Message: fmt.Sprintf(
						"group %s: item quantities do not divide evenly across %d boxes",
						g.ID, g.BoxCount),
					Hint: "supply per-box contents for this group",
				}
			}
			box.Items = items
		}
		pg.Boxes = append(pg.Boxes, box)
	}

	if err := pg.Validate(); err != nil {
		return nil, err
	}
	return pg, nil
}

// Validate enforces the minimum remote schema before any network call.
func (pg *PackageGrouping) Validate() error {
	if pg.PackingGroupID == "" {
		return NewStageError(CodeInvalidPackaging, "package grouping is missing its packing group id")
	}
	if len(pg.Boxes) == 0 {
		return NewStageError(CodeInvalidPackaging,
			fmt.Sprintf("group %s has no boxes", pg.PackingGroupID))
	}
	for i, b := range pg.Boxes {
		where := fmt.Sprintf("group %s box %d", pg.PackingGroupID, i+1)
		if b.Quantity <= 0 {
			return NewStageError(CodeInvalidPackaging, where+": box quantity must be positive")
		}
		if !b.Length.IsPositive() || !b.Width.IsPositive() || !b.Height.IsPositive() {
			return NewStageError(CodeInvalidPackaging, where+": dimensions must be positive")
		}
		if b.DimensionUnit == "" || b.WeightUnit == "" {
			return NewStageError(CodeInvalidPackaging, where+": missing measurement unit")
		}
		if !b.Weight.IsPositive() {
			return NewStageError(CodeInvalidPackaging, where+": weight must be positive")
		}
		if b.ContentMode != ContentProvided && len(b.Items) > 0 {
			return NewStageError(CodeInvalidPackaging,
				where+": item enumeration is not allowed unless box contents are declared")
		}
		for _, it := range b.Items {
			if it.SKU == "" || it.Quantity <= 0 {
				return NewStageError(CodeInvalidPackaging, where+": item lines need a SKU and positive quantity")
			}
		}
	}
	return nil
}

// splitItems divides group totals evenly across boxCount boxes. Fails when
// any quantity does not divide evenly.
func splitItems(items []PackingGroupItem, boxCount int) ([]BoxItem, bool) {
	if boxCount <= 1 {
		return toBoxItems(items), true
	}
	out := make([]BoxItem, 0, len(items))
	for _, it := range items {
		if it.Quantity%boxCount != 0 {
			return nil, false
		}
		bi := toBoxItem(it)
		bi.Quantity = it.Quantity / boxCount
		out = append(out, bi)
	}
	return out, true
}

func toBoxItems(items []PackingGroupItem) []BoxItem {
	out := make([]BoxItem, 0, len(items))
	for _, it := range items {
		out = append(out, toBoxItem(it))
	}
	return out
}

// toBoxItem derives ownership: prep ownership follows item instructions and
// defaults to none; labeling present defaults label ownership to seller.
func toBoxItem(it PackingGroupItem) BoxItem {
	prep := it.PrepOwner
	if prep == "" {
		prep = OwnerNone
	}
	label := it.LabelOwner
	if label == "" {
		if it.Labeled {
			label = OwnerSeller
		} else {
			label = OwnerNone
		}
	}
	return BoxItem{
		SKU:        it.SKU,
		Quantity:   it.Quantity,
		PrepOwner:  prep,
		LabelOwner: label,
		Expiration: it.Expiration,
	}
}

func convertLength(v decimal.Decimal, unit string) decimal.Decimal {
	if unit == "IN" {
		return v.Round(2)
	}
	return CentimetersToInches(v)
}

func convertWeight(v decimal.Decimal, unit string) decimal.Decimal {
	if unit == "LB" {
		return v.Round(2)
	}
	return KilogramsToPounds(v)
}
