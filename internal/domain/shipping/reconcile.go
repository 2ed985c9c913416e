package shipping

import (
	"fmt"
	"sort"
)

// QuantityMismatch reports one SKU whose assembled packaging quantity does
// not equal its confirmed intake quantity.
type QuantityMismatch struct {
	SKU       string `json:"sku"`
	Confirmed int    `json:"confirmed"`
	Assembled int    `json:"assembled"`
	Delta     int    `json:"delta"`
}

// Describe renders the mismatch for human-readable reports.
func (m QuantityMismatch) Describe() string {
	return fmt.Sprintf("confirmed %d, assembled %d (delta %+d)", m.Confirmed, m.Assembled, m.Delta)
}

// AssembledQuantities sums item quantities per SKU across all groups.
func AssembledQuantities(groups []PackingGroup) map[string]int {
	totals := make(map[string]int)
	for _, g := range groups {
		for _, it := range g.Items {
			totals[it.SKU] += it.Quantity
		}
	}
	return totals
}

// Reconcile compares assembled quantities against confirmed intake and
// returns every non-zero delta, sorted by SKU for stable reporting. SKUs
// confirmed but absent from the groups count as assembled zero.
func Reconcile(groups []PackingGroup, confirmed map[string]int) []QuantityMismatch {
	assembled := AssembledQuantities(groups)

	seen := make(map[string]bool, len(confirmed)+len(assembled))
	var mismatches []QuantityMismatch
	check := func(sku string) {
		if seen[sku] {
			return
		}
		seen[sku] = true
		c, a := confirmed[sku], assembled[sku]
		if c != a {
			mismatches = append(mismatches, QuantityMismatch{
				SKU:       sku,
				Confirmed: c,
				Assembled: a,
				Delta:     a - c,
			})
		}
	}
	for sku := range confirmed {
		check(sku)
	}
	for sku := range assembled {
		check(sku)
	}
	sort.Slice(mismatches, func(i, j int) bool { return mismatches[i].SKU < mismatches[j].SKU })
	return mismatches
}

// RescaleFactor inspects a mismatch set for the known duplication artifact:
// every mismatched SKU's assembled quantity is the same integer multiple of
// its confirmed quantity. Returns the factor (> 1) when the pattern holds.
func RescaleFactor(mismatches []QuantityMismatch) (int, bool) {
	if len(mismatches) == 0 {
		return 0, false
	}
	factor := 0
	for _, m := range mismatches {
		if m.Confirmed <= 0 || m.Assembled <= 0 {
			return 0, false
		}
		if m.Assembled%m.Confirmed != 0 {
			return 0, false
		}
		f := m.Assembled / m.Confirmed
		if f <= 1 {
			return 0, false
		}
		if factor == 0 {
			factor = f
		} else if f != factor {
			return 0, false
		}
	}
	return factor, true
}

// RescaleGroups divides every item quantity by factor. It refuses when any
// raw quantity does not divide evenly, leaving the input untouched.
func RescaleGroups(groups []PackingGroup, factor int) ([]PackingGroup, bool) {
	if factor <= 1 {
		return groups, false
	}
	for _, g := range groups {
		for _, it := range g.Items {
			if it.Quantity%factor != 0 {
				return groups, false
			}
		}
	}
	out := make([]PackingGroup, len(groups))
	for i, g := range groups {
		out[i] = g
		out[i].Items = make([]PackingGroupItem, len(g.Items))
		for j, it := range g.Items {
			it.Quantity /= factor
			out[i].Items[j] = it
		}
	}
	return out, true
}

// ReconcileWithRescale runs reconciliation, applying the uniform-factor
// auto-fix once before reporting failure. Returns the (possibly rescaled)
// groups and any remaining mismatches.
//
// The heuristic assumes a single duplication factor across all mismatched
// SKUs; anything less regular is surfaced to the caller instead of guessed.
func ReconcileWithRescale(groups []PackingGroup, confirmed map[string]int) ([]PackingGroup, []QuantityMismatch) {
	mismatches := Reconcile(groups, confirmed)
	if len(mismatches) == 0 {
		return groups, nil
	}
	factor, ok := RescaleFactor(mismatches)
	if !ok {
		return groups, mismatches
	}
	rescaled, ok := RescaleGroups(groups, factor)
	if !ok {
		return groups, mismatches
	}
	if remaining := Reconcile(rescaled, confirmed); len(remaining) == 0 {
		return rescaled, nil
	}
	return groups, mismatches
}
