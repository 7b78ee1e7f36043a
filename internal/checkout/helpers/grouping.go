package helpers

import (
	"math"

	"github.com/google/uuid"

	"github.com/seoulmarket/marketplace-backend/internal/catalog"
)

// Line is one requested (variant, quantity) pair.
type Line struct {
	VariantID uuid.UUID
	Quantity  int
}

// MergeLines sums quantities of repeated variants, keeping the position of
// each variant's first appearance.
func MergeLines(lines []Line) []Line {
	index := make(map[uuid.UUID]int, len(lines))
	merged := make([]Line, 0, len(lines))
	for _, line := range lines {
		if pos, ok := index[line.VariantID]; ok {
			merged[pos].Quantity += line.Quantity
			continue
		}
		index[line.VariantID] = len(merged)
		merged = append(merged, line)
	}
	return merged
}

// PricedLine is a merged line resolved against the catalog.
type PricedLine struct {
	Record   catalog.VariantRecord
	Quantity int
}

func (l PricedLine) UnitPriceKrw() int64 {
	return l.Record.UnitPriceKrw()
}

// LineTotalKrw reports ok=false when the total does not fit in int64.
func (l PricedLine) LineTotalKrw() (int64, bool) {
	return mulKrw(l.UnitPriceKrw(), int64(l.Quantity))
}

// SellerGroup is the set of lines that becomes one order.
type SellerGroup struct {
	SellerID uuid.UUID
	Lines    []PricedLine
}

func (g SellerGroup) SubtotalKrw() (int64, bool) {
	var total int64
	for _, line := range g.Lines {
		lineTotal, ok := line.LineTotalKrw()
		if !ok {
			return 0, false
		}
		if total, ok = AddKrw(total, lineTotal); !ok {
			return 0, false
		}
	}
	return total, true
}

// AddKrw adds two non-negative amounts, reporting overflow.
func AddKrw(a, b int64) (int64, bool) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

func mulKrw(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a != 0 && b > math.MaxInt64/a {
		return 0, false
	}
	return a * b, true
}

// GroupBySeller partitions lines by product seller. Groups come back in the
// order their seller first appears.
func GroupBySeller(lines []PricedLine) []SellerGroup {
	index := make(map[uuid.UUID]int)
	groups := make([]SellerGroup, 0)
	for _, line := range lines {
		sellerID := line.Record.Product.SellerID
		pos, ok := index[sellerID]
		if !ok {
			pos = len(groups)
			index[sellerID] = pos
			groups = append(groups, SellerGroup{SellerID: sellerID})
		}
		groups[pos].Lines = append(groups[pos].Lines, line)
	}
	return groups
}

// SellerIDs lists the distinct sellers in group order.
func SellerIDs(groups []SellerGroup) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.SellerID)
	}
	return ids
}
