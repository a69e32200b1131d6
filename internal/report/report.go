// Package report derives dashboards and exports from the item projection:
// filtered views, summary totals, and CSV/PDF documents.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mediastock/internal/model"
)

// Filter narrows the item set before reporting. Zero values mean "no filter".
type Filter struct {
	Search   string     // matches instrument name or serial number, case-insensitive
	Category string     // exact category value
	Status   string     // item status
	AddedOn  *time.Time // same calendar day as addedDate (UTC)
}

// Apply returns the items matching every set filter field.
func (f Filter) Apply(items []model.Item) []model.Item {
	var out []model.Item
	search := strings.ToLower(f.Search)
	for _, item := range items {
		if search != "" &&
			!strings.Contains(strings.ToLower(item.Name), search) &&
			!strings.Contains(strings.ToLower(item.SerialNumber), search) {
			continue
		}
		if f.Category != "" && item.Category != f.Category {
			continue
		}
		if f.Status != "" && item.Status != f.Status {
			continue
		}
		if f.AddedOn != nil && !sameDay(item.AddedDate, *f.AddedOn) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// Summary holds the dashboard aggregates for a set of items.
type Summary struct {
	ItemCount       int             `json:"itemCount"`
	TotalStockValue decimal.Decimal `json:"totalStockValue"`
	AverageQuantity decimal.Decimal `json:"averageQuantity"`
	TopByQuantity   []model.Item    `json:"topByQuantity"`
	LowStock        []model.Item    `json:"lowStock"`
}

// topItemCount is how many items the "top by quantity" listing shows.
const topItemCount = 5

// Summarize computes totals, the top items by quantity, and the low-stock
// list for the given items.
func Summarize(items []model.Item) Summary {
	s := Summary{
		ItemCount:       len(items),
		TotalStockValue: decimal.Zero,
		AverageQuantity: decimal.Zero,
	}

	totalQty := 0
	for _, item := range items {
		s.TotalStockValue = s.TotalStockValue.Add(item.TotalValue())
		totalQty += item.Quantity
		if item.LowStock() {
			s.LowStock = append(s.LowStock, item)
		}
	}
	if len(items) > 0 {
		s.AverageQuantity = decimal.NewFromInt(int64(totalQty)).
			Div(decimal.NewFromInt(int64(len(items)))).Round(2)
	}

	top := make([]model.Item, len(items))
	copy(top, items)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Quantity > top[j].Quantity })
	if len(top) > topItemCount {
		top = top[:topItemCount]
	}
	s.TopByQuantity = top

	return s
}

// displayName returns the item name with the legacy fallback for unnamed rows.
func displayName(item model.Item) string {
	if item.Name == "" {
		return "Unnamed Item"
	}
	return item.Name
}

// displayCategory returns the category with the legacy fallback.
func displayCategory(item model.Item) string {
	if item.Category == "" {
		return "Uncategorized"
	}
	return item.Category
}
