package model

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the precision subtotals and totals are rounded to
const CurrencyPlaces = 2

// Category groups line items; the declaration order is the report order
type Category string

const (
	CategoryMaterial Category = "material"
	CategoryLabor    Category = "labor"
	CategoryService  Category = "service"
	CategoryOverhead Category = "overhead"
)

var categoryOrder = []Category{CategoryMaterial, CategoryLabor, CategoryService, CategoryOverhead}

// Categories returns the categories in canonical order
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Rank returns the position of c in the canonical order (-1 if unknown)
func (c Category) Rank() int {
	for i, cat := range categoryOrder {
		if cat == c {
			return i
		}
	}
	return -1
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	return c.Rank() >= 0
}

// LineSource records which stage produced a line item
type LineSource string

const (
	LineSourceRule       LineSource = "rule"
	LineSourceEnrichment LineSource = "enrichment"
)

// Confidence levels for a breakdown
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// CostLineItem is a single costed row
type CostLineItem struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    Category        `json:"category"`
	Unit        string          `json:"unit"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Quantity    decimal.Decimal `json:"quantity"`
	Source      LineSource      `json:"source"`
}

// Subtotal is always recomputed as UnitCost * Quantity at currency precision
func (li CostLineItem) Subtotal() decimal.Decimal {
	return li.UnitCost.Mul(li.Quantity).Round(CurrencyPlaces)
}

// CostBreakdown is an immutable, ordered set of line items.
// Construct it with NewCostBreakdown; derived values are computed on demand.
type CostBreakdown struct {
	items      []CostLineItem
	confidence Confidence
	defaulted  []AttributeName
	narrative  string
	currency   string
	enriched   bool
}

// BreakdownParams carries everything NewCostBreakdown needs besides the items
type BreakdownParams struct {
	Confidence Confidence
	Defaulted  []AttributeName
	Narrative  string
	Currency   string
	Enriched   bool
}

// NewCostBreakdown copies items, orders them by category (stable within a
// category) and returns an immutable breakdown
func NewCostBreakdown(items []CostLineItem, p BreakdownParams) *CostBreakdown {
	sorted := make([]CostLineItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Category.Rank() < sorted[j].Category.Rank()
	})

	defaulted := make([]AttributeName, len(p.Defaulted))
	copy(defaulted, p.Defaulted)

	currency := p.Currency
	if currency == "" {
		currency = "USD"
	}

	return &CostBreakdown{
		items:      sorted,
		confidence: p.Confidence,
		defaulted:  defaulted,
		narrative:  p.Narrative,
		currency:   currency,
		enriched:   p.Enriched,
	}
}

// Items returns a copy of the line items in category order
func (b *CostBreakdown) Items() []CostLineItem {
	out := make([]CostLineItem, len(b.items))
	copy(out, b.items)
	return out
}

// ItemsIn returns the items of one category in order
func (b *CostBreakdown) ItemsIn(c Category) []CostLineItem {
	var out []CostLineItem
	for _, li := range b.items {
		if li.Category == c {
			out = append(out, li)
		}
	}
	return out
}

// Total is the sum of all subtotals
func (b *CostBreakdown) Total() decimal.Decimal {
	total := decimal.Zero
	for _, li := range b.items {
		total = total.Add(li.Subtotal())
	}
	return total
}

// CategoryTotal sums the subtotals of one category
func (b *CostBreakdown) CategoryTotal(c Category) decimal.Decimal {
	total := decimal.Zero
	for _, li := range b.items {
		if li.Category == c {
			total = total.Add(li.Subtotal())
		}
	}
	return total
}

// CategoriesPresent returns the categories that hold at least one item
func (b *CostBreakdown) CategoriesPresent() []Category {
	var out []Category
	for _, c := range categoryOrder {
		if len(b.ItemsIn(c)) > 0 {
			out = append(out, c)
		}
	}
	return out
}

func (b *CostBreakdown) Confidence() Confidence { return b.confidence }
func (b *CostBreakdown) Narrative() string      { return b.narrative }
func (b *CostBreakdown) Currency() string       { return b.currency }
func (b *CostBreakdown) Enriched() bool         { return b.enriched }

// LowConfidence reports whether the breakdown leans mostly on fallback defaults
func (b *CostBreakdown) LowConfidence() bool {
	return b.confidence == ConfidenceLow
}

// Defaulted lists the attributes that were filled from fallback defaults
func (b *CostBreakdown) Defaulted() []AttributeName {
	out := make([]AttributeName, len(b.defaulted))
	copy(out, b.defaulted)
	return out
}

// Params returns the non-item parameters, for building a derived breakdown
func (b *CostBreakdown) Params() BreakdownParams {
	return BreakdownParams{
		Confidence: b.confidence,
		Defaulted:  b.Defaulted(),
		Narrative:  b.narrative,
		Currency:   b.currency,
		Enriched:   b.enriched,
	}
}

type breakdownLineJSON struct {
	CostLineItem
	Subtotal decimal.Decimal `json:"subtotal"`
}

type breakdownJSON struct {
	Items      []breakdownLineJSON `json:"items"`
	Total      decimal.Decimal     `json:"total"`
	Currency   string              `json:"currency"`
	Confidence Confidence          `json:"confidence"`
	Defaulted  []AttributeName     `json:"defaulted,omitempty"`
	Narrative  string              `json:"narrative,omitempty"`
	Enriched   bool                `json:"enriched"`
}

// MarshalJSON includes derived subtotals and the total
func (b *CostBreakdown) MarshalJSON() ([]byte, error) {
	out := breakdownJSON{
		Items:      make([]breakdownLineJSON, 0, len(b.items)),
		Total:      b.Total(),
		Currency:   b.currency,
		Confidence: b.confidence,
		Defaulted:  b.defaulted,
		Narrative:  b.narrative,
		Enriched:   b.enriched,
	}
	for _, li := range b.items {
		out.Items = append(out.Items, breakdownLineJSON{CostLineItem: li, Subtotal: li.Subtotal()})
	}
	return json.Marshal(out)
}
