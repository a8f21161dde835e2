package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// EnrichmentMode controls how much data is sent to the enrichment service
type EnrichmentMode string

const (
	ModeBudget EnrichmentMode = "budget"
	ModeFull   EnrichmentMode = "full"
)

// ParseEnrichmentMode accepts "budget" or "full" (case-insensitive)
func ParseEnrichmentMode(s string) (EnrichmentMode, error) {
	switch EnrichmentMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeBudget, "":
		return ModeBudget, nil
	case ModeFull:
		return ModeFull, nil
	default:
		return "", fmt.Errorf("unknown enrichment mode %q (supported: budget, full)", s)
	}
}

// Adjustment is a line item proposed by the enrichment service
type Adjustment struct {
	Name     string          `json:"name"`
	Category Category        `json:"category"`
	Unit     string          `json:"unit,omitempty"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Quantity decimal.Decimal `json:"quantity"`
	Note     string          `json:"note,omitempty"`
}

// Enrichment is the validated output of one enrichment call
type Enrichment struct {
	Narrative   string         `json:"narrative"`
	Adjustments []Adjustment   `json:"adjustments,omitempty"`
	Confidence  int            `json:"confidence,omitempty"` // 1-10 as reported by the service
	Warnings    []string       `json:"warnings,omitempty"`
	Provider    string         `json:"provider"`
	Model       string         `json:"model"`
	Mode        EnrichmentMode `json:"mode"`
	TokensUsed  int            `json:"tokens_used,omitempty"`
	Cached      bool           `json:"cached,omitempty"`
}

// EnrichmentStatus is the tag of an EnrichmentResult
type EnrichmentStatus string

const (
	EnrichmentStatusOK      EnrichmentStatus = "ok"
	EnrichmentStatusFailed  EnrichmentStatus = "failed"
	EnrichmentStatusSkipped EnrichmentStatus = "skipped"
)

// EnrichmentResult is Ok(Enrichment), Err(reason) or Skipped
type EnrichmentResult struct {
	Status     EnrichmentStatus
	Enrichment *Enrichment
	Err        error
}

// EnrichmentOK wraps a successful enrichment
func EnrichmentOK(e *Enrichment) EnrichmentResult {
	return EnrichmentResult{Status: EnrichmentStatusOK, Enrichment: e}
}

// EnrichmentFailed wraps a failure; the error always matches ErrEnrichmentUnavailable
func EnrichmentFailed(err error) EnrichmentResult {
	if err == nil {
		err = ErrEnrichmentUnavailable
	} else if !errors.Is(err, ErrEnrichmentUnavailable) {
		err = fmt.Errorf("%w: %w", ErrEnrichmentUnavailable, err)
	}
	return EnrichmentResult{Status: EnrichmentStatusFailed, Err: err}
}

// EnrichmentSkipped is used when the caller chose not to enrich
func EnrichmentSkipped() EnrichmentResult {
	return EnrichmentResult{Status: EnrichmentStatusSkipped}
}

// MergeEnrichment folds an enrichment result into a base breakdown.
// Failed and skipped results return base itself; failures add a warning.
// A successful result produces a new breakdown: adjustments matching an
// existing item (same name and category) replace its cost and quantity,
// others are appended after the rule items of their category sorted by
// name, and rule overhead items are rebased on the new subtotal.
// Repeated (category, name) pairs collapse to the one with the highest
// unit cost, whatever order they arrived in.
func MergeEnrichment(base *CostBreakdown, res EnrichmentResult) (*CostBreakdown, []string) {
	switch res.Status {
	case EnrichmentStatusOK:
	case EnrichmentStatusFailed:
		reason := "unknown error"
		if res.Err != nil {
			reason = res.Err.Error()
		}
		return base, []string{fmt.Sprintf("AI enrichment failed, using rule-based breakdown: %s", reason)}
	default:
		return base, nil
	}

	e := res.Enrichment
	if e == nil {
		return base, []string{"AI enrichment returned no data, using rule-based breakdown"}
	}

	var warnings []string
	for _, w := range e.Warnings {
		warnings = append(warnings, "AI: "+w)
	}

	items := base.Items()
	index := make(map[string]int, len(items))
	for i, li := range items {
		index[itemKey(li.Category, li.Name)] = i
	}

	adjustments := sortedAdjustments(e.Adjustments)
	added := make(map[Category][]CostLineItem)
	addedAt := make(map[string]int)
	seen := make(map[string]bool, len(adjustments))
	for _, adj := range adjustments {
		if !adj.Category.Valid() {
			warnings = append(warnings, fmt.Sprintf("AI adjustment %q ignored: unknown category %q", adj.Name, adj.Category))
			continue
		}
		key := itemKey(adj.Category, adj.Name)
		if seen[key] {
			warnings = append(warnings, fmt.Sprintf("AI adjustment %q repeated in %s, keeping the highest unit cost", strings.TrimSpace(adj.Name), adj.Category))
		}
		seen[key] = true

		if i, ok := index[key]; ok {
			items[i].UnitCost = adj.UnitCost
			items[i].Quantity = adj.Quantity
			items[i].Source = LineSourceEnrichment
			if adj.Unit != "" {
				items[i].Unit = adj.Unit
			}
			if adj.Note != "" {
				items[i].Description = adj.Note
			}
			continue
		}
		unit := adj.Unit
		if unit == "" {
			unit = "each"
		}
		li := CostLineItem{
			Name:        strings.TrimSpace(adj.Name),
			Description: adj.Note,
			Category:    adj.Category,
			Unit:        unit,
			UnitCost:    adj.UnitCost,
			Quantity:    adj.Quantity,
			Source:      LineSourceEnrichment,
		}
		if i, ok := addedAt[key]; ok {
			added[adj.Category][i] = li
			continue
		}
		addedAt[key] = len(added[adj.Category])
		added[adj.Category] = append(added[adj.Category], li)
	}

	var merged []CostLineItem
	for _, cat := range categoryOrder {
		for _, li := range items {
			if li.Category == cat {
				merged = append(merged, li)
			}
		}
		extra := added[cat]
		sort.SliceStable(extra, func(i, j int) bool { return extra[i].Name < extra[j].Name })
		merged = append(merged, extra...)
	}

	merged = rebaseOverhead(merged)

	params := base.Params()
	params.Narrative = strings.TrimSpace(e.Narrative)
	params.Enriched = true
	return NewCostBreakdown(merged, params), warnings
}

// OverheadBase sums the subtotals of every non-overhead item
func OverheadBase(items []CostLineItem) decimal.Decimal {
	base := decimal.Zero
	for _, li := range items {
		if li.Category != CategoryOverhead {
			base = base.Add(li.Subtotal())
		}
	}
	return base
}

func rebaseOverhead(items []CostLineItem) []CostLineItem {
	base := OverheadBase(items)
	for i := range items {
		if items[i].Category == CategoryOverhead && items[i].Source == LineSourceRule {
			items[i].UnitCost = base
		}
	}
	return items
}

// sortedAdjustments orders a copy by item key and then by amount so that
// the last adjustment for a key is the same for any arrival order.
func sortedAdjustments(in []Adjustment) []Adjustment {
	out := append([]Adjustment(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ka, kb := itemKey(a.Category, a.Name), itemKey(b.Category, b.Name); ka != kb {
			return ka < kb
		}
		if c := a.UnitCost.Cmp(b.UnitCost); c != 0 {
			return c < 0
		}
		if c := a.Quantity.Cmp(b.Quantity); c != 0 {
			return c < 0
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Unit != b.Unit {
			return a.Unit < b.Unit
		}
		return a.Note < b.Note
	})
	return out
}

func itemKey(c Category, name string) string {
	return string(c) + "/" + strings.ToLower(strings.TrimSpace(name))
}
