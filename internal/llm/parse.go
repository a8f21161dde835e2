package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/vesselcost/internal/model"
)

type enrichmentReply struct {
	Narrative   string            `json:"narrative"`
	Adjustments []adjustmentReply `json:"adjustments"`
	Confidence  float64           `json:"confidence"`
	Warnings    []string          `json:"warnings"`
}

type adjustmentReply struct {
	Name     string              `json:"name"`
	Category string              `json:"category"`
	Unit     string              `json:"unit"`
	UnitCost decimal.Decimal     `json:"unit_cost"`
	Quantity decimal.NullDecimal `json:"quantity"` // absent means 1
	Note     string              `json:"note"`
}

// StripFences removes a markdown code fence and any prose around the JSON object
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	if !strings.HasPrefix(text, "{") {
		start := strings.IndexByte(text, '{')
		end := strings.LastIndexByte(text, '}')
		if start >= 0 && end > start {
			text = text[start : end+1]
		}
	}
	return text
}

// ParseEnrichment decodes and validates a reply. Any structural problem,
// unknown category, negative amount or repeated (category, name) pair
// rejects the whole reply.
func ParseEnrichment(text string, mode model.EnrichmentMode) (*model.Enrichment, error) {
	var reply enrichmentReply
	if err := json.Unmarshal([]byte(StripFences(text)), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	narrative := strings.TrimSpace(reply.Narrative)
	if narrative == "" {
		return nil, fmt.Errorf("%w: empty narrative", ErrMalformedResponse)
	}

	if reply.Confidence < 0 || reply.Confidence > 10 || math.IsNaN(reply.Confidence) {
		return nil, fmt.Errorf("%w: confidence %v outside 0-10", ErrMalformedResponse, reply.Confidence)
	}

	e := &model.Enrichment{
		Narrative:  narrative,
		Confidence: int(math.Round(reply.Confidence)),
		Mode:       mode,
	}
	for _, w := range reply.Warnings {
		if w = strings.TrimSpace(w); w != "" {
			e.Warnings = append(e.Warnings, w)
		}
	}

	limit := profileFor(mode).MaxAdjustments
	seen := make(map[string]bool, len(reply.Adjustments))
	for i, adj := range reply.Adjustments {
		if i == limit {
			e.Warnings = append(e.Warnings, fmt.Sprintf("%d adjustments beyond the %s limit of %d were dropped", len(reply.Adjustments)-limit, mode, limit))
			break
		}

		name := strings.TrimSpace(adj.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: adjustment %d has no name", ErrMalformedResponse, i)
		}

		category := model.Category(strings.ToLower(strings.TrimSpace(adj.Category)))
		if !category.Valid() {
			return nil, fmt.Errorf("%w: adjustment %q has unknown category %q", ErrMalformedResponse, name, adj.Category)
		}

		key := string(category) + "/" + strings.ToLower(name)
		if seen[key] {
			return nil, fmt.Errorf("%w: adjustment %q appears twice in category %s", ErrMalformedResponse, name, category)
		}
		seen[key] = true

		quantity := decimal.NewFromInt(1)
		if adj.Quantity.Valid {
			quantity = adj.Quantity.Decimal
		}
		if adj.UnitCost.IsNegative() || quantity.IsNegative() {
			return nil, fmt.Errorf("%w: adjustment %q has a negative amount", ErrMalformedResponse, name)
		}

		e.Adjustments = append(e.Adjustments, model.Adjustment{
			Name:     name,
			Category: category,
			Unit:     strings.TrimSpace(adj.Unit),
			UnitCost: adj.UnitCost,
			Quantity: quantity,
			Note:     strings.TrimSpace(adj.Note),
		})
	}

	return e, nil
}
