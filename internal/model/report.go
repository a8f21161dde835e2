package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Report is the canonical, ready-to-persist representation of one costed document
type Report struct {
	Document     DocumentMeta `json:"document"`
	VesselNumber string       `json:"vessel_number"`
	Customer     string       `json:"customer"`
	GeneratedAt  time.Time    `json:"generated_at"`

	Attributes []Attribute `json:"attributes"`
	Ignored    []string    `json:"ignored_attributes,omitempty"`

	Lines          []ReportLine    `json:"lines"`
	CategoryTotals []CategoryTotal `json:"category_totals"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency"`
	Confidence     Confidence      `json:"confidence"`
	Defaulted      []AttributeName `json:"defaulted,omitempty"`
	Narrative      string          `json:"narrative,omitempty"`

	Enrichment *EnrichmentSummary `json:"enrichment,omitempty"` // Present only when enrichment was attempted
	Warnings   []string           `json:"warnings,omitempty"`
}

// DocumentMeta describes the source document
type DocumentMeta struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Format  string `json:"format"`
	Pages   int    `json:"pages"`
	Profile string `json:"profile,omitempty"` // Extraction profile that matched the layout
}

// ReportLine is a line item with its subtotal resolved
type ReportLine struct {
	Category    Category        `json:"category"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Unit        string          `json:"unit"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Quantity    decimal.Decimal `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Source      LineSource      `json:"source"`
}

// CategoryTotal is the sum of one category
type CategoryTotal struct {
	Category Category        `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// EnrichmentSummary records what the enrichment pass did
type EnrichmentSummary struct {
	Status      EnrichmentStatus `json:"status"`
	Provider    string           `json:"provider,omitempty"`
	Model       string           `json:"model,omitempty"`
	Mode        EnrichmentMode   `json:"mode,omitempty"`
	Confidence  int              `json:"confidence,omitempty"`
	Adjustments int              `json:"adjustments"`
	TokensUsed  int              `json:"tokens_used,omitempty"`
	Cached      bool             `json:"cached,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// Attribute returns the report's copy of one attribute
func (r *Report) Attribute(name AttributeName) Attribute {
	for _, a := range r.Attributes {
		if a.Name == name {
			return a
		}
	}
	return Missing(name)
}
