package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/vesselcost/internal/model"
)

// Input is everything needed to assemble one report
type Input struct {
	Document   model.DocumentMeta
	Attributes *model.AttributeMap
	Breakdown  *model.CostBreakdown // merged breakdown
	Enrichment model.EnrichmentResult
	Provider   string // recorded for failed attempts, which carry no Enrichment
	Model      string
	Mode       model.EnrichmentMode
	Warnings   []string
}

// Assembler turns a costed run into the canonical Report. It performs no I/O.
type Assembler struct {
	now func() time.Time
}

// NewAssembler creates an assembler using the wall clock
func NewAssembler() *Assembler {
	return &Assembler{now: time.Now}
}

// WithClock replaces the clock, used for reproducible reports
func (a *Assembler) WithClock(now func() time.Time) *Assembler {
	a.now = now
	return a
}

// Assemble builds the report; lines keep the breakdown's category order
func (a *Assembler) Assemble(in Input) *model.Report {
	b := in.Breakdown

	rep := &model.Report{
		Document:    in.Document,
		GeneratedAt: a.now(),
		Attributes:  in.Attributes.Attributes(),
		Ignored:     in.Attributes.Ignored(),
		Total:       b.Total(),
		Currency:    b.Currency(),
		Confidence:  b.Confidence(),
		Defaulted:   b.Defaulted(),
		Narrative:   b.Narrative(),
	}

	rep.VesselNumber, _ = in.Attributes.Get(model.AttrVesselNumber).Str()
	rep.Customer, _ = in.Attributes.Get(model.AttrCustomer).Str()

	for _, li := range b.Items() {
		rep.Lines = append(rep.Lines, model.ReportLine{
			Category:    li.Category,
			Name:        li.Name,
			Description: li.Description,
			Unit:        li.Unit,
			UnitCost:    li.UnitCost,
			Quantity:    li.Quantity,
			Subtotal:    li.Subtotal(),
			Source:      li.Source,
		})
	}
	for _, c := range b.CategoriesPresent() {
		rep.CategoryTotals = append(rep.CategoryTotals, model.CategoryTotal{Category: c, Total: b.CategoryTotal(c)})
	}

	rep.Enrichment = summarize(in)

	if len(rep.Defaulted) > 0 {
		names := make([]string, len(rep.Defaulted))
		for i, n := range rep.Defaulted {
			names[i] = string(n)
		}
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("Fallback defaults used for: %s", strings.Join(names, ", ")))
	}
	if len(rep.Ignored) > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("Ignored unknown attributes: %s", strings.Join(rep.Ignored, ", ")))
	}
	rep.Warnings = append(rep.Warnings, in.Warnings...)

	return rep
}

func summarize(in Input) *model.EnrichmentSummary {
	res := in.Enrichment
	switch res.Status {
	case model.EnrichmentStatusOK:
		e := res.Enrichment
		if e == nil {
			return &model.EnrichmentSummary{Status: res.Status, Provider: in.Provider, Model: in.Model, Mode: in.Mode}
		}
		return &model.EnrichmentSummary{
			Status:      res.Status,
			Provider:    e.Provider,
			Model:       e.Model,
			Mode:        e.Mode,
			Confidence:  e.Confidence,
			Adjustments: len(e.Adjustments),
			TokensUsed:  e.TokensUsed,
			Cached:      e.Cached,
		}
	case model.EnrichmentStatusFailed:
		s := &model.EnrichmentSummary{Status: res.Status, Provider: in.Provider, Model: in.Model, Mode: in.Mode}
		if res.Err != nil {
			s.Error = res.Err.Error()
		}
		return s
	default:
		return nil
	}
}
