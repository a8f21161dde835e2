package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ppiankov/vesselcost/internal/model"
)

// ConsoleSink prints a human-readable summary
type ConsoleSink struct {
	w       io.Writer
	verbose bool
}

// NewConsoleSink prints to w; verbose adds every line item
func NewConsoleSink(w io.Writer, verbose bool) *ConsoleSink {
	return &ConsoleSink{w: w, verbose: verbose}
}

func (s *ConsoleSink) Name() string { return "console" }

// Deliver prints the summary
func (s *ConsoleSink) Deliver(ctx context.Context, rep *model.Report) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &DeliveryError{Sink: s.Name(), Err: err}
	}

	vessel := rep.VesselNumber
	if vessel == "" {
		vessel = "Unknown vessel"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s", vessel)
	if rep.Customer != "" {
		fmt.Fprintf(&b, " for %s", rep.Customer)
	}
	fmt.Fprintf(&b, " (%s)\n", rep.Document.Name)

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, ct := range rep.CategoryTotals {
		fmt.Fprintf(tw, "  %s\t%s\t\n", ct.Category, ct.Total.StringFixed(2))
		if !s.verbose {
			continue
		}
		for _, line := range rep.Lines {
			if line.Category == ct.Category {
				fmt.Fprintf(tw, "    %s\t%s\t\n", line.Name, line.Subtotal.StringFixed(2))
			}
		}
	}
	fmt.Fprintf(tw, "  TOTAL (%s)\t%s\t\n", rep.Currency, rep.Total.StringFixed(2))
	if err := tw.Flush(); err != nil {
		return "", &DeliveryError{Sink: s.Name(), Err: err}
	}

	fmt.Fprintf(&b, "Confidence: %s\n", rep.Confidence)
	if rep.Enrichment != nil {
		switch rep.Enrichment.Status {
		case model.EnrichmentStatusOK:
			fmt.Fprintf(&b, "AI enrichment: %s/%s, %d adjustments", rep.Enrichment.Provider, rep.Enrichment.Model, rep.Enrichment.Adjustments)
			if rep.Enrichment.Cached {
				b.WriteString(" (cached)")
			}
			b.WriteString("\n")
		case model.EnrichmentStatusFailed:
			b.WriteString("AI enrichment: unavailable\n")
		}
	}
	if rep.Narrative != "" {
		fmt.Fprintf(&b, "\n%s\n", rep.Narrative)
	}
	for _, w := range rep.Warnings {
		fmt.Fprintf(&b, "⚠️  %s\n", w)
	}

	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return "", &DeliveryError{Sink: s.Name(), Err: err}
	}
	return "console", nil
}
