package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/vesselcost/internal/model"
)

const systemPrompt = "You are an experienced pressure vessel fabrication estimator. " +
	"You review rule-based cost estimates and reply with a single JSON object, no prose around it."

// modeProfile is what a mode changes: the data sent and the detail asked for
type modeProfile struct {
	MaxTokens      int
	MaxAdjustments int
	Narrative      string
	LineItems      bool
}

var modeProfiles = map[model.EnrichmentMode]modeProfile{
	model.ModeBudget: {
		MaxTokens:      500,
		MaxAdjustments: 3,
		Narrative:      "2-3 sentences on current market conditions affecting this estimate",
	},
	model.ModeFull: {
		MaxTokens:      1500,
		MaxAdjustments: 10,
		Narrative:      "a detailed paragraph covering material market, fabrication complexity and risk",
		LineItems:      true,
	},
}

func profileFor(mode model.EnrichmentMode) modeProfile {
	if p, ok := modeProfiles[mode]; ok {
		return p
	}
	return modeProfiles[model.ModeBudget]
}

// coreAttributes are the only attributes sent in budget mode
var coreAttributes = []model.AttributeName{
	model.AttrMaterial,
	model.AttrDiameterIn,
	model.AttrLengthFt,
	model.AttrWallThicknessIn,
	model.AttrDesignPressurePSI,
}

// BuildPrompt renders the enrichment prompt. The output depends only on its
// inputs, so it doubles as the cache key material.
func BuildPrompt(attrs *model.AttributeMap, breakdown *model.CostBreakdown, mode model.EnrichmentMode) string {
	profile := profileFor(mode)
	var b strings.Builder

	b.WriteString("Review this pressure vessel cost estimate.\n\nVessel:\n")
	if profile.LineItems {
		for _, a := range attrs.Attributes() {
			fmt.Fprintf(&b, "- %s: %s\n", a.Name.Label(), a.Display())
		}
	} else {
		for _, name := range coreAttributes {
			fmt.Fprintf(&b, "- %s: %s\n", name.Label(), attrs.Get(name).Display())
		}
	}

	if profile.LineItems {
		b.WriteString("\nLine items (category, name, unit cost x quantity = subtotal):\n")
		for _, li := range breakdown.Items() {
			fmt.Fprintf(&b, "- %s, %s, %s x %s %s = %s\n",
				li.Category, li.Name, li.UnitCost.StringFixed(2), li.Quantity.String(), li.Unit, li.Subtotal().StringFixed(2))
		}
		b.WriteString("\nCategory totals:\n")
		for _, c := range breakdown.CategoriesPresent() {
			fmt.Fprintf(&b, "- %s: %s\n", c, breakdown.CategoryTotal(c).StringFixed(2))
		}
		if defaulted := breakdown.Defaulted(); len(defaulted) > 0 {
			names := make([]string, len(defaulted))
			for i, n := range defaulted {
				names[i] = string(n)
			}
			fmt.Fprintf(&b, "\nDefaulted attributes: %s\n", strings.Join(names, ", "))
		}
	}

	fmt.Fprintf(&b, "\nRule-based total: %s %s (confidence: %s)\n",
		breakdown.Total().StringFixed(2), breakdown.Currency(), breakdown.Confidence())

	categories := make([]string, 0, 4)
	for _, c := range model.Categories() {
		categories = append(categories, string(c))
	}

	b.WriteString("\nReply with JSON of this shape:\n")
	b.WriteString(`{"narrative": "...", "adjustments": [{"name": "...", "category": "...", "unit": "...", "unit_cost": 0, "quantity": 0, "note": "..."}], "confidence": 7, "warnings": ["..."]}`)
	b.WriteString("\n\nRules:\n")
	fmt.Fprintf(&b, "- narrative: %s\n", profile.Narrative)
	fmt.Fprintf(&b, "- at most %d adjustments; reuse an existing line name to replace that line\n", profile.MaxAdjustments)
	fmt.Fprintf(&b, "- category must be one of: %s\n", strings.Join(categories, ", "))
	b.WriteString("- unit_cost and quantity are non-negative numbers; do not adjust overhead lines\n")
	b.WriteString("- confidence is an integer from 1 to 10\n")

	return b.String()
}
