package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/vesselcost/internal/extract/profiles"
	"github.com/ppiankov/vesselcost/internal/model"
	"github.com/ppiankov/vesselcost/internal/validate"
)

// Result is an extracted attribute map plus the profile that produced it
type Result struct {
	Attributes *model.AttributeMap
	Profile    string
}

// FieldExtractor pulls vessel attributes out of raw document text
type FieldExtractor struct {
	registry  *profiles.Registry
	materials *validate.MaterialCatalog
}

// NewFieldExtractor creates an extractor; materials resolves grades to rate table keys
func NewFieldExtractor(materials *validate.MaterialCatalog) *FieldExtractor {
	if materials == nil {
		materials = validate.NewMaterialCatalog(model.DefaultRates())
	}
	return &FieldExtractor{
		registry:  profiles.NewRegistry(),
		materials: materials,
	}
}

// Registry exposes the profile registry so callers can add layouts
func (e *FieldExtractor) Registry() *profiles.Registry {
	return e.registry
}

// Extract returns a map holding every recognized attribute, found or missing.
// Malformed text never fails; unmatched attributes stay missing.
func (e *FieldExtractor) Extract(text string) Result {
	attrs := model.NewAttributeMap()
	text = normalizeText(text)

	profile := e.registry.Find(text)
	passes := []profiles.Profile{profile}
	if generic := e.registry.Generic(); profile != generic {
		passes = append(passes, generic)
	}

	for _, name := range model.AttributeNames() {
		var a model.Attribute
		var ok bool

		if name == model.AttrMaterial {
			a, ok = e.extractMaterial(text)
		} else {
			a, ok = firstMatch(name, text, passes)
		}

		if ok {
			// Names come from the canonical list, so Set cannot fail here
			_ = attrs.Set(a)
		}
	}

	return Result{Attributes: attrs, Profile: profile.Name()}
}

// firstMatch runs the profile rules, then the generic rules, and keeps the
// first capture that parses cleanly
func firstMatch(name model.AttributeName, text string, passes []profiles.Profile) (model.Attribute, bool) {
	for _, p := range passes {
		for i, rule := range p.Rules(name) {
			heuristic := fmt.Sprintf("%s:%s#%d", p.Name(), name, i)

			if rule.Kind == profiles.KindSum {
				if a, ok := sumAttribute(name, rule, text); ok {
					a.Heuristic = heuristic
					return a, true
				}
				continue
			}

			for _, loc := range rule.Expr.FindAllStringSubmatchIndex(text, -1) {
				var (
					a   model.Attribute
					err error
				)
				switch rule.Kind {
				case profiles.KindText:
					a, err = textAttribute(name, text, loc)
				default:
					a, err = numberAttribute(name, rule, text, loc)
				}
				if err != nil {
					continue
				}
				a.Heuristic = heuristic
				return a, true
			}
		}
	}
	return model.Attribute{}, false
}

func textAttribute(name model.AttributeName, text string, loc []int) (model.Attribute, error) {
	value := strings.TrimSpace(group(text, loc, 1))
	value = strings.TrimRight(value, ",;:")
	if value == "" {
		return model.Attribute{}, fmt.Errorf("empty %s", name)
	}
	return model.Attribute{
		Name:   name,
		Source: model.SourceExtracted,
		Text:   value,
		Raw:    strings.TrimSpace(text[loc[0]:loc[1]]),
	}, nil
}

func numberAttribute(name model.AttributeName, rule profiles.Rule, text string, loc []int) (model.Attribute, error) {
	raw := group(text, loc, 2)
	if raw == "" {
		return model.Attribute{}, fmt.Errorf("no number for %s", name)
	}
	if ambiguous(text[loc[5]:]) {
		return model.Attribute{}, fmt.Errorf("ambiguous value for %s", name)
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return model.Attribute{}, err
	}

	unit := group(text, loc, 1)
	if unit == "" {
		unit = group(text, loc, 3)
	}
	if unit == "" {
		unit = rule.Unit
	}

	value, err = convert(name, value, unit)
	if err != nil {
		return model.Attribute{}, err
	}

	return model.Attribute{
		Name:   name,
		Source: model.SourceExtracted,
		Number: value,
		Raw:    strings.TrimSpace(text[loc[0]:loc[1]]),
	}, nil
}

// sumAttribute totals weight x quantity over every row the rule matches.
// Rows whose numbers do not parse are skipped.
func sumAttribute(name model.AttributeName, rule profiles.Rule, text string) (model.Attribute, bool) {
	var (
		total float64
		rows  int
	)
	for _, m := range rule.Expr.FindAllStringSubmatch(text, -1) {
		weight, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil || weight <= 0 {
			continue
		}
		qty := 1.0
		if m[2] != "" {
			n, err := strconv.Atoi(m[2])
			if err != nil || n <= 0 {
				continue
			}
			qty = float64(n)
		}
		total += weight * qty
		rows++
	}
	if rows == 0 {
		return model.Attribute{}, false
	}
	return model.Attribute{
		Name:   name,
		Source: model.SourceExtracted,
		Number: tidy(total),
		Raw:    fmt.Sprintf("%d bill of materials rows", rows),
	}, true
}

// ambiguousTail matches a second number right after the first ("48/60",
// "48 x 20", "4-6") or a broken thousands group ("1,2,3")
var ambiguousTail = regexp.MustCompile(`(?i)^(?:\s*(?:/|x|×|-|to)\s*\d|[,.]\d)`)

func ambiguous(rest string) bool {
	return ambiguousTail.MatchString(rest)
}

// extractMaterial takes the earliest spec grade or material name in the text
func (e *FieldExtractor) extractMaterial(text string) (model.Attribute, bool) {
	key, raw, ok := e.materials.FindEarliest(text)
	if !ok {
		return model.Attribute{}, false
	}
	return model.Attribute{
		Name:      model.AttrMaterial,
		Source:    model.SourceExtracted,
		Text:      key,
		Raw:       raw,
		Heuristic: "catalog:material",
	}, true
}

// group returns submatch n or "" when it did not participate
func group(text string, loc []int, n int) string {
	if 2*n+1 >= len(loc) || loc[2*n] < 0 {
		return ""
	}
	return text[loc[2*n]:loc[2*n+1]]
}

// normalizeText folds PDF extraction artifacts that break the patterns
func normalizeText(text string) string {
	r := strings.NewReplacer(
		"\r\n", "\n",
		"\r", "\n",
		"\u00a0", " ",
		"\u2013", "-",
		"\u2212", "-",
		"¬≤", "²", // mis-decoded superscript two
		"\u201d", `"`,
	)
	return r.Replace(text)
}
