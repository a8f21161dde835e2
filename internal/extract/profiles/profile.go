package profiles

import (
	"regexp"

	"github.com/ppiankov/vesselcost/internal/model"
)

// Kind says how a rule's capture is interpreted
type Kind int

const (
	KindNumber Kind = iota
	KindText
	// KindSum adds weight x quantity over every matching row
	KindSum
)

// Rule is one ordered extraction pattern.
// Number rules built with Labelled capture: 1 = unit in parentheses after the
// label, 2 = the number, 3 = unit suffix. Text rules capture the value in 1.
type Rule struct {
	Expr *regexp.Regexp
	Kind Kind
	Unit string // assumed unit when the document gives none
}

// Profile defines patterns for one document layout
type Profile interface {
	// Name returns the profile name used in heuristic tags
	Name() string

	// Detect reports whether the text looks like this layout
	Detect(text string) bool

	// Rules returns the ordered rules for one attribute (may be empty)
	Rules(name model.AttributeName) []Rule
}

// Unit alternations, longest first so "mm" wins over "m"
const (
	LengthUnits   = `inches|inch|in|feet|ft|mm|cm|m|"|'`
	PressureUnits = `psig|psia|psi|kpa|mpa|bar`
	TempUnits     = `°\s*F|°\s*C|deg\s*F|deg\s*C|F|C`
	WeightUnits   = `lbs|lb|kg`
	AreaUnits     = `ft²|ft2|sq\.?\s*ft|m²|m2|sq\.?\s*m`
)

const number = `([-+]?\d{1,3}(?:,\d{3})+(?:\.\d+)?|[-+]?\d+(?:\.\d+)?|[-+]?\.\d+)`

// Labelled builds a number rule: label, optional "(unit)", separator, number,
// optional unit suffix. A one- or two-letter symbol ("P =") may precede the number.
func Labelled(label, units, defaultUnit string) Rule {
	unitGroup := `(` + units + `)`
	if units == "" {
		unitGroup = `()`
	}
	expr := `(?i)\b(?:` + label + `)` +
		`\s*(?:\(\s*` + unitGroup + `\s*\))?` +
		`\s*(?:[:=,]\s*)?(?:[A-Za-z]{1,2}\s*=\s*)?` +
		number +
		`(?:[ \t]*` + unitGroup + `(?:[^A-Za-z0-9]|$))?`
	return Rule{Expr: regexp.MustCompile(expr), Kind: KindNumber, Unit: defaultUnit}
}

// Text builds a text rule; expr must capture the value in group 1
func Text(expr string) Rule {
	return Rule{Expr: regexp.MustCompile(expr), Kind: KindText}
}

// BOMRow builds a sum rule for bill-of-materials rows of one component:
// item mark, description, material, thickness, diameter, weight, quantity
func BOMRow(mark, description string) Rule {
	expr := `(?m)^[ \t]*` + mark + `\d+[ \t]+(?:` + description + `)[ \t]+` +
		`[A-Za-z0-9 .-]+?[ \t]+\d*\.?\d+[ \t]*(?:\(min\.\))?[ \t]+` +
		`\d+(?:\.\d+)?[ \t]+[OI]D[ \t]+` +
		`(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)(?:[ \t]+(\d+))?[ \t]*$`
	return Rule{Expr: regexp.MustCompile(expr), Kind: KindSum, Unit: "lb"}
}

// Registry manages document profiles
type Registry struct {
	profiles []Profile
	generic  Profile
}

// NewRegistry creates a registry with the built-in profiles
func NewRegistry() *Registry {
	registry := &Registry{
		profiles: make([]Profile, 0),
	}

	registry.Register(NewCompressProfile())

	// Generic profile is the fallback and the second pass for every profile
	registry.generic = NewGenericProfile()

	return registry
}

// Register adds a profile; earlier registrations are tried first
func (r *Registry) Register(p Profile) {
	r.profiles = append(r.profiles, p)
}

// Find returns the first profile that recognizes the text, or the generic one
func (r *Registry) Find(text string) Profile {
	for _, p := range r.profiles {
		if p.Detect(text) {
			return p
		}
	}
	return r.generic
}

// Generic returns the fallback profile
func (r *Registry) Generic() Profile {
	return r.generic
}
