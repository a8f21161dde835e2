package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// AttributeName identifies one of the recognized vessel attributes
type AttributeName string

const (
	AttrVesselNumber       AttributeName = "vessel_number"
	AttrCustomer           AttributeName = "customer"
	AttrMaterial           AttributeName = "material"
	AttrDiameterIn         AttributeName = "diameter_in"
	AttrLengthFt           AttributeName = "length_ft"
	AttrWallThicknessIn    AttributeName = "wall_thickness_in"
	AttrDesignPressurePSI  AttributeName = "design_pressure_psi"
	AttrDesignTemperatureF AttributeName = "design_temperature_f"
	AttrNozzleCount        AttributeName = "nozzle_count"
	AttrLegCount           AttributeName = "leg_count"
	AttrOperatingWeightLb  AttributeName = "operating_weight_lb"
	AttrSurfaceAreaFt2     AttributeName = "surface_area_ft2"
	AttrHeadsWeightLb      AttributeName = "heads_weight_lb"
	AttrShellsWeightLb     AttributeName = "shells_weight_lb"
)

// attributeOrder is the canonical order used for maps, reports and spreadsheets
var attributeOrder = []AttributeName{
	AttrVesselNumber,
	AttrCustomer,
	AttrMaterial,
	AttrDiameterIn,
	AttrLengthFt,
	AttrWallThicknessIn,
	AttrDesignPressurePSI,
	AttrDesignTemperatureF,
	AttrNozzleCount,
	AttrLegCount,
	AttrOperatingWeightLb,
	AttrSurfaceAreaFt2,
	AttrHeadsWeightLb,
	AttrShellsWeightLb,
}

var attributeLabels = map[AttributeName]string{
	AttrVesselNumber:       "Vessel Number",
	AttrCustomer:           "Customer",
	AttrMaterial:           "Material",
	AttrDiameterIn:         "Diameter (in)",
	AttrLengthFt:           "Length (ft)",
	AttrWallThicknessIn:    "Wall Thickness (in)",
	AttrDesignPressurePSI:  "Design Pressure (psi)",
	AttrDesignTemperatureF: "Design Temperature (°F)",
	AttrNozzleCount:        "Nozzles",
	AttrLegCount:           "Support Legs",
	AttrOperatingWeightLb:  "Operating Weight (lb)",
	AttrSurfaceAreaFt2:     "Surface Area (ft²)",
	AttrHeadsWeightLb:      "Heads BOM Weight (lb)",
	AttrShellsWeightLb:     "Shells BOM Weight (lb)",
}

// AttributeNames returns every recognized attribute in canonical order
func AttributeNames() []AttributeName {
	names := make([]AttributeName, len(attributeOrder))
	copy(names, attributeOrder)
	return names
}

// ParseAttributeName resolves a user-supplied name ("diameter_in", "Diameter-In")
func ParseAttributeName(s string) (AttributeName, bool) {
	name := AttributeName(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	return name, name.Known()
}

// Known reports whether the name belongs to the recognized set
func (n AttributeName) Known() bool {
	_, ok := attributeLabels[n]
	return ok
}

// Numeric reports whether the attribute carries a number rather than text
func (n AttributeName) Numeric() bool {
	switch n {
	case AttrVesselNumber, AttrCustomer, AttrMaterial:
		return false
	default:
		return n.Known()
	}
}

// Label returns the human-readable label used in reports
func (n AttributeName) Label() string {
	if label, ok := attributeLabels[n]; ok {
		return label
	}
	return string(n)
}

// Source tags where an attribute value came from
type Source string

const (
	SourceExtracted    Source = "extracted"
	SourceUserOverride Source = "user_override"
	SourceMissing      Source = "missing"
)

// Attribute is a single vessel parameter: either present with a value or missing.
// The zero value of Number/Text is meaningless when Source is SourceMissing.
type Attribute struct {
	Name      AttributeName `json:"name"`
	Source    Source        `json:"source"`
	Number    float64       `json:"number,omitempty"`
	Text      string        `json:"text,omitempty"`
	Raw       string        `json:"raw,omitempty"`       // Matched snippet or override input
	Heuristic string        `json:"heuristic,omitempty"` // Which extraction rule matched (e.g., "generic:design_pressure#0")
}

// Missing returns the missing variant for name
func Missing(name AttributeName) Attribute {
	return Attribute{Name: name, Source: SourceMissing}
}

// Present reports whether the attribute holds a value
func (a Attribute) Present() bool {
	return a.Source == SourceExtracted || a.Source == SourceUserOverride
}

// Float returns the numeric value when present
func (a Attribute) Float() (float64, bool) {
	if !a.Present() || !a.Name.Numeric() {
		return 0, false
	}
	return a.Number, true
}

// Str returns the text value when present
func (a Attribute) Str() (string, bool) {
	if !a.Present() || a.Name.Numeric() {
		return "", false
	}
	return a.Text, true
}

// Display formats the value for reports ("N/A" when missing)
func (a Attribute) Display() string {
	if !a.Present() {
		return "N/A"
	}
	if a.Name.Numeric() {
		return strconv.FormatFloat(a.Number, 'f', -1, 64)
	}
	return a.Text
}

// AttributeMap holds every recognized attribute for one document.
// It is mutable through Set/Override until Freeze is called.
type AttributeMap struct {
	attrs   map[AttributeName]Attribute
	ignored map[string]string
	frozen  bool
}

// NewAttributeMap returns a map where every recognized attribute is missing
func NewAttributeMap() *AttributeMap {
	m := &AttributeMap{
		attrs:   make(map[AttributeName]Attribute, len(attributeOrder)),
		ignored: make(map[string]string),
	}
	for _, name := range attributeOrder {
		m.attrs[name] = Missing(name)
	}
	return m
}

// Get returns the attribute for name (missing for unknown names)
func (m *AttributeMap) Get(name AttributeName) Attribute {
	if a, ok := m.attrs[name]; ok {
		return a
	}
	return Missing(name)
}

// Attributes returns all attributes in canonical order
func (m *AttributeMap) Attributes() []Attribute {
	out := make([]Attribute, 0, len(attributeOrder))
	for _, name := range attributeOrder {
		out = append(out, m.attrs[name])
	}
	return out
}

// PresentCount returns how many of names hold a value
func (m *AttributeMap) PresentCount(names ...AttributeName) int {
	n := 0
	for _, name := range names {
		if m.Get(name).Present() {
			n++
		}
	}
	return n
}

// Set stores an attribute as-is; used by the extractor
func (m *AttributeMap) Set(a Attribute) error {
	if m.frozen {
		return ErrFrozen
	}
	if !a.Name.Known() {
		m.ignored[string(a.Name)] = a.Raw
		return fmt.Errorf("%w: %s", ErrUnknownAttribute, a.Name)
	}
	m.attrs[a.Name] = a
	return nil
}

// Override parses raw according to the attribute kind and stores it as a user override.
// Unknown names are recorded in the ignored list and reported to the caller.
func (m *AttributeMap) Override(name string, raw string) error {
	if m.frozen {
		return ErrFrozen
	}

	attrName, ok := ParseAttributeName(name)
	if !ok {
		m.ignored[name] = raw
		return fmt.Errorf("%w: %s", ErrUnknownAttribute, name)
	}

	raw = strings.TrimSpace(raw)
	a := Attribute{Name: attrName, Source: SourceUserOverride, Raw: raw, Heuristic: "override"}

	if attrName.Numeric() {
		v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil {
			return fmt.Errorf("override %s: %q is not a number", attrName, raw)
		}
		a.Number = v
	} else {
		if raw == "" {
			return fmt.Errorf("override %s: empty value", attrName)
		}
		a.Text = raw
		if attrName == AttrMaterial {
			a.Text = NormalizeMaterialKey(raw)
		}
	}

	m.attrs[attrName] = a
	return nil
}

// Ignored returns the unknown attribute names that were offered, sorted
func (m *AttributeMap) Ignored() []string {
	names := make([]string, 0, len(m.ignored))
	for name := range m.ignored {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Freeze makes the map immutable; it returns the receiver for chaining
func (m *AttributeMap) Freeze() *AttributeMap {
	m.frozen = true
	return m
}

// Frozen reports whether the map can still be modified
func (m *AttributeMap) Frozen() bool {
	return m.frozen
}

// Clone returns a mutable deep copy, used to re-run costing with new overrides
func (m *AttributeMap) Clone() *AttributeMap {
	c := &AttributeMap{
		attrs:   make(map[AttributeName]Attribute, len(m.attrs)),
		ignored: make(map[string]string, len(m.ignored)),
	}
	for k, v := range m.attrs {
		c.attrs[k] = v
	}
	for k, v := range m.ignored {
		c.ignored[k] = v
	}
	return c
}

// MarshalJSON encodes the map as an ordered list
func (m *AttributeMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Attributes())
}

// NormalizeMaterialKey turns user input ("Stainless 316", "carbon-steel") into a table key
func NormalizeMaterialKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return s
}
