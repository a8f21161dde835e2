package validate

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/vesselcost/internal/model"
)

// MaterialCatalog resolves material names and spec grades to rate table keys
type MaterialCatalog struct {
	known   map[string]bool
	aliases map[string]string
	grades  []*gradePattern
}

type gradePattern struct {
	pattern *regexp.Regexp
	key     string
}

// Common spellings that users type instead of the table key
var defaultAliases = map[string]string{
	"cs":              "carbon_steel",
	"carbon":          "carbon_steel",
	"steel":           "carbon_steel",
	"ss304":           "stainless_304",
	"304":             "stainless_304",
	"304l":            "stainless_304",
	"stainless":       "stainless_304",
	"stainless_steel": "stainless_304",
	"ss316":           "stainless_316",
	"316":             "stainless_316",
	"316l":            "stainless_316",
	"cr_mo":           "chrome_moly",
	"chromoly":        "chrome_moly",
	"2205":            "duplex",
	"duplex_2205":     "duplex",
	"aluminium":       "aluminum",
}

// Spec grades as they appear on datasheets; order matters, first match wins
var defaultGrades = []struct {
	expr string
	key  string
}{
	{`(?i)\bS[AB][- ]?240[ -]?(?:(?:TP|Type|Gr\.?|Grade)[ -]?)?316L?\b`, "stainless_316"},
	{`(?i)\bS[AB][- ]?240[ -]?(?:(?:TP|Type|Gr\.?|Grade)[ -]?)?304L?\b`, "stainless_304"},
	{`(?i)\bS[AB][- ]?240[ -]?(?:(?:TP|Type|Gr\.?|Grade)[ -]?)?(?:UNS[ -]?)?(?:2205|S3(?:1803|2205))\b`, "duplex"},
	{`(?i)\bS[AB][- ]?240\b`, "stainless_304"},
	{`(?i)\bS[AB][- ]?387\b`, "chrome_moly"},
	{`(?i)\bS[AB][- ]?(516|515|285|106|105|36)\b`, "carbon_steel"},
	{`(?i)\b(?:UNS[ -]?)?S3(?:1803|2205)\b`, "duplex"},
	{`(?i)\b2205[ -](?:duplex|ss)\b`, "duplex"},
	{`(?i)\bSB[- ]?209\b`, "aluminum"},
	{`(?i)\bstainless(?:[ -]steel)?[ -]?(?:type[ -]?)?316L?\b`, "stainless_316"},
	{`(?i)\bstainless(?:[ -]steel)?\b`, "stainless_304"},
	{`(?i)\bcarbon[ -]steel\b`, "carbon_steel"},
	{`(?i)\bchrome[ -]?moly\b`, "chrome_moly"},
	{`(?i)\bduplex\b`, "duplex"},
	{`(?i)\balumin(?:i)?um\b`, "aluminum"},
}

// NewMaterialCatalog builds a catalog over the materials of a rate table
func NewMaterialCatalog(rates model.RateConfig) *MaterialCatalog {
	materials := rates.Materials
	if materials == nil {
		materials = model.DefaultRates().Materials
	}

	c := &MaterialCatalog{
		known:   make(map[string]bool, len(materials)),
		aliases: make(map[string]string, len(defaultAliases)),
	}
	for key := range materials {
		c.known[model.NormalizeMaterialKey(key)] = true
	}
	for alias, key := range defaultAliases {
		if c.known[key] {
			c.aliases[alias] = key
		}
	}
	for _, g := range defaultGrades {
		if !c.known[g.key] {
			continue
		}
		c.grades = append(c.grades, &gradePattern{pattern: regexp.MustCompile(g.expr), key: g.key})
	}
	return c
}

// Resolve maps a table key, alias or spec grade to a table key
func (c *MaterialCatalog) Resolve(s string) (string, bool) {
	key := model.NormalizeMaterialKey(s)
	if key == "" {
		return "", false
	}
	if c.known[key] {
		return key, true
	}
	if alias, ok := c.aliases[key]; ok {
		return alias, true
	}
	probe := strings.ReplaceAll(s, "_", " ")
	for _, g := range c.grades {
		if g.pattern.MatchString(probe) {
			return g.key, true
		}
	}
	return "", false
}

// FindEarliest scans free text for spec grades and returns the one that
// occurs first, with the matched snippet. Ties go to the more specific grade.
func (c *MaterialCatalog) FindEarliest(text string) (key, raw string, ok bool) {
	best := -1
	for _, g := range c.grades {
		loc := g.pattern.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if best < 0 || loc[0] < best {
			best = loc[0]
			key = g.key
			raw = text[loc[0]:loc[1]]
		}
	}
	return key, raw, best >= 0
}

// Keys returns the table keys, sorted
func (c *MaterialCatalog) Keys() []string {
	keys := make([]string, 0, len(c.known))
	for k := range c.known {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KeysString is Keys joined for error messages
func (c *MaterialCatalog) KeysString() string {
	return strings.Join(c.Keys(), ", ")
}
