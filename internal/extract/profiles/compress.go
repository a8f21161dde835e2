package profiles

import (
	"regexp"

	"github.com/ppiankov/vesselcost/internal/model"
)

var compressMarker = regexp.MustCompile(`\bCOMPRESS\b|Codeware`)

// CompressProfile reads reports generated by Codeware COMPRESS.
// Those reports give dimensions in inches and print the unit in parentheses.
type CompressProfile struct {
	rules map[model.AttributeName][]Rule
}

// NewCompressProfile creates the COMPRESS report profile
func NewCompressProfile() *CompressProfile {
	return &CompressProfile{
		rules: map[model.AttributeName][]Rule{
			model.AttrVesselNumber: {
				Text(`(?i)\bVessel\s+No\.?[: \t]+([A-Z0-9][A-Z0-9-]*)`),
				Text(`(?i)\bTag\s+Number[: \t]+([A-Z0-9][A-Z0-9-]*)`),
			},
			model.AttrDiameterIn: {
				Labelled(`(?:inside|inner)\s+diameter`, LengthUnits, "in"),
				Labelled(`(?:outside|outer)\s+diameter`, LengthUnits, "in"),
			},
			model.AttrLengthFt: {
				Labelled(`(?:shell\s+)?length`, LengthUnits, "in"),
			},
			model.AttrWallThicknessIn: {
				Labelled(`nominal\s+thickness|thickness\s+\(nominal\)`, LengthUnits, "in"),
			},
			model.AttrDesignPressurePSI: {
				Labelled(`design\s+\(?internal\)?\s+pressure|internal\s+design\s+pressure`, PressureUnits, "psi"),
			},
			model.AttrDesignTemperatureF: {
				Labelled(`design\s+temperature\s+\(?internal\)?|design\s+temperature`, TempUnits, "F"),
			},
			model.AttrOperatingWeightLb: {
				Labelled(`operating\s+weight`, WeightUnits, "lb"),
				Labelled(`operating`, WeightUnits, "lb"),
			},
			model.AttrSurfaceAreaFt2: {
				Labelled(`surface\s+area`, AreaUnits, "ft2"),
			},
			model.AttrHeadsWeightLb: {
				BOMRow(`H`, `(?:F&D|Ellipsoidal|Hemispherical|Torispherical|Flat)[ \t]+(?:Head|Cover)`),
			},
			model.AttrShellsWeightLb: {
				BOMRow(`S`, `Cylinder|Cylindrical[ \t]+Shell|Shell|Cone`),
			},
		},
	}
}

// Name returns the profile name
func (p *CompressProfile) Name() string {
	return "compress"
}

// Detect looks for the COMPRESS banner on the report
func (p *CompressProfile) Detect(text string) bool {
	return compressMarker.MatchString(text)
}

// Rules returns the COMPRESS-specific rules for an attribute
func (p *CompressProfile) Rules(name model.AttributeName) []Rule {
	return p.rules[name]
}
