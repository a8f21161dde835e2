package profiles

import (
	"github.com/ppiankov/vesselcost/internal/model"
)

// GenericProfile matches labelled values in any datasheet or quote request
type GenericProfile struct {
	rules map[model.AttributeName][]Rule
}

// NewGenericProfile creates the fallback profile
func NewGenericProfile() *GenericProfile {
	return &GenericProfile{
		rules: map[model.AttributeName][]Rule{
			model.AttrVesselNumber: {
				Text(`(?i)\bVessel\s+No\.?[: \t]+([A-Z0-9][A-Z0-9-]*)`),
				Text(`(?i)\bTag\s+(?:Number|No\.?)[: \t]+([A-Z0-9][A-Z0-9-]*)`),
				Text(`\b(V-\d+[A-Z]?)\b`),
				Text(`(?i)\bVessel\s*#\s*([A-Z0-9][A-Z0-9-]*)`),
			},
			model.AttrCustomer: {
				Text(`(?im)\bCustomer[: \t]+([A-Za-z][A-Za-z &,.'-]*?)[ \t]*(?:Contract|Designer|$)`),
				Text(`(?im)\bPurchaser[: \t]+([A-Za-z][A-Za-z &,.'-]*?)[ \t]*(?:Contract|Designer|$)`),
				Text(`(?im)\bClient[: \t]+([A-Za-z][A-Za-z &,.'-]*?)[ \t]*$`),
			},
			model.AttrDiameterIn: {
				Labelled(`(?:inside|inner|shell)\s+diameter`, LengthUnits, "in"),
				Labelled(`diameter|dia\.`, LengthUnits, "in"),
				Labelled(`I\.D\.`, LengthUnits, "in"),
			},
			model.AttrLengthFt: {
				Labelled(`(?:tangent[- ]to[- ]tangent|seam[- ]to[- ]seam)\s+length|T/T`, LengthUnits, "ft"),
				Labelled(`(?:shell|overall|vessel)\s+length`, LengthUnits, "ft"),
				Labelled(`length`, LengthUnits, "ft"),
			},
			model.AttrWallThicknessIn: {
				Labelled(`(?:wall|shell|nominal)\s+thickness`, LengthUnits, "in"),
				Labelled(`thickness|thk\.?`, LengthUnits, "in"),
			},
			model.AttrDesignPressurePSI: {
				Labelled(`design\s+(?:internal\s+)?pressure|internal\s+design\s+pressure`, PressureUnits, "psi"),
				Labelled(`MAWP`, PressureUnits, "psi"),
			},
			model.AttrDesignTemperatureF: {
				Labelled(`design\s+temperature|design\s+temp\.?`, TempUnits, "F"),
			},
			model.AttrNozzleCount: {
				Labelled(`(?:number|no\.?)\s+of\s+nozzles`, "", ""),
				Labelled(`nozzles?`, "", ""),
			},
			model.AttrLegCount: {
				Labelled(`(?:number|no\.?)\s+of\s+(?:support\s+)?legs`, "", ""),
				Labelled(`(?:support\s+)?legs`, "", ""),
			},
			model.AttrOperatingWeightLb: {
				Labelled(`operating\s+weight`, WeightUnits, "lb"),
			},
			model.AttrSurfaceAreaFt2: {
				Labelled(`(?:exterior\s+|painted\s+)?surface\s+area`, AreaUnits, "ft2"),
			},
		},
	}
}

// Name returns the profile name
func (p *GenericProfile) Name() string {
	return "generic"
}

// Detect always returns true (fallback profile)
func (p *GenericProfile) Detect(text string) bool {
	return true
}

// Rules returns the generic rules for an attribute
func (p *GenericProfile) Rules(name model.AttributeName) []Rule {
	return p.rules[name]
}
