package extract

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/vesselcost/internal/model"
)

// canonicalUnit folds spelling variants ("inches", `"`, "°F", "sq ft") into one key
func canonicalUnit(u string) string {
	u = strings.ToLower(strings.Join(strings.Fields(u), ""))
	u = strings.TrimPrefix(u, "°")
	u = strings.TrimPrefix(u, "deg")
	switch u {
	case "in", "inch", "inches", `"`:
		return "in"
	case "ft", "feet", "'":
		return "ft"
	case "psi", "psig", "psia":
		return "psi"
	case "lb", "lbs":
		return "lb"
	case "ft²", "ft2", "sqft", "sq.ft":
		return "ft2"
	case "m²", "m2", "sqm", "sq.m":
		return "m2"
	}
	return u
}

var (
	toInches = map[string]float64{"in": 1, "ft": 12, "mm": 1 / 25.4, "cm": 1 / 2.54, "m": 1 / 0.0254}
	toPSI    = map[string]float64{"psi": 1, "bar": 14.5037738, "kpa": 0.145037738, "mpa": 145.037738}
	toPounds = map[string]float64{"lb": 1, "kg": 2.20462262}
	toSqFt   = map[string]float64{"ft2": 1, "m2": 10.7639104}
)

// convert normalizes a value to the unit the attribute is stored in
func convert(name model.AttributeName, value float64, unit string) (float64, error) {
	unit = canonicalUnit(unit)

	scale := func(table map[string]float64) (float64, error) {
		f, ok := table[unit]
		if !ok {
			return 0, fmt.Errorf("unit %q not valid for %s", unit, name)
		}
		return tidy(value * f), nil
	}

	switch name {
	case model.AttrDiameterIn, model.AttrWallThicknessIn:
		return scale(toInches)
	case model.AttrLengthFt:
		v, err := scale(toInches)
		return tidy(v / 12), err
	case model.AttrDesignPressurePSI:
		return scale(toPSI)
	case model.AttrOperatingWeightLb:
		return scale(toPounds)
	case model.AttrSurfaceAreaFt2:
		return scale(toSqFt)
	case model.AttrDesignTemperatureF:
		switch unit {
		case "f", "":
			return value, nil
		case "c":
			return tidy(value*9/5 + 32), nil
		}
		return 0, fmt.Errorf("unit %q not valid for %s", unit, name)
	case model.AttrNozzleCount, model.AttrLegCount:
		if value != math.Trunc(value) {
			return 0, fmt.Errorf("%s must be a whole number", name)
		}
		return value, nil
	}
	return value, nil
}

// tidy drops float noise from unit conversion (1219.2 mm is 48 in, not 47.99999)
func tidy(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
