package cost

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/vesselcost/internal/model"
	"github.com/ppiankov/vesselcost/internal/validate"
)

// pi to the precision the multiplier sheets were calibrated with
var pi = decimal.RequireFromString("3.14159265358979")

// costDrivers are the attributes that decide confidence
var costDrivers = []model.AttributeName{
	model.AttrMaterial,
	model.AttrDiameterIn,
	model.AttrLengthFt,
	model.AttrWallThicknessIn,
	model.AttrDesignPressurePSI,
}

// Engine turns an attribute map into a rule-based cost breakdown
type Engine struct {
	rates     model.RateConfig
	fallbacks model.FallbackConfig
	validator *validate.Validator
}

// NewEngine creates an engine from configuration
func NewEngine(cfg *model.Config) *Engine {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	rates := cfg.Rates
	if rates.PerPound == nil || rates.Materials == nil {
		rates = model.DefaultRates()
	}
	return &Engine{
		rates:     rates,
		fallbacks: cfg.Fallbacks,
		validator: validate.NewValidator(cfg.Validation, rates),
	}
}

// Materials returns the catalog the engine validates materials against
func (e *Engine) Materials() *validate.MaterialCatalog {
	return e.validator.Materials()
}

// inputs are the resolved values the item rules work from
type inputs struct {
	material string
	rate     model.MaterialRate

	diameter    decimal.Decimal // in
	length      decimal.Decimal // ft
	thickness   decimal.Decimal // in
	pressure    decimal.Decimal // psi
	temperature decimal.Decimal // °F
	nozzles     decimal.Decimal
	legs        decimal.Decimal

	operatingWeight *decimal.Decimal // lb, nil when not given
	surfaceArea     *decimal.Decimal // ft², nil when not given
	bomHeads        *decimal.Decimal // lb from the bill of materials
	bomShells       *decimal.Decimal // lb from the bill of materials

	defaulted []model.AttributeName
}

// Compute validates attrs, fills missing values from the fallback table and
// builds the breakdown. It performs no I/O and returns the same breakdown for
// the same map and configuration.
func (e *Engine) Compute(attrs *model.AttributeMap) (*model.CostBreakdown, error) {
	if attrs == nil {
		attrs = model.NewAttributeMap()
	}

	if err := e.validator.Validate(attrs); err != nil {
		return nil, err
	}

	in, err := e.resolve(attrs)
	if err != nil {
		return nil, err
	}

	confidence := determineConfidence(attrs.PresentCount(costDrivers...))

	// 1. Material (weights drive labor and transport)
	items, weight := e.materialItems(in)

	// 2. Labor
	items = append(items, e.laborItems(in, weight)...)

	// 3. Services
	items = append(items, e.serviceItems(in, weight)...)

	// 4. Overhead on everything above
	items = append(items, e.overheadItems(items, confidence)...)

	return model.NewCostBreakdown(items, model.BreakdownParams{
		Confidence: confidence,
		Defaulted:  in.defaulted,
		Currency:   e.rates.Currency,
	}), nil
}

// resolve reads each attribute or its fallback, in canonical order
func (e *Engine) resolve(attrs *model.AttributeMap) (inputs, error) {
	var in inputs

	material, ok := attrs.Get(model.AttrMaterial).Str()
	if !ok {
		material = e.fallbacks.Material
		in.defaulted = append(in.defaulted, model.AttrMaterial)
	}
	key, ok := e.validator.Materials().Resolve(material)
	if !ok {
		// Only reachable through a bad fallback table
		return in, fmt.Errorf("fallback material %q is not in the rate table", material)
	}
	in.material = key
	in.rate = e.rates.Materials[key]

	number := func(name model.AttributeName, fallback float64) decimal.Decimal {
		if v, ok := attrs.Get(name).Float(); ok {
			return decimal.NewFromFloat(v)
		}
		in.defaulted = append(in.defaulted, name)
		return decimal.NewFromFloat(fallback)
	}

	in.diameter = number(model.AttrDiameterIn, e.fallbacks.DiameterIn)
	in.length = number(model.AttrLengthFt, e.fallbacks.LengthFt)
	in.thickness = number(model.AttrWallThicknessIn, e.fallbacks.WallThicknessIn)
	in.pressure = number(model.AttrDesignPressurePSI, e.fallbacks.DesignPressurePSI)
	in.temperature = number(model.AttrDesignTemperatureF, e.fallbacks.DesignTemperatureF)
	in.nozzles = number(model.AttrNozzleCount, e.fallbacks.NozzleCount)
	in.legs = number(model.AttrLegCount, e.fallbacks.LegCount)

	if v, ok := attrs.Get(model.AttrOperatingWeightLb).Float(); ok {
		w := decimal.NewFromFloat(v)
		in.operatingWeight = &w
	}
	if v, ok := attrs.Get(model.AttrSurfaceAreaFt2).Float(); ok {
		a := decimal.NewFromFloat(v)
		in.surfaceArea = &a
	}

	if v, ok := attrs.Get(model.AttrHeadsWeightLb).Float(); ok {
		w := decimal.NewFromFloat(v)
		in.bomHeads = &w
	}
	if v, ok := attrs.Get(model.AttrShellsWeightLb).Float(); ok {
		w := decimal.NewFromFloat(v)
		in.bomShells = &w
	}

	// A defaulted thickness can still collide with a small diameter and the
	// other way round; blame whichever one the document or user supplied
	if in.thickness.Mul(decimal.NewFromInt(2)).GreaterThanOrEqual(in.diameter) {
		if d := attrs.Get(model.AttrDiameterIn); d.Present() {
			return in, model.NewInvalidAttribute(d,
				fmt.Sprintf("diameter must exceed twice the wall thickness (%s in)", in.thickness))
		}
		if t := attrs.Get(model.AttrWallThicknessIn); t.Present() {
			return in, model.NewInvalidAttribute(t,
				fmt.Sprintf("wall thickness must be less than half the diameter (%s in)", in.diameter))
		}
		return in, fmt.Errorf("fallback wall thickness %s in does not fit fallback diameter %s in", in.thickness, in.diameter)
	}

	return in, nil
}

// determineConfidence maps the number of present cost drivers to a level
func determineConfidence(present int) model.Confidence {
	switch {
	case present >= len(costDrivers):
		return model.ConfidenceHigh
	case present >= 3:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// pressureFactor returns the factor of the first class whose ceiling covers psi
func (e *Engine) pressureFactor(psi decimal.Decimal) decimal.Decimal {
	for _, class := range e.rates.PressureClasses {
		if class.MaxPSI <= 0 || psi.LessThanOrEqual(decimal.NewFromFloat(class.MaxPSI)) {
			return decimal.NewFromFloat(class.Factor)
		}
	}
	return decimal.NewFromInt(1)
}

// perPound is the $/lb for a component, scaled by the material factor
func (e *Engine) perPound(in inputs, component string) decimal.Decimal {
	return decimal.NewFromFloat(e.rates.PerPound[component]).Mul(decimal.NewFromFloat(in.rate.Factor))
}
