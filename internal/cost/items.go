package cost

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/vesselcost/internal/model"
)

var (
	two     = decimal.NewFromInt(2)
	twelve  = decimal.NewFromInt(12)
	quarter = decimal.RequireFromString("0.25")
	sqInch  = decimal.NewFromInt(144) // in² per ft²
)

// materialItems prices the plate and purchased components by weight.
// Head and shell weights from a bill of materials replace the geometric
// estimate. It also returns the total steel weight for the labor and transport rules.
func (e *Engine) materialItems(in inputs) ([]model.CostLineItem, decimal.Decimal) {
	density := decimal.NewFromFloat(in.rate.Density)
	lengthIn := in.length.Mul(twelve)

	// Shell: rolled plate at the mean diameter
	mean := in.diameter.Add(in.thickness)
	shellWeight := pi.Mul(mean).Mul(lengthIn).Mul(in.thickness).Mul(density).Round(1)

	// Heads: two formed heads cut from an oversized circular blank
	blank := in.diameter.Mul(decimal.NewFromFloat(e.rates.HeadBlankFactor))
	headWeight := pi.Mul(blank).Mul(blank).Mul(in.thickness).Mul(density).Mul(quarter).Round(1)
	headsWeight := headWeight.Mul(two)

	w := e.rates.Weights
	nozzleWeight := in.nozzles.Mul(decimal.NewFromFloat(w.Nozzle))
	flangeWeight := in.nozzles.Mul(decimal.NewFromFloat(w.Flange))
	legWeight := in.legs.Mul(decimal.NewFromFloat(w.Leg))
	padWeight := in.nozzles.Mul(decimal.NewFromFloat(w.Pad))

	headsDesc := fmt.Sprintf("2 formed heads, %s in blank x %s in %s", blank, in.thickness, in.material)
	if in.bomHeads != nil {
		headsWeight = *in.bomHeads
		headsDesc = fmt.Sprintf("Heads per bill of materials, %s", in.material)
	}
	shellDesc := fmt.Sprintf("Shell %s in ID x %s ft x %s in %s", in.diameter, in.length, in.thickness, in.material)
	if in.bomShells != nil {
		shellWeight = *in.bomShells
		shellDesc = fmt.Sprintf("Shell courses per bill of materials, %s", in.material)
	}

	items := []model.CostLineItem{
		{
			Name:        "heads",
			Description: headsDesc,
			Unit:        "lb",
			UnitCost:    e.perPound(in, "heads"),
			Quantity:    headsWeight,
		},
		{
			Name:        "shells",
			Description: shellDesc,
			Unit:        "lb",
			UnitCost:    e.perPound(in, "shells"),
			Quantity:    shellWeight,
		},
	}

	counted := []struct {
		name, desc string
		count      decimal.Decimal
		weight     decimal.Decimal
	}{
		{"nozzles", "Nozzle necks", in.nozzles, nozzleWeight},
		{"flanges", "Nozzle flanges", in.nozzles, flangeWeight},
		{"legs", "Support legs", in.legs, legWeight},
		{"plates", "Reinforcing pads", in.nozzles, padWeight},
	}
	for _, c := range counted {
		if !c.count.IsPositive() {
			continue
		}
		items = append(items, model.CostLineItem{
			Name:        c.name,
			Description: fmt.Sprintf("%s, %s pcs", c.desc, c.count),
			Unit:        "lb",
			UnitCost:    e.perPound(in, c.name),
			Quantity:    c.weight,
		})
	}

	if e.rates.ManwayEach > 0 && in.diameter.GreaterThanOrEqual(decimal.NewFromFloat(e.rates.ManwayMinDiameterIn)) {
		items = append(items, model.CostLineItem{
			Name:        "manway",
			Description: "Manway assembly with davit",
			Unit:        "each",
			UnitCost:    decimal.NewFromFloat(e.rates.ManwayEach),
			Quantity:    decimal.NewFromInt(1),
		})
	}

	total := shellWeight.Add(headsWeight).Add(nozzleWeight).Add(flangeWeight).Add(legWeight).Add(padWeight)
	return tag(items, model.CategoryMaterial), total
}

// laborItems prices shop hours by weight and pressure class
func (e *Engine) laborItems(in inputs, weight decimal.Decimal) []model.CostLineItem {
	factor := e.pressureFactor(in.pressure)
	hours := weight.Mul(decimal.NewFromFloat(e.rates.HoursPerPound)).Mul(factor).Round(1)

	items := []model.CostLineItem{
		{
			Name:        "shop_fabrication",
			Description: fmt.Sprintf("Fit-up and welding, %s lb at pressure factor %s", weight, factor),
			Unit:        "hr",
			UnitCost:    decimal.NewFromFloat(e.rates.LaborPerHour),
			Quantity:    hours,
		},
	}

	if in.legs.IsPositive() {
		items = append(items, model.CostLineItem{
			Name:        "leg_fabrication",
			Description: fmt.Sprintf("Fabricate and attach %s support legs", in.legs),
			Unit:        "each",
			UnitCost:    decimal.NewFromFloat(e.rates.LegFabricationEach),
			Quantity:    in.legs,
		})
	}

	return tag(items, model.CategoryLabor)
}

// serviceItems prices finishing, inspection, testing and shipping
func (e *Engine) serviceItems(in inputs, weight decimal.Decimal) []model.CostLineItem {
	outside := in.diameter.Add(in.thickness.Mul(two))
	lengthIn := in.length.Mul(twelve)

	area := e.surfaceArea(in, outside, lengthIn)
	areaDesc := "Blast and coat exterior"
	if in.surfaceArea == nil {
		areaDesc += " (area from geometry)"
	}

	// One longitudinal seam plus two head-to-shell girth seams
	seam := lengthIn.Add(two.Mul(pi).Mul(outside)).Div(twelve).Round(1)

	factor := e.pressureFactor(in.pressure)

	shipWeight := weight
	if in.operatingWeight != nil {
		shipWeight = *in.operatingWeight
	}
	shipments := decimal.NewFromInt(1)
	if e.rates.ShipmentCapacityLb > 0 {
		shipments = decimal.Max(shipments, shipWeight.Div(decimal.NewFromFloat(e.rates.ShipmentCapacityLb)).Ceil())
	}

	items := []model.CostLineItem{
		{
			Name:        "painting",
			Description: areaDesc,
			Unit:        "ft²",
			UnitCost:    decimal.NewFromFloat(e.rates.PaintingPerSqFt),
			Quantity:    area,
		},
		{
			Name:        "radiography",
			Description: "Radiographic examination of weld seams",
			Unit:        "ft",
			UnitCost:    decimal.NewFromFloat(e.rates.RadiographyPerFt),
			Quantity:    seam,
		},
		{
			Name:        "ultrasonic_testing",
			Description: "UT thickness survey, nozzles plus heads",
			Unit:        "test",
			UnitCost:    decimal.NewFromFloat(e.rates.UltrasonicPerTest),
			Quantity:    in.nozzles.Add(two),
		},
		{
			Name:        "hydrostatic_test",
			Description: fmt.Sprintf("Hydrotest, design %s psi at %s °F", in.pressure, in.temperature),
			Unit:        "each",
			UnitCost:    decimal.NewFromFloat(e.rates.HydrotestEach).Mul(factor),
			Quantity:    decimal.NewFromInt(1),
		},
		{
			Name:        "transportation",
			Description: fmt.Sprintf("Freight for %s lb", shipWeight),
			Unit:        "shipment",
			UnitCost:    decimal.NewFromFloat(e.rates.TransportPerShipment),
			Quantity:    shipments,
		},
	}

	return tag(items, model.CategoryService)
}

// surfaceArea uses the extracted value or approximates shell plus two heads
func (e *Engine) surfaceArea(in inputs, outside, lengthIn decimal.Decimal) decimal.Decimal {
	if in.surfaceArea != nil {
		return *in.surfaceArea
	}
	shell := pi.Mul(outside).Mul(lengthIn)
	heads := two.Mul(decimal.NewFromFloat(e.rates.HeadAreaFactor)).Mul(pi).Mul(quarter).Mul(outside).Mul(outside)
	return shell.Add(heads).Div(sqInch).Round(1)
}

// overheadItems expresses overhead and contingency as base x rate
func (e *Engine) overheadItems(items []model.CostLineItem, confidence model.Confidence) []model.CostLineItem {
	base := model.OverheadBase(items)

	out := []model.CostLineItem{
		{
			Name:        "overhead",
			Description: "Shop overhead and administration",
			Unit:        "rate",
			UnitCost:    base,
			Quantity:    decimal.NewFromFloat(e.rates.OverheadRate),
		},
	}

	if rate, ok := e.rates.Contingency[string(confidence)]; ok && rate > 0 {
		out = append(out, model.CostLineItem{
			Name:        "contingency",
			Description: fmt.Sprintf("Contingency for %s confidence estimate", confidence),
			Unit:        "rate",
			UnitCost:    base,
			Quantity:    decimal.NewFromFloat(rate),
		})
	}

	return tag(out, model.CategoryOverhead)
}

func tag(items []model.CostLineItem, c model.Category) []model.CostLineItem {
	for i := range items {
		items[i].Category = c
		items[i].Source = model.LineSourceRule
	}
	return items
}
