package cost

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/ppiankov/vesselcost/internal/model"
)

func attrsWith(t *testing.T, kv map[string]string) *model.AttributeMap {
	t.Helper()
	m := model.NewAttributeMap()
	for k, v := range kv {
		if err := m.Override(k, v); err != nil {
			t.Fatalf("Override(%s, %s): %v", k, v, err)
		}
	}
	return m.Freeze()
}

func fixtureAttrs(t *testing.T) *model.AttributeMap {
	return attrsWith(t, map[string]string{
		"material":            "carbon_steel",
		"diameter_in":         "48",
		"length_ft":           "20",
		"design_pressure_psi": "150",
	})
}

func TestEngine_Fixture(t *testing.T) {
	b, err := NewEngine(model.DefaultConfig()).Compute(fixtureAttrs(t))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if diff := cmp.Diff(model.Categories(), b.CategoriesPresent()); diff != "" {
		t.Errorf("Categories mismatch (-want +got):\n%s", diff)
	}

	if got := b.Total().StringFixed(2); got != "103719.57" {
		t.Errorf("Expected total 103719.57, got %s", got)
	}

	if b.Confidence() != model.ConfidenceMedium {
		t.Errorf("Expected medium confidence with 4 of 5 drivers, got %s", b.Confidence())
	}

	wantDefaulted := []model.AttributeName{
		model.AttrWallThicknessIn,
		model.AttrDesignTemperatureF,
		model.AttrNozzleCount,
		model.AttrLegCount,
	}
	if diff := cmp.Diff(wantDefaulted, b.Defaulted()); diff != "" {
		t.Errorf("Defaulted mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_FixtureLineItems(t *testing.T) {
	b, err := NewEngine(model.DefaultConfig()).Compute(fixtureAttrs(t))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	want := []struct {
		name     string
		category model.Category
		subtotal string
	}{
		{"heads", model.CategoryMaterial, "4987.80"},
		{"shells", model.CategoryMaterial, "50427.00"},
		{"nozzles", model.CategoryMaterial, "1120.00"},
		{"flanges", model.CategoryMaterial, "1120.00"},
		{"legs", model.CategoryMaterial, "1500.00"},
		{"plates", model.CategoryMaterial, "288.00"},
		{"manway", model.CategoryMaterial, "1200.00"},
		{"shop_fabrication", model.CategoryLabor, "9652.00"},
		{"leg_fabrication", model.CategoryLabor, "6000.00"},
		{"painting", model.CategoryService, "3402.00"},
		{"radiography", model.CategoryService, "3412.50"},
		{"ultrasonic_testing", model.CategoryService, "900.00"},
		{"hydrostatic_test", model.CategoryService, "650.00"},
		{"transportation", model.CategoryService, "2500.00"},
		{"overhead", model.CategoryOverhead, "10459.12"},
		{"contingency", model.CategoryOverhead, "6101.15"},
	}

	items := b.Items()
	if len(items) != len(want) {
		t.Fatalf("Expected %d items, got %d", len(want), len(items))
	}
	for i, w := range want {
		li := items[i]
		if li.Name != w.name || li.Category != w.category {
			t.Errorf("Item %d: expected %s/%s, got %s/%s", i, w.category, w.name, li.Category, li.Name)
		}
		if got := li.Subtotal().StringFixed(2); got != w.subtotal {
			t.Errorf("Item %s: expected subtotal %s, got %s", w.name, w.subtotal, got)
		}
		if li.Source != model.LineSourceRule {
			t.Errorf("Item %s: expected rule source, got %s", w.name, li.Source)
		}
	}
}

func TestEngine_TotalIsSumOfSubtotals(t *testing.T) {
	engine := NewEngine(model.DefaultConfig())

	cases := []map[string]string{
		{},
		{"material": "stainless_316", "diameter_in": "36", "length_ft": "8", "wall_thickness_in": "0.25", "design_pressure_psi": "450"},
		{"diameter_in": "120", "length_ft": "60", "wall_thickness_in": "1.5", "design_pressure_psi": "2500", "nozzle_count": "12", "leg_count": "0"},
		{"material": "aluminum", "surface_area_ft2": "400", "operating_weight_lb": "95000"},
	}

	for _, kv := range cases {
		b, err := engine.Compute(attrsWith(t, kv))
		if err != nil {
			t.Fatalf("Compute(%v) failed: %v", kv, err)
		}
		sum := decimal.Zero
		for _, li := range b.Items() {
			sum = sum.Add(li.Subtotal())
		}
		if !sum.Equal(b.Total()) {
			t.Errorf("Compute(%v): total %s != sum %s", kv, b.Total(), sum)
		}
	}
}

func TestEngine_AllMissingUsesFallbacks(t *testing.T) {
	b, err := NewEngine(model.DefaultConfig()).Compute(model.NewAttributeMap().Freeze())
	if err != nil {
		t.Fatalf("Expected no error for all-missing attributes, got %v", err)
	}

	if b.Confidence() != model.ConfidenceLow || !b.LowConfidence() {
		t.Errorf("Expected low confidence, got %s", b.Confidence())
	}

	if len(b.Defaulted()) != 8 {
		t.Errorf("Expected 8 defaulted attributes, got %v", b.Defaulted())
	}

	if !b.Total().IsPositive() {
		t.Errorf("Expected a positive fallback total, got %s", b.Total())
	}
}

func TestEngine_NegativePressureIsInvalid(t *testing.T) {
	m := attrsWith(t, map[string]string{"design_pressure_psi": "-10"})

	b, err := NewEngine(model.DefaultConfig()).Compute(m)
	if b != nil {
		t.Error("Expected no breakdown for invalid input")
	}
	if !errors.Is(err, model.ErrInvalidAttribute) {
		t.Fatalf("Expected ErrInvalidAttribute, got %v", err)
	}

	var invalid *model.InvalidAttributeError
	if !errors.As(err, &invalid) || invalid.Name != model.AttrDesignPressurePSI {
		t.Errorf("Expected design_pressure_psi to be named, got %v", err)
	}
}

func TestEngine_FallbackThicknessVersusTinyDiameter(t *testing.T) {
	m := attrsWith(t, map[string]string{"diameter_in": "0.5"})

	_, err := NewEngine(model.DefaultConfig()).Compute(m)
	if !errors.Is(err, model.ErrInvalidAttribute) {
		t.Fatalf("Expected ErrInvalidAttribute, got %v", err)
	}

	var invalid *model.InvalidAttributeError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected *InvalidAttributeError, got %T", err)
	}
	if invalid.Name != model.AttrDiameterIn || invalid.Source != model.SourceUserOverride || invalid.Value != "0.5" {
		t.Errorf("Expected the overridden diameter to be named, got %+v", invalid)
	}
}

func TestEngine_ThicknessVersusFallbackDiameter(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Fallbacks.DiameterIn = 6
	m := attrsWith(t, map[string]string{"wall_thickness_in": "4"})

	_, err := NewEngine(cfg).Compute(m)

	var invalid *model.InvalidAttributeError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected *InvalidAttributeError, got %v", err)
	}
	if invalid.Name != model.AttrWallThicknessIn || invalid.Source != model.SourceUserOverride || invalid.Value != "4" {
		t.Errorf("Expected the overridden wall thickness to be named, got %+v", invalid)
	}
}

func TestEngine_BillOfMaterialsWeights(t *testing.T) {
	engine := NewEngine(model.DefaultConfig())

	geometric, err := engine.Compute(fixtureAttrs(t))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	m := attrsWith(t, map[string]string{
		"material":            "carbon_steel",
		"diameter_in":         "48",
		"length_ft":           "20",
		"design_pressure_psi": "150",
		"heads_weight_lb":     "3111",
		"shells_weight_lb":    "7230",
	})
	b, err := engine.Compute(m)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	quantities := map[string]string{}
	for _, li := range b.Items() {
		if li.Name == "heads" || li.Name == "shells" {
			quantities[li.Name] = li.Quantity.String()
			if !strings.Contains(li.Description, "bill of materials") {
				t.Errorf("Expected %s to be described as from the bill of materials, got %q", li.Name, li.Description)
			}
		}
	}
	if diff := cmp.Diff(map[string]string{"heads": "3111", "shells": "7230"}, quantities); diff != "" {
		t.Errorf("BOM quantities mismatch (-want +got):\n%s", diff)
	}

	if b.Total().Equal(geometric.Total()) {
		t.Error("Expected BOM weights to change the total")
	}
}

func TestEngine_Deterministic(t *testing.T) {
	engine := NewEngine(model.DefaultConfig())

	var outputs []string
	for i := 0; i < 5; i++ {
		b, err := engine.Compute(fixtureAttrs(t))
		if err != nil {
			t.Fatalf("Compute failed: %v", err)
		}
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		outputs = append(outputs, string(data))
	}

	for i := 1; i < len(outputs); i++ {
		if outputs[i] != outputs[0] {
			t.Fatalf("Run %d produced different JSON:\n%s\nvs\n%s", i, outputs[i], outputs[0])
		}
	}
}

func TestEngine_Confidence(t *testing.T) {
	tests := []struct {
		present int
		want    model.Confidence
	}{
		{0, model.ConfidenceLow},
		{2, model.ConfidenceLow},
		{3, model.ConfidenceMedium},
		{4, model.ConfidenceMedium},
		{5, model.ConfidenceHigh},
	}

	for _, tt := range tests {
		if got := determineConfidence(tt.present); got != tt.want {
			t.Errorf("determineConfidence(%d) = %s, want %s", tt.present, got, tt.want)
		}
	}
}

func TestEngine_PressureClassRaisesLabor(t *testing.T) {
	engine := NewEngine(model.DefaultConfig())

	low, err := engine.Compute(attrsWith(t, map[string]string{"design_pressure_psi": "100"}))
	if err != nil {
		t.Fatal(err)
	}
	high, err := engine.Compute(attrsWith(t, map[string]string{"design_pressure_psi": "3000"}))
	if err != nil {
		t.Fatal(err)
	}

	if !high.CategoryTotal(model.CategoryLabor).GreaterThan(low.CategoryTotal(model.CategoryLabor)) {
		t.Errorf("Expected labor at 3000 psi (%s) to exceed labor at 100 psi (%s)",
			high.CategoryTotal(model.CategoryLabor), low.CategoryTotal(model.CategoryLabor))
	}
}

func TestEngine_MaterialFactor(t *testing.T) {
	engine := NewEngine(model.DefaultConfig())

	cs, err := engine.Compute(attrsWith(t, map[string]string{"material": "carbon_steel"}))
	if err != nil {
		t.Fatal(err)
	}
	ss, err := engine.Compute(attrsWith(t, map[string]string{"material": "SA-240 316L"}))
	if err != nil {
		t.Fatal(err)
	}

	csShell := cs.ItemsIn(model.CategoryMaterial)[1]
	ssShell := ss.ItemsIn(model.CategoryMaterial)[1]
	if !ssShell.UnitCost.Equal(csShell.UnitCost.Mul(decimal.RequireFromString("2.8"))) {
		t.Errorf("Expected stainless 316 shell rate to be 2.8x carbon steel, got %s vs %s", ssShell.UnitCost, csShell.UnitCost)
	}
}

func TestEngine_SmallVesselHasNoManway(t *testing.T) {
	b, err := NewEngine(model.DefaultConfig()).Compute(attrsWith(t, map[string]string{"diameter_in": "24"}))
	if err != nil {
		t.Fatal(err)
	}
	for _, li := range b.Items() {
		if li.Name == "manway" {
			t.Error("Expected no manway below 36 in diameter")
		}
	}
}
