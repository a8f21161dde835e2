package validate

import (
	"fmt"
	"math"

	"github.com/ppiankov/vesselcost/internal/model"
)

// Validator checks present attribute values against configured plausibility ranges
type Validator struct {
	ranges    map[model.AttributeName]model.Range
	materials *MaterialCatalog
}

// NewValidator creates a validator from configuration
func NewValidator(cfg model.ValidationConfig, rates model.RateConfig) *Validator {
	if cfg.Ranges == nil {
		cfg = model.DefaultValidation()
	}

	ranges := make(map[model.AttributeName]model.Range, len(cfg.Ranges))
	for key, r := range cfg.Ranges {
		if name, ok := model.ParseAttributeName(key); ok {
			ranges[name] = r
		}
	}

	return &Validator{
		ranges:    ranges,
		materials: NewMaterialCatalog(rates),
	}
}

// Materials exposes the catalog used for material checks
func (v *Validator) Materials() *MaterialCatalog {
	return v.materials
}

// Validate walks the attributes in canonical order and returns the first
// implausible one as *model.InvalidAttributeError. Missing attributes are
// not checked; values are never clamped.
func (v *Validator) Validate(attrs *model.AttributeMap) error {
	for _, a := range attrs.Attributes() {
		if !a.Present() {
			continue
		}
		if err := v.check(a); err != nil {
			return err
		}
	}
	return v.crossCheck(attrs)
}

func (v *Validator) check(a model.Attribute) error {
	if a.Name == model.AttrMaterial {
		if _, ok := v.materials.Resolve(a.Text); !ok {
			return model.NewInvalidAttribute(a, fmt.Sprintf("unknown material (known: %s)", v.materials.KeysString()))
		}
		return nil
	}

	if !a.Name.Numeric() {
		return nil
	}

	value := a.Number
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return model.NewInvalidAttribute(a, "not a finite number")
	}

	r, ok := v.ranges[a.Name]
	if !ok {
		return nil
	}

	if r.ExclusiveMin && value <= r.Min {
		return model.NewInvalidAttribute(a, fmt.Sprintf("must be greater than %g", r.Min))
	}
	if !r.ExclusiveMin && value < r.Min {
		return model.NewInvalidAttribute(a, fmt.Sprintf("must be at least %g", r.Min))
	}
	if r.Max > r.Min && value > r.Max {
		return model.NewInvalidAttribute(a, fmt.Sprintf("must be at most %g", r.Max))
	}
	if r.Integer && value != math.Trunc(value) {
		return model.NewInvalidAttribute(a, "must be a whole number")
	}
	return nil
}

// crossCheck catches combinations that are individually plausible but
// geometrically impossible
func (v *Validator) crossCheck(attrs *model.AttributeMap) error {
	t, okT := attrs.Get(model.AttrWallThicknessIn).Float()
	d, okD := attrs.Get(model.AttrDiameterIn).Float()
	if okT && okD && t*2 >= d {
		return model.NewInvalidAttribute(attrs.Get(model.AttrWallThicknessIn),
			fmt.Sprintf("wall thickness must be less than the radius (%g in)", d/2))
	}
	return nil
}
