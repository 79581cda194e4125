package permit

import (
	"github.com/go-playground/validator/v10"

	"github.com/kalambet/permitflow/internal/validate"
)

// Payload is the raw questionnaire submission as it arrives over the wire
// (JSON or YAML). It must pass Validate before it can become a Response.
type Payload struct {
	WorkTypes        []WorkType       `json:"workTypes" yaml:"workTypes" validate:"required,min=1,dive,oneof=interior exterior property_additions"`
	InteriorWork     []InteriorWork   `json:"interiorWork,omitempty" yaml:"interiorWork,omitempty" validate:"omitempty,dive,oneof=flooring bathroom_remodel new_bathroom new_laundry_room electrical_work other"`
	ExteriorWork     []ExteriorWork   `json:"exteriorWork,omitempty" yaml:"exteriorWork,omitempty" validate:"omitempty,dive,oneof=roof_modifications garage_door_replacement deck_construction garage_modifications exterior_doors fencing other"`
	PropertyAddition PropertyAddition `json:"propertyAddition,omitempty" yaml:"propertyAddition,omitempty" validate:"omitempty,oneof=adu garage_conversion basement_attic_conversion other"`
}

var payloadValidator = func() *validate.Validator {
	v := validate.New()
	v.RegisterStructRule(conditionalSections, Payload{})
	return v
}()

// conditionalSections requires the section that belongs to each selected work type.
func conditionalSections(sl validator.StructLevel) {
	p := sl.Current().Interface().(Payload)
	if p.selected(WorkInterior) && len(p.InteriorWork) == 0 {
		sl.ReportError(p.InteriorWork, "interiorWork", "InteriorWork", "required_for", string(WorkInterior))
	}
	if p.selected(WorkExterior) && len(p.ExteriorWork) == 0 {
		sl.ReportError(p.ExteriorWork, "exteriorWork", "ExteriorWork", "required_for", string(WorkExterior))
	}
	if p.selected(WorkPropertyAdditions) && p.PropertyAddition == "" {
		sl.ReportError(p.PropertyAddition, "propertyAddition", "PropertyAddition", "required_for", string(WorkPropertyAdditions))
	}
}

func (p Payload) selected(w WorkType) bool { return contains(p.WorkTypes, w) }

// Validate reports every rule the payload breaks as a *validate.Error.
func (p Payload) Validate() error {
	return payloadValidator.Struct(p)
}

// Response validates p and builds the Response it describes. Sections sent
// for work types that were not selected are ignored.
func (p Payload) Response() (Response, error) {
	if err := p.Validate(); err != nil {
		return Response{}, err
	}
	var scopes []Scope
	if p.selected(WorkInterior) {
		scopes = append(scopes, Interior(p.InteriorWork...))
	}
	if p.selected(WorkExterior) {
		scopes = append(scopes, Exterior(p.ExteriorWork...))
	}
	if p.selected(WorkPropertyAdditions) {
		scopes = append(scopes, Addition(p.PropertyAddition))
	}
	return NewResponse(scopes...)
}
