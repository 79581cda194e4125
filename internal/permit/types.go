// Package permit holds the scope-of-work questionnaire model and the rules
// that map a questionnaire response to a permit review tier.
package permit

// WorkType is a top-level category of planned construction work.
type WorkType string

const (
	WorkInterior          WorkType = "interior"
	WorkExterior          WorkType = "exterior"
	WorkPropertyAdditions WorkType = "property_additions"
)

// InteriorWork is a kind of interior work.
type InteriorWork string

const (
	Flooring        InteriorWork = "flooring"
	BathroomRemodel InteriorWork = "bathroom_remodel"
	NewBathroom     InteriorWork = "new_bathroom"
	NewLaundryRoom  InteriorWork = "new_laundry_room"
	ElectricalWork  InteriorWork = "electrical_work"
	InteriorOther   InteriorWork = "other"
)

// ExteriorWork is a kind of exterior work.
type ExteriorWork string

const (
	RoofModifications     ExteriorWork = "roof_modifications"
	GarageDoorReplacement ExteriorWork = "garage_door_replacement"
	DeckConstruction      ExteriorWork = "deck_construction"
	GarageModifications   ExteriorWork = "garage_modifications"
	ExteriorDoors         ExteriorWork = "exterior_doors"
	Fencing               ExteriorWork = "fencing"
	ExteriorOther         ExteriorWork = "other"
)

// PropertyAddition is the single kind of addition selected for a property.
type PropertyAddition string

const (
	ADU                     PropertyAddition = "adu"
	GarageConversion        PropertyAddition = "garage_conversion"
	BasementAtticConversion PropertyAddition = "basement_attic_conversion"
	AdditionOther           PropertyAddition = "other"
)

// Requirement is the permit review tier a project falls into.
type Requirement string

const (
	InHouseReview Requirement = "in_house_review"
	OTCReview     Requirement = "otc_review"
	NoPermit      Requirement = "no_permit"
)

// WorkTypes lists every work type in display order.
var WorkTypes = []WorkType{WorkInterior, WorkExterior, WorkPropertyAdditions}

// InteriorWorks lists every interior work value in display order.
var InteriorWorks = []InteriorWork{Flooring, BathroomRemodel, NewBathroom, NewLaundryRoom, ElectricalWork, InteriorOther}

// ExteriorWorks lists every exterior work value in display order.
var ExteriorWorks = []ExteriorWork{
	RoofModifications, GarageDoorReplacement, DeckConstruction, GarageModifications,
	ExteriorDoors, Fencing, ExteriorOther,
}

// PropertyAdditions lists every property addition value in display order.
var PropertyAdditions = []PropertyAddition{ADU, GarageConversion, BasementAtticConversion, AdditionOther}

// Requirements lists the tiers from most to least severe.
var Requirements = []Requirement{InHouseReview, OTCReview, NoPermit}

func (w WorkType) Valid() bool         { return contains(WorkTypes, w) }
func (w InteriorWork) Valid() bool     { return contains(InteriorWorks, w) }
func (w ExteriorWork) Valid() bool     { return contains(ExteriorWorks, w) }
func (a PropertyAddition) Valid() bool { return contains(PropertyAdditions, a) }
func (r Requirement) Valid() bool      { return contains(Requirements, r) }

// Severity orders tiers: in_house_review > otc_review > no_permit.
// Unknown values rank below no_permit.
func (r Requirement) Severity() int {
	switch r {
	case InHouseReview:
		return 3
	case OTCReview:
		return 2
	case NoPermit:
		return 1
	}
	return 0
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
