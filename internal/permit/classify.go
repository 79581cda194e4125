package permit

// Decision is the outcome of classifying a response together with the
// rules that produced it. Matched is empty for NoPermit.
type Decision struct {
	Requirement Requirement `json:"permitRequirement"`
	Matched     []string    `json:"matchedRules"`
}

type rule struct {
	name  string
	tier  Requirement
	match func(Response) bool
}

// decisionList is ordered by tier, most severe first. The first tier with a
// matching rule wins; NoPermit is the fallback.
var decisionList = []rule{
	{"property_addition", InHouseReview, func(r Response) bool { return r.addition != nil }},
	{"new_bathroom", InHouseReview, func(r Response) bool { return r.hasInterior(NewBathroom) }},
	{"new_laundry_room", InHouseReview, func(r Response) bool { return r.hasInterior(NewLaundryRoom) }},
	{"deck_construction", InHouseReview, func(r Response) bool { return r.hasExterior(DeckConstruction) }},
	{"garage_modifications", InHouseReview, func(r Response) bool { return r.hasExterior(GarageModifications) }},
	{"interior_other", InHouseReview, func(r Response) bool { return r.hasInterior(InteriorOther) }},
	{"exterior_other", InHouseReview, func(r Response) bool { return r.hasExterior(ExteriorOther) }},

	{"bathroom_remodel", OTCReview, func(r Response) bool { return r.hasInterior(BathroomRemodel) }},
	{"electrical_work", OTCReview, func(r Response) bool { return r.hasInterior(ElectricalWork) }},
	{"roof_modifications", OTCReview, func(r Response) bool { return r.hasExterior(RoofModifications) }},
	{"garage_and_exterior_doors", OTCReview, func(r Response) bool {
		return r.hasExterior(GarageDoorReplacement) && r.hasExterior(ExteriorDoors)
	}},
}

// Classify returns the permit tier for r. It is pure and total; an empty
// Response classifies as NoPermit.
func Classify(r Response) Requirement {
	for _, rl := range decisionList {
		if rl.match(r) {
			return rl.tier
		}
	}
	return NoPermit
}

// Explain classifies r and lists every rule of the winning tier that matched.
func Explain(r Response) Decision {
	d := Decision{Requirement: NoPermit, Matched: []string{}}
	for _, rl := range decisionList {
		if len(d.Matched) > 0 && rl.tier != d.Requirement {
			break
		}
		if rl.match(r) {
			d.Requirement = rl.tier
			d.Matched = append(d.Matched, rl.name)
		}
	}
	return d
}
