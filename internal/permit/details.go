package permit

// Details is the applicant-facing explanation of a tier.
type Details struct {
	Title string   `json:"title"`
	Steps []string `json:"steps"`
}

// Details returns what the applicant has to do for r.
func (r Requirement) Details() Details {
	switch r {
	case InHouseReview:
		return Details{
			Title: "In-House Review Process",
			Steps: []string{
				"A building permit is required.",
				"Include plan sets.",
				"Submit application for in-house review.",
			},
		}
	case OTCReview:
		return Details{
			Title: "Over-the-Counter Submission Process",
			Steps: []string{
				"A building permit is required.",
				"Submit application for OTC review.",
			},
		}
	default:
		return Details{
			Title: "No Permit Required",
			Steps: []string{"Nothing is required! You're set to build."},
		}
	}
}

// PermitRequired reports whether any permit has to be filed.
func (r Requirement) PermitRequired() bool {
	return r == InHouseReview || r == OTCReview
}
