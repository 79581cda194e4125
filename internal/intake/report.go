package intake

import (
	"github.com/kalambet/permitflow/internal/permit"
	"github.com/kalambet/permitflow/internal/storage"
)

// ReportRow is one questionnaire joined with its project for summaries.
type ReportRow struct {
	Questionnaire storage.Questionnaire
	Project       storage.Project
	Details       permit.Details
}

// Report is a summary of all stored questionnaires.
type Report struct {
	Rows  []ReportRow
	Tally map[permit.Requirement]int
}

// Report joins every questionnaire with its project and tallies tiers.
// Questionnaires whose project cannot be loaded are reported with only the
// project id filled in.
func (s *Service) Report() (Report, error) {
	qs, err := s.store.ListQuestionnaires()
	if err != nil {
		return Report{}, err
	}

	rep := Report{
		Rows:  make([]ReportRow, 0, len(qs)),
		Tally: make(map[permit.Requirement]int, len(permit.Requirements)),
	}
	for _, req := range permit.Requirements {
		rep.Tally[req] = 0
	}
	for _, q := range qs {
		p, err := s.store.GetProject(q.ProjectID)
		if err != nil {
			s.logger.Warn("report: project lookup failed", "project_id", q.ProjectID, "error", err)
			p = storage.Project{ID: q.ProjectID}
		}
		rep.Rows = append(rep.Rows, ReportRow{
			Questionnaire: q,
			Project:       p,
			Details:       q.PermitRequirement.Details(),
		})
		rep.Tally[q.PermitRequirement]++
	}
	return rep, nil
}
