// Package intake is the application service behind every surface: it
// creates projects, classifies questionnaire submissions and stores them
// one-per-project.
package intake

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/permitflow/internal/events"
	"github.com/kalambet/permitflow/internal/permit"
	"github.com/kalambet/permitflow/internal/storage"
	"github.com/kalambet/permitflow/internal/validate"
)

// Notifier receives an event for every stored submission. It must not block.
type Notifier interface {
	Notify(e events.Classified) bool
}

// Recorder counts what the service does.
type Recorder interface {
	SubmissionRecorded(req permit.Requirement, created bool)
	ProjectCreated()
}

// Deps holds the collaborators of a Service. Only Store is required.
type Deps struct {
	Store    storage.Repository
	Notifier Notifier         // optional
	Metrics  Recorder         // optional
	NewID    func() string    // defaults to uuid.NewString
	Now      func() time.Time // defaults to time.Now in UTC
	Logger   *slog.Logger     // defaults to slog.Default()
}

// Service implements the intake operations. It is safe for concurrent use
// as long as the store is.
type Service struct {
	store    storage.Repository
	notifier Notifier
	metrics  Recorder
	newID    func() string
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a Service, filling in defaults for missing collaborators.
func New(deps Deps) *Service {
	s := &Service{
		store:    deps.Store,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		newID:    deps.NewID,
		now:      deps.Now,
		logger:   deps.Logger,
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ProjectInput is the data needed to create a project.
type ProjectInput struct {
	Name     string `json:"name" yaml:"name" validate:"required"`
	Location string `json:"location" yaml:"location" validate:"required"`
}

var inputValidator = validate.New()

// CreateProject validates in and stores a new project.
func (s *Service) CreateProject(in ProjectInput) (storage.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	if err := inputValidator.Struct(in); err != nil {
		return storage.Project{}, err
	}

	p := storage.Project{
		ID:        s.newID(),
		Name:      in.Name,
		Location:  in.Location,
		CreatedAt: s.now(),
	}
	if err := s.store.SaveProject(p); err != nil {
		return storage.Project{}, fmt.Errorf("saving project: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ProjectCreated()
	}
	s.logger.Info("project created", "project_id", p.ID)
	return p, nil
}

// Project returns the project with id, or storage.ErrNotFound.
func (s *Service) Project(id string) (storage.Project, error) {
	return s.store.GetProject(id)
}

// Projects returns all projects, oldest first.
func (s *Service) Projects() ([]storage.Project, error) {
	return s.store.ListProjects()
}

// Submission is the outcome of Submit.
type Submission struct {
	Questionnaire storage.Questionnaire
	// Created is false when an existing record for the project was overwritten.
	Created bool
}

// Submit classifies r and stores it as the questionnaire of projectID,
// replacing any earlier submission for that project. A replaced record
// keeps its id and createdAt. Unknown projects yield storage.ErrNotFound.
func (s *Service) Submit(projectID string, r permit.Response) (Submission, error) {
	if r.IsZero() {
		return Submission{}, errors.New("response has no work types")
	}

	now := s.now()
	q := storage.Questionnaire{
		ID:                s.newID(),
		ProjectID:         projectID,
		Responses:         r,
		PermitRequirement: permit.Classify(r),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	stored, created, err := s.store.UpsertQuestionnaire(q)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Submission{}, fmt.Errorf("project %s: %w", projectID, err)
		}
		return Submission{}, fmt.Errorf("storing questionnaire: %w", err)
	}

	if s.metrics != nil {
		s.metrics.SubmissionRecorded(stored.PermitRequirement, created)
	}
	if s.notifier != nil {
		s.notifier.Notify(events.Classified{
			QuestionnaireID:   stored.ID,
			ProjectID:         stored.ProjectID,
			PermitRequirement: stored.PermitRequirement,
			Created:           created,
			OccurredAt:        now,
		})
	}
	s.logger.Info("questionnaire classified",
		"project_id", projectID,
		"questionnaire_id", stored.ID,
		"requirement", stored.PermitRequirement,
		"created", created,
	)
	return Submission{Questionnaire: stored, Created: created}, nil
}

// SubmitPayload validates a wire payload and submits the Response it describes.
// Validation failures are returned as *validate.Error before anything is stored.
func (s *Service) SubmitPayload(projectID string, p permit.Payload) (Submission, error) {
	r, err := p.Response()
	if err != nil {
		return Submission{}, err
	}
	return s.Submit(projectID, r)
}

// Questionnaire returns the questionnaire of projectID. It returns nil and
// no error when the project exists but nothing has been submitted yet.
func (s *Service) Questionnaire(projectID string) (*storage.Questionnaire, error) {
	if _, err := s.store.GetProject(projectID); err != nil {
		return nil, err
	}
	q, err := s.store.GetQuestionnaireByProject(projectID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Questionnaires returns every stored questionnaire, oldest first.
func (s *Service) Questionnaires() ([]storage.Questionnaire, error) {
	return s.store.ListQuestionnaires()
}
