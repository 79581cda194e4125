package storage

import (
	"errors"
	"time"

	"github.com/kalambet/permitflow/internal/permit"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
}

// Questionnaire is the single questionnaire attached to a project.
// Resubmitting replaces Responses and PermitRequirement but keeps ID and CreatedAt.
type Questionnaire struct {
	ID                string             `json:"id"`
	ProjectID         string             `json:"projectId"`
	Responses         permit.Response    `json:"responses"`
	PermitRequirement permit.Requirement `json:"permitRequirement"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// Repository is the method set shared by the memory and SQLite backends.
// All methods are safe for concurrent use.
type Repository interface {
	SaveProject(p Project) error
	GetProject(id string) (Project, error)
	ListProjects() ([]Project, error)

	// UpsertQuestionnaire atomically stores q as the questionnaire of
	// q.ProjectID. If one already exists its responses, requirement and
	// UpdatedAt are overwritten and its ID and CreatedAt are kept. The stored
	// record is returned with created=true when nothing existed before.
	// Returns ErrNotFound when the project does not exist.
	UpsertQuestionnaire(q Questionnaire) (stored Questionnaire, created bool, err error)
	GetQuestionnaireByProject(projectID string) (Questionnaire, error)
	ListQuestionnaires() ([]Questionnaire, error)

	Close() error
}
