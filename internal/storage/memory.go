package storage

import (
	"fmt"
	"sync"
)

// MemoryStore keeps records in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu sync.RWMutex

	projects     map[string]Project
	projectOrder []string

	questionnaires map[string]Questionnaire // by questionnaire ID
	byProject      map[string]string        // project ID -> questionnaire ID
	order          []string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		projects:       make(map[string]Project),
		questionnaires: make(map[string]Questionnaire),
		byProject:      make(map[string]string),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) SaveProject(p Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[p.ID]; ok {
		return fmt.Errorf("project %s already exists", p.ID)
	}
	m.projects[p.ID] = p
	m.projectOrder = append(m.projectOrder, p.ID)
	return nil
}

func (m *MemoryStore) GetProject(id string) (Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	return p, nil
}

// ListProjects returns projects in creation order.
func (m *MemoryStore) ListProjects() ([]Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Project, 0, len(m.projectOrder))
	for _, id := range m.projectOrder {
		out = append(out, m.projects[id])
	}
	return out, nil
}

func (m *MemoryStore) UpsertQuestionnaire(q Questionnaire) (Questionnaire, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[q.ProjectID]; !ok {
		return Questionnaire{}, false, ErrNotFound
	}

	if id, ok := m.byProject[q.ProjectID]; ok {
		existing := m.questionnaires[id]
		existing.Responses = q.Responses
		existing.PermitRequirement = q.PermitRequirement
		existing.UpdatedAt = q.UpdatedAt
		m.questionnaires[id] = existing
		return existing, false, nil
	}

	if _, ok := m.questionnaires[q.ID]; ok {
		return Questionnaire{}, false, fmt.Errorf("questionnaire %s already exists", q.ID)
	}
	m.questionnaires[q.ID] = q
	m.byProject[q.ProjectID] = q.ID
	m.order = append(m.order, q.ID)
	return q, true, nil
}

func (m *MemoryStore) GetQuestionnaireByProject(projectID string) (Questionnaire, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byProject[projectID]
	if !ok {
		return Questionnaire{}, ErrNotFound
	}
	return m.questionnaires[id], nil
}

// ListQuestionnaires returns questionnaires in order of first submission.
func (m *MemoryStore) ListQuestionnaires() ([]Questionnaire, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Questionnaire, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.questionnaires[id])
	}
	return out, nil
}
