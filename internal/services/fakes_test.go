package services

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"pergaminos/internal/models"
	"pergaminos/internal/store"

	"github.com/google/uuid"
)

// In-memory store fakes. They implement just enough of the store
// interfaces for the service tests and mirror the real stores'
// ErrNotFound behavior.

type fakeTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*models.Task
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[uuid.UUID]*models.Task)}
}

func (s *fakeTaskStore) CreateTask(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[task.ID]; exists {
		return store.ErrDuplicate
	}
	clone := *task
	s.tasks[task.ID] = &clone
	return nil
}

func (s *fakeTaskStore) GetTask(ctx context.Context, taskID, subjectID uuid.UUID) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok || task.SubjectID != subjectID {
		return nil, store.ErrNotFound
	}
	clone := *task
	return &clone, nil
}

func (s *fakeTaskStore) GetTaskByID(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *task
	return &clone, nil
}

func (s *fakeTaskStore) UpdateTask(ctx context.Context, taskID uuid.UUID, update store.TaskUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return store.ErrNotFound
	}
	if update.Status != nil {
		task.Status = *update.Status
	}
	if update.Progress != nil {
		task.Progress = *update.Progress
	}
	if update.Result != nil {
		task.Result = update.Result
	}
	if update.Error != nil {
		task.Error = update.Error
	}
	task.UpdatedAt = time.Now()
	return nil
}

func (s *fakeTaskStore) ListRecentTasks(ctx context.Context, limit int) ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		clone := *task
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeDocumentStore struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*models.Document
}

func newFakeDocumentStore(docs ...*models.Document) *fakeDocumentStore {
	s := &fakeDocumentStore{docs: make(map[uuid.UUID]*models.Document)}
	for _, doc := range docs {
		clone := *doc
		s.docs[doc.ID] = &clone
	}
	return s
}

func (s *fakeDocumentStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *doc
	s.docs[doc.ID] = &clone
	return nil
}

func (s *fakeDocumentStore) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *doc
	return &clone, nil
}

// sortDocuments applies the listing order: ordered documents first by
// display_order, unordered ones after by creation time.
func sortDocuments(out []*models.Document) {
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.DisplayOrder != nil && b.DisplayOrder != nil:
			return *a.DisplayOrder < *b.DisplayOrder
		case a.DisplayOrder != nil:
			return true
		case b.DisplayOrder != nil:
			return false
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}

func (s *fakeDocumentStore) ListProjectDocuments(ctx context.Context, projectID uuid.UUID) ([]*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Document
	for _, doc := range s.docs {
		if doc.ProjectID == projectID {
			clone := *doc
			out = append(out, &clone)
		}
	}
	sortDocuments(out)
	return out, nil
}

func (s *fakeDocumentStore) ListProjectDocumentsByStatus(ctx context.Context, projectID uuid.UUID, status string) ([]*models.Document, error) {
	all, _ := s.ListProjectDocuments(ctx, projectID)
	var out []*models.Document
	for _, doc := range all {
		if doc.Status == status {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *fakeDocumentStore) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return store.ErrNotFound
	}
	doc.Status = status
	return nil
}

func (s *fakeDocumentStore) SetExtractionResult(ctx context.Context, id uuid.UUID, data json.RawMessage, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return store.ErrNotFound
	}
	doc.ExtractedData = data
	doc.Status = models.DocumentStatusCompleted
	doc.ProcessedAt = &processedAt
	return nil
}

func (s *fakeDocumentStore) ApplyReorder(ctx context.Context, id uuid.UUID, displayOrder int, newName, reasoning string, reorderedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return store.ErrNotFound
	}
	doc.DisplayOrder = &displayOrder
	doc.OriginalFilename = newName
	doc.ReorderReasoning = &reasoning
	doc.ReorderedAt = &reorderedAt
	return nil
}

func (s *fakeDocumentStore) CountDocumentsByStatus(ctx context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int)
	for _, doc := range s.docs {
		counts[doc.Status]++
	}
	return counts, nil
}

type fakeProjectStore struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*models.Project
}

func newFakeProjectStore(projects ...*models.Project) *fakeProjectStore {
	s := &fakeProjectStore{projects: make(map[uuid.UUID]*models.Project)}
	for _, project := range projects {
		clone := *project
		s.projects[project.ID] = &clone
	}
	return s
}

func (s *fakeProjectStore) CreateProject(ctx context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *project
	s.projects[project.ID] = &clone
	return nil
}

func (s *fakeProjectStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *project
	return &clone, nil
}

func (s *fakeProjectStore) ListProjects(ctx context.Context) ([]*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Project, 0, len(s.projects))
	for _, project := range s.projects {
		clone := *project
		out = append(out, &clone)
	}
	return out, nil
}

func (s *fakeProjectStore) CountProjects(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.projects), nil
}

type fakeAgentStore struct {
	mu     sync.Mutex
	agents map[uuid.UUID]*models.QAAgent
}

func newFakeAgentStore(agents ...*models.QAAgent) *fakeAgentStore {
	s := &fakeAgentStore{agents: make(map[uuid.UUID]*models.QAAgent)}
	for _, agent := range agents {
		clone := *agent
		s.agents[agent.ID] = &clone
	}
	return s
}

func (s *fakeAgentStore) CreateAgent(ctx context.Context, agent *models.QAAgent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *agent
	s.agents[agent.ID] = &clone
	return nil
}

func (s *fakeAgentStore) GetAgent(ctx context.Context, id uuid.UUID) (*models.QAAgent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agent, ok := s.agents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *agent
	return &clone, nil
}

func (s *fakeAgentStore) ListAgents(ctx context.Context) ([]*models.QAAgent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.QAAgent, 0, len(s.agents))
	for _, agent := range s.agents {
		clone := *agent
		out = append(out, &clone)
	}
	return out, nil
}

// fakeInvoker returns a scripted reply or error.
type fakeInvoker struct {
	reply string
	err   error
	calls int
	// lastUserPrompt lets prompt-shape assertions inspect what the
	// pipeline sent.
	lastUserPrompt string
}

func (f *fakeInvoker) Invoke(ctx context.Context, systemPrompt, userPrompt string, sel ModelSelector, att *Attachment) (string, error) {
	f.calls++
	f.lastUserPrompt = userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}
