package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/matzehuels/specsync/pkg/annotation"
	apperrors "github.com/matzehuels/specsync/pkg/errors"
)

// MemoryStore keeps all records in process memory. Records are copied in and
// out, so callers never share state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	now         func() time.Time
	projects    map[string]annotation.Project
	screens     map[string]annotation.Screen
	annotations map[string]annotation.Annotation
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:         time.Now,
		projects:    make(map[string]annotation.Project),
		screens:     make(map[string]annotation.Screen),
		annotations: make(map[string]annotation.Annotation),
	}
}

func (m *MemoryStore) CreateProject(ctx context.Context, p *annotation.Project) error {
	if err := prepareProject(p, m.now()); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = cloneProject(*p)
	return nil
}

func (m *MemoryStore) GetProject(ctx context.Context, id string) (*annotation.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, notFound("project", id)
	}
	p = cloneProject(p)
	return &p, nil
}

func (m *MemoryStore) ListProjects(ctx context.Context, owner string) ([]annotation.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []annotation.Project{}
	for _, p := range m.projects {
		if p.Owner == owner {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) AddScreen(ctx context.Context, s *annotation.Screen) error {
	if err := prepareScreen(s, m.now()); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[s.ProjectID]
	if !ok {
		return notFound("project", s.ProjectID)
	}
	p.ScreenIDs = append(slices.Clone(p.ScreenIDs), s.ID)
	p.UpdatedAt = s.CreatedAt
	m.projects[p.ID] = p
	m.screens[s.ID] = cloneScreen(*s)
	return nil
}

func (m *MemoryStore) GetScreen(ctx context.Context, id string) (*annotation.Screen, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.screens[id]
	if !ok {
		return nil, notFound("screen", id)
	}
	s = cloneScreen(s)
	return &s, nil
}

func (m *MemoryStore) AddAnnotation(ctx context.Context, a *annotation.Annotation) error {
	if err := prepareAnnotation(a, m.now()); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.screens[a.ScreenID]
	if !ok {
		return notFound("screen", a.ScreenID)
	}
	s.AnnotationIDs = append(slices.Clone(s.AnnotationIDs), a.ID)
	s.UpdatedAt = a.CreatedAt
	m.screens[s.ID] = s
	m.annotations[a.ID] = *a
	return nil
}

func (m *MemoryStore) GetAnnotation(ctx context.Context, id string) (*annotation.Annotation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.annotations[id]
	if !ok {
		return nil, notFound("annotation", id)
	}
	return &a, nil
}

func (m *MemoryStore) UpdateAnnotation(ctx context.Context, id string, f annotation.Fields) (*annotation.Annotation, error) {
	if err := validateFields(f); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.annotations[id]
	if !ok {
		return nil, notFound("annotation", id)
	}
	f.Apply(&a)
	a.UpdatedAt = m.now()
	m.annotations[id] = a
	return &a, nil
}

func (m *MemoryStore) UpdatePosition(ctx context.Context, id string, x, y float64) error {
	if err := apperrors.ValidatePosition(x, y); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.annotations[id]
	if !ok {
		return notFound("annotation", id)
	}
	a.X, a.Y = x, y
	a.UpdatedAt = m.now()
	m.annotations[id] = a
	return nil
}

func (m *MemoryStore) ScreenAnnotations(ctx context.Context, screenID string) ([]annotation.Annotation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.screens[screenID]
	if !ok {
		return nil, notFound("screen", screenID)
	}
	out := make([]annotation.Annotation, 0, len(s.AnnotationIDs))
	for _, id := range s.AnnotationIDs {
		if a, ok := m.annotations[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemoryStore) Close(ctx context.Context) error { return nil }

func cloneProject(p annotation.Project) annotation.Project {
	p.ScreenIDs = slices.Clone(p.ScreenIDs)
	return p
}

func cloneScreen(s annotation.Screen) annotation.Screen {
	s.AnnotationIDs = slices.Clone(s.AnnotationIDs)
	return s
}

var _ Store = (*MemoryStore)(nil)
