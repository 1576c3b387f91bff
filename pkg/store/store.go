// Package store persists projects, screens and annotations.
//
// Two implementations are provided: [MongoStore] for deployments and
// [MemoryStore] for tests and the --storage=memory development mode. Both
// assign UUID identifiers and keep screen and annotation ID lists in
// insertion order, which is the row order of exported documents.
//
// Every Store is also a position updater for package placement: committed
// drags call UpdatePosition with natural image coordinates.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/specsync/pkg/annotation"
	apperrors "github.com/matzehuels/specsync/pkg/errors"
)

// ErrNotFound is returned (wrapped in a NOT_FOUND error) for missing records.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface used by the API server.
type Store interface {
	CreateProject(ctx context.Context, p *annotation.Project) error
	GetProject(ctx context.Context, id string) (*annotation.Project, error)
	ListProjects(ctx context.Context, owner string) ([]annotation.Project, error)

	// AddScreen stores s and appends it to its project's screen list.
	AddScreen(ctx context.Context, s *annotation.Screen) error
	GetScreen(ctx context.Context, id string) (*annotation.Screen, error)

	// AddAnnotation stores a and appends it to its screen's annotation list.
	AddAnnotation(ctx context.Context, a *annotation.Annotation) error
	GetAnnotation(ctx context.Context, id string) (*annotation.Annotation, error)
	UpdateAnnotation(ctx context.Context, id string, f annotation.Fields) (*annotation.Annotation, error)
	UpdatePosition(ctx context.Context, id string, x, y float64) error

	// ScreenAnnotations returns a screen's annotations in insertion order.
	ScreenAnnotations(ctx context.Context, screenID string) ([]annotation.Annotation, error)

	Close(ctx context.Context) error
}

func notFound(kind, id string) error {
	return apperrors.Wrap(apperrors.ErrCodeNotFound, ErrNotFound, "%s %s not found", kind, id)
}

func persistence(err error, format string, args ...any) error {
	return apperrors.Wrap(apperrors.ErrCodePersistence, err, format, args...)
}

// =============================================================================
// Record preparation shared by all backends
// =============================================================================

func prepareProject(p *annotation.Project, now time.Time) error {
	if p.Owner == "" {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "project owner is required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.ScreenIDs == nil {
		p.ScreenIDs = []string{}
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

func prepareScreen(s *annotation.Screen, now time.Time) error {
	if err := apperrors.ValidateID("project", s.ProjectID); err != nil {
		return err
	}
	if s.ImageKey == "" {
		return apperrors.New(apperrors.ErrCodeMissingImage, "screen has no image")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.AnnotationIDs == nil {
		s.AnnotationIDs = []string{}
	}
	s.CreatedAt, s.UpdatedAt = now, now
	return nil
}

func prepareAnnotation(a *annotation.Annotation, now time.Time) error {
	if err := apperrors.ValidateID("screen", a.ScreenID); err != nil {
		return err
	}
	if err := apperrors.ValidateMarker(a.Marker); err != nil {
		return err
	}
	if err := apperrors.ValidatePosition(a.X, a.Y); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt, a.UpdatedAt = now, now
	return nil
}

func validateFields(f annotation.Fields) error {
	if f.Marker != nil {
		return apperrors.ValidateMarker(*f.Marker)
	}
	return nil
}
