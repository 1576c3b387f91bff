package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/specsync/pkg/annotation"
	apperrors "github.com/matzehuels/specsync/pkg/errors"
	"github.com/matzehuels/specsync/pkg/session"
	"github.com/matzehuels/specsync/pkg/staging"
)

// SessionInfo is the body of GET /session. It never includes the token.
type SessionInfo struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateProjectRequest is the JSON body of POST /projects. A multipart
// request carries the name in the "name" field and may add a cover image.
type CreateProjectRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionInfo{
		UserID:    sess.UserID,
		Name:      sess.Name,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	sess, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	projects, err := s.store.ListProjects(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if projects == nil {
		projects = []annotation.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	sess, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var (
		req CreateProjectRequest
		up  *staging.Upload
	)
	if isMultipart(r) {
		if up, err = s.stager.Receive(r, ProjectImageField); err != nil {
			writeError(w, r, err)
			return
		}
		defer up.Cleanup()
		req.Name = up.Values[NameField]
	} else if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "project name is required"))
		return
	}

	p := &annotation.Project{Owner: sess.UserID, Name: name}
	if up != nil && up.File != nil {
		img, key, err := s.storeImage(r.Context(), up.File)
		if err != nil {
			writeError(w, r, err)
			return
		}
		p.ImageKey = key
		loggerFrom(r.Context()).Debug("stored project image", "width", img.Width, "height", img.Height)
	}
	if err := s.store.CreateProject(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	loggerFrom(r.Context()).Info("created project", "project", p.ID, "name", p.Name, "image", p.ImageKey != "")
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleProjectImage(w http.ResponseWriter, r *http.Request) {
	sess, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.ownedProject(r.Context(), sess, chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if p.ImageKey == "" {
		writeError(w, r, apperrors.New(apperrors.ErrCodeNotFound, "project %s has no image", p.ID))
		return
	}
	s.serveImage(w, r, p.ImageKey, "project "+p.ID)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	sess, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.ownedProject(r.Context(), sess, chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// =============================================================================
// Ownership
// =============================================================================

// ownedProject loads a project and checks that sess owns it.
func (s *Server) ownedProject(ctx context.Context, sess *session.Session, id string) (*annotation.Project, error) {
	if err := apperrors.ValidateID("project", id); err != nil {
		return nil, err
	}
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Owner != sess.UserID {
		return nil, apperrors.New(apperrors.ErrCodeForbidden, "project %s belongs to another user", id)
	}
	return p, nil
}

// ownedScreen loads a screen and checks that sess owns its project.
func (s *Server) ownedScreen(ctx context.Context, sess *session.Session, id string) (*annotation.Screen, error) {
	if err := apperrors.ValidateID("screen", id); err != nil {
		return nil, err
	}
	sc, err := s.store.GetScreen(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedProject(ctx, sess, sc.ProjectID); err != nil {
		return nil, err
	}
	return sc, nil
}

// screenAnnotation loads an annotation and checks that it is on screenID.
func (s *Server) screenAnnotation(ctx context.Context, screenID, id string) (*annotation.Annotation, error) {
	if err := apperrors.ValidateID("annotation", id); err != nil {
		return nil, err
	}
	a, err := s.store.GetAnnotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.ScreenID != screenID {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "annotation %s is not on screen %s", id, screenID)
	}
	return a, nil
}
