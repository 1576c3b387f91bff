package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/specsync/pkg/annotation"
	apperrors "github.com/matzehuels/specsync/pkg/errors"
)

// CreateAnnotationRequest is the body of POST /screens/{screenID}/annotations.
// X and Y are natural image coordinates; marker is required.
type CreateAnnotationRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	annotation.Fields
}

// CoordinatesRequest is the body of PUT .../coordinates.
type CoordinatesRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// CoordinatesResponse echoes the stored position.
type CoordinatesResponse struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

func (s *Server) handleCreateAnnotation(w http.ResponseWriter, r *http.Request) {
	sess, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	screen, err := s.ownedScreen(r.Context(), sess, chi.URLParam(r, "screenID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req CreateAnnotationRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	x, y, err := position(req.X, req.Y, screen.ImageWidth, screen.ImageHeight)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.Marker == nil {
		writeError(w, r, apperrors.New(apperrors.ErrCodeMalformedAnnotation, "marker is required"))
		return
	}

	a := &annotation.Annotation{ScreenID: screen.ID, X: x, Y: y}
	req.Fields.Apply(a)
	if err := s.store.AddAnnotation(r.Context(), a); err != nil {
		writeError(w, r, err)
		return
	}
	loggerFrom(r.Context()).Info("created annotation", "screen", screen.ID, "annotation", a.ID, "marker", a.Marker)
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleUpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	sess, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	screen, err := s.ownedScreen(r.Context(), sess, chi.URLParam(r, "screenID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	current, err := s.screenAnnotation(r.Context(), screen.ID, chi.URLParam(r, "annotationID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var fields annotation.Fields
	if err := readJSON(r, &fields); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.store.UpdateAnnotation(r.Context(), current.ID, fields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleUpdateCoordinates persists a committed marker drag. This is the
// server side of the placement controller's position updater.
func (s *Server) handleUpdateCoordinates(w http.ResponseWriter, r *http.Request) {
	sess, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	screen, err := s.ownedScreen(r.Context(), sess, chi.URLParam(r, "screenID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.screenAnnotation(r.Context(), screen.ID, chi.URLParam(r, "annotationID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req CoordinatesRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	x, y, err := position(req.X, req.Y, screen.ImageWidth, screen.ImageHeight)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.UpdatePosition(r.Context(), a.ID, x, y); err != nil {
		writeError(w, r, err)
		return
	}
	loggerFrom(r.Context()).Debug("moved annotation", "annotation", a.ID, "x", x, "y", y)
	writeJSON(w, http.StatusOK, CoordinatesResponse{ID: a.ID, X: x, Y: y})
}

// position checks a natural-space coordinate pair. When the screen's
// dimensions are known the point must also lie on the image.
func position(px, py *float64, width, height int) (float64, float64, error) {
	if px == nil || py == nil {
		return 0, 0, apperrors.New(apperrors.ErrCodeInvalidPosition, "x and y are required")
	}
	x, y := *px, *py
	if err := apperrors.ValidatePosition(x, y); err != nil {
		return 0, 0, err
	}
	if width > 0 && height > 0 && (x > float64(width) || y > float64(height)) {
		return 0, 0, apperrors.New(apperrors.ErrCodeInvalidPosition,
			"position (%g, %g) is outside the %dx%d image", x, y, width, height)
	}
	return x, y, nil
}
