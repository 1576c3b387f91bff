package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/specsync/pkg/annotation"
	"github.com/matzehuels/specsync/pkg/blob"
	apperrors "github.com/matzehuels/specsync/pkg/errors"
	"github.com/matzehuels/specsync/pkg/staging"
)

// ScreenResponse is the body of GET /screens/{screenID}: the screen with its
// annotations in table order.
type ScreenResponse struct {
	Screen      *annotation.Screen      `json:"screen"`
	Annotations []annotation.Annotation `json:"annotations"`
}

// handleCreateScreen stores an uploaded design image as a new screen of a
// project. The image is normalised to PNG before it is stored, and the
// optional layers field carries the design tool's layer tree as JSON.
func (s *Server) handleCreateScreen(w http.ResponseWriter, r *http.Request) {
	sess, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	project, err := s.ownedProject(r.Context(), sess, chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	up, err := s.stager.Receive(r, ScreenImageField)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer up.Cleanup()
	if up.File == nil {
		writeError(w, r, apperrors.New(apperrors.ErrCodeMissingImage, "multipart field %q is required", ScreenImageField))
		return
	}

	var layers *annotation.LayerNode
	if raw := strings.TrimSpace(up.Values[LayersField]); raw != "" {
		layers = new(annotation.LayerNode)
		if err := json.Unmarshal([]byte(raw), layers); err != nil {
			writeError(w, r, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid %s JSON", LayersField))
			return
		}
	}

	img, key, err := s.storeImage(r.Context(), up.File)
	if err != nil {
		writeError(w, r, err)
		return
	}

	name := strings.TrimSpace(up.Values[NameField])
	if name == "" {
		name = up.File.BaseName()
	}
	screen := &annotation.Screen{
		ProjectID:   project.ID,
		Name:        name,
		ImageKey:    key,
		ImageWidth:  img.Width,
		ImageHeight: img.Height,
		Layers:      layers,
	}
	if err := s.store.AddScreen(r.Context(), screen); err != nil {
		writeError(w, r, err)
		return
	}

	loggerFrom(r.Context()).Info("created screen",
		"project", project.ID,
		"screen", screen.ID,
		"width", img.Width,
		"height", img.Height,
		"layers", layers.Count())
	writeJSON(w, http.StatusCreated, screen)
}

func (s *Server) handleGetScreen(w http.ResponseWriter, r *http.Request) {
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
	annotations, err := s.store.ScreenAnnotations(r.Context(), screen.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if annotations == nil {
		annotations = []annotation.Annotation{}
	}
	writeJSON(w, http.StatusOK, ScreenResponse{Screen: screen, Annotations: annotations})
}

// handleScreenImage serves the stored screen image. Keys are content
// hashes, so the response never changes for a given screen.
func (s *Server) handleScreenImage(w http.ResponseWriter, r *http.Request) {
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
	s.serveImage(w, r, screen.ImageKey, "screen "+screen.ID)
}

// =============================================================================
// Stored images
// =============================================================================

// storeImage normalises a staged upload to PNG and stores it as a blob.
func (s *Server) storeImage(ctx context.Context, f *staging.File) (staging.Normalized, string, error) {
	data, err := f.Read()
	if err != nil {
		return staging.Normalized{}, "", apperrors.Wrap(apperrors.ErrCodeInternal, err, "read staged upload")
	}
	img, err := staging.NormalizeImage(data)
	if err != nil {
		return staging.Normalized{}, "", err
	}
	key, err := s.blobs.Put(ctx, img.Data)
	if err != nil {
		return staging.Normalized{}, "", apperrors.Wrap(apperrors.ErrCodePersistence, err, "store image")
	}
	return img, key, nil
}

// serveImage writes a stored PNG. Keys are content hashes, so they double
// as strong ETags.
func (s *Server) serveImage(w http.ResponseWriter, r *http.Request, key, owner string) {
	data, err := s.blobs.Get(r.Context(), key)
	if errors.Is(err, blob.ErrNotFound) {
		writeError(w, r, apperrors.Wrap(apperrors.ErrCodeNotFound, err, "image of %s", owner))
		return
	}
	if err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.ErrCodePersistence, err, "load image of %s", owner))
		return
	}

	etag := `"` + key + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
