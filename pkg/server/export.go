package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/specsync/pkg/brd"
	apperrors "github.com/matzehuels/specsync/pkg/errors"
	"github.com/matzehuels/specsync/pkg/pipeline"
)

// handleExport builds the Visual BRD workbook of a screen. The client sends
// the annotated capture it rendered; the staged upload is always removed,
// whether or not the export succeeds.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
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

	up, err := s.stager.Receive(r, ExportImageField)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer up.Cleanup()
	if up.File == nil {
		writeError(w, r, apperrors.New(apperrors.ErrCodeMissingImage, "multipart field %q is required", ExportImageField))
		return
	}
	image, err := up.File.Read()
	if err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.ErrCodeInternal, err, "read staged upload"))
		return
	}

	annotations, err := s.store.ScreenAnnotations(r.Context(), screen.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.runner.Export(r.Context(), pipeline.Request{
		ScreenID:    screen.ID,
		Annotations: annotations,
		Image:       image,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", brd.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Document)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Document)
}
