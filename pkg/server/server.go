// Package server implements the SpecSync HTTP API.
//
// The API serves the annotation workspace: projects own screens, screens own
// annotations, and a screen can be exported as a Visual BRD workbook. All
// routes except /healthz run on behalf of a session resolved by the auth
// middleware, and every screen or annotation route checks that the session's
// user owns the enclosing project.
//
// # Routes
//
//	GET    /healthz
//	GET    /api/v1/session
//	GET    /api/v1/projects
//	POST   /api/v1/projects                                    JSON, or multipart "imageUrl"
//	GET    /api/v1/projects/{projectID}
//	GET    /api/v1/projects/{projectID}/image
//	POST   /api/v1/screens/project/{projectID}                 multipart "imageUrl"
//	GET    /api/v1/screens/{screenID}
//	GET    /api/v1/screens/{screenID}/image
//	POST   /api/v1/screens/{screenID}/annotations
//	PATCH  /api/v1/screens/{screenID}/annotations/{annotationID}
//	PUT    /api/v1/screens/{screenID}/annotations/{annotationID}/coordinates
//	POST   /api/v1/screens/{screenID}/export                   multipart "annotatedImage"
//
// Errors are written as {"code": ..., "message": ...} with the status taken
// from the error code.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/specsync/pkg/blob"
	"github.com/matzehuels/specsync/pkg/buildinfo"
	"github.com/matzehuels/specsync/pkg/pipeline"
	"github.com/matzehuels/specsync/pkg/session"
	"github.com/matzehuels/specsync/pkg/staging"
	"github.com/matzehuels/specsync/pkg/store"
)

// Multipart field names.
const (
	ScreenImageField  = "imageUrl"
	ProjectImageField = "imageUrl"
	ExportImageField  = "annotatedImage"
	LayersField       = "layers"
	NameField         = "name"
)

// Options wires the server to its backends. Store, Blobs, Sessions and
// Stager are required unless NoAuth makes Sessions optional.
type Options struct {
	Store    store.Store
	Blobs    blob.Store
	Sessions session.Store
	Stager   *staging.Stager
	Runner   *pipeline.Runner
	Logger   *log.Logger

	// NoAuth serves every request as session.MockLocal. Development only.
	NoAuth bool
}

// Server is the HTTP API.
type Server struct {
	store    store.Store
	blobs    blob.Store
	sessions session.Store
	stager   *staging.Stager
	runner   *pipeline.Runner
	logger   *log.Logger
	noAuth   bool

	router chi.Router
}

// New validates opts and builds the router.
func New(opts Options) (*Server, error) {
	switch {
	case opts.Store == nil:
		return nil, errors.New("server: store is required")
	case opts.Blobs == nil:
		return nil, errors.New("server: blob store is required")
	case opts.Stager == nil:
		return nil, errors.New("server: stager is required")
	case opts.Sessions == nil && !opts.NoAuth:
		return nil, errors.New("server: session store is required unless auth is disabled")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	runner := opts.Runner
	if runner == nil {
		runner = pipeline.NewRunner(pipeline.Options{MaxImageBytes: opts.Stager.MaxBytes()}, logger)
	}

	s := &Server{
		store:    opts.Store,
		blobs:    opts.Blobs,
		sessions: opts.Sessions,
		stager:   opts.Stager,
		runner:   runner,
		logger:   logger,
		noAuth:   opts.NoAuth,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(s.recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, notFoundRoute(r))
	})
	r.MethodNotAllowed(writeMethodNotAllowed)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/session", s.handleSession)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.handleListProjects)
			r.Post("/", s.handleCreateProject)
			r.Get("/{projectID}", s.handleGetProject)
			r.Get("/{projectID}/image", s.handleProjectImage)
		})

		r.Route("/screens", func(r chi.Router) {
			r.Post("/project/{projectID}", s.handleCreateScreen)
			r.Route("/{screenID}", func(r chi.Router) {
				r.Get("/", s.handleGetScreen)
				r.Get("/image", s.handleScreenImage)
				r.Post("/annotations", s.handleCreateAnnotation)
				r.Patch("/annotations/{annotationID}", s.handleUpdateAnnotation)
				r.Put("/annotations/{annotationID}/coordinates", s.handleUpdateCoordinates)
				r.Post("/export", s.handleExport)
			})
		})
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully, giving in-flight requests up to ten seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr, "auth", !s.noAuth)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Build: buildinfo.Get()})
}
