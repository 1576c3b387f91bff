package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/matzehuels/specsync/pkg/annotation"
	apperrors "github.com/matzehuels/specsync/pkg/errors"
	"github.com/matzehuels/specsync/pkg/placement"
	"github.com/matzehuels/specsync/pkg/server"
)

const apiPrefix = "/api/v1"

func apiPath(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return apiPrefix + "/" + strings.Join(escaped, "/")
}

// =============================================================================
// Session and projects
// =============================================================================

// Session returns the caller's session. It is the cheapest way to check that
// a token is still valid.
func (c *Client) Session(ctx context.Context) (*server.SessionInfo, error) {
	var info server.SessionInfo
	if err := c.getJSON(ctx, apiPath("session"), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListProjects returns the caller's projects.
func (c *Client) ListProjects(ctx context.Context) ([]annotation.Project, error) {
	var projects []annotation.Project
	if err := c.getJSON(ctx, apiPath("projects"), &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateProject creates a project owned by the caller.
func (c *Client) CreateProject(ctx context.Context, name string) (*annotation.Project, error) {
	var p annotation.Project
	if err := c.sendJSON(ctx, http.MethodPost, apiPath("projects"), server.CreateProjectRequest{Name: name}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProjectWithImage creates a project with a cover image. filename must
// end in .png, .jpg or .jpeg.
func (c *Client) CreateProjectWithImage(ctx context.Context, name, filename string, image []byte) (*annotation.Project, error) {
	body, ctype, err := multipartBody(server.ProjectImageField, filename, image, map[string]string{server.NameField: name})
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        apiPath("projects"),
		contentType: ctype,
		body:        body,
	})
	if err != nil {
		return nil, err
	}
	var p annotation.Project
	if err := decode(resp.body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ProjectImage downloads the cover image of a project as PNG.
func (c *Client) ProjectImage(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.do(ctx, request{method: http.MethodGet, path: apiPath("projects", id, "image"), idempotent: true})
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

// GetProject returns one project.
func (c *Client) GetProject(ctx context.Context, id string) (*annotation.Project, error) {
	var p annotation.Project
	if err := c.getJSON(ctx, apiPath("projects", id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// =============================================================================
// Screens
// =============================================================================

// ScreenUpload is a design image to add to a project.
type ScreenUpload struct {
	Filename string // must end in .png, .jpg or .jpeg
	Image    []byte
	Name     string                // defaults to the filename on the server
	Layers   *annotation.LayerNode // optional layer tree
}

// UploadScreen adds a screen to a project.
func (c *Client) UploadScreen(ctx context.Context, projectID string, up ScreenUpload) (*annotation.Screen, error) {
	fields := map[string]string{}
	if up.Name != "" {
		fields[server.NameField] = up.Name
	}
	if up.Layers != nil {
		raw, err := json.Marshal(up.Layers)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "encode layers")
		}
		fields[server.LayersField] = string(raw)
	}
	body, ctype, err := multipartBody(server.ScreenImageField, up.Filename, up.Image, fields)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        apiPath("screens", "project", projectID),
		contentType: ctype,
		body:        body,
	})
	if err != nil {
		return nil, err
	}
	var s annotation.Screen
	if err := decode(resp.body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetScreen returns a screen and its annotations in table order.
func (c *Client) GetScreen(ctx context.Context, id string) (*server.ScreenResponse, error) {
	var s server.ScreenResponse
	if err := c.getJSON(ctx, apiPath("screens", id), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ScreenImage downloads the stored PNG of a screen.
func (c *Client) ScreenImage(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.do(ctx, request{method: http.MethodGet, path: apiPath("screens", id, "image"), idempotent: true})
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

// =============================================================================
// Annotations
// =============================================================================

// CreateAnnotation places a new annotation at natural image coordinates.
// fields.Marker is required.
func (c *Client) CreateAnnotation(ctx context.Context, screenID string, x, y float64, fields annotation.Fields) (*annotation.Annotation, error) {
	req := server.CreateAnnotationRequest{X: &x, Y: &y, Fields: fields}
	var a annotation.Annotation
	if err := c.sendJSON(ctx, http.MethodPost, apiPath("screens", screenID, "annotations"), req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAnnotation edits an annotation's metadata.
func (c *Client) UpdateAnnotation(ctx context.Context, screenID, id string, fields annotation.Fields) (*annotation.Annotation, error) {
	var a annotation.Annotation
	if err := c.sendJSON(ctx, http.MethodPatch, apiPath("screens", screenID, "annotations", id), fields, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// MoveAnnotation stores a new natural-space position. It is sent once.
func (c *Client) MoveAnnotation(ctx context.Context, screenID, id string, x, y float64) error {
	req := server.CoordinatesRequest{X: &x, Y: &y}
	return c.sendJSON(ctx, http.MethodPut, apiPath("screens", screenID, "annotations", id, "coordinates"), req, nil)
}

// ScreenClient binds a client to one screen.
type ScreenClient struct {
	c        *Client
	screenID string
}

var _ placement.PositionUpdater = (*ScreenClient)(nil)

// Screen returns a position updater for the annotations of screenID.
func (c *Client) Screen(screenID string) *ScreenClient {
	return &ScreenClient{c: c, screenID: screenID}
}

// ID returns the bound screen id.
func (s *ScreenClient) ID() string { return s.screenID }

// UpdatePosition implements placement.PositionUpdater.
func (s *ScreenClient) UpdatePosition(ctx context.Context, annotationID string, x, y float64) error {
	return s.c.MoveAnnotation(ctx, s.screenID, annotationID, x, y)
}

// =============================================================================
// Export
// =============================================================================

// Document is a downloaded workbook.
type Document struct {
	Filename string
	Data     []byte
}

// Export sends the annotated capture of a screen and returns the workbook.
func (c *Client) Export(ctx context.Context, screenID, filename string, capture []byte) (*Document, error) {
	body, ctype, err := multipartBody(server.ExportImageField, filename, capture, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        apiPath("screens", screenID, "export"),
		contentType: ctype,
		body:        body,
	})
	if err != nil {
		return nil, err
	}

	doc := &Document{Data: resp.body, Filename: "BRD-" + screenID + ".xlsx"}
	if _, params, err := mime.ParseMediaType(resp.header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		doc.Filename = filepath.Base(params["filename"])
	}
	return doc, nil
}

// multipartBody encodes one file part plus plain fields. The part's content
// type is derived from the filename, which the server checks against its
// allow list.
func multipartBody(field, filename string, data []byte, fields map[string]string) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", apperrors.New(apperrors.ErrCodeMissingImage, "%s is empty", filename)
	}
	if err := apperrors.ValidateImageUpload(filepath.Base(filename), mime.TypeByExtension(filepath.Ext(filename))); err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filepath.Base(filename)))
	ctype := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	h.Set("Content-Type", ctype)
	w, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := w.Write(data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
