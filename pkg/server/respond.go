package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	apperrors "github.com/matzehuels/specsync/pkg/errors"
)

// maxJSONBytes caps JSON request bodies.
const maxJSONBytes = 1 << 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and a JSON body. Internal failures are
// logged and reported without their cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	code := apperrors.GetCode(err)
	msg := apperrors.UserMessage(err)
	if code == "" {
		code = apperrors.ErrCodeInternal
	}
	if status >= http.StatusInternalServerError {
		loggerFrom(r.Context()).Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		if code == apperrors.ErrCodeInternal {
			msg = "internal server error"
		}
	}
	writeJSON(w, status, ErrorResponse{Code: code, Message: msg})
}

// readJSON decodes a JSON body into v, rejecting unknown fields and trailing
// data.
func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.New(apperrors.ErrCodeInvalidInput, "request body is empty")
		}
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid JSON body")
	}
	if dec.More() {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "request body must contain a single JSON object")
	}
	return nil
}

// isMultipart reports whether the request body is multipart/form-data.
func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mt, "multipart/")
}

func notFoundRoute(r *http.Request) error {
	return apperrors.New(apperrors.ErrCodeNotFound, "no route for %s %s", r.Method, r.URL.Path)
}

func writeMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Code:    apperrors.ErrCodeUnsupported,
		Message: r.Method + " is not allowed on " + r.URL.Path,
	})
}
