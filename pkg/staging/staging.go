// Package staging receives multipart image uploads into a temporary
// directory before they are processed.
//
// An upload is accepted only when it is a PNG or JPEG (checked by both
// extension and declared MIME type) and no larger than the configured limit.
// The staged file must always be released with [File.Cleanup], which is safe
// to call more than once; handlers defer it right after staging so a failure
// at any later step still removes the file.
package staging

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "github.com/matzehuels/specsync/pkg/errors"
)

// DefaultMaxBytes is the per-file upload limit.
const DefaultMaxBytes = 10 << 20

// maxValueBytes caps each non-file form field (for example the layer tree).
const maxValueBytes = 1 << 20

// Stager writes uploads into a directory.
type Stager struct {
	dir      string
	maxBytes int64
}

// New creates a stager writing into dir (created if needed). An empty dir
// uses the system temp directory; a non-positive maxBytes uses DefaultMaxBytes.
func New(dir string, maxBytes int64) (*Stager, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "specsync-uploads")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Stager{dir: dir, maxBytes: maxBytes}, nil
}

// Dir returns the staging directory.
func (s *Stager) Dir() string { return s.dir }

// MaxBytes returns the per-file limit.
func (s *Stager) MaxBytes() int64 { return s.maxBytes }

// File is one staged upload.
type File struct {
	Path        string // location in the staging directory
	Name        string // client-supplied file name
	ContentType string
	Size        int64

	once sync.Once
	err  error
}

// Read returns the staged bytes.
func (f *File) Read() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// BaseName returns Name without its image extension.
func (f *File) BaseName() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

// Cleanup removes the staged file. It is idempotent and nil-safe.
func (f *File) Cleanup() error {
	if f == nil {
		return nil
	}
	f.once.Do(func() {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			f.err = err
		}
	})
	return f.err
}

// Upload is a parsed multipart request.
type Upload struct {
	File   *File             // nil when the file field was absent
	Values map[string]string // other form fields
}

// Cleanup releases the staged file, if any.
func (u *Upload) Cleanup() error {
	if u == nil {
		return nil
	}
	return u.File.Cleanup()
}

// Receive streams a multipart request, staging the part named field and
// collecting every other non-file field into Values. A missing file part is
// not an error; callers decide whether the file is required.
func (s *Stager) Receive(r *http.Request, field string) (*Upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidUpload, err, "expected multipart/form-data")
	}

	up := &Upload{Values: make(map[string]string)}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			up.Cleanup()
			return nil, apperrors.Wrap(apperrors.ErrCodeInvalidUpload, err, "read multipart body")
		}

		switch {
		case part.FormName() == field && part.FileName() != "":
			if up.File != nil {
				part.Close()
				up.Cleanup()
				return nil, apperrors.New(apperrors.ErrCodeInvalidUpload, "only one %q file is accepted", field)
			}
			f, err := s.stage(part)
			part.Close()
			if err != nil {
				up.Cleanup()
				return nil, err
			}
			up.File = f
		case part.FileName() == "":
			v, err := io.ReadAll(io.LimitReader(part, maxValueBytes+1))
			part.Close()
			if err != nil {
				up.Cleanup()
				return nil, apperrors.Wrap(apperrors.ErrCodeInvalidUpload, err, "read form field %q", part.FormName())
			}
			if len(v) > maxValueBytes {
				up.Cleanup()
				return nil, apperrors.New(apperrors.ErrCodeUploadTooLarge, "form field %q is too large", part.FormName())
			}
			up.Values[part.FormName()] = string(v)
		default:
			// Unexpected file fields are drained and dropped.
			_, _ = io.Copy(io.Discard, part)
			part.Close()
		}
	}
	return up, nil
}

func (s *Stager) stage(part *multipart.Part) (*File, error) {
	name := filepath.Base(part.FileName())
	ctype := part.Header.Get("Content-Type")
	if err := apperrors.ValidateImageUpload(name, ctype); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.dir, "upload-*"+strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "create staging file")
	}
	f := &File{Path: tmp.Name(), Name: name, ContentType: ctype}

	n, err := io.Copy(tmp, io.LimitReader(part, s.maxBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		f.Cleanup()
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidUpload, err, "stage %s", name)
	}
	if n > s.maxBytes {
		f.Cleanup()
		return nil, apperrors.New(apperrors.ErrCodeUploadTooLarge, "%s exceeds the %d byte limit", name, s.maxBytes)
	}
	if n == 0 {
		f.Cleanup()
		return nil, apperrors.New(apperrors.ErrCodeMissingImage, "%s is empty", name)
	}
	f.Size = n
	return f, nil
}
