package io

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	apperrors "github.com/matzehuels/specsync/pkg/errors"
	"github.com/matzehuels/specsync/pkg/geometry"
)

// ReadJSON decodes an annotation file from r. Both the object and the bare
// array form are accepted; File.Screen is nil for the latter.
//
// Errors carry INVALID_INPUT for undecodable input, MALFORMED_ANNOTATION for
// bad markers or duplicate ids and INVALID_POSITION for bad coordinates.
// ReadJSON does not close r.
func ReadJSON(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "read annotations")
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "annotation file is empty")
	}

	var f File
	if data[0] == '[' {
		err = json.Unmarshal(data, &f.Annotations)
	} else {
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "decode annotations")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// ImportJSON reads the annotation file at path.
func ImportJSON(path string) (*File, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	f, err := ReadJSON(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.GetCode(err), err, "%s", path)
	}
	return f, nil
}

// Validate checks every annotation of f.
func (f *File) Validate() error {
	var natural geometry.Size
	if f.Screen != nil {
		natural = geometry.Size{Width: float64(f.Screen.ImageWidth), Height: float64(f.Screen.ImageHeight)}
	}
	seen := make(map[string]bool, len(f.Annotations))

	for i, a := range f.Annotations {
		if err := apperrors.ValidateMarker(a.Marker); err != nil {
			return apperrors.Wrap(apperrors.ErrCodeMalformedAnnotation, err, "annotation %d", i+1)
		}
		if err := apperrors.ValidatePosition(a.X, a.Y); err != nil {
			return apperrors.Wrap(apperrors.ErrCodeInvalidPosition, err, "annotation %d", i+1)
		}
		if natural.Width > 0 && natural.Height > 0 && !geometry.Within(geometry.Point{X: a.X, Y: a.Y}, natural) {
			return apperrors.New(apperrors.ErrCodeInvalidPosition,
				"annotation %d at (%v, %v) is outside the %vx%v image", i+1, a.X, a.Y, natural.Width, natural.Height)
		}
		if a.ID == "" {
			continue
		}
		if seen[a.ID] {
			return apperrors.New(apperrors.ErrCodeMalformedAnnotation, "duplicate annotation id %q", a.ID)
		}
		seen[a.ID] = true
	}
	return nil
}

// ScreenID returns the id of the screen the file was pulled from, if known.
func (f *File) ScreenID() string {
	if f.Screen == nil {
		return ""
	}
	return f.Screen.ID
}
