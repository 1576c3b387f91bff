package io

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/matzehuels/specsync/pkg/annotation"
)

// File is an annotation file. Its JSON form matches the screen endpoint of
// the HTTP API, so a downloaded screen can be exported offline as-is.
type File struct {
	Screen      *annotation.Screen      `json:"screen,omitempty"`
	Annotations []annotation.Annotation `json:"annotations"`
}

// WriteJSON encodes f as indented JSON. The output can be re-read with
// [ReadJSON].
func WriteJSON(f *File, w io.Writer) error {
	out := *f
	if out.Annotations == nil {
		out.Annotations = []annotation.Annotation{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// ExportJSON writes f to path, creating parent directories.
func ExportJSON(f *File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
