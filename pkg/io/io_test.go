package io

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/specsync/pkg/annotation"
	apperrors "github.com/matzehuels/specsync/pkg/errors"
)

func TestReadJSONForms(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		screenID string
		markers  []string
	}{
		{
			name:    "bare array",
			input:   `[{"id":"a1","marker":"1","x":1,"y":2},{"id":"a2","marker":"2","x":3,"y":4}]`,
			markers: []string{"1", "2"},
		},
		{
			name:     "screen response",
			input:    `{"screen":{"id":"s1","imageWidth":100,"imageHeight":50},"annotations":[{"marker":"A","x":100,"y":50}]}`,
			screenID: "s1",
			markers:  []string{"A"},
		},
		{
			name:    "empty array",
			input:   "  []\n",
			markers: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ReadJSON(strings.NewReader(tt.input))
			if err != nil {
				t.Fatal(err)
			}
			if f.ScreenID() != tt.screenID {
				t.Errorf("ScreenID() = %q, want %q", f.ScreenID(), tt.screenID)
			}
			if len(f.Annotations) != len(tt.markers) {
				t.Fatalf("got %d annotations, want %d", len(f.Annotations), len(tt.markers))
			}
			for i, m := range tt.markers {
				if f.Annotations[i].Marker != m {
					t.Errorf("annotation %d marker = %q, want %q", i, f.Annotations[i].Marker, m)
				}
			}
		})
	}
}

func TestReadJSONErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  apperrors.Code
	}{
		{"empty", "", apperrors.ErrCodeInvalidInput},
		{"not json", "markers", apperrors.ErrCodeInvalidInput},
		{"wrong type", `[{"x":"left"}]`, apperrors.ErrCodeInvalidInput},
		{"missing marker", `[{"x":1,"y":1}]`, apperrors.ErrCodeMalformedAnnotation},
		{"negative", `[{"marker":"1","x":-1,"y":1}]`, apperrors.ErrCodeInvalidPosition},
		{"outside image", `{"screen":{"imageWidth":10,"imageHeight":10},"annotations":[{"marker":"1","x":11,"y":1}]}`, apperrors.ErrCodeInvalidPosition},
		{"duplicate id", `[{"id":"a","marker":"1"},{"id":"a","marker":"2"}]`, apperrors.ErrCodeMalformedAnnotation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tt.input))
			if !apperrors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestValidateNonFinite(t *testing.T) {
	f := &File{Annotations: []annotation.Annotation{{Marker: "1", X: math.NaN()}}}
	if err := f.Validate(); !apperrors.Is(err, apperrors.ErrCodeInvalidPosition) {
		t.Errorf("err = %v, want INVALID_POSITION", err)
	}
}

func TestRoundTrip(t *testing.T) {
	in := &File{
		Screen: &annotation.Screen{ID: "s1", Name: "Cart", ImageWidth: 400, ImageHeight: 300},
		Annotations: []annotation.Annotation{
			{ID: "a1", Marker: "1", X: 10, Y: 20, Section: annotation.String("Header"), IsRequired: true},
			{ID: "a2", Marker: "2", X: 400, Y: 300},
		},
	}
	path := filepath.Join(t.TempDir(), "nested", "notes.json")
	if err := ExportJSON(in, path); err != nil {
		t.Fatal(err)
	}
	out, err := ImportJSON(path)
	if err != nil {
		t.Fatal(err)
	}
	if out.ScreenID() != "s1" || len(out.Annotations) != 2 {
		t.Fatalf("out = %+v", out)
	}
	a := out.Annotations[0]
	if annotation.Value(a.Section) != "Header" || !a.IsRequired || a.X != 10 {
		t.Errorf("annotation = %+v", a)
	}
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&File{}, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"annotations": []`) {
		t.Errorf("output = %s, want an empty annotations array", buf.String())
	}
	if _, err := ReadJSON(&buf); err != nil {
		t.Errorf("re-read: %v", err)
	}
}

func TestImportJSONNamesFile(t *testing.T) {
	_, err := ImportJSON(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
