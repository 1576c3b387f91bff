// Package pipeline provides the Visual BRD export pipeline for SpecSync.
//
// This package implements the complete probe → plan → build pipeline that is
// used by both the CLI (offline export) and the HTTP API. By centralizing this
// logic, both entry points produce byte-for-byte the same workbook layout for
// the same inputs.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Image: probe the captured image and normalise formats that cannot be
//     embedded in a workbook (for example WebP) to PNG
//  2. Plan: compute the image scaling and table origin with package layout
//  3. Build: render the workbook with package brd
//
// Nothing is cached: the plan depends on the exact capture sent with each
// export and is recomputed every time.
//
// # Usage
//
//	runner := pipeline.NewRunner(pipeline.Options{}, logger)
//	result, err := runner.Export(ctx, pipeline.Request{
//	    ScreenID:    screen.ID,
//	    Annotations: annotations,
//	    Image:       capture,
//	})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile(result.Filename, result.Document, 0o644)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/specsync/pkg/annotation"
	apperrors "github.com/matzehuels/specsync/pkg/errors"
	"github.com/matzehuels/specsync/pkg/layout"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultMaxImageBytes is the largest capture accepted for an export.
	// This matches the upload limit of the HTTP API.
	DefaultMaxImageBytes = 10 << 20

	// FilenamePrefix starts every exported document name.
	FilenamePrefix = "BRD"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains the configuration of the export pipeline.
type Options struct {
	// Layout tunes image scaling and the table origin.
	Layout layout.Config `json:"layout" toml:"layout"`

	// MaxImageBytes caps the size of the capture. Zero means DefaultMaxImageBytes.
	MaxImageBytes int64 `json:"max_image_bytes,omitempty" toml:"max_image_bytes"`

	// Runtime options (not serialized)
	Logger *log.Logger      `json:"-" toml:"-"`
	Now    func() time.Time `json:"-" toml:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults applies defaults and checks the configuration.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.Layout.SetDefaults()
	if err := o.Layout.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "layout options")
	}
	if o.MaxImageBytes == 0 {
		o.MaxImageBytes = DefaultMaxImageBytes
	}
	if o.MaxImageBytes < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "max_image_bytes cannot be negative")
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	o.validated = true
	return nil
}

// =============================================================================
// Requests and Results
// =============================================================================

// Request is one export: the annotations of a screen in table order and the
// annotated capture produced by the client.
type Request struct {
	ScreenID    string                  `json:"screen_id,omitempty"`
	Annotations []annotation.Annotation `json:"annotations"`
	Image       []byte                  `json:"-"`
}

// Result contains the outputs of an export.
type Result struct {
	// Document is the serialized xlsx workbook.
	Document []byte

	// Filename is the suggested attachment name, e.g. BRD-<screen>.xlsx.
	Filename string

	// Plan is the layout used for the document.
	Plan layout.Plan

	// Image describes the capture as it was embedded.
	Image layout.ImageInfo

	// Converted is true when the capture was re-encoded to PNG.
	Converted bool

	// Stats contains timing and size information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Rows      int
	Bytes     int
	ImageTime time.Duration
	PlanTime  time.Duration
	BuildTime time.Duration
}

// Filename returns the attachment name for a screen's document.
func Filename(screenID string) string {
	if screenID == "" {
		return FilenamePrefix + ".xlsx"
	}
	return FilenamePrefix + "-" + screenID + ".xlsx"
}
