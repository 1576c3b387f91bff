package pipeline

import (
	"github.com/matzehuels/specsync/pkg/annotation"
	"github.com/matzehuels/specsync/pkg/brd"
	apperrors "github.com/matzehuels/specsync/pkg/errors"
	"github.com/matzehuels/specsync/pkg/layout"
)

// =============================================================================
// Build
// =============================================================================

// Render builds the workbook for a prepared image and its plan.
// Annotations with a blank marker are still written; their marker cell is
// left empty.
func Render(annotations []annotation.Annotation, image []byte, plan layout.Plan, opts Options) ([]byte, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	for i, a := range annotations {
		if err := apperrors.ValidateMarker(a.Marker); err != nil {
			opts.Logger.Debug("annotation has malformed marker", "row", i+1, "id", a.ID, "err", err)
		}
	}
	b := brd.Builder{Now: opts.Now}
	return b.Build(annotations, image, plan)
}
