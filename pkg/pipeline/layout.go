package pipeline

import (
	"github.com/matzehuels/specsync/pkg/layout"
)

// =============================================================================
// Plan
// =============================================================================

// GeneratePlan computes the worksheet layout for an image of the given size.
// It is a thin wrapper used by callers that only need the plan, such as the
// CLI plan command.
func GeneratePlan(info layout.ImageInfo, opts Options) (layout.Plan, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return layout.Plan{}, err
	}
	planner, err := layout.NewPlanner(opts.Layout)
	if err != nil {
		return layout.Plan{}, err
	}
	return planner.Plan(info.Width, info.Height)
}
