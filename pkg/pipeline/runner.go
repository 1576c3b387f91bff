package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	apperrors "github.com/matzehuels/specsync/pkg/errors"
	"github.com/matzehuels/specsync/pkg/layout"
	"github.com/matzehuels/specsync/pkg/observability"
)

// Runner encapsulates export execution.
// Both CLI and API use this to avoid duplicating the stage wiring.
//
// The Runner is stateless except for its options and logger; it doesn't
// store export results. Multiple goroutines can safely use the same Runner.
type Runner struct {
	Options Options
	Logger  *log.Logger

	planner *layout.Planner
	err     error
}

// NewRunner creates a runner with the given options.
// If logger is nil, the default charm logger is used.
func NewRunner(opts Options, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logger
	}
	r := &Runner{Options: opts, Logger: logger}
	if r.err = r.Options.ValidateAndSetDefaults(); r.err == nil {
		r.planner, r.err = layout.NewPlanner(r.Options.Layout)
	}
	return r
}

// Export runs the complete image → plan → build pipeline.
// An empty capture is rejected with MISSING_IMAGE before any work is done.
func (r *Runner) Export(ctx context.Context, req Request) (*Result, error) {
	if r.err != nil {
		return nil, r.err
	}
	if len(req.Image) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeMissingImage, "export requires the annotated image")
	}
	if int64(len(req.Image)) > r.Options.MaxImageBytes {
		return nil, apperrors.New(apperrors.ErrCodeUploadTooLarge,
			"image is %d bytes, limit is %d", len(req.Image), r.Options.MaxImageBytes)
	}
	hooks := observability.Export()
	result := &Result{Filename: Filename(req.ScreenID)}

	// Stage 1: Image
	imageStart := time.Now()
	image, info, converted, err := PrepareImage(req.Image)
	if err != nil {
		return nil, err
	}
	result.Image = info
	result.Converted = converted
	result.Stats.ImageTime = time.Since(imageStart)

	r.Logger.Debug("probed image",
		"format", info.Format,
		"width", info.Width,
		"height", info.Height,
		"converted", converted)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 2: Plan
	planStart := time.Now()
	plan, err := r.planner.Plan(info.Width, info.Height)
	if err != nil {
		return nil, err
	}
	result.Plan = plan
	result.Stats.PlanTime = time.Since(planStart)
	hooks.OnPlan(ctx, info.Width, info.Height, plan.DisplayWidth, plan.DisplayHeight, plan.TableStartColumn)

	r.Logger.Debug("computed layout plan",
		"display_width", plan.DisplayWidth,
		"display_height", plan.DisplayHeight,
		"table_column", plan.TableStartColumn,
		"table_row", plan.TableStartRow)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 3: Build
	rows := len(req.Annotations)
	hooks.OnBuildStart(ctx, rows)
	buildStart := time.Now()
	doc, err := Render(req.Annotations, image, plan, r.Options)
	result.Stats.BuildTime = time.Since(buildStart)
	hooks.OnBuildComplete(ctx, rows, len(doc), result.Stats.BuildTime, err)
	if err != nil {
		return nil, err
	}
	result.Document = doc
	result.Stats.Rows = rows
	result.Stats.Bytes = len(doc)

	r.Logger.Info("exported document",
		"screen", req.ScreenID,
		"rows", rows,
		"bytes", len(doc),
		"duration", result.Stats.ImageTime+result.Stats.PlanTime+result.Stats.BuildTime)

	return result, nil
}

// Plan computes the layout for an image without building a document.
func (r *Runner) Plan(image []byte) (layout.Plan, layout.ImageInfo, error) {
	if r.err != nil {
		return layout.Plan{}, layout.ImageInfo{}, r.err
	}
	info, err := layout.ProbeImage(image)
	if err != nil {
		return layout.Plan{}, layout.ImageInfo{}, err
	}
	plan, err := r.planner.Plan(info.Width, info.Height)
	return plan, info, err
}
