package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/matzehuels/specsync/pkg/layout"
	"github.com/matzehuels/specsync/pkg/pipeline"
)

type planOptions struct {
	columnWidth int
	maxHeight   int
	json        bool
}

// planReport is the --json output of the plan command.
type planReport struct {
	Image layout.ImageInfo `json:"image"`
	Plan  layout.Plan      `json:"plan"`
	Cell  string           `json:"table_cell"`
}

// planCommand creates the plan command that previews a worksheet layout.
func (c *CLI) planCommand() *cobra.Command {
	var opts planOptions

	cmd := &cobra.Command{
		Use:   "plan <image>",
		Short: "Preview where an image and its table land on the worksheet",
		Long: `Preview where an image and its table land on the worksheet.

The image is scaled to the configured maximum height and the annotation
table starts a fixed number of columns to its right.`,
		Example: `  specsync plan capture.png
  specsync plan capture.png --column-width 64 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlan(args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.columnWidth, "column-width", 0, "pixel width of one worksheet column (default from config)")
	cmd.Flags().IntVar(&opts.maxHeight, "max-height", 0, "maximum display height in pixels (default from config)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the plan as JSON")

	return cmd
}

func (c *CLI) runPlan(path string, opts planOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	exportOpts := c.config().Export
	if opts.columnWidth != 0 {
		exportOpts.Layout.ColumnPixelWidth = opts.columnWidth
	}
	if opts.maxHeight != 0 {
		exportOpts.Layout.MaxHeight = opts.maxHeight
	}
	runner := pipeline.NewRunner(exportOpts, c.Logger)

	plan, info, err := runner.Plan(data)
	if err != nil {
		return err
	}
	cell, err := tableCell(plan)
	if err != nil {
		return err
	}

	if opts.json {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(planReport{Image: info, Plan: plan, Cell: cell})
	}

	printKeyValue("Image", fmt.Sprintf("%d×%d %s", info.Width, info.Height, info.Format))
	printKeyValue("Display", fmt.Sprintf("%.1f×%.1f (scale %.3f)", plan.DisplayWidth, plan.DisplayHeight, plan.Scale(info.Height)))
	printKeyValue("Table", fmt.Sprintf("%s (column %d, row %d)", cell, plan.TableStartColumn, plan.TableStartRow))
	if !info.Embeddable() {
		printDetail("%s captures are converted to PNG on export", info.Format)
	}
	return nil
}

// tableCell names the header cell the table starts at, e.g. "J5".
func tableCell(p layout.Plan) (string, error) {
	return excelize.CoordinatesToCellName(p.TableStartColumn, p.TableStartRow)
}
