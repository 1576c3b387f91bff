// Package layout computes where the screenshot and the annotation table go on
// a Visual BRD worksheet.
//
// A [Plan] is derived fresh for every export from the pixel size of the
// captured image. The image is scaled down (never up) to a fixed maximum
// height with its aspect ratio preserved, and the table starts a fixed number
// of columns to the right of the scaled image:
//
//	displayHeight    = min(height, MaxHeight)
//	displayWidth     = displayHeight * width / height
//	tableStartColumn = floor(displayWidth / ColumnPixelWidth) + MarginColumns
//
// Columns and rows are 1-based, as in the spreadsheet itself.
package layout

import (
	"fmt"
	"math"

	apperrors "github.com/matzehuels/specsync/pkg/errors"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultMaxHeight is the tallest the embedded image is drawn, in pixels.
	DefaultMaxHeight = 450

	// DefaultColumnPixelWidth is the assumed pixel width of one worksheet
	// column when deciding how many columns the image covers.
	DefaultColumnPixelWidth = 75

	// DefaultMarginColumns is the number of columns added after the image
	// before the table begins.
	DefaultMarginColumns = 5

	// DefaultTableStartRow is the header row of the annotation table.
	DefaultTableStartRow = 5
)

// Config holds the tunables of the planner. Zero fields take their defaults,
// so every field is effectively positive: margin_columns = 0 in a config file
// means the default margin, not a table flush against the image.
type Config struct {
	MaxHeight        int `toml:"max_height" json:"max_height"`
	ColumnPixelWidth int `toml:"column_pixel_width" json:"column_pixel_width"`
	MarginColumns    int `toml:"margin_columns" json:"margin_columns"`
	TableStartRow    int `toml:"table_start_row" json:"table_start_row"`
}

// DefaultConfig returns the planner configuration used by Visual BRD exports.
func DefaultConfig() Config {
	return Config{
		MaxHeight:        DefaultMaxHeight,
		ColumnPixelWidth: DefaultColumnPixelWidth,
		MarginColumns:    DefaultMarginColumns,
		TableStartRow:    DefaultTableStartRow,
	}
}

// SetDefaults fills zero fields with their defaults.
func (c *Config) SetDefaults() {
	if c.MaxHeight == 0 {
		c.MaxHeight = DefaultMaxHeight
	}
	if c.ColumnPixelWidth == 0 {
		c.ColumnPixelWidth = DefaultColumnPixelWidth
	}
	if c.MarginColumns == 0 {
		c.MarginColumns = DefaultMarginColumns
	}
	if c.TableStartRow == 0 {
		c.TableStartRow = DefaultTableStartRow
	}
}

// Validate rejects values that cannot place a table. Call SetDefaults first.
func (c Config) Validate() error {
	switch {
	case c.MaxHeight <= 0:
		return fmt.Errorf("max_height must be positive, got %d", c.MaxHeight)
	case c.ColumnPixelWidth <= 0:
		return fmt.Errorf("column_pixel_width must be positive, got %d", c.ColumnPixelWidth)
	case c.MarginColumns <= 0:
		return fmt.Errorf("margin_columns must be positive, got %d", c.MarginColumns)
	case c.TableStartRow < 2:
		return fmt.Errorf("table_start_row must be at least 2, got %d", c.TableStartRow)
	}
	return nil
}

// =============================================================================
// Planner
// =============================================================================

// Plan is the placement of the image and table on the worksheet.
type Plan struct {
	DisplayWidth     float64 `json:"display_width"`
	DisplayHeight    float64 `json:"display_height"`
	TableStartColumn int     `json:"table_start_column"`
	TableStartRow    int     `json:"table_start_row"`
}

// Scale returns the factor applied to the source image.
func (p Plan) Scale(height int) float64 {
	if height <= 0 {
		return 0
	}
	return p.DisplayHeight / float64(height)
}

// Planner derives plans from image dimensions. The zero value is not usable;
// create one with [NewPlanner].
type Planner struct {
	cfg Config
}

// NewPlanner returns a planner for cfg, applying defaults to zero fields.
func NewPlanner(cfg Config) (*Planner, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "layout config")
	}
	return &Planner{cfg: cfg}, nil
}

// Config returns the effective configuration.
func (p *Planner) Config() Config { return p.cfg }

// Plan computes the layout for an image of width x height pixels.
func (p *Planner) Plan(width, height int) (Plan, error) {
	if width <= 0 || height <= 0 {
		return Plan{}, apperrors.New(apperrors.ErrCodeMissingImage,
			"image has no usable dimensions (%dx%d)", width, height)
	}

	displayHeight := float64(min(height, p.cfg.MaxHeight))
	displayWidth := displayHeight * (float64(width) / float64(height))

	return Plan{
		DisplayWidth:     displayWidth,
		DisplayHeight:    displayHeight,
		TableStartColumn: int(math.Floor(displayWidth/float64(p.cfg.ColumnPixelWidth))) + p.cfg.MarginColumns,
		TableStartRow:    p.cfg.TableStartRow,
	}, nil
}
