// Package brd renders a Visual BRD workbook: the annotated screenshot on the
// left and one table row of requirement metadata per annotation on the right.
//
// Where things go is decided by a [layout.Plan]; this package only draws.
// The worksheet looks like this (columns and rows 1-based):
//
//	row 1           merged title, A1 through TableStartColumn+10
//	B3              the image, scaled to DisplayWidth x DisplayHeight
//	TableStartRow   header row starting at TableStartColumn
//	below           one row per annotation, in input order
//
// Styling is fixed. Building is pure: no files are touched and either a
// complete workbook or an error is returned.
package brd

import (
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/matzehuels/specsync/pkg/annotation"
	apperrors "github.com/matzehuels/specsync/pkg/errors"
	"github.com/matzehuels/specsync/pkg/layout"
)

const (
	// SheetName is the name of the single worksheet.
	SheetName = "Visual BRD"

	// Title is written into the merged title cell.
	Title = "Visual Business Requirements Document"

	// Creator is recorded in the workbook properties.
	Creator = "SpecSync"

	// ImageCell is the top-left anchor of the embedded image.
	ImageCell = "B3"

	// ContentType is the MIME type of the serialized workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	titleSpan    = 10
	titleHeight  = 40
	headerHeight = 30

	headerFill = "4F81BD"
	stripeFill = "DCE6F1"
)

// Builder renders workbooks. The zero value is ready to use.
type Builder struct {
	// Now returns the creation timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Build renders a workbook with the default builder.
func Build(annotations []annotation.Annotation, image []byte, plan layout.Plan) ([]byte, error) {
	var b Builder
	return b.Build(annotations, image, plan)
}

// Build renders annotations and the annotated image into xlsx bytes.
// The image must be PNG or JPEG.
func (b *Builder) Build(annotations []annotation.Annotation, image []byte, plan layout.Plan) ([]byte, error) {
	info, err := layout.ProbeImage(image)
	if err != nil {
		return nil, err
	}
	if !info.Embeddable() {
		return nil, apperrors.New(apperrors.ErrCodeUnsupported, "cannot embed %s image", info.Format)
	}
	if plan.TableStartColumn < 1 || plan.TableStartRow < 1 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput,
			"invalid table origin (column %d, row %d)", plan.TableStartColumn, plan.TableStartRow)
	}

	f := excelize.NewFile()
	defer f.Close()

	w := &writer{f: f, plan: plan}
	steps := []func() error{
		func() error { return w.setup(b.now()) },
		w.styles,
		w.title,
		func() error { return w.image(image, info) },
		w.header,
		func() error { return w.rows(annotations) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "build workbook")
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "serialize workbook")
	}
	return buf.Bytes(), nil
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// =============================================================================
// Worksheet drawing
// =============================================================================

type writer struct {
	f    *excelize.File
	plan layout.Plan

	titleStyle  int
	headerStyle int
	rowStyle    int
	stripeStyle int
}

func (w *writer) setup(created time.Time) error {
	if err := w.f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	return w.f.SetDocProps(&excelize.DocProperties{
		Creator:        Creator,
		LastModifiedBy: Creator,
		Title:          Title,
		Created:        created.UTC().Format(time.RFC3339),
		Modified:       created.UTC().Format(time.RFC3339),
	})
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "top", Color: "000000", Style: 1},
		{Type: "left", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
}

func (w *writer) styles() error {
	var err error
	if w.titleStyle, err = w.f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Calibri", Size: 18, Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}); err != nil {
		return err
	}
	if w.headerStyle, err = w.f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    thinBorder(),
	}); err != nil {
		return err
	}
	body := &excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true}
	if w.rowStyle, err = w.f.NewStyle(&excelize.Style{
		Alignment: body,
		Border:    thinBorder(),
	}); err != nil {
		return err
	}
	w.stripeStyle, err = w.f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{stripeFill}},
		Alignment: body,
		Border:    thinBorder(),
	})
	return err
}

func (w *writer) title() error {
	end, err := excelize.CoordinatesToCellName(w.plan.TableStartColumn+titleSpan, 1)
	if err != nil {
		return err
	}
	if err := w.f.MergeCell(SheetName, "A1", end); err != nil {
		return err
	}
	if err := w.f.SetCellValue(SheetName, "A1", Title); err != nil {
		return err
	}
	if err := w.f.SetCellStyle(SheetName, "A1", end, w.titleStyle); err != nil {
		return err
	}
	return w.f.SetRowHeight(SheetName, 1, titleHeight)
}

func (w *writer) image(data []byte, info layout.ImageInfo) error {
	return w.f.AddPictureFromBytes(SheetName, ImageCell, &excelize.Picture{
		Extension: info.Extension(),
		File:      data,
		Format: &excelize.GraphicOptions{
			AltText:         "Annotated screen",
			ScaleX:          w.plan.DisplayWidth / float64(info.Width),
			ScaleY:          w.plan.DisplayHeight / float64(info.Height),
			LockAspectRatio: true,
			Positioning:     "oneCell",
		},
	})
}

func (w *writer) header() error {
	row := w.plan.TableStartRow
	for i, col := range columns {
		name, err := excelize.ColumnNumberToName(w.plan.TableStartColumn + i)
		if err != nil {
			return err
		}
		if err := w.f.SetColWidth(SheetName, name, name, col.Width); err != nil {
			return err
		}
		if err := w.f.SetCellValue(SheetName, name+strconv.Itoa(row), col.Header); err != nil {
			return err
		}
	}
	first, last, err := w.span(row)
	if err != nil {
		return err
	}
	if err := w.f.SetCellStyle(SheetName, first, last, w.headerStyle); err != nil {
		return err
	}
	return w.f.SetRowHeight(SheetName, row, headerHeight)
}

func (w *writer) rows(annotations []annotation.Annotation) error {
	for i, a := range annotations {
		row := w.plan.TableStartRow + 1 + i
		for j, col := range columns {
			cell, err := excelize.CoordinatesToCellName(w.plan.TableStartColumn+j, row)
			if err != nil {
				return err
			}
			if err := w.f.SetCellValue(SheetName, cell, col.Value(a)); err != nil {
				return err
			}
		}

		first, last, err := w.span(row)
		if err != nil {
			return err
		}
		style := w.rowStyle
		if (i+1)%2 != 0 {
			style = w.stripeStyle
		}
		if err := w.f.SetCellStyle(SheetName, first, last, style); err != nil {
			return err
		}
	}
	return nil
}

// span returns the first and last table cells of row.
func (w *writer) span(row int) (string, string, error) {
	first, err := excelize.CoordinatesToCellName(w.plan.TableStartColumn, row)
	if err != nil {
		return "", "", err
	}
	last, err := excelize.CoordinatesToCellName(w.plan.TableStartColumn+len(columns)-1, row)
	if err != nil {
		return "", "", err
	}
	return first, last, nil
}
