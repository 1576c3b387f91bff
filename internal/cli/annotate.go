package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/specsync/pkg/annotation"
	"github.com/matzehuels/specsync/pkg/client"
	apperrors "github.com/matzehuels/specsync/pkg/errors"
	"github.com/matzehuels/specsync/pkg/geometry"
	pkgio "github.com/matzehuels/specsync/pkg/io"
	"github.com/matzehuels/specsync/pkg/placement"
)

// annotateCommand groups the remote commands that edit a screen.
func (c *CLI) annotateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Upload screens and place annotations on a server",
	}
	cmd.AddCommand(c.annotateUploadCommand())
	cmd.AddCommand(c.annotateListCommand())
	cmd.AddCommand(c.annotatePullCommand())
	cmd.AddCommand(c.annotateAddCommand())
	cmd.AddCommand(c.annotateEditCommand())
	cmd.AddCommand(c.annotateMoveCommand())
	return cmd
}

// =============================================================================
// Upload
// =============================================================================

func (c *CLI) annotateUploadCommand() *cobra.Command {
	var (
		flags  remoteFlags
		name   string
		layers string
	)

	cmd := &cobra.Command{
		Use:   "upload <project-id> <image>",
		Short: "Upload a design image as a new screen",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, err := c.newClient(ctx, flags)
			if err != nil {
				return err
			}
			up := client.ScreenUpload{Filename: filepath.Base(args[1]), Name: name}
			if up.Image, err = os.ReadFile(args[1]); err != nil {
				return err
			}
			if layers != "" {
				if up.Layers, err = readLayers(layers); err != nil {
					return err
				}
			}

			spinner := newSpinnerWithContext(ctx, "Uploading "+up.Filename+"...")
			spinner.Start()
			screen, err := api.UploadScreen(ctx, args[0], up)
			spinner.Stop()
			if err != nil {
				return err
			}

			printSuccess("Uploaded %s", StyleValue.Render(screen.Name))
			printKeyValue("Screen", screen.ID)
			printKeyValue("Size", fmt.Sprintf("%d×%d", screen.ImageWidth, screen.ImageHeight))
			if screen.Layers != nil {
				printKeyValue("Layers", strconv.Itoa(screen.Layers.Count()))
			}
			printNewline()
			printNextStep("Annotate it with", "specsync annotate add "+screen.ID+" --x <x> --y <y> --marker 1")
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "screen name (default: file name)")
	cmd.Flags().StringVar(&layers, "layers", "", "layer tree JSON exported by the design plugin")

	return cmd
}

func readLayers(path string) (*annotation.LayerNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var root annotation.LayerNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "parse %s", path)
	}
	return &root, nil
}

// =============================================================================
// List
// =============================================================================

func (c *CLI) annotateListCommand() *cobra.Command {
	var (
		flags  remoteFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list <screen-id>",
		Short: "List the annotations of a screen in table order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, err := c.newClient(ctx, flags)
			if err != nil {
				return err
			}
			view, err := api.GetScreen(ctx, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			fmt.Fprintln(stdout, StyleTitle.Render(view.Screen.Name))
			fmt.Fprintln(stdout, renderAnnotations(view.Annotations))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the screen and annotations as JSON")

	return cmd
}

func (c *CLI) annotatePullCommand() *cobra.Command {
	var (
		flags  remoteFlags
		output string
		image  bool
	)

	cmd := &cobra.Command{
		Use:   "pull <screen-id>",
		Short: "Download a screen's annotations for offline export",
		Example: `  specsync annotate pull 2f0c... -o notes.json --image
  specsync export --annotations notes.json --image notes.png --draw-markers`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, err := c.newClient(ctx, flags)
			if err != nil {
				return err
			}
			view, err := api.GetScreen(ctx, args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = args[0] + ".json"
			}
			if err := pkgio.ExportJSON(&pkgio.File{Screen: view.Screen, Annotations: view.Annotations}, output); err != nil {
				return err
			}
			printSuccess("Pulled %s", pluralize(len(view.Annotations), "annotation"))
			printFile(output)

			if image {
				data, err := api.ScreenImage(ctx, args[0])
				if err != nil {
					return err
				}
				path := strings.TrimSuffix(output, filepath.Ext(output)) + ".png"
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return err
				}
				printFile(path)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <screen-id>.json)")
	cmd.Flags().BoolVar(&image, "image", false, "also download the screen image next to the file")

	return cmd
}

// renderAnnotations draws a compact table of markers and positions.
func renderAnnotations(notes []annotation.Annotation) string {
	rows := make([][]string, 0, len(notes))
	for _, a := range notes {
		required := ""
		if a.IsRequired {
			required = iconSuccess
		}
		rows = append(rows, []string{
			a.Marker,
			fmt.Sprintf("%.0f, %.0f", a.X, a.Y),
			annotation.Value(a.Section),
			annotation.Value(a.AuthoringFieldName),
			required,
			a.ID,
		})
	}
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Marker", "Position", "Section", "Field", "Req", "ID").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 5:
				return StyleDim
			default:
				return lipgloss.NewStyle()
			}
		}).
		Render()
}

// =============================================================================
// Add and Edit
// =============================================================================

// fieldFlags binds the text metadata of an annotation to flags. Only flags
// the user sets end up in the request; a flag set to "" clears the field.
type fieldFlags struct {
	marker, section, componentID, source, interactivity string
	fieldName, fieldContext, validation, apiName        string
	masterData, apiID, thirdParty, desktopDifference    string
	required, apiAvailable                              bool
}

func (f *fieldFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.marker, "marker", "", "marker label shown on the image")
	cmd.Flags().StringVar(&f.section, "section", "", "page section")
	cmd.Flags().StringVar(&f.componentID, "component", "", "component id")
	cmd.Flags().StringVar(&f.source, "source", "", "data source")
	cmd.Flags().StringVar(&f.interactivity, "interactivity", "", "interaction notes")
	cmd.Flags().StringVar(&f.fieldName, "field", "", "authoring field name")
	cmd.Flags().StringVar(&f.fieldContext, "context", "", "field context")
	cmd.Flags().StringVar(&f.validation, "validation", "", "validation rules")
	cmd.Flags().StringVar(&f.apiName, "api", "", "API name")
	cmd.Flags().StringVar(&f.apiID, "api-id", "", "API identifier")
	cmd.Flags().StringVar(&f.masterData, "master-data", "", "master data source")
	cmd.Flags().StringVar(&f.thirdParty, "third-party", "", "third-party integration")
	cmd.Flags().StringVar(&f.desktopDifference, "desktop-difference", "", "difference from the desktop view")
	cmd.Flags().BoolVar(&f.required, "required", false, "field is required")
	cmd.Flags().BoolVar(&f.apiAvailable, "api-available", false, "API is available")
}

func (f *fieldFlags) fields(cmd *cobra.Command) annotation.Fields {
	set := cmd.Flags().Changed
	str := func(flag, v string) *string {
		if !set(flag) {
			return nil
		}
		return &v
	}
	var out annotation.Fields
	out.Marker = str("marker", f.marker)
	out.Section = str("section", f.section)
	out.ComponentID = str("component", f.componentID)
	out.Source = str("source", f.source)
	out.Interactivity = str("interactivity", f.interactivity)
	out.AuthoringFieldName = str("field", f.fieldName)
	out.FieldContext = str("context", f.fieldContext)
	out.Validation = str("validation", f.validation)
	out.APIName = str("api", f.apiName)
	out.APIID = str("api-id", f.apiID)
	out.MasterData = str("master-data", f.masterData)
	out.ThirdPartyIntegration = str("third-party", f.thirdParty)
	out.DesktopViewDifference = str("desktop-difference", f.desktopDifference)
	if set("required") {
		out.IsRequired = &f.required
	}
	if set("api-available") {
		out.IsAPIAvailable = &f.apiAvailable
	}
	return out
}

func (c *CLI) annotateAddCommand() *cobra.Command {
	var (
		flags  remoteFlags
		fields fieldFlags
		x, y   float64
	)

	cmd := &cobra.Command{
		Use:   "add <screen-id>",
		Short: "Place a new annotation at natural image coordinates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, err := c.newClient(ctx, flags)
			if err != nil {
				return err
			}
			a, err := api.CreateAnnotation(ctx, args[0], x, y, fields.fields(cmd))
			if err != nil {
				return err
			}
			printSuccess("Added marker %s at (%.0f, %.0f)", StyleValue.Render(a.Marker), a.X, a.Y)
			printKeyValue("Annotation", a.ID)
			return nil
		},
	}
	flags.register(cmd)
	fields.register(cmd)
	cmd.Flags().Float64Var(&x, "x", 0, "natural x coordinate in pixels")
	cmd.Flags().Float64Var(&y, "y", 0, "natural y coordinate in pixels")
	cmd.MarkFlagRequired("x")
	cmd.MarkFlagRequired("y")
	cmd.MarkFlagRequired("marker")

	return cmd
}

func (c *CLI) annotateEditCommand() *cobra.Command {
	var (
		flags  remoteFlags
		fields fieldFlags
	)

	cmd := &cobra.Command{
		Use:   "edit <screen-id> <annotation-id>",
		Short: "Change the metadata of an annotation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, err := c.newClient(ctx, flags)
			if err != nil {
				return err
			}
			a, err := api.UpdateAnnotation(ctx, args[0], args[1], fields.fields(cmd))
			if err != nil {
				return err
			}
			printSuccess("Updated marker %s", StyleValue.Render(a.Marker))
			return nil
		},
	}
	flags.register(cmd)
	fields.register(cmd)

	return cmd
}

// =============================================================================
// Move
// =============================================================================

func (c *CLI) annotateMoveCommand() *cobra.Command {
	var (
		flags remoteFlags
		x, y  float64
	)

	cmd := &cobra.Command{
		Use:   "move <screen-id> <annotation-id>",
		Short: "Drag an annotation to new natural image coordinates",
		Long: `Drag an annotation to new natural image coordinates.

The move goes through the same placement controller as the editor: the
position is clamped to the image and sent once. If the server rejects it the
marker stays where it was.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, err := c.newClient(ctx, flags)
			if err != nil {
				return err
			}
			commit, err := c.moveAnnotation(ctx, api, args[0], args[1], geometry.Point{X: x, Y: y})
			if commit.RolledBack {
				printWarning("Move rejected; marker kept at (%.0f, %.0f)", commit.Position.X, commit.Position.Y)
			}
			if err != nil {
				return err
			}
			printSuccess("Moved to (%.0f, %.0f)", commit.Position.X, commit.Position.Y)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64Var(&x, "x", 0, "natural x coordinate in pixels")
	cmd.Flags().Float64Var(&y, "y", 0, "natural y coordinate in pixels")
	cmd.MarkFlagRequired("x")
	cmd.MarkFlagRequired("y")

	return cmd
}

// moveAnnotation replays a drag of one marker to target through a placement
// controller bound to the screen. The viewport is the image at 1:1, so
// display and natural coordinates coincide.
func (c *CLI) moveAnnotation(ctx context.Context, api *client.Client, screenID, annotationID string, target geometry.Point) (placement.Commit, error) {
	view, err := api.GetScreen(ctx, screenID)
	if err != nil {
		return placement.Commit{}, err
	}

	ctrl := placement.New(api.Screen(screenID), placement.WithLogger(c.Logger))
	for _, a := range view.Annotations {
		ctrl.Track(a.ID, geometry.Point{X: a.X, Y: a.Y})
	}
	if _, err := ctrl.PointerDownOnMarker(ctx, annotationID); err != nil {
		if err == placement.ErrUnknownMarker {
			return placement.Commit{}, apperrors.New(apperrors.ErrCodeNotFound,
				"annotation %s is not on screen %s", annotationID, screenID)
		}
		return placement.Commit{}, err
	}
	ctrl.PointerMove(target, naturalViewport(view.Screen))
	return ctrl.PointerUp(ctx)
}

func naturalViewport(s *annotation.Screen) geometry.ViewportMetrics {
	w, h := float64(s.ImageWidth), float64(s.ImageHeight)
	return geometry.ViewportMetrics{
		Container: geometry.Rect{Width: w, Height: h},
		Client:    geometry.Size{Width: w, Height: h},
		Natural:   geometry.Size{Width: w, Height: h},
		Zoom:      1,
	}
}
