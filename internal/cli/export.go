package cli

import (
	"context"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/specsync/pkg/client"
	apperrors "github.com/matzehuels/specsync/pkg/errors"
	pkgio "github.com/matzehuels/specsync/pkg/io"
	"github.com/matzehuels/specsync/pkg/pipeline"
)

type exportOptions struct {
	annotations string
	image       string
	output      string
	screenID    string
	drawMarkers bool
	remote      remoteFlags
}

// exportCommand creates the export command. With --annotations it runs the
// pipeline locally; otherwise it asks a server to export one of its screens.
func (c *CLI) exportCommand() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export [screen-id]",
		Short: "Export a Visual BRD workbook",
		Long: `Export a Visual BRD workbook.

Offline, pass an annotations file (a JSON array of annotations, or the body of
GET /api/v1/screens/{id}) together with the annotated capture.

Against a server, name the screen or pick one interactively. Without --image
the stored screen image is downloaded and markers are drawn onto it.`,
		Example: `  # Offline
  specsync export --annotations notes.json --image capture.png

  # Remote, interactive screen picker
  specsync export

  # Remote, explicit screen and capture
  specsync export 2f0c... --image capture.png -o brd.xlsx`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.screenID = args[0]
			}
			if opts.annotations != "" {
				return c.runExportOffline(cmd.Context(), opts)
			}
			return c.runExportRemote(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.annotations, "annotations", "", "annotations JSON file (offline mode)")
	cmd.Flags().StringVar(&opts.image, "image", "", "annotated capture (PNG or JPEG; offline also GIF, BMP and WebP)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default BRD-<screen>.xlsx)")
	cmd.Flags().StringVar(&opts.screenID, "screen-id", "", "screen id used for the default file name (offline mode)")
	cmd.Flags().BoolVar(&opts.drawMarkers, "draw-markers", false, "draw markers onto --image before exporting")
	opts.remote.register(cmd)

	return cmd
}

// =============================================================================
// Offline
// =============================================================================

func (c *CLI) runExportOffline(ctx context.Context, opts exportOptions) error {
	if opts.image == "" {
		return apperrors.New(apperrors.ErrCodeMissingImage, "offline export requires --image")
	}
	file, err := pkgio.ImportJSON(opts.annotations)
	if err != nil {
		return err
	}
	notes, screenID := file.Annotations, file.ScreenID()
	if opts.screenID != "" {
		screenID = opts.screenID
	}
	capture, err := os.ReadFile(opts.image)
	if err != nil {
		return err
	}
	if opts.drawMarkers {
		if capture, err = pipeline.DrawMarkers(capture, notes); err != nil {
			return err
		}
	}

	start := time.Now()
	result, err := c.newRunner().Export(ctx, pipeline.Request{
		ScreenID:    screenID,
		Annotations: notes,
		Image:       capture,
	})
	if err != nil {
		return err
	}

	path := outputPath(opts.output, result.Filename)
	if err := writeDocument(path, result.Document); err != nil {
		return err
	}
	printSuccess("Exported %s", StyleValue.Render(filepath.Base(path)))
	printExportStats(result.Stats.Rows, result.Stats.Bytes, time.Since(start), result.Converted)
	printFile(path)
	return nil
}

// =============================================================================
// Remote
// =============================================================================

func (c *CLI) runExportRemote(ctx context.Context, opts exportOptions) error {
	api, err := c.newClient(ctx, opts.remote)
	if err != nil {
		return err
	}

	screenID := opts.screenID
	if screenID == "" {
		entry, err := c.pickScreen(ctx, api)
		if err != nil || entry == nil {
			return err
		}
		screenID = entry.Screen.ID
	}

	spinner := newSpinnerWithContext(ctx, "Loading screen...")
	spinner.Start()
	defer spinner.Stop()

	start := time.Now()
	var capture []byte
	name := captureName(opts.image)
	if opts.image != "" {
		if capture, err = os.ReadFile(opts.image); err != nil {
			return err
		}
		if opts.drawMarkers {
			if capture, err = c.markedCapture(ctx, api, screenID, capture); err != nil {
				return err
			}
			name = captureName("")
		}
	} else {
		stored, err := api.ScreenImage(ctx, screenID)
		if err != nil {
			return err
		}
		if capture, err = c.markedCapture(ctx, api, screenID, stored); err != nil {
			return err
		}
	}

	spinner.Update("Exporting workbook...")
	doc, err := api.Export(ctx, screenID, filepath.Base(name), capture)
	spinner.Stop()
	if err != nil {
		return err
	}

	path := outputPath(opts.output, doc.Filename)
	if err := writeDocument(path, doc.Data); err != nil {
		return err
	}
	printSuccess("Exported %s", StyleValue.Render(filepath.Base(path)))
	printDetail("%s · %s", formatBytes(len(doc.Data)), time.Since(start).Round(time.Millisecond))
	printFile(path)
	return nil
}

// markedCapture draws the screen's current annotations onto img.
func (c *CLI) markedCapture(ctx context.Context, api *client.Client, screenID string, img []byte) ([]byte, error) {
	screen, err := api.GetScreen(ctx, screenID)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("drawing markers", "screen", screenID, "annotations", len(screen.Annotations))
	return pipeline.DrawMarkers(img, screen.Annotations)
}

// pickScreen lists the caller's screens and lets the user choose one.
// A nil entry means the user quit without choosing.
func (c *CLI) pickScreen(ctx context.Context, api *client.Client) (*ScreenEntry, error) {
	entries, err := listScreens(ctx, api)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		printWarning("No screens yet")
		printNextStep("Upload one with", "specsync annotate upload <project> <image>")
		return nil, nil
	}

	final, err := tea.NewProgram(NewScreenPicker(entries), tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, err
	}
	if m, ok := final.(ScreenPicker); ok && m.Selected != nil {
		return m.Selected, nil
	}
	return nil, nil
}

// listScreens loads every screen of every project owned by the caller.
func listScreens(ctx context.Context, api *client.Client) ([]ScreenEntry, error) {
	projects, err := api.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	var entries []ScreenEntry
	for _, p := range projects {
		for _, id := range p.ScreenIDs {
			s, err := api.GetScreen(ctx, id)
			if err != nil {
				return nil, err
			}
			entries = append(entries, ScreenEntry{
				Project:     p.Name,
				Screen:      *s.Screen,
				Annotations: len(s.Annotations),
			})
		}
	}
	return entries, nil
}

// =============================================================================
// Helpers
// =============================================================================

func captureName(path string) string {
	if path == "" {
		return "capture.png"
	}
	return path
}

func outputPath(flag, suggested string) string {
	if flag != "" {
		return flag
	}
	return suggested
}

func writeDocument(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
