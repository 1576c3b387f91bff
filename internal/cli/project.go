package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/specsync/pkg/annotation"
	apperrors "github.com/matzehuels/specsync/pkg/errors"
)

// projectCommand groups the remote project commands.
func (c *CLI) projectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "List and create projects on a server",
	}
	cmd.AddCommand(c.projectListCommand())
	cmd.AddCommand(c.projectCreateCommand())
	return cmd
}

func (c *CLI) projectListCommand() *cobra.Command {
	var flags remoteFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, err := c.newClient(ctx, flags)
			if err != nil {
				return err
			}
			projects, err := api.ListProjects(ctx)
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				printInfo("No projects yet")
				printNextStep("Create one with", "specsync project create <name>")
				return nil
			}
			fmt.Fprintln(stdout, renderProjects(projects, time.Now()))
			return nil
		},
	}
	flags.register(cmd)

	return cmd
}

func renderProjects(projects []annotation.Project, now time.Time) string {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{p.Name, strconv.Itoa(len(p.ScreenIDs)), formatRelativeTime(p.UpdatedAt, now), p.ID})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Project", "Screens", "Updated", "ID").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return listHeaderStyle
			}
			if col == 3 {
				return StyleDim
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

func (c *CLI) projectCreateCommand() *cobra.Command {
	var (
		flags remoteFlags
		image string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, err := c.newClient(ctx, flags)
			if err != nil {
				return err
			}
			var p *annotation.Project
			if image != "" {
				data, readErr := os.ReadFile(image)
				if readErr != nil {
					return apperrors.Wrap(apperrors.ErrCodeMissingImage, readErr, "read %s", image)
				}
				p, err = api.CreateProjectWithImage(ctx, args[0], image, data)
			} else {
				p, err = api.CreateProject(ctx, args[0])
			}
			if err != nil {
				return err
			}
			printSuccess("Created project %s", StyleValue.Render(p.Name))
			printKeyValue("Project", p.ID)
			if p.ImageKey != "" {
				printKeyValue("Image", p.ImageKey[:min(12, len(p.ImageKey))])
			}
			printNewline()
			printNextStep("Upload a screen with", "specsync annotate upload "+p.ID+" <image>")
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&image, "image", "", "cover image (PNG or JPEG)")

	return cmd
}
