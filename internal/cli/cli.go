// Package cli implements the specsync command-line interface.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/specsync/pkg/buildinfo"
	"github.com/matzehuels/specsync/pkg/config"
	"github.com/matzehuels/specsync/pkg/pipeline"
	"github.com/matzehuels/specsync/pkg/session"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "specsync"

	// envConfig names the config file when --config is not given.
	envConfig = "SPECSYNC_CONFIG"

	// envToken overrides the saved CLI credential.
	envToken = "SPECSYNC_TOKEN"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
// The config file is loaded once, before any subcommand runs.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "SpecSync annotates design screens and exports Visual BRD workbooks",
		Long: `SpecSync turns annotated design screens into Visual Business Requirements
Documents: an Excel workbook with the annotated screen on the left and one
table row per annotation on the right.

Run the API with 'specsync serve', or export a workbook offline from an
annotations file with 'specsync export'.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", os.Getenv(envConfig), "config file (TOML)")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.planCommand())
	root.AddCommand(c.sessionCommand())
	root.AddCommand(c.loginCommand())
	root.AddCommand(c.logoutCommand())
	root.AddCommand(c.whoamiCommand())
	root.AddCommand(c.projectCommand())
	root.AddCommand(c.annotateCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config returns the loaded configuration, or the defaults when a command
// runs without the root pre-run (as in tests).
func (c *CLI) config() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner() *pipeline.Runner {
	return pipeline.NewRunner(c.config().Export, c.Logger)
}

// =============================================================================
// Paths
// =============================================================================

// configDir returns the config directory using XDG standard (~/.config/specsync/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// credentialStore opens the store holding the CLI's saved session.
func credentialStore() (*session.CLIStore, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	return session.NewCLIStore(filepath.Join(dir, "sessions"))
}
