package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/specsync/pkg/config"
	"github.com/matzehuels/specsync/pkg/observability"
	"github.com/matzehuels/specsync/pkg/pipeline"
	"github.com/matzehuels/specsync/pkg/server"
	"github.com/matzehuels/specsync/pkg/session"
	"github.com/matzehuels/specsync/pkg/staging"
)

// serveOptions holds flag overrides for the serve command.
type serveOptions struct {
	addr     string
	noAuth   bool
	storage  string
	mongoURI string
	redisURL string
}

// serveCommand creates the serve command that runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the SpecSync HTTP API",
		Long: `Run the SpecSync HTTP API.

Flags override the config file and SPECSYNC_* environment variables.
Expired sessions are swept in the background while the server runs.`,
		Example: `  # In-memory records, images and sessions under ~/.specsync
  specsync serve

  # MongoDB records, Redis images and sessions
  specsync serve --storage mongo --mongo-uri mongodb://localhost:27017 \
      --redis-url redis://localhost:6379/0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config()
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&opts.noAuth, "no-auth", false, "serve every request as a local mock session")
	cmd.Flags().StringVar(&opts.storage, "storage", "", "record store: memory or mongo")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo-uri", "", "MongoDB connection URI")
	cmd.Flags().StringVar(&opts.redisURL, "redis-url", "", "Redis URL for blob and session backends")

	return cmd
}

// apply copies changed flags onto cfg and revalidates it.
func (o serveOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Addr = o.addr
	}
	if flags.Changed("no-auth") {
		cfg.Server.NoAuth = o.noAuth
	}
	if flags.Changed("storage") {
		cfg.Storage.Backend = o.storage
	}
	if flags.Changed("mongo-uri") {
		cfg.Storage.Mongo.URI = o.mongoURI
	}
	if flags.Changed("redis-url") {
		cfg.Redis.URL = o.redisURL
	}
	return cfg.Validate()
}

func (c *CLI) runServe(ctx context.Context, cfg *config.Config) error {
	logger := c.Logger.WithPrefix("serve")

	hooks := observability.NewLogHooks(logger)
	observability.SetExportHooks(hooks)
	observability.SetPlacementHooks(hooks)
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.Close(closeCtx); err != nil {
			logger.Warn("closing backends", "err", err)
		}
	}()

	stager, err := staging.New(cfg.UploadDir(), cfg.Server.MaxUploadBytes)
	if err != nil {
		return err
	}

	exportOpts := cfg.Export
	exportOpts.MaxImageBytes = stager.MaxBytes()

	srv, err := server.New(server.Options{
		Store:    b.Store,
		Blobs:    b.Blobs,
		Sessions: b.Sessions,
		Stager:   stager,
		Runner:   pipeline.NewRunner(exportOpts, logger),
		Logger:   logger,
		NoAuth:   cfg.Server.NoAuth,
	})
	if err != nil {
		return err
	}

	if cfg.Server.NoAuth {
		logger.Warn("authentication disabled; every request runs as the local user")
	}
	logger.Info("starting", "config", c.configPath,
		"storage", cfg.Storage.Backend, "blobs", cfg.Blobs.Backend, "sessions", cfg.Sessions.Backend)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	})
	g.Go(func() error {
		return session.RunCleanup(gctx, b.Sessions, cfg.Sessions.CleanupInterval, logger)
	})
	return g.Wait()
}
