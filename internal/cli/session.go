package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/specsync/pkg/client"
	apperrors "github.com/matzehuels/specsync/pkg/errors"
	"github.com/matzehuels/specsync/pkg/session"
)

// =============================================================================
// Session Management (server side)
// =============================================================================

// sessionCommand groups commands that manage tokens in the configured
// session backend. They talk to the backend directly, not to a server.
func (c *CLI) sessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Issue and revoke API session tokens",
		Long: `Issue and revoke API session tokens.

These commands write to the session backend named in the config file, so run
them against the same backend as 'specsync serve'.`,
	}
	cmd.AddCommand(c.sessionIssueCommand())
	cmd.AddCommand(c.sessionRevokeCommand())
	return cmd
}

type issueOptions struct {
	user   string
	name   string
	ttl    time.Duration
	save   bool
	server string
}

func (c *CLI) sessionIssueCommand() *cobra.Command {
	var opts issueOptions

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a session token for a user",
		Example: `  # Issue a token and save it as this machine's login
  specsync session issue --user u-42 --name "Design team" --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSessionIssue(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.user, "user", "", "user id the session acts as (required)")
	cmd.Flags().StringVar(&opts.name, "name", "", "display name")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 0, "session lifetime (default from config)")
	cmd.Flags().BoolVar(&opts.save, "save", false, "also save the token as the CLI login")
	cmd.Flags().StringVar(&opts.server, "server", "", "API base URL recorded with --save")
	cmd.MarkFlagRequired("user")

	return cmd
}

func (c *CLI) runSessionIssue(ctx context.Context, opts issueOptions) error {
	cfg := c.config()
	if strings.TrimSpace(opts.user) == "" {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "--user must not be empty")
	}
	ttl := opts.ttl
	if ttl <= 0 {
		ttl = cfg.Sessions.TTL
	}

	store, err := openSessions(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := session.New(opts.user, opts.name, ttl)
	if err != nil {
		return err
	}
	if err := store.Set(ctx, sess); err != nil {
		return err
	}
	c.Logger.Debug("issued session", "user", sess.UserID, "backend", cfg.Sessions.Backend)

	printSuccess("Issued session for %s", StyleValue.Render(sess.UserID))
	printKeyValue("Token", sess.ID)
	printKeyValue("Expires", sess.ExpiresAt.Format(time.RFC3339))

	if !opts.save {
		printNewline()
		printNextStep("Log in with", "specsync login --token "+sess.ID)
		return nil
	}

	saved := *sess
	saved.Server = opts.server
	if saved.Server == "" {
		saved.Server = cfg.Client.Server
	}
	creds, err := credentialStore()
	if err != nil {
		return err
	}
	if err := creds.SaveSession(ctx, &saved); err != nil {
		return err
	}
	printFile(creds.Path())
	return nil
}

func (c *CLI) sessionRevokeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token>",
		Short: "Revoke a session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openSessions(ctx, c.config())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Session revoked")
			return nil
		},
	}
}

// =============================================================================
// Login (client side)
// =============================================================================

func (c *CLI) loginCommand() *cobra.Command {
	var flags remoteFlags

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save a session token for remote commands",
		Long: `Save a session token for remote commands.

The token is checked against the server before it is saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLogin(cmd.Context(), flags)
		},
	}
	flags.register(cmd)
	cmd.MarkFlagRequired("token")

	return cmd
}

func (c *CLI) runLogin(ctx context.Context, flags remoteFlags) error {
	server := flags.server
	if server == "" {
		server = c.config().Client.Server
	}
	api, err := client.New(server, flags.token,
		client.WithTimeout(c.config().Client.Timeout),
		client.WithLogger(c.Logger))
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, "Verifying token...")
	spinner.Start()
	info, err := api.Session(ctx)
	spinner.Stop()
	if err != nil {
		return err
	}

	creds, err := credentialStore()
	if err != nil {
		return err
	}
	sess := &session.Session{
		ID:        flags.token,
		UserID:    info.UserID,
		Name:      info.Name,
		Server:    api.BaseURL(),
		ExpiresAt: info.ExpiresAt,
		CreatedAt: time.Now(),
	}
	if err := creds.SaveSession(ctx, sess); err != nil {
		return err
	}

	printSuccess("Logged in as %s", StyleValue.Render(displayName(info.UserID, info.Name)))
	printKeyValue("Server", api.BaseURL())
	printKeyValue("Expires", info.ExpiresAt.Format(time.RFC3339))
	return nil
}

func (c *CLI) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := credentialStore()
			if err != nil {
				return err
			}
			if err := creds.DeleteSession(cmd.Context()); err != nil {
				return err
			}
			printSuccess("Logged out")
			return nil
		},
	}
}

func (c *CLI) whoamiCommand() *cobra.Command {
	var flags remoteFlags

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the user of the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, err := c.newClient(ctx, flags)
			if err != nil {
				return err
			}
			info, err := api.Session(ctx)
			if err != nil {
				return err
			}
			printKeyValue("User", displayName(info.UserID, info.Name))
			printKeyValue("Server", api.BaseURL())
			printKeyValue("Expires", info.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
	flags.register(cmd)

	return cmd
}

func displayName(userID, name string) string {
	if name == "" || name == userID {
		return userID
	}
	return name + " (" + userID + ")"
}
