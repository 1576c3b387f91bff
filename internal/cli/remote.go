package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/specsync/pkg/client"
	apperrors "github.com/matzehuels/specsync/pkg/errors"
)

// remoteFlags select the API server and credential for remote commands.
type remoteFlags struct {
	server string
	token  string
}

func (f *remoteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.server, "server", "", "API base URL (default: saved login, then config)")
	cmd.Flags().StringVar(&f.token, "token", "", "session token (default: $"+envToken+", then saved login)")
}

// newClient builds an API client. The token comes from --token, then
// $SPECSYNC_TOKEN, then the saved login. The server comes from --server,
// then the saved login, then the config file.
func (c *CLI) newClient(ctx context.Context, f remoteFlags) (*client.Client, error) {
	token, server := f.token, f.server
	if token == "" {
		token = os.Getenv(envToken)
	}
	if token == "" || server == "" {
		if creds, err := credentialStore(); err == nil {
			if saved, err := creds.GetSession(ctx); err == nil && saved != nil {
				if token == "" {
					token = saved.ID
				}
				if server == "" {
					server = saved.Server
				}
			}
		}
	}
	if token == "" {
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized,
			"not logged in; run 'specsync login --token <token>' or set %s", envToken)
	}
	if server == "" {
		server = c.config().Client.Server
	}
	return client.New(server, token,
		client.WithTimeout(c.config().Client.Timeout),
		client.WithLogger(c.Logger))
}
