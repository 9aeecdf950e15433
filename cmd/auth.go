package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"
)

// AuthStatus checks the app credentials with a client-credentials grant and the saved user token with a
// profile lookup.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking auth status")
	spotify := r.config.Credentials.Spotify

	if !spotify.HasAppCredentials() {
		r.writePlain("App credentials: ✗ Not configured\n")
	} else if _, err := r.clients.App(ctx); err != nil {
		r.logger.Debug("app authentication failed", "error", err)
		r.writePlain("App credentials: ✗ %v\n", err)
	} else {
		r.writePlain("App credentials: ✓ Valid\n")
	}

	token := spotify.Token()
	if token == nil {
		r.writePlain("User: ✗ Not authenticated (run 'songsim spotify auth')\n")
		return nil
	}

	client, err := r.userClient(ctx)
	if err != nil {
		r.writePlain("User: ✗ %v\n", err)
		return nil
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		r.writePlain("User: ✗ %v\n", err)
		return nil
	}

	r.writePlain("User: ✓ %s (%s)\n", user.DisplayName, user.ID)
	if !token.Expiry.IsZero() {
		r.writePlain("Token expires: %s\n", token.Expiry.Local().Format(time.DateTime))
	}
	return nil
}
