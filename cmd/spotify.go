package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/songsim/internal/models"
	"github.com/desertthunder/songsim/internal/server"
	"github.com/desertthunder/songsim/internal/services"
	"github.com/desertthunder/songsim/internal/shared"
	"github.com/desertthunder/songsim/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// SpotifyAuth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	if !r.config.Credentials.Spotify.HasAppCredentials() {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	auth, err := r.clients.OAuth()
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	token, err := r.doOAuth(ctx, auth, "authorization")
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: songsim favorites list\n")

	return nil
}

// SpotifyPlaylists lists Spotify playlists with optional limit.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	client, err := r.userClient(ctx)
	if err != nil {
		return err
	}

	r.logger.Infof("listing spotify playlists with limit %v", limit)

	playlists, err := client.Playlists(ctx)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		if p.Public {
			r.writePlain("   Visibility: Public\n")
		} else {
			r.writePlain("   Visibility: Private\n")
		}
		r.writePlain("\n")
	}

	return nil
}

// SpotifyTopTracks lists the user's top tracks.
func (r *Runner) SpotifyTopTracks(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	timeRange := cmd.String("range")

	switch timeRange {
	case "short_term", "medium_term", "long_term":
	default:
		return fmt.Errorf("%w: range must be short_term, medium_term or long_term", shared.ErrInvalidArgument)
	}

	client, err := r.userClient(ctx)
	if err != nil {
		return err
	}

	tracks, err := client.TopTracks(ctx, limit, timeRange)
	if err != nil {
		return fmt.Errorf("failed to fetch top tracks: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	r.writePlain("Top %d tracks (%s):\n\n", len(tracks), timeRange)
	r.writeTracks(tracks)
	return nil
}

// SpotifyCreatePlaylist creates a playlist from the track ids given as arguments.
func (r *Runner) SpotifyCreatePlaylist(ctx context.Context, cmd *cli.Command) error {
	ids, err := parseTrackIDs(cmd.Args().Slice())
	if err != nil {
		return err
	}

	client, err := r.userClient(ctx)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 1)
	manager := tasks.NewFavoritesManager(client, r.logger)
	manager.SetProgress(progress)

	playlist, err := manager.CreatePlaylist(ctx, cmd.String("name"), ids)
	close(progress)
	for update := range progress {
		r.logger.Info(update.Message)
	}
	if err != nil {
		return err
	}

	r.writePlain("✓ Created playlist %s\n", playlist.Name)
	r.writePlain("  ID: %s\n", playlist.ID)
	r.writePlain("  Tracks: %d\n", playlist.TrackCount)
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server on the redirect URL's address.
func (r *Runner) doOAuth(ctx context.Context, auth services.OAuthService, prefix string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := auth.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(auth, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	srvCfg := callbackServerConfig(r.config.Server, auth.OAuthConfig().RedirectURL)
	srv := server.New(srvCfg, router, r.logger)

	srvCtx, stop := context.WithCancel(ctx)
	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", prefix, srv.Addr())
		serverErrors <- srv.Run(srvCtx)
		close(serverErrors)
	}()
	defer func() {
		stop()
		<-serverErrors
	}()

	r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%v timeout)...\n", authTimeout)

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		if err == nil {
			err = fmt.Errorf("callback server stopped")
		}
		return nil, err
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, authTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}

// callbackServerConfig listens on the redirect URL's host and port, falling back to base.
func callbackServerConfig(base shared.ServerConfig, redirectURL string) shared.ServerConfig {
	u, err := url.Parse(redirectURL)
	if err != nil || u.Host == "" {
		return base
	}

	base.Host = u.Hostname()
	if port, err := strconv.Atoi(u.Port()); err == nil {
		base.Port = port
	}
	return base
}

// parseTrackIDs accepts ids, spotify:track URIs and open.spotify.com links.
func parseTrackIDs(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: at least one track id", shared.ErrMissingArgument)
	}

	ids := make([]string, 0, len(args))
	for _, arg := range args {
		id, ok := services.ParseTrackID(arg)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a track id", shared.ErrInvalidArgument, arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *Runner) writeTracks(tracks []models.Track) {
	for i, t := range tracks {
		r.writePlain("%d. %s - %s\n", i+1, strings.Join(t.ArtistNames(), ", "), t.Title)
		if t.Album.Name != "" {
			r.writePlain("   Album: %s\n", t.Album.Name)
		}
		r.writePlain("   ID: %s\n", t.ID)
	}
}
