package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/songsim/internal/repositories"
	"github.com/desertthunder/songsim/internal/server"
	"github.com/desertthunder/songsim/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the JSON API until the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = port
	}

	if !r.config.Credentials.Spotify.HasAppCredentials() {
		r.logger.Warn("Spotify credentials not configured; /api/similar-songs will fail until they are set")
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	sessions := repositories.NewSessionRepository(db)
	if ttl := cmd.Duration("session-ttl"); ttl > 0 {
		if _, err := r.purgeSessions(sessions, ttl); err != nil {
			r.logger.Warn("stale sessions kept", "error", err)
		}
	}

	api := server.NewAPI(r.clients, sessions, server.APIConfig{
		FrontendURL:   cfg.FrontendURL,
		SecureCookies: cfg.SecureCookies,
		Engine:        r.engineOptions(),
	}, r.logger)

	handler := server.NewHandler(api, cfg, r.logger)
	return server.New(cfg, handler, r.logger).Run(ctx)
}
