package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/songsim/internal/models"
	"github.com/desertthunder/songsim/internal/repositories"
	"github.com/desertthunder/songsim/internal/shared"
	"github.com/urfave/cli/v3"
)

// SessionsList prints the stored browser sessions.
func (r *Runner) SessionsList(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	criteria := map[string]any{}
	if cmd.Bool("authenticated") {
		criteria["authenticated"] = true
	}

	sessions, err := repositories.NewSessionRepository(db).List(criteria)
	if err != nil {
		return err
	}

	r.writePlain("Found %d sessions:\n\n", len(sessions))
	for _, s := range sessions {
		status := "anonymous"
		if s.Authenticated() {
			status = "logged in"
		}
		r.writePlain("%s  %-10s  user=%s  updated=%s\n",
			s.ID(), status, s.UserID(), s.UpdatedAt().Local().Format(time.DateTime))
	}
	return nil
}

// SessionsPurge deletes logged-out sessions and sessions idle for longer than --older-than.
func (r *Runner) SessionsPurge(ctx context.Context, cmd *cli.Command) error {
	olderThan := cmd.Duration("older-than")
	if olderThan <= 0 {
		return fmt.Errorf("%w: --older-than must be positive", shared.ErrInvalidArgument)
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	purged, err := r.purgeSessions(repositories.NewSessionRepository(db), olderThan)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Purged %d sessions\n", purged)
}

func (r *Runner) purgeSessions(store models.SessionStore, olderThan time.Duration) (int64, error) {
	purged, err := store.Purge(time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	r.logger.Info("sessions purged", "count", purged, "older_than", olderThan)
	return purged, nil
}
