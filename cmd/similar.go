package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/songsim/internal/formatter"
	"github.com/desertthunder/songsim/internal/services"
	"github.com/desertthunder/songsim/internal/shared"
	"github.com/desertthunder/songsim/internal/tasks"
	"github.com/urfave/cli/v3"
)

const searchMaxLimit = 50

// Similar resolves the seed argument and prints the categorized similar tracks.
//
// Progress is logged to stderr so stdout carries only the rendered result.
func (r *Runner) Similar(ctx context.Context, cmd *cli.Command) error {
	arg := cmd.StringArg("track")
	if arg == "" {
		return fmt.Errorf("%w: track id, URI or link", shared.ErrMissingArgument)
	}

	trackID, ok := services.ParseTrackID(arg)
	if !ok {
		return fmt.Errorf("%w: %q is not a track id", shared.ErrInvalidArgument, arg)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	quiet := cmd.Bool("quiet")
	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	var seed *tasks.SeedContext

	go func() {
		defer close(done)
		for update := range progress {
			if s, ok := update.Data.(*tasks.SeedContext); ok {
				seed = s
			}
			if quiet {
				continue
			}
			if update.Err != nil {
				r.logger.Warn(update.Message, "phase", update.Phase, "error", update.Err)
			} else {
				r.logger.Info(update.Message, "phase", update.Phase)
			}
		}
	}()

	resp, err := engine.Run(ctx, trackID, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(resp, cmd.Bool("pretty"))
	}

	title := fmt.Sprintf("Similar to %s", trackID)
	if seed != nil {
		title = fmt.Sprintf("Similar to %s by %s", seed.Track.Title, seed.PrimaryArtistName)
	}

	if output := cmd.String("output"); output != "" || cmd.Bool("save") {
		path, err := formatter.WriteExport(format, title, trackID, resp, output)
		if err != nil {
			return err
		}
		r.logger.Info("result exported", "path", path, "tracks", resp.TotalTracks())
		return r.writePlain("✓ Saved %d tracks to %s\n", resp.TotalTracks(), path)
	}

	data, err := formatter.Render(format, title, resp)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// Search prints tracks matching the query arguments.
//
// Uses the saved user token when present, otherwise app credentials.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	limit := cmd.Int("limit")
	if limit < 1 || limit > searchMaxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", shared.ErrInvalidArgument, searchMaxLimit)
	}

	market := cmd.String("market")
	if market == "" {
		market = r.config.Recommend.DefaultMarket
	}

	catalog, err := r.searchCatalog(ctx)
	if err != nil {
		return err
	}

	tracks, err := catalog.Search(ctx, query, market, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	if len(tracks) == 0 {
		return r.writePlain("No tracks found for %q\n", query)
	}

	r.writePlain("Found %d tracks for %q:\n\n", len(tracks), query)
	r.writeTracks(tracks)
	return nil
}

func (r *Runner) searchCatalog(ctx context.Context) (services.Catalog, error) {
	if r.config.Credentials.Spotify.Token() != nil {
		client, err := r.userClient(ctx)
		if err == nil {
			return client, nil
		}
		r.logger.Debug("user client unavailable, using app credentials", "error", err)
	}
	return r.clients.App(ctx)
}
