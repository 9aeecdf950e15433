package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/songsim/internal/services"
	"github.com/desertthunder/songsim/internal/shared"
	"github.com/desertthunder/songsim/internal/tasks"
	"github.com/urfave/cli/v3"
)

func (r *Runner) favorites(ctx context.Context) (*tasks.FavoritesManager, error) {
	client, err := r.userClient(ctx)
	if err != nil {
		return nil, err
	}
	return tasks.NewFavoritesManager(client, r.logger), nil
}

func trackArg(cmd *cli.Command) (string, error) {
	arg := cmd.StringArg("track")
	if arg == "" {
		return "", fmt.Errorf("%w: track id, URI or link", shared.ErrMissingArgument)
	}
	id, ok := services.ParseTrackID(arg)
	if !ok {
		return "", fmt.Errorf("%w: %q is not a track id", shared.ErrInvalidArgument, arg)
	}
	return id, nil
}

// FavoritesList prints the tracks in the favorites playlist.
func (r *Runner) FavoritesList(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.favorites(ctx)
	if err != nil {
		return err
	}

	items, err := manager.List(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(items, true)
	}

	r.writePlainHeader(tasks.FavoritesPlaylistName)
	if len(items) == 0 {
		return r.writePlain("No favorites yet. Add one with: songsim favorites add <track>\n")
	}

	for i, item := range items {
		t := item.Track
		r.writePlain("%d. %s - %s\n", i+1, strings.Join(t.ArtistNames(), ", "), t.Title)
		r.writePlain("   ID: %s\n", t.ID)
		if item.AddedAt != "" {
			r.writePlain("   Added: %s\n", item.AddedAt)
		}
	}
	return nil
}

// FavoritesAdd adds a track to the favorites playlist.
func (r *Runner) FavoritesAdd(ctx context.Context, cmd *cli.Command) error {
	id, err := trackArg(cmd)
	if err != nil {
		return err
	}

	manager, err := r.favorites(ctx)
	if err != nil {
		return err
	}

	if err := manager.Add(ctx, id); err != nil {
		return err
	}
	return r.writePlain("♥ Added %s to favorites\n", id)
}

// FavoritesRemove removes a track from the favorites playlist.
func (r *Runner) FavoritesRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := trackArg(cmd)
	if err != nil {
		return err
	}

	manager, err := r.favorites(ctx)
	if err != nil {
		return err
	}

	if err := manager.Remove(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s from favorites\n", id)
}
