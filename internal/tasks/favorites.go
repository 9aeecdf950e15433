package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songsim/internal/models"
	"github.com/desertthunder/songsim/internal/services"
	"github.com/desertthunder/songsim/internal/shared"
)

const (
	FavoritesPlaylistName = "Song Similarity Finder Favorites"
	favoritesDescription  = "Your favorite tracks from Song Similarity Finder"

	DefaultPlaylistName = "Similar Songs Playlist"
	playlistDescription = "Created with Song Similarity Finder"
)

// FavoritesManager keeps the user's favorites in a private playlist named [FavoritesPlaylistName],
// creating it on first use.
type FavoritesManager struct {
	library  services.Library
	logger   *log.Logger
	progress chan<- ProgressUpdate
}

// NewFavoritesManager creates a manager over library. A nil logger uses the default logger.
func NewFavoritesManager(library services.Library, logger *log.Logger) *FavoritesManager {
	if logger == nil {
		logger = log.Default()
	}
	return &FavoritesManager{library: library, logger: logger}
}

// SetProgress routes playlist creation events to progress.
func (m *FavoritesManager) SetProgress(progress chan<- ProgressUpdate) {
	m.progress = progress
}

// List returns the favorites, creating the empty playlist if it does not exist yet.
func (m *FavoritesManager) List(ctx context.Context) ([]models.PlaylistItem, error) {
	playlist, err := m.findOrCreate(ctx)
	if err != nil {
		return nil, err
	}

	items, err := m.library.PlaylistTracks(ctx, playlist.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	if items == nil {
		items = []models.PlaylistItem{}
	}
	return items, nil
}

// Add appends trackID to the favorites playlist, creating it if needed.
func (m *FavoritesManager) Add(ctx context.Context, trackID string) error {
	if trackID == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	playlist, err := m.findOrCreate(ctx)
	if err != nil {
		return err
	}

	if err := m.library.AddItems(ctx, playlist.ID, []string{trackID}); err != nil {
		return fmt.Errorf("failed to add favorite %s: %w", trackID, err)
	}
	m.logger.Debug("favorite added", "track", trackID, "playlist", playlist.ID)
	return nil
}

// Remove deletes every occurrence of trackID from the favorites playlist.
// Fails with [shared.ErrPlaylistNotFound] when the playlist was never created.
func (m *FavoritesManager) Remove(ctx context.Context, trackID string) error {
	if trackID == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	user, err := m.library.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch current user: %w", err)
	}

	playlist, err := m.find(ctx, user.ID)
	if err != nil {
		return err
	}
	if playlist == nil {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, FavoritesPlaylistName)
	}

	if err := m.library.RemoveItems(ctx, playlist.ID, []string{trackID}); err != nil {
		return fmt.Errorf("failed to remove favorite %s: %w", trackID, err)
	}
	m.logger.Debug("favorite removed", "track", trackID, "playlist", playlist.ID)
	return nil
}

// CreatePlaylist creates a public playlist holding trackIDs. An empty name uses [DefaultPlaylistName].
func (m *FavoritesManager) CreatePlaylist(ctx context.Context, name string, trackIDs []string) (*models.Playlist, error) {
	if len(trackIDs) == 0 {
		return nil, fmt.Errorf("%w: no tracks provided", shared.ErrMissingArgument)
	}
	if name == "" {
		name = DefaultPlaylistName
	}

	user, err := m.library.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch current user: %w", err)
	}

	playlist, err := m.library.CreatePlaylist(ctx, user.ID, name, playlistDescription, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist %q: %w", name, err)
	}
	sendProgress(m.progress, favoritesCreatedUpdate(playlist))

	if err := m.library.AddItems(ctx, playlist.ID, trackIDs); err != nil {
		return nil, fmt.Errorf("failed to add tracks to %q: %w", name, err)
	}
	playlist.TrackCount = len(trackIDs)
	return playlist, nil
}

func (m *FavoritesManager) findOrCreate(ctx context.Context) (*models.Playlist, error) {
	user, err := m.library.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch current user: %w", err)
	}

	playlist, err := m.find(ctx, user.ID)
	if err != nil || playlist != nil {
		return playlist, err
	}

	playlist, err = m.library.CreatePlaylist(ctx, user.ID, FavoritesPlaylistName, favoritesDescription, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create favorites playlist: %w", err)
	}
	m.logger.Info("created favorites playlist", "playlist", playlist.ID, "user", user.ID)
	sendProgress(m.progress, favoritesCreatedUpdate(playlist))
	return playlist, nil
}

// find scans the user's playlists for an exact name match owned by userID. Returns nil when absent.
func (m *FavoritesManager) find(ctx context.Context, userID string) (*models.Playlist, error) {
	playlists, err := m.library.Playlists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}

	for i := range playlists {
		p := playlists[i]
		if p.Name != FavoritesPlaylistName {
			continue
		}
		if p.OwnerID != "" && p.OwnerID != userID {
			continue
		}
		return &p, nil
	}
	return nil, nil
}
